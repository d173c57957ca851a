package realtime

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Conn is the part of a websocket connection the hub needs.
type Conn interface {
	WriteJSON(v interface{}) error
	SetWriteDeadline(t time.Time) error
	ReadMessage() (messageType int, p []byte, err error)
	Close() error
}

// Observer is notified about subscriber and publish activity.
type Observer interface {
	SubscribersChanged(delta int)
	EventPublished(typ EventType)
}

type nopObserver struct{}

func (nopObserver) SubscribersChanged(int)   {}
func (nopObserver) EventPublished(EventType) {}

// HubOptions configures a hub.
type HubOptions struct {
	Logger       *zap.Logger
	Observer     Observer
	SendBuffer   int
	WriteTimeout time.Duration
}

type subscriber struct {
	conn Conn
	send chan Event
}

// Hub fans events out to the websocket subscribers of each channel.
type Hub struct {
	mu       sync.RWMutex
	channels map[string]map[*subscriber]struct{}
	incoming chan Event
	logger   *zap.Logger
	observer Observer
	buffer   int
	timeout  time.Duration
}

// NewHub builds a hub. Run must be started for published events to be delivered.
func NewHub(opts HubOptions) *Hub {
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.Observer == nil {
		opts.Observer = nopObserver{}
	}
	if opts.SendBuffer <= 0 {
		opts.SendBuffer = 32
	}
	if opts.WriteTimeout <= 0 {
		opts.WriteTimeout = 10 * time.Second
	}
	return &Hub{
		channels: make(map[string]map[*subscriber]struct{}),
		incoming: make(chan Event, 256),
		logger:   opts.Logger.With(zap.String("component", "realtime_hub")),
		observer: opts.Observer,
		buffer:   opts.SendBuffer,
		timeout:  opts.WriteTimeout,
	}
}

// Run delivers published events until ctx is cancelled, then disconnects everyone.
func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case ev := <-h.incoming:
			h.deliver(ev)
		case <-ctx.Done():
			h.closeAll()
			return
		}
	}
}

// Publish queues an event for delivery on this instance.
func (h *Hub) Publish(ctx context.Context, ev Event) error {
	select {
	case h.incoming <- ev:
		h.observer.EventPublished(ev.Type)
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Serve attaches conn to channel and blocks until the peer goes away, a write
// fails or ctx ends.
func (h *Hub) Serve(ctx context.Context, channel string, conn Conn) {
	sub := &subscriber{conn: conn, send: make(chan Event, h.buffer)}
	h.add(channel, sub)

	written := make(chan struct{})
	go func() {
		defer close(written)
		h.writeLoop(sub)
	}()

	gone := make(chan struct{})
	go func() {
		defer close(gone)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	select {
	case <-ctx.Done():
	case <-gone:
	case <-written:
	}
	h.remove(channel, sub)
	<-written
	_ = conn.Close()
}

// Subscribers returns the number of live subscribers on channel.
func (h *Hub) Subscribers(channel string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.channels[channel])
}

func (h *Hub) writeLoop(sub *subscriber) {
	for ev := range sub.send {
		_ = sub.conn.SetWriteDeadline(time.Now().Add(h.timeout))
		if err := sub.conn.WriteJSON(ev); err != nil {
			h.logger.Debug("realtime write failed", zap.Error(err))
			return
		}
	}
}

func (h *Hub) deliver(ev Event) {
	var slow []*subscriber
	h.mu.RLock()
	for sub := range h.channels[ev.Channel] {
		select {
		case sub.send <- ev:
		default:
			slow = append(slow, sub)
		}
	}
	h.mu.RUnlock()

	for _, sub := range slow {
		h.logger.Warn("dropping slow realtime subscriber", zap.String("channel", ev.Channel))
		h.remove(ev.Channel, sub)
	}
}

func (h *Hub) add(channel string, sub *subscriber) {
	h.mu.Lock()
	subs, ok := h.channels[channel]
	if !ok {
		subs = make(map[*subscriber]struct{})
		h.channels[channel] = subs
	}
	subs[sub] = struct{}{}
	h.mu.Unlock()
	h.observer.SubscribersChanged(1)
}

func (h *Hub) remove(channel string, sub *subscriber) {
	h.mu.Lock()
	subs := h.channels[channel]
	if _, ok := subs[sub]; !ok {
		h.mu.Unlock()
		return
	}
	delete(subs, sub)
	if len(subs) == 0 {
		delete(h.channels, channel)
	}
	close(sub.send)
	h.mu.Unlock()
	h.observer.SubscribersChanged(-1)
}

func (h *Hub) closeAll() {
	h.mu.Lock()
	removed := 0
	for channel, subs := range h.channels {
		for sub := range subs {
			close(sub.send)
			removed++
		}
		delete(h.channels, channel)
	}
	h.mu.Unlock()
	if removed > 0 {
		h.observer.SubscribersChanged(-removed)
	}
}
