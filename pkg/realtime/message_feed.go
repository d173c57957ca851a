package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/noah-isme/prefect-api/internal/models"
	"github.com/noah-isme/prefect-api/pkg/feed"
)

// MessageSource loads a conversation's current state.
type MessageSource interface {
	ListMessages(ctx context.Context, conversationID string, filter models.MessagePageFilter) ([]models.Message, error)
	ListParticipants(ctx context.Context, conversationID string) ([]models.Participant, error)
}

// Subscription is a live stream of events on one channel.
type Subscription interface {
	Events() <-chan Event
	Close() error
}

// Subscriber opens subscriptions.
type Subscriber interface {
	Subscribe(ctx context.Context, channel string) (Subscription, error)
}

var (
	// ErrFeedClosed is returned by operations that need an open conversation.
	ErrFeedClosed = errors.New("realtime: no conversation selected")
	// ErrStreamLost is reported when the change stream ends while the feed is open.
	ErrStreamLost = errors.New("realtime: change stream lost")
)

const maxResyncDelay = 30 * time.Second

// FeedOptions tunes a message feed.
type FeedOptions struct {
	// Limit is the number of most recent messages fetched on open. Zero means 50.
	Limit int
	// Timeout bounds the initial fetch and subscribe. Zero means 15 seconds.
	Timeout time.Duration
	// OnChange fires after an event or a resync changed the held messages.
	OnChange func()
	// OnError fires when the change stream is lost and on every failed resync.
	OnError func(error)
	// RetryDelay is the first pause between resync attempts. It doubles up to
	// 30 seconds. Zero means one second.
	RetryDelay time.Duration
}

// MessageFeed holds the messages of the selected conversation and keeps them
// in step with its change stream. Events for a record are ordered by their
// commit timestamp, redelivered events are no-ops and a deleted id never
// comes back.
type MessageFeed struct {
	source     MessageSource
	subscriber Subscriber
	opts       FeedOptions

	mu             sync.Mutex
	conversationID string
	channel        string
	messages       *feed.List[models.Message]
	versions       map[string]time.Time
	tombstones     map[string]struct{}
	participants   []models.Participant
	err            error
	stop           chan struct{}
	done           chan struct{}
}

// NewMessageFeed builds a closed feed.
func NewMessageFeed(source MessageSource, subscriber Subscriber, opts FeedOptions) *MessageFeed {
	if opts.Limit <= 0 {
		opts.Limit = 50
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 15 * time.Second
	}
	if opts.OnChange == nil {
		opts.OnChange = func() {}
	}
	if opts.OnError == nil {
		opts.OnError = func(error) {}
	}
	if opts.RetryDelay <= 0 {
		opts.RetryDelay = time.Second
	}
	return &MessageFeed{source: source, subscriber: subscriber, opts: opts, messages: newMessageList()}
}

func newMessageList() *feed.List[models.Message] {
	return feed.NewList[models.Message](func(a, b models.Message) bool {
		if a.CreatedAt.Equal(b.CreatedAt) {
			return a.ID < b.ID
		}
		return a.CreatedAt.Before(b.CreatedAt)
	})
}

// Select switches to another conversation, tearing down the previous
// subscription before the new one is opened.
func (f *MessageFeed) Select(ctx context.Context, conversationID string) error {
	return f.Open(ctx, conversationID)
}

// Open subscribes to the conversation's channel, then loads its most recent
// messages and its participants. Events arriving during the load are merged
// once it completes.
func (f *MessageFeed) Open(ctx context.Context, conversationID string) error {
	f.Close()

	ctx, cancel := context.WithTimeout(ctx, f.opts.Timeout)
	defer cancel()

	snap, err := f.load(ctx, conversationID)
	if err != nil {
		return err
	}

	f.mu.Lock()
	f.conversationID = conversationID
	f.channel = ConversationChannel(conversationID)
	f.tombstones = make(map[string]struct{})
	f.replace(snap)
	f.err = nil
	f.stop = make(chan struct{})
	f.done = make(chan struct{})
	stop, done := f.stop, f.done
	f.mu.Unlock()

	go f.consume(conversationID, snap.sub, stop, done)
	return nil
}

// Close unsubscribes and clears the held state. Closing a closed feed is a no-op.
func (f *MessageFeed) Close() {
	f.mu.Lock()
	stop, done := f.stop, f.done
	f.stop, f.done = nil, nil
	f.conversationID, f.channel = "", ""
	f.messages = newMessageList()
	f.versions, f.tombstones, f.participants = nil, nil, nil
	f.err = nil
	f.mu.Unlock()

	if stop == nil {
		return
	}
	close(stop)
	<-done
}

// Err reports why the feed is out of step with the server, or nil while the
// change stream is healthy.
func (f *MessageFeed) Err() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.err
}

type snapshot struct {
	sub          Subscription
	messages     []models.Message
	participants []models.Participant
}

// load subscribes first so no event committed during the fetch is missed.
func (f *MessageFeed) load(ctx context.Context, conversationID string) (*snapshot, error) {
	sub, err := f.subscriber.Subscribe(ctx, ConversationChannel(conversationID))
	if err != nil {
		return nil, err
	}
	snap := &snapshot{sub: sub}
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		snap.messages, err = f.source.ListMessages(gctx, conversationID, models.MessagePageFilter{Limit: f.opts.Limit})
		return err
	})
	g.Go(func() error {
		var err error
		snap.participants, err = f.source.ListParticipants(gctx, conversationID)
		return err
	})
	if err := g.Wait(); err != nil {
		_ = sub.Close()
		return nil, err
	}
	return snap, nil
}

// replace swaps in a freshly loaded snapshot. Tombstoned ids stay dead.
// Callers hold f.mu.
func (f *MessageFeed) replace(snap *snapshot) {
	kept := make([]models.Message, 0, len(snap.messages))
	f.versions = make(map[string]time.Time, len(snap.messages))
	for _, m := range snap.messages {
		if _, dead := f.tombstones[m.ID]; dead {
			continue
		}
		kept = append(kept, m)
		f.versions[m.ID] = m.UpdatedAt
	}
	f.messages = newMessageList()
	f.messages.Replace(kept)
	f.participants = snap.participants
}

// ConversationID returns the selected conversation.
func (f *MessageFeed) ConversationID() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.conversationID
}

// Messages returns the held messages in ascending creation order.
func (f *MessageFeed) Messages() []models.Message {
	f.mu.Lock()
	list := f.messages
	f.mu.Unlock()
	return list.Snapshot()
}

// Participants returns the participants loaded on open.
func (f *MessageFeed) Participants() []models.Participant {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]models.Participant, len(f.participants))
	copy(out, f.participants)
	return out
}

// Apply merges one event and reports whether the held messages changed.
func (f *MessageFeed) Apply(ev Event) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.channel == "" || ev.Channel != f.channel || ev.RecordID == "" {
		return false
	}

	switch ev.Type {
	case EventDelete:
		f.tombstones[ev.RecordID] = struct{}{}
		delete(f.versions, ev.RecordID)
		return f.messages.Remove(ev.RecordID)
	case EventInsert, EventUpdate:
		if _, dead := f.tombstones[ev.RecordID]; dead {
			return false
		}
		if held, ok := f.versions[ev.RecordID]; ok && !ev.CommitTS.After(held) {
			return false
		}
		var msg models.Message
		if err := json.Unmarshal(ev.Record, &msg); err != nil || msg.ID != ev.RecordID {
			return false
		}
		if msg.ConversationID != "" && msg.ConversationID != f.conversationID {
			return false
		}
		f.versions[ev.RecordID] = ev.CommitTS
		f.messages.Upsert(msg)
		return true
	default:
		return false
	}
}

func (f *MessageFeed) consume(conversationID string, sub Subscription, stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)
	for sub != nil {
		if !f.drain(sub, stop) {
			_ = sub.Close()
			return
		}
		_ = sub.Close()
		f.fail(stop, ErrStreamLost)
		sub = f.resync(conversationID, stop)
	}
}

// drain applies events until the stream ends. It returns false when the feed
// was closed.
func (f *MessageFeed) drain(sub Subscription, stop <-chan struct{}) bool {
	events := sub.Events()
	for {
		select {
		case <-stop:
			return false
		case ev, ok := <-events:
			if !ok {
				return true
			}
			if f.Apply(ev) {
				f.opts.OnChange()
			}
		}
	}
}

// resync resubscribes and reloads the conversation, backing off between
// failed attempts. It returns nil once the feed is closed.
func (f *MessageFeed) resync(conversationID string, stop <-chan struct{}) Subscription {
	delay := f.opts.RetryDelay
	for {
		ctx, cancel := context.WithTimeout(context.Background(), f.opts.Timeout)
		snap, err := f.load(ctx, conversationID)
		cancel()
		if err == nil {
			f.mu.Lock()
			if f.stop != stop {
				f.mu.Unlock()
				_ = snap.sub.Close()
				return nil
			}
			f.replace(snap)
			f.err = nil
			f.mu.Unlock()
			f.opts.OnChange()
			return snap.sub
		}
		f.fail(stop, fmt.Errorf("%w: resync: %v", ErrStreamLost, err))

		select {
		case <-stop:
			return nil
		case <-time.After(delay):
		}
		if delay *= 2; delay > maxResyncDelay {
			delay = maxResyncDelay
		}
	}
}

func (f *MessageFeed) fail(stop <-chan struct{}, err error) {
	f.mu.Lock()
	if f.stop != stop {
		f.mu.Unlock()
		return
	}
	f.err = err
	f.mu.Unlock()
	f.opts.OnError(err)
}
