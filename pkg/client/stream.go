package client

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/noah-isme/prefect-api/pkg/realtime"
)

// StreamSubscriber opens conversation streams over websocket. It implements
// realtime.Subscriber.
type StreamSubscriber struct {
	client *Client
	dialer *websocket.Dialer
}

// NewStreamSubscriber builds a subscriber sharing the client's base URL and token.
func NewStreamSubscriber(c *Client) *StreamSubscriber {
	return &StreamSubscriber{client: c, dialer: websocket.DefaultDialer}
}

// Subscribe dials the stream endpoint for channel.
func (s *StreamSubscriber) Subscribe(ctx context.Context, channel string) (realtime.Subscription, error) {
	conversationID, ok := realtime.ConversationIDFromChannel(channel)
	if !ok {
		return nil, fmt.Errorf("unsupported channel %q", channel)
	}
	endpoint, err := s.streamURL(conversationID)
	if err != nil {
		return nil, err
	}
	conn, resp, err := s.dialer.DialContext(ctx, endpoint, nil)
	if err != nil {
		if resp != nil {
			return nil, fmt.Errorf("dial stream: %s: %w", resp.Status, err)
		}
		return nil, fmt.Errorf("dial stream: %w", err)
	}
	sub := &streamSubscription{conn: conn, events: make(chan realtime.Event, 64), closed: make(chan struct{})}
	go sub.read()
	return sub, nil
}

func (s *StreamSubscriber) streamURL(conversationID string) (string, error) {
	u, err := url.Parse(s.client.BaseURL())
	if err != nil {
		return "", fmt.Errorf("parse base url: %w", err)
	}
	switch u.Scheme {
	case "https":
		u.Scheme = "wss"
	default:
		u.Scheme = "ws"
	}
	u.Path = strings.TrimRight(u.Path, "/") + "/conversations/" + conversationID + "/stream"
	q := u.Query()
	q.Set("token", s.client.Token())
	u.RawQuery = q.Encode()
	return u.String(), nil
}

type streamSubscription struct {
	conn   *websocket.Conn
	events chan realtime.Event
	closed chan struct{}
	once   sync.Once
}

func (s *streamSubscription) Events() <-chan realtime.Event { return s.events }

func (s *streamSubscription) Close() error {
	var err error
	s.once.Do(func() {
		close(s.closed)
		_ = s.conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(time.Second))
		err = s.conn.Close()
	})
	return err
}

func (s *streamSubscription) read() {
	defer close(s.events)
	for {
		var ev realtime.Event
		if err := s.conn.ReadJSON(&ev); err != nil {
			return
		}
		select {
		case s.events <- ev:
		case <-s.closed:
			return
		}
	}
}

