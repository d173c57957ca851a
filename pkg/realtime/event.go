// Package realtime pushes row-level change events for conversations to
// websocket subscribers and merges them back into a client-held message list.
package realtime

import (
	"context"
	"encoding/json"
	"strings"
	"time"
)

// EventType is the kind of row change an event carries.
type EventType string

const (
	EventInsert EventType = "insert"
	EventUpdate EventType = "update"
	EventDelete EventType = "delete"
)

// Event is a single row change on a channel. CommitTS is the server-side
// commit time of the change and orders events for the same record.
type Event struct {
	Type     EventType       `json:"type" msgpack:"type"`
	Channel  string          `json:"channel" msgpack:"channel"`
	RecordID string          `json:"record_id" msgpack:"record_id"`
	CommitTS time.Time       `json:"commit_ts" msgpack:"commit_ts"`
	Record   json.RawMessage `json:"record,omitempty" msgpack:"record,omitempty"`
}

// Publisher accepts events for fan-out.
type Publisher interface {
	Publish(ctx context.Context, ev Event) error
}

const conversationPrefix = "conversation:"

// ConversationChannel returns the channel name for a conversation.
func ConversationChannel(conversationID string) string {
	return conversationPrefix + conversationID
}

// ConversationIDFromChannel extracts the conversation id from a channel name.
func ConversationIDFromChannel(channel string) (string, bool) {
	if !strings.HasPrefix(channel, conversationPrefix) {
		return "", false
	}
	id := strings.TrimPrefix(channel, conversationPrefix)
	return id, id != ""
}

// NewEvent builds an event, encoding record as JSON when present.
func NewEvent(typ EventType, channel, recordID string, commitTS time.Time, record interface{}) (Event, error) {
	ev := Event{Type: typ, Channel: channel, RecordID: recordID, CommitTS: commitTS.UTC()}
	if record != nil {
		raw, err := json.Marshal(record)
		if err != nil {
			return Event{}, err
		}
		ev.Record = raw
	}
	return ev, nil
}
