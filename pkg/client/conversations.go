package client

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/noah-isme/prefect-api/internal/models"
)

const dateLayout = "2006-01-02"

func itoa(n int) string { return strconv.Itoa(n) }

// Conversations reads conversation state. It implements realtime.MessageSource.
type Conversations struct {
	client *Client
}

// NewConversations binds the conversation endpoints.
func NewConversations(c *Client) *Conversations {
	return &Conversations{client: c}
}

// List returns the conversations the caller participates in.
func (s *Conversations) List(ctx context.Context) ([]models.Conversation, error) {
	var out []models.Conversation
	err := s.client.do(ctx, http.MethodGet, "/conversations", nil, nil, &out)
	return out, err
}

// ListMessages returns the most recent messages in ascending order.
func (s *Conversations) ListMessages(ctx context.Context, conversationID string, filter models.MessagePageFilter) ([]models.Message, error) {
	params := map[string]string{}
	if filter.Limit > 0 {
		params["limit"] = itoa(filter.Limit)
	}
	if filter.Before != nil {
		params["before"] = filter.Before.UTC().Format(time.RFC3339Nano)
		if filter.BeforeID != "" {
			params["before_id"] = filter.BeforeID
		}
	}
	var out []models.Message
	if err := s.client.do(ctx, http.MethodGet, "/conversations/"+conversationID+"/messages", params, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// ListParticipants returns the members of a conversation.
func (s *Conversations) ListParticipants(ctx context.Context, conversationID string) ([]models.Participant, error) {
	var out []models.Participant
	if err := s.client.do(ctx, http.MethodGet, "/conversations/"+conversationID+"/participants", nil, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Send posts a message.
func (s *Conversations) Send(ctx context.Context, conversationID, body string) (*models.Message, error) {
	var out models.Message
	if err := s.client.do(ctx, http.MethodPost, "/conversations/"+conversationID+"/messages", nil, models.SendMessageRequest{Body: body}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}
