package models

import "time"

// ConversationType tags a conversation header.
type ConversationType string

const (
	ConversationDirect       ConversationType = "direct"
	ConversationGroup        ConversationType = "group"
	ConversationAnnouncement ConversationType = "announcement"
)

// Valid returns true when the type is a supported value.
func (t ConversationType) Valid() bool {
	switch t {
	case ConversationDirect, ConversationGroup, ConversationAnnouncement:
		return true
	default:
		return false
	}
}

// Conversation is the header of a conversation aggregate.
type Conversation struct {
	Record
	Title         string           `db:"title" json:"title"`
	Description   *string          `db:"description" json:"description,omitempty"`
	Type          ConversationType `db:"type" json:"type"`
	CreatedBy     string           `db:"created_by" json:"created_by"`
	IsActive      bool             `db:"is_active" json:"is_active"`
	LastMessageAt *time.Time       `db:"last_message_at" json:"last_message_at,omitempty"`
}

// OwnerID implements Owned.
func (c Conversation) OwnerID() string { return c.CreatedBy }

// Participant is a member of a conversation.
type Participant struct {
	ConversationID string     `db:"conversation_id" json:"conversation_id"`
	UserID         string     `db:"user_id" json:"user_id"`
	UserName       *string    `db:"user_name" json:"user_name,omitempty"`
	JoinedAt       time.Time  `db:"joined_at" json:"joined_at"`
	LastReadAt     *time.Time `db:"last_read_at" json:"last_read_at,omitempty"`
}

// Message is one entry in a conversation's ordered message sequence.
type Message struct {
	Record
	ConversationID string  `db:"conversation_id" json:"conversation_id"`
	SenderID       string  `db:"sender_id" json:"sender_id"`
	SenderName     *string `db:"sender_name" json:"sender_name,omitempty"`
	Body           string  `db:"body" json:"body"`
	AttachmentURL  *string `db:"attachment_url" json:"attachment_url,omitempty"`
	IsEdited       bool    `db:"is_edited" json:"is_edited"`
}

// OwnerID implements Owned.
func (m Message) OwnerID() string { return m.SenderID }

// MessagePageFilter selects a page of messages. Before and BeforeID form an
// exclusive (created_at, id) cursor; BeforeID is optional.
type MessagePageFilter struct {
	Limit    int
	Before   *time.Time
	BeforeID string
}

// CreateConversationRequest opens a conversation. The creator joins automatically.
type CreateConversationRequest struct {
	Title          string           `json:"title" validate:"required,max=200"`
	Description    *string          `json:"description"`
	Type           ConversationType `json:"type" validate:"omitempty,oneof=direct group announcement"`
	ParticipantIDs []string         `json:"participant_ids"`
}

// UpdateConversationRequest edits a conversation header.
type UpdateConversationRequest struct {
	Title       *string `json:"title" validate:"omitempty,min=1,max=200"`
	Description *string `json:"description"`
	IsActive    *bool   `json:"is_active"`
}

// AddParticipantRequest adds a single user.
type AddParticipantRequest struct {
	UserID string `json:"user_id" validate:"required"`
}

// SendMessageRequest posts a message.
type SendMessageRequest struct {
	Body          string  `json:"body" validate:"required,max=4000"`
	AttachmentURL *string `json:"attachment_url" validate:"omitempty,url"`
}

// EditMessageRequest replaces a message body.
type EditMessageRequest struct {
	Body string `json:"body" validate:"required,max=4000"`
}
