package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/prefect-api/internal/models"
	"github.com/noah-isme/prefect-api/pkg/database"
)

var conversationTable = tableSpec{
	name:          "conversations",
	columns:       []string{"id", "title", "description", "type", "created_by", "is_active", "last_message_at", "created_at", "updated_at"},
	updatable:     []string{"title", "description", "is_active", "last_message_at"},
	ownerColumn:   "created_by",
	statusColumn:  "type",
	dateColumn:    "updated_at",
	searchColumns: []string{"t.title", "t.description"},
}

const messageColumns = `m.id, m.conversation_id, m.sender_id, m.body, m.attachment_url, m.is_edited, m.created_at, m.updated_at, u.full_name AS sender_name`

// ConversationRepository persists conversation headers, participants and messages.
type ConversationRepository struct {
	*crudTable[models.Conversation]
}

// NewConversationRepository constructs the repository.
func NewConversationRepository(db *sqlx.DB) *ConversationRepository {
	return &ConversationRepository{crudTable: newCrudTable[models.Conversation](db, conversationTable)}
}

// Create inserts the header and enrols the creator plus the given participants in one transaction.
func (r *ConversationRepository) Create(ctx context.Context, c *models.Conversation, participantIDs []string) (*models.Conversation, error) {
	now := r.now()
	c.Stamp(now)

	err := database.WithTx(ctx, r.db, func(tx *sqlx.Tx) error {
		const insert = `INSERT INTO conversations (id, title, description, type, created_by, is_active, last_message_at, created_at, updated_at) VALUES (:id, :title, :description, :type, :created_by, :is_active, :last_message_at, :created_at, :updated_at)`
		if _, err := tx.NamedExecContext(ctx, insert, c); err != nil {
			return fmt.Errorf("create conversation: %w", err)
		}
		members := append([]string{c.CreatedBy}, participantIDs...)
		for _, userID := range members {
			if _, err := tx.ExecContext(ctx, `INSERT INTO conversation_participants (conversation_id, user_id, joined_at) VALUES ($1, $2, $3) ON CONFLICT DO NOTHING`, c.ID, userID, now); err != nil {
				return fmt.Errorf("add conversation participant: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return c, nil
}

// ListForUser returns the conversations the user participates in, most recently active first.
func (r *ConversationRepository) ListForUser(ctx context.Context, userID string, filter models.ListFilter) ([]models.Conversation, int, error) {
	filter.Normalize()
	const base = `FROM conversations t JOIN conversation_participants p ON p.conversation_id = t.id AND p.user_id = $1`
	query := fmt.Sprintf("SELECT %s %s ORDER BY COALESCE(t.last_message_at, t.updated_at) DESC, t.id DESC LIMIT %d OFFSET %d",
		conversationTable.selectList(), base, filter.PageSize, (filter.Page-1)*filter.PageSize)
	items := make([]models.Conversation, 0)
	if err := r.db.SelectContext(ctx, &items, query, userID); err != nil {
		return nil, 0, fmt.Errorf("list user conversations: %w", err)
	}
	var total int
	if err := r.db.GetContext(ctx, &total, "SELECT COUNT(*) "+base, userID); err != nil {
		return nil, 0, fmt.Errorf("count user conversations: %w", err)
	}
	return items, total, nil
}

// IsParticipant reports membership.
func (r *ConversationRepository) IsParticipant(ctx context.Context, conversationID, userID string) (bool, error) {
	const query = `SELECT EXISTS(SELECT 1 FROM conversation_participants WHERE conversation_id = $1 AND user_id = $2)`
	var ok bool
	if err := r.db.GetContext(ctx, &ok, query, conversationID, userID); err != nil {
		return false, fmt.Errorf("check participant: %w", err)
	}
	return ok, nil
}

// ListParticipants returns members ordered by join time.
func (r *ConversationRepository) ListParticipants(ctx context.Context, conversationID string) ([]models.Participant, error) {
	const query = `SELECT p.conversation_id, p.user_id, p.joined_at, p.last_read_at, u.full_name AS user_name
FROM conversation_participants p LEFT JOIN users u ON u.id = p.user_id
WHERE p.conversation_id = $1 ORDER BY p.joined_at ASC, p.user_id ASC`
	items := make([]models.Participant, 0)
	if err := r.db.SelectContext(ctx, &items, query, conversationID); err != nil {
		return nil, fmt.Errorf("list participants: %w", err)
	}
	return items, nil
}

// AddParticipant enrols a single user. Re-adding a member is a no-op.
func (r *ConversationRepository) AddParticipant(ctx context.Context, conversationID, userID string) (*models.Participant, error) {
	const query = `WITH p AS (
  INSERT INTO conversation_participants (conversation_id, user_id, joined_at) VALUES ($1, $2, $3)
  ON CONFLICT (conversation_id, user_id) DO UPDATE SET conversation_id = EXCLUDED.conversation_id
  RETURNING conversation_id, user_id, joined_at, last_read_at
)
SELECT p.conversation_id, p.user_id, p.joined_at, p.last_read_at, u.full_name AS user_name FROM p LEFT JOIN users u ON u.id = p.user_id`
	var participant models.Participant
	if err := r.db.GetContext(ctx, &participant, query, conversationID, userID, r.now()); err != nil {
		return nil, fmt.Errorf("add participant: %w", err)
	}
	return &participant, nil
}

// RemoveParticipant drops a member. The conversation itself is kept even when empty.
func (r *ConversationRepository) RemoveParticipant(ctx context.Context, conversationID, userID string) error {
	const query = `DELETE FROM conversation_participants WHERE conversation_id = $1 AND user_id = $2`
	res, err := r.db.ExecContext(ctx, query, conversationID, userID)
	if err != nil {
		return fmt.Errorf("remove participant: %w", err)
	}
	return requireAffected(res, "remove participant")
}

// MarkRead stamps last_read_at for the member.
func (r *ConversationRepository) MarkRead(ctx context.Context, conversationID, userID string, at time.Time) error {
	const query = `UPDATE conversation_participants SET last_read_at = $3 WHERE conversation_id = $1 AND user_id = $2`
	res, err := r.db.ExecContext(ctx, query, conversationID, userID, at)
	if err != nil {
		return fmt.Errorf("mark read: %w", err)
	}
	return requireAffected(res, "mark read")
}

// ListMessages returns the most recent page of messages in ascending server order.
func (r *ConversationRepository) ListMessages(ctx context.Context, conversationID string, filter models.MessagePageFilter) ([]models.Message, error) {
	limit := filter.Limit
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	args := []interface{}{conversationID}
	cursor := ""
	switch {
	case filter.Before != nil && filter.BeforeID != "":
		args = append(args, *filter.Before, filter.BeforeID)
		cursor = " AND (m.created_at, m.id) < ($2, $3)"
	case filter.Before != nil:
		args = append(args, *filter.Before)
		cursor = " AND m.created_at < $2"
	}
	query := fmt.Sprintf(`SELECT * FROM (
  SELECT %s FROM messages m LEFT JOIN users u ON u.id = m.sender_id
  WHERE m.conversation_id = $1%s ORDER BY m.created_at DESC, m.id DESC LIMIT %d
) recent ORDER BY created_at ASC, id ASC`, messageColumns, cursor, limit)
	items := make([]models.Message, 0)
	if err := r.db.SelectContext(ctx, &items, query, args...); err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}
	return items, nil
}

// FindMessage returns one message or sql.ErrNoRows.
func (r *ConversationRepository) FindMessage(ctx context.Context, conversationID, messageID string) (*models.Message, error) {
	query := `SELECT ` + messageColumns + ` FROM messages m LEFT JOIN users u ON u.id = m.sender_id WHERE m.conversation_id = $1 AND m.id = $2 LIMIT 1`
	var msg models.Message
	if err := r.db.GetContext(ctx, &msg, query, conversationID, messageID); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find message: %w", err)
	}
	return &msg, nil
}

// CreateMessage inserts a message and bumps the conversation's last_message_at.
// created_at is assigned by the database so ordering follows commit order.
func (r *ConversationRepository) CreateMessage(ctx context.Context, msg *models.Message) (*models.Message, error) {
	msg.Stamp(r.now())
	query := `WITH m AS (
  INSERT INTO messages (id, conversation_id, sender_id, body, attachment_url, is_edited) VALUES ($1, $2, $3, $4, $5, FALSE)
  RETURNING id, conversation_id, sender_id, body, attachment_url, is_edited, created_at, updated_at
), c AS (
  UPDATE conversations SET last_message_at = (SELECT created_at FROM m), updated_at = (SELECT created_at FROM m) WHERE id = $2
)
SELECT ` + messageColumns + ` FROM m LEFT JOIN users u ON u.id = m.sender_id`
	var stored models.Message
	if err := r.db.GetContext(ctx, &stored, query, msg.ID, msg.ConversationID, msg.SenderID, msg.Body, msg.AttachmentURL); err != nil {
		return nil, fmt.Errorf("create message: %w", err)
	}
	return &stored, nil
}

// UpdateMessageBody replaces the body and flags the message as edited.
func (r *ConversationRepository) UpdateMessageBody(ctx context.Context, conversationID, messageID, body string) (*models.Message, error) {
	query := `WITH m AS (
  UPDATE messages SET body = $3, is_edited = TRUE, updated_at = clock_timestamp() WHERE conversation_id = $1 AND id = $2
  RETURNING id, conversation_id, sender_id, body, attachment_url, is_edited, created_at, updated_at
)
SELECT ` + messageColumns + ` FROM m LEFT JOIN users u ON u.id = m.sender_id`
	var stored models.Message
	if err := r.db.GetContext(ctx, &stored, query, conversationID, messageID, body); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("update message: %w", err)
	}
	return &stored, nil
}

// DeleteMessage permanently removes a message and returns the server time of the delete.
func (r *ConversationRepository) DeleteMessage(ctx context.Context, conversationID, messageID string) (time.Time, error) {
	const query = `DELETE FROM messages WHERE conversation_id = $1 AND id = $2 RETURNING clock_timestamp()`
	var deletedAt time.Time
	if err := r.db.GetContext(ctx, &deletedAt, query, conversationID, messageID); err != nil {
		if err == sql.ErrNoRows {
			return time.Time{}, err
		}
		return time.Time{}, fmt.Errorf("delete message: %w", err)
	}
	return deletedAt, nil
}
