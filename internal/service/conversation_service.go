package service

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/prefect-api/internal/models"
	"github.com/noah-isme/prefect-api/internal/rolegate"
	"github.com/noah-isme/prefect-api/pkg/database"
	appErrors "github.com/noah-isme/prefect-api/pkg/errors"
	"github.com/noah-isme/prefect-api/pkg/realtime"
)

const defaultMessagePage = 50

type conversationRepository interface {
	List(ctx context.Context, filter models.ListFilter) ([]models.Conversation, int, error)
	ListForUser(ctx context.Context, userID string, filter models.ListFilter) ([]models.Conversation, int, error)
	FindByID(ctx context.Context, id string) (*models.Conversation, error)
	Create(ctx context.Context, c *models.Conversation, participantIDs []string) (*models.Conversation, error)
	Update(ctx context.Context, id string, fields models.Fields) (*models.Conversation, error)
	Delete(ctx context.Context, id string) error
	IsParticipant(ctx context.Context, conversationID, userID string) (bool, error)
	ListParticipants(ctx context.Context, conversationID string) ([]models.Participant, error)
	AddParticipant(ctx context.Context, conversationID, userID string) (*models.Participant, error)
	RemoveParticipant(ctx context.Context, conversationID, userID string) error
	MarkRead(ctx context.Context, conversationID, userID string, at time.Time) error
	ListMessages(ctx context.Context, conversationID string, filter models.MessagePageFilter) ([]models.Message, error)
	FindMessage(ctx context.Context, conversationID, messageID string) (*models.Message, error)
	CreateMessage(ctx context.Context, msg *models.Message) (*models.Message, error)
	UpdateMessageBody(ctx context.Context, conversationID, messageID, body string) (*models.Message, error)
	DeleteMessage(ctx context.Context, conversationID, messageID string) (time.Time, error)
}

// ConversationService manages conversation aggregates and publishes every
// message change to the conversation's realtime channel.
type ConversationService struct {
	repo      conversationRepository
	publisher realtime.Publisher
	audit     auditWriter
	validator *validator.Validate
	logger    *zap.Logger
	pageSize  int
	now       func() time.Time
}

// NewConversationService constructs the service. publisher may be nil.
func NewConversationService(repo conversationRepository, publisher realtime.Publisher, audit auditWriter, validate *validator.Validate, logger *zap.Logger, pageSize int) *ConversationService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if pageSize <= 0 {
		pageSize = defaultMessagePage
	}
	return &ConversationService{
		repo:      repo,
		publisher: publisher,
		audit:     audit,
		validator: validate,
		logger:    logger,
		pageSize:  pageSize,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

func (s *ConversationService) isAdmin(actor models.Actor) bool {
	return rolegate.IsManager(actor, "conversations")
}

// List returns every conversation for admins, otherwise the ones actor joined.
func (s *ConversationService) List(ctx context.Context, actor models.Actor, filter models.ListFilter) ([]models.Conversation, *models.Pagination, error) {
	filter.Normalize()
	var (
		items []models.Conversation
		total int
		err   error
	)
	if s.isAdmin(actor) {
		items, total, err = s.repo.List(ctx, filter)
	} else {
		items, total, err = s.repo.ListForUser(ctx, actor.ID, filter)
	}
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list conversations")
	}
	return items, &models.Pagination{Page: filter.Page, PageSize: filter.PageSize, TotalCount: total}, nil
}

// Get returns a conversation header visible to actor.
func (s *ConversationService) Get(ctx context.Context, actor models.Actor, id string) (*models.Conversation, error) {
	conv, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.requireMember(ctx, actor, id); err != nil {
		return nil, err
	}
	return conv, nil
}

// Authorize checks that actor may read or stream the conversation.
func (s *ConversationService) Authorize(ctx context.Context, actor models.Actor, id string) error {
	_, err := s.Get(ctx, actor, id)
	return err
}

// Create opens a conversation with the creator and the listed participants.
func (s *ConversationService) Create(ctx context.Context, actor models.Actor, req models.CreateConversationRequest) (*models.Conversation, error) {
	if err := s.validate(req, "conversation"); err != nil {
		return nil, err
	}
	typ := req.Type
	if typ == "" {
		typ = models.ConversationGroup
	}
	if typ == models.ConversationAnnouncement && !s.isAdmin(actor) && !actor.Roles.Has(models.RoleFaculty) {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "only staff can open announcements")
	}
	participants := make([]string, 0, len(req.ParticipantIDs))
	seen := map[string]struct{}{actor.ID: {}}
	for _, id := range req.ParticipantIDs {
		id = strings.TrimSpace(id)
		if id == "" {
			continue
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		participants = append(participants, id)
	}
	if typ == models.ConversationDirect && len(participants) != 1 {
		return nil, appErrors.Clone(appErrors.ErrValidation, "direct conversations need exactly one other participant")
	}

	conv := &models.Conversation{
		Title:       strings.TrimSpace(req.Title),
		Description: req.Description,
		Type:        typ,
		CreatedBy:   actor.ID,
		IsActive:    true,
	}
	created, err := s.repo.Create(ctx, conv, participants)
	if err != nil {
		if database.IsForeignKeyViolation(err) {
			return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "participant does not exist")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create conversation")
	}
	s.recordAudit(ctx, actor, models.AuditActionCreate, created.ID, created)
	return created, nil
}

// Update edits the header. Only the creator or an admin may do so.
func (s *ConversationService) Update(ctx context.Context, actor models.Actor, id string, req models.UpdateConversationRequest) (*models.Conversation, error) {
	if err := s.validate(req, "conversation"); err != nil {
		return nil, err
	}
	conv, err := s.requireOwner(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	fields := models.Fields{}
	if req.Title != nil {
		fields["title"] = strings.TrimSpace(*req.Title)
	}
	if req.Description != nil {
		fields["description"] = req.Description
	}
	if req.IsActive != nil {
		fields["is_active"] = *req.IsActive
	}
	if len(fields) == 0 {
		return conv, nil
	}
	updated, err := s.repo.Update(ctx, id, fields)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "conversation not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update conversation")
	}
	s.recordAudit(ctx, actor, models.AuditActionUpdate, id, fields)
	return updated, nil
}

// Delete removes the conversation with its participants and messages.
func (s *ConversationService) Delete(ctx context.Context, actor models.Actor, id string) error {
	if _, err := s.requireOwner(ctx, actor, id); err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "conversation not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete conversation")
	}
	s.recordAudit(ctx, actor, models.AuditActionDelete, id, nil)
	return nil
}

// ListParticipants returns the members of a conversation.
func (s *ConversationService) ListParticipants(ctx context.Context, actor models.Actor, id string) ([]models.Participant, error) {
	if err := s.Authorize(ctx, actor, id); err != nil {
		return nil, err
	}
	participants, err := s.repo.ListParticipants(ctx, id)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list participants")
	}
	return participants, nil
}

// AddParticipant adds one user. Only the creator or an admin may invite.
func (s *ConversationService) AddParticipant(ctx context.Context, actor models.Actor, id string, req models.AddParticipantRequest) (*models.Participant, error) {
	if err := s.validate(req, "participant"); err != nil {
		return nil, err
	}
	if _, err := s.requireOwner(ctx, actor, id); err != nil {
		return nil, err
	}
	participant, err := s.repo.AddParticipant(ctx, id, req.UserID)
	if err != nil {
		if database.IsForeignKeyViolation(err) {
			return nil, appErrors.Wrap(err, appErrors.ErrNotFound.Code, appErrors.ErrNotFound.Status, "user not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to add participant")
	}
	return participant, nil
}

// RemoveParticipant removes one user. Members may remove themselves. The
// conversation survives losing its last participant.
func (s *ConversationService) RemoveParticipant(ctx context.Context, actor models.Actor, id, userID string) error {
	if userID == actor.ID {
		if err := s.Authorize(ctx, actor, id); err != nil {
			return err
		}
	} else if _, err := s.requireOwner(ctx, actor, id); err != nil {
		return err
	}
	if err := s.repo.RemoveParticipant(ctx, id, userID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "participant not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to remove participant")
	}
	return nil
}

// ListMessages returns the most recent page of messages in ascending order.
func (s *ConversationService) ListMessages(ctx context.Context, actor models.Actor, id string, filter models.MessagePageFilter) ([]models.Message, error) {
	if err := s.Authorize(ctx, actor, id); err != nil {
		return nil, err
	}
	if filter.Limit <= 0 || filter.Limit > 200 {
		filter.Limit = s.pageSize
	}
	messages, err := s.repo.ListMessages(ctx, id, filter)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list messages")
	}
	return messages, nil
}

// SendMessage posts a message and publishes an insert event.
func (s *ConversationService) SendMessage(ctx context.Context, actor models.Actor, id string, req models.SendMessageRequest) (*models.Message, error) {
	if err := s.validate(req, "message"); err != nil {
		return nil, err
	}
	conv, err := s.Get(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	if !conv.IsActive {
		return nil, appErrors.Clone(appErrors.ErrValidation, "conversation is closed")
	}
	if conv.Type == models.ConversationAnnouncement && conv.CreatedBy != actor.ID && !s.isAdmin(actor) {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "only the author can post announcements")
	}
	body := strings.TrimSpace(req.Body)
	if body == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "message body is required")
	}

	msg, err := s.repo.CreateMessage(ctx, &models.Message{
		ConversationID: id,
		SenderID:       actor.ID,
		Body:           body,
		AttachmentURL:  req.AttachmentURL,
	})
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to send message")
	}
	s.publish(ctx, realtime.EventInsert, id, msg.ID, msg.UpdatedAt, msg)
	return msg, nil
}

// EditMessage replaces the body of the actor's own message.
func (s *ConversationService) EditMessage(ctx context.Context, actor models.Actor, id, messageID string, req models.EditMessageRequest) (*models.Message, error) {
	if err := s.validate(req, "message"); err != nil {
		return nil, err
	}
	msg, err := s.loadMessage(ctx, actor, id, messageID)
	if err != nil {
		return nil, err
	}
	if msg.SenderID != actor.ID {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "you can only edit your own messages")
	}
	body := strings.TrimSpace(req.Body)
	if body == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "message body is required")
	}
	updated, err := s.repo.UpdateMessageBody(ctx, id, messageID, body)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "message not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to edit message")
	}
	s.publish(ctx, realtime.EventUpdate, id, updated.ID, updated.UpdatedAt, updated)
	return updated, nil
}

// DeleteMessage removes a message. Senders delete their own, admins any.
func (s *ConversationService) DeleteMessage(ctx context.Context, actor models.Actor, id, messageID string) error {
	msg, err := s.loadMessage(ctx, actor, id, messageID)
	if err != nil {
		return err
	}
	if msg.SenderID != actor.ID && !s.isAdmin(actor) {
		return appErrors.Clone(appErrors.ErrForbidden, "you can only delete your own messages")
	}
	deletedAt, err := s.repo.DeleteMessage(ctx, id, messageID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "message not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete message")
	}
	s.publish(ctx, realtime.EventDelete, id, messageID, deletedAt, nil)
	return nil
}

// MarkRead stamps the actor's last_read_at.
func (s *ConversationService) MarkRead(ctx context.Context, actor models.Actor, id string) error {
	if _, err := s.load(ctx, id); err != nil {
		return err
	}
	if err := s.repo.MarkRead(ctx, id, actor.ID, s.now()); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrForbidden, "you are not a participant")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to mark conversation read")
	}
	return nil
}

func (s *ConversationService) load(ctx context.Context, id string) (*models.Conversation, error) {
	conv, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "conversation not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load conversation")
	}
	return conv, nil
}

func (s *ConversationService) loadMessage(ctx context.Context, actor models.Actor, id, messageID string) (*models.Message, error) {
	if err := s.Authorize(ctx, actor, id); err != nil {
		return nil, err
	}
	msg, err := s.repo.FindMessage(ctx, id, messageID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "message not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load message")
	}
	return msg, nil
}

// requireMember reports non-members as not found.
func (s *ConversationService) requireMember(ctx context.Context, actor models.Actor, id string) error {
	if s.isAdmin(actor) {
		return nil
	}
	ok, err := s.repo.IsParticipant(ctx, id, actor.ID)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check participation")
	}
	if !ok {
		return appErrors.Clone(appErrors.ErrNotFound, "conversation not found")
	}
	return nil
}

func (s *ConversationService) requireOwner(ctx context.Context, actor models.Actor, id string) (*models.Conversation, error) {
	conv, err := s.Get(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	if conv.CreatedBy != actor.ID && !s.isAdmin(actor) {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "only the creator can manage this conversation")
	}
	return conv, nil
}

func (s *ConversationService) validate(payload interface{}, noun string) error {
	if err := s.validator.Struct(payload); err != nil {
		return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid "+noun+" payload")
	}
	return nil
}

func (s *ConversationService) publish(ctx context.Context, typ realtime.EventType, conversationID, recordID string, commitTS time.Time, record interface{}) {
	if s.publisher == nil {
		return
	}
	ev, err := realtime.NewEvent(typ, realtime.ConversationChannel(conversationID), recordID, commitTS, record)
	if err != nil {
		s.logger.Warn("failed to encode realtime event", zap.Error(err))
		return
	}
	if err := s.publisher.Publish(ctx, ev); err != nil {
		s.logger.Warn("failed to publish realtime event",
			zap.String("conversation_id", conversationID),
			zap.String("type", string(typ)),
			zap.Error(err))
	}
}

func (s *ConversationService) recordAudit(ctx context.Context, actor models.Actor, action, id string, values interface{}) {
	if s.audit == nil {
		return
	}
	if err := s.audit.CreateAuditLog(ctx, models.NewAuditLog(actor, action, "conversations", id, values)); err != nil {
		s.logger.Warn("failed to record conversation audit log", zap.String("action", action), zap.Error(err))
	}
}
