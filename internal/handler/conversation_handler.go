package handler

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/noah-isme/prefect-api/internal/models"
	appErrors "github.com/noah-isme/prefect-api/pkg/errors"
	"github.com/noah-isme/prefect-api/pkg/middleware/cors"
	"github.com/noah-isme/prefect-api/pkg/realtime"
	"github.com/noah-isme/prefect-api/pkg/response"
)

type conversationService interface {
	List(ctx context.Context, actor models.Actor, filter models.ListFilter) ([]models.Conversation, *models.Pagination, error)
	Get(ctx context.Context, actor models.Actor, id string) (*models.Conversation, error)
	Authorize(ctx context.Context, actor models.Actor, id string) error
	Create(ctx context.Context, actor models.Actor, req models.CreateConversationRequest) (*models.Conversation, error)
	Update(ctx context.Context, actor models.Actor, id string, req models.UpdateConversationRequest) (*models.Conversation, error)
	Delete(ctx context.Context, actor models.Actor, id string) error
	ListParticipants(ctx context.Context, actor models.Actor, id string) ([]models.Participant, error)
	AddParticipant(ctx context.Context, actor models.Actor, id string, req models.AddParticipantRequest) (*models.Participant, error)
	RemoveParticipant(ctx context.Context, actor models.Actor, id, userID string) error
	ListMessages(ctx context.Context, actor models.Actor, id string, filter models.MessagePageFilter) ([]models.Message, error)
	SendMessage(ctx context.Context, actor models.Actor, id string, req models.SendMessageRequest) (*models.Message, error)
	EditMessage(ctx context.Context, actor models.Actor, id, messageID string, req models.EditMessageRequest) (*models.Message, error)
	DeleteMessage(ctx context.Context, actor models.Actor, id, messageID string) error
	MarkRead(ctx context.Context, actor models.Actor, id string) error
}

type streamServer interface {
	Serve(ctx context.Context, channel string, conn realtime.Conn)
}

// ConversationHandler serves conversations, their messages and the push stream.
type ConversationHandler struct {
	service  conversationService
	hub      streamServer
	upgrader websocket.Upgrader
	logger   *zap.Logger
}

// NewConversationHandler constructs the handler. allowedOrigins mirrors the
// CORS list; an empty list or "*" accepts any origin.
func NewConversationHandler(svc conversationService, hub streamServer, allowedOrigins []string, logger *zap.Logger) *ConversationHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ConversationHandler{
		service: svc,
		hub:     hub,
		logger:  logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     originChecker(allowedOrigins),
		},
	}
}

func originChecker(allowed []string) func(r *http.Request) bool {
	matcher := cors.NewMatcher(allowed)
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		return origin == "" || matcher.Allows(origin)
	}
}

// List godoc
// @Summary List conversations
// @Description Conversations the caller participates in; admins see all
// @Tags Conversations
// @Produce json
// @Param page query int false "Page number"
// @Param page_size query int false "Page size"
// @Param search query string false "Title search"
// @Success 200 {object} response.Envelope
// @Router /conversations [get]
func (h *ConversationHandler) List(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	filter, err := parseListFilter(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	rows, pagination, err := h.service.List(c.Request.Context(), actor, filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, rows, pagination)
}

// Get godoc
// @Summary Get conversation
// @Tags Conversations
// @Produce json
// @Param id path string true "Conversation ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /conversations/{id} [get]
func (h *ConversationHandler) Get(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	conv, err := h.service.Get(c.Request.Context(), actor, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, conv, nil)
}

// Create godoc
// @Summary Open conversation
// @Tags Conversations
// @Accept json
// @Produce json
// @Param payload body models.CreateConversationRequest true "Conversation"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /conversations [post]
func (h *ConversationHandler) Create(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	var req models.CreateConversationRequest
	if !bindJSON(c, &req) {
		return
	}
	conv, err := h.service.Create(c.Request.Context(), actor, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, conv)
}

// Update godoc
// @Summary Edit conversation header
// @Tags Conversations
// @Accept json
// @Produce json
// @Param id path string true "Conversation ID"
// @Param payload body models.UpdateConversationRequest true "Changes"
// @Success 200 {object} response.Envelope
// @Router /conversations/{id} [patch]
func (h *ConversationHandler) Update(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	var req models.UpdateConversationRequest
	if !bindJSON(c, &req) {
		return
	}
	conv, err := h.service.Update(c.Request.Context(), actor, c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, conv, nil)
}

// Delete godoc
// @Summary Delete conversation
// @Tags Conversations
// @Param id path string true "Conversation ID"
// @Success 204 {object} response.Envelope
// @Router /conversations/{id} [delete]
func (h *ConversationHandler) Delete(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	if err := h.service.Delete(c.Request.Context(), actor, c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// ListParticipants godoc
// @Summary List participants
// @Tags Conversations
// @Produce json
// @Param id path string true "Conversation ID"
// @Success 200 {object} response.Envelope
// @Router /conversations/{id}/participants [get]
func (h *ConversationHandler) ListParticipants(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	rows, err := h.service.ListParticipants(c.Request.Context(), actor, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, rows, nil)
}

// AddParticipant godoc
// @Summary Add participant
// @Tags Conversations
// @Accept json
// @Produce json
// @Param id path string true "Conversation ID"
// @Param payload body models.AddParticipantRequest true "User"
// @Success 201 {object} response.Envelope
// @Router /conversations/{id}/participants [post]
func (h *ConversationHandler) AddParticipant(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	var req models.AddParticipantRequest
	if !bindJSON(c, &req) {
		return
	}
	participant, err := h.service.AddParticipant(c.Request.Context(), actor, c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, participant)
}

// RemoveParticipant godoc
// @Summary Remove participant
// @Tags Conversations
// @Param id path string true "Conversation ID"
// @Param userId path string true "User ID"
// @Success 204 {object} response.Envelope
// @Router /conversations/{id}/participants/{userId} [delete]
func (h *ConversationHandler) RemoveParticipant(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	if err := h.service.RemoveParticipant(c.Request.Context(), actor, c.Param("id"), c.Param("userId")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// ListMessages godoc
// @Summary List messages
// @Description Most recent messages in ascending order; before (RFC3339) and before_id form an exclusive cursor
// @Tags Conversations
// @Produce json
// @Param id path string true "Conversation ID"
// @Param limit query int false "Page size"
// @Param before query string false "Cursor (RFC3339)"
// @Param before_id query string false "Id of the oldest message already held"
// @Success 200 {object} response.Envelope
// @Router /conversations/{id}/messages [get]
func (h *ConversationHandler) ListMessages(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	var filter models.MessagePageFilter
	if raw := c.Query("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil {
			response.Error(c, appErrors.Clone(appErrors.ErrValidation, "limit must be a number"))
			return
		}
		filter.Limit = limit
	}
	if raw := strings.TrimSpace(c.Query("before")); raw != "" {
		before, err := time.Parse(time.RFC3339Nano, raw)
		if err != nil {
			response.Error(c, appErrors.Clone(appErrors.ErrValidation, "before must be RFC3339"))
			return
		}
		filter.Before = &before
		filter.BeforeID = strings.TrimSpace(c.Query("before_id"))
	}
	rows, err := h.service.ListMessages(c.Request.Context(), actor, c.Param("id"), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, rows, nil)
}

// SendMessage godoc
// @Summary Send message
// @Tags Conversations
// @Accept json
// @Produce json
// @Param id path string true "Conversation ID"
// @Param payload body models.SendMessageRequest true "Message"
// @Success 201 {object} response.Envelope
// @Router /conversations/{id}/messages [post]
func (h *ConversationHandler) SendMessage(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	var req models.SendMessageRequest
	if !bindJSON(c, &req) {
		return
	}
	msg, err := h.service.SendMessage(c.Request.Context(), actor, c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, msg)
}

// EditMessage godoc
// @Summary Edit message
// @Tags Conversations
// @Accept json
// @Produce json
// @Param id path string true "Conversation ID"
// @Param messageId path string true "Message ID"
// @Param payload body models.EditMessageRequest true "Body"
// @Success 200 {object} response.Envelope
// @Router /conversations/{id}/messages/{messageId} [patch]
func (h *ConversationHandler) EditMessage(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	var req models.EditMessageRequest
	if !bindJSON(c, &req) {
		return
	}
	msg, err := h.service.EditMessage(c.Request.Context(), actor, c.Param("id"), c.Param("messageId"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, msg, nil)
}

// DeleteMessage godoc
// @Summary Delete message
// @Tags Conversations
// @Param id path string true "Conversation ID"
// @Param messageId path string true "Message ID"
// @Success 204 {object} response.Envelope
// @Router /conversations/{id}/messages/{messageId} [delete]
func (h *ConversationHandler) DeleteMessage(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	if err := h.service.DeleteMessage(c.Request.Context(), actor, c.Param("id"), c.Param("messageId")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// MarkRead godoc
// @Summary Mark conversation read
// @Tags Conversations
// @Param id path string true "Conversation ID"
// @Success 204 {object} response.Envelope
// @Router /conversations/{id}/read [post]
func (h *ConversationHandler) MarkRead(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	if err := h.service.MarkRead(c.Request.Context(), actor, c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// Stream godoc
// @Summary Subscribe to conversation events
// @Description Upgrades to a websocket that pushes insert, update and delete events
// @Tags Conversations
// @Param id path string true "Conversation ID"
// @Param token query string false "Access token when headers cannot be set"
// @Success 101 {string} string "Switching Protocols"
// @Failure 404 {object} response.Envelope
// @Router /conversations/{id}/stream [get]
func (h *ConversationHandler) Stream(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	id := c.Param("id")
	if err := h.service.Authorize(c.Request.Context(), actor, id); err != nil {
		response.Error(c, err)
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Debug("websocket upgrade failed", zap.String("conversation_id", id), zap.Error(err))
		return
	}
	h.hub.Serve(c.Request.Context(), realtime.ConversationChannel(id), conn)
}
