package handler

import (
	"context"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/prefect-api/internal/models"
	"github.com/noah-isme/prefect-api/internal/service"
	appErrors "github.com/noah-isme/prefect-api/pkg/errors"
	"github.com/noah-isme/prefect-api/pkg/response"
)

type sessionLoader interface {
	Load(ctx context.Context, claims *models.JWTClaims) (service.Session, error)
	View(session service.Session) models.SessionView
}

type profileService interface {
	UpdateTheme(ctx context.Context, actor models.Actor, req models.UpdateThemeRequest) (*models.User, error)
	UploadAvatar(ctx context.Context, actor models.Actor, file io.Reader) (*models.User, error)
	DeleteAvatar(ctx context.Context, actor models.Actor) (*models.User, error)
}

// SessionHandler exposes the signed-in user's session and preferences.
type SessionHandler struct {
	sessions sessionLoader
	profile  profileService
}

// NewSessionHandler constructs the handler.
func NewSessionHandler(sessions sessionLoader, profile profileService) *SessionHandler {
	return &SessionHandler{sessions: sessions, profile: profile}
}

// Get godoc
// @Summary Current session
// @Description Returns the user, role set, theme, navigation and page variants
// @Tags Session
// @Produce json
// @Success 200 {object} response.Envelope
// @Failure 401 {object} response.Envelope
// @Router /session [get]
func (h *SessionHandler) Get(c *gin.Context) {
	session, err := h.sessions.Load(c.Request.Context(), claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, h.sessions.View(session), nil)
}

// UpdateTheme godoc
// @Summary Update theme preference
// @Tags Session
// @Accept json
// @Produce json
// @Param payload body models.UpdateThemeRequest true "Theme"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /session/theme [put]
func (h *SessionHandler) UpdateTheme(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	var req models.UpdateThemeRequest
	if !bindJSON(c, &req) {
		return
	}
	user, err := h.profile.UpdateTheme(c.Request.Context(), actor, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, models.NewUserInfo(user), nil)
}

// UploadAvatar godoc
// @Summary Upload or replace avatar
// @Tags Session
// @Accept multipart/form-data
// @Produce json
// @Param file formData file true "Image"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /session/avatar [put]
func (h *SessionHandler) UploadAvatar(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	header, err := c.FormFile("file")
	if err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "file is required"))
		return
	}
	file, err := header.Open()
	if err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "unreadable upload"))
		return
	}
	defer file.Close()

	user, err := h.profile.UploadAvatar(c.Request.Context(), actor, file)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, models.NewUserInfo(user), nil)
}

// DeleteAvatar godoc
// @Summary Remove avatar
// @Tags Session
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /session/avatar [delete]
func (h *SessionHandler) DeleteAvatar(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	user, err := h.profile.DeleteAvatar(c.Request.Context(), actor)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, models.NewUserInfo(user), nil)
}
