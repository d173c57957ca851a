package handler

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/prefect-api/internal/models"
	"github.com/noah-isme/prefect-api/pkg/config"
	appErrors "github.com/noah-isme/prefect-api/pkg/errors"
)

type stubTokens map[string]*models.JWTClaims

func (s stubTokens) ValidateToken(token string) (*models.JWTClaims, error) {
	if claims, ok := s[token]; ok {
		return claims, nil
	}
	return nil, appErrors.Clone(appErrors.ErrUnauthorized, "invalid token")
}

func newTestRouter(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	cfg := &config.Config{Env: "test", APIPrefix: "/api/v1", RequestTimeout: 5 * time.Second}
	tokens := stubTokens{
		"admin":   {UserID: "admin-1", Roles: models.RoleSet{models.RoleAdmin}},
		"student": {UserID: "stu-1", Roles: models.RoleSet{models.RoleStudent}},
	}
	conversations := &fakeConversationSrv{members: map[string][]string{"conv-1": {"stu-1"}}}

	return NewRouter(RouterDeps{Config: cfg, Logger: zap.NewNop(), Tokens: tokens}, Handlers{
		Resources: []ResourceRoute{
			{Path: "complaints", Handler: NewResourceHandler[models.Complaint, models.CreateComplaintRequest, models.UpdateComplaintRequest](newFakeComplaintAPI())},
		},
		Conversations: NewConversationHandler(conversations, &fakeHub{channels: make(chan string, 1)}, nil, nil),
		Dashboard:     NewDashboardHandler(&fakeDashboardSrv{summary: &models.DashboardSummary{}}),
		Health:        NewHealthHandler(nil, nil),
	})
}

func serve(r *gin.Engine, method, path, token string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(method, path, nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	r.ServeHTTP(rec, req)
	return rec
}

func TestRouterMountsHealthOutsidePrefix(t *testing.T) {
	r := newTestRouter(t)
	assert.Equal(t, http.StatusOK, serve(r, http.MethodGet, "/health", "").Code)
	assert.Equal(t, http.StatusOK, serve(r, http.MethodGet, "/ready", "").Code)
}

func TestRouterGuardsResources(t *testing.T) {
	r := newTestRouter(t)
	assert.Equal(t, http.StatusUnauthorized, serve(r, http.MethodGet, "/api/v1/complaints", "").Code)
	assert.Equal(t, http.StatusOK, serve(r, http.MethodGet, "/api/v1/complaints", "student").Code)
	assert.Equal(t, http.StatusOK, serve(r, http.MethodGet, "/api/v1/complaints/c-1", "student").Code)
}

func TestRouterDashboardIsStaffOnly(t *testing.T) {
	r := newTestRouter(t)
	assert.Equal(t, http.StatusForbidden, serve(r, http.MethodGet, "/api/v1/dashboard", "student").Code)

	rec := serve(r, http.MethodGet, "/api/v1/dashboard", "admin")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, decodeEnvelope(t, rec).Meta, "cache_hit")
}

func TestRouterConversationRoutes(t *testing.T) {
	r := newTestRouter(t)
	assert.Equal(t, http.StatusOK, serve(r, http.MethodGet, "/api/v1/conversations/conv-1/messages", "student").Code)
	assert.Equal(t, http.StatusNotFound, serve(r, http.MethodGet, "/api/v1/conversations/conv-1/messages", "admin").Code)
	assert.Equal(t, http.StatusUnauthorized, serve(r, http.MethodGet, "/api/v1/conversations/conv-1/stream", "").Code)
	assert.Equal(t, http.StatusUnauthorized, serve(r, http.MethodGet, "/api/v1/conversations/conv-1/stream?token=forged", "").Code)
}

func TestRouterUnknownRoute(t *testing.T) {
	rec := serve(newTestRouter(t), http.MethodGet, "/api/v1/nowhere", "")
	require.Equal(t, http.StatusNotFound, rec.Code)
	env := decodeEnvelope(t, rec)
	require.NotNil(t, env.Error)
	assert.Equal(t, "NOT_FOUND", env.Error.Code)
}
