package handler

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/prefect-api/internal/models"
	appErrors "github.com/noah-isme/prefect-api/pkg/errors"
	"github.com/noah-isme/prefect-api/pkg/realtime"
)

type fakeConversationSrv struct {
	conversationService
	members    map[string][]string
	lastFilter models.MessagePageFilter
	sent       []models.SendMessageRequest
}

func (f *fakeConversationSrv) Authorize(ctx context.Context, actor models.Actor, id string) error {
	for _, member := range f.members[id] {
		if member == actor.ID {
			return nil
		}
	}
	return appErrors.Clone(appErrors.ErrNotFound, "conversation not found")
}

func (f *fakeConversationSrv) ListMessages(ctx context.Context, actor models.Actor, id string, filter models.MessagePageFilter) ([]models.Message, error) {
	if err := f.Authorize(ctx, actor, id); err != nil {
		return nil, err
	}
	f.lastFilter = filter
	return []models.Message{{Record: models.Record{ID: "m-1"}, ConversationID: id, Body: "hi"}}, nil
}

func (f *fakeConversationSrv) SendMessage(ctx context.Context, actor models.Actor, id string, req models.SendMessageRequest) (*models.Message, error) {
	if err := f.Authorize(ctx, actor, id); err != nil {
		return nil, err
	}
	f.sent = append(f.sent, req)
	return &models.Message{Record: models.Record{ID: "m-2"}, ConversationID: id, SenderID: actor.ID, Body: req.Body}, nil
}

type fakeHub struct {
	channels chan string
}

func (h *fakeHub) Serve(ctx context.Context, channel string, conn realtime.Conn) {
	h.channels <- channel
	_ = conn.WriteJSON(map[string]string{"channel": channel})
	_ = conn.Close()
}

func newConversationEngine(svc conversationService, hub streamServer, claims *models.JWTClaims) *gin.Engine {
	gin.SetMode(gin.TestMode)
	h := NewConversationHandler(svc, hub, []string{"https://school.test"}, nil)
	r := gin.New()
	group := r.Group("/conversations", withClaims(claims))
	group.GET("/:id/messages", h.ListMessages)
	group.POST("/:id/messages", h.SendMessage)
	group.GET("/:id/stream", h.Stream)
	return r
}

func TestConversationListMessagesParsesCursor(t *testing.T) {
	svc := &fakeConversationSrv{members: map[string][]string{"conv-1": {"stu-1"}}}
	r := newConversationEngine(svc, nil, studentClaims("stu-1"))

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/conversations/conv-1/messages?limit=10&before=2024-03-04T08:00:00.5Z", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 10, svc.lastFilter.Limit)
	require.NotNil(t, svc.lastFilter.Before)
	assert.Equal(t, 500*time.Millisecond, time.Duration(svc.lastFilter.Before.Nanosecond()))
	assert.Empty(t, svc.lastFilter.BeforeID)

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/conversations/conv-1/messages?before=2024-03-04T08:00:00Z&before_id=msg-7", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "msg-7", svc.lastFilter.BeforeID)

	for _, query := range []string{"limit=ten", "before=yesterday"} {
		rec = httptest.NewRecorder()
		r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/conversations/conv-1/messages?"+query, nil))
		assert.Equal(t, http.StatusBadRequest, rec.Code, query)
	}
}

func TestConversationNonMemberSeesNotFound(t *testing.T) {
	svc := &fakeConversationSrv{members: map[string][]string{"conv-1": {"stu-1"}}}
	r := newConversationEngine(svc, nil, studentClaims("stu-2"))

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/conversations/conv-1/messages", strings.NewReader(`{"body":"let me in"}`)))
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Empty(t, svc.sent)
}

func TestConversationSendMessage(t *testing.T) {
	svc := &fakeConversationSrv{members: map[string][]string{"conv-1": {"stu-1"}}}
	r := newConversationEngine(svc, nil, studentClaims("stu-1"))

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/conversations/conv-1/messages", strings.NewReader(`{"body":"hello"}`)))
	require.Equal(t, http.StatusCreated, rec.Code)
	require.Len(t, svc.sent, 1)
	assert.Equal(t, "hello", svc.sent[0].Body)
}

func TestConversationStreamUpgradesMembers(t *testing.T) {
	svc := &fakeConversationSrv{members: map[string][]string{"conv-1": {"stu-1"}}}
	hub := &fakeHub{channels: make(chan string, 1)}
	server := httptest.NewServer(newConversationEngine(svc, hub, studentClaims("stu-1")))
	defer server.Close()

	url := "ws" + strings.TrimPrefix(server.URL, "http") + "/conversations/conv-1/stream"
	header := http.Header{"Origin": []string{"https://school.test"}}
	conn, resp, err := websocket.DefaultDialer.Dial(url, header)
	require.NoError(t, err)
	defer conn.Close()
	assert.Equal(t, http.StatusSwitchingProtocols, resp.StatusCode)

	var payload map[string]string
	require.NoError(t, conn.ReadJSON(&payload))
	assert.Equal(t, realtime.ConversationChannel("conv-1"), payload["channel"])
	assert.Equal(t, realtime.ConversationChannel("conv-1"), <-hub.channels)
}

func TestConversationStreamRejectsOutsiders(t *testing.T) {
	svc := &fakeConversationSrv{members: map[string][]string{"conv-1": {"stu-1"}}}
	hub := &fakeHub{channels: make(chan string, 1)}
	server := httptest.NewServer(newConversationEngine(svc, hub, studentClaims("stu-2")))
	defer server.Close()

	url := "ws" + strings.TrimPrefix(server.URL, "http") + "/conversations/conv-1/stream"
	_, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Empty(t, hub.channels)
}

func TestOriginChecker(t *testing.T) {
	check := originChecker([]string{"https://school.test"})
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	assert.True(t, check(req))

	req.Header.Set("Origin", "https://school.test")
	assert.True(t, check(req))

	req.Header.Set("Origin", "https://evil.test")
	assert.False(t, check(req))

	assert.True(t, originChecker([]string{"*"})(req))
	assert.True(t, originChecker(nil)(req))
}
