package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/prefect-api/internal/models"
	appErrors "github.com/noah-isme/prefect-api/pkg/errors"
)

type fakeAuthSrv struct {
	lastLogin   models.LoginRequest
	revoked     []string
	passwordErr error
}

func (f *fakeAuthSrv) SignUp(ctx context.Context, req models.SignUpRequest) (*models.LoginResponse, error) {
	if req.Email == "taken@school.test" {
		return nil, appErrors.Clone(appErrors.ErrConflict, "email already registered")
	}
	return &models.LoginResponse{AccessToken: "access", RefreshToken: "refresh", User: models.UserInfo{ID: "stu-9", Email: req.Email}}, nil
}

func (f *fakeAuthSrv) Login(ctx context.Context, req models.LoginRequest) (*models.LoginResponse, error) {
	f.lastLogin = req
	if req.Password != "secret1" {
		return nil, appErrors.Clone(appErrors.ErrUnauthorized, "invalid credentials")
	}
	return &models.LoginResponse{AccessToken: "access", RefreshToken: "refresh"}, nil
}

func (f *fakeAuthSrv) RefreshToken(ctx context.Context, req models.RefreshTokenRequest) (*models.RefreshTokenResponse, error) {
	return &models.RefreshTokenResponse{AccessToken: "access-2", RefreshToken: "refresh-2"}, nil
}

func (f *fakeAuthSrv) Logout(ctx context.Context, actor models.Actor, refreshToken string) error {
	f.revoked = append(f.revoked, refreshToken)
	return nil
}

func (f *fakeAuthSrv) CurrentUser(ctx context.Context, userID string) (*models.User, error) {
	return &models.User{ID: userID, Email: "stu@school.test", Roles: models.RoleSet{models.RoleStudent}, Active: true}, nil
}

func (f *fakeAuthSrv) ChangePassword(ctx context.Context, actor models.Actor, req models.ChangePasswordRequest) error {
	return f.passwordErr
}

func newAuthEngine(srv authService, claims *models.JWTClaims) *gin.Engine {
	gin.SetMode(gin.TestMode)
	h := NewAuthHandler(srv)
	r := gin.New()
	r.POST("/auth/signup", h.SignUp)
	r.POST("/auth/signin", h.SignIn)
	r.POST("/auth/refresh", h.Refresh)
	secured := r.Group("/auth", withClaims(claims))
	secured.POST("/signout", h.SignOut)
	secured.POST("/change-password", h.ChangePassword)
	secured.GET("/me", h.Me)
	return r
}

func TestAuthSignUpAndConflicts(t *testing.T) {
	r := newAuthEngine(&fakeAuthSrv{}, nil)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/auth/signup", strings.NewReader(`{"email":"new@school.test","password":"secret1","full_name":"New"}`)))
	require.Equal(t, http.StatusCreated, rec.Code)
	var res models.LoginResponse
	require.NoError(t, json.Unmarshal(decodeEnvelope(t, rec).Data, &res))
	assert.Equal(t, "new@school.test", res.User.Email)

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/auth/signup", strings.NewReader(`{"email":"taken@school.test","password":"secret1","full_name":"Dup"}`)))
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestAuthSignInCarriesClientInfo(t *testing.T) {
	srv := &fakeAuthSrv{}
	r := newAuthEngine(srv, nil)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/auth/signin", strings.NewReader(`{"email":"stu@school.test","password":"secret1"}`))
	req.Header.Set("User-Agent", "prefect-web")
	r.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "prefect-web", srv.lastLogin.UserAgent)
	assert.NotEmpty(t, srv.lastLogin.IP)

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/auth/signin", strings.NewReader(`{"email":"stu@school.test","password":"wrong"}`)))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/auth/signin", strings.NewReader(`nope`)))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAuthSignOutBodyIsOptional(t *testing.T) {
	srv := &fakeAuthSrv{}
	r := newAuthEngine(srv, studentClaims("stu-1"))

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/auth/signout", nil))
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/auth/signout", strings.NewReader(`{"refresh_token":"abc"}`)))
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, []string{"", "abc"}, srv.revoked)
}

func TestAuthMeAndChangePassword(t *testing.T) {
	srv := &fakeAuthSrv{}
	r := newAuthEngine(srv, studentClaims("stu-1"))

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/auth/me", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	var info models.UserInfo
	require.NoError(t, json.Unmarshal(decodeEnvelope(t, rec).Data, &info))
	assert.Equal(t, "stu-1", info.ID)

	srv.passwordErr = appErrors.Clone(appErrors.ErrUnauthorized, "old password mismatch")
	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/auth/change-password", strings.NewReader(`{"old_password":"x","new_password":"secret2"}`)))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	unauth := newAuthEngine(srv, nil)
	rec = httptest.NewRecorder()
	unauth.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/auth/me", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}
