package cors

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"

	"github.com/noah-isme/prefect-api/pkg/config"
)

func newRouter(cfg config.CORSConfig) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(New(cfg))
	router.GET("/", func(c *gin.Context) { c.Status(http.StatusOK) })
	return router
}

func request(router *gin.Engine, method, origin string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(method, "/", nil)
	if origin != "" {
		req.Header.Set("Origin", origin)
	}
	router.ServeHTTP(w, req)
	return w
}

func TestCORSAllowsListedOrigin(t *testing.T) {
	router := newRouter(config.CORSConfig{AllowedOrigins: []string{"https://school.test/"}, AllowCredentials: true})

	w := request(router, http.MethodGet, "https://school.test")
	assert.Equal(t, "https://school.test", w.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "true", w.Header().Get("Access-Control-Allow-Credentials"))

	w = request(router, http.MethodGet, "https://evil.test")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))
	assert.Empty(t, w.Header().Get("Access-Control-Allow-Credentials"))
}

func TestCORSPreflight(t *testing.T) {
	router := newRouter(config.CORSConfig{AllowedOrigins: []string{"https://school.test"}, MaxAge: 10 * time.Minute})

	w := request(router, http.MethodOptions, "https://school.test")
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "600", w.Header().Get("Access-Control-Max-Age"))
	assert.Contains(t, w.Header().Get("Access-Control-Allow-Methods"), "PATCH")

	w = request(router, http.MethodOptions, "https://evil.test")
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestCORSOpenListUsesWildcardWithoutOrigin(t *testing.T) {
	router := newRouter(config.CORSConfig{})

	w := request(router, http.MethodOptions, "")
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
}

func TestMatcher(t *testing.T) {
	m := NewMatcher([]string{"https://school.test", "https://*.prefects.test"})
	assert.False(t, m.Any())
	assert.True(t, m.Allows("https://School.test/"))
	assert.True(t, m.Allows("https://board.prefects.test"))
	assert.False(t, m.Allows("http://board.prefects.test"))
	assert.False(t, m.Allows("https://prefects.test"))
	assert.False(t, m.Allows("https://evilprefects.test"))
	assert.False(t, m.Allows("https://other.test"))

	assert.True(t, NewMatcher(nil).Any())
	assert.True(t, NewMatcher([]string{"*"}).Allows("https://anything.test"))
}
