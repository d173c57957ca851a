package cors

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/prefect-api/pkg/config"
)

const (
	allowHeaders  = "Authorization, Content-Type, X-Requested-With, X-Request-ID, Sec-WebSocket-Protocol"
	allowMethods  = "GET, POST, PUT, PATCH, DELETE, OPTIONS"
	exposeHeaders = "X-Request-ID, Content-Disposition"
)

// Matcher decides whether a browser origin may call the API. Entries are exact
// origins, "*" or a subdomain pattern such as "https://*.school.test".
type Matcher struct {
	any      bool
	exact    map[string]struct{}
	suffixes []pattern
}

type pattern struct {
	scheme string
	suffix string
}

// NewMatcher builds a Matcher. An empty list accepts every origin.
func NewMatcher(origins []string) Matcher {
	m := Matcher{any: len(origins) == 0, exact: make(map[string]struct{}, len(origins))}
	for _, origin := range origins {
		origin = strings.TrimRight(strings.TrimSpace(origin), "/")
		switch {
		case origin == "":
		case origin == "*":
			m.any = true
		case strings.Contains(origin, "://*."):
			parts := strings.SplitN(origin, "://*", 2)
			m.suffixes = append(m.suffixes, pattern{scheme: parts[0] + "://", suffix: strings.ToLower(parts[1])})
		default:
			m.exact[strings.ToLower(origin)] = struct{}{}
		}
	}
	return m
}

// Any reports whether every origin is accepted.
func (m Matcher) Any() bool { return m.any }

// Allows reports whether origin matches the list.
func (m Matcher) Allows(origin string) bool {
	if m.any {
		return true
	}
	origin = strings.ToLower(strings.TrimRight(origin, "/"))
	if _, ok := m.exact[origin]; ok {
		return true
	}
	for _, p := range m.suffixes {
		host := strings.TrimPrefix(origin, p.scheme)
		if host != origin && strings.HasSuffix(host, p.suffix) && len(host) > len(p.suffix) {
			return true
		}
	}
	return false
}

// New returns the CORS middleware. Allowed origins are echoed back; credentials
// are only advertised alongside an echoed origin.
func New(cfg config.CORSConfig) gin.HandlerFunc {
	matcher := NewMatcher(cfg.AllowedOrigins)
	maxAge := ""
	if cfg.MaxAge > 0 {
		maxAge = strconv.Itoa(int(cfg.MaxAge.Seconds()))
	}

	return func(c *gin.Context) {
		header := c.Writer.Header()
		header.Add("Vary", "Origin")

		origin := c.GetHeader("Origin")
		allowed := origin != "" && matcher.Allows(origin)
		switch {
		case allowed:
			header.Set("Access-Control-Allow-Origin", origin)
			if cfg.AllowCredentials {
				header.Set("Access-Control-Allow-Credentials", "true")
			}
			header.Set("Access-Control-Expose-Headers", exposeHeaders)
		case origin == "" && matcher.Any():
			header.Set("Access-Control-Allow-Origin", "*")
		}

		if c.Request.Method != http.MethodOptions {
			c.Next()
			return
		}

		if origin != "" && !allowed {
			c.AbortWithStatus(http.StatusForbidden)
			return
		}
		header.Set("Access-Control-Allow-Methods", allowMethods)
		header.Set("Access-Control-Allow-Headers", allowHeaders)
		if maxAge != "" {
			header.Set("Access-Control-Max-Age", maxAge)
		}
		c.AbortWithStatus(http.StatusNoContent)
	}
}
