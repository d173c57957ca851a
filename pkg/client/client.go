// Package client is a Go SDK for the prefect API. Resources plug into
// feed.View and conversations into realtime.MessageFeed.
package client

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/noah-isme/prefect-api/internal/models"
	appErrors "github.com/noah-isme/prefect-api/pkg/errors"
)

// Client talks to one API base URL, e.g. http://localhost:8080/api/v1.
type Client struct {
	http    *resty.Client
	baseURL string

	mu    sync.RWMutex
	token string
}

// Option customises a client.
type Option func(*Client)

// WithTimeout sets the per-request timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.http.SetTimeout(d) }
}

// WithToken starts the client with an access token.
func WithToken(token string) Option {
	return func(c *Client) { c.token = token }
}

// New builds a client.
func New(baseURL string, opts ...Option) *Client {
	baseURL = strings.TrimRight(baseURL, "/")
	c := &Client{
		http: resty.New().
			SetBaseURL(baseURL).
			SetTimeout(15*time.Second).
			SetHeader("Accept", "application/json"),
		baseURL: baseURL,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// BaseURL returns the API root.
func (c *Client) BaseURL() string { return c.baseURL }

// SetToken replaces the access token.
func (c *Client) SetToken(token string) {
	c.mu.Lock()
	c.token = token
	c.mu.Unlock()
}

// Token returns the access token in use.
func (c *Client) Token() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.token
}

// SignIn authenticates and keeps the returned access token.
func (c *Client) SignIn(ctx context.Context, email, password string) (*models.LoginResponse, error) {
	var out models.LoginResponse
	if err := c.do(ctx, http.MethodPost, "/auth/signin", nil, models.LoginRequest{Email: email, Password: password}, &out); err != nil {
		return nil, err
	}
	c.SetToken(out.AccessToken)
	return &out, nil
}

// Session fetches the caller's session view.
func (c *Client) Session(ctx context.Context) (*models.SessionView, error) {
	var out models.SessionView
	if err := c.do(ctx, http.MethodGet, "/session", nil, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

type envelope struct {
	Data       json.RawMessage    `json:"data"`
	Error      *appErrors.Error   `json:"error"`
	Pagination *models.Pagination `json:"pagination"`
}

func (c *Client) do(ctx context.Context, method, path string, query map[string]string, body, out interface{}) error {
	req := c.http.R().SetContext(ctx)
	if token := c.Token(); token != "" {
		req.SetAuthToken(token)
	}
	if len(query) > 0 {
		req.SetQueryParams(query)
	}
	if body != nil {
		req.SetBody(body)
	}

	resp, err := req.Execute(method, path)
	if err != nil {
		if ctx.Err() != nil {
			return appErrors.Wrap(ctx.Err(), appErrors.ErrTimeout.Code, appErrors.ErrTimeout.Status, appErrors.ErrTimeout.Message)
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, http.StatusBadGateway, "request failed")
	}
	if resp.StatusCode() == http.StatusNoContent {
		return nil
	}

	var env envelope
	if raw := resp.Body(); len(raw) > 0 {
		if err := json.Unmarshal(raw, &env); err != nil {
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, http.StatusBadGateway, fmt.Sprintf("unexpected response (%d)", resp.StatusCode()))
		}
	}
	if resp.IsError() {
		if env.Error != nil {
			if env.Error.Status == 0 {
				env.Error.Status = resp.StatusCode()
			}
			return env.Error
		}
		return appErrors.New(appErrors.ErrInternal.Code, resp.StatusCode(), resp.Status())
	}
	if out != nil && len(env.Data) > 0 {
		if err := json.Unmarshal(env.Data, out); err != nil {
			return fmt.Errorf("decode %s %s: %w", method, path, err)
		}
	}
	return nil
}
