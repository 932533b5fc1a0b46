package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/diet-tracker/internal/domain"
)

// DefaultTimeout bounds every call, the refresh call included.
const DefaultTimeout = 30 * time.Second

// Config selects the server.
type Config struct {
	BaseURL string
	Timeout time.Duration
}

// Option customizes a Client.
type Option func(*Client)

// WithLogger sets the client logger.
func WithLogger(l *zap.Logger) Option {
	return func(c *Client) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithHTTPClient replaces the transport. Its Timeout is overridden by Config.Timeout when set.
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) {
		if h != nil {
			c.http = h
		}
	}
}

// WithOnLogout registers the hook run after a forced or voluntary logout.
func WithOnLogout(fn func(reason error)) Option {
	return func(c *Client) { c.onLogout = fn }
}

// Client talks to the diet-tracker API and refreshes tokens transparently.
type Client struct {
	baseURL  string
	http     *http.Client
	creds    *Credentials
	coord    *Coordinator
	logger   *zap.Logger
	onLogout func(reason error)
	now      func() time.Time
}

// New builds a client with its own credentials store and coordinator.
func New(cfg Config, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		http:    &http.Client{},
		creds:   &Credentials{},
		logger:  zap.NewNop(),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	switch {
	case cfg.Timeout > 0:
		c.http.Timeout = cfg.Timeout
	case c.http.Timeout == 0:
		c.http.Timeout = DefaultTimeout
	}
	c.logger = c.logger.With(zap.String("component", "api_client"))
	c.coord = NewCoordinator(c.refresh, c.forceLogout, c.logger)
	return c
}

// Credentials exposes the local credential state.
func (c *Client) Credentials() *Credentials { return c.creds }

// Coordinator exposes the refresh coordinator.
func (c *Client) Coordinator() *Coordinator { return c.coord }

// Login authenticates and stores the issued cookies and snapshot.
func (c *Client) Login(ctx context.Context, email, password string) (*domain.Session, error) {
	payload, err := json.Marshal(map[string]string{"email": email, "password": password})
	if err != nil {
		return nil, err
	}
	var out struct {
		User *domain.Session `json:"user"`
	}
	if err := c.send(ctx, http.MethodPost, "/login", payload, &out); err != nil {
		return nil, err
	}
	c.creds.setUser(out.User)
	return out.User, nil
}

// Logout asks the server to drop the session and always clears local state.
func (c *Client) Logout(ctx context.Context) error {
	err := c.send(ctx, http.MethodGet, "/logout", nil, nil)
	if err != nil {
		c.logger.Warn("server logout failed", zap.Error(err))
	}
	c.creds.Clear()
	if c.onLogout != nil {
		c.onLogout(nil)
	}
	return err
}

// GetUser fetches the session snapshot.
func (c *Client) GetUser(ctx context.Context) (*domain.Session, error) {
	var out struct {
		User *domain.Session `json:"user"`
	}
	if err := c.Do(ctx, http.MethodGet, "/get-user", nil, &out); err != nil {
		return nil, err
	}
	c.creds.setUser(out.User)
	return out.User, nil
}

// Do sends an authenticated JSON call. A refreshable 401 triggers at most one
// coordinated refresh and one replay; terminal 401s force a logout. A 401 that
// arrives after another caller's refresh settled reuses that outcome.
func (c *Client) Do(ctx context.Context, method, path string, body, out any) error {
	var payload []byte
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode %s %s: %w", method, path, err)
		}
		payload = raw
	}

	seen := c.coord.Cycle()
	err := c.send(ctx, method, path, payload, out)
	if err == nil {
		return nil
	}
	if IsSessionTerminal(err) {
		c.forceLogout(err)
		return err
	}
	if !isRefreshable(err) {
		return err
	}

	if err := c.coord.Await(ctx, seen); err != nil {
		return err
	}

	err = c.send(ctx, method, path, payload, out)
	if IsSessionTerminal(err) {
		c.forceLogout(err)
	}
	return err
}

func (c *Client) refresh(ctx context.Context) error {
	var out struct {
		User *domain.Session `json:"user"`
	}
	if err := c.send(ctx, http.MethodGet, "/refresh-token", nil, &out); err != nil {
		return err
	}
	if out.User != nil {
		c.creds.setUser(out.User)
	}
	return nil
}

func (c *Client) forceLogout(reason error) {
	if !c.creds.Clear() {
		return
	}
	c.logger.Info("session ended, credentials cleared", zap.Error(reason))
	if c.onLogout != nil {
		c.onLogout(reason)
	}
}

func (c *Client) send(ctx context.Context, method, path string, payload []byte, out any) error {
	var body io.Reader
	if payload != nil {
		body = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	c.creds.apply(req)

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	c.creds.capture(resp, c.now())

	if resp.StatusCode >= http.StatusBadRequest {
		return decodeAPIError(resp)
	}
	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}

	var env struct {
		Data json.RawMessage `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return fmt.Errorf("decode %s %s: %w", method, path, err)
	}
	if len(env.Data) == 0 {
		return nil
	}
	return json.Unmarshal(env.Data, out)
}
