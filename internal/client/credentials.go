package client

import (
	"net/http"
	"sync"
	"time"

	"github.com/spec-kit/diet-tracker/internal/auth"
	"github.com/spec-kit/diet-tracker/internal/domain"
)

// Credentials holds the token cookies and the last known session snapshot.
type Credentials struct {
	mu      sync.RWMutex
	access  string
	refresh string
	user    *domain.Session
}

// AccessToken returns the current access token, if any.
func (c *Credentials) AccessToken() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.access
}

// RefreshToken returns the current refresh token, if any.
func (c *Credentials) RefreshToken() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.refresh
}

// User returns the cached snapshot.
func (c *Credentials) User() *domain.Session {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.user
}

// LoggedIn reports whether any token is held.
func (c *Credentials) LoggedIn() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.access != "" || c.refresh != ""
}

func (c *Credentials) setUser(u *domain.Session) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.user = u
}

// Clear drops all local state and reports whether anything was held.
func (c *Credentials) Clear() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	held := c.access != "" || c.refresh != "" || c.user != nil
	c.access, c.refresh, c.user = "", "", nil
	return held
}

func (c *Credentials) apply(req *http.Request) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.access != "" {
		req.AddCookie(&http.Cookie{Name: auth.AccessTokenCookie, Value: c.access})
	}
	if c.refresh != "" {
		req.AddCookie(&http.Cookie{Name: auth.RefreshTokenCookie, Value: c.refresh})
	}
}

// capture applies Set-Cookie headers. An empty or expired cookie clears the token.
func (c *Credentials) capture(resp *http.Response, now time.Time) {
	cookies := resp.Cookies()
	if len(cookies) == 0 {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, ck := range cookies {
		value := ck.Value
		if ck.MaxAge < 0 || (!ck.Expires.IsZero() && !ck.Expires.After(now)) {
			value = ""
		}
		switch ck.Name {
		case auth.AccessTokenCookie:
			c.access = value
		case auth.RefreshTokenCookie:
			c.refresh = value
		}
	}
}
