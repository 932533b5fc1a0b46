package auth

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/diet-tracker/internal/config"
	"github.com/spec-kit/diet-tracker/internal/domain"
)

const (
	AccessTokenCookie  = "access_token"
	RefreshTokenCookie = "refresh_token"
)

// CookieWriter sets and clears the HTTP-only token cookies.
type CookieWriter struct {
	cfg config.CookieConfig
	now func() time.Time
}

// NewCookieWriter constructs a writer for the given cookie settings.
func NewCookieWriter(cfg config.CookieConfig) *CookieWriter {
	if cfg.SameSite == "" {
		cfg.SameSite = fiber.CookieSameSiteLaxMode
	}
	return &CookieWriter{cfg: cfg, now: time.Now}
}

// SetTokens writes both token cookies with their own lifetimes.
func (w *CookieWriter) SetTokens(c *fiber.Ctx, pair domain.TokenPair) {
	w.set(c, AccessTokenCookie, pair.AccessToken, pair.AccessExpiresAt)
	w.set(c, RefreshTokenCookie, pair.RefreshToken, pair.RefreshExpiresAt)
}

// Clear overwrites both cookies with an empty value that expires immediately.
func (w *CookieWriter) Clear(c *fiber.Ctx) {
	expired := w.now().Add(-time.Hour)
	for _, name := range []string{AccessTokenCookie, RefreshTokenCookie} {
		c.Cookie(&fiber.Cookie{
			Name:     name,
			Value:    "",
			Path:     "/",
			Domain:   w.cfg.Domain,
			Expires:  expired,
			HTTPOnly: true,
			Secure:   w.cfg.Secure,
			SameSite: w.cfg.SameSite,
		})
	}
}

func (w *CookieWriter) set(c *fiber.Ctx, name, value string, expiresAt time.Time) {
	maxAge := int(expiresAt.Sub(w.now()).Seconds())
	if maxAge < 1 {
		maxAge = 1
	}
	c.Cookie(&fiber.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		Domain:   w.cfg.Domain,
		MaxAge:   maxAge,
		Expires:  expiresAt,
		HTTPOnly: true,
		Secure:   w.cfg.Secure,
		SameSite: w.cfg.SameSite,
	})
}
