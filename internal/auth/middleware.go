package auth

import (
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/spec-kit/diet-tracker/internal/domain"
	"github.com/spec-kit/diet-tracker/internal/session"
	apperrors "github.com/spec-kit/diet-tracker/pkg/util"
)

const sessionKey = "auth_session"

// AuthMiddleware verifies the access token and requires a live session
// cache entry for its subject.
type AuthMiddleware struct {
	tokens   *TokenManager
	sessions session.Cache
	logger   *zap.Logger
}

// NewAuthMiddleware constructs middleware.
func NewAuthMiddleware(tokens *TokenManager, sessions session.Cache, logger *zap.Logger) *AuthMiddleware {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AuthMiddleware{tokens: tokens, sessions: sessions, logger: logger.With(zap.String("component", "auth_middleware"))}
}

// Handle enforces authentication for protected routes.
func (m *AuthMiddleware) Handle(c *fiber.Ctx) error {
	snapshot, err := m.Verify(c)
	if err != nil {
		return err
	}
	c.Locals(sessionKey, snapshot)
	return c.Next()
}

// Verify runs the checks in order: token presence, signature and expiry,
// then the session cache. Only the cache read has side effects.
func (m *AuthMiddleware) Verify(c *fiber.Ctx) (*domain.Session, error) {
	raw := AccessTokenFromRequest(c)
	if raw == "" {
		return nil, apperrors.NewUnauthenticated("no access token found, please log in")
	}

	claims, err := m.tokens.ParseToken(TokenClassAccess, raw)
	if err != nil {
		if errors.Is(err, ErrTokenExpired) {
			return nil, apperrors.NewExpiredToken("access token expired", err)
		}
		return nil, apperrors.NewInvalidToken("invalid access token", err)
	}

	snapshot, err := m.sessions.Get(c.UserContext(), claims.Identity())
	if err != nil {
		if errors.Is(err, session.ErrNotFound) {
			return nil, apperrors.NewSessionExpired("session expired, please log in again")
		}
		m.logger.Error("session lookup failed", zap.String("identity", claims.Subject), zap.Error(err))
		return nil, apperrors.NewInternalError(err)
	}
	return snapshot, nil
}

// AccessTokenFromRequest reads the access token cookie, falling back to a
// bearer Authorization header.
func AccessTokenFromRequest(c *fiber.Ctx) string {
	if token := c.Cookies(AccessTokenCookie); token != "" {
		return token
	}
	parts := strings.SplitN(c.Get(fiber.HeaderAuthorization), " ", 2)
	if len(parts) == 2 && strings.EqualFold(parts[0], "Bearer") {
		return strings.TrimSpace(parts[1])
	}
	return ""
}

// SessionFromContext retrieves the snapshot attached by Handle.
func SessionFromContext(c *fiber.Ctx) (*domain.Session, bool) {
	val := c.Locals(sessionKey)
	if val == nil {
		return nil, false
	}
	snapshot, ok := val.(*domain.Session)
	return snapshot, ok
}
