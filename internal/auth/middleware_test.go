package auth

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/diet-tracker/internal/domain"
	"github.com/spec-kit/diet-tracker/internal/session"
	apperrors "github.com/spec-kit/diet-tracker/pkg/util"
)

type verifierFixture struct {
	app    *fiber.App
	tokens *TokenManager
	cache  *session.RedisCache
	mr     *miniredis.Miniredis
}

func newVerifierFixture(t *testing.T) *verifierFixture {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	cache := session.NewRedisCache(rdb, "")
	tokens := newTestTokenManager(t)
	mw := NewAuthMiddleware(tokens, cache, nil)

	app := fiber.New(fiber.Config{
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			de := apperrors.ToDomainError(err)
			return c.Status(de.HTTPStatus).JSON(fiber.Map{"error": fiber.Map{"code": de.Code}})
		},
	})
	app.Get("/protected", mw.Handle, func(c *fiber.Ctx) error {
		snapshot, ok := SessionFromContext(c)
		if !ok {
			return fiber.ErrInternalServerError
		}
		return c.JSON(fiber.Map{"id": snapshot.ID})
	})

	return &verifierFixture{app: app, tokens: tokens, cache: cache, mr: mr}
}

func (f *verifierFixture) seed(t *testing.T, id string) {
	t.Helper()
	snapshot := &domain.Session{ID: domain.Identity(id), Email: id + "@example.com"}
	require.NoError(t, f.cache.Set(context.Background(), snapshot.ID, snapshot, time.Hour))
}

func (f *verifierFixture) call(t *testing.T, mutate func(*http.Request)) (int, string) {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	if mutate != nil {
		mutate(req)
	}
	resp, err := f.app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()

	var body struct {
		ID    string `json:"id"`
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	if body.Error.Code != "" {
		return resp.StatusCode, body.Error.Code
	}
	return resp.StatusCode, body.ID
}

func withCookie(value string) func(*http.Request) {
	return func(r *http.Request) {
		r.AddCookie(&http.Cookie{Name: AccessTokenCookie, Value: value})
	}
}

func TestAuthMiddleware_NoToken(t *testing.T) {
	f := newVerifierFixture(t)
	status, code := f.call(t, nil)
	assert.Equal(t, http.StatusUnauthorized, status)
	assert.Equal(t, apperrors.CodeUnauthenticated, code)
}

func TestAuthMiddleware_InvalidToken(t *testing.T) {
	f := newVerifierFixture(t)
	status, code := f.call(t, withCookie("garbage"))
	assert.Equal(t, http.StatusUnauthorized, status)
	assert.Equal(t, apperrors.CodeInvalidToken, code)
}

func TestAuthMiddleware_ExpiredToken(t *testing.T) {
	f := newVerifierFixture(t)
	f.seed(t, "u-1")
	old := f.tokens.WithClock(func() time.Time { return time.Now().Add(-25 * time.Hour) })
	tok, err := old.IssueAccessToken("u-1")
	require.NoError(t, err)

	_, code := f.call(t, withCookie(tok.Value))
	assert.Equal(t, apperrors.CodeExpiredToken, code)
}

func TestAuthMiddleware_ValidTokenWithoutSession(t *testing.T) {
	f := newVerifierFixture(t)
	tok, err := f.tokens.IssueAccessToken("u-1")
	require.NoError(t, err)

	status, code := f.call(t, withCookie(tok.Value))
	assert.Equal(t, http.StatusUnauthorized, status)
	assert.Equal(t, apperrors.CodeSessionExpired, code)
}

func TestAuthMiddleware_AttachesCachedSnapshot(t *testing.T) {
	f := newVerifierFixture(t)
	f.seed(t, "u-1")
	tok, err := f.tokens.IssueAccessToken("u-1")
	require.NoError(t, err)

	status, id := f.call(t, withCookie(tok.Value))
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "u-1", id)
}

func TestAuthMiddleware_BearerHeaderFallback(t *testing.T) {
	f := newVerifierFixture(t)
	f.seed(t, "u-2")
	tok, err := f.tokens.IssueAccessToken("u-2")
	require.NoError(t, err)

	status, id := f.call(t, func(r *http.Request) {
		r.Header.Set("Authorization", "Bearer "+tok.Value)
	})
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "u-2", id)
}

func TestAuthMiddleware_SessionTTLElapsedBeforeTokenExpiry(t *testing.T) {
	f := newVerifierFixture(t)
	f.seed(t, "u-1")
	tok, err := f.tokens.IssueAccessToken("u-1")
	require.NoError(t, err)

	f.mr.FastForward(time.Hour + time.Second)

	_, code := f.call(t, withCookie(tok.Value))
	assert.Equal(t, apperrors.CodeSessionExpired, code)
}

func TestAuthMiddleware_CacheFailureIsInternal(t *testing.T) {
	f := newVerifierFixture(t)
	tok, err := f.tokens.IssueAccessToken("u-1")
	require.NoError(t, err)
	f.mr.Close()

	status, code := f.call(t, withCookie(tok.Value))
	assert.Equal(t, http.StatusInternalServerError, status)
	assert.Equal(t, apperrors.CodeInternal, code)
}
