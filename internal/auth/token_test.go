package auth

import (
	"strings"
	"testing"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/diet-tracker/internal/config"
)

func testAuthConfig() config.AuthConfig {
	return config.AuthConfig{
		AccessTokenSecret:        "access-secret",
		RefreshTokenSecret:       "refresh-secret",
		ActivationSecret:         "activation-secret",
		ResetPasswordSecret:      "reset-secret",
		AccessTokenTTLMinutes:    24 * 60,
		RefreshTokenTTLHours:     14 * 24,
		SessionLoginTTLSeconds:   3600,
		SessionRefreshTTLSeconds: 7 * 24 * 3600,
		ActivationTTLMinutes:     30,
		ResetCodeTTLSeconds:      600,
		BcryptCost:               4,
	}
}

func newTestTokenManager(t *testing.T) *TokenManager {
	t.Helper()
	tm, err := NewTokenManager(testAuthConfig())
	require.NoError(t, err)
	return tm
}

func TestAccessToken_RoundTripUntilExpiry(t *testing.T) {
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	clock := base
	tm := newTestTokenManager(t).WithClock(func() time.Time { return clock })

	tok, err := tm.IssueAccessToken("user-1")
	require.NoError(t, err)
	assert.Equal(t, base.Add(24*time.Hour), tok.ExpiresAt)

	for _, offset := range []time.Duration{0, time.Hour, 23*time.Hour + 59*time.Minute} {
		clock = base.Add(offset)
		claims, err := tm.ParseToken(TokenClassAccess, tok.Value)
		require.NoError(t, err, "offset %s", offset)
		assert.Equal(t, "user-1", claims.Identity().String())
	}

	clock = base.Add(24*time.Hour + time.Second)
	_, err = tm.ParseToken(TokenClassAccess, tok.Value)
	assert.ErrorIs(t, err, ErrTokenExpired)
}

func TestRefreshToken_Lifetime(t *testing.T) {
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	tm := newTestTokenManager(t).WithClock(func() time.Time { return base })

	tok, err := tm.IssueRefreshToken("user-1")
	require.NoError(t, err)
	assert.Equal(t, base.Add(14*24*time.Hour), tok.ExpiresAt)
	assert.Equal(t, TokenClassRefresh, tok.Class)
}

func TestParseToken_ClassesDoNotCrossVerify(t *testing.T) {
	tm := newTestTokenManager(t)

	refresh, err := tm.IssueRefreshToken("user-1")
	require.NoError(t, err)
	_, err = tm.ParseToken(TokenClassAccess, refresh.Value)
	assert.ErrorIs(t, err, ErrTokenInvalid)

	access, err := tm.IssueAccessToken("user-1")
	require.NoError(t, err)
	_, err = tm.ParseToken(TokenClassRefresh, access.Value)
	assert.ErrorIs(t, err, ErrTokenInvalid)
}

func TestParseToken_SameSecretWrongClassClaimRejected(t *testing.T) {
	tm := newTestTokenManager(t)
	claims := &Claims{
		Class: TokenClassRefresh,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "user-1",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
	forged, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("access-secret"))
	require.NoError(t, err)

	_, err = tm.ParseToken(TokenClassAccess, forged)
	assert.ErrorIs(t, err, ErrTokenInvalid)
}

func TestParseToken_Tampered(t *testing.T) {
	tm := newTestTokenManager(t)
	tok, err := tm.IssueAccessToken("user-1")
	require.NoError(t, err)

	parts := strings.Split(tok.Value, ".")
	require.Len(t, parts, 3)
	tampered := parts[0] + "." + parts[1] + "." + strings.Repeat("A", len(parts[2]))

	_, err = tm.ParseToken(TokenClassAccess, tampered)
	assert.ErrorIs(t, err, ErrTokenInvalid)

	_, err = tm.ParseToken(TokenClassAccess, "")
	assert.ErrorIs(t, err, ErrTokenInvalid)

	_, err = tm.ParseToken(TokenClassAccess, "not-a-jwt")
	assert.ErrorIs(t, err, ErrTokenInvalid)
}

func TestParseIgnoringExpiry(t *testing.T) {
	past := time.Now().Add(-48 * time.Hour)
	tm := newTestTokenManager(t)
	tok, err := tm.WithClock(func() time.Time { return past }).IssueAccessToken("user-7")
	require.NoError(t, err)

	_, err = tm.ParseToken(TokenClassAccess, tok.Value)
	require.ErrorIs(t, err, ErrTokenExpired)

	claims, err := tm.ParseIgnoringExpiry(TokenClassAccess, tok.Value)
	require.NoError(t, err)
	assert.Equal(t, "user-7", claims.Subject)

	other, err := NewTokenManager(config.AuthConfig{
		AccessTokenSecret:   "x",
		RefreshTokenSecret:  "y",
		ActivationSecret:    "z",
		ResetPasswordSecret: "w",
	})
	require.NoError(t, err)
	_, err = other.ParseIgnoringExpiry(TokenClassAccess, tok.Value)
	assert.ErrorIs(t, err, ErrTokenInvalid)
}

func TestActivationAndResetTokensCarryEmail(t *testing.T) {
	tm := newTestTokenManager(t)

	activation, err := tm.IssueActivationToken("ada@example.com", "1234")
	require.NoError(t, err)
	claims, err := tm.ParseToken(TokenClassActivation, activation.Value)
	require.NoError(t, err)
	assert.Equal(t, "ada@example.com", claims.Email)
	assert.Equal(t, "1234", claims.Code)

	reset, err := tm.IssueResetToken("ada@example.com")
	require.NoError(t, err)
	claims, err = tm.ParseToken(TokenClassReset, reset.Value)
	require.NoError(t, err)
	assert.Equal(t, "ada@example.com", claims.Email)
	assert.Empty(t, claims.Code)
}

func TestIssuePair_UniqueTokenIDs(t *testing.T) {
	tm := newTestTokenManager(t)
	first, err := tm.IssuePair("user-1")
	require.NoError(t, err)
	second, err := tm.IssuePair("user-1")
	require.NoError(t, err)

	assert.NotEqual(t, first.AccessToken, second.AccessToken)
	assert.NotEqual(t, first.RefreshToken, second.RefreshToken)
	assert.True(t, first.RefreshExpiresAt.After(first.AccessExpiresAt))
}

func TestNewTokenManager_RejectsSharedSecret(t *testing.T) {
	cfg := testAuthConfig()
	cfg.RefreshTokenSecret = cfg.AccessTokenSecret
	_, err := NewTokenManager(cfg)
	assert.Error(t, err)
}
