package auth

import (
	"errors"
	"fmt"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/spec-kit/diet-tracker/internal/config"
	"github.com/spec-kit/diet-tracker/internal/domain"
)

var (
	// ErrTokenExpired is returned for a correctly signed token past its expiry.
	ErrTokenExpired = errors.New("token expired")
	// ErrTokenInvalid covers malformed, tampered or wrong-class tokens.
	ErrTokenInvalid = errors.New("token invalid")
)

// TokenClass selects the signing secret and lifetime of a token.
type TokenClass string

const (
	TokenClassAccess     TokenClass = "access"
	TokenClassRefresh    TokenClass = "refresh"
	TokenClassActivation TokenClass = "activation"
	TokenClassReset      TokenClass = "reset"
)

// Token is a signed token together with its validity window.
type Token struct {
	Value     string
	Class     TokenClass
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// Claims describes JWT payload.
type Claims struct {
	Class TokenClass `json:"cls"`
	Email string     `json:"email,omitempty"`
	Code  string     `json:"code,omitempty"`
	jwt.RegisteredClaims
}

// Identity returns the subject as a session identity.
func (c *Claims) Identity() domain.Identity {
	return domain.Identity(c.Subject)
}

type classSettings struct {
	secret []byte
	ttl    time.Duration
}

// TokenManager handles issuing and validating JWT tokens. Every token class
// is signed with its own secret.
type TokenManager struct {
	classes map[TokenClass]classSettings
	now     func() time.Time
}

// NewTokenManager builds a new manager from auth configuration.
func NewTokenManager(cfg config.AuthConfig) (*TokenManager, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &TokenManager{
		classes: map[TokenClass]classSettings{
			TokenClassAccess:     {secret: []byte(cfg.AccessTokenSecret), ttl: orDefault(cfg.AccessTokenTTL(), 24*time.Hour)},
			TokenClassRefresh:    {secret: []byte(cfg.RefreshTokenSecret), ttl: orDefault(cfg.RefreshTokenTTL(), 14*24*time.Hour)},
			TokenClassActivation: {secret: []byte(cfg.ActivationSecret), ttl: orDefault(cfg.ActivationTTL(), 30*time.Minute)},
			TokenClassReset:      {secret: []byte(cfg.ResetPasswordSecret), ttl: orDefault(cfg.ResetCodeTTL(), 10*time.Minute)},
		},
		now: time.Now,
	}, nil
}

// WithClock replaces the time source; used to test expiry.
func (tm *TokenManager) WithClock(now func() time.Time) *TokenManager {
	cp := *tm
	cp.now = now
	return &cp
}

// IssueAccessToken mints a short-lived access token for the identity.
func (tm *TokenManager) IssueAccessToken(id domain.Identity) (Token, error) {
	return tm.issue(TokenClassAccess, &Claims{RegisteredClaims: jwt.RegisteredClaims{Subject: id.String()}})
}

// IssueRefreshToken mints a long-lived refresh token for the identity.
func (tm *TokenManager) IssueRefreshToken(id domain.Identity) (Token, error) {
	return tm.issue(TokenClassRefresh, &Claims{RegisteredClaims: jwt.RegisteredClaims{Subject: id.String()}})
}

// IssuePair mints an access and a refresh token in one call.
func (tm *TokenManager) IssuePair(id domain.Identity) (domain.TokenPair, error) {
	access, err := tm.IssueAccessToken(id)
	if err != nil {
		return domain.TokenPair{}, err
	}
	refresh, err := tm.IssueRefreshToken(id)
	if err != nil {
		return domain.TokenPair{}, err
	}
	return domain.TokenPair{
		AccessToken:      access.Value,
		AccessExpiresAt:  access.ExpiresAt,
		RefreshToken:     refresh.Value,
		RefreshExpiresAt: refresh.ExpiresAt,
	}, nil
}

// IssueActivationToken binds an account activation code to an email.
func (tm *TokenManager) IssueActivationToken(email, code string) (Token, error) {
	return tm.issue(TokenClassActivation, &Claims{
		Email:            email,
		Code:             code,
		RegisteredClaims: jwt.RegisteredClaims{Subject: email},
	})
}

// IssueResetToken binds a password reset request to an email.
func (tm *TokenManager) IssueResetToken(email string) (Token, error) {
	return tm.issue(TokenClassReset, &Claims{
		Email:            email,
		RegisteredClaims: jwt.RegisteredClaims{Subject: email},
	})
}

func (tm *TokenManager) issue(class TokenClass, claims *Claims) (Token, error) {
	settings, ok := tm.classes[class]
	if !ok {
		return Token{}, fmt.Errorf("unknown token class %q", class)
	}

	issuedAt := tm.now()
	expiresAt := issuedAt.Add(settings.ttl)
	claims.Class = class
	claims.ID = uuid.NewString()
	claims.IssuedAt = jwt.NewNumericDate(issuedAt)
	claims.ExpiresAt = jwt.NewNumericDate(expiresAt)

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString(settings.secret)
	if err != nil {
		return Token{}, err
	}
	return Token{Value: tokenString, Class: class, IssuedAt: issuedAt, ExpiresAt: expiresAt}, nil
}

// ParseToken validates signature, class and expiry and returns claims.
func (tm *TokenManager) ParseToken(class TokenClass, tokenStr string) (*Claims, error) {
	return tm.parse(class, tokenStr, jwt.WithTimeFunc(tm.now), jwt.WithExpirationRequired())
}

// ParseIgnoringExpiry validates signature and class only. Logout uses it to
// find the identity behind an access token that has already expired.
func (tm *TokenManager) ParseIgnoringExpiry(class TokenClass, tokenStr string) (*Claims, error) {
	return tm.parse(class, tokenStr, jwt.WithoutClaimsValidation())
}

func (tm *TokenManager) parse(class TokenClass, tokenStr string, opts ...jwt.ParserOption) (*Claims, error) {
	settings, ok := tm.classes[class]
	if !ok {
		return nil, fmt.Errorf("unknown token class %q", class)
	}
	if tokenStr == "" {
		return nil, ErrTokenInvalid
	}

	opts = append(opts, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	parsed, err := jwt.ParseWithClaims(tokenStr, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if token.Method != jwt.SigningMethodHS256 {
			return nil, errors.New("unexpected signing method")
		}
		return settings.secret, nil
	}, opts...)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, fmt.Errorf("%w: %v", ErrTokenExpired, err)
		}
		return nil, fmt.Errorf("%w: %v", ErrTokenInvalid, err)
	}

	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid {
		return nil, fmt.Errorf("%w: invalid token claims", ErrTokenInvalid)
	}
	if claims.Class != class || claims.Subject == "" {
		return nil, fmt.Errorf("%w: wrong token class", ErrTokenInvalid)
	}
	return claims, nil
}

func orDefault(d, fallback time.Duration) time.Duration {
	if d <= 0 {
		return fallback
	}
	return d
}
