package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/spec-kit/diet-tracker/internal/auth"
	"github.com/spec-kit/diet-tracker/internal/config"
	"github.com/spec-kit/diet-tracker/internal/domain"
	"github.com/spec-kit/diet-tracker/internal/events"
	"github.com/spec-kit/diet-tracker/internal/observability"
	"github.com/spec-kit/diet-tracker/internal/repository"
	"github.com/spec-kit/diet-tracker/internal/session"
	apperrors "github.com/spec-kit/diet-tracker/pkg/util"
)

// Reasons attached to REFRESH_FAILED errors.
const (
	RefreshReasonMissing        = "missing_token"
	RefreshReasonTokenExpired   = "token_expired"
	RefreshReasonTokenInvalid   = "token_invalid"
	RefreshReasonSessionExpired = "session_expired"
)

const codeDigits = 4

// SessionGrant is the outcome of a login or refresh.
type SessionGrant struct {
	Tokens  domain.TokenPair
	Session *domain.Session
}

// Registration is the outcome of a sign-up.
type Registration struct {
	User            *domain.User
	ActivationToken string
	ExpiresAt       time.Time
}

// RegisterInput carries sign-up fields.
type RegisterInput struct {
	FirstName   string
	LastName    string
	Email       string
	Password    string
	Gender      domain.Gender
	PhoneNumber string
}

// ProfileUpdate lists the mutable profile fields; nil means unchanged.
type ProfileUpdate struct {
	FirstName      *string
	LastName       *string
	PhoneNumber    *string
	Gender         *domain.Gender
	Health         *domain.HealthDetails
	Diet           *domain.DietaryPreferences
	Customizations *domain.Customizations
	OldPassword    string
	NewPassword    string
}

// AuthService runs the session lifecycle and the account flows around it.
type AuthService struct {
	users      repository.UserRepository
	resets     repository.PasswordResetRepository
	sessions   session.Cache
	tokens     *auth.TokenManager
	dispatcher events.Dispatcher
	metrics    *observability.Metrics
	logger     *zap.Logger

	bcryptCost int
	loginTTL   time.Duration
	refreshTTL time.Duration
	resetTTL   time.Duration
	now        func() time.Time
}

// AuthDependencies encapsulates collaborators for the auth service.
type AuthDependencies struct {
	UserRepo          repository.UserRepository
	PasswordResetRepo repository.PasswordResetRepository
	Sessions          session.Cache
	Tokens            *auth.TokenManager
	Dispatcher        events.Dispatcher
	Metrics           *observability.Metrics
	Logger            *zap.Logger
	Now               func() time.Time
}

// NewAuthService builds the service.
func NewAuthService(cfg config.AuthConfig, deps AuthDependencies) *AuthService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	now := deps.Now
	if now == nil {
		now = time.Now
	}
	dispatcher := deps.Dispatcher
	if dispatcher == nil {
		dispatcher = events.NewInMemoryDispatcher()
	}
	return &AuthService{
		users:      deps.UserRepo,
		resets:     deps.PasswordResetRepo,
		sessions:   deps.Sessions,
		tokens:     deps.Tokens,
		dispatcher: dispatcher,
		metrics:    deps.Metrics,
		logger:     logger.With(zap.String("component", "auth_service")),
		bcryptCost: cfg.BcryptCost,
		loginTTL:   orDuration(cfg.SessionLoginTTL(), time.Hour),
		refreshTTL: orDuration(cfg.SessionRefreshTTL(), 7*24*time.Hour),
		resetTTL:   orDuration(cfg.ResetCodeTTL(), 10*time.Minute),
		now:        now,
	}
}

// Login checks credentials, issues a token pair and seeds the session cache
// for one hour. Unknown email and wrong password fail the same way.
func (s *AuthService) Login(ctx context.Context, email, password string) (grant *SessionGrant, err error) {
	defer func() { s.metrics.RecordSessionOperation("login", err) }()

	user, err := s.users.GetByEmail(ctx, normalizeEmail(email))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewInvalidCredentials()
		}
		return nil, apperrors.NewInternalError(err)
	}
	if err := auth.ComparePassword(user.PasswordHash, password); err != nil {
		return nil, apperrors.NewInvalidCredentials()
	}

	snapshot := user.Snapshot()
	grant, err = s.openSession(ctx, snapshot, s.loginTTL)
	if err != nil {
		return nil, err
	}
	s.publish(ctx, events.EventSessionLogin, snapshot.ID, events.SessionPayload{TTLSeconds: int64(s.loginTTL / time.Second)})
	return grant, nil
}

// Refresh exchanges a valid refresh token for a new pair. The cached snapshot
// is rewritten whole with the seven day TTL. A missing cache entry is terminal.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (grant *SessionGrant, err error) {
	defer func() { s.metrics.RecordSessionOperation("refresh", err) }()

	if refreshToken == "" {
		return nil, apperrors.NewRefreshFailed("no refresh token found, please log in", RefreshReasonMissing)
	}
	claims, err := s.tokens.ParseToken(auth.TokenClassRefresh, refreshToken)
	if err != nil {
		if errors.Is(err, auth.ErrTokenExpired) {
			return nil, apperrors.NewRefreshFailed("refresh token expired, please log in", RefreshReasonTokenExpired)
		}
		return nil, apperrors.NewRefreshFailed("invalid refresh token, please log in", RefreshReasonTokenInvalid)
	}

	snapshot, err := s.sessions.Get(ctx, claims.Identity())
	if err != nil {
		if errors.Is(err, session.ErrNotFound) {
			return nil, apperrors.NewRefreshFailed("session expired, please log in again", RefreshReasonSessionExpired)
		}
		return nil, apperrors.NewInternalError(err)
	}

	grant, err = s.openSession(ctx, snapshot, s.refreshTTL)
	if err != nil {
		return nil, err
	}
	s.publish(ctx, events.EventSessionRefresh, snapshot.ID, events.SessionPayload{TTLSeconds: int64(s.refreshTTL / time.Second)})
	return grant, nil
}

// Logout drops the session entry of whoever the presented tokens name. It
// never fails: a cache error is logged and the caller still clears cookies.
func (s *AuthService) Logout(ctx context.Context, accessToken, refreshToken string) domain.Identity {
	id := s.resolveIdentity(accessToken, refreshToken)
	if id == "" {
		s.logger.Debug("logout without a recognizable token")
		return ""
	}

	err := s.sessions.Delete(ctx, id)
	if err != nil {
		s.logger.Warn("session delete failed during logout", zap.String("identity", id.String()), zap.Error(err))
	}
	s.metrics.RecordSessionOperation("logout", err)
	s.publish(ctx, events.EventSessionLogout, id, nil)
	return id
}

func (s *AuthService) resolveIdentity(accessToken, refreshToken string) domain.Identity {
	if accessToken != "" {
		if claims, err := s.tokens.ParseIgnoringExpiry(auth.TokenClassAccess, accessToken); err == nil {
			return claims.Identity()
		}
	}
	if refreshToken != "" {
		if claims, err := s.tokens.ParseIgnoringExpiry(auth.TokenClassRefresh, refreshToken); err == nil {
			return claims.Identity()
		}
	}
	return ""
}

// Register stores an unverified account and returns its activation token.
func (s *AuthService) Register(ctx context.Context, in RegisterInput) (*Registration, error) {
	email := normalizeEmail(in.Email)
	if !auth.IsStrongPassword(in.Password) {
		return nil, apperrors.NewValidationError("password is too weak", map[string]any{
			"password": "at least 8 characters with upper and lower case letters, a digit and one of @$!%*?&",
		})
	}

	if _, err := s.users.GetByEmail(ctx, email); err == nil {
		return nil, apperrors.NewConflict("email already registered", map[string]any{"email": email})
	} else if !errors.Is(err, pgx.ErrNoRows) {
		return nil, apperrors.NewInternalError(err)
	}

	hash, err := auth.HashPassword(in.Password, s.bcryptCost)
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}

	gender := in.Gender
	if gender == "" {
		gender = domain.GenderUndefined
	}
	user := &domain.User{
		FirstName:    strings.TrimSpace(in.FirstName),
		LastName:     strings.TrimSpace(in.LastName),
		Email:        email,
		PasswordHash: hash,
		Gender:       gender,
		PhoneNumber:  in.PhoneNumber,
	}
	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, repository.ErrEmailTaken) {
			return nil, apperrors.NewConflict("email already registered", map[string]any{"email": email})
		}
		return nil, apperrors.NewInternalError(err)
	}

	token, err := s.issueActivation(ctx, user)
	if err != nil {
		return nil, err
	}
	return &Registration{User: user, ActivationToken: token.Value, ExpiresAt: token.ExpiresAt}, nil
}

// ResendActivation issues a fresh activation code for a still unverified account.
func (s *AuthService) ResendActivation(ctx context.Context, activationToken string) (*Registration, error) {
	claims, err := s.parseFlowToken(auth.TokenClassActivation, activationToken, "activation token")
	if err != nil {
		return nil, err
	}
	user, err := s.userByEmail(ctx, claims.Email)
	if err != nil {
		return nil, err
	}
	if user.IsVerified {
		return nil, apperrors.NewConflict("user is already verified", nil)
	}
	token, err := s.issueActivation(ctx, user)
	if err != nil {
		return nil, err
	}
	return &Registration{User: user, ActivationToken: token.Value, ExpiresAt: token.ExpiresAt}, nil
}

// Activate marks the account behind the activation token as verified.
func (s *AuthService) Activate(ctx context.Context, activationToken, code string) (*domain.User, error) {
	claims, err := s.parseFlowToken(auth.TokenClassActivation, activationToken, "activation token")
	if err != nil {
		return nil, err
	}
	if claims.Code != code {
		return nil, apperrors.NewValidationError("invalid activation code", nil)
	}

	user, err := s.userByEmail(ctx, claims.Email)
	if err != nil {
		return nil, err
	}
	if user.IsVerified {
		return nil, apperrors.NewConflict("user is already verified", nil)
	}

	user.IsVerified = true
	if err := s.users.Update(ctx, user); err != nil {
		return nil, apperrors.NewInternalError(err)
	}
	return user, nil
}

// ForgotPassword stores a reset code for the account and returns a reset
// token bound to its email.
func (s *AuthService) ForgotPassword(ctx context.Context, email string) (string, error) {
	user, err := s.userByEmail(ctx, normalizeEmail(email))
	if err != nil {
		return "", err
	}

	code, err := auth.GenerateCode(codeDigits)
	if err != nil {
		return "", apperrors.NewInternalError(err)
	}
	if err := s.resets.Save(ctx, user.Email, code, s.resetTTL); err != nil {
		return "", apperrors.NewInternalError(err)
	}
	token, err := s.tokens.IssueResetToken(user.Email)
	if err != nil {
		return "", apperrors.NewInternalError(err)
	}

	s.publish(ctx, events.EventPasswordResetRequested, user.Identity(), events.PasswordResetRequestedPayload{
		Email: user.Email,
		Code:  code,
	})
	return token.Value, nil
}

// ResetPassword replaces the password and revokes any live session.
func (s *AuthService) ResetPassword(ctx context.Context, resetToken, code, newPassword string) error {
	claims, err := s.parseFlowToken(auth.TokenClassReset, resetToken, "reset token")
	if err != nil {
		return err
	}
	if !auth.IsStrongPassword(newPassword) {
		return apperrors.NewValidationError("password is too weak", nil)
	}

	stored, err := s.resets.Get(ctx, claims.Email)
	if err != nil {
		if errors.Is(err, repository.ErrResetCodeNotFound) {
			return apperrors.NewValidationError("reset code has expired or is invalid", nil)
		}
		return apperrors.NewInternalError(err)
	}
	if stored != code {
		return apperrors.NewValidationError("invalid reset code", nil)
	}

	user, err := s.userByEmail(ctx, claims.Email)
	if err != nil {
		return err
	}
	hash, err := auth.HashPassword(newPassword, s.bcryptCost)
	if err != nil {
		return apperrors.NewInternalError(err)
	}
	user.PasswordHash = hash
	if err := s.users.Update(ctx, user); err != nil {
		return apperrors.NewInternalError(err)
	}

	if err := s.resets.Delete(ctx, user.Email); err != nil {
		s.logger.Warn("reset code delete failed", zap.String("email", user.Email), zap.Error(err))
	}
	s.revoke(ctx, user.Identity(), "password_reset")
	return nil
}

// UpdateProfile applies the patch to the stored user and rewrites the full
// session snapshot. The store is the source of truth, not the cache.
func (s *AuthService) UpdateProfile(ctx context.Context, id domain.Identity, patch ProfileUpdate) (*domain.Session, error) {
	user, err := s.users.GetByID(ctx, id.String())
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("user", nil)
		}
		return nil, apperrors.NewInternalError(err)
	}

	if patch.NewPassword != "" {
		if err := auth.ComparePassword(user.PasswordHash, patch.OldPassword); err != nil {
			return nil, apperrors.NewValidationError("old password is incorrect", nil)
		}
		if !auth.IsStrongPassword(patch.NewPassword) {
			return nil, apperrors.NewValidationError("password is too weak", nil)
		}
		hash, err := auth.HashPassword(patch.NewPassword, s.bcryptCost)
		if err != nil {
			return nil, apperrors.NewInternalError(err)
		}
		user.PasswordHash = hash
	}
	applyProfile(user, patch)

	if err := s.users.Update(ctx, user); err != nil {
		return nil, apperrors.NewInternalError(err)
	}

	snapshot := user.Snapshot()
	err = s.sessions.Set(ctx, snapshot.ID, snapshot, s.loginTTL)
	s.metrics.RecordSessionOperation("profile_update", err)
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}
	return snapshot, nil
}

func applyProfile(user *domain.User, patch ProfileUpdate) {
	if patch.FirstName != nil {
		user.FirstName = strings.TrimSpace(*patch.FirstName)
	}
	if patch.LastName != nil {
		user.LastName = strings.TrimSpace(*patch.LastName)
	}
	if patch.PhoneNumber != nil {
		user.PhoneNumber = *patch.PhoneNumber
	}
	if patch.Gender != nil {
		user.Gender = *patch.Gender
	}
	if patch.Health != nil {
		user.Health = *patch.Health
	}
	if patch.Diet != nil {
		user.Diet = *patch.Diet
	}
	if patch.Customizations != nil {
		user.Preferences = *patch.Customizations
	}
}

func (s *AuthService) openSession(ctx context.Context, snapshot *domain.Session, ttl time.Duration) (*SessionGrant, error) {
	pair, err := s.tokens.IssuePair(snapshot.ID)
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}
	if err := s.sessions.Set(ctx, snapshot.ID, snapshot, ttl); err != nil {
		return nil, apperrors.NewInternalError(err)
	}
	return &SessionGrant{Tokens: pair, Session: snapshot}, nil
}

func (s *AuthService) revoke(ctx context.Context, id domain.Identity, reason string) {
	err := s.sessions.Delete(ctx, id)
	if err != nil {
		s.logger.Warn("session revoke failed", zap.String("identity", id.String()), zap.Error(err))
	}
	s.metrics.RecordSessionOperation("revoke", err)
	s.publish(ctx, events.EventSessionRevoked, id, events.SessionPayload{Reason: reason})
}

func (s *AuthService) issueActivation(ctx context.Context, user *domain.User) (auth.Token, error) {
	code, err := auth.GenerateCode(codeDigits)
	if err != nil {
		return auth.Token{}, apperrors.NewInternalError(err)
	}
	token, err := s.tokens.IssueActivationToken(user.Email, code)
	if err != nil {
		return auth.Token{}, apperrors.NewInternalError(err)
	}
	s.publish(ctx, events.EventAccountRegistered, user.Identity(), events.AccountRegisteredPayload{
		Email:          user.Email,
		FirstName:      user.FirstName,
		ActivationCode: code,
	})
	return token, nil
}

func (s *AuthService) parseFlowToken(class auth.TokenClass, raw, label string) (*auth.Claims, error) {
	claims, err := s.tokens.ParseToken(class, raw)
	if err != nil {
		if errors.Is(err, auth.ErrTokenExpired) {
			return nil, apperrors.NewExpiredToken(label+" has expired", err)
		}
		return nil, apperrors.NewInvalidToken("invalid "+label, err)
	}
	if claims.Email == "" {
		return nil, apperrors.NewInvalidToken("invalid "+label, nil)
	}
	return claims, nil
}

func (s *AuthService) userByEmail(ctx context.Context, email string) (*domain.User, error) {
	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("user", nil)
		}
		return nil, apperrors.NewInternalError(err)
	}
	return user, nil
}

func (s *AuthService) publish(ctx context.Context, eventType events.EventType, id domain.Identity, payload interface{}) {
	if err := s.dispatcher.Publish(ctx, events.NewEvent(eventType, id, s.now(), payload)); err != nil {
		s.logger.Warn("event handlers failed", zap.String("event_type", string(eventType)), zap.Error(err))
	}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func orDuration(d, fallback time.Duration) time.Duration {
	if d <= 0 {
		return fallback
	}
	return d
}
