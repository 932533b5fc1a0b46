package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// ErrResetCodeNotFound means no live reset code exists for the email.
var ErrResetCodeNotFound = errors.New("reset code not found")

// PasswordResetRepository stores short-lived password reset codes.
type PasswordResetRepository interface {
	Save(ctx context.Context, email, code string, ttl time.Duration) error
	Get(ctx context.Context, email string) (string, error)
	Delete(ctx context.Context, email string) error
}

type passwordResetRepository struct {
	client redis.UniversalClient
}

// NewPasswordResetRepository constructs a Redis-backed repository.
func NewPasswordResetRepository(client redis.UniversalClient) PasswordResetRepository {
	return &passwordResetRepository{client: client}
}

func resetCodeKey(email string) string {
	return "reset-code:" + strings.ToLower(email)
}

func (r *passwordResetRepository) Save(ctx context.Context, email, code string, ttl time.Duration) error {
	if err := r.client.Set(ctx, resetCodeKey(email), code, ttl).Err(); err != nil {
		return fmt.Errorf("save reset code: %w", err)
	}
	return nil
}

func (r *passwordResetRepository) Get(ctx context.Context, email string) (string, error) {
	code, err := r.client.Get(ctx, resetCodeKey(email)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", ErrResetCodeNotFound
		}
		return "", fmt.Errorf("get reset code: %w", err)
	}
	return code, nil
}

func (r *passwordResetRepository) Delete(ctx context.Context, email string) error {
	return r.client.Del(ctx, resetCodeKey(email)).Err()
}
