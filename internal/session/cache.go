package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/spec-kit/diet-tracker/internal/domain"
)

// ErrNotFound is returned by Get when no live entry exists for the identity.
var ErrNotFound = errors.New("session not found")

// Cache maps an identity to its authoritative session snapshot. Entries are
// replaced whole on every Set; presence of an entry is the authorization signal.
type Cache interface {
	Set(ctx context.Context, id domain.Identity, snapshot *domain.Session, ttl time.Duration) error
	Get(ctx context.Context, id domain.Identity) (*domain.Session, error)
	Delete(ctx context.Context, id domain.Identity) error
}

// RedisCache stores snapshots as JSON under key = identity with a TTL.
type RedisCache struct {
	client redis.UniversalClient
	prefix string
}

// NewRedisCache constructs a Redis-backed cache. An empty prefix keeps the key
// equal to the identity.
func NewRedisCache(client redis.UniversalClient, prefix string) *RedisCache {
	return &RedisCache{client: client, prefix: prefix}
}

func (c *RedisCache) key(id domain.Identity) string {
	return c.prefix + id.String()
}

// Set overwrites the entry for id. ttl must be positive.
func (c *RedisCache) Set(ctx context.Context, id domain.Identity, snapshot *domain.Session, ttl time.Duration) error {
	if id == "" {
		return errors.New("session: empty identity")
	}
	if ttl <= 0 {
		return fmt.Errorf("session: ttl must be positive, got %s", ttl)
	}
	if err := snapshot.Validate(); err != nil {
		return fmt.Errorf("session: %w", err)
	}
	if snapshot.ID != id {
		return fmt.Errorf("session: snapshot identity %q does not match key %q", snapshot.ID, id)
	}

	payload, err := json.Marshal(snapshot)
	if err != nil {
		return fmt.Errorf("session: encode snapshot: %w", err)
	}
	if err := c.client.Set(ctx, c.key(id), payload, ttl).Err(); err != nil {
		return fmt.Errorf("session: set %s: %w", id, err)
	}
	return nil
}

// Get returns the live snapshot or ErrNotFound.
func (c *RedisCache) Get(ctx context.Context, id domain.Identity) (*domain.Session, error) {
	if id == "" {
		return nil, ErrNotFound
	}
	raw, err := c.client.Get(ctx, c.key(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("session: get %s: %w", id, err)
	}

	var snapshot domain.Session
	if err := json.Unmarshal(raw, &snapshot); err != nil {
		return nil, fmt.Errorf("session: decode snapshot: %w", err)
	}
	return &snapshot, nil
}

// Delete removes the entry. Deleting an absent entry is not an error.
func (c *RedisCache) Delete(ctx context.Context, id domain.Identity) error {
	if id == "" {
		return nil
	}
	if err := c.client.Del(ctx, c.key(id)).Err(); err != nil {
		return fmt.Errorf("session: delete %s: %w", id, err)
	}
	return nil
}

// TTL reports the remaining lifetime of the entry, or ErrNotFound.
func (c *RedisCache) TTL(ctx context.Context, id domain.Identity) (time.Duration, error) {
	ttl, err := c.client.TTL(ctx, c.key(id)).Result()
	if err != nil {
		return 0, fmt.Errorf("session: ttl %s: %w", id, err)
	}
	if ttl < 0 {
		return 0, ErrNotFound
	}
	return ttl, nil
}
