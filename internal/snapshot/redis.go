package snapshot

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/benjaminwestern/catalog-editor/internal/catalog"
)

// RedisStore keeps the slot under Key in Redis.
type RedisStore struct {
	client    *redis.Client
	sessionID string
	now       func() time.Time
}

// NewRedisStore connects to the Redis URL and checks it answers.
func NewRedisStore(ctx context.Context, url, sessionID string) (*RedisStore, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("snapshot: parse redis url: %w", err)
	}
	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("snapshot: redis ping: %w", err)
	}
	return newRedisStore(client, sessionID), nil
}

func newRedisStore(client *redis.Client, sessionID string) *RedisStore {
	return &RedisStore{client: client, sessionID: sessionID, now: time.Now}
}

// Save overwrites the key.
func (r *RedisStore) Save(ctx context.Context, products []catalog.Product) error {
	b, err := encode(r.sessionID, products, r.now())
	if err != nil {
		return err
	}
	if err := r.client.Set(ctx, Key, b, 0).Err(); err != nil {
		return fmt.Errorf("snapshot: redis set: %w", err)
	}
	return nil
}

// Clear deletes the key.
func (r *RedisStore) Clear(ctx context.Context) error {
	if err := r.client.Del(ctx, Key).Err(); err != nil {
		return fmt.Errorf("snapshot: redis del: %w", err)
	}
	return nil
}

// Close closes the client.
func (r *RedisStore) Close() error { return r.client.Close() }
