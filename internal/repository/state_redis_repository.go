package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	appErrors "github.com/noah-isme/sma-course-api/pkg/errors"
)

// RedisStateRepository stores actor state as plain Redis strings under
// <prefix><partition>:<key>.
type RedisStateRepository struct {
	client *redis.Client
	prefix string
}

// NewRedisStateRepository constructs a Redis-backed state store.
func NewRedisStateRepository(client *redis.Client, prefix string) *RedisStateRepository {
	if prefix == "" {
		prefix = "state:"
	}
	return &RedisStateRepository{client: client, prefix: prefix}
}

func (r *RedisStateRepository) key(partition, key string) string {
	return r.prefix + partition + ":" + key
}

// ReadState fetches the payload.
func (r *RedisStateRepository) ReadState(ctx context.Context, partition, key string) ([]byte, error) {
	raw, err := r.client.Get(ctx, r.key(partition, key)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, appErrors.ErrStateNotFound
		}
		return nil, fmt.Errorf("redis get %s: %w", r.key(partition, key), err)
	}
	return raw, nil
}

// WriteState stores the payload without expiry.
func (r *RedisStateRepository) WriteState(ctx context.Context, partition, key string, payload []byte) error {
	if err := r.client.Set(ctx, r.key(partition, key), payload, 0).Err(); err != nil {
		return fmt.Errorf("redis set %s: %w", r.key(partition, key), err)
	}
	return nil
}

// ClearState deletes the payload.
func (r *RedisStateRepository) ClearState(ctx context.Context, partition, key string) error {
	if err := r.client.Del(ctx, r.key(partition, key)).Err(); err != nil {
		return fmt.Errorf("redis delete %s: %w", r.key(partition, key), err)
	}
	return nil
}
