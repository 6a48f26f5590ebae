package blob

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisStore keeps report blobs in the same key/value service as the job
// cache, under a distinct namespace. The per-entry TTL gives the
// retention-aligned expiry for free.
type RedisStore struct {
	client *redis.Client
}

// Make sure we conform to Store interface
var _ Store = (*RedisStore)(nil)

func NewRedisStore(address, password string, db int) *RedisStore {
	return &RedisStore{
		client: redis.NewClient(&redis.Options{
			Addr:     address,
			Password: password,
			DB:       db,
		}),
	}
}

func blobKey(key string) string {
	return "blob:" + key
}

func (s *RedisStore) Put(ctx context.Context, key string, data []byte, ttl time.Duration) error {
	if err := s.client.Set(ctx, blobKey(key), data, ttl).Err(); err != nil {
		return fmt.Errorf("writing blob: %w", err)
	}
	return nil
}

func (s *RedisStore) Get(ctx context.Context, key string) ([]byte, error) {
	data, err := s.client.Get(ctx, blobKey(key)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("reading blob: %w", err)
	}
	return data, nil
}

func (s *RedisStore) Delete(ctx context.Context, key string) error {
	return s.client.Del(ctx, blobKey(key)).Err()
}

func (s *RedisStore) Close() error {
	return s.client.Close()
}
