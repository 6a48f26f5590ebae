package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

type RedisCache struct {
	client *redis.Client
}

// Make sure we conform to Cache interface
var _ Cache = (*RedisCache)(nil)

func NewRedisCache(address, password string, db int) *RedisCache {
	return &RedisCache{
		client: redis.NewClient(&redis.Options{
			Addr:     address,
			Password: password,
			DB:       db,
		}),
	}
}

func (c *RedisCache) GetJob(ctx context.Context, id uuid.UUID) (*JobState, error) {
	data, err := c.client.Get(ctx, jobKey(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrMiss
		}
		return nil, fmt.Errorf("reading job state: %w", err)
	}

	var state JobState
	if err := json.Unmarshal(data, &state); err != nil {
		return nil, fmt.Errorf("decoding job state: %w", err)
	}
	return &state, nil
}

func (c *RedisCache) SetJob(ctx context.Context, state *JobState, ttl time.Duration) error {
	state.UpdatedAt = time.Now().UTC()
	data, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("encoding job state: %w", err)
	}
	if err := c.client.Set(ctx, jobKey(state.ID), data, ttl).Err(); err != nil {
		return fmt.Errorf("writing job state: %w", err)
	}
	return nil
}

func (c *RedisCache) DeleteJob(ctx context.Context, id uuid.UUID) error {
	return c.client.Del(ctx, jobKey(id)).Err()
}

func (c *RedisCache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

func (c *RedisCache) Close() error {
	return c.client.Close()
}
