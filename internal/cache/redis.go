package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/rueidis"

	"github.com/hamrosewa/hamrosewa/internal/domain"
)

const redisKeyPrefix = "search:"

// RedisCache is the shared result-cache backend used when multiple search
// instances should see each other's entries. Entries are JSON blobs with a
// server-side TTL.
type RedisCache struct {
	client rueidis.Client
	ttl    time.Duration
}

// NewRedisCache connects to the Redis instance at url (redis://...).
func NewRedisCache(url string, ttl time.Duration) (*RedisCache, error) {
	if ttl <= 0 {
		ttl = DefaultTTL
	}

	opts, err := rueidis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis url: %w", err)
	}

	client, err := rueidis.NewClient(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return &RedisCache{client: client, ttl: ttl}, nil
}

func (c *RedisCache) Get(ctx context.Context, key string) ([]domain.ScoredResult, bool, error) {
	cmd := c.client.B().Get().Key(redisKeyPrefix + key).Build()
	raw, err := c.client.Do(ctx, cmd).AsBytes()
	if err != nil {
		if rueidis.IsRedisNil(err) {
			return nil, false, nil
		}
		return nil, false, err
	}

	var results []domain.ScoredResult
	if err := json.Unmarshal(raw, &results); err != nil {
		// A corrupt entry is a miss; it will be overwritten on the next set.
		return nil, false, nil
	}
	return results, true, nil
}

func (c *RedisCache) Set(ctx context.Context, key string, results []domain.ScoredResult) error {
	payload, err := json.Marshal(results)
	if err != nil {
		return err
	}

	cmd := c.client.B().Set().Key(redisKeyPrefix + key).Value(string(payload)).Ex(c.ttl).Build()
	return c.client.Do(ctx, cmd).Error()
}

// Close releases the underlying Redis connection.
func (c *RedisCache) Close() {
	c.client.Close()
}
