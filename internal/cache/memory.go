package cache

import (
	"context"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/hamrosewa/hamrosewa/internal/domain"
)

const (
	// DefaultSize bounds the number of cached result sets.
	DefaultSize = 1024
	// DefaultTTL is how long an entry is served before it is treated as
	// absent. The catalog is low-churn, so minutes of staleness are fine.
	DefaultTTL = 5 * time.Minute
)

// MemoryCache is the in-process result cache backed by an expirable LRU.
// Expiry is passive: entries past their TTL are dropped on access, no
// eviction thread is required beyond what the LRU itself runs.
type MemoryCache struct {
	lru *expirable.LRU[string, []domain.ScoredResult]
}

// NewMemoryCache creates a MemoryCache with the given capacity and TTL.
func NewMemoryCache(size int, ttl time.Duration) *MemoryCache {
	if size <= 0 {
		size = DefaultSize
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &MemoryCache{
		lru: expirable.NewLRU[string, []domain.ScoredResult](size, nil, ttl),
	}
}

func (c *MemoryCache) Get(_ context.Context, key string) ([]domain.ScoredResult, bool, error) {
	results, ok := c.lru.Get(key)
	return results, ok, nil
}

func (c *MemoryCache) Set(_ context.Context, key string, results []domain.ScoredResult) error {
	c.lru.Add(key, results)
	return nil
}
