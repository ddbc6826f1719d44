// Package cache provides a read-through TTL cache for public case lookups.
// Writes to a case must call Invalidate so admin actions are visible promptly.
package cache

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"reunite/internal/cases/models"
	"reunite/pkg/platform/sentinel"
)

// Cache is the contract shared by the in-process and Redis variants.
type Cache interface {
	Get(ctx context.Context, id uuid.UUID) (*models.Case, error)
	Set(ctx context.Context, c *models.Case) error
	Invalidate(ctx context.Context, id uuid.UUID) error
}

type cachedCase struct {
	record   models.Case
	storedAt time.Time
}

// InMemoryCache caches cases in-process with TTL expiration.
type InMemoryCache struct {
	mu    sync.RWMutex
	cases map[uuid.UUID]cachedCase
	ttl   time.Duration
}

// NewInMemoryCache creates a new in-memory cache with the specified TTL.
func NewInMemoryCache(ttl time.Duration) *InMemoryCache {
	return &InMemoryCache{cases: make(map[uuid.UUID]cachedCase), ttl: ttl}
}

// Get retrieves a cached case. Returns sentinel.ErrNotFound if the entry does
// not exist or has expired past the TTL.
func (c *InMemoryCache) Get(_ context.Context, id uuid.UUID) (*models.Case, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if cached, ok := c.cases[id]; ok {
		if time.Since(cached.storedAt) < c.ttl {
			copied := cached.record
			return &copied, nil
		}
	}
	return nil, sentinel.ErrNotFound
}

// Set stores a case. A nil case is a no-op.
func (c *InMemoryCache) Set(_ context.Context, record *models.Case) error {
	if record == nil {
		return nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cases[record.ID] = cachedCase{record: *record, storedAt: time.Now()}
	return nil
}

// Invalidate drops the entry for id.
func (c *InMemoryCache) Invalidate(_ context.Context, id uuid.UUID) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.cases, id)
	return nil
}
