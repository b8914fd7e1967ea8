package loader

import (
	"sync"
	"time"

	"insightsapi/internal/model"
)

// Cache is the client-side caching capability for the insights loader. It is
// injected so the loader's freshness logic is testable without a real
// browser-storage-like backend. Staleness is judged by the caller from the
// stored-at timestamp; the cache itself never expires entries.
type Cache interface {
	// Get returns the cached collection, when it was stored, and whether an
	// entry exists.
	Get() ([]model.Insight, time.Time, bool)
	// Set replaces the cached collection and stamps it with the current time.
	Set(items []model.Insight)
	// Clear drops the cached entry.
	Clear()
}

// MemoryCache is a mutex-guarded in-process Cache, local to one session and
// not shared across processes.
type MemoryCache struct {
	mu       sync.Mutex
	items    []model.Insight
	storedAt time.Time
	loaded   bool

	// Injectable for tests.
	now func() time.Time
}

var _ Cache = (*MemoryCache)(nil)

// NewMemoryCache creates an empty MemoryCache.
func NewMemoryCache() *MemoryCache {
	return &MemoryCache{now: time.Now}
}

func (c *MemoryCache) Get() ([]model.Insight, time.Time, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.loaded {
		return nil, time.Time{}, false
	}
	items := make([]model.Insight, len(c.items))
	copy(items, c.items)
	return items, c.storedAt, true
}

func (c *MemoryCache) Set(items []model.Insight) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items = make([]model.Insight, len(items))
	copy(c.items, items)
	c.storedAt = c.now()
	c.loaded = true
}

func (c *MemoryCache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items = nil
	c.storedAt = time.Time{}
	c.loaded = false
}
