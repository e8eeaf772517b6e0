package preview

import (
	"fmt"
	"sync"
	"time"

	"page-composer-backend/internal/api"
	"page-composer-backend/internal/metrics"
	"page-composer-backend/internal/models"
	"page-composer-backend/pkg/cache"
)

// DefaultTTL bounds how long a rendered preview may be served without a
// refetch.
const DefaultTTL = 5 * time.Minute

type entry struct {
	payload   models.PreviewPayload
	fetchedAt time.Time
}

// Cache is the in-process, time-boxed preview cache. An expired entry is
// treated as absent, never served stale. An optional Redis layer (shared
// between sessions) sits underneath; when it is disabled or nil the cache is
// purely local.
type Cache struct {
	ttl    time.Duration
	shared *cache.Cache
	now    func() time.Time

	mu      sync.RWMutex
	entries map[string]entry
}

func NewCache(ttl time.Duration, shared *cache.Cache) *Cache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Cache{
		ttl:     ttl,
		shared:  shared,
		now:     time.Now,
		entries: make(map[string]entry),
	}
}

func cacheKey(widgetID uint, instanceKey string) string {
	if instanceKey == "" {
		instanceKey = api.DefaultInstanceKey
	}
	return fmt.Sprintf("%d:%s", widgetID, instanceKey)
}

// Get returns the cached payload if it is still within the TTL.
func (c *Cache) Get(widgetID uint, instanceKey string) (models.PreviewPayload, bool) {
	key := cacheKey(widgetID, instanceKey)

	c.mu.RLock()
	e, ok := c.entries[key]
	c.mu.RUnlock()

	if ok && c.now().Sub(e.fetchedAt) < c.ttl {
		metrics.PreviewCacheHit()
		return e.payload, true
	}

	if c.shared != nil {
		var payload models.PreviewPayload
		if err := c.shared.GetCachedPreview(widgetID, normaliseInstanceKey(instanceKey), &payload); err == nil {
			c.storeLocal(key, payload)
			metrics.PreviewCacheHit()
			return payload, true
		}
	}

	metrics.PreviewCacheMiss()
	return models.PreviewPayload{}, false
}

// Put stores the payload unconditionally, overwriting any prior entry and
// timestamping it at insertion.
func (c *Cache) Put(widgetID uint, instanceKey string, payload models.PreviewPayload) {
	key := cacheKey(widgetID, instanceKey)
	c.storeLocal(key, payload)

	if c.shared != nil {
		_ = c.shared.CachePreview(widgetID, normaliseInstanceKey(instanceKey), payload)
	}
}

// Invalidate drops a single preview entry, used when the editor saves a
// change to one component.
func (c *Cache) Invalidate(widgetID uint, instanceKey string) {
	key := cacheKey(widgetID, instanceKey)

	c.mu.Lock()
	delete(c.entries, key)
	c.mu.Unlock()

	if c.shared != nil {
		_ = c.shared.InvalidatePreview(widgetID, normaliseInstanceKey(instanceKey))
	}
}

// InvalidateAll clears every entry by replacing the map. Used on schema
// refresh, when stale previews could reference fields that no longer exist.
func (c *Cache) InvalidateAll() {
	c.mu.Lock()
	c.entries = make(map[string]entry)
	c.mu.Unlock()

	if c.shared != nil {
		_ = c.shared.InvalidatePreviews()
	}
}

func (c *Cache) storeLocal(key string, payload models.PreviewPayload) {
	c.mu.Lock()
	c.entries[key] = entry{payload: payload, fetchedAt: c.now()}
	c.mu.Unlock()
}

func normaliseInstanceKey(instanceKey string) string {
	if instanceKey == "" {
		return api.DefaultInstanceKey
	}
	return instanceKey
}
