package revalidate

import (
	"context"
	"sync"
	"time"
)

// ViewCache is an in-process cache of computed read models (product stats, boards) keyed by path.
// Every entry is stamped with the org's version at load time; Invalidate evicts the covered paths
// and bumps the version so a load racing with an invalidation is not stored.
type ViewCache struct {
	mu       sync.Mutex
	entries  map[string]cacheEntry
	versions map[string]uint64
	ttl      time.Duration
	now      func() time.Time
}

type cacheEntry struct {
	orgID   string
	version uint64
	value   any
	expires time.Time
}

// NewViewCache returns a cache whose entries expire after ttl. ttl <= 0 disables expiry.
func NewViewCache(ttl time.Duration) *ViewCache {
	return &ViewCache{
		entries:  make(map[string]cacheEntry),
		versions: make(map[string]uint64),
		ttl:      ttl,
		now:      time.Now,
	}
}

// Invalidate implements Invalidator.
func (c *ViewCache) Invalidate(_ context.Context, orgID string, paths []string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.versions[orgID]++
	for key, e := range c.entries {
		if e.orgID != orgID {
			continue
		}
		for _, p := range paths {
			if covers(p, key) {
				delete(c.entries, key)
				break
			}
		}
	}
	return nil
}

// Len returns the number of cached entries.
func (c *ViewCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

func (c *ViewCache) lookup(orgID, path string) (any, uint64, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	version := c.versions[orgID]
	e, ok := c.entries[path]
	if !ok || e.version != version || (c.ttl > 0 && c.now().After(e.expires)) {
		return nil, version, false
	}
	return e.value, version, true
}

func (c *ViewCache) store(orgID, path string, version uint64, value any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.versions[orgID] != version {
		return
	}
	c.entries[path] = cacheEntry{orgID: orgID, version: version, value: value, expires: c.now().Add(c.ttl)}
}

// Load returns the cached value for path or calls load and caches its result. Errors are not cached.
// A nil cache always calls load.
func Load[T any](ctx context.Context, c *ViewCache, orgID, path string, load func(context.Context) (T, error)) (T, error) {
	if c == nil {
		return load(ctx)
	}
	cached, version, ok := c.lookup(orgID, path)
	if typed, isT := cached.(T); ok && isT {
		return typed, nil
	}
	v, err := load(ctx)
	if err != nil {
		return v, err
	}
	c.store(orgID, path, version, v)
	return v, nil
}
