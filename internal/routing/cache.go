package routing

import (
	"sync"
	"time"

	"github.com/fonradar/fonradar/internal/models"
)

// entry wraps cached base routes with expiry and recency tracking.
type entry struct {
	routes   []models.Route
	expiry   time.Time
	lastUsed int64
}

// routeCache caches normalized-question -> base routes. Cached routes carry
// no context; the orchestrator re-enriches risk on every hit because risk is
// time-sensitive. Bounded, least-recently-used eviction. Thread-safe.
type routeCache struct {
	mu         sync.Mutex
	items      map[string]*entry
	ttl        time.Duration
	maxEntries int
	clock      int64
}

func newRouteCache(ttl time.Duration, maxEntries int) *routeCache {
	if maxEntries <= 0 {
		maxEntries = 256
	}
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &routeCache{
		items:      make(map[string]*entry),
		ttl:        ttl,
		maxEntries: maxEntries,
	}
}

// get returns cached base routes if present and not expired.
func (c *routeCache) get(key string) ([]models.Route, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.items[key]
	if !ok {
		return nil, false
	}
	if time.Now().After(e.expiry) {
		delete(c.items, key)
		return nil, false
	}

	c.clock++
	e.lastUsed = c.clock
	return e.routes, true
}

// set stores base routes, evicting the least recently used entry at capacity.
func (c *routeCache) set(key string, routes []models.Route) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.clock++
	if _, exists := c.items[key]; !exists && len(c.items) >= c.maxEntries {
		c.evictLRU()
	}
	c.items[key] = &entry{
		routes:   routes,
		expiry:   time.Now().Add(c.ttl),
		lastUsed: c.clock,
	}
}

func (c *routeCache) len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.items)
}

// evictLRU removes the entry with the smallest lastUsed. Caller holds mu.
func (c *routeCache) evictLRU() {
	var oldestKey string
	var oldest int64 = -1

	for key, e := range c.items {
		if oldest == -1 || e.lastUsed < oldest {
			oldest = e.lastUsed
			oldestKey = key
		}
	}

	if oldestKey != "" {
		delete(c.items, oldestKey)
	}
}
