package retrieve

import (
	"fmt"
	"sync"

	"github.com/golang/groupcache/lru"
)

// ShortlistCache is the process-wide bounded LRU described in §5: per-user
// candidate shortlists keyed by (user_id, ruleset_version, context_hash),
// invalidated on item mutation (per user) or ruleset publish (all). Backed
// by groupcache/lru, guarded by a mutex since lru.Cache is not safe for
// concurrent use on its own.
type ShortlistCache struct {
	mu    sync.Mutex
	inner *lru.Cache

	// userKeys tracks which cache keys belong to a given user, so
	// InvalidateUser can evict without a full-cache scan.
	userKeys map[string]map[lru.Key]struct{}
}

// NewShortlistCache builds a cache holding at most maxEntries shortlists.
func NewShortlistCache(maxEntries int) *ShortlistCache {
	return &ShortlistCache{
		inner:    lru.New(maxEntries),
		userKeys: make(map[string]map[lru.Key]struct{}),
	}
}

// CacheKey identifies one cached shortlist.
type CacheKey struct {
	UserID        string
	Slot          string
	RuleSetVersion string
	ContextHash   string
}

func (k CacheKey) lruKey() lru.Key {
	return fmt.Sprintf("%s|%s|%s|%s", k.UserID, k.Slot, k.RuleSetVersion, k.ContextHash)
}

// Get returns a previously cached shortlist, if present.
func (c *ShortlistCache) Get(key CacheKey) ([]Candidate, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.inner.Get(key.lruKey())
	if !ok {
		return nil, false
	}
	return v.([]Candidate), true
}

// Put stores a shortlist under key, associating it with its owning user for
// later targeted invalidation.
func (c *ShortlistCache) Put(key CacheKey, candidates []Candidate) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.inner.Add(key.lruKey(), candidates)

	keys, ok := c.userKeys[key.UserID]
	if !ok {
		keys = make(map[lru.Key]struct{})
		c.userKeys[key.UserID] = keys
	}
	keys[key.lruKey()] = struct{}{}
}

// InvalidateUser evicts every cached shortlist for userID, triggered by a
// wardrobe item add/update/remove event.
func (c *ShortlistCache) InvalidateUser(userID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for k := range c.userKeys[userID] {
		c.inner.Remove(k)
	}
	delete(c.userKeys, userID)
}

// InvalidateAll clears the entire cache, triggered by a rule set publish.
func (c *ShortlistCache) InvalidateAll() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.inner.Clear()
	c.userKeys = make(map[string]map[lru.Key]struct{})
}
