package portfolio

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/patrickmn/go-cache"
)

const unscopedPrefix = "u:all|"

// ResultCache memoizes computed analytics per user until the user's ledger changes.
// Cached values are shared between callers and must be treated as read-only.
//
// Every Invalidate bumps a generation for the scopes it touches. A result is
// stored only if its scope's generation is unchanged since before the ledger
// read, so a read that overlapped a write never repopulates the cache.
//
// The cache is per process. Writes made by another server instance are not
// seen until entries expire.
type ResultCache struct {
	c *cache.Cache

	mu    sync.Mutex
	epoch uint64
	gens  map[string]uint64
}

// generation identifies the state of one scope at the start of a read
type generation struct {
	epoch uint64
	scope uint64
}

// NewResultCache creates a cache whose entries expire after ttl.
// A ttl <= 0 disables caching and returns nil, which every method accepts.
func NewResultCache(ttl time.Duration) *ResultCache {
	if ttl <= 0 {
		return nil
	}
	return &ResultCache{
		c:    cache.New(ttl, 2*ttl),
		gens: make(map[string]uint64),
	}
}

func userPrefix(userID *int64) string {
	if userID == nil {
		return unscopedPrefix
	}
	return fmt.Sprintf("u:%d|", *userID)
}

func (r *ResultCache) get(key string) (interface{}, bool) {
	if r == nil {
		return nil, false
	}
	return r.c.Get(key)
}

// generation must be read before the ledger is
func (r *ResultCache) generation(userID *int64) generation {
	if r == nil {
		return generation{}
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return generation{epoch: r.epoch, scope: r.gens[userPrefix(userID)]}
}

// set stores value unless userID's scope was invalidated after gen was taken
func (r *ResultCache) set(key string, userID *int64, gen generation, value interface{}) bool {
	if r == nil {
		return false
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.epoch != gen.epoch || r.gens[userPrefix(userID)] != gen.scope {
		return false
	}
	r.c.Set(key, value, cache.DefaultExpiration)
	return true
}

// Invalidate drops every result that may include the ledger of userID.
// Unscoped results span all users, so they are dropped on every write.
func (r *ResultCache) Invalidate(userID *int64) {
	if r == nil {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	if userID == nil {
		r.epoch++
		r.c.Flush()
		return
	}
	prefix := userPrefix(userID)
	r.gens[prefix]++
	r.gens[unscopedPrefix]++
	for key := range r.c.Items() {
		if strings.HasPrefix(key, prefix) || strings.HasPrefix(key, unscopedPrefix) {
			r.c.Delete(key)
		}
	}
}
