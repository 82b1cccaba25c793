// Package cache holds the most recent PriceData observed for each
// (token pair, venue) combination, shared by every decoder goroutine that
// writes to it and every detector goroutine that reads from it.
//
// Keys are sharded across a fixed number of independently locked buckets
// via hash/fnv of the pair, so writers for distinct pairs contend only
// when their pairs hash to the same shard.
package cache

import (
	"hash/fnv"
	"sync"
	"time"

	"github.com/solroute-labs/pricemonitor/internal/models"
)

const shardCount = 32

type shard struct {
	mu   sync.RWMutex
	data map[string]map[string]models.PriceData // pair -> venue -> PriceData
}

// Cache is a concurrent pair/venue price store with TTL-based cleanup.
type Cache struct {
	shards         [shardCount]*shard
	ttl            time.Duration
	staleThreshold time.Duration
}

// New creates a Cache. ttl bounds how long an entry survives Cleanup;
// staleThreshold bounds how long an entry may be used by a detector before
// IsStale rejects it. ttl is normally looser than staleThreshold so a
// detector sees "stale" data a little before it disappears outright.
func New(ttl, staleThreshold time.Duration) *Cache {
	c := &Cache{ttl: ttl, staleThreshold: staleThreshold}
	for i := range c.shards {
		c.shards[i] = &shard{data: make(map[string]map[string]models.PriceData)}
	}
	return c
}

func (c *Cache) shardFor(pair string) *shard {
	h := fnv.New32a()
	_, _ = h.Write([]byte(pair))
	return c.shards[h.Sum32()%shardCount]
}

// Set records an observation for pair/venue, overwriting any prior value
// (property: last write for a given key wins).
func (c *Cache) Set(pair, venue string, data models.PriceData) {
	s := c.shardFor(pair)
	s.mu.Lock()
	defer s.mu.Unlock()
	inner, ok := s.data[pair]
	if !ok {
		inner = make(map[string]models.PriceData)
		s.data[pair] = inner
	}
	inner[venue] = data
}

// Get returns the cached observation for pair/venue, if present.
func (c *Cache) Get(pair, venue string) (models.PriceData, bool) {
	s := c.shardFor(pair)
	s.mu.RLock()
	defer s.mu.RUnlock()
	inner, ok := s.data[pair]
	if !ok {
		return models.PriceData{}, false
	}
	data, ok := inner[venue]
	return data, ok
}

// GetAllVenues returns every venue's observation for pair, keyed by venue
// name. The returned map is a copy; callers may range over it without
// holding any cache lock.
func (c *Cache) GetAllVenues(pair string) map[string]models.PriceData {
	s := c.shardFor(pair)
	s.mu.RLock()
	defer s.mu.RUnlock()
	inner, ok := s.data[pair]
	if !ok {
		return nil
	}
	out := make(map[string]models.PriceData, len(inner))
	for venue, data := range inner {
		out[venue] = data
	}
	return out
}

// IsStale reports whether data is older than the cache's staleness
// threshold and should be excluded from detection.
func (c *Cache) IsStale(data models.PriceData) bool {
	return data.IsStale(c.staleThreshold)
}

// Cleanup removes entries older than the cache's TTL, returning how many
// were removed. Safe to call concurrently with Set/Get; each shard is
// swept under its own lock so a long-running cleanup never blocks the
// whole cache.
func (c *Cache) Cleanup() int {
	removed := 0
	for _, s := range c.shards {
		s.mu.Lock()
		for pair, inner := range s.data {
			for venue, data := range inner {
				if data.IsStale(c.ttl) {
					delete(inner, venue)
					removed++
				}
			}
			if len(inner) == 0 {
				delete(s.data, pair)
			}
		}
		s.mu.Unlock()
	}
	return removed
}

// Len returns the total number of cached (pair, venue) entries.
func (c *Cache) Len() int {
	n := 0
	for _, s := range c.shards {
		s.mu.RLock()
		for _, inner := range s.data {
			n += len(inner)
		}
		s.mu.RUnlock()
	}
	return n
}

// Pairs returns every token pair currently tracked by the cache.
func (c *Cache) Pairs() []string {
	var out []string
	for _, s := range c.shards {
		s.mu.RLock()
		for pair := range s.data {
			out = append(out, pair)
		}
		s.mu.RUnlock()
	}
	return out
}

// RunCleanup blocks, running Cleanup every interval, until done is closed.
// Callers launch this in its own goroutine.
func (c *Cache) RunCleanup(interval time.Duration, done <-chan struct{}) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			c.Cleanup()
		case <-done:
			return
		}
	}
}
