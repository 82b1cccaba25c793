// Package health reports whether the monitor is keeping up: connected to
// its WebSocket feed and receiving updates recently enough to trust the
// cache.
package health

import (
	"sync"
	"time"

	"github.com/solroute-labs/pricemonitor/internal/models"
)

// staleThreshold is how long ago the last account update may have been
// observed before the system is reported unhealthy.
const staleThreshold = 5 * time.Second

// referenceTradeSize is the trade size (in the pool's smallest input-token
// unit) used to sanity-check incoming quotes. It is a rough
// order-of-magnitude probe, not a real trade size: any pool where it moves
// the price by more than thinLiquidityImpactPercent is too shallow to
// trust without a closer look.
const referenceTradeSize = 1_000_000_000

// thinLiquidityImpactPercent is the PriceImpact threshold above which an
// update is counted as a thin-liquidity warning.
const thinLiquidityImpactPercent = 10.0

// Snapshot is the health contract returned to callers (an HTTP handler or
// a periodic log line).
type Snapshot struct {
	Healthy               bool          `json:"healthy"`
	CacheEntries          int           `json:"cache_entries"`
	WebsocketConnected    bool          `json:"websocket_connected"`
	LastUpdateAgo         time.Duration `json:"last_update_ago_ns"`
	UptimeSeconds         int64         `json:"uptime_seconds"`
	OpportunitiesFound    uint64        `json:"opportunities_found"`
	ThinLiquidityWarnings uint64        `json:"thin_liquidity_warnings"`
}

// Reporter tracks the mutable state needed to produce a Snapshot: it is
// updated by the pipeline on every account update and opportunity, and
// read by whatever exposes health externally.
type Reporter struct {
	mu sync.Mutex

	startedAt             time.Time
	connected             bool
	lastUpdate            time.Time
	cacheLen              func() int
	opportunitiesFound    uint64
	thinLiquidityWarnings uint64
}

// NewReporter builds a Reporter. cacheLen is called on demand to read the
// current cache size without the health package depending on the cache
// package directly.
func NewReporter(cacheLen func() int) *Reporter {
	return &Reporter{startedAt: time.Now(), cacheLen: cacheLen}
}

// SetConnected records the current WebSocket connection state.
func (r *Reporter) SetConnected(connected bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.connected = connected
}

// RecordUpdate marks that an account update was just processed, and
// sanity-checks the quote's depth: if a reference-sized trade would move
// its price by more than thinLiquidityImpactPercent, the pool is too
// shallow to trust and the warning counter is incremented.
func (r *Reporter) RecordUpdate(data models.PriceData) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.lastUpdate = time.Now()
	if data.PriceImpact(referenceTradeSize) > thinLiquidityImpactPercent {
		r.thinLiquidityWarnings++
	}
}

// RecordOpportunity increments the lifetime opportunity counter.
func (r *Reporter) RecordOpportunity() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.opportunitiesFound++
}

// Snapshot returns the current health status.
func (r *Reporter) Snapshot() Snapshot {
	r.mu.Lock()
	defer r.mu.Unlock()

	var lastUpdateAgo time.Duration
	if !r.lastUpdate.IsZero() {
		lastUpdateAgo = time.Since(r.lastUpdate)
	} else {
		lastUpdateAgo = time.Duration(1<<63 - 1) // unset: treat as arbitrarily stale
	}

	cacheEntries := 0
	if r.cacheLen != nil {
		cacheEntries = r.cacheLen()
	}

	return Snapshot{
		Healthy:               r.connected && lastUpdateAgo < staleThreshold,
		CacheEntries:          cacheEntries,
		WebsocketConnected:    r.connected,
		LastUpdateAgo:         lastUpdateAgo,
		UptimeSeconds:         int64(time.Since(r.startedAt).Seconds()),
		OpportunitiesFound:    r.opportunitiesFound,
		ThinLiquidityWarnings: r.thinLiquidityWarnings,
	}
}
