// Package pipeline wires decode, cache, detection, and broadcast together:
// one payload in, zero or more cache writes and opportunity emissions out.
// Per-update detector scans run concurrently on their own goroutines,
// joined with a WaitGroup before the caller proceeds.
package pipeline

import (
	"context"
	"sync"
	"time"

	"github.com/solroute-labs/pricemonitor/internal/bootstrap"
	"github.com/solroute-labs/pricemonitor/internal/broadcast"
	"github.com/solroute-labs/pricemonitor/internal/cache"
	"github.com/solroute-labs/pricemonitor/internal/calculator"
	"github.com/solroute-labs/pricemonitor/internal/decoder"
	"github.com/solroute-labs/pricemonitor/internal/detector"
	"github.com/solroute-labs/pricemonitor/internal/health"
	"github.com/solroute-labs/pricemonitor/internal/logging"
	"github.com/solroute-labs/pricemonitor/internal/models"
	"github.com/solroute-labs/pricemonitor/internal/stream"
)

// PoolRoute is everything the pipeline needs to turn one raw update into a
// cache write: which pair/venue it belongs to and which decoder parses it.
type PoolRoute struct {
	Pair    string
	Venue   string
	Decoder decoder.PoolDecoder
}

// Pipeline owns the decoders, the cache, the detectors, and the outbound
// broadcast topic. Detectors hold a non-owning handle to the cache; the
// pipeline is the only thing that writes to it.
type Pipeline struct {
	routes map[string]PoolRoute // identity ("pair:venue") -> route

	cache    *cache.Cache
	topic    *broadcast.Topic
	reporter *health.Reporter
	log      *logging.Logger

	spatial     *detector.SpatialDetector
	triangular  *detector.TriangularDetector
	triByPair   map[string][]detector.TriangularPath
	statistical *detector.StatisticalDetector
	statPairs   []StatPairConfig
}

// StatPairConfig names one cointegrated pair-of-pairs the statistical
// ticker scans on each tick.
type StatPairConfig struct {
	PairA, PairB, Venue string
}

// New builds a Pipeline over routes. triPaths and statPairs configure the
// triangular and statistical fan-out; both may be nil.
func New(
	routes map[string]PoolRoute,
	c *cache.Cache,
	topic *broadcast.Topic,
	reporter *health.Reporter,
	log *logging.Logger,
	spatialDet *detector.SpatialDetector,
	triDet *detector.TriangularDetector,
	triPaths []detector.TriangularPath,
	statDet *detector.StatisticalDetector,
	statPairs []StatPairConfig,
) *Pipeline {
	byPair := make(map[string][]detector.TriangularPath)
	for _, p := range triPaths {
		for _, pair := range []string{p.Pair1, p.Pair2, p.Pair3} {
			byPair[pair] = append(byPair[pair], p)
		}
	}

	return &Pipeline{
		routes:      routes,
		cache:       c,
		topic:       topic,
		reporter:    reporter,
		log:         log,
		spatial:     spatialDet,
		triangular:  triDet,
		triByPair:   byPair,
		statistical: statDet,
		statPairs:   statPairs,
	}
}

// HandleUpdate decodes, prices, caches, publishes, and fans a single
// streamed update out to the detectors. Decode errors are non-fatal:
// logged at debug, message dropped.
func (p *Pipeline) HandleUpdate(upd stream.Update) {
	route, ok := p.routes[upd.Identity]
	if !ok {
		p.log.Debugf("pipeline: unknown pool identity %q, dropping", upd.Identity)
		return
	}

	state, err := route.Decoder.Decode(upd.Data)
	if err != nil {
		p.log.Debugf("pipeline: decode failed for %s: %v", upd.Identity, err)
		return
	}

	price, err := calculator.Price(state)
	if err != nil {
		p.log.Debugf("pipeline: non-quotable price for %s: %v", upd.Identity, err)
		return
	}

	data := models.PriceData{
		Price:      price,
		Liquidity:  state.LiquidityHint,
		Slot:       upd.Slot,
		ObservedAt: time.Now(),
		ReserveA:   state.Amm.CoinVaultBalance,
		ReserveB:   state.Amm.PcVaultBalance,
		FeeRate:    state.FeeRate,
	}

	p.cache.Set(route.Pair, route.Venue, data)
	p.reporter.RecordUpdate(data)

	p.topic.PublishPrice(route.Pair, route.Venue, data)

	p.fanOut(route.Pair)
}

// fanOut runs the per-update detectors concurrently, each on its own
// goroutine, and blocks until all of them finish.
func (p *Pipeline) fanOut(pair string) {
	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		if opp, ok := p.spatial.Scan(pair); ok {
			p.emit(opp)
		}
	}()

	for _, path := range p.triByPair[pair] {
		path := path
		wg.Add(1)
		go func() {
			defer wg.Done()
			if opp, ok := p.triangular.Detect(path); ok {
				p.emit(opp)
			}
		}()
	}

	wg.Wait()
}

// RunStatisticalTicker runs the statistical detector on a fixed interval
// over every configured pair-of-pairs, independent of per-update fan-out,
// until ctx is cancelled.
func (p *Pipeline) RunStatisticalTicker(ctx context.Context, interval time.Duration) {
	if p.statistical == nil {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			for _, sp := range p.statPairs {
				if opp, ok := p.statistical.Detect(sp.PairA, sp.PairB, sp.Venue); ok {
					p.emit(opp)
				}
			}
		}
	}
}

func (p *Pipeline) emit(opp models.Opportunity) {
	p.reporter.RecordOpportunity()
	p.topic.PublishOpportunity(opp)
	p.log.Infof("opportunity: %s", opp.String())
}

// IngestSnapshot feeds one bootstrap.AccountSnapshot through the same
// decode/cache/fan-out path as a streamed Update, so the initial warm-up
// pass and live notifications share identical handling.
func (p *Pipeline) IngestSnapshot(snap bootstrap.AccountSnapshot) {
	p.HandleUpdate(stream.Update{Identity: snap.Identity, Slot: snap.Slot, Data: snap.Data})
}

// Run drains updates from in until ctx is cancelled or in is closed,
// processing them one at a time in arrival order.
func (p *Pipeline) Run(ctx context.Context, in <-chan stream.Update) {
	for {
		select {
		case <-ctx.Done():
			return
		case upd, ok := <-in:
			if !ok {
				return
			}
			p.HandleUpdate(upd)
		}
	}
}
