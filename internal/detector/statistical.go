package detector

import (
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/solroute-labs/pricemonitor/internal/models"
)

// historyWindow bounds how many spread samples PairStatistics retains.
const historyWindow = 100

// minHistoryForSignal is the minimum sample count before z-score entry
// signals are considered reliable.
const minHistoryForSignal = 20

// StatisticalDetector scans a fixed set of cointegrated pair-of-pairs for
// mean-reversion entry signals. State mutation is confined to this
// detector and synchronized by a single coarse lock, since the write rate
// is low.
type StatisticalDetector struct {
	cache            PriceSource
	minProfitPercent float64
	zEntry           float64
	zExit            float64
	zStopLoss        float64

	mu    sync.Mutex
	stats map[string]*models.PairStatistics
}

// NewStatisticalDetector builds a StatisticalDetector over cache.
func NewStatisticalDetector(cache PriceSource, minProfitPercent, zEntry, zExit, zStopLoss float64) *StatisticalDetector {
	return &StatisticalDetector{
		cache:            cache,
		minProfitPercent: minProfitPercent,
		zEntry:           zEntry,
		zExit:            zExit,
		zStopLoss:        zStopLoss,
		stats:            make(map[string]*models.PairStatistics),
	}
}

func statsKey(pairA, pairB, venue string) string {
	return pairA + ":" + pairB + "@" + venue
}

// Detect runs the mean-reversion check for one tracked (pairA, pairB) on
// venue, updating its rolling spread history as a side effect.
func (d *StatisticalDetector) Detect(pairA, pairB, venue string) (models.Opportunity, bool) {
	priceA, ok := d.cache.Get(pairA, venue)
	if !ok {
		return models.Opportunity{}, false
	}
	priceB, ok := d.cache.Get(pairB, venue)
	if !ok {
		return models.Opportunity{}, false
	}
	if d.cache.IsStale(priceA) || d.cache.IsStale(priceB) {
		return models.Opportunity{}, false
	}
	if priceA.Price <= 0 || priceB.Price <= 0 {
		return models.Opportunity{}, false
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	key := statsKey(pairA, pairB, venue)
	st, ok := d.stats[key]
	if !ok {
		st = models.NewPairStatistics()
		d.stats[key] = st
	}

	spread := math.Log(priceA.Price) - st.Beta*math.Log(priceB.Price)
	if math.IsNaN(spread) || math.IsInf(spread, 0) {
		return models.Opportunity{}, false
	}

	st.History = append(st.History, spread)
	if len(st.History) > historyWindow {
		st.History = st.History[len(st.History)-historyWindow:]
	}
	if len(st.History) >= minHistoryForSignal {
		recalculate(st)
	}
	st.UpdatedAt = time.Now()

	if len(st.History) < minHistoryForSignal {
		return models.Opportunity{}, false
	}

	z := (spread - st.Mean) / st.StdDev
	if math.Abs(z) <= d.zEntry {
		return models.Opportunity{}, false
	}

	expectedReversion := math.Abs(z) * st.StdDev
	profitPercent := math.Abs(expectedReversion/spread) * 100.0
	if profitPercent <= d.minProfitPercent {
		return models.Opportunity{}, false
	}

	// z < 0: spread below its mean, A is relatively cheap -> buy A, sell B.
	// z > 0: spread above its mean, A is relatively rich -> buy B, sell A.
	buyPrice, sellPrice := priceA.Price, priceB.Price
	if z > 0 {
		buyPrice, sellPrice = priceB.Price, priceA.Price
	}

	minLiq := priceA.Liquidity
	if priceB.Liquidity < minLiq {
		minLiq = priceB.Liquidity
	}
	recommendedSize := uint64(math.Floor(0.02 * float64(minLiq)))

	zFactor := math.Min(math.Abs(z)/3.0, 1.0)
	historyFactor := math.Min(float64(len(st.History))/100.0, 1.0)
	confidence := clamp01(zFactor*0.6 + historyFactor*0.4)

	return models.Opportunity{
		Kind:             models.OpportunityKindStatistical,
		TokenPair:        fmt.Sprintf("%s:%s", pairA, pairB),
		BuyVenue:         venue,
		SellVenue:        venue,
		BuyPrice:         buyPrice,
		SellPrice:        sellPrice,
		NetProfitPercent: profitPercent,
		RecommendedSize:  recommendedSize,
		Confidence:       confidence,
		DetectedAt:       time.Now(),
	}, true
}

// recalculate updates Mean/StdDev from History. Caller must hold d.mu.
func recalculate(st *models.PairStatistics) {
	n := float64(len(st.History))
	var sum float64
	for _, v := range st.History {
		sum += v
	}
	mean := sum / n

	var sqDiff float64
	for _, v := range st.History {
		d := v - mean
		sqDiff += d * d
	}
	variance := sqDiff / n

	st.Mean = mean
	st.StdDev = math.Max(math.Sqrt(variance), 1e-4)
}
