// Package detector implements the three arbitrage scans the pipeline runs
// over the price cache: spatial (cross-venue), triangular (three-leg
// cycle), and statistical (mean-reverting spread).
package detector

import (
	"math"
	"sort"
	"time"

	"github.com/solroute-labs/pricemonitor/internal/models"
)

// PriceSource is the subset of Cache the detectors need: single-entry and
// per-pair venue lookups plus a staleness check. Detectors never mutate
// the cache.
type PriceSource interface {
	Get(pair, venue string) (models.PriceData, bool)
	GetAllVenues(pair string) map[string]models.PriceData
	IsStale(data models.PriceData) bool
}

// FeeModel is the cost model applied on top of each venue's own fee_rate.
type FeeModel struct {
	EstimatedSlippagePercent float64
	GasCostPercent           float64
	JitoTipPercent           float64
}

// SpatialDetector scans a single pair's cross-venue prices for a
// profitable buy-low/sell-high spread.
type SpatialDetector struct {
	cache            PriceSource
	fees             FeeModel
	minProfitPercent float64
	slotTolerance    uint64
}

// NewSpatialDetector builds a SpatialDetector over cache.
func NewSpatialDetector(cache PriceSource, fees FeeModel, minProfitPercent float64, slotTolerance uint64) *SpatialDetector {
	return &SpatialDetector{cache: cache, fees: fees, minProfitPercent: minProfitPercent, slotTolerance: slotTolerance}
}

// Scan checks one pair across every venue pair for a profitable buy-low,
// sell-high spread. It returns (opportunity, true) or (zero, false) when
// no opportunity qualifies.
func (d *SpatialDetector) Scan(pair string) (models.Opportunity, bool) {
	venues := d.cache.GetAllVenues(pair)

	type entry struct {
		venue string
		data  models.PriceData
	}
	var fresh []entry
	for venue, data := range venues {
		if d.cache.IsStale(data) {
			continue
		}
		fresh = append(fresh, entry{venue, data})
	}
	if len(fresh) < 2 {
		return models.Opportunity{}, false
	}

	// Deterministic ordering within a scan: sort by venue name so ties in
	// min/max selection resolve the same way every time.
	sort.Slice(fresh, func(i, j int) bool { return fresh[i].venue < fresh[j].venue })

	buy, sell := fresh[0], fresh[0]
	for _, e := range fresh[1:] {
		if e.data.Price < buy.data.Price {
			buy = e
		}
		if e.data.Price > sell.data.Price {
			sell = e
		}
	}

	if buy.venue == sell.venue {
		return models.Opportunity{}, false
	}

	if absDiffU64(buy.data.Slot, sell.data.Slot) > d.slotTolerance {
		return models.Opportunity{}, false
	}

	gross := (sell.data.Price - buy.data.Price) / buy.data.Price * 100.0
	costs := buy.data.FeeRate*100.0 + sell.data.FeeRate*100.0 +
		d.fees.EstimatedSlippagePercent + d.fees.GasCostPercent + d.fees.JitoTipPercent
	net := gross - costs

	if net <= d.minProfitPercent {
		return models.Opportunity{}, false
	}

	minLiq := buy.data.Liquidity
	if sell.data.Liquidity < minLiq {
		minLiq = sell.data.Liquidity
	}
	recommendedSize := uint64(math.Floor(0.05 * float64(minLiq)))

	slotDiff := float64(absDiffU64(buy.data.Slot, sell.data.Slot))
	slotFactor := 1.0 - math.Min(slotDiff/10.0, 0.5)
	liquidityFactor := math.Min(float64(minLiq)/1_000_000.0, 1.0)
	confidence := clamp01(slotFactor*0.6 + liquidityFactor*0.4)

	return models.Opportunity{
		Kind:             models.OpportunityKindSpatial,
		TokenPair:        pair,
		BuyVenue:         buy.venue,
		SellVenue:        sell.venue,
		BuyPrice:         buy.data.Price,
		SellPrice:        sell.data.Price,
		NetProfitPercent: net,
		RecommendedSize:  recommendedSize,
		Confidence:       confidence,
		DetectedAt:       time.Now(),
	}, true
}

func absDiffU64(a, b uint64) uint64 {
	if a > b {
		return a - b
	}
	return b - a
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
