package detector

import (
	"fmt"
	"math"
	"time"

	"github.com/solroute-labs/pricemonitor/internal/models"
)

// TriangularPath is a three-leg cycle on a single venue:
// start -> mid -> end -> start. Pair1/Pair2/Pair3 must already be named in
// the direction the cycle consumes them.
type TriangularPath struct {
	TokenStart, TokenMid, TokenEnd string
	Pair1, Pair2, Pair3            string
	Venue                          string
}

// NewTriangularPath derives the three pair names from the token cycle.
func NewTriangularPath(start, mid, end, venue string) TriangularPath {
	return TriangularPath{
		TokenStart: start,
		TokenMid:   mid,
		TokenEnd:   end,
		Pair1:      start + "-" + mid,
		Pair2:      mid + "-" + end,
		Pair3:      end + "-" + start,
		Venue:      venue,
	}
}

// CommonTriangularPaths returns the triangular cycles this monitor tracks
// by default on venue: SOL-anchored triangles plus a stablecoin bridge.
func CommonTriangularPaths(venue string) []TriangularPath {
	return []TriangularPath{
		NewTriangularPath("SOL", "USDC", "BONK", venue),
		NewTriangularPath("SOL", "USDC", "JTO", venue),
		NewTriangularPath("SOL", "USDC", "JUP", venue),
		NewTriangularPath("SOL", "USDC", "RAY", venue),
		NewTriangularPath("SOL", "USDT", "BONK", venue),
		NewTriangularPath("SOL", "USDC", "USDT", venue),
	}
}

// TriangularDetector evaluates a fixed set of paths for three-leg cycle
// profitability.
type TriangularDetector struct {
	cache            PriceSource
	fees             FeeModel
	minProfitPercent float64
	slotTolerance    uint64
}

// NewTriangularDetector builds a TriangularDetector over cache.
func NewTriangularDetector(cache PriceSource, fees FeeModel, minProfitPercent float64, slotTolerance uint64) *TriangularDetector {
	return &TriangularDetector{cache: cache, fees: fees, minProfitPercent: minProfitPercent, slotTolerance: slotTolerance}
}

// Detect checks a single triangular path for a profitable three-leg cycle.
func (d *TriangularDetector) Detect(path TriangularPath) (models.Opportunity, bool) {
	p1, ok := d.cache.Get(path.Pair1, path.Venue)
	if !ok {
		return models.Opportunity{}, false
	}
	p2, ok := d.cache.Get(path.Pair2, path.Venue)
	if !ok {
		return models.Opportunity{}, false
	}
	p3, ok := d.cache.Get(path.Pair3, path.Venue)
	if !ok {
		return models.Opportunity{}, false
	}

	if d.cache.IsStale(p1) || d.cache.IsStale(p2) || d.cache.IsStale(p3) {
		return models.Opportunity{}, false
	}

	maxSlot := maxU64(p1.Slot, p2.Slot, p3.Slot)
	minSlot := minU64(p1.Slot, p2.Slot, p3.Slot)
	if maxSlot-minSlot > d.slotTolerance {
		return models.Opportunity{}, false
	}

	rate1 := p1.Price * (1.0 - p1.FeeRate)
	rate2 := p2.Price * (1.0 - p2.FeeRate)
	rate3 := p3.Price * (1.0 - p3.FeeRate)
	final := rate1 * rate2 * rate3

	if math.IsNaN(final) || math.IsInf(final, 0) {
		return models.Opportunity{}, false
	}

	gross := (final - 1.0) * 100.0
	costs := d.fees.GasCostPercent + d.fees.JitoTipPercent + d.fees.EstimatedSlippagePercent*3.0
	net := gross - costs

	if net <= d.minProfitPercent {
		return models.Opportunity{}, false
	}

	minLiq := minU64(p1.Liquidity, p2.Liquidity, p3.Liquidity)
	recommendedSize := uint64(math.Floor(0.03 * float64(minLiq)))

	liquidityFactor := math.Min(float64(minLiq)/1_000_000.0, 1.0)
	slotFactor := 1.0 - math.Min(float64(maxSlot-minSlot)/5.0, 0.5)
	confidence := clamp01(liquidityFactor*0.5 + slotFactor*0.5)

	return models.Opportunity{
		Kind:             models.OpportunityKindTriangular,
		TokenPair:        fmt.Sprintf("%s->%s->%s->%s", path.TokenStart, path.TokenMid, path.TokenEnd, path.TokenStart),
		BuyVenue:         path.Venue,
		SellVenue:        path.Venue,
		BuyPrice:         1.0,
		SellPrice:        final,
		NetProfitPercent: net,
		RecommendedSize:  recommendedSize,
		Confidence:       confidence,
		DetectedAt:       time.Now(),
	}, true
}

// ScanAll evaluates every path in paths, returning every opportunity found.
func (d *TriangularDetector) ScanAll(paths []TriangularPath) []models.Opportunity {
	var out []models.Opportunity
	for _, p := range paths {
		if opp, ok := d.Detect(p); ok {
			out = append(out, opp)
		}
	}
	return out
}

func maxU64(vs ...uint64) uint64 {
	m := vs[0]
	for _, v := range vs[1:] {
		if v > m {
			m = v
		}
	}
	return m
}

func minU64(vs ...uint64) uint64 {
	m := vs[0]
	for _, v := range vs[1:] {
		if v < m {
			m = v
		}
	}
	return m
}
