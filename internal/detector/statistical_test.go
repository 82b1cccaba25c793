package detector

import (
	"math"
	"testing"
	"time"

	"github.com/solroute-labs/pricemonitor/internal/models"
)

// seedStatDetector feeds 100 near-constant spreads into the detector via price
// observations, so mean/std converge to a known value, then leaves the
// stats primed for a subsequent out-of-band observation.
func seedStatDetector(t *testing.T, d *StatisticalDetector, pairA, pairB, venue string, spread float64) {
	t.Helper()
	// price_a / price_b chosen so ln(price_a) - 1.0*ln(price_b) == spread,
	// with beta fixed at the detector's default of 1.0: price_a = e^spread
	// when price_b = 1.
	priceA := math.Exp(spread)
	priceB := 1.0
	for i := 0; i < 100; i++ {
		d.cache.(*fakeCache).set(pairA, venue, models.PriceData{Price: priceA, Liquidity: 1_000_000, ObservedAt: time.Now()})
		d.cache.(*fakeCache).set(pairB, venue, models.PriceData{Price: priceB, Liquidity: 1_000_000, ObservedAt: time.Now()})
		d.Detect(pairA, pairB, venue)
	}
}

// TestStatisticalDetector_ZScore checks that a spread far from a
// zero-variance history's mean pushes z past the entry threshold and that
// the emitted confidence stays in [0,1]. The opportunity does not carry z,
// so z itself is not compared here.
func TestStatisticalDetector_ZScore(t *testing.T) {
	cache := newFakeCache(time.Minute)
	d := NewStatisticalDetector(cache, 0.0, 2.0, 0.0, 3.0)

	// Build a history at spread=0.05 exactly (zero variance), which floors
	// std at 1e-4 via the division-by-zero guard.
	seedStatDetector(t, d, "A-X", "B-X", "venue", 0.05)

	cache.set("A-X", "venue", models.PriceData{Price: math.Exp(0.08), Liquidity: 1_000_000, ObservedAt: time.Now()})
	cache.set("B-X", "venue", models.PriceData{Price: 1.0, Liquidity: 1_000_000, ObservedAt: time.Now()})

	opp, ok := d.Detect("A-X", "B-X", "venue")
	if !ok {
		t.Fatal("expected an opportunity once z exceeds entry threshold")
	}
	// The new spread joins the window before mean/std are recomputed:
	// 99 samples at 0.05 plus 0.08 give mean=0.0503, std~0.00299, so
	// z~9.95, well past the zFactor=min(|z|/3,1) saturation point.
	if opp.Confidence < 0 || opp.Confidence > 1 {
		t.Fatalf("confidence out of bounds: %v", opp.Confidence)
	}
}

// TestStatisticalDetector_ScenarioG builds a history with mean 0.05 and
// std 0.01, then feeds a fresh spread three of those std devs above the
// mean. Because the new sample joins the window before mean/std are
// recomputed, the detector's z is ~2.87.
func TestStatisticalDetector_ScenarioG(t *testing.T) {
	cache := newFakeCache(time.Minute)
	d := NewStatisticalDetector(cache, 0.0, 2.0, 0.0, 3.0)

	// Alternate spread by +/- one std around 0.05 so the computed std_dev
	// converges near 0.01 (scenario G's sigma), not the zero-variance floor.
	for i := 0; i < 100; i++ {
		spread := 0.05
		if i%2 == 0 {
			spread += 0.01
		} else {
			spread -= 0.01
		}
		priceA := math.Exp(spread)
		cache.set("A-X", "venue", models.PriceData{Price: priceA, Liquidity: 1_000_000, ObservedAt: time.Now()})
		cache.set("B-X", "venue", models.PriceData{Price: 1.0, Liquidity: 1_000_000, ObservedAt: time.Now()})
		d.Detect("A-X", "B-X", "venue")
	}

	cache.set("A-X", "venue", models.PriceData{Price: math.Exp(0.08), Liquidity: 1_000_000, ObservedAt: time.Now()})
	cache.set("B-X", "venue", models.PriceData{Price: 1.0, Liquidity: 1_000_000, ObservedAt: time.Now()})

	opp, ok := d.Detect("A-X", "B-X", "venue")
	if !ok {
		t.Fatal("expected an opportunity at z~2.87 (past entry threshold 2.0)")
	}
	// z > 0 (spread above mean) => buy B, sell A.
	if opp.BuyPrice != 1.0 {
		t.Fatalf("buy price = %v, want 1.0 (price_b)", opp.BuyPrice)
	}
}

func TestStatisticalDetector_RequiresMinimumHistory(t *testing.T) {
	cache := newFakeCache(time.Minute)
	cache.set("A-X", "venue", models.PriceData{Price: math.Exp(0.08), Liquidity: 1_000_000, ObservedAt: time.Now()})
	cache.set("B-X", "venue", models.PriceData{Price: 1.0, Liquidity: 1_000_000, ObservedAt: time.Now()})

	d := NewStatisticalDetector(cache, 0.0, 2.0, 0.0, 3.0)
	if _, ok := d.Detect("A-X", "B-X", "venue"); ok {
		t.Fatal("expected no opportunity before history reaches the minimum window")
	}
}

func TestStatisticalDetector_SkipsStaleOrMissing(t *testing.T) {
	cache := newFakeCache(10 * time.Millisecond)
	cache.set("A-X", "venue", models.PriceData{Price: 1.0, ObservedAt: time.Now().Add(-time.Hour)})
	cache.set("B-X", "venue", models.PriceData{Price: 1.0, ObservedAt: time.Now()})

	d := NewStatisticalDetector(cache, 0.0, 2.0, 0.0, 3.0)
	if _, ok := d.Detect("A-X", "B-X", "venue"); ok {
		t.Fatal("expected no opportunity: pair A is stale")
	}
	if _, ok := d.Detect("A-X", "missing", "venue"); ok {
		t.Fatal("expected no opportunity: pair B missing entirely")
	}
}
