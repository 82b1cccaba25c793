package calculator

import (
	"errors"
	"math"
	"testing"

	"github.com/solroute-labs/pricemonitor/internal/errs"
	"github.com/solroute-labs/pricemonitor/internal/models"
	"lukechampine.com/uint128"
)

// TestAmmPrice_Monotonic checks property 1: holding the input reserve
// fixed, price rises strictly with the output reserve.
func TestAmmPrice_Monotonic(t *testing.T) {
	low := ammPrice(1_000_000, 500_000, 6, 6)
	high := ammPrice(1_000_000, 600_000, 6, 6)
	if !(high > low) {
		t.Fatalf("expected increasing output reserve to raise price: low=%v high=%v", low, high)
	}
}

func TestAmmPrice_ZeroReserveA(t *testing.T) {
	if p := ammPrice(0, 500, 6, 6); p != 0 {
		t.Fatalf("price = %v, want 0 for zero input reserve", p)
	}
}

// TestClmmPrice_Monotonic checks that a larger sqrt-price strictly
// increases the derived price, the CLMM analogue of property 1.
func TestClmmPrice_Monotonic(t *testing.T) {
	low := clmmPrice(uint128.From64(5).Mul(uint128.From64(1).Lsh(64)), 6, 6)
	high := clmmPrice(uint128.From64(6).Mul(uint128.From64(1).Lsh(64)), 6, 6)
	if !(high > low) {
		t.Fatalf("expected increasing sqrt price to raise price: low=%v high=%v", low, high)
	}
}

// TestClmmPrice_Symmetry checks property 2: the price implied by sqrt-price
// sp and by its reciprocal 1/sp (with decimals swapped to undo the
// base/quote flip) multiply back to 1, i.e. the two sides of the pair
// agree on an inverse relationship.
func TestClmmPrice_Symmetry(t *testing.T) {
	sp := 4.0 // exact sqrt, keeps the reciprocal exact in float64
	// sp*2^64 does not fit in a uint64, so shift it into the high half.
	sqrtPriceQ64 := uint128.From64(uint64(sp)).Lsh(64)

	forward := clmmPrice(sqrtPriceQ64, 6, 6)

	invSp := 1.0 / sp
	invQ64 := math.Ldexp(invSp, 64)
	invSqrtPriceQ64 := uint128.From64(uint64(invQ64))
	backward := clmmPrice(invSqrtPriceQ64, 6, 6)

	product := forward * backward
	if diff := product - 1.0; diff > 1e-6 || diff < -1e-6 {
		t.Fatalf("forward*backward = %v, want ~1.0 (forward=%v backward=%v)", product, forward, backward)
	}
}

func TestDlmmPrice_MonotonicInActiveID(t *testing.T) {
	low := dlmmPrice(10, 25, 6, 6)
	high := dlmmPrice(20, 25, 6, 6)
	if !(high > low) {
		t.Fatalf("expected higher active id to raise price: low=%v high=%v", low, high)
	}
}

func TestDlmmPrice_ZeroBinStepIsFlat(t *testing.T) {
	p1 := dlmmPrice(10, 0, 6, 6)
	p2 := dlmmPrice(999, 0, 6, 6)
	if p1 != 1.0 || p2 != 1.0 {
		t.Fatalf("zero bin step should hold price at 1.0 regardless of active id: p1=%v p2=%v", p1, p2)
	}
}

func TestPrice_DecimalsSanityGuard(t *testing.T) {
	state := models.PoolState{
		Kind: models.VenueAmm,
		Amm: models.AmmState{
			CoinVaultBalance: 1,
			PcVaultBalance:   1,
		},
		// Absurd decimal skew pushes the result outside the sanity range.
		DecimalsA: 0,
		DecimalsB: 30,
	}
	_, err := Price(state)
	if !errors.Is(err, errs.ErrNonFinitePrice) {
		t.Fatalf("err = %v, want ErrNonFinitePrice", err)
	}
}

func TestPrice_UnknownVenue(t *testing.T) {
	if _, err := Price(models.PoolState{Kind: "unknown"}); err == nil {
		t.Fatal("expected unknown venue kind to error")
	}
}
