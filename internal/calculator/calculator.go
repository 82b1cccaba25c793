// Package calculator derives a canonical "output token per input token"
// price from a decoded PoolState, one formula per venue family.
package calculator

import (
	"fmt"
	"math"
	"math/big"

	"github.com/solroute-labs/pricemonitor/internal/errs"
	"github.com/solroute-labs/pricemonitor/internal/models"
	"lukechampine.com/uint128"
)

// two64 is 2^64, used to recover the integer part of a Q64.64 fixed-point
// value as a float64.
var two64 = math.Ldexp(1, 64)

// Price computes the canonical price for a decoded PoolState. It returns
// a wrapped errs.ErrNonFinitePrice whenever the result is non-quotable: a
// non-finite float, a non-positive AMM input reserve, or a value outside
// the sanity range required when decimals are injected via configuration
// rather than derived from the account.
func Price(state models.PoolState) (float64, error) {
	var raw float64
	switch state.Kind {
	case models.VenueAmm:
		raw = ammPrice(state.Amm.CoinVaultBalance, state.Amm.PcVaultBalance, state.DecimalsA, state.DecimalsB)
	case models.VenueClmm:
		raw = clmmPrice(state.Clmm.SqrtPriceQ64, state.DecimalsA, state.DecimalsB)
	case models.VenueDlmm:
		raw = dlmmPrice(state.Dlmm.ActiveID, state.Dlmm.BinStep, state.DecimalsA, state.DecimalsB)
	default:
		return 0, fmt.Errorf("calculator: unknown venue kind %q", state.Kind)
	}

	if math.IsNaN(raw) || math.IsInf(raw, 0) {
		return 0, fmt.Errorf("calculator: %w: got %v", errs.ErrNonFinitePrice, raw)
	}
	pd := models.PriceData{Price: raw}
	if !pd.Quotable() {
		return 0, fmt.Errorf("calculator: %w: %v outside quotable range", errs.ErrNonFinitePrice, raw)
	}
	return raw, nil
}

// ammPrice computes (reserveB/10^decB) / (reserveA/10^decA), 0 when
// reserveA is 0.
func ammPrice(reserveA, reserveB uint64, decimalsA, decimalsB uint8) float64 {
	if reserveA == 0 {
		return 0
	}
	adjA := float64(reserveA) / math.Pow(10, float64(decimalsA))
	adjB := float64(reserveB) / math.Pow(10, float64(decimalsB))
	return adjB / adjA
}

// clmmPrice computes sp = sqrtPriceQ64/2^64, p_raw = sp^2, scaled by
// 10^(decA-decB).
func clmmPrice(sqrtPriceQ64 uint128.Uint128, decimalsA, decimalsB uint8) float64 {
	sp := new(big.Float).SetInt(sqrtPriceQ64.Big())
	sp.Quo(sp, big.NewFloat(two64))
	spFloat, _ := sp.Float64()
	p := spFloat * spFloat
	return p * math.Pow(10, float64(int(decimalsA)-int(decimalsB)))
}

// dlmmPrice computes p_raw = (1 + binStep/10000)^activeID, scaled by
// 10^(decA-decB). activeID may be negative; math.Pow handles a
// negative exponent via its real-power path.
func dlmmPrice(activeID int32, binStep uint16, decimalsA, decimalsB uint8) float64 {
	base := 1.0 + float64(binStep)/10000.0
	p := math.Pow(base, float64(activeID))
	return p * math.Pow(10, float64(int(decimalsA)-int(decimalsB)))
}
