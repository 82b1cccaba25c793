// Package models holds the canonical value types shared across the
// ingest-decode-cache-detect pipeline.
package models

import (
	"math/big"
	"time"

	sdkmath "cosmossdk.io/math"
)

// PriceData is a single observation of one token pair on one venue.
//
// Price is already decimal-adjusted: output-token units per one input-token
// unit. A Price of 0 means "not quotable" and must never be used by a
// detector.
type PriceData struct {
	Price      float64
	Liquidity  uint64
	Slot       uint64
	ObservedAt time.Time
	ReserveA   uint64
	ReserveB   uint64
	FeeRate    float64
}

// IsStale reports whether the observation is older than threshold.
func (p PriceData) IsStale(threshold time.Duration) bool {
	return time.Since(p.ObservedAt) > threshold
}

// PriceImpact estimates the percentage impact a trade of tradeSize would
// have on the smaller side of the pool, using the raw vault reserves. It
// returns 100 (maximum impact) when reserves are unknown or empty.
//
// tradeSize*100 can overflow a uint64 for trade sizes near the top of its
// range, so the multiply happens in arbitrary-precision Int before the
// final lossy conversion to float64.
func (p PriceData) PriceImpact(tradeSize uint64) float64 {
	smaller := p.ReserveA
	if p.ReserveB < smaller {
		smaller = p.ReserveB
	}
	if smaller == 0 {
		return 100.0
	}
	numerator := sdkmath.NewIntFromUint64(tradeSize).MulRaw(100)
	denominator := sdkmath.NewIntFromUint64(smaller)
	ratio := new(big.Float).Quo(new(big.Float).SetInt(numerator.BigInt()), new(big.Float).SetInt(denominator.BigInt()))
	f, _ := ratio.Float64()
	return f
}

// Quotable reports whether Price is usable by a detector: positive, finite,
// and within the sanity range that guards against misconfigured decimals.
func (p PriceData) Quotable() bool {
	return p.Price > 1e-8 && p.Price < 1e8
}
