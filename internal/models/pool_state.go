package models

import (
	"lukechampine.com/uint128"
)

// Venue identifies the shape of the on-chain account a PoolState was
// decoded from.
type Venue string

const (
	VenueAmm  Venue = "amm"
	VenueClmm Venue = "clmm"
	VenueDlmm Venue = "dlmm"
)

// AmmState is the constant-product variant: a pair of raw vault balances.
type AmmState struct {
	CoinVaultBalance uint64
	PcVaultBalance   uint64
}

// ClmmState is the concentrated-liquidity variant: a Q64.64 fixed-point
// square-root price and the active liquidity at that price.
type ClmmState struct {
	SqrtPriceQ64 uint128.Uint128
	Liquidity    uint128.Uint128
}

// DlmmState is the discretized-liquidity (bin-indexed) variant.
type DlmmState struct {
	ActiveID   int32
	BinStep    uint16
	BaseFactor uint16
}

// PoolState is decoder output: a tagged variant over the three venue
// families, plus the fields common to all of them. Only one of Amm / Clmm /
// Dlmm is populated, selected by Kind.
type PoolState struct {
	Kind Venue

	Amm  AmmState
	Clmm ClmmState
	Dlmm DlmmState

	DecimalsA     uint8
	DecimalsB     uint8
	FeeRate       float64
	LiquidityHint uint64
}
