package decoder

import (
	"encoding/binary"
	"fmt"

	"github.com/solroute-labs/pricemonitor/internal/errs"
	"github.com/solroute-labs/pricemonitor/internal/models"
)

// ammMinLen is the minimum byte length of a constant-product pool account:
// a fixed scalar prefix, 8 fee-padding u64s, two vault pubkeys, then the
// two vault balances the price calculator needs.
const ammMinLen = 272

// AmmDecoder decodes Raydium-style constant-product AMM pool accounts.
// There is no discriminator prefix; the layout starts at offset 0.
type AmmDecoder struct {
	DecimalsA, DecimalsB uint8
	FeeRate              float64 // defaults to 0.0025 (25 bps) when zero
}

func (d AmmDecoder) Venue() models.Venue { return models.VenueAmm }

// Decode reads the AMM account layout: a scalar prefix (status, nonce,
// decimals, sizing constants), 8×u64 fee padding,
// the base/quote vault pubkeys, and finally the two vault balances.
func (d AmmDecoder) Decode(data []byte) (models.PoolState, error) {
	if len(data) < ammMinLen {
		return models.PoolState{}, fmt.Errorf("amm: %w: need %d bytes, got %d", errs.ErrShort, ammMinLen, len(data))
	}

	off := 0
	readU64 := func() uint64 {
		v := binary.LittleEndian.Uint64(data[off : off+8])
		off += 8
		return v
	}

	// Scalar prefix: status, nonce, decimals (as u64 on-chain), sizing
	// constants. Values beyond decimals aren't needed by this monitor but
	// are consumed to advance the cursor to the correct offset.
	_ = readU64() // status
	_ = readU64() // nonce
	decA := readU64()
	decB := readU64()
	_ = readU64() // max_order
	_ = readU64() // depth
	_ = readU64() // state
	_ = readU64() // reset_flag
	_ = readU64() // min_size
	_ = readU64() // vol_max_cut_ratio
	_ = readU64() // amount_wave_ratio
	_ = readU64() // base_lot_size
	_ = readU64() // quote_lot_size
	_ = readU64() // min_price_multiplier
	_ = readU64() // max_price_multiplier
	_ = readU64() // system_decimal_value

	// 8x u64 fee-related padding.
	for i := 0; i < 8; i++ {
		_ = readU64()
	}

	off += 32 // base_vault pubkey
	off += 32 // quote_vault pubkey

	coinVaultBalance := readU64()
	pcVaultBalance := readU64()

	feeRate := d.FeeRate
	if feeRate == 0 {
		feeRate = 0.0025
	}

	decimalsA := d.DecimalsA
	decimalsB := d.DecimalsB
	if decA <= 255 && decimalsA == 0 {
		decimalsA = uint8(decA)
	}
	if decB <= 255 && decimalsB == 0 {
		decimalsB = uint8(decB)
	}

	return models.PoolState{
		Kind: models.VenueAmm,
		Amm: models.AmmState{
			CoinVaultBalance: coinVaultBalance,
			PcVaultBalance:   pcVaultBalance,
		},
		DecimalsA:     decimalsA,
		DecimalsB:     decimalsB,
		FeeRate:       feeRate,
		LiquidityHint: min64(coinVaultBalance, pcVaultBalance),
	}, nil
}

func min64(a, b uint64) uint64 {
	if a < b {
		return a
	}
	return b
}
