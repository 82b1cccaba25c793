package decoder

import (
	"encoding/binary"
	"fmt"

	"github.com/solroute-labs/pricemonitor/internal/errs"
	"github.com/solroute-labs/pricemonitor/internal/models"
	"lukechampine.com/uint128"
)

// clmmMinLen covers the account up through liquidity and sqrt_price; fields
// past that (tick_current_index, protocol fees, mints, vaults, fee-growth
// accumulators, reward timestamp) are part of the on-chain layout but
// aren't needed for price derivation, so the decoder tolerates a buffer
// that ends right after sqrt_price.
const clmmMinLen = 8 + 1 + 2 + 2 + 2 + 2 + 16 + 16

// ClmmDecoder decodes Raydium-style concentrated-liquidity pool accounts.
// The account begins with an 8-byte anchor discriminator that this decoder
// skips rather than validates; program filtering already guarantees the
// account belongs to the expected venue. Decimals aren't present in the
// CLMM account layout, so they're supplied by the caller.
type ClmmDecoder struct {
	DecimalsA, DecimalsB uint8
}

func (d ClmmDecoder) Venue() models.Venue { return models.VenueClmm }

func (d ClmmDecoder) Decode(data []byte) (models.PoolState, error) {
	if len(data) < clmmMinLen {
		return models.PoolState{}, fmt.Errorf("clmm: %w: need %d bytes, got %d", errs.ErrShort, clmmMinLen, len(data))
	}

	off := 8 // discriminator
	off++    // bump

	off += 2 // tick_spacing
	off += 2 // tick_spacing_seed

	feeRateBps := binary.LittleEndian.Uint16(data[off : off+2])
	off += 2

	off += 2 // protocol_fee_rate

	liquidity := readU128LE(data[off : off+16])
	off += 16

	sqrtPriceX64 := readU128LE(data[off : off+16])

	return models.PoolState{
		Kind: models.VenueClmm,
		Clmm: models.ClmmState{
			SqrtPriceQ64: sqrtPriceX64,
			Liquidity:    liquidity,
		},
		DecimalsA:     d.DecimalsA,
		DecimalsB:     d.DecimalsB,
		FeeRate:       float64(feeRateBps) / 10000.0,
		LiquidityHint: liquidity.Lo,
	}, nil
}

// readU128LE reads a 16-byte little-endian fixed-point field, as Borsh
// encodes u128 on Solana, into a uint128.Uint128.
func readU128LE(b []byte) uint128.Uint128 {
	lo := binary.LittleEndian.Uint64(b[0:8])
	hi := binary.LittleEndian.Uint64(b[8:16])
	return uint128.New(lo, hi)
}
