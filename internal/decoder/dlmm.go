package decoder

import (
	"encoding/binary"
	"fmt"

	"github.com/solroute-labs/pricemonitor/internal/errs"
	"github.com/solroute-labs/pricemonitor/internal/models"
)

// dlmmMinLen covers the 8-byte discriminator, base factor (u16), bin step
// (u16), active bin id (i32), and four 32-byte token mint/vault pubkeys.
const dlmmMinLen = 8 + 2 + 2 + 4 + 32*4

// DlmmDecoder decodes Meteora-style bin-indexed liquidity pool accounts.
// Like CLMM, the account layout carries no mint decimals, so callers
// must supply them.
type DlmmDecoder struct {
	DecimalsA, DecimalsB uint8
	FeeRateOverride      float64
}

func (d DlmmDecoder) Venue() models.Venue { return models.VenueDlmm }

func (d DlmmDecoder) Decode(data []byte) (models.PoolState, error) {
	if len(data) < dlmmMinLen {
		return models.PoolState{}, fmt.Errorf("dlmm: %w: need %d bytes, got %d", errs.ErrShort, dlmmMinLen, len(data))
	}

	off := 8 // skip discriminator

	// parameters: base_factor u16 first, then filter_period/decay_period
	// etc (not needed here), bin_step lives a fixed two bytes further in.
	baseFactor := binary.LittleEndian.Uint16(data[off : off+2])
	off += 2

	binStep := binary.LittleEndian.Uint16(data[off : off+2])
	off += 2

	activeID := int32(binary.LittleEndian.Uint32(data[off : off+4]))
	off += 4

	// Remaining fixed fields (token mints, reserves, oracle/vault
	// pubkeys) aren't needed for price derivation; decimals are supplied
	// out of band via configuration, matching the CLMM decoder.

	feeRate := d.FeeRateOverride
	if feeRate == 0 {
		feeRate = (float64(binStep) * float64(baseFactor)) / 1e10
	}

	return models.PoolState{
		Kind: models.VenueDlmm,
		Dlmm: models.DlmmState{
			ActiveID:   activeID,
			BinStep:    binStep,
			BaseFactor: baseFactor,
		},
		DecimalsA: d.DecimalsA,
		DecimalsB: d.DecimalsB,
		FeeRate:   feeRate,
	}, nil
}
