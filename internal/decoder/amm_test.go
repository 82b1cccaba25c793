package decoder

import (
	"encoding/binary"
	"errors"
	"testing"

	"github.com/solroute-labs/pricemonitor/internal/calculator"
	"github.com/solroute-labs/pricemonitor/internal/errs"
	"github.com/solroute-labs/pricemonitor/internal/models"
)

// buildAmmAccount lays out a valid 272-byte AMM account with the given
// decimals and vault balances at the offsets AmmDecoder.Decode expects.
func buildAmmAccount(decA, decB, coinVault, pcVault uint64) []byte {
	buf := make([]byte, ammMinLen)
	put := func(off int, v uint64) { binary.LittleEndian.PutUint64(buf[off:off+8], v) }

	put(16, decA)
	put(24, decB)
	put(256, coinVault)
	put(264, pcVault)
	return buf
}

func TestAmmDecoder_RoundTrip(t *testing.T) {
	buf := buildAmmAccount(9, 6, 10_000_000_000, 1_000_000_000)

	d := AmmDecoder{}
	state, err := d.Decode(buf)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if state.Kind != models.VenueAmm {
		t.Fatalf("kind = %v, want amm", state.Kind)
	}
	if state.Amm.CoinVaultBalance != 10_000_000_000 || state.Amm.PcVaultBalance != 1_000_000_000 {
		t.Fatalf("unexpected vault balances: %+v", state.Amm)
	}
	if state.DecimalsA != 9 || state.DecimalsB != 6 {
		t.Fatalf("unexpected decimals: %d/%d", state.DecimalsA, state.DecimalsB)
	}
	if state.FeeRate != 0.0025 {
		t.Fatalf("default fee rate = %v, want 0.0025", state.FeeRate)
	}
}

// TestAmmDecoder_ScenarioC matches the AMM price=100.0 scenario: a 10/9
// decimal coin vault and a 1000/6 decimal pc vault produce exactly 100.
func TestAmmDecoder_ScenarioC(t *testing.T) {
	buf := buildAmmAccount(9, 6, 10_000_000_000, 1_000_000_000)

	state, err := AmmDecoder{}.Decode(buf)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	price, err := calculator.Price(state)
	if err != nil {
		t.Fatalf("price: %v", err)
	}
	const want = 100.0
	if diff := price - want; diff > 1e-3 || diff < -1e-3 {
		t.Fatalf("price = %v, want %v +/- 1e-3", price, want)
	}
}

func TestAmmDecoder_ShortBuffer(t *testing.T) {
	_, err := AmmDecoder{}.Decode(make([]byte, ammMinLen-1))
	if !errors.Is(err, errs.ErrShort) {
		t.Fatalf("err = %v, want ErrShort", err)
	}
}

func TestAmmDecoder_ZeroReserveNotQuotable(t *testing.T) {
	buf := buildAmmAccount(9, 6, 0, 1_000_000_000)
	state, err := AmmDecoder{}.Decode(buf)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if _, err := calculator.Price(state); err == nil {
		t.Fatal("expected zero reserve to be non-quotable")
	}
}

func TestAmmDecoder_ExplicitDecimalsOverrideAccount(t *testing.T) {
	buf := buildAmmAccount(9, 6, 10_000_000_000, 1_000_000_000)
	d := AmmDecoder{DecimalsA: 8, DecimalsB: 5, FeeRate: 0.003}
	state, err := d.Decode(buf)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if state.DecimalsA != 8 || state.DecimalsB != 5 {
		t.Fatalf("override decimals not applied: %d/%d", state.DecimalsA, state.DecimalsB)
	}
	if state.FeeRate != 0.003 {
		t.Fatalf("fee rate override not applied: %v", state.FeeRate)
	}
}
