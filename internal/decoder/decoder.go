// Package decoder parses raw Solana account bytes for each supported venue
// family into a normalized models.PoolState. Each decoder is pure: bytes in,
// PoolState or error out, and must never panic on truncated or malformed
// input.
package decoder

import "github.com/solroute-labs/pricemonitor/internal/models"

// PoolDecoder decodes one venue family's raw account data. It is
// configured with the pool's canonical token decimals up front, since
// CLMM/DLMM accounts don't carry decimals themselves.
type PoolDecoder interface {
	Decode(data []byte) (models.PoolState, error)
	Venue() models.Venue
}
