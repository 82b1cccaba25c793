// Package bootstrap fetches an initial snapshot of every configured pool
// account over plain RPC before the WebSocket subscription manager takes
// over, so the cache is warm from the first accountNotification onward.
// A golang.org/x/time/rate limiter gates every outbound call.
package bootstrap

import (
	"context"
	"fmt"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
	"golang.org/x/time/rate"

	"github.com/solroute-labs/pricemonitor/internal/logging"
	"github.com/solroute-labs/pricemonitor/internal/stream"
)

// AccountSnapshot is the raw result of one fetched pool account, in the
// same shape as a streamed Update so both paths can feed the same decode
// step.
type AccountSnapshot struct {
	Identity string
	Slot     uint64
	Data     []byte
}

// Fetcher pulls a one-shot snapshot of pool accounts from an RPC endpoint,
// rate-limited to avoid tripping the provider's request cap.
type Fetcher struct {
	rpcClient *rpc.Client
	limiter   *rate.Limiter
	log       *logging.Logger
}

// New builds a Fetcher against httpURL, allowing requestsPerSecond calls.
func New(httpURL string, requestsPerSecond int, log *logging.Logger) *Fetcher {
	return &Fetcher{
		rpcClient: rpc.New(httpURL),
		limiter:   rate.NewLimiter(rate.Limit(requestsPerSecond), requestsPerSecond),
		log:       log,
	}
}

// FetchAll fetches every pool in pools via getMultipleAccounts, batching
// requests at most maxBatch pubkeys at a time (the RPC provider's
// practical cap), and returns one AccountSnapshot per pool that was found
// and non-empty. Pools the RPC reports as missing are skipped, not
// erroring the whole batch, since a pool appearing later via WebSocket
// notification is still viable.
func (f *Fetcher) FetchAll(ctx context.Context, pools []stream.PoolSubscription, maxBatch int) ([]AccountSnapshot, error) {
	if maxBatch <= 0 {
		maxBatch = 100
	}

	var out []AccountSnapshot
	for start := 0; start < len(pools); start += maxBatch {
		end := start + maxBatch
		if end > len(pools) {
			end = len(pools)
		}
		batch := pools[start:end]

		if err := f.limiter.Wait(ctx); err != nil {
			return out, err
		}

		pubkeys := make([]solana.PublicKey, len(batch))
		for i, p := range batch {
			pk, err := solana.PublicKeyFromBase58(p.PoolID)
			if err != nil {
				return out, fmt.Errorf("bootstrap: invalid pool id %q: %w", p.PoolID, err)
			}
			pubkeys[i] = pk
		}

		res, err := f.rpcClient.GetMultipleAccountsWithOpts(ctx, pubkeys, &rpc.GetMultipleAccountsOpts{
			Commitment: rpc.CommitmentProcessed,
		})
		if err != nil {
			return out, fmt.Errorf("bootstrap: getMultipleAccounts: %w", err)
		}

		slot := uint64(0)
		if res.Context.Slot != 0 {
			slot = uint64(res.Context.Slot)
		}

		for i, acc := range res.Value {
			if acc == nil {
				f.log.Warnf("bootstrap: pool %s not found on-chain, skipping initial snapshot", batch[i].Identity)
				continue
			}
			data := acc.Data.GetBinary()
			if len(data) == 0 {
				continue
			}
			out = append(out, AccountSnapshot{Identity: batch[i].Identity, Slot: slot, Data: data})
		}
	}

	f.log.Infof("bootstrap: fetched %d/%d pool snapshots", len(out), len(pools))
	return out, nil
}
