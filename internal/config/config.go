// Package config loads the flat option set the monitor runs from: RPC
// endpoints, monitoring/cache knobs, arbitrage thresholds, the fee model,
// and the pool subscription table. Values load into a plain struct via a
// Load constructor using gopkg.in/yaml.v3 for parsing.
package config

import (
	"fmt"
	"os"

	"github.com/mr-tron/base58"
	"gopkg.in/yaml.v3"
)

// RPC holds the Solana RPC endpoints.
type RPC struct {
	WSURL   string `yaml:"ws_url"`
	HTTPURL string `yaml:"http_url"`
}

// Monitoring holds cache and subscription sizing knobs.
type Monitoring struct {
	MaxPools               int `yaml:"max_pools"`
	CacheTTLSeconds        int `yaml:"cache_ttl_seconds"`
	CleanupIntervalSeconds int `yaml:"cleanup_interval_seconds"`
	StaleThresholdMs       int `yaml:"stale_threshold_ms"`
}

// Arbitrage holds the thresholds the detectors gate on.
type Arbitrage struct {
	MinProfitPercent float64 `yaml:"min_profit_percent"`
	SlotTolerance    uint64  `yaml:"slot_tolerance"`
	ZEntry           float64 `yaml:"z_entry"`
	ZExit            float64 `yaml:"z_exit"`
	ZStopLoss        float64 `yaml:"z_stop_loss"`
}

// Fees holds the cost model: the AMM decoders' default fee plus the
// slippage/gas/tip costs applied by the spatial and triangular detectors.
type Fees struct {
	DefaultDexFee           float64 `yaml:"default_dex_fee"`
	EstimatedSlippagePercent float64 `yaml:"estimated_slippage"`
	GasCostPercent          float64 `yaml:"gas_cost_percent"`
	JitoTipPercent          float64 `yaml:"jito_tip_percent"`
}

// PoolEntry names one pool account and, for CLMM/DLMM venues whose
// on-chain layout carries no decimals, the decimals to inject.
type PoolEntry struct {
	PoolID    string `yaml:"pool_id"`
	DecimalsA uint8  `yaml:"decimals_a"`
	DecimalsB uint8  `yaml:"decimals_b"`
}

// Settings is the fully loaded, validated configuration.
type Settings struct {
	RPC        RPC                             `yaml:"rpc"`
	Monitoring Monitoring                      `yaml:"monitoring"`
	Arbitrage  Arbitrage                       `yaml:"arbitrage"`
	Fees       Fees                            `yaml:"fees"`
	// Pools maps pair -> venue -> pool entry, e.g.
	// pools["SOL-USDC"]["raydium-amm"] = {pool_id: "...", ...}.
	Pools map[string]map[string]PoolEntry `yaml:"pools"`
}

// Default returns conservative knobs safe to run with before any
// pool/endpoint is configured.
func Default() Settings {
	return Settings{
		Monitoring: Monitoring{
			MaxPools:               50,
			CacheTTLSeconds:        60,
			CleanupIntervalSeconds: 10,
			StaleThresholdMs:       2000,
		},
		Arbitrage: Arbitrage{
			MinProfitPercent: 0.5,
			SlotTolerance:    2,
			ZEntry:           2.0,
			ZExit:            0.5,
			ZStopLoss:        4.0,
		},
		Fees: Fees{
			DefaultDexFee:            0.0025,
			EstimatedSlippagePercent: 0.3,
			GasCostPercent:           0.01,
			JitoTipPercent:           0.05,
		},
		Pools: make(map[string]map[string]PoolEntry),
	}
}

// Load reads and validates Settings from a YAML file at path, starting
// from Default() so an incomplete file still yields usable values.
func Load(path string) (Settings, error) {
	settings := Default()

	raw, err := os.ReadFile(path)
	if err != nil {
		return Settings{}, fmt.Errorf("config: reading %s: %w", path, err)
	}
	if err := yaml.Unmarshal(raw, &settings); err != nil {
		return Settings{}, fmt.Errorf("config: parsing %s: %w", path, err)
	}

	if err := settings.validate(); err != nil {
		return Settings{}, err
	}
	return settings, nil
}

func (s Settings) validate() error {
	if s.RPC.WSURL == "" {
		return fmt.Errorf("config: rpc.ws_url must be set")
	}
	if s.RPC.HTTPURL == "" {
		return fmt.Errorf("config: rpc.http_url must be set")
	}
	if s.Monitoring.MaxPools <= 0 {
		return fmt.Errorf("config: monitoring.max_pools must be positive")
	}
	if s.Arbitrage.MinProfitPercent <= 0 {
		return fmt.Errorf("config: arbitrage.min_profit_percent must be positive")
	}
	if len(s.Pools) == 0 {
		return fmt.Errorf("config: pools must name at least one pair")
	}
	if totalPools := s.poolCount(); totalPools > s.Monitoring.MaxPools {
		return fmt.Errorf("config: %d configured pools exceeds monitoring.max_pools=%d", totalPools, s.Monitoring.MaxPools)
	}
	for pair, venues := range s.Pools {
		for venue, entry := range venues {
			if err := validatePoolID(entry.PoolID); err != nil {
				return fmt.Errorf("config: pools.%s.%s: %w", pair, venue, err)
			}
		}
	}
	return nil
}

// validatePoolID checks that id decodes as base58 to a 32-byte Solana
// account pubkey, so a typo in the config file fails fast at load time
// rather than at subscribe or fetch time.
func validatePoolID(id string) error {
	decoded, err := base58.Decode(id)
	if err != nil {
		return fmt.Errorf("pool_id %q is not valid base58: %w", id, err)
	}
	if len(decoded) != 32 {
		return fmt.Errorf("pool_id %q decodes to %d bytes, want 32", id, len(decoded))
	}
	return nil
}

func (s Settings) poolCount() int {
	n := 0
	for _, venues := range s.Pools {
		n += len(venues)
	}
	return n
}
