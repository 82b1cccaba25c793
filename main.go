package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/solroute-labs/pricemonitor/internal/bootstrap"
	"github.com/solroute-labs/pricemonitor/internal/broadcast"
	"github.com/solroute-labs/pricemonitor/internal/cache"
	"github.com/solroute-labs/pricemonitor/internal/config"
	"github.com/solroute-labs/pricemonitor/internal/decoder"
	"github.com/solroute-labs/pricemonitor/internal/detector"
	"github.com/solroute-labs/pricemonitor/internal/health"
	"github.com/solroute-labs/pricemonitor/internal/logging"
	"github.com/solroute-labs/pricemonitor/internal/models"
	"github.com/solroute-labs/pricemonitor/internal/pipeline"
	"github.com/solroute-labs/pricemonitor/internal/stream"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to the monitor's YAML config file")
	flag.Parse()

	log := logging.New("pricemonitor")

	settings, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("loading config: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go waitForShutdownSignal(cancel, log)

	priceCache := cache.New(
		time.Duration(settings.Monitoring.CacheTTLSeconds)*time.Second,
		time.Duration(settings.Monitoring.StaleThresholdMs)*time.Millisecond,
	)

	routes, pools := buildRoutes(settings)
	log.Infof("configured %d pool subscriptions across %d pairs", len(pools), len(settings.Pools))

	topic := broadcast.NewTopic()
	reporter := health.NewReporter(priceCache.Len)

	fees := detector.FeeModel{
		EstimatedSlippagePercent: settings.Fees.EstimatedSlippagePercent,
		GasCostPercent:           settings.Fees.GasCostPercent,
		JitoTipPercent:           settings.Fees.JitoTipPercent,
	}
	spatialDet := detector.NewSpatialDetector(priceCache, fees, settings.Arbitrage.MinProfitPercent, settings.Arbitrage.SlotTolerance)

	triPaths := buildTriangularPaths(settings)
	triDet := detector.NewTriangularDetector(priceCache, fees, settings.Arbitrage.MinProfitPercent, settings.Arbitrage.SlotTolerance)

	statDet := detector.NewStatisticalDetector(priceCache, settings.Arbitrage.MinProfitPercent,
		settings.Arbitrage.ZEntry, settings.Arbitrage.ZExit, settings.Arbitrage.ZStopLoss)
	statPairs := buildStatPairs(settings)

	pl := pipeline.New(routes, priceCache, topic, reporter, log, spatialDet, triDet, triPaths, statDet, statPairs)

	// Warm the cache from RPC before the first WebSocket notification lands.
	fetcher := bootstrap.New(settings.RPC.HTTPURL, 20, log)
	snapshots, err := fetcher.FetchAll(ctx, pools, 100)
	if err != nil {
		log.Warnf("bootstrap snapshot fetch failed, continuing with an empty cache: %v", err)
	}
	for _, snap := range snapshots {
		pl.IngestSnapshot(snap)
	}

	updates := make(chan stream.Update, 1000)
	mgr := stream.New(settings.RPC.WSURL, pools, updates, log)
	mgr.OnConnectionState = reporter.SetConnected

	go func() {
		if err := mgr.Run(ctx); err != nil && ctx.Err() == nil {
			log.Errorf("subscription manager exited: %v", err)
		}
	}()

	cleanupDone := make(chan struct{})
	go func() {
		priceCache.RunCleanup(time.Duration(settings.Monitoring.CleanupIntervalSeconds)*time.Second, cleanupDone)
	}()

	go pl.RunStatisticalTicker(ctx, 5*time.Second)

	log.Infof("pricemonitor running")
	pl.Run(ctx, updates)

	close(cleanupDone)
	log.Infof("pricemonitor shut down")
}

func waitForShutdownSignal(cancel context.CancelFunc, log *logging.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigCh
	log.Infof("received %s, shutting down", sig)
	cancel()
}

// buildRoutes turns the configured pool table into the pipeline's routing
// table (identity -> decode target) and the subscription manager's flat
// pool list.
func buildRoutes(settings config.Settings) (map[string]pipeline.PoolRoute, []stream.PoolSubscription) {
	routes := make(map[string]pipeline.PoolRoute)
	var pools []stream.PoolSubscription

	for pair, venues := range settings.Pools {
		for venue, entry := range venues {
			identity := pair + ":" + venue

			dec := decoderFor(venue, entry, settings.Fees.DefaultDexFee)
			routes[identity] = pipeline.PoolRoute{Pair: pair, Venue: venue, Decoder: dec}
			pools = append(pools, stream.PoolSubscription{PoolID: entry.PoolID, Identity: identity})
		}
	}
	return routes, pools
}

// decoderFor picks the decoder implementation by venue name. Venue naming
// follows the pool table's key, e.g. "raydium-amm", "raydium-clmm",
// "meteora-dlmm".
func decoderFor(venue string, entry config.PoolEntry, defaultFee float64) decoder.PoolDecoder {
	switch venueFamily(venue) {
	case models.VenueClmm:
		return decoder.ClmmDecoder{DecimalsA: entry.DecimalsA, DecimalsB: entry.DecimalsB}
	case models.VenueDlmm:
		return decoder.DlmmDecoder{DecimalsA: entry.DecimalsA, DecimalsB: entry.DecimalsB}
	default:
		return decoder.AmmDecoder{DecimalsA: entry.DecimalsA, DecimalsB: entry.DecimalsB, FeeRate: defaultFee}
	}
}

func venueFamily(venue string) models.Venue {
	lower := strings.ToLower(venue)
	switch {
	case strings.Contains(lower, "clmm"):
		return models.VenueClmm
	case strings.Contains(lower, "dlmm"):
		return models.VenueDlmm
	default:
		return models.VenueAmm
	}
}

// buildTriangularPaths derives triangular cycles from every venue present
// in the pool table, using the common SOL/stablecoin-anchored set.
func buildTriangularPaths(settings config.Settings) []detector.TriangularPath {
	venues := map[string]struct{}{}
	for _, byVenue := range settings.Pools {
		for venue := range byVenue {
			venues[venue] = struct{}{}
		}
	}

	var paths []detector.TriangularPath
	for venue := range venues {
		paths = append(paths, detector.CommonTriangularPaths(venue)...)
	}
	return paths
}

// buildStatPairs pairs every two pools that share a venue, for the
// statistical detector's mean-reversion scan.
func buildStatPairs(settings config.Settings) []pipeline.StatPairConfig {
	byVenue := make(map[string][]string)
	for pair, venues := range settings.Pools {
		for venue := range venues {
			byVenue[venue] = append(byVenue[venue], pair)
		}
	}

	var out []pipeline.StatPairConfig
	for venue, pairs := range byVenue {
		for i := 0; i < len(pairs); i++ {
			for j := i + 1; j < len(pairs); j++ {
				out = append(out, pipeline.StatPairConfig{PairA: pairs[i], PairB: pairs[j], Venue: venue})
			}
		}
	}
	return out
}
