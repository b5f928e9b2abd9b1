package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"tick-feature-lab/internal/config"
	"tick-feature-lab/internal/ingestion"
	"tick-feature-lab/internal/pipeline"
	"tick-feature-lab/internal/rolling"
	"tick-feature-lab/internal/storage"
	chstore "tick-feature-lab/internal/storage/clickhouse"
	"tick-feature-lab/internal/storage/memory"
	pgstore "tick-feature-lab/internal/storage/postgres"
	"tick-feature-lab/internal/writer"
)

func main() {
	configPath := flag.String("config", "", "Path to YAML config file")
	backend := flag.String("backend", "", "Storage backend: memory, clickhouse, or postgres (overrides config)")
	clickhouseDSN := flag.String("clickhouse-dsn", "", "ClickHouse connection string (overrides config)")
	postgresDSN := flag.String("postgres-dsn", "", "PostgreSQL connection string (overrides config)")
	symbols := flag.String("symbols", "", "Comma-separated symbols to backfill (default: all stored symbols)")
	fromTime := flag.String("from-time", "", "Start time (RFC3339)")
	toTime := flag.String("to-time", "", "End time (RFC3339, default: now)")

	flag.Parse()

	cfg, err := loadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}
	if *backend != "" {
		cfg.Storage.Backend = *backend
	}
	if *clickhouseDSN != "" {
		cfg.Storage.ClickHouseDSN = *clickhouseDSN
	}
	if *postgresDSN != "" {
		cfg.Storage.PostgresDSN = *postgresDSN
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}

	logger := newLogger(cfg)

	start, end, err := parseTimeRange(*fromTime, *toTime)
	if err != nil {
		logger.Fatal().Err(err).Msg("invalid time range")
	}

	var symbolList []string
	if *symbols != "" {
		for _, s := range strings.Split(*symbols, ",") {
			if s = strings.TrimSpace(s); s != "" {
				symbolList = append(symbolList, s)
			}
		}
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logger.Info().Str("signal", sig.String()).Msg("cancelling backfill")
		cancel()
	}()

	if err := run(ctx, cfg, logger, symbolList, start, end); err != nil && err != context.Canceled {
		logger.Fatal().Err(err).Msg("backfill failed")
	}

	logger.Info().Msg("backfill complete")
}

func loadConfig(path string) (*config.Config, error) {
	if path == "" {
		return config.Default()
	}
	return config.LoadWithEnv(path)
}

func newLogger(cfg *config.Config) zerolog.Logger {
	level, err := zerolog.ParseLevel(cfg.Logging.Level)
	if err != nil {
		level = zerolog.InfoLevel
	}
	var logger zerolog.Logger
	if cfg.Logging.Pretty {
		logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr})
	} else {
		logger = zerolog.New(os.Stderr)
	}
	return logger.Level(level).With().Timestamp().Logger()
}

// parseTimeRange converts the flag values to inclusive nanosecond
// bounds. Default range is the last 24 hours.
func parseTimeRange(fromStr, toStr string) (int64, int64, error) {
	to := time.Now()
	if toStr != "" {
		t, err := time.Parse(time.RFC3339, toStr)
		if err != nil {
			return 0, 0, fmt.Errorf("parse to-time: %w", err)
		}
		to = t
	}

	from := to.Add(-24 * time.Hour)
	if fromStr != "" {
		t, err := time.Parse(time.RFC3339, fromStr)
		if err != nil {
			return 0, 0, fmt.Errorf("parse from-time: %w", err)
		}
		from = t
	}

	if !from.Before(to) {
		return 0, 0, fmt.Errorf("from-time %s is not before to-time %s", from.Format(time.RFC3339), to.Format(time.RFC3339))
	}
	return from.UnixNano(), to.UnixNano(), nil
}

// run recomputes features for stored ticks in [start, end].
func run(ctx context.Context, cfg *config.Config, logger zerolog.Logger, symbols []string, start, end int64) error {
	tickStore, featureStore, cleanup, err := buildStores(ctx, cfg)
	if err != nil {
		return err
	}
	defer cleanup()

	if err := featureStore.EnsureTables(ctx); err != nil {
		return fmt.Errorf("ensure tables: %w", err)
	}

	if len(symbols) == 0 {
		symbols, err = tickStore.Symbols(ctx)
		if err != nil {
			return fmt.Errorf("list symbols: %w", err)
		}
	}
	if len(symbols) == 0 {
		return fmt.Errorf("no symbols to backfill")
	}

	engineCfg := rolling.DefaultConfig()
	engineCfg.LargeTradePercentile = cfg.Engine.LargeTradePercentile
	engineCfg.LargeTradeWarmupTicks = cfg.Engine.LargeTradeWarmupTicks
	engine := rolling.New(engineCfg)

	// In batch mode the large-trade threshold comes from the whole
	// range rather than a streaming warmup: fix each symbol's threshold
	// at the configured percentile of its trade sizes before replay.
	for _, sym := range symbols {
		ticks, err := tickStore.GetByTimeRange(ctx, sym, start, end)
		if err != nil {
			return fmt.Errorf("load ticks for %s: %w", sym, err)
		}
		if len(ticks) == 0 {
			logger.Warn().Str("symbol", sym).Msg("no ticks in range")
			continue
		}
		sizes := make([]float64, len(ticks))
		for i, t := range ticks {
			sizes[i] = t.Size
		}
		threshold := rolling.Percentile(sizes, cfg.Engine.LargeTradePercentile)
		engine.SetLargeTradeThreshold(sym, threshold)
		logger.Info().
			Str("symbol", sym).
			Int("ticks", len(ticks)).
			Float64("large_trade_threshold", threshold).
			Msg("symbol prepared")
	}

	featureWriter := writer.NewFeatureWriter(featureStore, writer.Options{
		BatchSize:      cfg.Writer.BatchSize,
		MaxRetries:     cfg.Writer.MaxRetries,
		RetryBaseDelay: cfg.Writer.RetryBaseDelay,
		RetryMaxDelay:  cfg.Writer.RetryMaxDelay,
	}, logger)

	runner := pipeline.NewRunner(pipeline.Options{
		Engine:        engine,
		Writer:        featureWriter,
		QueueCapacity: cfg.Pipeline.QueueCapacity,
		Logger:        logger,
	})

	logger.Info().
		Strs("symbols", symbols).
		Int64("start_ns", start).
		Int64("end_ns", end).
		Msg("starting backfill")
	return runner.Run(ctx, ingestion.NewStoreSource(tickStore, symbols, start, end))
}

// buildStores creates the tick and feature stores for the configured
// backend, sharing one connection.
func buildStores(ctx context.Context, cfg *config.Config) (storage.TickStore, storage.FeatureStore, func(), error) {
	switch cfg.Storage.Backend {
	case "memory":
		return memory.NewTickStore(), memory.NewFeatureStore(), func() {}, nil
	case "clickhouse":
		conn, err := chstore.NewConn(ctx, cfg.Storage.ClickHouseDSN)
		if err != nil {
			return nil, nil, nil, fmt.Errorf("connect to clickhouse: %w", err)
		}
		return chstore.NewTickStore(conn), chstore.NewFeatureStore(conn), func() { conn.Close() }, nil
	case "postgres":
		pool, err := pgstore.NewPool(ctx, cfg.Storage.PostgresDSN)
		if err != nil {
			return nil, nil, nil, fmt.Errorf("connect to postgres: %w", err)
		}
		return pgstore.NewTickStore(pool), pgstore.NewFeatureStore(pool), func() { pool.Close() }, nil
	default:
		return nil, nil, nil, fmt.Errorf("unknown storage backend: %s", cfg.Storage.Backend)
	}
}
