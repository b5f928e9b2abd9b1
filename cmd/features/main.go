package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"tick-feature-lab/internal/config"
	"tick-feature-lab/internal/ingestion"
	"tick-feature-lab/internal/observability"
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
	wsURL := flag.String("ws-url", "", "Tick feed WebSocket URL (overrides config)")
	backend := flag.String("backend", "", "Storage backend: memory, clickhouse, or postgres (overrides config)")
	clickhouseDSN := flag.String("clickhouse-dsn", "", "ClickHouse connection string (overrides config)")
	postgresDSN := flag.String("postgres-dsn", "", "PostgreSQL connection string (overrides config)")
	metricsAddr := flag.String("metrics-addr", "", "Prometheus metrics HTTP address (overrides config)")

	flag.Parse()

	cfg, err := loadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}
	if *wsURL != "" {
		cfg.Feed.WebSocketURL = *wsURL
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
	if *metricsAddr != "" {
		cfg.Metrics.Addr = *metricsAddr
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}

	logger := newLogger(cfg)

	if cfg.Feed.WebSocketURL == "" {
		logger.Fatal().Msg("feed websocket URL is required (--ws-url or feed.websocket_url)")
	}

	// Start metrics server if enabled
	if cfg.Metrics.Enabled {
		go func() {
			mux := http.NewServeMux()
			mux.Handle(cfg.Metrics.Path, observability.Handler())
			mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusOK)
				w.Write([]byte("ok"))
			})
			logger.Info().Str("addr", cfg.Metrics.Addr).Msg("starting metrics server")
			if err := http.ListenAndServe(cfg.Metrics.Addr, mux); err != nil && err != http.ErrServerClosed {
				logger.Error().Err(err).Msg("metrics server error")
			}
		}()
	}

	ctx, cancel := context.WithCancel(context.Background())

	// Handle shutdown signals with graceful timeout
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	done := make(chan error, 1)

	go func() {
		sig := <-sigCh
		logger.Info().Str("signal", sig.String()).Msg("initiating graceful shutdown")
		cancel()

		select {
		case sig := <-sigCh:
			logger.Warn().Str("signal", sig.String()).Msg("forcing immediate shutdown")
			os.Exit(1)
		case <-time.After(30 * time.Second):
			logger.Error().Msg("graceful shutdown timed out after 30s, forcing exit")
			os.Exit(1)
		case <-done:
			// Normal shutdown completed
		}
	}()

	err = run(ctx, cfg, logger)

	done <- err
	cancel()

	if err != nil && err != context.Canceled {
		logger.Fatal().Err(err).Msg("pipeline failed")
	}

	logger.Info().Msg("shutdown complete")
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

// run streams ticks from the WebSocket feed through the pipeline until
// ctx is cancelled.
func run(ctx context.Context, cfg *config.Config, logger zerolog.Logger) error {
	featureStore, cleanup, err := buildFeatureStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer cleanup()

	if err := featureStore.EnsureTables(ctx); err != nil {
		return fmt.Errorf("ensure tables: %w", err)
	}

	wsConfig := ingestion.DefaultWSConfig()
	wsConfig.ReconnectDelay = cfg.Feed.ReconnectDelay
	wsConfig.PingInterval = cfg.Feed.PingInterval
	wsConfig.Buffer = cfg.Feed.Buffer

	source, err := ingestion.NewWSSource(ctx, cfg.Feed.WebSocketURL, &wsConfig, logger)
	if err != nil {
		return fmt.Errorf("connect tick feed: %w", err)
	}
	defer source.Close()

	engineCfg := rolling.DefaultConfig()
	engineCfg.LargeTradePercentile = cfg.Engine.LargeTradePercentile
	engineCfg.LargeTradeWarmupTicks = cfg.Engine.LargeTradeWarmupTicks

	featureWriter := writer.NewFeatureWriter(featureStore, writer.Options{
		BatchSize:      cfg.Writer.BatchSize,
		MaxRetries:     cfg.Writer.MaxRetries,
		RetryBaseDelay: cfg.Writer.RetryBaseDelay,
		RetryMaxDelay:  cfg.Writer.RetryMaxDelay,
	}, logger)

	runner := pipeline.NewRunner(pipeline.Options{
		Engine:        rolling.New(engineCfg),
		Writer:        featureWriter,
		QueueCapacity: cfg.Pipeline.QueueCapacity,
		Logger:        logger,
	})

	// Close the source once ctx ends so the runner's tick channel
	// drains and closes.
	go func() {
		<-ctx.Done()
		source.Close()
	}()

	logger.Info().
		Str("feed", cfg.Feed.WebSocketURL).
		Str("backend", cfg.Storage.Backend).
		Msg("starting feature pipeline")
	return runner.Run(ctx, source)
}

// buildFeatureStore creates the configured storage backend. The
// returned cleanup function closes the underlying connection.
func buildFeatureStore(ctx context.Context, cfg *config.Config) (storage.FeatureStore, func(), error) {
	switch cfg.Storage.Backend {
	case "memory":
		return memory.NewFeatureStore(), func() {}, nil
	case "clickhouse":
		conn, err := chstore.NewConn(ctx, cfg.Storage.ClickHouseDSN)
		if err != nil {
			return nil, nil, fmt.Errorf("connect to clickhouse: %w", err)
		}
		return chstore.NewFeatureStore(conn), func() { conn.Close() }, nil
	case "postgres":
		pool, err := pgstore.NewPool(ctx, cfg.Storage.PostgresDSN)
		if err != nil {
			return nil, nil, fmt.Errorf("connect to postgres: %w", err)
		}
		return pgstore.NewFeatureStore(pool), func() { pool.Close() }, nil
	default:
		return nil, nil, fmt.Errorf("unknown storage backend: %s", cfg.Storage.Backend)
	}
}
