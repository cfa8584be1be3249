package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/DoyleJ11/lol-draft-assistant/internal/advisory"
	"github.com/DoyleJ11/lol-draft-assistant/internal/assistant"
	"github.com/DoyleJ11/lol-draft-assistant/internal/config"
	"github.com/DoyleJ11/lol-draft-assistant/internal/delta"
	"github.com/DoyleJ11/lol-draft-assistant/internal/httpapi"
	"github.com/DoyleJ11/lol-draft-assistant/internal/hub"
	"github.com/DoyleJ11/lol-draft-assistant/internal/metrics"
	"github.com/DoyleJ11/lol-draft-assistant/internal/oracle"
	"github.com/DoyleJ11/lol-draft-assistant/internal/source"
	"github.com/DoyleJ11/lol-draft-assistant/internal/stats"
	"github.com/DoyleJ11/lol-draft-assistant/internal/store"
)

const shutdownTimeout = 10 * time.Second

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newLogger(cfg *config.Config) (*zap.Logger, error) {
	zc := zap.NewProductionConfig()
	if cfg.Development {
		zc = zap.NewDevelopmentConfig()
	}
	level, err := zapcore.ParseLevel(cfg.LogLevel)
	if err != nil {
		return nil, fmt.Errorf("log_level: %w", err)
	}
	zc.Level = zap.NewAtomicLevelAt(level)
	return zc.Build()
}

func run() error {
	// a missing .env is fine; the environment may already be set
	_ = godotenv.Load()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(ctx)
	if err != nil {
		return err
	}
	logger, err := newLogger(cfg)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	reg := prometheus.NewRegistry()
	m := metrics.New(metrics.WithRegistry(reg))

	var pool []string
	if cfg.ChampionsFile != "" {
		pool, err = source.ReadChampionPoolFile(cfg.ChampionsFile)
		if err != nil {
			return err
		}
		logger.Info("champion pool loaded", zap.Int("champions", len(pool)))
	}
	agg := stats.NewAggregator(stats.WithChampionPool(pool), stats.WithLogger(logger))

	var o oracle.Oracle
	if cfg.OracleURL != "" {
		o = oracle.NewHTTPOracle(cfg.OracleURL, cfg.OracleTimeout,
			oracle.WithRetries(uint(cfg.OracleRetries)),
			oracle.WithLogger(logger))
		logger.Info("using remote oracle", zap.String("url", cfg.OracleURL))
	} else {
		o = oracle.NewStatisticalOracle(agg.Model)
		logger.Info("using statistical oracle")
	}
	ranker := delta.New(o,
		delta.WithWorkers(cfg.RankWorkers),
		delta.WithLogger(logger),
		delta.WithMetrics(m))

	var advisor advisory.Service
	if cfg.GeminiAPIKey != "" {
		g, err := advisory.NewGemini(ctx, advisory.GeminiConfig{
			APIKey:  cfg.GeminiAPIKey,
			Model:   cfg.GeminiModel,
			Retries: 2,
		}, logger)
		if err != nil {
			return err
		}
		advisor = g
	} else {
		logger.Warn("no gemini api key, advice will be ranking only")
	}
	coordinator := advisory.NewCoordinator(advisor, logger, m)

	opts := []assistant.Option{
		assistant.WithLogger(logger),
		assistant.WithMetrics(m),
		assistant.WithChampionPool(pool),
		assistant.WithAdvisoryMaxRows(cfg.AdvisoryMaxRows),
	}
	if cfg.DatabaseURL != "" {
		st, err := store.Open(cfg.DatabaseURL, logger)
		if err != nil {
			return err
		}
		defer func() { _ = st.Close() }()
		opts = append(opts, assistant.WithStore(st))
	}

	h := hub.NewHub(ctx, hub.WithLogger(logger), hub.WithMetrics(m))
	svc := assistant.New(h, agg, ranker, coordinator, opts...)

	if _, err := svc.Restore(ctx); err != nil {
		return err
	}
	if cfg.RecordsCSV != "" {
		report, err := svc.LoadFile(ctx, cfg.RecordsCSV)
		switch {
		case errors.Is(err, stats.ErrDuplicateLoad):
			logger.Info("records already restored", zap.String("path", cfg.RecordsCSV))
		case err != nil:
			return err
		default:
			logger.Info("records loaded",
				zap.String("path", cfg.RecordsCSV),
				zap.Int("accepted", report.Accepted),
				zap.Int("skipped", report.Skipped))
		}
	}

	handler := httpapi.SetupRoutes(svc, httpapi.Options{
		Logger:      logger,
		Gatherer:    reg,
		RecordsPath: cfg.RecordsCSV,
	})
	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("listening", zap.String("addr", cfg.Addr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	// lobbies stop with ctx, which closes their websocket clients
	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
