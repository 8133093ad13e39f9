// Command kyroql runs a standalone KyroQL store: durable storage, the
// Reflex/Reflection execution runtime, and the monitor subsystem, wired
// together the way the library's top-level façade wires them for an
// embedding caller.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/KyroDB/kyroql/internal/config"
	"github.com/KyroDB/kyroql/internal/engine"
	"github.com/KyroDB/kyroql/internal/metrics"
	"github.com/KyroDB/kyroql/internal/monitor"
	"github.com/KyroDB/kyroql/internal/runtime"
	"github.com/KyroDB/kyroql/internal/storage/persistent"
	"github.com/KyroDB/kyroql/internal/trust"
)

// version is set at build time via -ldflags.
var version = "dev"

func main() {
	os.Exit(run0())
}

func run0() int {
	level := parseLogLevel(os.Getenv("KYROQL_LOG_LEVEL"))
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	}))
	slog.SetDefault(logger)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx, logger); err != nil {
		logger.Error("fatal error", "error", err)
		return 1
	}
	return 0
}

func run(ctx context.Context, logger *slog.Logger) error {
	// Load .env file if present (non-fatal; production won't have one).
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger.Info("kyroql starting", "version", version, "data_dir", cfg.DataDir)

	db, err := persistent.Open(cfg.DataDir, cfg.SyncOnWrite, logger)
	if err != nil {
		return fmt.Errorf("storage: %w", err)
	}
	defer func() {
		if err := db.Close(); err != nil {
			logger.Error("storage close error", "error", err)
		}
	}()

	trustModel := trust.NewSimpleModel()

	eng := engine.New(db.Entities, db.Beliefs, db.Patterns, db.Conflicts, db.Derivations, trustModel, logger)

	monSys := monitor.New(db.Beliefs, monitor.Config{
		ObservationQueueCapacity: cfg.MonitorQueueCapacity,
		StreamCapacity:           cfg.MonitorStreamCapacity,
	}, logger)
	monSys.Start()
	defer monSys.Close()
	eng.WithMonitor(monSys)

	rt := runtime.New(eng, runtime.Config{
		ReflexWorkers:           cfg.ReflexWorkers,
		ReflectionWorkers:       cfg.ReflectionWorkers,
		ReflexQueueCapacity:     cfg.ReflexQueueCapacity,
		ReflectionQueueCapacity: cfg.ReflectionQueueCapacity,
	}, logger)
	defer rt.Shutdown()

	if err := metrics.Register(db, monSys, rt); err != nil {
		logger.Warn("metrics registration failed", "error", err)
	}

	if cfg.CompactionInterval > 0 {
		go compactionLoop(ctx, db, logger, cfg.CompactionInterval)
	}

	logger.Info("kyroql ready",
		"reflex_workers", cfg.ReflexWorkers,
		"reflection_workers", cfg.ReflectionWorkers,
	)

	<-ctx.Done()
	logger.Info("kyroql shutting down")
	return nil
}

func parseLogLevel(raw string) slog.Level {
	switch raw {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func compactionLoop(ctx context.Context, db *persistent.Database, logger *slog.Logger, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := db.Compact(ctx); err != nil {
				logger.Warn("compaction failed", "error", err)
			}
		}
	}
}
