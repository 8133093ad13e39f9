package kyroql

import (
	"log/slog"

	"github.com/KyroDB/kyroql/internal/config"
)

// Option configures a Store at Open time, overriding whatever config.Load
// resolved from the environment.
type Option func(*resolvedOptions)

// resolvedOptions holds all extension points after applying defaults and
// options. Unexported — callers use the With* functions.
type resolvedOptions struct {
	dataDir     string
	syncOnWrite bool
	logger      *slog.Logger
	trustModel  TrustModel

	reflexWorkers           int
	reflexQueueCapacity     int
	reflectionWorkers       int
	reflectionQueueCapacity int

	monitorQueueCapacity  int
	monitorStreamCapacity int
}

func resolveOptions(cfg config.Config, opts []Option) resolvedOptions {
	r := resolvedOptions{
		dataDir:     cfg.DataDir,
		syncOnWrite: cfg.SyncOnWrite,
		logger:      slog.Default(),

		reflexWorkers:           cfg.ReflexWorkers,
		reflexQueueCapacity:     cfg.ReflexQueueCapacity,
		reflectionWorkers:       cfg.ReflectionWorkers,
		reflectionQueueCapacity: cfg.ReflectionQueueCapacity,

		monitorQueueCapacity:  cfg.MonitorQueueCapacity,
		monitorStreamCapacity: cfg.MonitorStreamCapacity,
	}
	for _, opt := range opts {
		opt(&r)
	}
	if r.trustModel == nil {
		r.trustModel = defaultTrustModel()
	}
	return r
}

// WithDataDir overrides the storage directory from config (KYROQL_DATA_DIR env var).
func WithDataDir(dir string) Option {
	return func(o *resolvedOptions) { o.dataDir = dir }
}

// WithSyncOnWrite overrides whether every WAL append fsyncs before acknowledging
// (KYROQL_SYNC_ON_WRITE env var).
func WithSyncOnWrite(sync bool) Option {
	return func(o *resolvedOptions) { o.syncOnWrite = sync }
}

// WithLogger sets the structured logger for the Store and everything it wires.
// If not set, the default slog logger is used.
func WithLogger(logger *slog.Logger) Option {
	return func(o *resolvedOptions) { o.logger = logger }
}

// WithTrustModel replaces the default trust model used to scale confidence
// during RESOLVE ranking. If not set, an empty trust.SimpleModel is used
// (every source weighted 1.0).
func WithTrustModel(m TrustModel) Option {
	return func(o *resolvedOptions) { o.trustModel = m }
}

// WithReflexPool overrides the Reflex pool's worker count and queue capacity.
func WithReflexPool(workers, queueCapacity int) Option {
	return func(o *resolvedOptions) {
		o.reflexWorkers = workers
		o.reflexQueueCapacity = queueCapacity
	}
}

// WithReflectionPool overrides the Reflection pool's worker count and queue capacity.
func WithReflectionPool(workers, queueCapacity int) Option {
	return func(o *resolvedOptions) {
		o.reflectionWorkers = workers
		o.reflectionQueueCapacity = queueCapacity
	}
}

// WithMonitorCapacity overrides the monitor subsystem's observation queue and
// per-subscription stream capacities.
func WithMonitorCapacity(queueCapacity, streamCapacity int) Option {
	return func(o *resolvedOptions) {
		o.monitorQueueCapacity = queueCapacity
		o.monitorStreamCapacity = streamCapacity
	}
}
