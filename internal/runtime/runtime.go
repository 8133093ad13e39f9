// Package runtime implements the routed Reflex/Reflection execution
// runtime: two bounded worker pools isolating fast, interactive operations
// from slow, deliberative ones so the latter never starve the former
// (spec §4.5).
//
// Grounded on original_source/src/engine/runtime.rs's KyroRuntime
// (crossbeam_channel bounded queues, try_send, ExecutionHandle::join /
// join_timeout, Drop-based shutdown), reworked around Go channels and
// goroutines, and on akashi's internal/service/trace/buffer.go for the
// idiom of a bounded channel plus a dedicated drain/shutdown path.
package runtime

import (
	"context"
	"log/slog"
	"time"

	"github.com/KyroDB/kyroql/internal/engine"
	"github.com/KyroDB/kyroql/internal/ir"
)

// Config controls pool sizing. Zero values fall back to sane single-worker
// defaults in startPool.
type Config struct {
	ReflexWorkers     int
	ReflectionWorkers int

	// QueueCapacity is the shared fallback used by both pools when the
	// per-pool capacity below is left at zero.
	QueueCapacity int

	ReflexQueueCapacity     int
	ReflectionQueueCapacity int
}

// DefaultConfig mirrors the original's KyroRuntimeConfig::default().
func DefaultConfig() Config {
	return Config{ReflexWorkers: 2, ReflectionWorkers: 2, QueueCapacity: 1024}
}

func (c Config) reflexCapacity() int {
	if c.ReflexQueueCapacity > 0 {
		return c.ReflexQueueCapacity
	}
	return c.QueueCapacity
}

func (c Config) reflectionCapacity() int {
	if c.ReflectionQueueCapacity > 0 {
		return c.ReflectionQueueCapacity
	}
	return c.QueueCapacity
}

// Runtime routes envelopes to the Reflex or Reflection pool per Router
// policy and enforces the isolation guarantee between them.
type Runtime struct {
	router     Router
	engine     *engine.Engine
	reflex     *pool
	reflection *pool
	logger     *slog.Logger
}

// New constructs a Runtime with DefaultRouter.
func New(eng *engine.Engine, cfg Config, logger *slog.Logger) *Runtime {
	return WithRouter(eng, DefaultRouter{}, cfg, logger)
}

// WithRouter constructs a Runtime with a custom Router.
func WithRouter(eng *engine.Engine, router Router, cfg Config, logger *slog.Logger) *Runtime {
	if logger == nil {
		logger = slog.Default()
	}
	return &Runtime{
		router:     router,
		engine:     eng,
		reflex:     startPool("reflex", cfg.ReflexWorkers, cfg.reflexCapacity(), eng, logger),
		reflection: startPool("reflection", cfg.ReflectionWorkers, cfg.reflectionCapacity(), eng, logger),
		logger:     logger,
	}
}

// Engine returns the underlying engine both pools execute against.
func (r *Runtime) Engine() *engine.Engine { return r.engine }

// ReflexQueueDepth reports how many jobs are currently buffered on the
// Reflex pool.
func (r *Runtime) ReflexQueueDepth() int { return r.reflex.queueDepth() }

// ReflectionQueueDepth reports how many jobs are currently buffered on the
// Reflection pool.
func (r *Runtime) ReflectionQueueDepth() int { return r.reflection.queueDepth() }

// Handle is returned by ExecuteAsync; it identifies the path a request was
// routed to and lets the caller wait for the result.
type Handle struct {
	path  ExecutionPath
	reply chan jobResult
}

// Path returns the execution path the router selected.
func (h *Handle) Path() ExecutionPath { return h.path }

// Join blocks until the job completes or ctx is done.
func (h *Handle) Join(ctx context.Context) (engine.Response, error) {
	select {
	case r, ok := <-h.reply:
		if !ok {
			return engine.Response{}, &ErrDisconnected{Path: h.path}
		}
		return r.resp, r.err
	case <-ctx.Done():
		return engine.Response{}, ctx.Err()
	}
}

// JoinTimeout blocks until the job completes or timeout elapses.
func (h *Handle) JoinTimeout(timeout time.Duration) (engine.Response, error) {
	select {
	case r, ok := <-h.reply:
		if !ok {
			return engine.Response{}, &ErrDisconnected{Path: h.path}
		}
		return r.resp, r.err
	case <-time.After(timeout):
		return engine.Response{}, &ErrTimeout{DurationMs: timeout.Milliseconds()}
	}
}

// ExecuteAsync routes env to its pool and enqueues it without blocking,
// returning a Handle the caller can join whenever it likes.
func (r *Runtime) ExecuteAsync(ctx context.Context, env ir.Envelope) (*Handle, error) {
	path := r.router.Route(env)
	reply := make(chan jobResult, 1)
	j := job{ctx: ctx, env: env, reply: reply}

	var target *pool
	switch path {
	case Reflex:
		target = r.reflex
	default:
		target = r.reflection
	}
	if err := target.trySubmit(j, path); err != nil {
		return nil, err
	}
	return &Handle{path: path, reply: reply}, nil
}

// Execute routes and runs env synchronously, returning once the assigned
// worker replies or ctx is done.
func (r *Runtime) Execute(ctx context.Context, env ir.Envelope) (engine.Response, error) {
	h, err := r.ExecuteAsync(ctx, env)
	if err != nil {
		return engine.Response{}, err
	}
	return h.Join(ctx)
}

// Shutdown stops accepting new work on both pools and waits for every
// worker to drain its queue and exit.
func (r *Runtime) Shutdown() {
	r.reflex.shutdown()
	r.reflection.shutdown()
}
