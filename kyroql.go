// Package kyroql is the public API for embedding a KyroQL belief store.
//
// Callers construct and drive a Store without reaching into internal/*:
//
//	store, err := kyroql.Open(
//	    kyroql.WithDataDir("./data"),
//	    kyroql.WithLogger(logger),
//	    kyroql.WithTrustModel(myTrustModel),
//	)
//	if err != nil { ... }
//	defer store.Close()
//
//	resp, err := store.Execute(ctx, env)
//
// The import graph enforces a strict no-cycle rule: kyroql (root) imports
// internal/*, but internal/* never imports kyroql (root). Unlike a curated
// REST/Decision boundary, a KyroQL caller's unit of work already is the IR
// envelope and engine response, so the façade re-exports those types
// directly instead of mirroring every domain type as a duplicate public
// struct.
package kyroql

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/KyroDB/kyroql/internal/confidence"
	"github.com/KyroDB/kyroql/internal/config"
	"github.com/KyroDB/kyroql/internal/engine"
	"github.com/KyroDB/kyroql/internal/entity"
	"github.com/KyroDB/kyroql/internal/ir"
	"github.com/KyroDB/kyroql/internal/meta"
	"github.com/KyroDB/kyroql/internal/metrics"
	"github.com/KyroDB/kyroql/internal/monitor"
	"github.com/KyroDB/kyroql/internal/runtime"
	"github.com/KyroDB/kyroql/internal/storage/persistent"
	"github.com/KyroDB/kyroql/internal/trust"
)

// Re-exported so callers never import internal/ir, internal/engine, or
// internal/monitor directly.
type (
	Envelope       = ir.Envelope
	Response       = engine.Response
	Trigger        = monitor.Trigger
	Registration   = monitor.Registration
	Stream         = monitor.Stream
	SubscriptionID = monitor.SubscriptionID
	TrustModel     = trust.Model
	Handle         = runtime.Handle
	Entity         = entity.Entity
	EntityType     = entity.Type
	EntityStore    = entity.Store

	CoverageReport     = meta.CoverageReport
	GapAnalysisResult  = meta.GapAnalysisResult
	CalibrationSummary = meta.CalibrationSummary
)

// Entity type constants, re-exported from internal/entity.
const (
	EntityTypePerson       = entity.TypePerson
	EntityTypeOrganization = entity.TypeOrganization
	EntityTypeConcept      = entity.TypeConcept
	EntityTypeEvent        = entity.TypeEvent
	EntityTypeLocation     = entity.TypeLocation
	EntityTypeArtifact     = entity.TypeArtifact
	EntityTypeHypothesis   = entity.TypeHypothesis
)

// NewEntity constructs an Entity, re-exported from internal/entity.New so
// callers never import internal/entity directly.
func NewEntity(canonicalName string, entityType EntityType) (Entity, error) {
	return entity.New(canonicalName, entityType)
}

// Store is an opened KyroQL belief store: durable storage, the execution
// engine, the Reflex/Reflection runtime, and the monitor subsystem, wired
// together and ready to accept IR envelopes.
type Store struct {
	db      *persistent.Database
	engine  *engine.Engine
	runtime *runtime.Runtime
	monitor *monitor.System
	logger  *slog.Logger
}

// Open loads configuration (overridden by any options given), opens durable
// storage at the resolved data directory, and wires the engine, runtime, and
// monitor subsystem over it. The returned Store owns all of these and must
// be closed with Close.
func Open(opts ...Option) (*Store, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("kyroql: load config: %w", err)
	}

	resolved := resolveOptions(cfg, opts)

	db, err := persistent.Open(resolved.dataDir, resolved.syncOnWrite, resolved.logger)
	if err != nil {
		return nil, fmt.Errorf("kyroql: open storage: %w", err)
	}

	eng := engine.New(db.Entities, db.Beliefs, db.Patterns, db.Conflicts, db.Derivations, resolved.trustModel, resolved.logger)

	monSys := monitor.New(db.Beliefs, monitor.Config{
		ObservationQueueCapacity: resolved.monitorQueueCapacity,
		StreamCapacity:           resolved.monitorStreamCapacity,
	}, resolved.logger)
	monSys.Start()
	eng.WithMonitor(monSys)

	rt := runtime.New(eng, runtime.Config{
		ReflexWorkers:           resolved.reflexWorkers,
		ReflectionWorkers:       resolved.reflectionWorkers,
		ReflexQueueCapacity:     resolved.reflexQueueCapacity,
		ReflectionQueueCapacity: resolved.reflectionQueueCapacity,
	}, resolved.logger)

	if err := metrics.Register(db, monSys, rt); err != nil {
		resolved.logger.Warn("kyroql: metrics registration failed", "error", err)
	}

	return &Store{db: db, engine: eng, runtime: rt, monitor: monSys, logger: resolved.logger}, nil
}

// Entities returns the store's entity index, so a caller can register
// entities before asserting beliefs about them.
func (s *Store) Entities() EntityStore {
	return s.db.Entities
}

// Execute routes env to the Reflex or Reflection pool per its operation and
// blocks until the result is ready or ctx is done.
func (s *Store) Execute(ctx context.Context, env Envelope) (Response, error) {
	return s.runtime.Execute(ctx, env)
}

// ExecuteAsync routes env without blocking, returning a handle the caller
// joins whenever it likes.
func (s *Store) ExecuteAsync(ctx context.Context, env Envelope) (*Handle, error) {
	return s.runtime.ExecuteAsync(ctx, env)
}

// Subscribe registers trigger with the monitor subsystem directly, bypassing
// the Execute/op=monitor envelope round-trip when a caller already holds a
// live Store reference.
func (s *Store) Subscribe(trigger Trigger, capacity int, expiresAt *time.Time) (Registration, *Stream, error) {
	return s.monitor.Subscribe(trigger, capacity, expiresAt)
}

// Unsubscribe removes a prior subscription.
func (s *Store) Unsubscribe(subID SubscriptionID) error {
	return s.monitor.Unsubscribe(subID)
}

// Coverage reports how many beliefs entityID carries per predicate and
// their average confidence, bypassing the Execute envelope round-trip.
func (s *Store) Coverage(ctx context.Context, entityID confidence.EntityID) (CoverageReport, error) {
	return s.engine.Coverage(ctx, entityID)
}

// GapAnalysis splits expectedPredicates into those entityID is covered
// for and those it is missing.
func (s *Store) GapAnalysis(ctx context.Context, entityID confidence.EntityID, expectedPredicates []string) (GapAnalysisResult, error) {
	return s.engine.GapAnalysis(ctx, entityID, expectedPredicates)
}

// CalibrationSummary reports the min/max/mean confidence across
// entityID's beliefs.
func (s *Store) CalibrationSummary(ctx context.Context, entityID confidence.EntityID) (CalibrationSummary, error) {
	return s.engine.CalibrationSummary(ctx, entityID)
}

// Close stops accepting new work, drains both runtime pools, stops the
// monitor subsystem, and closes durable storage.
func (s *Store) Close() error {
	s.logger.Info("kyroql: store closing")
	s.runtime.Shutdown()
	s.monitor.Close()
	return s.db.Close()
}
