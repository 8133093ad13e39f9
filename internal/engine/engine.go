// Package engine implements KyroEngine.Execute, the single entry point that
// dispatches an ir.Envelope to ASSERT/RESOLVE/RETRACT/DEFINE_PATTERN/DERIVE
// handling, detects conflicts, checks pattern rules, and assembles
// BeliefFrame answers with trust-weighted ranking (spec §4.3, §4.4).
//
// Grounded on original_source/src/engine/mod.rs's KyroEngine, adapted from
// Result<T, KyroError> to Go's (T, error) idiom, and on
// internal/conflicts/scorer.go's storage-error-wrapping style from the
// teacher codebase.
package engine

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/KyroDB/kyroql/internal/belief"
	"github.com/KyroDB/kyroql/internal/confidence"
	"github.com/KyroDB/kyroql/internal/conflict"
	"github.com/KyroDB/kyroql/internal/derivation"
	"github.com/KyroDB/kyroql/internal/entity"
	"github.com/KyroDB/kyroql/internal/frame"
	"github.com/KyroDB/kyroql/internal/ir"
	"github.com/KyroDB/kyroql/internal/meta"
	"github.com/KyroDB/kyroql/internal/monitor"
	"github.com/KyroDB/kyroql/internal/pattern"
	"github.com/KyroDB/kyroql/internal/simulation"
	"github.com/KyroDB/kyroql/internal/source"
	"github.com/KyroDB/kyroql/internal/timerange"
	"github.com/KyroDB/kyroql/internal/trust"
	"github.com/KyroDB/kyroql/internal/value"
)

// Response is a tagged union over the seven IR operations' results.
type Response struct {
	Op ir.Op

	AssertBeliefID  confidence.BeliefID
	AssertConflicts []confidence.ConflictID
	ResolveFrame    frame.Frame
	RetractBeliefID confidence.BeliefID
	PatternID       confidence.PatternID
	DerivationID    confidence.DerivationID

	// SimulateContext is the live counterfactual session created by
	// op=simulate. The caller drives it directly (AssertHypothetical,
	// SpawnChild, QueryImpact) and must Close it when done.
	SimulateContext *simulation.Context

	// MonitorRegistration and MonitorStream are set by op=monitor: the
	// registration handle and the channel fired events are published to.
	MonitorRegistration monitor.Registration
	MonitorStream       *monitor.Stream
}

var (
	// ErrEntityNotFound is returned when an operation references an entity
	// that does not exist.
	ErrEntityNotFound = fmt.Errorf("engine: entity not found")
	// ErrBeliefNotFound is returned when an operation references a belief
	// that does not exist.
	ErrBeliefNotFound = fmt.Errorf("engine: belief not found")
	// ErrConflictsDetected is returned by strict-mode ASSERT when conflicts
	// would be created.
	ErrConflictsDetected = fmt.Errorf("engine: conflicts detected")
	// ErrUnsupportedOp is returned for an envelope whose Op this engine
	// cannot dispatch.
	ErrUnsupportedOp = fmt.Errorf("engine: unsupported operation")
)

// Observer receives a notification after an ASSERT has committed, feeding
// the MONITOR subsystem without making Execute's success path depend on a
// concrete dispatcher. *monitor.System implements this.
type Observer interface {
	ObserveAssert(obs monitor.AssertObservation) error
}

// Subscriber registers and removes MONITOR triggers. *monitor.System
// implements this; op=monitor dispatches through it.
type Subscriber interface {
	Subscribe(trigger monitor.Trigger, capacity int, expiresAt *time.Time) (monitor.Registration, *monitor.Stream, error)
	Unsubscribe(subID monitor.SubscriptionID) error
}

// Engine ties the five stores, the trust model, and rule checking together
// behind a single Execute entry point.
type Engine struct {
	Entities    entity.Store
	Beliefs     belief.Store
	Patterns    pattern.Store
	Conflicts   conflict.Store
	Derivations derivation.Store
	Trust       trust.Model
	Logger      *slog.Logger

	// Monitor, when set, is notified after every committed ASSERT. Nil by
	// default: a simulation-scoped Engine has no monitor wired in, since
	// hypothetical asserts never fire live subscriptions.
	Monitor Observer

	// MonitorSystem, when set, backs op=monitor's register/unregister
	// calls. Typically the same concrete *monitor.System as Monitor.
	MonitorSystem Subscriber

	// Meta answers coverage, gap-analysis, and calibration questions over
	// Entities/Beliefs (spec §12).
	Meta *meta.Analyzer
}

// WithMonitor wires observer as both the ASSERT-observation sink and the
// op=monitor Subscriber when it implements both, and returns the engine
// for chaining. *monitor.System satisfies both interfaces.
func (e *Engine) WithMonitor(observer Observer) *Engine {
	e.Monitor = observer
	if sub, ok := observer.(Subscriber); ok {
		e.MonitorSystem = sub
	}
	return e
}

// New constructs an Engine over the given stores and trust model.
func New(entities entity.Store, beliefs belief.Store, patterns pattern.Store, conflicts conflict.Store, derivations derivation.Store, trustModel trust.Model, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	if trustModel == nil {
		trustModel = trust.NewSimpleModel()
	}
	return &Engine{
		Entities:    entities,
		Beliefs:     beliefs,
		Patterns:    patterns,
		Conflicts:   conflicts,
		Derivations: derivations,
		Trust:       trustModel,
		Logger:      logger,
		Meta:        meta.New(entities, beliefs),
	}
}

// Execute dispatches an envelope to its operation handler. Builders already
// validate their payload; Execute re-validates defensively since envelopes
// may arrive deserialized from an untrusted boundary.
func (e *Engine) Execute(ctx context.Context, env ir.Envelope) (Response, error) {
	switch env.Op {
	case ir.OpAssert:
		if env.Assert == nil {
			return Response{}, fmt.Errorf("%w: assert payload missing", ErrUnsupportedOp)
		}
		if err := env.Assert.Validate(); err != nil {
			return Response{}, err
		}
		return e.executeAssert(ctx, env.Timestamp, *env.Assert)
	case ir.OpResolve:
		if env.Resolve == nil {
			return Response{}, fmt.Errorf("%w: resolve payload missing", ErrUnsupportedOp)
		}
		if err := env.Resolve.Validate(); err != nil {
			return Response{}, err
		}
		return e.executeResolve(ctx, *env.Resolve)
	case ir.OpRetract:
		if env.Retract == nil {
			return Response{}, fmt.Errorf("%w: retract payload missing", ErrUnsupportedOp)
		}
		if err := env.Retract.Validate(); err != nil {
			return Response{}, err
		}
		return e.executeRetract(ctx, env.Timestamp, *env.Retract)
	case ir.OpDefinePattern:
		if env.DefinePattern == nil {
			return Response{}, fmt.Errorf("%w: define_pattern payload missing", ErrUnsupportedOp)
		}
		if err := env.DefinePattern.Validate(); err != nil {
			return Response{}, err
		}
		return e.executeDefinePattern(ctx, *env.DefinePattern)
	case ir.OpDerive:
		if env.Derive == nil {
			return Response{}, fmt.Errorf("%w: derive payload missing", ErrUnsupportedOp)
		}
		if err := env.Derive.Validate(); err != nil {
			return Response{}, err
		}
		return e.executeDerive(ctx, env.Timestamp, *env.Derive)
	case ir.OpSimulate:
		if env.Simulate == nil {
			return Response{}, fmt.Errorf("%w: simulate payload missing", ErrUnsupportedOp)
		}
		if err := env.Simulate.Validate(); err != nil {
			return Response{}, err
		}
		return e.executeSimulate(ctx, *env.Simulate)
	case ir.OpMonitor:
		if env.Monitor == nil {
			return Response{}, fmt.Errorf("%w: monitor payload missing", ErrUnsupportedOp)
		}
		if err := env.Monitor.Validate(); err != nil {
			return Response{}, err
		}
		return e.executeMonitor(*env.Monitor)
	default:
		return Response{}, fmt.Errorf("%w: %s", ErrUnsupportedOp, env.Op)
	}
}

func (e *Engine) ensureEntityExists(ctx context.Context, id confidence.EntityID) error {
	if _, err := e.Entities.Get(ctx, id); err != nil {
		return fmt.Errorf("%w: %s", ErrEntityNotFound, id)
	}
	return nil
}

func (e *Engine) trustWeight(src source.Source, domain *string) float32 {
	return e.Trust.Assess(src, domain).Weight()
}

func (e *Engine) trustedConfidence(b belief.Belief, domain *string) float32 {
	v := b.Confidence.Value
	if v < 0 {
		v = 0
	} else if v > 1 {
		v = 1
	}
	return v * e.trustWeight(b.Source, domain)
}

func (e *Engine) executeDefinePattern(ctx context.Context, payload ir.DefinePatternPayload) (Response, error) {
	p, err := pattern.NewPattern(strings.TrimSpace(payload.Name), payload.Rule, payload.ValidTime)
	if err != nil {
		return Response{}, err
	}
	if err := e.Patterns.Insert(ctx, p); err != nil {
		return Response{}, fmt.Errorf("engine: define_pattern: %w", err)
	}
	return Response{Op: ir.OpDefinePattern, PatternID: p.ID}, nil
}

func (e *Engine) executeRetract(ctx context.Context, txTime time.Time, payload ir.RetractPayload) (Response, error) {
	old, err := e.Beliefs.Get(ctx, payload.BeliefID)
	if err != nil {
		return Response{}, fmt.Errorf("%w: %s", ErrBeliefNotFound, payload.BeliefID)
	}

	systemConf, err := confidence.New(1.0, confidence.CalibrationHeuristic, confidence.ProvenanceAssertedByAgent)
	if err != nil {
		return Response{}, err
	}
	retraction, err := belief.New(old.Subject, old.Predicate, value.Null(), systemConf, payload.Source, timerange.StartingAt(txTime), txTime)
	if err != nil {
		return Response{}, err
	}
	retraction.ConsistencyStatus = belief.StatusVerified
	retraction.Supersedes = &old.ID
	retraction.Reason = payload.Reason

	if err := e.Beliefs.Insert(ctx, retraction); err != nil {
		return Response{}, fmt.Errorf("engine: retract: insert retraction: %w", err)
	}
	if err := e.Beliefs.Supersede(ctx, old.ID, retraction.ID); err != nil {
		return Response{}, fmt.Errorf("engine: retract: supersede: %w", err)
	}
	return Response{Op: ir.OpRetract, RetractBeliefID: retraction.ID}, nil
}

func (e *Engine) executeDerive(ctx context.Context, txTime time.Time, payload ir.DerivePayload) (Response, error) {
	if payload.DerivedBeliefID != nil {
		if _, err := e.Beliefs.Get(ctx, *payload.DerivedBeliefID); err != nil {
			return Response{}, fmt.Errorf("%w: %s", ErrBeliefNotFound, *payload.DerivedBeliefID)
		}
	}
	for _, premise := range payload.PremiseIDs {
		if _, err := e.Beliefs.Get(ctx, premise); err != nil {
			return Response{}, fmt.Errorf("%w: %s", ErrBeliefNotFound, premise)
		}
	}

	record, err := derivation.New(payload.DerivedBeliefID, payload.PremiseIDs, payload.Rule, txTime)
	if err != nil {
		return Response{}, err
	}
	record.Steps = payload.Steps
	record.Confidence = payload.Confidence
	record.Justification = payload.Justification

	if err := e.Derivations.Insert(ctx, record); err != nil {
		return Response{}, fmt.Errorf("engine: derive: %w", err)
	}
	return Response{Op: ir.OpDerive, DerivationID: record.ID}, nil
}

// sortBeliefsByTrustedConfidence sorts descending by trust-weighted
// confidence, matching the ranking the teacher's scorer uses.
func (e *Engine) sortBeliefsByTrustedConfidence(beliefs []belief.Belief, domain *string) {
	sort.Slice(beliefs, func(i, j int) bool {
		return e.trustedConfidence(beliefs[i], domain) > e.trustedConfidence(beliefs[j], domain)
	})
}
