package simulation

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/KyroDB/kyroql/internal/belief"
	"github.com/KyroDB/kyroql/internal/conflict"
	"github.com/KyroDB/kyroql/internal/confidence"
	"github.com/KyroDB/kyroql/internal/derivation"
	"github.com/KyroDB/kyroql/internal/entity"
	"github.com/KyroDB/kyroql/internal/pattern"
)

// ID stably identifies a simulation.
type ID uuid.UUID

func newID() ID              { return ID(uuid.New()) }
func (id ID) String() string { return uuid.UUID(id).String() }

// ErrExpired is returned once a context's deadline has elapsed or it has
// been closed.
type ErrExpired struct {
	Reason string
}

func (e *ErrExpired) Error() string { return fmt.Sprintf("simulation: %s", e.Reason) }

// ErrDepthExceeded is returned by SpawnChild when nesting would exceed
// the root constraints' MaxDepth.
type ErrDepthExceeded struct {
	MaxDepth int
	Attempt  int
}

func (e *ErrDepthExceeded) Error() string {
	return fmt.Sprintf("simulation: nesting depth exceeded: max=%d attempted=%d", e.MaxDepth, e.Attempt)
}

// ErrHypotheticalLimitExceeded is returned once a context's hypothetical
// operation budget (derived from MaxAffectedEntities * remainingDepth) is
// spent.
type ErrHypotheticalLimitExceeded struct {
	Max     int
	Attempt int
}

func (e *ErrHypotheticalLimitExceeded) Error() string {
	return fmt.Sprintf("simulation: hypothetical count exceeded: max=%d attempted=%d", e.Max, e.Attempt)
}

// Context is an isolated, time-bounded counterfactual reasoning session.
// Grounded directly on SimulationContext in
// original_source/src/simulation/context.rs: a hard wall-clock deadline,
// a nesting_level/remaining_depth budget, and a DeltaStore overlay. Go
// has no destructors, so the original's Drop-based teardown becomes an
// explicit Close() the caller must call (or defer).
type Context struct {
	ID ID

	constraints    Constraints
	nestingLevel   int
	remainingDepth int
	createdAt      time.Time
	deadline       time.Time

	hypotheticalCount atomic.Int64
	closed            atomic.Bool

	store *DeltaStore
}

// New creates a root simulation context over base.
func New(base BaseStores, constraints Constraints) (*Context, error) {
	return newInternal(base, constraints, 0, nil)
}

func newInternal(base BaseStores, constraints Constraints, nestingLevel int, deadlineCap *time.Time) (*Context, error) {
	if err := constraints.Validate(); err != nil {
		return nil, err
	}

	createdAt := time.Now()
	computed := createdAt.Add(time.Duration(constraints.MaxDurationMs) * time.Millisecond)
	deadline := computed
	if deadlineCap != nil && deadlineCap.Before(computed) {
		deadline = *deadlineCap
	}

	remainingDepth := constraints.MaxDepth - nestingLevel
	if remainingDepth < 0 {
		remainingDepth = 0
	}

	return &Context{
		ID:             newID(),
		constraints:    constraints,
		nestingLevel:   nestingLevel,
		remainingDepth: remainingDepth,
		createdAt:      createdAt,
		deadline:       deadline,
		store:          NewDeltaStore(base, constraints),
	}, nil
}

// Constraints returns the constraints this context was built with.
func (c *Context) Constraints() Constraints { return c.constraints }

// Elapsed returns the time elapsed since the context was created.
func (c *Context) Elapsed() time.Duration { return time.Since(c.createdAt) }

// EnsureNotExpired enforces the deadline and the closed flag.
func (c *Context) EnsureNotExpired() error {
	if c.closed.Load() {
		return &ErrExpired{Reason: fmt.Sprintf("simulation %s is closed", c.ID)}
	}
	if time.Now().After(c.deadline) {
		return &ErrExpired{Reason: fmt.Sprintf("simulation %s exceeded max_duration_ms=%d", c.ID, c.constraints.MaxDurationMs)}
	}
	return nil
}

// registerHypothetical increments and bounds the hypothetical op counter.
// The budget is a coarse proxy (max_affected_entities * remaining_depth);
// DeltaStore enforces the real per-entity limit.
func (c *Context) registerHypothetical() error {
	if err := c.EnsureNotExpired(); err != nil {
		return err
	}

	current := c.hypotheticalCount.Add(1)
	maxOps := c.constraints.MaxAffectedEntities * c.remainingDepth
	if maxOps < 1 {
		maxOps = 1
	}
	if int(current) > maxOps {
		return &ErrHypotheticalLimitExceeded{Max: maxOps, Attempt: int(current)}
	}
	return nil
}

// SpawnChild creates a nested simulation layered on top of this one's
// overlay: the child sees this context's hypotheticals through its base
// view, but its own writes stay isolated to its own overlay.
func (c *Context) SpawnChild() (*Context, error) {
	if err := c.EnsureNotExpired(); err != nil {
		return nil, err
	}

	if c.remainingDepth < 1 {
		attempted := c.constraints.MaxDepth - c.remainingDepth + 1
		return nil, &ErrDepthExceeded{MaxDepth: c.constraints.MaxDepth, Attempt: attempted}
	}

	base := BaseStores{
		Entities:    c.store.Entities(),
		Beliefs:     c.store.Beliefs(),
		Patterns:    c.store.Patterns(),
		Conflicts:   c.store.Conflicts(),
		Derivations: c.store.Derivations(),
	}
	deadline := c.deadline
	return newInternal(base, c.constraints, c.nestingLevel+1, &deadline)
}

// AssertHypothetical inserts b into this context's overlay only; it never
// mutates base storage.
func (c *Context) AssertHypothetical(ctx context.Context, b belief.Belief) (confidence.BeliefID, error) {
	if err := c.registerHypothetical(); err != nil {
		return confidence.BeliefID{}, err
	}

	if _, err := c.store.Entities().Get(ctx, b.Subject); err != nil {
		return confidence.BeliefID{}, fmt.Errorf("simulation: entity not found: %s", b.Subject)
	}

	if err := c.store.Beliefs().Insert(ctx, b); err != nil {
		return confidence.BeliefID{}, err
	}
	return b.ID, nil
}

// QueryImpact reports which entities and beliefs the overlay has touched
// so far.
func (c *Context) QueryImpact() (Impact, error) {
	if err := c.EnsureNotExpired(); err != nil {
		return Impact{}, err
	}
	return c.store.ImpactDetails(), nil
}

// Entities returns the overlay's read-only entity view. Callers building a
// simulation-scoped engine (internal/engine's executeSimulate) read
// through these accessors rather than this package depending on engine
// itself, which would otherwise form an import cycle.
func (c *Context) Entities() entity.Store { return c.store.Entities() }

// Beliefs returns the overlay's write-through belief view.
func (c *Context) Beliefs() belief.Store { return c.store.Beliefs() }

// Patterns returns the overlay's read-only pattern view.
func (c *Context) Patterns() pattern.Store { return c.store.Patterns() }

// Conflicts returns the overlay's read-only conflict view.
func (c *Context) Conflicts() conflict.Store { return c.store.Conflicts() }

// Derivations returns the overlay's read-only derivation view.
func (c *Context) Derivations() derivation.Store { return c.store.Derivations() }

// Close tears the context down: marks it expired and clears overlay
// state. Safe to call more than once; the teacher's original used Drop
// for this, Go requires an explicit call (defer c.Close() at creation).
func (c *Context) Close() {
	if !c.closed.CompareAndSwap(false, true) {
		return
	}
	c.store.Clear()
}
