package simulation

import (
	"context"
	"fmt"
	"time"

	"github.com/KyroDB/kyroql/internal/belief"
	"github.com/KyroDB/kyroql/internal/conflict"
	"github.com/KyroDB/kyroql/internal/confidence"
	"github.com/KyroDB/kyroql/internal/derivation"
	"github.com/KyroDB/kyroql/internal/entity"
	"github.com/KyroDB/kyroql/internal/pattern"
	"github.com/KyroDB/kyroql/internal/timerange"
)

// ErrReadOnly is returned by every mutating method on the read-only store
// wrappers a simulation's overlay is built on (spec §4.6: a simulation
// must never mutate base storage).
type ErrReadOnly struct {
	Op string
}

func (e *ErrReadOnly) Error() string {
	return fmt.Sprintf("simulation: store is read-only: %s", e.Op)
}

// readOnlyEntityStore delegates reads to base and rejects every write.
type readOnlyEntityStore struct {
	base entity.Store
}

var _ entity.Store = (*readOnlyEntityStore)(nil)

func (r *readOnlyEntityStore) Insert(context.Context, entity.Entity) error {
	return &ErrReadOnly{Op: "entity.insert"}
}
func (r *readOnlyEntityStore) Get(ctx context.Context, id confidence.EntityID) (entity.Entity, error) {
	return r.base.Get(ctx, id)
}
func (r *readOnlyEntityStore) Update(context.Context, entity.Entity) error {
	return &ErrReadOnly{Op: "entity.update"}
}
func (r *readOnlyEntityStore) Delete(context.Context, confidence.EntityID) error {
	return &ErrReadOnly{Op: "entity.delete"}
}
func (r *readOnlyEntityStore) FindByName(ctx context.Context, name string) (entity.Entity, error) {
	return r.base.FindByName(ctx, name)
}
func (r *readOnlyEntityStore) FindByNameFuzzy(ctx context.Context, query string, limit int) ([]entity.Entity, error) {
	return r.base.FindByNameFuzzy(ctx, query, limit)
}
func (r *readOnlyEntityStore) FindByEmbedding(ctx context.Context, query []float32, limit int) ([]entity.Entity, error) {
	return r.base.FindByEmbedding(ctx, query, limit)
}
func (r *readOnlyEntityStore) Merge(context.Context, confidence.EntityID, confidence.EntityID) (entity.Entity, error) {
	return entity.Entity{}, &ErrReadOnly{Op: "entity.merge"}
}
func (r *readOnlyEntityStore) GetAtVersion(ctx context.Context, id confidence.EntityID, version uint64) (entity.Entity, error) {
	return r.base.GetAtVersion(ctx, id, version)
}
func (r *readOnlyEntityStore) ListVersions(ctx context.Context, id confidence.EntityID) ([]entity.Entity, error) {
	return r.base.ListVersions(ctx, id)
}

// readOnlyPatternStore delegates reads to base and rejects every write.
type readOnlyPatternStore struct {
	base pattern.Store
}

var _ pattern.Store = (*readOnlyPatternStore)(nil)

func (r *readOnlyPatternStore) Insert(context.Context, pattern.Pattern) error {
	return &ErrReadOnly{Op: "pattern.insert"}
}
func (r *readOnlyPatternStore) Get(ctx context.Context, id confidence.PatternID) (pattern.Pattern, error) {
	return r.base.Get(ctx, id)
}
func (r *readOnlyPatternStore) Update(context.Context, pattern.Pattern) error {
	return &ErrReadOnly{Op: "pattern.update"}
}
func (r *readOnlyPatternStore) Delete(context.Context, confidence.PatternID) error {
	return &ErrReadOnly{Op: "pattern.delete"}
}
func (r *readOnlyPatternStore) FindByPredicate(ctx context.Context, predicate string) ([]pattern.Pattern, error) {
	return r.base.FindByPredicate(ctx, predicate)
}
func (r *readOnlyPatternStore) FindActive(ctx context.Context) ([]pattern.Pattern, error) {
	return r.base.FindActive(ctx)
}

// readOnlyConflictStore delegates reads to base and rejects every write.
type readOnlyConflictStore struct {
	base conflict.Store
}

var _ conflict.Store = (*readOnlyConflictStore)(nil)

func (r *readOnlyConflictStore) Insert(context.Context, conflict.Conflict) error {
	return &ErrReadOnly{Op: "conflict.insert"}
}
func (r *readOnlyConflictStore) Get(ctx context.Context, id confidence.ConflictID) (conflict.Conflict, error) {
	return r.base.Get(ctx, id)
}
func (r *readOnlyConflictStore) Update(context.Context, conflict.Conflict) error {
	return &ErrReadOnly{Op: "conflict.update"}
}
func (r *readOnlyConflictStore) FindByBelief(ctx context.Context, beliefID confidence.BeliefID) ([]conflict.Conflict, error) {
	return r.base.FindByBelief(ctx, beliefID)
}
func (r *readOnlyConflictStore) FindOpen(ctx context.Context, entityID confidence.EntityID) ([]conflict.Conflict, error) {
	return r.base.FindOpen(ctx, entityID)
}

// readOnlyBeliefStore wraps the live belief store so DeltaBeliefStore's
// base is defense-in-depth read-only even before the overlay is consulted.
type readOnlyBeliefStore struct {
	base belief.Store
}

var _ belief.Store = (*readOnlyBeliefStore)(nil)

func (r *readOnlyBeliefStore) Insert(context.Context, belief.Belief) error {
	return &ErrReadOnly{Op: "belief.insert"}
}
func (r *readOnlyBeliefStore) Get(ctx context.Context, id confidence.BeliefID) (belief.Belief, error) {
	return r.base.Get(ctx, id)
}
func (r *readOnlyBeliefStore) Supersede(context.Context, confidence.BeliefID, confidence.BeliefID) error {
	return &ErrReadOnly{Op: "belief.supersede"}
}
func (r *readOnlyBeliefStore) FindByEntity(ctx context.Context, entityID confidence.EntityID) ([]belief.Belief, error) {
	return r.base.FindByEntity(ctx, entityID)
}
func (r *readOnlyBeliefStore) FindByEntityPredicate(ctx context.Context, entityID confidence.EntityID, predicate string) ([]belief.Belief, error) {
	return r.base.FindByEntityPredicate(ctx, entityID, predicate)
}
func (r *readOnlyBeliefStore) FindAsOf(ctx context.Context, entityID confidence.EntityID, predicate string, at time.Time) ([]belief.Belief, error) {
	return r.base.FindAsOf(ctx, entityID, predicate, at)
}
func (r *readOnlyBeliefStore) FindByTimeRange(ctx context.Context, tr timerange.TimeRange) ([]belief.Belief, error) {
	return r.base.FindByTimeRange(ctx, tr)
}
func (r *readOnlyBeliefStore) FindByEmbedding(ctx context.Context, query []float32, limit int, minConfidence *float32) ([]belief.Belief, error) {
	return r.base.FindByEmbedding(ctx, query, limit, minConfidence)
}
func (r *readOnlyBeliefStore) CountByEntity(ctx context.Context, entityID confidence.EntityID) (int, error) {
	return r.base.CountByEntity(ctx, entityID)
}

// readOnlyDerivationStore wraps the live derivation store. A simulation
// never derives new records through RESOLVE, but every store handed to
// the overlay engine is wrapped read-only for defense in depth.
type readOnlyDerivationStore struct {
	base derivation.Store
}

var _ derivation.Store = (*readOnlyDerivationStore)(nil)

func (r *readOnlyDerivationStore) Insert(context.Context, derivation.Record) error {
	return &ErrReadOnly{Op: "derivation.insert"}
}
func (r *readOnlyDerivationStore) Get(ctx context.Context, id confidence.DerivationID) (derivation.Record, error) {
	return r.base.Get(ctx, id)
}
func (r *readOnlyDerivationStore) FindByPremise(ctx context.Context, premiseID confidence.BeliefID) ([]derivation.Record, error) {
	return r.base.FindByPremise(ctx, premiseID)
}
func (r *readOnlyDerivationStore) FindByDerivedBelief(ctx context.Context, beliefID confidence.BeliefID) ([]derivation.Record, error) {
	return r.base.FindByDerivedBelief(ctx, beliefID)
}
