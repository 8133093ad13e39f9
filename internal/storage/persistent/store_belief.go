package persistent

import (
	"context"
	"time"

	"github.com/KyroDB/kyroql/internal/belief"
	"github.com/KyroDB/kyroql/internal/confidence"
	"github.com/KyroDB/kyroql/internal/storage/memory"
	"github.com/KyroDB/kyroql/internal/timerange"
)

// beliefSupersedePayload is the WAL data shape for EntryBeliefSupersede.
type beliefSupersedePayload struct {
	Old confidence.BeliefID `json:"old"`
	New confidence.BeliefID `json:"new"`
}

// BeliefStore wraps an in-memory belief.Store with WAL logging.
type BeliefStore struct {
	inner *memory.BeliefStore
	wal   *WAL
}

// NewBeliefStore constructs a BeliefStore without a WAL attached.
func NewBeliefStore(inner *memory.BeliefStore) *BeliefStore {
	return &BeliefStore{inner: inner}
}

// SetWAL attaches the write-ahead log this store appends to.
func (s *BeliefStore) SetWAL(w *WAL) { s.wal = w }

// Inner returns the underlying in-memory store, for recovery and snapshotting.
func (s *BeliefStore) Inner() *memory.BeliefStore { return s.inner }

var _ belief.Store = (*BeliefStore)(nil)

func (s *BeliefStore) Insert(ctx context.Context, b belief.Belief) error {
	if err := s.inner.Insert(ctx, b); err != nil {
		return err
	}
	_, err := s.wal.Append(EntryBeliefInsert, b)
	return err
}

func (s *BeliefStore) Get(ctx context.Context, id confidence.BeliefID) (belief.Belief, error) {
	return s.inner.Get(ctx, id)
}

func (s *BeliefStore) Supersede(ctx context.Context, old, new confidence.BeliefID) error {
	if err := s.inner.Supersede(ctx, old, new); err != nil {
		return err
	}
	_, err := s.wal.Append(EntryBeliefSupersede, beliefSupersedePayload{Old: old, New: new})
	return err
}

func (s *BeliefStore) FindByEntity(ctx context.Context, entityID confidence.EntityID) ([]belief.Belief, error) {
	return s.inner.FindByEntity(ctx, entityID)
}

func (s *BeliefStore) FindByEntityPredicate(ctx context.Context, entityID confidence.EntityID, predicate string) ([]belief.Belief, error) {
	return s.inner.FindByEntityPredicate(ctx, entityID, predicate)
}

func (s *BeliefStore) FindAsOf(ctx context.Context, entityID confidence.EntityID, predicate string, at time.Time) ([]belief.Belief, error) {
	return s.inner.FindAsOf(ctx, entityID, predicate, at)
}

func (s *BeliefStore) FindByTimeRange(ctx context.Context, tr timerange.TimeRange) ([]belief.Belief, error) {
	return s.inner.FindByTimeRange(ctx, tr)
}

func (s *BeliefStore) FindByEmbedding(ctx context.Context, query []float32, limit int, minConfidence *float32) ([]belief.Belief, error) {
	return s.inner.FindByEmbedding(ctx, query, limit, minConfidence)
}

func (s *BeliefStore) CountByEntity(ctx context.Context, entityID confidence.EntityID) (int, error) {
	return s.inner.CountByEntity(ctx, entityID)
}
