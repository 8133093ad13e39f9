package persistent

import (
	"context"

	"github.com/KyroDB/kyroql/internal/confidence"
	"github.com/KyroDB/kyroql/internal/derivation"
	"github.com/KyroDB/kyroql/internal/storage/memory"
)

// DerivationStore wraps an in-memory derivation.Store with WAL logging.
type DerivationStore struct {
	inner *memory.DerivationStore
	wal   *WAL
}

// NewDerivationStore constructs a DerivationStore without a WAL attached.
func NewDerivationStore(inner *memory.DerivationStore) *DerivationStore {
	return &DerivationStore{inner: inner}
}

// SetWAL attaches the write-ahead log this store appends to.
func (s *DerivationStore) SetWAL(w *WAL) { s.wal = w }

// Inner returns the underlying in-memory store, for recovery and snapshotting.
func (s *DerivationStore) Inner() *memory.DerivationStore { return s.inner }

var _ derivation.Store = (*DerivationStore)(nil)

func (s *DerivationStore) Insert(ctx context.Context, r derivation.Record) error {
	if err := s.inner.Insert(ctx, r); err != nil {
		return err
	}
	_, err := s.wal.Append(EntryDerivationInsert, r)
	return err
}

func (s *DerivationStore) Get(ctx context.Context, id confidence.DerivationID) (derivation.Record, error) {
	return s.inner.Get(ctx, id)
}

func (s *DerivationStore) FindByPremise(ctx context.Context, premiseID confidence.BeliefID) ([]derivation.Record, error) {
	return s.inner.FindByPremise(ctx, premiseID)
}

func (s *DerivationStore) FindByDerivedBelief(ctx context.Context, beliefID confidence.BeliefID) ([]derivation.Record, error) {
	return s.inner.FindByDerivedBelief(ctx, beliefID)
}
