package persistent

import (
	"context"

	"github.com/KyroDB/kyroql/internal/confidence"
	"github.com/KyroDB/kyroql/internal/conflict"
	"github.com/KyroDB/kyroql/internal/storage/memory"
)

// ConflictStore wraps an in-memory conflict.Store with WAL logging.
type ConflictStore struct {
	inner *memory.ConflictStore
	wal   *WAL
}

// NewConflictStore constructs a ConflictStore without a WAL attached.
func NewConflictStore(inner *memory.ConflictStore) *ConflictStore {
	return &ConflictStore{inner: inner}
}

// SetWAL attaches the write-ahead log this store appends to.
func (s *ConflictStore) SetWAL(w *WAL) { s.wal = w }

// Inner returns the underlying in-memory store, for recovery and snapshotting.
func (s *ConflictStore) Inner() *memory.ConflictStore { return s.inner }

var _ conflict.Store = (*ConflictStore)(nil)

func (s *ConflictStore) Insert(ctx context.Context, c conflict.Conflict) error {
	if err := s.inner.Insert(ctx, c); err != nil {
		return err
	}
	_, err := s.wal.Append(EntryConflictInsert, c)
	return err
}

func (s *ConflictStore) Get(ctx context.Context, id confidence.ConflictID) (conflict.Conflict, error) {
	return s.inner.Get(ctx, id)
}

func (s *ConflictStore) Update(ctx context.Context, c conflict.Conflict) error {
	if err := s.inner.Update(ctx, c); err != nil {
		return err
	}
	_, err := s.wal.Append(EntryConflictUpdate, c)
	return err
}

func (s *ConflictStore) FindByBelief(ctx context.Context, beliefID confidence.BeliefID) ([]conflict.Conflict, error) {
	return s.inner.FindByBelief(ctx, beliefID)
}

func (s *ConflictStore) FindOpen(ctx context.Context, entityID confidence.EntityID) ([]conflict.Conflict, error) {
	return s.inner.FindOpen(ctx, entityID)
}
