package persistent

import (
	"context"

	"github.com/KyroDB/kyroql/internal/confidence"
	"github.com/KyroDB/kyroql/internal/pattern"
	"github.com/KyroDB/kyroql/internal/storage/memory"
)

type patternDeletePayload struct {
	ID confidence.PatternID `json:"id"`
}

// PatternStore wraps an in-memory pattern.Store with WAL logging.
type PatternStore struct {
	inner *memory.PatternStore
	wal   *WAL
}

// NewPatternStore constructs a PatternStore without a WAL attached.
func NewPatternStore(inner *memory.PatternStore) *PatternStore {
	return &PatternStore{inner: inner}
}

// SetWAL attaches the write-ahead log this store appends to.
func (s *PatternStore) SetWAL(w *WAL) { s.wal = w }

// Inner returns the underlying in-memory store, for recovery and snapshotting.
func (s *PatternStore) Inner() *memory.PatternStore { return s.inner }

var _ pattern.Store = (*PatternStore)(nil)

func (s *PatternStore) Insert(ctx context.Context, p pattern.Pattern) error {
	if err := s.inner.Insert(ctx, p); err != nil {
		return err
	}
	_, err := s.wal.Append(EntryPatternInsert, p)
	return err
}

func (s *PatternStore) Get(ctx context.Context, id confidence.PatternID) (pattern.Pattern, error) {
	return s.inner.Get(ctx, id)
}

func (s *PatternStore) Update(ctx context.Context, p pattern.Pattern) error {
	if err := s.inner.Update(ctx, p); err != nil {
		return err
	}
	_, err := s.wal.Append(EntryPatternUpdate, p)
	return err
}

func (s *PatternStore) Delete(ctx context.Context, id confidence.PatternID) error {
	if err := s.inner.Delete(ctx, id); err != nil {
		return err
	}
	_, err := s.wal.Append(EntryPatternDelete, patternDeletePayload{ID: id})
	return err
}

func (s *PatternStore) FindByPredicate(ctx context.Context, predicate string) ([]pattern.Pattern, error) {
	return s.inner.FindByPredicate(ctx, predicate)
}

func (s *PatternStore) FindActive(ctx context.Context) ([]pattern.Pattern, error) {
	return s.inner.FindActive(ctx)
}
