package persistent

import (
	"context"

	"github.com/KyroDB/kyroql/internal/confidence"
	"github.com/KyroDB/kyroql/internal/entity"
	"github.com/KyroDB/kyroql/internal/storage/memory"
)

// entityMergePayload is the WAL data shape for EntryEntityMerge.
type entityMergePayload struct {
	Primary   confidence.EntityID `json:"primary"`
	Secondary confidence.EntityID `json:"secondary"`
}

// entityDeletePayload is the WAL data shape for EntryEntityDelete.
type entityDeletePayload struct {
	ID confidence.EntityID `json:"id"`
}

// EntityStore wraps an in-memory entity.Store with WAL logging, so every
// mutation is durable before it returns.
type EntityStore struct {
	inner *memory.EntityStore
	wal   *WAL
}

// NewEntityStore constructs an EntityStore without a WAL attached; Open
// attaches one once the WAL file has been opened.
func NewEntityStore(inner *memory.EntityStore) *EntityStore {
	return &EntityStore{inner: inner}
}

// SetWAL attaches the write-ahead log this store appends to.
func (s *EntityStore) SetWAL(w *WAL) { s.wal = w }

// Inner returns the underlying in-memory store, for recovery and snapshotting.
func (s *EntityStore) Inner() *memory.EntityStore { return s.inner }

var _ entity.Store = (*EntityStore)(nil)

func (s *EntityStore) Insert(ctx context.Context, e entity.Entity) error {
	if err := s.inner.Insert(ctx, e); err != nil {
		return err
	}
	_, err := s.wal.Append(EntryEntityInsert, e)
	return err
}

func (s *EntityStore) Get(ctx context.Context, id confidence.EntityID) (entity.Entity, error) {
	return s.inner.Get(ctx, id)
}

func (s *EntityStore) Update(ctx context.Context, e entity.Entity) error {
	if err := s.inner.Update(ctx, e); err != nil {
		return err
	}
	_, err := s.wal.Append(EntryEntityUpdate, e)
	return err
}

func (s *EntityStore) Delete(ctx context.Context, id confidence.EntityID) error {
	if err := s.inner.Delete(ctx, id); err != nil {
		return err
	}
	_, err := s.wal.Append(EntryEntityDelete, entityDeletePayload{ID: id})
	return err
}

func (s *EntityStore) FindByName(ctx context.Context, name string) (entity.Entity, error) {
	return s.inner.FindByName(ctx, name)
}

func (s *EntityStore) FindByNameFuzzy(ctx context.Context, query string, limit int) ([]entity.Entity, error) {
	return s.inner.FindByNameFuzzy(ctx, query, limit)
}

func (s *EntityStore) FindByEmbedding(ctx context.Context, query []float32, limit int) ([]entity.Entity, error) {
	return s.inner.FindByEmbedding(ctx, query, limit)
}

func (s *EntityStore) Merge(ctx context.Context, primary, secondary confidence.EntityID) (entity.Entity, error) {
	merged, err := s.inner.Merge(ctx, primary, secondary)
	if err != nil {
		return entity.Entity{}, err
	}
	if _, err := s.wal.Append(EntryEntityMerge, entityMergePayload{Primary: primary, Secondary: secondary}); err != nil {
		return entity.Entity{}, err
	}
	return merged, nil
}

func (s *EntityStore) GetAtVersion(ctx context.Context, id confidence.EntityID, version uint64) (entity.Entity, error) {
	return s.inner.GetAtVersion(ctx, id, version)
}

func (s *EntityStore) ListVersions(ctx context.Context, id confidence.EntityID) ([]entity.Entity, error) {
	return s.inner.ListVersions(ctx, id)
}
