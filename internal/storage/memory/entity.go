package memory

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/KyroDB/kyroql/internal/confidence"
	"github.com/KyroDB/kyroql/internal/entity"
)

const mergeHopLimit = 8

// EntityStore is the in-memory implementation of entity.Store.
type EntityStore struct {
	mu            sync.RWMutex
	byID          map[confidence.EntityID]entity.Entity
	versions      map[confidence.EntityID]map[uint64]entity.Entity
	mergeInto     map[confidence.EntityID]confidence.EntityID
	mergeFrom     map[confidence.EntityID][]confidence.EntityID
	embeddingDim  int
}

// NewEntityStore constructs an empty entity store.
func NewEntityStore() *EntityStore {
	return &EntityStore{
		byID:      make(map[confidence.EntityID]entity.Entity),
		versions:  make(map[confidence.EntityID]map[uint64]entity.Entity),
		mergeInto: make(map[confidence.EntityID]confidence.EntityID),
		mergeFrom: make(map[confidence.EntityID][]confidence.EntityID),
	}
}

func (s *EntityStore) resolveLocked(id confidence.EntityID) (confidence.EntityID, error) {
	cur := id
	for i := 0; i < mergeHopLimit; i++ {
		next, ok := s.mergeInto[cur]
		if !ok {
			return cur, nil
		}
		cur = next
	}
	return confidence.EntityID{}, entity.ErrMergeCycle
}

// Insert adds a new entity, enforcing the store-wide embedding dimension.
func (s *EntityStore) Insert(_ context.Context, e entity.Entity) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.byID[e.ID]; ok {
		return fmt.Errorf("%w: %s", entity.ErrDuplicateKey, e.ID)
	}
	if err := s.checkEmbeddingDimLocked(e.Embedding); err != nil {
		return err
	}
	s.byID[e.ID] = e
	s.versions[e.ID] = map[uint64]entity.Entity{e.Version: e}
	return nil
}

func (s *EntityStore) checkEmbeddingDimLocked(emb []float32) error {
	if len(emb) == 0 {
		return nil
	}
	if s.embeddingDim == 0 {
		s.embeddingDim = len(emb)
		return nil
	}
	if len(emb) != s.embeddingDim {
		return fmt.Errorf("%w: expected %d got %d", entity.ErrEmbeddingDimMismatch, s.embeddingDim, len(emb))
	}
	return nil
}

// Get follows merge redirects to the live primary entity.
func (s *EntityStore) Get(_ context.Context, id confidence.EntityID) (entity.Entity, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	resolved, err := s.resolveLocked(id)
	if err != nil {
		return entity.Entity{}, err
	}
	e, ok := s.byID[resolved]
	if !ok {
		return entity.Entity{}, fmt.Errorf("%w: %s", entity.ErrNotFound, id)
	}
	return e, nil
}

// Update rejects merged-away ids and requires a strictly-increasing version.
func (s *EntityStore) Update(_ context.Context, e entity.Entity) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, merged := s.mergeInto[e.ID]; merged {
		return entity.ErrMergedAway
	}
	existing, ok := s.byID[e.ID]
	if !ok {
		return fmt.Errorf("%w: %s", entity.ErrNotFound, e.ID)
	}
	if e.Version <= existing.Version {
		return entity.ErrVersionNotAdvancing
	}
	if err := s.checkEmbeddingDimLocked(e.Embedding); err != nil {
		return err
	}
	s.byID[e.ID] = e
	if s.versions[e.ID] == nil {
		s.versions[e.ID] = make(map[uint64]entity.Entity)
	}
	s.versions[e.ID][e.Version] = e
	return nil
}

// Delete is forbidden if other entities have merged into id.
func (s *EntityStore) Delete(_ context.Context, id confidence.EntityID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if sources, ok := s.mergeFrom[id]; ok && len(sources) > 0 {
		return entity.ErrHasMergeSources
	}
	if _, ok := s.byID[id]; !ok {
		return fmt.Errorf("%w: %s", entity.ErrNotFound, id)
	}
	delete(s.byID, id)
	delete(s.versions, id)
	return nil
}

// FindByName performs an exact, normalized lookup.
func (s *EntityStore) FindByName(_ context.Context, name string) (entity.Entity, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	norm := entity.NormalizeName(name)
	for _, e := range s.byID {
		if entity.NormalizeName(e.CanonicalName) == norm {
			return e, nil
		}
	}
	return entity.Entity{}, fmt.Errorf("%w: name=%q", entity.ErrNotFound, name)
}

// FindByNameFuzzy ranks candidates prefix > substring > alias-prefix >
// alias-substring, then lexicographic name, then id (spec §4.1).
func (s *EntityStore) FindByNameFuzzy(_ context.Context, query string, limit int) ([]entity.Entity, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	q := entity.NormalizeName(query)
	if q == "" {
		return nil, nil
	}
	matches := make([]entity.FuzzyMatch, 0)
	for _, e := range s.byID {
		name := entity.NormalizeName(e.CanonicalName)
		rank := -1
		switch {
		case strings.HasPrefix(name, q):
			rank = 0
		case strings.Contains(name, q):
			rank = 1
		default:
			for _, a := range e.Aliases {
				an := entity.NormalizeName(a)
				if strings.HasPrefix(an, q) {
					rank = 2
					break
				}
				if strings.Contains(an, q) {
					rank = 3
				}
			}
		}
		if rank >= 0 {
			matches = append(matches, entity.FuzzyMatch{Entity: e, Rank: rank})
		}
	}
	sort.Slice(matches, func(i, j int) bool {
		if matches[i].Rank != matches[j].Rank {
			return matches[i].Rank < matches[j].Rank
		}
		ni := entity.NormalizeName(matches[i].Entity.CanonicalName)
		nj := entity.NormalizeName(matches[j].Entity.CanonicalName)
		if ni != nj {
			return ni < nj
		}
		return matches[i].Entity.ID.String() < matches[j].Entity.ID.String()
	})
	if limit > 0 && len(matches) > limit {
		matches = matches[:limit]
	}
	out := make([]entity.Entity, len(matches))
	for i, m := range matches {
		out[i] = m.Entity
	}
	return out, nil
}

// FindByEmbedding performs an exact cosine-similarity scan, enforcing the
// store-wide embedding dimension.
func (s *EntityStore) FindByEmbedding(_ context.Context, query []float32, limit int) ([]entity.Entity, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.embeddingDim != 0 && len(query) != s.embeddingDim {
		return nil, fmt.Errorf("%w: expected %d got %d", entity.ErrEmbeddingDimMismatch, s.embeddingDim, len(query))
	}
	type scored struct {
		e   entity.Entity
		sim float32
	}
	candidates := make([]scored, 0, len(s.byID))
	for _, e := range s.byID {
		if len(e.Embedding) == 0 {
			continue
		}
		candidates = append(candidates, scored{e: e, sim: cosineSimilarity(query, e.Embedding)})
	}
	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].sim != candidates[j].sim {
			return candidates[i].sim > candidates[j].sim
		}
		return candidates[i].e.ID.String() < candidates[j].e.ID.String()
	})
	if limit > 0 && len(candidates) > limit {
		candidates = candidates[:limit]
	}
	out := make([]entity.Entity, len(candidates))
	for i, c := range candidates {
		out[i] = c.e
	}
	return out, nil
}

// Merge folds secondary into primary: aliases and metadata union, embedding
// becomes the L2-normalized mean, forward/back pointers are recorded, and
// Get(secondary) henceforth resolves to the merged primary.
func (s *EntityStore) Merge(_ context.Context, primary, secondary confidence.EntityID) (entity.Entity, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.byID[primary]
	if !ok {
		return entity.Entity{}, fmt.Errorf("%w: primary %s", entity.ErrNotFound, primary)
	}
	sec, ok := s.byID[secondary]
	if !ok {
		return entity.Entity{}, fmt.Errorf("%w: secondary %s", entity.ErrNotFound, secondary)
	}
	merged := p.WithAliases(sec.CanonicalName)
	merged = merged.WithAliases(sec.Aliases...)
	if merged.Metadata == nil {
		merged.Metadata = make(map[string]any)
	}
	for k, v := range sec.Metadata {
		if _, exists := merged.Metadata[k]; !exists {
			merged.Metadata[k] = v
		}
	}
	if len(p.Embedding) > 0 && len(sec.Embedding) > 0 {
		merged.Embedding = l2NormalizedMean(p.Embedding, sec.Embedding)
	}
	merged.Version = p.Version + 1
	s.byID[primary] = merged
	if s.versions[primary] == nil {
		s.versions[primary] = make(map[uint64]entity.Entity)
	}
	s.versions[primary][merged.Version] = merged

	s.mergeInto[secondary] = primary
	s.mergeFrom[primary] = append(s.mergeFrom[primary], secondary)
	delete(s.byID, secondary)
	return merged, nil
}

// GetAtVersion returns a historical snapshot of an entity.
func (s *EntityStore) GetAtVersion(_ context.Context, id confidence.EntityID, version uint64) (entity.Entity, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	versions, ok := s.versions[id]
	if !ok {
		return entity.Entity{}, fmt.Errorf("%w: %s", entity.ErrNotFound, id)
	}
	e, ok := versions[version]
	if !ok {
		return entity.Entity{}, fmt.Errorf("%w: %s@v%d", entity.ErrNotFound, id, version)
	}
	return e, nil
}

// ListVersions returns every recorded version of an entity, oldest first.
func (s *EntityStore) ListVersions(_ context.Context, id confidence.EntityID) ([]entity.Entity, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	versions, ok := s.versions[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", entity.ErrNotFound, id)
	}
	out := make([]entity.Entity, 0, len(versions))
	for _, e := range versions {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Version < out[j].Version })
	return out, nil
}

// All returns every live (non-merged-away) entity, for snapshotting.
func (s *EntityStore) All(_ context.Context) ([]entity.Entity, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]entity.Entity, 0, len(s.byID))
	for _, e := range s.byID {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID.String() < out[j].ID.String() })
	return out, nil
}

// Restore loads a previously-snapshotted entity directly, bypassing
// Insert's duplicate-key check. Used only when rebuilding a store from a
// segment snapshot during recovery.
func (s *EntityStore) Restore(e entity.Entity) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.byID[e.ID] = e
	if s.versions[e.ID] == nil {
		s.versions[e.ID] = make(map[uint64]entity.Entity)
	}
	s.versions[e.ID][e.Version] = e
	if err := s.checkEmbeddingDimLocked(e.Embedding); err != nil {
		_ = err
	}
}

// RestoreMerge records a merge redirect during recovery without replaying
// the full Merge mutation logic.
func (s *EntityStore) RestoreMerge(primary, secondary confidence.EntityID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.mergeInto[secondary] = primary
	s.mergeFrom[primary] = append(s.mergeFrom[primary], secondary)
	delete(s.byID, secondary)
}
