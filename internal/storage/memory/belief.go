package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/KyroDB/kyroql/internal/belief"
	"github.com/KyroDB/kyroql/internal/confidence"
	"github.com/KyroDB/kyroql/internal/timerange"
)

// BeliefStore is the in-memory implementation of belief.Store.
type BeliefStore struct {
	mu              sync.RWMutex
	byID            map[confidence.BeliefID]belief.Belief
	byEntity        map[confidence.EntityID][]confidence.BeliefID
	byEntityPred    map[confidence.EntityID]map[string][]confidence.BeliefID
}

// NewBeliefStore constructs an empty belief store.
func NewBeliefStore() *BeliefStore {
	return &BeliefStore{
		byID:         make(map[confidence.BeliefID]belief.Belief),
		byEntity:     make(map[confidence.EntityID][]confidence.BeliefID),
		byEntityPred: make(map[confidence.EntityID]map[string][]confidence.BeliefID),
	}
}

// Insert adds a new belief; duplicate ids are rejected.
func (s *BeliefStore) Insert(_ context.Context, b belief.Belief) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.byID[b.ID]; ok {
		return fmt.Errorf("%w: %s", belief.ErrDuplicateKey, b.ID)
	}
	s.byID[b.ID] = b
	s.byEntity[b.Subject] = append(s.byEntity[b.Subject], b.ID)
	if s.byEntityPred[b.Subject] == nil {
		s.byEntityPred[b.Subject] = make(map[string][]confidence.BeliefID)
	}
	s.byEntityPred[b.Subject][b.Predicate] = append(s.byEntityPred[b.Subject][b.Predicate], b.ID)
	return nil
}

// Get returns a belief by id.
func (s *BeliefStore) Get(_ context.Context, id confidence.BeliefID) (belief.Belief, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	b, ok := s.byID[id]
	if !ok {
		return belief.Belief{}, fmt.Errorf("%w: %s", belief.ErrNotFound, id)
	}
	return b, nil
}

// Supersede points old at new and clamps old's valid_time end. Idempotent if
// already set to the same new; rejects self-supersede and superseding an
// already-superseded-by-something-else belief.
func (s *BeliefStore) Supersede(_ context.Context, old, new confidence.BeliefID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if old == new {
		return belief.ErrSelfSupersede
	}
	oldB, ok := s.byID[old]
	if !ok {
		return fmt.Errorf("%w: %s", belief.ErrNotFound, old)
	}
	newB, ok := s.byID[new]
	if !ok {
		return fmt.Errorf("%w: %s", belief.ErrNotFound, new)
	}
	if oldB.SupersededBy != nil {
		if *oldB.SupersededBy == new {
			return nil
		}
		return belief.ErrAlreadySupersededByOther
	}

	closeAt := newB.TxTime
	if oldB.ValidTime.From.After(closeAt) {
		closeAt = oldB.ValidTime.From
	}
	clamped := closeAt
	if oldB.ValidTime.To != nil && oldB.ValidTime.To.Before(clamped) {
		clamped = *oldB.ValidTime.To
	}
	oldB.ValidTime = timerange.TimeRange{From: oldB.ValidTime.From, To: &clamped}
	oldB.SupersededBy = &new
	newB.Supersedes = &old

	s.byID[old] = oldB
	s.byID[new] = newB
	return nil
}

// FindByEntity returns all beliefs for an entity, unordered contract-wise
// (callers sort as needed); this implementation returns tx_time descending.
func (s *BeliefStore) FindByEntity(_ context.Context, entityID confidence.EntityID) ([]belief.Belief, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := s.byEntity[entityID]
	out := make([]belief.Belief, 0, len(ids))
	for _, id := range ids {
		out = append(out, s.byID[id])
	}
	sort.Slice(out, func(i, j int) bool { return out[i].TxTime.After(out[j].TxTime) })
	return out, nil
}

// FindByEntityPredicate returns beliefs for (entity,predicate) sorted newest
// tx_time first (spec §4.1).
func (s *BeliefStore) FindByEntityPredicate(_ context.Context, entityID confidence.EntityID, predicate string) ([]belief.Belief, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := s.byEntityPred[entityID][predicate]
	out := make([]belief.Belief, 0, len(ids))
	for _, id := range ids {
		out = append(out, s.byID[id])
	}
	sort.Slice(out, func(i, j int) bool { return out[i].TxTime.After(out[j].TxTime) })
	return out, nil
}

// FindAsOf returns beliefs for (entity,predicate) valid at t.
func (s *BeliefStore) FindAsOf(_ context.Context, entityID confidence.EntityID, predicate string, at time.Time) ([]belief.Belief, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := s.byEntityPred[entityID][predicate]
	out := make([]belief.Belief, 0, len(ids))
	for _, id := range ids {
		b := s.byID[id]
		if b.IsValidAt(at) {
			out = append(out, b)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].TxTime.After(out[j].TxTime) })
	return out, nil
}

// FindByTimeRange returns beliefs whose valid_time overlaps tr.
func (s *BeliefStore) FindByTimeRange(_ context.Context, tr timerange.TimeRange) ([]belief.Belief, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]belief.Belief, 0)
	for _, b := range s.byID {
		if b.ValidTime.Overlaps(tr) {
			out = append(out, b)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].TxTime.After(out[j].TxTime) })
	return out, nil
}

// FindByEmbedding performs an exact cosine-similarity scan with an optional
// minimum confidence filter.
func (s *BeliefStore) FindByEmbedding(_ context.Context, query []float32, limit int, minConfidence *float32) ([]belief.Belief, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	type scored struct {
		b   belief.Belief
		sim float32
	}
	candidates := make([]scored, 0)
	for _, b := range s.byID {
		if len(b.Embedding) == 0 {
			continue
		}
		if minConfidence != nil && b.Confidence.Value < *minConfidence {
			continue
		}
		candidates = append(candidates, scored{b: b, sim: cosineSimilarity(query, b.Embedding)})
	}
	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].sim != candidates[j].sim {
			return candidates[i].sim > candidates[j].sim
		}
		return candidates[i].b.ID.String() < candidates[j].b.ID.String()
	})
	if limit > 0 && len(candidates) > limit {
		candidates = candidates[:limit]
	}
	out := make([]belief.Belief, len(candidates))
	for i, c := range candidates {
		out[i] = c.b
	}
	return out, nil
}

// CountByEntity counts all beliefs (active and historical) for an entity.
func (s *BeliefStore) CountByEntity(_ context.Context, entityID confidence.EntityID) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.byEntity[entityID]), nil
}

// All returns every belief, for snapshotting.
func (s *BeliefStore) All(_ context.Context) ([]belief.Belief, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]belief.Belief, 0, len(s.byID))
	for _, b := range s.byID {
		out = append(out, b)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID.String() < out[j].ID.String() })
	return out, nil
}

// Restore loads a previously-snapshotted belief directly, bypassing
// Insert's duplicate-key check. Used only when rebuilding a store from a
// segment snapshot during recovery.
func (s *BeliefStore) Restore(b belief.Belief) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.byID[b.ID] = b
	s.byEntity[b.Subject] = append(s.byEntity[b.Subject], b.ID)
	if s.byEntityPred[b.Subject] == nil {
		s.byEntityPred[b.Subject] = make(map[string][]confidence.BeliefID)
	}
	s.byEntityPred[b.Subject][b.Predicate] = append(s.byEntityPred[b.Subject][b.Predicate], b.ID)
}
