package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/KyroDB/kyroql/internal/confidence"
	"github.com/KyroDB/kyroql/internal/pattern"
)

// PatternStore is the in-memory implementation of pattern.Store.
type PatternStore struct {
	mu          sync.RWMutex
	byID        map[confidence.PatternID]pattern.Pattern
	byPredicate map[string][]confidence.PatternID
}

// NewPatternStore constructs an empty pattern store.
func NewPatternStore() *PatternStore {
	return &PatternStore{
		byID:        make(map[confidence.PatternID]pattern.Pattern),
		byPredicate: make(map[string][]confidence.PatternID),
	}
}

func (s *PatternStore) indexLocked(p pattern.Pattern) {
	for _, pred := range p.Rule.Predicates() {
		s.byPredicate[pred] = append(s.byPredicate[pred], p.ID)
	}
}

// Insert adds a new pattern and indexes it by every predicate its rule
// declares.
func (s *PatternStore) Insert(_ context.Context, p pattern.Pattern) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.byID[p.ID] = p
	s.indexLocked(p)
	return nil
}

// Get returns a pattern by id.
func (s *PatternStore) Get(_ context.Context, id confidence.PatternID) (pattern.Pattern, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.byID[id]
	if !ok {
		return pattern.Pattern{}, fmt.Errorf("%w: %s", pattern.ErrNotFound, id)
	}
	return p, nil
}

// Update replaces a pattern and reindexes its predicate set.
func (s *PatternStore) Update(_ context.Context, p pattern.Pattern) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.byID[p.ID]; !ok {
		return fmt.Errorf("%w: %s", pattern.ErrNotFound, p.ID)
	}
	s.byID[p.ID] = p
	for pred, ids := range s.byPredicate {
		filtered := ids[:0]
		for _, id := range ids {
			if id != p.ID {
				filtered = append(filtered, id)
			}
		}
		s.byPredicate[pred] = filtered
	}
	s.indexLocked(p)
	return nil
}

// Delete removes a pattern.
func (s *PatternStore) Delete(_ context.Context, id confidence.PatternID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.byID[id]; !ok {
		return fmt.Errorf("%w: %s", pattern.ErrNotFound, id)
	}
	delete(s.byID, id)
	for pred, ids := range s.byPredicate {
		filtered := ids[:0]
		for _, pid := range ids {
			if pid != id {
				filtered = append(filtered, pid)
			}
		}
		s.byPredicate[pred] = filtered
	}
	return nil
}

// FindByPredicate returns every pattern indexed under predicate.
func (s *PatternStore) FindByPredicate(_ context.Context, predicate string) ([]pattern.Pattern, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := s.byPredicate[predicate]
	out := make([]pattern.Pattern, 0, len(ids))
	for _, id := range ids {
		out = append(out, s.byID[id])
	}
	return out, nil
}

// FindActive returns every active pattern.
func (s *PatternStore) FindActive(_ context.Context) ([]pattern.Pattern, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]pattern.Pattern, 0)
	for _, p := range s.byID {
		if p.Active {
			out = append(out, p)
		}
	}
	return out, nil
}

// All returns every pattern, for snapshotting.
func (s *PatternStore) All(_ context.Context) ([]pattern.Pattern, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]pattern.Pattern, 0, len(s.byID))
	for _, p := range s.byID {
		out = append(out, p)
	}
	return out, nil
}

// Restore loads a previously-snapshotted pattern directly. Used only when
// rebuilding a store from a segment snapshot during recovery.
func (s *PatternStore) Restore(p pattern.Pattern) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.byID[p.ID] = p
	s.indexLocked(p)
}
