package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/KyroDB/kyroql/internal/confidence"
	"github.com/KyroDB/kyroql/internal/conflict"
)

// ConflictStore is the in-memory implementation of conflict.Store.
type ConflictStore struct {
	mu       sync.RWMutex
	byID     map[confidence.ConflictID]conflict.Conflict
	byBelief map[confidence.BeliefID][]confidence.ConflictID
}

// NewConflictStore constructs an empty conflict store.
func NewConflictStore() *ConflictStore {
	return &ConflictStore{
		byID:     make(map[confidence.ConflictID]conflict.Conflict),
		byBelief: make(map[confidence.BeliefID][]confidence.ConflictID),
	}
}

func (s *ConflictStore) indexLocked(c conflict.Conflict) {
	for _, bid := range c.BeliefIDs {
		s.byBelief[bid] = append(s.byBelief[bid], c.ID)
	}
}

// Insert adds a new conflict and indexes it by every cited belief.
func (s *ConflictStore) Insert(_ context.Context, c conflict.Conflict) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.byID[c.ID] = c
	s.indexLocked(c)
	return nil
}

// Get returns a conflict by id.
func (s *ConflictStore) Get(_ context.Context, id confidence.ConflictID) (conflict.Conflict, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.byID[id]
	if !ok {
		return conflict.Conflict{}, fmt.Errorf("%w: %s", conflict.ErrNotFound, id)
	}
	return c, nil
}

// Update replaces a conflict, reindexing if its belief set changed.
func (s *ConflictStore) Update(_ context.Context, c conflict.Conflict) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.byID[c.ID]; !ok {
		return fmt.Errorf("%w: %s", conflict.ErrNotFound, c.ID)
	}
	s.byID[c.ID] = c
	for bid, ids := range s.byBelief {
		filtered := ids[:0]
		for _, id := range ids {
			if id != c.ID {
				filtered = append(filtered, id)
			}
		}
		s.byBelief[bid] = filtered
	}
	s.indexLocked(c)
	return nil
}

// FindByBelief returns conflicts citing beliefID.
func (s *ConflictStore) FindByBelief(_ context.Context, beliefID confidence.BeliefID) ([]conflict.Conflict, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := s.byBelief[beliefID]
	out := make([]conflict.Conflict, 0, len(ids))
	for _, id := range ids {
		out = append(out, s.byID[id])
	}
	return out, nil
}

// FindOpen returns open conflicts for an entity.
func (s *ConflictStore) FindOpen(_ context.Context, entityID confidence.EntityID) ([]conflict.Conflict, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]conflict.Conflict, 0)
	for _, c := range s.byID {
		if c.EntityID == entityID && c.Status == conflict.StatusOpen {
			out = append(out, c)
		}
	}
	return out, nil
}

// All returns every conflict, for snapshotting.
func (s *ConflictStore) All(_ context.Context) ([]conflict.Conflict, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]conflict.Conflict, 0, len(s.byID))
	for _, c := range s.byID {
		out = append(out, c)
	}
	return out, nil
}

// Restore loads a previously-snapshotted conflict directly. Used only when
// rebuilding a store from a segment snapshot during recovery.
func (s *ConflictStore) Restore(c conflict.Conflict) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.byID[c.ID] = c
	s.indexLocked(c)
}
