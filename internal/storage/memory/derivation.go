package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/KyroDB/kyroql/internal/confidence"
	"github.com/KyroDB/kyroql/internal/derivation"
)

// DerivationStore is the in-memory implementation of derivation.Store.
type DerivationStore struct {
	mu            sync.RWMutex
	byID          map[confidence.DerivationID]derivation.Record
	byPremise     map[confidence.BeliefID][]confidence.DerivationID
	byDerived     map[confidence.BeliefID][]confidence.DerivationID
}

// NewDerivationStore constructs an empty derivation store.
func NewDerivationStore() *DerivationStore {
	return &DerivationStore{
		byID:      make(map[confidence.DerivationID]derivation.Record),
		byPremise: make(map[confidence.BeliefID][]confidence.DerivationID),
		byDerived: make(map[confidence.BeliefID][]confidence.DerivationID),
	}
}

// Insert adds a new derivation record.
func (s *DerivationStore) Insert(_ context.Context, r derivation.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.byID[r.ID] = r
	for _, p := range r.PremiseIDs {
		s.byPremise[p] = append(s.byPremise[p], r.ID)
	}
	if r.DerivedBeliefID != nil {
		s.byDerived[*r.DerivedBeliefID] = append(s.byDerived[*r.DerivedBeliefID], r.ID)
	}
	return nil
}

// Get returns a derivation record by id.
func (s *DerivationStore) Get(_ context.Context, id confidence.DerivationID) (derivation.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.byID[id]
	if !ok {
		return derivation.Record{}, fmt.Errorf("%w: %s", derivation.ErrNotFound, id)
	}
	return r, nil
}

// FindByPremise returns records that cite beliefID as a premise.
func (s *DerivationStore) FindByPremise(_ context.Context, beliefID confidence.BeliefID) ([]derivation.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := s.byPremise[beliefID]
	out := make([]derivation.Record, 0, len(ids))
	for _, id := range ids {
		out = append(out, s.byID[id])
	}
	return out, nil
}

// FindByDerivedBelief returns records whose derived belief is beliefID.
func (s *DerivationStore) FindByDerivedBelief(_ context.Context, beliefID confidence.BeliefID) ([]derivation.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := s.byDerived[beliefID]
	out := make([]derivation.Record, 0, len(ids))
	for _, id := range ids {
		out = append(out, s.byID[id])
	}
	return out, nil
}

// All returns every derivation record, for snapshotting.
func (s *DerivationStore) All(_ context.Context) ([]derivation.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]derivation.Record, 0, len(s.byID))
	for _, r := range s.byID {
		out = append(out, r)
	}
	return out, nil
}

// Restore loads a previously-snapshotted derivation record directly. Used
// only when rebuilding a store from a segment snapshot during recovery.
func (s *DerivationStore) Restore(r derivation.Record) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.byID[r.ID] = r
	for _, p := range r.PremiseIDs {
		s.byPremise[p] = append(s.byPremise[p], r.ID)
	}
	if r.DerivedBeliefID != nil {
		s.byDerived[*r.DerivedBeliefID] = append(s.byDerived[*r.DerivedBeliefID], r.ID)
	}
}
