package simulation

import (
	"sort"

	"github.com/KyroDB/kyroql/internal/belief"
	"github.com/KyroDB/kyroql/internal/conflict"
	"github.com/KyroDB/kyroql/internal/confidence"
	"github.com/KyroDB/kyroql/internal/derivation"
	"github.com/KyroDB/kyroql/internal/entity"
	"github.com/KyroDB/kyroql/internal/pattern"
)

// BaseStores bundles the live stores a simulation treats as an immutable
// substrate (spec §4.6). Corresponds to SimulationBaseStores.
type BaseStores struct {
	Entities    entity.Store
	Beliefs     belief.Store
	Patterns    pattern.Store
	Conflicts   conflict.Store
	Derivations derivation.Store
}

// Impact summarizes overlay changes: affected entities, inserted belief
// ids, and recorded supersede pairs.
type Impact struct {
	AffectedEntities   []confidence.EntityID
	InsertedBeliefIDs  []confidence.BeliefID
	Supersedes         []SupersedePair
}

// SupersedePair records an overlay old->new belief supersede marker.
type SupersedePair struct {
	Old confidence.BeliefID
	New confidence.BeliefID
}

// DeltaStore bundles the five overlay store views a simulation's engine
// reads and writes through: entities/patterns/conflicts/derivations are
// read-only, beliefs is the write overlay.
type DeltaStore struct {
	entities    *readOnlyEntityStore
	beliefs     *deltaBeliefStore
	patterns    *readOnlyPatternStore
	conflicts   *readOnlyConflictStore
	derivations *readOnlyDerivationStore
}

// NewDeltaStore builds an overlay atop base, bounded by constraints.
func NewDeltaStore(base BaseStores, constraints Constraints) *DeltaStore {
	roBeliefs := &readOnlyBeliefStore{base: base.Beliefs}
	return &DeltaStore{
		entities:    &readOnlyEntityStore{base: base.Entities},
		beliefs:     newDeltaBeliefStore(roBeliefs, constraints),
		patterns:    &readOnlyPatternStore{base: base.Patterns},
		conflicts:   &readOnlyConflictStore{base: base.Conflicts},
		derivations: &readOnlyDerivationStore{base: base.Derivations},
	}
}

func (d *DeltaStore) Entities() entity.Store       { return d.entities }
func (d *DeltaStore) Beliefs() belief.Store         { return d.beliefs }
func (d *DeltaStore) Patterns() pattern.Store       { return d.patterns }
func (d *DeltaStore) Conflicts() conflict.Store     { return d.conflicts }
func (d *DeltaStore) Derivations() derivation.Store { return d.derivations }

// ImpactDetails returns a deterministic snapshot of overlay impact,
// derived solely from overlay state.
func (d *DeltaStore) ImpactDetails() Impact {
	d.beliefs.mu.RLock()
	defer d.beliefs.mu.RUnlock()

	entities := make([]confidence.EntityID, 0, len(d.beliefs.state.affectedEntities))
	for id := range d.beliefs.state.affectedEntities {
		entities = append(entities, id)
	}
	sort.Slice(entities, func(i, j int) bool { return entities[i].String() < entities[j].String() })

	ids := make([]confidence.BeliefID, 0, len(d.beliefs.state.inserted))
	for id := range d.beliefs.state.inserted {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i].String() < ids[j].String() })

	pairs := make([]SupersedePair, 0, len(d.beliefs.state.superseded))
	for old, newID := range d.beliefs.state.superseded {
		pairs = append(pairs, SupersedePair{Old: old, New: newID})
	}
	sort.Slice(pairs, func(i, j int) bool {
		if pairs[i].Old.String() != pairs[j].Old.String() {
			return pairs[i].Old.String() < pairs[j].Old.String()
		}
		return pairs[i].New.String() < pairs[j].New.String()
	})

	return Impact{AffectedEntities: entities, InsertedBeliefIDs: ids, Supersedes: pairs}
}

// OverlaySnapshot returns every belief the overlay holds plus its
// supersede markers, for "commit overlay" workflows that graduate a
// simulation's delta into base storage. Read-only; never touches base.
func (d *DeltaStore) OverlaySnapshot() ([]belief.Belief, []SupersedePair) {
	d.beliefs.mu.RLock()
	defer d.beliefs.mu.RUnlock()

	beliefs := make([]belief.Belief, 0, len(d.beliefs.state.inserted))
	for _, b := range d.beliefs.state.inserted {
		beliefs = append(beliefs, b)
	}
	sort.Slice(beliefs, func(i, j int) bool { return beliefs[i].ID.String() < beliefs[j].ID.String() })

	pairs := make([]SupersedePair, 0, len(d.beliefs.state.superseded))
	for old, newID := range d.beliefs.state.superseded {
		pairs = append(pairs, SupersedePair{Old: old, New: newID})
	}
	sort.Slice(pairs, func(i, j int) bool {
		if pairs[i].Old.String() != pairs[j].Old.String() {
			return pairs[i].Old.String() < pairs[j].Old.String()
		}
		return pairs[i].New.String() < pairs[j].New.String()
	})

	return beliefs, pairs
}

// Clear discards all overlay state. Called once by SimulationContext.Close.
func (d *DeltaStore) Clear() {
	d.beliefs.clear()
}
