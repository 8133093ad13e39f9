// Package simulation implements counterfactual reasoning: an isolated
// write overlay (DeltaStore) on top of the live stores, and a bounded
// SimulationContext enforcing a hard wall-clock deadline and nesting
// depth so hypothetical reasoning can never leak into or starve live
// storage (spec §4.6).
//
// Grounded on original_source/src/simulation/{mod,context,delta_store,
// delta_index}.rs: SimulationBaseStores, DeltaStore's read-only wrappers
// plus overlay BeliefStore, DeltaVectorIndex's exact-scan cosine search,
// and SimulationContext's deadline/nesting_level/remaining_depth fields
// and spawn_child semantics, translated from Drop-based teardown to an
// explicit Close().
package simulation

import "fmt"

// Constraints bounds a simulation's resource usage (spec §4.6). It plays
// the role of the original's SimulateConstraints.
type Constraints struct {
	MaxAffectedEntities int
	MaxDepth            int
	MaxDurationMs       int64
}

// DefaultConstraints mirrors conservative defaults used across the pack's
// bounded-worker and bounded-queue configs.
func DefaultConstraints() Constraints {
	return Constraints{MaxAffectedEntities: 50, MaxDepth: 3, MaxDurationMs: 5000}
}

// Validate checks the constraints are usable before a context is built
// from them.
func (c Constraints) Validate() error {
	if c.MaxAffectedEntities < 1 {
		return fmt.Errorf("simulation: max_affected_entities must be >= 1")
	}
	if c.MaxDepth < 1 {
		return fmt.Errorf("simulation: max_depth must be >= 1")
	}
	if c.MaxDurationMs < 1 {
		return fmt.Errorf("simulation: max_duration_ms must be >= 1")
	}
	return nil
}
