package engine

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/KyroDB/kyroql/internal/ir"
	"github.com/KyroDB/kyroql/internal/simulation"
	"github.com/KyroDB/kyroql/internal/trust"
)

// executeSimulate builds a counterfactual session over this engine's own
// stores and returns it as a live handle, rather than applying
// hypotheticals inline. Grounded on execute_simulate in
// original_source/src/engine/mod.rs, which likewise pre-validates
// payload.entities against the live entity store and returns
// Arc<SimulationContext> for the caller to drive.
func (e *Engine) executeSimulate(ctx context.Context, payload ir.SimulatePayload) (Response, error) {
	constraints := simulation.DefaultConstraints()
	if payload.Constraints != nil {
		constraints = *payload.Constraints
	}

	for _, id := range payload.Entities {
		if err := e.ensureEntityExists(ctx, id); err != nil {
			return Response{}, err
		}
	}

	base := simulation.BaseStores{
		Entities:    e.Entities,
		Beliefs:     e.Beliefs,
		Patterns:    e.Patterns,
		Conflicts:   e.Conflicts,
		Derivations: e.Derivations,
	}

	sim, err := simulation.New(base, constraints)
	if err != nil {
		return Response{}, fmt.Errorf("engine: simulate: %w", err)
	}
	return Response{Op: ir.OpSimulate, SimulateContext: sim}, nil
}

// NewSimulationEngine builds an Engine scoped to sim's overlay stores, so
// RESOLVE and the other IR operations can be executed against a
// counterfactual session exactly as they would against live storage.
// Never wired with a Monitor: hypothetical asserts must not fire live
// subscriptions.
func NewSimulationEngine(sim *simulation.Context, trustModel trust.Model, logger *slog.Logger) *Engine {
	return New(sim.Entities(), sim.Beliefs(), sim.Patterns(), sim.Conflicts(), sim.Derivations(), trustModel, logger)
}
