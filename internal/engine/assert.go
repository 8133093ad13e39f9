package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/KyroDB/kyroql/internal/belief"
	"github.com/KyroDB/kyroql/internal/confidence"
	"github.com/KyroDB/kyroql/internal/conflict"
	"github.com/KyroDB/kyroql/internal/ir"
	"github.com/KyroDB/kyroql/internal/monitor"
)

// notifyAssert feeds the MONITOR subsystem after a belief has committed.
// Best-effort: a full observation queue or a nil Monitor never fails the
// ASSERT itself, only logs.
func (e *Engine) notifyAssert(b belief.Belief, conflicts []conflict.Conflict) {
	if e.Monitor == nil {
		return
	}
	conflictTypes := make([]conflict.ConflictType, 0, len(conflicts))
	for _, c := range conflicts {
		conflictTypes = append(conflictTypes, c.ConflictType)
	}
	obs := monitor.AssertObservation{
		TxTime:        b.TxTime,
		BeliefID:      b.ID,
		EntityID:      b.Subject,
		Predicate:     b.Predicate,
		Value:         b.Value,
		Confidence:    b.Confidence.Value,
		ConflictTypes: conflictTypes,
	}
	if err := e.Monitor.ObserveAssert(obs); err != nil {
		e.Logger.Warn("engine: monitor observation dropped", "belief_id", b.ID, "error", err)
	}
}

func (e *Engine) executeAssert(ctx context.Context, txTime time.Time, payload ir.AssertPayload) (Response, error) {
	subject, err := e.Entities.Get(ctx, payload.EntityID)
	if err != nil {
		return Response{}, fmt.Errorf("%w: %s", ErrEntityNotFound, payload.EntityID)
	}

	b, err := belief.New(payload.EntityID, payload.Predicate, payload.Value, payload.Confidence, payload.Source, payload.ValidTime, txTime)
	if err != nil {
		return Response{}, err
	}
	b.Embedding = payload.Embedding
	if len(b.Embedding) == 0 {
		text := subject.CanonicalName + " " + payload.Predicate + " " + payload.Value.String()
		b.Embedding = lexicalEmbedding(text)
	}

	if payload.ConsistencyMode == ir.ModeForce {
		b.ConsistencyStatus = belief.StatusProvisional
		if err := e.Beliefs.Insert(ctx, b); err != nil {
			return Response{}, fmt.Errorf("engine: assert: %w", err)
		}
		e.notifyAssert(b, nil)
		return Response{Op: ir.OpAssert, AssertBeliefID: b.ID}, nil
	}

	conflicts, err := e.detectConflicts(ctx, b, txTime)
	if err != nil {
		return Response{}, err
	}

	if payload.ConsistencyMode == ir.ModeStrict && len(conflicts) > 0 {
		reasons := make([]string, 0, len(conflicts))
		for _, c := range conflicts {
			reasons = append(reasons, string(c.ConflictType.Kind))
		}
		return Response{}, fmt.Errorf("%w: %v", ErrConflictsDetected, reasons)
	}

	if len(conflicts) == 0 {
		b.ConsistencyStatus = belief.StatusVerified
		if err := e.Beliefs.Insert(ctx, b); err != nil {
			return Response{}, fmt.Errorf("engine: assert: %w", err)
		}
		e.notifyAssert(b, nil)
		return Response{Op: ir.OpAssert, AssertBeliefID: b.ID}, nil
	}

	conflictIDs := make([]confidence.ConflictID, 0, len(conflicts))
	for _, c := range conflicts {
		if err := e.Conflicts.Insert(ctx, c); err != nil {
			return Response{}, fmt.Errorf("engine: assert: insert conflict: %w", err)
		}
		conflictIDs = append(conflictIDs, c.ID)
	}
	b.ConsistencyStatus = belief.StatusContested
	b.ContestedBy = conflictIDs
	if err := e.Beliefs.Insert(ctx, b); err != nil {
		return Response{}, fmt.Errorf("engine: assert: %w", err)
	}
	e.notifyAssert(b, conflicts)

	return Response{Op: ir.OpAssert, AssertBeliefID: b.ID, AssertConflicts: conflictIDs}, nil
}

// detectConflicts finds value contradictions against other beliefs active
// for the same (entity, predicate) and checks every pattern rule registered
// for the predicate (spec §4.3/§4.4).
func (e *Engine) detectConflicts(ctx context.Context, b belief.Belief, asOf time.Time) ([]conflict.Conflict, error) {
	var conflicts []conflict.Conflict

	existing, err := e.Beliefs.FindAsOf(ctx, b.Subject, b.Predicate, asOf)
	if err != nil {
		return nil, fmt.Errorf("engine: detect_conflicts: %w", err)
	}
	for _, other := range existing {
		if other.ID == b.ID {
			continue
		}
		if !other.Value.Equal(b.Value) {
			c, err := conflict.New([]confidence.BeliefID{other.ID, b.ID}, b.Subject, conflict.NewValueContradiction(), 0.5)
			if err != nil {
				return nil, err
			}
			conflicts = append(conflicts, c)
		}
	}

	patterns, err := e.Patterns.FindByPredicate(ctx, b.Predicate)
	if err != nil {
		return nil, fmt.Errorf("engine: detect_conflicts: %w", err)
	}
	for _, p := range patterns {
		if !p.CoversTime(asOf) {
			continue
		}
		reason, err := e.checkPattern(ctx, p.Rule, b, asOf)
		if err != nil {
			return nil, err
		}
		if reason == "" {
			continue
		}
		c, err := conflict.New([]confidence.BeliefID{b.ID}, b.Subject, conflict.NewPatternViolation(p.ID, p.Name), 0.5)
		if err != nil {
			return nil, err
		}
		c.Metadata["reason"] = reason
		conflicts = append(conflicts, c)
	}

	return conflicts, nil
}
