// Package derivation implements the DerivationRecord data type and
// DerivationStore contract (spec §3, §4.3 DERIVE).
package derivation

import (
	"context"
	"fmt"
	"time"

	"github.com/KyroDB/kyroql/internal/confidence"
)

// Record is an audit record linking premises to a derived belief. DERIVE is
// a pure audit operation: no belief is synthesized by constructing a Record.
type Record struct {
	ID               confidence.DerivationID
	DerivedBeliefID  *confidence.BeliefID
	PremiseIDs       []confidence.BeliefID
	Rule             string
	Steps            []string
	Confidence       *confidence.Confidence
	Justification    string
	Metadata         map[string]any
	Timestamp        time.Time
}

// New constructs a Record, de-duplicating premises while preserving their
// first-seen order, rejecting an empty or self-referential premise set, and
// rejecting an empty rule name.
func New(derivedBeliefID *confidence.BeliefID, premiseIDs []confidence.BeliefID, rule string, ts time.Time) (Record, error) {
	if rule == "" {
		return Record{}, fmt.Errorf("derivation: rule must not be empty")
	}
	seen := make(map[confidence.BeliefID]bool, len(premiseIDs))
	deduped := make([]confidence.BeliefID, 0, len(premiseIDs))
	for _, id := range premiseIDs {
		if seen[id] {
			continue
		}
		seen[id] = true
		deduped = append(deduped, id)
	}
	if len(deduped) == 0 {
		return Record{}, fmt.Errorf("derivation: premise_ids must not be empty")
	}
	if derivedBeliefID != nil {
		if seen[*derivedBeliefID] {
			return Record{}, fmt.Errorf("derivation: derived_belief_id must not be among premise_ids")
		}
	}
	return Record{
		ID:              confidence.NewDerivationID(),
		DerivedBeliefID: derivedBeliefID,
		PremiseIDs:      deduped,
		Rule:            rule,
		Timestamp:       ts,
		Metadata:        make(map[string]any),
	}, nil
}

// Errors reported by DerivationStore implementations.
var ErrNotFound = fmt.Errorf("derivation: not found")

// Store is the thread-safe, object-capable contract every backend
// implements identically.
type Store interface {
	Insert(ctx context.Context, r Record) error
	Get(ctx context.Context, id confidence.DerivationID) (Record, error)
	FindByPremise(ctx context.Context, premiseID confidence.BeliefID) ([]Record, error)
	FindByDerivedBelief(ctx context.Context, beliefID confidence.BeliefID) ([]Record, error)
}
