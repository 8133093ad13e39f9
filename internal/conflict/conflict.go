// Package conflict implements the Conflict data type and ConflictStore
// contract (spec §3, §4.1).
package conflict

import (
	"context"
	"fmt"
	"time"

	"github.com/KyroDB/kyroql/internal/confidence"
)

// TypeKind discriminates the ConflictType variant.
type TypeKind string

const (
	TypeValueContradiction   TypeKind = "value_contradiction"
	TypeTemporalInconsistency TypeKind = "temporal_inconsistency"
	TypeSourceDisagreement   TypeKind = "source_disagreement"
	TypePatternViolation     TypeKind = "pattern_violation"
	TypeLogicalContradiction TypeKind = "logical_contradiction"
	TypeCustom               TypeKind = "custom"
)

// ConflictType is a tagged union; PatternViolation carries the offending
// pattern's id and name.
type ConflictType struct {
	Kind        TypeKind
	PatternID   confidence.PatternID
	PatternName string
	CustomName  string
}

// NewValueContradiction builds a value_contradiction type.
func NewValueContradiction() ConflictType { return ConflictType{Kind: TypeValueContradiction} }

// NewTemporalInconsistency builds a temporal_inconsistency type.
func NewTemporalInconsistency() ConflictType { return ConflictType{Kind: TypeTemporalInconsistency} }

// NewSourceDisagreement builds a source_disagreement type.
func NewSourceDisagreement() ConflictType { return ConflictType{Kind: TypeSourceDisagreement} }

// NewPatternViolation builds a pattern_violation type carrying the pattern's
// identity.
func NewPatternViolation(id confidence.PatternID, name string) ConflictType {
	return ConflictType{Kind: TypePatternViolation, PatternID: id, PatternName: name}
}

// NewLogicalContradiction builds a logical_contradiction type.
func NewLogicalContradiction() ConflictType { return ConflictType{Kind: TypeLogicalContradiction} }

// NewCustomType builds a reserved custom type.
func NewCustomType(name string) ConflictType { return ConflictType{Kind: TypeCustom, CustomName: name} }

// Status is the conflict lifecycle state.
type Status string

const (
	StatusOpen      Status = "open"
	StatusAnalyzing Status = "analyzing"
	StatusResolved  Status = "resolved"
	StatusDismissed Status = "dismissed"
)

// Resolution records how a conflict was settled.
type Resolution struct {
	WinningBeliefID *confidence.BeliefID
	Policy          string
	ResolvedAt      time.Time
	Notes           string
}

// Conflict is a first-class record of contradiction or constraint violation.
type Conflict struct {
	ID           confidence.ConflictID
	BeliefIDs    []confidence.BeliefID
	EntityID     confidence.EntityID
	ConflictType ConflictType
	DetectedAt   time.Time
	Status       Status
	Resolution   *Resolution
	Severity     float32
	Metadata     map[string]any
}

func clampSeverity(s float32) float32 {
	switch {
	case s < 0:
		return 0
	case s > 1:
		return 1
	default:
		return s
	}
}

// New constructs an open conflict, requiring at least one belief id and
// clamping severity into [0,1].
func New(beliefIDs []confidence.BeliefID, entityID confidence.EntityID, conflictType ConflictType, severity float32) (Conflict, error) {
	if len(beliefIDs) == 0 {
		return Conflict{}, fmt.Errorf("conflict: belief_ids must not be empty")
	}
	return Conflict{
		ID:           confidence.NewConflictID(),
		BeliefIDs:    append([]confidence.BeliefID(nil), beliefIDs...),
		EntityID:     entityID,
		ConflictType: conflictType,
		DetectedAt:   time.Now().UTC(),
		Status:       StatusOpen,
		Severity:     clampSeverity(severity),
		Metadata:     make(map[string]any),
	}, nil
}

// Errors reported by ConflictStore implementations.
var ErrNotFound = fmt.Errorf("conflict: not found")

// Store is the thread-safe, object-capable contract every backend
// implements identically.
type Store interface {
	Insert(ctx context.Context, c Conflict) error
	Get(ctx context.Context, id confidence.ConflictID) (Conflict, error)
	Update(ctx context.Context, c Conflict) error
	FindByBelief(ctx context.Context, beliefID confidence.BeliefID) ([]Conflict, error)
	FindOpen(ctx context.Context, entityID confidence.EntityID) ([]Conflict, error)
}
