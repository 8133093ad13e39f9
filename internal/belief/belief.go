// Package belief implements the Belief data type and the BeliefStore
// contract (spec §3, §4.1).
package belief

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/KyroDB/kyroql/internal/confidence"
	"github.com/KyroDB/kyroql/internal/source"
	"github.com/KyroDB/kyroql/internal/timerange"
	"github.com/KyroDB/kyroql/internal/value"
)

// ConsistencyStatus describes where a belief sits in its lifecycle.
type ConsistencyStatus string

const (
	StatusVerified    ConsistencyStatus = "verified"
	StatusProvisional ConsistencyStatus = "provisional"
	StatusContested   ConsistencyStatus = "contested"
)

// Belief is an atomic claim about an entity.
type Belief struct {
	ID                confidence.BeliefID
	Subject           confidence.EntityID
	Predicate         string
	Value             value.Value
	Confidence        confidence.Confidence
	Source            source.Source
	ValidTime         timerange.TimeRange
	TxTime            time.Time
	ConsistencyStatus ConsistencyStatus
	ContestedBy       []confidence.ConflictID
	Supersedes        *confidence.BeliefID
	SupersededBy      *confidence.BeliefID
	Embedding         []float32
	Reason            string
}

// IsActive reports whether the belief has not been superseded.
func (b Belief) IsActive() bool { return b.SupersededBy == nil }

// IsValidAt reports whether the belief is active, temporally contains t, and
// t is not before the belief was recorded (tx_time).
func (b Belief) IsValidAt(t time.Time) bool {
	if !b.IsActive() {
		return false
	}
	if t.Before(b.TxTime) {
		return false
	}
	return b.ValidTime.Contains(t)
}

// New constructs a provisional belief with a fresh id, validating that
// Predicate is non-empty after trim. The ValidTime.From < ValidTime.To
// invariant is not checked here; timerange.New enforces it at call sites.
func New(subject confidence.EntityID, predicate string, v value.Value, c confidence.Confidence, src source.Source, validTime timerange.TimeRange, txTime time.Time) (Belief, error) {
	trimmed := strings.TrimSpace(predicate)
	if trimmed == "" {
		return Belief{}, fmt.Errorf("belief: predicate must not be empty")
	}
	return Belief{
		ID:                confidence.NewBeliefID(),
		Subject:           subject,
		Predicate:         trimmed,
		Value:             v,
		Confidence:        c,
		Source:            src,
		ValidTime:         validTime,
		TxTime:            txTime,
		ConsistencyStatus: StatusProvisional,
	}, nil
}

// Errors reported by BeliefStore implementations.
var (
	ErrNotFound               = fmt.Errorf("belief: not found")
	ErrDuplicateKey           = fmt.Errorf("belief: duplicate id")
	ErrSelfSupersede          = fmt.Errorf("belief: cannot supersede a belief with itself")
	ErrAlreadySupersededByOther = fmt.Errorf("belief: already superseded by a different belief")
)

// Store is the thread-safe, object-capable contract every backend
// implements identically.
type Store interface {
	Insert(ctx context.Context, b Belief) error
	Get(ctx context.Context, id confidence.BeliefID) (Belief, error)
	Supersede(ctx context.Context, old, new confidence.BeliefID) error
	FindByEntity(ctx context.Context, entity confidence.EntityID) ([]Belief, error)
	FindByEntityPredicate(ctx context.Context, entity confidence.EntityID, predicate string) ([]Belief, error)
	FindAsOf(ctx context.Context, entity confidence.EntityID, predicate string, at time.Time) ([]Belief, error)
	FindByTimeRange(ctx context.Context, tr timerange.TimeRange) ([]Belief, error)
	FindByEmbedding(ctx context.Context, query []float32, limit int, minConfidence *float32) ([]Belief, error)
	CountByEntity(ctx context.Context, entity confidence.EntityID) (int, error)
}
