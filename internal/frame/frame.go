// Package frame implements the BeliefFrame response shape assembled by
// RESOLVE (spec §3, §4.3 step 5).
package frame

import (
	"time"

	"github.com/KyroDB/kyroql/internal/confidence"
	"github.com/KyroDB/kyroql/internal/conflict"
	"github.com/KyroDB/kyroql/internal/timerange"
	"github.com/KyroDB/kyroql/internal/value"
)

// GapKind enumerates why RESOLVE could not produce a confident answer.
type GapKind string

const (
	GapNoDataFound       GapKind = "no_data_found"
	GapLowConfidenceOnly GapKind = "low_confidence_only"
	GapInsufficientEvidence GapKind = "insufficient_evidence"
	GapMissingEntity     GapKind = "missing_entity"
	GapExpired           GapKind = "expired"
)

// Gap describes one reason the query came up short.
type Gap struct {
	Kind    GapKind
	Message string
}

// RankedClaim is a single piece of evidence ranked by the engine.
type RankedClaim struct {
	BeliefID           confidence.BeliefID
	Value              value.Value
	TrustedConfidence  float32
	RetrievalRelevance *float32
	Source             confidence.SourceID
	TxTime             time.Time
}

// BestSupportedClaim is the winning answer, when one exists.
type BestSupportedClaim struct {
	Value             value.Value
	CombinedConfidence float32
	Relevance         *float32
}

// QueryAssumptions records the effective parameters a RESOLVE used, so
// callers can reproduce or audit the answer.
type QueryAssumptions struct {
	ConflictPolicy  string
	MinConfidence   float32
	TrustModelName  string
	AsOfTime        time.Time
}

// Frame is the structured RESOLVE response.
type Frame struct {
	BestSupportedClaim *BestSupportedClaim
	SupportingEvidence []RankedClaim
	CounterEvidence    []RankedClaim
	Conflicts          []confidence.ConflictID
	Gaps               []Gap
	TimeWindow         timerange.TimeRange
	QueryAssumptions   QueryAssumptions
	DebugSummary       *string
}

// OpenConflictsOf filters conflicts to those still open, for attachment to a
// frame.
func OpenConflictsOf(conflicts []conflict.Conflict) []confidence.ConflictID {
	ids := make([]confidence.ConflictID, 0, len(conflicts))
	for _, c := range conflicts {
		if c.Status == conflict.StatusOpen {
			ids = append(ids, c.ID)
		}
	}
	return ids
}
