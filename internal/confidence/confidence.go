// Package confidence defines the identifier newtypes shared across the data
// model and the Confidence value itself.
package confidence

import (
	"fmt"
	"math"

	"github.com/google/uuid"
)

// EntityID identifies an Entity.
type EntityID uuid.UUID

// NewEntityID generates a fresh random entity id.
func NewEntityID() EntityID { return EntityID(uuid.New()) }

func (id EntityID) String() string { return uuid.UUID(id).String() }

// BeliefID identifies a Belief.
type BeliefID uuid.UUID

// NewBeliefID generates a fresh random belief id.
func NewBeliefID() BeliefID { return BeliefID(uuid.New()) }

func (id BeliefID) String() string { return uuid.UUID(id).String() }

// SourceID identifies a Source by its deterministic content hash.
type SourceID uuid.UUID

func (id SourceID) String() string { return uuid.UUID(id).String() }

// PatternID identifies a Pattern.
type PatternID uuid.UUID

// NewPatternID generates a fresh random pattern id.
func NewPatternID() PatternID { return PatternID(uuid.New()) }

func (id PatternID) String() string { return uuid.UUID(id).String() }

// ConflictID identifies a Conflict.
type ConflictID uuid.UUID

// NewConflictID generates a fresh random conflict id.
func NewConflictID() ConflictID { return ConflictID(uuid.New()) }

func (id ConflictID) String() string { return uuid.UUID(id).String() }

// DerivationID identifies a DerivationRecord.
type DerivationID uuid.UUID

// NewDerivationID generates a fresh random derivation id.
func NewDerivationID() DerivationID { return DerivationID(uuid.New()) }

func (id DerivationID) String() string { return uuid.UUID(id).String() }

// Calibration describes how a confidence value should be interpreted.
type Calibration string

const (
	CalibrationProbability  Calibration = "probability"
	CalibrationHeuristic    Calibration = "heuristic"
	CalibrationModelLogprob Calibration = "model_logprob"
	CalibrationSourceWeight Calibration = "source_weighted"
)

// Provenance describes how a confidence value was produced.
type Provenance string

const (
	ProvenanceAssertedByAgent    Provenance = "asserted_by_agent"
	ProvenanceComputedByModel    Provenance = "computed_by_model"
	ProvenanceAggregatedSources  Provenance = "aggregated_from_sources"
	ProvenanceDerivedFromPremise Provenance = "derived_from_premises"
	ProvenanceUnknown            Provenance = "unknown"
)

// Confidence is a calibrated belief in a claim's correctness.
type Confidence struct {
	Value       float32
	Calibration Calibration
	Source      Provenance
}

// New constructs a Confidence, rejecting NaN and out-of-range values.
func New(value float32, calibration Calibration, source Provenance) (Confidence, error) {
	if math.IsNaN(float64(value)) {
		return Confidence{}, fmt.Errorf("confidence: value is NaN")
	}
	if value < 0 || value > 1 {
		return Confidence{}, fmt.Errorf("confidence: value %v out of range [0,1]", value)
	}
	return Confidence{Value: value, Calibration: calibration, Source: source}, nil
}

// And computes the conjunction of two confidences: min of values, calibration
// downgraded to heuristic since lineage through a logical operator can no
// longer claim the stronger calibration of either input.
func And(a, b Confidence) Confidence {
	v := a.Value
	if b.Value < v {
		v = b.Value
	}
	return Confidence{Value: v, Calibration: CalibrationHeuristic, Source: ProvenanceDerivedFromPremise}
}

// Or computes the disjunction of two confidences: max of values, calibration
// downgraded to heuristic.
func Or(a, b Confidence) Confidence {
	v := a.Value
	if b.Value > v {
		v = b.Value
	}
	return Confidence{Value: v, Calibration: CalibrationHeuristic, Source: ProvenanceDerivedFromPremise}
}
