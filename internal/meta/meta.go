// Package meta reports on what the belief store knows and doesn't know
// about an entity: coverage of its predicates, gaps against an expected
// predicate list, and the distribution of confidence across its beliefs.
// Grounded on original_source/src/meta.rs's MetaAnalyzer.
package meta

import (
	"context"
	"fmt"

	"github.com/KyroDB/kyroql/internal/belief"
	"github.com/KyroDB/kyroql/internal/confidence"
	"github.com/KyroDB/kyroql/internal/entity"
)

// PredicateCoverage summarizes how many beliefs an entity carries for a
// single predicate and their average confidence.
type PredicateCoverage struct {
	Count         int
	AvgConfidence float32
}

// CoverageReport is entity-wide coverage across every predicate it has
// beliefs for.
type CoverageReport struct {
	EntityID     confidence.EntityID
	TotalBeliefs int
	Predicates   map[string]PredicateCoverage
}

// GapAnalysisResult splits a caller-supplied list of expected predicates
// into those an entity is covered for and those it is missing.
type GapAnalysisResult struct {
	MissingPredicates []string
	CoveredPredicates []string
}

// CalibrationSummary is the min/max/mean confidence across an entity's
// beliefs, a crude signal of how well-calibrated its knowledge is.
type CalibrationSummary struct {
	Mean  float32
	Min   float32
	Max   float32
	Count int
}

// Analyzer computes coverage, gap, and calibration reports over an
// EntityStore/BeliefStore pair. Stateless beyond the two store handles;
// safe for concurrent use.
type Analyzer struct {
	entities entity.Store
	beliefs  belief.Store
}

// New builds an Analyzer over entities and beliefs.
func New(entities entity.Store, beliefs belief.Store) *Analyzer {
	return &Analyzer{entities: entities, beliefs: beliefs}
}

func (a *Analyzer) ensureEntityExists(ctx context.Context, id confidence.EntityID) error {
	if _, err := a.entities.Get(ctx, id); err != nil {
		return fmt.Errorf("meta: entity not found: %s: %w", id, err)
	}
	return nil
}

// Coverage computes how many beliefs entityID has per predicate and the
// average confidence of each.
func (a *Analyzer) Coverage(ctx context.Context, entityID confidence.EntityID) (CoverageReport, error) {
	if err := a.ensureEntityExists(ctx, entityID); err != nil {
		return CoverageReport{}, err
	}

	beliefs, err := a.beliefs.FindByEntity(ctx, entityID)
	if err != nil {
		return CoverageReport{}, fmt.Errorf("meta: coverage: %w", err)
	}

	sums := make(map[string]float32)
	counts := make(map[string]int)
	for _, b := range beliefs {
		sums[b.Predicate] += b.Confidence.Value
		counts[b.Predicate]++
	}

	predicates := make(map[string]PredicateCoverage, len(counts))
	for pred, count := range counts {
		avg := sums[pred] / float32(count)
		if avg < 0 {
			avg = 0
		} else if avg > 1 {
			avg = 1
		}
		predicates[pred] = PredicateCoverage{Count: count, AvgConfidence: avg}
	}

	return CoverageReport{
		EntityID:     entityID,
		TotalBeliefs: len(beliefs),
		Predicates:   predicates,
	}, nil
}

// GapAnalysis reports which of expectedPredicates entityID is covered for
// and which it is missing entirely.
func (a *Analyzer) GapAnalysis(ctx context.Context, entityID confidence.EntityID, expectedPredicates []string) (GapAnalysisResult, error) {
	coverage, err := a.Coverage(ctx, entityID)
	if err != nil {
		return GapAnalysisResult{}, err
	}

	var missing, covered []string
	for _, pred := range expectedPredicates {
		if _, ok := coverage.Predicates[pred]; ok {
			covered = append(covered, pred)
		} else {
			missing = append(missing, pred)
		}
	}

	return GapAnalysisResult{MissingPredicates: missing, CoveredPredicates: covered}, nil
}

// CalibrationSummary summarizes the confidence distribution across every
// belief entityID carries, regardless of predicate.
func (a *Analyzer) CalibrationSummary(ctx context.Context, entityID confidence.EntityID) (CalibrationSummary, error) {
	if err := a.ensureEntityExists(ctx, entityID); err != nil {
		return CalibrationSummary{}, err
	}

	beliefs, err := a.beliefs.FindByEntity(ctx, entityID)
	if err != nil {
		return CalibrationSummary{}, fmt.Errorf("meta: calibration_summary: %w", err)
	}

	min := float32(1.0)
	max := float32(0.0)
	var sum float32
	for _, b := range beliefs {
		c := b.Confidence.Value
		if c < 0 {
			c = 0
		} else if c > 1 {
			c = 1
		}
		if c < min {
			min = c
		}
		if c > max {
			max = c
		}
		sum += c
	}

	count := len(beliefs)
	if count == 0 {
		return CalibrationSummary{}, nil
	}

	return CalibrationSummary{
		Mean:  sum / float32(count),
		Min:   min,
		Max:   max,
		Count: count,
	}, nil
}
