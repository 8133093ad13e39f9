package engine

import (
	"context"

	"github.com/KyroDB/kyroql/internal/confidence"
	"github.com/KyroDB/kyroql/internal/meta"
)

// Coverage reports how many beliefs entityID carries per predicate and
// their average confidence (spec §12).
func (e *Engine) Coverage(ctx context.Context, entityID confidence.EntityID) (meta.CoverageReport, error) {
	return e.Meta.Coverage(ctx, entityID)
}

// GapAnalysis splits expectedPredicates into those entityID is covered
// for and those it is missing.
func (e *Engine) GapAnalysis(ctx context.Context, entityID confidence.EntityID, expectedPredicates []string) (meta.GapAnalysisResult, error) {
	return e.Meta.GapAnalysis(ctx, entityID, expectedPredicates)
}

// CalibrationSummary reports the min/max/mean confidence across
// entityID's beliefs.
func (e *Engine) CalibrationSummary(ctx context.Context, entityID confidence.EntityID) (meta.CalibrationSummary, error) {
	return e.Meta.CalibrationSummary(ctx, entityID)
}
