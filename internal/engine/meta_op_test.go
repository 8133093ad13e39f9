package engine

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/KyroDB/kyroql/internal/confidence"
	"github.com/KyroDB/kyroql/internal/ir"
	"github.com/KyroDB/kyroql/internal/source"
	"github.com/KyroDB/kyroql/internal/timerange"
	"github.com/KyroDB/kyroql/internal/value"
)

func TestEngineCoverageAndGapAnalysisReflectAssertedBeliefs(t *testing.T) {
	eng, sensor := newTestEngine(t)

	env, err := ir.NewAssert(ir.AssertPayload{
		EntityID:        sensor,
		Predicate:       "temperature",
		Value:           value.Float(20.0),
		Confidence:      conf(t, 0.9),
		Source:          source.NewUnknownSource(),
		ValidTime:       timerange.FromNow(time.Now()),
		ConsistencyMode: ir.ModeForce,
	}, time.Now())
	require.NoError(t, err)
	_, err = eng.Execute(context.Background(), env)
	require.NoError(t, err)

	coverage, err := eng.Coverage(context.Background(), sensor)
	require.NoError(t, err)
	assert.Equal(t, 1, coverage.TotalBeliefs)
	assert.Contains(t, coverage.Predicates, "temperature")

	gap, err := eng.GapAnalysis(context.Background(), sensor, []string{"temperature", "humidity"})
	require.NoError(t, err)
	assert.Equal(t, []string{"temperature"}, gap.CoveredPredicates)
	assert.Equal(t, []string{"humidity"}, gap.MissingPredicates)

	calib, err := eng.CalibrationSummary(context.Background(), sensor)
	require.NoError(t, err)
	assert.Equal(t, 1, calib.Count)
	assert.InDelta(t, 0.9, calib.Mean, 1e-6)
}

func TestEngineCoverageOfUnknownEntityFails(t *testing.T) {
	eng, _ := newTestEngine(t)

	_, err := eng.Coverage(context.Background(), confidence.NewEntityID())
	require.Error(t, err)
}
