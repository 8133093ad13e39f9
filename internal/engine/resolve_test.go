package engine

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/KyroDB/kyroql/internal/confidence"
	"github.com/KyroDB/kyroql/internal/frame"
	"github.com/KyroDB/kyroql/internal/ir"
	"github.com/KyroDB/kyroql/internal/source"
	"github.com/KyroDB/kyroql/internal/timerange"
	"github.com/KyroDB/kyroql/internal/value"
)

func TestExecuteResolveWithoutEntityIDReturnsMissingEntityGap(t *testing.T) {
	eng, _ := newTestEngine(t)

	env, err := ir.NewResolve(ir.ResolvePayload{}, time.Now())
	require.NoError(t, err)

	resp, err := eng.Execute(context.Background(), env)
	require.NoError(t, err)
	require.Len(t, resp.ResolveFrame.Gaps, 1)
	require.Equal(t, frame.GapMissingEntity, resp.ResolveFrame.Gaps[0].Kind)
	require.Nil(t, resp.ResolveFrame.BestSupportedClaim)
}

func TestExecuteResolveFailsForUnknownEntity(t *testing.T) {
	eng, _ := newTestEngine(t)
	unknown := confidence.NewEntityID()

	env, err := ir.NewResolve(ir.ResolvePayload{EntityID: &unknown}, time.Now())
	require.NoError(t, err)

	_, err = eng.Execute(context.Background(), env)
	require.ErrorIs(t, err, ErrEntityNotFound)
}

func TestExecuteResolveWithoutPredicateReturnsNoDataGap(t *testing.T) {
	eng, sensor := newTestEngine(t)

	env, err := ir.NewResolve(ir.ResolvePayload{EntityID: &sensor}, time.Now())
	require.NoError(t, err)

	resp, err := eng.Execute(context.Background(), env)
	require.NoError(t, err)
	require.Len(t, resp.ResolveFrame.Gaps, 1)
	require.Equal(t, frame.GapNoDataFound, resp.ResolveFrame.Gaps[0].Kind)
}

func TestExecuteResolveWithNoBeliefsForPredicateReturnsGap(t *testing.T) {
	eng, sensor := newTestEngine(t)
	predicate := "status"

	env, err := ir.NewResolve(ir.ResolvePayload{EntityID: &sensor, Predicate: &predicate}, time.Now())
	require.NoError(t, err)

	resp, err := eng.Execute(context.Background(), env)
	require.NoError(t, err)
	require.Len(t, resp.ResolveFrame.Gaps, 1)
	require.Equal(t, frame.GapNoDataFound, resp.ResolveFrame.Gaps[0].Kind)
}

func TestExecuteResolveSingleBeliefBecomesBestSupportedClaim(t *testing.T) {
	eng, sensor := newTestEngine(t)
	assertBelief(t, eng, sensor, "status", value.String("active"))
	predicate := "status"

	env, err := ir.NewResolve(ir.ResolvePayload{EntityID: &sensor, Predicate: &predicate}, time.Now())
	require.NoError(t, err)

	resp, err := eng.Execute(context.Background(), env)
	require.NoError(t, err)
	require.NotNil(t, resp.ResolveFrame.BestSupportedClaim)
	require.True(t, resp.ResolveFrame.BestSupportedClaim.Value.Equal(value.String("active")))
	require.Len(t, resp.ResolveFrame.SupportingEvidence, 1)
	require.Empty(t, resp.ResolveFrame.Gaps)
}

func TestExecuteResolveMinConfidenceFiltersLowConfidenceBeliefs(t *testing.T) {
	eng, sensor := newTestEngine(t)

	lowConf, err := confidence.New(0.1, confidence.CalibrationHeuristic, confidence.ProvenanceAssertedByAgent)
	require.NoError(t, err)
	env, err := ir.NewAssert(ir.AssertPayload{
		EntityID: sensor, Predicate: "status", Value: value.String("active"), Confidence: lowConf,
		Source: source.NewUnknownSource(), ValidTime: timerange.FromNow(time.Now()), ConsistencyMode: ir.ModeForce,
	}, time.Now())
	require.NoError(t, err)
	_, err = eng.Execute(context.Background(), env)
	require.NoError(t, err)

	predicate := "status"
	minConf := float32(0.5)
	resolveEnv, err := ir.NewResolve(ir.ResolvePayload{EntityID: &sensor, Predicate: &predicate, MinConfidence: &minConf}, time.Now())
	require.NoError(t, err)

	resp, err := eng.Execute(context.Background(), resolveEnv)
	require.NoError(t, err)
	require.Len(t, resp.ResolveFrame.Gaps, 1)
	require.Equal(t, frame.GapLowConfidenceOnly, resp.ResolveFrame.Gaps[0].Kind)
}

func TestExecuteResolveCompetingBeliefsLatestWinsAndCounterEvidence(t *testing.T) {
	eng, sensor := newTestEngine(t)
	assertBelief(t, eng, sensor, "status", value.String("idle"))
	time.Sleep(2 * time.Millisecond)
	assertBelief(t, eng, sensor, "status", value.String("active"))

	predicate := "status"
	includeCounter := true
	env, err := ir.NewResolve(ir.ResolvePayload{
		EntityID: &sensor, Predicate: &predicate, IncludeCounterEvidence: includeCounter,
	}, time.Now())
	require.NoError(t, err)

	resp, err := eng.Execute(context.Background(), env)
	require.NoError(t, err)
	require.NotNil(t, resp.ResolveFrame.BestSupportedClaim)
	require.True(t, resp.ResolveFrame.BestSupportedClaim.Value.Equal(value.String("active")))
	require.NotEmpty(t, resp.ResolveFrame.CounterEvidence)
}
