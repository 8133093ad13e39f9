package engine

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/KyroDB/kyroql/internal/belief"
	"github.com/KyroDB/kyroql/internal/confidence"
	"github.com/KyroDB/kyroql/internal/ir"
	"github.com/KyroDB/kyroql/internal/source"
	"github.com/KyroDB/kyroql/internal/timerange"
	"github.com/KyroDB/kyroql/internal/value"
)

func TestExecuteRetractSupersedesOriginalWithNullBelief(t *testing.T) {
	eng, sensor := newTestEngine(t)

	assertEnv, err := ir.NewAssert(ir.AssertPayload{
		EntityID:        sensor,
		Predicate:       "status",
		Value:           value.String("active"),
		Confidence:      conf(t, 0.9),
		Source:          source.NewUnknownSource(),
		ValidTime:       timerange.FromNow(time.Now()),
		ConsistencyMode: ir.ModeForce,
	}, time.Now())
	require.NoError(t, err)
	assertResp, err := eng.Execute(context.Background(), assertEnv)
	require.NoError(t, err)
	originalID := assertResp.AssertBeliefID

	retractEnv, err := ir.NewRetract(ir.RetractPayload{
		BeliefID: originalID, Reason: "sensor decommissioned", Source: source.NewUnknownSource(),
	}, time.Now())
	require.NoError(t, err)

	resp, err := eng.Execute(context.Background(), retractEnv)
	require.NoError(t, err)
	require.NotEqual(t, confidence.BeliefID{}, resp.RetractBeliefID)
	require.NotEqual(t, originalID, resp.RetractBeliefID)

	original, err := eng.Beliefs.Get(context.Background(), originalID)
	require.NoError(t, err)
	require.NotNil(t, original.SupersededBy)
	require.Equal(t, resp.RetractBeliefID, *original.SupersededBy)
	require.False(t, original.IsActive())

	retraction, err := eng.Beliefs.Get(context.Background(), resp.RetractBeliefID)
	require.NoError(t, err)
	require.True(t, retraction.Value.IsNull())
	require.Equal(t, belief.StatusVerified, retraction.ConsistencyStatus)
	require.Equal(t, "sensor decommissioned", retraction.Reason)
	require.NotNil(t, retraction.Supersedes)
	require.Equal(t, originalID, *retraction.Supersedes)
}

func TestExecuteRetractFailsForUnknownBelief(t *testing.T) {
	eng, _ := newTestEngine(t)

	env, err := ir.NewRetract(ir.RetractPayload{
		BeliefID: confidence.NewBeliefID(), Reason: "does not exist", Source: source.NewUnknownSource(),
	}, time.Now())
	require.NoError(t, err)

	_, err = eng.Execute(context.Background(), env)
	require.ErrorIs(t, err, ErrBeliefNotFound)
}
