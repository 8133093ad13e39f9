package engine

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/KyroDB/kyroql/internal/confidence"
	"github.com/KyroDB/kyroql/internal/ir"
	"github.com/KyroDB/kyroql/internal/source"
	"github.com/KyroDB/kyroql/internal/timerange"
	"github.com/KyroDB/kyroql/internal/value"
)

func assertBelief(t *testing.T, eng *Engine, entityID confidence.EntityID, predicate string, v value.Value) confidence.BeliefID {
	t.Helper()
	env, err := ir.NewAssert(ir.AssertPayload{
		EntityID:        entityID,
		Predicate:       predicate,
		Value:           v,
		Confidence:      conf(t, 0.9),
		Source:          source.NewUnknownSource(),
		ValidTime:       timerange.FromNow(time.Now()),
		ConsistencyMode: ir.ModeForce,
	}, time.Now())
	require.NoError(t, err)
	resp, err := eng.Execute(context.Background(), env)
	require.NoError(t, err)
	return resp.AssertBeliefID
}

func TestExecuteDeriveRecordsAuditTrailWithoutCreatingABelief(t *testing.T) {
	eng, sensor := newTestEngine(t)
	premise := assertBelief(t, eng, sensor, "status", value.String("active"))

	env, err := ir.NewDerive(ir.DerivePayload{
		PremiseIDs: []confidence.BeliefID{premise}, Rule: "modus_ponens", Justification: "status implies operational",
	}, time.Now())
	require.NoError(t, err)

	resp, err := eng.Execute(context.Background(), env)
	require.NoError(t, err)
	require.NotEqual(t, confidence.DerivationID{}, resp.DerivationID)

	record, err := eng.Derivations.Get(context.Background(), resp.DerivationID)
	require.NoError(t, err)
	require.Equal(t, []confidence.BeliefID{premise}, record.PremiseIDs)
	require.Equal(t, "modus_ponens", record.Rule)
	require.Nil(t, record.DerivedBeliefID)
}

func TestExecuteDeriveFailsForUnknownPremise(t *testing.T) {
	eng, _ := newTestEngine(t)

	env, err := ir.NewDerive(ir.DerivePayload{
		PremiseIDs: []confidence.BeliefID{confidence.NewBeliefID()}, Rule: "modus_ponens",
	}, time.Now())
	require.NoError(t, err)

	_, err = eng.Execute(context.Background(), env)
	require.ErrorIs(t, err, ErrBeliefNotFound)
}

func TestExecuteDeriveFailsForUnknownDerivedBelief(t *testing.T) {
	eng, sensor := newTestEngine(t)
	premise := assertBelief(t, eng, sensor, "status", value.String("active"))
	missing := confidence.NewBeliefID()

	env, err := ir.NewDerive(ir.DerivePayload{
		PremiseIDs: []confidence.BeliefID{premise}, Rule: "modus_ponens", DerivedBeliefID: &missing,
	}, time.Now())
	require.NoError(t, err)

	_, err = eng.Execute(context.Background(), env)
	require.ErrorIs(t, err, ErrBeliefNotFound)
}
