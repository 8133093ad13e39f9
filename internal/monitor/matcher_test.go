package monitor

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/KyroDB/kyroql/internal/belief"
	"github.com/KyroDB/kyroql/internal/confidence"
	"github.com/KyroDB/kyroql/internal/source"
	"github.com/KyroDB/kyroql/internal/storage/memory"
	"github.com/KyroDB/kyroql/internal/timerange"
	"github.com/KyroDB/kyroql/internal/value"
)

func conf(t *testing.T, v float32) confidence.Confidence {
	t.Helper()
	c, err := confidence.New(v, confidence.CalibrationHeuristic, confidence.ProvenanceAssertedByAgent)
	require.NoError(t, err)
	return c
}

func beliefWith(t *testing.T, id confidence.BeliefID, entityID confidence.EntityID, predicate string, v value.Value, confVal float32, txTime time.Time) belief.Belief {
	t.Helper()
	return belief.Belief{
		ID:                id,
		Subject:           entityID,
		Predicate:         predicate,
		Value:             v,
		Confidence:        conf(t, confVal),
		Source:            source.NewUnknownSource(),
		ValidTime:         timerange.FromNow(txTime),
		TxTime:            txTime,
		ConsistencyStatus: belief.StatusVerified,
	}
}

func TestConfidenceShiftRequiresPrior(t *testing.T) {
	store := memory.NewBeliefStore()
	matcher := NewMatcher(store)

	eid := confidence.NewEntityID()
	now := time.Now()
	obs := AssertObservation{
		TxTime:     now,
		BeliefID:   confidence.NewBeliefID(),
		EntityID:   eid,
		Predicate:  "p",
		Value:      value.Int(1),
		Confidence: 0.9,
	}

	predicate := "p"
	trigger := NewConfidenceShiftTrigger(&eid, &predicate, 0.1)
	result, err := matcher.Evaluate(context.Background(), trigger, obs)
	require.NoError(t, err)
	assert.False(t, result.Matched)
}

func TestConfidenceShiftFiresOnDelta(t *testing.T) {
	store := memory.NewBeliefStore()
	matcher := NewMatcher(store)

	eid := confidence.NewEntityID()
	t0 := time.Now()

	old := beliefWith(t, confidence.NewBeliefID(), eid, "p", value.Int(1), 0.2, t0)
	require.NoError(t, store.Insert(context.Background(), old))

	t1 := t0.Add(time.Millisecond)
	newID := confidence.NewBeliefID()
	newBelief := beliefWith(t, newID, eid, "p", value.Int(1), 0.9, t1)
	require.NoError(t, store.Insert(context.Background(), newBelief))

	obs := AssertObservation{
		TxTime:     t1,
		BeliefID:   newID,
		EntityID:   eid,
		Predicate:  "p",
		Value:      value.Int(1),
		Confidence: 0.9,
	}

	predicate := "p"
	trigger := NewConfidenceShiftTrigger(&eid, &predicate, 0.5)
	result, err := matcher.Evaluate(context.Background(), trigger, obs)
	require.NoError(t, err)
	require.True(t, result.Matched)
	assert.Equal(t, EventConfidenceShift, result.Payload.Kind)
	assert.Greater(t, result.Payload.Delta, float32(0.5))
}

func TestGapFilledRequiresNoPriorData(t *testing.T) {
	store := memory.NewBeliefStore()
	matcher := NewMatcher(store)

	eid := confidence.NewEntityID()
	now := time.Now()
	obs := AssertObservation{
		TxTime:     now,
		BeliefID:   confidence.NewBeliefID(),
		EntityID:   eid,
		Predicate:  "p",
		Value:      value.Int(5),
		Confidence: 0.8,
	}

	trigger := NewGapFilledTrigger(eid, "p")
	result, err := matcher.Evaluate(context.Background(), trigger, obs)
	require.NoError(t, err)
	assert.True(t, result.Matched)
	assert.Equal(t, EventGapFilled, result.Payload.Kind)
}

func TestGapFilledNoMatchWhenPriorDataExists(t *testing.T) {
	store := memory.NewBeliefStore()
	matcher := NewMatcher(store)

	eid := confidence.NewEntityID()
	t0 := time.Now()
	prior := beliefWith(t, confidence.NewBeliefID(), eid, "p", value.Int(1), 0.6, t0)
	require.NoError(t, store.Insert(context.Background(), prior))

	t1 := t0.Add(time.Millisecond)
	obs := AssertObservation{
		TxTime:     t1,
		BeliefID:   confidence.NewBeliefID(),
		EntityID:   eid,
		Predicate:  "p",
		Value:      value.Int(2),
		Confidence: 0.8,
	}

	trigger := NewGapFilledTrigger(eid, "p")
	result, err := matcher.Evaluate(context.Background(), trigger, obs)
	require.NoError(t, err)
	assert.False(t, result.Matched)
}
