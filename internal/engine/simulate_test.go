package engine

import (
	"context"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/KyroDB/kyroql/internal/belief"
	"github.com/KyroDB/kyroql/internal/confidence"
	"github.com/KyroDB/kyroql/internal/entity"
	"github.com/KyroDB/kyroql/internal/ir"
	"github.com/KyroDB/kyroql/internal/simulation"
	"github.com/KyroDB/kyroql/internal/source"
	"github.com/KyroDB/kyroql/internal/storage/memory"
	"github.com/KyroDB/kyroql/internal/timerange"
	"github.com/KyroDB/kyroql/internal/value"
)

func engineTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))
}

func newTestEngine(t *testing.T) (*Engine, confidence.EntityID) {
	t.Helper()
	entities := memory.NewEntityStore()
	beliefs := memory.NewBeliefStore()
	patterns := memory.NewPatternStore()
	conflicts := memory.NewConflictStore()
	derivations := memory.NewDerivationStore()

	sensor, err := entity.New("sensor", entity.TypeArtifact)
	require.NoError(t, err)
	require.NoError(t, entities.Insert(context.Background(), sensor))

	return New(entities, beliefs, patterns, conflicts, derivations, nil, engineTestLogger()), sensor.ID
}

func TestExecuteSimulateReturnsLiveContextOverLiveStores(t *testing.T) {
	eng, sensor := newTestEngine(t)

	env, err := ir.NewSimulate(ir.SimulatePayload{Entities: []confidence.EntityID{sensor}}, time.Now())
	require.NoError(t, err)

	resp, err := eng.Execute(context.Background(), env)
	require.NoError(t, err)
	require.NotNil(t, resp.SimulateContext)
	defer resp.SimulateContext.Close()

	conf, err := confidence.New(0.7, confidence.CalibrationHeuristic, confidence.ProvenanceAssertedByAgent)
	require.NoError(t, err)
	now := time.Now()
	hypo, err := belief.New(sensor, "temperature", value.Float(99.0), conf, source.NewUnknownSource(), timerange.FromNow(now), now)
	require.NoError(t, err)

	_, err = resp.SimulateContext.AssertHypothetical(context.Background(), hypo)
	require.NoError(t, err)

	found, err := resp.SimulateContext.Beliefs().FindByEntityPredicate(context.Background(), sensor, "temperature")
	require.NoError(t, err)
	require.Len(t, found, 1)

	liveFound, err := eng.Beliefs.FindByEntityPredicate(context.Background(), sensor, "temperature")
	require.NoError(t, err)
	assert.Empty(t, liveFound, "hypothetical asserts must never leak into live storage")
}

func TestExecuteSimulateRejectsUnknownEntity(t *testing.T) {
	eng, _ := newTestEngine(t)

	env, err := ir.NewSimulate(ir.SimulatePayload{Entities: []confidence.EntityID{confidence.NewEntityID()}}, time.Now())
	require.NoError(t, err)

	_, err = eng.Execute(context.Background(), env)
	require.ErrorIs(t, err, ErrEntityNotFound)
}

func TestExecuteSimulateRejectsInvalidConstraints(t *testing.T) {
	bad := simulation.Constraints{MaxAffectedEntities: 0, MaxDepth: 1, MaxDurationMs: 1000}
	_, err := ir.NewSimulate(ir.SimulatePayload{Constraints: &bad}, time.Now())
	require.Error(t, err)
}
