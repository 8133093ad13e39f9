package runtime

import (
	"context"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	kengine "github.com/KyroDB/kyroql/internal/engine"
	"github.com/KyroDB/kyroql/internal/entity"
	"github.com/KyroDB/kyroql/internal/ir"
	"github.com/KyroDB/kyroql/internal/source"
	"github.com/KyroDB/kyroql/internal/storage/memory"
	"github.com/KyroDB/kyroql/internal/timerange"
	"github.com/KyroDB/kyroql/internal/value"
	"github.com/KyroDB/kyroql/internal/confidence"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))
}

func engineWithSensor(t *testing.T) (*kengine.Engine, confidence.EntityID) {
	t.Helper()
	entities := memory.NewEntityStore()
	beliefs := memory.NewBeliefStore()
	patterns := memory.NewPatternStore()
	conflicts := memory.NewConflictStore()
	derivations := memory.NewDerivationStore()

	sensor, err := entity.New("sensor", entity.TypeArtifact)
	require.NoError(t, err)
	require.NoError(t, entities.Insert(context.Background(), sensor))

	eng := kengine.New(entities, beliefs, patterns, conflicts, derivations, nil, testLogger())
	return eng, sensor.ID
}

func assertEnvelope(t *testing.T, entityID confidence.EntityID, mode ir.ConsistencyMode) ir.Envelope {
	t.Helper()
	conf, err := confidence.New(0.9, confidence.CalibrationHeuristic, confidence.ProvenanceAssertedByAgent)
	require.NoError(t, err)
	env, err := ir.NewAssert(ir.AssertPayload{
		EntityID:        entityID,
		Predicate:       "temperature",
		Value:           value.Float(20.0),
		Confidence:      conf,
		Source:          source.NewUnknownSource(),
		ValidTime:       timerange.FromNow(time.Now()),
		ConsistencyMode: mode,
	}, time.Now())
	require.NoError(t, err)
	return env
}

func resolveEnvelope(mode ir.ResolveMode) ir.Envelope {
	predicate := "temperature"
	env, err := ir.NewResolve(ir.ResolvePayload{
		Predicate: &predicate,
		Mode:      mode,
	}, time.Now())
	if err != nil {
		panic(err)
	}
	return env
}

func TestDefaultRouterRoutesAsExpected(t *testing.T) {
	router := DefaultRouter{}

	assert.Equal(t, Reflex, router.Route(resolveEnvelope(ir.ResolveSimple)))
	assert.Equal(t, Reflection, router.Route(resolveEnvelope(ir.ResolveTemporal)))
	assert.Equal(t, Reflection, router.Route(resolveEnvelope(ir.ResolveAggregate)))

	forced := assertEnvelope(t, confidence.NewEntityID(), ir.ModeForce)
	assert.Equal(t, Reflex, router.Route(forced))

	strict := assertEnvelope(t, confidence.NewEntityID(), ir.ModeStrict)
	assert.Equal(t, Reflection, router.Route(strict))
}

func TestRuntimeExecutesAssertOnReflexPath(t *testing.T) {
	eng, entityID := engineWithSensor(t)
	rt := New(eng, Config{ReflexWorkers: 1, ReflectionWorkers: 1, QueueCapacity: 16}, testLogger())
	defer rt.Shutdown()

	env := assertEnvelope(t, entityID, ir.ModeForce)
	handle, err := rt.ExecuteAsync(context.Background(), env)
	require.NoError(t, err)
	assert.Equal(t, Reflex, handle.Path())

	resp, err := handle.JoinTimeout(time.Second)
	require.NoError(t, err)
	assert.Equal(t, ir.OpAssert, resp.Op)
	assert.NotEqual(t, confidence.BeliefID{}, resp.AssertBeliefID)
}

func TestReflectionWorkDoesNotStarveReflex(t *testing.T) {
	eng, entityID := engineWithSensor(t)
	rt := New(eng, Config{ReflexWorkers: 1, ReflectionWorkers: 1, QueueCapacity: 16}, testLogger())
	defer rt.Shutdown()

	// Occupy the reflection worker with a slow (non-force) assert.
	slow := assertEnvelope(t, entityID, ir.ModeEventual)
	slowHandle, err := rt.ExecuteAsync(context.Background(), slow)
	require.NoError(t, err)
	assert.Equal(t, Reflection, slowHandle.Path())

	started := time.Now()
	fast := assertEnvelope(t, entityID, ir.ModeForce)
	handle, err := rt.ExecuteAsync(context.Background(), fast)
	require.NoError(t, err)
	assert.Equal(t, Reflex, handle.Path())

	_, err = handle.JoinTimeout(200 * time.Millisecond)
	require.NoError(t, err)
	assert.Less(t, time.Since(started), 500*time.Millisecond)

	_, err = slowHandle.JoinTimeout(time.Second)
	require.NoError(t, err)
}

func TestPoolTrySubmitReturnsQueueFullWhenSaturated(t *testing.T) {
	// No goroutines draining this pool's channel, so the second submission
	// to a capacity-1 queue must bounce rather than block.
	p := &pool{name: "reflex", capacity: 1, tx: make(chan job, 1), logger: testLogger()}

	first := job{ctx: context.Background(), reply: make(chan jobResult, 1)}
	require.NoError(t, p.trySubmit(first, Reflex))

	second := job{ctx: context.Background(), reply: make(chan jobResult, 1)}
	err := p.trySubmit(second, Reflex)
	require.Error(t, err)
	var full *ErrQueueFull
	require.ErrorAs(t, err, &full)
	assert.Equal(t, Reflex, full.Path)
}

func TestPoolTrySubmitReturnsDisconnectedAfterShutdown(t *testing.T) {
	p := startPool("reflection", 1, 4, nil, testLogger())
	close(p.tx)
	p.wg.Wait()

	err := p.trySubmit(job{ctx: context.Background(), reply: make(chan jobResult, 1)}, Reflection)
	require.Error(t, err)
	var disc *ErrDisconnected
	require.ErrorAs(t, err, &disc)
}

func TestHandleJoinReportsDisconnectedWhenReplyChannelClosed(t *testing.T) {
	h := &Handle{path: Reflex, reply: make(chan jobResult)}
	close(h.reply)

	_, err := h.Join(context.Background())
	require.Error(t, err)
	var disc *ErrDisconnected
	require.ErrorAs(t, err, &disc)
	assert.Equal(t, Reflex, disc.Path)
}

func TestHandleJoinTimeoutReportsTimeout(t *testing.T) {
	h := &Handle{path: Reflection, reply: make(chan jobResult)}

	_, err := h.JoinTimeout(10 * time.Millisecond)
	require.Error(t, err)
	var timeout *ErrTimeout
	require.ErrorAs(t, err, &timeout)
}
