package ir

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/KyroDB/kyroql/internal/confidence"
	"github.com/KyroDB/kyroql/internal/monitor"
	"github.com/KyroDB/kyroql/internal/pattern"
	"github.com/KyroDB/kyroql/internal/simulation"
	"github.com/KyroDB/kyroql/internal/source"
	"github.com/KyroDB/kyroql/internal/timerange"
	"github.com/KyroDB/kyroql/internal/value"
)

func mustConfidence(t *testing.T) confidence.Confidence {
	t.Helper()
	c, err := confidence.New(0.8, confidence.CalibrationHeuristic, confidence.ProvenanceAssertedByAgent)
	require.NoError(t, err)
	return c
}

func TestAssertPayloadValidateRejectsEmptyPredicate(t *testing.T) {
	p := AssertPayload{
		Predicate: "  ", Value: value.Bool(true), Confidence: mustConfidence(t),
		Source: source.NewUnknownSource(), ValidTime: timerange.Forever(), ConsistencyMode: ModeForce,
	}
	require.Error(t, p.Validate())
}

func TestAssertPayloadValidateRejectsOverlongPredicate(t *testing.T) {
	p := AssertPayload{
		Predicate: strings.Repeat("x", MaxTextLen+1), Value: value.Bool(true), Confidence: mustConfidence(t),
		Source: source.NewUnknownSource(), ValidTime: timerange.Forever(), ConsistencyMode: ModeForce,
	}
	require.Error(t, p.Validate())
}

func TestAssertPayloadValidateRejectsInvalidValue(t *testing.T) {
	nan := float32(0)
	nan = nan / nan
	p := AssertPayload{
		Predicate: "status", Value: value.Float(float64(nan)), Confidence: mustConfidence(t),
		Source: source.NewUnknownSource(), ValidTime: timerange.Forever(), ConsistencyMode: ModeForce,
	}
	require.Error(t, p.Validate())
}

func TestAssertPayloadValidateRejectsOversizedEmbedding(t *testing.T) {
	p := AssertPayload{
		Predicate: "status", Value: value.Bool(true), Confidence: mustConfidence(t),
		Source: source.NewUnknownSource(), ValidTime: timerange.Forever(), ConsistencyMode: ModeForce,
		Embedding: make([]float32, MaxEmbeddingDim+1),
	}
	require.Error(t, p.Validate())
}

func TestAssertPayloadValidateRejectsInvalidConsistencyMode(t *testing.T) {
	p := AssertPayload{
		Predicate: "status", Value: value.Bool(true), Confidence: mustConfidence(t),
		Source: source.NewUnknownSource(), ValidTime: timerange.Forever(), ConsistencyMode: "bogus",
	}
	require.Error(t, p.Validate())
}

func TestAssertPayloadValidateAcceptsWellFormedPayload(t *testing.T) {
	p := AssertPayload{
		Predicate: "status", Value: value.Bool(true), Confidence: mustConfidence(t),
		Source: source.NewUnknownSource(), ValidTime: timerange.Forever(), ConsistencyMode: ModeForce,
	}
	require.NoError(t, p.Validate())
}

func TestNewAssertBuildsStampedEnvelope(t *testing.T) {
	p := AssertPayload{
		Predicate: "status", Value: value.Bool(true), Confidence: mustConfidence(t),
		Source: source.NewUnknownSource(), ValidTime: timerange.Forever(), ConsistencyMode: ModeForce,
	}
	env, err := NewAssert(p, time.Now())
	require.NoError(t, err)
	require.Equal(t, OpAssert, env.Op)
	require.Equal(t, "1.0", env.Version)
	require.NotEqual(t, env.RequestID.String(), "00000000-0000-0000-0000-000000000000")
	require.NotNil(t, env.Assert)
}

func TestNewAssertPropagatesValidationError(t *testing.T) {
	p := AssertPayload{Predicate: ""}
	_, err := NewAssert(p, time.Now())
	require.Error(t, err)
}

func TestResolvePayloadValidate(t *testing.T) {
	require.NoError(t, ResolvePayload{}.Validate())

	longQuery := strings.Repeat("q", MaxTextLen+1)
	require.Error(t, ResolvePayload{Query: &longQuery}.Validate())

	require.Error(t, ResolvePayload{QueryEmbedding: make([]float32, MaxEmbeddingDim+1)}.Validate())

	badConfidence := float32(1.5)
	require.Error(t, ResolvePayload{MinConfidence: &badConfidence}.Validate())

	negativeLimit := -1
	require.Error(t, ResolvePayload{Limit: &negativeLimit}.Validate())

	goodLimit := 10
	require.NoError(t, ResolvePayload{Limit: &goodLimit}.Validate())
}

func TestRetractPayloadValidate(t *testing.T) {
	require.Error(t, RetractPayload{Reason: "  "}.Validate())
	require.NoError(t, RetractPayload{Reason: "duplicate entry"}.Validate())
}

func TestDefinePatternPayloadValidate(t *testing.T) {
	require.Error(t, DefinePatternPayload{Name: ""}.Validate())
	require.NoError(t, DefinePatternPayload{Name: "unique-email", Rule: pattern.NewUnique("email")}.Validate())
}

func TestDerivePayloadValidate(t *testing.T) {
	require.Error(t, DerivePayload{Rule: "", PremiseIDs: []confidence.BeliefID{confidence.NewBeliefID()}}.Validate())
	require.Error(t, DerivePayload{Rule: "modus_ponens", PremiseIDs: nil}.Validate())

	shared := confidence.NewBeliefID()
	require.Error(t, DerivePayload{
		Rule: "modus_ponens", PremiseIDs: []confidence.BeliefID{shared}, DerivedBeliefID: &shared,
	}.Validate())

	require.NoError(t, DerivePayload{
		Rule: "modus_ponens", PremiseIDs: []confidence.BeliefID{confidence.NewBeliefID()},
	}.Validate())
}

func TestSimulatePayloadValidate(t *testing.T) {
	require.NoError(t, SimulatePayload{}.Validate(), "nil constraints defaults to DefaultConstraints")

	bad := simulation.Constraints{MaxAffectedEntities: 0, MaxDepth: 1, MaxDurationMs: 1}
	require.Error(t, SimulatePayload{Constraints: &bad}.Validate())

	good := simulation.DefaultConstraints()
	require.NoError(t, SimulatePayload{Constraints: &good}.Validate())
}

func TestMonitorPayloadValidate(t *testing.T) {
	patternID := confidence.NewPatternID()
	require.NoError(t, MonitorPayload{Trigger: monitor.NewPatternViolationTrigger(patternID)}.Validate())
	require.Error(t, MonitorPayload{Trigger: monitor.Trigger{Kind: "bogus"}}.Validate())
}

func TestNewConstructorsPropagateValidationErrors(t *testing.T) {
	_, err := NewResolve(ResolvePayload{Limit: intPtr(-1)}, time.Now())
	require.Error(t, err)

	_, err = NewRetract(RetractPayload{Reason: ""}, time.Now())
	require.Error(t, err)

	_, err = NewDefinePattern(DefinePatternPayload{Name: ""}, time.Now())
	require.Error(t, err)

	_, err = NewDerive(DerivePayload{Rule: ""}, time.Now())
	require.Error(t, err)

	bad := simulation.Constraints{MaxAffectedEntities: 0}
	_, err = NewSimulate(SimulatePayload{Constraints: &bad}, time.Now())
	require.Error(t, err)

	_, err = NewMonitor(MonitorPayload{Trigger: monitor.Trigger{Kind: "bogus"}}, time.Now())
	require.Error(t, err)
}

func intPtr(i int) *int { return &i }
