package source

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/KyroDB/kyroql/internal/confidence"
)

func TestSourceIDDeterministicForEqualContent(t *testing.T) {
	a := NewPaperSource("1234.5678", "A Paper")
	b := NewPaperSource("1234.5678", "A Paper")
	require.Equal(t, a.SourceID(), b.SourceID())
}

func TestSourceIDDiffersForDifferentContent(t *testing.T) {
	a := NewPaperSource("1234.5678", "A Paper")
	b := NewPaperSource("8765.4321", "A Paper")
	require.NotEqual(t, a.SourceID(), b.SourceID())
}

func TestSourceIDDiffersAcrossKinds(t *testing.T) {
	agent := NewAgentSource("agent-1", nil)
	human := NewHumanSource("agent-1")
	require.NotEqual(t, agent.SourceID(), human.SourceID())
}

func TestSourceIDSensitiveToOptionalFields(t *testing.T) {
	withType := NewSensorSourceWithType("sensor-1", "thermometer")
	withoutType := NewSensorSource("sensor-1")
	require.NotEqual(t, withType.SourceID(), withoutType.SourceID())
}

func TestSourceIDSensitiveToDerivedPremises(t *testing.T) {
	p1 := confidence.NewBeliefID()
	p2 := confidence.NewBeliefID()
	a := NewDerivedSource([]confidence.BeliefID{p1, p2}, "modus_ponens")
	b := NewDerivedSource([]confidence.BeliefID{p2, p1}, "modus_ponens")
	require.NotEqual(t, a.SourceID(), b.SourceID(), "premise order affects the encoding")
}

func TestClassificationHelpers(t *testing.T) {
	require.True(t, NewHumanSource("u1").IsHuman())
	require.False(t, NewHumanSource("u1").IsAutomated())

	require.True(t, NewAgentSource("a1", nil).IsAutomated())
	require.True(t, NewSensorSource("s1").IsAutomated())
	require.True(t, NewAPISource("svc").IsAutomated())
	require.False(t, NewAgentSource("a1", nil).IsHuman())

	require.True(t, NewDerivedSource(nil, "rule").IsDerived())
	require.False(t, NewHumanSource("u1").IsDerived())
}

func TestSourceTypeMatchesKind(t *testing.T) {
	require.Equal(t, "human", NewHumanSource("u1").SourceType())
	require.Equal(t, "agent", NewAgentSource("a1", nil).SourceType())
}

func TestStringRendersReadableForm(t *testing.T) {
	require.Equal(t, "paper:arXiv:1234.5678", NewPaperSource("1234.5678", "x").String())
	require.Equal(t, "sensor:s1", NewSensorSource("s1").String())
	require.Equal(t, "agent:a1", NewAgentSource("a1", nil).String())
	require.Equal(t, "human:u1", NewHumanSource("u1").String())
	require.Equal(t, "api:svc", NewAPISource("svc").String())
	require.Equal(t, "unknown", NewUnknownSource().String())
	require.Equal(t, "unknown:note", NewUnknownSourceWithDescription("note").String())
}
