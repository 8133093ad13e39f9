package conflict

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/KyroDB/kyroql/internal/confidence"
)

func TestNewRejectsEmptyBeliefIDs(t *testing.T) {
	_, err := New(nil, confidence.NewEntityID(), NewValueContradiction(), 0.5)
	require.Error(t, err)
}

func TestNewClampsSeverityAndSetsOpenStatus(t *testing.T) {
	c, err := New([]confidence.BeliefID{confidence.NewBeliefID()}, confidence.NewEntityID(), NewValueContradiction(), 2.0)
	require.NoError(t, err)
	require.Equal(t, float32(1), c.Severity)
	require.Equal(t, StatusOpen, c.Status)
	require.NotNil(t, c.Metadata)

	c, err = New([]confidence.BeliefID{confidence.NewBeliefID()}, confidence.NewEntityID(), NewValueContradiction(), -2.0)
	require.NoError(t, err)
	require.Equal(t, float32(0), c.Severity)
}

func TestNewCopiesBeliefIDsDefensively(t *testing.T) {
	ids := []confidence.BeliefID{confidence.NewBeliefID()}
	c, err := New(ids, confidence.NewEntityID(), NewValueContradiction(), 0.5)
	require.NoError(t, err)

	ids[0] = confidence.NewBeliefID()
	require.NotEqual(t, ids[0], c.BeliefIDs[0])
}

func TestConflictTypeConstructors(t *testing.T) {
	require.Equal(t, TypeValueContradiction, NewValueContradiction().Kind)
	require.Equal(t, TypeTemporalInconsistency, NewTemporalInconsistency().Kind)
	require.Equal(t, TypeSourceDisagreement, NewSourceDisagreement().Kind)
	require.Equal(t, TypeLogicalContradiction, NewLogicalContradiction().Kind)

	pid := confidence.NewPatternID()
	pv := NewPatternViolation(pid, "unique-email")
	require.Equal(t, TypePatternViolation, pv.Kind)
	require.Equal(t, pid, pv.PatternID)
	require.Equal(t, "unique-email", pv.PatternName)

	custom := NewCustomType("weird")
	require.Equal(t, TypeCustom, custom.Kind)
	require.Equal(t, "weird", custom.CustomName)
}
