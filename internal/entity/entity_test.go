package entity

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNewRejectsEmptyCanonicalName(t *testing.T) {
	_, err := New("   ", TypePerson)
	require.Error(t, err)
}

func TestNewTrimsNameAndSetsDefaults(t *testing.T) {
	e, err := New("  Alice  ", TypePerson)
	require.NoError(t, err)
	require.Equal(t, "Alice", e.CanonicalName)
	require.Equal(t, uint64(1), e.Version)
	require.NotNil(t, e.Metadata)
	require.False(t, e.CreatedAt.IsZero())
	require.Equal(t, e.CreatedAt, e.UpdatedAt)
}

func TestNormalizeName(t *testing.T) {
	require.Equal(t, "alice", NormalizeName("  Alice  "))
	require.Equal(t, "", NormalizeName("   "))
}

func TestCustomType(t *testing.T) {
	require.Equal(t, Type("custom:widget"), CustomType("widget"))
}

func TestWithAliasesDedupesCaseInsensitively(t *testing.T) {
	e, err := New("Alice", TypePerson)
	require.NoError(t, err)

	e = e.WithAliases("alice", "Ali", "ALI", "Bob")
	require.ElementsMatch(t, []string{"Ali", "Bob"}, e.Aliases)
}

func TestWithAliasesSkipsEmptyAndAccumulates(t *testing.T) {
	e, err := New("Alice", TypePerson)
	require.NoError(t, err)

	e = e.WithAliases("Ali", "  ")
	e = e.WithAliases("Bob")
	require.ElementsMatch(t, []string{"Ali", "Bob"}, e.Aliases)
}
