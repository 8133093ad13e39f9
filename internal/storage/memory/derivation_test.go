package memory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/KyroDB/kyroql/internal/confidence"
	"github.com/KyroDB/kyroql/internal/derivation"
)

func TestDerivationStoreIndexesByPremiseAndDerivedBelief(t *testing.T) {
	s := NewDerivationStore()
	premise := confidence.NewBeliefID()
	derived := confidence.NewBeliefID()
	r, err := derivation.New(&derived, []confidence.BeliefID{premise}, "modus_ponens", time.Now())
	require.NoError(t, err)
	require.NoError(t, s.Insert(context.Background(), r))

	byPremise, err := s.FindByPremise(context.Background(), premise)
	require.NoError(t, err)
	require.Len(t, byPremise, 1)
	require.Equal(t, r.ID, byPremise[0].ID)

	byDerived, err := s.FindByDerivedBelief(context.Background(), derived)
	require.NoError(t, err)
	require.Len(t, byDerived, 1)
	require.Equal(t, r.ID, byDerived[0].ID)
}

func TestDerivationStoreGetFailsForUnknownID(t *testing.T) {
	s := NewDerivationStore()
	_, err := s.Get(context.Background(), confidence.NewDerivationID())
	require.ErrorIs(t, err, derivation.ErrNotFound)
}

func TestDerivationStoreWithoutDerivedBeliefOnlyIndexesByPremise(t *testing.T) {
	s := NewDerivationStore()
	premise := confidence.NewBeliefID()
	r, err := derivation.New(nil, []confidence.BeliefID{premise}, "modus_ponens", time.Now())
	require.NoError(t, err)
	require.NoError(t, s.Insert(context.Background(), r))

	all, err := s.All(context.Background())
	require.NoError(t, err)
	require.Len(t, all, 1)
	require.Nil(t, all[0].DerivedBeliefID)
}
