package memory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/KyroDB/kyroql/internal/entity"
)

func mustEntity(t *testing.T, name string) entity.Entity {
	t.Helper()
	e, err := entity.New(name, entity.TypeArtifact)
	require.NoError(t, err)
	return e
}

func TestEntityStoreInsertRejectsDuplicateID(t *testing.T) {
	s := NewEntityStore()
	e := mustEntity(t, "sensor-1")
	require.NoError(t, s.Insert(context.Background(), e))
	require.ErrorIs(t, s.Insert(context.Background(), e), entity.ErrDuplicateKey)
}

func TestEntityStoreInsertEnforcesEmbeddingDimension(t *testing.T) {
	s := NewEntityStore()
	e1 := mustEntity(t, "sensor-1")
	e1.Embedding = []float32{1, 0, 0}
	require.NoError(t, s.Insert(context.Background(), e1))

	e2 := mustEntity(t, "sensor-2")
	e2.Embedding = []float32{1, 0}
	require.ErrorIs(t, s.Insert(context.Background(), e2), entity.ErrEmbeddingDimMismatch)
}

func TestEntityStoreUpdateRequiresAdvancingVersion(t *testing.T) {
	s := NewEntityStore()
	e := mustEntity(t, "sensor-1")
	require.NoError(t, s.Insert(context.Background(), e))

	require.ErrorIs(t, s.Update(context.Background(), e), entity.ErrVersionNotAdvancing)

	e.Version++
	require.NoError(t, s.Update(context.Background(), e))
}

func TestEntityStoreDeleteFailsWhenMergeSourcesExist(t *testing.T) {
	s := NewEntityStore()
	primary := mustEntity(t, "primary")
	secondary := mustEntity(t, "secondary")
	require.NoError(t, s.Insert(context.Background(), primary))
	require.NoError(t, s.Insert(context.Background(), secondary))
	_, err := s.Merge(context.Background(), primary.ID, secondary.ID)
	require.NoError(t, err)

	require.ErrorIs(t, s.Delete(context.Background(), primary.ID), entity.ErrHasMergeSources)
}

func TestEntityStoreFindByNameIsNormalized(t *testing.T) {
	s := NewEntityStore()
	e := mustEntity(t, "  Sensor One  ")
	require.NoError(t, s.Insert(context.Background(), e))

	got, err := s.FindByName(context.Background(), "sensor one")
	require.NoError(t, err)
	require.Equal(t, e.ID, got.ID)
}

func TestEntityStoreFindByNameFuzzyRanksPrefixOverSubstring(t *testing.T) {
	s := NewEntityStore()
	substr := mustEntity(t, "my-sensor-box")
	prefix := mustEntity(t, "sensor-box")
	require.NoError(t, s.Insert(context.Background(), substr))
	require.NoError(t, s.Insert(context.Background(), prefix))

	got, err := s.FindByNameFuzzy(context.Background(), "sensor", 10)
	require.NoError(t, err)
	require.Len(t, got, 2)
	require.Equal(t, prefix.ID, got[0].ID)
}

func TestEntityStoreFindByEmbeddingRanksByCosineSimilarity(t *testing.T) {
	s := NewEntityStore()
	aligned := mustEntity(t, "aligned")
	aligned.Embedding = []float32{1, 0}
	orthogonal := mustEntity(t, "orthogonal")
	orthogonal.Embedding = []float32{0, 1}
	require.NoError(t, s.Insert(context.Background(), aligned))
	require.NoError(t, s.Insert(context.Background(), orthogonal))

	got, err := s.FindByEmbedding(context.Background(), []float32{1, 0}, 10)
	require.NoError(t, err)
	require.Len(t, got, 2)
	require.Equal(t, aligned.ID, got[0].ID)
}

func TestEntityStoreMergeRedirectsGetAndUnionsAliasesAndMetadata(t *testing.T) {
	s := NewEntityStore()
	primary := mustEntity(t, "primary")
	primary.Metadata = map[string]any{"region": "us"}
	secondary := mustEntity(t, "secondary")
	secondary.Metadata = map[string]any{"zone": "a"}
	require.NoError(t, s.Insert(context.Background(), primary))
	require.NoError(t, s.Insert(context.Background(), secondary))

	merged, err := s.Merge(context.Background(), primary.ID, secondary.ID)
	require.NoError(t, err)
	require.Contains(t, merged.Aliases, "secondary")
	require.Equal(t, "us", merged.Metadata["region"])
	require.Equal(t, "a", merged.Metadata["zone"])

	got, err := s.Get(context.Background(), secondary.ID)
	require.NoError(t, err)
	require.Equal(t, primary.ID, got.ID)
}

func TestEntityStoreGetAtVersionAndListVersions(t *testing.T) {
	s := NewEntityStore()
	e := mustEntity(t, "sensor-1")
	require.NoError(t, s.Insert(context.Background(), e))
	e.Version++
	require.NoError(t, s.Update(context.Background(), e))

	v1, err := s.GetAtVersion(context.Background(), e.ID, 1)
	require.NoError(t, err)
	require.Equal(t, uint64(1), v1.Version)

	versions, err := s.ListVersions(context.Background(), e.ID)
	require.NoError(t, err)
	require.Len(t, versions, 2)
	require.True(t, versions[0].Version < versions[1].Version)
}

func TestEntityStoreAllReturnsOnlyLiveEntities(t *testing.T) {
	s := NewEntityStore()
	primary := mustEntity(t, "primary")
	secondary := mustEntity(t, "secondary")
	require.NoError(t, s.Insert(context.Background(), primary))
	require.NoError(t, s.Insert(context.Background(), secondary))
	_, err := s.Merge(context.Background(), primary.ID, secondary.ID)
	require.NoError(t, err)

	all, err := s.All(context.Background())
	require.NoError(t, err)
	require.Len(t, all, 1)
	require.Equal(t, primary.ID, all[0].ID)
}
