package persistent

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/KyroDB/kyroql/internal/entity"
)

func TestWriteSegmentThenReadSegmentRoundTrips(t *testing.T) {
	dir := t.TempDir()
	e, err := entity.New("sensor-1", entity.TypeArtifact)
	require.NoError(t, err)

	snap := Snapshot{
		Header:   SegmentHeader{SequenceStart: 1, SequenceEnd: 5, EntryCount: 1, CreatedAt: time.Unix(0, 0).UTC()},
		Entities: []entity.Entity{e},
	}
	path, err := WriteSegment(dir, snap)
	require.NoError(t, err)
	require.Equal(t, filepath.Join(dir, segmentFileName(5)), path)

	got, err := ReadSegment(path)
	require.NoError(t, err)
	require.Len(t, got.Entities, 1)
	require.Equal(t, "sensor-1", got.Entities[0].CanonicalName)
	require.Equal(t, uint64(5), got.Header.SequenceEnd)
}

func TestListSegmentsReturnsAscendingSequenceOrder(t *testing.T) {
	dir := t.TempDir()
	for _, seq := range []uint64{30, 10, 20} {
		_, err := WriteSegment(dir, Snapshot{Header: SegmentHeader{SequenceEnd: seq, CreatedAt: time.Unix(0, 0).UTC()}})
		require.NoError(t, err)
	}

	segs, err := ListSegments(dir)
	require.NoError(t, err)
	require.Len(t, segs, 3)
	require.Equal(t, filepath.Join(dir, segmentFileName(10)), segs[0])
	require.Equal(t, filepath.Join(dir, segmentFileName(20)), segs[1])
	require.Equal(t, filepath.Join(dir, segmentFileName(30)), segs[2])
}

func TestListSegmentsOnMissingDirReturnsNilWithoutError(t *testing.T) {
	segs, err := ListSegments(filepath.Join(t.TempDir(), "does-not-exist"))
	require.NoError(t, err)
	require.Nil(t, segs)
}

func TestLatestSegmentReturnsHighestSequence(t *testing.T) {
	dir := t.TempDir()
	_, err := WriteSegment(dir, Snapshot{Header: SegmentHeader{SequenceEnd: 1, CreatedAt: time.Unix(0, 0).UTC()}})
	require.NoError(t, err)
	_, err = WriteSegment(dir, Snapshot{Header: SegmentHeader{SequenceEnd: 99, CreatedAt: time.Unix(0, 0).UTC()}})
	require.NoError(t, err)

	latest, err := LatestSegment(dir)
	require.NoError(t, err)
	require.Equal(t, filepath.Join(dir, segmentFileName(99)), latest)
}

func TestLatestSegmentOnEmptyDirReturnsEmptyString(t *testing.T) {
	latest, err := LatestSegment(t.TempDir())
	require.NoError(t, err)
	require.Empty(t, latest)
}
