package persistent

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestOpenWALCreatesFreshFileWithHeader(t *testing.T) {
	path := filepath.Join(t.TempDir(), "kyro.wal")
	w, err := OpenWAL(path, false, nil)
	require.NoError(t, err)
	defer w.Close()

	require.Equal(t, uint64(0), w.CurrentSequence())
}

func TestAppendAssignsMonotonicSequences(t *testing.T) {
	path := filepath.Join(t.TempDir(), "kyro.wal")
	w, err := OpenWAL(path, false, nil)
	require.NoError(t, err)
	defer w.Close()

	seq1, err := w.Append(EntryEntityInsert, map[string]string{"id": "a"})
	require.NoError(t, err)
	seq2, err := w.Append(EntryEntityInsert, map[string]string{"id": "b"})
	require.NoError(t, err)

	require.Equal(t, uint64(1), seq1)
	require.Equal(t, uint64(2), seq2)
	require.Equal(t, uint64(2), w.CurrentSequence())
}

func TestReplaySkipsEntriesUpToLastCheckpoint(t *testing.T) {
	path := filepath.Join(t.TempDir(), "kyro.wal")
	w, err := OpenWAL(path, false, nil)
	require.NoError(t, err)
	defer w.Close()

	_, err = w.Append(EntryEntityInsert, map[string]string{"id": "before-checkpoint"})
	require.NoError(t, err)
	seq, err := w.Append(EntryEntityInsert, map[string]string{"id": "also-before"})
	require.NoError(t, err)
	_, err = w.Checkpoint(seq)
	require.NoError(t, err)
	_, err = w.Append(EntryEntityInsert, map[string]string{"id": "after-checkpoint"})
	require.NoError(t, err)

	var replayed []string
	err = w.Replay(func(e Entry) error {
		replayed = append(replayed, string(e.Data))
		return nil
	})
	require.NoError(t, err)
	require.Len(t, replayed, 1)
	require.Contains(t, replayed[0], "after-checkpoint")
}

func TestTruncateResetsSequenceAndWAL(t *testing.T) {
	path := filepath.Join(t.TempDir(), "kyro.wal")
	w, err := OpenWAL(path, false, nil)
	require.NoError(t, err)
	defer w.Close()

	_, err = w.Append(EntryEntityInsert, map[string]string{"id": "a"})
	require.NoError(t, err)
	require.NoError(t, w.Truncate())
	require.Equal(t, uint64(0), w.CurrentSequence())

	var replayed int
	err = w.Replay(func(Entry) error {
		replayed++
		return nil
	})
	require.NoError(t, err)
	require.Equal(t, 0, replayed)
}

func TestReopenWALPreservesEntries(t *testing.T) {
	path := filepath.Join(t.TempDir(), "kyro.wal")
	w, err := OpenWAL(path, false, nil)
	require.NoError(t, err)
	_, err = w.Append(EntryEntityInsert, map[string]string{"id": "persisted"})
	require.NoError(t, err)
	require.NoError(t, w.Close())

	reopened, err := OpenWAL(path, false, nil)
	require.NoError(t, err)
	defer reopened.Close()

	var replayed []string
	err = reopened.Replay(func(e Entry) error {
		replayed = append(replayed, string(e.Data))
		return nil
	})
	require.NoError(t, err)
	require.Len(t, replayed, 1)
	require.Contains(t, replayed[0], "persisted")
}

func TestDefaultWALPathJoinsDBDir(t *testing.T) {
	require.Equal(t, filepath.Join("db", "kyro.wal"), DefaultWALPath("db"))
}
