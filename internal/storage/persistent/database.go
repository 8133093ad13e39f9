// Package persistent implements the durable write-ahead-log + immutable
// segment storage substrate (spec §4.2), grounded on
// internal/service/trace/wal.go's and buffer.go's framing and recovery
// idioms from the teacher codebase.
package persistent

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/KyroDB/kyroql/internal/belief"
	"github.com/KyroDB/kyroql/internal/conflict"
	"github.com/KyroDB/kyroql/internal/derivation"
	"github.com/KyroDB/kyroql/internal/entity"
	"github.com/KyroDB/kyroql/internal/pattern"
	"github.com/KyroDB/kyroql/internal/storage/memory"
)

const segmentsDirName = "segments"

// Database is a durable store pairing in-memory indexes with a WAL and
// compacted segment files on disk. Its Entities/Beliefs/Patterns/
// Conflicts/Derivations fields each satisfy the corresponding domain
// package's Store interface, logging every mutation to the WAL before
// applying it.
type Database struct {
	dir        string
	segmentDir string
	lock       *FileLock
	wal        *WAL
	logger     *slog.Logger

	Entities    *EntityStore
	Beliefs     *BeliefStore
	Patterns    *PatternStore
	Conflicts   *ConflictStore
	Derivations *DerivationStore
}

// Open creates dir if needed, acquires its exclusive lock, loads the latest
// segment snapshot if one exists, opens (or creates) its WAL, and replays
// WAL entries recorded after that segment's checkpoint. It is safe to call
// concurrently from at most one process; a second call against the same
// dir returns ErrLocked.
func Open(dir string, syncOnWrite bool, logger *slog.Logger) (*Database, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("persistent: create database dir: %w", err)
	}
	segDir := filepath.Join(dir, segmentsDirName)
	if err := os.MkdirAll(segDir, 0o755); err != nil {
		return nil, fmt.Errorf("persistent: create segments dir: %w", err)
	}

	lock, err := AcquireLock(dir)
	if err != nil {
		return nil, err
	}

	db := &Database{
		dir:        dir,
		segmentDir: segDir,
		lock:       lock,
		logger:     logger,

		Entities:    NewEntityStore(memory.NewEntityStore()),
		Beliefs:     NewBeliefStore(memory.NewBeliefStore()),
		Patterns:    NewPatternStore(memory.NewPatternStore()),
		Conflicts:   NewConflictStore(memory.NewConflictStore()),
		Derivations: NewDerivationStore(memory.NewDerivationStore()),
	}

	if err := db.recoverFromSegment(); err != nil {
		lock.Release()
		return nil, err
	}

	wal, err := OpenWAL(DefaultWALPath(dir), syncOnWrite, logger)
	if err != nil {
		lock.Release()
		return nil, err
	}
	db.wal = wal
	db.Entities.SetWAL(wal)
	db.Beliefs.SetWAL(wal)
	db.Patterns.SetWAL(wal)
	db.Conflicts.SetWAL(wal)
	db.Derivations.SetWAL(wal)

	if err := db.replayWAL(wal); err != nil {
		wal.Close()
		lock.Release()
		return nil, err
	}
	return db, nil
}

// recoverFromSegment loads the most recent segment snapshot, if any, into
// the in-memory stores via each store's Restore path.
func (db *Database) recoverFromSegment() error {
	latest, err := LatestSegment(db.segmentDir)
	if err != nil {
		return fmt.Errorf("persistent: list segments: %w", err)
	}
	if latest == "" {
		return nil
	}
	snap, err := ReadSegment(latest)
	if err != nil {
		return fmt.Errorf("persistent: read latest segment %s: %w", latest, err)
	}
	for _, e := range snap.Entities {
		db.Entities.Inner().Restore(e)
	}
	for _, b := range snap.Beliefs {
		db.Beliefs.Inner().Restore(b)
	}
	for _, p := range snap.Patterns {
		db.Patterns.Inner().Restore(p)
	}
	for _, c := range snap.Conflicts {
		db.Conflicts.Inner().Restore(c)
	}
	for _, r := range snap.Derivations {
		db.Derivations.Inner().Restore(r)
	}
	return nil
}

// replayWAL applies every WAL entry recorded after the last checkpoint. A
// malformed entry stops replay at that point, matching the WAL's own
// truncation-tolerant contract; everything applied before it is kept.
func (db *Database) replayWAL(w *WAL) error {
	ctx := context.Background()
	return w.Replay(func(e Entry) error {
		switch e.Kind {
		case EntryEntityInsert, EntryEntityUpdate:
			var v entity.Entity
			if err := json.Unmarshal(e.Data, &v); err != nil {
				return err
			}
			db.Entities.Inner().Restore(v)
		case EntryEntityDelete:
			var v entityDeletePayload
			if err := json.Unmarshal(e.Data, &v); err != nil {
				return err
			}
			_ = db.Entities.Inner().Delete(ctx, v.ID)
		case EntryEntityMerge:
			var v entityMergePayload
			if err := json.Unmarshal(e.Data, &v); err != nil {
				return err
			}
			db.Entities.Inner().RestoreMerge(v.Primary, v.Secondary)
		case EntryBeliefInsert:
			var v belief.Belief
			if err := json.Unmarshal(e.Data, &v); err != nil {
				return err
			}
			db.Beliefs.Inner().Restore(v)
		case EntryBeliefSupersede:
			var v beliefSupersedePayload
			if err := json.Unmarshal(e.Data, &v); err != nil {
				return err
			}
			_ = db.Beliefs.Inner().Supersede(ctx, v.Old, v.New)
		case EntryPatternInsert, EntryPatternUpdate:
			var v pattern.Pattern
			if err := json.Unmarshal(e.Data, &v); err != nil {
				return err
			}
			db.Patterns.Inner().Restore(v)
		case EntryPatternDelete:
			var v patternDeletePayload
			if err := json.Unmarshal(e.Data, &v); err != nil {
				return err
			}
			_ = db.Patterns.Inner().Delete(ctx, v.ID)
		case EntryConflictInsert, EntryConflictUpdate:
			var v conflict.Conflict
			if err := json.Unmarshal(e.Data, &v); err != nil {
				return err
			}
			db.Conflicts.Inner().Restore(v)
		case EntryDerivationInsert:
			var v derivation.Record
			if err := json.Unmarshal(e.Data, &v); err != nil {
				return err
			}
			db.Derivations.Inner().Restore(v)
		}
		return nil
	})
}

// Compact snapshots the current state of every store into a new segment
// file, then checkpoints and truncates the WAL. The segment is written and
// fsynced before the WAL is touched, so a crash between the two leaves the
// WAL as the sole source of truth and replay remains correct; a crash after
// truncation simply leaves the new segment as the base for the next
// recovery, with an empty WAL on top.
func (db *Database) Compact(ctx context.Context) error {
	entities, err := db.Entities.Inner().All(ctx)
	if err != nil {
		return err
	}
	beliefs, err := db.Beliefs.Inner().All(ctx)
	if err != nil {
		return err
	}
	patterns, err := db.Patterns.Inner().All(ctx)
	if err != nil {
		return err
	}
	conflicts, err := db.Conflicts.Inner().All(ctx)
	if err != nil {
		return err
	}
	derivations, err := db.Derivations.Inner().All(ctx)
	if err != nil {
		return err
	}

	seq := db.wal.CurrentSequence()
	snap := Snapshot{
		Header: SegmentHeader{
			SequenceStart: 0,
			SequenceEnd:   seq,
			EntryCount:    len(entities) + len(beliefs) + len(patterns) + len(conflicts) + len(derivations),
			CreatedAt:     time.Now().UTC(),
		},
		Entities:    entities,
		Beliefs:     beliefs,
		Patterns:    patterns,
		Conflicts:   conflicts,
		Derivations: derivations,
	}
	if _, err := WriteSegment(db.segmentDir, snap); err != nil {
		return fmt.Errorf("persistent: compact: write segment: %w", err)
	}
	if _, err := db.wal.Checkpoint(seq); err != nil {
		return fmt.Errorf("persistent: compact: checkpoint wal: %w", err)
	}
	if err := db.wal.Truncate(); err != nil {
		return fmt.Errorf("persistent: compact: truncate wal: %w", err)
	}
	db.logger.Info("compaction complete", "sequence", seq, "entities", len(entities), "beliefs", len(beliefs))
	return nil
}

// SegmentCount reports how many compacted segment files are on disk.
// Best-effort: an unreadable segment directory reports zero rather than
// failing the caller (this backs an observability gauge, not a correctness
// check).
func (db *Database) SegmentCount() int {
	entries, err := os.ReadDir(db.segmentDir)
	if err != nil {
		return 0
	}
	return len(entries)
}

// Close releases the database's file lock and closes its WAL.
func (db *Database) Close() error {
	var errs []error
	if db.wal != nil {
		if err := db.wal.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if err := db.lock.Release(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}
