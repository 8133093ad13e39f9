package persistent

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// EntryKind enumerates every mutating operation the WAL can record
// (spec §4.2).
type EntryKind string

const (
	EntryEntityInsert EntryKind = "entity_insert"
	EntryEntityUpdate EntryKind = "entity_update"
	EntryEntityDelete EntryKind = "entity_delete"
	EntryEntityMerge  EntryKind = "entity_merge"

	EntryBeliefInsert    EntryKind = "belief_insert"
	EntryBeliefSupersede EntryKind = "belief_supersede"

	EntryPatternInsert EntryKind = "pattern_insert"
	EntryPatternUpdate EntryKind = "pattern_update"
	EntryPatternDelete EntryKind = "pattern_delete"

	EntryConflictInsert EntryKind = "conflict_insert"
	EntryConflictUpdate EntryKind = "conflict_update"

	EntryDerivationInsert EntryKind = "derivation_insert"

	EntryCheckpoint EntryKind = "checkpoint"
)

// Entry is one WAL record.
type Entry struct {
	Sequence  uint64          `json:"sequence"`
	Timestamp time.Time       `json:"timestamp"`
	Kind      EntryKind       `json:"kind"`
	Data      json.RawMessage `json:"data,omitempty"`
	UpToSeq   uint64          `json:"up_to_sequence,omitempty"`
}

// WAL is the append-only durability substrate. Sequence numbers are
// monotonic per open database; append is serialized by mu.
type WAL struct {
	mu          sync.Mutex
	path        string
	file        *os.File
	nextSeq     uint64
	syncOnWrite bool
	logger      *slog.Logger
}

// OpenWAL opens or creates the WAL file at path, writing a fresh header if
// the file is new.
func OpenWAL(path string, syncOnWrite bool, logger *slog.Logger) (*WAL, error) {
	if logger == nil {
		logger = slog.Default()
	}
	isNew := false
	if _, err := os.Stat(path); os.IsNotExist(err) {
		isNew = true
	}
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0o644)
	if err != nil {
		return nil, fmt.Errorf("persistent: open wal: %w", err)
	}
	if isNew {
		if err := WriteFileHeader(f); err != nil {
			f.Close()
			return nil, fmt.Errorf("persistent: write wal header: %w", err)
		}
		if err := f.Sync(); err != nil {
			f.Close()
			return nil, fmt.Errorf("persistent: sync wal header: %w", err)
		}
	} else {
		if _, err := ReadFileHeader(f); err != nil {
			f.Close()
			return nil, fmt.Errorf("persistent: validate wal header: %w", err)
		}
	}
	return &WAL{path: path, file: f, syncOnWrite: syncOnWrite, logger: logger}, nil
}

// Append writes an entry, flushing (and fsyncing when syncOnWrite) before
// returning the assigned sequence number.
func (w *WAL) Append(kind EntryKind, data any) (uint64, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	raw, err := json.Marshal(data)
	if err != nil {
		return 0, fmt.Errorf("persistent: marshal wal entry: %w", err)
	}
	w.nextSeq++
	entry := Entry{Sequence: w.nextSeq, Timestamp: time.Now().UTC(), Kind: kind, Data: raw}
	payload, err := json.Marshal(entry)
	if err != nil {
		return 0, fmt.Errorf("persistent: marshal wal frame: %w", err)
	}
	if _, err := w.file.Seek(0, io.SeekEnd); err != nil {
		return 0, fmt.Errorf("persistent: seek wal: %w", err)
	}
	if err := WriteFrame(w.file, payload); err != nil {
		return 0, fmt.Errorf("persistent: write wal frame: %w", err)
	}
	if w.syncOnWrite {
		if err := w.file.Sync(); err != nil {
			return 0, fmt.Errorf("persistent: sync wal: %w", err)
		}
	}
	return entry.Sequence, nil
}

// Checkpoint appends a checkpoint entry recording upToSeq.
func (w *WAL) Checkpoint(upToSeq uint64) (uint64, error) {
	return w.Append(EntryCheckpoint, map[string]uint64{"up_to_sequence": upToSeq})
}

// ReplayFunc is invoked for every entry after the last checkpoint during
// recovery.
type ReplayFunc func(Entry) error

// Replay reads every entry in the WAL, invoking fn for entries after the
// most recent checkpoint. On the first parse/CRC error, replay stops and
// logs a warning; entries read so far are retained (spec §4.2, §7).
func (w *WAL) Replay(fn ReplayFunc) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if _, err := w.file.Seek(0, io.SeekStart); err != nil {
		return fmt.Errorf("persistent: seek wal start: %w", err)
	}
	if _, err := ReadFileHeader(w.file); err != nil {
		return fmt.Errorf("persistent: read wal header: %w", err)
	}

	var entries []Entry
	for {
		payload, err := ReadFrame(w.file)
		if err != nil {
			if err == io.EOF {
				break
			}
			w.logger.Warn("wal replay stopped at unparsable entry", "error", err)
			break
		}
		var entry Entry
		if err := json.Unmarshal(payload, &entry); err != nil {
			w.logger.Warn("wal replay stopped at undecodable entry", "error", err)
			break
		}
		entries = append(entries, entry)
		if entry.Sequence > w.nextSeq {
			w.nextSeq = entry.Sequence
		}
	}

	lastCheckpoint := uint64(0)
	for _, e := range entries {
		if e.Kind == EntryCheckpoint {
			var payload struct {
				UpToSequence uint64 `json:"up_to_sequence"`
			}
			if err := json.Unmarshal(e.Data, &payload); err == nil {
				lastCheckpoint = payload.UpToSequence
			}
		}
	}

	for _, e := range entries {
		if e.Kind == EntryCheckpoint {
			continue
		}
		if e.Sequence <= lastCheckpoint {
			continue
		}
		if err := fn(e); err != nil {
			return fmt.Errorf("persistent: apply wal entry seq=%d: %w", e.Sequence, err)
		}
	}
	return nil
}

// Truncate resets the WAL to an empty, freshly-headered file and resets the
// sequence counter to zero. Used after a successful compaction.
func (w *WAL) Truncate() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if err := w.file.Truncate(0); err != nil {
		return fmt.Errorf("persistent: truncate wal: %w", err)
	}
	if _, err := w.file.Seek(0, io.SeekStart); err != nil {
		return fmt.Errorf("persistent: seek wal start: %w", err)
	}
	if err := WriteFileHeader(w.file); err != nil {
		return fmt.Errorf("persistent: rewrite wal header: %w", err)
	}
	if err := w.file.Sync(); err != nil {
		return fmt.Errorf("persistent: sync wal: %w", err)
	}
	w.nextSeq = 0
	return nil
}

// CurrentSequence returns the last sequence number assigned.
func (w *WAL) CurrentSequence() uint64 {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.nextSeq
}

// Close closes the underlying file.
func (w *WAL) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.file.Close()
}

// DefaultWALPath builds the conventional WAL path inside a database
// directory (spec §4.2, §6: "<db>/kyro.wal").
func DefaultWALPath(dbDir string) string {
	return filepath.Join(dbDir, "kyro.wal")
}
