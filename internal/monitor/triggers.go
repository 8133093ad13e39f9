// Package monitor implements the MONITOR subsystem: reactive subscriptions
// that fire when committed ASSERT observations match a registered trigger
// (spec §4.7). Grounded on original_source/src/monitor/{mod,triggers,
// matcher}.rs; dispatcher.rs and stream.rs were filtered from the
// retrieval pack, so the dispatcher/stream shapes below are grounded
// instead on akashi's internal/service/trace/buffer.go: a single
// background goroutine draining a bounded channel, atomic started/
// closed flags, and drop-and-count backpressure.
package monitor

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/KyroDB/kyroql/internal/confidence"
	"github.com/KyroDB/kyroql/internal/conflict"
	"github.com/KyroDB/kyroql/internal/value"
)

// TriggerID identifies a registered trigger.
type TriggerID uuid.UUID

func NewTriggerID() TriggerID        { return TriggerID(uuid.New()) }
func (id TriggerID) String() string  { return uuid.UUID(id).String() }

// SubscriptionID identifies a live subscription stream.
type SubscriptionID uuid.UUID

func NewSubscriptionID() SubscriptionID { return SubscriptionID(uuid.New()) }
func (id SubscriptionID) String() string { return uuid.UUID(id).String() }

// TriggerKind discriminates the Trigger variant.
type TriggerKind string

const (
	TriggerConfidenceShift  TriggerKind = "confidence_shift"
	TriggerConflictCreated  TriggerKind = "conflict_created"
	TriggerPatternViolation TriggerKind = "pattern_violation"
	TriggerEntropySpike     TriggerKind = "entropy_spike"
	TriggerGapFilled        TriggerKind = "gap_filled"
)

// Trigger is a tagged union over the five monitoring conditions. Exactly
// the fields relevant to Kind are meaningful.
type Trigger struct {
	Kind TriggerKind

	// ConfidenceShift
	EntityID  *confidence.EntityID
	Predicate *string
	Threshold float32

	// ConflictCreated (EntityID above doubles as its optional filter)
	ConflictTypes []conflict.ConflictType

	// PatternViolation
	PatternID confidence.PatternID

	// EntropySpike
	Domain string

	// GapFilled
	GapEntityID  confidence.EntityID
	GapPredicate string
}

// NewConfidenceShiftTrigger fires when a predicate's confidence moves by
// more than threshold between successive beliefs.
func NewConfidenceShiftTrigger(entityID *confidence.EntityID, predicate *string, threshold float32) Trigger {
	return Trigger{Kind: TriggerConfidenceShift, EntityID: entityID, Predicate: predicate, Threshold: threshold}
}

// NewConflictCreatedTrigger fires when an ASSERT produces a conflict,
// optionally filtered to an entity and/or a set of conflict types.
func NewConflictCreatedTrigger(entityID *confidence.EntityID, conflictTypes []conflict.ConflictType) Trigger {
	return Trigger{Kind: TriggerConflictCreated, EntityID: entityID, ConflictTypes: conflictTypes}
}

// NewPatternViolationTrigger fires when the named pattern is violated.
func NewPatternViolationTrigger(patternID confidence.PatternID) Trigger {
	return Trigger{Kind: TriggerPatternViolation, PatternID: patternID}
}

// NewEntropySpikeTrigger fires when Shannon entropy over competing AS-OF
// values for a predicate exceeds threshold bits.
func NewEntropySpikeTrigger(domain string, thresholdBits float32) Trigger {
	return Trigger{Kind: TriggerEntropySpike, Domain: domain, Threshold: thresholdBits}
}

// NewGapFilledTrigger fires the first time a previously null/missing
// predicate receives a non-null value.
func NewGapFilledTrigger(entityID confidence.EntityID, predicate string) Trigger {
	return Trigger{Kind: TriggerGapFilled, GapEntityID: entityID, GapPredicate: predicate}
}

// EventKind discriminates the EventPayload variant.
type EventKind string

const (
	EventAssertCommitted  EventKind = "assert_committed"
	EventConfidenceShift  EventKind = "confidence_shift"
	EventConflictCreated  EventKind = "conflict_created"
	EventPatternViolation EventKind = "pattern_violation"
	EventEntropySpike     EventKind = "entropy_spike"
	EventGapFilled        EventKind = "gap_filled"
)

// EventPayload is the tagged union carried by a fired MonitorEvent.
type EventPayload struct {
	Kind EventKind

	BeliefID  confidence.BeliefID
	EntityID  confidence.EntityID
	Predicate string

	// AssertCommitted
	Value      value.Value
	Confidence float32

	// ConfidenceShift
	Previous float32
	Current  float32
	Delta    float32

	// ConflictCreated
	ConflictTypes []conflict.ConflictType

	// PatternViolation
	PatternID confidence.PatternID

	// EntropySpike
	EntropyBits   float32
	ThresholdBits float32
}

// ErrTriggerPayloadMismatch is returned when a trigger and payload kind do
// not correspond to the same monitoring condition.
type ErrTriggerPayloadMismatch struct {
	TriggerKind TriggerKind
	PayloadKind EventKind
}

func (e *ErrTriggerPayloadMismatch) Error() string {
	return fmt.Sprintf("monitor: trigger/payload mismatch: trigger=%s payload=%s", e.TriggerKind, e.PayloadKind)
}

// MonitorEvent is a fired monitoring event, ready to stream to
// subscribers.
type MonitorEvent struct {
	EventID     uuid.UUID
	TriggerID   TriggerID
	TriggerType Trigger
	Timestamp   time.Time
	Payload     EventPayload
}

// NewMonitorEvent validates that triggerType and payload describe the same
// monitoring condition before constructing the event. Mirrors
// MonitorEvent::new's exhaustive match.
func NewMonitorEvent(triggerID TriggerID, triggerType Trigger, payload EventPayload) (MonitorEvent, error) {
	ok := false
	switch {
	case triggerType.Kind == TriggerConfidenceShift && payload.Kind == EventConfidenceShift:
		ok = true
	case triggerType.Kind == TriggerConflictCreated && payload.Kind == EventConflictCreated:
		ok = true
	case triggerType.Kind == TriggerPatternViolation && payload.Kind == EventPatternViolation:
		ok = true
	case triggerType.Kind == TriggerEntropySpike && payload.Kind == EventEntropySpike:
		ok = true
	case triggerType.Kind == TriggerGapFilled && payload.Kind == EventGapFilled:
		ok = true
	}

	if !ok {
		return MonitorEvent{}, &ErrTriggerPayloadMismatch{TriggerKind: triggerType.Kind, PayloadKind: payload.Kind}
	}

	return MonitorEvent{
		EventID:     uuid.New(),
		TriggerID:   triggerID,
		TriggerType: triggerType,
		Timestamp:   time.Now().UTC(),
		Payload:     payload,
	}, nil
}
