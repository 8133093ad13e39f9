// Package ir implements the language-neutral IR envelope and operation
// payload validation (spec §6).
package ir

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/KyroDB/kyroql/internal/confidence"
	"github.com/KyroDB/kyroql/internal/monitor"
	"github.com/KyroDB/kyroql/internal/pattern"
	"github.com/KyroDB/kyroql/internal/simulation"
	"github.com/KyroDB/kyroql/internal/source"
	"github.com/KyroDB/kyroql/internal/timerange"
	"github.com/KyroDB/kyroql/internal/value"
)

// Validation limits (spec §6).
const (
	MaxTextLen       = 8192
	MaxEmbeddingDim  = 4096
)

// Op discriminates the operation payload carried by an envelope.
type Op string

const (
	OpAssert        Op = "assert"
	OpResolve       Op = "resolve"
	OpRetract       Op = "retract"
	OpDefinePattern Op = "define_pattern"
	OpDerive        Op = "derive"
	OpSimulate      Op = "simulate"
	OpMonitor       Op = "monitor"
)

// ConsistencyMode selects how ASSERT reacts to detected conflicts.
type ConsistencyMode string

const (
	ModeStrict   ConsistencyMode = "strict"
	ModeEventual ConsistencyMode = "eventual"
	ModeForce    ConsistencyMode = "force"
)

// ResolveMode selects which runtime pool a RESOLVE is routed to (spec §4.5).
type ResolveMode string

const (
	ResolveSimple    ResolveMode = "simple"
	ResolveAggregate ResolveMode = "aggregate"
	ResolveTemporal  ResolveMode = "temporal"
)

// ConflictPolicyKind discriminates a ConflictResolution policy.
type ConflictPolicyKind string

const (
	PolicyExplicitConflict ConflictPolicyKind = "explicit_conflict"
	PolicyHighestConfidence ConflictPolicyKind = "highest_confidence"
	PolicyLatestWins       ConflictPolicyKind = "latest_wins"
	PolicySourcePriority   ConflictPolicyKind = "source_priority"
)

// ConflictPolicy is a tagged union; SourcePriority carries an ordered list.
type ConflictPolicy struct {
	Kind         ConflictPolicyKind
	PriorityList []confidence.SourceID
}

// AssertPayload is the payload for op=assert.
type AssertPayload struct {
	EntityID       confidence.EntityID
	Predicate      string
	Value          value.Value
	Confidence     confidence.Confidence
	Source         source.Source
	ValidTime      timerange.TimeRange
	ConsistencyMode ConsistencyMode
	Embedding      []float32
}

// Validate checks AssertPayload against the IR validation limits.
func (p AssertPayload) Validate() error {
	if strings.TrimSpace(p.Predicate) == "" {
		return fmt.Errorf("ir: assert: predicate must not be empty")
	}
	if len(p.Predicate) > MaxTextLen {
		return fmt.Errorf("ir: assert: predicate exceeds max length %d", MaxTextLen)
	}
	if !p.Value.IsValid() {
		return fmt.Errorf("ir: assert: value is invalid (NaN)")
	}
	if _, err := confidence.New(p.Confidence.Value, p.Confidence.Calibration, p.Confidence.Source); err != nil {
		return fmt.Errorf("ir: assert: %w", err)
	}
	if len(p.Embedding) > MaxEmbeddingDim {
		return fmt.Errorf("ir: assert: embedding dimension %d exceeds max %d", len(p.Embedding), MaxEmbeddingDim)
	}
	switch p.ConsistencyMode {
	case ModeStrict, ModeEventual, ModeForce:
	default:
		return fmt.Errorf("ir: assert: invalid consistency_mode %q", p.ConsistencyMode)
	}
	return nil
}

// ResolvePayload is the payload for op=resolve.
type ResolvePayload struct {
	Query                  *string
	EntityID               *confidence.EntityID
	Predicate              *string
	AsOf                   *time.Time
	MinConfidence          *float32
	Limit                  *int
	IncludeCounterEvidence bool
	IncludeGaps            *bool
	QueryEmbedding         []float32
	ConflictPolicy         *ConflictPolicy
	TrustDomain            *string
	Mode                   ResolveMode
}

// Validate checks ResolvePayload against the IR validation limits.
func (p ResolvePayload) Validate() error {
	if p.Query != nil && len(*p.Query) > MaxTextLen {
		return fmt.Errorf("ir: resolve: query exceeds max length %d", MaxTextLen)
	}
	if len(p.QueryEmbedding) > MaxEmbeddingDim {
		return fmt.Errorf("ir: resolve: query_embedding dimension %d exceeds max %d", len(p.QueryEmbedding), MaxEmbeddingDim)
	}
	if p.MinConfidence != nil {
		mc := *p.MinConfidence
		if mc < 0 || mc > 1 {
			return fmt.Errorf("ir: resolve: min_confidence %v out of range [0,1]", mc)
		}
	}
	if p.Limit != nil && *p.Limit < 0 {
		return fmt.Errorf("ir: resolve: limit must be non-negative")
	}
	return nil
}

// RetractPayload is the payload for op=retract.
type RetractPayload struct {
	BeliefID  confidence.BeliefID
	Reason    string
	Source    source.Source
}

// Validate checks RetractPayload.
func (p RetractPayload) Validate() error {
	if strings.TrimSpace(p.Reason) == "" {
		return fmt.Errorf("ir: retract: reason must not be empty")
	}
	return nil
}

// DefinePatternPayload is the payload for op=define_pattern.
type DefinePatternPayload struct {
	Name      string
	Rule      pattern.Rule
	ValidTime timerange.TimeRange
}

// Validate checks DefinePatternPayload.
func (p DefinePatternPayload) Validate() error {
	if strings.TrimSpace(p.Name) == "" {
		return fmt.Errorf("ir: define_pattern: name must not be empty")
	}
	return nil
}

// DerivePayload is the payload for op=derive.
type DerivePayload struct {
	DerivedBeliefID *confidence.BeliefID
	PremiseIDs      []confidence.BeliefID
	Rule            string
	Steps           []string
	Confidence      *confidence.Confidence
	Justification   string
}

// Validate checks DerivePayload.
func (p DerivePayload) Validate() error {
	if strings.TrimSpace(p.Rule) == "" {
		return fmt.Errorf("ir: derive: rule must not be empty")
	}
	if len(p.PremiseIDs) == 0 {
		return fmt.Errorf("ir: derive: premise_ids must not be empty")
	}
	if p.DerivedBeliefID != nil {
		for _, id := range p.PremiseIDs {
			if id == *p.DerivedBeliefID {
				return fmt.Errorf("ir: derive: derived_belief_id must not be self-referential")
			}
		}
	}
	return nil
}

// SimulatePayload is the payload for op=simulate. It carries only the
// bounds and the entities to pre-validate; execution builds a
// simulation.Context and returns it as a live handle rather than
// applying hypotheticals inline, mirroring execute_simulate's
// Arc<SimulationContext> return in the original engine.
type SimulatePayload struct {
	Constraints *simulation.Constraints
	Entities    []confidence.EntityID
}

// Validate checks SimulatePayload; the zero value for Constraints means
// "use simulation.DefaultConstraints()".
func (p SimulatePayload) Validate() error {
	if p.Constraints != nil {
		return p.Constraints.Validate()
	}
	return nil
}

// MonitorPayload is the payload for op=monitor: registering trigger with
// the MONITOR subsystem and obtaining a subscription stream. The original
// engine derives a Trigger from a raw threshold Value via
// triggers_from_threshold_value, a helper absent from the retrieval pack;
// here the caller supplies an already-constructed monitor.Trigger
// directly instead.
type MonitorPayload struct {
	Trigger        monitor.Trigger
	StreamCapacity int
	ExpiresAt      *time.Time
}

// Validate checks MonitorPayload.
func (p MonitorPayload) Validate() error {
	switch p.Trigger.Kind {
	case monitor.TriggerConfidenceShift, monitor.TriggerConflictCreated, monitor.TriggerPatternViolation, monitor.TriggerEntropySpike, monitor.TriggerGapFilled:
	default:
		return fmt.Errorf("ir: monitor: invalid trigger kind %q", p.Trigger.Kind)
	}
	return nil
}

// Envelope wraps every IR operation uniformly (spec §6).
type Envelope struct {
	Version   string
	RequestID uuid.UUID
	Timestamp time.Time
	Op        Op

	Assert        *AssertPayload
	Resolve       *ResolvePayload
	Retract       *RetractPayload
	DefinePattern *DefinePatternPayload
	Derive        *DerivePayload
	Simulate      *SimulatePayload
	Monitor       *MonitorPayload
}

// newEnvelope stamps version="1.0" and a fresh request id, following the
// convention every operation constructor below uses.
func newEnvelope(op Op, ts time.Time) Envelope {
	return Envelope{Version: "1.0", RequestID: uuid.New(), Timestamp: ts, Op: op}
}

// NewAssert builds a validated assert envelope.
func NewAssert(payload AssertPayload, ts time.Time) (Envelope, error) {
	if err := payload.Validate(); err != nil {
		return Envelope{}, err
	}
	env := newEnvelope(OpAssert, ts)
	env.Assert = &payload
	return env, nil
}

// NewResolve builds a validated resolve envelope.
func NewResolve(payload ResolvePayload, ts time.Time) (Envelope, error) {
	if err := payload.Validate(); err != nil {
		return Envelope{}, err
	}
	env := newEnvelope(OpResolve, ts)
	env.Resolve = &payload
	return env, nil
}

// NewRetract builds a validated retract envelope.
func NewRetract(payload RetractPayload, ts time.Time) (Envelope, error) {
	if err := payload.Validate(); err != nil {
		return Envelope{}, err
	}
	env := newEnvelope(OpRetract, ts)
	env.Retract = &payload
	return env, nil
}

// NewDefinePattern builds a validated define_pattern envelope.
func NewDefinePattern(payload DefinePatternPayload, ts time.Time) (Envelope, error) {
	if err := payload.Validate(); err != nil {
		return Envelope{}, err
	}
	env := newEnvelope(OpDefinePattern, ts)
	env.DefinePattern = &payload
	return env, nil
}

// NewDerive builds a validated derive envelope.
func NewDerive(payload DerivePayload, ts time.Time) (Envelope, error) {
	if err := payload.Validate(); err != nil {
		return Envelope{}, err
	}
	env := newEnvelope(OpDerive, ts)
	env.Derive = &payload
	return env, nil
}

// NewSimulate builds a validated simulate envelope.
func NewSimulate(payload SimulatePayload, ts time.Time) (Envelope, error) {
	if err := payload.Validate(); err != nil {
		return Envelope{}, err
	}
	env := newEnvelope(OpSimulate, ts)
	env.Simulate = &payload
	return env, nil
}

// NewMonitor builds a validated monitor envelope.
func NewMonitor(payload MonitorPayload, ts time.Time) (Envelope, error) {
	if err := payload.Validate(); err != nil {
		return Envelope{}, err
	}
	env := newEnvelope(OpMonitor, ts)
	env.Monitor = &payload
	return env, nil
}
