package monitor

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/KyroDB/kyroql/internal/belief"
	"github.com/KyroDB/kyroql/internal/confidence"
	"github.com/KyroDB/kyroql/internal/conflict"
	"github.com/KyroDB/kyroql/internal/value"
)

// AssertObservation is the fact fed to the matcher after an ASSERT has
// committed. Expensive trigger evaluation happens off the ASSERT path, in
// the dispatcher's background goroutine.
type AssertObservation struct {
	TxTime        time.Time
	BeliefID      confidence.BeliefID
	EntityID      confidence.EntityID
	Predicate     string
	Value         value.Value
	Confidence    float32
	ConflictTypes []conflict.ConflictType
}

// MatchResult reports whether a trigger fired against an observation.
type MatchResult struct {
	Matched bool
	Payload EventPayload
}

func noMatch() MatchResult { return MatchResult{} }

func matched(payload EventPayload) MatchResult {
	return MatchResult{Matched: true, Payload: payload}
}

// Matcher evaluates triggers against AssertObservations, consulting the
// belief store for prior-state comparisons (confidence shift, gap fill,
// entropy). Grounded directly on TriggerMatcher in
// original_source/src/monitor/matcher.rs.
type Matcher struct {
	beliefs belief.Store
}

// NewMatcher builds a Matcher over beliefs.
func NewMatcher(beliefs belief.Store) *Matcher {
	return &Matcher{beliefs: beliefs}
}

// Evaluate dispatches to the trigger-specific matcher.
func (m *Matcher) Evaluate(ctx context.Context, trigger Trigger, obs AssertObservation) (MatchResult, error) {
	switch trigger.Kind {
	case TriggerConfidenceShift:
		return m.matchConfidenceShift(ctx, trigger.EntityID, trigger.Predicate, trigger.Threshold, obs)
	case TriggerConflictCreated:
		return m.matchConflictCreated(trigger.EntityID, trigger.ConflictTypes, obs)
	case TriggerPatternViolation:
		return m.matchPatternViolation(trigger.PatternID, obs)
	case TriggerEntropySpike:
		return m.matchEntropySpike(ctx, trigger.Domain, trigger.Threshold, obs)
	case TriggerGapFilled:
		return m.matchGapFilled(ctx, trigger.GapEntityID, trigger.GapPredicate, obs)
	default:
		return noMatch(), fmt.Errorf("monitor: unknown trigger kind %q", trigger.Kind)
	}
}

func (m *Matcher) matchConfidenceShift(ctx context.Context, entityFilter *confidence.EntityID, predicateFilter *string, threshold float32, obs AssertObservation) (MatchResult, error) {
	if threshold <= 0 {
		return noMatch(), nil
	}
	if entityFilter != nil && *entityFilter != obs.EntityID {
		return noMatch(), nil
	}
	if predicateFilter != nil {
		pred := strings.TrimSpace(*predicateFilter)
		if pred == "" || pred != obs.Predicate {
			return noMatch(), nil
		}
	}

	existing, err := m.beliefs.FindByEntityPredicate(ctx, obs.EntityID, obs.Predicate)
	if err != nil {
		return noMatch(), fmt.Errorf("monitor: confidence shift lookup: %w", err)
	}

	var prev *float32
	var prevTx time.Time
	for _, b := range existing {
		if b.ID == obs.BeliefID || !b.TxTime.Before(obs.TxTime) {
			continue
		}
		if prev == nil || b.TxTime.After(prevTx) {
			v := b.Confidence.Value
			prev = &v
			prevTx = b.TxTime
		}
	}
	if prev == nil {
		return noMatch(), nil
	}

	current := obs.Confidence
	delta := current - *prev
	if delta < 0 {
		delta = -delta
	}
	if delta <= threshold {
		return noMatch(), nil
	}

	return matched(EventPayload{
		Kind:      EventConfidenceShift,
		BeliefID:  obs.BeliefID,
		EntityID:  obs.EntityID,
		Predicate: obs.Predicate,
		Previous:  *prev,
		Current:   current,
		Delta:     delta,
	}), nil
}

func (m *Matcher) matchConflictCreated(entityFilter *confidence.EntityID, typeFilter []conflict.ConflictType, obs AssertObservation) (MatchResult, error) {
	if len(obs.ConflictTypes) == 0 {
		return noMatch(), nil
	}
	if entityFilter != nil && *entityFilter != obs.EntityID {
		return noMatch(), nil
	}

	matches := len(typeFilter) == 0
	if !matches {
		for _, c := range obs.ConflictTypes {
			for _, f := range typeFilter {
				if c.Kind == f.Kind {
					matches = true
					break
				}
			}
			if matches {
				break
			}
		}
	}
	if !matches {
		return noMatch(), nil
	}

	return matched(EventPayload{
		Kind:          EventConflictCreated,
		BeliefID:      obs.BeliefID,
		EntityID:      obs.EntityID,
		Predicate:     obs.Predicate,
		ConflictTypes: obs.ConflictTypes,
	}), nil
}

func (m *Matcher) matchPatternViolation(patternID confidence.PatternID, obs AssertObservation) (MatchResult, error) {
	for _, c := range obs.ConflictTypes {
		if c.Kind != conflict.TypePatternViolation {
			continue
		}
		if c.PatternID == patternID {
			return matched(EventPayload{
				Kind:      EventPatternViolation,
				BeliefID:  obs.BeliefID,
				EntityID:  obs.EntityID,
				Predicate: obs.Predicate,
				PatternID: patternID,
			}), nil
		}
	}
	return noMatch(), nil
}

func (m *Matcher) matchGapFilled(ctx context.Context, entityID confidence.EntityID, predicate string, obs AssertObservation) (MatchResult, error) {
	if entityID != obs.EntityID {
		return noMatch(), nil
	}
	if strings.TrimSpace(predicate) != obs.Predicate {
		return noMatch(), nil
	}
	if obs.Value.IsNull() {
		return noMatch(), nil
	}

	existing, err := m.beliefs.FindByEntityPredicate(ctx, obs.EntityID, obs.Predicate)
	if err != nil {
		return noMatch(), fmt.Errorf("monitor: gap fill lookup: %w", err)
	}

	hadData := false
	for _, b := range existing {
		if b.ID == obs.BeliefID || !b.TxTime.Before(obs.TxTime) {
			continue
		}
		if !b.Value.IsNull() {
			hadData = true
			break
		}
	}
	if hadData {
		return noMatch(), nil
	}

	return matched(EventPayload{
		Kind:      EventGapFilled,
		BeliefID:  obs.BeliefID,
		EntityID:  obs.EntityID,
		Predicate: obs.Predicate,
	}), nil
}

func (m *Matcher) matchEntropySpike(ctx context.Context, domain string, thresholdBits float32, obs AssertObservation) (MatchResult, error) {
	domain = strings.TrimSpace(domain)
	if domain == "" || obs.Predicate != domain || thresholdBits <= 0 {
		return noMatch(), nil
	}

	beliefs, err := m.beliefs.FindAsOf(ctx, obs.EntityID, obs.Predicate, obs.TxTime)
	if err != nil {
		return noMatch(), fmt.Errorf("monitor: entropy spike as-of lookup: %w", err)
	}

	hasObs := false
	for _, b := range beliefs {
		if b.ID == obs.BeliefID {
			hasObs = true
			break
		}
	}
	if !hasObs {
		all, err := m.beliefs.FindByEntityPredicate(ctx, obs.EntityID, obs.Predicate)
		if err != nil {
			return noMatch(), fmt.Errorf("monitor: entropy spike fallback lookup: %w", err)
		}
		for _, b := range all {
			if b.ID == obs.BeliefID {
				beliefs = append(beliefs, b)
				break
			}
		}
	}

	massByValue := make(map[string]float64)
	for _, b := range beliefs {
		if !b.IsValidAt(obs.TxTime) {
			continue
		}
		if b.Value.IsNull() {
			continue
		}
		massByValue[b.Value.String()] += float64(b.Confidence.Value)
	}

	if len(massByValue) < 2 {
		return noMatch(), nil
	}

	var total float64
	for _, mass := range massByValue {
		total += mass
	}
	if total <= 0 {
		return noMatch(), nil
	}

	var entropyBits float64
	for _, mass := range massByValue {
		if mass <= 0 {
			continue
		}
		p := mass / total
		entropyBits -= p * math.Log2(p)
	}
	if math.IsNaN(entropyBits) || math.IsInf(entropyBits, 0) {
		return noMatch(), nil
	}

	entropyBitsF32 := float32(entropyBits)
	if entropyBitsF32 <= thresholdBits {
		return noMatch(), nil
	}

	return matched(EventPayload{
		Kind:          EventEntropySpike,
		BeliefID:      obs.BeliefID,
		EntityID:      obs.EntityID,
		Predicate:     obs.Predicate,
		EntropyBits:   entropyBitsF32,
		ThresholdBits: thresholdBits,
	}), nil
}
