package engine

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/KyroDB/kyroql/internal/belief"
	"github.com/KyroDB/kyroql/internal/pattern"
)

// checkPattern dispatches a single pattern rule against the asserted belief,
// returning a non-empty violation reason when the rule is broken (spec
// §4.4). Custom rules are reserved and never flagged.
func (e *Engine) checkPattern(ctx context.Context, rule pattern.Rule, b belief.Belief, asOf time.Time) (string, error) {
	switch rule.Kind {
	case pattern.RuleRange:
		v, ok := b.Value.AsFloat64()
		if !ok {
			return fmt.Sprintf("range rule requires numeric value, got %s", b.Value.Kind), nil
		}
		if rule.Min != nil && v < *rule.Min {
			return fmt.Sprintf("value %v is below min %v", v, *rule.Min), nil
		}
		if rule.Max != nil && v > *rule.Max {
			return fmt.Sprintf("value %v is above max %v", v, *rule.Max), nil
		}
		return "", nil

	case pattern.RuleUnique:
		existing, err := e.Beliefs.FindAsOf(ctx, b.Subject, b.Predicate, asOf)
		if err != nil {
			return "", fmt.Errorf("engine: check_pattern unique: %w", err)
		}
		for _, other := range existing {
			if other.ID != b.ID && other.IsValidAt(asOf) {
				return "unique rule violated (another active belief exists)", nil
			}
		}
		return "", nil

	case pattern.RuleCardinality:
		existing, err := e.Beliefs.FindAsOf(ctx, b.Subject, b.Predicate, asOf)
		if err != nil {
			return "", fmt.Errorf("engine: check_pattern cardinality: %w", err)
		}
		count := 1
		for _, other := range existing {
			if other.ID != b.ID && other.IsValidAt(asOf) {
				count++
			}
		}
		if count < rule.MinCount {
			return fmt.Sprintf("cardinality %d < min %d", count, rule.MinCount), nil
		}
		if count > rule.MaxCount {
			return fmt.Sprintf("cardinality %d > max %d", count, rule.MaxCount), nil
		}
		return "", nil

	case pattern.RuleEnumerated:
		s, ok := b.Value.AsString()
		if !ok {
			return fmt.Sprintf("enumerated rule requires string value, got %s", b.Value.Kind), nil
		}
		for _, allowed := range rule.AllowedValues {
			if allowed == s {
				return "", nil
			}
		}
		return fmt.Sprintf("%q not in allowed values", s), nil

	case pattern.RuleRegex:
		s, ok := b.Value.AsString()
		if !ok {
			return fmt.Sprintf("regex rule requires string value, got %s", b.Value.Kind), nil
		}
		re, err := pattern.CompileCached(rule.Pattern)
		if err != nil {
			return "", fmt.Errorf("engine: check_pattern regex: %w", err)
		}
		if re.MatchString(s) {
			return "", nil
		}
		return fmt.Sprintf("%q does not match /%s/", s, rule.Pattern), nil

	case pattern.RuleMonotonic:
		existing, err := e.Beliefs.FindAsOf(ctx, b.Subject, b.Predicate, asOf)
		if err != nil {
			return "", fmt.Errorf("engine: check_pattern monotonic: %w", err)
		}
		sort.Slice(existing, func(i, j int) bool { return existing[i].TxTime.After(existing[j].TxTime) })
		var prev *belief.Belief
		for i := range existing {
			if existing[i].ID != b.ID && existing[i].IsValidAt(asOf) {
				prev = &existing[i]
				break
			}
		}
		if prev == nil {
			return "", nil
		}
		prevV, ok := prev.Value.AsFloat64()
		if !ok {
			return "monotonic rule requires numeric values", nil
		}
		newV, ok := b.Value.AsFloat64()
		if !ok {
			return "monotonic rule requires numeric values", nil
		}
		switch rule.Direction {
		case pattern.Increasing:
			if newV < prevV {
				return fmt.Sprintf("value %v decreased from %v", newV, prevV), nil
			}
		case pattern.Decreasing:
			if newV > prevV {
				return fmt.Sprintf("value %v increased from %v", newV, prevV), nil
			}
		}
		return "", nil

	case pattern.RuleImplication:
		if b.Predicate != strings.TrimSpace(rule.IfPredicate) {
			return "", nil
		}
		if v, ok := b.Value.AsBool(); !ok || !v {
			return "", nil
		}
		then, err := e.Beliefs.FindAsOf(ctx, b.Subject, strings.TrimSpace(rule.ThenPredicate), asOf)
		if err != nil {
			return "", fmt.Errorf("engine: check_pattern implication: %w", err)
		}
		for _, t := range then {
			if t.IsValidAt(asOf) {
				if v, ok := t.Value.AsBool(); ok && v {
					return "", nil
				}
			}
		}
		return fmt.Sprintf("%q is not true when %q is true", rule.ThenPredicate, rule.IfPredicate), nil

	case pattern.RuleMutuallyExclusive:
		matched := false
		for _, p := range rule.Predicates {
			if strings.TrimSpace(p) == b.Predicate {
				matched = true
				break
			}
		}
		if !matched {
			return "", nil
		}
		if v, ok := b.Value.AsBool(); !ok || !v {
			return "", nil
		}
		for _, p := range rule.Predicates {
			p = strings.TrimSpace(p)
			if p == b.Predicate {
				continue
			}
			others, err := e.Beliefs.FindAsOf(ctx, b.Subject, p, asOf)
			if err != nil {
				return "", fmt.Errorf("engine: check_pattern mutually_exclusive: %w", err)
			}
			for _, o := range others {
				if o.IsValidAt(asOf) {
					if v, ok := o.Value.AsBool(); ok && v {
						return fmt.Sprintf("%q is true but predicates are mutually exclusive", p), nil
					}
				}
			}
		}
		return "", nil

	case pattern.RuleCustom:
		return "", nil

	default:
		return "", nil
	}
}
