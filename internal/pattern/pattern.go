// Package pattern implements PatternRule, Pattern, and the process-wide
// bounded regex cache used by the Regex rule (spec §4.4, §9).
package pattern

import (
	"context"
	"fmt"
	"regexp"
	"sync"
	"time"

	"github.com/KyroDB/kyroql/internal/confidence"
	"github.com/KyroDB/kyroql/internal/timerange"
)

// MonotonicDirection selects the direction a Monotonic rule enforces.
type MonotonicDirection string

const (
	Increasing MonotonicDirection = "increasing"
	Decreasing MonotonicDirection = "decreasing"
)

// RuleKind discriminates the PatternRule variant.
type RuleKind string

const (
	RuleRange              RuleKind = "range"
	RuleUnique             RuleKind = "unique"
	RuleCardinality        RuleKind = "cardinality"
	RuleMonotonic          RuleKind = "monotonic"
	RuleEnumerated         RuleKind = "enumerated"
	RuleRegex              RuleKind = "regex"
	RuleImplication        RuleKind = "implication"
	RuleMutuallyExclusive  RuleKind = "mutually_exclusive"
	RuleCustom             RuleKind = "custom"
)

// Rule is a tagged union over the pattern rule variants. Exactly one field
// group is meaningful, selected by Kind.
type Rule struct {
	Kind RuleKind

	// Range
	Predicate string
	Min       *float64
	Max       *float64

	// Cardinality
	MinCount int
	MaxCount int

	// Monotonic
	Direction MonotonicDirection

	// Enumerated
	AllowedValues []string

	// Regex
	Pattern string

	// Implication
	IfPredicate   string
	ThenPredicate string

	// MutuallyExclusive
	Predicates []string

	// Custom
	Name        string
	Description string
	Expression  *string
}

// NewRange constructs a Range rule.
func NewRange(predicate string, min, max *float64) Rule {
	return Rule{Kind: RuleRange, Predicate: predicate, Min: min, Max: max}
}

// NewUnique constructs a Unique rule.
func NewUnique(predicate string) Rule {
	return Rule{Kind: RuleUnique, Predicate: predicate}
}

// NewCardinality constructs a Cardinality rule.
func NewCardinality(predicate string, min, max int) Rule {
	return Rule{Kind: RuleCardinality, Predicate: predicate, MinCount: min, MaxCount: max}
}

// NewMonotonic constructs a Monotonic rule.
func NewMonotonic(predicate string, direction MonotonicDirection) Rule {
	return Rule{Kind: RuleMonotonic, Predicate: predicate, Direction: direction}
}

// NewEnumerated constructs an Enumerated rule.
func NewEnumerated(predicate string, allowed []string) Rule {
	return Rule{Kind: RuleEnumerated, Predicate: predicate, AllowedValues: allowed}
}

// NewRegex constructs a Regex rule.
func NewRegex(predicate, pattern string) Rule {
	return Rule{Kind: RuleRegex, Predicate: predicate, Pattern: pattern}
}

// NewImplication constructs an Implication rule.
func NewImplication(ifPredicate, thenPredicate string) Rule {
	return Rule{Kind: RuleImplication, IfPredicate: ifPredicate, ThenPredicate: thenPredicate}
}

// NewMutuallyExclusive constructs a MutuallyExclusive rule.
func NewMutuallyExclusive(predicates []string) Rule {
	return Rule{Kind: RuleMutuallyExclusive, Predicates: predicates}
}

// NewCustom constructs a reserved Custom rule; ignored by checking logic.
func NewCustom(name, description string, expression *string) Rule {
	return Rule{Kind: RuleCustom, Name: name, Description: description, Expression: expression}
}

// Predicates returns every predicate this rule indexes under, per spec §4.1
// ("PatternStore ... find_by_predicate (indexed by every predicate the rule
// declares)").
func (r Rule) Predicates() []string {
	switch r.Kind {
	case RuleRange, RuleUnique, RuleCardinality, RuleMonotonic, RuleEnumerated, RuleRegex:
		return []string{r.Predicate}
	case RuleImplication:
		return []string{r.IfPredicate, r.ThenPredicate}
	case RuleMutuallyExclusive:
		return append([]string(nil), r.Predicates...)
	default:
		return nil
	}
}

// Pattern is a named, active, bitemporally scoped constraint.
type Pattern struct {
	ID         confidence.PatternID
	Name       string
	Rule       Rule
	Active     bool
	ValidTime  timerange.TimeRange
	CreatedAt  time.Time
}

// NewPattern constructs an active pattern.
func NewPattern(name string, rule Rule, validTime timerange.TimeRange) (Pattern, error) {
	if name == "" {
		return Pattern{}, fmt.Errorf("pattern: name must not be empty")
	}
	return Pattern{
		ID:        confidence.NewPatternID(),
		Name:      name,
		Rule:      rule,
		Active:    true,
		ValidTime: validTime,
		CreatedAt: time.Now().UTC(),
	}, nil
}

// CoversTime reports whether this pattern participates in checking at t:
// it must be active and its validity must cover t.
func (p Pattern) CoversTime(t time.Time) bool {
	return p.Active && p.ValidTime.Contains(t)
}

// regexCacheLimit bounds the process-wide compiled-regex cache; on overflow
// the cache is cleared rather than evicting selectively (spec §4.4, §9).
const regexCacheLimit = 1024

var (
	regexCacheMu sync.RWMutex
	regexCache   = make(map[string]*regexp.Regexp)
)

// CompileCached compiles pattern, sharing compiled regexes across callers via
// a process-wide bounded cache. The cache is cleared (not selectively
// evicted) when it would exceed regexCacheLimit entries.
func CompileCached(pattern string) (*regexp.Regexp, error) {
	regexCacheMu.RLock()
	if re, ok := regexCache[pattern]; ok {
		regexCacheMu.RUnlock()
		return re, nil
	}
	regexCacheMu.RUnlock()

	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, fmt.Errorf("pattern: invalid regex %q: %w", pattern, err)
	}

	regexCacheMu.Lock()
	defer regexCacheMu.Unlock()
	if len(regexCache) >= regexCacheLimit {
		regexCache = make(map[string]*regexp.Regexp)
	}
	regexCache[pattern] = re
	return re, nil
}

// ResetRegexCacheForTest clears the process-wide regex cache; exposed for
// tests asserting cache-eviction does not change match results.
func ResetRegexCacheForTest() {
	regexCacheMu.Lock()
	defer regexCacheMu.Unlock()
	regexCache = make(map[string]*regexp.Regexp)
}

// Errors reported by PatternStore implementations.
var ErrNotFound = fmt.Errorf("pattern: not found")

// Store is the thread-safe, object-capable contract every backend
// implements identically.
type Store interface {
	Insert(ctx context.Context, p Pattern) error
	Get(ctx context.Context, id confidence.PatternID) (Pattern, error)
	Update(ctx context.Context, p Pattern) error
	Delete(ctx context.Context, id confidence.PatternID) error
	FindByPredicate(ctx context.Context, predicate string) ([]Pattern, error)
	FindActive(ctx context.Context) ([]Pattern, error)
}
