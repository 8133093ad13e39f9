// Package trust implements pluggable trust evaluation, scaling confidence in
// ranking without mutating stored belief confidence (spec §4.3).
package trust

import (
	"sync"

	"github.com/KyroDB/kyroql/internal/confidence"
	"github.com/KyroDB/kyroql/internal/source"
)

func clamp01(w float32) float32 {
	switch {
	case w < 0:
		return 0
	case w > 1:
		return 1
	default:
		return w
	}
}

// Assessment is the result of a trust evaluation: a multiplicative weight in
// [0,1].
type Assessment struct {
	weight float32
}

// NewAssessment clamps and constructs an assessment.
func NewAssessment(weight float32) Assessment {
	return Assessment{weight: clamp01(weight)}
}

// Weight returns the clamped weight.
func (a Assessment) Weight() float32 { return a.weight }

// Model evaluates trust for a source, optionally scoped to a domain
// (predicate, topic, etc).
type Model interface {
	Name() string
	Assess(src source.Source, domain *string) Assessment
}

// SimpleModel is an in-memory trust model with global and per-domain
// override weights. Domain overrides take precedence over global weights;
// when neither is set the default weight is 1.0.
type SimpleModel struct {
	mu             sync.RWMutex
	global         map[confidence.SourceID]float32
	domainOverride map[string]map[confidence.SourceID]float32
}

// NewSimpleModel constructs an empty trust model.
func NewSimpleModel() *SimpleModel {
	return &SimpleModel{
		global:         make(map[confidence.SourceID]float32),
		domainOverride: make(map[string]map[confidence.SourceID]float32),
	}
}

// SetGlobal sets a global trust weight for a source.
func (m *SimpleModel) SetGlobal(id confidence.SourceID, weight float32) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.global[id] = clamp01(weight)
}

// SetDomain sets a domain-specific trust weight for a source.
func (m *SimpleModel) SetDomain(domain string, id confidence.SourceID, weight float32) {
	m.mu.Lock()
	defer m.mu.Unlock()
	bucket, ok := m.domainOverride[domain]
	if !ok {
		bucket = make(map[confidence.SourceID]float32)
		m.domainOverride[domain] = bucket
	}
	bucket[id] = clamp01(weight)
}

func (m *SimpleModel) lookup(id confidence.SourceID, domain *string) (float32, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if domain != nil {
		if bucket, ok := m.domainOverride[*domain]; ok {
			if w, ok := bucket[id]; ok {
				return w, true
			}
		}
	}
	if w, ok := m.global[id]; ok {
		return w, true
	}
	return 0, false
}

// Name identifies this trust model implementation.
func (m *SimpleModel) Name() string { return "simple_trust" }

// Assess computes the trust weight for src, defaulting to 1.0 when no
// override exists.
func (m *SimpleModel) Assess(src source.Source, domain *string) Assessment {
	weight, ok := m.lookup(src.SourceID(), domain)
	if !ok {
		weight = 1.0
	}
	return NewAssessment(weight)
}
