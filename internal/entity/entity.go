// Package entity implements the Entity data type and the EntityStore
// contract (spec §3, §4.1).
package entity

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/KyroDB/kyroql/internal/confidence"
)

// Type enumerates the built-in entity types; "custom:<name>" values are
// accepted but not one of these constants.
type Type string

const (
	TypePerson       Type = "person"
	TypeOrganization Type = "organization"
	TypeConcept      Type = "concept"
	TypeEvent        Type = "event"
	TypeLocation     Type = "location"
	TypeArtifact     Type = "artifact"
	TypeHypothesis   Type = "hypothesis"
)

// CustomType builds a "custom:<name>" entity type.
func CustomType(name string) Type { return Type("custom:" + name) }

// Entity is a stable identity anchor for beliefs.
type Entity struct {
	ID            confidence.EntityID
	CanonicalName string
	Aliases       []string
	EntityType    Type
	CreatedAt     time.Time
	UpdatedAt     time.Time
	Embedding     []float32
	Version       uint64
	Metadata      map[string]any
}

// NormalizeName trims and lowercases a name for exact-match lookup.
func NormalizeName(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// New constructs a fresh entity at version 1, rejecting an empty canonical
// name. The entity starts with no aliases; WithAliases adds them.
func New(canonicalName string, entityType Type) (Entity, error) {
	trimmed := strings.TrimSpace(canonicalName)
	if trimmed == "" {
		return Entity{}, fmt.Errorf("entity: canonical_name must not be empty")
	}
	now := time.Now().UTC()
	return Entity{
		ID:            confidence.NewEntityID(),
		CanonicalName: trimmed,
		EntityType:    entityType,
		CreatedAt:     now,
		UpdatedAt:     now,
		Version:       1,
		Metadata:      make(map[string]any),
	}, nil
}

// WithAliases returns a copy of e with aliases added (case-insensitive dedup
// against CanonicalName and existing aliases).
func (e Entity) WithAliases(aliases ...string) Entity {
	seen := make(map[string]bool, len(e.Aliases)+1)
	seen[NormalizeName(e.CanonicalName)] = true
	result := append([]string(nil), e.Aliases...)
	for _, a := range e.Aliases {
		seen[NormalizeName(a)] = true
	}
	for _, a := range aliases {
		norm := NormalizeName(a)
		if norm == "" || seen[norm] {
			continue
		}
		seen[norm] = true
		result = append(result, a)
	}
	e.Aliases = result
	return e
}

// Errors reported by EntityStore implementations.
var (
	ErrNotFound        = fmt.Errorf("entity: not found")
	ErrDuplicateKey    = fmt.Errorf("entity: duplicate id")
	ErrMergedAway      = fmt.Errorf("entity: cannot mutate a merged-away entity")
	ErrHasMergeSources = fmt.Errorf("entity: cannot delete an entity that other entities merged into")
	ErrVersionNotAdvancing = fmt.Errorf("entity: version must strictly increase")
	ErrEmbeddingDimMismatch = fmt.Errorf("entity: embedding dimension mismatch")
	ErrMergeCycle      = fmt.Errorf("entity: merge redirect exceeded hop limit")
)

// FuzzyMatch ranks a canonical-name/alias match for find_by_name_fuzzy.
// Rank order (lower sorts first): prefix > substring > alias-prefix >
// alias-substring, then lexicographic name, then id.
type FuzzyMatch struct {
	Entity Entity
	Rank   int
}

// Store is the thread-safe, object-capable contract every backend
// (in-memory, persistent) implements identically.
type Store interface {
	Insert(ctx context.Context, e Entity) error
	Get(ctx context.Context, id confidence.EntityID) (Entity, error)
	Update(ctx context.Context, e Entity) error
	Delete(ctx context.Context, id confidence.EntityID) error
	FindByName(ctx context.Context, name string) (Entity, error)
	FindByNameFuzzy(ctx context.Context, query string, limit int) ([]Entity, error)
	FindByEmbedding(ctx context.Context, query []float32, limit int) ([]Entity, error)
	Merge(ctx context.Context, primary, secondary confidence.EntityID) (Entity, error)
	GetAtVersion(ctx context.Context, id confidence.EntityID, version uint64) (Entity, error)
	ListVersions(ctx context.Context, id confidence.EntityID) ([]Entity, error)
}
