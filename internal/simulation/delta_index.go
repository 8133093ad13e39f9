package simulation

import (
	"fmt"
	"math"
	"sort"

	"github.com/KyroDB/kyroql/internal/confidence"
)

type deltaIndexEntry struct {
	embedding  []float32
	confidence float32
}

// deltaVectorIndex is a deliberately simple exact-scan overlay index for
// hypothetical embeddings, kept self-contained so a simulation never
// touches the live vector index (spec §4.6).
type deltaVectorIndex struct {
	dim     int
	hasDim  bool
	entries map[confidence.BeliefID]deltaIndexEntry
}

func newDeltaVectorIndex() *deltaVectorIndex {
	return &deltaVectorIndex{entries: make(map[confidence.BeliefID]deltaIndexEntry)}
}

func (idx *deltaVectorIndex) clear() {
	idx.hasDim = false
	idx.dim = 0
	idx.entries = make(map[confidence.BeliefID]deltaIndexEntry)
}

func (idx *deltaVectorIndex) upsert(id confidence.BeliefID, embedding []float32, conf float32) error {
	if len(embedding) == 0 {
		return fmt.Errorf("simulation: embedding dimension must be non-zero")
	}
	if math.IsNaN(float64(conf)) || math.IsInf(float64(conf), 0) {
		return fmt.Errorf("simulation: non-finite confidence is not allowed")
	}
	if !idx.hasDim {
		idx.dim = len(embedding)
		idx.hasDim = true
	} else if idx.dim != len(embedding) {
		return fmt.Errorf("simulation: embedding dimension mismatch: expected %d got %d", idx.dim, len(embedding))
	}
	for _, v := range embedding {
		if math.IsNaN(float64(v)) || math.IsInf(float64(v), 0) {
			return fmt.Errorf("simulation: non-finite value in embedding")
		}
	}
	stored := make([]float32, len(embedding))
	copy(stored, embedding)
	idx.entries[id] = deltaIndexEntry{embedding: stored, confidence: conf}
	return nil
}

func (idx *deltaVectorIndex) remove(id confidence.BeliefID) {
	delete(idx.entries, id)
}

// search returns overlay belief ids ordered by cosine similarity descending
// (tie-break: confidence descending, then lexicographic id), bounded to
// limit. Matches DeltaVectorIndex::search's determinism.
func (idx *deltaVectorIndex) search(query []float32, limit int, minConfidence *float32) ([]confidence.BeliefID, error) {
	if limit <= 0 || len(query) == 0 {
		return nil, nil
	}
	if idx.hasDim && idx.dim != len(query) {
		return nil, fmt.Errorf("simulation: embedding dimension mismatch: expected %d got %d", idx.dim, len(query))
	}

	type hit struct {
		id   confidence.BeliefID
		sim  float32
		conf float32
	}
	hits := make([]hit, 0, len(idx.entries))
	for id, e := range idx.entries {
		if minConfidence != nil && e.confidence < *minConfidence {
			continue
		}
		sim, err := cosineSimilarity(query, e.embedding)
		if err != nil {
			return nil, err
		}
		hits = append(hits, hit{id: id, sim: sim, conf: e.confidence})
	}

	sort.Slice(hits, func(i, j int) bool {
		if hits[i].sim != hits[j].sim {
			return hits[i].sim > hits[j].sim
		}
		if hits[i].conf != hits[j].conf {
			return hits[i].conf > hits[j].conf
		}
		return hits[i].id.String() < hits[j].id.String()
	})

	if len(hits) > limit {
		hits = hits[:limit]
	}
	out := make([]confidence.BeliefID, len(hits))
	for i, h := range hits {
		out[i] = h.id
	}
	return out, nil
}

func cosineSimilarity(a, b []float32) (float32, error) {
	if len(a) == 0 {
		return 0, nil
	}
	if len(a) != len(b) {
		return 0, fmt.Errorf("simulation: embedding dimension mismatch: query=%d stored=%d", len(a), len(b))
	}
	var dot, normA, normB float64
	for i := range a {
		x, y := float64(a[i]), float64(b[i])
		if math.IsNaN(x) || math.IsInf(x, 0) || math.IsNaN(y) || math.IsInf(y, 0) {
			return 0, fmt.Errorf("simulation: non-finite value in embedding")
		}
		dot += x * y
		normA += x * x
		normB += y * y
	}
	if normA <= 0 || normB <= 0 {
		return 0, nil
	}
	sim := dot / (math.Sqrt(normA) * math.Sqrt(normB))
	if math.IsNaN(sim) || math.IsInf(sim, 0) {
		return 0, nil
	}
	return float32(sim), nil
}
