package engine

import (
	"crypto/sha256"
	"encoding/binary"
	"math"
	"strings"
)

// defaultEmbeddingDim is the dimensionality ASSERT synthesizes an embedding
// at when a caller doesn't supply one (spec §4.3 step 2).
const defaultEmbeddingDim = 64

// tokenize splits s on any non-ASCII-alphanumeric rune, dropping empties.
func tokenize(s string) []string {
	return strings.FieldsFunc(s, func(r rune) bool {
		return !((r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9'))
	})
}

// lexicalEmbedding synthesizes a deterministic, offline, dependency-free
// embedding via feature hashing over tokens, grounded on
// original_source/src/embedding.rs's lexical_embedding (blake3 bucket hash +
// L2-normalize, dim=64); sha256 substitutes for blake3 here since the
// algorithm only needs a stable, well-distributed digest, not blake3 itself.
func lexicalEmbedding(text string) []float32 {
	return lexicalEmbeddingWithDim(text, defaultEmbeddingDim)
}

// lexicalEmbeddingWithDim is lexicalEmbedding with an explicit dimension.
func lexicalEmbeddingWithDim(text string, dim int) []float32 {
	if dim == 0 {
		return nil
	}

	vec := make([]float32, dim)
	var count int
	for _, token := range tokenize(strings.ToLower(text)) {
		sum := sha256.Sum256([]byte(token))
		bucket := binary.LittleEndian.Uint64(sum[:8])
		idx := int(bucket % uint64(dim))
		sign := float32(1)
		if sum[8]&1 != 0 {
			sign = -1
		}
		vec[idx] += sign
		count++
	}

	if count == 0 {
		return vec
	}

	var norm2 float64
	for _, x := range vec {
		norm2 += float64(x) * float64(x)
	}
	if norm2 > 0 {
		inv := float32(1 / math.Sqrt(norm2))
		for i := range vec {
			vec[i] *= inv
		}
	}
	return vec
}
