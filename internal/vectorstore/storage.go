// Package vectorstore holds the vector encoding and ranking helpers shared by
// the store implementations in its sub-packages.
package vectorstore

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"sort"

	"qabot/internal/domain"
)

// DefaultTopK is used when a search asks for a non-positive number of results.
const DefaultTopK = 5

// ErrDimensionMismatch is returned when a vector does not match the store
// dimension.
var ErrDimensionMismatch = errors.New("vector dimension mismatch")

// EncodeEmbedding encodes vec as little-endian IEEE 754 float32 values
// without a length prefix.
func EncodeEmbedding(vec []float32) []byte {
	b := make([]byte, len(vec)*4)
	for i, v := range vec {
		binary.LittleEndian.PutUint32(b[i*4:], math.Float32bits(v))
	}
	return b
}

// DecodeEmbedding decodes a blob produced by EncodeEmbedding.
func DecodeEmbedding(b []byte) ([]float32, error) {
	if len(b)%4 != 0 {
		return nil, fmt.Errorf("invalid embedding blob length %d (not multiple of 4)", len(b))
	}
	vec := make([]float32, len(b)/4)
	for i := range vec {
		vec[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[i*4:]))
	}
	return vec, nil
}

// Cosine returns the cosine similarity of a and b. Zero vectors score 0.
func Cosine(a, b []float32) (float64, error) {
	if len(a) != len(b) {
		return 0, fmt.Errorf("%w: %d != %d", ErrDimensionMismatch, len(a), len(b))
	}
	var dot, na, nb float64
	for i := range a {
		x, y := float64(a[i]), float64(b[i])
		dot += x * y
		na += x * x
		nb += y * y
	}
	if na == 0 || nb == 0 {
		return 0, nil
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb)), nil
}

// IsZero reports whether every component of vec is zero.
func IsZero(vec []float32) bool {
	for _, v := range vec {
		if v != 0 {
			return false
		}
	}
	return true
}

// TopK sorts results by descending score, keeping insertion order on ties,
// and returns at most k of them.
func TopK(results []domain.SearchResult, k int) []domain.SearchResult {
	if k <= 0 {
		k = DefaultTopK
	}
	sort.SliceStable(results, func(i, j int) bool { return results[i].Score > results[j].Score })
	if len(results) > k {
		results = results[:k]
	}
	return results
}
