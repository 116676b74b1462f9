// Package vectortest provides deterministic embedders for tests.
package vectortest

import (
	"context"
	"hash/fnv"
	"math"
	"strings"
	"sync/atomic"
	"unicode"
)

// HashEmbedder maps text to a normalized bag-of-words vector by hashing
// each lowercased word into one of Dim buckets. Identical texts always get
// identical vectors.
type HashEmbedder struct {
	Dim int

	// Calls counts EmbedBatch invocations.
	Calls atomic.Int64
}

func NewHashEmbedder(dim int) *HashEmbedder {
	return &HashEmbedder{Dim: dim}
}

func (e *HashEmbedder) Dimension() int {
	return e.Dim
}

func (e *HashEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	return e.vector(text), nil
}

func (e *HashEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	e.Calls.Add(1)

	vectors := make([][]float32, len(texts))
	for i, text := range texts {
		vectors[i] = e.vector(text)
	}

	return vectors, nil
}

func (e *HashEmbedder) vector(text string) []float32 {
	vec := make([]float32, e.Dim)

	words := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})

	for _, word := range words {
		h := fnv.New32a()
		h.Write([]byte(word))
		sum := h.Sum32()

		sign := float32(1)
		if sum&(1<<31) != 0 {
			sign = -1
		}

		vec[int(sum%uint32(e.Dim))] += sign
	}

	var norm float64
	for _, v := range vec {
		norm += float64(v * v)
	}

	if norm == 0 {
		vec[0] = 1
		return vec
	}

	scale := float32(1 / math.Sqrt(norm))
	for i := range vec {
		vec[i] *= scale
	}

	return vec
}
