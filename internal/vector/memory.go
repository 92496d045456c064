package vector

import (
	"context"

	"github.com/dgarciamed/quizbank/internal/similarity"
)

// Memory is the default in-memory index: a single linear pass per query with
// a bounded top-k list. Ties keep first-seen (insertion) order.
type Memory struct {
	vectors [][]float32
}

// NewMemory creates an empty in-memory index.
func NewMemory() *Memory { return &Memory{} }

// NewMemoryFrom creates an index pre-loaded with the given vectors.
func NewMemoryFrom(vectors [][]float32) *Memory {
	m := &Memory{vectors: make([][]float32, len(vectors))}
	copy(m.vectors, vectors)
	return m
}

func (m *Memory) Add(_ context.Context, vectors ...[]float32) error {
	m.vectors = append(m.vectors, vectors...)
	return nil
}

func (m *Memory) Search(_ context.Context, query []float32, k int) ([]Hit, error) {
	candidates := similarity.TopK(query, m.vectors, k)
	hits := make([]Hit, len(candidates))
	for i, c := range candidates {
		hits[i] = Hit{Index: c.Index, Score: c.Score}
	}
	return hits, nil
}

func (m *Memory) Close() error { return nil }

var _ Index = (*Memory)(nil)
