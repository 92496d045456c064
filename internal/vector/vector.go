// Package vector provides similarity search over the working corpus
// embeddings. The default backend is an in-memory linear scan; a Qdrant
// backend is available for large banks where the corpus no longer fits a
// per-run scan comfortably.
package vector

import "context"

// Hit is a single ranked match, addressed by stable corpus index.
type Hit struct {
	Index int
	Score float64
}

// Index stores corpus embeddings in append order and answers top-k queries.
type Index interface {
	// Add appends vectors; the n-th vector ever added has index n.
	Add(ctx context.Context, vectors ...[]float32) error
	// Search returns at most k hits sorted descending by cosine similarity.
	Search(ctx context.Context, query []float32, k int) ([]Hit, error)
	// Close releases resources.
	Close() error
}
