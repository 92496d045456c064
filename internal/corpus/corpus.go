// Package corpus holds the working question corpus: every existing question
// paired with its embedding. The corpus only ever grows during a run —
// approved new questions are appended so later questions are checked against
// them too.
package corpus

import (
	"context"
	"fmt"

	"github.com/dgarciamed/quizbank/internal/embedcache"
	"github.com/dgarciamed/quizbank/internal/llm"
	"github.com/dgarciamed/quizbank/internal/question"
)

// Entry pairs a question with its embedding.
type Entry struct {
	Record    question.Record
	Embedding []float32
}

// Corpus is an append-only sequence of entries. Entries are addressed by
// stable index; they are never removed or mutated.
type Corpus struct {
	entries []Entry
}

// New builds a corpus from parallel record and embedding slices.
func New(records []question.Record, embeddings [][]float32) (*Corpus, error) {
	if len(records) != len(embeddings) {
		return nil, fmt.Errorf("corpus: %d records but %d embeddings", len(records), len(embeddings))
	}
	entries := make([]Entry, len(records))
	for i := range records {
		entries[i] = Entry{Record: records[i], Embedding: embeddings[i]}
	}
	return &Corpus{entries: entries}, nil
}

// Len returns the number of entries.
func (c *Corpus) Len() int { return len(c.entries) }

// Entry returns the entry at index i.
func (c *Corpus) Entry(i int) Entry { return c.entries[i] }

// Append adds a newly approved question and its embedding.
func (c *Corpus) Append(rec question.Record, emb []float32) {
	c.entries = append(c.entries, Entry{Record: rec, Embedding: emb})
}

// EmbedAll embeds texts in fixed-size batches to respect provider batch
// limits. Order-preserving. Any batch failure aborts the whole rebuild: a
// partially embedded corpus must never be cached.
func EmbedAll(ctx context.Context, provider llm.Provider, texts []string, batchSize int, progress func(done, total int)) ([][]float32, error) {
	if batchSize <= 0 {
		batchSize = 50
	}
	embeddings := make([][]float32, 0, len(texts))
	for i := 0; i < len(texts); i += batchSize {
		end := i + batchSize
		if end > len(texts) {
			end = len(texts)
		}
		batch, err := provider.Embed(ctx, texts[i:end])
		if err != nil {
			return nil, fmt.Errorf("embedding batch %d-%d: %w", i, end, err)
		}
		if len(batch) != end-i {
			return nil, fmt.Errorf("embedding batch %d-%d: got %d vectors for %d texts", i, end, len(batch), end-i)
		}
		embeddings = append(embeddings, batch...)
		if progress != nil {
			progress(end, len(texts))
		}
	}
	return embeddings, nil
}

// Prepare builds the working corpus for the existing question bank, reusing
// the embedding cache when the stored hash matches the current full texts.
// A stale or unreadable cache triggers a transparent full rebuild; the cache
// file is rewritten only after the rebuild completes. The second return
// value reports whether the cache was hit.
func Prepare(ctx context.Context, provider llm.Provider, cache *embedcache.Cache, records []question.Record, batchSize int, progress func(done, total int)) (*Corpus, bool, error) {
	fullTexts := make([]string, len(records))
	for i, r := range records {
		fullTexts[i] = question.FullText(r)
	}
	hash := embedcache.HashTexts(fullTexts)

	if embeddings, ok := cache.Load(hash, len(records)); ok {
		c, err := New(records, embeddings)
		return c, true, err
	}

	embeddings, err := EmbedAll(ctx, provider, fullTexts, batchSize, progress)
	if err != nil {
		return nil, false, err
	}
	if err := cache.Store(hash, embeddings); err != nil {
		return nil, false, err
	}
	c, err := New(records, embeddings)
	return c, false, err
}
