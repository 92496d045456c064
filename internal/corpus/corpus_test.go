package corpus

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/dgarciamed/quizbank/internal/embedcache"
	"github.com/dgarciamed/quizbank/internal/llm"
	"github.com/dgarciamed/quizbank/internal/question"
)

// batchEmbedder records batch sizes and returns one deterministic vector per
// input text.
type batchEmbedder struct {
	batches [][]string
	fail    bool
}

func (e *batchEmbedder) Complete(_ context.Context, _ *llm.Prompt, _ *llm.RequestOptions) (*llm.Response, error) {
	return nil, errors.New("not a chat provider")
}

func (e *batchEmbedder) Embed(_ context.Context, texts []string) ([][]float32, error) {
	if e.fail {
		return nil, errors.New("provider down")
	}
	e.batches = append(e.batches, texts)
	out := make([][]float32, len(texts))
	for i, txt := range texts {
		out[i] = []float32{float32(len(txt)), 1}
	}
	return out, nil
}

func (e *batchEmbedder) Name() string { return "batch-mock" }

func TestNew_LengthMismatch(t *testing.T) {
	if _, err := New([]question.Record{{Question: "q"}}, nil); err == nil {
		t.Fatal("expected error on length mismatch")
	}
}

func TestAppend_Grows(t *testing.T) {
	c, err := New(nil, nil)
	if err != nil {
		t.Fatal(err)
	}
	c.Append(question.Record{ID: "1", Question: "q1"}, []float32{1})
	c.Append(question.Record{ID: "2", Question: "q2"}, []float32{2})

	if c.Len() != 2 {
		t.Fatalf("expected 2 entries, got %d", c.Len())
	}
	if c.Entry(0).Record.ID != "1" || c.Entry(1).Record.ID != "2" {
		t.Error("entries out of order")
	}
}

func TestEmbedAll_Batching(t *testing.T) {
	e := &batchEmbedder{}
	texts := make([]string, 120)
	for i := range texts {
		texts[i] = "pregunta"
	}

	var progressCalls []int
	embeddings, err := EmbedAll(context.Background(), e, texts, 50, func(done, total int) {
		progressCalls = append(progressCalls, done)
		if total != 120 {
			t.Errorf("expected total 120, got %d", total)
		}
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(embeddings) != 120 {
		t.Fatalf("expected 120 embeddings, got %d", len(embeddings))
	}

	wantBatches := []int{50, 50, 20}
	if len(e.batches) != len(wantBatches) {
		t.Fatalf("expected %d batches, got %d", len(wantBatches), len(e.batches))
	}
	for i, b := range e.batches {
		if len(b) != wantBatches[i] {
			t.Errorf("batch %d has %d texts, want %d", i, len(b), wantBatches[i])
		}
	}
	wantProgress := []int{50, 100, 120}
	for i, p := range progressCalls {
		if p != wantProgress[i] {
			t.Errorf("progress call %d = %d, want %d", i, p, wantProgress[i])
		}
	}
}

func TestEmbedAll_FailureAborts(t *testing.T) {
	e := &batchEmbedder{fail: true}
	if _, err := EmbedAll(context.Background(), e, []string{"a"}, 50, nil); err == nil {
		t.Fatal("expected error when provider fails")
	}
}

func TestPrepare_CacheMissThenHit(t *testing.T) {
	cache := embedcache.New(filepath.Join(t.TempDir(), "cache.json"))
	records := []question.Record{
		{ID: "1", Question: "¿Pregunta uno?", Options: []string{"A. x", "B. y"}},
		{ID: "2", Question: "¿Pregunta dos?", Options: []string{"A. z", "B. w"}},
	}

	// First run: miss, full rebuild, cache written.
	e1 := &batchEmbedder{}
	c1, hit, err := Prepare(context.Background(), e1, cache, records, 50, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if hit {
		t.Error("expected cache miss on first run")
	}
	if c1.Len() != 2 || len(e1.batches) != 1 {
		t.Errorf("unexpected first run: len=%d batches=%d", c1.Len(), len(e1.batches))
	}

	// Second run with unchanged corpus: hit, no embedding calls.
	e2 := &batchEmbedder{}
	c2, hit, err := Prepare(context.Background(), e2, cache, records, 50, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !hit {
		t.Error("expected cache hit on second run")
	}
	if len(e2.batches) != 0 {
		t.Errorf("expected no embedding calls on cache hit, got %d", len(e2.batches))
	}
	if c2.Len() != 2 {
		t.Errorf("expected 2 entries, got %d", c2.Len())
	}
}

func TestPrepare_RebuildAfterCorpusChange(t *testing.T) {
	cache := embedcache.New(filepath.Join(t.TempDir(), "cache.json"))
	records := []question.Record{{ID: "1", Question: "original", Options: []string{"A. x"}}}

	if _, _, err := Prepare(context.Background(), &batchEmbedder{}, cache, records, 50, nil); err != nil {
		t.Fatal(err)
	}

	changed := []question.Record{{ID: "1", Question: "modificada", Options: []string{"A. x"}}}
	e := &batchEmbedder{}
	_, hit, err := Prepare(context.Background(), e, cache, changed, 50, nil)
	if err != nil {
		t.Fatal(err)
	}
	if hit {
		t.Error("expected miss after full-text change")
	}
	if len(e.batches) != 1 {
		t.Errorf("expected rebuild, got %d batches", len(e.batches))
	}
}

func TestPrepare_NoCacheWrittenOnFailure(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cache.json")
	cache := embedcache.New(path)
	records := []question.Record{{ID: "1", Question: "q", Options: []string{"A. x"}}}

	if _, _, err := Prepare(context.Background(), &batchEmbedder{fail: true}, cache, records, 50, nil); err == nil {
		t.Fatal("expected error when embedding fails")
	}
	// The failed run must not leave a cache behind.
	e := &batchEmbedder{}
	_, hit, err := Prepare(context.Background(), e, cache, records, 50, nil)
	if err != nil {
		t.Fatal(err)
	}
	if hit {
		t.Error("expected miss: no cache should have been persisted by the failed run")
	}
}
