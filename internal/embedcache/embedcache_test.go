package embedcache

import (
	"os"
	"path/filepath"
	"testing"
)

func TestHashTexts_Deterministic(t *testing.T) {
	texts := []string{"pregunta uno", "pregunta dos"}
	if HashTexts(texts) != HashTexts([]string{"pregunta uno", "pregunta dos"}) {
		t.Error("hash not deterministic")
	}
}

func TestHashTexts_SensitiveToContentAndOrder(t *testing.T) {
	base := HashTexts([]string{"a", "b"})
	if HashTexts([]string{"a", "c"}) == base {
		t.Error("hash unchanged after text change")
	}
	if HashTexts([]string{"b", "a"}) == base {
		t.Error("hash unchanged after reorder")
	}
	if HashTexts([]string{"a", "b", "c"}) == base {
		t.Error("hash unchanged after append")
	}
}

func TestCache_RoundTrip(t *testing.T) {
	c := New(filepath.Join(t.TempDir(), "cache.json"))
	embeddings := [][]float32{{0.1, 0.2}, {0.3, 0.4}}
	hash := HashTexts([]string{"x", "y"})

	if err := c.Store(hash, embeddings); err != nil {
		t.Fatalf("store: %v", err)
	}

	got, ok := c.Load(hash, 2)
	if !ok {
		t.Fatal("expected cache hit")
	}
	if len(got) != 2 || got[0][0] != 0.1 || got[1][1] != 0.4 {
		t.Errorf("unexpected embeddings: %v", got)
	}
}

func TestCache_MissOnHashMismatch(t *testing.T) {
	c := New(filepath.Join(t.TempDir(), "cache.json"))
	if err := c.Store("oldhash", [][]float32{{1}}); err != nil {
		t.Fatal(err)
	}
	if _, ok := c.Load("newhash", 1); ok {
		t.Error("expected miss on hash mismatch")
	}
}

func TestCache_MissOnCountMismatch(t *testing.T) {
	c := New(filepath.Join(t.TempDir(), "cache.json"))
	if err := c.Store("h", [][]float32{{1}, {2}}); err != nil {
		t.Fatal(err)
	}
	if _, ok := c.Load("h", 3); ok {
		t.Error("expected miss on count mismatch")
	}
}

func TestCache_MissOnMissingFile(t *testing.T) {
	c := New(filepath.Join(t.TempDir(), "absent.json"))
	if _, ok := c.Load("h", 0); ok {
		t.Error("expected miss for missing file")
	}
}

func TestCache_MissOnCorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cache.json")
	if err := os.WriteFile(path, []byte("{not json"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, ok := New(path).Load("h", 1); ok {
		t.Error("expected miss for corrupt file")
	}
}

func TestCache_StoreOverwrites(t *testing.T) {
	c := New(filepath.Join(t.TempDir(), "cache.json"))
	if err := c.Store("h1", [][]float32{{1}}); err != nil {
		t.Fatal(err)
	}
	if err := c.Store("h2", [][]float32{{2}, {3}}); err != nil {
		t.Fatal(err)
	}
	if _, ok := c.Load("h1", 1); ok {
		t.Error("old record should be gone")
	}
	got, ok := c.Load("h2", 2)
	if !ok || got[0][0] != 2 {
		t.Errorf("expected new record, got %v ok=%v", got, ok)
	}
}
