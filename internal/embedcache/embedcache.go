// Package embedcache persists corpus embeddings between runs, keyed by a
// content hash of the corpus full texts. A stale or unreadable cache is a
// miss, never an error: the caller rebuilds transparently.
package embedcache

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
)

// record is the on-disk cache format.
type record struct {
	Hash       string      `json:"hash"`
	Embeddings [][]float32 `json:"embeddings"`
}

// HashTexts computes a SHA-256 hex digest over the JSON-serialized ordered
// sequence of texts. Any change to any text, or to their order or count,
// changes the hash.
func HashTexts(texts []string) string {
	data, err := json.Marshal(texts)
	if err != nil {
		// []string cannot fail to marshal; keep the signature simple.
		panic(err)
	}
	h := sha256.Sum256(data)
	return hex.EncodeToString(h[:])
}

// Cache is a single-file embedding cache.
type Cache struct {
	path string
}

// New creates a cache backed by the given file path.
func New(path string) *Cache {
	return &Cache{path: path}
}

// Load returns the cached embeddings when the stored hash matches and the
// embedding count equals expectedCount. Any read or parse failure, or any
// mismatch, is reported as a miss.
func (c *Cache) Load(hash string, expectedCount int) ([][]float32, bool) {
	data, err := os.ReadFile(c.path)
	if err != nil {
		return nil, false
	}
	var rec record
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, false
	}
	if rec.Hash != hash || len(rec.Embeddings) != expectedCount {
		return nil, false
	}
	return rec.Embeddings, true
}

// Store persists the embeddings under the given hash, replacing any prior
// cache file. Called once, after a successful full rebuild.
func (c *Cache) Store(hash string, embeddings [][]float32) error {
	data, err := json.Marshal(record{Hash: hash, Embeddings: embeddings})
	if err != nil {
		return fmt.Errorf("encoding embedding cache: %w", err)
	}
	if err := os.WriteFile(c.path, data, 0o644); err != nil {
		return fmt.Errorf("writing embedding cache: %w", err)
	}
	return nil
}
