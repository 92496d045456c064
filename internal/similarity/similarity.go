// Package similarity implements cosine similarity and bounded top-K ranking
// over corpus embeddings.
package similarity

import "math"

// Cosine returns the cosine similarity of two vectors in [-1, 1]. Returns 0
// when either vector has zero norm or the dimensions differ (degenerate
// inputs must not produce NaN).
func Cosine(u, v []float32) float64 {
	if len(u) != len(v) {
		return 0
	}
	var dot, normU, normV float64
	for i := range u {
		dot += float64(u[i]) * float64(v[i])
		normU += float64(u[i]) * float64(u[i])
		normV += float64(v[i]) * float64(v[i])
	}
	if normU == 0 || normV == 0 {
		return 0
	}
	return dot / (math.Sqrt(normU) * math.Sqrt(normV))
}

// Candidate is a single ranked match against the corpus.
type Candidate struct {
	Index int
	Score float64
}

// TopK returns the at most k highest-scoring corpus entries for the query,
// sorted descending by score. Ties keep first-seen order. Single linear pass;
// O(n·k) is fine for k=3.
func TopK(query []float32, corpus [][]float32, k int) []Candidate {
	if k <= 0 {
		return nil
	}
	var top []Candidate
	for i, vec := range corpus {
		score := Cosine(query, vec)
		if len(top) == k && score <= top[len(top)-1].Score {
			continue
		}
		// Insert after any equal-scored earlier candidate.
		pos := len(top)
		for pos > 0 && top[pos-1].Score < score {
			pos--
		}
		top = append(top, Candidate{})
		copy(top[pos+1:], top[pos:])
		top[pos] = Candidate{Index: i, Score: score}
		if len(top) > k {
			top = top[:k]
		}
	}
	return top
}
