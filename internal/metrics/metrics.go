// Package metrics collects statistics for a full dedup run.
package metrics

import (
	"encoding/json"
	"fmt"
	"io"
	"time"
)

// RunMetrics collects statistics for a full pipeline run.
type RunMetrics struct {
	StartedAt  time.Time     `json:"started_at"`
	FinishedAt time.Time     `json:"finished_at,omitempty"`
	Duration   time.Duration `json:"duration_ms,omitempty"`

	CorpusSize   int  `json:"corpus_size"`
	NewQuestions int  `json:"new_questions"`
	CacheHit     bool `json:"cache_hit"`

	Approved int `json:"approved"`
	Rejected int `json:"rejected"`
	Pending  int `json:"pending"`

	RejectedByStage map[string]int `json:"rejected_by_stage,omitempty"`

	EmbeddingCalls int `json:"embedding_calls"`
	JudgeCalls     int `json:"judge_calls"`
}

// New starts tracking a run.
func New() *RunMetrics {
	return &RunMetrics{
		StartedAt:       time.Now(),
		RejectedByStage: make(map[string]int),
	}
}

// CountEmbedding records one embedding API call.
func (m *RunMetrics) CountEmbedding() { m.EmbeddingCalls++ }

// CountJudge records one arbiter call.
func (m *RunMetrics) CountJudge() { m.JudgeCalls++ }

// CountRejection records a rejection attributed to a stage label.
func (m *RunMetrics) CountRejection(stage string) {
	m.Rejected++
	m.RejectedByStage[stage]++
}

// Finish marks the run as complete.
func (m *RunMetrics) Finish() {
	m.FinishedAt = time.Now()
	m.Duration = m.FinishedAt.Sub(m.StartedAt)
}

// WriteJSON emits the metrics as indented JSON.
func (m *RunMetrics) WriteJSON(w io.Writer) error {
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding metrics: %w", err)
	}
	_, err = w.Write(append(data, '\n'))
	return err
}
