// Package report writes the run's classification lists as JSON artifacts.
package report

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/dgarciamed/quizbank/internal/pipeline"
)

// File names under the output directory.
const (
	ApprovedFile = "approved.json"
	RejectedFile = "rejected.json"
	PendingFile  = "pending.json"
)

// Write serializes the result into dir, creating it if needed. Approved and
// rejected lists are always written, even when empty, so downstream tooling
// can rely on their presence. The pending file is written only when there is
// something for a human to review.
func Write(dir string, result *pipeline.Result) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating output dir: %w", err)
	}

	if err := writeJSON(filepath.Join(dir, ApprovedFile), nonNil(result.Approved)); err != nil {
		return err
	}
	if err := writeJSON(filepath.Join(dir, RejectedFile), nonNil(result.Rejected)); err != nil {
		return err
	}
	if len(result.Pending) > 0 {
		if err := writeJSON(filepath.Join(dir, PendingFile), result.Pending); err != nil {
			return err
		}
	}
	return nil
}

// nonNil keeps empty lists marshaling as [] instead of null.
func nonNil[S ~[]E, E any](s S) S {
	if s == nil {
		return S{}
	}
	return s
}

func writeJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding %s: %w", filepath.Base(path), err)
	}
	if err := os.WriteFile(path, append(data, '\n'), 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", filepath.Base(path), err)
	}
	return nil
}
