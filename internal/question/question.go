// Package question defines the multiple-choice question record shared by the
// parser, the dedup pipeline and the report writer.
package question

import (
	"encoding/json"
	"fmt"
	"os"
	"regexp"
	"strconv"
	"strings"
)

// ID is a question identifier. The question bank stores numeric ids (the
// parser assigns timestamp-based ones) but hand-edited files sometimes carry
// strings, so both forms are accepted and round-tripped.
type ID string

// UnmarshalJSON accepts either a JSON string or a JSON number.
func (id *ID) UnmarshalJSON(data []byte) error {
	s := strings.TrimSpace(string(data))
	if s == "null" {
		*id = ""
		return nil
	}
	if len(s) > 0 && s[0] == '"' {
		var str string
		if err := json.Unmarshal(data, &str); err != nil {
			return err
		}
		*id = ID(str)
		return nil
	}
	// Numeric literal: keep the raw digits.
	if _, err := strconv.ParseFloat(s, 64); err != nil {
		return fmt.Errorf("question id: invalid value %s", s)
	}
	*id = ID(s)
	return nil
}

// MarshalJSON emits a number when the id is numeric, a string otherwise.
func (id ID) MarshalJSON() ([]byte, error) {
	if id == "" {
		return []byte(`null`), nil
	}
	if _, err := strconv.ParseFloat(string(id), 64); err == nil {
		return []byte(id), nil
	}
	return json.Marshal(string(id))
}

// Record is a single multiple-choice question.
type Record struct {
	ID            ID       `json:"id,omitempty"`
	Question      string   `json:"question"`
	Options       []string `json:"options"`
	CorrectAnswer string   `json:"correct_answer,omitempty"`
	Explanation   string   `json:"explanation,omitempty"`
}

// optionMarker matches a leading single-letter option marker like "A." or "b)".
var optionMarker = regexp.MustCompile(`^[A-Ea-e][.)]\s*`)

// FullText returns the question stem concatenated with every option after
// stripping leading letter markers. Two records whose stems were truncated
// differently by the parser but whose options are identical still compare
// equal on full text, and vice versa.
func FullText(r Record) string {
	parts := make([]string, 0, len(r.Options)+1)
	parts = append(parts, r.Question)
	for _, opt := range r.Options {
		parts = append(parts, strings.TrimSpace(optionMarker.ReplaceAllString(opt, "")))
	}
	return strings.Join(parts, " ")
}

// LetteredOptions renders options as "A) ...", one per line, for LLM prompts.
func LetteredOptions(r Record) string {
	var b strings.Builder
	for i, opt := range r.Options {
		fmt.Fprintf(&b, "  %c) %s\n", 'A'+i, opt)
	}
	return strings.TrimRight(b.String(), "\n")
}

// LoadFile reads a JSON array of records.
func LoadFile(path string) ([]Record, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading questions: %w", err)
	}
	var records []Record
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("parsing questions %s: %w", path, err)
	}
	return records, nil
}
