// Package parser turns raw pasted question text into question records.
//
// Two input shapes are supported. The block format separates questions with
// blank lines or "---" lines, one option per line. The legacy format is a
// single run-on line where only the option markers (a), b., C) ...) give the
// structure away; recovering question boundaries there is heuristic and the
// block format should be preferred.
package parser

import (
	"regexp"
	"strconv"
	"strings"
	"sync/atomic"
	"time"
	"unicode"
	"unicode/utf8"

	"github.com/dgarciamed/quizbank/internal/question"
)

// IDGenerator assigns ids to parsed questions.
type IDGenerator func() question.ID

// NewIDGenerator returns a generator producing unique numeric ids from the
// current time plus a counter, matching the id scheme of the question bank.
func NewIDGenerator() IDGenerator {
	var counter int64
	base := time.Now().UnixMilli() * 1000
	return func() question.ID {
		n := atomic.AddInt64(&counter, 1) - 1
		return question.ID(strconv.FormatInt(base+n, 10))
	}
}

// Format identifies the input shape.
type Format int

const (
	// FormatBlocks is blank-line or "---" separated, one option per line.
	FormatBlocks Format = iota
	// FormatLegacy is run-on text without separators.
	FormatLegacy
)

func (f Format) String() string {
	if f == FormatBlocks {
		return "blocks"
	}
	return "legacy"
}

// DetectFormat picks the parsing strategy for raw text. Any line structure
// at all means the block parser applies; only a single pasted line falls
// back to the legacy marker scan.
func DetectFormat(text string) Format {
	trimmed := strings.TrimSpace(text)
	if strings.Contains(text, "\n---\n") || strings.HasPrefix(trimmed, "---") {
		return FormatBlocks
	}
	if strings.Contains(trimmed, "\n") {
		return FormatBlocks
	}
	return FormatLegacy
}

// Parse detects the input format and parses accordingly.
func Parse(text string, gen IDGenerator) []question.Record {
	if gen == nil {
		gen = NewIDGenerator()
	}
	if DetectFormat(text) == FormatBlocks {
		return ParseBlocks(text, gen)
	}
	return ParseLegacy(text, gen)
}

var (
	blockSeparator = regexp.MustCompile(`(?m)^---$|\n\s*\n`)
	// Option lines need a space after the marker so abbreviations like
	// "a.C." at line start do not eat the line.
	optionLine      = regexp.MustCompile(`^[a-eA-E][.)]\s+`)
	leadingNumber   = regexp.MustCompile(`^[0-9]+[.\-)]\s*`)
	selectOnePhrase = regexp.MustCompile(`(?i)seleccione una[:.]?`)
)

// ParseBlocks parses blank-line or "---" separated questions. A block
// yields a record only when it has a stem and at least two options; option
// lines may wrap, continuation lines are glued to the previous option.
func ParseBlocks(text string, gen IDGenerator) []question.Record {
	var records []question.Record

	for _, block := range blockSeparator.Split(text, -1) {
		block = strings.TrimSpace(block)
		if block == "" {
			continue
		}
		var lines []string
		for _, line := range strings.Split(block, "\n") {
			if line = strings.TrimSpace(line); line != "" {
				lines = append(lines, line)
			}
		}
		if len(lines) < 3 {
			continue
		}

		var stem []string
		var options []string
		for _, line := range lines {
			switch {
			case optionLine.MatchString(line):
				options = append(options, strings.TrimSpace(optionLine.ReplaceAllString(line, "")))
			case len(options) > 0:
				options[len(options)-1] += " " + line
			default:
				stem = append(stem, line)
			}
		}

		if len(options) < 2 {
			continue
		}
		records = append(records, question.Record{
			ID:       gen(),
			Question: cleanStem(strings.Join(stem, " ")),
			Options:  options,
		})
	}
	return records
}

func cleanStem(stem string) string {
	stem = leadingNumber.ReplaceAllString(stem, "")
	stem = selectOnePhrase.ReplaceAllString(stem, "")
	return strings.TrimSpace(stem)
}

// legacyMarker finds option markers in run-on text. The marker letter is
// captured so an "a" marker can be recognized as the start of a new option
// list, which implies a question boundary somewhere in the text before it.
var legacyMarker = regexp.MustCompile(`(\s|^)([a-eA-E])[.)]\s`)

type legacyPart struct {
	text       string
	nextLetter byte // 0 for the trailing part after the last marker
}

// ParseLegacy parses run-on text by scanning option markers. The text
// preceding an "a" marker holds both the previous question's last option
// and the next question's stem; the split point is guessed from an inverted
// question mark, a "Seleccione una" phrase, or the last sentence boundary.
func ParseLegacy(text string, gen IDGenerator) []question.Record {
	flat := strings.Join(strings.Fields(text), " ")

	var parts []legacyPart
	last := 0
	for _, m := range legacyMarker.FindAllStringSubmatchIndex(flat, -1) {
		// m[4]:m[5] is the letter group.
		parts = append(parts, legacyPart{
			text:       strings.TrimSpace(flat[last:m[0]]),
			nextLetter: flat[m[4]] | 0x20,
		})
		last = m[1]
	}
	if tail := strings.TrimSpace(flat[last:]); tail != "" {
		parts = append(parts, legacyPart{text: tail})
	}

	var records []question.Record
	var current *question.Record

	for _, part := range parts {
		switch {
		case part.nextLetter == 'a':
			if current == nil {
				current = &question.Record{ID: gen(), Question: part.text}
				continue
			}
			splitPos := questionBoundary(part.text)
			if splitPos > 0 {
				current.Options = append(current.Options, strings.TrimSpace(part.text[:splitPos]))
				records = append(records, *current)
				current = &question.Record{ID: gen(), Question: strings.TrimSpace(part.text[splitPos:])}
			} else {
				// No boundary found: the whole part is the new stem and
				// the previous question keeps only the options seen so far.
				records = append(records, *current)
				current = &question.Record{ID: gen(), Question: part.text}
			}
		case current != nil && part.nextLetter != 0:
			current.Options = append(current.Options, part.text)
		case current != nil:
			current.Options = append(current.Options, part.text)
			records = append(records, *current)
			current = nil
		}
	}

	for i := range records {
		records[i].Question = cleanStem(records[i].Question)
	}
	return records
}

// questionBoundary locates where a new question's stem starts inside text
// that begins with the previous question's last option. Returns -1 when no
// plausible boundary exists.
func questionBoundary(text string) int {
	if pos := strings.LastIndex(text, "¿"); pos != -1 {
		return pos
	}

	if loc := selectOnePhrase.FindStringIndex(text); loc != nil {
		pos := loc[0]
		if dot := strings.LastIndex(text[:pos], "."); dot != -1 && pos-dot < 150 {
			return dot + 1
		}
		if upper := strings.IndexFunc(text[:pos], func(r rune) bool { return r >= 'A' && r <= 'Z' }); upper != -1 {
			return upper
		}
		return pos
	}

	return lastSentenceStart(text)
}

// lastSentenceStart returns the byte offset of the last sentence that
// follows a terminator plus whitespace, or -1 when the text is a single
// sentence.
func lastSentenceStart(text string) int {
	best := -1
	for i := 0; i < len(text); {
		r, size := utf8.DecodeRuneInString(text[i:])
		if r == '.' || r == '?' || r == '!' {
			j := i + size
			sawSpace := false
			for j < len(text) {
				r2, size2 := utf8.DecodeRuneInString(text[j:])
				if !unicode.IsSpace(r2) {
					break
				}
				sawSpace = true
				j += size2
			}
			if sawSpace && j < len(text) {
				r2, _ := utf8.DecodeRuneInString(text[j:])
				if r2 == '¿' || unicode.IsUpper(r2) {
					best = j
				}
			}
		}
		i += size
	}
	return best
}

// Warnings summarizes parse quality problems worth surfacing to the user.
type Warnings struct {
	MissingStem int // questions with an empty stem
	FewOptions  int // questions with fewer than two options
}

// Validate checks parsed questions for structural problems.
func Validate(records []question.Record) Warnings {
	var w Warnings
	for _, r := range records {
		if strings.TrimSpace(r.Question) == "" {
			w.MissingStem++
		}
		if len(r.Options) < 2 {
			w.FewOptions++
		}
	}
	return w
}
