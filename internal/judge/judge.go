// Package judge asks an LLM whether a borderline-similarity question pair is
// a genuine duplicate. Judge failures never abort the run: an unavailable or
// malformed verdict degrades to "requires manual review" so uncertain cases
// reach a human instead of being auto-resolved.
package judge

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/dgarciamed/quizbank/internal/llm"
	"github.com/dgarciamed/quizbank/internal/observability"
	"github.com/dgarciamed/quizbank/internal/question"
)

// Verdict is the arbiter's answer. IsDuplicate is nil when no trustworthy
// verdict could be obtained.
type Verdict struct {
	IsDuplicate *bool
	Reason      string
}

const (
	reasonLLMError        = "LLM error - requires manual review"
	reasonInvalidResponse = "invalid LLM response - requires manual review"
)

// Judge wraps an LLM provider as a duplicate arbiter.
type Judge struct {
	provider llm.Provider
	log      *slog.Logger
}

// New creates a Judge. The provider is expected to be retry-wrapped already;
// the judge treats exhausted retries as a degraded verdict, not an error.
func New(provider llm.Provider, log *slog.Logger) *Judge {
	if log == nil {
		log = slog.Default()
	}
	return &Judge{provider: provider, log: log}
}

// Judge compares a new question against an existing one and returns a
// verdict. Never returns an error: all failure modes collapse to a nil
// IsDuplicate.
func (j *Judge) Judge(ctx context.Context, newQ, existing question.Record) Verdict {
	maxTokens := 150
	temperature := 0.1

	llmCtx, span := observability.StartLLMSpan(ctx, j.provider.Name(), "judge")
	defer span.End()

	resp, err := j.provider.Complete(llmCtx, &llm.Prompt{
		Messages: []llm.Message{{Role: llm.RoleUser, Content: buildPrompt(newQ, existing)}},
	}, &llm.RequestOptions{
		MaxTokens:   &maxTokens,
		Temperature: &temperature,
		JSONObject:  true,
	})
	if err != nil {
		observability.RecordError(span, err)
		j.log.Warn("judge call failed", "error", err, "candidate_id", string(existing.ID))
		return Verdict{IsDuplicate: nil, Reason: reasonLLMError}
	}

	return parseVerdict(resp.Content, j.log)
}

// parseVerdict validates the strictly-structured JSON verdict. A duplicate
// flag that is not exactly a JSON boolean means the response is unusable.
func parseVerdict(content string, log *slog.Logger) Verdict {
	content = llm.StripMarkdownFences(content)

	var raw struct {
		IsDuplicate json.RawMessage `json:"is_duplicate"`
		Reason      string          `json:"reason"`
	}
	if err := json.Unmarshal([]byte(content), &raw); err != nil {
		log.Warn("judge returned unparseable response", "error", err)
		return Verdict{IsDuplicate: nil, Reason: reasonInvalidResponse}
	}

	var isDup bool
	if err := json.Unmarshal(raw.IsDuplicate, &isDup); err != nil {
		log.Warn("judge duplicate flag is not a boolean", "value", string(raw.IsDuplicate))
		return Verdict{IsDuplicate: nil, Reason: reasonInvalidResponse}
	}
	return Verdict{IsDuplicate: &isDup, Reason: raw.Reason}
}

// buildPrompt renders the Spanish judging prompt. The corpus is a Spanish
// medical question bank, so the prompt stays in the corpus language. The
// correcta/incorrecta instruction mirrors the conflict-keyword veto: opposite
// framings of the same stem are not duplicates.
func buildPrompt(newQ, existing question.Record) string {
	return fmt.Sprintf(`Estás actuando como un juez experto en evaluación médica.
Tengo dos preguntas de opción múltiple. Tu tarea es determinar si la Pregunta NUEVA es un duplicado o evalúa EXACTAMENTE el mismo concepto específico clínico/farmacológico que la Pregunta EXISTENTE.
Compara TANTO el enunciado COMO las opciones. Ignora pequeñas diferencias de redacción o si las opciones están en distinto orden. Si en esencia preguntan por lo mismo y tienen opciones similares, es un duplicado.
¡OJO! Si una pregunta pregunta "cuál es la CORRECTA" y la otra "cuál es la INCORRECTA", NO son duplicados porque evalúan cosas opuestas.

Pregunta NUEVA: %q
Opciones:
%s

Pregunta EXISTENTE: %q
Opciones:
%s

Responde SOLO con un JSON estricto en el siguiente formato:
{"is_duplicate": true, "reason": "explicación muy breve de por qué"}
o
{"is_duplicate": false, "reason": "explicación muy breve de por qué"}`,
		newQ.Question, question.LetteredOptions(newQ),
		existing.Question, question.LetteredOptions(existing))
}
