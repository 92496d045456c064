// Package pipeline runs the three-stage duplicate classification cascade
// over a batch of new questions.
//
// Stage 1 is purely lexical: normalized equality and word overlap against
// every corpus entry. Stage 2 embeds the question and ranks the closest
// corpus entries by cosine similarity. Stage 3 asks the LLM arbiter about
// borderline candidates. Every question ends in exactly one of Approved,
// Rejected or Pending, and an approved question immediately joins the
// working corpus so later questions in the same batch are checked against
// it too.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/dgarciamed/quizbank/internal/corpus"
	"github.com/dgarciamed/quizbank/internal/judge"
	"github.com/dgarciamed/quizbank/internal/llm"
	"github.com/dgarciamed/quizbank/internal/metrics"
	"github.com/dgarciamed/quizbank/internal/normalize"
	"github.com/dgarciamed/quizbank/internal/observability"
	"github.com/dgarciamed/quizbank/internal/question"
	"github.com/dgarciamed/quizbank/internal/vector"
)

// Thresholds holds the decision boundaries of the cascade.
type Thresholds struct {
	// Exact is the cosine similarity at or above which a candidate is an
	// outright duplicate without consulting the arbiter.
	Exact float64
	// LLM is the cosine similarity at or above which the arbiter is asked.
	LLM float64
	// Overlap is the stage 1 word-overlap ratio treated as identical text.
	Overlap float64
	// TopK is how many nearest corpus entries stage 2 considers.
	TopK int
}

// DefaultThresholds returns the production decision boundaries.
func DefaultThresholds() Thresholds {
	return Thresholds{
		Exact:   0.95,
		LLM:     0.82,
		Overlap: 0.90,
		TopK:    3,
	}
}

// Status is the final classification of a new question.
type Status string

const (
	StatusApproved Status = "approved"
	StatusRejected Status = "rejected"
	StatusPending  Status = "pending"
)

// Outcome is the classification of a single new question.
type Outcome struct {
	Question question.Record
	Status   Status
	// Stage labels which stage decided a rejection ("stage 1", "stage 2",
	// "stage 3"). Empty for approved and pending outcomes.
	Stage  string
	Reason string
	// MatchID identifies the duplicate (rejected) or the unresolved
	// candidate (pending).
	MatchID question.ID
	// Similarity is the cosine similarity to MatchID for pending outcomes.
	Similarity float64
}

// Rejection is one entry of the rejected report.
type Rejection struct {
	Question    question.Record `json:"question"`
	Reason      string          `json:"reason"`
	DuplicateID question.ID     `json:"duplicate_id"`
}

// PendingCase is one entry of the pending report.
type PendingCase struct {
	Question    question.Record `json:"question"`
	Reason      string          `json:"reason"`
	CandidateID question.ID     `json:"candidate_id"`
	Similarity  float64         `json:"similarity"`
}

// Result aggregates the classifications of a full run, in input order
// within each list.
type Result struct {
	Approved []question.Record
	Rejected []Rejection
	Pending  []PendingCase
}

// Observer receives per-question progress callbacks.
type Observer interface {
	QuestionStart(position, total int, rec question.Record)
	QuestionDone(outcome Outcome)
}

type nopObserver struct{}

func (nopObserver) QuestionStart(int, int, question.Record) {}
func (nopObserver) QuestionDone(Outcome)                    {}

// Options configures optional pipeline collaborators.
type Options struct {
	Thresholds Thresholds
	Metrics    *metrics.RunMetrics
	Log        *slog.Logger
	Observer   Observer
}

// Pipeline classifies new questions against a working corpus.
type Pipeline struct {
	corpus     *corpus.Corpus
	index      vector.Index
	embedder   llm.Provider
	arbiter    *judge.Judge
	thresholds Thresholds
	metrics    *metrics.RunMetrics
	log        *slog.Logger
	observer   Observer

	// norms caches the normalized stem and full text of each corpus entry,
	// parallel to the corpus, so stage 1 does not re-normalize the whole
	// bank for every new question.
	norms []normForm
}

type normForm struct {
	stem string
	full string
}

// New builds a pipeline over an already-prepared corpus and index. The
// index must contain exactly the corpus embeddings, in corpus order.
func New(c *corpus.Corpus, idx vector.Index, embedder llm.Provider, arbiter *judge.Judge, opts *Options) *Pipeline {
	if opts == nil {
		opts = &Options{}
	}
	if opts.Thresholds == (Thresholds{}) {
		opts.Thresholds = DefaultThresholds()
	}
	if opts.Log == nil {
		opts.Log = slog.Default()
	}
	if opts.Observer == nil {
		opts.Observer = nopObserver{}
	}

	norms := make([]normForm, c.Len())
	for i := 0; i < c.Len(); i++ {
		norms[i] = normalizeRecord(c.Entry(i).Record)
	}

	return &Pipeline{
		corpus:     c,
		index:      idx,
		embedder:   embedder,
		arbiter:    arbiter,
		thresholds: opts.Thresholds,
		metrics:    opts.Metrics,
		log:        opts.Log,
		observer:   opts.Observer,
		norms:      norms,
	}
}

func normalizeRecord(rec question.Record) normForm {
	return normForm{
		stem: normalize.Normalize(rec.Question),
		full: normalize.Normalize(question.FullText(rec)),
	}
}

// Run classifies every new question in input order. Returns an error only
// for fatal conditions (embedding or index failure); arbiter failures
// degrade to pending outcomes instead.
func (p *Pipeline) Run(ctx context.Context, newQuestions []question.Record) (*Result, error) {
	result := &Result{}
	total := len(newQuestions)

	for i, rec := range newQuestions {
		qCtx, span := observability.StartQuestionSpan(ctx, string(rec.ID), i+1, total)
		p.observer.QuestionStart(i+1, total, rec)

		outcome, embedding, err := p.classify(qCtx, rec)
		if err != nil {
			observability.RecordError(span, err)
			span.End()
			return nil, fmt.Errorf("classifying question %s: %w", rec.ID, err)
		}
		observability.RecordClassification(span, string(outcome.Status), outcome.Reason)
		span.End()

		switch outcome.Status {
		case StatusApproved:
			result.Approved = append(result.Approved, rec)
			p.corpus.Append(rec, embedding)
			p.norms = append(p.norms, normalizeRecord(rec))
			if err := p.index.Add(qCtx, embedding); err != nil {
				return nil, fmt.Errorf("indexing approved question %s: %w", rec.ID, err)
			}
			if p.metrics != nil {
				p.metrics.Approved++
			}
		case StatusRejected:
			result.Rejected = append(result.Rejected, Rejection{
				Question:    rec,
				Reason:      outcome.Reason,
				DuplicateID: outcome.MatchID,
			})
			if p.metrics != nil {
				p.metrics.CountRejection(outcome.Stage)
			}
		case StatusPending:
			result.Pending = append(result.Pending, PendingCase{
				Question:    rec,
				Reason:      outcome.Reason,
				CandidateID: outcome.MatchID,
				Similarity:  outcome.Similarity,
			})
			if p.metrics != nil {
				p.metrics.Pending++
			}
		}

		p.log.Info("question classified",
			"id", string(rec.ID),
			"status", string(outcome.Status),
			"reason", outcome.Reason)
		p.observer.QuestionDone(outcome)
	}

	return result, nil
}

// classify runs the cascade for one question. The returned embedding is
// non-nil whenever stage 2 ran, so approved questions can join the index
// without a second provider call.
func (p *Pipeline) classify(ctx context.Context, rec question.Record) (Outcome, []float32, error) {
	if outcome, rejected := p.stage1(ctx, rec); rejected {
		return outcome, nil, nil
	}
	return p.stage2(ctx, rec)
}

// stage1 scans the corpus for lexically identical entries. A conflicting
// keyword pair vetoes the match regardless of overlap: near-identical
// wording asking for the opposite fact is not a duplicate.
func (p *Pipeline) stage1(ctx context.Context, rec question.Record) (Outcome, bool) {
	_, span := observability.StartStageSpan(ctx, "stage1")
	defer span.End()

	norm := normalizeRecord(rec)
	for i := range p.norms {
		existing := p.corpus.Entry(i).Record

		// Overlap runs on the full text so questions whose stems were
		// truncated differently but whose options match still collide.
		identical := norm.stem == p.norms[i].stem ||
			norm.full == p.norms[i].full ||
			normalize.WordOverlap(norm.full, p.norms[i].full) >= p.thresholds.Overlap
		if !identical {
			continue
		}
		if normalize.HasConflictingKeywords(rec.Question, existing.Question) {
			continue
		}

		observability.RecordCandidate(span, string(existing.ID), 1.0)
		return Outcome{
			Question: rec,
			Status:   StatusRejected,
			Stage:    "stage 1",
			Reason:   "stage 1: identical text",
			MatchID:  existing.ID,
		}, true
	}
	return Outcome{}, false
}

// stage2 embeds the question and walks the top-K nearest corpus entries in
// descending similarity. The exact threshold rejects outright unless the
// keyword veto fires; anything at or above the LLM threshold, vetoed or
// not, goes to the arbiter, which is separately instructed about opposite
// framings. A null arbiter verdict marks the question pending but the scan
// continues: a later candidate can still reject it outright, and a
// rejection always wins over an earlier pending mark.
func (p *Pipeline) stage2(ctx context.Context, rec question.Record) (Outcome, []float32, error) {
	sCtx, span := observability.StartStageSpan(ctx, "stage2")
	defer span.End()

	embedCtx, embedSpan := observability.StartLLMSpan(sCtx, p.embedder.Name(), "embed")
	embeddings, err := p.embedder.Embed(embedCtx, []string{question.FullText(rec)})
	if err != nil {
		observability.RecordError(embedSpan, err)
		embedSpan.End()
		observability.RecordError(span, err)
		return Outcome{}, nil, fmt.Errorf("embedding question: %w", err)
	}
	embedSpan.End()
	if len(embeddings) != 1 {
		return Outcome{}, nil, fmt.Errorf("embedding question: got %d vectors for 1 text", len(embeddings))
	}
	embedding := embeddings[0]
	if p.metrics != nil {
		p.metrics.CountEmbedding()
	}

	hits, err := p.index.Search(sCtx, embedding, p.thresholds.TopK)
	if err != nil {
		observability.RecordError(span, err)
		return Outcome{}, nil, fmt.Errorf("searching index: %w", err)
	}

	var pending *Outcome
	for _, hit := range hits {
		candidate := p.corpus.Entry(hit.Index).Record
		observability.RecordCandidate(span, string(candidate.ID), hit.Score)
		conflict := normalize.HasConflictingKeywords(rec.Question, candidate.Question)

		if hit.Score >= p.thresholds.Exact && !conflict {
			return Outcome{
				Question: rec,
				Status:   StatusRejected,
				Stage:    "stage 2",
				Reason:   "stage 2: high similarity",
				MatchID:  candidate.ID,
			}, embedding, nil
		}

		if hit.Score >= p.thresholds.LLM {
			verdict := p.judgeCandidate(sCtx, rec, candidate)
			if verdict.IsDuplicate != nil && *verdict.IsDuplicate {
				return Outcome{
					Question: rec,
					Status:   StatusRejected,
					Stage:    "stage 3",
					Reason:   fmt.Sprintf("stage 3: LLM judged duplicate: %s", verdict.Reason),
					MatchID:  candidate.ID,
				}, embedding, nil
			}
			if verdict.IsDuplicate == nil && pending == nil {
				pending = &Outcome{
					Question:   rec,
					Status:     StatusPending,
					Reason:     verdict.Reason,
					MatchID:    candidate.ID,
					Similarity: hit.Score,
				}
			}
		}
	}

	if pending != nil {
		return *pending, embedding, nil
	}
	return Outcome{Question: rec, Status: StatusApproved}, embedding, nil
}

func (p *Pipeline) judgeCandidate(ctx context.Context, rec, candidate question.Record) judge.Verdict {
	jCtx, span := observability.StartStageSpan(ctx, "stage3")
	defer span.End()

	verdict := p.arbiter.Judge(jCtx, rec, candidate)
	if p.metrics != nil {
		p.metrics.CountJudge()
	}
	return verdict
}
