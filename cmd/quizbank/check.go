package main

import (
	"context"
	"fmt"
	"os"
	"unicode/utf8"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/dgarciamed/quizbank/internal/config"
	"github.com/dgarciamed/quizbank/internal/corpus"
	"github.com/dgarciamed/quizbank/internal/embedcache"
	"github.com/dgarciamed/quizbank/internal/judge"
	"github.com/dgarciamed/quizbank/internal/metrics"
	"github.com/dgarciamed/quizbank/internal/observability"
	"github.com/dgarciamed/quizbank/internal/pipeline"
	"github.com/dgarciamed/quizbank/internal/question"
	"github.com/dgarciamed/quizbank/internal/report"
	"github.com/dgarciamed/quizbank/internal/vector"
)

func newCheckCmd(configPath *string) *cobra.Command {
	var (
		outputDir   string
		jsonMetrics bool
	)

	cmd := &cobra.Command{
		Use:   "check",
		Short: "Classify new questions against the question bank",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*configPath)
			if err != nil {
				return err
			}
			if outputDir != "" {
				cfg.Paths.OutputDir = outputDir
			}
			return runCheck(cmd.Context(), cfg, jsonMetrics)
		},
	}
	cmd.Flags().StringVar(&outputDir, "output", "", "Output directory (overrides paths.output_dir)")
	cmd.Flags().BoolVar(&jsonMetrics, "json", false, "Emit run metrics as JSON on stdout")
	return cmd
}

func runCheck(ctx context.Context, cfg *config.Config, jsonMetrics bool) error {
	log := newLogger(cfg.Log)

	tp, err := observability.InitTracing(ctx, &observability.TracingConfig{
		ServiceName:  "quizbank",
		Environment:  cfg.Tracing.Environment,
		OTLPEndpoint: cfg.Tracing.OTLPEndpoint,
		SampleRate:   cfg.Tracing.SampleRate,
	})
	if err != nil {
		return fmt.Errorf("initializing tracing: %w", err)
	}
	defer func() { _ = tp.Shutdown(ctx) }()

	// Embeddings always go through the top-level provider; the arbiter can
	// be overridden onto a chat-only provider (e.g. anthropic) per role.
	embedProvider, err := buildProvider(cfg.LLM)
	if err != nil {
		return err
	}
	judgeProvider := embedProvider
	if _, ok := cfg.LLM.Roles[config.RoleJudge]; ok {
		judgeProvider, err = buildProvider(cfg.LLM.ResolveForRole(config.RoleJudge))
		if err != nil {
			return err
		}
	}

	existing, err := question.LoadFile(cfg.Paths.Database)
	if err != nil {
		return err
	}
	newQuestions, err := question.LoadFile(cfg.Paths.NewQuestions)
	if err != nil {
		return err
	}
	if len(newQuestions) == 0 {
		color.Yellow("No new questions to check.")
		return nil
	}

	m := metrics.New()
	m.CorpusSize = len(existing)
	m.NewQuestions = len(newQuestions)

	color.Cyan("Preparing corpus embeddings (%d questions)...", len(existing))
	cache := embedcache.New(cfg.Paths.Cache)
	workingCorpus, cacheHit, err := corpus.Prepare(ctx, embedProvider, cache, existing, cfg.Pipeline.BatchSize,
		func(done, total int) {
			fmt.Printf("\r  embedded %d/%d", done, total)
			if done == total {
				fmt.Println()
			}
		})
	if err != nil {
		return fmt.Errorf("preparing corpus: %w", err)
	}
	m.CacheHit = cacheHit
	if cacheHit {
		color.Green("Embedding cache hit, corpus reused.")
	}

	index, err := buildIndex(ctx, cfg, workingCorpus)
	if err != nil {
		return fmt.Errorf("building vector index: %w", err)
	}
	defer func() { _ = index.Close() }()

	p := pipeline.New(workingCorpus, index, embedProvider, judge.New(judgeProvider, log), &pipeline.Options{
		Thresholds: pipeline.Thresholds{
			Exact:   cfg.Pipeline.ExactThreshold,
			LLM:     cfg.Pipeline.LLMThreshold,
			Overlap: cfg.Pipeline.OverlapThreshold,
			TopK:    cfg.Pipeline.TopK,
		},
		Metrics:  m,
		Log:      log,
		Observer: &consoleObserver{},
	})

	color.Cyan("Checking %d new questions against %d existing...", len(newQuestions), len(existing))
	result, err := p.Run(ctx, newQuestions)
	if err != nil {
		return err
	}
	m.Finish()

	if err := report.Write(cfg.Paths.OutputDir, result); err != nil {
		return err
	}

	color.Cyan("\nResults:")
	color.Green("  approved: %d", len(result.Approved))
	color.Red("  rejected: %d", len(result.Rejected))
	if len(result.Pending) > 0 {
		color.Yellow("  pending manual review: %d", len(result.Pending))
	}
	fmt.Printf("  reports written to %s\n", cfg.Paths.OutputDir)

	if jsonMetrics {
		return m.WriteJSON(os.Stdout)
	}
	return nil
}

func buildIndex(ctx context.Context, cfg *config.Config, c *corpus.Corpus) (vector.Index, error) {
	embeddings := make([][]float32, c.Len())
	for i := range embeddings {
		embeddings[i] = c.Entry(i).Embedding
	}

	if cfg.Vector.Backend == "qdrant" {
		index, err := vector.NewQdrant(ctx, cfg.Vector.Host, cfg.Vector.Port, cfg.Vector.Collection)
		if err != nil {
			return nil, err
		}
		if err := index.Add(ctx, embeddings...); err != nil {
			_ = index.Close()
			return nil, err
		}
		return index, nil
	}
	return vector.NewMemoryFrom(embeddings), nil
}

// consoleObserver prints per-question progress.
type consoleObserver struct{}

func (o *consoleObserver) QuestionStart(position, total int, rec question.Record) {
	fmt.Printf("[%d/%d] %s\n", position, total, truncate(rec.Question, 70))
}

func (o *consoleObserver) QuestionDone(out pipeline.Outcome) {
	switch out.Status {
	case pipeline.StatusApproved:
		color.Green("  approved")
	case pipeline.StatusRejected:
		color.Red("  rejected (%s, duplicate of %s)", out.Reason, out.MatchID)
	case pipeline.StatusPending:
		color.Yellow("  pending review (candidate %s, similarity %.3f): %s", out.MatchID, out.Similarity, out.Reason)
	}
}

func truncate(s string, max int) string {
	if utf8.RuneCountInString(s) <= max {
		return s
	}
	runes := []rune(s)
	return string(runes[:max-3]) + "..."
}
