package main

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/dgarciamed/quizbank/internal/config"
	"github.com/dgarciamed/quizbank/internal/llm"
	"github.com/dgarciamed/quizbank/internal/llm/anthropic"
	"github.com/dgarciamed/quizbank/internal/llm/openai"
)

func main() {
	var configPath string

	rootCmd := &cobra.Command{
		Use:   "quizbank",
		Short: "Exam question bank deduplication toolkit",
	}
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Config file path (default: ./quizbank.yaml)")

	rootCmd.AddCommand(newCheckCmd(&configPath))
	rootCmd.AddCommand(newParseCmd())

	providersCmd := &cobra.Command{
		Use:   "providers",
		Short: "List available LLM providers",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Println("Available LLM providers:")
			fmt.Println()
			for name, url := range llm.KnownProviders {
				fmt.Printf("  %-14s %s\n", name, url)
			}
			fmt.Println("  custom         (set base_url to any OpenAI-compatible endpoint)")
			fmt.Println()
			fmt.Println("Configure in quizbank.yaml or via environment:")
			fmt.Println("  QUIZBANK_LLM_PROVIDER=siliconflow")
			fmt.Println("  QUIZBANK_LLM_API_KEY=sk-...")
			fmt.Println("  QUIZBANK_LLM_MODEL=Qwen/Qwen2.5-72B-Instruct")
		},
	}
	rootCmd.AddCommand(providersCmd)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// newLogger builds the structured logger from config.
func newLogger(cfg config.LogConfig) *slog.Logger {
	level := slog.LevelInfo
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}
	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	if cfg.Format == "json" {
		handler = slog.NewJSONHandler(os.Stderr, opts)
	} else {
		handler = slog.NewTextHandler(os.Stderr, opts)
	}
	return slog.New(handler)
}

// newProviderFactory registers the built-in provider constructors.
func newProviderFactory() *llm.ProviderFactory {
	factory := llm.NewFactory()

	openaiCompatible := func(cfg llm.ProviderConfig) (llm.Provider, error) {
		baseURL := cfg.BaseURL
		if baseURL == "" {
			baseURL = llm.KnownProviders[cfg.Provider]
		}
		if baseURL == "" {
			return nil, errors.New("provider requires base_url")
		}
		return openai.New(cfg.APIKey, cfg.Model, baseURL, cfg.EmbedModel), nil
	}
	factory.Register("openai", openaiCompatible)
	factory.Register("siliconflow", openaiCompatible)
	factory.Register("custom", openaiCompatible)

	factory.Register("anthropic", func(cfg llm.ProviderConfig) (llm.Provider, error) {
		baseURL := cfg.BaseURL
		if baseURL == "" {
			baseURL = llm.KnownProviders["anthropic"]
		}
		return anthropic.New(cfg.APIKey, cfg.Model, baseURL), nil
	})

	return factory
}

// buildProvider creates a provider with retry and rate limiting from a
// resolved LLM config (top-level or per-role).
func buildProvider(llmCfg config.LLMConfig) (llm.Provider, error) {
	if llmCfg.APIKey == "" {
		return nil, errors.New("llm.api_key is required (set QUIZBANK_LLM_API_KEY)")
	}
	return newProviderFactory().Create(llm.ProviderConfig{
		Provider:          llmCfg.Provider,
		APIKey:            llmCfg.APIKey,
		Model:             llmCfg.Model,
		BaseURL:           llmCfg.BaseURL,
		EmbedModel:        llmCfg.EmbedModel,
		MaxAttempts:       llmCfg.MaxAttempts,
		Timeout:           time.Duration(llmCfg.TimeoutSeconds) * time.Second,
		RequestsPerMinute: llmCfg.RequestsPerMinute,
	})
}
