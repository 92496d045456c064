package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/viper"
)

// Config holds all application configuration.
type Config struct {
	LLM      LLMConfig      `mapstructure:"llm"`
	Pipeline PipelineConfig `mapstructure:"pipeline"`
	Paths    PathsConfig    `mapstructure:"paths"`
	Vector   VectorConfig   `mapstructure:"vector"`
	Tracing  TracingConfig  `mapstructure:"tracing"`
	Log      LogConfig      `mapstructure:"log"`
}

type LLMConfig struct {
	Provider          string `mapstructure:"provider"`
	Model             string `mapstructure:"model"`
	EmbedModel        string `mapstructure:"embed_model"`
	APIKey            string `mapstructure:"api_key"`
	BaseURL           string `mapstructure:"base_url"`
	MaxAttempts       int    `mapstructure:"max_attempts"`
	TimeoutSeconds    int    `mapstructure:"timeout_seconds"`
	RequestsPerMinute int    `mapstructure:"requests_per_minute"`

	// Per-role overrides. Keys are pipeline roles (e.g. "judge").
	// Each override inherits unset fields from the top-level LLM config,
	// so the arbiter can run on a chat-only provider while embeddings
	// stay on an OpenAI-compatible one.
	Roles map[string]LLMRoleOverride `mapstructure:"roles"`
}

// RoleJudge selects the provider used for duplicate arbitration.
const RoleJudge = "judge"

// LLMRoleOverride allows per-role LLM provider configuration.
type LLMRoleOverride struct {
	Provider string `mapstructure:"provider"`
	Model    string `mapstructure:"model"`
	APIKey   string `mapstructure:"api_key"`
	BaseURL  string `mapstructure:"base_url"`
}

// ResolveForRole returns an LLMConfig with role-specific overrides applied.
func (c LLMConfig) ResolveForRole(role string) LLMConfig {
	override, ok := c.Roles[role]
	if !ok {
		return c
	}
	resolved := c
	if override.Provider != "" {
		resolved.Provider = override.Provider
	}
	if override.Model != "" {
		resolved.Model = override.Model
	}
	if override.APIKey != "" {
		resolved.APIKey = override.APIKey
	}
	if override.BaseURL != "" {
		resolved.BaseURL = override.BaseURL
	}
	return resolved
}

type PipelineConfig struct {
	ExactThreshold   float64 `mapstructure:"exact_threshold"`
	LLMThreshold     float64 `mapstructure:"llm_threshold"`
	OverlapThreshold float64 `mapstructure:"overlap_threshold"`
	TopK             int     `mapstructure:"top_k"`
	BatchSize        int     `mapstructure:"batch_size"`
}

type PathsConfig struct {
	Database     string `mapstructure:"database"`
	NewQuestions string `mapstructure:"new_questions"`
	Cache        string `mapstructure:"cache"`
	OutputDir    string `mapstructure:"output_dir"`
}

type VectorConfig struct {
	// Backend is "memory" (default) or "qdrant".
	Backend    string `mapstructure:"backend"`
	Host       string `mapstructure:"host"`
	Port       int    `mapstructure:"port"`
	Collection string `mapstructure:"collection"`
}

type TracingConfig struct {
	OTLPEndpoint string  `mapstructure:"otlp_endpoint"`
	Environment  string  `mapstructure:"environment"`
	SampleRate   float64 `mapstructure:"sample_rate"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// Validate checks configuration for issues and returns warnings.
func (c *Config) Validate() []string {
	var warnings []string

	if c.LLM.Provider != "" && c.LLM.Provider != "none" && c.LLM.APIKey == "" {
		warnings = append(warnings, fmt.Sprintf("LLM provider '%s' is configured but api_key is empty", c.LLM.Provider))
	}
	// The top-level provider serves the embedding path; Anthropic has no
	// embeddings endpoint.
	if c.LLM.Provider == "anthropic" {
		warnings = append(warnings, "LLM provider 'anthropic' cannot serve embeddings; use an OpenAI-compatible top-level provider and set llm.roles.judge.provider to anthropic")
	}

	for _, t := range []struct {
		name  string
		value float64
	}{
		{"exact_threshold", c.Pipeline.ExactThreshold},
		{"llm_threshold", c.Pipeline.LLMThreshold},
		{"overlap_threshold", c.Pipeline.OverlapThreshold},
	} {
		if t.value < 0 || t.value > 1 {
			warnings = append(warnings, fmt.Sprintf("pipeline %s %.4f is outside [0.0, 1.0]", t.name, t.value))
		}
	}
	if c.Pipeline.ExactThreshold < c.Pipeline.LLMThreshold {
		warnings = append(warnings, fmt.Sprintf("pipeline exact_threshold %.4f is below llm_threshold %.4f; the exact branch will shadow the arbiter",
			c.Pipeline.ExactThreshold, c.Pipeline.LLMThreshold))
	}
	if c.Pipeline.TopK <= 0 {
		warnings = append(warnings, fmt.Sprintf("pipeline top_k %d must be positive", c.Pipeline.TopK))
	}
	if c.Pipeline.BatchSize <= 0 {
		warnings = append(warnings, fmt.Sprintf("pipeline batch_size %d must be positive", c.Pipeline.BatchSize))
	}

	if c.Vector.Backend != "" && c.Vector.Backend != "memory" && c.Vector.Backend != "qdrant" {
		warnings = append(warnings, fmt.Sprintf("vector backend '%s' is not supported (use 'memory' or 'qdrant')", c.Vector.Backend))
	}

	return warnings
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("llm.provider", "openai")
	v.SetDefault("llm.model", "Qwen/Qwen2.5-72B-Instruct")
	v.SetDefault("llm.embed_model", "Qwen/Qwen3-Embedding-8B")
	// Empty defaults keep these keys known to viper so AutomaticEnv can
	// populate them without a config file.
	v.SetDefault("llm.api_key", "")
	v.SetDefault("llm.base_url", "")
	v.SetDefault("llm.max_attempts", 3)
	v.SetDefault("llm.timeout_seconds", 300)
	v.SetDefault("llm.requests_per_minute", 0)

	v.SetDefault("pipeline.exact_threshold", 0.95)
	v.SetDefault("pipeline.llm_threshold", 0.82)
	v.SetDefault("pipeline.overlap_threshold", 0.90)
	v.SetDefault("pipeline.top_k", 3)
	v.SetDefault("pipeline.batch_size", 50)

	v.SetDefault("paths.database", "database.json")
	v.SetDefault("paths.new_questions", "nuevas.json")
	v.SetDefault("paths.cache", "embeddings_cache.json")
	v.SetDefault("paths.output_dir", ".")

	v.SetDefault("vector.backend", "memory")
	v.SetDefault("vector.host", "localhost")
	v.SetDefault("vector.port", 6334)
	v.SetDefault("vector.collection", "quizbank")

	v.SetDefault("tracing.otlp_endpoint", "")
	v.SetDefault("tracing.environment", "development")
	v.SetDefault("tracing.sample_rate", 1.0)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
}

// Load reads configuration from file and environment. An empty path looks
// for quizbank.yaml in the working directory; a missing file is fine in
// that case, environment variables and defaults still apply.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix("QUIZBANK")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("reading config: %w", err)
		}
	} else {
		v.SetConfigName("quizbank")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("reading config: %w", err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshalling config: %w", err)
	}

	if warnings := cfg.Validate(); len(warnings) > 0 {
		for _, warning := range warnings {
			fmt.Fprintf(os.Stderr, "Warning: %s\n", warning)
		}
	}

	return &cfg, nil
}
