package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestValidate_Defaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Pipeline.ExactThreshold != 0.95 {
		t.Errorf("unexpected exact_threshold: %v", cfg.Pipeline.ExactThreshold)
	}
	if cfg.Pipeline.LLMThreshold != 0.82 {
		t.Errorf("unexpected llm_threshold: %v", cfg.Pipeline.LLMThreshold)
	}
	if cfg.Pipeline.TopK != 3 || cfg.Pipeline.BatchSize != 50 {
		t.Errorf("unexpected pipeline defaults: %+v", cfg.Pipeline)
	}
	if cfg.Vector.Backend != "memory" {
		t.Errorf("unexpected vector backend: %s", cfg.Vector.Backend)
	}
}

func TestLoad_EnvWithoutConfigFile(t *testing.T) {
	t.Setenv("QUIZBANK_LLM_API_KEY", "sk-test")
	t.Setenv("QUIZBANK_LLM_BASE_URL", "https://api.example.com/v1")
	t.Setenv("QUIZBANK_TRACING_OTLP_ENDPOINT", "localhost:4317")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.LLM.APIKey != "sk-test" {
		t.Errorf("QUIZBANK_LLM_API_KEY ignored, got %q", cfg.LLM.APIKey)
	}
	if cfg.LLM.BaseURL != "https://api.example.com/v1" {
		t.Errorf("QUIZBANK_LLM_BASE_URL ignored, got %q", cfg.LLM.BaseURL)
	}
	if cfg.Tracing.OTLPEndpoint != "localhost:4317" {
		t.Errorf("QUIZBANK_TRACING_OTLP_ENDPOINT ignored, got %q", cfg.Tracing.OTLPEndpoint)
	}
}

func TestResolveForRole(t *testing.T) {
	base := LLMConfig{
		Provider:   "siliconflow",
		Model:      "Qwen/Qwen2.5-72B-Instruct",
		APIKey:     "sk-base",
		BaseURL:    "https://api.siliconflow.com/v1",
		EmbedModel: "Qwen/Qwen3-Embedding-8B",
		Roles: map[string]LLMRoleOverride{
			RoleJudge: {Provider: "anthropic", Model: "claude-sonnet-4-20250514"},
		},
	}

	judge := base.ResolveForRole(RoleJudge)
	if judge.Provider != "anthropic" || judge.Model != "claude-sonnet-4-20250514" {
		t.Errorf("override not applied: %+v", judge)
	}
	// Unset override fields inherit from the base config.
	if judge.APIKey != "sk-base" {
		t.Errorf("api_key should inherit, got %q", judge.APIKey)
	}

	// Unknown role resolves to the base config unchanged.
	other := base.ResolveForRole("embedding")
	if other.Provider != "siliconflow" {
		t.Errorf("unknown role must not change config: %+v", other)
	}
}

func TestValidate_AnthropicTopLevelProvider(t *testing.T) {
	cfg := &Config{
		LLM:      LLMConfig{Provider: "anthropic", APIKey: "sk-ant"},
		Pipeline: PipelineConfig{ExactThreshold: 0.95, LLMThreshold: 0.82, OverlapThreshold: 0.9, TopK: 3, BatchSize: 50},
	}
	found := false
	for _, w := range cfg.Validate() {
		if strings.Contains(w, "embeddings") {
			found = true
		}
	}
	if !found {
		t.Error("expected warning that anthropic cannot serve embeddings")
	}
}

func TestValidate_MissingAPIKey(t *testing.T) {
	cfg := &Config{
		LLM:      LLMConfig{Provider: "openai"},
		Pipeline: PipelineConfig{ExactThreshold: 0.95, LLMThreshold: 0.82, OverlapThreshold: 0.9, TopK: 3, BatchSize: 50},
	}
	warnings := cfg.Validate()
	found := false
	for _, w := range warnings {
		if strings.Contains(w, "api_key") {
			found = true
			break
		}
	}
	if !found {
		t.Error("expected warning about missing api_key")
	}
}

func TestValidate_NoneProvider(t *testing.T) {
	// "none" provider with no API key should not warn
	cfg := &Config{
		LLM:      LLMConfig{Provider: "none"},
		Pipeline: PipelineConfig{ExactThreshold: 0.95, LLMThreshold: 0.82, OverlapThreshold: 0.9, TopK: 3, BatchSize: 50},
	}
	for _, w := range cfg.Validate() {
		if strings.Contains(w, "api_key") {
			t.Errorf("unexpected warning: %s", w)
		}
	}
}

func TestValidate_ThresholdRange(t *testing.T) {
	tests := []struct {
		name  string
		exact float64
		want  bool // true = should warn about range
	}{
		{"normal", 0.95, false},
		{"max", 1.0, false},
		{"negative", -0.1, true},
		{"too_high", 1.5, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &Config{
				Pipeline: PipelineConfig{ExactThreshold: tt.exact, LLMThreshold: 0.82, OverlapThreshold: 0.9, TopK: 3, BatchSize: 50},
			}
			hasWarn := false
			for _, w := range cfg.Validate() {
				if strings.Contains(w, "exact_threshold") && strings.Contains(w, "[0.0, 1.0]") {
					hasWarn = true
				}
			}
			if hasWarn != tt.want {
				t.Errorf("exact_threshold=%.2f: hasWarn=%v, want=%v", tt.exact, hasWarn, tt.want)
			}
		})
	}
}

func TestValidate_ExactBelowLLMThreshold(t *testing.T) {
	cfg := &Config{
		Pipeline: PipelineConfig{ExactThreshold: 0.5, LLMThreshold: 0.82, OverlapThreshold: 0.9, TopK: 3, BatchSize: 50},
	}
	found := false
	for _, w := range cfg.Validate() {
		if strings.Contains(w, "shadow") {
			found = true
		}
	}
	if !found {
		t.Error("expected warning when exact_threshold is below llm_threshold")
	}
}

func TestValidate_UnknownVectorBackend(t *testing.T) {
	cfg := &Config{
		Pipeline: PipelineConfig{ExactThreshold: 0.95, LLMThreshold: 0.82, OverlapThreshold: 0.9, TopK: 3, BatchSize: 50},
		Vector:   VectorConfig{Backend: "pinecone"},
	}
	found := false
	for _, w := range cfg.Validate() {
		if strings.Contains(w, "backend") {
			found = true
		}
	}
	if !found {
		t.Error("expected warning about unknown vector backend")
	}
}

func TestLoad_ConfigFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "quizbank.yaml")
	content := `
llm:
  provider: none
  model: test-model
pipeline:
  top_k: 5
paths:
  output_dir: /tmp/out
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.LLM.Model != "test-model" {
		t.Errorf("unexpected model: %s", cfg.LLM.Model)
	}
	if cfg.Pipeline.TopK != 5 {
		t.Errorf("file value should override default, got %d", cfg.Pipeline.TopK)
	}
	// Unset values keep defaults.
	if cfg.Pipeline.BatchSize != 50 {
		t.Errorf("unset value should keep default, got %d", cfg.Pipeline.BatchSize)
	}
	if cfg.Paths.OutputDir != "/tmp/out" {
		t.Errorf("unexpected output_dir: %s", cfg.Paths.OutputDir)
	}
}

func TestLoad_MissingExplicitFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("expected error for missing explicit config file")
	}
}
