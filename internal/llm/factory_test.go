package llm

import (
	"context"
	"testing"
)

type mockTestProvider struct{ name string }

func (m *mockTestProvider) Complete(_ context.Context, _ *Prompt, _ *RequestOptions) (*Response, error) {
	return &Response{Content: "ok"}, nil
}

func (m *mockTestProvider) Embed(_ context.Context, _ []string) ([][]float32, error) {
	return [][]float32{{1}}, nil
}

func (m *mockTestProvider) Name() string { return m.name }

func TestFactory_Create(t *testing.T) {
	f := NewFactory()
	f.Register("mock", func(cfg ProviderConfig) (Provider, error) {
		return &mockTestProvider{name: "mock"}, nil
	})

	p, err := f.Create(ProviderConfig{Provider: "mock", MaxAttempts: 3})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p.Name() != "mock" {
		t.Errorf("expected wrapped provider to keep inner name, got %q", p.Name())
	}
	if _, ok := p.(*RetryProvider); !ok {
		t.Errorf("expected retry wrapper, got %T", p)
	}
}

func TestFactory_CreateWithRateLimit(t *testing.T) {
	f := NewFactory()
	f.Register("mock", func(cfg ProviderConfig) (Provider, error) {
		return &mockTestProvider{name: "mock"}, nil
	})

	p, err := f.Create(ProviderConfig{Provider: "mock", MaxAttempts: 3, RequestsPerMinute: 30})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, ok := p.(*RateLimitProvider); !ok {
		t.Errorf("expected rate-limit wrapper outermost, got %T", p)
	}
}

func TestFactory_UnknownProvider(t *testing.T) {
	f := NewFactory()
	if _, err := f.Create(ProviderConfig{Provider: "nope"}); err == nil {
		t.Fatal("expected error for unknown provider")
	}
}

func TestKnownProviders_HaveBaseURLs(t *testing.T) {
	for _, name := range []string{"openai", "siliconflow", "anthropic"} {
		if KnownProviders[name] == "" {
			t.Errorf("missing base URL for %s", name)
		}
	}
}
