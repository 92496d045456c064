package llm

import (
	"context"
	"testing"
	"time"
)

func TestRateLimitProvider_Unlimited(t *testing.T) {
	inner := &mockTestProvider{name: "mock"}
	rl := NewRateLimitProvider(inner, &RateLimitConfig{RequestsPerMinute: 0})

	for i := 0; i < 10; i++ {
		if _, err := rl.Complete(context.Background(), &Prompt{}, nil); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}
}

func TestRateLimitProvider_BurstThenBlocks(t *testing.T) {
	inner := &mockTestProvider{name: "mock"}
	rl := NewRateLimitProvider(inner, &RateLimitConfig{RequestsPerMinute: 60, BurstSize: 2})

	ctx := context.Background()
	for i := 0; i < 2; i++ {
		if _, err := rl.Embed(ctx, []string{"x"}); err != nil {
			t.Fatalf("burst call %d failed: %v", i, err)
		}
	}

	// Budget exhausted: the next call must block until cancelled.
	timed, cancel := context.WithTimeout(ctx, 20*time.Millisecond)
	defer cancel()
	if _, err := rl.Embed(timed, []string{"x"}); err == nil {
		t.Fatal("expected context deadline while rate limited")
	}
}

func TestRateLimitProvider_Name(t *testing.T) {
	rl := NewRateLimitProvider(&mockTestProvider{name: "inner"}, nil)
	if rl.Name() != "inner" {
		t.Errorf("expected inner name, got %q", rl.Name())
	}
}
