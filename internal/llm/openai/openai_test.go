package openai

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/dgarciamed/quizbank/internal/llm"
)

func TestNew_SetsDefaults(t *testing.T) {
	client := New("key", "chat-model", "", "")

	if client.baseURL != defaultBaseURL {
		t.Errorf("expected default baseURL %q, got %q", defaultBaseURL, client.baseURL)
	}
	if client.embedModel != "text-embedding-3-small" {
		t.Errorf("expected default embed model, got %q", client.embedModel)
	}
	if client.Name() != "openai" {
		t.Errorf("expected name 'openai', got %q", client.Name())
	}
}

func TestComplete_RequestShape(t *testing.T) {
	var capturedBody map[string]any
	var capturedAuth string

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		capturedAuth = r.Header.Get("Authorization")
		data, _ := io.ReadAll(r.Body)
		json.Unmarshal(data, &capturedBody)
		json.NewEncoder(w).Encode(map[string]any{
			"choices": []map[string]any{
				{"message": map[string]string{"content": `{"is_duplicate": false, "reason": "distinto"}`}, "finish_reason": "stop"},
			},
			"model": "test-model",
			"usage": map[string]int{"prompt_tokens": 10, "completion_tokens": 5},
		})
	}))
	defer server.Close()

	client := New("sk-test", "chat-model", server.URL, "")
	maxTokens := 150
	temp := 0.1
	resp, err := client.Complete(context.Background(), &llm.Prompt{
		Messages: []llm.Message{{Role: llm.RoleUser, Content: "hola"}},
	}, &llm.RequestOptions{MaxTokens: &maxTokens, Temperature: &temp, JSONObject: true})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if capturedAuth != "Bearer sk-test" {
		t.Errorf("expected bearer auth, got %q", capturedAuth)
	}
	if capturedBody["model"] != "chat-model" {
		t.Errorf("expected model in body, got %v", capturedBody["model"])
	}
	if capturedBody["max_tokens"] != float64(150) {
		t.Errorf("expected max_tokens 150, got %v", capturedBody["max_tokens"])
	}
	rf, ok := capturedBody["response_format"].(map[string]any)
	if !ok || rf["type"] != "json_object" {
		t.Errorf("expected response_format json_object, got %v", capturedBody["response_format"])
	}
	if resp.Content != `{"is_duplicate": false, "reason": "distinto"}` {
		t.Errorf("unexpected content %q", resp.Content)
	}
	if resp.InputTokens != 10 || resp.OutputTokens != 5 {
		t.Errorf("unexpected usage: %+v", resp)
	}
}

func TestComplete_HTTPError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "rate limited", http.StatusTooManyRequests)
	}))
	defer server.Close()

	client := New("key", "model", server.URL, "")
	if _, err := client.Complete(context.Background(), &llm.Prompt{}, nil); err == nil {
		t.Fatal("expected error on non-200 response")
	}
}

func TestEmbed_OrderPreserving(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			Model string   `json:"model"`
			Input []string `json:"input"`
		}
		data, _ := io.ReadAll(r.Body)
		json.Unmarshal(data, &body)

		out := make([]map[string]any, len(body.Input))
		for i := range body.Input {
			out[i] = map[string]any{"embedding": []float32{float32(i), 1}}
		}
		json.NewEncoder(w).Encode(map[string]any{"data": out})
	}))
	defer server.Close()

	client := New("key", "model", server.URL, "Qwen/Qwen3-Embedding-8B")
	embs, err := client.Embed(context.Background(), []string{"uno", "dos", "tres"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(embs) != 3 {
		t.Fatalf("expected 3 embeddings, got %d", len(embs))
	}
	for i, e := range embs {
		if e[0] != float32(i) {
			t.Errorf("embedding %d out of order: %v", i, e)
		}
	}
}

func TestEmbed_CountMismatch(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{"data": []map[string]any{}})
	}))
	defer server.Close()

	client := New("key", "model", server.URL, "")
	if _, err := client.Embed(context.Background(), []string{"uno"}); err == nil {
		t.Fatal("expected error on count mismatch")
	}
}
