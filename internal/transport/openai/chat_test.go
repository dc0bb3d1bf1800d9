package openai

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/kailas-cloud/riskrag/internal/domain"
)

type chatRequest struct {
	Model       string  `json:"model"`
	Temperature float64 `json:"temperature"`
	Messages    []struct {
		Role    string `json:"role"`
		Content string `json:"content"`
	} `json:"messages"`
}

func chatServer(t *testing.T, reply string, got *chatRequest) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		if got != nil {
			_ = json.NewDecoder(r.Body).Decode(got)
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"id":      "chatcmpl-1",
			"object":  "chat.completion",
			"model":   "llama-3.1-8b-instant",
			"choices": []map[string]any{{"index": 0, "message": map[string]any{"role": "assistant", "content": reply}}},
			"usage":   map[string]any{"prompt_tokens": 12, "completion_tokens": 30, "total_tokens": 42},
		})
	}))
	t.Cleanup(srv.Close)
	return srv
}

func testPrompt() domain.Prompt {
	return domain.Prompt{Messages: []domain.Message{
		{Role: domain.RoleSystem, Content: "You are an analyst."},
		{Role: domain.RoleUser, Content: "Assess this product."},
	}}
}

func TestChat_Invoke(t *testing.T) {
	var got chatRequest
	srv := chatServer(t, "## Executive Summary\nok", &got)

	c := NewChat(&ChatConfig{
		APIKey: "test-key", BaseURL: srv.URL, Model: "llama-3.1-8b-instant",
		Provider: "groq", Temperature: 0.2,
	})

	out, err := c.Invoke(context.Background(), testPrompt(), domain.InvokeOptions{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out != "## Executive Summary\nok" {
		t.Errorf("unexpected reply %q", out)
	}
	if got.Model != "llama-3.1-8b-instant" {
		t.Errorf("unexpected model %q", got.Model)
	}
	if len(got.Messages) != 2 || got.Messages[0].Role != "system" || got.Messages[1].Role != "user" {
		t.Errorf("unexpected messages: %+v", got.Messages)
	}
}

func TestChat_InvokeOverrides(t *testing.T) {
	var got chatRequest
	srv := chatServer(t, "ok", &got)

	c := NewChat(&ChatConfig{APIKey: "k", BaseURL: srv.URL, Model: "default", Provider: "openai", Temperature: 0.2})
	temp := 0.9
	if _, err := c.Invoke(context.Background(), testPrompt(), domain.InvokeOptions{Model: "gpt-4o-mini", Temperature: &temp}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Model != "gpt-4o-mini" {
		t.Errorf("expected override model, got %q", got.Model)
	}
	if got.Temperature < 0.89 || got.Temperature > 0.91 {
		t.Errorf("expected temperature 0.9, got %v", got.Temperature)
	}
}

func TestChat_NotConfigured(t *testing.T) {
	c := NewChat(&ChatConfig{Model: "m", Provider: "groq"})
	if c.Configured() {
		t.Fatal("expected unconfigured")
	}
	_, err := c.Invoke(context.Background(), testPrompt(), domain.InvokeOptions{})
	if !errors.Is(err, domain.ErrModelUnavailable) {
		t.Fatalf("expected ErrModelUnavailable, got %v", err)
	}
}

func TestChat_ProviderError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		_ = json.NewEncoder(w).Encode(map[string]any{"error": map[string]any{"message": "boom"}})
	}))
	defer srv.Close()

	c := NewChat(&ChatConfig{APIKey: "k", BaseURL: srv.URL, Model: "m", Provider: "groq"})
	_, err := c.Invoke(context.Background(), testPrompt(), domain.InvokeOptions{})
	if !errors.Is(err, domain.ErrModelProviderError) {
		t.Fatalf("expected ErrModelProviderError, got %v", err)
	}
}

func TestChat_EmptyChoices(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"x","object":"chat.completion","choices":[]}`))
	}))
	defer srv.Close()

	c := NewChat(&ChatConfig{APIKey: "k", BaseURL: srv.URL, Model: "m", Provider: "groq"})
	_, err := c.Invoke(context.Background(), testPrompt(), domain.InvokeOptions{})
	if !errors.Is(err, domain.ErrModelProviderError) {
		t.Fatalf("expected ErrModelProviderError, got %v", err)
	}
}
