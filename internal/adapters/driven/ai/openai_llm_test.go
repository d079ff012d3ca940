package ai

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/Caprice123/medpalm-mediko-id-sub006/internal/core/domain"
)

func TestOpenAILLM_RewriteQuery(t *testing.T) {
	var gotPrompt string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req chatRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("failed to decode request: %v", err)
		}
		if len(req.Messages) > 0 {
			gotPrompt = req.Messages[0].Content
		}
		json.NewEncoder(w).Encode(chatResponse{
			Choices: []struct {
				Message chatMessage `json:"message"`
			}{{Message: chatMessage{Role: "assistant", Content: "  ACE inhibitor first-line therapy heart failure  "}}},
		})
	}))
	defer server.Close()

	svc, err := NewOpenAILLM("sk-test", "gpt-4o-mini", server.URL, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	rewritten, err := svc.RewriteQuery(context.Background(), "what do I take for heart failure?")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if rewritten != "ACE inhibitor first-line therapy heart failure" {
		t.Errorf("expected trimmed rewrite, got %q", rewritten)
	}
	if !strings.Contains(gotPrompt, "what do I take for heart failure?") {
		t.Errorf("expected query substituted into prompt, got %q", gotPrompt)
	}
}

func TestOpenAILLM_RewriteQuery_EmptyQuery(t *testing.T) {
	svc, _ := NewOpenAILLM("sk-test", "", "", 0)

	_, err := svc.RewriteQuery(context.Background(), "  ")
	if !errors.Is(err, domain.ErrInvalidInput) {
		t.Errorf("expected ErrInvalidInput, got %v", err)
	}
}

func TestOpenAILLM_RewriteQuery_APIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		json.NewEncoder(w).Encode(map[string]any{
			"error": map[string]string{"message": "invalid api key", "type": "auth_error"},
		})
	}))
	defer server.Close()

	svc, _ := NewOpenAILLM("sk-bad", "", server.URL, 0)

	_, err := svc.RewriteQuery(context.Background(), "query")
	if err == nil {
		t.Fatal("expected error")
	}
	if !strings.Contains(err.Error(), "invalid api key") {
		t.Errorf("expected upstream message, got %v", err)
	}
}

func TestNewOpenAILLM_ConfiguredTimeout(t *testing.T) {
	svc, err := NewOpenAILLM("sk-test", "", "", 8*time.Second)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if svc.(*OpenAILLM).client.Timeout != 8*time.Second {
		t.Errorf("expected 8s client timeout, got %v", svc.(*OpenAILLM).client.Timeout)
	}

	svc, _ = NewOpenAILLM("sk-test", "", "", 0)
	if svc.(*OpenAILLM).client.Timeout != 30*time.Second {
		t.Errorf("expected 30s default timeout, got %v", svc.(*OpenAILLM).client.Timeout)
	}
}
