package ollama

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/badrusalam11/whatsapp-bot/llm"
)

func TestGenerateSendsNonStreamingRequest(t *testing.T) {
	var got generateRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/api/generate" {
			t.Fatalf("unexpected request: %s %s", r.Method, r.URL.Path)
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"model":"llama3","response":"  halo  ","done":true,"prompt_eval_count":12,"eval_count":3}`))
	}))
	defer srv.Close()

	c := New(srv.URL, "llama3", 0)
	res, err := c.Generate(context.Background(), llm.Request{System: "sys", Prompt: "hi"})
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	if got.Model != "llama3" || got.Prompt != "hi" || got.System != "sys" || got.Stream {
		t.Fatalf("unexpected request body: %+v", got)
	}
	if res.Text != "  halo  " {
		t.Fatalf("Text = %q, want untrimmed response", res.Text)
	}
	if res.Usage.TotalTokens != 15 {
		t.Fatalf("TotalTokens = %d, want 15", res.Usage.TotalTokens)
	}
}

func TestGenerateRequestModelOverridesDefault(t *testing.T) {
	var got generateRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewDecoder(r.Body).Decode(&got)
		_, _ = w.Write([]byte(`{"response":"ok","done":true}`))
	}))
	defer srv.Close()

	c := New(srv.URL, "llama3", 0)
	if _, err := c.Generate(context.Background(), llm.Request{Model: "mistral", Prompt: "x"}); err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	if got.Model != "mistral" {
		t.Fatalf("model = %q, want mistral", got.Model)
	}
}

func TestGenerateHTTPErrorUsesErrorField(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"error":"model 'llama3' not found"}`))
	}))
	defer srv.Close()

	_, err := New(srv.URL, "llama3", 0).Generate(context.Background(), llm.Request{Prompt: "x"})
	if err == nil {
		t.Fatalf("expected error")
	}
	if !strings.Contains(err.Error(), "404") || !strings.Contains(err.Error(), "not found") {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestGenerateRejectsMissingModel(t *testing.T) {
	if _, err := New("http://127.0.0.1:1", "", 0).Generate(context.Background(), llm.Request{Prompt: "x"}); err == nil {
		t.Fatalf("expected error for missing model")
	}
}

func TestGenerateMissingResponseFieldIsError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"model":"llama3","done":true}`))
	}))
	defer srv.Close()

	_, err := New(srv.URL, "llama3", 0).Generate(context.Background(), llm.Request{Prompt: "x"})
	if err == nil {
		t.Fatalf("expected error when response field is missing")
	}
	if !strings.Contains(err.Error(), "response field missing") {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestGenerateEmptyResponseIsPassedThrough(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"model":"llama3","response":"","done":true}`))
	}))
	defer srv.Close()

	res, err := New(srv.URL, "llama3", 0).Generate(context.Background(), llm.Request{Prompt: "x"})
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	if res.Text != "" {
		t.Fatalf("Text = %q, want empty", res.Text)
	}
}
