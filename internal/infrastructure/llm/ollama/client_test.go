package ollama

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/kirillkom/scan-organizer/internal/core/domain"
)

func TestClassifierSendsPromptAndParsesReply(t *testing.T) {
	var payload map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/generate" {
			http.NotFound(w, r)
			return
		}
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		_, _ = w.Write([]byte(`{"response":"{\"category\":\"Invoices\",\"description\":\"Acme Invoice March\",\"confidence\":0.8}"}`))
	}))
	defer server.Close()

	classifier := NewClassifier(New(server.URL, "llama3.1:8b", time.Second), Options{})
	got, err := classifier.Classify(context.Background(), domain.ClassifyRequest{Text: "INVOICE #12", Filename: "scan_002.pdf"})
	if err != nil {
		t.Fatalf("Classify() error = %v", err)
	}
	if got.Category != domain.CategoryInvoices || got.Description != "acme_invoice_march" || got.Source != domain.SourceAI {
		t.Fatalf("unexpected result: %+v", got)
	}
	if payload["format"] != "json" || payload["model"] != "llama3.1:8b" {
		t.Fatalf("unexpected payload: %+v", payload)
	}
	prompt, _ := payload["prompt"].(string)
	if !strings.Contains(prompt, "INVOICE #12") || !strings.Contains(prompt, "scan_002.pdf") {
		t.Fatalf("prompt is missing text or filename: %s", prompt)
	}
}

func TestClassifierReportsUnavailableWithBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model unavailable", http.StatusBadGateway)
	}))
	defer server.Close()

	classifier := NewClassifier(New(server.URL, "gen", time.Second), Options{})
	_, err := classifier.Classify(context.Background(), domain.ClassifyRequest{Text: "hello"})
	if err == nil {
		t.Fatalf("expected error")
	}
	if !domain.IsKind(err, domain.ErrClassifierUnavailable) {
		t.Fatalf("expected ErrClassifierUnavailable, got %v", err)
	}
	if !strings.Contains(err.Error(), "model unavailable") {
		t.Fatalf("expected response body in error, got %v", err)
	}
}

func TestPingRequiresPulledModel(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"models":[{"name":"llama3.1:8b"},{"name":"mistral:latest"}]}`))
	}))
	defer server.Close()

	if err := New(server.URL, "mistral", time.Second).Ping(context.Background()); err != nil {
		t.Fatalf("Ping() error = %v", err)
	}
	if err := New(server.URL, "phi3", time.Second).Ping(context.Background()); err == nil {
		t.Fatalf("expected missing model error")
	}
}
