package openaicompat

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/juzgadolab/sentencia-ciudadana/internal/core/domain"
)

func TestChatSendsBearerAndDecodesChoice(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			http.NotFound(w, r)
			return
		}
		if got := r.Header.Get("Authorization"); got != "Bearer sk-test" {
			t.Fatalf("authorization header = %q", got)
		}
		_, _ = w.Write([]byte(`{"choices":[{"message":{"role":"assistant","content":"resumen"}}]}`))
	}))
	defer server.Close()

	client := New(server.URL, "sk-test", "gpt-4o-mini")
	out, err := client.Chat(context.Background(), []domain.Message{domain.UserMessage("hola")})
	if err != nil {
		t.Fatalf("Chat() error = %v", err)
	}
	if out != "resumen" {
		t.Fatalf("Chat() = %q", out)
	}
}

func TestChatStructuredWrapsSchemaInResponseFormat(t *testing.T) {
	var captured chatRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := json.NewDecoder(r.Body).Decode(&captured); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		_, _ = w.Write([]byte(`{"choices":[{"message":{"role":"assistant","content":"{\"workflow\":\"rejected\",\"rejected\":true,\"message\":\"fuera de alcance\",\"sentence\":\"\"}"}}]}`))
	}))
	defer server.Close()

	client := New(server.URL, "", "gpt-4o-mini")
	var verdict domain.EditVerdict
	schema := json.RawMessage(`{"type":"object"}`)
	if err := client.ChatStructured(context.Background(), []domain.Message{domain.UserMessage("cambia")}, schema, &verdict); err != nil {
		t.Fatalf("ChatStructured() error = %v", err)
	}
	if captured.ResponseFormat == nil || captured.ResponseFormat.Type != "json_schema" {
		t.Fatalf("unexpected response_format: %+v", captured.ResponseFormat)
	}
	if !verdict.Rejected || verdict.Workflow != domain.WorkflowRejected {
		t.Fatalf("unexpected verdict: %+v", verdict)
	}
}

func TestChatRetryableStatusIsTemporary(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "overloaded", http.StatusServiceUnavailable)
	}))
	defer server.Close()

	client := New(server.URL, "", "gpt-4o-mini")
	_, err := client.Chat(context.Background(), []domain.Message{domain.UserMessage("hola")})
	if !domain.IsKind(err, domain.ErrTemporary) {
		t.Fatalf("503 should classify as temporary, got %v", err)
	}
}
