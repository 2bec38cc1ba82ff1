package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestAnthropicRunPromptStructured(t *testing.T) {
	var captured anthropicRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("x-api-key"); got != "test-key" {
			t.Errorf("x-api-key = %s", got)
		}
		if err := json.NewDecoder(r.Body).Decode(&captured); err != nil {
			t.Fatalf("decoding request: %v", err)
		}
		json.NewEncoder(w).Encode(anthropicResponse{
			Content: []anthropicContent{
				{Type: "tool_use", Input: json.RawMessage(`{"criteria":[]}`)},
			},
		})
	}))
	defer server.Close()

	client := &AnthropicClient{
		httpClient: server.Client(),
		baseURL:    server.URL,
		apiKey:     "test-key",
		model:      "test-model",
	}

	schema := json.RawMessage(`{"type":"object"}`)
	out, err := client.RunPromptStructured(context.Background(), "the document", "the instructions", schema)
	if err != nil {
		t.Fatalf("RunPromptStructured() error: %v", err)
	}
	if string(out) != `{"criteria":[]}` {
		t.Errorf("output = %s", out)
	}

	if captured.Model != "test-model" || captured.System != "the instructions" {
		t.Errorf("Model = %s, System = %q", captured.Model, captured.System)
	}
	if captured.ToolChoice == nil || captured.ToolChoice.Type != "tool" || captured.ToolChoice.Name != "emit_lint_result" {
		t.Errorf("ToolChoice = %+v, want the forced result tool", captured.ToolChoice)
	}
	if len(captured.Tools) != 1 || string(captured.Tools[0].InputSchema) != `{"type":"object"}` {
		t.Errorf("Tools = %+v, want the schema passed through", captured.Tools)
	}
	if captured.Temperature == nil || *captured.Temperature != 0.1 {
		t.Errorf("Temperature = %v, want pinned low for stable scores", captured.Temperature)
	}
}

func TestAnthropicAPIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		json.NewEncoder(w).Encode(anthropicResponse{
			Error: &anthropicError{Type: "invalid_request_error", Message: "bad schema"},
		})
	}))
	defer server.Close()

	client := &AnthropicClient{
		httpClient: server.Client(),
		baseURL:    server.URL,
		apiKey:     "test-key",
		model:      "test-model",
	}
	if _, err := client.RunPromptStructured(context.Background(), "doc", "sys", nil); err == nil {
		t.Fatal("RunPromptStructured() = nil error for an API error body")
	}
}
