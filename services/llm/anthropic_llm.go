package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"
)

const (
	anthropicAPIVersion = "2023-06-01"
	defaultBaseURL      = "https://api.anthropic.com/v1/messages"

	// anthropicMaxTokens bounds structured lint replies; rule evaluations are
	// JSON documents, not prose, so this is generous.
	anthropicMaxTokens = 4096
)

type anthropicRequest struct {
	Model     string             `json:"model"`
	Messages  []anthropicMessage `json:"messages"`
	System    string             `json:"system,omitempty"`
	MaxTokens int                `json:"max_tokens"`
	Tools     []toolsDefinition  `json:"tools,omitempty"`
	// ToolChoice forces the model to answer through the result tool, which is
	// how structured output is obtained from this API.
	ToolChoice *toolChoice `json:"tool_choice,omitempty"`

	Temperature *float32 `json:"temperature,omitempty"`
}

type anthropicMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type toolsDefinition struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	InputSchema json.RawMessage `json:"input_schema"` // JSON Schema
}

type toolChoice struct {
	Type string `json:"type"` // "tool"
	Name string `json:"name"`
}

type anthropicResponse struct {
	ID      string             `json:"id"`
	Type    string             `json:"type"`
	Role    string             `json:"role"`
	Content []anthropicContent `json:"content"`
	Error   *anthropicError    `json:"error,omitempty"`
}

type anthropicContent struct {
	Type  string          `json:"type"`
	Text  string          `json:"text,omitempty"`
	Input json.RawMessage `json:"input,omitempty"` // tool_use payload
}

type anthropicError struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

// AnthropicClient evaluates prompts through the Anthropic messages API,
// forcing a tool call whose input schema is the requested result schema.
type AnthropicClient struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
	model      string
}

// NewAnthropicClient reads ANTHROPIC_API_KEY from the environment and targets
// the given model, defaulting to ANTHROPIC_MODEL.
func NewAnthropicClient(model string) (*AnthropicClient, error) {
	apiKey := os.Getenv("ANTHROPIC_API_KEY")
	if apiKey == "" {
		secretPath := "/run/secrets/anthropic_api_key"
		apiKeyBytes, err := os.ReadFile(secretPath)
		if err == nil {
			apiKey = strings.TrimSpace(string(apiKeyBytes))
			slog.Info("Read the Anthropic API Key from secrets mount")
		} else {
			return nil, fmt.Errorf("ANTHROPIC_API_KEY environment variable not set")
		}
	}
	if model == "" {
		model = os.Getenv("ANTHROPIC_MODEL")
	}
	if model == "" {
		return nil, fmt.Errorf("no Anthropic model configured")
	}
	slog.Info("Initializing Anthropic client", "model", model)
	return &AnthropicClient{
		httpClient: &http.Client{Timeout: 5 * time.Minute},
		baseURL:    defaultBaseURL,
		apiKey:     apiKey,
		model:      model,
	}, nil
}

// Name implements StructuredClient.
func (a *AnthropicClient) Name() string { return "anthropic" }

// RunPromptStructured implements StructuredClient.
func (a *AnthropicClient) RunPromptStructured(ctx context.Context, content, systemPrompt string, schema json.RawMessage) (json.RawMessage, error) {
	slog.Debug("Evaluating document via Anthropic", "model", a.model)

	// Low temperature keeps scores stable across identical inputs.
	temp := float32(0.1)
	reqBody := anthropicRequest{
		Model:       a.model,
		System:      systemPrompt,
		MaxTokens:   anthropicMaxTokens,
		Temperature: &temp,
		Messages: []anthropicMessage{
			{Role: "user", Content: content},
		},
		Tools: []toolsDefinition{{
			Name:        "emit_lint_result",
			Description: "Report the structured evaluation result for the document.",
			InputSchema: schema,
		}},
		ToolChoice: &toolChoice{Type: "tool", Name: "emit_lint_result"},
	}

	payload, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal Anthropic request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.baseURL, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to build Anthropic request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-api-key", a.apiKey)
	req.Header.Set("anthropic-version", anthropicAPIVersion)

	resp, err := a.httpClient.Do(req)
	if err != nil {
		slog.Error("Anthropic API call failed", "error", err)
		return nil, fmt.Errorf("Anthropic API call failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read Anthropic response: %w", err)
	}

	var parsed anthropicResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("failed to parse Anthropic response: %w", err)
	}
	if parsed.Error != nil {
		return nil, fmt.Errorf("Anthropic API error (%s): %s", parsed.Error.Type, parsed.Error.Message)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("Anthropic API returned status %d", resp.StatusCode)
	}

	for _, block := range parsed.Content {
		if block.Type == "tool_use" && len(block.Input) > 0 {
			return block.Input, nil
		}
	}
	// Some models answer in text despite the forced tool; salvage any JSON.
	for _, block := range parsed.Content {
		if block.Type == "text" && block.Text != "" {
			return ExtractJSON(block.Text)
		}
	}
	return nil, fmt.Errorf("Anthropic response contained no tool_use block")
}
