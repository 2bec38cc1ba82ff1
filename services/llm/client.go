package llm

import (
	"context"
	"encoding/json"
)

// StructuredClient is the standard interface for any LLM backend used by the
// linter. A provider failure is non-fatal to a run: the orchestrator records
// it as a request failure and continues with sibling rules.
type StructuredClient interface {
	// RunPromptStructured evaluates content under systemPrompt and returns a
	// JSON document satisfying schema. Implementations must not retry.
	RunPromptStructured(ctx context.Context, content, systemPrompt string, schema json.RawMessage) (json.RawMessage, error)

	// Name identifies the backend for logs and metrics.
	Name() string
}
