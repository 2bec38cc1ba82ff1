// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package llm

import "fmt"

// NewClient builds the backend named by provider. Supported providers are
// "openai", "anthropic", and "ollama"; model may be empty to use the
// provider's environment default.
func NewClient(provider, model string) (StructuredClient, error) {
	switch provider {
	case "openai", "":
		return NewOpenAIClient(model)
	case "anthropic":
		return NewAnthropicClient(model)
	case "ollama":
		return NewOllamaClient(model)
	default:
		return nil, fmt.Errorf("unknown LLM provider %q", provider)
	}
}
