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

import "testing"

func TestNewClientUnknownProvider(t *testing.T) {
	if _, err := NewClient("palantir", "m"); err == nil {
		t.Fatal("NewClient() = nil error for an unknown provider")
	}
}

func TestNewClientOllama(t *testing.T) {
	t.Setenv("OLLAMA_BASE_URL", "http://localhost:11434")
	c, err := NewClient("ollama", "llama3")
	if err != nil {
		t.Fatalf("NewClient(ollama) error: %v", err)
	}
	if c.Name() != "ollama" {
		t.Errorf("Name() = %s", c.Name())
	}
}
