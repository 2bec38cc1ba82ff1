// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package lint

import (
	"strings"
	"testing"
)

func TestCountWords(t *testing.T) {
	tests := []struct {
		in   string
		want int
	}{
		{"", 0},
		{"   \n\t ", 0},
		{"one", 1},
		{"one two three", 3},
		{"  padded   words \n across lines ", 4},
	}
	for _, tt := range tests {
		if got := CountWords(tt.in); got != tt.want {
			t.Errorf("CountWords(%q) = %d, want %d", tt.in, got, tt.want)
		}
	}
}

func TestChunkerShortDocumentSingleChunk(t *testing.T) {
	c := NewChunker(0)
	doc := "A short document that stays in one piece."
	chunks := c.Split(doc)
	if len(chunks) != 1 || chunks[0] != doc {
		t.Fatalf("Split() = %d chunks, want the document whole", len(chunks))
	}
}

func TestChunkerSplitsLongDocument(t *testing.T) {
	// Force splitting with a tiny threshold.
	c := NewChunker(10)
	var b strings.Builder
	for i := 0; i < 300; i++ {
		b.WriteString("## Section\n\nSome paragraph text that fills the section with words.\n\n")
	}
	chunks := c.Split(b.String())
	if len(chunks) < 2 {
		t.Fatalf("Split() = %d chunks, want several", len(chunks))
	}
	for i, chunk := range chunks {
		if strings.TrimSpace(chunk) == "" {
			t.Errorf("chunk %d is blank", i)
		}
	}
}
