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
	"log/slog"
	"strings"

	"github.com/tmc/langchaingo/textsplitter"
)

// Chunking defaults. Documents under the word threshold go to the model
// whole; larger ones are split and the per-chunk results merged by
// consensus (see scoring.AggregateChunks).
const (
	DefaultChunkWordThreshold = 2000
	chunkSizeChars            = 8000
	chunkOverlapChars         = 200
)

// markdownSeparators prefer structural boundaries so chunks do not cut
// through a sentence a rule might quote.
var markdownSeparators = []string{"\n## ", "\n### ", "\n\n", "\n", " ", ""}

// Chunker splits long documents for per-chunk evaluation.
type Chunker struct {
	threshold int
	splitter  textsplitter.TextSplitter
}

// NewChunker creates a chunker with the given word threshold; threshold <= 0
// uses the default.
func NewChunker(threshold int) *Chunker {
	if threshold <= 0 {
		threshold = DefaultChunkWordThreshold
	}
	return &Chunker{
		threshold: threshold,
		splitter: textsplitter.NewRecursiveCharacter(
			textsplitter.WithChunkSize(chunkSizeChars),
			textsplitter.WithChunkOverlap(chunkOverlapChars),
			textsplitter.WithSeparators(markdownSeparators),
		),
	}
}

// Split returns the document in evaluation-sized pieces. Short documents
// come back as a single chunk; splitter failures fall back to the whole
// document rather than dropping content.
func (c *Chunker) Split(content string) []string {
	if CountWords(content) <= c.threshold {
		return []string{content}
	}
	chunks, err := c.splitter.SplitText(content)
	if err != nil || len(chunks) == 0 {
		slog.Warn("document split failed, evaluating whole", "error", err)
		return []string{content}
	}
	slog.Debug("Split document into chunks", "chunk_count", len(chunks))
	return chunks
}

// CountWords counts whitespace-separated tokens.
func CountWords(s string) int {
	return len(strings.Fields(s))
}
