// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package scoring

import (
	"math"
	"strings"
)

// ChunkResult holds one chunk's raw model output and its word count.
// WordCount 0 on every chunk falls back to uniform weighting.
type ChunkResult struct {
	Criteria  []CriterionResult
	WordCount int
}

// AggregateChunks merges per-chunk results for a long document back into a
// single result set.
//
// Per criterion name the raw scores are combined by consensus voting: the
// word-count-weighted average of the discrete raw scores is rounded to the
// nearest integer and clamped to [1,4] before renormalizing. Averaging the
// normalized values instead would smear the discrete 0-4 scale's meaning.
//
// Violations are deduplicated per criterion by case-insensitive trimmed
// analysis text keeping first-seen order; non-empty summaries and reasonings
// are concatenated with a single space.
func AggregateChunks(chunks []ChunkResult) []CriterionResult {
	if len(chunks) == 0 {
		return nil
	}
	if len(chunks) == 1 {
		return chunks[0].Criteria
	}

	totalWords := 0
	for _, c := range chunks {
		totalWords += c.WordCount
	}

	type accum struct {
		weighted   float64
		weightSum  float64
		violations []Violation
		seen       map[string]struct{}
		summaries  []string
		reasonings []string
	}

	var order []string
	byName := make(map[string]*accum)

	for _, chunk := range chunks {
		weight := 1.0 / float64(len(chunks))
		if totalWords > 0 {
			weight = float64(chunk.WordCount) / float64(totalWords)
		}
		for _, cr := range chunk.Criteria {
			acc, ok := byName[cr.Name]
			if !ok {
				acc = &accum{seen: make(map[string]struct{})}
				byName[cr.Name] = acc
				order = append(order, cr.Name)
			}
			acc.weighted += float64(cr.RawScore) * weight
			acc.weightSum += weight

			for _, v := range cr.Violations {
				key := strings.ToLower(strings.TrimSpace(v.Analysis))
				if _, dup := acc.seen[key]; dup {
					continue
				}
				acc.seen[key] = struct{}{}
				acc.violations = append(acc.violations, v)
			}
			if s := strings.TrimSpace(cr.Summary); s != "" {
				acc.summaries = append(acc.summaries, s)
			}
			if r := strings.TrimSpace(cr.Reasoning); r != "" {
				acc.reasonings = append(acc.reasonings, r)
			}
		}
	}

	merged := make([]CriterionResult, 0, len(order))
	for _, name := range order {
		acc := byName[name]
		avg := acc.weighted
		if acc.weightSum > 0 {
			avg = acc.weighted / acc.weightSum
		}
		raw := int(math.Round(avg))
		if raw < 1 {
			raw = 1
		}
		if raw > RawScoreMax {
			raw = RawScoreMax
		}
		merged = append(merged, CriterionResult{
			Name:       name,
			RawScore:   raw,
			Violations: acc.violations,
			Summary:    strings.Join(acc.summaries, " "),
			Reasoning:  strings.Join(acc.reasonings, " "),
		})
	}
	return merged
}
