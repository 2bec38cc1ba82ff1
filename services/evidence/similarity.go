// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package evidence

import (
	"sort"
	"strings"
)

// Measure scores the similarity of a candidate against the quote in [0,100].
// Measures must be pure and deterministic.
type Measure func(candidate, quote string) float64

// defaultMeasures is the ordered measure set used by the fuzzy strategies.
// The cascade takes the max across measures, so adding or reordering entries
// never changes control flow elsewhere.
var defaultMeasures = []Measure{
	partialRatio,   // substring-tolerant
	tokenSortRatio, // token-order-invariant
	fullRatio,      // whole-string
}

// scoreCandidate returns the best score across the measure set. Comparisons
// are case-folded; the exact stages have already handled case-sensitive hits
// by the time any measure runs.
func scoreCandidate(candidate, quote string) float64 {
	a := strings.ToLower(candidate)
	b := strings.ToLower(quote)
	best := 0.0
	for _, m := range defaultMeasures {
		if s := m(a, b); s > best {
			best = s
		}
	}
	return best
}

// fullRatio is the Levenshtein similarity of the whole strings.
func fullRatio(a, b string) float64 {
	if a == b {
		return 100
	}
	longest := len(a)
	if len(b) > longest {
		longest = len(b)
	}
	if longest == 0 {
		return 100
	}
	dist := levenshtein(a, b)
	return (1 - float64(dist)/float64(longest)) * 100
}

// tokenSortRatio compares the strings with their tokens sorted, making the
// measure invariant to word order.
func tokenSortRatio(a, b string) float64 {
	return fullRatio(sortTokens(a), sortTokens(b))
}

func sortTokens(s string) string {
	tokens := strings.Fields(s)
	sort.Strings(tokens)
	return strings.Join(tokens, " ")
}

// partialRatio is substring-tolerant: the shorter string is compared against
// every same-length window of the longer one and the best ratio wins. A
// verbatim containment scores 100.
func partialRatio(a, b string) float64 {
	shorter, longer := a, b
	if len(shorter) > len(longer) {
		shorter, longer = longer, shorter
	}
	if len(shorter) == 0 {
		return 0
	}
	if strings.Contains(longer, shorter) {
		return 100
	}

	best := 0.0
	for start := 0; start+len(shorter) <= len(longer); start++ {
		window := longer[start : start+len(shorter)]
		if r := fullRatio(window, shorter); r > best {
			best = r
		}
	}
	return best
}

// levenshtein computes edit distance with the two-row dynamic program.
func levenshtein(a, b string) int {
	if a == b {
		return 0
	}
	if len(a) == 0 {
		return len(b)
	}
	if len(b) == 0 {
		return len(a)
	}

	prev := make([]int, len(b)+1)
	curr := make([]int, len(b)+1)
	for j := 0; j <= len(b); j++ {
		prev[j] = j
	}

	for i := 1; i <= len(a); i++ {
		curr[0] = i
		for j := 1; j <= len(b); j++ {
			cost := 1
			if a[i-1] == b[j-1] {
				cost = 0
			}
			ins := curr[j-1] + 1
			del := prev[j] + 1
			sub := prev[j-1] + cost
			min := ins
			if del < min {
				min = del
			}
			if sub < min {
				min = sub
			}
			curr[j] = min
		}
		prev, curr = curr, prev
	}
	return prev[len(b)]
}
