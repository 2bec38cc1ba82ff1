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

import "strings"

// Anchors is the second accepted evidence shape: instead of quoting the
// violating text itself, the model names its immediate neighbors.
type Anchors struct {
	Pre  string `json:"pre,omitempty"`
	Post string `json:"post,omitempty"`
}

// AnchoredMatch is the located span between anchors.
type AnchoredMatch struct {
	Line   int    `json:"line"`   // 1-based
	Column int    `json:"column"` // 1-based
	Match  string `json:"match"`
}

// LocateBetweenAnchors grounds an anchor pair in text.
//
// Among all occurrences of Pre, the one paired with the nearest following
// Post occurrence wins (smallest non-negative gap, ties broken by the first
// Pre scanned); the match is the enclosed span and the location its start.
// With only one anchor present, the location is that anchor's inner boundary
// and the match is the anchor text itself. With neither, the result is nil.
func LocateBetweenAnchors(text string, anchors Anchors) *AnchoredMatch {
	pre, post := anchors.Pre, anchors.Post
	switch {
	case pre == "" && post == "":
		return nil
	case post == "":
		return anchorAt(text, pre, len(pre))
	case pre == "":
		return anchorAt(text, post, 0)
	}

	bestGap := -1
	bestEnd := 0
	from := 0
	for {
		i := strings.Index(text[from:], pre)
		if i < 0 {
			break
		}
		preEnd := from + i + len(pre)
		if gap := strings.Index(text[preEnd:], post); gap >= 0 {
			if bestGap < 0 || gap < bestGap {
				bestGap = gap
				bestEnd = preEnd
			}
		}
		from += i + 1
	}

	if bestGap < 0 {
		// No pre occurrence has a following post: fall back to whichever
		// single anchor grounds, pre first.
		if m := anchorAt(text, pre, len(pre)); m != nil {
			return m
		}
		return anchorAt(text, post, 0)
	}

	line, col := position(text, bestEnd)
	return &AnchoredMatch{Line: line, Column: col, Match: text[bestEnd : bestEnd+bestGap]}
}

// anchorAt grounds a single anchor at its boundary: the offset within the
// first occurrence given by boundary (0 for the start, len for the end).
func anchorAt(text, anchor string, boundary int) *AnchoredMatch {
	idx := strings.Index(text, anchor)
	if idx < 0 {
		return nil
	}
	line, col := position(text, idx+boundary)
	return &AnchoredMatch{Line: line, Column: col, Match: anchor}
}
