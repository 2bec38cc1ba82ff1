// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package evidence grounds a model-claimed quotation back to an exact source
// location. Models paraphrase, re-wrap, and mistype the text they quote, so a
// plain substring search is not enough: the locator runs a cascade of
// progressively looser strategies and reports which one succeeded along with
// a 0-100 confidence.
//
// Every function in this package is pure and deterministic: identical inputs
// always yield byte-identical output. No randomness, no locale-sensitive
// comparisons, no map iteration over candidates.
package evidence

import (
	"math"
	"strings"
	"unicode"
	"unicode/utf8"
)

// DefaultMinConfidence is the acceptance threshold for the fuzzy strategies.
const DefaultMinConfidence = 80

// Strategy identifies which cascade stage produced a match.
type Strategy string

const (
	StrategyExact           Strategy = "exact"
	StrategyContext         Strategy = "context"
	StrategySubstring       Strategy = "substring"
	StrategyCaseInsensitive Strategy = "case-insensitive"
	StrategyFuzzyLine       Strategy = "fuzzy-line"
	StrategyFuzzyWindow     Strategy = "fuzzy-window"
)

// Evidence is the text span a model claims violates a criterion. It may not
// occur verbatim in the source.
type Evidence struct {
	Quote         string `json:"quote"`
	ContextBefore string `json:"context_before,omitempty"`
	ContextAfter  string `json:"context_after,omitempty"`
}

// GroundedMatch is a located piece of evidence.
//
// Invariant: StrategyExact and StrategyContext always carry confidence 100;
// StrategyCaseInsensitive is fixed at 95; the remaining strategies are
// strictly below 100.
type GroundedMatch struct {
	Line        int      `json:"line"`   // 1-based
	Column      int      `json:"column"` // 1-based
	MatchedText string   `json:"matched_text"`
	Confidence  int      `json:"confidence"` // 0-100
	Strategy    Strategy `json:"strategy"`
}

// Locate grounds ev in source. The cascade runs exact, word-subsequence,
// case-insensitive, fuzzy-line, then fuzzy-window matching; the first stage
// that produces a candidate wins. minConfidence (default 80 when <= 0) bounds
// only the fuzzy stages.
//
// A nil return means no candidate cleared the threshold. Callers must treat
// nil as an operational-error signal, never silently drop the finding.
func Locate(source string, ev Evidence, minConfidence int) *GroundedMatch {
	quote := ev.Quote
	if strings.TrimSpace(quote) == "" || source == "" {
		return nil
	}
	if minConfidence <= 0 {
		minConfidence = DefaultMinConfidence
	}

	if m := locateExact(source, ev); m != nil {
		return m
	}
	if m := locateSubstring(source, quote); m != nil {
		return m
	}
	if m := locateCaseInsensitive(source, quote); m != nil {
		return m
	}
	if m := locateFuzzyLine(source, quote, minConfidence); m != nil {
		return m
	}
	return locateFuzzyWindow(source, quote, minConfidence)
}

// locateExact substring-searches the quote verbatim. A single occurrence is
// an exact match. Multiple occurrences are disambiguated by the supplied
// context: the occurrence whose adjacent text equals ContextBefore and
// ContextAfter exactly wins as a context match; with no context agreement the
// first occurrence scanning left to right is used.
func locateExact(source string, ev Evidence) *GroundedMatch {
	offsets := findAll(source, ev.Quote)
	if len(offsets) == 0 {
		return nil
	}

	strategy := StrategyExact
	chosen := offsets[0]
	if len(offsets) > 1 && (ev.ContextBefore != "" || ev.ContextAfter != "") {
		for _, off := range offsets {
			if contextAgrees(source, off, len(ev.Quote), ev.ContextBefore, ev.ContextAfter) {
				chosen = off
				strategy = StrategyContext
				break
			}
		}
	}

	line, col := position(source, chosen)
	return &GroundedMatch{
		Line:        line,
		Column:      col,
		MatchedText: ev.Quote,
		Confidence:  100,
		Strategy:    strategy,
	}
}

// contextAgrees reports whether the text adjacent to source[off:off+n]
// equals the claimed context exactly.
func contextAgrees(source string, off, n int, before, after string) bool {
	if before != "" {
		if off < len(before) || source[off-len(before):off] != before {
			return false
		}
	}
	if after != "" {
		end := off + n
		if end+len(after) > len(source) || source[end:end+len(after)] != after {
			return false
		}
	}
	return true
}

// locateSubstring handles a model adding or dropping a word on re-quote: it
// searches for contiguous word subsequences of the quote, longest first, from
// len(words)-1 down to 3 words, at every start offset. Confidence scales with
// the fraction of quote words the hit covers.
func locateSubstring(source, quote string) *GroundedMatch {
	words := strings.Fields(quote)
	total := len(words)
	for n := total - 1; n >= 3; n-- {
		for start := 0; start+n <= total; start++ {
			needle := strings.Join(words[start:start+n], " ")
			idx := strings.Index(source, needle)
			if idx < 0 {
				continue
			}
			line, col := position(source, idx)
			return &GroundedMatch{
				Line:        line,
				Column:      col,
				MatchedText: needle,
				Confidence:  int(math.Round(float64(n) / float64(total) * 100)),
				Strategy:    StrategySubstring,
			}
		}
	}
	return nil
}

// locateCaseInsensitive is an exact search ignoring case, confidence fixed 95.
// Offsets are computed against the original source: indexing a ToLower copy is
// unsound because some case folds change byte length (İ, ẞ) and shift every
// offset after them.
func locateCaseInsensitive(source, quote string) *GroundedMatch {
	for i := range source {
		end, ok := foldPrefix(source[i:], quote)
		if !ok {
			continue
		}
		line, col := position(source, i)
		return &GroundedMatch{
			Line:        line,
			Column:      col,
			MatchedText: source[i : i+end],
			Confidence:  95,
			Strategy:    StrategyCaseInsensitive,
		}
	}
	return nil
}

// foldPrefix reports whether s begins with quote under simple Unicode case
// folding, returning the byte length of the matching prefix of s.
func foldPrefix(s, quote string) (int, bool) {
	i := 0
	for _, qr := range quote {
		sr, size := utf8.DecodeRuneInString(s[i:])
		if size == 0 || !foldEqual(sr, qr) {
			return 0, false
		}
		i += size
	}
	return i, true
}

// foldEqual compares two runes under simple case folding, the same relation
// strings.EqualFold uses.
func foldEqual(a, b rune) bool {
	if a == b {
		return true
	}
	if a > b {
		a, b = b, a
	}
	if b < utf8.RuneSelf {
		return 'A' <= a && a <= 'Z' && b == a+'a'-'A'
	}
	r := unicode.SimpleFold(a)
	for r != a && r < b {
		r = unicode.SimpleFold(r)
	}
	return r == b
}

// locateFuzzyLine scores every non-blank source line against the quote with
// the measure set and keeps the highest-scoring line at or above the
// threshold. Ties keep the earliest line.
func locateFuzzyLine(source, quote string, minConfidence int) *GroundedMatch {
	bestScore := -1.0
	bestOffset := 0
	bestText := ""

	offset := 0
	for _, line := range strings.Split(source, "\n") {
		trimmed := strings.TrimSpace(line)
		if trimmed != "" {
			score := scoreCandidate(trimmed, quote)
			if score > bestScore {
				bestScore = score
				bestOffset = offset + strings.Index(line, trimmed)
				bestText = trimmed
			}
		}
		offset += len(line) + 1
	}

	confidence := int(math.Round(bestScore))
	if confidence < minConfidence {
		return nil
	}
	if confidence >= 100 {
		confidence = 99
	}
	ln, col := position(source, bestOffset)
	return &GroundedMatch{
		Line:        ln,
		Column:      col,
		MatchedText: bestText,
		Confidence:  confidence,
		Strategy:    StrategyFuzzyLine,
	}
}

// locateFuzzyWindow slides character windows sized 50%-150% of the quote
// across the source and scores each with the measure set. The step sizes are
// coarse on purpose: the window stage is the last resort and trades precision
// for bounded work.
func locateFuzzyWindow(source, quote string, minConfidence int) *GroundedMatch {
	qlen := len(quote)
	if qlen == 0 || len(source) == 0 {
		return nil
	}

	minWindow := qlen / 2
	if minWindow < 1 {
		minWindow = 1
	}
	maxWindow := qlen * 3 / 2
	if maxWindow > len(source) {
		maxWindow = len(source)
	}
	sizeStep := qlen / 4
	if sizeStep < 1 {
		sizeStep = 1
	}

	bestScore := -1.0
	bestOffset := 0
	bestText := ""

	for size := minWindow; size <= maxWindow; size += sizeStep {
		slide := size / 4
		if slide < 1 {
			slide = 1
		}
		for start := 0; start+size <= len(source); start += slide {
			window := source[start : start+size]
			score := scoreCandidate(window, quote)
			if score > bestScore {
				bestScore = score
				bestOffset = start
				bestText = window
			}
		}
	}

	confidence := int(math.Round(bestScore))
	if confidence < minConfidence {
		return nil
	}
	if confidence >= 100 {
		confidence = 99
	}
	ln, col := position(source, bestOffset)
	return &GroundedMatch{
		Line:        ln,
		Column:      col,
		MatchedText: bestText,
		Confidence:  confidence,
		Strategy:    StrategyFuzzyWindow,
	}
}

// findAll returns the offsets of every non-overlapping occurrence of needle,
// scanning left to right.
func findAll(source, needle string) []int {
	if needle == "" {
		return nil
	}
	var offsets []int
	from := 0
	for {
		i := strings.Index(source[from:], needle)
		if i < 0 {
			return offsets
		}
		offsets = append(offsets, from+i)
		from += i + len(needle)
	}
}

// position converts a byte offset to a 1-based line and column by counting
// the newline characters preceding it.
func position(source string, offset int) (line, column int) {
	if offset > len(source) {
		offset = len(source)
	}
	prefix := source[:offset]
	line = 1 + strings.Count(prefix, "\n")
	column = offset - strings.LastIndexByte(prefix, '\n')
	return line, column
}
