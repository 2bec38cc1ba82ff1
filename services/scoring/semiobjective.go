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
	"github.com/TRocket-Labs/vectorlint-sub000/services/rules"
)

// DensityScore is the semi-objective result for a rule: violations per 100
// words scaled by strictness into a bounded [0,10] final score.
type DensityScore struct {
	Violations int     `json:"violations"`
	WordCount  int     `json:"word_count"`
	Density    float64 `json:"density"`     // violations per 100 words
	RawPercent float64 `json:"raw_percent"` // [0,100]
	Final      float64 `json:"final"`       // [0,10]
}

// ScoreDensity computes the semi-objective score for a flat violation list.
//
// density = violations/wordCount*100, rawPercent = clamp(100 - density x
// strictness, 0, 100), final = rawPercent/10. A zero word count saturates:
// no violations scores a clean 10, any violation scores 0.
func ScoreDensity(violations, wordCount int, strictness float64) DensityScore {
	if strictness <= 0 {
		strictness = rules.StrictnessStandard
	}

	s := DensityScore{Violations: violations, WordCount: wordCount}
	if wordCount <= 0 {
		if violations > 0 {
			s.RawPercent = 0
		} else {
			s.RawPercent = 100
		}
		s.Final = s.RawPercent / 10
		return s
	}

	s.Density = float64(violations) / float64(wordCount) * 100
	s.RawPercent = 100 - s.Density*strictness
	if s.RawPercent < 0 {
		s.RawPercent = 0
	}
	if s.RawPercent > 100 {
		s.RawPercent = 100
	}
	s.Final = s.RawPercent / 10
	return s
}

// DensitySeverity resolves the severity tier for a density score: any
// violation keeps the rule's declared severity when it is "error" and
// otherwise falls back to the caller-supplied default; a clean score is
// warning-tier.
func DensitySeverity(s DensityScore, declared, fallback rules.Severity) rules.Severity {
	if s.Final < 10 {
		if declared == rules.SeverityError {
			return rules.SeverityError
		}
		return fallback
	}
	return rules.SeverityWarning
}
