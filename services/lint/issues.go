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

import "github.com/TRocket-Labs/vectorlint-sub000/services/rules"

// Issue is one located finding emitted to the output sink.
type Issue struct {
	Path        string         `json:"path"`
	Line        int            `json:"line"`   // 1-based
	Column      int            `json:"column"` // 1-based
	Severity    rules.Severity `json:"severity"`
	Message     string         `json:"message"`
	RuleID      string         `json:"rule_id"`
	MatchedText string         `json:"matched_text,omitempty"`
	Suggestion  string         `json:"suggestion,omitempty"`
	ScoreText   string         `json:"score_text,omitempty"`
}

// IssueSink receives findings in rule-list order. Implementations render or
// collect; the engine never formats output itself.
type IssueSink interface {
	Emit(issue Issue)
}

// Totals are the running counters accumulated across files.
type Totals struct {
	Errors               int  `json:"errors"`
	Warnings             int  `json:"warnings"`
	RequestFailures      int  `json:"request_failures"`
	HadOperationalErrors bool `json:"had_operational_errors"`
	HadSeverityErrors    bool `json:"had_severity_errors"`
}

// Add accumulates other into t.
func (t *Totals) Add(other Totals) {
	t.Errors += other.Errors
	t.Warnings += other.Warnings
	t.RequestFailures += other.RequestFailures
	t.HadOperationalErrors = t.HadOperationalErrors || other.HadOperationalErrors
	t.HadSeverityErrors = t.HadSeverityErrors || other.HadSeverityErrors
}

// RuleScore summarizes one rule's final score for a file.
type RuleScore struct {
	RuleID string  `json:"rule_id"`
	Kind   string  `json:"kind"`
	Final  float64 `json:"final"` // [0,10]
}

// FileReport is the per-file aggregate returned to the caller.
type FileReport struct {
	Path   string      `json:"path"`
	Issues []Issue     `json:"issues"`
	Scores []RuleScore `json:"scores"`
	Totals Totals      `json:"totals"`
}

// issueCollector is the trivial sink used when the caller only wants the
// report struct.
type issueCollector struct {
	issues []Issue
}

func (c *issueCollector) Emit(issue Issue) {
	c.issues = append(c.issues, issue)
}
