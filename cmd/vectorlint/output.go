// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/mattn/go-isatty"

	"github.com/TRocket-Labs/vectorlint-sub000/services/lint"
	"github.com/TRocket-Labs/vectorlint-sub000/services/rules"
)

// ANSI colors for terminal output.
const (
	colorReset  = "\033[0m"
	colorRed    = "\033[31m"
	colorYellow = "\033[33m"
	colorDim    = "\033[2m"
)

// textRenderer prints findings in a compiler-style one-line-per-issue format:
//
//	docs/guide.md:14:3: warning: Clarity: sentence is ambiguous [tone-check]
type textRenderer struct {
	w     io.Writer
	color bool
}

func newTextRenderer(w io.Writer, noColor bool) *textRenderer {
	color := !noColor
	if f, ok := w.(*os.File); ok {
		color = color && isatty.IsTerminal(f.Fd())
	}
	return &textRenderer{w: w, color: color}
}

// Emit implements lint.IssueSink.
func (r *textRenderer) Emit(issue lint.Issue) {
	severity := string(issue.Severity)
	if r.color {
		switch issue.Severity {
		case rules.SeverityError:
			severity = colorRed + severity + colorReset
		default:
			severity = colorYellow + severity + colorReset
		}
	}

	fmt.Fprintf(r.w, "%s:%d:%d: %s: %s [%s]\n",
		issue.Path, issue.Line, issue.Column, severity, issue.Message, issue.RuleID)
	if issue.MatchedText != "" {
		fmt.Fprintf(r.w, "  %s\n", r.dim("> "+issue.MatchedText))
	}
	if issue.Suggestion != "" {
		fmt.Fprintf(r.w, "  %s\n", r.dim("suggestion: "+issue.Suggestion))
	}
}

func (r *textRenderer) dim(s string) string {
	if r.color {
		return colorDim + s + colorReset
	}
	return s
}

// Summary prints the run totals footer.
func (r *textRenderer) Summary(report *lint.RunReport) {
	t := report.Totals
	fmt.Fprintf(r.w, "\n%d file(s) checked: %d error(s), %d warning(s)",
		len(report.Files), t.Errors, t.Warnings)
	if t.RequestFailures > 0 {
		fmt.Fprintf(r.w, ", %d rule(s) failed to evaluate", t.RequestFailures)
	}
	fmt.Fprintln(r.w)
}

// outputJSON writes the full run report as indented JSON to stdout.
func outputJSON(report *lint.RunReport) error {
	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	return encoder.Encode(report)
}

// discardSink swallows issues; used when JSON mode prints the report whole.
type discardSink struct{}

func (discardSink) Emit(lint.Issue) {}
