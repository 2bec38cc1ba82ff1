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
	"context"
	"encoding/json"
	"errors"
	"math"
	"math/rand"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/TRocket-Labs/vectorlint-sub000/services/rules"
)

// fakeProvider scripts structured responses per rule title.
type fakeProvider struct {
	calls int64
	fn    func(content, systemPrompt string) (json.RawMessage, error)
}

func (f *fakeProvider) RunPromptStructured(ctx context.Context, content, systemPrompt string, schema json.RawMessage) (json.RawMessage, error) {
	atomic.AddInt64(&f.calls, 1)
	return f.fn(content, systemPrompt)
}

func (f *fakeProvider) Name() string { return "fake" }

func (f *fakeProvider) callCount() int64 { return atomic.LoadInt64(&f.calls) }

// subjectiveReply builds the structured reply for a single-criterion rule.
func subjectiveReply(name string, score int, violations ...map[string]any) json.RawMessage {
	vs := make([]map[string]any, 0, len(violations))
	vs = append(vs, violations...)
	data, _ := json.Marshal(map[string]any{
		"criteria": []map[string]any{{
			"name":       name,
			"score":      score,
			"summary":    "summary text",
			"reasoning":  "reasoning text",
			"violations": vs,
		}},
	})
	return data
}

func violationJSON(analysis, quote string) map[string]any {
	return map[string]any{
		"analysis":   analysis,
		"suggestion": "rewrite it",
		"evidence":   map[string]any{"quote": quote, "context_before": "", "context_after": ""},
	}
}

func subjRule(id string) rules.Rule {
	return rules.Rule{
		ID:           id,
		Kind:         rules.KindSubjective,
		Severity:     rules.SeverityWarning,
		Instructions: "Evaluate quality.",
		Criteria:     []rules.CriterionSpec{{ID: "c1", Name: "Quality", Weight: 1}},
	}
}

func newTestEngine(p *fakeProvider, ruleSet []rules.Rule, opts Options) *Engine {
	return New(p, rules.NewGlobResolver(ruleSet, nil), opts)
}

func TestLintFileOrderedUnderConcurrency(t *testing.T) {
	ruleSet := []rules.Rule{subjRule("r1"), subjRule("r2"), subjRule("r3"), subjRule("r4"), subjRule("r5")}
	provider := &fakeProvider{fn: func(content, systemPrompt string) (json.RawMessage, error) {
		time.Sleep(time.Duration(rand.Intn(5)) * time.Millisecond)
		return subjectiveReply("Quality", 4), nil
	}}
	engine := newTestEngine(provider, ruleSet, Options{Concurrency: 2})

	report, err := engine.LintFile(context.Background(), "a.md", "Some fine content.", nil)
	if err != nil {
		t.Fatalf("LintFile() error: %v", err)
	}
	if len(report.Scores) != 5 {
		t.Fatalf("got %d scores, want 5", len(report.Scores))
	}
	for i, want := range []string{"r1", "r2", "r3", "r4", "r5"} {
		if report.Scores[i].RuleID != want {
			t.Errorf("Scores[%d].RuleID = %s, want %s (results must follow rule order)",
				i, report.Scores[i].RuleID, want)
		}
	}
	if len(report.Issues) != 0 {
		t.Errorf("clean scores emitted %d issues", len(report.Issues))
	}
	if provider.callCount() != 5 {
		t.Errorf("provider called %d times, want 5", provider.callCount())
	}
}

func TestLintFileFailureIsolation(t *testing.T) {
	ruleSet := []rules.Rule{subjRule("r1"), subjRule("r2"), subjRule("r3"), subjRule("r4"), subjRule("r5")}
	provider := &fakeProvider{fn: func(content, systemPrompt string) (json.RawMessage, error) {
		if strings.Contains(systemPrompt, "Rule: r3") {
			return nil, errors.New("backend rejected the request")
		}
		return subjectiveReply("Quality", 4), nil
	}}
	engine := newTestEngine(provider, ruleSet, Options{Concurrency: 2})

	report, err := engine.LintFile(context.Background(), "a.md", "content", nil)
	if err != nil {
		t.Fatalf("LintFile() error: %v", err)
	}
	if report.Totals.RequestFailures != 1 {
		t.Errorf("RequestFailures = %d, want 1", report.Totals.RequestFailures)
	}
	if !report.Totals.HadOperationalErrors {
		t.Error("HadOperationalErrors = false")
	}
	if report.Totals.HadSeverityErrors {
		t.Error("a request failure must not count as a severity error")
	}
	want := []string{"r1", "r2", "r4", "r5"}
	if len(report.Scores) != len(want) {
		t.Fatalf("got %d scores, want %d", len(report.Scores), len(want))
	}
	for i, id := range want {
		if report.Scores[i].RuleID != id {
			t.Errorf("Scores[%d].RuleID = %s, want %s", i, report.Scores[i].RuleID, id)
		}
	}
}

func TestLintFileGatedRequiredCriterion(t *testing.T) {
	rule := subjRule("needs-heading")
	rule.Criteria[0].Target = &rules.TargetSpec{
		Regex:      `^#\s+(.+)$`,
		Required:   true,
		Suggestion: "Add a top-level heading",
	}
	provider := &fakeProvider{fn: func(content, systemPrompt string) (json.RawMessage, error) {
		t.Error("provider must not be called when every criterion is gated")
		return nil, nil
	}}
	engine := newTestEngine(provider, []rules.Rule{rule}, Options{})

	report, err := engine.LintFile(context.Background(), "a.md", "No heading here, just prose.", nil)
	if err != nil {
		t.Fatalf("LintFile() error: %v", err)
	}
	if len(report.Issues) != 1 {
		t.Fatalf("got %d issues, want 1", len(report.Issues))
	}
	issue := report.Issues[0]
	if issue.Severity != rules.SeverityError {
		t.Errorf("Severity = %s, want error", issue.Severity)
	}
	if issue.Line != 1 || issue.Column != 1 {
		t.Errorf("position = %d:%d, want 1:1", issue.Line, issue.Column)
	}
	if !strings.Contains(issue.Message, "target not found") {
		t.Errorf("Message = %q", issue.Message)
	}
	if issue.Suggestion != "Add a top-level heading" {
		t.Errorf("Suggestion = %q", issue.Suggestion)
	}
	if issue.ScoreText != "0/4 (0.0/10)" {
		t.Errorf("ScoreText = %q", issue.ScoreText)
	}
	if !report.Totals.HadSeverityErrors {
		t.Error("HadSeverityErrors = false")
	}
	if len(report.Scores) != 1 || report.Scores[0].Final != 0 {
		t.Errorf("Scores = %+v, want final 0", report.Scores)
	}
}

func TestLintFileGatedFindingSurvivesProviderFailure(t *testing.T) {
	rule := subjRule("mixed-gate")
	rule.Criteria = []rules.CriterionSpec{
		{ID: "c1", Name: "Structure", Weight: 1, Target: &rules.TargetSpec{
			Regex:      `^#\s+(.+)$`,
			Required:   true,
			Suggestion: "Add a top-level heading",
		}},
		{ID: "c2", Name: "Quality", Weight: 1},
	}
	provider := &fakeProvider{fn: func(content, systemPrompt string) (json.RawMessage, error) {
		return nil, errors.New("backend unavailable")
	}}
	engine := newTestEngine(provider, []rules.Rule{rule}, Options{})

	report, err := engine.LintFile(context.Background(), "a.md", "No heading here, just prose.", nil)
	if err != nil {
		t.Fatalf("LintFile() error: %v", err)
	}
	// The gate ran before the failed call; its finding must not vanish.
	if len(report.Issues) != 1 {
		t.Fatalf("got %d issues, want the gated finding", len(report.Issues))
	}
	issue := report.Issues[0]
	if issue.Severity != rules.SeverityError {
		t.Errorf("Severity = %s, want error", issue.Severity)
	}
	if issue.Line != 1 || issue.Column != 1 {
		t.Errorf("position = %d:%d, want 1:1", issue.Line, issue.Column)
	}
	if !strings.Contains(issue.Message, "Structure: target not found") {
		t.Errorf("Message = %q", issue.Message)
	}
	if issue.Suggestion != "Add a top-level heading" {
		t.Errorf("Suggestion = %q", issue.Suggestion)
	}
	if issue.ScoreText != "0/4 (0.0/10)" {
		t.Errorf("ScoreText = %q", issue.ScoreText)
	}
	if report.Totals.RequestFailures != 1 {
		t.Errorf("RequestFailures = %d, want 1", report.Totals.RequestFailures)
	}
	if !report.Totals.HadOperationalErrors || !report.Totals.HadSeverityErrors {
		t.Errorf("totals = %+v, want both error flags set", report.Totals)
	}
	if len(report.Scores) != 1 || report.Scores[0].Final != 0 {
		t.Errorf("Scores = %+v, want the gated zero-point component", report.Scores)
	}
}

func TestLintFileOptionalMissingTargetSkipsCriterion(t *testing.T) {
	rule := subjRule("optional-gate")
	rule.Criteria[0].Target = &rules.TargetSpec{Regex: `ZZZ_NEVER`, Required: false}
	provider := &fakeProvider{fn: func(content, systemPrompt string) (json.RawMessage, error) {
		t.Error("provider must not be called with no live criteria")
		return nil, nil
	}}
	engine := newTestEngine(provider, []rules.Rule{rule}, Options{})

	report, err := engine.LintFile(context.Background(), "a.md", "content", nil)
	if err != nil {
		t.Fatalf("LintFile() error: %v", err)
	}
	if len(report.Issues) != 0 {
		t.Errorf("optional gate emitted %d issues", len(report.Issues))
	}
	if report.Totals.HadSeverityErrors || report.Totals.HadOperationalErrors {
		t.Errorf("totals flagged: %+v", report.Totals)
	}
}

func TestLintFileLowScoreGroundsViolation(t *testing.T) {
	content := "# Doc\n\nThis sentence is deliberately vague about everything.\n"
	provider := &fakeProvider{fn: func(c, s string) (json.RawMessage, error) {
		return subjectiveReply("Quality", 1,
			violationJSON("vague claim", "deliberately vague")), nil
	}}
	engine := newTestEngine(provider, []rules.Rule{subjRule("r1")}, Options{})

	report, err := engine.LintFile(context.Background(), "a.md", content, nil)
	if err != nil {
		t.Fatalf("LintFile() error: %v", err)
	}
	if len(report.Issues) != 1 {
		t.Fatalf("got %d issues, want 1", len(report.Issues))
	}
	issue := report.Issues[0]
	if issue.Severity != rules.SeverityError {
		t.Errorf("Severity = %s, want error for raw 1", issue.Severity)
	}
	if issue.Line != 3 || issue.Column != 18 {
		t.Errorf("position = %d:%d, want 3:18", issue.Line, issue.Column)
	}
	if issue.MatchedText != "deliberately vague" {
		t.Errorf("MatchedText = %q", issue.MatchedText)
	}
	if issue.ScoreText != "1/4 (1.0/10)" {
		t.Errorf("ScoreText = %q", issue.ScoreText)
	}
	if !report.Totals.HadSeverityErrors || report.Totals.Errors != 1 {
		t.Errorf("totals = %+v", report.Totals)
	}
	if math.Abs(report.Scores[0].Final-1.0) > 1e-9 {
		t.Errorf("Final = %v, want 1.0", report.Scores[0].Final)
	}
}

func TestLintFileMidScoreIsWarning(t *testing.T) {
	content := "The middle of the road text lives here.\n"
	provider := &fakeProvider{fn: func(c, s string) (json.RawMessage, error) {
		return subjectiveReply("Quality", 2,
			violationJSON("meh phrasing", "middle of the road")), nil
	}}
	engine := newTestEngine(provider, []rules.Rule{subjRule("r1")}, Options{})

	report, err := engine.LintFile(context.Background(), "a.md", content, nil)
	if err != nil {
		t.Fatalf("LintFile() error: %v", err)
	}
	if len(report.Issues) != 1 || report.Issues[0].Severity != rules.SeverityWarning {
		t.Fatalf("issues = %+v, want one warning", report.Issues)
	}
	if report.Totals.HadSeverityErrors {
		t.Error("a warning must not set HadSeverityErrors")
	}
	if report.Totals.Warnings != 1 {
		t.Errorf("Warnings = %d, want 1", report.Totals.Warnings)
	}
}

func TestLintFileCleanScoreEmitsNothing(t *testing.T) {
	// Raw 3 and 4 are clean even when the model volunteers violations.
	provider := &fakeProvider{fn: func(c, s string) (json.RawMessage, error) {
		return subjectiveReply("Quality", 3,
			violationJSON("nitpick", "content")), nil
	}}
	engine := newTestEngine(provider, []rules.Rule{subjRule("r1")}, Options{})

	report, err := engine.LintFile(context.Background(), "a.md", "content here", nil)
	if err != nil {
		t.Fatalf("LintFile() error: %v", err)
	}
	if len(report.Issues) != 0 {
		t.Errorf("clean criterion emitted %d issues", len(report.Issues))
	}
}

func TestLintFileGroundingFallback(t *testing.T) {
	provider := &fakeProvider{fn: func(c, s string) (json.RawMessage, error) {
		return subjectiveReply("Quality", 1,
			violationJSON("bad text", "quantum entanglement flux capacitor overload")), nil
	}}
	engine := newTestEngine(provider, []rules.Rule{subjRule("r1")}, Options{})

	report, err := engine.LintFile(context.Background(), "a.md", "the cat sat on the mat", nil)
	if err != nil {
		t.Fatalf("LintFile() error: %v", err)
	}
	if len(report.Issues) != 1 {
		t.Fatalf("ungroundable finding was dropped")
	}
	issue := report.Issues[0]
	if issue.Line != 1 || issue.Column != 1 {
		t.Errorf("fallback position = %d:%d, want 1:1", issue.Line, issue.Column)
	}
	if issue.MatchedText != "quantum entanglement flux capacitor overload" {
		t.Errorf("MatchedText = %q, want the raw quote", issue.MatchedText)
	}
	if !report.Totals.HadOperationalErrors {
		t.Error("grounding failure must set HadOperationalErrors")
	}
}

func TestLintFileModelOmitsCriterion(t *testing.T) {
	provider := &fakeProvider{fn: func(c, s string) (json.RawMessage, error) {
		return subjectiveReply("SomethingElse", 4), nil
	}}
	engine := newTestEngine(provider, []rules.Rule{subjRule("r1")}, Options{})

	report, err := engine.LintFile(context.Background(), "a.md", "content", nil)
	if err != nil {
		t.Fatalf("LintFile() error: %v", err)
	}
	if !report.Totals.HadOperationalErrors {
		t.Error("missing declared criterion must be an operational error")
	}
	if len(report.Issues) != 0 {
		t.Errorf("omitted criterion produced %d issues", len(report.Issues))
	}
	// The score is never silently defaulted.
	if len(report.Scores) != 1 || report.Scores[0].Final != 0 {
		t.Errorf("Scores = %+v", report.Scores)
	}
}

func TestLintFileOutOfRangeScore(t *testing.T) {
	for _, raw := range []int{0, 5} {
		provider := &fakeProvider{fn: func(c, s string) (json.RawMessage, error) {
			return subjectiveReply("Quality", raw), nil
		}}
		engine := newTestEngine(provider, []rules.Rule{subjRule("r1")}, Options{})
		report, err := engine.LintFile(context.Background(), "a.md", "content", nil)
		if err != nil {
			t.Fatalf("raw %d: LintFile() error: %v", raw, err)
		}
		if !report.Totals.HadOperationalErrors {
			t.Errorf("raw %d from the model must be an operational error", raw)
		}
	}
}

func TestLintFileSemiObjective(t *testing.T) {
	content := strings.TrimSpace(strings.Repeat("word ", 500))
	rule := rules.Rule{
		ID:           "density",
		Kind:         rules.KindSemiObjective,
		Severity:     rules.SeverityWarning,
		Instructions: "Flag filler words.",
	}
	provider := &fakeProvider{fn: func(c, s string) (json.RawMessage, error) {
		data, _ := json.Marshal(map[string]any{
			"violations": []map[string]any{violationJSON("filler", "word")},
			"summary":    "one filler found",
		})
		return data, nil
	}}
	engine := newTestEngine(provider, []rules.Rule{rule}, Options{})

	report, err := engine.LintFile(context.Background(), "a.md", content, nil)
	if err != nil {
		t.Fatalf("LintFile() error: %v", err)
	}
	if len(report.Issues) != 1 {
		t.Fatalf("got %d issues, want 1", len(report.Issues))
	}
	issue := report.Issues[0]
	if issue.Severity != rules.SeverityWarning {
		t.Errorf("Severity = %s, want warning fallback", issue.Severity)
	}
	// density = 1/500*100 = 0.2, rawPercent = 100 - 0.2*10 = 98, final 9.8.
	if math.Abs(report.Scores[0].Final-9.8) > 1e-9 {
		t.Errorf("Final = %v, want 9.8", report.Scores[0].Final)
	}
	if issue.ScoreText != "9.8/10 (98%)" {
		t.Errorf("ScoreText = %q", issue.ScoreText)
	}
}

func TestLintFileSemiObjectiveDeclaredError(t *testing.T) {
	rule := rules.Rule{
		ID:           "strict-density",
		Kind:         rules.KindSemiObjective,
		Severity:     rules.SeverityError,
		Instructions: "Flag weasel words.",
	}
	provider := &fakeProvider{fn: func(c, s string) (json.RawMessage, error) {
		data, _ := json.Marshal(map[string]any{
			"violations": []map[string]any{violationJSON("weasel", "some")},
			"summary":    "",
		})
		return data, nil
	}}
	engine := newTestEngine(provider, []rules.Rule{rule}, Options{})

	report, err := engine.LintFile(context.Background(), "a.md", "some words here", nil)
	if err != nil {
		t.Fatalf("LintFile() error: %v", err)
	}
	if len(report.Issues) != 1 || report.Issues[0].Severity != rules.SeverityError {
		t.Fatalf("issues = %+v, want one error", report.Issues)
	}
	if !report.Totals.HadSeverityErrors {
		t.Error("HadSeverityErrors = false")
	}
}

func TestLintFileCacheAvoidsRepeatCalls(t *testing.T) {
	store := NewMemoryStore()
	provider := &fakeProvider{fn: func(c, s string) (json.RawMessage, error) {
		return subjectiveReply("Quality", 2, violationJSON("issue", "stale text")), nil
	}}
	engine := newTestEngine(provider, []rules.Rule{subjRule("r1")}, Options{Store: store})

	first, err := engine.LintFile(context.Background(), "a.md", "some stale text here", nil)
	if err != nil {
		t.Fatalf("first LintFile() error: %v", err)
	}
	second, err := engine.LintFile(context.Background(), "a.md", "some stale text here", nil)
	if err != nil {
		t.Fatalf("second LintFile() error: %v", err)
	}
	if provider.callCount() != 1 {
		t.Errorf("provider called %d times, want 1 (second run cached)", provider.callCount())
	}
	if len(first.Issues) != len(second.Issues) {
		t.Errorf("cached run diverged: %d vs %d issues", len(first.Issues), len(second.Issues))
	}

	// Changed content misses the cache.
	if _, err := engine.LintFile(context.Background(), "a.md", "entirely new stale text", nil); err != nil {
		t.Fatalf("third LintFile() error: %v", err)
	}
	if provider.callCount() != 2 {
		t.Errorf("provider called %d times after content change, want 2", provider.callCount())
	}
}

func TestRunAggregatesTotals(t *testing.T) {
	provider := &fakeProvider{fn: func(c, s string) (json.RawMessage, error) {
		return subjectiveReply("Quality", 1, violationJSON("bad", "bad text")), nil
	}}
	engine := newTestEngine(provider, []rules.Rule{subjRule("r1")}, Options{})

	report, err := engine.Run(context.Background(), []Target{
		{Path: "a.md", Content: "bad text in a"},
		{Path: "b.md", Content: "bad text in b"},
	}, nil)
	if err != nil {
		t.Fatalf("Run() error: %v", err)
	}
	if len(report.Files) != 2 {
		t.Fatalf("got %d file reports, want 2", len(report.Files))
	}
	if report.Totals.Errors != 2 {
		t.Errorf("Totals.Errors = %d, want 2", report.Totals.Errors)
	}
	if !report.Totals.HadSeverityErrors {
		t.Error("HadSeverityErrors = false")
	}
}

func TestRunNoProvider(t *testing.T) {
	engine := New(nil, rules.NewGlobResolver(nil, nil), Options{})
	if _, err := engine.Run(context.Background(), nil, nil); !errors.Is(err, ErrNoProvider) {
		t.Fatalf("error = %v, want ErrNoProvider", err)
	}
}

func TestLintFilePanicContained(t *testing.T) {
	ruleSet := []rules.Rule{subjRule("r1"), subjRule("r2")}
	provider := &fakeProvider{fn: func(c, s string) (json.RawMessage, error) {
		if strings.Contains(s, "Rule: r1") {
			panic("provider blew up")
		}
		return subjectiveReply("Quality", 4), nil
	}}
	engine := newTestEngine(provider, ruleSet, Options{Concurrency: 1})

	report, err := engine.LintFile(context.Background(), "a.md", "content", nil)
	if err != nil {
		t.Fatalf("LintFile() error: %v", err)
	}
	if report.Totals.RequestFailures != 1 {
		t.Errorf("RequestFailures = %d, want 1 from the panicking rule", report.Totals.RequestFailures)
	}
	if len(report.Scores) != 1 || report.Scores[0].RuleID != "r2" {
		t.Errorf("Scores = %+v, want only r2", report.Scores)
	}
}

// Sanity check for the score text helper used in issue rendering.
func TestScoreText(t *testing.T) {
	tests := []struct {
		raw  int
		want string
	}{
		{0, "0/4 (0.0/10)"},
		{1, "1/4 (1.0/10)"},
		{2, "2/4 (4.0/10)"},
		{4, "4/4 (10.0/10)"},
	}
	for _, tt := range tests {
		if got := scoreText(tt.raw); got != tt.want {
			t.Errorf("scoreText(%d) = %q, want %q", tt.raw, got, tt.want)
		}
	}
}
