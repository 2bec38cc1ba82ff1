// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package lint orchestrates rule evaluation: per file it runs all applicable
// rules with bounded parallelism, wires each raw model result through the
// target gate, the scorer, and the evidence locator, and emits located
// findings in rule-list order with per-rule failure isolation.
package lint

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"github.com/TRocket-Labs/vectorlint-sub000/services/evidence"
	"github.com/TRocket-Labs/vectorlint-sub000/services/llm"
	"github.com/TRocket-Labs/vectorlint-sub000/services/rules"
	"github.com/TRocket-Labs/vectorlint-sub000/services/scoring"
	"github.com/TRocket-Labs/vectorlint-sub000/services/target"
)

// DefaultConcurrency bounds parallel rule execution within one file.
const DefaultConcurrency = 4

// Options configures an Engine. The zero value is usable.
type Options struct {
	// Concurrency is the worker cap per file; the effective pool size is
	// min(Concurrency, ruleCount). Default 4.
	Concurrency int

	// MinConfidence is the grounding acceptance threshold, default 80.
	MinConfidence int

	// DefaultSeverity is the fallback tier for semi-objective findings when
	// the rule does not declare "error". Default warning.
	DefaultSeverity rules.Severity

	// ChunkWordThreshold triggers document splitting, default 2000 words.
	ChunkWordThreshold int

	// RateLimit caps provider calls per second. Zero means unlimited.
	RateLimit rate.Limit

	// Store is the optional result cache; see CacheKey for the key contract.
	Store Store

	// Logger defaults to slog.Default().
	Logger *slog.Logger
}

// Engine runs rules against documents. Files are processed strictly
// sequentially relative to each other; only rules within a single file run
// concurrently. Engine is safe for use from a single driving goroutine.
type Engine struct {
	provider        llm.StructuredClient
	resolver        rules.Resolver
	concurrency     int
	minConfidence   int
	defaultSeverity rules.Severity
	chunker         *Chunker
	limiter         *rate.Limiter
	store           Store
	logger          *slog.Logger
	runID           string
}

// New creates an Engine over a provider and a rule resolver.
func New(provider llm.StructuredClient, resolver rules.Resolver, opts Options) *Engine {
	concurrency := opts.Concurrency
	if concurrency <= 0 {
		concurrency = DefaultConcurrency
	}
	minConfidence := opts.MinConfidence
	if minConfidence <= 0 {
		minConfidence = evidence.DefaultMinConfidence
	}
	defaultSeverity := opts.DefaultSeverity
	if defaultSeverity == "" {
		defaultSeverity = rules.SeverityWarning
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	var limiter *rate.Limiter
	if opts.RateLimit > 0 {
		limiter = rate.NewLimiter(opts.RateLimit, 1)
	}
	return &Engine{
		provider:        provider,
		resolver:        resolver,
		concurrency:     concurrency,
		minConfidence:   minConfidence,
		defaultSeverity: defaultSeverity,
		chunker:         NewChunker(opts.ChunkWordThreshold),
		limiter:         limiter,
		store:           opts.Store,
		logger:          logger,
		runID:           uuid.NewString(),
	}
}

// Target is one document to lint.
type Target struct {
	Path    string
	Content string
}

// RunReport aggregates a whole run.
type RunReport struct {
	Files  []FileReport `json:"files"`
	Totals Totals       `json:"totals"`
}

// Run lints the targets sequentially, emitting issues to sink as each file
// finishes. A nil sink collects into the report only.
func (e *Engine) Run(ctx context.Context, targets []Target, sink IssueSink) (*RunReport, error) {
	if e.provider == nil {
		return nil, ErrNoProvider
	}
	report := &RunReport{}
	for _, t := range targets {
		fr, err := e.LintFile(ctx, t.Path, t.Content, sink)
		if err != nil {
			return report, err
		}
		report.Files = append(report.Files, *fr)
		report.Totals.Add(fr.Totals)
	}
	return report, nil
}

// gatedCriterion is a criterion short-circuited by a missing required target.
type gatedCriterion struct {
	name       string
	weight     float64
	suggestion string
}

// ruleOutcome is one rule's raw result, produced by a pool worker and
// consumed by the sequential driver.
type ruleOutcome struct {
	raw         json.RawMessage
	criteria    []scoring.CriterionResult
	violations  []scoring.Violation
	summary     string
	gated       []gatedCriterion
	live        []rules.CriterionSpec
	skippedRule bool
	wordCount   int
	fromCache   bool
	called      bool // a provider call actually happened
	err         error
}

// LintFile resolves the applicable rule subset for path and executes it.
// The returned report carries the file's issues, scores, and totals; issues
// are also emitted to sink (when non-nil) in rule-list order.
func (e *Engine) LintFile(ctx context.Context, path, content string, sink IssueSink) (*FileReport, error) {
	if e.provider == nil {
		return nil, ErrNoProvider
	}

	ruleSet, _ := e.resolver.RulesFor(path)
	report := &FileReport{Path: path}
	if len(ruleSet) == 0 {
		e.logger.Debug("no applicable rules", "path", path)
		return report, nil
	}

	key := CacheKey(path, content, ruleSet)
	snapshot := e.loadSnapshot(key)

	e.logger.Info("linting file",
		"run_id", e.runID, "path", path, "rules", len(ruleSet),
		"workers", min(e.concurrency, len(ruleSet)))

	outcomes := make([]*ruleOutcome, len(ruleSet))
	runIndexed(len(ruleSet), e.concurrency, func(i int) {
		outcomes[i] = e.safeRunRule(ctx, &ruleSet[i], content, snapshot[ruleSet[i].ID])
	})

	collector := &issueCollector{}
	for i := range ruleSet {
		e.finalize(path, content, &ruleSet[i], outcomes[i], collector, report)

		// Only the sequential driver mutates the cache store, and only after
		// a rule's result is finalized.
		if e.store != nil && outcomes[i].called && outcomes[i].err == nil && outcomes[i].raw != nil {
			snapshot[ruleSet[i].ID] = outcomes[i].raw
			e.writeSnapshot(key, snapshot)
		}
	}

	report.Issues = collector.issues
	if sink != nil {
		for _, issue := range collector.issues {
			sink.Emit(issue)
		}
	}
	return report, nil
}

// safeRunRule contains panics so one rule can never abort its siblings.
func (e *Engine) safeRunRule(ctx context.Context, rule *rules.Rule, content string, cached json.RawMessage) (out *ruleOutcome) {
	defer func() {
		if r := recover(); r != nil {
			out = &ruleOutcome{err: fmt.Errorf("rule %s panicked: %v", rule.ID, r)}
		}
	}()
	return e.runRule(ctx, rule, content, cached)
}

// runRule executes the gate and, when anything survives it, the provider
// call. It runs on a pool worker: no shared mutable state beyond its own
// outcome, no cache writes.
func (e *Engine) runRule(ctx context.Context, rule *rules.Rule, content string, cached json.RawMessage) *ruleOutcome {
	out := &ruleOutcome{wordCount: CountWords(content)}

	if rule.Kind == rules.KindSemiObjective {
		res := target.Check(content, rule.Target, nil)
		if res.Missing {
			if res.Required {
				out.gated = append(out.gated, gatedCriterion{
					name:       ruleTitle(rule),
					weight:     1,
					suggestion: suggestionFor(rule.Target, nil),
				})
			} else {
				out.skippedRule = true
			}
			return out
		}
		return e.runSemiObjective(ctx, rule, content, cached, out)
	}

	// The gate runs before any model call so its outcome is deterministic
	// regardless of model variance.
	for _, c := range rule.Criteria {
		res := target.Check(content, rule.Target, c.Target)
		if !res.Missing {
			out.live = append(out.live, c)
			continue
		}
		if res.Required {
			out.gated = append(out.gated, gatedCriterion{
				name:       c.Name,
				weight:     c.Weight,
				suggestion: suggestionFor(rule.Target, c.Target),
			})
		} else {
			e.logger.Debug("optional target missing, criterion skipped",
				"rule", rule.ID, "criterion", c.ID)
		}
	}
	if len(out.live) == 0 {
		return out
	}
	return e.runSubjective(ctx, rule, content, cached, out)
}

func (e *Engine) runSubjective(ctx context.Context, rule *rules.Rule, content string, cached json.RawMessage, out *ruleOutcome) *ruleOutcome {
	if cached != nil {
		criteria, err := parseSubjective(cached)
		if err == nil {
			out.criteria = criteria
			out.raw = cached
			out.fromCache = true
			return out
		}
		e.logger.Warn("discarding undecodable cache entry", "rule", rule.ID, "error", err)
	}

	systemPrompt := buildSystemPrompt(rule, out.live)
	schema := buildSchema(rule.Kind)
	chunks := e.chunker.Split(content)
	out.called = true

	if len(chunks) == 1 {
		raw, err := e.callProvider(ctx, content, systemPrompt, schema)
		if err != nil {
			out.err = err
			return out
		}
		criteria, err := parseSubjective(raw)
		if err != nil {
			out.err = err
			return out
		}
		out.raw = raw
		out.criteria = criteria
		return out
	}

	results := make([]scoring.ChunkResult, 0, len(chunks))
	for _, chunk := range chunks {
		raw, err := e.callProvider(ctx, chunk, systemPrompt, schema)
		if err != nil {
			out.err = err
			return out
		}
		criteria, err := parseSubjective(raw)
		if err != nil {
			out.err = err
			return out
		}
		results = append(results, scoring.ChunkResult{
			Criteria:  criteria,
			WordCount: CountWords(chunk),
		})
	}
	out.criteria = scoring.AggregateChunks(results)

	merged, err := json.Marshal(subjectiveResponse{Criteria: out.criteria})
	if err == nil {
		out.raw = merged
	}
	return out
}

func (e *Engine) runSemiObjective(ctx context.Context, rule *rules.Rule, content string, cached json.RawMessage, out *ruleOutcome) *ruleOutcome {
	if cached != nil {
		violations, summary, err := parseSemiObjective(cached)
		if err == nil {
			out.violations = violations
			out.summary = summary
			out.raw = cached
			out.fromCache = true
			return out
		}
		e.logger.Warn("discarding undecodable cache entry", "rule", rule.ID, "error", err)
	}

	systemPrompt := buildSystemPrompt(rule, nil)
	schema := buildSchema(rule.Kind)
	chunks := e.chunker.Split(content)
	out.called = true

	var all []scoring.Violation
	var summaries []string
	for _, chunk := range chunks {
		raw, err := e.callProvider(ctx, chunk, systemPrompt, schema)
		if err != nil {
			out.err = err
			return out
		}
		violations, summary, err := parseSemiObjective(raw)
		if err != nil {
			out.err = err
			return out
		}
		all = append(all, violations...)
		if summary != "" {
			summaries = append(summaries, summary)
		}
		if len(chunks) == 1 {
			out.raw = raw
		}
	}

	out.violations = dedupeViolations(all)
	out.summary = joinNonEmpty(summaries)
	if out.raw == nil {
		merged, err := json.Marshal(semiObjectiveResponse{Violations: out.violations, Summary: out.summary})
		if err == nil {
			out.raw = merged
		}
	}
	return out
}

// callProvider is the engine's only suspension point.
func (e *Engine) callProvider(ctx context.Context, content, systemPrompt string, schema json.RawMessage) (json.RawMessage, error) {
	if e.limiter != nil {
		if err := e.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("rate limiter: %w", err)
		}
	}
	return e.provider.RunPromptStructured(ctx, content, systemPrompt, schema)
}

// finalize is the sequential half of a rule's pipeline: scoring, grounding,
// and emission. It is the only place totals and the sink are touched.
func (e *Engine) finalize(path, content string, rule *rules.Rule, out *ruleOutcome, sink IssueSink, report *FileReport) {
	// Gating failures are deterministic error-severity findings, fixed at 1:1.
	// They are emitted before the request-failure check: the gate ran before
	// any model call, so its findings never depend on provider behavior.
	for _, g := range out.gated {
		e.emit(sink, report, Issue{
			Path:       path,
			Line:       1,
			Column:     1,
			Severity:   rules.SeverityError,
			Message:    fmt.Sprintf("%s: target not found", g.name),
			RuleID:     rule.ID,
			Suggestion: g.suggestion,
			ScoreText:  scoreText(0),
		})
	}

	if out.err != nil {
		report.Totals.RequestFailures++
		report.Totals.HadOperationalErrors = true
		metricRequestFailures.Inc()
		e.logger.Error("rule execution failed",
			"run_id", e.runID, "path", path, "rule", rule.ID, "error", out.err)
		if len(out.gated) > 0 {
			report.Scores = append(report.Scores, RuleScore{
				RuleID: rule.ID,
				Kind:   string(rule.Kind),
				Final:  scoring.Aggregate(gatedComponents(out.gated)),
			})
		}
		return
	}
	if out.skippedRule {
		e.logger.Debug("optional target missing, rule skipped", "path", path, "rule", rule.ID)
		return
	}

	metricRulesEvaluated.Inc()
	if out.fromCache {
		metricCacheHits.Inc()
	}

	if rule.Kind == rules.KindSemiObjective {
		e.finalizeSemiObjective(path, content, rule, out, sink, report)
		return
	}
	e.finalizeSubjective(path, content, rule, out, sink, report)
}

func (e *Engine) finalizeSubjective(path, content string, rule *rules.Rule, out *ruleOutcome, sink IssueSink, report *FileReport) {
	if len(out.gated) == 0 && len(out.live) == 0 {
		return
	}

	byName := make(map[string]*scoring.CriterionResult, len(out.criteria))
	for i := range out.criteria {
		byName[normalizeName(out.criteria[i].Name)] = &out.criteria[i]
	}

	declared := make(map[string]struct{}, len(out.live))
	components := gatedComponents(out.gated)

	for _, c := range out.live {
		declared[normalizeName(c.Name)] = struct{}{}
		res, ok := byName[normalizeName(c.Name)]
		if !ok {
			// Never silently defaulted: the criterion simply has no score.
			report.Totals.HadOperationalErrors = true
			e.logger.Error("model omitted expected criterion",
				"path", path, "rule", rule.ID, "criterion", c.Name, "error", ErrMissingCriterion)
			continue
		}
		if res.RawScore < 1 || res.RawScore > scoring.RawScoreMax {
			report.Totals.HadOperationalErrors = true
			e.logger.Error("model returned out-of-range score",
				"path", path, "rule", rule.ID, "criterion", c.Name,
				"score", res.RawScore, "error", ErrScoreOutOfRange)
			continue
		}

		components = append(components, scoring.Component(c.Name, res.RawScore, c.Weight))
		e.emitCriterion(path, content, rule, &c, res, sink, report)
	}

	for name := range byName {
		if _, ok := declared[name]; !ok {
			report.Totals.HadOperationalErrors = true
			e.logger.Warn("ignoring unexpected criterion in model response",
				"path", path, "rule", rule.ID, "criterion", name)
		}
	}

	report.Scores = append(report.Scores, RuleScore{
		RuleID: rule.ID,
		Kind:   string(rule.Kind),
		Final:  scoring.Aggregate(components),
	})
}

// emitCriterion turns one scored criterion into findings. Criteria at raw 3
// or 4 are clean and must not be emitted downstream.
func (e *Engine) emitCriterion(path, content string, rule *rules.Rule, spec *rules.CriterionSpec, res *scoring.CriterionResult, sink IssueSink, report *FileReport) {
	status := scoring.StatusOf(res.RawScore)
	if status == scoring.StatusNone {
		return
	}
	severity := rules.SeverityWarning
	if status == scoring.StatusError {
		severity = rules.SeverityError
	}

	if len(res.Violations) == 0 {
		message := res.Summary
		if message == "" {
			message = res.Reasoning
		}
		e.emit(sink, report, Issue{
			Path:      path,
			Line:      1,
			Column:    1,
			Severity:  severity,
			Message:   fmt.Sprintf("%s: %s", spec.Name, message),
			RuleID:    rule.ID,
			ScoreText: scoreText(res.RawScore),
		})
		return
	}

	for _, v := range res.Violations {
		line, column, matched := e.ground(path, rule.ID, content, &v, report)
		e.emit(sink, report, Issue{
			Path:        path,
			Line:        line,
			Column:      column,
			Severity:    severity,
			Message:     fmt.Sprintf("%s: %s", spec.Name, v.Analysis),
			RuleID:      rule.ID,
			MatchedText: matched,
			Suggestion:  v.Suggestion,
			ScoreText:   scoreText(res.RawScore),
		})
	}
}

func (e *Engine) finalizeSemiObjective(path, content string, rule *rules.Rule, out *ruleOutcome, sink IssueSink, report *FileReport) {
	strictness := rule.Strictness.Resolve()
	ds := scoring.ScoreDensity(len(out.violations), out.wordCount, strictness)
	severity := scoring.DensitySeverity(ds, rule.Severity, e.defaultSeverity)

	report.Scores = append(report.Scores, RuleScore{
		RuleID: rule.ID,
		Kind:   string(rule.Kind),
		Final:  ds.Final,
	})

	text := fmt.Sprintf("%.1f/10 (%.0f%%)", ds.Final, ds.RawPercent)
	for _, v := range out.violations {
		line, column, matched := e.ground(path, rule.ID, content, &v, report)
		e.emit(sink, report, Issue{
			Path:        path,
			Line:        line,
			Column:      column,
			Severity:    severity,
			Message:     fmt.Sprintf("%s: %s", ruleTitle(rule), v.Analysis),
			RuleID:      rule.ID,
			MatchedText: matched,
			Suggestion:  v.Suggestion,
			ScoreText:   text,
		})
	}
}

// ground maps a violation's evidence to a source location. A grounding
// failure is an operational error; the finding is still reported at the 1:1
// fallback with best-effort text rather than dropped.
func (e *Engine) ground(path, ruleID, content string, v *scoring.Violation, report *FileReport) (line, column int, matched string) {
	if v.Anchors != nil && (v.Anchors.Pre != "" || v.Anchors.Post != "") {
		if m := evidence.LocateBetweenAnchors(content, *v.Anchors); m != nil {
			return m.Line, m.Column, m.Match
		}
	} else if m := evidence.Locate(content, v.Evidence, e.minConfidence); m != nil {
		return m.Line, m.Column, m.MatchedText
	}

	report.Totals.HadOperationalErrors = true
	metricGroundingMisses.Inc()
	e.logger.Warn("evidence grounding failed",
		"path", path, "rule", ruleID,
		"quote", v.Evidence.Quote, "error", ErrGroundingFailed)
	return 1, 1, v.Evidence.Quote
}

func (e *Engine) emit(sink IssueSink, report *FileReport, issue Issue) {
	switch issue.Severity {
	case rules.SeverityError:
		report.Totals.Errors++
		report.Totals.HadSeverityErrors = true
	default:
		report.Totals.Warnings++
	}
	metricFindings.WithLabelValues(string(issue.Severity)).Inc()
	sink.Emit(issue)
}

// loadSnapshot decodes the per-file cache entry: a map of rule id to that
// rule's raw model response.
func (e *Engine) loadSnapshot(key string) map[string]json.RawMessage {
	snapshot := make(map[string]json.RawMessage)
	if e.store == nil {
		return snapshot
	}
	data, ok := e.store.Get(key)
	if !ok {
		return snapshot
	}
	if err := json.Unmarshal(data, &snapshot); err != nil {
		e.logger.Warn("discarding undecodable cache snapshot", "key", key, "error", err)
		return make(map[string]json.RawMessage)
	}
	return snapshot
}

func (e *Engine) writeSnapshot(key string, snapshot map[string]json.RawMessage) {
	data, err := json.Marshal(snapshot)
	if err != nil {
		return
	}
	e.store.Set(key, data)
}

// suggestionFor picks the most specific declared suggestion: the effective
// (criterion-level) target's own, falling back to the rule-level one.
func suggestionFor(global, criterion *rules.TargetSpec) string {
	if criterion != nil && criterion.Suggestion != "" {
		return criterion.Suggestion
	}
	if criterion == nil && global != nil {
		return global.Suggestion
	}
	if global != nil {
		return global.Suggestion
	}
	return ""
}

// gatedComponents maps gating failures to zero-point, full-weight score
// components.
func gatedComponents(gated []gatedCriterion) []scoring.ScoreComponent {
	components := make([]scoring.ScoreComponent, 0, len(gated))
	for _, g := range gated {
		components = append(components, scoring.Component(g.name, 0, g.weight))
	}
	return components
}

// dedupeViolations drops repeats across chunk boundaries, keyed by the
// normalized analysis text. First occurrence wins.
func dedupeViolations(all []scoring.Violation) []scoring.Violation {
	seen := make(map[string]struct{}, len(all))
	out := make([]scoring.Violation, 0, len(all))
	for _, v := range all {
		k := normalizeName(v.Analysis)
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, v)
	}
	return out
}

func joinNonEmpty(parts []string) string {
	return strings.Join(parts, " ")
}

func scoreText(raw int) string {
	return fmt.Sprintf("%d/4 (%.1f/10)", raw, scoring.Normalize(raw))
}
