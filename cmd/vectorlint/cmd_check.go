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
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"

	"github.com/spf13/cobra"
	"golang.org/x/time/rate"

	"github.com/TRocket-Labs/vectorlint-sub000/cmd/vectorlint/config"
	"github.com/TRocket-Labs/vectorlint-sub000/services/lint"
	"github.com/TRocket-Labs/vectorlint-sub000/services/llm"
	"github.com/TRocket-Labs/vectorlint-sub000/services/rules"
)

func runCheck(cmd *cobra.Command, args []string) error {
	engine, err := buildEngine(nil)
	if err != nil {
		return err
	}

	targets, err := collectTargets(args)
	if err != nil {
		return err
	}
	if len(targets) == 0 {
		logger.Warn("no lintable files found", "args", args)
		return nil
	}

	if flagJSON {
		report, err := engine.Run(cmd.Context(), targets, discardSink{})
		if err != nil {
			return err
		}
		if err := outputJSON(report); err != nil {
			return err
		}
		exitForTotals(report.Totals)
		return nil
	}

	renderer := newTextRenderer(os.Stdout, flagNoColor)
	report, err := engine.Run(cmd.Context(), targets, renderer)
	if err != nil {
		return err
	}
	renderer.Summary(report)
	exitForTotals(report.Totals)
	return nil
}

// exitForTotals maps run totals to the process exit code. Severity-error
// findings exit 1; operational failures exit 2 only when the caller opted in.
func exitForTotals(t lint.Totals) {
	logger.Close()
	if flagFailOnOperational && t.HadOperationalErrors {
		os.Exit(ExitRunError)
	}
	if t.HadSeverityErrors {
		os.Exit(ExitFindings)
	}
	os.Exit(ExitSuccess)
}

// buildEngine wires the provider, rule set, and engine from global config.
// store may be nil for one-shot runs.
func buildEngine(store lint.Store) (*lint.Engine, error) {
	cfg := config.Global

	ruleSet, err := rules.Discover(cfg.Rules.Dir, cfg.Rules.Patterns)
	if err != nil {
		return nil, fmt.Errorf("loading rule packs: %w", err)
	}
	if len(ruleSet) == 0 {
		return nil, fmt.Errorf("no rules found under %s (patterns %v)", cfg.Rules.Dir, cfg.Rules.Patterns)
	}
	logger.Info("loaded rules", "count", len(ruleSet), "dir", cfg.Rules.Dir)

	provider, err := llm.NewClient(cfg.Provider.Name, cfg.Provider.Model)
	if err != nil {
		return nil, fmt.Errorf("creating provider %q: %w", cfg.Provider.Name, err)
	}

	resolver := rules.NewGlobResolver(ruleSet, cfg.Overrides)
	return lint.New(provider, resolver, lint.Options{
		Concurrency:        cfg.Run.Concurrency,
		MinConfidence:      cfg.Run.MinConfidence,
		ChunkWordThreshold: cfg.Run.ChunkWordThreshold,
		RateLimit:          rate.Limit(cfg.Provider.RequestsPerSecond),
		Store:              store,
		Logger:             logger.Slog(),
	}), nil
}

// collectTargets expands the positional arguments into lintable files.
// Directories are walked recursively through the default target globs;
// explicitly named files are always included.
func collectTargets(args []string) ([]lint.Target, error) {
	matcher := rules.NewGlobMatcher(rules.DefaultTargets, rules.DefaultExcludes)

	var paths []string
	seen := make(map[string]struct{})
	add := func(p string) {
		p = filepath.ToSlash(filepath.Clean(p))
		if _, ok := seen[p]; !ok {
			seen[p] = struct{}{}
			paths = append(paths, p)
		}
	}

	for _, arg := range args {
		info, err := os.Stat(arg)
		if err != nil {
			return nil, fmt.Errorf("stat %s: %w", arg, err)
		}
		if !info.IsDir() {
			add(arg)
			continue
		}
		err = filepath.WalkDir(arg, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if d.IsDir() {
				return nil
			}
			if matcher.Match(filepath.ToSlash(path)) {
				add(path)
			}
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("walking %s: %w", arg, err)
		}
	}
	sort.Strings(paths)

	targets := make([]lint.Target, 0, len(paths))
	for _, p := range paths {
		data, err := os.ReadFile(p)
		if err != nil {
			return nil, fmt.Errorf("reading %s: %w", p, err)
		}
		targets = append(targets, lint.Target{Path: p, Content: string(data)})
	}
	return targets, nil
}
