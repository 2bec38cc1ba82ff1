// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package rules

import (
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"sync"

	"github.com/go-playground/validator/v10"
	"golang.org/x/sync/errgroup"
	"gopkg.in/yaml.v3"
)

// packLoadConcurrency bounds parallel pack parsing during discovery.
const packLoadConcurrency = 8

var validate = validator.New()

// LoadPack reads and validates one YAML rule-pack file.
func LoadPack(path string) (*Pack, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read rule pack %s: %w", path, err)
	}

	var pack Pack
	if err := yaml.Unmarshal(data, &pack); err != nil {
		return nil, fmt.Errorf("failed to parse rule pack %s: %w", path, err)
	}

	if err := validate.Struct(&pack); err != nil {
		return nil, fmt.Errorf("invalid rule pack %s: %w", path, err)
	}

	for i := range pack.Rules {
		rule := &pack.Rules[i]
		rule.PackPath = path
		if rule.Severity == "" {
			rule.Severity = SeverityWarning
		}
		if err := rule.Validate(); err != nil {
			return nil, fmt.Errorf("invalid rule pack %s: %w", path, err)
		}
		warnUncompilableTargets(rule)
	}
	return &pack, nil
}

// warnUncompilableTargets surfaces malformed target regexes at load time.
// Evaluation semantics are unchanged: the gate still fails open or closed
// per the target's required flag when the pattern does not compile.
func warnUncompilableTargets(rule *Rule) {
	check := func(owner string, spec *TargetSpec) {
		if spec == nil || spec.Regex == "" {
			return
		}
		if _, err := regexp.Compile(spec.Regex); err != nil {
			slog.Warn("rule target regex does not compile",
				"rule", rule.ID, "owner", owner, "error", err)
		}
	}
	check(rule.ID, rule.Target)
	for i := range rule.Criteria {
		check(rule.Criteria[i].ID, rule.Criteria[i].Target)
	}
}

// Discover finds rule-pack files under root matching the given glob patterns
// and loads them concurrently. Rules are returned sorted by id, and a rule id
// appearing in more than one pack is an error.
func Discover(root string, patterns []string) ([]Rule, error) {
	if len(patterns) == 0 {
		patterns = []string{".vectorlint/rules/*.yaml", ".vectorlint/rules/*.yml"}
	}
	matcher := NewGlobMatcher(patterns, nil)

	var paths []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		rel, relErr := filepath.Rel(root, path)
		if relErr != nil {
			rel = path
		}
		if matcher.Match(rel) {
			paths = append(paths, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("rule pack discovery failed: %w", err)
	}
	if len(paths) == 0 {
		return nil, fmt.Errorf("%w under %s (patterns %v)", ErrNoPacks, root, patterns)
	}
	sort.Strings(paths)

	var (
		mu    sync.Mutex
		packs = make(map[string]*Pack, len(paths))
	)
	var g errgroup.Group
	g.SetLimit(packLoadConcurrency)
	for _, path := range paths {
		path := path
		g.Go(func() error {
			pack, err := LoadPack(path)
			if err != nil {
				return err
			}
			mu.Lock()
			packs[path] = pack
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var all []Rule
	seen := make(map[string]string)
	for _, path := range paths {
		for _, rule := range packs[path].Rules {
			if prev, dup := seen[rule.ID]; dup {
				return nil, fmt.Errorf("%w: %q in %s and %s", ErrDuplicateRule, rule.ID, prev, path)
			}
			seen[rule.ID] = path
			all = append(all, rule)
		}
	}
	sort.Slice(all, func(i, j int) bool { return all[i].ID < all[j].ID })

	slog.Info("Loaded rule packs", "packs", len(paths), "rules", len(all))
	return all, nil
}
