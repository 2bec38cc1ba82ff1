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

// Override adjusts one rule for a subset of paths.
type Override struct {
	// Skip disables the rule entirely for matching paths.
	Skip bool `yaml:"skip,omitempty" json:"skip,omitempty"`

	// Severity replaces the rule's declared severity when non-empty.
	Severity Severity `yaml:"severity,omitempty" json:"severity,omitempty"`

	// Strictness replaces a semi-objective rule's strictness when positive.
	Strictness float64 `yaml:"strictness,omitempty" json:"strictness,omitempty"`
}

// OverrideBlock pairs a set of path globs with per-rule overrides.
type OverrideBlock struct {
	Files []string            `yaml:"files" json:"files"`
	Rules map[string]Override `yaml:"rules" json:"rules"`
}

// Overrides maps rule id to the merged override for one path.
type Overrides map[string]Override

// Resolver returns the applicable rule subset and the merged override map
// for a document path. Glob specificity and cascading beyond in-order merge
// are deliberately out of scope.
type Resolver interface {
	RulesFor(path string) ([]Rule, Overrides)
}

// GlobResolver resolves rules by their applies/excludes globs and merges
// override blocks in declaration order, later blocks winning per field.
type GlobResolver struct {
	rules  []Rule
	blocks []OverrideBlock
}

// NewGlobResolver creates a resolver over a loaded rule set.
func NewGlobResolver(all []Rule, blocks []OverrideBlock) *GlobResolver {
	return &GlobResolver{rules: all, blocks: blocks}
}

// RulesFor implements Resolver.
func (r *GlobResolver) RulesFor(path string) ([]Rule, Overrides) {
	merged := make(Overrides)
	for _, block := range r.blocks {
		matcher := NewGlobMatcher(block.Files, nil)
		if !matcher.Match(path) {
			continue
		}
		for id, o := range block.Rules {
			prev := merged[id]
			if o.Skip {
				prev.Skip = true
			}
			if o.Severity != "" {
				prev.Severity = o.Severity
			}
			if o.Strictness > 0 {
				prev.Strictness = o.Strictness
			}
			merged[id] = prev
		}
	}

	var applicable []Rule
	for i := range r.rules {
		rule := r.rules[i]
		if !rule.AppliesTo(path) {
			continue
		}
		if o, ok := merged[rule.ID]; ok {
			if o.Skip {
				continue
			}
			if o.Severity != "" {
				rule.Severity = o.Severity
			}
			if o.Strictness > 0 {
				rule.Strictness = Strictness{Value: o.Strictness}
			}
		}
		applicable = append(applicable, rule)
	}
	return applicable, merged
}
