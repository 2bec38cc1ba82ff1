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
	"strings"

	"gopkg.in/yaml.v3"
)

// Severity classifies a finding and drives process exit status.
type Severity string

const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
)

// ParseSeverity converts a string to Severity, defaulting to warning.
func ParseSeverity(s string) Severity {
	if strings.EqualFold(s, string(SeverityError)) {
		return SeverityError
	}
	return SeverityWarning
}

func (s *Severity) UnmarshalYAML(value *yaml.Node) error {
	var raw string
	if err := value.Decode(&raw); err != nil {
		return err
	}
	incoming := Severity(raw)
	switch incoming {
	case SeverityError, SeverityWarning:
		*s = incoming
		return nil
	default:
		return fmt.Errorf("invalid value for severity: %q", incoming)
	}
}

// EvalKind selects how a rule's model output is scored.
type EvalKind string

const (
	// KindSubjective rules carry weighted criteria, each scored 0-4 by the model.
	KindSubjective EvalKind = "subjective"

	// KindSemiObjective rules produce a flat violation list scored by density.
	KindSemiObjective EvalKind = "semi-objective"
)

func (k *EvalKind) UnmarshalYAML(value *yaml.Node) error {
	var raw string
	if err := value.Decode(&raw); err != nil {
		return err
	}
	incoming := EvalKind(raw)
	switch incoming {
	case KindSubjective, KindSemiObjective:
		*k = incoming
		return nil
	default:
		return fmt.Errorf("invalid value for kind: %q", incoming)
	}
}

// Strictness tiers for semi-objective scoring.
const (
	StrictnessLenient  = 5.0
	StrictnessStandard = 10.0
	StrictnessStrict   = 20.0
)

// Strictness resolves from a named tier or an explicit positive number.
// The zero value resolves to the standard tier.
type Strictness struct {
	Name  string
	Value float64
}

func (s *Strictness) UnmarshalYAML(value *yaml.Node) error {
	var name string
	if err := value.Decode(&name); err == nil {
		switch name {
		case "lenient":
			*s = Strictness{Name: name, Value: StrictnessLenient}
		case "standard":
			*s = Strictness{Name: name, Value: StrictnessStandard}
		case "strict":
			*s = Strictness{Name: name, Value: StrictnessStrict}
		default:
			return fmt.Errorf("invalid strictness tier: %q", name)
		}
		return nil
	}
	var num float64
	if err := value.Decode(&num); err != nil {
		return fmt.Errorf("strictness must be a tier name or a number")
	}
	if num <= 0 {
		return fmt.Errorf("strictness must be positive, got %v", num)
	}
	*s = Strictness{Value: num}
	return nil
}

// Resolve returns the multiplier, falling back to the standard tier.
func (s Strictness) Resolve() float64 {
	if s.Value <= 0 {
		return StrictnessStandard
	}
	return s.Value
}

// TargetSpec is a deterministic regex precheck attached to a rule or a
// criterion. It is read-only and evaluated fresh per file.
type TargetSpec struct {
	// Regex is searched against the document. Empty means no gate.
	Regex string `yaml:"regex" json:"regex"`

	// Flags holds optional regex flags: "i", "m", "s" in any combination.
	// Multiline is on by default even without "m".
	Flags string `yaml:"flags,omitempty" json:"flags,omitempty"`

	// Group names the capture group of interest, informational only.
	Group string `yaml:"group,omitempty" json:"group,omitempty"`

	// Required makes an absent (or uncompilable) target fail the criterion.
	Required bool `yaml:"required,omitempty" json:"required,omitempty"`

	// Suggestion is surfaced when the target is missing.
	Suggestion string `yaml:"suggestion,omitempty" json:"suggestion,omitempty"`
}

// CriterionSpec is one named, weighted sub-check within a subjective rule.
type CriterionSpec struct {
	ID           string      `yaml:"id" json:"id" validate:"required"`
	Name         string      `yaml:"name" json:"name" validate:"required"`
	Weight       float64     `yaml:"weight" json:"weight" validate:"gt=0"`
	Instructions string      `yaml:"instructions,omitempty" json:"instructions,omitempty"`
	Target       *TargetSpec `yaml:"target,omitempty" json:"target,omitempty"`
}

// Rule is a declarative spec sent to a model to evaluate a document.
type Rule struct {
	ID           string          `yaml:"id" json:"id" validate:"required"`
	Name         string          `yaml:"name" json:"name"`
	Kind         EvalKind        `yaml:"kind" json:"kind" validate:"required"`
	Severity     Severity        `yaml:"severity" json:"severity"`
	Instructions string          `yaml:"instructions" json:"instructions" validate:"required"`
	Applies      []string        `yaml:"applies,omitempty" json:"applies,omitempty"`
	Excludes     []string        `yaml:"excludes,omitempty" json:"excludes,omitempty"`
	Target       *TargetSpec     `yaml:"target,omitempty" json:"target,omitempty"`
	Strictness   Strictness      `yaml:"strictness,omitempty" json:"strictness,omitempty"`
	Criteria     []CriterionSpec `yaml:"criteria,omitempty" json:"criteria,omitempty" validate:"dive"`

	// PackPath records the file the rule was loaded from.
	PackPath string `yaml:"-" json:"-"`

	matcher *GlobMatcher
}

// Pack is one YAML rule-pack file.
type Pack struct {
	Version int    `yaml:"version" json:"version"`
	Rules   []Rule `yaml:"rules" json:"rules" validate:"dive"`
}

// Validate applies the structural checks the yaml tags cannot express:
// unique criterion ids within a rule and criteria presence matching the kind.
func (r *Rule) Validate() error {
	if r.Kind == KindSubjective && len(r.Criteria) == 0 {
		return fmt.Errorf("rule %q: %w", r.ID, ErrNoCriteria)
	}
	seen := make(map[string]struct{}, len(r.Criteria))
	for _, c := range r.Criteria {
		if _, dup := seen[c.ID]; dup {
			return fmt.Errorf("rule %q: criterion %q: %w", r.ID, c.ID, ErrDuplicateCriterion)
		}
		seen[c.ID] = struct{}{}
	}
	return nil
}

// AppliesTo reports whether the rule's applies/excludes globs admit path.
// A rule with no applies patterns matches every path not excluded.
func (r *Rule) AppliesTo(path string) bool {
	if r.matcher == nil {
		r.matcher = NewGlobMatcher(r.Applies, r.Excludes)
	}
	return r.matcher.Match(path)
}

// CriterionTarget returns the effective target for a criterion: the
// criterion-level target fully replaces the rule-level one, never merges.
func (r *Rule) CriterionTarget(c *CriterionSpec) (global, criterion *TargetSpec) {
	return r.Target, c.Target
}
