// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package target implements the deterministic regex precheck that can
// short-circuit a criterion without any model call. The gate runs strictly
// before the provider so its outcome is reproducible independent of model
// variance.
package target

import (
	"log/slog"
	"regexp"
	"strings"

	"github.com/TRocket-Labs/vectorlint-sub000/services/rules"
)

// Result is the outcome of a gate check.
type Result struct {
	// Missing is true when a configured target regex found no match
	// (or could not compile and the target was required).
	Missing bool

	// Required mirrors the effective target's required flag; only a
	// missing required target short-circuits the criterion.
	Required bool

	// Suggestion is the most specific declared suggestion for the
	// missing target, empty when none was declared.
	Suggestion string
}

// Check evaluates the effective target for a criterion against content.
//
// A criterion-level target fully replaces the global (rule-level) target,
// never merges with it. With no target configured, or an empty regex, the
// result is never missing. An invalid regex fails closed (missing) only when
// the target is required; an optional malformed target is silently ignored.
func Check(content string, global, criterion *rules.TargetSpec) Result {
	spec := criterion
	if spec == nil {
		spec = global
	}
	if spec == nil || spec.Regex == "" {
		return Result{}
	}

	re, err := compile(spec)
	if err != nil {
		if spec.Required {
			slog.Debug("required target regex invalid, failing closed",
				"regex", spec.Regex, "error", err)
			return Result{Missing: true, Required: true, Suggestion: spec.Suggestion}
		}
		return Result{}
	}

	if re.MatchString(content) {
		return Result{Required: spec.Required}
	}
	return Result{Missing: true, Required: spec.Required, Suggestion: spec.Suggestion}
}

// compile builds the pattern with multiline semantics on by default.
// Flags may add case-insensitivity ("i") or dot-matches-newline ("s");
// "m" is accepted and redundant. Unknown flag characters are rejected by
// the regexp engine via an impossible inline group, which keeps the
// invalid-pattern handling in one place.
func compile(spec *rules.TargetSpec) (*regexp.Regexp, error) {
	inline := "m"
	for _, f := range spec.Flags {
		switch f {
		case 'i', 's':
			if !strings.ContainsRune(inline, f) {
				inline += string(f)
			}
		case 'm':
			// already on
		default:
			inline += string(f)
		}
	}
	return regexp.Compile("(?" + inline + ")" + spec.Regex)
}
