// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package target

import (
	"testing"

	"github.com/TRocket-Labs/vectorlint-sub000/services/rules"
)

func TestCheckNoTarget(t *testing.T) {
	res := Check("any content", nil, nil)
	if res.Missing {
		t.Error("no configured target must never be missing")
	}
}

func TestCheckRequiredHeadingPresent(t *testing.T) {
	spec := &rules.TargetSpec{Regex: `^#\s+(.+)$`, Required: true}
	res := Check("# Title\n\nBody text.\n", spec, nil)
	if res.Missing {
		t.Error("heading present, Missing = true")
	}
	if !res.Required {
		t.Error("Required flag not propagated")
	}
}

func TestCheckRequiredHeadingMissing(t *testing.T) {
	spec := &rules.TargetSpec{
		Regex:      `^#\s+(.+)$`,
		Required:   true,
		Suggestion: "Add a top-level heading",
	}
	res := Check("No heading here, just prose.\n", spec, nil)
	if !res.Missing || !res.Required {
		t.Fatalf("got %+v, want missing required", res)
	}
	if res.Suggestion != "Add a top-level heading" {
		t.Errorf("Suggestion = %q", res.Suggestion)
	}
}

func TestCheckOptionalMissing(t *testing.T) {
	spec := &rules.TargetSpec{Regex: `ZZZ_NEVER`, Required: false}
	res := Check("content", spec, nil)
	if !res.Missing {
		t.Error("optional target absent, Missing = false")
	}
	if res.Required {
		t.Error("Required = true for an optional target")
	}
}

func TestCheckCriterionReplacesGlobal(t *testing.T) {
	// The rule-level target matches, the criterion-level one does not.
	// Replacement semantics mean the criterion result wins outright.
	global := &rules.TargetSpec{Regex: `Body`, Required: true}
	criterion := &rules.TargetSpec{Regex: `ZZZ_NEVER`, Required: true}
	res := Check("# Title\n\nBody text.\n", global, criterion)
	if !res.Missing {
		t.Error("criterion target must fully replace the global target")
	}
}

func TestCheckFlags(t *testing.T) {
	tests := []struct {
		name    string
		spec    rules.TargetSpec
		content string
		missing bool
	}{
		{"case-insensitive", rules.TargetSpec{Regex: `title`, Flags: "i"}, "# TITLE\n", false},
		{"case-sensitive default", rules.TargetSpec{Regex: `title`}, "# TITLE\n", true},
		{"dotall", rules.TargetSpec{Regex: `start.end`, Flags: "s"}, "start\nend", false},
		{"multiline anchors default", rules.TargetSpec{Regex: `^end$`}, "start\nend", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := Check(tt.content, &tt.spec, nil)
			if res.Missing != tt.missing {
				t.Errorf("Missing = %v, want %v", res.Missing, tt.missing)
			}
		})
	}
}

func TestCheckInvalidRegex(t *testing.T) {
	// Required: fail closed. Optional: silently ignored.
	required := &rules.TargetSpec{Regex: `([unclosed`, Required: true, Suggestion: "fix me"}
	res := Check("content", required, nil)
	if !res.Missing || !res.Required || res.Suggestion != "fix me" {
		t.Errorf("required invalid regex: got %+v, want fail-closed", res)
	}

	optional := &rules.TargetSpec{Regex: `([unclosed`, Required: false}
	if res := Check("content", optional, nil); res.Missing {
		t.Errorf("optional invalid regex: got %+v, want ignored", res)
	}
}

func TestCheckUnknownFlagRejected(t *testing.T) {
	// An unknown flag character renders the pattern uncompilable, which for
	// a required target means fail-closed.
	spec := &rules.TargetSpec{Regex: `x`, Flags: "q", Required: true}
	res := Check("x marks the spot", spec, nil)
	if !res.Missing {
		t.Errorf("got %+v, want missing for unknown flag", res)
	}
}
