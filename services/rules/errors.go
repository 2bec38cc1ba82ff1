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

import "errors"

// Sentinel errors for the rules package.
var (
	// ErrNoCriteria indicates a subjective rule with an empty criteria list.
	ErrNoCriteria = errors.New("subjective rule has no criteria")

	// ErrDuplicateCriterion indicates a criterion id repeated within a rule.
	ErrDuplicateCriterion = errors.New("duplicate criterion id")

	// ErrNoPacks indicates discovery matched no rule-pack files.
	ErrNoPacks = errors.New("no rule packs found")

	// ErrDuplicateRule indicates the same rule id in more than one pack.
	ErrDuplicateRule = errors.New("duplicate rule id")
)
