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

import "errors"

// Sentinel errors for the lint package.
//
// The taxonomy separates operational errors (the run itself misbehaved:
// grounding failed, a model broke its contract) from severity errors (a
// criterion legitimately scored as an error). Only severity errors determine
// pass/fail exit status; operational errors are surfaced through counters.
var (
	// ErrMissingCriterion indicates the model omitted a declared criterion.
	ErrMissingCriterion = errors.New("model response missing expected criterion")

	// ErrScoreOutOfRange indicates a model score outside [0,4].
	ErrScoreOutOfRange = errors.New("model score out of range")

	// ErrGroundingFailed indicates no confident match for claimed evidence.
	ErrGroundingFailed = errors.New("evidence could not be grounded")

	// ErrNoProvider indicates the engine was built without a model backend.
	ErrNoProvider = errors.New("no LLM provider configured")
)
