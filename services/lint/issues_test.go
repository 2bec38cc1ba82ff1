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
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/TRocket-Labs/vectorlint-sub000/services/rules"
)

func TestTotalsAdd(t *testing.T) {
	total := Totals{Errors: 1, Warnings: 2}
	total.Add(Totals{Errors: 3, Warnings: 1, RequestFailures: 2, HadOperationalErrors: true})

	assert.Equal(t, 4, total.Errors)
	assert.Equal(t, 3, total.Warnings)
	assert.Equal(t, 2, total.RequestFailures)
	assert.True(t, total.HadOperationalErrors)
	assert.False(t, total.HadSeverityErrors, "severity flag must not appear from nowhere")

	total.Add(Totals{HadSeverityErrors: true})
	assert.True(t, total.HadSeverityErrors)
	assert.True(t, total.HadOperationalErrors, "flags are sticky across files")
}

func TestIssueCollectorPreservesOrder(t *testing.T) {
	var c issueCollector
	c.Emit(Issue{RuleID: "a", Severity: rules.SeverityError})
	c.Emit(Issue{RuleID: "b", Severity: rules.SeverityWarning})
	c.Emit(Issue{RuleID: "a", Severity: rules.SeverityWarning})

	assert.Len(t, c.issues, 3)
	assert.Equal(t, "a", c.issues[0].RuleID)
	assert.Equal(t, "b", c.issues[1].RuleID)
	assert.Equal(t, rules.SeverityWarning, c.issues[2].Severity)
}
