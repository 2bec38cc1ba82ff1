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
	"encoding/json"
	"fmt"
	"strings"

	"github.com/TRocket-Labs/vectorlint-sub000/services/rules"
	"github.com/TRocket-Labs/vectorlint-sub000/services/scoring"
)

// subjectiveResponse is the structured reply shape for weighted-criteria
// rules.
type subjectiveResponse struct {
	Criteria []scoring.CriterionResult `json:"criteria"`
}

// semiObjectiveResponse is the structured reply shape for violation-density
// rules.
type semiObjectiveResponse struct {
	Violations []scoring.Violation `json:"violations"`
	Summary    string              `json:"summary"`
}

// violationSchema is shared by both reply shapes. Strict-mode providers
// require every property listed in required and additionalProperties false.
var violationSchema = map[string]any{
	"type": "object",
	"properties": map[string]any{
		"analysis":   map[string]any{"type": "string"},
		"suggestion": map[string]any{"type": "string"},
		"evidence": map[string]any{
			"type": "object",
			"properties": map[string]any{
				"quote":          map[string]any{"type": "string"},
				"context_before": map[string]any{"type": "string"},
				"context_after":  map[string]any{"type": "string"},
			},
			"required":             []string{"quote", "context_before", "context_after"},
			"additionalProperties": false,
		},
	},
	"required":             []string{"analysis", "suggestion", "evidence"},
	"additionalProperties": false,
}

// buildSchema returns the JSON schema the provider's reply must satisfy.
// Model scores are 1-4; 0 is reserved for the target gate and never a legal
// model value.
func buildSchema(kind rules.EvalKind) json.RawMessage {
	var root map[string]any
	if kind == rules.KindSemiObjective {
		root = map[string]any{
			"type": "object",
			"properties": map[string]any{
				"violations": map[string]any{"type": "array", "items": violationSchema},
				"summary":    map[string]any{"type": "string"},
			},
			"required":             []string{"violations", "summary"},
			"additionalProperties": false,
		}
	} else {
		root = map[string]any{
			"type": "object",
			"properties": map[string]any{
				"criteria": map[string]any{
					"type": "array",
					"items": map[string]any{
						"type": "object",
						"properties": map[string]any{
							"name":       map[string]any{"type": "string"},
							"score":      map[string]any{"type": "integer", "minimum": 1, "maximum": 4},
							"summary":    map[string]any{"type": "string"},
							"reasoning":  map[string]any{"type": "string"},
							"violations": map[string]any{"type": "array", "items": violationSchema},
						},
						"required":             []string{"name", "score", "summary", "reasoning", "violations"},
						"additionalProperties": false,
					},
				},
			},
			"required":             []string{"criteria"},
			"additionalProperties": false,
		}
	}
	data, err := json.Marshal(root)
	if err != nil {
		// The schema maps above contain only marshalable values.
		panic(err)
	}
	return data
}

// buildSystemPrompt renders the evaluation instructions for one rule.
// live is the criterion subset that survived the target gate.
func buildSystemPrompt(rule *rules.Rule, live []rules.CriterionSpec) string {
	var b strings.Builder
	b.WriteString("You are a strict, consistent prose reviewer. Evaluate the user's document against the rule below.\n\n")
	fmt.Fprintf(&b, "Rule: %s\n", ruleTitle(rule))
	b.WriteString(strings.TrimSpace(rule.Instructions))
	b.WriteString("\n\n")

	if rule.Kind == rules.KindSemiObjective {
		b.WriteString("List every individual violation you find. Report each one once.\n")
	} else {
		b.WriteString("Score each criterion from 1 (severe problems) to 4 (no problems):\n")
		for _, c := range live {
			fmt.Fprintf(&b, "- %s", c.Name)
			if ins := strings.TrimSpace(c.Instructions); ins != "" {
				fmt.Fprintf(&b, ": %s", ins)
			}
			b.WriteString("\n")
		}
		b.WriteString("Return one entry per criterion, using the criterion names exactly as given.\n")
	}

	b.WriteString("\nFor every violation, quote the offending text EXACTLY as it appears in the document, ")
	b.WriteString("character for character, and include a few words of the surrounding text as context_before ")
	b.WriteString("and context_after. Do not paraphrase inside the quote.\n")
	return b.String()
}

func ruleTitle(rule *rules.Rule) string {
	if rule.Name != "" {
		return rule.Name
	}
	return rule.ID
}

// parseSubjective decodes and minimally sanity-checks a subjective reply.
func parseSubjective(raw json.RawMessage) ([]scoring.CriterionResult, error) {
	var resp subjectiveResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return nil, fmt.Errorf("malformed model response: %w", err)
	}
	return resp.Criteria, nil
}

// parseSemiObjective decodes a semi-objective reply.
func parseSemiObjective(raw json.RawMessage) ([]scoring.Violation, string, error) {
	var resp semiObjectiveResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return nil, "", fmt.Errorf("malformed model response: %w", err)
	}
	return resp.Violations, resp.Summary, nil
}

// normalizeName is the reconciliation key between declared criteria and
// model-returned names. Matching is by normalized name, never positional.
func normalizeName(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
