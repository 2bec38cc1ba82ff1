// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package scoring converts raw model scores and violation counts into
// weighted, bounded, comparable numbers. Everything here is pure and
// synchronous; the orchestrator owns all side effects.
package scoring

import (
	"github.com/TRocket-Labs/vectorlint-sub000/services/evidence"
)

// Raw score bounds for subjective criteria.
const (
	RawScoreMin = 0 // target-missing sentinel, produced only by the gate
	RawScoreMax = 4
)

// Violation is one model-reported infraction, consumed once: grounded, then
// reported. It is not persisted beyond a cache snapshot.
type Violation struct {
	Analysis   string             `json:"analysis"`
	Suggestion string             `json:"suggestion,omitempty"`
	Evidence   evidence.Evidence  `json:"evidence"`
	Anchors    *evidence.Anchors  `json:"anchors,omitempty"`
}

// CriterionResult is the raw model output for one criterion.
type CriterionResult struct {
	Name       string      `json:"name"`
	RawScore   int         `json:"score"`
	Violations []Violation `json:"violations,omitempty"`
	Summary    string      `json:"summary,omitempty"`
	Reasoning  string      `json:"reasoning,omitempty"`
}

// Status classifies a subjective criterion's outcome.
type Status int

const (
	// StatusNone means the criterion passed; nothing is emitted downstream.
	StatusNone Status = iota
	StatusWarning
	StatusError
)

// ScoreComponent is one criterion's contribution to a rule's final score.
type ScoreComponent struct {
	Criterion          string  `json:"criterion"`
	RawScore           int     `json:"raw_score"`
	MaxScore           int     `json:"max_score"`            // always 4
	WeightedScore      float64 `json:"weighted_score"`       // normalized x weight
	WeightedMaxScore   float64 `json:"weighted_max_score"`   // the weight itself
	NormalizedScore    float64 `json:"normalized_score"`     // [0,10]
	NormalizedMaxScore float64 `json:"normalized_max_score"` // always 10
}

// Normalize maps a raw 0-4 score onto [0,10].
//
// For raw in [1,4]: normalized = 1 + (raw-1)/3*9, so 1 -> 1.0 and 4 -> 10.0.
// Raw 0 is the target-missing sentinel and always normalizes to 0; it is
// produced only by the target gate, never by the model-score path.
func Normalize(raw int) float64 {
	if raw <= 0 {
		return 0
	}
	if raw > RawScoreMax {
		raw = RawScoreMax
	}
	return 1 + float64(raw-1)/3*9
}

// StatusOf maps a raw score to its finding status: raw <= 1 is an error,
// raw == 2 a warning, raw >= 3 clean.
func StatusOf(raw int) Status {
	switch {
	case raw <= 1:
		return StatusError
	case raw == 2:
		return StatusWarning
	default:
		return StatusNone
	}
}

// Component builds the score component for one criterion.
func Component(name string, raw int, weight float64) ScoreComponent {
	normalized := Normalize(raw)
	return ScoreComponent{
		Criterion:          name,
		RawScore:           raw,
		MaxScore:           RawScoreMax,
		WeightedScore:      normalized * weight,
		WeightedMaxScore:   weight,
		NormalizedScore:    normalized,
		NormalizedMaxScore: 10,
	}
}

// Aggregate combines components into the rule's final [0,10] score:
// sum of weighted points over sum of weights, 0 when there are no weights.
func Aggregate(components []ScoreComponent) float64 {
	var points, weights float64
	for _, c := range components {
		points += c.WeightedScore
		weights += c.WeightedMaxScore
	}
	if weights == 0 {
		return 0
	}
	return points / weights
}
