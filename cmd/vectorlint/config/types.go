// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package config

import "github.com/TRocket-Labs/vectorlint-sub000/services/rules"

// VectorlintConfig is the user-level configuration file shape.
type VectorlintConfig struct {
	Provider ProviderConfig `yaml:"provider"`
	Rules    RulesConfig    `yaml:"rules"`
	Run      RunConfig      `yaml:"run"`
	Logging  LoggingConfig  `yaml:"logging"`

	// Overrides adjust rules per path glob, merged in declaration order.
	Overrides []rules.OverrideBlock `yaml:"overrides,omitempty"`
}

// ProviderConfig selects the model backend.
type ProviderConfig struct {
	// Name is one of openai, anthropic, ollama.
	Name string `yaml:"name"`

	// Model is the provider-specific model identifier.
	Model string `yaml:"model"`

	// RequestsPerSecond caps outbound calls; 0 means unlimited.
	RequestsPerSecond float64 `yaml:"requests_per_second"`
}

// RulesConfig locates rule packs.
type RulesConfig struct {
	// Dir is the root searched for pack files.
	Dir string `yaml:"dir"`

	// Patterns are pack filename globs relative to Dir.
	Patterns []string `yaml:"patterns"`
}

// RunConfig tunes the lint engine.
type RunConfig struct {
	// Concurrency bounds parallel rule evaluation within one file.
	Concurrency int `yaml:"concurrency"`

	// MinConfidence is the evidence grounding threshold (0-100).
	MinConfidence int `yaml:"min_confidence"`

	// ChunkWordThreshold triggers document splitting.
	ChunkWordThreshold int `yaml:"chunk_word_threshold"`

	// Cache enables in-process result caching across watch iterations.
	Cache bool `yaml:"cache"`
}

// LoggingConfig mirrors pkg/logging.Config in file form.
type LoggingConfig struct {
	Level string `yaml:"level"`
	Dir   string `yaml:"dir"`
	JSON  bool   `yaml:"json"`
}

// DefaultConfig is written on first run.
func DefaultConfig() VectorlintConfig {
	return VectorlintConfig{
		Provider: ProviderConfig{
			Name:              "openai",
			Model:             "gpt-4o-mini",
			RequestsPerSecond: 2,
		},
		Rules: RulesConfig{
			Dir:      ".",
			Patterns: []string{".vectorlint/*.yaml", "rules/*.yaml"},
		},
		Run: RunConfig{
			Concurrency:        4,
			MinConfidence:      80,
			ChunkWordThreshold: 2000,
			Cache:              true,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}
