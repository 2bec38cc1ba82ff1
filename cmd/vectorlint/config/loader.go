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

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"gopkg.in/yaml.v3"
)

var (
	// Global is a singleton instance
	Global VectorlintConfig
	once   sync.Once
)

// Load ensures the config is loaded into the Global variable. A repo-local
// .vectorlint.yaml takes precedence over ~/.vectorlint/vectorlint.yaml; the
// user-level file is created with defaults on first run.
func Load() error {
	var err error
	once.Do(func() {
		err = loadInternal()
	})
	return err
}

func loadInternal() error {
	if data, err := os.ReadFile(".vectorlint.yaml"); err == nil {
		if err := yaml.Unmarshal(data, &Global); err != nil {
			return fmt.Errorf("failed to parse .vectorlint.yaml: %w", err)
		}
		applyDefaults(&Global)
		return nil
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return fmt.Errorf("could not find the user's home directory: %w", err)
	}
	configPath := filepath.Join(home, ".vectorlint", "vectorlint.yaml")
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		fmt.Fprintf(os.Stderr, "First run detected, creating the config at %s\n", configPath)
		if err := createDefault(configPath); err != nil {
			return err
		}
	}
	data, err := os.ReadFile(configPath)
	if err != nil {
		return fmt.Errorf("failed to read the config file: %w", err)
	}
	if err = yaml.Unmarshal(data, &Global); err != nil {
		return fmt.Errorf("failed to parse the config file: %w", err)
	}
	applyDefaults(&Global)
	return nil
}

func createDefault(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create the config directory: %w", err)
	}
	data, err := yaml.Marshal(DefaultConfig())
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// applyDefaults fills fields a partial config file left empty.
func applyDefaults(c *VectorlintConfig) {
	def := DefaultConfig()
	if c.Provider.Name == "" {
		c.Provider.Name = def.Provider.Name
	}
	if c.Provider.Model == "" {
		c.Provider.Model = def.Provider.Model
	}
	if c.Rules.Dir == "" {
		c.Rules.Dir = def.Rules.Dir
	}
	if len(c.Rules.Patterns) == 0 {
		c.Rules.Patterns = def.Rules.Patterns
	}
	if c.Run.Concurrency <= 0 {
		c.Run.Concurrency = def.Run.Concurrency
	}
	if c.Run.MinConfidence <= 0 {
		c.Run.MinConfidence = def.Run.MinConfidence
	}
	if c.Run.ChunkWordThreshold <= 0 {
		c.Run.ChunkWordThreshold = def.Run.ChunkWordThreshold
	}
	if c.Logging.Level == "" {
		c.Logging.Level = def.Logging.Level
	}
}
