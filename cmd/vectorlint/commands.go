// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package main

import (
	"github.com/spf13/cobra"

	"github.com/TRocket-Labs/vectorlint-sub000/cmd/vectorlint/config"
	"github.com/TRocket-Labs/vectorlint-sub000/pkg/logging"
)

// Exit codes. A clean run exits 0, severity-error findings exit 1, and any
// failure to complete the run exits 2.
const (
	ExitSuccess  = 0
	ExitFindings = 1
	ExitRunError = 2
)

// --- Global Command Variables ---
var (
	flagProvider          string
	flagModel             string
	flagRulesDir          string
	flagConcurrency       int
	flagMinConfidence     int
	flagJSON              bool
	flagQuiet             bool
	flagNoColor           bool
	flagFailOnOperational bool
	flagDebounceMs        int

	logger = logging.Default()

	rootCmd = &cobra.Command{
		Use:   "vectorlint",
		Short: "A model-backed prose linter for documentation and content",
		Long: `vectorlint evaluates documents against natural-language rule packs.
Rules are judged by a language model; every finding is grounded back to an
exact location in the source before it is reported.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := config.Load(); err != nil {
				return err
			}
			applyFlagOverrides()
			logger = logging.New(logging.Config{
				Level:   logging.ParseLevel(config.Global.Logging.Level),
				LogDir:  config.Global.Logging.Dir,
				Service: "cli",
				JSON:    config.Global.Logging.JSON,
				Quiet:   flagQuiet,
			})
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			logger.Close()
		},
	}

	checkCmd = &cobra.Command{
		Use:   "check [path...]",
		Short: "Lint files or directories against the configured rule packs",
		Args:  cobra.MinimumNArgs(1),
		RunE:  runCheck, // Defined in cmd_check.go
	}

	rulesCmd = &cobra.Command{
		Use:   "rules",
		Short: "Inspect the configured rule packs",
	}
	rulesListCmd = &cobra.Command{
		Use:   "list",
		Short: "List every discovered rule",
		RunE:  runRulesList, // Defined in cmd_rules.go
	}
	rulesValidateCmd = &cobra.Command{
		Use:   "validate",
		Short: "Load all packs and report structural problems",
		RunE:  runRulesValidate, // Defined in cmd_rules.go
	}

	watchCmd = &cobra.Command{
		Use:   "watch [path...]",
		Short: "Re-lint files as they change",
		Args:  cobra.MinimumNArgs(1),
		RunE:  runWatch, // Defined in cmd_watch.go
	}
)

func init() {
	rootCmd.PersistentFlags().StringVar(&flagProvider, "provider", "", "model provider (openai, anthropic, ollama)")
	rootCmd.PersistentFlags().StringVar(&flagModel, "model", "", "model identifier")
	rootCmd.PersistentFlags().StringVar(&flagRulesDir, "rules", "", "rule pack directory")
	rootCmd.PersistentFlags().BoolVar(&flagQuiet, "quiet", false, "suppress log output")

	checkCmd.Flags().IntVar(&flagConcurrency, "concurrency", 0, "parallel rule evaluations per file")
	checkCmd.Flags().IntVar(&flagMinConfidence, "min-confidence", 0, "evidence grounding threshold (0-100)")
	checkCmd.Flags().BoolVar(&flagJSON, "json", false, "emit machine-readable JSON")
	checkCmd.Flags().BoolVar(&flagNoColor, "no-color", false, "disable colored output")
	checkCmd.Flags().BoolVar(&flagFailOnOperational, "fail-on-operational", false,
		"exit nonzero when any rule evaluation failed operationally")

	watchCmd.Flags().IntVar(&flagDebounceMs, "debounce", 400, "milliseconds to coalesce rapid file events")
	watchCmd.Flags().BoolVar(&flagNoColor, "no-color", false, "disable colored output")

	rulesCmd.AddCommand(rulesListCmd, rulesValidateCmd)
	rootCmd.AddCommand(checkCmd, rulesCmd, watchCmd)
}

// applyFlagOverrides lets command-line flags win over file config.
func applyFlagOverrides() {
	if flagProvider != "" {
		config.Global.Provider.Name = flagProvider
	}
	if flagModel != "" {
		config.Global.Provider.Model = flagModel
	}
	if flagRulesDir != "" {
		config.Global.Rules.Dir = flagRulesDir
	}
	if flagConcurrency > 0 {
		config.Global.Run.Concurrency = flagConcurrency
	}
	if flagMinConfidence > 0 {
		config.Global.Run.MinConfidence = flagMinConfidence
	}
}
