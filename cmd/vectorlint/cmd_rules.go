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
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/TRocket-Labs/vectorlint-sub000/cmd/vectorlint/config"
	"github.com/TRocket-Labs/vectorlint-sub000/services/rules"
)

func runRulesList(cmd *cobra.Command, args []string) error {
	cfg := config.Global
	ruleSet, err := rules.Discover(cfg.Rules.Dir, cfg.Rules.Patterns)
	if err != nil {
		return fmt.Errorf("loading rule packs: %w", err)
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tKIND\tSEVERITY\tCRITERIA\tPACK")
	for _, r := range ruleSet {
		criteria := "-"
		if r.Kind == rules.KindSubjective {
			criteria = fmt.Sprintf("%d", len(r.Criteria))
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
			r.ID, r.Kind, r.Severity, criteria, r.PackPath)
	}
	if err := w.Flush(); err != nil {
		return err
	}
	fmt.Printf("\n%d rule(s)\n", len(ruleSet))
	return nil
}

func runRulesValidate(cmd *cobra.Command, args []string) error {
	cfg := config.Global
	ruleSet, err := rules.Discover(cfg.Rules.Dir, cfg.Rules.Patterns)
	if err != nil {
		fmt.Fprintf(os.Stderr, "invalid: %v\n", err)
		os.Exit(ExitFindings)
	}
	fmt.Printf("ok: %d rule(s) loaded from %s\n", len(ruleSet), cfg.Rules.Dir)
	return nil
}
