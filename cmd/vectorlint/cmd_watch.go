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
	"context"
	"fmt"
	"io/fs"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"

	"github.com/TRocket-Labs/vectorlint-sub000/cmd/vectorlint/config"
	"github.com/TRocket-Labs/vectorlint-sub000/services/lint"
	"github.com/TRocket-Labs/vectorlint-sub000/services/rules"
)

// runWatch lints the targets once, then re-lints individual files as they
// change. The in-memory result cache makes unchanged-rule re-runs cheap.
func runWatch(cmd *cobra.Command, args []string) error {
	store := lint.NewMemoryStore()
	if !config.Global.Run.Cache {
		store = nil
	}
	var engineStore lint.Store
	if store != nil {
		engineStore = store
	}
	engine, err := buildEngine(engineStore)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	renderer := newTextRenderer(os.Stdout, flagNoColor)

	targets, err := collectTargets(args)
	if err != nil {
		return err
	}
	if report, err := engine.Run(ctx, targets, renderer); err != nil {
		return err
	} else {
		renderer.Summary(report)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating watcher: %w", err)
	}
	defer watcher.Close()

	for _, arg := range args {
		if err := addWatchDirs(watcher, arg); err != nil {
			return err
		}
	}

	matcher := rules.NewGlobMatcher(rules.DefaultTargets, rules.DefaultExcludes)
	debounce := time.Duration(flagDebounceMs) * time.Millisecond
	pending := make(map[string]struct{})
	var timer *time.Timer
	var timerC <-chan time.Time

	logger.Info("watching for changes", "paths", args, "debounce", debounce)

	for {
		select {
		case <-ctx.Done():
			logger.Info("watch stopped")
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			if event.Op&fsnotify.Create != 0 && maybeWatchNewDir(watcher, event.Name) {
				continue
			}
			path := filepath.ToSlash(filepath.Clean(event.Name))
			if !matcher.Match(path) {
				continue
			}
			pending[path] = struct{}{}
			if timer == nil {
				timer = time.NewTimer(debounce)
			} else {
				timer.Reset(debounce)
			}
			timerC = timer.C

		case <-timerC:
			timerC = nil
			for path := range pending {
				delete(pending, path)
				relintFile(ctx, engine, renderer, path)
			}

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logger.Warn("watcher error", "error", err)
		}
	}
}

func relintFile(ctx context.Context, engine *lint.Engine, renderer *textRenderer, path string) {
	data, err := os.ReadFile(path)
	if err != nil {
		logger.Warn("skipping unreadable file", "path", path, "error", err)
		return
	}
	fmt.Printf("\n--- %s changed, re-linting ---\n", path)
	report, err := engine.LintFile(ctx, path, string(data), renderer)
	if err != nil {
		logger.Error("lint failed", "path", path, "error", err)
		return
	}
	t := report.Totals
	fmt.Printf("%d error(s), %d warning(s)\n", t.Errors, t.Warnings)
}

// maybeWatchNewDir registers a freshly created directory (and anything
// already nested under it) with the watcher. Directories created after watch
// start are invisible to fsnotify until added.
func maybeWatchNewDir(watcher *fsnotify.Watcher, name string) bool {
	info, err := os.Stat(name)
	if err != nil || !info.IsDir() {
		return false
	}
	if err := addWatchDirs(watcher, name); err != nil {
		logger.Warn("cannot watch new directory", "path", name, "error", err)
	}
	return true
}

// addWatchDirs registers arg and, when it is a directory, every
// subdirectory. fsnotify watches are per-directory, not recursive.
func addWatchDirs(watcher *fsnotify.Watcher, arg string) error {
	info, err := os.Stat(arg)
	if err != nil {
		return fmt.Errorf("stat %s: %w", arg, err)
	}
	if !info.IsDir() {
		return watcher.Add(filepath.Dir(arg))
	}
	return filepath.WalkDir(arg, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return watcher.Add(path)
		}
		return nil
	})
}
