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
	"os"
	"path/filepath"
	"slices"
	"testing"

	"github.com/fsnotify/fsnotify"
)

func TestMaybeWatchNewDirRegistersSubtree(t *testing.T) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		t.Fatalf("NewWatcher() error: %v", err)
	}
	defer watcher.Close()

	root := t.TempDir()
	nested := filepath.Join(root, "docs", "guides")
	if err := os.MkdirAll(nested, 0o755); err != nil {
		t.Fatalf("MkdirAll() error: %v", err)
	}

	if !maybeWatchNewDir(watcher, filepath.Join(root, "docs")) {
		t.Fatal("maybeWatchNewDir() = false for a directory")
	}
	watched := watcher.WatchList()
	for _, want := range []string{filepath.Join(root, "docs"), nested} {
		if !slices.Contains(watched, want) {
			t.Errorf("WatchList() missing %s", want)
		}
	}
}

func TestMaybeWatchNewDirIgnoresFiles(t *testing.T) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		t.Fatalf("NewWatcher() error: %v", err)
	}
	defer watcher.Close()

	file := filepath.Join(t.TempDir(), "note.md")
	if err := os.WriteFile(file, []byte("text\n"), 0o644); err != nil {
		t.Fatalf("WriteFile() error: %v", err)
	}
	if maybeWatchNewDir(watcher, file) {
		t.Error("maybeWatchNewDir() = true for a regular file")
	}
	if got := watcher.WatchList(); len(got) != 0 {
		t.Errorf("WatchList() = %v, want empty", got)
	}
}
