// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package rules

import (
	"path/filepath"
	"strings"
)

// DefaultTargets lists file patterns linted when a rule declares no applies
// globs and the caller passes no explicit targets.
var DefaultTargets = []string{
	"**/*.md",
	"**/*.mdx",
	"**/*.rst",
	"**/*.txt",
}

// DefaultExcludes lists directories never linted.
var DefaultExcludes = []string{
	"vendor/**",
	"node_modules/**",
	".git/**",
	"**/CHANGELOG.md",
}

// GlobMatcher decides whether a rule applies to a document path.
//
// Patterns use glob syntax with ** for recursive matching:
//   - * matches any sequence of non-separator characters
//   - ** matches any sequence of characters including separators
//   - ? matches any single non-separator character
//   - [abc] matches one of the characters in brackets
//
// Thread Safety: GlobMatcher is safe for concurrent use after creation.
type GlobMatcher struct {
	applies  []string
	excludes []string
}

// NewGlobMatcher creates a matcher with the given applies and excludes
// patterns. Empty applies admits all paths; empty excludes rejects none.
func NewGlobMatcher(applies, excludes []string) *GlobMatcher {
	return &GlobMatcher{applies: applies, excludes: excludes}
}

// Match returns true if the rule applies to path.
//
// A path matches if it matches at least one applies pattern (or applies is
// empty) and no exclude pattern. Paths are normalized to forward slashes.
func (m *GlobMatcher) Match(path string) bool {
	path = filepath.ToSlash(path)

	for _, pattern := range m.excludes {
		if matchGlob(pattern, path) {
			return false
		}
	}

	if len(m.applies) == 0 {
		return true
	}

	for _, pattern := range m.applies {
		if matchGlob(pattern, path) {
			return true
		}
	}
	return false
}

// matchGlob matches a path against one glob pattern, handling ** recursion.
func matchGlob(pattern, path string) bool {
	if strings.Contains(pattern, "**") {
		return matchDoublestar(pattern, path)
	}

	if matched, _ := filepath.Match(pattern, path); matched {
		return true
	}

	// A bare filename pattern like "*.md" also matches nested files.
	matched, _ := filepath.Match(pattern, filepath.Base(path))
	return matched
}

// matchDoublestar handles "prefix/**/suffix" style recursive patterns.
func matchDoublestar(pattern, path string) bool {
	parts := strings.Split(pattern, "**")
	if len(parts) == 1 {
		matched, _ := filepath.Match(pattern, path)
		return matched
	}

	if len(parts) == 2 {
		prefix := strings.TrimSuffix(parts[0], "/")
		suffix := strings.TrimPrefix(parts[1], "/")

		if prefix != "" {
			if !strings.HasPrefix(path, prefix+"/") && path != prefix {
				return false
			}
			path = strings.TrimPrefix(path, prefix+"/")
		}
		if suffix != "" {
			return matchTail(suffix, path)
		}
		return true
	}

	// Multiple ** segments: require the literal parts to appear in order.
	pathIdx := 0
	for i, part := range parts {
		part = strings.Trim(part, "/")
		if part == "" {
			continue
		}
		idx := strings.Index(path[pathIdx:], part)
		if idx == -1 {
			return false
		}
		if i == 0 && !strings.HasPrefix(pattern, "**") && idx != 0 {
			return false
		}
		pathIdx += idx + len(part)
	}
	if !strings.HasSuffix(pattern, "**") && pathIdx != len(path) {
		return false
	}
	return true
}

// matchTail checks whether any path suffix matches the pattern tail.
func matchTail(suffix, path string) bool {
	if strings.ContainsAny(suffix, "*?[") {
		parts := strings.Split(path, "/")
		for i := range parts {
			if matched, _ := filepath.Match(suffix, strings.Join(parts[i:], "/")); matched {
				return true
			}
		}
		return false
	}
	return strings.HasSuffix(path, suffix) || strings.Contains(path, suffix+"/") || path == suffix
}
