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
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"sort"
	"strings"
	"sync"

	"github.com/TRocket-Labs/vectorlint-sub000/services/rules"
)

// Store is the result-cache contract. Persistent implementations live
// outside this module; any consumer must compute keys with CacheKey
// identically or caching silently diverges into stale hits and misses.
//
// The engine's sequential per-file driver is the only writer; concurrent
// rule workers see a read-only snapshot taken before dispatch.
type Store interface {
	Get(key string) (json.RawMessage, bool)
	Set(key string, value json.RawMessage)
}

// CacheKey builds the content-hash cache key:
//
//	filePath | first16hex(sha256(normalize(content))) | first16hex(sha256(serializedRules))
//
// normalize converts CRLF to LF then trims surrounding whitespace. Rules are
// serialized sorted by id with id, meta, and body so that renaming a pack
// file does not invalidate entries but touching a rule does.
func CacheKey(filePath, content string, ruleSet []rules.Rule) string {
	normalized := strings.TrimSpace(strings.ReplaceAll(content, "\r\n", "\n"))
	contentSum := sha256.Sum256([]byte(normalized))

	rulesSum := sha256.Sum256(serializeRules(ruleSet))

	return filePath + "|" +
		hex.EncodeToString(contentSum[:])[:16] + "|" +
		hex.EncodeToString(rulesSum[:])[:16]
}

type cacheRuleMeta struct {
	Name       string  `json:"name"`
	Kind       string  `json:"kind"`
	Severity   string  `json:"severity"`
	Strictness float64 `json:"strictness"`
}

type cacheRuleBody struct {
	Instructions string                `json:"instructions"`
	Target       *rules.TargetSpec     `json:"target,omitempty"`
	Criteria     []rules.CriterionSpec `json:"criteria,omitempty"`
}

type cacheRule struct {
	ID   string        `json:"id"`
	Meta cacheRuleMeta `json:"meta"`
	Body cacheRuleBody `json:"body"`
}

func serializeRules(ruleSet []rules.Rule) []byte {
	entries := make([]cacheRule, 0, len(ruleSet))
	for _, r := range ruleSet {
		entries = append(entries, cacheRule{
			ID: r.ID,
			Meta: cacheRuleMeta{
				Name:       r.Name,
				Kind:       string(r.Kind),
				Severity:   string(r.Severity),
				Strictness: r.Strictness.Resolve(),
			},
			Body: cacheRuleBody{
				Instructions: r.Instructions,
				Target:       r.Target,
				Criteria:     r.Criteria,
			},
		})
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].ID < entries[j].ID })

	data, err := json.Marshal(entries)
	if err != nil {
		// Rule structs contain only marshalable fields; this cannot fire.
		return nil
	}
	return data
}

// MemoryStore is the in-process Store used by the watch loop to skip
// re-evaluating unchanged files within one session.
type MemoryStore struct {
	mu      sync.RWMutex
	entries map[string]json.RawMessage
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{entries: make(map[string]json.RawMessage)}
}

// Get implements Store.
func (s *MemoryStore) Get(key string) (json.RawMessage, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.entries[key]
	return v, ok
}

// Set implements Store.
func (s *MemoryStore) Set(key string, value json.RawMessage) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[key] = value
}
