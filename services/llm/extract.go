package llm

import (
	"encoding/json"
	"errors"
	"strings"
)

// ErrNoJSONFound indicates a model reply with no extractable JSON document.
var ErrNoJSONFound = errors.New("no JSON object found in model output")

// ExtractJSON salvages a JSON object from a model reply. Structured-output
// modes normally return bare JSON, but some backends wrap the document in a
// fenced code block or surround it with prose.
func ExtractJSON(output string) (json.RawMessage, error) {
	trimmed := strings.TrimSpace(output)
	if json.Valid([]byte(trimmed)) && strings.HasPrefix(trimmed, "{") {
		return json.RawMessage(trimmed), nil
	}

	if block, ok := extractFencedJSON(trimmed); ok {
		return json.RawMessage(block), nil
	}

	if obj, ok := extractBalancedObject(trimmed); ok {
		return json.RawMessage(obj), nil
	}
	return nil, ErrNoJSONFound
}

// extractFencedJSON pulls the first ```json (or bare ```) fenced block.
func extractFencedJSON(s string) (string, bool) {
	for _, fence := range []string{"```json", "```"} {
		start := strings.Index(s, fence)
		if start < 0 {
			continue
		}
		rest := s[start+len(fence):]
		end := strings.Index(rest, "```")
		if end < 0 {
			continue
		}
		candidate := strings.TrimSpace(rest[:end])
		if strings.HasPrefix(candidate, "{") && json.Valid([]byte(candidate)) {
			return candidate, true
		}
	}
	return "", false
}

// extractBalancedObject finds the first balanced top-level {...} span,
// respecting string literals and escapes.
func extractBalancedObject(s string) (string, bool) {
	start := strings.IndexByte(s, '{')
	if start < 0 {
		return "", false
	}
	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(s); i++ {
		c := s[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				candidate := s[start : i+1]
				if json.Valid([]byte(candidate)) {
					return candidate, true
				}
				return "", false
			}
		}
	}
	return "", false
}
