package planner

import (
	"encoding/json"
	"errors"
)

// ErrNoJSONObject is returned when a response holds no complete JSON
// object.
var ErrNoJSONObject = errors.New("no well-formed JSON object found")

// ExtractObject returns the outermost well-formed JSON object in text.
// Surrounding prose and code fences are skipped. Braces inside JSON
// strings, including escaped quotes, do not count toward nesting. A brace
// span that is not valid JSON is searched for objects nested inside it.
//
// When several objects are found, the first one with a top-level key from
// prefer wins; otherwise the largest does, the earliest on ties.
func ExtractObject(text string, prefer ...string) (string, error) {
	candidates := objectCandidates(text)
	if len(candidates) == 0 {
		return "", ErrNoJSONObject
	}
	for _, c := range candidates {
		if hasAnyKey(c, prefer) {
			return c, nil
		}
	}
	best := candidates[0]
	for _, c := range candidates[1:] {
		if len(c) > len(best) {
			best = c
		}
	}
	return best, nil
}

// objectCandidates lists the outermost valid JSON objects in text, in
// order of appearance.
func objectCandidates(text string) []string {
	var out []string
	for start := 0; start < len(text); start++ {
		if text[start] != '{' {
			continue
		}
		end, ok := matchBrace(text, start)
		if !ok {
			// Unbalanced from here; a later brace may still open a
			// complete object.
			continue
		}
		candidate := text[start : end+1]
		if json.Valid([]byte(candidate)) {
			out = append(out, candidate)
			start = end
		}
	}
	return out
}

func hasAnyKey(obj string, keys []string) bool {
	if len(keys) == 0 {
		return false
	}
	var top map[string]json.RawMessage
	if err := json.Unmarshal([]byte(obj), &top); err != nil {
		return false
	}
	for _, k := range keys {
		if _, ok := top[k]; ok {
			return true
		}
	}
	return false
}

// matchBrace returns the index of the brace closing the one at start.
func matchBrace(text string, start int) (int, bool) {
	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(text); i++ {
		c := text[i]
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
				return i, true
			}
		}
	}
	return 0, false
}
