package gma

import (
	"bytes"
	"encoding/json"
	"strings"
	"unicode"
)

// DescriptionChunk is the description field after JSON chunk detection.
type DescriptionChunk struct {
	Description   Text
	Category      Text
	Tags          []string
	UsesJSONChunk bool
}

// ParseDescription interprets the raw description text. Newer archives
// store a JSON object here ({"description", "type", "tags"}); older ones
// store plain text. Nothing in the header says which, so the text is tried
// as JSON only when its first and last non-space characters are braces, and
// any parse failure falls back to plain text. The fallback is never an error.
func ParseDescription(raw string) DescriptionChunk {
	plain := DescriptionChunk{Description: Some(raw)}
	if !leadingBrace(raw) || !trailingBrace(raw) {
		return plain
	}

	obj, ok := objectMembers(raw)
	if !ok {
		return plain
	}

	chunk := DescriptionChunk{UsesJSONChunk: true}
	if s, ok := jsonString(obj["description"]); ok {
		chunk.Description = Some(s)
	}
	if s, ok := jsonString(obj["type"]); ok {
		chunk.Category = Some(s)
	}
	var tags []json.RawMessage
	if v, ok := obj["tags"]; ok && json.Unmarshal(v, &tags) == nil {
		for _, tag := range tags {
			// Non-string elements are skipped, not an error.
			if s, ok := jsonString(tag); ok {
				chunk.Tags = append(chunk.Tags, s)
			}
		}
	}
	return chunk
}

// objectMembers splits a JSON object into its members, keyed by the
// lowercased member name. Names match case-insensitively and the first of
// several duplicates wins. Anything but exactly one valid object reports
// false.
func objectMembers(raw string) (map[string]json.RawMessage, bool) {
	if !json.Valid([]byte(raw)) {
		return nil, false
	}
	dec := json.NewDecoder(strings.NewReader(raw))
	if tok, err := dec.Token(); err != nil || tok != json.Delim('{') {
		return nil, false
	}
	obj := make(map[string]json.RawMessage)
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, false
		}
		name, ok := tok.(string)
		if !ok {
			return nil, false
		}
		var v json.RawMessage
		if err := dec.Decode(&v); err != nil {
			return nil, false
		}
		key := strings.ToLower(name)
		if _, seen := obj[key]; !seen {
			obj[key] = v
		}
	}
	return obj, true
}

func leadingBrace(s string) bool {
	s = strings.TrimLeftFunc(s, unicode.IsSpace)
	return strings.HasPrefix(s, "{")
}

// trailingBrace is total on empty and one-character input.
func trailingBrace(s string) bool {
	s = strings.TrimRightFunc(s, unicode.IsSpace)
	return strings.HasSuffix(s, "}")
}

// jsonString returns v as a string when it is a JSON string. null and
// every other type report false.
func jsonString(v json.RawMessage) (string, bool) {
	v = bytes.TrimSpace(v)
	if len(v) == 0 || v[0] != '"' {
		return "", false
	}
	var s string
	if err := json.Unmarshal(v, &s); err != nil {
		return "", false
	}
	return s, true
}
