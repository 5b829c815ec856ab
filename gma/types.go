package gma

import (
	"bytes"
	"encoding/json"
)

// Text is an optional text value. A present empty string is distinct from an
// absent one: the first means the archive carried an empty (or stub) value,
// the second that the field never appeared.
type Text struct {
	Value   string
	Present bool
}

// Some returns a present Text.
func Some(s string) Text { return Text{Value: s, Present: true} }

// Absent is the zero Text.
var Absent = Text{}

// String returns the value, or "" when absent.
func (t Text) String() string { return t.Value }

// NonEmpty reports whether the value is present and not empty.
func (t Text) NonEmpty() bool { return t.Present && t.Value != "" }

// MarshalJSON encodes an absent Text as null.
func (t Text) MarshalJSON() ([]byte, error) {
	if !t.Present {
		return []byte("null"), nil
	}
	return json.Marshal(t.Value)
}

// UnmarshalJSON decodes null as absent.
func (t *Text) UnmarshalJSON(data []byte) error {
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		*t = Absent
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	*t = Some(s)
	return nil
}

// MarshalYAML encodes an absent Text as null.
func (t Text) MarshalYAML() (any, error) {
	if !t.Present {
		return nil, nil
	}
	return t.Value, nil
}

// HeaderExtract holds the human-readable fields of an archive header.
// Tags is only non-empty when the description carried a JSON chunk.
type HeaderExtract struct {
	Name        Text     `json:"name" yaml:"name"`
	Author      Text     `json:"author" yaml:"author"`
	Description Text     `json:"description" yaml:"description"`
	Category    Text     `json:"category" yaml:"category"`
	Tags        []string `json:"tags" yaml:"tags"`
}

// FormatVariant tells the two historical header layouts apart.
type FormatVariant struct {
	// UsesJSONChunk is true iff the description field parsed as a JSON object.
	UsesJSONChunk bool `json:"uses_json_chunk" yaml:"uses_json_chunk"`
}

// String returns "json" for the newer layout and "plain" for the older one.
func (v FormatVariant) String() string {
	if v.UsesJSONChunk {
		return "json"
	}
	return "plain"
}

// DecodedHeader is the result of one decode call. It is built once and not
// mutated afterwards.
type DecodedHeader struct {
	Extract        HeaderExtract `json:"extract" yaml:"extract"`
	Variant        FormatVariant `json:"variant" yaml:"variant"`
	SearchContents Text          `json:"search_contents" yaml:"search_contents"`
}
