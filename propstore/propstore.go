// Package propstore maps decoded addon headers onto named metadata slots.
//
// A slot holds either a single text or a text list, plus a state telling a
// value read from the archive (Normal) apart from a placeholder for a field
// the archive did not carry (NotInSource). A present empty string is Normal;
// only a field that was never read is NotInSource. Viewers use the state to
// tell "the addon has no author" from "the author could not be determined".
//
// Usage:
//
//	h := propstore.NewHandler(dec)
//	if err := h.Initialize(ctx, f, size); err != nil { ... }
//	v, _ := h.Store().Value(propstore.Title)
package propstore

import (
	"errors"
	"fmt"

	"github.com/hazyhaar/gmameta/gma"
)

// Key names a metadata slot. Names follow the shell property system.
type Key string

// Slots filled by Publish.
const (
	Title          Key = "System.Title"
	Author         Key = "System.Author"
	Description    Key = "System.Link.Description"
	Category       Key = "System.Category"
	Keywords       Key = "System.Keywords"
	SearchContents Key = "System.Search.Contents"
)

// Slots lists the published keys in publish order.
var Slots = []Key{Title, Author, Description, Category, Keywords, SearchContents}

// State tells whether a slot value came from the archive.
type State int

const (
	// Normal means the value was read from the archive, possibly empty.
	Normal State = iota
	// NotInSource means the archive lacked the field and the value is a
	// placeholder.
	NotInSource
)

func (s State) String() string {
	switch s {
	case Normal:
		return "normal"
	case NotInSource:
		return "not_in_source"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// MarshalText encodes the state by name.
func (s State) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

// UnmarshalText decodes a state name written by MarshalText.
func (s *State) UnmarshalText(b []byte) error {
	switch string(b) {
	case "normal":
		*s = Normal
	case "not_in_source":
		*s = NotInSource
	default:
		return fmt.Errorf("propstore: unknown state %q", b)
	}
	return nil
}

// Value is the content of one slot. Single-text slots carry exactly one
// element in Texts.
type Value struct {
	Texts []string `json:"texts" yaml:"texts"`
	Multi bool     `json:"multi" yaml:"multi"`
	State State    `json:"state" yaml:"state"`
}

// Text returns the first element, or "".
func (v Value) Text() string {
	if len(v.Texts) == 0 {
		return ""
	}
	return v.Texts[0]
}

// Present reports whether the value was read from the archive.
func (v Value) Present() bool { return v.State == Normal }

// Sink receives slot values. Implementations must keep the two states
// distinct.
type Sink interface {
	SetValueAndState(key Key, v Value) error
}

// ErrReadOnly is returned by every write through the public store surface.
var ErrReadOnly = errors.New("propstore: read-only store")

// Publish writes every slot of h into s, in Slots order. It stops at the
// first sink error.
func Publish(s Sink, h *gma.DecodedHeader) error {
	e := h.Extract
	values := []struct {
		key Key
		val Value
	}{
		{Title, single(e.Name)},
		{Author, list(e.Author)},
		{Description, single(e.Description)},
		{Category, list(e.Category)},
		{Keywords, tags(e.Tags)},
		{SearchContents, single(h.SearchContents)},
	}
	for _, kv := range values {
		if err := s.SetValueAndState(kv.key, kv.val); err != nil {
			return fmt.Errorf("publish %s: %w", kv.key, err)
		}
	}
	return nil
}

func single(t gma.Text) Value {
	v := Value{Texts: []string{t.Value}}
	if !t.Present {
		v.State = NotInSource
	}
	return v
}

// list stores a present text as a one-element list; an absent one becomes
// the one-element placeholder {""}.
func list(t gma.Text) Value {
	v := single(t)
	v.Multi = true
	return v
}

func tags(ts []string) Value {
	if len(ts) == 0 {
		return Value{Texts: []string{""}, Multi: true, State: NotInSource}
	}
	return Value{Texts: append([]string(nil), ts...), Multi: true}
}
