package gma

import (
	"fmt"
	"strings"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/ianaindex"
	"golang.org/x/text/transform"
)

// HeaderEncoding is the encoding of every header field. Fields are
// delimited by a single null byte, which rules out wide encodings.
const HeaderEncoding = "utf-8"

// DecodeText converts bytes in sourceEncoding to a Go string. The input is
// a terminator-free field and may contain any high-bit bytes valid in that
// encoding. An empty sourceEncoding means HeaderEncoding; other names are
// resolved through the IANA registry (e.g. "windows-1252").
func DecodeText(b []byte, sourceEncoding string) (string, error) {
	if len(b) > MaxHeaderSize {
		return "", fmt.Errorf("decode %d bytes: longer than %d: %w", len(b), MaxHeaderSize, ErrEncoding)
	}
	t, err := textDecoder(sourceEncoding)
	if err != nil {
		return "", err
	}
	out, _, err := transform.Bytes(t, b)
	if err != nil {
		return "", fmt.Errorf("decode %s: %w: %w", sourceEncoding, ErrEncoding, err)
	}
	return string(out), nil
}

func textDecoder(name string) (transform.Transformer, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "utf-8", "utf8":
		// The x/text UTF-8 decoder substitutes U+FFFD; the validator rejects.
		return encoding.UTF8Validator, nil
	}
	enc, err := ianaindex.IANA.Encoding(name)
	if err != nil {
		return nil, fmt.Errorf("encoding %q: %w: %w", name, ErrEncoding, err)
	}
	if enc == nil {
		return nil, fmt.Errorf("encoding %q: unsupported: %w", name, ErrEncoding)
	}
	return enc.NewDecoder(), nil
}
