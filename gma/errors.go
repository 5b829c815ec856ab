package gma

import (
	"errors"
	"fmt"
	"io"
)

// Every decode failure wraps exactly one of these. Test with errors.Is.
var (
	// ErrNotThisFormat means the stream does not start with the GMAD magic.
	// Callers should treat it as "not our file" and skip silently.
	ErrNotThisFormat = errors.New("gma: not a gma archive")

	// ErrUnexpectedEOF means the stream ended before the header was complete.
	ErrUnexpectedEOF = errors.New("gma: unexpected end of stream")

	// ErrHeaderTooLarge means no field boundary was found below MaxHeaderSize.
	ErrHeaderTooLarge = errors.New("gma: header exceeds scan limit")

	// ErrStreamRead wraps an I/O failure from the underlying stream.
	ErrStreamRead = errors.New("gma: stream read failed")

	// ErrEncoding means a field is not valid text in its source encoding.
	ErrEncoding = errors.New("gma: text encoding conversion failed")
)

// Error kind names, as reported by Kind.
const (
	KindNotThisFormat  = "not_this_format"
	KindUnexpectedEOF  = "unexpected_eof"
	KindHeaderTooLarge = "header_too_large"
	KindStreamRead     = "stream_read_failed"
	KindEncoding       = "encoding_conversion_failed"
	KindUnknown        = "unknown"
)

// Kind returns the kind name of a decode error, "" for nil and KindUnknown
// for errors that did not come from this package.
func Kind(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrNotThisFormat):
		return KindNotThisFormat
	case errors.Is(err, ErrUnexpectedEOF):
		return KindUnexpectedEOF
	case errors.Is(err, ErrHeaderTooLarge):
		return KindHeaderTooLarge
	case errors.Is(err, ErrStreamRead):
		return KindStreamRead
	case errors.Is(err, ErrEncoding):
		return KindEncoding
	default:
		return KindUnknown
	}
}

// IsNotThisFormat reports whether err is a soft "wrong file type" rejection.
func IsNotThisFormat(err error) bool {
	return errors.Is(err, ErrNotThisFormat)
}

// readErr classifies an error returned by the underlying stream. A short
// read means the declared size lied about the data actually available.
func readErr(op string, err error) error {
	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
		return fmt.Errorf("%s: %w", op, ErrUnexpectedEOF)
	}
	return fmt.Errorf("%s: %w: %w", op, ErrStreamRead, err)
}
