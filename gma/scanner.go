package gma

import (
	"fmt"
	"io"
)

// MaxHeaderSize caps how far into the stream a field boundary is searched
// for. The header has no length fields, so the only way to find the end of
// a field is its null terminator; a non-archive or pathological file could
// otherwise make the scan walk gigabytes. Archives whose JSON chunk carries
// a very long list may legitimately exceed it and are rejected.
const MaxHeaderSize = 8192

// scanChunkSize is the scratch size used while locating a boundary.
const scanChunkSize = 256

// cursor tracks the read position over one stream for one decode call.
type cursor struct {
	r    io.ReadSeeker
	pos  int64
	size int64
}

func newCursor(r io.ReadSeeker, size int64) *cursor {
	return &cursor{r: r, size: size}
}

// seek moves the underlying stream and the cursor to an absolute offset.
func (c *cursor) seek(off int64) error {
	if _, err := c.r.Seek(off, io.SeekStart); err != nil {
		return fmt.Errorf("seek %d: %w: %w", off, ErrStreamRead, err)
	}
	c.pos = off
	return nil
}

// read fills p from the current position.
func (c *cursor) read(p []byte) error {
	if c.size-c.pos < int64(len(p)) {
		return fmt.Errorf("read %d bytes at %d: %w", len(p), c.pos, ErrUnexpectedEOF)
	}
	if _, err := io.ReadFull(c.r, p); err != nil {
		return readErr(fmt.Sprintf("read %d bytes at %d", len(p), c.pos), err)
	}
	c.pos += int64(len(p))
	return nil
}

// scan returns the offset of the first byte at or after the cursor for
// which stop is true. Bytes are examined in small chunks and never
// buffered beyond one chunk. The stream position is left unspecified; the
// cursor position is not moved.
//
// Reaching the end of the stream yields ErrUnexpectedEOF. Reaching
// MaxHeaderSize first yields ErrHeaderTooLarge.
func (c *cursor) scan(stop func(byte) bool) (int64, error) {
	var chunk [scanChunkSize]byte
	off := c.pos
	for {
		if off >= c.size {
			return 0, fmt.Errorf("scan from %d: %w", c.pos, ErrUnexpectedEOF)
		}
		if off >= MaxHeaderSize {
			return 0, fmt.Errorf("scan from %d: no boundary below %d bytes: %w", c.pos, MaxHeaderSize, ErrHeaderTooLarge)
		}
		n := min(int64(len(chunk)), c.size-off, MaxHeaderSize-off)
		if _, err := io.ReadFull(c.r, chunk[:n]); err != nil {
			return 0, readErr(fmt.Sprintf("scan at %d", off), err)
		}
		for i, b := range chunk[:n] {
			if stop(b) {
				return off + int64(i), nil
			}
		}
		off += n
	}
}

// skipNulls advances the cursor to the first non-null byte.
func (c *cursor) skipNulls() error {
	off, err := c.scan(func(b byte) bool { return b != 0 })
	if err != nil {
		return err
	}
	return c.seek(off)
}

// nextField returns the bytes of the next null-terminated field, without
// the terminator, and moves the cursor past the terminator.
//
// The boundary is located first, then the stream is rewound and the field
// is read once into a buffer of exactly its size. Allocation is therefore
// bounded by the real field length, never by how much garbage was scanned.
func (c *cursor) nextField() ([]byte, error) {
	start := c.pos
	end, err := c.scan(func(b byte) bool { return b == 0 })
	if err != nil {
		return nil, err
	}
	if err := c.seek(start); err != nil {
		return nil, err
	}
	field := make([]byte, end-start)
	if err := c.read(field); err != nil {
		return nil, err
	}
	if err := c.seek(end + 1); err != nil {
		return nil, err
	}
	return field, nil
}
