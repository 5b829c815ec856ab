// Package gma decodes the metadata header of Garry's Mod addon archives
// (.gma files).
//
// The header is undocumented: a GMAD magic, 13 uninterpreted bytes, then
// three null-terminated UTF-8 fields (name, description, author) with no
// length prefix. Newer archives embed a JSON object in the description
// carrying the real description, the addon type and its tags. Decoding
// extracts those fields, clears the placeholder values the packing tool
// writes, and composes a single blob for full-text indexing.
//
// Only the header is read. The file list and payload are never touched.
//
// Usage:
//
//	dec := gma.New(gma.Config{})
//	h, err := dec.DecodeFile(ctx, "/path/to/addon.gma")
//	if gma.IsNotThisFormat(err) {
//		// not an addon archive, skip
//	}
//	fmt.Println(h.Extract.Name, h.Extract.Tags)
package gma

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
)

// Extension is the file extension of addon archives.
const Extension = ".gma"

// Decode runs the full pipeline over one stream of the given size: header
// extraction, placeholder normalization, search content composition.
// It is a pure function of the stream bytes; r is only read and seeked.
func Decode(r io.ReadSeeker, size int64) (*DecodedHeader, error) {
	extract, variant, err := ExtractHeader(r, size)
	if err != nil {
		return nil, err
	}
	return newDecodedHeader(Normalize(extract, variant), variant), nil
}

// newDecodedHeader attaches the search contents to a normalized extract.
// They are always present, even when every field they draw from is empty.
func newDecodedHeader(extract HeaderExtract, variant FormatVariant) *DecodedHeader {
	return &DecodedHeader{
		Extract:        extract,
		Variant:        variant,
		SearchContents: Some(ComposeSearchContents(extract)),
	}
}

// Decoder wraps Decode with file handling and logging. It holds no
// per-decode state and is safe for concurrent use.
type Decoder struct {
	cfg    Config
	logger *slog.Logger
}

// New creates a Decoder.
func New(cfg Config) *Decoder {
	cfg.defaults()
	return &Decoder{
		cfg:    cfg,
		logger: cfg.Logger,
	}
}

// Detect reports whether path has the archive extension.
func (d *Decoder) Detect(path string) bool {
	return strings.EqualFold(filepath.Ext(path), Extension)
}

// DecodeFile opens path and decodes its header.
func (d *Decoder) DecodeFile(ctx context.Context, path string) (*DecodedHeader, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("stat %s: %w", path, err)
	}
	if !info.Mode().IsRegular() {
		return nil, fmt.Errorf("%s: not a regular file", path)
	}

	h, err := d.DecodeReader(ctx, f, info.Size())
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	return h, nil
}

// DecodeReader decodes a header from r, whose total length is size.
func (d *Decoder) DecodeReader(ctx context.Context, r io.ReadSeeker, size int64) (*DecodedHeader, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	h, err := Decode(r, size)
	if err != nil {
		if IsNotThisFormat(err) {
			d.logger.Debug("gma: not an archive", "size", size)
		} else {
			d.logger.Debug("gma: decode failed", "size", size, "kind", Kind(err), "error", err)
		}
		return nil, err
	}
	d.logger.Debug("gma: decoded header",
		"size", size,
		"variant", h.Variant.String(),
		"tags", len(h.Extract.Tags),
	)
	return h, nil
}
