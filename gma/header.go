package gma

import (
	"fmt"
	"io"
)

// Magic is the four-byte signature at offset 0 of every archive.
const Magic = "GMAD"

// Layout, reverse-engineered from real archives:
//
//	0..4    "GMAD"
//	4..17   version, steam id, timestamp (not interpreted here)
//	17..    zero or more nulls, then three null-terminated fields in the
//	        order name, description, author
//
// Two variants exist. Older archives carry a plain-text description and
// the constant author "author". Newer ones carry a JSON object in the
// description and the constant author "Author Name".
const skipAfterMagic = 13

// ExtractHeader reads the header fields from r, whose total length is size.
// The description is run through ParseDescription before the result is
// returned. Any failure aborts the whole extraction; no partial result is
// ever returned.
func ExtractHeader(r io.ReadSeeker, size int64) (HeaderExtract, FormatVariant, error) {
	c := newCursor(r, size)
	if err := c.seek(0); err != nil {
		return HeaderExtract{}, FormatVariant{}, err
	}

	if size < int64(len(Magic)) {
		return HeaderExtract{}, FormatVariant{}, fmt.Errorf("%d byte stream: %w", size, ErrNotThisFormat)
	}
	var magic [len(Magic)]byte
	if err := c.read(magic[:]); err != nil {
		return HeaderExtract{}, FormatVariant{}, err
	}
	if string(magic[:]) != Magic {
		return HeaderExtract{}, FormatVariant{}, fmt.Errorf("magic %q: %w", magic[:], ErrNotThisFormat)
	}

	if err := c.seek(c.pos + skipAfterMagic); err != nil {
		return HeaderExtract{}, FormatVariant{}, err
	}
	if err := c.skipNulls(); err != nil {
		return HeaderExtract{}, FormatVariant{}, fmt.Errorf("locate name: %w", err)
	}

	// Field order is name, description, author. It is not alphabetical.
	name, err := c.textField("name")
	if err != nil {
		return HeaderExtract{}, FormatVariant{}, err
	}
	rawDescription, err := c.textField("description")
	if err != nil {
		return HeaderExtract{}, FormatVariant{}, err
	}
	author, err := c.textField("author")
	if err != nil {
		return HeaderExtract{}, FormatVariant{}, err
	}

	desc := ParseDescription(rawDescription)
	tags := desc.Tags
	if tags == nil {
		tags = []string{}
	}
	return HeaderExtract{
		Name:        Some(name),
		Author:      Some(author),
		Description: desc.Description,
		Category:    desc.Category,
		Tags:        tags,
	}, FormatVariant{UsesJSONChunk: desc.UsesJSONChunk}, nil
}

func (c *cursor) textField(field string) (string, error) {
	raw, err := c.nextField()
	if err != nil {
		return "", fmt.Errorf("read %s: %w", field, err)
	}
	s, err := DecodeText(raw, HeaderEncoding)
	if err != nil {
		return "", fmt.Errorf("read %s: %w", field, err)
	}
	return s, nil
}
