package gma

import (
	"bytes"
	"errors"
	"strings"
	"testing"
)

func TestExtractHeader_FieldOrder(t *testing.T) {
	data := simpleArchive("My Addon", "A plain description", "Bob")

	e, v, err := ExtractHeader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		t.Fatal(err)
	}
	if e.Name != Some("My Addon") {
		t.Errorf("name = %+v", e.Name)
	}
	if e.Description != Some("A plain description") {
		t.Errorf("description = %+v", e.Description)
	}
	if e.Author != Some("Bob") {
		t.Errorf("author = %+v", e.Author)
	}
	if v.UsesJSONChunk {
		t.Error("plain description reported as JSON chunk")
	}
	if e.Category.Present || len(e.Tags) != 0 {
		t.Errorf("category/tags set for plain text: %+v %v", e.Category, e.Tags)
	}
}

func TestExtractHeader_NoPadding(t *testing.T) {
	data := buildArchive([13]byte{1, 2, 3}, 0, []string{"n", "d", "a"}, nil)

	e, _, err := ExtractHeader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		t.Fatal(err)
	}
	if e.Name.Value != "n" || e.Description.Value != "d" || e.Author.Value != "a" {
		t.Fatalf("fields = %q %q %q", e.Name.Value, e.Description.Value, e.Author.Value)
	}
}

func TestExtractHeader_EndsAfterAuthor(t *testing.T) {
	// The last terminator is the last byte of the stream.
	data := buildArchive([13]byte{}, 2, []string{"name", "desc", "auth"}, nil)

	e, _, err := ExtractHeader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		t.Fatal(err)
	}
	if e.Author.Value != "auth" {
		t.Fatalf("author = %q", e.Author.Value)
	}
}

func TestExtractHeader_BadMagic(t *testing.T) {
	data := append([]byte("ABCD"), bytes.Repeat([]byte{0}, 100)...)
	cr := &countingReader{r: bytes.NewReader(data)}

	_, _, err := ExtractHeader(cr, int64(len(data)))
	if !errors.Is(err, ErrNotThisFormat) {
		t.Fatalf("err = %v, want ErrNotThisFormat", err)
	}
	if cr.bytesRead != int64(len(Magic)) {
		t.Fatalf("read %d bytes after magic mismatch, want %d", cr.bytesRead, len(Magic))
	}
}

func TestExtractHeader_MagicIsCaseSensitive(t *testing.T) {
	data := simpleArchive("n", "d", "a")
	copy(data, "gmad")
	if _, _, err := ExtractHeader(bytes.NewReader(data), int64(len(data))); !errors.Is(err, ErrNotThisFormat) {
		t.Fatalf("err = %v, want ErrNotThisFormat", err)
	}
}

func TestExtractHeader_Truncated(t *testing.T) {
	full := simpleArchive("name", "description", "author")

	tests := []struct {
		name string
		data []byte
		want error
	}{
		{"empty", nil, ErrNotThisFormat},
		{"shorter than magic", []byte("GMA"), ErrNotThisFormat},
		{"magic only", []byte("GMAD"), ErrUnexpectedEOF},
		{"inside metadata", full[:10], ErrUnexpectedEOF},
		{"only padding", full[:22], ErrUnexpectedEOF},
		{"inside name", full[:25], ErrUnexpectedEOF},
		{"inside author", full[:len(full)-6], ErrUnexpectedEOF},
	}
	for _, tt := range tests {
		_, _, err := ExtractHeader(bytes.NewReader(tt.data), int64(len(tt.data)))
		if !errors.Is(err, tt.want) {
			t.Errorf("%s: err = %v, want %v", tt.name, err, tt.want)
		}
	}
}

func TestExtractHeader_TooLarge(t *testing.T) {
	huge := strings.Repeat("x", 64*1024)
	data := simpleArchive("name", huge, "author")
	cr := &countingReader{r: bytes.NewReader(data)}

	_, _, err := ExtractHeader(cr, int64(len(data)))
	if !errors.Is(err, ErrHeaderTooLarge) {
		t.Fatalf("err = %v, want ErrHeaderTooLarge", err)
	}
	// Boundary scans re-read a little, but never the whole description.
	if cr.bytesRead > 2*MaxHeaderSize {
		t.Fatalf("read %d bytes, scan must stop at the ceiling", cr.bytesRead)
	}
}

func TestExtractHeader_InvalidUTF8(t *testing.T) {
	data := simpleArchive("bad \xff\xfe name", "d", "a")
	if _, _, err := ExtractHeader(bytes.NewReader(data), int64(len(data))); !errors.Is(err, ErrEncoding) {
		t.Fatalf("err = %v, want ErrEncoding", err)
	}
}

func TestExtractHeader_MultiByteText(t *testing.T) {
	data := simpleArchive("Café ☕", "Ünïcödé", "作者")
	e, _, err := ExtractHeader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		t.Fatal(err)
	}
	if e.Name.Value != "Café ☕" || e.Description.Value != "Ünïcödé" || e.Author.Value != "作者" {
		t.Fatalf("fields = %q %q %q", e.Name.Value, e.Description.Value, e.Author.Value)
	}
}

func TestExtractHeader_StreamReadFailure(t *testing.T) {
	data := simpleArchive("name", "description", "author")
	r := &failingReader{r: bytes.NewReader(data), failAfter: 30}

	_, _, err := ExtractHeader(r, int64(len(data)))
	if !errors.Is(err, ErrStreamRead) {
		t.Fatalf("err = %v, want ErrStreamRead", err)
	}
}

func TestExtractHeader_SeekableFromAnywhere(t *testing.T) {
	data := simpleArchive("name", "d", "a")
	r := bytes.NewReader(data)
	r.Seek(12, 0)

	e, _, err := ExtractHeader(r, int64(len(data)))
	if err != nil {
		t.Fatal(err)
	}
	if e.Name.Value != "name" {
		t.Fatalf("name = %q", e.Name.Value)
	}
}
