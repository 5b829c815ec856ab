package gma

import (
	"bytes"
	"errors"
	"io"
)

// buildArchive assembles a header: magic, 13 metadata bytes, nulls padding,
// then each field followed by its terminator, then trailing payload bytes.
func buildArchive(meta [13]byte, padding int, fields []string, trailer []byte) []byte {
	var b bytes.Buffer
	b.WriteString(Magic)
	b.Write(meta[:])
	b.Write(make([]byte, padding))
	for _, f := range fields {
		b.WriteString(f)
		b.WriteByte(0)
	}
	b.Write(trailer)
	return b.Bytes()
}

func simpleArchive(name, description, author string) []byte {
	return buildArchive([13]byte{3}, 5, []string{name, description, author}, []byte{1, 0, 0, 0})
}

// Older layout: plain description, "author" stub.
var (
	legacyDescription = "No credit to me i just uploaded all credit to     (=CG=) Finniesp. " +
		"A Trouble In Terrorist Town MC beta map. If the owner wants it off the workshop " +
		"he can just leave a comment.\n    \n"

	legacyArchive = buildArchive(
		[13]byte{0x03, 0x1E, 0x18, 0x19, 0x08, 0x01, 0x00, 0x10, 0x01, 0x0C, 0x11, 0xDF, 0x51},
		5,
		[]string{"ttt_minecraft_b5", legacyDescription, "author"},
		append([]byte{1, 0, 0, 0, 1, 0, 0, 0}, "maps/ttt_minecraft_b5.bsp\x00"...),
	)
)

// Newer layout: JSON chunk description, "Author Name" stub.
var (
	jsonChunkDescription = "{\n\t\"description\": \"Description\",\n\t\"type\": \"weapon\",\n\t\"tags\": [\n\t\t\"fun\",\n\t\t\"cartoon\"\n\t]\n}"

	jsonChunkArchive = buildArchive(
		[13]byte{0x03, 0, 0, 0, 0, 0, 0, 0, 0, 0xE4, 0x78, 0x0B, 0x5D},
		5,
		[]string{"Orbital Friendship Cannon", jsonChunkDescription, "Author Name"},
		append([]byte{1, 0, 0, 0, 1, 0, 0, 0}, "lua/weapons/orbital_friendship_cannon.lua\x00"...),
	)
)

// countingReader records how much of the stream was consumed.
type countingReader struct {
	r         io.ReadSeeker
	bytesRead int64
	reads     int
}

func (c *countingReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	c.bytesRead += int64(n)
	c.reads++
	return n, err
}

func (c *countingReader) Seek(off int64, whence int) (int64, error) {
	return c.r.Seek(off, whence)
}

// failingReader fails every read after the first failAfter bytes.
type failingReader struct {
	r         *bytes.Reader
	failAfter int64
}

var errDisk = errors.New("disk on fire")

func (f *failingReader) Read(p []byte) (int, error) {
	pos, _ := f.r.Seek(0, io.SeekCurrent)
	if pos >= f.failAfter {
		return 0, errDisk
	}
	if rem := f.failAfter - pos; int64(len(p)) > rem {
		p = p[:rem]
	}
	return f.r.Read(p)
}

func (f *failingReader) Seek(off int64, whence int) (int64, error) {
	return f.r.Seek(off, whence)
}
