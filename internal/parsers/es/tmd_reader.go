// File: internal/parsers/es/tmd_reader.go
package es

import (
	"encoding/binary"
	"fmt"

	"github.com/tfsdf/go-wiidisc/internal/types"
)

// Byte offsets of the TMD header fields we interpret. The header starts
// with the same 0x180-byte RSA-2048 signature block as a ticket.
const (
	tmdVersionOffset      = 0x180
	tmdIOSIDOffset        = 0x184
	tmdTitleIDOffset      = 0x18C
	tmdTitleFlagsOffset   = 0x194
	tmdGroupIDOffset      = 0x198
	tmdRegionOffset       = 0x19C
	tmdTitleVersionOffset = 0x1DC
	tmdNumContentsOffset  = 0x1DE
	tmdBootIndexOffset    = 0x1E0
	tmdContentsOffset     = types.TMDHeaderSize
)

// Content is one 36-byte content descriptor from a TMD.
type Content struct {
	ID    uint32
	Index uint16
	Type  uint16
	Size  uint64
	Hash  [types.HashSize]byte
}

// IsValidTMDSize bounds a TMD size field read from untrusted data before
// any buffer is allocated for it.
func IsValidTMDSize(size uint32) bool {
	return size >= types.TMDHeaderSize && size <= types.MaxTMDSize &&
		(size-types.TMDHeaderSize)%types.TMDContentSize == 0
}

// TMDReader provides typed accessors over a signed title metadata
// record: a fixed header followed by the title's content descriptors.
// No signature verification is performed.
type TMDReader struct {
	data []byte
}

// NewTMDReader wraps a raw TMD buffer.
func NewTMDReader(data []byte) *TMDReader {
	return &TMDReader{data: data}
}

// IsValid reports whether the buffer size matches the content count the
// header itself declares. Accessors on an invalid reader return zero
// values; no descriptor is ever read from an inconsistent buffer.
func (t *TMDReader) IsValid() bool {
	if len(t.data) < types.TMDHeaderSize {
		return false
	}
	numContents := binary.BigEndian.Uint16(t.data[tmdNumContentsOffset:])
	return len(t.data) == types.TMDHeaderSize+int(numContents)*types.TMDContentSize
}

// Bytes returns the underlying raw record bytes.
func (t *TMDReader) Bytes() []byte {
	return t.data
}

// Version returns the TMD format version byte.
func (t *TMDReader) Version() uint8 {
	if !t.IsValid() {
		return 0
	}
	return t.data[tmdVersionOffset]
}

// IOSID returns the 64-bit id of the IOS the title runs under.
func (t *TMDReader) IOSID() uint64 {
	if !t.IsValid() {
		return 0
	}
	return binary.BigEndian.Uint64(t.data[tmdIOSIDOffset:])
}

// TitleID returns the 64-bit title id.
func (t *TMDReader) TitleID() uint64 {
	if !t.IsValid() {
		return 0
	}
	return binary.BigEndian.Uint64(t.data[tmdTitleIDOffset:])
}

// TitleFlags returns the title flags field.
func (t *TMDReader) TitleFlags() uint32 {
	if !t.IsValid() {
		return 0
	}
	return binary.BigEndian.Uint32(t.data[tmdTitleFlagsOffset:])
}

// GroupID returns the publisher group id.
func (t *TMDReader) GroupID() uint16 {
	if !t.IsValid() {
		return 0
	}
	return binary.BigEndian.Uint16(t.data[tmdGroupIDOffset:])
}

// Region returns the title's region field.
func (t *TMDReader) Region() uint16 {
	if !t.IsValid() {
		return 0
	}
	return binary.BigEndian.Uint16(t.data[tmdRegionOffset:])
}

// TitleVersion returns the installed title version.
func (t *TMDReader) TitleVersion() uint16 {
	if !t.IsValid() {
		return 0
	}
	return binary.BigEndian.Uint16(t.data[tmdTitleVersionOffset:])
}

// NumContents returns the number of content descriptors the header
// declares.
func (t *TMDReader) NumContents() uint16 {
	if !t.IsValid() {
		return 0
	}
	return binary.BigEndian.Uint16(t.data[tmdNumContentsOffset:])
}

// BootIndex returns the index of the content the console boots.
func (t *TMDReader) BootIndex() uint16 {
	if !t.IsValid() {
		return 0
	}
	return binary.BigEndian.Uint16(t.data[tmdBootIndexOffset:])
}

// GameID constructs the 6-character game id: the low four bytes of the
// title id followed by the two group id bytes. If any character would be
// unprintable, the title id rendered as hexadecimal is returned instead.
func (t *TMDReader) GameID() string {
	if !t.IsValid() {
		return ""
	}

	var id [6]byte
	copy(id[:4], t.data[tmdTitleIDOffset+4:tmdTitleIDOffset+8])
	copy(id[4:], t.data[tmdGroupIDOffset:tmdGroupIDOffset+2])

	for _, c := range id {
		if c < 0x20 || c > 0x7E {
			return fmt.Sprintf("%016x", t.TitleID())
		}
	}
	return string(id[:])
}

// Content returns the descriptor at the given position in the TMD.
func (t *TMDReader) Content(index uint16) (Content, error) {
	if !t.IsValid() || index >= t.NumContents() {
		return Content{}, fmt.Errorf("no content at index %d", index)
	}
	return t.contentAt(int(index)), nil
}

// Contents returns every content descriptor in TMD order.
func (t *TMDReader) Contents() []Content {
	if !t.IsValid() {
		return nil
	}
	contents := make([]Content, t.NumContents())
	for i := range contents {
		contents[i] = t.contentAt(i)
	}
	return contents
}

// FindContentByID returns the descriptor with the given content id.
func (t *TMDReader) FindContentByID(id uint32) (Content, error) {
	for i := 0; i < int(t.NumContents()); i++ {
		if c := t.contentAt(i); c.ID == id {
			return c, nil
		}
	}
	return Content{}, fmt.Errorf("no content with id %08x", id)
}

func (t *TMDReader) contentAt(i int) Content {
	entry := t.data[tmdContentsOffset+i*types.TMDContentSize:]

	var c Content
	c.ID = binary.BigEndian.Uint32(entry)
	c.Index = binary.BigEndian.Uint16(entry[4:])
	c.Type = binary.BigEndian.Uint16(entry[6:])
	c.Size = binary.BigEndian.Uint64(entry[8:])
	copy(c.Hash[:], entry[16:16+types.HashSize])
	return c
}
