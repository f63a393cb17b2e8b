// File: internal/device/memory.go
package device

import (
	"encoding/binary"
	"fmt"
)

// MemoryDevice is an in-memory BlobReader over a byte slice. It backs
// tests and synthetic images.
type MemoryDevice struct {
	data []byte
}

// NewMemoryDevice wraps data without copying it.
func NewMemoryDevice(data []byte) *MemoryDevice {
	return &MemoryDevice{data: data}
}

// Read returns exactly length bytes starting at offset.
func (d *MemoryDevice) Read(offset uint64, length uint64) ([]byte, error) {
	if offset+length > uint64(len(d.data)) {
		return nil, fmt.Errorf("read of %d bytes at offset 0x%x exceeds image size 0x%x", length, offset, len(d.data))
	}

	buf := make([]byte, length)
	copy(buf, d.data[offset:])
	return buf, nil
}

// ReadUint32 reads a big-endian 32-bit value at offset.
func (d *MemoryDevice) ReadUint32(offset uint64) (uint32, error) {
	buf, err := d.Read(offset, 4)
	if err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint32(buf), nil
}

// ReadUint16 reads a big-endian 16-bit value at offset.
func (d *MemoryDevice) ReadUint16(offset uint64) (uint16, error) {
	buf, err := d.Read(offset, 2)
	if err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint16(buf), nil
}

// ReadUint8 reads a single byte at offset.
func (d *MemoryDevice) ReadUint8(offset uint64) (uint8, error) {
	buf, err := d.Read(offset, 1)
	if err != nil {
		return 0, err
	}
	return buf[0], nil
}

// Size returns the image size in bytes.
func (d *MemoryDevice) Size() uint64 {
	return uint64(len(d.data))
}
