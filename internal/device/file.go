// File: internal/device/file.go
package device

import (
	"encoding/binary"
	"fmt"
	"io"

	"github.com/spf13/afero"
)

// FileDevice serves byte-range reads from a raw disc image file. It is
// the on-disk implementation of interfaces.BlobReader.
type FileDevice struct {
	file afero.File
	path string
	size uint64
}

// Open opens a disc image on the given filesystem.
func Open(fs afero.Fs, path string) (*FileDevice, error) {
	if path == "" {
		return nil, fmt.Errorf("disc image path cannot be empty")
	}

	file, err := fs.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open disc image: %w", err)
	}

	info, err := file.Stat()
	if err != nil {
		file.Close()
		return nil, fmt.Errorf("failed to stat disc image: %w", err)
	}

	return &FileDevice{
		file: file,
		path: path,
		size: uint64(info.Size()),
	}, nil
}

// Read returns exactly length bytes starting at offset.
func (d *FileDevice) Read(offset uint64, length uint64) ([]byte, error) {
	if offset+length > d.size {
		return nil, fmt.Errorf("read of %d bytes at offset 0x%x exceeds image size 0x%x", length, offset, d.size)
	}

	buf := make([]byte, length)
	if _, err := d.file.ReadAt(buf, int64(offset)); err != nil && err != io.EOF {
		return nil, fmt.Errorf("failed to read %d bytes at offset 0x%x: %w", length, offset, err)
	}
	return buf, nil
}

// ReadUint32 reads a big-endian 32-bit value at offset.
func (d *FileDevice) ReadUint32(offset uint64) (uint32, error) {
	buf, err := d.Read(offset, 4)
	if err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint32(buf), nil
}

// ReadUint16 reads a big-endian 16-bit value at offset.
func (d *FileDevice) ReadUint16(offset uint64) (uint16, error) {
	buf, err := d.Read(offset, 2)
	if err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint16(buf), nil
}

// ReadUint8 reads a single byte at offset.
func (d *FileDevice) ReadUint8(offset uint64) (uint8, error) {
	buf, err := d.Read(offset, 1)
	if err != nil {
		return 0, err
	}
	return buf[0], nil
}

// Size returns the image size in bytes.
func (d *FileDevice) Size() uint64 {
	return d.size
}

// Path returns the path the device was opened from.
func (d *FileDevice) Path() string {
	return d.path
}

// Close releases the underlying file.
func (d *FileDevice) Close() error {
	return d.file.Close()
}
