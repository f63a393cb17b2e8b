// File: internal/interfaces/blob.go
package interfaces

// BlobReader supplies raw bytes for a given disc offset. Implementations
// sit below the volume layer and know nothing about partitions or
// encryption; they only answer byte-range reads against the image.
//
// All multi-byte reads are big-endian, matching the on-disc byte order.
type BlobReader interface {
	// Read returns exactly length bytes starting at offset, or an error
	// if the range cannot be served in full.
	Read(offset uint64, length uint64) ([]byte, error)

	// ReadUint32 reads a big-endian 32-bit value at offset.
	ReadUint32(offset uint64) (uint32, error)

	// ReadUint16 reads a big-endian 16-bit value at offset.
	ReadUint16(offset uint64) (uint16, error)

	// ReadUint8 reads a single byte at offset.
	ReadUint8(offset uint64) (uint8, error)

	// Size returns the total size of the underlying image in bytes.
	Size() uint64
}
