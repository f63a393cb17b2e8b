// File: internal/types/wiidisc.go
package types

// On-disc layout constants for encrypted Wii discs. All multi-byte fields
// on the disc are stored big-endian. Offsets are relative to the start of
// the disc unless stated otherwise.
const (
	// NoPartitionsOffset holds a 32-bit field that is zero on encrypted
	// discs. Any other value means the disc has no partition table and is
	// read as a flat unencrypted image.
	NoPartitionsOffset = 0x60

	// PartitionGroupTableOffset is where the four partition group
	// descriptors start. Each descriptor is 8 bytes: a 32-bit partition
	// count followed by a 32-bit table offset stored right-shifted by 2.
	PartitionGroupTableOffset = 0x40000

	// PartitionGroupCount is fixed by the disc format.
	PartitionGroupCount = 4

	// RegionCodeOffset holds the disc-wide 32-bit region code.
	RegionCodeOffset = 0x4E000

	// PartitionDataOffset is where the encrypted block stream begins,
	// relative to the start of a partition.
	PartitionDataOffset = 0x20000

	// TMDSizeOffset and TMDAddressOffset locate a partition's title
	// metadata, relative to the start of the partition. The address is
	// stored right-shifted by 2.
	TMDSizeOffset    = 0x2A4
	TMDAddressOffset = 0x2A8

	// PartitionDataSizeOffset holds the partition's total data size
	// divided by 4, relative to the start of the partition.
	PartitionDataSizeOffset = 0x2BC
)

// Encrypted block geometry. Each 0x8000-byte block carries a 0x400-byte
// hash/metadata header followed by 0x7C00 bytes of AES-128-CBC encrypted
// payload. The payload IV lives inside the header at BlockIVOffset.
const (
	BlockTotalSize  = 0x8000
	BlockHeaderSize = 0x400
	BlockDataSize   = 0x7C00
	BlockIVOffset   = 0x3D0

	// HashesPerCluster, HashSegmentSize and HashSize describe the first
	// level of the cluster hash tree: 31 SHA-1 digests, one per
	// 0x400-byte segment of the decrypted payload.
	HashesPerCluster = 31
	HashSegmentSize  = 0x400
	HashSize         = 20

	// ClusterPadOffset and ClusterPadEnd bound the padding region of the
	// decrypted cluster metadata that the integrity check inspects to
	// recognize clusters that were never meant to be read.
	ClusterPadOffset = 0x26C
	ClusterPadEnd    = 0x280
)

// Signed record sizes from the ES module formats.
const (
	// TicketSize is the exact size of one signed ticket record. A ticket
	// buffer may hold several concatenated records; disc partitions carry
	// exactly one.
	TicketSize = 0x2A4

	// TMDHeaderSize is the fixed TMD header; TMDContentSize is one content
	// descriptor. A valid TMD is TMDHeaderSize + n*TMDContentSize bytes.
	TMDHeaderSize  = 0x1E4
	TMDContentSize = 36

	// MaxTMDSize bounds TMD buffers before allocation so a hostile size
	// field cannot drive a huge allocation.
	MaxTMDSize = 0x49E4
)

// Partition identifies an encrypted region of the disc by its starting
// byte offset. It is used purely as a lookup key and is never mutated
// after discovery.
type Partition struct {
	Offset uint64
}

// PartitionNone is the distinguished "no partition" value. Reads against
// it bypass decryption entirely.
var PartitionNone = Partition{Offset: ^uint64(0)}
