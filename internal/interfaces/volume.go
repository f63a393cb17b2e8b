// File: internal/interfaces/volume.go
package interfaces

import (
	"github.com/tfsdf/go-wiidisc/internal/types"
)

// VolumeReader exposes a partitioned, encrypted disc as flat decrypted
// byte ranges. Implementations own their decryption state; a single
// VolumeReader must not be shared between concurrent callers.
type VolumeReader interface {
	// Read returns length decrypted bytes at the partition-relative
	// offset. Passing types.PartitionNone reads raw disc bytes without
	// decryption.
	Read(offset uint64, length uint64, partition types.Partition) ([]byte, error)

	// Partitions returns every partition that passed validation during
	// the scan, ordered by disc offset.
	Partitions() []types.Partition

	// GamePartition returns the distinguished game partition, or
	// types.PartitionNone if the disc has none.
	GamePartition() types.Partition

	// Size returns the total size of the underlying image.
	Size() uint64
}

// IntegrityChecker validates a partition's cluster hash tree against its
// decrypted contents.
type IntegrityChecker interface {
	// CheckIntegrity reports whether every readable cluster of the
	// partition matches its stored segment hashes. Details about the
	// first failing cluster are logged, not returned.
	CheckIntegrity(partition types.Partition) bool
}
