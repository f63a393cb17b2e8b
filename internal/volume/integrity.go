// File: internal/volume/integrity.go
package volume

import (
	"bytes"
	"crypto/aes"
	"crypto/sha1"

	"github.com/sirupsen/logrus"

	"github.com/tfsdf/go-wiidisc/internal/crypto"
	"github.com/tfsdf/go-wiidisc/internal/types"
)

// CheckIntegrity walks every cluster of the partition, decrypts its hash
// metadata and validates the 31 per-segment SHA-1 digests against the
// freshly decrypted data. The first failure stops the walk; details are
// logged, the return value only says whether the partition is clean.
func (v *WiiVolume) CheckIntegrity(partition types.Partition) bool {
	aesBlock, ok := v.partitionKeys[partition]
	if !ok {
		logrus.WithField("partition", partition.Offset).
			Warn("integrity check: no decryption key for partition")
		return false
	}

	sizeDiv4, err := v.reader.ReadUint32(partition.Offset + types.PartitionDataSizeOffset)
	if err != nil {
		logrus.WithField("partition", partition.Offset).
			Warn("integrity check: could not read partition data size")
		return false
	}
	dataSize := uint64(sizeDiv4) * 4

	clusters := dataSize / types.BlockTotalSize
	zeroIV := make([]byte, aes.BlockSize)
	for cluster := uint64(0); cluster < clusters; cluster++ {
		clusterOffset := partition.Offset + types.PartitionDataOffset + cluster*types.BlockTotalSize

		encryptedMetadata, err := v.reader.Read(clusterOffset, types.BlockHeaderSize)
		if err != nil {
			logrus.WithField("cluster", cluster).
				Warn("integrity check: could not read cluster metadata")
			return false
		}

		// The metadata region is encrypted with a zero IV, unlike the
		// payload, which uses the IV stored inside this very region.
		metadata, err := crypto.DecryptCBC(aesBlock, zeroIV, encryptedMetadata)
		if err != nil {
			logrus.WithField("cluster", cluster).
				Warn("integrity check: could not decrypt cluster metadata")
			return false
		}

		// Clusters in the holes between files carry no meaningful data
		// or hashes. Their decrypted metadata padding is all zero; they
		// are skipped rather than reported as corruption.
		if isMeaninglessCluster(metadata) {
			continue
		}

		data, err := v.Read(cluster*types.BlockDataSize, types.BlockDataSize, partition)
		if err != nil {
			logrus.WithField("cluster", cluster).
				Warn("integrity check: could not read cluster data")
			return false
		}

		for segment := 0; segment < types.HashesPerCluster; segment++ {
			hash := sha1.Sum(data[segment*types.HashSegmentSize : (segment+1)*types.HashSegmentSize])
			stored := metadata[segment*types.HashSize : (segment+1)*types.HashSize]
			if !bytes.Equal(hash[:], stored) {
				logrus.WithFields(logrus.Fields{
					"cluster": cluster,
					"segment": segment,
				}).Warn("integrity check: segment hash mismatch")
				return false
			}
		}
	}

	return true
}

func isMeaninglessCluster(metadata []byte) bool {
	for _, b := range metadata[types.ClusterPadOffset:types.ClusterPadEnd] {
		if b != 0 {
			return false
		}
	}
	return true
}
