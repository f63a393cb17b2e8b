// File: internal/volume/wii_volume.go
package volume

import (
	"crypto/cipher"
	"fmt"
	"sort"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/tfsdf/go-wiidisc/internal/crypto"
	"github.com/tfsdf/go-wiidisc/internal/interfaces"
	"github.com/tfsdf/go-wiidisc/internal/parsers/es"
	"github.com/tfsdf/go-wiidisc/internal/types"
)

// noBlockCached marks the single-block cache as empty. No physical block
// can live at this offset.
const noBlockCached = ^uint64(0)

var (
	_ interfaces.VolumeReader     = (*WiiVolume)(nil)
	_ interfaces.IntegrityChecker = (*WiiVolume)(nil)
)

// WiiVolume exposes the partitioned, AES-encrypted content of a Wii disc
// image as flat byte-addressable ranges. Partitions, their tickets, TMDs
// and decryption keys are resolved once at construction and never change
// afterwards.
//
// A WiiVolume is not safe for concurrent use: reads share a single
// decrypted-block cache. The key material itself is immutable and may be
// shared read-only.
type WiiVolume struct {
	reader interfaces.BlobReader
	keys   crypto.CommonKeyTable

	partitionKeys map[types.Partition]cipher.Block
	tickets       map[types.Partition]*es.TicketReader
	tmds          map[types.Partition]*es.TMDReader
	gamePartition types.Partition

	lastDecryptedBlock     uint64
	lastDecryptedBlockData []byte

	// Shared invalid sentinels so lookups on unknown partitions return a
	// usable reader whose IsValid reports false instead of failing.
	invalidTicket *es.TicketReader
	invalidTMD    *es.TMDReader
}

// NewWiiVolume scans the partition table of the disc image behind reader
// and resolves a ticket, TMD and decryption key for every partition that
// validates. Structurally broken partitions are skipped, never fatal; a
// disc whose no-partitions field is set is served as a flat unencrypted
// image.
func NewWiiVolume(reader interfaces.BlobReader, keys crypto.CommonKeyTable) (*WiiVolume, error) {
	if reader == nil {
		return nil, fmt.Errorf("blob reader cannot be nil")
	}

	v := &WiiVolume{
		reader:                 reader,
		keys:                   keys,
		partitionKeys:          make(map[types.Partition]cipher.Block),
		tickets:                make(map[types.Partition]*es.TicketReader),
		tmds:                   make(map[types.Partition]*es.TMDReader),
		gamePartition:          types.PartitionNone,
		lastDecryptedBlock:     noBlockCached,
		lastDecryptedBlockData: make([]byte, types.BlockDataSize),
		invalidTicket:          es.NewTicketReader(nil),
		invalidTMD:             es.NewTMDReader(nil),
	}

	if flag, err := reader.ReadUint32(types.NoPartitionsOffset); err != nil || flag != 0 {
		// No partitions - the disc is read unencrypted, like a GameCube
		// image.
		return v, nil
	}

	v.scanPartitions()
	return v, nil
}

// scanPartitions walks the four partition groups and stores every fully
// validated {partition, key, ticket, TMD} tuple. Nothing is stored
// before the whole tuple validates, so a present entry is always usable.
func (v *WiiVolume) scanPartitions() {
	// Whether some partition already claimed the game-partition slot.
	// The first type-0 partition claims it before its ticket and TMD are
	// validated; if that partition is then rejected, the slot stays
	// consumed and the volume has no game partition. This matches the
	// scan order of the original console loader and is kept on purpose.
	gameClaimed := false

	for group := uint64(0); group < types.PartitionGroupCount; group++ {
		numPartitions, err := v.reader.ReadUint32(types.PartitionGroupTableOffset + group*8)
		if err != nil {
			continue
		}

		tableOffsetRaw, err := v.reader.ReadUint32(types.PartitionGroupTableOffset + group*8 + 4)
		if err != nil {
			continue
		}
		tableOffset := uint64(tableOffsetRaw) << 2

		for i := uint64(0); i < uint64(numPartitions); i++ {
			offsetRaw, err := v.reader.ReadUint32(tableOffset + i*8)
			if err != nil {
				continue
			}
			partition := types.Partition{Offset: uint64(offsetRaw) << 2}

			partitionType, typeErr := v.reader.ReadUint32(tableOffset + i*8 + 4)
			isGamePartition := !gameClaimed && typeErr == nil && partitionType == 0
			if isGamePartition {
				gameClaimed = true
			}

			ticketData, err := v.reader.Read(partition.Offset, types.TicketSize)
			if err != nil {
				continue
			}
			ticket := es.NewTicketReader(ticketData)
			if !ticket.IsValid() {
				logrus.WithField("partition", fmt.Sprintf("0x%x", partition.Offset)).
					Debug("skipping partition with invalid ticket")
				continue
			}

			tmdSize, err := v.reader.ReadUint32(partition.Offset + types.TMDSizeOffset)
			if err != nil {
				continue
			}
			tmdAddressRaw, err := v.reader.ReadUint32(partition.Offset + types.TMDAddressOffset)
			if err != nil {
				continue
			}
			// The size field is untrusted; bound it before allocating.
			if !es.IsValidTMDSize(tmdSize) {
				logrus.WithFields(logrus.Fields{
					"partition": fmt.Sprintf("0x%x", partition.Offset),
					"size":      tmdSize,
				}).Warn("skipping partition with invalid TMD size")
				continue
			}
			tmdData, err := v.reader.Read(partition.Offset+uint64(tmdAddressRaw)<<2, uint64(tmdSize))
			if err != nil {
				continue
			}
			tmd := es.NewTMDReader(tmdData)

			titleKey, err := ticket.TitleKey(v.keys)
			if err != nil || len(titleKey) != 16 {
				logrus.WithField("partition", fmt.Sprintf("0x%x", partition.Offset)).
					Debug("skipping partition without a recoverable title key")
				continue
			}
			aesBlock, err := crypto.NewAES128(titleKey)
			if err != nil {
				continue
			}

			// Everything validated; store the tuple.
			v.partitionKeys[partition] = aesBlock
			v.tickets[partition] = ticket
			v.tmds[partition] = tmd
			if isGamePartition {
				v.gamePartition = partition
			}
		}
	}
}

// Read returns length decrypted bytes at the partition-relative offset.
// For types.PartitionNone the raw image bytes are returned unchanged.
// At most one block is decrypted per distinct physical block the range
// touches, served from a single-block cache across calls.
func (v *WiiVolume) Read(offset uint64, length uint64, partition types.Partition) ([]byte, error) {
	if partition == types.PartitionNone {
		return v.reader.Read(offset, length)
	}

	aesBlock, ok := v.partitionKeys[partition]
	if !ok {
		return nil, fmt.Errorf("no decryption key for partition at offset 0x%x", partition.Offset)
	}

	out := make([]byte, length)
	dst := out
	for length > 0 {
		blockOffsetOnDisc := partition.Offset + types.PartitionDataOffset +
			offset/types.BlockDataSize*types.BlockTotalSize
		dataOffsetInBlock := offset % types.BlockDataSize

		if v.lastDecryptedBlock != blockOffsetOnDisc {
			raw, err := v.reader.Read(blockOffsetOnDisc, types.BlockTotalSize)
			if err != nil {
				return nil, fmt.Errorf("failed to read block at 0x%x: %w", blockOffsetOnDisc, err)
			}

			// Only the payload is decrypted here. The header holds the
			// hash tree, which the integrity checker interprets; the
			// reader just takes the payload IV from it.
			iv := raw[types.BlockIVOffset : types.BlockIVOffset+16]
			cipher.NewCBCDecrypter(aesBlock, iv).
				CryptBlocks(v.lastDecryptedBlockData, raw[types.BlockHeaderSize:])
			v.lastDecryptedBlock = blockOffsetOnDisc
		}

		copySize := types.BlockDataSize - dataOffsetInBlock
		if length < copySize {
			copySize = length
		}
		copy(dst, v.lastDecryptedBlockData[dataOffsetInBlock:dataOffsetInBlock+copySize])

		dst = dst[copySize:]
		offset += copySize
		length -= copySize
	}

	return out, nil
}

// PartitionOffsetToRawOffset translates a partition-relative decrypted
// offset to the physical disc offset holding the corresponding encrypted
// byte. It is a pure address translation; nothing is read.
func PartitionOffsetToRawOffset(offset uint64, partition types.Partition) uint64 {
	if partition == types.PartitionNone {
		return offset
	}
	return partition.Offset + types.PartitionDataOffset +
		offset/types.BlockDataSize*types.BlockTotalSize +
		offset%types.BlockDataSize
}

// Partitions returns every validated partition, ordered by disc offset.
func (v *WiiVolume) Partitions() []types.Partition {
	partitions := make([]types.Partition, 0, len(v.partitionKeys))
	for partition := range v.partitionKeys {
		partitions = append(partitions, partition)
	}
	sort.Slice(partitions, func(i, j int) bool {
		return partitions[i].Offset < partitions[j].Offset
	})
	return partitions
}

// GamePartition returns the distinguished game partition, or
// types.PartitionNone when the disc has none.
func (v *WiiVolume) GamePartition() types.Partition {
	return v.gamePartition
}

// Ticket returns the partition's ticket, or a shared invalid reader for
// unknown partitions.
func (v *WiiVolume) Ticket(partition types.Partition) *es.TicketReader {
	if ticket, ok := v.tickets[partition]; ok {
		return ticket
	}
	return v.invalidTicket
}

// TMD returns the partition's title metadata, or a shared invalid reader
// for unknown partitions.
func (v *WiiVolume) TMD(partition types.Partition) *es.TMDReader {
	if tmd, ok := v.tmds[partition]; ok {
		return tmd
	}
	return v.invalidTMD
}

// TitleID returns the title id from the partition's ticket.
func (v *WiiVolume) TitleID(partition types.Partition) (uint64, error) {
	ticket := v.Ticket(partition)
	if !ticket.IsValid() {
		return 0, fmt.Errorf("no valid ticket for partition at offset 0x%x", partition.Offset)
	}
	return ticket.TitleID(), nil
}

// GameID returns the 6-character game code at the start of the
// partition's data.
func (v *WiiVolume) GameID(partition types.Partition) (string, error) {
	return v.readString(0, 6, partition)
}

// MakerID returns the 2-character maker code.
func (v *WiiVolume) MakerID(partition types.Partition) (string, error) {
	return v.readString(4, 2, partition)
}

// DiscNumber returns the disc number byte of a multi-disc title.
func (v *WiiVolume) DiscNumber(partition types.Partition) (uint8, error) {
	return v.readUint8(6, partition)
}

// Revision returns the title revision byte.
func (v *WiiVolume) Revision(partition types.Partition) (uint8, error) {
	return v.readUint8(7, partition)
}

// InternalName returns the name embedded in the partition's boot header.
func (v *WiiVolume) InternalName(partition types.Partition) (string, error) {
	return v.readString(0x20, 0x60, partition)
}

// ApploaderDate returns the build date string of the apploader.
func (v *WiiVolume) ApploaderDate(partition types.Partition) (string, error) {
	return v.readString(0x2440, 0x10, partition)
}

// RegionCode returns the raw disc-wide region code. Mapping it to
// countries and languages is left to callers.
func (v *WiiVolume) RegionCode() (uint32, error) {
	return v.reader.ReadUint32(types.RegionCodeOffset)
}

// Size returns the total size of the underlying image.
func (v *WiiVolume) Size() uint64 {
	return v.reader.Size()
}

func (v *WiiVolume) readUint8(offset uint64, partition types.Partition) (uint8, error) {
	buf, err := v.Read(offset, 1, partition)
	if err != nil {
		return 0, err
	}
	return buf[0], nil
}

func (v *WiiVolume) readString(offset uint64, length uint64, partition types.Partition) (string, error) {
	buf, err := v.Read(offset, length, partition)
	if err != nil {
		return "", err
	}
	return decodeString(buf), nil
}

// decodeString renders an on-disc fixed-size text field: NUL-terminated,
// stripped of trailing padding.
func decodeString(buf []byte) string {
	s := string(buf)
	if i := strings.IndexByte(s, 0); i >= 0 {
		s = s[:i]
	}
	return strings.TrimRight(s, " ")
}
