package volume

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/sha1"
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/tfsdf/go-wiidisc/internal/crypto"
	"github.com/tfsdf/go-wiidisc/internal/types"
)

// Synthetic disc geometry shared by the volume tests. One partition
// group with one game partition; the TMD sits right after the ticket
// area, the data region at the usual 0x20000.
const (
	testPartitionOffset   = 0x50000
	testPartitionTable    = 0x40020
	testTMDOffset         = 0x2C0
	testTitleID           = uint64(0x0001000054455354) // low half "TEST"
	testGroupID           = uint16(0x3031)             // "01"
	testRegionCode        = uint32(2)
	testTicketIDValue     = uint64(0x00010001CAFED00D)
	ticketTitleKeyOffset  = 0x1BF
	ticketIDOffset        = 0x1D0
	ticketDeviceIDOffset  = 0x1D8
	ticketTitleIDOffset   = 0x1DC
	ticketKeyIndexOffset  = 0x1F1
	tmdTitleIDOffset      = 0x18C
	tmdGroupIDOffset      = 0x198
	tmdNumContentsOffset  = 0x1DE
)

var testTitleKey = []byte("0123456789abcdef")

type testDisc struct {
	image     []byte
	partition types.Partition
}

func encryptCBC(t *testing.T, key []byte, iv []byte, src []byte) []byte {
	t.Helper()

	block, err := aes.NewCipher(key)
	require.NoError(t, err)

	dst := make([]byte, len(src))
	cipher.NewCBCEncrypter(block, iv).CryptBlocks(dst, src)
	return dst
}

// buildTestTicket builds a ticket whose encrypted title key field
// recovers testTitleKey under common key 0.
func buildTestTicket(t *testing.T) []byte {
	t.Helper()

	data := make([]byte, types.TicketSize)
	binary.BigEndian.PutUint64(data[ticketIDOffset:], testTicketIDValue)
	binary.BigEndian.PutUint64(data[ticketTitleIDOffset:], testTitleID)
	data[ticketKeyIndexOffset] = 0

	keys := crypto.DefaultCommonKeys()
	iv := make([]byte, aes.BlockSize)
	binary.BigEndian.PutUint64(iv, testTitleID)
	copy(data[ticketTitleKeyOffset:], encryptCBC(t, keys[0][:], iv, testTitleKey))

	return data
}

// buildTestTMD builds a minimal valid TMD with a single content entry.
func buildTestTMD() []byte {
	data := make([]byte, types.TMDHeaderSize+types.TMDContentSize)
	binary.BigEndian.PutUint64(data[tmdTitleIDOffset:], testTitleID)
	binary.BigEndian.PutUint16(data[tmdGroupIDOffset:], testGroupID)
	binary.BigEndian.PutUint16(data[tmdNumContentsOffset:], 1)
	binary.BigEndian.PutUint32(data[types.TMDHeaderSize:], 1) // content id
	return data
}

// buildClusterPayload fills one cluster's worth of logical data with a
// deterministic pattern. Cluster 0 carries the boot header fields the
// volume accessors read.
func buildClusterPayload(index int) []byte {
	payload := make([]byte, types.BlockDataSize)
	for i := range payload {
		payload[i] = byte(i*7 + index*13 + 1)
	}

	if index == 0 {
		copy(payload[0:], "RTESTA01")
		payload[6] = 0 // disc number
		payload[7] = 1 // revision
		name := make([]byte, 0x60)
		copy(name, "INTEGRATION TEST DISC")
		copy(payload[0x20:], name)
		date := make([]byte, 0x10)
		copy(date, "2026/08/30")
		copy(payload[0x2440:], date)
	}
	return payload
}

// buildCluster assembles one encrypted 0x8000-byte cluster. For regular
// clusters the metadata carries correct segment hashes and a nonzero
// padding marker; meaningless clusters keep the padding region zero and
// deliberately garbage hashes.
func buildCluster(t *testing.T, payload []byte, meaningless bool) []byte {
	t.Helper()
	require.Len(t, payload, types.BlockDataSize)

	metadata := make([]byte, types.BlockHeaderSize)
	if meaningless {
		for i := 0; i < types.HashesPerCluster*types.HashSize; i++ {
			metadata[i] = 0xDE
		}
	} else {
		for segment := 0; segment < types.HashesPerCluster; segment++ {
			hash := sha1.Sum(payload[segment*types.HashSegmentSize : (segment+1)*types.HashSegmentSize])
			copy(metadata[segment*types.HashSize:], hash[:])
		}
		metadata[types.ClusterPadOffset] = 0x01
	}

	zeroIV := make([]byte, aes.BlockSize)
	encryptedMetadata := encryptCBC(t, testTitleKey, zeroIV, metadata)

	// The payload IV is whatever ends up at 0x3D0 of the stored
	// (encrypted) metadata region.
	iv := encryptedMetadata[types.BlockIVOffset : types.BlockIVOffset+aes.BlockSize]
	encryptedPayload := encryptCBC(t, testTitleKey, iv, payload)

	return append(encryptedMetadata, encryptedPayload...)
}

// buildTestDisc assembles a complete synthetic encrypted disc image with
// one partition holding the given cluster payloads.
func buildTestDisc(t *testing.T, payloads [][]byte, meaningless []bool) *testDisc {
	t.Helper()

	clusters := len(payloads)
	image := make([]byte, testPartitionOffset+types.PartitionDataOffset+clusters*types.BlockTotalSize)

	// Partition group 0: one partition of type 0.
	binary.BigEndian.PutUint32(image[types.PartitionGroupTableOffset:], 1)
	binary.BigEndian.PutUint32(image[types.PartitionGroupTableOffset+4:], testPartitionTable>>2)
	binary.BigEndian.PutUint32(image[testPartitionTable:], testPartitionOffset>>2)
	binary.BigEndian.PutUint32(image[testPartitionTable+4:], 0)

	binary.BigEndian.PutUint32(image[types.RegionCodeOffset:], testRegionCode)

	copy(image[testPartitionOffset:], buildTestTicket(t))

	tmd := buildTestTMD()
	binary.BigEndian.PutUint32(image[testPartitionOffset+types.TMDSizeOffset:], uint32(len(tmd)))
	binary.BigEndian.PutUint32(image[testPartitionOffset+types.TMDAddressOffset:], testTMDOffset>>2)
	copy(image[testPartitionOffset+testTMDOffset:], tmd)

	dataSize := uint64(clusters) * types.BlockTotalSize
	binary.BigEndian.PutUint32(image[testPartitionOffset+types.PartitionDataSizeOffset:], uint32(dataSize/4))

	for i, payload := range payloads {
		skip := i < len(meaningless) && meaningless[i]
		cluster := buildCluster(t, payload, skip)
		copy(image[testPartitionOffset+types.PartitionDataOffset+i*types.BlockTotalSize:], cluster)
	}

	return &testDisc{
		image:     image,
		partition: types.Partition{Offset: testPartitionOffset},
	}
}

func defaultTestDisc(t *testing.T) *testDisc {
	t.Helper()
	return buildTestDisc(t, [][]byte{buildClusterPayload(0), buildClusterPayload(1)}, nil)
}
