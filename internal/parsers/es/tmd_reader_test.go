package es

import (
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tfsdf/go-wiidisc/internal/types"
)

// createTestTMD builds a synthetic TMD with the given contents. The
// declared content count always matches len(contents); size mismatches
// are introduced by the individual tests.
func createTestTMD(titleID uint64, groupID uint16, contents []Content) []byte {
	data := make([]byte, types.TMDHeaderSize+len(contents)*types.TMDContentSize)

	data[tmdVersionOffset] = 0
	binary.BigEndian.PutUint64(data[tmdIOSIDOffset:], 0x0000000100000038)
	binary.BigEndian.PutUint64(data[tmdTitleIDOffset:], titleID)
	binary.BigEndian.PutUint32(data[tmdTitleFlagsOffset:], 1)
	binary.BigEndian.PutUint16(data[tmdGroupIDOffset:], groupID)
	binary.BigEndian.PutUint16(data[tmdRegionOffset:], 2)
	binary.BigEndian.PutUint16(data[tmdTitleVersionOffset:], 0x0101)
	binary.BigEndian.PutUint16(data[tmdNumContentsOffset:], uint16(len(contents)))
	binary.BigEndian.PutUint16(data[tmdBootIndexOffset:], 1)

	for i, c := range contents {
		entry := data[tmdContentsOffset+i*types.TMDContentSize:]
		binary.BigEndian.PutUint32(entry, c.ID)
		binary.BigEndian.PutUint16(entry[4:], c.Index)
		binary.BigEndian.PutUint16(entry[6:], c.Type)
		binary.BigEndian.PutUint64(entry[8:], c.Size)
		copy(entry[16:], c.Hash[:])
	}

	return data
}

func testContents() []Content {
	return []Content{
		{ID: 1, Index: 0, Type: 1, Size: 0x40, Hash: [20]byte{0x01, 0x02}},
		{ID: 5, Index: 1, Type: 1, Size: 0x7C00, Hash: [20]byte{0xAA, 0xBB}},
	}
}

func TestIsValidTMDSize(t *testing.T) {
	testCases := []struct {
		name  string
		size  uint32
		valid bool
	}{
		{"Zero", 0, false},
		{"Below header size", types.TMDHeaderSize - 1, false},
		{"Header only", types.TMDHeaderSize, true},
		{"Header plus one content", types.TMDHeaderSize + types.TMDContentSize, true},
		{"Not on a content boundary", types.TMDHeaderSize + 1, false},
		{"Maximum", types.MaxTMDSize, true},
		{"Above maximum", types.MaxTMDSize + types.TMDContentSize, false},
		{"Hostile size", 0xFFFFFFFF, false},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.valid, IsValidTMDSize(tc.size))
		})
	}
}

func TestTMDReaderValidity(t *testing.T) {
	valid := createTestTMD(0x10004, 0x3031, testContents())
	assert.True(t, NewTMDReader(valid).IsValid())

	// The buffer must match the count its own header declares.
	truncated := valid[:len(valid)-types.TMDContentSize]
	assert.False(t, NewTMDReader(truncated).IsValid())

	extended := append(append([]byte{}, valid...), make([]byte, types.TMDContentSize)...)
	assert.False(t, NewTMDReader(extended).IsValid())

	assert.False(t, NewTMDReader(nil).IsValid())
	assert.False(t, NewTMDReader(make([]byte, types.TMDHeaderSize-1)).IsValid())
}

func TestTMDReaderInvalidBufferYieldsNothing(t *testing.T) {
	valid := createTestTMD(0x10004, 0x3031, testContents())
	tmd := NewTMDReader(valid[:len(valid)-1])

	assert.Zero(t, tmd.NumContents())
	assert.Nil(t, tmd.Contents())
	assert.Zero(t, tmd.TitleID())
	assert.Empty(t, tmd.GameID())

	_, err := tmd.Content(0)
	assert.Error(t, err)
}

func TestTMDReaderHeaderFields(t *testing.T) {
	tmd := NewTMDReader(createTestTMD(0x0001000054455354, 0x3031, testContents()))

	require.True(t, tmd.IsValid())
	assert.Equal(t, uint64(0x0001000054455354), tmd.TitleID())
	assert.Equal(t, uint64(0x0000000100000038), tmd.IOSID())
	assert.Equal(t, uint32(1), tmd.TitleFlags())
	assert.Equal(t, uint16(0x3031), tmd.GroupID())
	assert.Equal(t, uint16(2), tmd.Region())
	assert.Equal(t, uint16(0x0101), tmd.TitleVersion())
	assert.Equal(t, uint16(2), tmd.NumContents())
	assert.Equal(t, uint16(1), tmd.BootIndex())
}

func TestTMDReaderGameID(t *testing.T) {
	// Low title id bytes "TEST" plus group id "01".
	tmd := NewTMDReader(createTestTMD(0x0001000054455354, 0x3031, nil))
	assert.Equal(t, "TEST01", tmd.GameID())

	// Unprintable characters fall back to the hexadecimal title id.
	tmd = NewTMDReader(createTestTMD(0x0001000000455354, 0x3031, nil))
	assert.Equal(t, "0001000000455354", tmd.GameID())

	tmd = NewTMDReader(createTestTMD(0x0001000054455354, 0x0180, nil))
	assert.Equal(t, "0001000054455354", tmd.GameID())
}

func TestTMDReaderContents(t *testing.T) {
	tmd := NewTMDReader(createTestTMD(0x10004, 0x3031, testContents()))

	contents := tmd.Contents()
	require.Len(t, contents, 2)
	assert.Equal(t, testContents(), contents)

	second, err := tmd.Content(1)
	require.NoError(t, err)
	assert.Equal(t, uint32(5), second.ID)
	assert.Equal(t, uint64(0x7C00), second.Size)

	_, err = tmd.Content(2)
	assert.Error(t, err)

	found, err := tmd.FindContentByID(5)
	require.NoError(t, err)
	assert.Equal(t, uint16(1), found.Index)

	_, err = tmd.FindContentByID(42)
	assert.Error(t, err)
}
