// File: internal/crypto/keys.go
package crypto

import (
	"crypto/aes"
	"encoding/binary"
	"fmt"
)

// CommonKeyCount is the number of console-wide shared keys a ticket can
// select between: the worldwide key at index 0 and the Korean key at
// index 1.
const CommonKeyCount = 2

// CommonKeyTable holds the console-wide shared AES-128 keys used to
// decrypt a ticket's embedded title key. The table is immutable once
// built; components that need it receive their own copy instead of
// reaching for process-wide state.
type CommonKeyTable [CommonKeyCount][16]byte

// DefaultCommonKeys returns the well-known retail key table.
func DefaultCommonKeys() CommonKeyTable {
	return CommonKeyTable{
		{0xEB, 0xE4, 0x2A, 0x22, 0x5E, 0x85, 0x93, 0xE4,
			0x48, 0xD9, 0xC5, 0x45, 0x73, 0x81, 0xAA, 0xF7},
		{0x63, 0xB8, 0x2B, 0xB4, 0xF4, 0x61, 0x4E, 0x2E,
			0x13, 0xF2, 0xFE, 0xFB, 0xBA, 0x4C, 0x9B, 0x7E},
	}
}

// Key returns the common key for a ticket's common-key-index field.
// Out-of-range indices fall back to the worldwide key, matching console
// behaviour for malformed tickets.
func (t CommonKeyTable) Key(index uint8) [16]byte {
	if index >= CommonKeyCount {
		return t[0]
	}
	return t[index]
}

// DecryptTitleKey recovers a per-title AES-128 key from its encrypted
// form inside a ticket. The title key is AES-128-CBC encrypted under the
// selected common key with an IV of the 64-bit title id left-padded with
// zero bytes to a full AES block.
func DecryptTitleKey(encryptedKey []byte, titleID uint64, commonKeyIndex uint8, keys CommonKeyTable) ([]byte, error) {
	if len(encryptedKey) != 16 {
		return nil, fmt.Errorf("encrypted title key must be 16 bytes, got %d", len(encryptedKey))
	}

	common := keys.Key(commonKeyIndex)
	block, err := aes.NewCipher(common[:])
	if err != nil {
		return nil, fmt.Errorf("failed to create AES cipher: %w", err)
	}

	iv := make([]byte, aes.BlockSize)
	binary.BigEndian.PutUint64(iv, titleID)

	return DecryptCBC(block, iv, encryptedKey)
}
