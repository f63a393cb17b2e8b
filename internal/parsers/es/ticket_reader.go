// File: internal/parsers/es/ticket_reader.go
package es

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/tfsdf/go-wiidisc/internal/crypto"
	"github.com/tfsdf/go-wiidisc/internal/types"
)

// Byte offsets of the ticket fields we interpret, within one signed
// 0x2A4-byte record. The record starts with an RSA-2048 signature block
// (type + signature + padding + issuer) ending at 0x180.
const (
	ticketIssuerOffset         = 0x140
	ticketIssuerLength         = 0x40
	ticketTitleKeyOffset       = 0x1BF
	ticketIDOffset             = 0x1D0
	ticketDeviceIDOffset       = 0x1D8
	ticketTitleIDOffset        = 0x1DC
	ticketCommonKeyIndexOffset = 0x1F1
	ticketContentAccessOffset  = 0x222
	ticketContentAccessLength  = 0x40
	ticketTimeLimitsOffset     = 0x264
	ticketTimeLimitCount       = 8
)

// ErrPersonalizedTicket is returned when a title key cannot be recovered
// because the ticket is bound to a specific console.
var ErrPersonalizedTicket = errors.New("ticket is personalized and requires console-specific key material")

// TimeLimit is one of the eight usage time limit entries of a ticket.
type TimeLimit struct {
	Enabled uint32
	Seconds uint32
}

// TicketReader provides typed accessors over one or more concatenated
// signed ticket records. Field accessors always read from the first
// record; a disc partition carries exactly one.
//
// The reader performs no signature verification. Structural size is the
// accepted validity proxy for this layer.
type TicketReader struct {
	data []byte
}

// NewTicketReader wraps a raw ticket buffer. The buffer is retained, not
// copied; DeleteTicket mutates it in place.
func NewTicketReader(data []byte) *TicketReader {
	return &TicketReader{data: data}
}

// IsValid reports whether the buffer is exactly one well-formed ticket
// record.
func (t *TicketReader) IsValid() bool {
	return len(t.data) == types.TicketSize
}

// Bytes returns the underlying raw record bytes.
func (t *TicketReader) Bytes() []byte {
	return t.data
}

// NumberOfTickets returns how many whole records the buffer holds.
func (t *TicketReader) NumberOfTickets() int {
	return len(t.data) / types.TicketSize
}

// Issuer returns the certificate chain name that signed the ticket.
func (t *TicketReader) Issuer() string {
	if len(t.data) < ticketIssuerOffset+ticketIssuerLength {
		return ""
	}
	issuer := t.data[ticketIssuerOffset : ticketIssuerOffset+ticketIssuerLength]
	if i := bytes.IndexByte(issuer, 0); i >= 0 {
		issuer = issuer[:i]
	}
	return string(issuer)
}

// TicketID returns the 64-bit ticket id of the first record.
func (t *TicketReader) TicketID() uint64 {
	if len(t.data) < ticketIDOffset+8 {
		return 0
	}
	return binary.BigEndian.Uint64(t.data[ticketIDOffset:])
}

// DeviceID returns the 32-bit console id the ticket is bound to, or zero
// for common (unpersonalized) tickets.
func (t *TicketReader) DeviceID() uint32 {
	if len(t.data) < ticketDeviceIDOffset+4 {
		return 0
	}
	return binary.BigEndian.Uint32(t.data[ticketDeviceIDOffset:])
}

// TitleID returns the 64-bit title id of the first record.
func (t *TicketReader) TitleID() uint64 {
	if len(t.data) < ticketTitleIDOffset+8 {
		return 0
	}
	return binary.BigEndian.Uint64(t.data[ticketTitleIDOffset:])
}

// CommonKeyIndex selects which console-wide common key encrypts the
// embedded title key.
func (t *TicketReader) CommonKeyIndex() uint8 {
	if len(t.data) <= ticketCommonKeyIndexOffset {
		return 0
	}
	return t.data[ticketCommonKeyIndexOffset]
}

// ContentAccessPermissions returns the per-content access bitmap.
func (t *TicketReader) ContentAccessPermissions() []byte {
	if len(t.data) < ticketContentAccessOffset+ticketContentAccessLength {
		return nil
	}
	perms := make([]byte, ticketContentAccessLength)
	copy(perms, t.data[ticketContentAccessOffset:])
	return perms
}

// TimeLimits returns the eight usage time limit entries.
func (t *TicketReader) TimeLimits() []TimeLimit {
	if len(t.data) < ticketTimeLimitsOffset+ticketTimeLimitCount*8 {
		return nil
	}
	limits := make([]TimeLimit, ticketTimeLimitCount)
	for i := range limits {
		entry := t.data[ticketTimeLimitsOffset+i*8:]
		limits[i].Enabled = binary.BigEndian.Uint32(entry)
		limits[i].Seconds = binary.BigEndian.Uint32(entry[4:])
	}
	return limits
}

// TitleKey decrypts the embedded title key of the first record using the
// common key the ticket selects. This recovers the key that encrypts the
// partition data, not the data itself.
func (t *TicketReader) TitleKey(keys crypto.CommonKeyTable) ([]byte, error) {
	if len(t.data) < ticketTitleKeyOffset+16 {
		return nil, fmt.Errorf("ticket buffer too short for title key field: %d bytes", len(t.data))
	}
	if t.DeviceID() != 0 {
		return nil, ErrPersonalizedTicket
	}
	return crypto.DecryptTitleKey(t.data[ticketTitleKeyOffset:ticketTitleKeyOffset+16], t.TitleID(), t.CommonKeyIndex(), keys)
}

// DeleteTicket removes the record with the given ticket id from the
// buffer. Doing nothing when no record matches is intentional.
func (t *TicketReader) DeleteTicket(ticketID uint64) {
	for offset := 0; offset+types.TicketSize <= len(t.data); offset += types.TicketSize {
		id := binary.BigEndian.Uint64(t.data[offset+ticketIDOffset:])
		if id == ticketID {
			t.data = append(t.data[:offset], t.data[offset+types.TicketSize:]...)
			return
		}
	}
}

// Unpersonalize re-derives the title key of a device-bound ticket so the
// common key path can decrypt it. Disc partitions always carry common
// tickets, and without console-specific key material the derivation
// cannot run, so device-bound records are reported as unsupported.
func (t *TicketReader) Unpersonalize() error {
	if t.DeviceID() == 0 {
		return nil
	}
	return ErrPersonalizedTicket
}
