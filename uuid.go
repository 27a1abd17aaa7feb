package carble

import (
	"bytes"
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"strings"

	googleuuid "github.com/google/uuid"
)

// A UUID identifies a BLE service or characteristic.
// It is 2, 4 or 16 bytes long and stored in the canonical
// (big-endian) byte order; it is reversed into the wire
// order only when serialized into an advertising payload.
type UUID struct {
	b []byte
}

// UUID16 converts a uint16 (such as 0x1800) to a UUID.
func UUID16(i uint16) UUID {
	b := make([]byte, 2)
	binary.BigEndian.PutUint16(b, i)
	return UUID{b}
}

// UUID32 converts a uint32 to a UUID.
func UUID32(i uint32) UUID {
	b := make([]byte, 4)
	binary.BigEndian.PutUint32(b, i)
	return UUID{b}
}

// ParseUUID parses a standard-format UUID string, such as "1800",
// "0000fe95" or "7dbea1af-b4ed-4d65-99c9-78b85f2f371f". 128-bit
// UUIDs may be given with or without hyphens.
func ParseUUID(s string) (UUID, error) {
	stripped := strings.Replace(s, "-", "", -1)
	if len(stripped) == 32 {
		id, err := googleuuid.Parse(s)
		if err != nil {
			return UUID{}, fmt.Errorf("invalid UUID %q: %w", s, err)
		}
		b := make([]byte, 16)
		copy(b, id[:])
		return UUID{b}, nil
	}
	b, err := hex.DecodeString(stripped)
	if err != nil {
		return UUID{}, fmt.Errorf("invalid UUID %q: %w", s, err)
	}
	if err := lengthErr(len(b)); err != nil {
		return UUID{}, err
	}
	return UUID{b}, nil
}

// MustParseUUID parses a standard-format UUID string,
// like ParseUUID, but panics in case of error.
func MustParseUUID(s string) UUID {
	u, err := ParseUUID(s)
	if err != nil {
		panic(err)
	}
	return u
}

// lengthErr returns an error if n is an invalid UUID length.
func lengthErr(n int) error {
	switch n {
	case 2, 4, 16:
		return nil
	}
	return fmt.Errorf("UUIDs must have length 2, 4 or 16, got %d", n)
}

// String hex-encodes a UUID.
func (u UUID) String() string { return fmt.Sprintf("%x", u.b) }

// Len returns the length of the UUID, in bytes.
func (u UUID) Len() int { return len(u.b) }

// Bytes returns a copy of the UUID in canonical byte order.
func (u UUID) Bytes() []byte {
	b := make([]byte, len(u.b))
	copy(b, u.b)
	return b
}

// Equal reports whether v represents the same UUID as u.
func (u UUID) Equal(v UUID) bool {
	return bytes.Equal(u.b, v.b)
}

func uuidEqual(u, v UUID) bool { return u.Equal(v) }

// reverseBytes returns a reversed copy of the UUID's bytes,
// i.e. the order in which it appears on the wire.
func (u UUID) reverseBytes() []byte { return reverse(u.b) }

// reverse returns a reversed copy of u.
func reverse(u []byte) []byte {
	// Special-case 16 bit UUIDS for speed.
	l := len(u)
	if l == 2 {
		return []byte{u[1], u[0]}
	}
	b := make([]byte, l)
	for i := 0; i < l/2+1; i++ {
		b[i], b[l-i-1] = u[l-i-1], u[i]
	}
	return b
}
