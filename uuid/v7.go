package uuid

import (
	"bytes"
	"crypto/rand"
	"fmt"
	"time"

	guuid "github.com/google/uuid"

	"github.com/catalyst-forge/go-signed-doc/core/cbor"
)

// V7 is a time-ordered UUID. Document ids and versions are V7 values;
// their ordering follows the embedded unix-millisecond timestamp.
type V7 struct {
	uuid guuid.UUID
}

// NewV7 generates a UUID for the current time.
func NewV7() (V7, error) {
	u, err := guuid.NewV7()
	if err != nil {
		return V7{}, fmt.Errorf("generating UUIDv7: %w", err)
	}
	return V7{uuid: u}, nil
}

// V7At builds a UUID whose timestamp field is t, with random tail
// bits. Used to reconstruct ids at a known instant.
func V7At(t time.Time) (V7, error) {
	var u guuid.UUID
	if _, err := rand.Read(u[6:]); err != nil {
		return V7{}, fmt.Errorf("generating UUIDv7: %w", err)
	}
	ms := uint64(t.UnixMilli())
	u[0] = byte(ms >> 40)
	u[1] = byte(ms >> 32)
	u[2] = byte(ms >> 24)
	u[3] = byte(ms >> 16)
	u[4] = byte(ms >> 8)
	u[5] = byte(ms)
	u[6] = 0x70 | u[6]&0x0f // version 7
	u[8] = 0x80 | u[8]&0x3f // RFC 4122 variant
	return V7{uuid: u}, nil
}

// V7FromString parses the canonical hyphenated form.
func V7FromString(s string) (V7, error) {
	u, err := guuid.Parse(s)
	if err != nil {
		return V7{}, fmt.Errorf("parsing UUIDv7 %q: %w", s, err)
	}
	if u == zero {
		return V7{}, fmt.Errorf("zero UUID is not valid")
	}
	if u.Version() != 7 {
		return V7{}, fmt.Errorf("expected UUID version 7, got %d", u.Version())
	}
	return V7{uuid: u}, nil
}

// V7FromBytes parses a raw 16-byte value.
func V7FromBytes(b []byte) (V7, error) {
	u, err := fromBytes(b, 7, "UUIDv7")
	if err != nil {
		return V7{}, err
	}
	return V7{uuid: u}, nil
}

// IsZero reports whether v is the invalid zero value.
func (v V7) IsZero() bool { return v.uuid == zero }

func (v V7) String() string { return v.uuid.String() }

// Bytes returns the 16 raw bytes.
func (v V7) Bytes() []byte {
	b := v.uuid
	return b[:]
}

// Time returns the embedded unix-millisecond timestamp.
func (v V7) Time() time.Time {
	ms := uint64(v.uuid[0])<<40 | uint64(v.uuid[1])<<32 | uint64(v.uuid[2])<<24 |
		uint64(v.uuid[3])<<16 | uint64(v.uuid[4])<<8 | uint64(v.uuid[5])
	return time.UnixMilli(int64(ms))
}

// Compare orders by the embedded timestamp, then by the remaining
// bytes. For V7 values the two coincide with plain byte order.
func (v V7) Compare(o V7) int {
	return bytes.Compare(v.uuid[:], o.uuid[:])
}

// DecodeV7 reads a UUIDv7 from CBOR, tagged or bare per cctx.
func DecodeV7(d *cbor.Decoder, cctx CBORContext, location string) (V7, error) {
	u, err := decodeUUID(d, cctx, 7, location)
	if err != nil {
		return V7{}, err
	}
	return V7{uuid: u}, nil
}

// EncodeCBOR writes v, tagged or bare per cctx.
func (v V7) EncodeCBOR(e *cbor.Encoder, cctx CBORContext) {
	encodeUUID(e, v.uuid, cctx)
}
