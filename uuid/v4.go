package uuid

import (
	"fmt"

	guuid "github.com/google/uuid"

	"github.com/catalyst-forge/go-signed-doc/core/cbor"
)

// V4 is a random UUID. The zero value is invalid everywhere; use NewV4
// or one of the parsers.
type V4 struct {
	uuid guuid.UUID
}

// NewV4 generates a fresh random UUID.
func NewV4() V4 {
	return V4{uuid: guuid.New()}
}

// V4FromString parses the canonical hyphenated form.
func V4FromString(s string) (V4, error) {
	u, err := guuid.Parse(s)
	if err != nil {
		return V4{}, fmt.Errorf("parsing UUIDv4 %q: %w", s, err)
	}
	return v4From(u)
}

// V4FromBytes parses a raw 16-byte value.
func V4FromBytes(b []byte) (V4, error) {
	u, err := fromBytes(b, 4, "UUIDv4")
	if err != nil {
		return V4{}, err
	}
	return V4{uuid: u}, nil
}

func v4From(u guuid.UUID) (V4, error) {
	if u == zero {
		return V4{}, fmt.Errorf("zero UUID is not valid")
	}
	if u.Version() != 4 {
		return V4{}, fmt.Errorf("expected UUID version 4, got %d", u.Version())
	}
	return V4{uuid: u}, nil
}

// IsZero reports whether v is the invalid zero value.
func (v V4) IsZero() bool { return v.uuid == zero }

func (v V4) String() string { return v.uuid.String() }

// Bytes returns the 16 raw bytes.
func (v V4) Bytes() []byte {
	b := v.uuid
	return b[:]
}

// DecodeV4 reads a UUIDv4 from CBOR, tagged or bare per cctx.
func DecodeV4(d *cbor.Decoder, cctx CBORContext, location string) (V4, error) {
	u, err := decodeUUID(d, cctx, 4, location)
	if err != nil {
		return V4{}, err
	}
	return V4{uuid: u}, nil
}

// EncodeCBOR writes v, tagged or bare per cctx.
func (v V4) EncodeCBOR(e *cbor.Encoder, cctx CBORContext) {
	encodeUUID(e, v.uuid, cctx)
}
