// Package uuid provides the two UUID flavours the signed-document
// format uses: random V4 values for type identifiers and time-ordered
// V7 values for document id/ver. On the wire both are CBOR tag 37
// wrapping the 16 raw bytes; a bare (untagged) byte-string form exists
// for embedding inside another tag.
package uuid

import (
	"fmt"

	guuid "github.com/google/uuid"

	"github.com/catalyst-forge/go-signed-doc/core/cbor"
)

// Tag is the IANA CBOR tag for binary UUIDs.
const Tag = 37

// CBORContext selects whether a UUID is written with its own tag 37 or
// bare, for embedding inside an outer tag.
type CBORContext int

const (
	Tagged CBORContext = iota
	Untagged
)

var zero guuid.UUID

func decodeUUID(d *cbor.Decoder, cctx CBORContext, version byte, location string) (guuid.UUID, error) {
	if cctx == Tagged {
		if err := d.ExpectTag(Tag, location); err != nil {
			return zero, err
		}
	}
	b, err := d.Bytes(location)
	if err != nil {
		return zero, err
	}
	return fromBytes(b, version, location)
}

func fromBytes(b []byte, version byte, location string) (guuid.UUID, error) {
	if len(b) != 16 {
		return zero, fmt.Errorf("decoding %s: UUID must be 16 bytes, got %d", location, len(b))
	}
	u, err := guuid.FromBytes(b)
	if err != nil {
		return zero, fmt.Errorf("decoding %s: %w", location, err)
	}
	if u == zero {
		return zero, fmt.Errorf("decoding %s: zero UUID is not valid", location)
	}
	if byte(u.Version()) != version {
		return zero, fmt.Errorf("decoding %s: expected UUID version %d, got %d", location, version, u.Version())
	}
	return u, nil
}

func encodeUUID(e *cbor.Encoder, u guuid.UUID, cctx CBORContext) {
	if cctx == Tagged {
		e.Tag(Tag)
	}
	e.Bytes(u[:])
}
