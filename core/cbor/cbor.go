// Package cbor provides deterministic CBOR encode/decode primitives.
//
// It wraps github.com/fxamacker/cbor/v2 for whole-value codecs and adds
// a positional Decoder/Encoder pair for the byte-exact container work
// the signed-document wire format requires: definite lengths only,
// minimal-length heads, canonical map-key order, and raw sub-slice
// capture for hashing and signing.
package cbor

import (
	"bytes"

	fxcbor "github.com/fxamacker/cbor/v2"
)

// RawMessage is a raw encoded CBOR item, preserved verbatim.
type RawMessage = fxcbor.RawMessage

var (
	encMode fxcbor.EncMode
	decMode fxcbor.DecMode
)

func init() {
	var err error
	encMode, err = fxcbor.CoreDetEncOptions().EncMode()
	if err != nil {
		panic(err)
	}
	decMode, err = fxcbor.DecOptions{
		DupMapKey:   fxcbor.DupMapKeyEnforcedAPF,
		IndefLength: fxcbor.IndefLengthForbidden,
	}.DecMode()
	if err != nil {
		panic(err)
	}
}

// Marshal encodes v in RFC 8949 core deterministic form.
func Marshal(v any) ([]byte, error) {
	return encMode.Marshal(v)
}

// Unmarshal decodes exactly one item from data into v, rejecting
// indefinite-length containers and duplicate map keys.
func Unmarshal(data []byte, v any) error {
	return decMode.Unmarshal(data, v)
}

// Context selects how much determinism a container decode enforces.
type Context int

const (
	// NonDeterministic accepts any element order.
	NonDeterministic Context = iota
	// Deterministic requires strictly increasing elements in canonical
	// byte order, for both arrays and maps.
	Deterministic
	// ArrayDeterministic applies the ordering check to arrays only;
	// nested maps are read as NonDeterministic.
	ArrayDeterministic
)

// CanonicalCompare orders two encoded CBOR items the way canonical map
// keys sort: shorter encoding first, equal lengths bytewise.
func CanonicalCompare(a, b []byte) int {
	if len(a) != len(b) {
		if len(a) < len(b) {
			return -1
		}
		return 1
	}
	return bytes.Compare(a, b)
}
