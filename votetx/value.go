// Package votetx implements the generalized Catalyst vote transaction
// and its public and private specializations. A transaction is a
// 2-element array of tx body and COSE-Sign block; the body's choice,
// proof, and prop-id slots carry tag-24 "encoded CBOR" wrappers whose
// inner types the generalized layer is parametric over.
package votetx

import (
	"github.com/catalyst-forge/go-signed-doc/core/cbor"
)

// Value is a payload type that can sit inside a tag-24 wrapper.
type Value interface {
	EncodeCBOR(e *cbor.Encoder)
}

// decodable constrains a pointer to a Value that can decode itself.
type decodable[T any] interface {
	*T
	DecodeCBOR(d *cbor.Decoder, location string) error
}

func encodeWrapped(e *cbor.Encoder, v Value) {
	inner := cbor.NewEncoder()
	v.EncodeCBOR(inner)
	cbor.EncodeTagged24(e, inner.Result())
}

func decodeWrapped[T any, PT decodable[T]](d *cbor.Decoder, location string) (T, error) {
	var v T
	inner, err := cbor.DecodeTagged24(d, location)
	if err != nil {
		return v, err
	}
	id := cbor.NewDecoder(inner)
	if err := PT(&v).DecodeCBOR(id, location); err != nil {
		return v, err
	}
	if err := id.Finish(location); err != nil {
		return v, err
	}
	return v, nil
}
