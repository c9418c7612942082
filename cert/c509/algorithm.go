package c509

import (
	"fmt"

	"github.com/catalyst-forge/go-signed-doc/core/cbor"
)

// AlgorithmIdentifier is the C509 form:
//
//	AlgorithmIdentifier = ~oid / [ algorithm: ~oid, parameters: bytes ]
//
// A nil Params encodes as the bare OID. The registered-integer form is
// not supported.
type AlgorithmIdentifier struct {
	OID    OID
	Params []byte
}

func (a AlgorithmIdentifier) EncodeCBOR(e *cbor.Encoder) {
	if a.Params == nil {
		a.OID.EncodeCBOR(e)
		return
	}
	e.ArrayLen(2)
	a.OID.EncodeCBOR(e)
	e.Bytes(a.Params)
}

func DecodeAlgorithmIdentifier(d *cbor.Decoder, location string) (AlgorithmIdentifier, error) {
	dt, err := d.Datatype(location)
	if err != nil {
		return AlgorithmIdentifier{}, err
	}
	if dt != cbor.TypeArray {
		oid, err := DecodeOID(d, location)
		if err != nil {
			return AlgorithmIdentifier{}, err
		}
		return AlgorithmIdentifier{OID: oid}, nil
	}

	n, err := d.ArrayLen(location)
	if err != nil {
		return AlgorithmIdentifier{}, err
	}
	if n != 2 {
		return AlgorithmIdentifier{}, fmt.Errorf("decoding %s: expected 2 elements, got %d", location, n)
	}
	oid, err := DecodeOID(d, location+" algorithm")
	if err != nil {
		return AlgorithmIdentifier{}, err
	}
	params, err := d.Bytes(location + " parameters")
	if err != nil {
		return AlgorithmIdentifier{}, err
	}
	return AlgorithmIdentifier{
		OID:    oid,
		Params: append([]byte(nil), params...),
	}, nil
}
