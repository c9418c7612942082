package c509

import (
	"fmt"

	"github.com/catalyst-forge/go-signed-doc/core/cbor"
)

// BigUint is an unwrapped CBOR unsigned bignum (~biguint): a byte
// string holding the big-endian magnitude with leading zeros stripped.
// Certificate serial numbers use it.
type BigUint uint64

func (u BigUint) EncodeCBOR(e *cbor.Encoder) {
	var buf [8]byte
	n := 8
	for v := uint64(u); v > 0; v >>= 8 {
		n--
		buf[n] = byte(v)
	}
	e.Bytes(buf[n:])
}

func DecodeBigUint(d *cbor.Decoder, location string) (BigUint, error) {
	b, err := d.Bytes(location)
	if err != nil {
		return 0, err
	}
	if len(b) > 8 {
		return 0, fmt.Errorf("decoding %s: magnitude exceeds 8 bytes", location)
	}
	if len(b) > 0 && b[0] == 0 {
		return 0, fmt.Errorf("decoding %s: magnitude has a leading zero", location)
	}
	var v uint64
	for _, c := range b {
		v = v<<8 | uint64(c)
	}
	return BigUint(v), nil
}
