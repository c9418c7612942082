// Package c509 implements the CBOR-native certificate scalars and the
// minimal certificate structure from draft-ietf-cose-cbor-encoded-cert.
// C509 unwraps DER primitives into bare CBOR items: object identifiers
// and big unsigned integers travel as byte strings, times as unsigned
// integers with a null no-expiry sentinel.
package c509

import (
	"encoding/asn1"
	"fmt"

	"github.com/catalyst-forge/go-signed-doc/core/cbor"
)

// OID is an unwrapped object identifier (~oid, RFC 9090): the DER
// content octets without the ASN.1 tag and length header, carried as a
// CBOR byte string.
type OID struct {
	der []byte
}

// ParseOID parses a dotted-decimal string such as
// "2.16.840.1.101.3.4.2.1".
func ParseOID(s string) (OID, error) {
	var arcs asn1.ObjectIdentifier
	for len(s) > 0 {
		var n int
		i := 0
		for i < len(s) && s[i] != '.' {
			c := s[i]
			if c < '0' || c > '9' {
				return OID{}, fmt.Errorf("parsing OID %q: invalid character %q", s, c)
			}
			n = n*10 + int(c-'0')
			i++
		}
		if i == 0 {
			return OID{}, fmt.Errorf("parsing OID %q: empty arc", s)
		}
		arcs = append(arcs, n)
		if i == len(s) {
			break
		}
		s = s[i+1:]
		if s == "" {
			return OID{}, fmt.Errorf("parsing OID: trailing dot")
		}
	}
	if len(arcs) < 2 {
		return OID{}, fmt.Errorf("parsing OID: need at least two arcs")
	}
	wrapped, err := asn1.Marshal(arcs)
	if err != nil {
		return OID{}, fmt.Errorf("parsing OID %q: %w", arcs.String(), err)
	}
	content, err := unwrapDER(wrapped)
	if err != nil {
		return OID{}, err
	}
	return OID{der: content}, nil
}

// MustOID is ParseOID for static identifiers; it panics on a bad
// string.
func MustOID(s string) OID {
	o, err := ParseOID(s)
	if err != nil {
		panic(err)
	}
	return o
}

// OIDFromDER wraps raw content octets without validating them.
func OIDFromDER(content []byte) OID {
	return OID{der: append([]byte(nil), content...)}
}

// DER returns the content octets.
func (o OID) DER() []byte { return append([]byte(nil), o.der...) }

func (o OID) IsZero() bool { return len(o.der) == 0 }

func (o OID) Equal(other OID) bool {
	return string(o.der) == string(other.der)
}

// String formats the identifier in dotted-decimal form, or a hex dump
// if the octets do not parse.
func (o OID) String() string {
	var arcs asn1.ObjectIdentifier
	if _, err := asn1.Unmarshal(wrapDER(o.der), &arcs); err != nil {
		return fmt.Sprintf("oid(%x)", o.der)
	}
	return arcs.String()
}

func (o OID) EncodeCBOR(e *cbor.Encoder) {
	e.Bytes(o.der)
}

func DecodeOID(d *cbor.Decoder, location string) (OID, error) {
	b, err := d.Bytes(location)
	if err != nil {
		return OID{}, err
	}
	if len(b) == 0 {
		return OID{}, fmt.Errorf("decoding %s: OID must not be empty", location)
	}
	return OID{der: append([]byte(nil), b...)}, nil
}

// unwrapDER strips the OBJECT IDENTIFIER tag and length header from a
// full DER encoding.
func unwrapDER(wrapped []byte) ([]byte, error) {
	if len(wrapped) < 2 || wrapped[0] != 0x06 {
		return nil, fmt.Errorf("unwrapping OID: not a DER object identifier")
	}
	n := int(wrapped[1])
	header := 2
	if n >= 0x80 {
		lenBytes := n & 0x7f
		header += lenBytes
		if lenBytes > 4 || len(wrapped) < header {
			return nil, fmt.Errorf("unwrapping OID: bad length header")
		}
		n = 0
		for _, b := range wrapped[2:header] {
			n = n<<8 | int(b)
		}
	}
	if len(wrapped) != header+n {
		return nil, fmt.Errorf("unwrapping OID: length mismatch")
	}
	return wrapped[header:], nil
}

// wrapDER rebuilds the full DER encoding around content octets.
func wrapDER(content []byte) []byte {
	n := len(content)
	var header []byte
	switch {
	case n < 0x80:
		header = []byte{0x06, byte(n)}
	case n <= 0xff:
		header = []byte{0x06, 0x81, byte(n)}
	default:
		header = []byte{0x06, 0x82, byte(n >> 8), byte(n)}
	}
	return append(header, content...)
}
