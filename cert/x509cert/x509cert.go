// Package x509cert carries DER-encoded X.509 certificates as CBOR byte
// strings. The DER bytes are validated on decode but stored verbatim so
// re-encoding is byte exact.
package x509cert

import (
	"crypto/x509"
	"fmt"

	"github.com/catalyst-forge/go-signed-doc/core/cbor"
)

// Certificate pairs the parsed form with the original DER bytes.
type Certificate struct {
	der  []byte
	cert *x509.Certificate
}

// FromDER validates DER bytes and wraps them.
func FromDER(der []byte) (Certificate, error) {
	cert, err := x509.ParseCertificate(der)
	if err != nil {
		return Certificate{}, fmt.Errorf("parsing DER certificate: %w", err)
	}
	return Certificate{der: append([]byte(nil), der...), cert: cert}, nil
}

// DER returns the original encoding.
func (c Certificate) DER() []byte { return append([]byte(nil), c.der...) }

// X509 returns the parsed certificate.
func (c Certificate) X509() *x509.Certificate { return c.cert }

func (c Certificate) IsZero() bool { return c.cert == nil }

func (c Certificate) EncodeCBOR(e *cbor.Encoder) {
	e.Bytes(c.der)
}

// Decode reads one certificate byte string.
func Decode(d *cbor.Decoder, location string) (Certificate, error) {
	der, err := d.Bytes(location)
	if err != nil {
		return Certificate{}, err
	}
	cert, err := FromDER(der)
	if err != nil {
		return Certificate{}, fmt.Errorf("decoding %s: %w", location, err)
	}
	return cert, nil
}
