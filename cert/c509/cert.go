package c509

import (
	"fmt"

	"github.com/catalyst-forge/go-signed-doc/core/cbor"
)

// Certificate types from the C509 registry.
const (
	// TypeNatural marks a certificate natively signed over its CBOR
	// encoding.
	TypeNatural uint64 = 2
	// TypeReencoded marks a CBOR re-encoding of a DER certificate.
	TypeReencoded uint64 = 3
)

// TBSCertificate is the to-be-signed portion of a C509 certificate.
// Names carry only the common-name text form; the full
// RelativeDistinguishedName shape is not needed here.
type TBSCertificate struct {
	CertificateType     uint64
	SerialNumber        BigUint
	IssuerSigAlgorithm  AlgorithmIdentifier
	Issuer              string
	NotBefore           Time
	NotAfter            Time
	Subject             string
	SubjectKeyAlgorithm AlgorithmIdentifier
	SubjectPublicKey    []byte
	Extensions          []byte
}

// Bytes returns the canonical TBS encoding, the content an issuer
// signs.
func (t TBSCertificate) Bytes() []byte {
	e := cbor.NewEncoder()
	t.encodeCBOR(e)
	return e.Result()
}

func (t TBSCertificate) encodeCBOR(e *cbor.Encoder) {
	e.Uint64(t.CertificateType)
	t.SerialNumber.EncodeCBOR(e)
	t.IssuerSigAlgorithm.EncodeCBOR(e)
	e.Text(t.Issuer)
	t.NotBefore.EncodeCBOR(e)
	t.NotAfter.EncodeCBOR(e)
	e.Text(t.Subject)
	t.SubjectKeyAlgorithm.EncodeCBOR(e)
	e.Bytes(t.SubjectPublicKey)
	e.Raw(t.extensionsOrEmpty())
}

func (t TBSCertificate) extensionsOrEmpty() []byte {
	if len(t.Extensions) > 0 {
		return t.Extensions
	}
	e := cbor.NewEncoder()
	e.ArrayLen(0)
	return e.Result()
}

func decodeTBS(d *cbor.Decoder) (TBSCertificate, error) {
	var t TBSCertificate
	var err error
	if t.CertificateType, err = d.Uint64("certificate type"); err != nil {
		return t, err
	}
	if t.SerialNumber, err = DecodeBigUint(d, "serial number"); err != nil {
		return t, err
	}
	if t.IssuerSigAlgorithm, err = DecodeAlgorithmIdentifier(d, "issuer signature algorithm"); err != nil {
		return t, err
	}
	if t.Issuer, err = d.Text("issuer"); err != nil {
		return t, err
	}
	if t.NotBefore, err = DecodeTime(d, "not-before"); err != nil {
		return t, err
	}
	if t.NotAfter, err = DecodeTime(d, "not-after"); err != nil {
		return t, err
	}
	if t.Subject, err = d.Text("subject"); err != nil {
		return t, err
	}
	if t.SubjectKeyAlgorithm, err = DecodeAlgorithmIdentifier(d, "subject public key algorithm"); err != nil {
		return t, err
	}
	key, err := d.Bytes("subject public key")
	if err != nil {
		return t, err
	}
	t.SubjectPublicKey = append([]byte(nil), key...)
	ext, err := d.RawItem("extensions")
	if err != nil {
		return t, err
	}
	t.Extensions = append([]byte(nil), ext...)
	return t, nil
}

// Certificate is a TBS certificate plus the issuer's signature over
// the TBS bytes; nil means unsigned (null on the wire).
type Certificate struct {
	TBS       TBSCertificate
	Signature []byte
}

// Bytes returns the full certificate encoding.
func (c Certificate) Bytes() []byte {
	e := cbor.NewEncoder()
	c.TBS.encodeCBOR(e)
	if c.Signature == nil {
		e.Null()
	} else {
		e.Bytes(c.Signature)
	}
	return e.Result()
}

// Decode parses a certificate and rejects trailing bytes.
func Decode(data []byte) (Certificate, error) {
	d := cbor.NewDecoder(data)
	tbs, err := decodeTBS(d)
	if err != nil {
		return Certificate{}, err
	}
	cert := Certificate{TBS: tbs}

	dt, err := d.Datatype("issuer signature")
	if err != nil {
		return Certificate{}, err
	}
	switch dt {
	case cbor.TypeNull:
		if err := d.Null("issuer signature"); err != nil {
			return Certificate{}, err
		}
	case cbor.TypeBytes:
		sig, err := d.Bytes("issuer signature")
		if err != nil {
			return Certificate{}, err
		}
		cert.Signature = append([]byte(nil), sig...)
	default:
		return Certificate{}, fmt.Errorf("decoding issuer signature: expected byte string or null, got %s", dt)
	}

	if err := d.Finish("certificate"); err != nil {
		return Certificate{}, err
	}
	return cert, nil
}
