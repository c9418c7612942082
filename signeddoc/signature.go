package signeddoc

import (
	"crypto/ed25519"
	"fmt"

	"github.com/catalyst-forge/go-signed-doc/catid"
	"github.com/catalyst-forge/go-signed-doc/core/cbor"
	"github.com/catalyst-forge/go-signed-doc/core/report"
)

// kid is the only protected header a signature carries (COSE label 4).
const kidLabel = 4

// Signer produces a signature over TBS bytes. Ed25519Signer adapts a
// raw key; other implementations can call out to an HSM or a remote
// signing service.
type Signer func(tbs []byte) ([]byte, error)

// Ed25519Signer signs TBS bytes with a local Ed25519 private key.
func Ed25519Signer(key ed25519.PrivateKey) Signer {
	return func(tbs []byte) ([]byte, error) {
		return ed25519.Sign(key, tbs), nil
	}
}

// Signature is one COSE signature: the exact protected-header bytes,
// the Catalyst ID parsed from the kid they carry, and the signature
// bytes.
type Signature struct {
	protected []byte
	kid       catid.ID
	signature []byte
}

// KID returns the signer's Catalyst ID.
func (s Signature) KID() catid.ID { return s.kid }

// Bytes returns the raw signature bytes.
func (s Signature) Bytes() []byte { return s.signature }

// ProtectedBytes returns the exact per-signature protected header
// bytes, as used in TBS construction.
func (s Signature) ProtectedBytes() []byte { return s.protected }

// newSignatureProtected encodes the protected header for a fresh
// signature: a single-entry map {4: kid}.
func newSignatureProtected(kid catid.ID) []byte {
	e := cbor.NewEncoder()
	e.MapLen(1)
	e.Uint64(kidLabel)
	e.Bytes(kid.Bytes())
	return e.Result()
}

func decodeSignature(d *cbor.Decoder, idx int, rep *report.Report) (Signature, error) {
	location := fmt.Sprintf("signature %d", idx)
	n, err := d.ArrayLen(location)
	if err != nil {
		return Signature{}, err
	}
	if n != 3 {
		return Signature{}, fmt.Errorf("decoding %s: expected 3 elements, got %d", location, n)
	}

	protected, err := d.Bytes(location + " protected header")
	if err != nil {
		return Signature{}, err
	}
	protected = append([]byte(nil), protected...)
	kid, err := decodeKid(protected, location)
	if err != nil {
		return Signature{}, err
	}

	// Unprotected headers are always empty; anything else is recorded
	// but does not block decoding.
	un, err := d.MapLen(location + " unprotected headers")
	if err != nil {
		return Signature{}, err
	}
	for i := uint64(0); i < un; i++ {
		if _, err := d.RawItem(location + " unprotected key"); err != nil {
			return Signature{}, err
		}
		if _, err := d.RawItem(location + " unprotected value"); err != nil {
			return Signature{}, err
		}
	}
	if un > 0 {
		rep.InvalidValue("unprotected", fmt.Sprintf("%d entries", un), "empty map", location)
	}

	sig, err := d.Bytes(location + " bytes")
	if err != nil {
		return Signature{}, err
	}
	if len(sig) != ed25519.SignatureSize {
		rep.InvalidValue("signature", fmt.Sprintf("%d bytes", len(sig)), "64-byte Ed25519 signature", location)
	}

	return Signature{
		protected: protected,
		kid:       kid,
		signature: append([]byte(nil), sig...),
	}, nil
}

// decodeKid extracts the Catalyst ID from protected header bytes,
// requiring the map to contain exactly the kid field.
func decodeKid(protected []byte, location string) (catid.ID, error) {
	d := cbor.NewDecoder(protected)
	n, err := d.MapLen(location + " protected header")
	if err != nil {
		return catid.ID{}, err
	}
	if n != 1 {
		return catid.ID{}, fmt.Errorf("decoding %s: protected header must contain exactly the kid field, got %d entries", location, n)
	}
	label, err := d.Uint64(location + " header label")
	if err != nil {
		return catid.ID{}, err
	}
	if label != kidLabel {
		return catid.ID{}, fmt.Errorf("decoding %s: expected kid label %d, got %d", location, kidLabel, label)
	}
	kidBytes, err := d.Bytes(location + " kid")
	if err != nil {
		return catid.ID{}, err
	}
	if err := d.Finish(location + " protected header"); err != nil {
		return catid.ID{}, err
	}
	kid, err := catid.FromBytes(kidBytes)
	if err != nil {
		return catid.ID{}, fmt.Errorf("decoding %s: %w", location, err)
	}
	return kid, nil
}

func (s Signature) encodeCBOR(e *cbor.Encoder) {
	e.ArrayLen(3)
	e.Bytes(s.protected)
	e.MapLen(0)
	e.Bytes(s.signature)
}

// Signatures is the ordered signature list of a document.
type Signatures []Signature

// Authors returns the signers' Catalyst IDs in signature order.
func (ss Signatures) Authors() []catid.ID {
	ids := make([]catid.ID, len(ss))
	for i, s := range ss {
		ids[i] = s.kid
	}
	return ids
}
