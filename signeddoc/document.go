// Package signeddoc implements the Catalyst Signed Document envelope:
// a COSE-Sign structure (tag 98) carrying a typed metadata header in
// its protected slot, an optional payload, and any number of detached
// Ed25519 signatures identified by Catalyst ID kids.
package signeddoc

import (
	"crypto/ed25519"
	"fmt"

	"github.com/catalyst-forge/go-signed-doc/catid"
	"github.com/catalyst-forge/go-signed-doc/core/cbor"
	"github.com/catalyst-forge/go-signed-doc/core/report"
	"github.com/catalyst-forge/go-signed-doc/metadata"
	"github.com/catalyst-forge/go-signed-doc/uuid"
)

// CoseSignTag is the COSE multi-signature envelope tag (RFC 8152).
const CoseSignTag = 98

// Document is a decoded signed document. Decoding is best effort:
// structural corruption fails outright, everything else lands in the
// problem report. Callers decide validity by running a Validator and
// checking Report().IsProblematic().
type Document struct {
	raw        []byte
	protected  []byte
	meta       *metadata.Metadata
	payload    []byte
	hasPayload bool
	sigs       Signatures
	rep        *report.Report
}

// Decode parses signed-document bytes.
func Decode(data []byte) (*Document, error) {
	rep := report.New("signed document")
	d := cbor.NewDecoder(data)

	if err := d.ExpectTag(CoseSignTag, "envelope"); err != nil {
		return nil, err
	}
	n, err := d.ArrayLen("envelope")
	if err != nil {
		return nil, err
	}
	if n != 4 {
		return nil, fmt.Errorf("decoding envelope: expected 4 elements, got %d", n)
	}

	protected, err := d.Bytes("protected header")
	if err != nil {
		return nil, err
	}
	protected = append([]byte(nil), protected...)
	meta, err := metadata.Decode(protected, rep)
	if err != nil {
		return nil, err
	}

	un, err := d.MapLen("unprotected headers")
	if err != nil {
		return nil, err
	}
	for i := uint64(0); i < un; i++ {
		if _, err := d.RawItem("unprotected key"); err != nil {
			return nil, err
		}
		if _, err := d.RawItem("unprotected value"); err != nil {
			return nil, err
		}
	}
	if un > 0 {
		rep.InvalidValue("unprotected", fmt.Sprintf("%d entries", un), "empty map", "envelope")
	}

	doc := &Document{raw: append([]byte(nil), data...), protected: protected, meta: meta, rep: rep}

	dt, err := d.Datatype("payload")
	if err != nil {
		return nil, err
	}
	switch dt {
	case cbor.TypeNull:
		if err := d.Null("payload"); err != nil {
			return nil, err
		}
	case cbor.TypeBytes:
		p, err := d.Bytes("payload")
		if err != nil {
			return nil, err
		}
		doc.payload = append([]byte(nil), p...)
		doc.hasPayload = true
	default:
		return nil, fmt.Errorf("decoding payload: expected byte string or null, got %s", dt)
	}

	sn, err := d.ArrayLen("signatures")
	if err != nil {
		return nil, err
	}
	for i := uint64(0); i < sn; i++ {
		sig, err := decodeSignature(d, int(i), rep)
		if err != nil {
			return nil, err
		}
		doc.sigs = append(doc.sigs, sig)
	}

	if err := d.Finish("envelope"); err != nil {
		return nil, err
	}
	return doc, nil
}

// Report returns the document's problem report. Decoders and
// validation rules append to it; it is never reset.
func (doc *Document) Report() *report.Report { return doc.rep }

// Meta returns the decoded metadata header.
func (doc *Document) Meta() *metadata.Metadata { return doc.meta }

// ID returns the metadata "id" field.
func (doc *Document) ID() (uuid.V7, error) { return doc.meta.ID() }

// Ver returns the metadata "ver" field.
func (doc *Document) Ver() (uuid.V7, error) { return doc.meta.Ver() }

// DocType returns the metadata "type" field.
func (doc *Document) DocType() (metadata.DocType, error) { return doc.meta.DocType() }

// HasContent reports whether the payload slot holds a byte string.
// CBOR null means no content; an empty byte string is content.
func (doc *Document) HasContent() bool { return doc.hasPayload }

// ContentBytes returns the payload exactly as it appears on the wire,
// still compressed if a content-encoding is set.
func (doc *Document) ContentBytes() []byte { return doc.payload }

// DecodedContent returns the payload with any content-encoding
// reversed.
func (doc *Document) DecodedContent() ([]byte, error) {
	if !doc.hasPayload {
		return nil, fmt.Errorf("document has no content")
	}
	enc, err := doc.meta.ContentEncoding()
	if metadata.IsMissing(err) {
		return doc.payload, nil
	}
	if err != nil {
		return nil, err
	}
	return enc.Decode(doc.payload)
}

// Signatures returns the signature list in envelope order.
func (doc *Document) Signatures() Signatures { return doc.sigs }

// Authors returns the kid of every signature, in order.
func (doc *Document) Authors() []catid.ID { return doc.sigs.Authors() }

// IsDeprecated reports whether ref or template used the legacy
// 2-element reference shape.
func (doc *Document) IsDeprecated() bool { return doc.meta.IsDeprecated() }

// SignatureTBS reconstructs the to-be-signed bytes for signature i.
func (doc *Document) SignatureTBS(i int) ([]byte, error) {
	if i < 0 || i >= len(doc.sigs) {
		return nil, fmt.Errorf("signature index %d out of range", i)
	}
	return TBS(doc.protected, doc.sigs[i].protected, doc.payload), nil
}

// VerifySignature checks signature i against an Ed25519 public key.
func (doc *Document) VerifySignature(i int, pub ed25519.PublicKey) bool {
	t, err := doc.SignatureTBS(i)
	if err != nil {
		return false
	}
	if len(doc.sigs[i].signature) != ed25519.SignatureSize {
		return false
	}
	return ed25519.Verify(pub, t, doc.sigs[i].signature)
}

// AddSignature computes the TBS bytes for a new signature by kid,
// invokes the signer, and appends the result. The envelope bytes are
// re-assembled canonically on the next call to Bytes.
func (doc *Document) AddSignature(sign Signer, kid catid.ID) error {
	protected := newSignatureProtected(kid)
	sig, err := sign(TBS(doc.protected, protected, doc.payload))
	if err != nil {
		return fmt.Errorf("signing document: %w", err)
	}
	if len(sig) != ed25519.SignatureSize {
		return fmt.Errorf("signing document: signature must be %d bytes, got %d", ed25519.SignatureSize, len(sig))
	}
	doc.sigs = append(doc.sigs, Signature{protected: protected, kid: kid, signature: sig})
	doc.raw = nil
	return nil
}

// Bytes returns the envelope encoding. A document decoded from
// canonical bytes and not modified since re-emits those bytes
// verbatim.
func (doc *Document) Bytes() []byte {
	if doc.raw != nil {
		return append([]byte(nil), doc.raw...)
	}
	return doc.assemble()
}

func (doc *Document) assemble() []byte {
	e := cbor.NewEncoder()
	e.Tag(CoseSignTag)
	e.ArrayLen(4)
	e.Bytes(doc.protected)
	e.MapLen(0)
	if doc.hasPayload {
		e.Bytes(doc.payload)
	} else {
		e.Null()
	}
	e.ArrayLen(uint64(len(doc.sigs)))
	for _, s := range doc.sigs {
		s.encodeCBOR(e)
	}
	return e.Result()
}

// IntoBuilder seeds a builder with the document's metadata, raw
// content, and existing signatures, so more signatures can be added
// without re-encoding the body.
func (doc *Document) IntoBuilder() *Builder {
	b := &Builder{meta: doc.meta, sigs: append(Signatures(nil), doc.sigs...)}
	if doc.hasPayload {
		b.payload = append([]byte(nil), doc.payload...)
		b.hasPayload = true
	}
	return b
}
