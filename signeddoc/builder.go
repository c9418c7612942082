package signeddoc

import (
	"encoding/json"
	"fmt"

	"github.com/catalyst-forge/go-signed-doc/catid"
	"github.com/catalyst-forge/go-signed-doc/metadata"
)

// Builder assembles a document from metadata and content, optionally
// signing it before Build. Build re-decodes the assembled bytes, so
// the returned document carries a report populated exactly as if it
// had arrived off the wire.
type Builder struct {
	meta       *metadata.Metadata
	payload    []byte
	hasPayload bool
	raw        bool
	sigs       Signatures
	err        error
}

// NewBuilder returns an empty builder with no content (payload null).
func NewBuilder() *Builder {
	return &Builder{}
}

// WithMetadata sets the metadata header.
func (b *Builder) WithMetadata(m *metadata.Metadata) *Builder {
	b.meta = m
	return b
}

// WithJSONMetadata parses a meta.json document into the header.
func (b *Builder) WithJSONMetadata(raw []byte) *Builder {
	var m metadata.Metadata
	if err := json.Unmarshal(raw, &m); err != nil {
		b.err = fmt.Errorf("parsing metadata JSON: %w", err)
		return b
	}
	b.meta = &m
	return b
}

// WithContent sets decoded content; if the metadata names a
// content-encoding, Build compresses it for the wire.
func (b *Builder) WithContent(data []byte) *Builder {
	b.payload = append([]byte(nil), data...)
	b.hasPayload = true
	return b
}

// WithRawContent sets wire-form content verbatim, already encoded.
func (b *Builder) WithRawContent(data []byte) *Builder {
	b.payload = append([]byte(nil), data...)
	b.hasPayload = true
	b.raw = true
	return b
}

// WithoutContent sets the payload slot to null.
func (b *Builder) WithoutContent() *Builder {
	b.payload = nil
	b.hasPayload = false
	return b
}

// AddSignature signs the document being built with the given kid.
// Signatures may be added both before Build and on the built document.
func (b *Builder) AddSignature(sign Signer, kid catid.ID) *Builder {
	if b.err != nil {
		return b
	}
	doc, err := b.assemble()
	if err != nil {
		b.err = err
		return b
	}
	if err := doc.AddSignature(sign, kid); err != nil {
		b.err = err
		return b
	}
	// Pin the wire-form payload so later signatures and Build see the
	// exact bytes this signature covered.
	b.payload = doc.payload
	b.hasPayload = doc.hasPayload
	b.raw = true
	b.sigs = doc.sigs
	return b
}

// Build assembles canonical envelope bytes and decodes them.
func (b *Builder) Build() (*Document, error) {
	if b.err != nil {
		return nil, b.err
	}
	doc, err := b.assemble()
	if err != nil {
		return nil, err
	}
	return Decode(doc.assemble())
}

func (b *Builder) assemble() (*Document, error) {
	if b.meta == nil {
		return nil, fmt.Errorf("building document: metadata is required")
	}
	protected, err := b.meta.Bytes()
	if err != nil {
		return nil, fmt.Errorf("building document: %w", err)
	}

	payload := b.payload
	if b.hasPayload && !b.raw {
		if enc, err := b.meta.ContentEncoding(); err == nil {
			payload, err = enc.Encode(b.payload)
			if err != nil {
				return nil, fmt.Errorf("building document: %w", err)
			}
		} else if !metadata.IsMissing(err) {
			return nil, fmt.Errorf("building document: %w", err)
		}
	}

	return &Document{
		protected:  protected,
		meta:       b.meta,
		payload:    payload,
		hasPayload: b.hasPayload,
		sigs:       append(Signatures(nil), b.sigs...),
	}, nil
}
