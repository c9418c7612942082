// Package metadata implements the typed header of a signed document: a
// closed map of supported fields with a canonical, bytewise-ordered
// CBOR encoding. Unknown keys, duplicates, and non-canonical ordering
// are reported problems, not decode failures; structurally corrupt
// values are hard errors.
package metadata

import (
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/catalyst-forge/go-signed-doc/catid"
	"github.com/catalyst-forge/go-signed-doc/content"
	"github.com/catalyst-forge/go-signed-doc/core/cbor"
	"github.com/catalyst-forge/go-signed-doc/core/report"
	"github.com/catalyst-forge/go-signed-doc/uuid"
)

// Metadata field keys as they appear on the wire.
const (
	KeyType            = "type"
	KeyID              = "id"
	KeyVer             = "ver"
	KeyRef             = "ref"
	KeyTemplate        = "template"
	KeyReply           = "reply"
	KeySection         = "section"
	KeyCollaborators   = "collaborators"
	KeyContentType     = "content-type"
	KeyContentEncoding = "content-encoding"
	KeyParameters      = "parameters"
	KeyRevocations     = "revocations"
	KeyChain           = "chain"
)

func isKnownKey(key string) bool {
	switch key {
	case KeyType, KeyID, KeyVer, KeyRef, KeyTemplate, KeyReply, KeySection,
		KeyCollaborators, KeyContentType, KeyContentEncoding, KeyParameters,
		KeyRevocations, KeyChain:
		return true
	}
	return false
}

// Section is a JSON-Path expression selecting part of a referenced
// document's content.
type Section string

func (s Section) String() string { return string(s) }

// MissingFieldError reports that a metadata getter was called for an
// absent field, so callers can distinguish absence from malformation.
type MissingFieldError struct {
	Field string
}

func (e *MissingFieldError) Error() string {
	return fmt.Sprintf("missing %q metadata field", e.Field)
}

// IsMissing reports whether err is a MissingFieldError.
func IsMissing(err error) bool {
	var m *MissingFieldError
	return errors.As(err, &m)
}

// Metadata is the decoded header. The zero value is an empty header;
// populate it with the Set* methods or decode it from wire bytes.
type Metadata struct {
	docType         *DocType
	id              *uuid.V7
	ver             *uuid.V7
	contentType     *content.Type
	contentEncoding *content.Encoding
	ref             DocumentRefs
	template        DocumentRefs
	reply           DocumentRefs
	parameters      DocumentRefs
	section         *Section
	collaborators   []catid.ID
	revocations     *Revocations
	chain           *Chain

	// legacy 2-element ref or template shape was seen on decode
	deprecated bool
}

// DocType returns the "type" field.
func (m *Metadata) DocType() (DocType, error) {
	if m.docType == nil {
		return DocType{}, &MissingFieldError{Field: KeyType}
	}
	return *m.docType, nil
}

// ID returns the "id" field.
func (m *Metadata) ID() (uuid.V7, error) {
	if m.id == nil {
		return uuid.V7{}, &MissingFieldError{Field: KeyID}
	}
	return *m.id, nil
}

// Ver returns the "ver" field.
func (m *Metadata) Ver() (uuid.V7, error) {
	if m.ver == nil {
		return uuid.V7{}, &MissingFieldError{Field: KeyVer}
	}
	return *m.ver, nil
}

// ContentType returns the "content-type" field.
func (m *Metadata) ContentType() (content.Type, error) {
	if m.contentType == nil {
		return "", &MissingFieldError{Field: KeyContentType}
	}
	return *m.contentType, nil
}

// ContentEncoding returns the "content-encoding" field.
func (m *Metadata) ContentEncoding() (content.Encoding, error) {
	if m.contentEncoding == nil {
		return "", &MissingFieldError{Field: KeyContentEncoding}
	}
	return *m.contentEncoding, nil
}

// Ref returns the "ref" field.
func (m *Metadata) Ref() (DocumentRefs, error) {
	if m.ref == nil {
		return nil, &MissingFieldError{Field: KeyRef}
	}
	return m.ref, nil
}

// Template returns the "template" field.
func (m *Metadata) Template() (DocumentRefs, error) {
	if m.template == nil {
		return nil, &MissingFieldError{Field: KeyTemplate}
	}
	return m.template, nil
}

// Reply returns the "reply" field.
func (m *Metadata) Reply() (DocumentRefs, error) {
	if m.reply == nil {
		return nil, &MissingFieldError{Field: KeyReply}
	}
	return m.reply, nil
}

// Parameters returns the "parameters" field.
func (m *Metadata) Parameters() (DocumentRefs, error) {
	if m.parameters == nil {
		return nil, &MissingFieldError{Field: KeyParameters}
	}
	return m.parameters, nil
}

// Section returns the "section" field.
func (m *Metadata) Section() (Section, error) {
	if m.section == nil {
		return "", &MissingFieldError{Field: KeySection}
	}
	return *m.section, nil
}

// Collaborators returns the "collaborators" field.
func (m *Metadata) Collaborators() ([]catid.ID, error) {
	if m.collaborators == nil {
		return nil, &MissingFieldError{Field: KeyCollaborators}
	}
	return m.collaborators, nil
}

// Revocations returns the "revocations" field.
func (m *Metadata) Revocations() (Revocations, error) {
	if m.revocations == nil {
		return Revocations{}, &MissingFieldError{Field: KeyRevocations}
	}
	return *m.revocations, nil
}

// Chain returns the "chain" field.
func (m *Metadata) Chain() (Chain, error) {
	if m.chain == nil {
		return Chain{}, &MissingFieldError{Field: KeyChain}
	}
	return *m.chain, nil
}

// Has reports whether the named field is present.
func (m *Metadata) Has(key string) bool {
	switch key {
	case KeyType:
		return m.docType != nil
	case KeyID:
		return m.id != nil
	case KeyVer:
		return m.ver != nil
	case KeyContentType:
		return m.contentType != nil
	case KeyContentEncoding:
		return m.contentEncoding != nil
	case KeyRef:
		return m.ref != nil
	case KeyTemplate:
		return m.template != nil
	case KeyReply:
		return m.reply != nil
	case KeyParameters:
		return m.parameters != nil
	case KeySection:
		return m.section != nil
	case KeyCollaborators:
		return m.collaborators != nil
	case KeyRevocations:
		return m.revocations != nil
	case KeyChain:
		return m.chain != nil
	}
	return false
}

// IsDeprecated reports whether ref or template used the legacy
// 2-element [id, ver] shape on decode.
func (m *Metadata) IsDeprecated() bool { return m.deprecated }

func (m *Metadata) SetDocType(t DocType)                 { m.docType = &t }
func (m *Metadata) SetID(v uuid.V7)                      { m.id = &v }
func (m *Metadata) SetVer(v uuid.V7)                     { m.ver = &v }
func (m *Metadata) SetContentType(t content.Type)        { m.contentType = &t }
func (m *Metadata) SetContentEncoding(e content.Encoding) { m.contentEncoding = &e }
func (m *Metadata) SetRef(rs DocumentRefs)               { m.ref = rs }
func (m *Metadata) SetTemplate(rs DocumentRefs)          { m.template = rs }
func (m *Metadata) SetReply(rs DocumentRefs)             { m.reply = rs }
func (m *Metadata) SetParameters(rs DocumentRefs)        { m.parameters = rs }
func (m *Metadata) SetSection(s Section)                 { m.section = &s }
func (m *Metadata) SetCollaborators(ids []catid.ID)      { m.collaborators = ids }
func (m *Metadata) SetRevocations(r Revocations)         { m.revocations = &r }
func (m *Metadata) SetChain(c Chain)                     { m.chain = &c }

// Decode reads a complete metadata map from protected-header bytes.
// Unknown keys, duplicates, and ordering problems are recorded in rep;
// structural corruption is a hard error.
func Decode(data []byte, rep *report.Report) (*Metadata, error) {
	d := cbor.NewDecoder(data)
	m, err := DecodeFrom(d, rep)
	if err != nil {
		return nil, err
	}
	if err := d.Finish("metadata"); err != nil {
		return nil, err
	}
	return m, nil
}

// DecodeFrom reads a metadata map from the decoder's current position.
func DecodeFrom(d *cbor.Decoder, rep *report.Report) (*Metadata, error) {
	n, err := d.MapLen("metadata")
	if err != nil {
		return nil, err
	}

	m := &Metadata{}
	seen := make(map[string]bool, n)
	var prevKey []byte
	ordered := true

	for i := uint64(0); i < n; i++ {
		rawKey, err := d.RawItem("metadata key")
		if err != nil {
			return nil, err
		}
		rawVal, err := d.RawItem("metadata value")
		if err != nil {
			return nil, err
		}

		if prevKey != nil && cbor.CanonicalCompare(prevKey, rawKey) >= 0 {
			ordered = false
		}
		prevKey = rawKey

		key, err := cbor.NewDecoder(rawKey).Text("metadata key")
		if err != nil {
			rep.UnknownField(hex.EncodeToString(rawKey), hex.EncodeToString(rawVal), "non-text metadata key")
			continue
		}
		if !isKnownKey(key) {
			rep.UnknownField(key, hex.EncodeToString(rawVal), "metadata")
			continue
		}
		if seen[key] {
			rep.DuplicateField(key, "metadata fields may appear at most once", "metadata")
			continue
		}
		seen[key] = true

		if err := m.decodeValue(key, rawVal, rep); err != nil {
			return nil, err
		}
	}

	if !ordered {
		rep.InvalidEncoding("metadata", "", "canonical map key order", "keys are not in canonical order")
	}
	m.validate(rep)
	return m, nil
}

func (m *Metadata) decodeValue(key string, rawVal []byte, rep *report.Report) error {
	d := cbor.NewDecoder(rawVal)
	switch key {
	case KeyType:
		t, err := DecodeDocType(d, KeyType)
		if err != nil {
			return err
		}
		m.docType = &t
	case KeyID:
		v, err := uuid.DecodeV7(d, uuid.Tagged, KeyID)
		if err != nil {
			return err
		}
		m.id = &v
	case KeyVer:
		v, err := uuid.DecodeV7(d, uuid.Tagged, KeyVer)
		if err != nil {
			return err
		}
		m.ver = &v
	case KeyContentType:
		s, err := d.Text(KeyContentType)
		if err != nil {
			return err
		}
		t, err := content.ParseType(s)
		if err != nil {
			rep.InvalidValue(KeyContentType, s, "supported media type", "metadata")
			t = content.Type(s)
		}
		m.contentType = &t
	case KeyContentEncoding:
		s, err := d.Text(KeyContentEncoding)
		if err != nil {
			return err
		}
		enc, err := content.ParseEncoding(s)
		if err != nil {
			// Unknown encodings are carried through so the value
			// round-trips; the encoding rule decides acceptability.
			rep.InvalidValue(KeyContentEncoding, s, "supported content encoding", "metadata")
			enc = content.Encoding(s)
		}
		m.contentEncoding = &enc
	case KeyRef:
		refs, legacy, err := DecodeDocumentRefs(d, KeyRef)
		if err != nil {
			return err
		}
		m.ref = refs
		m.deprecated = m.deprecated || legacy
	case KeyTemplate:
		refs, legacy, err := DecodeDocumentRefs(d, KeyTemplate)
		if err != nil {
			return err
		}
		m.template = refs
		m.deprecated = m.deprecated || legacy
	case KeyReply:
		refs, _, err := DecodeDocumentRefs(d, KeyReply)
		if err != nil {
			return err
		}
		m.reply = refs
	case KeyParameters:
		refs, _, err := DecodeDocumentRefs(d, KeyParameters)
		if err != nil {
			return err
		}
		m.parameters = refs
	case KeySection:
		s, err := d.Text(KeySection)
		if err != nil {
			return err
		}
		sec := Section(s)
		m.section = &sec
	case KeyCollaborators:
		ids, err := cbor.DecodeArray(d, cbor.NonDeterministic, KeyCollaborators, func(d *cbor.Decoder) (catid.ID, error) {
			s, err := d.Text(KeyCollaborators)
			if err != nil {
				return catid.ID{}, err
			}
			return catid.Parse(s)
		})
		if err != nil {
			return err
		}
		m.collaborators = ids
	case KeyRevocations:
		r, err := decodeRevocations(d, KeyRevocations)
		if err != nil {
			return err
		}
		m.revocations = &r
	case KeyChain:
		c, err := decodeChain(d, KeyChain)
		if err != nil {
			return err
		}
		m.chain = &c
	}
	return d.Finish(key)
}

// validate records the cross-field invariants that do not need a
// provider: ver must not precede id, and every reference's ver must
// not precede its id.
func (m *Metadata) validate(rep *report.Report) {
	if m.id != nil && m.ver != nil && m.ver.Compare(*m.id) < 0 {
		rep.InvalidValue(KeyVer, m.ver.String(), "ver must not precede id", "metadata")
	}
	refFields := []struct {
		key  string
		refs DocumentRefs
	}{
		{KeyRef, m.ref}, {KeyTemplate, m.template}, {KeyReply, m.reply}, {KeyParameters, m.parameters},
	}
	for _, f := range refFields {
		key, refs := f.key, f.refs
		for _, r := range refs {
			if r.Ver.Compare(r.ID) < 0 {
				rep.InvalidValue(key, r.String(), "reference ver must not precede its id", "metadata")
			}
		}
	}
}

// Bytes emits the canonical encoding: pairs sorted by encoded key,
// shortest first then bytewise, under a definite-length map head.
func (m *Metadata) Bytes() ([]byte, error) {
	type pair struct{ key, val []byte }
	var pairs []pair

	add := func(key string, encode func(*cbor.Encoder)) {
		ke := cbor.NewEncoder()
		ke.Text(key)
		ve := cbor.NewEncoder()
		encode(ve)
		pairs = append(pairs, pair{key: ke.Result(), val: ve.Result()})
	}

	if m.docType != nil {
		add(KeyType, m.docType.EncodeCBOR)
	}
	if m.id != nil {
		add(KeyID, func(e *cbor.Encoder) { m.id.EncodeCBOR(e, uuid.Tagged) })
	}
	if m.ver != nil {
		add(KeyVer, func(e *cbor.Encoder) { m.ver.EncodeCBOR(e, uuid.Tagged) })
	}
	if m.contentType != nil {
		add(KeyContentType, func(e *cbor.Encoder) { e.Text(string(*m.contentType)) })
	}
	if m.contentEncoding != nil {
		add(KeyContentEncoding, func(e *cbor.Encoder) { e.Text(string(*m.contentEncoding)) })
	}
	if m.ref != nil {
		add(KeyRef, m.ref.EncodeCBOR)
	}
	if m.template != nil {
		add(KeyTemplate, m.template.EncodeCBOR)
	}
	if m.reply != nil {
		add(KeyReply, m.reply.EncodeCBOR)
	}
	if m.parameters != nil {
		add(KeyParameters, m.parameters.EncodeCBOR)
	}
	if m.section != nil {
		add(KeySection, func(e *cbor.Encoder) { e.Text(string(*m.section)) })
	}
	if m.collaborators != nil {
		add(KeyCollaborators, func(e *cbor.Encoder) {
			e.ArrayLen(uint64(len(m.collaborators)))
			for _, id := range m.collaborators {
				e.Text(id.String())
			}
		})
	}
	if m.revocations != nil {
		add(KeyRevocations, m.revocations.EncodeCBOR)
	}
	if m.chain != nil {
		add(KeyChain, m.chain.EncodeCBOR)
	}

	for i := 1; i < len(pairs); i++ {
		for j := i; j > 0 && cbor.CanonicalCompare(pairs[j-1].key, pairs[j].key) > 0; j-- {
			pairs[j-1], pairs[j] = pairs[j], pairs[j-1]
		}
	}

	e := cbor.NewEncoder()
	e.MapLen(uint64(len(pairs)))
	for _, p := range pairs {
		e.Raw(p.key)
		e.Raw(p.val)
	}
	return e.Result(), nil
}

type metadataJSON struct {
	Type            *DocType        `json:"type,omitempty"`
	ID              string          `json:"id,omitempty"`
	Ver             string          `json:"ver,omitempty"`
	ContentType     string          `json:"content-type,omitempty"`
	ContentEncoding string          `json:"content-encoding,omitempty"`
	Ref             DocumentRefs    `json:"ref,omitempty"`
	Template        DocumentRefs    `json:"template,omitempty"`
	Reply           DocumentRefs    `json:"reply,omitempty"`
	Parameters      DocumentRefs    `json:"parameters,omitempty"`
	Section         string          `json:"section,omitempty"`
	Collaborators   []catid.ID      `json:"collaborators,omitempty"`
	Revocations     *Revocations    `json:"revocations,omitempty"`
	Chain           *Chain          `json:"chain,omitempty"`
}

// MarshalJSON renders the header for human consumption and for the
// build tooling's meta.json files.
func (m *Metadata) MarshalJSON() ([]byte, error) {
	out := metadataJSON{
		Type:          m.docType,
		Ref:           m.ref,
		Template:      m.template,
		Reply:         m.reply,
		Parameters:    m.parameters,
		Collaborators: m.collaborators,
		Revocations:   m.revocations,
		Chain:         m.chain,
	}
	if m.id != nil {
		out.ID = m.id.String()
	}
	if m.ver != nil {
		out.Ver = m.ver.String()
	}
	if m.contentType != nil {
		out.ContentType = string(*m.contentType)
	}
	if m.contentEncoding != nil {
		out.ContentEncoding = string(*m.contentEncoding)
	}
	if m.section != nil {
		out.Section = string(*m.section)
	}
	return json.Marshal(out)
}

// UnmarshalJSON parses the form emitted by MarshalJSON.
func (m *Metadata) UnmarshalJSON(b []byte) error {
	var in metadataJSON
	if err := json.Unmarshal(b, &in); err != nil {
		return err
	}
	out := Metadata{
		docType:       in.Type,
		ref:           in.Ref,
		template:      in.Template,
		reply:         in.Reply,
		parameters:    in.Parameters,
		collaborators: in.Collaborators,
		revocations:   in.Revocations,
		chain:         in.Chain,
	}
	if in.ID != "" {
		id, err := uuid.V7FromString(in.ID)
		if err != nil {
			return fmt.Errorf("metadata id: %w", err)
		}
		out.id = &id
	}
	if in.Ver != "" {
		ver, err := uuid.V7FromString(in.Ver)
		if err != nil {
			return fmt.Errorf("metadata ver: %w", err)
		}
		out.ver = &ver
	}
	if in.ContentType != "" {
		t, err := content.ParseType(in.ContentType)
		if err != nil {
			return err
		}
		out.contentType = &t
	}
	if in.ContentEncoding != "" {
		enc, err := content.ParseEncoding(in.ContentEncoding)
		if err != nil {
			return err
		}
		out.contentEncoding = &enc
	}
	if in.Section != "" {
		s := Section(in.Section)
		out.section = &s
	}
	*m = out
	return nil
}
