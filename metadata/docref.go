package metadata

import (
	"bytes"
	"encoding/json"
	"fmt"

	ipfscid "github.com/ipfs/go-cid"

	"github.com/catalyst-forge/go-signed-doc/core/cbor"
	"github.com/catalyst-forge/go-signed-doc/uuid"
)

// TagCID is the IPLD content identifier CBOR tag.
const TagCID = 42

// DocLocator optionally pins a referenced document to a content
// address. On the wire it is a single-entry map {"cid": 42(bytes)};
// the byte string is stored verbatim, only the tag and key are
// validated at decode time.
type DocLocator struct {
	cid []byte
}

// NewDocLocator wraps raw CID bytes.
func NewDocLocator(cidBytes []byte) DocLocator {
	return DocLocator{cid: cidBytes}
}

// IsEmpty reports whether no content address is set.
func (l DocLocator) IsEmpty() bool { return len(l.cid) == 0 }

// Bytes returns the raw CID bytes as they appeared on the wire.
func (l DocLocator) Bytes() []byte { return l.cid }

// CID parses the stored bytes as a content identifier.
func (l DocLocator) CID() (ipfscid.Cid, error) {
	if l.IsEmpty() {
		return ipfscid.Undef, fmt.Errorf("document locator is empty")
	}
	c, err := ipfscid.Cast(l.cid)
	if err != nil {
		return ipfscid.Undef, fmt.Errorf("parsing document locator: %w", err)
	}
	return c, nil
}

func decodeDocLocator(d *cbor.Decoder, location string) (DocLocator, error) {
	n, err := d.MapLen(location)
	if err != nil {
		return DocLocator{}, err
	}
	switch n {
	case 0:
		return DocLocator{}, nil
	case 1:
		key, err := d.Text(location)
		if err != nil {
			return DocLocator{}, err
		}
		if key != "cid" {
			return DocLocator{}, fmt.Errorf("decoding %s: expected \"cid\" key, got %q", location, key)
		}
		if err := d.ExpectTag(TagCID, location); err != nil {
			return DocLocator{}, err
		}
		b, err := d.Bytes(location)
		if err != nil {
			return DocLocator{}, err
		}
		return DocLocator{cid: append([]byte(nil), b...)}, nil
	default:
		return DocLocator{}, fmt.Errorf("decoding %s: locator map must have at most one entry, got %d", location, n)
	}
}

func (l DocLocator) encodeCBOR(e *cbor.Encoder) {
	if l.IsEmpty() {
		e.MapLen(0)
		return
	}
	e.MapLen(1)
	e.Text("cid")
	e.Tag(TagCID)
	e.Bytes(l.cid)
}

// DocumentRef identifies one specific version of a document, with an
// optional content-address locator.
type DocumentRef struct {
	ID      uuid.V7
	Ver     uuid.V7
	Locator DocLocator
}

func (r DocumentRef) String() string {
	return fmt.Sprintf("id: %s, ver: %s", r.ID, r.Ver)
}

// Equal ignores the locator: two refs naming the same (id, ver) are
// the same reference.
func (r DocumentRef) Equal(o DocumentRef) bool {
	return r.ID == o.ID && r.Ver == o.Ver
}

func decodeDocumentRef(d *cbor.Decoder, location string) (DocumentRef, bool, error) {
	n, err := d.ArrayLen(location)
	if err != nil {
		return DocumentRef{}, false, err
	}
	if n != 2 && n != 3 {
		return DocumentRef{}, false, fmt.Errorf("decoding %s: reference must be [id, ver] or [id, ver, locator], got %d elements", location, n)
	}
	id, err := uuid.DecodeV7(d, uuid.Tagged, location+" id")
	if err != nil {
		return DocumentRef{}, false, err
	}
	ver, err := uuid.DecodeV7(d, uuid.Tagged, location+" ver")
	if err != nil {
		return DocumentRef{}, false, err
	}
	ref := DocumentRef{ID: id, Ver: ver}
	if n == 2 {
		return ref, true, nil
	}
	ref.Locator, err = decodeDocLocator(d, location+" locator")
	if err != nil {
		return DocumentRef{}, false, err
	}
	return ref, false, nil
}

func (r DocumentRef) encodeCBOR(e *cbor.Encoder) {
	e.ArrayLen(3)
	r.ID.EncodeCBOR(e, uuid.Tagged)
	r.Ver.EncodeCBOR(e, uuid.Tagged)
	r.Locator.encodeCBOR(e)
}

// DocumentRefs is an ordered, non-empty sequence of references.
// Identity is element-wise.
type DocumentRefs []DocumentRef

// Equal is element-wise (id, ver) equality.
func (rs DocumentRefs) Equal(o DocumentRefs) bool {
	if len(rs) != len(o) {
		return false
	}
	for i := range rs {
		if !rs[i].Equal(o[i]) {
			return false
		}
	}
	return true
}

func (rs DocumentRefs) String() string {
	var b bytes.Buffer
	b.WriteByte('[')
	for i, r := range rs {
		if i > 0 {
			b.WriteString("; ")
		}
		b.WriteString(r.String())
	}
	b.WriteByte(']')
	return b.String()
}

// DecodeDocumentRefs reads the current list-of-references form or the
// deprecated single [id, ver] pair. The returned flag reports whether
// the deprecated form was seen.
func DecodeDocumentRefs(d *cbor.Decoder, location string) (DocumentRefs, bool, error) {
	n, err := d.ArrayLen(location)
	if err != nil {
		return nil, false, err
	}
	if n == 0 {
		return nil, false, fmt.Errorf("decoding %s: reference list must not be empty", location)
	}

	dt, err := d.Datatype(location)
	if err != nil {
		return nil, false, err
	}
	if dt == cbor.TypeTag {
		// Deprecated shape: the array itself is a single [id, ver]
		// pair of tagged UUIDs.
		if n != 2 {
			return nil, false, fmt.Errorf("decoding %s: deprecated reference must be [id, ver], got %d elements", location, n)
		}
		id, err := uuid.DecodeV7(d, uuid.Tagged, location+" id")
		if err != nil {
			return nil, false, err
		}
		ver, err := uuid.DecodeV7(d, uuid.Tagged, location+" ver")
		if err != nil {
			return nil, false, err
		}
		return DocumentRefs{{ID: id, Ver: ver}}, true, nil
	}

	refs := make(DocumentRefs, 0, n)
	deprecated := false
	for i := uint64(0); i < n; i++ {
		ref, legacy, err := decodeDocumentRef(d, fmt.Sprintf("%s[%d]", location, i))
		if err != nil {
			return nil, false, err
		}
		deprecated = deprecated || legacy
		refs = append(refs, ref)
	}
	return refs, deprecated, nil
}

// EncodeCBOR always writes the current list form.
func (rs DocumentRefs) EncodeCBOR(e *cbor.Encoder) {
	e.ArrayLen(uint64(len(rs)))
	for _, r := range rs {
		r.encodeCBOR(e)
	}
}

type docRefJSON struct {
	ID  string `json:"id"`
	Ver string `json:"ver"`
	CID string `json:"cid,omitempty"`
}

// MarshalJSON renders refs with CIDs in their canonical string form.
func (r DocumentRef) MarshalJSON() ([]byte, error) {
	out := docRefJSON{ID: r.ID.String(), Ver: r.Ver.String()}
	if !r.Locator.IsEmpty() {
		c, err := r.Locator.CID()
		if err != nil {
			return nil, err
		}
		out.CID = c.String()
	}
	return json.Marshal(out)
}

// UnmarshalJSON parses the form emitted by MarshalJSON.
func (r *DocumentRef) UnmarshalJSON(b []byte) error {
	var in docRefJSON
	if err := json.Unmarshal(b, &in); err != nil {
		return err
	}
	id, err := uuid.V7FromString(in.ID)
	if err != nil {
		return fmt.Errorf("reference id: %w", err)
	}
	ver, err := uuid.V7FromString(in.Ver)
	if err != nil {
		return fmt.Errorf("reference ver: %w", err)
	}
	ref := DocumentRef{ID: id, Ver: ver}
	if in.CID != "" {
		c, err := ipfscid.Decode(in.CID)
		if err != nil {
			return fmt.Errorf("reference cid: %w", err)
		}
		ref.Locator = NewDocLocator(c.Bytes())
	}
	*r = ref
	return nil
}
