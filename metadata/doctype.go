package metadata

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/catalyst-forge/go-signed-doc/core/cbor"
	"github.com/catalyst-forge/go-signed-doc/uuid"
)

// DocType identifies a document type: a non-empty list of UUIDv4
// values. Most types are a single UUID; composite types append
// qualifying UUIDs. Equality is structural.
type DocType struct {
	uuids []uuid.V4
}

// NewDocType builds a type from one or more UUIDv4 values.
func NewDocType(ids ...uuid.V4) (DocType, error) {
	if len(ids) == 0 {
		return DocType{}, fmt.Errorf("doc type must contain at least one UUID")
	}
	for _, id := range ids {
		if id.IsZero() {
			return DocType{}, fmt.Errorf("doc type must not contain the zero UUID")
		}
	}
	return DocType{uuids: ids}, nil
}

// MustDocType is NewDocType for statically known UUID strings; it
// panics on malformed input.
func MustDocType(ids ...string) DocType {
	uuids := make([]uuid.V4, len(ids))
	for i, s := range ids {
		v, err := uuid.V4FromString(s)
		if err != nil {
			panic(err)
		}
		uuids[i] = v
	}
	return DocType{uuids: uuids}
}

// UUIDs returns the component UUIDs.
func (t DocType) UUIDs() []uuid.V4 { return t.uuids }

// IsZero reports whether t is the invalid zero value.
func (t DocType) IsZero() bool { return len(t.uuids) == 0 }

// Equal is element-wise equality.
func (t DocType) Equal(o DocType) bool {
	if len(t.uuids) != len(o.uuids) {
		return false
	}
	for i := range t.uuids {
		if t.uuids[i] != o.uuids[i] {
			return false
		}
	}
	return true
}

func (t DocType) String() string {
	parts := make([]string, len(t.uuids))
	for i, u := range t.uuids {
		parts[i] = u.String()
	}
	return strings.Join(parts, ",")
}

// DecodeDocType accepts either an array of tagged UUIDv4 values or, in
// the older single-UUID form, one tagged UUIDv4.
func DecodeDocType(d *cbor.Decoder, location string) (DocType, error) {
	dt, err := d.Datatype(location)
	if err != nil {
		return DocType{}, err
	}
	switch dt {
	case cbor.TypeArray:
		uuids, err := cbor.DecodeArray(d, cbor.NonDeterministic, location, func(d *cbor.Decoder) (uuid.V4, error) {
			return uuid.DecodeV4(d, uuid.Tagged, location)
		})
		if err != nil {
			return DocType{}, err
		}
		return NewDocType(uuids...)
	case cbor.TypeTag:
		u, err := uuid.DecodeV4(d, uuid.Tagged, location)
		if err != nil {
			return DocType{}, err
		}
		return NewDocType(u)
	default:
		return DocType{}, fmt.Errorf("decoding %s: expected array or tagged UUIDv4, got %s", location, dt)
	}
}

// EncodeCBOR always writes the array form.
func (t DocType) EncodeCBOR(e *cbor.Encoder) {
	e.ArrayLen(uint64(len(t.uuids)))
	for _, u := range t.uuids {
		u.EncodeCBOR(e, uuid.Tagged)
	}
}

// MarshalJSON renders a single-UUID type as a plain string and a
// composite type as an array of strings.
func (t DocType) MarshalJSON() ([]byte, error) {
	if t.IsZero() {
		return nil, fmt.Errorf("cannot marshal zero doc type")
	}
	if len(t.uuids) == 1 {
		return json.Marshal(t.uuids[0].String())
	}
	parts := make([]string, len(t.uuids))
	for i, u := range t.uuids {
		parts[i] = u.String()
	}
	return json.Marshal(parts)
}

// UnmarshalJSON accepts a single UUID string or an array of them.
func (t *DocType) UnmarshalJSON(b []byte) error {
	var single string
	if err := json.Unmarshal(b, &single); err == nil {
		u, err := uuid.V4FromString(single)
		if err != nil {
			return err
		}
		parsed, err := NewDocType(u)
		if err != nil {
			return err
		}
		*t = parsed
		return nil
	}
	var many []string
	if err := json.Unmarshal(b, &many); err != nil {
		return fmt.Errorf("doc type must be a UUID string or an array of them")
	}
	uuids := make([]uuid.V4, len(many))
	for i, s := range many {
		u, err := uuid.V4FromString(s)
		if err != nil {
			return err
		}
		uuids[i] = u
	}
	parsed, err := NewDocType(uuids...)
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}
