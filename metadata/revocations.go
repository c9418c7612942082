package metadata

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/catalyst-forge/go-signed-doc/core/cbor"
	"github.com/catalyst-forge/go-signed-doc/uuid"
)

// Revocations names which earlier versions of a document are revoked:
// either every prior version (the boolean true on the wire) or a
// specific list of version UUIDs. The boolean false is not a valid
// encoding and fails decoding outright.
type Revocations struct {
	all  bool
	vers []uuid.V7
}

// RevokeAll revokes every prior version.
func RevokeAll() Revocations { return Revocations{all: true} }

// Revoke revokes the listed versions. An empty list is allowed and is
// distinct from the field being absent.
func Revoke(vers ...uuid.V7) Revocations { return Revocations{vers: vers} }

// IsAll reports whether every prior version is revoked.
func (r Revocations) IsAll() bool { return r.all }

// Versions returns the revoked versions; nil when IsAll.
func (r Revocations) Versions() []uuid.V7 { return r.vers }

func (r Revocations) String() string {
	if r.all {
		return "all"
	}
	parts := make([]string, len(r.vers))
	for i, v := range r.vers {
		parts[i] = v.String()
	}
	return "[" + strings.Join(parts, ", ") + "]"
}

func decodeRevocations(d *cbor.Decoder, location string) (Revocations, error) {
	dt, err := d.Datatype(location)
	if err != nil {
		return Revocations{}, err
	}
	switch dt {
	case cbor.TypeBool:
		v, err := d.Bool(location)
		if err != nil {
			return Revocations{}, err
		}
		if !v {
			return Revocations{}, fmt.Errorf("decoding %s: false is not a valid revocation set", location)
		}
		return RevokeAll(), nil
	case cbor.TypeArray:
		vers, err := cbor.DecodeArray(d, cbor.NonDeterministic, location, func(d *cbor.Decoder) (uuid.V7, error) {
			return uuid.DecodeV7(d, uuid.Tagged, location)
		})
		if err != nil {
			return Revocations{}, err
		}
		return Revoke(vers...), nil
	default:
		return Revocations{}, fmt.Errorf("decoding %s: expected true or an array of versions, got %s", location, dt)
	}
}

// EncodeCBOR writes true or the version list.
func (r Revocations) EncodeCBOR(e *cbor.Encoder) {
	if r.all {
		e.Bool(true)
		return
	}
	e.ArrayLen(uint64(len(r.vers)))
	for _, v := range r.vers {
		v.EncodeCBOR(e, uuid.Tagged)
	}
}

// MarshalJSON renders true or an array of version strings.
func (r Revocations) MarshalJSON() ([]byte, error) {
	if r.all {
		return json.Marshal(true)
	}
	parts := make([]string, len(r.vers))
	for i, v := range r.vers {
		parts[i] = v.String()
	}
	return json.Marshal(parts)
}

// UnmarshalJSON accepts true or an array of version strings; false is
// rejected.
func (r *Revocations) UnmarshalJSON(b []byte) error {
	var all bool
	if err := json.Unmarshal(b, &all); err == nil {
		if !all {
			return fmt.Errorf("false is not a valid revocation set")
		}
		*r = RevokeAll()
		return nil
	}
	var parts []string
	if err := json.Unmarshal(b, &parts); err != nil {
		return fmt.Errorf("revocations must be true or an array of versions")
	}
	vers := make([]uuid.V7, len(parts))
	for i, s := range parts {
		v, err := uuid.V7FromString(s)
		if err != nil {
			return err
		}
		vers[i] = v
	}
	*r = Revoke(vers...)
	return nil
}
