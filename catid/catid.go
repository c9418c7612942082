// Package catid implements the Catalyst ID URI: a scheme-qualified
// identifier embedding a network, an Ed25519 role-0 public key, a role
// index, and a key rotation counter.
//
// Three textual forms exist: the user URI (scheme "id.catalyst"), the
// admin URI (scheme "admin.catalyst"), and the raw ID with no scheme.
// An ID value is immutable; the With*/Without* methods return copies.
package catid

import (
	"crypto/ed25519"
	"encoding/base64"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"
)

const (
	// Scheme is the URI scheme of a user Catalyst ID.
	Scheme = "id.catalyst"
	// AdminScheme is the URI scheme of an admin Catalyst ID.
	AdminScheme = "admin.catalyst"

	encryptionFragment = "encrypt"

	// Nonce bounds: 2025-01-01T00:00:00Z to 2125-01-01T00:00:00Z.
	minNonce = 1_735_689_600
	maxNonce = 4_891_363_200
)

// Form selects how an ID renders: as a user URI, an admin URI, or a
// bare (scheme-less) id.
type Form int

const (
	FormURI Form = iota
	FormID
	FormAdminURI
)

// ID is a parsed Catalyst ID. The zero value is invalid; construct via
// New or Parse.
type ID struct {
	username   string
	nonce      int64 // unix seconds; 0 = unset
	network    string
	subnet     string
	key        ed25519.PublicKey
	role       RoleID
	rotation   KeyRotation
	encryption bool
	form       Form
}

// New builds a signing-key user URI for the given network and role-0
// public key. Subnet may be empty.
func New(network, subnet string, key ed25519.PublicKey) (ID, error) {
	if len(key) != ed25519.PublicKeySize {
		return ID{}, fmt.Errorf("role0 key must be %d bytes, got %d", ed25519.PublicKeySize, len(key))
	}
	if network == "" {
		return ID{}, fmt.Errorf("network must not be empty")
	}
	return ID{network: network, subnet: subnet, key: key}, nil
}

// Parse reads a Catalyst ID from its URI or raw-id text form.
func Parse(s string) (ID, error) {
	var form Form
	text := s
	if strings.Contains(s, "://") {
		switch {
		case strings.HasPrefix(s, Scheme+"://"):
			form = FormURI
		case strings.HasPrefix(s, AdminScheme+"://"):
			form = FormAdminURI
		default:
			return ID{}, fmt.Errorf("parsing catalyst id %q: invalid scheme", s)
		}
	} else {
		form = FormID
		text = Scheme + "://" + s
	}

	u, err := url.Parse(text)
	if err != nil {
		return ID{}, fmt.Errorf("parsing catalyst id %q: %w", s, err)
	}
	if u.Host == "" {
		return ID{}, fmt.Errorf("parsing catalyst id %q: no network defined", s)
	}

	id := ID{form: form}
	if i := strings.LastIndex(u.Host, "."); i >= 0 {
		id.subnet, id.network = u.Host[:i], u.Host[i+1:]
	} else {
		id.network = u.Host
	}

	if u.User != nil {
		id.username = u.User.Username()
		if nonceStr, ok := u.User.Password(); ok {
			nonce, err := strconv.ParseInt(nonceStr, 10, 64)
			if err != nil || nonce < minNonce || nonce > maxNonce {
				return ID{}, fmt.Errorf("parsing catalyst id %q: invalid nonce %q", s, nonceStr)
			}
			id.nonce = nonce
		}
	}

	segments := strings.Split(strings.TrimPrefix(u.Path, "/"), "/")
	if u.Path == "" || segments[0] == "" {
		return ID{}, fmt.Errorf("parsing catalyst id %q: missing role0 key", s)
	}
	if len(segments) > 3 {
		return ID{}, fmt.Errorf("parsing catalyst id %q: too many path segments", s)
	}

	key, err := base64.RawURLEncoding.DecodeString(segments[0])
	if err != nil {
		return ID{}, fmt.Errorf("parsing catalyst id %q: role0 key encoding: %w", s, err)
	}
	if len(key) != ed25519.PublicKeySize {
		return ID{}, fmt.Errorf("parsing catalyst id %q: role0 key must be %d bytes, got %d", s, ed25519.PublicKeySize, len(key))
	}
	id.key = ed25519.PublicKey(key)

	if len(segments) > 1 {
		id.role, err = ParseRoleID(segments[1])
		if err != nil {
			return ID{}, fmt.Errorf("parsing catalyst id %q: %w", s, err)
		}
	}
	if len(segments) > 2 {
		id.rotation, err = ParseKeyRotation(segments[2])
		if err != nil {
			return ID{}, fmt.Errorf("parsing catalyst id %q: %w", s, err)
		}
	}

	switch u.Fragment {
	case "":
	case encryptionFragment:
		id.encryption = true
	default:
		return ID{}, fmt.Errorf("parsing catalyst id %q: invalid fragment %q", s, u.Fragment)
	}

	return id, nil
}

// FromBytes parses the UTF-8 text form carried in a COSE kid header.
func FromBytes(b []byte) (ID, error) {
	return Parse(string(b))
}

func (id ID) String() string {
	var b strings.Builder
	switch id.form {
	case FormURI:
		b.WriteString(Scheme + "://")
	case FormAdminURI:
		b.WriteString(AdminScheme + "://")
	}

	needsAt := false
	if id.username != "" {
		b.WriteString(id.username)
		needsAt = true
	}
	if id.nonce != 0 {
		fmt.Fprintf(&b, ":%d", id.nonce)
		needsAt = true
	}
	if needsAt {
		b.WriteByte('@')
	}

	if id.subnet != "" {
		b.WriteString(id.subnet)
		b.WriteByte('.')
	}
	b.WriteString(id.network)
	b.WriteByte('/')
	b.WriteString(base64.RawURLEncoding.EncodeToString(id.key))

	// Role and rotation are elided for an id in fully default form.
	if !id.role.IsDefault() || !id.rotation.IsDefault() || id.form != FormID {
		b.WriteByte('/')
		b.WriteString(id.role.String())
		if !id.rotation.IsDefault() || id.form != FormID {
			b.WriteByte('/')
			b.WriteString(id.rotation.String())
		}
	}

	if id.encryption {
		b.WriteString("#" + encryptionFragment)
	}
	return b.String()
}

// Bytes returns the UTF-8 text form, as carried in a COSE kid header.
func (id ID) Bytes() []byte { return []byte(id.String()) }

// Username returns the cosmetic username, if any.
func (id ID) Username() string { return id.username }

// Nonce returns the nonce time and whether one is set.
func (id ID) Nonce() (time.Time, bool) {
	if id.nonce == 0 {
		return time.Time{}, false
	}
	return time.Unix(id.nonce, 0).UTC(), true
}

// Network returns the network and subnet ("" if none).
func (id ID) Network() (network, subnet string) { return id.network, id.subnet }

// Role0Key returns the embedded Ed25519 public key.
func (id ID) Role0Key() ed25519.PublicKey { return id.key }

// RoleAndRotation returns the role index and its rotation count.
func (id ID) RoleAndRotation() (RoleID, KeyRotation) { return id.role, id.rotation }

// IsAdmin reports whether the id uses the admin URI form.
func (id ID) IsAdmin() bool { return id.form == FormAdminURI }

// IsID reports whether the id uses the bare (scheme-less) form.
func (id ID) IsID() bool { return id.form == FormID }

// IsURI reports whether the id uses the user URI form.
func (id ID) IsURI() bool { return id.form == FormURI }

// IsEncryptionKey reports whether the id identifies an encryption key.
func (id ID) IsEncryptionKey() bool { return id.encryption }

// IsSignatureKey reports whether the id identifies a signing key.
func (id ID) IsSignatureKey() bool { return !id.encryption }

// IsZero reports whether id is the invalid zero value.
func (id ID) IsZero() bool { return len(id.key) == 0 }

// AsURI returns a copy rendered in user URI form.
func (id ID) AsURI() ID { id.form = FormURI; return id }

// AsID returns a copy rendered in bare id form.
func (id ID) AsID() ID { id.form = FormID; return id }

// AsAdmin returns a copy rendered in admin URI form.
func (id ID) AsAdmin() ID { id.form = FormAdminURI; return id }

// WithUsername returns a copy carrying the given username.
func (id ID) WithUsername(name string) ID { id.username = name; return id }

// WithoutUsername returns a copy with no username.
func (id ID) WithoutUsername() ID { id.username = ""; return id }

// WithRole returns a copy carrying the given role.
func (id ID) WithRole(role RoleID) ID { id.role = role; return id }

// WithRotation returns a copy carrying the given rotation.
func (id ID) WithRotation(rotation KeyRotation) ID { id.rotation = rotation; return id }

// WithEncryption returns a copy flagged as an encryption key.
func (id ID) WithEncryption() ID { id.encryption = true; return id }

// WithoutEncryption returns a copy flagged as a signing key.
func (id ID) WithoutEncryption() ID { id.encryption = false; return id }

// WithNonce returns a copy stamped with the current time.
func (id ID) WithNonce() ID {
	return id.WithSpecificNonce(time.Now().UTC())
}

// WithSpecificNonce returns a copy carrying the given nonce, clamped to
// the allowed range.
func (id ID) WithSpecificNonce(t time.Time) ID {
	secs := t.Unix()
	if secs < minNonce {
		secs = minNonce
	} else if secs > maxNonce {
		secs = maxNonce
	}
	id.nonce = secs
	return id
}

// WithoutNonce returns a copy with no nonce.
func (id ID) WithoutNonce() ID { id.nonce = 0; return id }

// IsNonceInRange reports whether the nonce lies within (now-past,
// now+future). An absent nonce always fails the check.
func (id ID) IsNonceInRange(past, future time.Duration) bool {
	t, ok := id.Nonce()
	if !ok {
		return false
	}
	now := time.Now()
	return !t.Before(now.Add(-past)) && !t.After(now.Add(future))
}

// ShortID strips role, rotation, username, nonce, and the encryption
// flag, yielding the most general bare-id form. Short ids are the keys
// used to index registrations.
func (id ID) ShortID() ID {
	return id.WithRole(RoleVoter).
		WithRotation(0).
		WithoutUsername().
		WithoutNonce().
		WithoutEncryption().
		AsID()
}

// Equal compares network, subnet, and role-0 key only; username,
// nonce, role, rotation, form, and the encryption flag are ignored.
func (id ID) Equal(o ID) bool {
	return id.network == o.network && id.subnet == o.subnet && id.key.Equal(o.key)
}

// EqualWithUserinfo is Equal plus username and nonce.
func (id ID) EqualWithUserinfo(o ID) bool {
	return id.Equal(o) && id.username == o.username && id.nonce == o.nonce
}

// EqualWithRole is EqualWithUserinfo plus role and rotation.
func (id ID) EqualWithRole(o ID) bool {
	return id.EqualWithUserinfo(o) && id.role == o.role && id.rotation == o.rotation
}

// MarshalText renders the textual form, so IDs embed naturally in JSON.
func (id ID) MarshalText() ([]byte, error) {
	if id.IsZero() {
		return nil, fmt.Errorf("cannot marshal zero catalyst id")
	}
	return []byte(id.String()), nil
}

// UnmarshalText parses the textual form.
func (id *ID) UnmarshalText(b []byte) error {
	parsed, err := Parse(string(b))
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}
