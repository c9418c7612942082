// Package provider defines the lookup surface validation rules use to
// reach documents and registered keys the validator cannot compute
// locally. Implementations back onto any store; Memory is the
// in-memory implementation used throughout the tests, and Cached is a
// read-through LRU wrapper for any other implementation.
package provider

import (
	"context"
	"crypto/ed25519"
	"time"

	"github.com/pkg/errors"

	"github.com/catalyst-forge/go-signed-doc/catid"
	"github.com/catalyst-forge/go-signed-doc/metadata"
	"github.com/catalyst-forge/go-signed-doc/signeddoc"
	"github.com/catalyst-forge/go-signed-doc/uuid"
)

// ErrNotFound is returned by document lookups that match nothing.
var ErrNotFound = errors.New("document not found")

// ErrKeyNotFound is returned when a kid has no registered public key.
var ErrKeyNotFound = errors.New("no registered key")

// Provider abstracts document and key lookups. Methods must be safe
// for concurrent use; validation of distinct documents may overlap.
type Provider interface {
	// GetDoc fetches the exact document a reference names.
	GetDoc(ctx context.Context, ref metadata.DocumentRef) (*signeddoc.Document, error)

	// GetFirstDoc fetches the lowest known version of an id.
	GetFirstDoc(ctx context.Context, id uuid.V7) (*signeddoc.Document, error)

	// GetLastDoc fetches the highest known version of an id.
	GetLastDoc(ctx context.Context, id uuid.V7) (*signeddoc.Document, error)

	// SearchDocs returns every known document matching the query.
	SearchDocs(ctx context.Context, q Query) ([]*signeddoc.Document, error)

	// GetRegisteredKey resolves a kid to its Ed25519 public key.
	GetRegisteredKey(ctx context.Context, kid catid.ID) (ed25519.PublicKey, error)

	// PastThreshold bounds how far in the past a document id may lie.
	// The second return is false when the direction is unbounded.
	PastThreshold() (time.Duration, bool)

	// FutureThreshold bounds how far in the future a document id may
	// lie. The second return is false when the direction is unbounded.
	FutureThreshold() (time.Duration, bool)
}

// IsNotFound reports whether err means the lookup matched nothing,
// as opposed to the lookup itself failing.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound) || errors.Is(err, ErrKeyNotFound)
}
