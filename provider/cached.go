package provider

import (
	"context"
	"crypto/ed25519"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/pkg/errors"

	"github.com/catalyst-forge/go-signed-doc/catid"
	"github.com/catalyst-forge/go-signed-doc/metadata"
	"github.com/catalyst-forge/go-signed-doc/signeddoc"
	"github.com/catalyst-forge/go-signed-doc/uuid"
)

// Cached is a read-through LRU wrapper over another Provider. Exact
// (id, ver) lookups and key lookups are cached; first/last and search
// lookups always pass through, since a new version arriving in the
// backing store would make cached answers stale.
type Cached struct {
	inner Provider
	docs  *lru.Cache[string, *signeddoc.Document]
	keys  *lru.Cache[string, ed25519.PublicKey]
}

// NewCached wraps a provider with caches of the given sizes.
func NewCached(inner Provider, docCap, keyCap int) (*Cached, error) {
	docs, err := lru.New[string, *signeddoc.Document](docCap)
	if err != nil {
		return nil, errors.Wrap(err, "creating document cache")
	}
	keys, err := lru.New[string, ed25519.PublicKey](keyCap)
	if err != nil {
		return nil, errors.Wrap(err, "creating key cache")
	}
	return &Cached{inner: inner, docs: docs, keys: keys}, nil
}

func (c *Cached) GetDoc(ctx context.Context, ref metadata.DocumentRef) (*signeddoc.Document, error) {
	key := docKey(ref.ID, ref.Ver)
	if doc, ok := c.docs.Get(key); ok {
		return doc, nil
	}
	doc, err := c.inner.GetDoc(ctx, ref)
	if err != nil {
		return nil, err
	}
	c.docs.Add(key, doc)
	return doc, nil
}

func (c *Cached) GetFirstDoc(ctx context.Context, id uuid.V7) (*signeddoc.Document, error) {
	return c.inner.GetFirstDoc(ctx, id)
}

func (c *Cached) GetLastDoc(ctx context.Context, id uuid.V7) (*signeddoc.Document, error) {
	return c.inner.GetLastDoc(ctx, id)
}

func (c *Cached) SearchDocs(ctx context.Context, q Query) ([]*signeddoc.Document, error) {
	return c.inner.SearchDocs(ctx, q)
}

func (c *Cached) GetRegisteredKey(ctx context.Context, kid catid.ID) (ed25519.PublicKey, error) {
	key := kid.ShortID().String()
	if pub, ok := c.keys.Get(key); ok {
		return pub, nil
	}
	pub, err := c.inner.GetRegisteredKey(ctx, kid)
	if err != nil {
		return nil, err
	}
	c.keys.Add(key, pub)
	return pub, nil
}

func (c *Cached) PastThreshold() (time.Duration, bool)   { return c.inner.PastThreshold() }
func (c *Cached) FutureThreshold() (time.Duration, bool) { return c.inner.FutureThreshold() }
