package provider

import (
	"context"
	"crypto/ed25519"
	"sync"
	"time"

	"github.com/pkg/errors"

	"github.com/catalyst-forge/go-signed-doc/catid"
	"github.com/catalyst-forge/go-signed-doc/metadata"
	"github.com/catalyst-forge/go-signed-doc/signeddoc"
	"github.com/catalyst-forge/go-signed-doc/uuid"
)

// Memory is an in-memory Provider. It indexes documents by (id, ver)
// and registered keys by the short form of the kid, and is safe for
// concurrent use.
type Memory struct {
	mu   sync.RWMutex
	docs map[string]*signeddoc.Document   // id/ver
	byID map[string][]*signeddoc.Document // ascending ver
	keys map[string]ed25519.PublicKey     // short kid

	past      time.Duration
	hasPast   bool
	future    time.Duration
	hasFuture bool
}

// NewMemory returns an empty provider with no id-timestamp bounds.
func NewMemory() *Memory {
	return &Memory{
		docs: map[string]*signeddoc.Document{},
		byID: map[string][]*signeddoc.Document{},
		keys: map[string]ed25519.PublicKey{},
	}
}

func docKey(id, ver uuid.V7) string { return id.String() + "/" + ver.String() }

// AddDocument indexes a document under its id and ver.
func (m *Memory) AddDocument(doc *signeddoc.Document) error {
	id, err := doc.ID()
	if err != nil {
		return errors.Wrap(err, "indexing document")
	}
	ver, err := doc.Ver()
	if err != nil {
		return errors.Wrap(err, "indexing document")
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	key := docKey(id, ver)
	if _, ok := m.docs[key]; ok {
		return errors.Errorf("document %s already indexed", key)
	}
	m.docs[key] = doc

	vers := m.byID[id.String()]
	i := len(vers)
	for i > 0 {
		prev, err := vers[i-1].Ver()
		if err != nil || prev.Compare(ver) <= 0 {
			break
		}
		i--
	}
	vers = append(vers, nil)
	copy(vers[i+1:], vers[i:])
	vers[i] = doc
	m.byID[id.String()] = vers
	return nil
}

// RegisterKey associates a kid with its Ed25519 public key. Later
// registrations for the same identity overwrite earlier ones.
func (m *Memory) RegisterKey(kid catid.ID, pub ed25519.PublicKey) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.keys[kid.ShortID().String()] = pub
}

// SetPastThreshold bounds document ids to at most d in the past.
func (m *Memory) SetPastThreshold(d time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.past, m.hasPast = d, true
}

// SetFutureThreshold bounds document ids to at most d in the future.
func (m *Memory) SetFutureThreshold(d time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.future, m.hasFuture = d, true
}

func (m *Memory) GetDoc(ctx context.Context, ref metadata.DocumentRef) (*signeddoc.Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	doc, ok := m.docs[docKey(ref.ID, ref.Ver)]
	if !ok {
		return nil, errors.Wrapf(ErrNotFound, "%s", docKey(ref.ID, ref.Ver))
	}
	return doc, nil
}

func (m *Memory) GetFirstDoc(ctx context.Context, id uuid.V7) (*signeddoc.Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	vers := m.byID[id.String()]
	if len(vers) == 0 {
		return nil, errors.Wrapf(ErrNotFound, "%s", id)
	}
	return vers[0], nil
}

func (m *Memory) GetLastDoc(ctx context.Context, id uuid.V7) (*signeddoc.Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	vers := m.byID[id.String()]
	if len(vers) == 0 {
		return nil, errors.Wrapf(ErrNotFound, "%s", id)
	}
	return vers[len(vers)-1], nil
}

func (m *Memory) SearchDocs(ctx context.Context, q Query) ([]*signeddoc.Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*signeddoc.Document
	for _, vers := range m.byID {
		for _, doc := range vers {
			if q.Matches(doc) {
				out = append(out, doc)
			}
		}
	}
	return out, nil
}

func (m *Memory) GetRegisteredKey(ctx context.Context, kid catid.ID) (ed25519.PublicKey, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	pub, ok := m.keys[kid.ShortID().String()]
	if !ok {
		return nil, errors.Wrapf(ErrKeyNotFound, "%s", kid.ShortID())
	}
	return pub, nil
}

func (m *Memory) PastThreshold() (time.Duration, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.past, m.hasPast
}

func (m *Memory) FutureThreshold() (time.Duration, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.future, m.hasFuture
}
