package provider_test

import (
	"context"
	"crypto/ed25519"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/catalyst-forge/go-signed-doc/catid"
	"github.com/catalyst-forge/go-signed-doc/metadata"
	"github.com/catalyst-forge/go-signed-doc/provider"
	"github.com/catalyst-forge/go-signed-doc/signeddoc"
	"github.com/catalyst-forge/go-signed-doc/testing/helpers"
	"github.com/catalyst-forge/go-signed-doc/uuid"
)

var (
	proposalType = metadata.MustDocType("7808d2ba-d511-40af-84e8-c0d1625fdfdc")
	commentType  = metadata.MustDocType("b679ded3-0e7c-41ba-89f8-da62a17898ea")
)

func newDoc(t *testing.T, dt metadata.DocType, id, ver uuid.V7) *signeddoc.Document {
	t.Helper()
	m := &metadata.Metadata{}
	m.SetDocType(dt)
	m.SetID(id)
	m.SetVer(ver)
	doc, err := signeddoc.NewBuilder().WithMetadata(m).Build()
	require.NoError(t, err)
	return doc
}

func TestMemoryDocLookups(t *testing.T) {
	ctx := context.Background()
	now := time.Now()

	id := helpers.Must(uuid.V7At(now.Add(-3 * time.Hour)))
	v2 := helpers.Must(uuid.V7At(now.Add(-2 * time.Hour)))
	v3 := helpers.Must(uuid.V7At(now.Add(-time.Hour)))

	m := provider.NewMemory()
	// Insert out of version order to exercise the sorted index.
	require.NoError(t, m.AddDocument(newDoc(t, proposalType, id, v3)))
	require.NoError(t, m.AddDocument(newDoc(t, proposalType, id, id)))
	require.NoError(t, m.AddDocument(newDoc(t, proposalType, id, v2)))

	t.Run("exact", func(t *testing.T) {
		doc, err := m.GetDoc(ctx, metadata.DocumentRef{ID: id, Ver: v2})
		require.NoError(t, err)
		ver, err := doc.Ver()
		require.NoError(t, err)
		require.Zero(t, ver.Compare(v2))
	})

	t.Run("first and last", func(t *testing.T) {
		first, err := m.GetFirstDoc(ctx, id)
		require.NoError(t, err)
		ver := helpers.Must(first.Ver())
		require.Zero(t, ver.Compare(id))

		last, err := m.GetLastDoc(ctx, id)
		require.NoError(t, err)
		ver = helpers.Must(last.Ver())
		require.Zero(t, ver.Compare(v3))
	})

	t.Run("not found", func(t *testing.T) {
		other := helpers.Must(uuid.NewV7())
		_, err := m.GetFirstDoc(ctx, other)
		require.True(t, provider.IsNotFound(err))
		_, err = m.GetDoc(ctx, metadata.DocumentRef{ID: id, Ver: other})
		require.True(t, provider.IsNotFound(err))
	})

	t.Run("duplicate insert rejected", func(t *testing.T) {
		err := m.AddDocument(newDoc(t, proposalType, id, v2))
		require.ErrorContains(t, err, "already indexed")
	})

	t.Run("cancelled context", func(t *testing.T) {
		cancelled, cancel := context.WithCancel(ctx)
		cancel()
		_, err := m.GetFirstDoc(cancelled, id)
		require.ErrorIs(t, err, context.Canceled)
	})
}

func TestMemorySearch(t *testing.T) {
	ctx := context.Background()
	now := time.Now()

	propID := helpers.Must(uuid.V7At(now.Add(-4 * time.Hour)))
	commentID := helpers.Must(uuid.V7At(now.Add(-2 * time.Hour)))

	m := provider.NewMemory()
	require.NoError(t, m.AddDocument(newDoc(t, proposalType, propID, propID)))
	require.NoError(t, m.AddDocument(newDoc(t, commentType, commentID, commentID)))

	t.Run("by type", func(t *testing.T) {
		docs, err := m.SearchDocs(ctx, provider.Query{Type: provider.TypeEq(commentType)})
		require.NoError(t, err)
		require.Len(t, docs, 1)
		dt, err := docs[0].DocType()
		require.NoError(t, err)
		require.True(t, dt.Equal(commentType))
	})

	t.Run("by id range", func(t *testing.T) {
		lo := helpers.Must(uuid.V7At(now.Add(-5 * time.Hour)))
		hi := helpers.Must(uuid.V7At(now.Add(-3 * time.Hour)))
		docs, err := m.SearchDocs(ctx, provider.Query{ID: provider.UUIDRange(lo, hi)})
		require.NoError(t, err)
		require.Len(t, docs, 1)
		id, err := docs[0].ID()
		require.NoError(t, err)
		require.Zero(t, id.Compare(propID))
	})

	t.Run("by id set", func(t *testing.T) {
		docs, err := m.SearchDocs(ctx, provider.Query{ID: provider.UUIDIn(propID, commentID)})
		require.NoError(t, err)
		require.Len(t, docs, 2)
	})

	t.Run("conjunction", func(t *testing.T) {
		docs, err := m.SearchDocs(ctx, provider.Query{
			ID:   provider.UUIDEq(propID),
			Type: provider.TypeEq(commentType),
		})
		require.NoError(t, err)
		require.Empty(t, docs)
	})
}

func TestMemoryKeysAndThresholds(t *testing.T) {
	ctx := context.Background()
	pub, _, err := ed25519.GenerateKey(nil)
	require.NoError(t, err)
	kid := helpers.Must(catid.New("cardano", "", pub))

	m := provider.NewMemory()
	m.RegisterKey(kid, pub)

	t.Run("lookup ignores role and rotation", func(t *testing.T) {
		got, err := m.GetRegisteredKey(ctx, kid.WithRole(catid.RoleProposer).WithRotation(2))
		require.NoError(t, err)
		require.Equal(t, pub, got)
	})

	t.Run("unknown kid", func(t *testing.T) {
		otherPub, _, err := ed25519.GenerateKey(nil)
		require.NoError(t, err)
		other := helpers.Must(catid.New("cardano", "", otherPub))
		_, err = m.GetRegisteredKey(ctx, other)
		require.True(t, provider.IsNotFound(err))
	})

	t.Run("thresholds unset by default", func(t *testing.T) {
		_, ok := m.PastThreshold()
		require.False(t, ok)
		_, ok = m.FutureThreshold()
		require.False(t, ok)
	})

	t.Run("thresholds", func(t *testing.T) {
		m.SetPastThreshold(24 * time.Hour)
		m.SetFutureThreshold(time.Minute)
		past, ok := m.PastThreshold()
		require.True(t, ok)
		require.Equal(t, 24*time.Hour, past)
		future, ok := m.FutureThreshold()
		require.True(t, ok)
		require.Equal(t, time.Minute, future)
	})
}

// countingProvider counts pass-throughs so tests can observe cache
// hits.
type countingProvider struct {
	*provider.Memory
	docCalls int
	keyCalls int
}

func (c *countingProvider) GetDoc(ctx context.Context, ref metadata.DocumentRef) (*signeddoc.Document, error) {
	c.docCalls++
	return c.Memory.GetDoc(ctx, ref)
}

func (c *countingProvider) GetRegisteredKey(ctx context.Context, kid catid.ID) (ed25519.PublicKey, error) {
	c.keyCalls++
	return c.Memory.GetRegisteredKey(ctx, kid)
}

func TestCached(t *testing.T) {
	ctx := context.Background()
	id := helpers.Must(uuid.NewV7())
	doc := newDoc(t, proposalType, id, id)

	pub, _, err := ed25519.GenerateKey(nil)
	require.NoError(t, err)
	kid := helpers.Must(catid.New("cardano", "", pub))

	inner := &countingProvider{Memory: provider.NewMemory()}
	require.NoError(t, inner.AddDocument(doc))
	inner.RegisterKey(kid, pub)

	cached, err := provider.NewCached(inner, 8, 8)
	require.NoError(t, err)

	ref := metadata.DocumentRef{ID: id, Ver: id}
	for i := 0; i < 3; i++ {
		got, err := cached.GetDoc(ctx, ref)
		require.NoError(t, err)
		require.Equal(t, doc.Bytes(), got.Bytes())
	}
	require.Equal(t, 1, inner.docCalls)

	for i := 0; i < 3; i++ {
		got, err := cached.GetRegisteredKey(ctx, kid)
		require.NoError(t, err)
		require.Equal(t, pub, got)
	}
	require.Equal(t, 1, inner.keyCalls)

	t.Run("misses are not cached", func(t *testing.T) {
		missing := metadata.DocumentRef{ID: helpers.Must(uuid.NewV7()), Ver: helpers.Must(uuid.NewV7())}
		before := inner.docCalls
		for i := 0; i < 2; i++ {
			_, err := cached.GetDoc(ctx, missing)
			require.True(t, provider.IsNotFound(err))
		}
		require.Equal(t, before+2, inner.docCalls)
	})

	t.Run("first and last pass through", func(t *testing.T) {
		last, err := cached.GetLastDoc(ctx, id)
		require.NoError(t, err)
		require.Equal(t, doc.Bytes(), last.Bytes())
	})
}
