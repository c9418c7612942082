package docspec_test

import (
	"context"
	"crypto/ed25519"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/catalyst-forge/go-signed-doc/catid"
	"github.com/catalyst-forge/go-signed-doc/content"
	"github.com/catalyst-forge/go-signed-doc/docspec"
	"github.com/catalyst-forge/go-signed-doc/metadata"
	"github.com/catalyst-forge/go-signed-doc/provider"
	"github.com/catalyst-forge/go-signed-doc/signeddoc"
	"github.com/catalyst-forge/go-signed-doc/testing/helpers"
	"github.com/catalyst-forge/go-signed-doc/uuid"
)

func TestLoad(t *testing.T) {
	spec, err := docspec.Load()
	require.NoError(t, err)
	require.NotEmpty(t, spec.Docs)

	t.Run("constants match the registry", func(t *testing.T) {
		for name, want := range map[string]metadata.DocType{
			"Proposal":                       docspec.TypeProposal,
			"Proposal Form Template":         docspec.TypeProposalFormTemplate,
			"Proposal Comment":               docspec.TypeProposalComment,
			"Proposal Comment Form Template": docspec.TypeProposalCommentFormTemplate,
			"Proposal Submission Action":     docspec.TypeProposalSubmissionAction,
			"Brand Parameters":               docspec.TypeBrandParameters,
			"Campaign Parameters":            docspec.TypeCampaignParameters,
			"Category Parameters":            docspec.TypeCategoryParameters,
		} {
			doc, ok := spec.Docs[name]
			require.True(t, ok, name)
			dt, err := doc.DocType()
			require.NoError(t, err)
			require.True(t, dt.Equal(want), name)
		}
	})

	t.Run("referenced types resolve", func(t *testing.T) {
		for name, doc := range spec.Docs {
			for _, fs := range []*docspec.FieldSpec{
				doc.Metadata.Ref, doc.Metadata.Template,
				doc.Metadata.Reply, doc.Metadata.Parameters,
			} {
				if fs == nil {
					continue
				}
				for _, ref := range fs.Type {
					_, ok := spec.Docs[ref]
					require.True(t, ok, "%s references %s", name, ref)
				}
			}
		}
	})
}

func TestNewValidator(t *testing.T) {
	spec, err := docspec.Load()
	require.NoError(t, err)
	v, err := docspec.NewValidator(spec)
	require.NoError(t, err)

	for _, dt := range []metadata.DocType{
		docspec.TypeProposal,
		docspec.TypeProposalComment,
		docspec.TypeBrandParameters,
	} {
		require.True(t, v.KnownType(dt), dt.String())
	}
}

type signer struct {
	kid  catid.ID
	priv ed25519.PrivateKey
	pub  ed25519.PublicKey
}

func newSigner(t *testing.T) signer {
	t.Helper()
	pub, priv, err := ed25519.GenerateKey(nil)
	require.NoError(t, err)
	id := helpers.Must(catid.New("cardano", "", pub))
	return signer{kid: id, priv: priv, pub: pub}
}

func buildSigned(t *testing.T, m *metadata.Metadata, payload []byte, s signer) *signeddoc.Document {
	t.Helper()
	doc, err := signeddoc.NewBuilder().
		WithMetadata(m).
		WithContent(payload).
		AddSignature(signeddoc.Ed25519Signer(s.priv), s.kid).
		Build()
	require.NoError(t, err)
	return doc
}

func TestProposalEndToEnd(t *testing.T) {
	ctx := context.Background()
	now := time.Now()

	spec, err := docspec.Load()
	require.NoError(t, err)
	v, err := docspec.NewValidator(spec)
	require.NoError(t, err)

	admin := newSigner(t)
	admin.kid = admin.kid.AsAdmin()
	proposer := newSigner(t)
	proposer.kid = proposer.kid.WithRole(catid.RoleProposer)

	store := provider.NewMemory()
	store.RegisterKey(admin.kid, admin.pub)
	store.RegisterKey(proposer.kid, proposer.pub)

	brandID := helpers.Must(uuid.V7At(now.Add(-4 * time.Hour)))
	brandMeta := &metadata.Metadata{}
	brandMeta.SetDocType(docspec.TypeBrandParameters)
	brandMeta.SetID(brandID)
	brandMeta.SetVer(brandID)
	brandMeta.SetContentType(content.TypeJSON)
	brand := buildSigned(t, brandMeta, []byte(`{"name": "catalyst"}`), admin)
	require.NoError(t, store.AddDocument(brand))

	tmplID := helpers.Must(uuid.V7At(now.Add(-3 * time.Hour)))
	tmplMeta := &metadata.Metadata{}
	tmplMeta.SetDocType(docspec.TypeProposalFormTemplate)
	tmplMeta.SetID(tmplID)
	tmplMeta.SetVer(tmplID)
	tmplMeta.SetContentType(content.TypeSchemaJSON)
	tmplMeta.SetParameters(metadata.DocumentRefs{{ID: brandID, Ver: brandID}})
	tmpl := buildSigned(t, tmplMeta, []byte(`{"type": "object"}`), admin)
	require.NoError(t, store.AddDocument(tmpl))

	propID := helpers.Must(uuid.V7At(now.Add(-time.Hour)))
	propMeta := func() *metadata.Metadata {
		m := &metadata.Metadata{}
		m.SetDocType(docspec.TypeProposal)
		m.SetID(propID)
		m.SetVer(propID)
		m.SetContentType(content.TypeJSON)
		m.SetTemplate(metadata.DocumentRefs{{ID: tmplID, Ver: tmplID}})
		m.SetParameters(metadata.DocumentRefs{{ID: brandID, Ver: brandID}})
		return m
	}

	t.Run("valid proposal", func(t *testing.T) {
		doc := buildSigned(t, propMeta(), []byte(`{"title": "my proposal"}`), proposer)
		valid, err := v.Validate(ctx, doc, store)
		require.NoError(t, err)
		require.True(t, valid, doc.Report().String())
	})

	t.Run("wrong signer role", func(t *testing.T) {
		voter := newSigner(t)
		store.RegisterKey(voter.kid, voter.pub)
		doc := buildSigned(t, propMeta(), []byte(`{"title": "my proposal"}`), voter)
		valid, err := v.Validate(ctx, doc, store)
		require.NoError(t, err)
		require.False(t, valid)
	})

	t.Run("excluded field present", func(t *testing.T) {
		m := propMeta()
		m.SetRef(metadata.DocumentRefs{{ID: brandID, Ver: brandID}})
		doc := buildSigned(t, m, []byte(`{"title": "my proposal"}`), proposer)
		valid, err := v.Validate(ctx, doc, store)
		require.NoError(t, err)
		require.False(t, valid)
	})

	t.Run("missing template", func(t *testing.T) {
		m := propMeta()
		m.SetTemplate(nil)
		doc := buildSigned(t, m, []byte(`{"title": "my proposal"}`), proposer)
		valid, err := v.Validate(ctx, doc, store)
		require.NoError(t, err)
		require.False(t, valid)
	})

	t.Run("parameters doc needs admin signer", func(t *testing.T) {
		otherID := helpers.Must(uuid.V7At(now.Add(-30 * time.Minute)))
		m := &metadata.Metadata{}
		m.SetDocType(docspec.TypeBrandParameters)
		m.SetID(otherID)
		m.SetVer(otherID)
		m.SetContentType(content.TypeJSON)
		doc := buildSigned(t, m, []byte(`{"name": "rogue"}`), proposer)
		valid, err := v.Validate(ctx, doc, store)
		require.NoError(t, err)
		require.False(t, valid)
	})
}
