package metadata_test

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/catalyst-forge/go-signed-doc/content"
	"github.com/catalyst-forge/go-signed-doc/core/cbor"
	"github.com/catalyst-forge/go-signed-doc/core/report"
	"github.com/catalyst-forge/go-signed-doc/metadata"
	"github.com/catalyst-forge/go-signed-doc/uuid"
)

var proposalType = metadata.MustDocType("7808d2ba-d511-40af-84e8-c0d1625fdfdc")

func newV7(t *testing.T) uuid.V7 {
	t.Helper()
	v, err := uuid.NewV7()
	require.NoError(t, err)
	return v
}

func fullMetadata(t *testing.T) *metadata.Metadata {
	t.Helper()
	id := newV7(t)
	m := &metadata.Metadata{}
	m.SetDocType(proposalType)
	m.SetID(id)
	m.SetVer(id)
	m.SetContentType(content.TypeJSON)
	m.SetContentEncoding(content.Brotli)
	refID, err := uuid.V7At(time.Now().Add(-2 * time.Hour))
	require.NoError(t, err)
	refVer, err := uuid.V7At(time.Now().Add(-time.Hour))
	require.NoError(t, err)
	m.SetRef(metadata.DocumentRefs{{ID: refID, Ver: refVer}})
	m.SetSection(metadata.Section("$.payload"))
	m.SetRevocations(metadata.Revoke())
	return m
}

func TestEncodeDecode(t *testing.T) {
	t.Run("round trips", func(t *testing.T) {
		m := fullMetadata(t)
		b, err := m.Bytes()
		require.NoError(t, err)

		rep := report.New("metadata")
		got, err := metadata.Decode(b, rep)
		require.NoError(t, err)
		require.False(t, rep.IsProblematic(), rep.String())

		wantID, err := m.ID()
		require.NoError(t, err)
		gotID, err := got.ID()
		require.NoError(t, err)
		require.Equal(t, wantID, gotID)

		wantType, err := m.DocType()
		require.NoError(t, err)
		gotType, err := got.DocType()
		require.NoError(t, err)
		require.True(t, wantType.Equal(gotType))

		ct, err := got.ContentType()
		require.NoError(t, err)
		require.Equal(t, content.TypeJSON, ct)

		rev, err := got.Revocations()
		require.NoError(t, err)
		require.False(t, rev.IsAll())
		require.Empty(t, rev.Versions())

		b2, err := got.Bytes()
		require.NoError(t, err)
		require.Equal(t, b, b2)
	})

	t.Run("keys are emitted in canonical order", func(t *testing.T) {
		b, err := fullMetadata(t).Bytes()
		require.NoError(t, err)

		d := cbor.NewDecoder(b)
		n, err := d.MapLen("metadata")
		require.NoError(t, err)
		var prev []byte
		for i := uint64(0); i < n; i++ {
			key, err := d.RawItem("key")
			require.NoError(t, err)
			if prev != nil {
				require.Negative(t, cbor.CanonicalCompare(prev, key))
			}
			prev = key
			_, err = d.RawItem("value")
			require.NoError(t, err)
		}
	})

	t.Run("missing fields yield dedicated errors", func(t *testing.T) {
		m := &metadata.Metadata{}
		_, err := m.ID()
		require.True(t, metadata.IsMissing(err))
		var missing *metadata.MissingFieldError
		require.ErrorAs(t, err, &missing)
		require.Equal(t, "id", missing.Field)
	})
}

func TestDecodeProblems(t *testing.T) {
	id := newV7(t)

	t.Run("non-canonical key order is reported not fatal", func(t *testing.T) {
		e := cbor.NewEncoder()
		e.MapLen(2)
		e.Text("ver")
		id.EncodeCBOR(e, uuid.Tagged)
		e.Text("id")
		id.EncodeCBOR(e, uuid.Tagged)

		rep := report.New("metadata")
		m, err := metadata.Decode(e.Result(), rep)
		require.NoError(t, err)
		require.True(t, rep.IsProblematic())

		gotID, err := m.ID()
		require.NoError(t, err)
		require.Equal(t, id, gotID)
	})

	t.Run("unknown key is reported not fatal", func(t *testing.T) {
		e := cbor.NewEncoder()
		e.MapLen(1)
		e.Text("banana")
		e.Uint64(1)

		rep := report.New("metadata")
		_, err := metadata.Decode(e.Result(), rep)
		require.NoError(t, err)
		require.Len(t, rep.Entries(), 1)
		require.Equal(t, report.UnknownField, rep.Entries()[0].Kind)
	})

	t.Run("duplicate key is reported not fatal", func(t *testing.T) {
		e := cbor.NewEncoder()
		e.MapLen(2)
		e.Text("id")
		id.EncodeCBOR(e, uuid.Tagged)
		e.Text("id")
		id.EncodeCBOR(e, uuid.Tagged)

		rep := report.New("metadata")
		_, err := metadata.Decode(e.Result(), rep)
		require.NoError(t, err)
		var kinds []report.Kind
		for _, en := range rep.Entries() {
			kinds = append(kinds, en.Kind)
		}
		require.Contains(t, kinds, report.DuplicateField)
	})

	t.Run("ver preceding id is reported", func(t *testing.T) {
		early, err := uuid.V7At(time.Now().Add(-time.Hour))
		require.NoError(t, err)
		late, err := uuid.V7At(time.Now())
		require.NoError(t, err)

		e := cbor.NewEncoder()
		e.MapLen(2)
		e.Text("id")
		late.EncodeCBOR(e, uuid.Tagged)
		e.Text("ver")
		early.EncodeCBOR(e, uuid.Tagged)

		rep := report.New("metadata")
		_, err = metadata.Decode(e.Result(), rep)
		require.NoError(t, err)
		require.True(t, rep.IsProblematic())
	})

	t.Run("reference checks report in wire-field order", func(t *testing.T) {
		early, err := uuid.V7At(time.Now().Add(-time.Hour))
		require.NoError(t, err)
		late, err := uuid.V7At(time.Now())
		require.NoError(t, err)
		backwards := metadata.DocumentRefs{{ID: late, Ver: early}}

		e := cbor.NewEncoder()
		e.MapLen(2)
		e.Text("ref")
		backwards.EncodeCBOR(e)
		e.Text("template")
		backwards.EncodeCBOR(e)

		for i := 0; i < 5; i++ {
			rep := report.New("metadata")
			_, err := metadata.Decode(e.Result(), rep)
			require.NoError(t, err)
			require.Len(t, rep.Entries(), 2)
			require.Equal(t, "ref", rep.Entries()[0].Field)
			require.Equal(t, "template", rep.Entries()[1].Field)
		}
	})

	t.Run("revocations false is a hard error", func(t *testing.T) {
		e := cbor.NewEncoder()
		e.MapLen(1)
		e.Text("revocations")
		e.Bool(false)

		rep := report.New("metadata")
		_, err := metadata.Decode(e.Result(), rep)
		require.ErrorContains(t, err, "not a valid revocation set")
	})

	t.Run("revocations true round trips", func(t *testing.T) {
		m := &metadata.Metadata{}
		m.SetRevocations(metadata.RevokeAll())
		b, err := m.Bytes()
		require.NoError(t, err)

		rep := report.New("metadata")
		got, err := metadata.Decode(b, rep)
		require.NoError(t, err)
		rev, err := got.Revocations()
		require.NoError(t, err)
		require.True(t, rev.IsAll())
	})

	t.Run("wrong uuid version in id is a hard error", func(t *testing.T) {
		e := cbor.NewEncoder()
		e.MapLen(1)
		e.Text("id")
		uuid.NewV4().EncodeCBOR(e, uuid.Tagged)

		rep := report.New("metadata")
		_, err := metadata.Decode(e.Result(), rep)
		require.ErrorContains(t, err, "version")
	})
}

func TestDeprecatedRefs(t *testing.T) {
	id := newV7(t)
	ver := newV7(t)

	t.Run("legacy pair decodes and flags", func(t *testing.T) {
		e := cbor.NewEncoder()
		e.MapLen(1)
		e.Text("ref")
		e.ArrayLen(2)
		id.EncodeCBOR(e, uuid.Tagged)
		ver.EncodeCBOR(e, uuid.Tagged)

		rep := report.New("metadata")
		m, err := metadata.Decode(e.Result(), rep)
		require.NoError(t, err)
		require.True(t, m.IsDeprecated())

		refs, err := m.Ref()
		require.NoError(t, err)
		require.Len(t, refs, 1)
		require.Equal(t, id, refs[0].ID)
		require.Equal(t, ver, refs[0].Ver)
		require.True(t, refs[0].Locator.IsEmpty())
	})

	t.Run("current list form is not deprecated", func(t *testing.T) {
		m := &metadata.Metadata{}
		m.SetRef(metadata.DocumentRefs{{ID: id, Ver: ver}})
		b, err := m.Bytes()
		require.NoError(t, err)

		rep := report.New("metadata")
		got, err := metadata.Decode(b, rep)
		require.NoError(t, err)
		require.False(t, got.IsDeprecated())
	})
}

func TestMetadataJSON(t *testing.T) {
	m := fullMetadata(t)
	b, err := json.Marshal(m)
	require.NoError(t, err)

	var got metadata.Metadata
	require.NoError(t, json.Unmarshal(b, &got))

	wantID, err := m.ID()
	require.NoError(t, err)
	gotID, err := got.ID()
	require.NoError(t, err)
	require.Equal(t, wantID, gotID)

	wantRefs, err := m.Ref()
	require.NoError(t, err)
	gotRefs, err := got.Ref()
	require.NoError(t, err)
	require.True(t, wantRefs.Equal(gotRefs))

	enc, err := got.ContentEncoding()
	require.NoError(t, err)
	require.Equal(t, content.Brotli, enc)
}
