package uuid_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/catalyst-forge/go-signed-doc/core/cbor"
	"github.com/catalyst-forge/go-signed-doc/uuid"
)

func TestV4(t *testing.T) {
	t.Run("round trips tagged CBOR", func(t *testing.T) {
		v := uuid.NewV4()
		e := cbor.NewEncoder()
		v.EncodeCBOR(e, uuid.Tagged)

		// tag 37 head then a 16-byte string
		require.Equal(t, []byte{0xd8, 0x25, 0x50}, e.Result()[:3])

		d := cbor.NewDecoder(e.Result())
		got, err := uuid.DecodeV4(d, uuid.Tagged, "type")
		require.NoError(t, err)
		require.Equal(t, v, got)
	})

	t.Run("rejects zero UUID", func(t *testing.T) {
		_, err := uuid.V4FromBytes(make([]byte, 16))
		require.ErrorContains(t, err, "zero UUID")
	})

	t.Run("rejects wrong version", func(t *testing.T) {
		v7, err := uuid.NewV7()
		require.NoError(t, err)
		_, err = uuid.V4FromBytes(v7.Bytes())
		require.ErrorContains(t, err, "version")
	})

	t.Run("parses hyphenated string", func(t *testing.T) {
		v, err := uuid.V4FromString("7808d2ba-d511-40af-84e8-c0d1625fdfdc")
		require.NoError(t, err)
		require.Equal(t, "7808d2ba-d511-40af-84e8-c0d1625fdfdc", v.String())
	})
}

func TestV7(t *testing.T) {
	t.Run("embeds its timestamp", func(t *testing.T) {
		at := time.UnixMilli(1_700_000_000_000)
		v, err := uuid.V7At(at)
		require.NoError(t, err)
		require.Equal(t, at.UnixMilli(), v.Time().UnixMilli())
	})

	t.Run("orders by time", func(t *testing.T) {
		early, err := uuid.V7At(time.UnixMilli(1_700_000_000_000))
		require.NoError(t, err)
		late, err := uuid.V7At(time.UnixMilli(1_700_000_000_001))
		require.NoError(t, err)
		require.Negative(t, early.Compare(late))
		require.Positive(t, late.Compare(early))
		require.Zero(t, early.Compare(early))
	})

	t.Run("round trips bare CBOR", func(t *testing.T) {
		v, err := uuid.NewV7()
		require.NoError(t, err)
		e := cbor.NewEncoder()
		v.EncodeCBOR(e, uuid.Untagged)
		require.Equal(t, byte(0x50), e.Result()[0])

		d := cbor.NewDecoder(e.Result())
		got, err := uuid.DecodeV7(d, uuid.Untagged, "ver")
		require.NoError(t, err)
		require.Equal(t, v, got)
	})

	t.Run("tagged decode requires the tag", func(t *testing.T) {
		v, err := uuid.NewV7()
		require.NoError(t, err)
		e := cbor.NewEncoder()
		v.EncodeCBOR(e, uuid.Untagged)
		d := cbor.NewDecoder(e.Result())
		_, err = uuid.DecodeV7(d, uuid.Tagged, "id")
		require.ErrorContains(t, err, "expected tag")
	})

	t.Run("rejects v4 bytes", func(t *testing.T) {
		_, err := uuid.V7FromBytes(uuid.NewV4().Bytes())
		require.ErrorContains(t, err, "version")
	})
}
