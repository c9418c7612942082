package cbor_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/catalyst-forge/go-signed-doc/core/cbor"
)

func TestDecoderPrimitives(t *testing.T) {
	t.Run("unsigned integers", func(t *testing.T) {
		d := cbor.NewDecoder([]byte{0x17, 0x18, 0x18, 0x19, 0x01, 0x00})
		v, err := d.Uint64("small")
		require.NoError(t, err)
		require.Equal(t, uint64(23), v)
		v, err = d.Uint64("one byte")
		require.NoError(t, err)
		require.Equal(t, uint64(24), v)
		v, err = d.Uint64("two bytes")
		require.NoError(t, err)
		require.Equal(t, uint64(256), v)
		require.True(t, d.Done())
	})

	t.Run("non-minimal integer is rejected", func(t *testing.T) {
		// 23 encoded with a one-byte argument.
		d := cbor.NewDecoder([]byte{0x18, 0x17})
		_, err := d.Uint64("padded")
		require.ErrorContains(t, err, "non-minimal")
	})

	t.Run("negative integers", func(t *testing.T) {
		d := cbor.NewDecoder([]byte{0x20})
		v, err := d.Int64("neg")
		require.NoError(t, err)
		require.Equal(t, int64(-1), v)
	})

	t.Run("text and bytes", func(t *testing.T) {
		d := cbor.NewDecoder([]byte{0x63, 'c', 'i', 'd', 0x42, 0xde, 0xad})
		s, err := d.Text("key")
		require.NoError(t, err)
		require.Equal(t, "cid", s)
		b, err := d.Bytes("value")
		require.NoError(t, err)
		require.Equal(t, []byte{0xde, 0xad}, b)
	})

	t.Run("truncated string is a hard error", func(t *testing.T) {
		d := cbor.NewDecoder([]byte{0x45, 0x01})
		_, err := d.Bytes("short")
		require.ErrorContains(t, err, "exceeds remaining input")
	})

	t.Run("indefinite length is rejected", func(t *testing.T) {
		d := cbor.NewDecoder([]byte{0x9f, 0x01, 0xff})
		_, err := d.ArrayLen("stream")
		require.ErrorContains(t, err, "indefinite")
	})

	t.Run("hostile declared length", func(t *testing.T) {
		// Map claiming 2^32 entries with two bytes of input.
		d := cbor.NewDecoder([]byte{0xba, 0xff, 0xff, 0xff, 0xff, 0x00, 0x00})
		_, err := d.MapLen("huge")
		require.ErrorContains(t, err, "exceeds remaining input")
	})

	t.Run("location string appears in errors", func(t *testing.T) {
		d := cbor.NewDecoder([]byte{0x01})
		_, err := d.Bytes("document locator")
		require.ErrorContains(t, err, "document locator")
	})
}

func TestRawItem(t *testing.T) {
	t.Run("skips nested structure", func(t *testing.T) {
		// {1: [2, 3]} followed by a trailing byte.
		input := []byte{0xa1, 0x01, 0x82, 0x02, 0x03, 0x00}
		d := cbor.NewDecoder(input)
		raw, err := d.RawItem("map")
		require.NoError(t, err)
		require.Equal(t, input[:5], raw)
		require.Equal(t, 5, d.Position())
	})

	t.Run("skips tagged item", func(t *testing.T) {
		// 37(h'01')
		input := []byte{0xd8, 0x25, 0x41, 0x01}
		d := cbor.NewDecoder(input)
		raw, err := d.RawItem("tagged")
		require.NoError(t, err)
		require.Equal(t, input, raw)
	})
}

func TestEncoder(t *testing.T) {
	t.Run("heads are minimal", func(t *testing.T) {
		e := cbor.NewEncoder()
		e.Uint64(23)
		e.Uint64(24)
		e.Uint64(256)
		require.Equal(t, []byte{0x17, 0x18, 0x18, 0x19, 0x01, 0x00}, e.Result())
	})

	t.Run("round trips through decoder", func(t *testing.T) {
		e := cbor.NewEncoder()
		e.ArrayLen(2)
		e.Text("hi")
		e.Bytes([]byte{0xff})
		d := cbor.NewDecoder(e.Result())
		n, err := d.ArrayLen("arr")
		require.NoError(t, err)
		require.Equal(t, uint64(2), n)
		s, err := d.Text("arr[0]")
		require.NoError(t, err)
		require.Equal(t, "hi", s)
		b, err := d.Bytes("arr[1]")
		require.NoError(t, err)
		require.Equal(t, []byte{0xff}, b)
		require.NoError(t, d.Finish("arr"))
	})
}

func TestDecodeMap(t *testing.T) {
	key := func(d *cbor.Decoder) (string, error) { return d.Text("key") }
	val := func(d *cbor.Decoder, _ string) (uint64, error) { return d.Uint64("value") }

	t.Run("accepts canonical order", func(t *testing.T) {
		// {"a": 1, "b": 2}
		d := cbor.NewDecoder([]byte{0xa2, 0x61, 'a', 0x01, 0x61, 'b', 0x02})
		entries, err := cbor.DecodeMap(d, cbor.Deterministic, "m", key, val)
		require.NoError(t, err)
		require.Len(t, entries, 2)
	})

	t.Run("rejects unsorted keys when deterministic", func(t *testing.T) {
		// {"b": 2, "a": 1}
		d := cbor.NewDecoder([]byte{0xa2, 0x61, 'b', 0x02, 0x61, 'a', 0x01})
		_, err := cbor.DecodeMap(d, cbor.Deterministic, "m", key, val)
		require.ErrorContains(t, err, "canonical order")
	})

	t.Run("accepts unsorted keys when non-deterministic", func(t *testing.T) {
		d := cbor.NewDecoder([]byte{0xa2, 0x61, 'b', 0x02, 0x61, 'a', 0x01})
		entries, err := cbor.DecodeMap(d, cbor.NonDeterministic, "m", key, val)
		require.NoError(t, err)
		require.Len(t, entries, 2)
	})

	t.Run("rejects duplicate keys always", func(t *testing.T) {
		d := cbor.NewDecoder([]byte{0xa2, 0x61, 'a', 0x01, 0x61, 'a', 0x02})
		_, err := cbor.DecodeMap(d, cbor.NonDeterministic, "m", key, val)
		require.ErrorContains(t, err, "duplicate")
	})
}

func TestDecodeArray(t *testing.T) {
	item := func(d *cbor.Decoder) (uint64, error) { return d.Uint64("item") }

	t.Run("deterministic requires increasing elements", func(t *testing.T) {
		d := cbor.NewDecoder([]byte{0x83, 0x01, 0x02, 0x03})
		vs, err := cbor.DecodeArray(d, cbor.ArrayDeterministic, "a", item)
		require.NoError(t, err)
		require.Equal(t, []uint64{1, 2, 3}, vs)

		d = cbor.NewDecoder([]byte{0x83, 0x01, 0x03, 0x02})
		_, err = cbor.DecodeArray(d, cbor.ArrayDeterministic, "a", item)
		require.ErrorContains(t, err, "canonical order")
	})
}

func TestCanonicalCompare(t *testing.T) {
	// Shorter encodings sort first regardless of content.
	require.Negative(t, cbor.CanonicalCompare([]byte{0x62, 'z', 'z'}, []byte{0x63, 'a', 'a', 'a'}))
	require.Positive(t, cbor.CanonicalCompare([]byte{0x62, 'z', 'z'}, []byte{0x62, 'a', 'a'}))
	require.Zero(t, cbor.CanonicalCompare([]byte{0x01}, []byte{0x01}))
}

func TestWithBytes(t *testing.T) {
	input := []byte{0x82, 0x01, 0x02}
	d := cbor.NewDecoder(input)
	w, err := cbor.DecodeWithBytes(d, "pair", func(d *cbor.Decoder) ([]uint64, error) {
		return cbor.DecodeArray(d, cbor.NonDeterministic, "pair", func(d *cbor.Decoder) (uint64, error) {
			return d.Uint64("n")
		})
	})
	require.NoError(t, err)
	require.Equal(t, []uint64{1, 2}, w.Value)
	require.Equal(t, input, w.Raw)

	e := cbor.NewEncoder()
	w.EncodeTo(e)
	require.Equal(t, input, e.Result())
}

func TestTagged24(t *testing.T) {
	e := cbor.NewEncoder()
	cbor.EncodeTagged24(e, []byte{0x05})
	require.Equal(t, []byte{0xd8, 0x18, 0x41, 0x05}, e.Result())

	d := cbor.NewDecoder(e.Result())
	inner, err := cbor.DecodeTagged24(d, "wrapped")
	require.NoError(t, err)
	require.Equal(t, []byte{0x05}, inner)
}

func TestWholeValueCodec(t *testing.T) {
	t.Run("deterministic marshal", func(t *testing.T) {
		b, err := cbor.Marshal(map[string]uint64{"b": 2, "a": 1})
		require.NoError(t, err)
		// Keys sorted bytewise, minimal heads.
		require.Equal(t, []byte{0xa2, 0x61, 0x61, 0x01, 0x61, 0x62, 0x02}, b)

		var m map[string]uint64
		require.NoError(t, cbor.Unmarshal(b, &m))
		require.Equal(t, map[string]uint64{"a": 1, "b": 2}, m)
	})

	t.Run("rejects duplicate map keys", func(t *testing.T) {
		var v any
		err := cbor.Unmarshal([]byte{0xa2, 0x01, 0x02, 0x01, 0x03}, &v)
		require.Error(t, err)
	})

	t.Run("rejects indefinite lengths", func(t *testing.T) {
		var v any
		err := cbor.Unmarshal([]byte{0x9f, 0x01, 0xff}, &v)
		require.Error(t, err)
	})

	t.Run("rejects trailing bytes", func(t *testing.T) {
		var v any
		err := cbor.Unmarshal([]byte{0x01, 0x02}, &v)
		require.Error(t, err)
	})
}
