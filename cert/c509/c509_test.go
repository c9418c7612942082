package c509_test

import (
	"crypto/ed25519"
	"encoding/hex"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/catalyst-forge/go-signed-doc/cert/c509"
	"github.com/catalyst-forge/go-signed-doc/core/cbor"
)

func encode(t *testing.T, fn func(e *cbor.Encoder)) []byte {
	t.Helper()
	e := cbor.NewEncoder()
	fn(e)
	return e.Result()
}

func TestOID(t *testing.T) {
	// RFC 9090 §3.1: the SHA-256 OID unwraps to 9 content octets.
	oid, err := c509.ParseOID("2.16.840.1.101.3.4.2.1")
	require.NoError(t, err)
	got := encode(t, oid.EncodeCBOR)
	require.Equal(t, "49608648016503040201", hex.EncodeToString(got))

	decoded, err := c509.DecodeOID(cbor.NewDecoder(got), "test")
	require.NoError(t, err)
	require.True(t, decoded.Equal(oid))
	require.Equal(t, "2.16.840.1.101.3.4.2.1", decoded.String())

	t.Run("rejects malformed strings", func(t *testing.T) {
		for _, s := range []string{"", "1", "1..2", "1.2.x", "1.2."} {
			_, err := c509.ParseOID(s)
			require.Error(t, err, s)
		}
	})
}

func TestBigUint(t *testing.T) {
	// Serial numbers from draft-ietf-cose-cbor-encoded-cert appendix A.
	cases := []struct {
		value uint64
		want  string
	}{
		{128_269, "4301f50d"},
		{9_112_578_475_118_446_130, "487e7661d7b54e4632"},
		{0, "40"},
	}
	for _, c := range cases {
		got := encode(t, c509.BigUint(c.value).EncodeCBOR)
		require.Equal(t, c.want, hex.EncodeToString(got))

		decoded, err := c509.DecodeBigUint(cbor.NewDecoder(got), "test")
		require.NoError(t, err)
		require.Equal(t, c509.BigUint(c.value), decoded)
	}

	t.Run("rejects leading zero", func(t *testing.T) {
		raw := encode(t, func(e *cbor.Encoder) { e.Bytes([]byte{0, 1}) })
		_, err := c509.DecodeBigUint(cbor.NewDecoder(raw), "test")
		require.ErrorContains(t, err, "leading zero")
	})

	t.Run("rejects oversized magnitude", func(t *testing.T) {
		raw := encode(t, func(e *cbor.Encoder) { e.Bytes(make([]byte, 9)) })
		_, err := c509.DecodeBigUint(cbor.NewDecoder(raw), "test")
		require.ErrorContains(t, err, "exceeds 8 bytes")
	})
}

func TestTime(t *testing.T) {
	// Jan 1 00:00:00 2023 GMT.
	got := encode(t, c509.Time(1_672_531_200).EncodeCBOR)
	require.Equal(t, "1a63b0cd00", hex.EncodeToString(got))

	t.Run("no expiration is null", func(t *testing.T) {
		got := encode(t, c509.Time(c509.NoExpiration).EncodeCBOR)
		require.Equal(t, "f6", hex.EncodeToString(got))

		decoded, err := c509.DecodeTime(cbor.NewDecoder(got), "test")
		require.NoError(t, err)
		require.True(t, decoded.IsNoExpiration())
	})

	t.Run("rejects other types", func(t *testing.T) {
		raw := encode(t, func(e *cbor.Encoder) { e.Text("soon") })
		_, err := c509.DecodeTime(cbor.NewDecoder(raw), "test")
		require.ErrorContains(t, err, "expected unsigned integer or null")
	})
}

func TestAlgorithmIdentifier(t *testing.T) {
	ed25519OID := c509.MustOID("1.3.101.112")

	t.Run("bare oid", func(t *testing.T) {
		alg := c509.AlgorithmIdentifier{OID: ed25519OID}
		raw := encode(t, alg.EncodeCBOR)

		decoded, err := c509.DecodeAlgorithmIdentifier(cbor.NewDecoder(raw), "test")
		require.NoError(t, err)
		require.True(t, decoded.OID.Equal(ed25519OID))
		require.Nil(t, decoded.Params)
	})

	t.Run("with parameters", func(t *testing.T) {
		alg := c509.AlgorithmIdentifier{OID: ed25519OID, Params: []byte("prehash")}
		raw := encode(t, alg.EncodeCBOR)

		decoded, err := c509.DecodeAlgorithmIdentifier(cbor.NewDecoder(raw), "test")
		require.NoError(t, err)
		require.True(t, decoded.OID.Equal(ed25519OID))
		require.Equal(t, []byte("prehash"), decoded.Params)
	})

	t.Run("rejects wrong arity", func(t *testing.T) {
		raw := encode(t, func(e *cbor.Encoder) {
			e.ArrayLen(3)
			e.Bytes([]byte{0x2b, 0x65, 0x70})
			e.Bytes(nil)
			e.Bytes(nil)
		})
		_, err := c509.DecodeAlgorithmIdentifier(cbor.NewDecoder(raw), "test")
		require.ErrorContains(t, err, "expected 2 elements")
	})
}

func TestCertificateRoundTrip(t *testing.T) {
	pub, priv, err := ed25519.GenerateKey(nil)
	require.NoError(t, err)

	tbs := c509.TBSCertificate{
		CertificateType:     c509.TypeNatural,
		SerialNumber:        128_269,
		IssuerSigAlgorithm:  c509.AlgorithmIdentifier{OID: c509.MustOID("1.3.101.112")},
		Issuer:              "Catalyst Root",
		NotBefore:           1_672_531_200,
		NotAfter:            c509.NoExpiration,
		Subject:             "Catalyst Voter",
		SubjectKeyAlgorithm: c509.AlgorithmIdentifier{OID: c509.MustOID("1.3.101.112")},
		SubjectPublicKey:    pub,
	}
	cert := c509.Certificate{
		TBS:       tbs,
		Signature: ed25519.Sign(priv, tbs.Bytes()),
	}

	decoded, err := c509.Decode(cert.Bytes())
	require.NoError(t, err)
	require.Equal(t, cert.TBS.SerialNumber, decoded.TBS.SerialNumber)
	require.Equal(t, cert.TBS.Issuer, decoded.TBS.Issuer)
	require.True(t, decoded.TBS.NotAfter.IsNoExpiration())
	require.Equal(t, []byte(pub), decoded.TBS.SubjectPublicKey)
	require.True(t, ed25519.Verify(pub, decoded.TBS.Bytes(), decoded.Signature))
	require.Equal(t, cert.Bytes(), decoded.Bytes())

	t.Run("unsigned encodes signature as null", func(t *testing.T) {
		unsigned := c509.Certificate{TBS: tbs}
		decoded, err := c509.Decode(unsigned.Bytes())
		require.NoError(t, err)
		require.Nil(t, decoded.Signature)
	})

	t.Run("rejects trailing bytes", func(t *testing.T) {
		_, err := c509.Decode(append(cert.Bytes(), 0x00))
		require.Error(t, err)
	})
}
