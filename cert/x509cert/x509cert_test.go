package x509cert_test

import (
	"crypto/ed25519"
	"crypto/rand"
	"crypto/x509"
	"crypto/x509/pkix"
	"math/big"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/catalyst-forge/go-signed-doc/cert/x509cert"
	"github.com/catalyst-forge/go-signed-doc/core/cbor"
)

func selfSignedDER(t *testing.T) []byte {
	t.Helper()
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	require.NoError(t, err)
	tmpl := &x509.Certificate{
		SerialNumber: big.NewInt(128269),
		Subject:      pkix.Name{CommonName: "Catalyst Voter"},
		NotBefore:    time.Unix(1672531200, 0),
		NotAfter:     time.Unix(1704067200, 0),
	}
	der, err := x509.CreateCertificate(rand.Reader, tmpl, tmpl, pub, priv)
	require.NoError(t, err)
	return der
}

func TestRoundTrip(t *testing.T) {
	der := selfSignedDER(t)
	cert, err := x509cert.FromDER(der)
	require.NoError(t, err)
	require.Equal(t, der, cert.DER())
	require.Equal(t, "Catalyst Voter", cert.X509().Subject.CommonName)

	e := cbor.NewEncoder()
	cert.EncodeCBOR(e)
	raw := e.Result()

	decoded, err := x509cert.Decode(cbor.NewDecoder(raw), "certificate")
	require.NoError(t, err)
	require.Equal(t, der, decoded.DER())
	require.Equal(t, cert.X509().SerialNumber, decoded.X509().SerialNumber)
}

func TestRejectsInvalidDER(t *testing.T) {
	_, err := x509cert.FromDER([]byte{0x30, 0x03, 0x01, 0x01, 0xff})
	require.ErrorContains(t, err, "parsing DER certificate")

	e := cbor.NewEncoder()
	e.Bytes([]byte("not a certificate"))
	_, err = x509cert.Decode(cbor.NewDecoder(e.Result()), "certificate")
	require.ErrorContains(t, err, "decoding certificate")
}
