package signeddoc

import "github.com/catalyst-forge/go-signed-doc/core/cbor"

// TBS builds the RFC 8152 §4.4 Sig_structure serialization:
//
//	[ "Signature", body_protected, sign_protected, external_aad, payload ]
//
// The body- and sign-protected slots receive the exact bytes that
// appear in the envelope, never a re-encoding. A nil payload is
// spliced in as an empty byte string.
func TBS(bodyProtected, signProtected, payload []byte) []byte {
	e := cbor.NewEncoder()
	e.ArrayLen(5)
	e.Text("Signature")
	e.Bytes(bodyProtected)
	e.Bytes(signProtected)
	e.Bytes(nil)
	e.Bytes(payload)
	return e.Result()
}
