package votetx

import (
	"fmt"

	"github.com/catalyst-forge/go-signed-doc/core/cbor"
)

const groupElementSize = 32

// Ciphertext is a lifted-ElGamal ciphertext over ristretto255: two
// 32-byte group elements.
type Ciphertext struct {
	C1 [groupElementSize]byte
	C2 [groupElementSize]byte
}

func (c Ciphertext) EncodeCBOR(e *cbor.Encoder) {
	e.ArrayLen(2)
	e.Bytes(c.C1[:])
	e.Bytes(c.C2[:])
}

func (c *Ciphertext) DecodeCBOR(d *cbor.Decoder, location string) error {
	n, err := d.ArrayLen(location)
	if err != nil {
		return err
	}
	if n != 2 {
		return fmt.Errorf("decoding %s: ciphertext must have 2 elements, got %d", location, n)
	}
	for i, dst := range [][]byte{c.C1[:], c.C2[:]} {
		b, err := d.Bytes(location)
		if err != nil {
			return err
		}
		if len(b) != groupElementSize {
			return fmt.Errorf("decoding %s: group element %d must be %d bytes, got %d",
				location, i, groupElementSize, len(b))
		}
		copy(dst, b)
	}
	return nil
}

// ZKProof is an opaque unit-vector zero-knowledge proof blob. This
// layer carries it without verifying it.
type ZKProof []byte

func (p ZKProof) EncodeCBOR(e *cbor.Encoder) {
	e.Bytes(p)
}

func (p *ZKProof) DecodeCBOR(d *cbor.Decoder, location string) error {
	b, err := d.Bytes(location)
	if err != nil {
		return err
	}
	*p = append(ZKProof(nil), b...)
	return nil
}

// PrivateTx is an encrypted vote transaction: ElGamal ciphertext
// choices, unit-vector proofs, UUID proposal ids.
type PrivateTx = Tx[Ciphertext, ZKProof, TxUUID]

// PrivateTxBody is the body of a private transaction.
type PrivateTxBody = TxBody[Ciphertext, ZKProof, TxUUID]

// PrivateVote is a single encrypted ballot.
type PrivateVote = Vote[Ciphertext, ZKProof, TxUUID]

// NewPrivateTx assembles a private transaction.
func NewPrivateTx(body PrivateTxBody) (*PrivateTx, error) {
	return NewTx(body)
}

// DecodePrivateTx parses private transaction bytes.
func DecodePrivateTx(data []byte) (*PrivateTx, error) {
	tx, err := DecodeTx[Ciphertext, ZKProof, TxUUID, *Ciphertext, *ZKProof, *TxUUID](data)
	if err != nil {
		return nil, fmt.Errorf("decoding private vote transaction: %w", err)
	}
	return tx, nil
}
