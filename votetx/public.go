package votetx

import (
	"fmt"

	"github.com/catalyst-forge/go-signed-doc/core/cbor"
)

// PublicChoice is a plain ballot option index.
type PublicChoice uint64

func (c PublicChoice) EncodeCBOR(e *cbor.Encoder) {
	e.Uint64(uint64(c))
}

func (c *PublicChoice) DecodeCBOR(d *cbor.Decoder, location string) error {
	v, err := d.Uint64(location)
	if err != nil {
		return err
	}
	*c = PublicChoice(v)
	return nil
}

// NoProof marks the proof slot of a public vote, which is always
// undefined on the wire. It never encodes or decodes.
type NoProof struct{}

func (NoProof) EncodeCBOR(*cbor.Encoder) {}

func (*NoProof) DecodeCBOR(_ *cbor.Decoder, location string) error {
	return fmt.Errorf("decoding %s: public votes carry no proof", location)
}

// PublicTx is an unencrypted vote transaction: plain choices, no
// proofs, UUID proposal ids.
type PublicTx = Tx[PublicChoice, NoProof, TxUUID]

// PublicTxBody is the body of a public transaction.
type PublicTxBody = TxBody[PublicChoice, NoProof, TxUUID]

// PublicVote is a single public ballot.
type PublicVote = Vote[PublicChoice, NoProof, TxUUID]

// NewPublicTx assembles a public transaction.
func NewPublicTx(body PublicTxBody) (*PublicTx, error) {
	for i, v := range body.Votes {
		if v.Proof != nil {
			return nil, fmt.Errorf("building public vote transaction: vote %d must not carry a proof", i)
		}
	}
	return NewTx(body)
}

// DecodePublicTx parses public transaction bytes.
func DecodePublicTx(data []byte) (*PublicTx, error) {
	tx, err := DecodeTx[PublicChoice, NoProof, TxUUID, *PublicChoice, *NoProof, *TxUUID](data)
	if err != nil {
		return nil, fmt.Errorf("decoding public vote transaction: %w", err)
	}
	return tx, nil
}
