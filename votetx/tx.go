package votetx

import (
	"crypto/ed25519"
	"fmt"

	"github.com/catalyst-forge/go-signed-doc/catid"
	"github.com/catalyst-forge/go-signed-doc/core/cbor"
	"github.com/catalyst-forge/go-signed-doc/signeddoc"
	"github.com/catalyst-forge/go-signed-doc/uuid"
)

const (
	uuidTag = 37

	// COSE protected-header label and CoAP content format carried by
	// every tx sign block.
	contentFormatLabel = 3
	coapFormatCBOR     = 60

	kidLabel = 4
)

// TxUUID is a raw 16-byte UUID slot; vote-type and prop-id values use
// it. No version nibble is enforced.
type TxUUID [16]byte

// TxUUIDFrom copies a v4 or v7 identifier into a tx slot.
func TxUUIDFrom(b [16]byte) TxUUID { return TxUUID(b) }

func (u TxUUID) String() string {
	v, err := uuid.V4FromBytes(u[:])
	if err != nil {
		return fmt.Sprintf("%x", u[:])
	}
	return v.String()
}

func (u TxUUID) EncodeCBOR(e *cbor.Encoder) {
	e.Tag(uuidTag)
	e.Bytes(u[:])
}

func (u *TxUUID) DecodeCBOR(d *cbor.Decoder, location string) error {
	if err := d.ExpectTag(uuidTag, location); err != nil {
		return err
	}
	b, err := d.Bytes(location)
	if err != nil {
		return err
	}
	if len(b) != len(u) {
		return fmt.Errorf("decoding %s: UUID must be 16 bytes, got %d", location, len(b))
	}
	copy(u[:], b)
	return nil
}

// Vote is one ballot: at least one choice, an optional proof (nil
// encodes as CBOR undefined), and a proposal id.
type Vote[C, P, R Value] struct {
	Choices []C
	Proof   *P
	PropID  R
}

func (v Vote[C, P, R]) encodeCBOR(e *cbor.Encoder) {
	e.ArrayLen(3)
	e.ArrayLen(uint64(len(v.Choices)))
	for _, c := range v.Choices {
		encodeWrapped(e, c)
	}
	if v.Proof != nil {
		encodeWrapped(e, *v.Proof)
	} else {
		e.Undefined()
	}
	encodeWrapped(e, v.PropID)
}

// TxBody is the signed portion of a transaction.
type TxBody[C, P, R Value] struct {
	VoteType TxUUID
	Event    EventMap
	Votes    []Vote[C, P, R]

	// VoterData holds the inner bytes of the voter-data tag-24
	// wrapper, opaque to this layer.
	VoterData []byte
}

// Bytes returns the canonical encoding of the body; sign blocks cover
// exactly these bytes.
func (b TxBody[C, P, R]) Bytes() []byte {
	e := cbor.NewEncoder()
	b.encodeCBOR(e)
	return e.Result()
}

func (b TxBody[C, P, R]) encodeCBOR(e *cbor.Encoder) {
	e.ArrayLen(4)
	b.VoteType.EncodeCBOR(e)
	b.Event.encodeCBOR(e)
	e.ArrayLen(uint64(len(b.Votes)))
	for _, v := range b.Votes {
		v.encodeCBOR(e)
	}
	cbor.EncodeTagged24(e, b.VoterData)
}

// TxSignature is one signature of the sign block.
type TxSignature struct {
	protected []byte
	kid       catid.ID
	signature []byte
}

// KID returns the signer's Catalyst ID.
func (s TxSignature) KID() catid.ID { return s.kid }

// Tx is a generalized vote transaction: a body plus a COSE-Sign block
// whose protected header pins the CBOR CoAP content format.
type Tx[C, P, R Value] struct {
	Body TxBody[C, P, R]
	sigs []TxSignature
}

// NewTx assembles a transaction, requiring at least one vote with at
// least one choice each.
func NewTx[C, P, R Value](body TxBody[C, P, R]) (*Tx[C, P, R], error) {
	if len(body.Votes) == 0 {
		return nil, fmt.Errorf("building vote transaction: votes must not be empty")
	}
	for i, v := range body.Votes {
		if len(v.Choices) == 0 {
			return nil, fmt.Errorf("building vote transaction: vote %d has no choices", i)
		}
	}
	return &Tx[C, P, R]{Body: body}, nil
}

// blockProtected is the canonical sign-block protected header:
// {3: 60}, application/cbor by CoAP content format.
func blockProtected() []byte {
	e := cbor.NewEncoder()
	e.MapLen(1)
	e.Uint64(contentFormatLabel)
	e.Uint64(coapFormatCBOR)
	return e.Result()
}

func signatureProtected(kid catid.ID) []byte {
	e := cbor.NewEncoder()
	e.MapLen(1)
	e.Uint64(kidLabel)
	e.Bytes(kid.Bytes())
	return e.Result()
}

// Signatures returns the sign-block signatures in order.
func (t *Tx[C, P, R]) Signatures() []TxSignature { return t.sigs }

// AddSignature signs the body bytes under the sign-block TBS and
// appends the result.
func (t *Tx[C, P, R]) AddSignature(sign signeddoc.Signer, kid catid.ID) error {
	protected := signatureProtected(kid)
	sig, err := sign(signeddoc.TBS(blockProtected(), protected, t.Body.Bytes()))
	if err != nil {
		return fmt.Errorf("signing vote transaction: %w", err)
	}
	if len(sig) != ed25519.SignatureSize {
		return fmt.Errorf("signing vote transaction: signature must be %d bytes, got %d",
			ed25519.SignatureSize, len(sig))
	}
	t.sigs = append(t.sigs, TxSignature{protected: protected, kid: kid, signature: sig})
	return nil
}

// VerifySignature checks signature i against an Ed25519 public key.
func (t *Tx[C, P, R]) VerifySignature(i int, pub ed25519.PublicKey) bool {
	if i < 0 || i >= len(t.sigs) {
		return false
	}
	s := t.sigs[i]
	if len(s.signature) != ed25519.SignatureSize {
		return false
	}
	tbs := signeddoc.TBS(blockProtected(), s.protected, t.Body.Bytes())
	return ed25519.Verify(pub, tbs, s.signature)
}

// Bytes returns the canonical transaction encoding.
func (t *Tx[C, P, R]) Bytes() []byte {
	e := cbor.NewEncoder()
	e.ArrayLen(2)
	t.Body.encodeCBOR(e)

	// COSE-Sign block: protected, empty unprotected, null payload (the
	// body is the detached content), signatures.
	e.ArrayLen(4)
	e.Bytes(blockProtected())
	e.MapLen(0)
	e.Null()
	e.ArrayLen(uint64(len(t.sigs)))
	for _, s := range t.sigs {
		e.ArrayLen(3)
		e.Bytes(s.protected)
		e.MapLen(0)
		e.Bytes(s.signature)
	}
	return e.Result()
}

// DecodeTx parses transaction bytes. Instantiate the pointer type
// parameters with the pointer forms of the value types, e.g.
// DecodeTx[PublicChoice, NoProof, TxUUID, *PublicChoice, *NoProof, *TxUUID].
func DecodeTx[C, P, R Value, PC decodable[C], PP decodable[P], PR decodable[R]](data []byte) (*Tx[C, P, R], error) {
	d := cbor.NewDecoder(data)
	n, err := d.ArrayLen("transaction")
	if err != nil {
		return nil, err
	}
	if n != 2 {
		return nil, fmt.Errorf("decoding transaction: expected 2 elements, got %d", n)
	}
	body, err := decodeTxBody[C, P, R, PC, PP, PR](d)
	if err != nil {
		return nil, err
	}
	sigs, err := decodeSignBlock(d)
	if err != nil {
		return nil, err
	}
	if err := d.Finish("transaction"); err != nil {
		return nil, err
	}
	return &Tx[C, P, R]{Body: body, sigs: sigs}, nil
}

func decodeTxBody[C, P, R Value, PC decodable[C], PP decodable[P], PR decodable[R]](d *cbor.Decoder) (TxBody[C, P, R], error) {
	var body TxBody[C, P, R]
	n, err := d.ArrayLen("tx body")
	if err != nil {
		return body, err
	}
	if n != 4 {
		return body, fmt.Errorf("decoding tx body: expected 4 elements, got %d", n)
	}
	if err := body.VoteType.DecodeCBOR(d, "vote-type"); err != nil {
		return body, err
	}
	if body.Event, err = decodeEventMap(d, "event"); err != nil {
		return body, err
	}

	vn, err := d.ArrayLen("votes")
	if err != nil {
		return body, err
	}
	if vn == 0 {
		return body, fmt.Errorf("decoding votes: must contain at least one vote")
	}
	for i := uint64(0); i < vn; i++ {
		v, err := decodeVote[C, P, R, PC, PP, PR](d, int(i))
		if err != nil {
			return body, err
		}
		body.Votes = append(body.Votes, v)
	}

	if body.VoterData, err = cbor.DecodeTagged24(d, "voter-data"); err != nil {
		return body, err
	}
	body.VoterData = append([]byte(nil), body.VoterData...)
	return body, nil
}

func decodeVote[C, P, R Value, PC decodable[C], PP decodable[P], PR decodable[R]](d *cbor.Decoder, idx int) (Vote[C, P, R], error) {
	var vote Vote[C, P, R]
	location := fmt.Sprintf("vote %d", idx)
	n, err := d.ArrayLen(location)
	if err != nil {
		return vote, err
	}
	if n != 3 {
		return vote, fmt.Errorf("decoding %s: expected 3 elements, got %d", location, n)
	}

	cn, err := d.ArrayLen(location + " choices")
	if err != nil {
		return vote, err
	}
	if cn == 0 {
		return vote, fmt.Errorf("decoding %s: choices must not be empty", location)
	}
	for i := uint64(0); i < cn; i++ {
		c, err := decodeWrapped[C, PC](d, fmt.Sprintf("%s choice %d", location, i))
		if err != nil {
			return vote, err
		}
		vote.Choices = append(vote.Choices, c)
	}

	dt, err := d.Datatype(location + " proof")
	if err != nil {
		return vote, err
	}
	if dt == cbor.TypeUndefined {
		if err := d.Undefined(location + " proof"); err != nil {
			return vote, err
		}
	} else {
		p, err := decodeWrapped[P, PP](d, location+" proof")
		if err != nil {
			return vote, err
		}
		vote.Proof = &p
	}

	if vote.PropID, err = decodeWrapped[R, PR](d, location+" prop-id"); err != nil {
		return vote, err
	}
	return vote, nil
}

func decodeSignBlock(d *cbor.Decoder) ([]TxSignature, error) {
	n, err := d.ArrayLen("sign block")
	if err != nil {
		return nil, err
	}
	if n != 4 {
		return nil, fmt.Errorf("decoding sign block: expected 4 elements, got %d", n)
	}
	protected, err := d.Bytes("sign block protected header")
	if err != nil {
		return nil, err
	}
	if string(protected) != string(blockProtected()) {
		return nil, fmt.Errorf("decoding sign block: protected header must pin the CBOR content format")
	}
	un, err := d.MapLen("sign block unprotected headers")
	if err != nil {
		return nil, err
	}
	for i := uint64(0); i < un; i++ {
		if _, err := d.RawItem("sign block unprotected key"); err != nil {
			return nil, err
		}
		if _, err := d.RawItem("sign block unprotected value"); err != nil {
			return nil, err
		}
	}
	if err := d.Null("sign block payload"); err != nil {
		return nil, err
	}

	sn, err := d.ArrayLen("sign block signatures")
	if err != nil {
		return nil, err
	}
	sigs := make([]TxSignature, 0, sn)
	for i := uint64(0); i < sn; i++ {
		sig, err := decodeTxSignature(d, int(i))
		if err != nil {
			return nil, err
		}
		sigs = append(sigs, sig)
	}
	return sigs, nil
}

func decodeTxSignature(d *cbor.Decoder, idx int) (TxSignature, error) {
	location := fmt.Sprintf("tx signature %d", idx)
	n, err := d.ArrayLen(location)
	if err != nil {
		return TxSignature{}, err
	}
	if n != 3 {
		return TxSignature{}, fmt.Errorf("decoding %s: expected 3 elements, got %d", location, n)
	}
	protected, err := d.Bytes(location + " protected header")
	if err != nil {
		return TxSignature{}, err
	}
	protected = append([]byte(nil), protected...)
	kid, err := decodeTxKid(protected, location)
	if err != nil {
		return TxSignature{}, err
	}
	if _, err := d.MapLen(location + " unprotected headers"); err != nil {
		return TxSignature{}, err
	}
	sig, err := d.Bytes(location + " bytes")
	if err != nil {
		return TxSignature{}, err
	}
	return TxSignature{
		protected: protected,
		kid:       kid,
		signature: append([]byte(nil), sig...),
	}, nil
}

func decodeTxKid(protected []byte, location string) (catid.ID, error) {
	d := cbor.NewDecoder(protected)
	n, err := d.MapLen(location + " protected header")
	if err != nil {
		return catid.ID{}, err
	}
	if n != 1 {
		return catid.ID{}, fmt.Errorf("decoding %s: protected header must contain exactly the kid field, got %d entries", location, n)
	}
	label, err := d.Uint64(location + " header label")
	if err != nil {
		return catid.ID{}, err
	}
	if label != kidLabel {
		return catid.ID{}, fmt.Errorf("decoding %s: expected kid label %d, got %d", location, kidLabel, label)
	}
	kidBytes, err := d.Bytes(location + " kid")
	if err != nil {
		return catid.ID{}, err
	}
	if err := d.Finish(location + " protected header"); err != nil {
		return catid.ID{}, err
	}
	return catid.FromBytes(kidBytes)
}
