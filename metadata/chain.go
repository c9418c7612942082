package metadata

import (
	"encoding/json"
	"fmt"

	"github.com/catalyst-forge/go-signed-doc/core/cbor"
)

// Chain links a document into an ordered sequence (checkpoint
// documents use this). Height 0 means the first link, which carries no
// reference; every later link references its predecessor.
type Chain struct {
	height int64
	ref    *DocumentRef
}

// NewChain builds a chain link. A nil ref is only valid at height 0
// and vice versa.
func NewChain(height int64, ref *DocumentRef) (Chain, error) {
	if height < 0 {
		return Chain{}, fmt.Errorf("chain height must not be negative")
	}
	if ref == nil && height != 0 {
		return Chain{}, fmt.Errorf("chain height must be zero when there is no chained document")
	}
	if ref != nil && height == 0 {
		return Chain{}, fmt.Errorf("chain height zero must not reference a document")
	}
	return Chain{height: height, ref: ref}, nil
}

// Height returns the position in the chain.
func (c Chain) Height() int64 { return c.height }

// DocumentRef returns the predecessor reference, nil at height 0.
func (c Chain) DocumentRef() *DocumentRef { return c.ref }

func (c Chain) String() string {
	if c.ref == nil {
		return fmt.Sprintf("height: %d", c.height)
	}
	return fmt.Sprintf("height: %d, %s", c.height, c.ref)
}

func decodeChain(d *cbor.Decoder, location string) (Chain, error) {
	n, err := d.ArrayLen(location)
	if err != nil {
		return Chain{}, err
	}
	if n != 1 && n != 2 {
		return Chain{}, fmt.Errorf("decoding %s: chain must be [height] or [height, ref], got %d elements", location, n)
	}
	height, err := d.Int64(location + " height")
	if err != nil {
		return Chain{}, err
	}
	var ref *DocumentRef
	if n == 2 {
		r, _, err := decodeDocumentRef(d, location+" ref")
		if err != nil {
			return Chain{}, err
		}
		ref = &r
	}
	return NewChain(height, ref)
}

// EncodeCBOR writes [height] or [height, ref].
func (c Chain) EncodeCBOR(e *cbor.Encoder) {
	if c.ref == nil {
		e.ArrayLen(1)
		e.Int64(c.height)
		return
	}
	e.ArrayLen(2)
	e.Int64(c.height)
	c.ref.encodeCBOR(e)
}

type chainJSON struct {
	Height int64        `json:"height"`
	Ref    *DocumentRef `json:"ref,omitempty"`
}

func (c Chain) MarshalJSON() ([]byte, error) {
	return json.Marshal(chainJSON{Height: c.height, Ref: c.ref})
}

func (c *Chain) UnmarshalJSON(b []byte) error {
	var in chainJSON
	if err := json.Unmarshal(b, &in); err != nil {
		return err
	}
	parsed, err := NewChain(in.Height, in.Ref)
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}
