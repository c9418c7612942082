package cbor

// TagEncodedCBOR is the "encoded CBOR data item" tag (RFC 8949 §3.4.5.1):
// a byte string known to itself contain a CBOR item.
const TagEncodedCBOR = 24

// WithBytes pairs a decoded value with the exact input sub-slice that
// produced it. Re-encoding writes those bytes back verbatim, which is
// how canonical bytes survive a decode/encode round trip without being
// re-serialized.
type WithBytes[T any] struct {
	Value T
	Raw   []byte
}

// DecodeWithBytes decodes one value and captures the sub-slice it
// occupied.
func DecodeWithBytes[T any](d *Decoder, location string, decode func(*Decoder) (T, error)) (WithBytes[T], error) {
	start := d.Position()
	v, err := decode(d)
	if err != nil {
		return WithBytes[T]{}, err
	}
	raw := append([]byte(nil), d.Since(start)...)
	return WithBytes[T]{Value: v, Raw: raw}, nil
}

// EncodeTo writes the remembered bytes verbatim.
func (w WithBytes[T]) EncodeTo(e *Encoder) {
	e.Raw(w.Raw)
}

// DecodeTagged24 reads a tag-24 wrapped byte string and returns the
// inner encoded item.
func DecodeTagged24(d *Decoder, location string) ([]byte, error) {
	if err := d.ExpectTag(TagEncodedCBOR, location); err != nil {
		return nil, err
	}
	return d.Bytes(location)
}

// EncodeTagged24 writes inner as a tag-24 wrapped byte string.
func EncodeTagged24(e *Encoder, inner []byte) {
	e.Tag(TagEncodedCBOR)
	e.Bytes(inner)
}
