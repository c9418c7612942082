package cbor

import "fmt"

// DecodeArray reads a definite-length array, invoking item once per
// element. Under the Deterministic or ArrayDeterministic contexts the
// encoded elements must be strictly increasing in canonical byte order.
func DecodeArray[T any](d *Decoder, cctx Context, location string, item func(*Decoder) (T, error)) ([]T, error) {
	n, err := d.ArrayLen(location)
	if err != nil {
		return nil, err
	}
	out := make([]T, 0, min(n, 1024))
	var prev []byte
	for i := uint64(0); i < n; i++ {
		start := d.Position()
		v, err := item(d)
		if err != nil {
			return nil, fmt.Errorf("decoding %s[%d]: %w", location, i, err)
		}
		if cctx != NonDeterministic {
			raw := d.Since(start)
			if prev != nil && CanonicalCompare(prev, raw) >= 0 {
				return nil, &DecodeError{
					Location: location,
					Offset:   start,
					Reason:   fmt.Sprintf("element %d violates canonical order", i),
				}
			}
			prev = raw
		}
		out = append(out, v)
	}
	return out, nil
}

// MapEntry pairs a decoded key and value with the raw bytes of the key,
// so callers can report ordering problems without re-encoding.
type MapEntry[K, V any] struct {
	Key    K
	Value  V
	RawKey []byte
}

// DecodeMap reads a definite-length map. Duplicate keys are always an
// error; under the Deterministic context the encoded keys must also be
// strictly increasing in canonical byte order.
func DecodeMap[K, V any](
	d *Decoder, cctx Context, location string,
	key func(*Decoder) (K, error),
	value func(*Decoder, K) (V, error),
) ([]MapEntry[K, V], error) {
	n, err := d.MapLen(location)
	if err != nil {
		return nil, err
	}
	out := make([]MapEntry[K, V], 0, min(n, 1024))
	var prev []byte
	for i := uint64(0); i < n; i++ {
		start := d.Position()
		k, err := key(d)
		if err != nil {
			return nil, fmt.Errorf("decoding %s key %d: %w", location, i, err)
		}
		rawKey := append([]byte(nil), d.Since(start)...)
		for _, e := range out {
			if CanonicalCompare(e.RawKey, rawKey) == 0 {
				return nil, &DecodeError{
					Location: location,
					Offset:   start,
					Reason:   fmt.Sprintf("duplicate map key at entry %d", i),
				}
			}
		}
		if cctx == Deterministic && prev != nil && CanonicalCompare(prev, rawKey) >= 0 {
			return nil, &DecodeError{
				Location: location,
				Offset:   start,
				Reason:   fmt.Sprintf("map key %d violates canonical order", i),
			}
		}
		prev = rawKey
		v, err := value(d, k)
		if err != nil {
			return nil, fmt.Errorf("decoding %s value %d: %w", location, i, err)
		}
		out = append(out, MapEntry[K, V]{Key: k, Value: v, RawKey: rawKey})
	}
	return out, nil
}
