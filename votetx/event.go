package votetx

import (
	"fmt"

	"github.com/catalyst-forge/go-signed-doc/core/cbor"
)

// EventKey is an event-map key: CBOR int or text.
type EventKey struct {
	num    int64
	text   string
	isText bool
}

// IntKey returns an integer event key.
func IntKey(n int64) EventKey { return EventKey{num: n} }

// TextKey returns a text event key.
func TextKey(s string) EventKey { return EventKey{text: s, isText: true} }

// Int returns the integer form; ok is false for text keys.
func (k EventKey) Int() (int64, bool) { return k.num, !k.isText }

// Text returns the text form; ok is false for integer keys.
func (k EventKey) Text() (string, bool) { return k.text, k.isText }

func (k EventKey) String() string {
	if k.isText {
		return k.text
	}
	return fmt.Sprintf("%d", k.num)
}

func (k EventKey) encodeCBOR(e *cbor.Encoder) {
	if k.isText {
		e.Text(k.text)
	} else {
		e.Int64(k.num)
	}
}

// EventEntry pairs a key with its raw CBOR value. Values stay encoded
// so unknown entries round-trip byte-for-byte.
type EventEntry struct {
	Key   EventKey
	Value cbor.RawMessage
}

// EventMap is the ordered event field of a tx body.
type EventMap []EventEntry

// Set appends an entry holding an already encoded CBOR value.
func (m *EventMap) Set(key EventKey, rawValue cbor.RawMessage) {
	*m = append(*m, EventEntry{Key: key, Value: rawValue})
}

// SetValue marshals v deterministically and appends it under key.
func (m *EventMap) SetValue(key EventKey, v any) error {
	raw, err := cbor.Marshal(v)
	if err != nil {
		return fmt.Errorf("encoding event value %s: %w", key, err)
	}
	m.Set(key, raw)
	return nil
}

// Get returns the raw value of the first entry with the given key.
func (m EventMap) Get(key EventKey) (cbor.RawMessage, bool) {
	for _, entry := range m {
		if entry.Key == key {
			return entry.Value, true
		}
	}
	return nil, false
}

func decodeEventMap(d *cbor.Decoder, location string) (EventMap, error) {
	n, err := d.MapLen(location)
	if err != nil {
		return nil, err
	}
	m := make(EventMap, 0, n)
	for i := uint64(0); i < n; i++ {
		dt, err := d.Datatype(location + " key")
		if err != nil {
			return nil, err
		}
		var key EventKey
		switch dt {
		case cbor.TypeUint, cbor.TypeNegInt:
			n, err := d.Int64(location + " key")
			if err != nil {
				return nil, err
			}
			key = IntKey(n)
		case cbor.TypeText:
			s, err := d.Text(location + " key")
			if err != nil {
				return nil, err
			}
			key = TextKey(s)
		default:
			return nil, fmt.Errorf("decoding %s: key must be int or text, got %s", location, dt)
		}
		value, err := d.RawItem(location + " value")
		if err != nil {
			return nil, err
		}
		m = append(m, EventEntry{Key: key, Value: append(cbor.RawMessage(nil), value...)})
	}
	return m, nil
}

func (m EventMap) encodeCBOR(e *cbor.Encoder) {
	e.MapLen(uint64(len(m)))
	for _, entry := range m {
		entry.Key.encodeCBOR(e)
		e.Raw(entry.Value)
	}
}
