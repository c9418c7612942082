package cbor

import "bytes"

// Encoder builds a CBOR byte stream. All heads it writes use the
// minimal-length form required by deterministic encoding.
type Encoder struct {
	buf bytes.Buffer
}

func NewEncoder() *Encoder {
	return &Encoder{}
}

// Result returns the encoded bytes accumulated so far.
func (e *Encoder) Result() []byte {
	return e.buf.Bytes()
}

func (e *Encoder) head(major byte, arg uint64) {
	switch {
	case arg < 24:
		e.buf.WriteByte(major<<5 | byte(arg))
	case arg <= 0xff:
		e.buf.WriteByte(major<<5 | 24)
		e.buf.WriteByte(byte(arg))
	case arg <= 0xffff:
		e.buf.WriteByte(major<<5 | 25)
		e.buf.WriteByte(byte(arg >> 8))
		e.buf.WriteByte(byte(arg))
	case arg <= 0xffffffff:
		e.buf.WriteByte(major<<5 | 26)
		for shift := 24; shift >= 0; shift -= 8 {
			e.buf.WriteByte(byte(arg >> shift))
		}
	default:
		e.buf.WriteByte(major<<5 | 27)
		for shift := 56; shift >= 0; shift -= 8 {
			e.buf.WriteByte(byte(arg >> shift))
		}
	}
}

func (e *Encoder) Uint64(v uint64) { e.head(0, v) }

func (e *Encoder) Int64(v int64) {
	if v >= 0 {
		e.head(0, uint64(v))
	} else {
		e.head(1, uint64(-1-v))
	}
}

func (e *Encoder) Bytes(b []byte) {
	e.head(2, uint64(len(b)))
	e.buf.Write(b)
}

func (e *Encoder) Text(s string) {
	e.head(3, uint64(len(s)))
	e.buf.WriteString(s)
}

func (e *Encoder) ArrayLen(n uint64) { e.head(4, n) }

func (e *Encoder) MapLen(n uint64) { e.head(5, n) }

func (e *Encoder) Tag(num uint64) { e.head(6, num) }

func (e *Encoder) Bool(v bool) {
	if v {
		e.buf.WriteByte(0xf5)
	} else {
		e.buf.WriteByte(0xf4)
	}
}

func (e *Encoder) Null() { e.buf.WriteByte(0xf6) }

func (e *Encoder) Undefined() { e.buf.WriteByte(0xf7) }

// Raw writes an already encoded item verbatim.
func (e *Encoder) Raw(item []byte) { e.buf.Write(item) }
