package cbor

import (
	"fmt"
	"unicode/utf8"
)

// Type identifies the kind of the next item in a Decoder, without
// consuming it.
type Type int

const (
	TypeUint Type = iota
	TypeNegInt
	TypeBytes
	TypeText
	TypeArray
	TypeMap
	TypeTag
	TypeBool
	TypeNull
	TypeUndefined
	TypeSimple
	TypeFloat
)

func (t Type) String() string {
	switch t {
	case TypeUint:
		return "unsigned integer"
	case TypeNegInt:
		return "negative integer"
	case TypeBytes:
		return "byte string"
	case TypeText:
		return "text string"
	case TypeArray:
		return "array"
	case TypeMap:
		return "map"
	case TypeTag:
		return "tag"
	case TypeBool:
		return "bool"
	case TypeNull:
		return "null"
	case TypeUndefined:
		return "undefined"
	case TypeFloat:
		return "float"
	default:
		return "simple value"
	}
}

// DecodeError is the hard-error channel for structural corruption. The
// Location string is the caller-supplied description of what was being
// decoded and appears verbatim in diagnostics.
type DecodeError struct {
	Location string
	Offset   int
	Reason   string
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decoding %s at offset %d: %s", e.Location, e.Offset, e.Reason)
}

// Decoder reads CBOR items from a byte slice, tracking its position so
// callers can capture the exact sub-slice an item occupied.
type Decoder struct {
	data []byte
	pos  int
}

func NewDecoder(data []byte) *Decoder {
	return &Decoder{data: data}
}

// Position returns the current byte offset.
func (d *Decoder) Position() int { return d.pos }

// Done reports whether all input has been consumed.
func (d *Decoder) Done() bool { return d.pos >= len(d.data) }

// Since returns the bytes consumed since the given position.
func (d *Decoder) Since(pos int) []byte { return d.data[pos:d.pos] }

func (d *Decoder) fail(location, format string, args ...any) error {
	return &DecodeError{Location: location, Offset: d.pos, Reason: fmt.Sprintf(format, args...)}
}

// peekHead parses the head at the current position without advancing.
// It enforces definite lengths and minimal-length integer encoding.
func (d *Decoder) peekHead(location string) (major, info byte, arg uint64, headLen int, err error) {
	if d.pos >= len(d.data) {
		return 0, 0, 0, 0, d.fail(location, "unexpected end of input")
	}
	b := d.data[d.pos]
	major, info = b>>5, b&0x1f
	switch {
	case info < 24:
		return major, info, uint64(info), 1, nil
	case info <= 27:
		n := 1 << (info - 24)
		if d.pos+1+n > len(d.data) {
			return 0, 0, 0, 0, d.fail(location, "truncated head")
		}
		for _, c := range d.data[d.pos+1 : d.pos+1+n] {
			arg = arg<<8 | uint64(c)
		}
		if major == 7 {
			// Simple values 0..31 must use the direct form; floats are
			// exempt from the integer minimality rule.
			if info == 24 && arg < 32 {
				return 0, 0, 0, 0, d.fail(location, "non-minimal simple value")
			}
			return major, info, arg, 1 + n, nil
		}
		// Minimal form: the argument must not fit in the next shorter head.
		switch n {
		case 1:
			if arg < 24 {
				return 0, 0, 0, 0, d.fail(location, "non-minimal length encoding")
			}
		case 2:
			if arg <= 0xff {
				return 0, 0, 0, 0, d.fail(location, "non-minimal length encoding")
			}
		case 4:
			if arg <= 0xffff {
				return 0, 0, 0, 0, d.fail(location, "non-minimal length encoding")
			}
		case 8:
			if arg <= 0xffffffff {
				return 0, 0, 0, 0, d.fail(location, "non-minimal length encoding")
			}
		}
		return major, info, arg, 1 + n, nil
	case info == 31:
		return 0, 0, 0, 0, d.fail(location, "indefinite-length item")
	default:
		return 0, 0, 0, 0, d.fail(location, "reserved additional info %d", info)
	}
}

// Datatype reports the type of the next item without consuming it.
func (d *Decoder) Datatype(location string) (Type, error) {
	major, info, _, _, err := d.peekHead(location)
	if err != nil {
		return 0, err
	}
	switch major {
	case 0:
		return TypeUint, nil
	case 1:
		return TypeNegInt, nil
	case 2:
		return TypeBytes, nil
	case 3:
		return TypeText, nil
	case 4:
		return TypeArray, nil
	case 5:
		return TypeMap, nil
	case 6:
		return TypeTag, nil
	default:
		switch info {
		case 20, 21:
			return TypeBool, nil
		case 22:
			return TypeNull, nil
		case 23:
			return TypeUndefined, nil
		case 25, 26, 27:
			return TypeFloat, nil
		default:
			return TypeSimple, nil
		}
	}
}

// Uint64 reads an unsigned integer.
func (d *Decoder) Uint64(location string) (uint64, error) {
	major, _, arg, hl, err := d.peekHead(location)
	if err != nil {
		return 0, err
	}
	if major != 0 {
		return 0, d.fail(location, "expected unsigned integer, got major type %d", major)
	}
	d.pos += hl
	return arg, nil
}

// Uint32 reads an unsigned integer that must fit in 32 bits.
func (d *Decoder) Uint32(location string) (uint32, error) {
	v, err := d.Uint64(location)
	if err != nil {
		return 0, err
	}
	if v > 0xffffffff {
		return 0, d.fail(location, "value %d overflows u32", v)
	}
	return uint32(v), nil
}

// Uint16 reads an unsigned integer that must fit in 16 bits.
func (d *Decoder) Uint16(location string) (uint16, error) {
	v, err := d.Uint64(location)
	if err != nil {
		return 0, err
	}
	if v > 0xffff {
		return 0, d.fail(location, "value %d overflows u16", v)
	}
	return uint16(v), nil
}

// Uint8 reads an unsigned integer that must fit in 8 bits.
func (d *Decoder) Uint8(location string) (uint8, error) {
	v, err := d.Uint64(location)
	if err != nil {
		return 0, err
	}
	if v > 0xff {
		return 0, d.fail(location, "value %d overflows u8", v)
	}
	return uint8(v), nil
}

// Int64 reads an unsigned or negative integer.
func (d *Decoder) Int64(location string) (int64, error) {
	major, _, arg, hl, err := d.peekHead(location)
	if err != nil {
		return 0, err
	}
	switch major {
	case 0:
		if arg > 1<<63-1 {
			return 0, d.fail(location, "value %d overflows i64", arg)
		}
		d.pos += hl
		return int64(arg), nil
	case 1:
		if arg > 1<<63-1 {
			return 0, d.fail(location, "value -%d overflows i64", arg+1)
		}
		d.pos += hl
		return -1 - int64(arg), nil
	default:
		return 0, d.fail(location, "expected integer, got major type %d", major)
	}
}

// Bytes reads a definite-length byte string. The returned slice aliases
// the Decoder's input.
func (d *Decoder) Bytes(location string) ([]byte, error) {
	major, _, arg, hl, err := d.peekHead(location)
	if err != nil {
		return nil, err
	}
	if major != 2 {
		return nil, d.fail(location, "expected byte string, got major type %d", major)
	}
	if arg > uint64(len(d.data)-d.pos-hl) {
		return nil, d.fail(location, "byte string length %d exceeds remaining input", arg)
	}
	d.pos += hl
	b := d.data[d.pos : d.pos+int(arg)]
	d.pos += int(arg)
	return b, nil
}

// Text reads a definite-length UTF-8 text string.
func (d *Decoder) Text(location string) (string, error) {
	major, _, arg, hl, err := d.peekHead(location)
	if err != nil {
		return "", err
	}
	if major != 3 {
		return "", d.fail(location, "expected text string, got major type %d", major)
	}
	if arg > uint64(len(d.data)-d.pos-hl) {
		return "", d.fail(location, "text string length %d exceeds remaining input", arg)
	}
	d.pos += hl
	b := d.data[d.pos : d.pos+int(arg)]
	if !utf8.Valid(b) {
		return "", d.fail(location, "invalid UTF-8 in text string")
	}
	d.pos += int(arg)
	return string(b), nil
}

// Bool reads true or false.
func (d *Decoder) Bool(location string) (bool, error) {
	major, info, _, hl, err := d.peekHead(location)
	if err != nil {
		return false, err
	}
	if major != 7 || (info != 20 && info != 21) {
		return false, d.fail(location, "expected bool")
	}
	d.pos += hl
	return info == 21, nil
}

// Null consumes a CBOR null.
func (d *Decoder) Null(location string) error {
	major, info, _, hl, err := d.peekHead(location)
	if err != nil {
		return err
	}
	if major != 7 || info != 22 {
		return d.fail(location, "expected null")
	}
	d.pos += hl
	return nil
}

// Undefined consumes a CBOR undefined.
func (d *Decoder) Undefined(location string) error {
	major, info, _, hl, err := d.peekHead(location)
	if err != nil {
		return err
	}
	if major != 7 || info != 23 {
		return d.fail(location, "expected undefined")
	}
	d.pos += hl
	return nil
}

// Tag reads a tag head and returns the tag number. The tagged content
// is left for the caller to decode.
func (d *Decoder) Tag(location string) (uint64, error) {
	major, _, arg, hl, err := d.peekHead(location)
	if err != nil {
		return 0, err
	}
	if major != 6 {
		return 0, d.fail(location, "expected tag, got major type %d", major)
	}
	d.pos += hl
	return arg, nil
}

// ExpectTag reads a tag head and requires a specific tag number.
func (d *Decoder) ExpectTag(num uint64, location string) error {
	got, err := d.Tag(location)
	if err != nil {
		return err
	}
	if got != num {
		return d.fail(location, "expected tag %d, got tag %d", num, got)
	}
	return nil
}

// ArrayLen reads a definite array head and returns the element count.
// The declared count is bounded by the remaining input before return.
func (d *Decoder) ArrayLen(location string) (uint64, error) {
	major, _, arg, hl, err := d.peekHead(location)
	if err != nil {
		return 0, err
	}
	if major != 4 {
		return 0, d.fail(location, "expected array, got major type %d", major)
	}
	if arg > uint64(len(d.data)-d.pos-hl) {
		return 0, d.fail(location, "array length %d exceeds remaining input", arg)
	}
	d.pos += hl
	return arg, nil
}

// MapLen reads a definite map head and returns the entry count.
func (d *Decoder) MapLen(location string) (uint64, error) {
	major, _, arg, hl, err := d.peekHead(location)
	if err != nil {
		return 0, err
	}
	if major != 5 {
		return 0, d.fail(location, "expected map, got major type %d", major)
	}
	if arg > uint64(len(d.data)-d.pos-hl)/2 {
		return 0, d.fail(location, "map length %d exceeds remaining input", arg)
	}
	d.pos += hl
	return arg, nil
}

// RawItem consumes one complete item (head, content, and any nested
// items) and returns its exact encoded bytes.
func (d *Decoder) RawItem(location string) ([]byte, error) {
	start := d.pos
	pending := uint64(1)
	for pending > 0 {
		pending--
		major, _, arg, hl, err := d.peekHead(location)
		if err != nil {
			return nil, err
		}
		d.pos += hl
		switch major {
		case 0, 1, 7:
		case 2, 3:
			if arg > uint64(len(d.data)-d.pos) {
				return nil, d.fail(location, "string length %d exceeds remaining input", arg)
			}
			d.pos += int(arg)
		case 4:
			if arg > uint64(len(d.data)-d.pos) {
				return nil, d.fail(location, "array length %d exceeds remaining input", arg)
			}
			pending += arg
		case 5:
			if arg > uint64(len(d.data)-d.pos)/2 {
				return nil, d.fail(location, "map length %d exceeds remaining input", arg)
			}
			pending += 2 * arg
		case 6:
			pending++
		}
	}
	return d.data[start:d.pos], nil
}

// Finish errors unless every input byte has been consumed.
func (d *Decoder) Finish(location string) error {
	if d.pos != len(d.data) {
		return d.fail(location, "%d trailing bytes", len(d.data)-d.pos)
	}
	return nil
}
