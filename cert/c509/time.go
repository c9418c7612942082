package c509

import (
	"fmt"
	"time"

	"github.com/catalyst-forge/go-signed-doc/core/cbor"
)

// NoExpiration is the seconds-since-epoch sentinel (9999-12-31
// 23:59:59 UTC) that encodes as CBOR null in validity slots.
const NoExpiration = 253_402_300_799

// Time is seconds since the Unix epoch. Dates before the epoch are not
// representable.
type Time uint64

// TimeAt truncates a time.Time to certificate resolution.
func TimeAt(t time.Time) Time {
	return Time(t.Unix())
}

// Std converts back to a time.Time in UTC.
func (t Time) Std() time.Time {
	return time.Unix(int64(t), 0).UTC()
}

// IsNoExpiration reports whether the slot carries the null sentinel.
func (t Time) IsNoExpiration() bool { return t == NoExpiration }

func (t Time) EncodeCBOR(e *cbor.Encoder) {
	if t == NoExpiration {
		e.Null()
		return
	}
	e.Uint64(uint64(t))
}

func DecodeTime(d *cbor.Decoder, location string) (Time, error) {
	dt, err := d.Datatype(location)
	if err != nil {
		return 0, err
	}
	switch dt {
	case cbor.TypeNull:
		if err := d.Null(location); err != nil {
			return 0, err
		}
		return NoExpiration, nil
	case cbor.TypeUint:
		v, err := d.Uint64(location)
		if err != nil {
			return 0, err
		}
		return Time(v), nil
	default:
		return 0, fmt.Errorf("decoding %s: expected unsigned integer or null, got %s", location, dt)
	}
}
