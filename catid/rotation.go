package catid

import (
	"fmt"
	"strconv"
)

// KeyRotation counts versions of a role key. 0 is the first key; each
// subsequent rotation increments it.
type KeyRotation uint16

// IsDefault reports whether k is the first (unrotated) key.
func (k KeyRotation) IsDefault() bool { return k == 0 }

func (k KeyRotation) String() string { return strconv.Itoa(int(k)) }

// LatestRotation is the rotation value of the last key in a key list of
// length n, saturating to 0 for an empty list.
func LatestRotation(n int) KeyRotation {
	if n <= 0 {
		return 0
	}
	return KeyRotation(n - 1)
}

// ParseKeyRotation parses the decimal rotation form used in URIs.
func ParseKeyRotation(s string) (KeyRotation, error) {
	n, err := strconv.ParseUint(s, 10, 16)
	if err != nil {
		return 0, fmt.Errorf("parsing key rotation %q: %w", s, err)
	}
	return KeyRotation(n), nil
}
