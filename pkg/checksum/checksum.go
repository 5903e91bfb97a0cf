// Package checksum computes and verifies the digests that stamp snapshots.
package checksum

import (
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"fmt"

	"github.com/minio/sha256-simd"
)

// Size is the length of a Sum in bytes.
const Size = sha256.Size

var ErrMalformed = errors.New("checksum: malformed digest")

// Sum is a SHA-256 digest.
type Sum [Size]byte

// Compute returns the digest of data.
func Compute(data []byte) Sum {
	return sha256.Sum256(data)
}

// Verify reports whether data hashes to want.
func Verify(data []byte, want Sum) bool {
	got := Compute(data)
	return subtle.ConstantTimeCompare(got[:], want[:]) == 1
}

func (s Sum) String() string { return hex.EncodeToString(s[:]) }

// Parse decodes the hex form produced by String.
func Parse(s string) (Sum, error) {
	var sum Sum
	b, err := hex.DecodeString(s)
	if err != nil {
		return sum, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if len(b) != Size {
		return sum, fmt.Errorf("%w: %d bytes", ErrMalformed, len(b))
	}
	copy(sum[:], b)
	return sum, nil
}
