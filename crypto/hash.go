package crypto

import "crypto/sha256"

// HashLength is the size in bytes of a Hash256 digest.
const HashLength = 32

// Hash256 computes SHA-256(data), the hash primitive used for both
// address derivation and proof-of-work throughout this package.
func Hash256(data ...[]byte) [HashLength]byte {
	h := sha256.New()
	for _, d := range data {
		h.Write(d)
	}
	var out [HashLength]byte
	copy(out[:], h.Sum(nil))
	return out
}
