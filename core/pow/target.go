// Package pow implements the proof-of-work target check: a block is
// proof-valid iff its hash, interpreted as a 256-bit unsigned
// big-endian integer, is strictly less than a configured target.
package pow

import (
	"github.com/holiman/uint256"
)

// maxUint256 is 2^256 - 1, represented as a fixed-width uint256 rather
// than math/big since the only operation needed is a single comparison,
// never arbitrary-precision arithmetic.
func maxUint256() *uint256.Int {
	max := new(uint256.Int)
	return max.Not(max) // 0 negated is all-ones: 2^256 - 1
}

// TargetFromLeadingZeroes computes the PoW target for a given difficulty
// parameter: 2^256 - 1 right-shifted by leadingZeroBits. Higher values
// yield a smaller (harder) target; 0 yields the maximum target, which
// almost every hash satisfies.
func TargetFromLeadingZeroes(leadingZeroBits uint) *uint256.Int {
	t := maxUint256()
	return t.Rsh(t, leadingZeroBits)
}

// HashMeetsTarget reports whether hash, read as a big-endian 256-bit
// unsigned integer, is strictly less than target — the block validity
// predicate (has_valid_proof).
func HashMeetsTarget(hash [32]byte, target *uint256.Int) bool {
	n := new(uint256.Int).SetBytes(hash[:])
	return n.Lt(target)
}
