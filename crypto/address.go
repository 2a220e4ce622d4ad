package crypto

import (
	"encoding/base64"
	"fmt"

	lru "github.com/hashicorp/golang-lru"
)

// addressCache memoises AddressOf by serialised public key: address
// derivation is on the hot path of every transaction/block validation,
// and the public key bytes it hashes rarely change across repeated
// calls for the same signer.
var addressCache, _ = lru.New(4096)

// AddressLength is the size in bytes of an Address: the full SHA-256
// digest of a serialised public key, with no truncation.
const AddressLength = 32

// Address identifies an account. It holds SHA-256(serialised public
// key); its String form is the base64 encoding of that digest.
type Address [AddressLength]byte

// String returns the base64 encoding used on the wire and in logs.
func (a Address) String() string {
	return base64.StdEncoding.EncodeToString(a[:])
}

// Bytes returns a copy of the underlying digest.
func (a Address) Bytes() []byte {
	out := make([]byte, AddressLength)
	copy(out, a[:])
	return out
}

// IsZero reports whether a is the zero address (used as "absent" on
// genesis blocks and coinbase-less transactions).
func (a Address) IsZero() bool {
	return a == Address{}
}

// MarshalText implements encoding.TextMarshaler so Address round-trips
// through TOML/JSON as its base64 form.
func (a Address) MarshalText() ([]byte, error) {
	return []byte(a.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (a *Address) UnmarshalText(text []byte) error {
	decoded, err := base64.StdEncoding.DecodeString(string(text))
	if err != nil {
		return fmt.Errorf("crypto: invalid address encoding: %w", err)
	}
	if len(decoded) != AddressLength {
		return fmt.Errorf("crypto: invalid address length: got %d want %d", len(decoded), AddressLength)
	}
	copy(a[:], decoded)
	return nil
}

// AddressFromString parses the base64 form produced by Address.String.
func AddressFromString(s string) (Address, error) {
	var a Address
	err := a.UnmarshalText([]byte(s))
	return a, err
}

// AddressOf derives the Address for a serialised public key:
// SHA-256(pubKeyBytes). Results are memoised in
// addressCache since the same public key is re-derived on every
// transaction a sender signs.
func AddressOf(pubKeyBytes []byte) Address {
	key := string(pubKeyBytes)
	if cached, ok := addressCache.Get(key); ok {
		return cached.(Address)
	}
	addr := Address(Hash256(pubKeyBytes))
	addressCache.Add(key, addr)
	return addr
}
