package crypto

import (
	"errors"

	"github.com/btcsuite/btcd/btcec/v2"
)

// ErrMalformedKey is returned when a serialised public key cannot be
// parsed back into a curve point, or when private key bytes are not a
// 32-byte scalar.
var ErrMalformedKey = errors.New("crypto: malformed key")

// KeyPair is an asymmetric signing key pair: a secp256k1 key via btcec,
// used for account identity and transaction/block signing.
type KeyPair struct {
	Private *btcec.PrivateKey
	Public  *btcec.PublicKey
}

// GenerateKeyPair produces a new random KeyPair.
func GenerateKeyPair() (*KeyPair, error) {
	priv, err := btcec.NewPrivateKey()
	if err != nil {
		return nil, wrapCryptoErr("generate_keypair", err)
	}
	return &KeyPair{Private: priv, Public: priv.PubKey()}, nil
}

// PublicKeyBytes returns the compressed serialised form of pub, the form
// used everywhere a public key crosses the wire (Transaction.PubKey) or
// participates in address derivation.
func PublicKeyBytes(pub *btcec.PublicKey) []byte {
	return pub.SerializeCompressed()
}

// ParsePublicKey parses the compressed serialised form produced by
// PublicKeyBytes.
func ParsePublicKey(b []byte) (*btcec.PublicKey, error) {
	pub, err := btcec.ParsePubKey(b)
	if err != nil {
		return nil, wrapCryptoErr("parse_public_key", ErrMalformedKey)
	}
	return pub, nil
}

// Address returns the Address derived from the key pair's public half.
func (k *KeyPair) Address() Address {
	return AddressOf(PublicKeyBytes(k.Public))
}

// PrivateKeyBytes returns the 32-byte big-endian scalar of the private
// key, the form persisted participant state stores on disk.
func PrivateKeyBytes(k *KeyPair) []byte {
	return k.Private.Serialize()
}

// KeyPairFromPrivateBytes reconstructs a KeyPair from the 32-byte
// scalar produced by PrivateKeyBytes.
func KeyPairFromPrivateBytes(b []byte) (*KeyPair, error) {
	if len(b) != 32 {
		return nil, wrapCryptoErr("keypair_from_private_bytes", ErrMalformedKey)
	}
	priv, pub := btcec.PrivKeyFromBytes(b)
	return &KeyPair{Private: priv, Public: pub}, nil
}
