package crypto

import (
	"github.com/btcsuite/btcd/btcec/v2"
	btcecdsa "github.com/btcsuite/btcd/btcec/v2/ecdsa"
)

// Sign outputs are DER-encoded (Signature.Serialize) and vary in length,
// so callers treat signatures as opaque byte blobs, not fixed arrays.

// Sign signs message with priv and returns the serialised signature.
// Structured messages (Transaction) are canonicalised by the caller
// before being passed as message — see core/types.Transaction.ID.
func Sign(priv *btcec.PrivateKey, message []byte) []byte {
	digest := Hash256(message)
	sig := btcecdsa.Sign(priv, digest[:])
	return sig.Serialize()
}

// Verify reports whether sig is a valid signature over message by pub.
// It never returns an error: malformed signatures or keys simply fail
// verification rather than panicking or erroring out.
func Verify(pub *btcec.PublicKey, message []byte, sig []byte) bool {
	if pub == nil || len(sig) == 0 {
		return false
	}
	parsed, err := btcecdsa.ParseDERSignature(sig)
	if err != nil {
		return false
	}
	digest := Hash256(message)
	return parsed.Verify(digest[:], pub)
}
