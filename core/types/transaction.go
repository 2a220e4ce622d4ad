// Package types implements the data model of the ledger: Transaction
// and Block, their canonical encodings and the replay / proof-of-work
// checks they carry.
package types

import (
	"encoding/hex"
	"sync"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/tos-network/tinychain/crypto"
)

// TxOutput is one (amount, address) pair of a Transaction's outputs.
type TxOutput struct {
	Amount  uint64
	Address crypto.Address
}

// TxID identifies a Transaction: the hash of its signed field set.
type TxID [32]byte

// String returns the hex encoding used in logs and the CLI.
func (id TxID) String() string { return hex.EncodeToString(id[:]) }

// Transaction is a signed transfer record, immutable after Sign is
// called.
type Transaction struct {
	From    crypto.Address
	Nonce   uint64
	PubKey  []byte // compressed serialised public key matching From
	Outputs []TxOutput
	Fee     uint64
	Data    map[string]string
	Sig     []byte // absent (nil) on an unsigned transaction

	idOnce sync.Once
	id     TxID
}

// NewTransaction constructs an unsigned Transaction.
func NewTransaction(from crypto.Address, nonce uint64, pubKey []byte, outputs []TxOutput, fee uint64, data map[string]string) *Transaction {
	if data == nil {
		data = map[string]string{}
	}
	return &Transaction{
		From:    from,
		Nonce:   nonce,
		PubKey:  append([]byte(nil), pubKey...),
		Outputs: append([]TxOutput(nil), outputs...),
		Fee:     fee,
		Data:    data,
	}
}

// signedFieldBytes is the canonical serialisation of (from, nonce,
// pub_key, outputs, fee, data) — the field set both the id and the
// signature commit to.
func (tx *Transaction) signedFieldBytes() []byte {
	e := newCanonicalEncoder()
	e.buf.Write(tx.From[:])
	e.writeUint64(tx.Nonce)
	e.writeBytes(tx.PubKey)
	e.writeUint64(uint64(len(tx.Outputs)))
	for _, o := range tx.Outputs {
		e.writeUint64(o.Amount)
		e.buf.Write(o.Address[:])
	}
	e.writeUint64(tx.Fee)
	e.writeStringMap(tx.Data)
	return e.bytes()
}

// ID returns the transaction id: SHA-256 over a domain-separated
// serialisation of the signed field set. It is computed lazily and
// cached — mutating a Transaction after first computing its id produces
// a stale id, which is the caller's responsibility to avoid
// (transactions are immutable once signed).
func (tx *Transaction) ID() TxID {
	tx.idOnce.Do(func() {
		tx.id = TxID(crypto.Hash256([]byte("tinychain-tx-id"), tx.signedFieldBytes()))
	})
	return tx.id
}

// Sign signs the transaction's id with priv, setting Sig.
func (tx *Transaction) Sign(priv *btcec.PrivateKey) {
	id := tx.ID()
	tx.Sig = crypto.Sign(priv, id[:])
}

// ValidSignature reports whether the transaction carries a signature,
// the address of PubKey matches From, and the signature verifies against
// PubKey. The id it verifies is recomputed from the current field set
// rather than taken from the ID cache, so a field changed after signing
// makes the signature invalid.
func (tx *Transaction) ValidSignature() bool {
	if len(tx.Sig) == 0 {
		return false
	}
	pub, err := crypto.ParsePublicKey(tx.PubKey)
	if err != nil {
		return false
	}
	if crypto.AddressOf(tx.PubKey) != tx.From {
		return false
	}
	id := crypto.Hash256([]byte("tinychain-tx-id"), tx.signedFieldBytes())
	return crypto.Verify(pub, id[:], tx.Sig)
}

// TotalOutput is fee + Σ outputs[i].amount.
func (tx *Transaction) TotalOutput() uint64 {
	total := tx.Fee
	for _, o := range tx.Outputs {
		total += o.Amount
	}
	return total
}

// SufficientFunds reports whether the payer's balance covers
// TotalOutput.
func (tx *Transaction) SufficientFunds(balance uint64) bool {
	return tx.TotalOutput() <= balance
}
