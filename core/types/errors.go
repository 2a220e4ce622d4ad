package types

import "errors"

// Sentinel errors naming the reasons Block.AddTransaction can reject (or
// defer) a transaction. AddTransaction itself reports acceptance as a
// bool; callers that want to log *why* a transaction was rejected
// classify it with these via ClassifyRejection.
var (
	ErrDuplicateTransaction = errors.New("types: duplicate transaction")
	ErrInvalidSignature     = errors.New("types: invalid or missing signature")
	ErrInsufficientFunds    = errors.New("types: insufficient funds")
	ErrReplayedNonce        = errors.New("types: replayed nonce")
	ErrOutOfOrderNonce      = errors.New("types: out-of-order nonce, deferred")
)

// ClassifyRejection re-derives the reason a transaction was rejected by
// (or deferred from) block b, for logging only — it performs the same
// checks AddTransaction does, in the same order, without mutating
// state.
func ClassifyRejection(b *Block, tx *Transaction) error {
	if b.Contains(tx) {
		return ErrDuplicateTransaction
	}
	if len(tx.Sig) == 0 || !tx.ValidSignature() {
		return ErrInvalidSignature
	}
	if !tx.SufficientFunds(b.Balances[tx.From]) {
		return ErrInsufficientFunds
	}
	expected := b.NextNonce[tx.From]
	if tx.Nonce < expected {
		return ErrReplayedNonce
	}
	if tx.Nonce > expected {
		return ErrOutOfOrderNonce
	}
	return nil
}
