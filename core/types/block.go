package types

import (
	"encoding/hex"
	"errors"
	"time"

	"github.com/holiman/uint256"
	"github.com/tos-network/tinychain/core/pow"
	"github.com/tos-network/tinychain/crypto"
)

// BlockID identifies a sealed Block: the hash of its canonical
// serialisation.
type BlockID [32]byte

func (id BlockID) IsZero() bool { return id == BlockID{} }

// String returns the hex encoding used in logs and the CLI.
func (id BlockID) String() string { return hex.EncodeToString(id[:]) }

// ErrReplayFailed names the replay-failure rejection. Block.Rerun itself
// reports failure as a bool and does not return this error.
var (
	ErrReplayFailed = errors.New("types: block replay failed re-applying a transaction")
)

// Block is an account-ledger snapshot secured by proof-of-work.
type Block struct {
	ChainLength     uint64
	IsGenesis       bool
	PrevBlockHash   BlockID // zero on genesis
	Timestamp       time.Time
	Target          *uint256.Int
	Proof           uint64
	RewardAddr      crypto.Address // zero address on genesis
	CoinbaseReward  uint64

	txOrder []TxID
	txByID  map[TxID]*Transaction

	// Derived state, reconstructed by replay; excluded from the
	// non-genesis wire form.
	Balances  map[crypto.Address]uint64
	NextNonce map[crypto.Address]uint64
}

func cloneBalances(m map[crypto.Address]uint64) map[crypto.Address]uint64 {
	out := make(map[crypto.Address]uint64, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func cloneNonces(m map[crypto.Address]uint64) map[crypto.Address]uint64 {
	out := make(map[crypto.Address]uint64, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// NewGenesisBlock constructs the chain_length-0 block carrying the
// initial account balances directly as its payload.
func NewGenesisBlock(initialBalances map[crypto.Address]uint64, target *uint256.Int, coinbaseReward uint64) *Block {
	b := &Block{
		ChainLength:    0,
		IsGenesis:      true,
		Timestamp:      time.Now(),
		Target:         target,
		CoinbaseReward: coinbaseReward,
		txOrder:        nil,
		txByID:         map[TxID]*Transaction{},
		Balances:       cloneBalances(initialBalances),
		NextNonce:      map[crypto.Address]uint64{},
	}
	return b
}

// NewBlock constructs a block extending prev, under construction by the
// miner at rewardAddr. The previous block's reward_addr (if any) is
// credited with its coinbase reward plus accumulated fees at this point
// — rewards become visible one block later than they were earned.
func NewBlock(rewardAddr crypto.Address, prev *Block, target *uint256.Int, coinbaseReward uint64) *Block {
	b := &Block{
		ChainLength:    prev.ChainLength + 1,
		IsGenesis:      false,
		PrevBlockHash:  prev.ID(),
		Timestamp:      time.Now(),
		Target:         target,
		RewardAddr:     rewardAddr,
		CoinbaseReward: coinbaseReward,
		txOrder:        nil,
		txByID:         map[TxID]*Transaction{},
		Balances:       cloneBalances(prev.Balances),
		NextNonce:      cloneNonces(prev.NextNonce),
	}
	if !prev.RewardAddr.IsZero() {
		b.Balances[prev.RewardAddr] += prev.TotalRewards()
	}
	return b
}

// Transactions returns the block's transactions in insertion (apply)
// order.
func (b *Block) Transactions() []*Transaction {
	out := make([]*Transaction, len(b.txOrder))
	for i, id := range b.txOrder {
		out[i] = b.txByID[id]
	}
	return out
}

// Contains is a membership test by transaction id.
func (b *Block) Contains(tx *Transaction) bool {
	_, ok := b.txByID[tx.ID()]
	return ok
}

// AddTransaction validates and, if accepted, atomically applies tx to
// the block's running balances and nonces. It rejects, in order:
// duplicates, missing/invalid signatures, insufficient funds, a
// replayed nonce, and defers an out-of-order nonce.
func (b *Block) AddTransaction(tx *Transaction) bool {
	id := tx.ID()
	if _, dup := b.txByID[id]; dup {
		return false // DuplicateTransaction
	}
	if len(tx.Sig) == 0 {
		return false // InvalidSignature: absent
	}
	if !tx.ValidSignature() {
		return false // InvalidSignature: does not verify
	}
	if !tx.SufficientFunds(b.Balances[tx.From]) {
		return false // InsufficientFunds
	}
	expected := b.NextNonce[tx.From]
	if tx.Nonce < expected {
		return false // ReplayedNonce
	}
	if tx.Nonce > expected {
		return false // OutOfOrderNonce: deferred, not included now
	}

	b.txOrder = append(b.txOrder, id)
	b.txByID[id] = tx
	b.Balances[tx.From] -= tx.TotalOutput()
	for _, out := range tx.Outputs {
		b.Balances[out.Address] += out.Amount
	}
	b.NextNonce[tx.From] = tx.Nonce + 1
	return true
}

// TotalRewards is coinbase_reward + Σ fees of the block's transactions.
func (b *Block) TotalRewards() uint64 {
	total := b.CoinbaseReward
	for _, tx := range b.Transactions() {
		total += tx.Fee
	}
	return total
}

// HasValidProof reports whether the block's sealed hash, read as a
// 256-bit unsigned integer, is strictly below Target.
func (b *Block) HasValidProof() bool {
	return pow.HashMeetsTarget([32]byte(b.ID()), b.Target)
}

// ID is the block id: the hash of its canonical serialisation. It is
// recomputed on every call rather than cached, since Proof changes on
// every mining iteration; stability across serialise/deserialise/rerun
// comes from derived state (Balances, NextNonce) being excluded from
// the serialised form, not from caching.
func (b *Block) ID() BlockID {
	return BlockID(crypto.Hash256([]byte("tinychain-block-id"), b.Serialise()))
}

// Serialise produces the stable, canonical wire encoding: genesis
// blocks carry their balances directly; all other blocks carry their
// ordered transaction list, parent hash, proof and reward address.
// Derived state (Balances, NextNonce) is never part of a non-genesis
// block's encoding.
func (b *Block) Serialise() []byte {
	e := newCanonicalEncoder()
	e.writeUint64(b.ChainLength)
	e.writeUint64(uint64(b.Timestamp.UnixNano()))

	if b.IsGenesis {
		e.buf.WriteByte(1) // genesis marker
		addrs := make([]crypto.Address, 0, len(b.Balances))
		for a := range b.Balances {
			addrs = append(addrs, a)
		}
		sortAddresses(addrs)
		e.writeUint64(uint64(len(addrs)))
		for _, a := range addrs {
			e.buf.Write(a[:])
			e.writeUint64(b.Balances[a])
		}
		return e.bytes()
	}

	e.buf.WriteByte(0)
	e.writeUint64(uint64(len(b.txOrder)))
	for _, id := range b.txOrder {
		e.buf.Write(id[:])
		e.writeBytes(txWireBytes(b.txByID[id]))
	}
	e.buf.Write(b.PrevBlockHash[:])
	e.writeUint64(b.Proof)
	e.buf.Write(b.RewardAddr[:])
	return e.bytes()
}

// Rerun replays tx against a fresh copy of prev's balances/nonces,
// crediting prev's accumulated reward first. On failure (any
// transaction no longer applies) the block is left with partially
// applied state and must be discarded by the caller.
func (b *Block) Rerun(prev *Block) bool {
	b.Balances = cloneBalances(prev.Balances)
	b.NextNonce = cloneNonces(prev.NextNonce)
	if !prev.RewardAddr.IsZero() {
		b.Balances[prev.RewardAddr] += prev.TotalRewards()
	}

	existing := b.Transactions()
	b.txOrder = nil
	b.txByID = map[TxID]*Transaction{}
	for _, tx := range existing {
		if !b.AddTransaction(tx) {
			return false
		}
	}
	return true
}

func sortAddresses(addrs []crypto.Address) {
	for i := 1; i < len(addrs); i++ {
		for j := i; j > 0; j-- {
			if string(addrs[j-1][:]) <= string(addrs[j][:]) {
				break
			}
			addrs[j-1], addrs[j] = addrs[j], addrs[j-1]
		}
	}
}

// txWireBytes is the transaction serial form: from, nonce, pub_key,
// outputs, fee, data, sig.
func txWireBytes(tx *Transaction) []byte {
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
	e.writeBytes(tx.Sig)
	return e.bytes()
}
