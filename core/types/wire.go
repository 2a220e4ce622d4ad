package types

import (
	"encoding/base64"
	"encoding/json"
	"fmt"

	"github.com/tos-network/tinychain/crypto"
)

// Wire JSON forms. These are distinct from the canonical hashing
// encoding in encode.go/block.go: the hashing encoding exists to make
// ids stable and cheap to compare, while the wire form exists to be
// read by any JSON-speaking transport (a websocket client, a CLI dump).

type txOutputWire struct {
	Amount  uint64 `json:"amount"`
	Address string `json:"address"`
}

type txWire struct {
	From    string            `json:"from"`
	Nonce   uint64            `json:"nonce"`
	PubKey  string            `json:"pub_key"`
	Outputs []txOutputWire    `json:"outputs"`
	Fee     uint64            `json:"fee"`
	Data    map[string]string `json:"data"`
	Sig     string            `json:"sig,omitempty"`
}

// MarshalJSON implements the Transaction wire form.
func (tx *Transaction) MarshalJSON() ([]byte, error) {
	w := txWire{
		From:   tx.From.String(),
		Nonce:  tx.Nonce,
		PubKey: base64.StdEncoding.EncodeToString(tx.PubKey),
		Fee:    tx.Fee,
		Data:   tx.Data,
	}
	for _, o := range tx.Outputs {
		w.Outputs = append(w.Outputs, txOutputWire{Amount: o.Amount, Address: o.Address.String()})
	}
	if len(tx.Sig) > 0 {
		w.Sig = base64.StdEncoding.EncodeToString(tx.Sig)
	}
	return json.Marshal(w)
}

// UnmarshalJSON parses the Transaction wire form.
func (tx *Transaction) UnmarshalJSON(data []byte) error {
	var w txWire
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	from, err := crypto.AddressFromString(w.From)
	if err != nil {
		return fmt.Errorf("types: transaction.from: %w", err)
	}
	pubKey, err := base64.StdEncoding.DecodeString(w.PubKey)
	if err != nil {
		return fmt.Errorf("types: transaction.pub_key: %w", err)
	}
	outputs := make([]TxOutput, 0, len(w.Outputs))
	for _, o := range w.Outputs {
		addr, err := crypto.AddressFromString(o.Address)
		if err != nil {
			return fmt.Errorf("types: transaction.outputs.address: %w", err)
		}
		outputs = append(outputs, TxOutput{Amount: o.Amount, Address: addr})
	}
	tx.From = from
	tx.Nonce = w.Nonce
	tx.PubKey = pubKey
	tx.Outputs = outputs
	tx.Fee = w.Fee
	tx.Data = w.Data
	if w.Sig != "" {
		sig, err := base64.StdEncoding.DecodeString(w.Sig)
		if err != nil {
			return fmt.Errorf("types: transaction.sig: %w", err)
		}
		tx.Sig = sig
	}
	return nil
}

type balanceEntryWire struct {
	Address string `json:"address"`
	Amount  uint64 `json:"amount"`
}

type txEntryWire struct {
	ID string           `json:"id"`
	Tx *json.RawMessage `json:"tx"`
}

type blockWire struct {
	ChainLength   uint64             `json:"chain_length"`
	Timestamp     int64              `json:"timestamp"`
	Transactions  []txEntryWire      `json:"transactions,omitempty"`
	Balances      []balanceEntryWire `json:"balances,omitempty"`
	PrevBlockHash string             `json:"prev_block_hash,omitempty"`
	Proof         uint64             `json:"proof,omitempty"`
	RewardAddr    string             `json:"reward_addr,omitempty"`
}

// MarshalJSON implements the Block wire form: genesis blocks carry
// `balances`; all other blocks carry `transactions` (as ordered
// {id, tx} entries), `prev_block_hash`, `proof` and `reward_addr`.
func (b *Block) MarshalJSON() ([]byte, error) {
	w := blockWire{
		ChainLength: b.ChainLength,
		Timestamp:   b.Timestamp.UnixNano(),
	}
	if b.IsGenesis {
		addrs := make([]crypto.Address, 0, len(b.Balances))
		for a := range b.Balances {
			addrs = append(addrs, a)
		}
		sortAddresses(addrs)
		for _, a := range addrs {
			w.Balances = append(w.Balances, balanceEntryWire{Address: a.String(), Amount: b.Balances[a]})
		}
		return json.Marshal(w)
	}

	for _, id := range b.txOrder {
		tx := b.txByID[id]
		raw, err := json.Marshal(tx)
		if err != nil {
			return nil, err
		}
		rm := json.RawMessage(raw)
		w.Transactions = append(w.Transactions, txEntryWire{
			ID: base64.StdEncoding.EncodeToString(id[:]),
			Tx: &rm,
		})
	}
	w.PrevBlockHash = base64.StdEncoding.EncodeToString(b.PrevBlockHash[:])
	w.Proof = b.Proof
	w.RewardAddr = b.RewardAddr.String()
	return json.Marshal(w)
}

// UnmarshalJSON parses the Block wire form. Derived state (Balances for
// non-genesis blocks, NextNonce) is left empty; the caller reconstructs
// it via Rerun against a known parent. Target and CoinbaseReward are not
// part of the wire form and are left unset (nil and 0); the caller
// fills them in from its BlockchainConfig.
func (b *Block) UnmarshalJSON(data []byte) error {
	var w blockWire
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	b.ChainLength = w.ChainLength
	b.Timestamp = timeFromUnixNano(w.Timestamp)
	b.txByID = map[TxID]*Transaction{}

	if len(w.Balances) > 0 || (w.ChainLength == 0 && len(w.Transactions) == 0 && w.PrevBlockHash == "") {
		b.IsGenesis = true
		b.Balances = map[crypto.Address]uint64{}
		b.NextNonce = map[crypto.Address]uint64{}
		for _, entry := range w.Balances {
			addr, err := crypto.AddressFromString(entry.Address)
			if err != nil {
				return fmt.Errorf("types: block.balances.address: %w", err)
			}
			b.Balances[addr] = entry.Amount
		}
		return nil
	}

	for _, entry := range w.Transactions {
		var tx Transaction
		if entry.Tx != nil {
			if err := json.Unmarshal(*entry.Tx, &tx); err != nil {
				return fmt.Errorf("types: block.transactions: %w", err)
			}
		}
		id := tx.ID()
		b.txOrder = append(b.txOrder, id)
		b.txByID[id] = &tx
	}
	prevHash, err := base64.StdEncoding.DecodeString(w.PrevBlockHash)
	if err != nil {
		return fmt.Errorf("types: block.prev_block_hash: %w", err)
	}
	copy(b.PrevBlockHash[:], prevHash)
	b.Proof = w.Proof
	rewardAddr, err := crypto.AddressFromString(w.RewardAddr)
	if err != nil {
		return fmt.Errorf("types: block.reward_addr: %w", err)
	}
	b.RewardAddr = rewardAddr
	return nil
}
