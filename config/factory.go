package config

import (
	"github.com/tos-network/tinychain/core/types"
	"github.com/tos-network/tinychain/crypto"
)

// MakeBlock builds the next candidate block extending prev — a thin
// convenience so callers don't have to thread Target and CoinbaseReward
// through by hand at every call site.
func (c BlockchainConfig) MakeBlock(rewardAddr crypto.Address, prev *types.Block) *types.Block {
	return types.NewBlock(rewardAddr, prev, c.Target(), c.CoinbaseReward)
}

// MakeTransaction builds and signs a transaction moving funds from the
// given key pair, defaulting the fee to DefaultTxFee when fee is zero.
func (c BlockchainConfig) MakeTransaction(kp *crypto.KeyPair, nonce uint64, outputs []types.TxOutput, fee uint64, data map[string]string) *types.Transaction {
	if fee == 0 {
		fee = c.DefaultTxFee
	}
	tx := types.NewTransaction(kp.Address(), nonce, crypto.PublicKeyBytes(kp.Public), outputs, fee, data)
	tx.Sign(kp.Private)
	return tx
}
