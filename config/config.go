// Package config holds BlockchainConfig, the tunable constants shared
// by every participant in a tinychain network, and the genesis
// construction helpers built from it.
package config

import (
	"github.com/tos-network/tinychain/core/pow"
	"github.com/tos-network/tinychain/core/types"
	"github.com/tos-network/tinychain/crypto"
	"github.com/holiman/uint256"
)

// Defaults mirror the reference parameters used in this chain's
// worked examples.
const (
	DefaultPowLeadingZeroes = 15
	DefaultCoinbaseReward   = 25
	DefaultTxFee            = 1
	DefaultConfirmedDepth   = 6
)

// BlockchainConfig is the agreed-upon parameter set every participant of
// a given network must share; two participants running mismatched
// configs cannot meaningfully validate each other's blocks.
type BlockchainConfig struct {
	PowLeadingZeroes uint              `toml:"pow_leading_zeroes"`
	CoinbaseReward   uint64            `toml:"coinbase_reward"`
	DefaultTxFee     uint64            `toml:"default_tx_fee"`
	ConfirmedDepth   uint64            `toml:"confirmed_depth"`
	InitialBalances  map[string]uint64 `toml:"initial_balances"`
}

// Default returns the BlockchainConfig used by this chain's worked
// examples.
func Default() BlockchainConfig {
	return BlockchainConfig{
		PowLeadingZeroes: DefaultPowLeadingZeroes,
		CoinbaseReward:   DefaultCoinbaseReward,
		DefaultTxFee:     DefaultTxFee,
		ConfirmedDepth:   DefaultConfirmedDepth,
		InitialBalances:  map[string]uint64{},
	}
}

// Target computes the proof-of-work target implied by PowLeadingZeroes.
func (c BlockchainConfig) Target() *uint256.Int {
	return pow.TargetFromLeadingZeroes(c.PowLeadingZeroes)
}

// GenesisBalances resolves the configured initial balances (keyed by
// base64 address string, the config-file-friendly form) into the
// crypto.Address-keyed map NewGenesisBlock expects.
func (c BlockchainConfig) GenesisBalances() (map[crypto.Address]uint64, error) {
	out := make(map[crypto.Address]uint64, len(c.InitialBalances))
	for s, amount := range c.InitialBalances {
		addr, err := crypto.AddressFromString(s)
		if err != nil {
			return nil, err
		}
		out[addr] = amount
	}
	return out, nil
}

// Genesis builds the network's genesis block from this config.
func (c BlockchainConfig) Genesis() (*types.Block, error) {
	balances, err := c.GenesisBalances()
	if err != nil {
		return nil, err
	}
	return types.NewGenesisBlock(balances, c.Target(), c.CoinbaseReward), nil
}
