package config

import (
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/tos-network/tinychain/core/types"
	"github.com/tos-network/tinychain/crypto"
)

func TestGenesisBalancesRoundTrip(t *testing.T) {
	kp, err := crypto.GenerateKeyPair()
	require.NoError(t, err)

	cfg := Default()
	cfg.InitialBalances[kp.Address().String()] = 500

	balances, err := cfg.GenesisBalances()
	require.NoError(t, err)
	require.Equal(t, uint64(500), balances[kp.Address()])

	genesis, err := cfg.Genesis()
	require.NoError(t, err)
	require.True(t, genesis.IsGenesis)
	require.Equal(t, uint64(500), genesis.Balances[kp.Address()])
}

func TestMakeTransactionDefaultsFee(t *testing.T) {
	cfg := Default()
	kp, err := crypto.GenerateKeyPair()
	require.NoError(t, err)
	bob, err := crypto.GenerateKeyPair()
	require.NoError(t, err)

	tx := cfg.MakeTransaction(kp, 0, []types.TxOutput{{Amount: 10, Address: bob.Address()}}, 0, nil)
	require.Equal(t, cfg.DefaultTxFee, tx.Fee)
	require.True(t, tx.ValidSignature())
}
