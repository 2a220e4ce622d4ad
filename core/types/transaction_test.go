package types

import (
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/tos-network/tinychain/crypto"
)

func mustKeyPair(t *testing.T) *crypto.KeyPair {
	t.Helper()
	kp, err := crypto.GenerateKeyPair()
	require.NoError(t, err)
	return kp
}

func TestTransactionTotalOutput(t *testing.T) {
	kp := mustKeyPair(t)
	tx := NewTransaction(kp.Address(), 0, crypto.PublicKeyBytes(kp.Public), []TxOutput{
		{Amount: 10, Address: crypto.Address{1}},
		{Amount: 5, Address: crypto.Address{2}},
	}, 2, nil)
	require.Equal(t, uint64(17), tx.TotalOutput())
}

func TestTransactionSignAndVerify(t *testing.T) {
	kp := mustKeyPair(t)
	tx := NewTransaction(kp.Address(), 0, crypto.PublicKeyBytes(kp.Public), []TxOutput{
		{Amount: 10, Address: crypto.Address{1}},
	}, 1, nil)
	require.False(t, tx.ValidSignature(), "unsigned transaction must not validate")

	tx.Sign(kp.Private)
	require.True(t, tx.ValidSignature())
}

func TestTransactionTamperInvalidatesSignature(t *testing.T) {
	kp := mustKeyPair(t)
	tx := NewTransaction(kp.Address(), 0, crypto.PublicKeyBytes(kp.Public), []TxOutput{
		{Amount: 10, Address: crypto.Address{1}},
	}, 1, nil)
	tx.Sign(kp.Private)
	require.True(t, tx.ValidSignature())

	tx.Fee = 999
	require.False(t, tx.ValidSignature(), "tampering with a signed field must flip validity")
}

func TestTransactionSufficientFundsMonotone(t *testing.T) {
	kp := mustKeyPair(t)
	tx := NewTransaction(kp.Address(), 0, crypto.PublicKeyBytes(kp.Public), []TxOutput{
		{Amount: 10, Address: crypto.Address{1}},
	}, 1, nil)
	require.False(t, tx.SufficientFunds(5))
	require.True(t, tx.SufficientFunds(11))
	require.True(t, tx.SufficientFunds(100))
}

func TestTransactionIDDeterministic(t *testing.T) {
	kp := mustKeyPair(t)
	mk := func() *Transaction {
		return NewTransaction(kp.Address(), 3, crypto.PublicKeyBytes(kp.Public), []TxOutput{
			{Amount: 10, Address: crypto.Address{1}},
		}, 1, map[string]string{"memo": "hi"})
	}
	a, b := mk(), mk()
	require.Equal(t, a.ID(), b.ID())
}
