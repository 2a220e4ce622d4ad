package participant

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/tos-network/tinychain/config"
	"github.com/tos-network/tinychain/core/types"
	"github.com/tos-network/tinychain/crypto"
	"github.com/tos-network/tinychain/network"
	"github.com/tos-network/tinychain/network/simnet"
)

func newTestNetwork(t *testing.T) *simnet.Network {
	t.Helper()
	return simnet.New(context.Background(), simnet.Options{}, 42)
}

func TestPostTransactionRejectsInsufficientFunds(t *testing.T) {
	alice, err := crypto.GenerateKeyPair()
	require.NoError(t, err)
	bob, err := crypto.GenerateKeyPair()
	require.NoError(t, err)

	cfg := config.Default()
	cfg.InitialBalances[alice.Address().String()] = 10
	genesis, err := cfg.Genesis()
	require.NoError(t, err)

	net := newTestNetwork(t)
	client := New(alice, genesis, cfg, net)

	_, err = client.PostTransaction([]types.TxOutput{{Amount: 40, Address: bob.Address()}}, 1)
	require.ErrorIs(t, err, ErrInsufficientFunds)
}

func TestReceiveBlockAdvancesHeadAndPrunesPending(t *testing.T) {
	alice, err := crypto.GenerateKeyPair()
	require.NoError(t, err)
	bob, err := crypto.GenerateKeyPair()
	require.NoError(t, err)

	cfg := config.Default()
	cfg.PowLeadingZeroes = 0 // any hash satisfies the target, keeps the test fast
	cfg.InitialBalances[alice.Address().String()] = 100
	genesis, err := cfg.Genesis()
	require.NoError(t, err)

	net := newTestNetwork(t)
	client := New(alice, genesis, cfg, net)

	tx, err := client.PostTransaction([]types.TxOutput{{Amount: 10, Address: bob.Address()}}, 1)
	require.NoError(t, err)
	require.Len(t, client.pendingOutgoing, 1)

	block := cfg.MakeBlock(bob.Address(), genesis)
	require.True(t, block.AddTransaction(tx))
	require.True(t, block.HasValidProof())

	// The tx only becomes confirmed once last_confirmed_block walks back
	// to block1, i.e. once the head is ConfirmedDepth+1 blocks deep.
	for i := 0; i <= int(cfg.ConfirmedDepth); i++ {
		client.ReceiveBlock(block)
		block = cfg.MakeBlock(bob.Address(), block)
	}

	require.Equal(t, uint64(89), client.ConfirmedBalance())
	require.Empty(t, client.pendingOutgoing, "confirmed transaction must be pruned from pending_outgoing")
}

func TestReceiveBlockBuffersOnMissingParentAndRequests(t *testing.T) {
	alice, err := crypto.GenerateKeyPair()
	require.NoError(t, err)
	bob, err := crypto.GenerateKeyPair()
	require.NoError(t, err)

	cfg := config.Default()
	cfg.PowLeadingZeroes = 0
	cfg.InitialBalances[alice.Address().String()] = 100
	genesis, err := cfg.Genesis()
	require.NoError(t, err)

	net := newTestNetwork(t)
	client := New(alice, genesis, cfg, net)

	requested := 0
	net.Register(network.Handle{
		Address: bob.Address(),
		Deliver: func(msg network.Message) {
			if msg.Kind == network.MissingBlock {
				requested++
			}
		},
	})

	block1 := cfg.MakeBlock(bob.Address(), genesis)
	block2 := cfg.MakeBlock(bob.Address(), block1)

	client.ReceiveBlock(block2) // parent (block1) unknown: must buffer
	require.NoError(t, net.Wait())
	require.Equal(t, 1, requested)
	require.False(t, client.Store().Has(block2.ID()))

	client.ReceiveBlock(block1)
	require.NoError(t, net.Wait())
	require.True(t, client.Store().Has(block1.ID()))
	require.True(t, client.Store().Has(block2.ID()), "buffered child must be replayed once its parent arrives")
}
