package chain

import (
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/tos-network/tinychain/core/pow"
	"github.com/tos-network/tinychain/core/types"
	"github.com/tos-network/tinychain/crypto"
)

func mustKeyPair(t *testing.T) *crypto.KeyPair {
	t.Helper()
	kp, err := crypto.GenerateKeyPair()
	require.NoError(t, err)
	return kp
}

func chainOf(t *testing.T, n int) (*types.Block, []*types.Block) {
	t.Helper()
	alice := mustKeyPair(t)
	target := pow.TargetFromLeadingZeroes(0)
	genesis := types.NewGenesisBlock(map[crypto.Address]uint64{alice.Address(): 1000}, target, 25)

	blocks := make([]*types.Block, 0, n)
	prev := genesis
	for i := 0; i < n; i++ {
		b := types.NewBlock(alice.Address(), prev, target, 25)
		b.Proof = uint64(i) // any value satisfies the all-ones target
		blocks = append(blocks, b)
		prev = b
	}
	return genesis, blocks
}

func TestAdvanceHeadRequiresStrictlyGreaterChainLength(t *testing.T) {
	genesis, blocks := chainOf(t, 2)
	cs := New(genesis, 6)

	require.True(t, cs.AdvanceHead(blocks[0]))
	require.Equal(t, blocks[0].ID(), cs.LastBlock().ID())

	// A same-length competing block must not replace the head.
	alice := mustKeyPair(t)
	target := pow.TargetFromLeadingZeroes(0)
	competitor := types.NewBlock(alice.Address(), genesis, target, 25)
	competitor.Proof = 999
	require.False(t, cs.AdvanceHead(competitor))
	require.Equal(t, blocks[0].ID(), cs.LastBlock().ID())

	require.True(t, cs.AdvanceHead(blocks[1]))
	require.Equal(t, blocks[1].ID(), cs.LastBlock().ID())
}

func TestLastConfirmedBlockWalksBackExactlyConfirmedDepth(t *testing.T) {
	const depth = 6
	genesis, blocks := chainOf(t, depth)
	cs := New(genesis, depth)

	for i, b := range blocks {
		cs.Insert(b)
		require.True(t, cs.AdvanceHead(b))
		if i < depth-1 {
			// Head hasn't reached depth yet: confirmed stays at genesis.
			require.Equal(t, genesis.ID(), cs.LastConfirmedBlock().ID())
		}
	}
	// Head is now at chain_length == depth: confirmed block is the one
	// exactly `depth` hops back, i.e. genesis itself (blocks[0]'s parent).
	require.Equal(t, genesis.ID(), cs.LastConfirmedBlock().ID())

	extra := types.NewBlock(blocks[depth-1].RewardAddr, blocks[depth-1], pow.TargetFromLeadingZeroes(0), 25)
	extra.Proof = 1
	cs.Insert(extra)
	require.True(t, cs.AdvanceHead(extra))
	require.Equal(t, blocks[0].ID(), cs.LastConfirmedBlock().ID())
}

func TestLastConfirmedBlockStopsAtGenesisWhenChainIsShallow(t *testing.T) {
	genesis, blocks := chainOf(t, 2)
	cs := New(genesis, 6)
	cs.Insert(blocks[0])
	cs.Insert(blocks[1])
	require.True(t, cs.AdvanceHead(blocks[0]))
	require.True(t, cs.AdvanceHead(blocks[1]))
	require.Equal(t, genesis.ID(), cs.LastConfirmedBlock().ID())
}

func TestAddPendingReportsOnlyFirstForParent(t *testing.T) {
	genesis, blocks := chainOf(t, 2)
	cs := New(genesis, 6)

	first := cs.AddPending(blocks[0].ID(), blocks[1])
	require.True(t, first)

	alice := mustKeyPair(t)
	target := pow.TargetFromLeadingZeroes(0)
	sibling := types.NewBlock(alice.Address(), blocks[0], target, 25)
	sibling.Proof = 42

	second := cs.AddPending(blocks[0].ID(), sibling)
	require.False(t, second)
}

func TestPopPendingDrainsAndClearsTheBucket(t *testing.T) {
	genesis, blocks := chainOf(t, 2)
	cs := New(genesis, 6)

	cs.AddPending(blocks[0].ID(), blocks[1])
	popped := cs.PopPending(blocks[0].ID())
	require.Len(t, popped, 1)
	require.Equal(t, blocks[1].ID(), popped[0].ID())

	require.Empty(t, cs.PopPending(blocks[0].ID()))
}

func TestHasUsesRecentSeenCacheAndAuthoritativeMap(t *testing.T) {
	genesis, blocks := chainOf(t, 1)
	cs := New(genesis, 6)
	require.True(t, cs.Has(genesis.ID()))
	require.False(t, cs.Has(blocks[0].ID()))
	cs.Insert(blocks[0])
	require.True(t, cs.Has(blocks[0].ID()))
}
