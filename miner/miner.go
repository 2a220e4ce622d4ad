// Package miner implements Miner, the proof-of-work block producer. A
// Miner owns a participant.Client rather than extending it, avoiding an
// inheritance cycle between Client and Miner in favor of composition.
package miner

import (
	"context"
	"sync"

	mapset "github.com/deckarep/golang-set"
	"github.com/tos-network/tinychain/config"
	"github.com/tos-network/tinychain/core/types"
	"github.com/tos-network/tinychain/crypto"
	"github.com/tos-network/tinychain/internal/tlog"
	"github.com/tos-network/tinychain/network"
	"github.com/tos-network/tinychain/participant"
)

// DefaultMiningRounds is the number of proof attempts a single
// FindProof call makes before yielding.
const DefaultMiningRounds = 2000

// Miner composes a participant.Client and additionally maintains a
// Block under construction, searching for a valid proof in bounded
// chunks so it cooperatively yields to the dispatcher between rounds.
type Miner struct {
	*participant.Client

	mu           sync.Mutex
	currentBlock *types.Block
	miningRounds uint64
	log          *tlog.Logger
}

// New builds a Miner at kp's address, owning a fresh Client seeded with
// genesis, and calls Initialize. It does not start mining on its own —
// call Run (or FindProof repeatedly) to actually search for proofs.
func New(kp *crypto.KeyPair, genesis *types.Block, cfg config.BlockchainConfig, net network.Network, miningRounds uint64) *Miner {
	if miningRounds == 0 {
		miningRounds = DefaultMiningRounds
	}
	client := participant.New(kp, genesis, cfg, net)
	m := &Miner{
		Client:       client,
		miningRounds: miningRounds,
		log:          tlog.New("miner", kp.Address().String()[:8]),
	}
	m.Initialize()
	return m
}

// Initialize starts a fresh current block extending the client's
// current head and installs the miner's listeners.
func (m *Miner) Initialize() {
	m.mu.Lock()
	cfg := m.Client.Config()
	m.currentBlock = cfg.MakeBlock(m.Client.Address(), m.Client.Store().LastBlock())
	m.mu.Unlock()

	m.Client.SetTransactionHook(func(tx *types.Transaction) { m.AddToCurrentBlock(tx) })
	m.Client.SetBlockAcceptedHook(m.onBlockAccepted)
}

// Run drives FindProof in a loop — start, search, re-arm — until ctx
// is cancelled. Each chunk runs to completion before the next loop
// iteration, and the gap between iterations is the cooperative yield
// that lets queued inbound messages (delivered on other goroutines) be
// serviced in between.
func (m *Miner) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		default:
			m.FindProof()
		}
	}
}

// CurrentBlock returns the block presently under construction.
func (m *Miner) CurrentBlock() *types.Block {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.currentBlock
}

// AddToCurrentBlock delegates to current_block.add_transaction, logging
// the reason on rejection so a dropped or deferred transaction doesn't
// vanish silently.
func (m *Miner) AddToCurrentBlock(tx *types.Transaction) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.currentBlock.AddTransaction(tx) {
		return true
	}
	m.log.Warn("rejected transaction", "id", tx.ID(), "reason", types.ClassifyRejection(m.currentBlock, tx))
	return false
}

// FindProof runs one bounded proof-search chunk: it
// tries at most miningRounds proofs, and on success announces the
// block, folds it into the miner's own chain view, and starts a new
// search carrying forward any transactions the new block doesn't yet
// contain.
func (m *Miner) FindProof() {
	m.mu.Lock()
	block := m.currentBlock
	end := block.Proof + m.miningRounds
	found := false
	for block.Proof < end {
		if block.HasValidProof() {
			found = true
			break
		}
		block.Proof++
	}
	m.mu.Unlock()

	if found {
		m.announce(block)
	}
}

func (m *Miner) announce(block *types.Block) {
	wire, err := block.MarshalJSON()
	if err != nil {
		m.log.Error("failed to marshal sealed block", "err", err)
		return
	}
	m.Client.Network().Broadcast(m.Client.Address(), network.ProofFound, wire)
	// Folding the block through the normal receive-block pipeline keeps
	// the miner's own chain state identical to every other participant's.
	m.Client.ReceiveBlock(block)
}

// onBlockAccepted is the Client hook installed by Initialize: whenever
// a block advances to at least the current_block's chain length, the
// in-progress search is abandoned and restarted on top of the new tip,
// carrying forward transactions the new branch doesn't already contain.
func (m *Miner) onBlockAccepted(b *types.Block, headChanged bool) {
	m.mu.Lock()
	obsolete := b.ChainLength >= m.currentBlock.ChainLength
	oldBlock := m.currentBlock
	m.mu.Unlock()

	if !headChanged || !obsolete {
		return
	}
	carry := m.syncTransactions(oldBlock, b)
	m.startNewSearch(b, carry)
}

func (m *Miner) startNewSearch(newHead *types.Block, carry []*types.Transaction) {
	cfg := m.Client.Config()
	next := cfg.MakeBlock(m.Client.Address(), newHead)
	for _, tx := range carry {
		next.AddTransaction(tx) // failures (already confirmed elsewhere) are silently dropped
	}

	m.mu.Lock()
	m.currentBlock = next
	m.mu.Unlock()
}

// syncTransactions walks the discarded fork rooted at oldBlock back at
// most ConfirmedDepth blocks, collecting every transaction seen along
// the way but absent from newHead — the carry-forward set a restarted
// search re-applies to the new block. The walk is bounded by
// ConfirmedDepth rather than replaying back to a common ancestor, and
// only newHead's own transactions are checked, not its ancestors'.
func (m *Miner) syncTransactions(oldBlock, newHead *types.Block) []*types.Transaction {
	seenIDs := mapset.NewThreadUnsafeSet()
	var carry []*types.Transaction

	store := m.Client.Store()
	cur := oldBlock
	for depth := uint64(0); depth < m.Client.Config().ConfirmedDepth && !cur.IsGenesis; depth++ {
		for _, tx := range cur.Transactions() {
			if newHead.Contains(tx) || seenIDs.Contains(tx.ID()) {
				continue
			}
			seenIDs.Add(tx.ID())
			carry = append(carry, tx)
		}
		parent, ok := store.Get(cur.PrevBlockHash)
		if !ok {
			break
		}
		cur = parent
	}
	return carry
}
