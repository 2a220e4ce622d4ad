// Package chain implements ChainStore, the per-participant index of
// accepted and pending blocks.
package chain

import (
	"sync"

	mapset "github.com/deckarep/golang-set"
	lru "github.com/hashicorp/golang-lru"
	"github.com/tos-network/tinychain/core/types"
)

// recentBlockCacheSize bounds the LRU of recently-seen block ids used to
// short-circuit duplicate-gossip handling before touching the main map.
const recentBlockCacheSize = 4096

// ChainStore is the mapping block-id → block plus the pending-parent
// index and last-block/last-confirmed-block tracking.
type ChainStore struct {
	mu sync.RWMutex

	blocks                 map[types.BlockID]*types.Block
	pendingByMissingParent map[types.BlockID]mapset.Set // set of *types.Block

	lastBlock          *types.Block
	lastConfirmedBlock *types.Block
	confirmedDepth     uint64

	recentSeen *lru.Cache
}

// New builds a ChainStore seeded with the genesis block.
func New(genesis *types.Block, confirmedDepth uint64) *ChainStore {
	recent, _ := lru.New(recentBlockCacheSize)
	cs := &ChainStore{
		blocks:                 map[types.BlockID]*types.Block{genesis.ID(): genesis},
		pendingByMissingParent: map[types.BlockID]mapset.Set{},
		lastBlock:              genesis,
		lastConfirmedBlock:     genesis,
		confirmedDepth:         confirmedDepth,
		recentSeen:             recent,
	}
	cs.recentSeen.Add(genesis.ID(), struct{}{})
	return cs
}

// Get looks up a block by id.
func (cs *ChainStore) Get(id types.BlockID) (*types.Block, bool) {
	cs.mu.RLock()
	defer cs.mu.RUnlock()
	b, ok := cs.blocks[id]
	return b, ok
}

// Has reports whether id has already been accepted — the idempotence
// check a received block is tested against first, fast-pathed through
// the recent-block LRU before falling back to the authoritative map.
func (cs *ChainStore) Has(id types.BlockID) bool {
	if _, ok := cs.recentSeen.Get(id); ok {
		return true
	}
	cs.mu.RLock()
	defer cs.mu.RUnlock()
	_, ok := cs.blocks[id]
	return ok
}

// Insert records a newly accepted block.
func (cs *ChainStore) Insert(b *types.Block) {
	id := b.ID()
	cs.mu.Lock()
	cs.blocks[id] = b
	cs.mu.Unlock()
	cs.recentSeen.Add(id, struct{}{})
}

// LastBlock returns the current chain head.
func (cs *ChainStore) LastBlock() *types.Block {
	cs.mu.RLock()
	defer cs.mu.RUnlock()
	return cs.lastBlock
}

// LastConfirmedBlock returns the ancestor of LastBlock at depth
// confirmedDepth (or genesis if the chain is shallower).
func (cs *ChainStore) LastConfirmedBlock() *types.Block {
	cs.mu.RLock()
	defer cs.mu.RUnlock()
	return cs.lastConfirmedBlock
}

// AdvanceHead sets b as the new head if it strictly extends the current
// one (a strictly-greater chain length, never a tie) and recomputes
// LastConfirmedBlock. Returns whether the head changed.
func (cs *ChainStore) AdvanceHead(b *types.Block) bool {
	cs.mu.Lock()
	defer cs.mu.Unlock()
	if b.ChainLength <= cs.lastBlock.ChainLength {
		return false
	}
	cs.lastBlock = b
	cs.lastConfirmedBlock = cs.walkBackLocked(b, cs.confirmedDepth)
	return true
}

func (cs *ChainStore) walkBackLocked(b *types.Block, depth uint64) *types.Block {
	cur := b
	for i := uint64(0); i < depth && !cur.IsGenesis; i++ {
		parent, ok := cs.blocks[cur.PrevBlockHash]
		if !ok {
			break
		}
		cur = parent
	}
	return cur
}

// AddPending buffers b under its missing parent id and reports whether
// this was the first block waiting on that parent (the caller uses this
// to decide whether to emit a single MissingBlock request).
func (cs *ChainStore) AddPending(missingParent types.BlockID, b *types.Block) (firstForParent bool) {
	cs.mu.Lock()
	defer cs.mu.Unlock()
	set, ok := cs.pendingByMissingParent[missingParent]
	if !ok {
		set = mapset.NewThreadUnsafeSet()
		cs.pendingByMissingParent[missingParent] = set
	}
	firstForParent = set.Cardinality() == 0
	set.Add(b)
	return firstForParent
}

// PopPending removes and returns every block that was waiting on
// parentID, so the caller can retry accepting each of them now that
// their parent has arrived.
func (cs *ChainStore) PopPending(parentID types.BlockID) []*types.Block {
	cs.mu.Lock()
	defer cs.mu.Unlock()
	set, ok := cs.pendingByMissingParent[parentID]
	if !ok {
		return nil
	}
	delete(cs.pendingByMissingParent, parentID)
	out := make([]*types.Block, 0, set.Cardinality())
	for v := range set.Iter() {
		out = append(out, v.(*types.Block))
	}
	return out
}

