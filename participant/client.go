// Package participant implements Client, the base participant: it posts
// transactions, tracks its own pending-outgoing set, and runs the
// block-acceptance consensus pipeline.
package participant

import (
	"errors"
	"sync"

	"github.com/tos-network/tinychain/config"
	"github.com/tos-network/tinychain/core/chain"
	"github.com/tos-network/tinychain/core/types"
	"github.com/tos-network/tinychain/crypto"
	"github.com/tos-network/tinychain/internal/tlog"
	"github.com/tos-network/tinychain/network"
)

// ErrInsufficientFunds is returned by PostTransaction when the payer's
// available balance cannot cover the requested outputs and fee.
var ErrInsufficientFunds = errors.New("participant: insufficient funds")

// Client is the base participant: a key pair, a nonce counter, a
// pending-outgoing set and a ChainStore, wired to a Network.
type Client struct {
	mu sync.Mutex

	keyPair *crypto.KeyPair
	address crypto.Address
	nonce   uint64

	pendingOutgoing map[types.TxID]*types.Transaction

	store *chain.ChainStore
	net   network.Network
	cfg   config.BlockchainConfig
	log   *tlog.Logger

	// onTransaction and onBlockAccepted let Miner extend the base
	// pipeline (AddToCurrentBlock, syncTransactions/startNewSearch)
	// without a Client/Miner inheritance hierarchy: Miner owns a Client
	// and installs hooks rather than overriding virtual methods.
	onTransaction   func(tx *types.Transaction)
	onBlockAccepted func(b *types.Block, headChanged bool)
}

// New constructs a Client seeded with genesis, registers it with net
// and installs its listeners. A pure client has no transaction hook
// installed by default, since it never builds blocks of its own.
func New(kp *crypto.KeyPair, genesis *types.Block, cfg config.BlockchainConfig, net network.Network) *Client {
	c := &Client{
		keyPair:         kp,
		address:         kp.Address(),
		pendingOutgoing: map[types.TxID]*types.Transaction{},
		store:           chain.New(genesis, cfg.ConfirmedDepth),
		net:             net,
		cfg:             cfg,
		log:             tlog.New("participant", kp.Address().String()[:8]),
	}
	net.Register(network.Handle{Address: c.address, Deliver: c.deliver})
	return c
}

// Address returns the client's account address.
func (c *Client) Address() crypto.Address { return c.address }

// Store exposes the underlying ChainStore (miner.Miner embeds a Client
// and needs direct access to build on LastBlock()).
func (c *Client) Store() *chain.ChainStore { return c.store }

// Config returns the BlockchainConfig this client was constructed with.
func (c *Client) Config() config.BlockchainConfig { return c.cfg }

// Network returns the transport this client is registered on.
func (c *Client) Network() network.Network { return c.net }

// KeyPair returns the client's signing key pair.
func (c *Client) KeyPair() *crypto.KeyPair { return c.keyPair }

// SetTransactionHook installs fn to run whenever this client observes a
// PostTransaction message from the network — Miner uses this to feed
// the block it currently has under construction.
func (c *Client) SetTransactionHook(fn func(tx *types.Transaction)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onTransaction = fn
}

// SetBlockAcceptedHook installs fn to run after receiveBlockLocked
// accepts a block, reporting whether the head changed — Miner uses
// this to resynchronise its block under construction against the new
// tip.
func (c *Client) SetBlockAcceptedHook(fn func(b *types.Block, headChanged bool)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onBlockAccepted = fn
}

func (c *Client) deliver(msg network.Message) {
	switch msg.Kind {
	case network.ProofFound:
		var b types.Block
		if err := b.UnmarshalJSON(msg.Payload); err != nil {
			c.log.Warn("discarding malformed block", "err", err)
			return
		}
		// Target and CoinbaseReward are not part of the wire form; every
		// participant of a network shares the same BlockchainConfig.
		b.Target = c.cfg.Target()
		b.CoinbaseReward = c.cfg.CoinbaseReward
		c.ReceiveBlock(&b)
	case network.MissingBlock:
		req, err := decodeMissingBlockRequest(msg.Payload)
		if err != nil {
			c.log.Warn("discarding malformed missing-block request", "err", err)
			return
		}
		c.ProvideMissingBlock(req)
	case network.PostTransaction:
		// A pure Client does not build blocks and has no use for
		// other peers' transactions; Miner installs onTransaction to
		// feed the block it has under construction.
		c.mu.Lock()
		hook := c.onTransaction
		c.mu.Unlock()
		if hook == nil {
			return
		}
		var tx types.Transaction
		if err := tx.UnmarshalJSON(msg.Payload); err != nil {
			c.log.Warn("discarding malformed transaction", "err", err)
			return
		}
		hook(&tx)
	}
}

// PostTransaction constructs, signs, records and broadcasts a transfer.
func (c *Client) PostTransaction(outputs []types.TxOutput, fee uint64) (*types.Transaction, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.sufficientFundsLocked(outputs, fee) {
		return nil, ErrInsufficientFunds
	}

	tx := types.NewTransaction(c.address, c.nonce, crypto.PublicKeyBytes(c.keyPair.Public), outputs, fee, nil)
	tx.Sign(c.keyPair.Private)

	c.pendingOutgoing[tx.ID()] = tx
	c.nonce++

	c.broadcastTx(tx)
	return tx, nil
}

func (c *Client) sufficientFundsLocked(outputs []types.TxOutput, fee uint64) bool {
	total := fee
	for _, o := range outputs {
		total += o.Amount
	}
	return total <= c.availableGoldLocked()
}

// ConfirmedBalance returns last_confirmed_block.balances[self.address].
func (c *Client) ConfirmedBalance() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.store.LastConfirmedBlock().Balances[c.address]
}

// AvailableGold is confirmed_balance minus the total of every pending
// outgoing transaction — funds already committed but not yet confirmed.
func (c *Client) AvailableGold() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.availableGoldLocked()
}

func (c *Client) availableGoldLocked() uint64 {
	balance := c.store.LastConfirmedBlock().Balances[c.address]
	var pending uint64
	for _, tx := range c.pendingOutgoing {
		pending += tx.TotalOutput()
	}
	if pending > balance {
		return 0
	}
	return balance - pending
}

// ResendPendingTransactions rebroadcasts every still-pending outgoing
// transaction; idempotent, used after reconnection.
func (c *Client) ResendPendingTransactions() {
	c.mu.Lock()
	pending := make([]*types.Transaction, 0, len(c.pendingOutgoing))
	for _, tx := range c.pendingOutgoing {
		pending = append(pending, tx)
	}
	c.mu.Unlock()

	for _, tx := range pending {
		c.broadcastTx(tx)
	}
}

func (c *Client) broadcastTx(tx *types.Transaction) {
	data, err := tx.MarshalJSON()
	if err != nil {
		c.log.Error("failed to marshal transaction", "err", err)
		return
	}
	c.net.Broadcast(c.address, network.PostTransaction, data)
}

// acceptedBlock records one accepted block and whether it changed the
// head, so hook invocation can happen after the lock is released —
// onBlockAccepted (Miner's syncTransactions/startNewSearch) must be
// free to call back into the Client's own exported, locking methods.
type acceptedBlock struct {
	block       *types.Block
	headChanged bool
}

// ReceiveBlock runs the block-acceptance consensus pipeline:
// idempotence check, proof check, parent lookup/buffer, re-execution,
// head advancement, and recursive replay of anything that was waiting
// on this block as its parent.
func (c *Client) ReceiveBlock(b *types.Block) {
	c.mu.Lock()
	var accepted []acceptedBlock
	c.receiveBlockLocked(b, &accepted)
	hook := c.onBlockAccepted
	c.mu.Unlock()

	if hook == nil {
		return
	}
	for _, a := range accepted {
		hook(a.block, a.headChanged)
	}
}

func (c *Client) receiveBlockLocked(b *types.Block, accepted *[]acceptedBlock) {
	id := b.ID()

	// 1. idempotence
	if c.store.Has(id) {
		return
	}

	// 2. proof check (genesis is exempt)
	if !b.IsGenesis && !b.HasValidProof() {
		c.log.Warn("discarding block with invalid proof", "block", id.String())
		return
	}

	// 3. parent lookup / buffering
	var parent *types.Block
	if !b.IsGenesis {
		p, ok := c.store.Get(b.PrevBlockHash)
		if !ok {
			first := c.store.AddPending(b.PrevBlockHash, b)
			if first {
				c.requestMissingBlock(b.PrevBlockHash)
			}
			return
		}
		parent = p
	}

	// 4. re-execution
	if !b.IsGenesis {
		if !b.Rerun(parent) {
			c.log.Warn("discarding block that failed replay", "block", id.String())
			return
		}
	}
	c.store.Insert(b)

	// 5. head advancement + pending-outgoing pruning
	headChanged := c.store.AdvanceHead(b)
	if headChanged {
		c.pruneConfirmedLocked()
	}
	*accepted = append(*accepted, acceptedBlock{block: b, headChanged: headChanged})

	// 6. recursively accept anything waiting on b
	for _, child := range c.store.PopPending(id) {
		c.receiveBlockLocked(child, accepted)
	}
}

func (c *Client) pruneConfirmedLocked() {
	confirmed := c.store.LastConfirmedBlock()
	for txID, tx := range c.pendingOutgoing {
		if confirmed.Contains(tx) {
			delete(c.pendingOutgoing, txID)
		}
	}
}

func (c *Client) requestMissingBlock(missing types.BlockID) {
	req := network.MissingBlockRequest{From: c.address, Missing: missing}
	c.net.Broadcast(c.address, network.MissingBlock, encodeMissingBlockRequest(req))
}

// ProvideMissingBlock answers a MissingBlock request if the block is known.
func (c *Client) ProvideMissingBlock(req network.MissingBlockRequest) {
	c.mu.Lock()
	b, ok := c.store.Get(req.Missing)
	c.mu.Unlock()
	if !ok {
		return
	}
	wire, err := b.MarshalJSON()
	if err != nil {
		c.log.Error("failed to marshal block reply", "err", err)
		return
	}
	c.net.SendTo(req.From, c.address, network.ProofFound, wire)
}
