// Package simnet is an in-process Network simulator: every delivery
// runs in its own goroutine, messages are copied (never aliased) and
// may be dropped or delayed, modelling an unreliable real-world
// transport without requiring one.
package simnet

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/tos-network/tinychain/crypto"
	"github.com/tos-network/tinychain/network"
)

// Options parameterise the simulator's delivery unreliability.
type Options struct {
	// DropProbability is the chance, in [0,1], that a message is never
	// delivered at all.
	DropProbability float64
	// MaxDelay bounds the uniform random delivery delay; zero means no
	// added delay (delivery still runs on its own goroutine).
	MaxDelay time.Duration
	// RateLimit caps deliveries/second network-wide; zero disables it.
	RateLimit rate.Limit
}

// Network is an in-process Network implementation.
type Network struct {
	mu       sync.RWMutex
	opts     Options
	handles  map[string]network.Handle
	limiter  *rate.Limiter
	group    *errgroup.Group
	groupCtx context.Context
	rng      *rand.Rand
}

// New builds a simnet Network with the given Options. ctx bounds the
// lifetime of every goroutine spawned to deliver a delayed message.
func New(ctx context.Context, opts Options, seed int64) *Network {
	g, gctx := errgroup.WithContext(ctx)
	var limiter *rate.Limiter
	if opts.RateLimit > 0 {
		limiter = rate.NewLimiter(opts.RateLimit, 1)
	}
	return &Network{
		opts:     opts,
		handles:  map[string]network.Handle{},
		limiter:  limiter,
		group:    g,
		groupCtx: gctx,
		rng:      rand.New(rand.NewSource(seed)),
	}
}

// Register implements network.Network.
func (n *Network) Register(h network.Handle) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.handles[h.Address.String()] = h
}

// Recognises implements network.Network.
func (n *Network) Recognises(addr crypto.Address) bool {
	n.mu.RLock()
	defer n.mu.RUnlock()
	_, ok := n.handles[addr.String()]
	return ok
}

// Broadcast implements network.Network, delivering to every registered
// participant except from.
func (n *Network) Broadcast(from crypto.Address, kind network.Kind, payload []byte) {
	n.mu.RLock()
	targets := make([]network.Handle, 0, len(n.handles))
	for _, h := range n.handles {
		if h.Address == from {
			continue
		}
		targets = append(targets, h)
	}
	n.mu.RUnlock()

	for _, h := range targets {
		n.deliver(h, network.Message{Kind: kind, From: from, Payload: cloneBytes(payload)})
	}
}

// SendTo implements network.Network, delivering only to the named peer.
func (n *Network) SendTo(to crypto.Address, from crypto.Address, kind network.Kind, payload []byte) {
	n.mu.RLock()
	h, ok := n.handles[to.String()]
	n.mu.RUnlock()
	if !ok {
		return
	}
	n.deliver(h, network.Message{Kind: kind, From: from, Payload: cloneBytes(payload)})
}

func (n *Network) deliver(h network.Handle, msg network.Message) {
	if n.opts.DropProbability > 0 && n.rng.Float64() < n.opts.DropProbability {
		return
	}

	delay := time.Duration(0)
	if n.opts.MaxDelay > 0 {
		delay = time.Duration(n.rng.Int63n(int64(n.opts.MaxDelay)))
	}

	n.group.Go(func() error {
		if n.limiter != nil {
			if err := n.limiter.Wait(n.groupCtx); err != nil {
				return nil
			}
		}
		if delay > 0 {
			timer := time.NewTimer(delay)
			defer timer.Stop()
			select {
			case <-timer.C:
			case <-n.groupCtx.Done():
				return nil
			}
		}
		h.Deliver(msg)
		return nil
	})
}

// Wait blocks until every in-flight delivery goroutine has finished —
// useful in tests that want deterministic quiescence before asserting.
func (n *Network) Wait() error {
	return n.group.Wait()
}

func cloneBytes(b []byte) []byte {
	out := make([]byte, len(b))
	copy(out, b)
	return out
}
