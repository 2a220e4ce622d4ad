package wstransport

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/tos-network/tinychain/crypto"
	"github.com/tos-network/tinychain/network"
)

func TestRecognisesReflectsRegistration(t *testing.T) {
	tr := New()
	addr := crypto.Address{9}
	require.False(t, tr.Recognises(addr))
	tr.Register(network.Handle{Address: addr, Deliver: func(network.Message) {}})
	require.True(t, tr.Recognises(addr))
}

func TestBroadcastSkipsSenderAmongLocalHandles(t *testing.T) {
	tr := New()
	alice := crypto.Address{1}
	bob := crypto.Address{2}

	var mu sync.Mutex
	var aliceGot, bobGot bool
	tr.Register(network.Handle{Address: alice, Deliver: func(network.Message) {
		mu.Lock()
		aliceGot = true
		mu.Unlock()
	}})
	tr.Register(network.Handle{Address: bob, Deliver: func(network.Message) {
		mu.Lock()
		bobGot = true
		mu.Unlock()
	}})

	tr.Broadcast(alice, network.PostTransaction, []byte("x"))

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return bobGot
	}, time.Second, time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	require.False(t, aliceGot, "sender must not receive its own broadcast")
	require.True(t, bobGot)
}

func TestSendToLocalHandleBypassesPeers(t *testing.T) {
	tr := New()
	bob := crypto.Address{2}

	delivered := make(chan network.Message, 1)
	tr.Register(network.Handle{Address: bob, Deliver: func(m network.Message) { delivered <- m }})

	tr.SendTo(bob, crypto.Address{1}, network.MissingBlock, []byte("req"))

	select {
	case msg := <-delivered:
		require.Equal(t, network.MissingBlock, msg.Kind)
	case <-time.After(time.Second):
		t.Fatal("expected local delivery")
	}
}
