package simnet

import (
	"context"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/tos-network/tinychain/crypto"
	"github.com/tos-network/tinychain/network"
)

func TestBroadcastReachesEveryoneButSender(t *testing.T) {
	net := New(context.Background(), Options{}, 1)

	alice := crypto.Address{1}
	bob := crypto.Address{2}
	carol := crypto.Address{3}

	var bobGot, carolGot, aliceGot int32
	net.Register(network.Handle{Address: alice, Deliver: func(network.Message) { atomic.AddInt32(&aliceGot, 1) }})
	net.Register(network.Handle{Address: bob, Deliver: func(network.Message) { atomic.AddInt32(&bobGot, 1) }})
	net.Register(network.Handle{Address: carol, Deliver: func(network.Message) { atomic.AddInt32(&carolGot, 1) }})

	net.Broadcast(alice, network.PostTransaction, []byte("payload"))
	require.NoError(t, net.Wait())

	require.Equal(t, int32(0), aliceGot, "sender must not receive its own broadcast")
	require.Equal(t, int32(1), bobGot)
	require.Equal(t, int32(1), carolGot)
}

func TestSendToDeliversOnlyToTarget(t *testing.T) {
	net := New(context.Background(), Options{}, 2)

	bob := crypto.Address{2}
	carol := crypto.Address{3}

	var bobGot, carolGot int32
	net.Register(network.Handle{Address: bob, Deliver: func(network.Message) { atomic.AddInt32(&bobGot, 1) }})
	net.Register(network.Handle{Address: carol, Deliver: func(network.Message) { atomic.AddInt32(&carolGot, 1) }})

	net.SendTo(bob, carol, network.MissingBlock, []byte("req"))
	require.NoError(t, net.Wait())

	require.Equal(t, int32(1), bobGot)
	require.Equal(t, int32(0), carolGot)
}

func TestRecognises(t *testing.T) {
	net := New(context.Background(), Options{}, 3)
	bob := crypto.Address{2}
	require.False(t, net.Recognises(bob))
	net.Register(network.Handle{Address: bob, Deliver: func(network.Message) {}})
	require.True(t, net.Recognises(bob))
}

func TestDropProbabilityOneDropsEverything(t *testing.T) {
	net := New(context.Background(), Options{DropProbability: 1}, 4)
	bob := crypto.Address{2}
	var got int32
	net.Register(network.Handle{Address: bob, Deliver: func(network.Message) { atomic.AddInt32(&got, 1) }})

	net.SendTo(bob, crypto.Address{1}, network.PostTransaction, []byte("x"))
	require.NoError(t, net.Wait())
	require.Equal(t, int32(0), got)
}
