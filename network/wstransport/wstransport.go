// Package wstransport is a websocket-backed network.Network: each peer
// holds one persistent connection per remote participant and frames
// every Message as a single JSON text message. It is a real
// multi-process transport, as opposed to network/simnet's in-process
// simulator.
package wstransport

import (
	"encoding/json"
	"net/http"
	"sync"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/tos-network/tinychain/crypto"
	"github.com/tos-network/tinychain/internal/tlog"
	"github.com/tos-network/tinychain/network"
)

// envelope is the on-the-wire framing of a network.Message: Payload is
// already the wire-serialised Transaction/Block/MissingBlockRequest, so
// this only adds routing metadata.
type envelope struct {
	Kind    network.Kind    `json:"kind"`
	From    crypto.Address  `json:"from"`
	Payload json.RawMessage `json:"payload"`
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	CheckOrigin:     func(*http.Request) bool { return true },
}

// peer is one live websocket connection to a remote participant.
type peer struct {
	id   string
	conn *websocket.Conn
	out  chan envelope
}

// Transport is a network.Network backed by websocket connections. A
// local participant Registers once; every other participant it talks
// to is reached through a peer connection added via Connect or Accept.
type Transport struct {
	mu      sync.RWMutex
	handles map[string]network.Handle // by Address.String()
	peers   map[string]*peer          // by peer connection id, fanned out to all handles
	log     *tlog.Logger
}

// New builds an empty Transport.
func New() *Transport {
	return &Transport{
		handles: map[string]network.Handle{},
		peers:   map[string]*peer{},
		log:     tlog.New("network", "wstransport"),
	}
}

// Register implements network.Network: the local participant is
// recorded so inbound frames and same-process SendTo/Broadcast calls
// can reach it directly without a network round-trip.
func (t *Transport) Register(h network.Handle) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.handles[h.Address.String()] = h
}

// Recognises implements network.Network.
func (t *Transport) Recognises(addr crypto.Address) bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	_, ok := t.handles[addr.String()]
	return ok
}

// Connect dials a remote peer's websocket endpoint and begins reading
// frames from it, fanning each out to every locally registered handle.
func (t *Transport) Connect(url string) error {
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		return err
	}
	t.addPeer(conn)
	return nil
}

// Accept upgrades an inbound HTTP connection to a websocket peer — wire
// this as an http.HandlerFunc on the participant's listen address.
func (t *Transport) Accept(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		t.log.Error("websocket upgrade failed", "err", err)
		return
	}
	t.addPeer(conn)
}

func (t *Transport) addPeer(conn *websocket.Conn) {
	p := &peer{id: uuid.NewString(), conn: conn, out: make(chan envelope, 64)}

	t.mu.Lock()
	t.peers[p.id] = p
	t.mu.Unlock()

	go t.writeLoop(p)
	go t.readLoop(p)
}

func (t *Transport) writeLoop(p *peer) {
	for env := range p.out {
		if err := p.conn.WriteJSON(env); err != nil {
			t.log.Warn("dropping peer after write error", "peer", p.id, "err", err)
			t.removePeer(p)
			return
		}
	}
}

func (t *Transport) readLoop(p *peer) {
	defer t.removePeer(p)
	for {
		var env envelope
		if err := p.conn.ReadJSON(&env); err != nil {
			return
		}
		t.deliverLocally(network.Message{Kind: env.Kind, From: env.From, Payload: env.Payload})
	}
}

func (t *Transport) removePeer(p *peer) {
	t.mu.Lock()
	delete(t.peers, p.id)
	t.mu.Unlock()
	close(p.out)
	p.conn.Close()
}

func (t *Transport) deliverLocally(msg network.Message) {
	t.mu.RLock()
	handles := make([]network.Handle, 0, len(t.handles))
	for _, h := range t.handles {
		handles = append(handles, h)
	}
	t.mu.RUnlock()

	for _, h := range handles {
		h.Deliver(msg)
	}
}

// Broadcast implements network.Network: delivers to every local handle
// except from and forwards the frame to every connected peer.
func (t *Transport) Broadcast(from crypto.Address, kind network.Kind, payload []byte) {
	t.mu.RLock()
	for _, h := range t.handles {
		if h.Address != from {
			go h.Deliver(network.Message{Kind: kind, From: from, Payload: payload})
		}
	}
	peers := make([]*peer, 0, len(t.peers))
	for _, p := range t.peers {
		peers = append(peers, p)
	}
	t.mu.RUnlock()

	env := envelope{Kind: kind, From: from, Payload: json.RawMessage(payload)}
	for _, p := range peers {
		p.out <- env
	}
}

// SendTo implements network.Network: wstransport has no routing table
// keyed by Address across the wire, so a targeted send is a local
// deliver if the target is registered in-process, and otherwise a
// Broadcast (to every local handle except from and to every connected
// peer). Receivers do not filter by target; every one of them handles
// the message as it would a broadcast. This is how a MissingBlock reply
// finds its way back to the requester in a small gossip network.
func (t *Transport) SendTo(to crypto.Address, from crypto.Address, kind network.Kind, payload []byte) {
	t.mu.RLock()
	h, local := t.handles[to.String()]
	t.mu.RUnlock()
	if local {
		go h.Deliver(network.Message{Kind: kind, From: from, Payload: payload})
		return
	}
	t.Broadcast(from, kind, payload)
}
