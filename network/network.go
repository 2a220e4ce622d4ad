// Package network defines the broadcast-capable transport abstraction
// participants use to exchange transactions and blocks.
package network

import "github.com/tos-network/tinychain/crypto"

// Kind identifies the payload carried by a Message.
type Kind int

const (
	// PostTransaction carries a signed Transaction (wire-serialised).
	PostTransaction Kind = iota
	// ProofFound carries a sealed Block (wire-serialised).
	ProofFound
	// MissingBlock carries a MissingBlockRequest.
	MissingBlock
	// StartMining is intra-miner only; it never crosses a real
	// transport but is modelled here for dispatch uniformity.
	StartMining
)

func (k Kind) String() string {
	switch k {
	case PostTransaction:
		return "POST_TRANSACTION"
	case ProofFound:
		return "PROOF_FOUND"
	case MissingBlock:
		return "MISSING_BLOCK"
	case StartMining:
		return "START_MINING"
	default:
		return "UNKNOWN"
	}
}

// MissingBlockRequest is the MISSING_BLOCK payload.
type MissingBlockRequest struct {
	From    crypto.Address `json:"from"`
	Missing [32]byte       `json:"missing"`
}

// Message is a routed envelope. Payload is the wire-serialised form of
// a Transaction or Block (JSON bytes), or a MissingBlockRequest for
// MissingBlock — kept opaque here so Network never needs to import
// core/types, keeping transport layered strictly beneath domain
// packages.
type Message struct {
	Kind    Kind
	From    crypto.Address
	Payload []byte
}

// Handle is what a participant registers with a Network: its address
// and the callback invoked for every Message routed to it.
type Handle struct {
	Address crypto.Address
	Deliver func(Message)
}

// Network is the transport surface every participant relies on. Each
// participant is registered once and receives Deliver calls for
// messages addressed to it or broadcast generally.
type Network interface {
	Register(h Handle)
	Broadcast(from crypto.Address, kind Kind, payload []byte)
	SendTo(to crypto.Address, from crypto.Address, kind Kind, payload []byte)
	Recognises(addr crypto.Address) bool
}
