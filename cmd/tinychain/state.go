package main

import (
	"encoding/json"
	"os"

	"github.com/tos-network/tinychain/crypto"
)

// persistedState is the optional save/load payload: the participant's
// name, listen endpoint, key pair, and known peers. The chain itself is
// never persisted — a restarted participant re-obtains it from peers
// via MissingBlock.
type persistedState struct {
	Name    string
	Listen  string
	Peers   []string
	KeyPair *crypto.KeyPair
}

type persistedStateWire struct {
	Name       string   `json:"name"`
	Listen     string   `json:"listen"`
	Peers      []string `json:"peers"`
	PrivateKey []byte   `json:"private_key"`
}

func loadOrCreateState(path, name string) (*persistedState, error) {
	if path == "" {
		kp, err := crypto.GenerateKeyPair()
		if err != nil {
			return nil, err
		}
		return &persistedState{Name: name, KeyPair: kp}, nil
	}

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		kp, genErr := crypto.GenerateKeyPair()
		if genErr != nil {
			return nil, genErr
		}
		return &persistedState{Name: name, KeyPair: kp}, nil
	}
	if err != nil {
		return nil, err
	}

	var wire persistedStateWire
	if err := json.Unmarshal(data, &wire); err != nil {
		return nil, err
	}
	kp, err := crypto.KeyPairFromPrivateBytes(wire.PrivateKey)
	if err != nil {
		return nil, err
	}
	return &persistedState{Name: wire.Name, Listen: wire.Listen, Peers: wire.Peers, KeyPair: kp}, nil
}

func saveState(path string, s *persistedState) error {
	wire := persistedStateWire{
		Name:       s.Name,
		Listen:     s.Listen,
		Peers:      s.Peers,
		PrivateKey: crypto.PrivateKeyBytes(s.KeyPair),
	}
	data, err := json.MarshalIndent(wire, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o600)
}
