package main

import (
	"bufio"
	"context"
	"fmt"
	"net/http"
	"os"
	"strconv"
	"strings"

	"github.com/urfave/cli/v2"

	"github.com/tos-network/tinychain/config"
	"github.com/tos-network/tinychain/core/types"
	"github.com/tos-network/tinychain/crypto"
	minerpkg "github.com/tos-network/tinychain/miner"
	"github.com/tos-network/tinychain/network"
	"github.com/tos-network/tinychain/network/simnet"
	"github.com/tos-network/tinychain/network/wstransport"
	"github.com/tos-network/tinychain/participant"
)

// session bundles whichever participant kind this process is running
// as, exposing the handful of operations the REPL dispatches to.
type session struct {
	client *participant.Client
	miner  *minerpkg.Miner
	cfg    config.BlockchainConfig
	net    network.Network
}

func runInteractive(c *cli.Context) error {
	cfg := config.Default()
	if path := c.String("config"); path != "" {
		loaded, err := config.LoadFile(path)
		if err != nil {
			return err
		}
		cfg = loaded
	}

	state, err := loadOrCreateState(c.String("state"), c.String("name"))
	if err != nil {
		return err
	}

	genesis, err := cfg.Genesis()
	if err != nil {
		return fmt.Errorf("building genesis: %w", err)
	}

	net := wireNetwork(c)

	s := &session{cfg: cfg, net: net}
	if c.Bool("mine") {
		s.miner = minerpkg.New(state.KeyPair, genesis, cfg, net, c.Uint64("mining-rounds"))
		s.client = s.miner.Client
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		go s.miner.Run(ctx)
	} else {
		s.client = participant.New(state.KeyPair, genesis, cfg, net)
	}

	fmt.Printf("tinychain: %s ready at %s\n", c.String("name"), s.client.Address())
	return s.repl(c.String("state"), state)
}

func wireNetwork(c *cli.Context) network.Network {
	addr := c.String("listen")
	if addr == "" {
		return simnet.New(context.Background(), simnet.Options{}, 0)
	}
	tr := wstransport.New()
	go func() {
		if err := http.ListenAndServe(addr, http.HandlerFunc(tr.Accept)); err != nil {
			fmt.Fprintln(os.Stderr, "tinychain: listen:", err)
		}
	}()
	return tr
}

func (s *session) repl(statePath string, state *persistedState) error {
	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("> ")
		if !scanner.Scan() {
			return scanner.Err()
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		fields := strings.Fields(line)
		switch fields[0] {
		case "connect":
			s.cmdConnect(fields)
		case "transfer":
			s.cmdTransfer(fields)
		case "resend":
			s.client.ResendPendingTransactions()
		case "balances":
			s.cmdBalances()
		case "dump":
			s.cmdDump()
		case "save":
			s.cmdSave(statePath, state, fields)
		case "exit", "quit":
			return nil
		default:
			fmt.Println("unknown command:", fields[0])
		}
	}
}

func (s *session) cmdConnect(fields []string) {
	tr, ok := s.net.(*wstransport.Transport)
	if !ok {
		fmt.Println("connect requires --listen (a simulator network has no peers to dial)")
		return
	}
	if len(fields) != 2 {
		fmt.Println("usage: connect <ws://host:port>")
		return
	}
	if err := tr.Connect(fields[1]); err != nil {
		fmt.Println("connect failed:", err)
	}
}

func (s *session) cmdTransfer(fields []string) {
	if len(fields) != 3 {
		fmt.Println("usage: transfer <amount> <address>")
		return
	}
	amount, err := strconv.ParseUint(fields[1], 10, 64)
	if err != nil {
		fmt.Println("invalid amount:", err)
		return
	}
	addr, err := crypto.AddressFromString(fields[2])
	if err != nil {
		fmt.Println("invalid address:", err)
		return
	}
	tx, err := s.client.PostTransaction([]types.TxOutput{{Amount: amount, Address: addr}}, s.cfg.DefaultTxFee)
	if err != nil {
		fmt.Println("transfer failed:", err)
		return
	}
	fmt.Printf("posted transaction %s\n", tx.ID())
}

func (s *session) cmdBalances() {
	fmt.Printf("address:           %s\n", s.client.Address())
	fmt.Printf("confirmed balance: %d\n", s.client.ConfirmedBalance())
	fmt.Printf("available gold:    %d\n", s.client.AvailableGold())
}

func (s *session) cmdDump() {
	head := s.client.Store().LastBlock()
	fmt.Printf("head chain_length=%d id=%s\n", head.ChainLength, head.ID())
	for addr, balance := range head.Balances {
		fmt.Printf("  %s = %d\n", addr, balance)
	}
}

func (s *session) cmdSave(statePath string, state *persistedState, fields []string) {
	path := statePath
	if len(fields) == 2 {
		path = fields[1]
	}
	if path == "" {
		fmt.Println("usage: save <path> (or pass --state at startup)")
		return
	}
	if err := saveState(path, state); err != nil {
		fmt.Println("save failed:", err)
		return
	}
	fmt.Println("saved state to", path)
}
