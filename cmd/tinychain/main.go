// Command tinychain drives a single participant (client or miner) of a
// tinychain network from the command line.
package main

import (
	"fmt"
	"os"

	"github.com/urfave/cli/v2"
)

var gitCommit = ""
var gitDate = ""

var (
	configFlag = &cli.StringFlag{
		Name:  "config",
		Usage: "path to a BlockchainConfig TOML file",
	}
	nameFlag = &cli.StringFlag{
		Name:  "name",
		Usage: "participant name, used for logging and the save-state file",
		Value: "participant",
	}
	listenFlag = &cli.StringFlag{
		Name:  "listen",
		Usage: "address to accept websocket peer connections on, e.g. :7700",
	}
	mineFlag = &cli.BoolFlag{
		Name:  "mine",
		Usage: "run as a miner instead of a plain client",
	}
	roundsFlag = &cli.Uint64Flag{
		Name:  "mining-rounds",
		Usage: "proof attempts per find_proof chunk",
		Value: 2000,
	}
	stateFlag = &cli.StringFlag{
		Name:  "state",
		Usage: "path to a persisted participant state file to load/save",
	}
)

func main() {
	app := &cli.App{
		Name:    "tinychain",
		Usage:   "run a participant in a pedagogical proof-of-work blockchain",
		Version: fmt.Sprintf("%s (%s)", gitCommit, gitDate),
		Flags:   []cli.Flag{configFlag, nameFlag, listenFlag, mineFlag, roundsFlag, stateFlag},
		Action:  runInteractive,
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, "tinychain:", err)
		os.Exit(1)
	}
}
