// Copyright 2026 Blink Labs Software
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package main

import (
	"flag"
	"fmt"
	"maps"
	"os"
	"slices"

	"github.com/blinklabs-io/escrowmarket/config"
)

type globalFlags struct {
	flagset    *flag.FlagSet
	configFile string
	network    string
	dataDir    string
	keyFile    string
	logLevel   string
}

func newGlobalFlags() *globalFlags {
	f := &globalFlags{
		flagset: flag.NewFlagSet(os.Args[0], flag.ExitOnError),
	}
	f.flagset.StringVar(
		&f.configFile,
		"config",
		"escrowmarket.toml",
		"path to config file (created with defaults if missing)",
	)
	f.flagset.StringVar(
		&f.network,
		"network",
		"",
		"network name. this overrides the config file",
	)
	f.flagset.StringVar(
		&f.dataDir,
		"data-dir",
		"",
		"ledger data directory. this overrides the config file",
	)
	f.flagset.StringVar(
		&f.keyFile,
		"key-file",
		"",
		"file holding the hex ed25519 seed of the wallet key. this overrides the config file",
	)
	f.flagset.StringVar(
		&f.logLevel,
		"log-level",
		"",
		"log level (debug, info, warn, error). this overrides the config file",
	)
	return f
}

// loadConfig loads the config file and applies the flag overrides
func (f *globalFlags) loadConfig() (*config.Config, error) {
	cfg, err := config.Load(f.configFile)
	if err != nil {
		return nil, err
	}
	if f.network != "" {
		cfg.Network = f.network
	}
	if f.dataDir != "" {
		cfg.DataDir = f.dataDir
	}
	if f.keyFile != "" {
		cfg.KeyFile = f.keyFile
	}
	if f.logLevel != "" {
		cfg.LogLevel = f.logLevel
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

type subcommand struct {
	usage string
	run   func(a *app, args []string) error
}

var subcommands = map[string]subcommand{
	"keygen":         {usage: "create a wallet key", run: runKeygen},
	"address":        {usage: "print the wallet address", run: runAddress},
	"deploy":         {usage: "deploy the market contract", run: runDeploy},
	"fund":           {usage: "add a genesis output paying the wallet", run: runFund},
	"wallet":         {usage: "list the spendable wallet outputs", run: runWallet},
	"state":          {usage: "print the market slots", run: runState},
	"export":         {usage: "print the contract output as utxorpc JSON", run: runExport},
	"list":           {usage: "list an asset for sale", run: runList},
	"request-buy":    {usage: "deposit the price for a listing", run: runRequestBuy},
	"confirm-buy":    {usage: "hand over the asset and collect the price", run: runConfirmBuy},
	"cancel-buy":     {usage: "withdraw a buy request", run: runCancelBuy},
	"cancel-listing": {usage: "withdraw a listing", run: runCancelListing},
	"serve":          {usage: "serve metrics and accept transactions over HTTP", run: runServe},
}

func usage(f *globalFlags) {
	fmt.Printf("Usage: %s [options] <subcommand> [subcommand options]\n\n", os.Args[0])
	fmt.Printf("Subcommands:\n")
	for _, name := range sortedSubcommands() {
		fmt.Printf("  %-16s %s\n", name, subcommands[name].usage)
	}
	fmt.Printf("\nOptions:\n")
	f.flagset.PrintDefaults()
}

func main() {
	f := newGlobalFlags()
	err := f.flagset.Parse(os.Args[1:])
	if err != nil {
		fmt.Printf("failed to parse command args: %s\n", err)
		os.Exit(1)
	}
	if len(f.flagset.Args()) == 0 {
		usage(f)
		os.Exit(1)
	}
	cmd, ok := subcommands[f.flagset.Arg(0)]
	if !ok {
		fmt.Printf("Unknown subcommand: %s\n", f.flagset.Arg(0))
		os.Exit(1)
	}
	cfg, err := f.loadConfig()
	if err != nil {
		fmt.Printf("failed to load config: %s\n", err)
		os.Exit(1)
	}
	a, err := newApp(cfg)
	if err != nil {
		fmt.Printf("failed to open ledger: %s\n", err)
		os.Exit(1)
	}
	err = cmd.run(a, f.flagset.Args()[1:])
	if closeErr := a.Close(); closeErr != nil {
		a.logger.Error("failed to close ledger", "error", closeErr)
	}
	if err != nil {
		fmt.Printf("%s: %s\n", f.flagset.Arg(0), err)
		os.Exit(1)
	}
}

func sortedSubcommands() []string {
	return slices.Sorted(maps.Keys(subcommands))
}
