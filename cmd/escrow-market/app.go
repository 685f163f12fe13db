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
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/blinklabs-io/escrowmarket/config"
	"github.com/blinklabs-io/escrowmarket/ledger"
	"github.com/blinklabs-io/escrowmarket/ledger/common"
	"github.com/blinklabs-io/escrowmarket/market"
	"github.com/blinklabs-io/escrowmarket/market/assembler"
	"github.com/prometheus/client_golang/prometheus"
)

// app holds the ledger and market opened from the config
type app struct {
	cfg       *config.Config
	network   config.Network
	logger    *slog.Logger
	logCloser io.Closer
	registry  *prometheus.Registry
	ledger    *ledger.Ledger
	covenant  *market.Covenant
	assembler *assembler.Assembler
}

func newApp(cfg *config.Config) (*app, error) {
	logger, logCloser, err := setupLogger(cfg)
	if err != nil {
		return nil, err
	}
	store, err := ledger.NewLevelDBStore(filepath.Join(cfg.DataDir, "ledger"))
	if err != nil {
		_ = logCloser.Close()
		return nil, err
	}
	network := cfg.NetworkInfo()
	covenant := market.NewCovenant(
		market.WithLogger(logger),
		market.WithAssetValue(cfg.AssetValue),
		market.WithReserve(cfg.DeployAmount),
	)
	registry := prometheus.NewRegistry()
	l, err := ledger.New(
		ledger.WithStore(store),
		ledger.WithLogger(logger),
		ledger.WithProtocolParameters(network.ProtocolParameters()),
		ledger.WithPromRegistry(registry),
		ledger.WithScriptValidator(covenant),
	)
	if err != nil {
		_ = store.Close()
		_ = logCloser.Close()
		return nil, err
	}
	return &app{
		cfg:       cfg,
		network:   network,
		logger:    logger,
		logCloser: logCloser,
		registry:  registry,
		ledger:    l,
		covenant:  covenant,
		assembler: assembler.New(covenant),
	}, nil
}

func (a *app) Close() error {
	err := a.ledger.Close()
	return errors.Join(err, a.logCloser.Close())
}

// signer loads the wallet key from the key file
func (a *app) signer() (*assembler.Ed25519Signer, error) {
	if a.cfg.KeyFile == "" {
		return nil, errors.New("no key file configured")
	}
	data, err := os.ReadFile(a.cfg.KeyFile)
	if err != nil {
		return nil, fmt.Errorf("read key file: %w", err)
	}
	seed, err := hex.DecodeString(strings.TrimSpace(string(data)))
	if err != nil {
		return nil, fmt.Errorf("decode key file: %w", err)
	}
	return assembler.NewEd25519SignerFromSeed(seed)
}

// contract returns the current contract output of the market
func (a *app) contract() (assembler.Contract, error) {
	utxos, err := a.ledger.UtxosByScript(a.covenant.ScriptHash())
	if err != nil {
		return assembler.Contract{}, err
	}
	switch len(utxos) {
	case 0:
		return assembler.Contract{}, errors.New("market is not deployed")
	case 1:
		return a.assembler.Contract(utxos[0])
	default:
		return assembler.Contract{}, fmt.Errorf(
			"found %d contract outputs for script %s",
			len(utxos),
			a.covenant.ScriptHash().String(),
		)
	}
}

// wallet returns the outputs of the key that are not listed in the market
func (a *app) wallet(keyHash common.KeyHash) ([]common.Utxo, error) {
	utxos, err := a.ledger.UtxosByAddress(keyHash)
	if err != nil {
		return nil, err
	}
	contracts, err := a.ledger.UtxosByScript(a.covenant.ScriptHash())
	if err != nil || len(contracts) == 0 {
		return utxos, err
	}
	contract, err := a.contract()
	if err != nil {
		return nil, err
	}
	return assembler.FilterUnlisted(utxos, contract.State), nil
}
