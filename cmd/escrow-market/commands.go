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
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"flag"
	"fmt"
	"os"

	"github.com/blinklabs-io/escrowmarket/ledger/common"
	"github.com/blinklabs-io/escrowmarket/market"
	"github.com/blinklabs-io/escrowmarket/market/assembler"
	"google.golang.org/protobuf/encoding/protojson"
)

func newFlagSet(name string) *flag.FlagSet {
	return flag.NewFlagSet(name, flag.ContinueOnError)
}

func runKeygen(a *app, args []string) error {
	if err := newFlagSet("keygen").Parse(args); err != nil {
		return err
	}
	if a.cfg.KeyFile == "" {
		return errors.New("no key file configured")
	}
	if _, err := os.Stat(a.cfg.KeyFile); err == nil {
		return fmt.Errorf("key file %s already exists", a.cfg.KeyFile)
	}
	seed := make([]byte, 32)
	if _, err := rand.Read(seed); err != nil {
		return err
	}
	if err := os.WriteFile(a.cfg.KeyFile, []byte(hex.EncodeToString(seed)+"\n"), 0o600); err != nil {
		return err
	}
	return runAddress(a, nil)
}

func runAddress(a *app, args []string) error {
	if err := newFlagSet("address").Parse(args); err != nil {
		return err
	}
	signer, err := a.signer()
	if err != nil {
		return err
	}
	fmt.Println(a.network.Address(signer.KeyHash()))
	return nil
}

func runDeploy(a *app, args []string) error {
	if err := newFlagSet("deploy").Parse(args); err != nil {
		return err
	}
	utxos, err := a.ledger.Genesis(
		[]common.TransactionOutput{a.covenant.GenesisOutput()},
	)
	if err != nil {
		return err
	}
	fmt.Printf("script: %s\n", a.covenant.ScriptHash().Bech32(common.ScriptHrp))
	fmt.Printf("script hash: %s\n", a.covenant.ScriptHash().String())
	fmt.Printf("contract: %s\n", utxos[0].Id.String())
	return nil
}

func runFund(a *app, args []string) error {
	fs := newFlagSet("fund")
	amount := fs.Uint64("amount", 0, "amount to add")
	if err := fs.Parse(args); err != nil {
		return err
	}
	signer, err := a.signer()
	if err != nil {
		return err
	}
	utxos, err := a.ledger.Genesis(
		[]common.TransactionOutput{market.PayTo(signer.KeyHash(), *amount)},
	)
	if err != nil {
		return err
	}
	fmt.Println(utxos[0].Id.String())
	return nil
}

func runWallet(a *app, args []string) error {
	if err := newFlagSet("wallet").Parse(args); err != nil {
		return err
	}
	signer, err := a.signer()
	if err != nil {
		return err
	}
	utxos, err := a.wallet(signer.KeyHash())
	if err != nil {
		return err
	}
	for _, utxo := range utxos {
		fmt.Printf("%s %d\n", utxo.Id.String(), utxo.Output.Amount())
	}
	return nil
}

func runState(a *app, args []string) error {
	if err := newFlagSet("state").Parse(args); err != nil {
		return err
	}
	contract, err := a.contract()
	if err != nil {
		return err
	}
	fmt.Printf("contract: %s\n", contract.Utxo.Id.String())
	fmt.Printf("balance: %d\n", contract.Utxo.Output.Amount())
	for idx, slot := range contract.State {
		fmt.Printf("%d: %s\n", idx, slot.String())
	}
	return nil
}

func runExport(a *app, args []string) error {
	if err := newFlagSet("export").Parse(args); err != nil {
		return err
	}
	contract, err := a.contract()
	if err != nil {
		return err
	}
	output, err := a.covenant.UtxorpcOutput(contract.Utxo.Output)
	if err != nil {
		return err
	}
	out, err := protojson.MarshalOptions{Multiline: true}.Marshal(output)
	if err != nil {
		return err
	}
	fmt.Println(string(out))
	return nil
}

// opFlags are the flags shared by the market operations
type opFlags struct {
	fs   *flag.FlagSet
	slot *int
	json *bool
}

func newOpFlags(name string) *opFlags {
	fs := newFlagSet(name)
	return &opFlags{
		fs:   fs,
		slot: fs.Int("slot", -1, "market slot"),
		json: fs.Bool("json", false, "print the transaction as utxorpc JSON"),
	}
}

func (f *opFlags) slotIndex() (uint32, error) {
	if *f.slot < 0 || *f.slot >= market.MarketSize {
		return 0, fmt.Errorf("slot must be between 0 and %d", market.MarketSize-1)
	}
	return uint32(*f.slot), nil // #nosec G115
}

// submit submits the transaction and prints its ID, or the whole transaction
// when requested
func (a *app) submit(f *opFlags, tx *common.Transaction) error {
	txHash, err := a.ledger.Submit(context.Background(), tx)
	if err != nil {
		return err
	}
	if *f.json {
		rpcTx, err := a.covenant.UtxorpcTx(tx)
		if err != nil {
			return err
		}
		out, err := protojson.MarshalOptions{Multiline: true}.Marshal(rpcTx)
		if err != nil {
			return err
		}
		fmt.Println(string(out))
		return nil
	}
	fmt.Println(txHash.ReversedString())
	return nil
}

// prepare parses the operation flags and loads the wallet key and the contract
func (a *app) prepare(
	f *opFlags,
	args []string,
) (*assembler.Ed25519Signer, assembler.Contract, error) {
	if err := f.fs.Parse(args); err != nil {
		return nil, assembler.Contract{}, err
	}
	signer, err := a.signer()
	if err != nil {
		return nil, assembler.Contract{}, err
	}
	contract, err := a.contract()
	if err != nil {
		return nil, assembler.Contract{}, err
	}
	return signer, contract, nil
}

func runList(a *app, args []string) error {
	f := newOpFlags("list")
	assetStr := f.fs.String("asset", "", "asset outpoint in txid_vout form")
	price := f.fs.Uint64("price", 0, "listing price")
	signer, contract, err := a.prepare(f, args)
	if err != nil {
		return err
	}
	asset, err := common.ParseOutpoint(*assetStr)
	if err != nil {
		return err
	}
	assetUtxo, err := a.ledger.UtxoById(asset)
	if err != nil {
		return err
	}
	if !assetUtxo.Output.Lock().Equal(common.NewKeyHashLock(signer.KeyHash())) {
		return fmt.Errorf("asset %s is not held by the wallet", asset.String())
	}
	var tx *common.Transaction
	if *f.slot < 0 {
		tx, err = a.assembler.List(contract, asset, *price, nil, signer)
	} else {
		idx, idxErr := f.slotIndex()
		if idxErr != nil {
			return idxErr
		}
		tx, err = a.assembler.ListAt(contract, idx, asset, *price, nil, signer)
	}
	if err != nil {
		return err
	}
	return a.submit(f, tx)
}

func runRequestBuy(a *app, args []string) error {
	f := newOpFlags("request-buy")
	signer, contract, err := a.prepare(f, args)
	if err != nil {
		return err
	}
	idx, err := f.slotIndex()
	if err != nil {
		return err
	}
	slot, err := contract.State.Slot(idx)
	if err != nil {
		return err
	}
	listing, ok := slot.Listing()
	if !ok {
		return fmt.Errorf("slot %d is empty", idx)
	}
	utxos, err := a.wallet(signer.KeyHash())
	if err != nil {
		return err
	}
	funding, err := assembler.SelectFunding(utxos, listing.Price)
	if err != nil {
		return err
	}
	tx, err := a.assembler.RequestBuy(contract, idx, funding, signer)
	if err != nil {
		return err
	}
	return a.submit(f, tx)
}

func runConfirmBuy(a *app, args []string) error {
	f := newOpFlags("confirm-buy")
	signer, contract, err := a.prepare(f, args)
	if err != nil {
		return err
	}
	idx, err := f.slotIndex()
	if err != nil {
		return err
	}
	slot, err := contract.State.Slot(idx)
	if err != nil {
		return err
	}
	listing, ok := slot.Listing()
	if !ok {
		return fmt.Errorf("slot %d is empty", idx)
	}
	asset, err := a.ledger.UtxoById(listing.Outpoint)
	if err != nil {
		return err
	}
	tx, err := a.assembler.ConfirmBuy(contract, idx, asset, nil, signer)
	if err != nil {
		return err
	}
	return a.submit(f, tx)
}

func runCancelBuy(a *app, args []string) error {
	f := newOpFlags("cancel-buy")
	signer, contract, err := a.prepare(f, args)
	if err != nil {
		return err
	}
	idx, err := f.slotIndex()
	if err != nil {
		return err
	}
	tx, err := a.assembler.CancelBuy(contract, idx, nil, signer)
	if err != nil {
		return err
	}
	return a.submit(f, tx)
}

func runCancelListing(a *app, args []string) error {
	f := newOpFlags("cancel-listing")
	signer, contract, err := a.prepare(f, args)
	if err != nil {
		return err
	}
	idx, err := f.slotIndex()
	if err != nil {
		return err
	}
	tx, err := a.assembler.CancelListing(contract, idx, nil, signer)
	if err != nil {
		return err
	}
	return a.submit(f, tx)
}
