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

package market_test

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"

	"github.com/blinklabs-io/escrowmarket/internal/test"
	"github.com/blinklabs-io/escrowmarket/ledger"
	"github.com/blinklabs-io/escrowmarket/ledger/common"
	"github.com/blinklabs-io/escrowmarket/market"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

const testFunding uint64 = 5000

// marketFixture is a ledger with a deployed market and funded parties
type marketFixture struct {
	t        *testing.T
	ledger   *ledger.Ledger
	covenant *market.Covenant
	contract common.Utxo
	state    market.MarketState
	asset    common.Utxo
	funding  map[string]common.Utxo
}

func newMarketFixture(t *testing.T) *marketFixture {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	covenant, contractOutput := market.Deploy(testReserve, market.WithLogger(logger))
	l, err := ledger.New(
		ledger.WithLogger(logger),
		ledger.WithScriptValidator(covenant),
	)
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = l.Close()
	})
	utxos, err := l.Genesis([]common.TransactionOutput{
		contractOutput,
		market.PayTo(testSeller.KeyHash(), 1),
		market.PayTo(testSeller.KeyHash(), testFunding),
		market.PayTo(testBuyer.KeyHash(), testFunding),
		market.PayTo(testAttacker.KeyHash(), testFunding),
	})
	require.NoError(t, err)
	return &marketFixture{
		t:        t,
		ledger:   l,
		covenant: covenant,
		contract: utxos[0],
		state:    market.NewMarketState(),
		asset:    utxos[1],
		funding: map[string]common.Utxo{
			"seller":   utxos[2],
			"buyer":    utxos[3],
			"attacker": utxos[4],
		},
	}
}

func (f *marketFixture) item() market.Item {
	return market.Item{
		Outpoint:   f.asset.Id,
		Price:      testPrice,
		SellerAddr: testSeller.KeyHash(),
	}
}

// buildTx builds a transaction spending the inputs, with the redeemer for the
// contract input. The redeemer function receives the transaction hash
func (f *marketFixture) buildTx(
	inputs []common.Outpoint,
	outputs []common.TransactionOutput,
	redeemerFunc func(sigHash []byte) market.Redeemer,
	signers ...test.TestKey,
) *common.Transaction {
	f.t.Helper()
	tx := &common.Transaction{
		Body: common.TransactionBody{
			TxInputs:  inputs,
			TxOutputs: outputs,
		},
	}
	for idx, input := range inputs {
		if input != f.contract.Id {
			continue
		}
		redeemerBytes, err := redeemerFunc(tx.Hash().Bytes()).Bytes()
		require.NoError(f.t, err)
		tx.WitnessSet.Redeemers = append(
			tx.WitnessSet.Redeemers,
			common.Redeemer{
				// #nosec G115
				Index: uint32(idx),
				Data:  redeemerBytes,
			},
		)
	}
	for _, signer := range signers {
		tx.WitnessSet.VkeyWitnesses = append(tx.WitnessSet.VkeyWitnesses, signer.Witness(tx))
	}
	return tx
}

// submit submits the transaction and tracks the new contract output on success
func (f *marketFixture) submit(tx *common.Transaction, op market.Operation) error {
	f.t.Helper()
	_, err := f.ledger.Submit(context.Background(), tx)
	if err != nil {
		return err
	}
	f.contract = tx.Produced()[market.ContractOutputIndex(op)]
	state, err := f.covenant.State(f.contract.Output)
	require.NoError(f.t, err)
	f.state = state
	return nil
}

func (f *marketFixture) list() {
	f.t.Helper()
	change := &market.ChangeOutput{Address: testSeller.KeyHash(), Amount: testFunding - 10}
	transition, err := market.ListItem(
		f.covenant.Params(),
		f.state,
		f.contract.Output.Amount(),
		f.item(),
		0,
		change,
	)
	require.NoError(f.t, err)
	tx := f.buildTx(
		[]common.Outpoint{f.contract.Id, f.funding["seller"].Id},
		transition.Outputs,
		func([]byte) market.Redeemer {
			return market.Redeemer{
				Operation: market.OpListItem,
				Index:     0,
				Item:      f.item(),
				Change:    change,
			}
		},
		testSeller,
	)
	require.NoError(f.t, f.submit(tx, market.OpListItem))
}

// requestBuyTx builds a request from the named buyer, with the given contract output value
func (f *marketFixture) requestBuyTx(name string, buyer test.TestKey, contractValue uint64) *common.Transaction {
	f.t.Helper()
	next := f.state
	listing, ok := next[0].Listing()
	require.True(f.t, ok)
	next[0] = market.RequestedBuySlot(listing, buyer.KeyHash())
	funding := f.funding[name]
	change := &market.ChangeOutput{
		Address: buyer.KeyHash(),
		Amount:  funding.Output.Amount() - testPrice,
	}
	return f.buildTx(
		[]common.Outpoint{f.contract.Id, funding.Id},
		[]common.TransactionOutput{
			market.ContractOutput(f.covenant.Params(), next, contractValue),
			change.Output(),
		},
		func([]byte) market.Redeemer {
			return market.Redeemer{
				Operation: market.OpRequestBuy,
				Index:     0,
				Buyer:     buyer.KeyHash(),
				Change:    change,
			}
		},
		buyer,
	)
}

func (f *marketFixture) requestBuy() {
	f.t.Helper()
	tx := f.requestBuyTx("buyer", testBuyer, f.contract.Output.Amount()+testPrice)
	require.NoError(f.t, f.submit(tx, market.OpRequestBuy))
}

func (f *marketFixture) balanceOf(key test.TestKey) uint64 {
	f.t.Helper()
	utxos, err := f.ledger.UtxosByAddress(key.KeyHash())
	require.NoError(f.t, err)
	var total uint64
	for _, utxo := range utxos {
		total += utxo.Output.Amount()
	}
	return total
}

func TestCovenantSale(t *testing.T) {
	f := newMarketFixture(t)
	f.list()
	assert.Equal(t, market.SlotListed, f.state[0].Status())
	assert.Equal(t, testReserve, f.contract.Output.Amount())
	f.requestBuy()
	assert.Equal(t, market.SlotRequestedBuy, f.state[0].Status())
	assert.Equal(t, testReserve+testPrice, f.contract.Output.Amount())
	sellerBefore := f.balanceOf(testSeller)
	buyerBefore := f.balanceOf(testBuyer)
	// The seller spends the asset first and the contract second
	outputs := market.ExpectedOutputs(
		f.covenant.Params(),
		market.OpConfirmBuy,
		f.state[0],
		market.NewMarketState(),
		testReserve,
		nil,
	)
	tx := f.buildTx(
		[]common.Outpoint{f.asset.Id, f.contract.Id},
		outputs,
		func([]byte) market.Redeemer {
			return market.Redeemer{Operation: market.OpConfirmBuy, Index: 0}
		},
		testSeller,
	)
	require.NoError(t, f.submit(tx, market.OpConfirmBuy))
	assert.Equal(t, market.NewMarketState(), f.state)
	assert.Equal(t, testReserve, f.contract.Output.Amount())
	// The seller gave up the 1 sat asset output and received the price
	assert.Equal(t, sellerBefore-1+testPrice, f.balanceOf(testSeller))
	assert.Equal(t, buyerBefore+market.DefaultAssetValue, f.balanceOf(testBuyer))
	buyerUtxos, err := f.ledger.UtxosByAddress(testBuyer.KeyHash())
	require.NoError(t, err)
	found := false
	for _, utxo := range buyerUtxos {
		if utxo.Id == common.NewOutpoint(tx.Hash(), 0) {
			found = true
		}
	}
	assert.True(t, found, "buyer should hold the asset output")
}

// A key-locked transaction cannot create a second market instance
func TestCovenantRejectsForgedContractOutput(t *testing.T) {
	f := newMarketFixture(t)
	forged := market.NewMarketState()
	forged[0] = market.ListedSlot(market.Listing{
		Outpoint: f.asset.Id,
		Price:    1,
		Seller:   testAttacker.KeyHash(),
	})
	funding := f.funding["attacker"]
	tx := f.buildTx(
		[]common.Outpoint{funding.Id},
		[]common.TransactionOutput{
			market.ContractOutput(f.covenant.Params(), forged, testReserve),
			market.PayTo(testAttacker.KeyHash(), funding.Output.Amount()-testReserve),
		},
		nil,
		testAttacker,
	)
	_, err := f.ledger.Submit(context.Background(), tx)
	var outputErr ledger.UnauthorizedScriptOutputError
	require.ErrorAs(t, err, &outputErr)
	assert.Equal(t, f.covenant.ScriptHash(), outputErr.ScriptHash)
	contracts, err := f.ledger.UtxosByScript(f.covenant.ScriptHash())
	require.NoError(t, err)
	require.Len(t, contracts, 1)
	assert.Equal(t, f.contract.Id, contracts[0].Id)
}

func TestCovenantRejectsRedirectedPayout(t *testing.T) {
	f := newMarketFixture(t)
	f.list()
	f.requestBuy()
	outputs := []common.TransactionOutput{
		market.PayTo(testBuyer.KeyHash(), market.DefaultAssetValue),
		market.ContractOutput(f.covenant.Params(), market.NewMarketState(), testReserve),
		market.PayTo(testAttacker.KeyHash(), testPrice),
	}
	tx := f.buildTx(
		[]common.Outpoint{f.asset.Id, f.contract.Id},
		outputs,
		func([]byte) market.Redeemer {
			return market.Redeemer{Operation: market.OpConfirmBuy, Index: 0}
		},
		testSeller,
	)
	err := f.submit(tx, market.OpConfirmBuy)
	assert.ErrorIs(t, err, market.ErrCommitmentMismatch)
	assert.ErrorAs(t, err, new(ledger.ScriptValidationError))
	assert.Equal(t, market.SlotRequestedBuy, f.state[0].Status())
}

func TestCovenantRejectsConfirmWithoutAsset(t *testing.T) {
	f := newMarketFixture(t)
	f.list()
	f.requestBuy()
	outputs := market.ExpectedOutputs(
		f.covenant.Params(),
		market.OpConfirmBuy,
		f.state[0],
		market.NewMarketState(),
		testReserve,
		nil,
	)
	tx := f.buildTx(
		[]common.Outpoint{f.funding["attacker"].Id, f.contract.Id},
		outputs,
		func([]byte) market.Redeemer {
			return market.Redeemer{Operation: market.OpConfirmBuy, Index: 0}
		},
		testAttacker,
	)
	assert.ErrorIs(t, f.submit(tx, market.OpConfirmBuy), market.ErrLinkage)
}

func TestCovenantRejectsUnderfundedRequest(t *testing.T) {
	f := newMarketFixture(t)
	f.list()
	tx := f.requestBuyTx("buyer", testBuyer, f.contract.Output.Amount())
	assert.ErrorIs(t, f.submit(tx, market.OpRequestBuy), market.ErrCommitmentMismatch)
	assert.Equal(t, market.SlotListed, f.state[0].Status())
}

func TestCovenantCancelBuy(t *testing.T) {
	f := newMarketFixture(t)
	f.list()
	f.requestBuy()
	buyerBefore := f.balanceOf(testBuyer)
	next := f.state
	listing, _ := next[0].Listing()
	next[0] = market.ListedSlot(listing)
	outputs := market.ExpectedOutputs(
		f.covenant.Params(),
		market.OpCancelBuy,
		f.state[0],
		next,
		testReserve,
		nil,
	)
	cancelTx := func(signer test.TestKey) *common.Transaction {
		return f.buildTx(
			[]common.Outpoint{f.contract.Id},
			outputs,
			func(sigHash []byte) market.Redeemer {
				return market.Redeemer{
					Operation: market.OpCancelBuy,
					Index:     0,
					PubKey:    signer.Public,
					Signature: signer.Sign(sigHash),
				}
			},
		)
	}
	err := f.submit(cancelTx(testAttacker), market.OpCancelBuy)
	assert.ErrorIs(t, err, market.ErrAuthorization)
	assert.Equal(t, market.SlotRequestedBuy, f.state[0].Status())
	require.NoError(t, f.submit(cancelTx(testBuyer), market.OpCancelBuy))
	assert.Equal(t, market.SlotListed, f.state[0].Status())
	assert.Equal(t, testReserve, f.contract.Output.Amount())
	assert.Equal(t, buyerBefore+testPrice, f.balanceOf(testBuyer))
}

func TestCovenantCancelListing(t *testing.T) {
	f := newMarketFixture(t)
	f.list()
	outputs := []common.TransactionOutput{
		market.ContractOutput(f.covenant.Params(), market.NewMarketState(), testReserve),
	}
	tx := f.buildTx(
		[]common.Outpoint{f.contract.Id},
		outputs,
		func(sigHash []byte) market.Redeemer {
			return market.Redeemer{
				Operation: market.OpCancelListing,
				Index:     0,
				PubKey:    testSeller.Public,
				Signature: testSeller.Sign(sigHash),
			}
		},
	)
	require.NoError(t, f.submit(tx, market.OpCancelListing))
	assert.Equal(t, market.NewMarketState(), f.state)
}

func TestCovenantRejectsMissingRedeemer(t *testing.T) {
	f := newMarketFixture(t)
	tx := &common.Transaction{
		Body: common.TransactionBody{
			TxInputs:  []common.Outpoint{f.contract.Id},
			TxOutputs: []common.TransactionOutput{f.contract.Output},
		},
	}
	_, err := f.ledger.Submit(context.Background(), tx)
	assert.ErrorIs(t, err, market.ErrInputValidation)
}

func TestCovenantRejectsSecondContractInput(t *testing.T) {
	f := newMarketFixture(t)
	// A second contract output with the same state and balance
	utxos, err := f.ledger.Genesis([]common.TransactionOutput{
		f.covenant.GenesisOutput(),
		market.PayTo(testAttacker.KeyHash(), 1),
	})
	require.NoError(t, err)
	second := utxos[0]
	transition, err := market.ListItem(
		f.covenant.Params(),
		f.state,
		testReserve,
		f.item(),
		0,
		&market.ChangeOutput{Address: testAttacker.KeyHash(), Amount: testReserve},
	)
	require.NoError(t, err)
	redeemerBytes, err := market.Redeemer{
		Operation: market.OpListItem,
		Index:     0,
		Item:      f.item(),
		Change:    &market.ChangeOutput{Address: testAttacker.KeyHash(), Amount: testReserve},
	}.Bytes()
	require.NoError(t, err)
	tx := &common.Transaction{
		Body: common.TransactionBody{
			TxInputs:  []common.Outpoint{f.contract.Id, second.Id},
			TxOutputs: transition.Outputs,
		},
		WitnessSet: common.TransactionWitnessSet{
			Redeemers: []common.Redeemer{
				{Index: 0, Data: redeemerBytes},
				{Index: 1, Data: redeemerBytes},
			},
		},
	}
	_, err = f.ledger.Submit(context.Background(), tx)
	assert.ErrorIs(t, err, market.ErrInputValidation)
}

// Of several requests built against the same contract output, only one is accepted
func TestCovenantConcurrentRequests(t *testing.T) {
	defer goleak.VerifyNone(t)
	f := newMarketFixture(t)
	f.list()
	txs := []*common.Transaction{
		f.requestBuyTx("buyer", testBuyer, f.contract.Output.Amount()+testPrice),
		f.requestBuyTx("attacker", testAttacker, f.contract.Output.Amount()+testPrice),
	}
	errs := make([]error, len(txs))
	var wg sync.WaitGroup
	for idx, tx := range txs {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, errs[idx] = f.ledger.Submit(context.Background(), tx)
		}()
	}
	wg.Wait()
	accepted := 0
	for _, err := range errs {
		if err == nil {
			accepted++
			continue
		}
		assert.ErrorAs(t, err, new(ledger.BadInputsError))
	}
	assert.Equal(t, 1, accepted)
}

func TestCovenantUtxorpcDatum(t *testing.T) {
	covenant := market.NewCovenant(market.WithParams(testParams()))
	state := requestedState()
	tx := &common.Transaction{
		Body: common.TransactionBody{
			TxInputs: []common.Outpoint{testAsset},
			TxOutputs: []common.TransactionOutput{
				market.ContractOutput(covenant.Params(), state, testReserve+testPrice),
				market.PayTo(testBuyer.KeyHash(), 10),
			},
		},
	}
	datumHash, err := state.DatumHash()
	require.NoError(t, err)
	datumCbor, err := state.DatumCbor()
	require.NoError(t, err)

	rpcTx, err := covenant.UtxorpcTx(tx)
	require.NoError(t, err)
	require.Len(t, rpcTx.Outputs, 2)
	require.NotNil(t, rpcTx.Outputs[0].Datum)
	assert.Equal(t, datumHash.Bytes(), rpcTx.Outputs[0].Datum.Hash)
	assert.Equal(t, datumCbor, rpcTx.Outputs[0].Datum.OriginalCbor)
	assert.Equal(t, testReserve+testPrice, rpcTx.Outputs[0].Coin)
	assert.Nil(t, rpcTx.Outputs[1].Datum)

	rpcOutput, err := covenant.UtxorpcOutput(tx.Outputs()[0])
	require.NoError(t, err)
	assert.Equal(t, datumHash.Bytes(), rpcOutput.Datum.Hash)

	// Outputs of another market keep the raw state hash
	other := market.NewCovenant(market.WithReserve(testReserve + 1))
	rpcOutput, err = other.UtxorpcOutput(tx.Outputs()[0])
	require.NoError(t, err)
	assert.NotEqual(t, datumHash.Bytes(), rpcOutput.Datum.Hash)
}
