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

package assembler

import (
	"cmp"
	"errors"
	"fmt"
	"math"
	"slices"

	"github.com/blinklabs-io/escrowmarket/ledger/common"
	"github.com/blinklabs-io/escrowmarket/market"
)

// ErrMarketFull is returned when listing without an index and no slot is empty
var ErrMarketFull = errors.New("no empty slot in market")

type InsufficientFundsError struct {
	Need uint64
	Have uint64
}

func (e InsufficientFundsError) Error() string {
	return fmt.Sprintf("insufficient funds: need %d, have %d", e.Need, e.Have)
}

// Contract is a market contract output along with its decoded state
type Contract struct {
	Utxo  common.Utxo
	State market.MarketState
}

// Assembler builds the transactions for market operations against the current
// contract output
type Assembler struct {
	covenant *market.Covenant
	fee      uint64
}

// AssemblerOptionFunc is a type that represents functions that modify the Assembler config
type AssemblerOptionFunc func(*Assembler)

// WithFee specifies the fee left unclaimed by every transaction. The default is no fee
func WithFee(fee uint64) AssemblerOptionFunc {
	return func(a *Assembler) {
		a.fee = fee
	}
}

func New(covenant *market.Covenant, opts ...AssemblerOptionFunc) *Assembler {
	a := &Assembler{
		covenant: covenant,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Contract decodes the state of a contract output
func (a *Assembler) Contract(utxo common.Utxo) (Contract, error) {
	state, err := a.covenant.State(utxo.Output)
	if err != nil {
		return Contract{}, err
	}
	return Contract{Utxo: utxo, State: state}, nil
}

// NextContract returns the contract output produced by a market transaction
func (a *Assembler) NextContract(tx *common.Transaction) (Contract, error) {
	for _, utxo := range tx.Produced() {
		lock := utxo.Output.Lock()
		if lock.Type == common.LockTypeScript && lock.ScriptHash == a.covenant.ScriptHash() {
			return a.Contract(utxo)
		}
	}
	return Contract{}, errors.New("transaction has no contract output")
}

// List lists an asset in the first empty slot
func (a *Assembler) List(
	contract Contract,
	asset common.Outpoint,
	price uint64,
	funding []common.Utxo,
	signer Signer,
) (*common.Transaction, error) {
	idx, ok := contract.State.FirstEmpty()
	if !ok {
		return nil, ErrMarketFull
	}
	return a.ListAt(contract, idx, asset, price, funding, signer)
}

// ListAt lists an asset in the specified slot
func (a *Assembler) ListAt(
	contract Contract,
	idx uint32,
	asset common.Outpoint,
	price uint64,
	funding []common.Utxo,
	signer Signer,
) (*common.Transaction, error) {
	return a.build(
		contract,
		market.Redeemer{
			Operation: market.OpListItem,
			Index:     idx,
			Item: market.Item{
				Outpoint:   asset,
				Price:      price,
				SellerAddr: signer.KeyHash(),
			},
		},
		nil,
		funding,
		signer,
	)
}

// RequestBuy deposits the listing price with the contract. The funding
// outputs must cover the price.
func (a *Assembler) RequestBuy(
	contract Contract,
	idx uint32,
	funding []common.Utxo,
	signer Signer,
) (*common.Transaction, error) {
	return a.build(
		contract,
		market.Redeemer{
			Operation: market.OpRequestBuy,
			Index:     idx,
			Buyer:     signer.KeyHash(),
		},
		nil,
		funding,
		signer,
	)
}

// ConfirmBuy completes a sale. The asset output is spent by the first input
// and the contract output by the second.
func (a *Assembler) ConfirmBuy(
	contract Contract,
	idx uint32,
	asset common.Utxo,
	funding []common.Utxo,
	signer Signer,
) (*common.Transaction, error) {
	return a.build(
		contract,
		market.Redeemer{
			Operation: market.OpConfirmBuy,
			Index:     idx,
		},
		[]common.Utxo{asset},
		funding,
		signer,
	)
}

// CancelBuy returns the deposit to the requesting buyer, who must be the signer
func (a *Assembler) CancelBuy(
	contract Contract,
	idx uint32,
	funding []common.Utxo,
	signer Signer,
) (*common.Transaction, error) {
	return a.build(
		contract,
		market.Redeemer{
			Operation: market.OpCancelBuy,
			Index:     idx,
		},
		nil,
		funding,
		signer,
	)
}

// CancelListing empties a listed slot. The signer must be the seller
func (a *Assembler) CancelListing(
	contract Contract,
	idx uint32,
	funding []common.Utxo,
	signer Signer,
) (*common.Transaction, error) {
	return a.build(
		contract,
		market.Redeemer{
			Operation: market.OpCancelListing,
			Index:     idx,
		},
		nil,
		funding,
		signer,
	)
}

func sumAmounts(utxos []common.Utxo) (uint64, error) {
	var total uint64
	for _, utxo := range utxos {
		amount := utxo.Output.Amount()
		if total > math.MaxUint64-amount {
			return 0, errors.New("input amounts overflow")
		}
		total += amount
	}
	return total, nil
}

// build assembles and signs the transaction. The leading outputs are spent
// before the contract output, the funding outputs after it. Any value left
// after the operation's outputs and the fee is returned to the signer.
func (a *Assembler) build(
	contract Contract,
	redeemer market.Redeemer,
	leading []common.Utxo,
	funding []common.Utxo,
	signer Signer,
) (*common.Transaction, error) {
	inputs := make([]common.Utxo, 0, len(leading)+1+len(funding))
	inputs = append(inputs, leading...)
	contractIdx := len(inputs)
	inputs = append(inputs, contract.Utxo)
	inputs = append(inputs, funding...)
	txInputs := make([]common.Outpoint, 0, len(inputs))
	for _, input := range inputs {
		txInputs = append(txInputs, input.Id)
	}
	call := market.Call{
		Params:     a.covenant.Params(),
		State:      contract.State,
		Balance:    contract.Utxo.Output.Amount(),
		Redeemer:   redeemer,
		FirstInput: txInputs[0],
	}
	// Work out the change from the outputs without it
	transition, err := market.Preview(call)
	if err != nil {
		return nil, err
	}
	have, err := sumAmounts(inputs)
	if err != nil {
		return nil, err
	}
	need, err := sumAmounts(utxosOf(transition.Outputs))
	if err != nil {
		return nil, err
	}
	if need > math.MaxUint64-a.fee || have < need+a.fee {
		return nil, InsufficientFundsError{Need: need + a.fee, Have: have}
	}
	if change := have - need - a.fee; change > 0 {
		call.Redeemer.Change = &market.ChangeOutput{
			Address: signer.KeyHash(),
			Amount:  change,
		}
		transition, err = market.Preview(call)
		if err != nil {
			return nil, err
		}
	}
	tx := &common.Transaction{
		Body: common.TransactionBody{
			TxInputs:  txInputs,
			TxOutputs: transition.Outputs,
		},
	}
	txHash := tx.Hash().Bytes()
	if redeemer.Operation == market.OpCancelBuy || redeemer.Operation == market.OpCancelListing {
		sig, err := signer.Sign(txHash)
		if err != nil {
			return nil, fmt.Errorf("sign transaction: %w", err)
		}
		call.Redeemer.PubKey = signer.PublicKey()
		call.Redeemer.Signature = sig
	}
	redeemerBytes, err := call.Redeemer.Bytes()
	if err != nil {
		return nil, err
	}
	tx.WitnessSet.Redeemers = []common.Redeemer{
		{
			// #nosec G115
			Index: uint32(contractIdx),
			Data:  redeemerBytes,
		},
	}
	if needsWitness(inputs, signer.KeyHash()) {
		sig, err := signer.Sign(txHash)
		if err != nil {
			return nil, fmt.Errorf("sign transaction: %w", err)
		}
		tx.WitnessSet.VkeyWitnesses = []common.VkeyWitness{
			{Vkey: signer.PublicKey(), Signature: sig},
		}
	}
	return tx, nil
}

func utxosOf(outputs []common.TransactionOutput) []common.Utxo {
	ret := make([]common.Utxo, 0, len(outputs))
	for _, output := range outputs {
		ret = append(ret, common.Utxo{Output: output})
	}
	return ret
}

func needsWitness(inputs []common.Utxo, keyHash common.KeyHash) bool {
	for _, input := range inputs {
		lock := input.Output.Lock()
		if lock.Type == common.LockTypeKeyHash && lock.KeyHash == keyHash {
			return true
		}
	}
	return false
}

// FilterUnlisted returns the outputs that are not the asset of any market listing
func FilterUnlisted(utxos []common.Utxo, state market.MarketState) []common.Utxo {
	var ret []common.Utxo
	for _, utxo := range utxos {
		if state.Listed(utxo.Id) {
			continue
		}
		ret = append(ret, utxo)
	}
	return ret
}

// SelectFunding picks outputs, largest first, until their total reaches the
// amount
func SelectFunding(utxos []common.Utxo, amount uint64) ([]common.Utxo, error) {
	sorted := slices.Clone(utxos)
	slices.SortStableFunc(sorted, func(a, b common.Utxo) int {
		return cmp.Compare(b.Output.Amount(), a.Output.Amount())
	})
	var total uint64
	for idx, utxo := range sorted {
		if total >= amount {
			return sorted[:idx], nil
		}
		total += utxo.Output.Amount()
	}
	if total < amount {
		return nil, InsufficientFundsError{Need: amount, Have: total}
	}
	return sorted, nil
}
