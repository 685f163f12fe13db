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

package market

import (
	"github.com/blinklabs-io/escrowmarket/ledger/common"
)

// Transition is the successor of the contract output after an operation, along
// with the outputs the spending transaction must produce
type Transition struct {
	Operation   Operation
	Index       uint32
	Next        MarketState
	NextBalance uint64
	Outputs     []common.TransactionOutput
}

// Digest returns the output commitment the spending transaction must match
func (t Transition) Digest() common.Blake2b256 {
	return common.HashOutputs(t.Outputs)
}

// Apply checks the operation's preconditions and computes its successor. The
// provided state is never modified.
func Apply(call Call) (Transition, error) {
	op := call.Redeemer.Operation
	rules, ok := RulesFor(op)
	if !ok {
		return Transition{}, rejectCall(
			call,
			-1,
			InputValidationError{Reason: "unknown operation " + op.String()},
		)
	}
	if err := VerifyTransition(call, rules); err != nil {
		return Transition{}, err
	}
	idx := call.Redeemer.Index
	prev := call.State[idx]
	listing, _ := prev.Listing()
	next := call.State
	switch op {
	case OpListItem:
		slot, err := call.Redeemer.Item.Slot()
		if err != nil {
			return Transition{}, rejectCall(call, -1, err)
		}
		next[idx] = slot
	case OpRequestBuy:
		next[idx] = RequestedBuySlot(listing, call.Redeemer.Buyer)
	case OpConfirmBuy:
		next[idx] = EmptySlot()
	case OpCancelBuy:
		next[idx] = ListedSlot(listing)
	case OpCancelListing:
		next[idx] = EmptySlot()
	}
	nextBalance, err := ApplyDelta(call.Balance, op, listing.Price)
	if err != nil {
		return Transition{}, rejectCall(call, -1, err)
	}
	return Transition{
		Operation:   op,
		Index:       idx,
		Next:        next,
		NextBalance: nextBalance,
		Outputs: ExpectedOutputs(
			call.Params,
			op,
			prev,
			next,
			nextBalance,
			call.Redeemer.Change,
		),
	}, nil
}

// Preview is like Apply, but does not check signatures. It is used to build
// the outputs of a transaction before it can be signed.
func Preview(call Call) (Transition, error) {
	call.preview = true
	return Apply(call)
}

// ListItem records a new listing in an empty slot
func ListItem(
	params Params,
	state MarketState,
	balance uint64,
	item Item,
	idx uint32,
	change *ChangeOutput,
) (Transition, error) {
	return Apply(Call{
		Params:  params,
		State:   state,
		Balance: balance,
		Redeemer: Redeemer{
			Operation: OpListItem,
			Index:     idx,
			Item:      item,
			Change:    change,
		},
	})
}

// RequestBuy records the buyer of a listed slot. The buyer's deposit of the
// listing price is added to the contract balance.
func RequestBuy(
	params Params,
	state MarketState,
	balance uint64,
	idx uint32,
	buyer common.KeyHash,
	change *ChangeOutput,
) (Transition, error) {
	return Apply(Call{
		Params:  params,
		State:   state,
		Balance: balance,
		Redeemer: Redeemer{
			Operation: OpRequestBuy,
			Index:     idx,
			Buyer:     buyer,
			Change:    change,
		},
	})
}

// ConfirmBuy completes a sale. firstInput is the first input of the spending
// transaction, which must be the listed asset.
func ConfirmBuy(
	params Params,
	state MarketState,
	balance uint64,
	idx uint32,
	firstInput common.Outpoint,
	change *ChangeOutput,
) (Transition, error) {
	return Apply(Call{
		Params:     params,
		State:      state,
		Balance:    balance,
		FirstInput: firstInput,
		Redeemer: Redeemer{
			Operation: OpConfirmBuy,
			Index:     idx,
			Change:    change,
		},
	})
}

// CancelBuy refunds the requesting buyer, who must sign sigHash
func CancelBuy(
	params Params,
	state MarketState,
	balance uint64,
	idx uint32,
	pubKey []byte,
	sig []byte,
	sigHash []byte,
	change *ChangeOutput,
) (Transition, error) {
	return Apply(Call{
		Params:  params,
		State:   state,
		Balance: balance,
		SigHash: sigHash,
		Redeemer: Redeemer{
			Operation: OpCancelBuy,
			Index:     idx,
			PubKey:    pubKey,
			Signature: sig,
			Change:    change,
		},
	})
}

// CancelListing removes a listing. The seller must sign sigHash
func CancelListing(
	params Params,
	state MarketState,
	balance uint64,
	idx uint32,
	pubKey []byte,
	sig []byte,
	sigHash []byte,
	change *ChangeOutput,
) (Transition, error) {
	return Apply(Call{
		Params:  params,
		State:   state,
		Balance: balance,
		SigHash: sigHash,
		Redeemer: Redeemer{
			Operation: OpCancelListing,
			Index:     idx,
			PubKey:    pubKey,
			Signature: sig,
			Change:    change,
		},
	})
}
