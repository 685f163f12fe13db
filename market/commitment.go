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

// ContractOutput returns the continuing contract output carrying the state and balance
func ContractOutput(params Params, state MarketState, balance uint64) common.TransactionOutput {
	return common.NewTransactionOutput(
		common.NewScriptLock(params.ScriptHash(), state.Encode()),
		balance,
	)
}

// PayTo returns a pay-to-key-hash output
func PayTo(keyHash common.KeyHash, amount uint64) common.TransactionOutput {
	return common.NewTransactionOutput(common.NewKeyHashLock(keyHash), amount)
}

// ContractOutputIndex returns the position of the continuing contract output
// in the transaction outputs for the operation
func ContractOutputIndex(op Operation) uint32 {
	if op == OpConfirmBuy {
		return 1
	}
	return 0
}

// ExpectedOutputs returns the exact ordered outputs a transaction performing
// the operation must produce. prev is the slot before the operation.
//
//	listItem       contract
//	requestBuy     contract
//	confirmBuy     asset to buyer, contract, price to seller
//	cancelBuy      contract, price to buyer
//	cancelListing  contract
//
// The change output, when present, is always last.
func ExpectedOutputs(
	params Params,
	op Operation,
	prev Slot,
	next MarketState,
	nextBalance uint64,
	change *ChangeOutput,
) []common.TransactionOutput {
	contract := ContractOutput(params, next, nextBalance)
	listing, _ := prev.Listing()
	buyer, _ := prev.Buyer()
	var ret []common.TransactionOutput
	switch op {
	case OpConfirmBuy:
		ret = []common.TransactionOutput{
			PayTo(buyer, params.AssetValue),
			contract,
			PayTo(listing.Seller, listing.Price),
		}
	case OpCancelBuy:
		ret = []common.TransactionOutput{
			contract,
			PayTo(buyer, listing.Price),
		}
	default:
		ret = []common.TransactionOutput{contract}
	}
	if change != nil {
		ret = append(ret, change.Output())
	}
	return ret
}

// VerifyCommitment checks that the transaction's output digest matches the expected outputs
func VerifyCommitment(expected []common.TransactionOutput, actual common.Blake2b256) error {
	expectedHash := common.HashOutputs(expected)
	if expectedHash != actual {
		return CommitmentMismatchError{
			Expected: expectedHash,
			Actual:   actual,
		}
	}
	return nil
}
