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
	"fmt"
	"math"
)

// Delta returns the fixed change to the contract balance for an operation on a
// slot with the given price
func Delta(op Operation, price uint64) int64 {
	// Listing prices are capped at math.MaxInt64
	// #nosec G115
	signed := int64(price)
	switch op {
	case OpRequestBuy:
		return signed
	case OpConfirmBuy, OpCancelBuy:
		return -signed
	default:
		return 0
	}
}

// ApplyDelta returns the contract balance after the operation
func ApplyDelta(balance uint64, op Operation, price uint64) (uint64, error) {
	if price > math.MaxInt64 {
		return 0, BalanceError{Balance: balance, Reason: fmt.Sprintf("price %d out of range", price)}
	}
	delta := Delta(op, price)
	switch {
	case delta > 0:
		// #nosec G115
		deposit := uint64(delta)
		if balance > math.MaxUint64-deposit {
			return 0, BalanceError{Balance: balance, Reason: fmt.Sprintf("deposit of %d overflows", deposit)}
		}
		return balance + deposit, nil
	case delta < 0:
		// #nosec G115
		payout := uint64(-delta)
		if balance < payout {
			return 0, BalanceError{Balance: balance, Reason: fmt.Sprintf("payout of %d exceeds balance", payout)}
		}
		return balance - payout, nil
	default:
		return balance, nil
	}
}

// Escrowed returns the sum of the buyer deposits held for slots awaiting confirmation
func Escrowed(state MarketState) (uint64, error) {
	var total uint64
	for _, slot := range state {
		if slot.Status() != SlotRequestedBuy {
			continue
		}
		listing, _ := slot.Listing()
		if total > math.MaxUint64-listing.Price {
			return 0, BalanceError{Balance: total, Reason: "escrowed deposits overflow"}
		}
		total += listing.Price
	}
	return total, nil
}

// Audit checks that the balance is exactly the reserve plus the escrowed deposits
func Audit(state MarketState, balance uint64, reserve uint64) error {
	escrowed, err := Escrowed(state)
	if err != nil {
		return err
	}
	if reserve > math.MaxUint64-escrowed || balance != reserve+escrowed {
		return BalanceError{
			Balance: balance,
			Reason: fmt.Sprintf(
				"expected reserve %d plus escrowed %d",
				reserve,
				escrowed,
			),
		}
	}
	return nil
}
