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

	"github.com/blinklabs-io/escrowmarket/cbor"
	"github.com/blinklabs-io/escrowmarket/ledger/common"
)

type Operation uint8

const (
	OpListItem Operation = iota
	OpRequestBuy
	OpConfirmBuy
	OpCancelBuy
	OpCancelListing
)

func (o Operation) String() string {
	switch o {
	case OpListItem:
		return "listItem"
	case OpRequestBuy:
		return "requestBuy"
	case OpConfirmBuy:
		return "confirmBuy"
	case OpCancelBuy:
		return "cancelBuy"
	case OpCancelListing:
		return "cancelListing"
	default:
		return fmt.Sprintf("Operation(%d)", uint8(o))
	}
}

// ChangeOutput is the caller-chosen final output of a market transaction
type ChangeOutput struct {
	cbor.StructAsArray
	Address common.KeyHash
	Amount  uint64
}

func (c ChangeOutput) Output() common.TransactionOutput {
	return PayTo(c.Address, c.Amount)
}

// Redeemer selects the market operation performed when spending the contract
// output, along with its arguments. Fields not used by the operation are left
// at their zero values.
type Redeemer struct {
	cbor.StructAsArray
	Operation Operation
	Index     uint32
	// listItem
	Item Item
	// requestBuy
	Buyer common.KeyHash
	// cancelBuy and cancelListing
	PubKey    []byte
	Signature []byte
	Change    *ChangeOutput
}

func (r Redeemer) Bytes() ([]byte, error) {
	return cbor.Encode(r)
}

// DecodeRedeemer decodes the CBOR form produced by Redeemer.Bytes
func DecodeRedeemer(data []byte) (Redeemer, error) {
	var ret Redeemer
	if err := cbor.DecodeExact(data, &ret); err != nil {
		return Redeemer{}, InputValidationError{Reason: "malformed redeemer: " + err.Error()}
	}
	return ret, nil
}
