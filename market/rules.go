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
	"math"

	"github.com/blinklabs-io/escrowmarket/ledger/common"
)

// Call is one invocation of a market operation against the current contract output
type Call struct {
	Params   Params
	State    MarketState
	Balance  uint64
	Redeemer Redeemer
	// FirstInput is the first input of the spending transaction
	FirstInput common.Outpoint
	// SigHash is the message that authorization signatures must cover
	SigHash []byte
	// preview skips signature checks, see Preview
	preview bool
}

// TransitionRuleFunc represents a function that checks one precondition of a market operation
type TransitionRuleFunc func(call Call) error

var ListItemRules = []TransitionRuleFunc{
	ValidateReserveAudit,
	ValidateSlotIndex,
	ValidateSlotEmpty,
	ValidateNewListing,
}

var RequestBuyRules = []TransitionRuleFunc{
	ValidateReserveAudit,
	ValidateSlotIndex,
	ValidateSlotListed,
	ValidateBuyerAddress,
}

var ConfirmBuyRules = []TransitionRuleFunc{
	ValidateReserveAudit,
	ValidateSlotIndex,
	ValidateSlotRequestedBuy,
	ValidateAssetLinkage,
}

var CancelBuyRules = []TransitionRuleFunc{
	ValidateReserveAudit,
	ValidateSlotIndex,
	ValidateSlotRequestedBuy,
	ValidateBuyerAuthorization,
}

var CancelListingRules = []TransitionRuleFunc{
	ValidateReserveAudit,
	ValidateSlotIndex,
	ValidateSlotListed,
	ValidateSellerAuthorization,
}

// RulesFor returns the precondition rules of the operation
func RulesFor(op Operation) ([]TransitionRuleFunc, bool) {
	switch op {
	case OpListItem:
		return ListItemRules, true
	case OpRequestBuy:
		return RequestBuyRules, true
	case OpConfirmBuy:
		return ConfirmBuyRules, true
	case OpCancelBuy:
		return CancelBuyRules, true
	case OpCancelListing:
		return CancelListingRules, true
	default:
		return nil, false
	}
}

// VerifyTransition runs the provided rules in order and wraps the first error
// encountered into a ValidationError
func VerifyTransition(call Call, rules []TransitionRuleFunc) error {
	for i, rule := range rules {
		if err := rule(call); err != nil {
			return rejectCall(call, i, err)
		}
	}
	return nil
}

func rejectCall(call Call, ruleIndex int, err error) error {
	details := map[string]any{
		"operation": call.Redeemer.Operation.String(),
		"slot":      call.Redeemer.Index,
	}
	if ruleIndex >= 0 {
		details["rule_index"] = ruleIndex
	}
	return common.NewValidationError(
		common.ValidationErrorTypeScript,
		"market transition rejected",
		details,
		err,
	)
}

// ValidateReserveAudit ensures the contract balance being spent matches its state
func ValidateReserveAudit(call Call) error {
	return Audit(call.State, call.Balance, call.Params.Reserve)
}

func ValidateSlotIndex(call Call) error {
	_, err := call.State.Slot(call.Redeemer.Index)
	return err
}

func validateSlotStatus(call Call, want SlotStatus) error {
	slot, err := call.State.Slot(call.Redeemer.Index)
	if err != nil {
		return err
	}
	if slot.Status() != want {
		return SlotStateError{
			Index: call.Redeemer.Index,
			Want:  []SlotStatus{want},
			Got:   slot.Status(),
		}
	}
	return nil
}

func ValidateSlotEmpty(call Call) error {
	return validateSlotStatus(call, SlotEmpty)
}

// ValidateSlotListed requires a listing without a pending buy request. A
// second request would strand the first buyer's deposit.
func ValidateSlotListed(call Call) error {
	return validateSlotStatus(call, SlotListed)
}

func ValidateSlotRequestedBuy(call Call) error {
	return validateSlotStatus(call, SlotRequestedBuy)
}

// ValidateNewListing checks the item being listed
func ValidateNewListing(call Call) error {
	item := call.Redeemer.Item
	if item.IsEmptySlot {
		return InputValidationError{Reason: "listed item is marked empty"}
	}
	if item.HasRequestingBuyer || !item.RequestingBuyer.IsZero() {
		return InputValidationError{Reason: "listed item has a requesting buyer"}
	}
	if item.Price == 0 {
		return InputValidationError{Reason: "price must be greater than zero"}
	}
	if item.Price > math.MaxInt64 {
		return InputValidationError{Reason: "price too large"}
	}
	if item.SellerAddr.IsZero() {
		return InputValidationError{Reason: "seller address is empty"}
	}
	if call.State.Listed(item.Outpoint) {
		return InputValidationError{Reason: "asset " + item.Outpoint.String() + " is already listed"}
	}
	return nil
}

func ValidateBuyerAddress(call Call) error {
	if call.Redeemer.Buyer.IsZero() {
		return InputValidationError{Reason: "buyer address is empty"}
	}
	return nil
}

// ValidateAssetLinkage requires the first transaction input to spend the listed asset
func ValidateAssetLinkage(call Call) error {
	slot, err := call.State.Slot(call.Redeemer.Index)
	if err != nil {
		return err
	}
	listing, _ := slot.Listing()
	if call.FirstInput != listing.Outpoint {
		return LinkageError{
			Expected: listing.Outpoint,
			Actual:   call.FirstInput,
		}
	}
	return nil
}

func ValidateBuyerAuthorization(call Call) error {
	if call.preview {
		return nil
	}
	slot, err := call.State.Slot(call.Redeemer.Index)
	if err != nil {
		return err
	}
	buyer, ok := slot.Buyer()
	if !ok {
		return AuthorizationError{Reason: "slot has no requesting buyer"}
	}
	return VerifyAuthorization(
		call.Redeemer.Signature,
		call.Redeemer.PubKey,
		buyer,
		call.SigHash,
	)
}

func ValidateSellerAuthorization(call Call) error {
	if call.preview {
		return nil
	}
	slot, err := call.State.Slot(call.Redeemer.Index)
	if err != nil {
		return err
	}
	listing, ok := slot.Listing()
	if !ok {
		return AuthorizationError{Reason: "slot has no seller"}
	}
	return VerifyAuthorization(
		call.Redeemer.Signature,
		call.Redeemer.PubKey,
		listing.Seller,
		call.SigHash,
	)
}
