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
	"errors"
	"fmt"

	"github.com/blinklabs-io/escrowmarket/ledger/common"
)

// Sentinel errors so callers can use errors.Is
var (
	ErrSlotState          = errors.New("slot state precondition failed")
	ErrInputValidation    = errors.New("invalid input")
	ErrSlotIndex          = errors.New("slot index out of range")
	ErrAuthorization      = errors.New("authorization failed")
	ErrLinkage            = errors.New("asset linkage failed")
	ErrCommitmentMismatch = errors.New("output commitment mismatch")
	ErrBalance            = errors.New("balance out of range")
	ErrStateDecode        = errors.New("state decode failed")
)

type SlotStateError struct {
	Index uint32
	Want  []SlotStatus
	Got   SlotStatus
}

func (e SlotStateError) Error() string {
	return fmt.Sprintf(
		"slot %d: expected %v, got %s",
		e.Index,
		e.Want,
		e.Got.String(),
	)
}

func (SlotStateError) Is(target error) bool {
	return target == ErrSlotState
}

type InputValidationError struct {
	Reason string
}

func (e InputValidationError) Error() string {
	return "invalid input: " + e.Reason
}

func (InputValidationError) Is(target error) bool {
	return target == ErrInputValidation
}

// SlotIndexError is an input validation failure for an index outside the market
type SlotIndexError struct {
	Index uint32
}

func (e SlotIndexError) Error() string {
	return fmt.Sprintf(
		"slot index %d out of range (market size %d)",
		e.Index,
		MarketSize,
	)
}

func (SlotIndexError) Is(target error) bool {
	return target == ErrSlotIndex || target == ErrInputValidation
}

type AuthorizationError struct {
	Reason string
}

func (e AuthorizationError) Error() string {
	return "authorization failed: " + e.Reason
}

func (AuthorizationError) Is(target error) bool {
	return target == ErrAuthorization
}

// LinkageError indicates that the first transaction input is not the listed asset
type LinkageError struct {
	Expected common.Outpoint
	Actual   common.Outpoint
}

func (e LinkageError) Error() string {
	return fmt.Sprintf(
		"first input %s does not spend listed asset %s",
		e.Actual.String(),
		e.Expected.String(),
	)
}

func (LinkageError) Is(target error) bool {
	return target == ErrLinkage
}

type CommitmentMismatchError struct {
	Expected common.Blake2b256
	Actual   common.Blake2b256
}

func (e CommitmentMismatchError) Error() string {
	return fmt.Sprintf(
		"output commitment mismatch: expected %s, got %s",
		e.Expected.String(),
		e.Actual.String(),
	)
}

func (CommitmentMismatchError) Is(target error) bool {
	return target == ErrCommitmentMismatch
}

type BalanceError struct {
	Balance uint64
	Reason  string
}

func (e BalanceError) Error() string {
	return fmt.Sprintf("balance %d: %s", e.Balance, e.Reason)
}

func (BalanceError) Is(target error) bool {
	return target == ErrBalance
}

type StateDecodeError struct {
	Index  int
	Reason string
}

func (e StateDecodeError) Error() string {
	if e.Index < 0 {
		return "decode market state: " + e.Reason
	}
	return fmt.Sprintf("decode market state: slot %d: %s", e.Index, e.Reason)
}

func (StateDecodeError) Is(target error) bool {
	return target == ErrStateDecode
}
