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

package ledger

import (
	"fmt"
	"strings"

	"github.com/blinklabs-io/escrowmarket/ledger/common"
)

type InputSetEmptyError struct{}

func (InputSetEmptyError) Error() string {
	return "input set empty"
}

type DuplicateInputError struct {
	Input common.Outpoint
}

func (e DuplicateInputError) Error() string {
	return "duplicate input: " + e.Input.String()
}

type BadInputsError struct {
	Inputs []common.Outpoint
}

func (e BadInputsError) Error() string {
	tmpInputs := make([]string, len(e.Inputs))
	for idx, tmpInput := range e.Inputs {
		tmpInputs[idx] = tmpInput.String()
	}
	return "bad input(s): " + strings.Join(tmpInputs, ", ")
}

type ValueNotConservedError struct {
	Consumed uint64
	Produced uint64
}

func (e ValueNotConservedError) Error() string {
	return fmt.Sprintf(
		"value not conserved: consumed %d, produced %d",
		e.Consumed,
		e.Produced,
	)
}

type OutputTooSmallError struct {
	Outputs []common.TransactionOutput
}

func (e OutputTooSmallError) Error() string {
	tmpOutputs := make([]string, len(e.Outputs))
	for idx, tmpOutput := range e.Outputs {
		tmpOutputs[idx] = tmpOutput.String()
	}
	return "output too small: " + strings.Join(tmpOutputs, ", ")
}

type InvalidOutputError struct {
	Index uint32
	Err   error
}

func (e InvalidOutputError) Error() string {
	return fmt.Sprintf("invalid output %d: %s", e.Index, e.Err)
}

func (e InvalidOutputError) Unwrap() error {
	return e.Err
}

type MaxTxSizeError struct {
	TxSize    uint
	MaxTxSize uint
}

func (e MaxTxSizeError) Error() string {
	return fmt.Sprintf(
		"transaction size too large: size %d, max %d",
		e.TxSize,
		e.MaxTxSize,
	)
}

// MissingWitnessError indicates a key-locked input without a vkey witness for its key hash
type MissingWitnessError struct {
	Input   common.Outpoint
	KeyHash common.KeyHash
}

func (e MissingWitnessError) Error() string {
	return fmt.Sprintf(
		"missing vkey witness for input %s (key hash %s)",
		e.Input.String(),
		e.KeyHash.String(),
	)
}

type InvalidWitnessError struct {
	Vkey []byte
	Err  error
}

func (e InvalidWitnessError) Error() string {
	return fmt.Sprintf("invalid vkey witness %x: %s", e.Vkey, e.Err)
}

func (e InvalidWitnessError) Unwrap() error {
	return e.Err
}

type UnknownScriptError struct {
	Input      common.Outpoint
	ScriptHash common.ScriptHash
}

func (e UnknownScriptError) Error() string {
	return fmt.Sprintf(
		"no validator registered for script %s (input %s)",
		e.ScriptHash.String(),
		e.Input.String(),
	)
}

// ScriptValidationError wraps the error returned by a script validator
type ScriptValidationError struct {
	Input      common.Outpoint
	ScriptHash common.ScriptHash
	Err        error
}

func (e ScriptValidationError) Error() string {
	return fmt.Sprintf(
		"script %s rejected spend of %s: %s",
		e.ScriptHash.String(),
		e.Input.String(),
		e.Err,
	)
}

func (e ScriptValidationError) Unwrap() error {
	return e.Err
}

// UnauthorizedScriptOutputError indicates an output locked by a registered
// script in a transaction that does not spend that script
type UnauthorizedScriptOutputError struct {
	Index      uint32
	ScriptHash common.ScriptHash
}

func (e UnauthorizedScriptOutputError) Error() string {
	return fmt.Sprintf(
		"output %d is locked by script %s but the transaction spends no input of that script",
		e.Index,
		e.ScriptHash.String(),
	)
}

type GenesisOutputExistsError struct {
	Input common.Outpoint
}

func (e GenesisOutputExistsError) Error() string {
	return "genesis output already exists: " + e.Input.String()
}
