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
	"math"

	"github.com/blinklabs-io/escrowmarket/cbor"
	"github.com/blinklabs-io/escrowmarket/ledger/common"
)

// UtxoValidationRules are run in order against every submitted transaction
var UtxoValidationRules = []common.UtxoValidationRuleFunc{
	UtxoValidateInputSetEmpty,
	UtxoValidateDuplicateInputs,
	UtxoValidateMaxTxSize,
	UtxoValidateBadInputs,
	UtxoValidateOutputs,
	UtxoValidateOutputTooSmall,
	UtxoValidateScriptOutputs,
	UtxoValidateValueNotConserved,
	UtxoValidateSignatures,
	UtxoValidateVKeyWitnesses,
	UtxoValidateScripts,
}

// StatelessValidationRules do not consult the ledger state, so they can be run
// with a nil LedgerState before a transaction is queued
var StatelessValidationRules = []common.UtxoValidationRuleFunc{
	UtxoValidateInputSetEmpty,
	UtxoValidateDuplicateInputs,
	UtxoValidateMaxTxSize,
	UtxoValidateOutputs,
	UtxoValidateOutputTooSmall,
	UtxoValidateSignatures,
}

// UtxoValidateInputSetEmpty ensures that the input set is not empty
func UtxoValidateInputSetEmpty(
	tx *common.Transaction,
	ls common.LedgerState,
	pp common.ProtocolParameters,
) error {
	if len(tx.Inputs()) > 0 {
		return nil
	}
	return InputSetEmptyError{}
}

// UtxoValidateDuplicateInputs ensures that no input is spent twice within the transaction
func UtxoValidateDuplicateInputs(
	tx *common.Transaction,
	ls common.LedgerState,
	pp common.ProtocolParameters,
) error {
	seen := make(map[common.Outpoint]struct{}, len(tx.Inputs()))
	for _, tmpInput := range tx.Inputs() {
		if _, ok := seen[tmpInput]; ok {
			return DuplicateInputError{Input: tmpInput}
		}
		seen[tmpInput] = struct{}{}
	}
	return nil
}

// UtxoValidateMaxTxSize ensures that a transaction does not exceed the max size
func UtxoValidateMaxTxSize(
	tx *common.Transaction,
	ls common.LedgerState,
	pp common.ProtocolParameters,
) error {
	if pp.MaxTxSize == 0 {
		return nil
	}
	txBytes, err := cbor.Encode(tx)
	if err != nil {
		return err
	}
	if uint(len(txBytes)) <= pp.MaxTxSize {
		return nil
	}
	return MaxTxSizeError{
		TxSize:    uint(len(txBytes)),
		MaxTxSize: pp.MaxTxSize,
	}
}

// UtxoValidateBadInputs ensures that all inputs are present in the ledger state (have not been spent)
func UtxoValidateBadInputs(
	tx *common.Transaction,
	ls common.LedgerState,
	pp common.ProtocolParameters,
) error {
	var badInputs []common.Outpoint
	for _, tmpInput := range tx.Inputs() {
		_, err := ls.UtxoById(tmpInput)
		if err != nil {
			badInputs = append(badInputs, tmpInput)
		}
	}
	if len(badInputs) == 0 {
		return nil
	}
	return BadInputsError{
		Inputs: badInputs,
	}
}

// UtxoValidateOutputs ensures that every output carries a well-formed lock
func UtxoValidateOutputs(
	tx *common.Transaction,
	ls common.LedgerState,
	pp common.ProtocolParameters,
) error {
	for idx, tmpOutput := range tx.Outputs() {
		if err := tmpOutput.Lock().Validate(); err != nil {
			return InvalidOutputError{
				// #nosec G115
				Index: uint32(idx),
				Err:   err,
			}
		}
	}
	return nil
}

// UtxoValidateOutputTooSmall ensures that outputs have at least the minimum value
func UtxoValidateOutputTooSmall(
	tx *common.Transaction,
	ls common.LedgerState,
	pp common.ProtocolParameters,
) error {
	var badOutputs []common.TransactionOutput
	for _, tmpOutput := range tx.Outputs() {
		if tmpOutput.Amount() == 0 || tmpOutput.Amount() < pp.MinUtxoValue {
			badOutputs = append(badOutputs, tmpOutput)
		}
	}
	if len(badOutputs) == 0 {
		return nil
	}
	return OutputTooSmallError{
		Outputs: badOutputs,
	}
}

// UtxoValidateScriptOutputs ensures that outputs locked by a registered script
// are only created by a transaction that spends an output of the same script.
// New instances of a registered script can only come from Genesis
func UtxoValidateScriptOutputs(
	tx *common.Transaction,
	ls common.LedgerState,
	pp common.ProtocolParameters,
) error {
	spent := make(map[common.ScriptHash]struct{})
	for _, tmpInput := range tx.Inputs() {
		tmpUtxo, err := ls.UtxoById(tmpInput)
		// Missing inputs are reported by UtxoValidateBadInputs
		if err != nil {
			continue
		}
		lock := tmpUtxo.Output.Lock()
		if lock.Type == common.LockTypeScript {
			spent[lock.ScriptHash] = struct{}{}
		}
	}
	for idx, tmpOutput := range tx.Outputs() {
		lock := tmpOutput.Lock()
		if lock.Type != common.LockTypeScript {
			continue
		}
		if _, ok := ls.ScriptValidator(lock.ScriptHash); !ok {
			continue
		}
		if _, ok := spent[lock.ScriptHash]; ok {
			continue
		}
		return UnauthorizedScriptOutputError{
			// #nosec G115
			Index:      uint32(idx),
			ScriptHash: lock.ScriptHash,
		}
	}
	return nil
}

// UtxoValidateValueNotConserved ensures that the transaction does not produce more
// value than it consumes. The difference is the fee.
func UtxoValidateValueNotConserved(
	tx *common.Transaction,
	ls common.LedgerState,
	pp common.ProtocolParameters,
) error {
	var consumed, produced uint64
	for _, tmpInput := range tx.Inputs() {
		tmpUtxo, err := ls.UtxoById(tmpInput)
		// Missing inputs are reported by UtxoValidateBadInputs
		if err != nil {
			continue
		}
		amount := tmpUtxo.Output.Amount()
		if consumed > math.MaxUint64-amount {
			return ValueNotConservedError{Consumed: math.MaxUint64, Produced: produced}
		}
		consumed += amount
	}
	for _, tmpOutput := range tx.Outputs() {
		amount := tmpOutput.Amount()
		if produced > math.MaxUint64-amount {
			return ValueNotConservedError{Consumed: consumed, Produced: math.MaxUint64}
		}
		produced += amount
	}
	if consumed >= produced {
		return nil
	}
	return ValueNotConservedError{
		Consumed: consumed,
		Produced: produced,
	}
}

// UtxoValidateSignatures verifies every vkey witness against the transaction hash
func UtxoValidateSignatures(
	tx *common.Transaction,
	ls common.LedgerState,
	pp common.ProtocolParameters,
) error {
	txHash := tx.Hash()
	for _, vw := range tx.Witnesses() {
		if err := common.VerifyVKeySignature(vw.Vkey, vw.Signature, txHash.Bytes()); err != nil {
			return InvalidWitnessError{Vkey: vw.Vkey, Err: err}
		}
	}
	return nil
}

// UtxoValidateVKeyWitnesses ensures each key-locked input is accompanied by a
// vkey witness for its key hash
func UtxoValidateVKeyWitnesses(
	tx *common.Transaction,
	ls common.LedgerState,
	pp common.ProtocolParameters,
) error {
	vkeyHashes := make(map[common.KeyHash]struct{})
	for _, vw := range tx.Witnesses() {
		vkeyHashes[common.NewKeyHashFromPubKey(vw.Vkey)] = struct{}{}
	}
	for _, tmpInput := range tx.Inputs() {
		tmpUtxo, err := ls.UtxoById(tmpInput)
		if err != nil {
			continue
		}
		lock := tmpUtxo.Output.Lock()
		if lock.Type != common.LockTypeKeyHash {
			continue
		}
		if _, ok := vkeyHashes[lock.KeyHash]; !ok {
			return MissingWitnessError{
				Input:   tmpInput,
				KeyHash: lock.KeyHash,
			}
		}
	}
	return nil
}

// UtxoValidateScripts runs the registered validator for each script-locked input
func UtxoValidateScripts(
	tx *common.Transaction,
	ls common.LedgerState,
	pp common.ProtocolParameters,
) error {
	resolved := make([]common.Utxo, 0, len(tx.Inputs()))
	for _, tmpInput := range tx.Inputs() {
		tmpUtxo, err := ls.UtxoById(tmpInput)
		if err != nil {
			return BadInputsError{Inputs: []common.Outpoint{tmpInput}}
		}
		resolved = append(resolved, tmpUtxo)
	}
	for idx, tmpUtxo := range resolved {
		lock := tmpUtxo.Output.Lock()
		if lock.Type != common.LockTypeScript {
			continue
		}
		validator, ok := ls.ScriptValidator(lock.ScriptHash)
		if !ok {
			return UnknownScriptError{
				Input:      tmpUtxo.Id,
				ScriptHash: lock.ScriptHash,
			}
		}
		err := validator.ValidateSpend(
			common.SpendContext{
				Tx: tx,
				// #nosec G115
				InputIndex:     uint32(idx),
				ResolvedInputs: resolved,
			},
		)
		if err != nil {
			return ScriptValidationError{
				Input:      tmpUtxo.Id,
				ScriptHash: lock.ScriptHash,
				Err:        err,
			}
		}
	}
	return nil
}
