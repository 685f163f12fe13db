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

package common

// Related files:
//   - tx.go: Transaction types that validation rules operate on
//   - rules.go: Validation rule signature and runner
//   - ledger/rules.go: The ledger's UTxO validation rules

// UtxoState defines the interface for querying the UTxO state
type UtxoState interface {
	UtxoById(Outpoint) (Utxo, error)
}

// SpendContext is what a script sees when one of its outputs is spent
type SpendContext struct {
	Tx         *Transaction
	InputIndex uint32
	// ResolvedInputs holds the spent output for each transaction input, in input order
	ResolvedInputs []Utxo
}

// Utxo returns the output being spent
func (c SpendContext) Utxo() Utxo {
	return c.ResolvedInputs[c.InputIndex]
}

// ScriptValidator validates the spending of outputs locked by a particular script
type ScriptValidator interface {
	ScriptHash() ScriptHash
	// ValidateSpend is called once for each transaction input that spends an
	// output locked by the validator's script
	ValidateSpend(ctx SpendContext) error
}

// ScriptState defines the interface for looking up registered script validators
type ScriptState interface {
	ScriptValidator(ScriptHash) (ScriptValidator, bool)
}

// LedgerState defines the interface for querying the ledger
type LedgerState interface {
	UtxoState
	ScriptState
}

// ProtocolParameters holds the ledger-wide limits checked during validation
type ProtocolParameters struct {
	MinUtxoValue uint64
	MaxTxSize    uint
}

// DefaultProtocolParameters returns the parameters used when none are configured
func DefaultProtocolParameters() ProtocolParameters {
	return ProtocolParameters{
		MinUtxoValue: 1,
		MaxTxSize:    16384,
	}
}
