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

// Package common provides the shared ledger types used by the ledger and the
// market covenant.
//
// # Key Files by Purpose
//
// Interfaces (start here to understand the API):
//   - state.go: LedgerState, UtxoState, ScriptState, ScriptValidator
//   - tx.go: Transaction, TransactionBody, Outpoint, Lock, TransactionOutput
//
// Core Types:
//   - common.go: Blake2b hash types
//   - address.go: Key hashes and bech32 addresses
//
// Validation:
//   - rules.go: UtxoValidationRuleFunc signature and VerifyTransaction
//   - errors.go: UTxO lookup errors
//   - verify.go: Signature verification and ValidationError
//
// # Common Patterns
//
// Validation rules have this signature:
//
//	func UtxoValidate{RuleName}(tx *Transaction, ls LedgerState, pp ProtocolParameters) error
//
// The committed binary form of an output (TransactionOutput.Bytes) is what
// HashOutputs digests. Covenants compare that digest against the digest of the
// outputs they expect.
//
// # Testing
//
// Use MockLedgerState from internal/test/ledger/ledger.go for testing validation rules.
package common
