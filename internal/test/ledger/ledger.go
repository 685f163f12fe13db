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

package test_ledger

import (
	"github.com/blinklabs-io/escrowmarket/ledger/common"
)

// Compile-time checks that MockLedgerState implements LedgerState and all child interfaces
var (
	_ common.LedgerState = (*MockLedgerState)(nil)
	_ common.UtxoState   = (*MockLedgerState)(nil)
	_ common.ScriptState = (*MockLedgerState)(nil)
)

// MockLedgerState is the canonical internal mock used by tests. Tests should
// construct &test_ledger.MockLedgerState{} and configure fields (e.g.
// Utxos, UtxoByIdFunc) to control behavior.
type MockLedgerState struct {
	Utxos        []common.Utxo
	UtxoByIdFunc func(common.Outpoint) (common.Utxo, error)
	Scripts      map[common.ScriptHash]common.ScriptValidator
}

func (m *MockLedgerState) UtxoById(
	id common.Outpoint,
) (common.Utxo, error) {
	if m.UtxoByIdFunc != nil {
		return m.UtxoByIdFunc(id)
	}
	for _, utxo := range m.Utxos {
		if utxo.Id == id {
			return utxo, nil
		}
	}
	return common.Utxo{}, common.UtxoNotFoundError{Input: id}
}

func (m *MockLedgerState) ScriptValidator(
	scriptHash common.ScriptHash,
) (common.ScriptValidator, bool) {
	if m.Scripts == nil {
		return nil, false
	}
	validator, ok := m.Scripts[scriptHash]
	return validator, ok
}

// AddScript registers a script validator with the mock
func (m *MockLedgerState) AddScript(validator common.ScriptValidator) {
	if m.Scripts == nil {
		m.Scripts = make(map[common.ScriptHash]common.ScriptValidator)
	}
	m.Scripts[validator.ScriptHash()] = validator
}
