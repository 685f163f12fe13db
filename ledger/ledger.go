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
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/blinklabs-io/escrowmarket/ledger/common"
	"github.com/prometheus/client_golang/prometheus"
)

// Ledger is a minimal UTxO ledger. Transactions are validated and applied one
// at a time, so at most one of several transactions spending the same output
// is accepted.
type Ledger struct {
	mu             sync.Mutex
	store          Store
	params         common.ProtocolParameters
	rules          []common.UtxoValidationRuleFunc
	logger         *slog.Logger
	promRegistry   prometheus.Registerer
	metrics        *ledgerMetrics
	utxoCount      int
	scriptsMu      sync.RWMutex
	scripts        map[common.ScriptHash]common.ScriptValidator
	pendingScripts []common.ScriptValidator
}

// LedgerOptionFunc is a type that represents functions that modify the Ledger config
type LedgerOptionFunc func(*Ledger)

// WithStore specifies the UTxO store. The default is a MemoryStore
func WithStore(store Store) LedgerOptionFunc {
	return func(l *Ledger) {
		l.store = store
	}
}

// WithLogger specifies the logger. The default is slog.Default()
func WithLogger(logger *slog.Logger) LedgerOptionFunc {
	return func(l *Ledger) {
		l.logger = logger
	}
}

// WithProtocolParameters specifies the protocol parameters used for validation
func WithProtocolParameters(pp common.ProtocolParameters) LedgerOptionFunc {
	return func(l *Ledger) {
		l.params = pp
	}
}

// WithPromRegistry specifies the registerer for the ledger metrics. Metrics
// are not registered when none is provided
func WithPromRegistry(registerer prometheus.Registerer) LedgerOptionFunc {
	return func(l *Ledger) {
		l.promRegistry = registerer
	}
}

// WithScriptValidator registers a script validator at creation
func WithScriptValidator(validator common.ScriptValidator) LedgerOptionFunc {
	return func(l *Ledger) {
		l.pendingScripts = append(l.pendingScripts, validator)
	}
}

// New returns a Ledger configured with the provided options
func New(opts ...LedgerOptionFunc) (*Ledger, error) {
	l := &Ledger{
		params:  common.DefaultProtocolParameters(),
		rules:   UtxoValidationRules,
		scripts: make(map[common.ScriptHash]common.ScriptValidator),
	}
	for _, opt := range opts {
		opt(l)
	}
	if l.logger == nil {
		l.logger = slog.Default()
	}
	if l.store == nil {
		l.store = NewMemoryStore()
	}
	for _, validator := range l.pendingScripts {
		l.RegisterScript(validator)
	}
	l.pendingScripts = nil
	l.metrics = newLedgerMetrics(l.promRegistry)
	err := l.store.ForEach(func(common.Utxo) bool {
		l.utxoCount++
		return true
	})
	if err != nil {
		return nil, err
	}
	l.metrics.utxoCount.Set(float64(l.utxoCount))
	return l, nil
}

// RegisterScript makes the validator responsible for outputs locked by its script hash
func (l *Ledger) RegisterScript(validator common.ScriptValidator) {
	l.scriptsMu.Lock()
	defer l.scriptsMu.Unlock()
	l.scripts[validator.ScriptHash()] = validator
}

// ScriptValidator returns the validator registered for the script hash
func (l *Ledger) ScriptValidator(scriptHash common.ScriptHash) (common.ScriptValidator, bool) {
	l.scriptsMu.RLock()
	defer l.scriptsMu.RUnlock()
	validator, ok := l.scripts[scriptHash]
	return validator, ok
}

// UtxoById returns the unspent output with the specified ID
func (l *Ledger) UtxoById(id common.Outpoint) (common.Utxo, error) {
	return l.store.Get(id)
}

// UtxosByAddress returns the unspent outputs locked to the key hash
func (l *Ledger) UtxosByAddress(keyHash common.KeyHash) ([]common.Utxo, error) {
	return l.filterUtxos(func(lock common.Lock) bool {
		return lock.Type == common.LockTypeKeyHash && lock.KeyHash == keyHash
	})
}

// UtxosByScript returns the unspent outputs locked by the script
func (l *Ledger) UtxosByScript(scriptHash common.ScriptHash) ([]common.Utxo, error) {
	return l.filterUtxos(func(lock common.Lock) bool {
		return lock.Type == common.LockTypeScript && lock.ScriptHash == scriptHash
	})
}

func (l *Ledger) filterUtxos(match func(common.Lock) bool) ([]common.Utxo, error) {
	var ret []common.Utxo
	err := l.store.ForEach(func(utxo common.Utxo) bool {
		if match(utxo.Output.Lock()) {
			ret = append(ret, utxo)
		}
		return true
	})
	if err != nil {
		return nil, err
	}
	return ret, nil
}

// Genesis adds outputs that are not backed by any input. It is used to fund
// wallets and to deploy contracts
func (l *Ledger) Genesis(outputs []common.TransactionOutput) ([]common.Utxo, error) {
	if len(outputs) == 0 {
		return nil, errors.New("genesis requires at least one output")
	}
	tx := &common.Transaction{
		Body: common.TransactionBody{
			TxOutputs: outputs,
		},
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if err := UtxoValidateOutputs(tx, l, l.params); err != nil {
		return nil, err
	}
	produced := tx.Produced()
	for _, utxo := range produced {
		if _, err := l.store.Get(utxo.Id); err == nil {
			return nil, GenesisOutputExistsError{Input: utxo.Id}
		}
	}
	if err := l.store.Apply(nil, produced); err != nil {
		return nil, err
	}
	l.utxoCount += len(produced)
	l.metrics.utxoCount.Set(float64(l.utxoCount))
	l.logger.Debug(
		"applied genesis outputs",
		"tx_hash",
		tx.Hash().ReversedString(),
		"outputs",
		len(produced),
	)
	return produced, nil
}

// Submit validates the transaction against the current UTxO set and applies it.
// The returned value is the transaction ID
func (l *Ledger) Submit(
	ctx context.Context,
	tx *common.Transaction,
) (common.Blake2b256, error) {
	if tx == nil {
		return common.Blake2b256{}, errors.New("nil transaction")
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if err := ctx.Err(); err != nil {
		return common.Blake2b256{}, err
	}
	txHash := tx.Hash()
	if err := common.VerifyTransaction(tx, l, l.params, l.rules); err != nil {
		l.metrics.txRejected.WithLabelValues(rejectReason(err)).Inc()
		l.logger.Info(
			"rejected transaction",
			"tx_hash",
			txHash.ReversedString(),
			"error",
			err,
		)
		return common.Blake2b256{}, err
	}
	if err := ctx.Err(); err != nil {
		return common.Blake2b256{}, err
	}
	produced := tx.Produced()
	if err := l.store.Apply(tx.Inputs(), produced); err != nil {
		return common.Blake2b256{}, err
	}
	l.utxoCount += len(produced) - len(tx.Inputs())
	l.metrics.txAccepted.Inc()
	l.metrics.utxoCount.Set(float64(l.utxoCount))
	l.logger.Debug(
		"applied transaction",
		"tx_hash",
		txHash.ReversedString(),
		"inputs",
		len(tx.Inputs()),
		"outputs",
		len(produced),
	)
	return txHash, nil
}

// Close closes the underlying store
func (l *Ledger) Close() error {
	return l.store.Close()
}
