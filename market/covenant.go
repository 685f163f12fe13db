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
	"encoding/binary"
	"errors"
	"log/slog"

	"github.com/blinklabs-io/escrowmarket/ledger/common"
)

const (
	scriptDescriptor = "escrowmarket/v1"

	DefaultAssetValue = 1
	DefaultReserve    = 1
)

// Params are the fixed parameters of a deployed market. They determine the script hash.
type Params struct {
	// AssetValue is the amount sent to the buyer with the purchased asset
	AssetValue uint64
	// Reserve is the deployment amount, held by the contract in addition to buyer deposits
	Reserve uint64
}

func DefaultParams() Params {
	return Params{
		AssetValue: DefaultAssetValue,
		Reserve:    DefaultReserve,
	}
}

// ScriptHash returns the hash identifying outputs locked by a market with these parameters
func (p Params) ScriptHash() common.ScriptHash {
	buf := make([]byte, 0, len(scriptDescriptor)+16)
	buf = append(buf, scriptDescriptor...)
	buf = binary.LittleEndian.AppendUint64(buf, p.AssetValue)
	buf = binary.LittleEndian.AppendUint64(buf, p.Reserve)
	return common.Blake2b224Hash(buf)
}

// Covenant validates spends of market contract outputs
type Covenant struct {
	params     Params
	scriptHash common.ScriptHash
	logger     *slog.Logger
}

var _ common.ScriptValidator = (*Covenant)(nil)

// CovenantOptionFunc is a type that represents functions that modify the Covenant config
type CovenantOptionFunc func(*Covenant)

// WithLogger specifies the logger. The default is slog.Default()
func WithLogger(logger *slog.Logger) CovenantOptionFunc {
	return func(c *Covenant) {
		c.logger = logger
	}
}

// WithAssetValue specifies the amount sent to the buyer with the purchased asset
func WithAssetValue(assetValue uint64) CovenantOptionFunc {
	return func(c *Covenant) {
		c.params.AssetValue = assetValue
	}
}

// WithReserve specifies the deployment amount
func WithReserve(reserve uint64) CovenantOptionFunc {
	return func(c *Covenant) {
		c.params.Reserve = reserve
	}
}

// WithParams specifies all market parameters
func WithParams(params Params) CovenantOptionFunc {
	return func(c *Covenant) {
		c.params = params
	}
}

func NewCovenant(opts ...CovenantOptionFunc) *Covenant {
	c := &Covenant{
		params: DefaultParams(),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.logger == nil {
		c.logger = slog.Default()
	}
	c.scriptHash = c.params.ScriptHash()
	return c
}

// Deploy returns a covenant with the deployment amount as its reserve, and its
// initial contract output with every slot empty
func Deploy(amount uint64, opts ...CovenantOptionFunc) (*Covenant, common.TransactionOutput) {
	c := NewCovenant(append(opts[:len(opts):len(opts)], WithReserve(amount))...)
	return c, c.GenesisOutput()
}

func (c *Covenant) Params() Params {
	return c.params
}

func (c *Covenant) ScriptHash() common.ScriptHash {
	return c.scriptHash
}

// GenesisOutput returns the initial contract output
func (c *Covenant) GenesisOutput() common.TransactionOutput {
	return ContractOutput(c.params, NewMarketState(), c.params.Reserve)
}

// State decodes the market state carried by a contract output
func (c *Covenant) State(output common.TransactionOutput) (MarketState, error) {
	lock := output.Lock()
	if lock.Type != common.LockTypeScript || lock.ScriptHash != c.scriptHash {
		return MarketState{}, errors.New("output is not locked by this market")
	}
	return DecodeState(lock.State)
}

// ValidateSpend checks a transaction spending a contract output
func (c *Covenant) ValidateSpend(ctx common.SpendContext) error {
	tx := ctx.Tx
	utxo := ctx.Utxo()
	contractInputs := 0
	for _, tmpUtxo := range ctx.ResolvedInputs {
		lock := tmpUtxo.Output.Lock()
		if lock.Type == common.LockTypeScript && lock.ScriptHash == c.scriptHash {
			contractInputs++
		}
	}
	if contractInputs != 1 {
		return InputValidationError{Reason: "transaction spends more than one contract output"}
	}
	state, err := c.State(utxo.Output)
	if err != nil {
		return err
	}
	redeemerData, ok := tx.Redeemer(ctx.InputIndex)
	if !ok {
		return InputValidationError{Reason: "missing redeemer"}
	}
	redeemer, err := DecodeRedeemer(redeemerData)
	if err != nil {
		return err
	}
	call := Call{
		Params:     c.params,
		State:      state,
		Balance:    utxo.Output.Amount(),
		Redeemer:   redeemer,
		FirstInput: tx.Inputs()[0],
		SigHash:    tx.Hash().Bytes(),
	}
	transition, err := Apply(call)
	if err == nil {
		if tmpErr := VerifyCommitment(transition.Outputs, tx.HashOutputs()); tmpErr != nil {
			err = rejectCall(call, -1, tmpErr)
		}
	}
	if err != nil {
		c.logger.Info(
			"rejected market transition",
			"operation",
			redeemer.Operation.String(),
			"slot",
			redeemer.Index,
			"error",
			err,
		)
		return err
	}
	c.logger.Debug(
		"accepted market transition",
		"operation",
		redeemer.Operation.String(),
		"slot",
		redeemer.Index,
		"balance",
		transition.NextBalance,
	)
	return nil
}
