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
	"math/big"

	"github.com/blinklabs-io/escrowmarket/ledger/common"
	"github.com/blinklabs-io/plutigo/data"
	utxorpc "github.com/utxorpc/go-codegen/utxorpc/v1alpha/cardano"
)

func (o Listing) ToPlutusData() []data.PlutusData {
	return []data.PlutusData{
		data.NewConstr(
			0,
			o.Outpoint.TxId.ToPlutusData(),
			data.NewInteger(big.NewInt(int64(o.Outpoint.Index))),
		),
		data.NewInteger(new(big.Int).SetUint64(o.Price)),
		o.Seller.ToPlutusData(),
	}
}

// ToPlutusData returns the datum form of the slot: constructor 0 for Empty,
// 1 for Listed and 2 for RequestedBuy
func (s Slot) ToPlutusData() data.PlutusData {
	switch s.status {
	case SlotListed:
		return data.NewConstr(1, s.listing.ToPlutusData()...)
	case SlotRequestedBuy:
		fields := append(s.listing.ToPlutusData(), s.buyer.ToPlutusData())
		return data.NewConstr(2, fields...)
	default:
		return data.NewConstr(0)
	}
}

// ToPlutusData returns the datum form of the market, a list of slots
func (s MarketState) ToPlutusData() data.PlutusData {
	tmpItems := make([]data.PlutusData, 0, MarketSize)
	for _, slot := range s {
		tmpItems = append(tmpItems, slot.ToPlutusData())
	}
	return data.NewList(tmpItems...)
}

// DatumCbor returns the CBOR encoded datum form of the market
func (s MarketState) DatumCbor() ([]byte, error) {
	return data.Encode(s.ToPlutusData())
}

// DatumHash returns the hash of the CBOR encoded datum form of the market
func (s MarketState) DatumHash() (common.Blake2b256, error) {
	cborData, err := s.DatumCbor()
	if err != nil {
		return common.Blake2b256{}, err
	}
	return common.Blake2b256Hash(cborData), nil
}

// Utxorpc returns the utxorpc datum for the market
func (s MarketState) Utxorpc() (*utxorpc.Datum, error) {
	cborData, err := s.DatumCbor()
	if err != nil {
		return nil, err
	}
	return &utxorpc.Datum{
		Hash:         common.Blake2b256Hash(cborData).Bytes(),
		OriginalCbor: cborData,
	}, nil
}

// UtxorpcOutput returns the utxorpc form of the output. Contract outputs of
// this market carry the datum form of their state
func (c *Covenant) UtxorpcOutput(output common.TransactionOutput) (*utxorpc.TxOutput, error) {
	ret := output.Utxorpc()
	lock := output.Lock()
	if lock.Type != common.LockTypeScript || lock.ScriptHash != c.scriptHash {
		return ret, nil
	}
	state, err := DecodeState(lock.State)
	if err != nil {
		return nil, err
	}
	datum, err := state.Utxorpc()
	if err != nil {
		return nil, err
	}
	ret.Datum = datum
	return ret, nil
}

// UtxorpcTx returns the utxorpc form of the transaction, with the market
// datum on its contract outputs
func (c *Covenant) UtxorpcTx(tx *common.Transaction) (*utxorpc.Tx, error) {
	ret := tx.Utxorpc()
	for idx, output := range tx.Outputs() {
		tmpOutput, err := c.UtxorpcOutput(output)
		if err != nil {
			return nil, err
		}
		ret.Outputs[idx] = tmpOutput
	}
	return ret, nil
}
