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

package market_test

import (
	"testing"

	"github.com/blinklabs-io/escrowmarket/market"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRedeemerRoundTrip(t *testing.T) {
	redeemers := []market.Redeemer{
		{Operation: market.OpListItem, Index: 3, Item: testItem(testPrice)},
		{Operation: market.OpRequestBuy, Index: 9, Buyer: testBuyer.KeyHash()},
		{
			Operation: market.OpCancelBuy,
			PubKey:    testBuyer.Public,
			Signature: testBuyer.Sign(testSigHash),
			Change:    &market.ChangeOutput{Address: testBuyer.KeyHash(), Amount: 77},
		},
	}
	for _, redeemer := range redeemers {
		redeemerBytes, err := redeemer.Bytes()
		require.NoError(t, err)
		decoded, err := market.DecodeRedeemer(redeemerBytes)
		require.NoError(t, err)
		assert.Equal(t, redeemer.Operation, decoded.Operation)
		assert.Equal(t, redeemer.Index, decoded.Index)
		assert.Equal(t, redeemer.Item, decoded.Item)
		assert.Equal(t, redeemer.Buyer, decoded.Buyer)
		assert.Equal(t, []byte(redeemer.PubKey), decoded.PubKey)
		assert.Equal(t, redeemer.Signature, decoded.Signature)
		if redeemer.Change == nil {
			assert.Nil(t, decoded.Change)
		} else {
			require.NotNil(t, decoded.Change)
			assert.Equal(t, *redeemer.Change, *decoded.Change)
		}
	}
}

func TestDecodeRedeemerInvalid(t *testing.T) {
	_, err := market.DecodeRedeemer([]byte{0xff})
	assert.ErrorIs(t, err, market.ErrInputValidation)
	// Trailing data
	redeemerBytes, err := market.Redeemer{Operation: market.OpListItem}.Bytes()
	require.NoError(t, err)
	_, err = market.DecodeRedeemer(append(redeemerBytes, 0x00))
	assert.ErrorIs(t, err, market.ErrInputValidation)
}

func TestParamsScriptHash(t *testing.T) {
	params := testParams()
	assert.Equal(t, params.ScriptHash(), testParams().ScriptHash())
	other := params
	other.Reserve++
	assert.NotEqual(t, params.ScriptHash(), other.ScriptHash())
	other = params
	other.AssetValue++
	assert.NotEqual(t, params.ScriptHash(), other.ScriptHash())
}

func TestDeploy(t *testing.T) {
	covenant, output := market.Deploy(5000)
	assert.Equal(t, uint64(5000), covenant.Params().Reserve)
	assert.Equal(t, uint64(market.DefaultAssetValue), covenant.Params().AssetValue)
	assert.Equal(t, uint64(5000), output.Amount())
	assert.Equal(t, covenant.ScriptHash(), output.Lock().ScriptHash)
	state, err := covenant.State(output)
	require.NoError(t, err)
	assert.Equal(t, market.NewMarketState(), state)
	// Outputs of other markets are not decoded
	_, err = market.NewCovenant().State(output)
	assert.Error(t, err)
	_, err = covenant.State(market.PayTo(testSeller.KeyHash(), 1))
	assert.Error(t, err)
}
