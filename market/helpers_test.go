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
	"github.com/blinklabs-io/escrowmarket/internal/test"
	"github.com/blinklabs-io/escrowmarket/ledger/common"
	"github.com/blinklabs-io/escrowmarket/market"
)

const (
	testReserve uint64 = 1
	testPrice   uint64 = 1000
)

var (
	testSeller   = test.NewTestKey("seller")
	testBuyer    = test.NewTestKey("buyer")
	testAttacker = test.NewTestKey("attacker")
	testAsset    = common.NewOutpoint(test.TxId("asset"), 0)
)

func testParams() market.Params {
	return market.Params{
		AssetValue: market.DefaultAssetValue,
		Reserve:    testReserve,
	}
}

func testItem(price uint64) market.Item {
	return market.Item{
		Outpoint:   testAsset,
		Price:      price,
		SellerAddr: testSeller.KeyHash(),
	}
}

func testListing() market.Listing {
	return market.Listing{
		Outpoint: testAsset,
		Price:    testPrice,
		Seller:   testSeller.KeyHash(),
	}
}

// listedState returns a market with a listing in slot 0
func listedState() market.MarketState {
	state := market.NewMarketState()
	state[0] = market.ListedSlot(testListing())
	return state
}

// requestedState returns a market with a pending buy request in slot 0
func requestedState() market.MarketState {
	state := market.NewMarketState()
	state[0] = market.RequestedBuySlot(testListing(), testBuyer.KeyHash())
	return state
}
