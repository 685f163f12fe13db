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
	"fmt"

	"github.com/blinklabs-io/escrowmarket/cbor"
	"github.com/blinklabs-io/escrowmarket/ledger/common"
)

// MarketSize is the fixed number of listing slots
const MarketSize = 10

type SlotStatus uint8

const (
	SlotEmpty SlotStatus = iota
	SlotListed
	SlotRequestedBuy
)

func (s SlotStatus) String() string {
	switch s {
	case SlotEmpty:
		return "Empty"
	case SlotListed:
		return "Listed"
	case SlotRequestedBuy:
		return "RequestedBuy"
	default:
		return fmt.Sprintf("SlotStatus(%d)", uint8(s))
	}
}

// Listing holds the sale terms of an occupied slot
type Listing struct {
	Outpoint common.Outpoint
	Price    uint64
	Seller   common.KeyHash
}

// Slot is one entry of the listing table. The zero value is an empty slot.
type Slot struct {
	status  SlotStatus
	listing Listing
	buyer   common.KeyHash
}

func EmptySlot() Slot {
	return Slot{}
}

func ListedSlot(listing Listing) Slot {
	return Slot{status: SlotListed, listing: listing}
}

func RequestedBuySlot(listing Listing, buyer common.KeyHash) Slot {
	return Slot{status: SlotRequestedBuy, listing: listing, buyer: buyer}
}

func (s Slot) Status() SlotStatus {
	return s.status
}

// Listing returns the sale terms, or false for an empty slot
func (s Slot) Listing() (Listing, bool) {
	if s.status == SlotEmpty {
		return Listing{}, false
	}
	return s.listing, true
}

// Buyer returns the requesting buyer, or false when there is none
func (s Slot) Buyer() (common.KeyHash, bool) {
	if s.status != SlotRequestedBuy {
		return common.KeyHash{}, false
	}
	return s.buyer, true
}

// Item returns the flat form of the slot
func (s Slot) Item() Item {
	switch s.status {
	case SlotListed:
		return Item{
			Outpoint:   s.listing.Outpoint,
			Price:      s.listing.Price,
			SellerAddr: s.listing.Seller,
		}
	case SlotRequestedBuy:
		return Item{
			Outpoint:           s.listing.Outpoint,
			Price:              s.listing.Price,
			SellerAddr:         s.listing.Seller,
			HasRequestingBuyer: true,
			RequestingBuyer:    s.buyer,
		}
	default:
		return Item{IsEmptySlot: true}
	}
}

func (s Slot) String() string {
	switch s.status {
	case SlotListed:
		return fmt.Sprintf(
			"Listed(%s, price %d, seller %s)",
			s.listing.Outpoint.String(),
			s.listing.Price,
			s.listing.Seller.String(),
		)
	case SlotRequestedBuy:
		return fmt.Sprintf(
			"RequestedBuy(%s, price %d, seller %s, buyer %s)",
			s.listing.Outpoint.String(),
			s.listing.Price,
			s.listing.Seller.String(),
			s.buyer.String(),
		)
	default:
		return "Empty"
	}
}

// Item is the flat form of a slot used by callers and in redeemers
type Item struct {
	cbor.StructAsArray
	Outpoint           common.Outpoint
	Price              uint64
	SellerAddr         common.KeyHash
	IsEmptySlot        bool
	HasRequestingBuyer bool
	RequestingBuyer    common.KeyHash
}

// Slot converts the item to a slot, rejecting flag combinations that do not
// describe one of the slot states
func (i Item) Slot() (Slot, error) {
	if i.IsEmptySlot {
		if i.HasRequestingBuyer {
			return Slot{}, InputValidationError{Reason: "empty slot has a requesting buyer"}
		}
		return EmptySlot(), nil
	}
	if i.Price == 0 {
		return Slot{}, InputValidationError{Reason: "price must be greater than zero"}
	}
	listing := Listing{
		Outpoint: i.Outpoint,
		Price:    i.Price,
		Seller:   i.SellerAddr,
	}
	if i.HasRequestingBuyer {
		return RequestedBuySlot(listing, i.RequestingBuyer), nil
	}
	if !i.RequestingBuyer.IsZero() {
		return Slot{}, InputValidationError{Reason: "requesting buyer set without flag"}
	}
	return ListedSlot(listing), nil
}

// MarketState is the listing table carried by the contract output
type MarketState [MarketSize]Slot

// NewMarketState returns a market with every slot empty
func NewMarketState() MarketState {
	return MarketState{}
}

// Slot returns the slot at the index
func (s MarketState) Slot(idx uint32) (Slot, error) {
	if idx >= MarketSize {
		return Slot{}, SlotIndexError{Index: idx}
	}
	return s[idx], nil
}

// Items returns the flat form of every slot
func (s MarketState) Items() []Item {
	ret := make([]Item, 0, MarketSize)
	for _, slot := range s {
		ret = append(ret, slot.Item())
	}
	return ret
}

// FirstEmpty returns the index of the first empty slot
func (s MarketState) FirstEmpty() (uint32, bool) {
	for idx, slot := range s {
		if slot.Status() == SlotEmpty {
			// #nosec G115
			return uint32(idx), true
		}
	}
	return 0, false
}

// Listed reports whether the outpoint is the asset of any occupied slot
func (s MarketState) Listed(outpoint common.Outpoint) bool {
	for _, slot := range s {
		if listing, ok := slot.Listing(); ok && listing.Outpoint == outpoint {
			return true
		}
	}
	return false
}
