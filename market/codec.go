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
	"fmt"

	"github.com/blinklabs-io/escrowmarket/ledger/common"
)

// Each slot is a fixed record:
//
//	flags(1) || outpoint(36) || price(8, LE) || seller(20) || buyer(20)
const (
	SlotRecordSize = 1 + common.OutpointSize + 8 + common.Blake2b160Size + common.Blake2b160Size
	StateSize      = MarketSize * SlotRecordSize

	flagOccupied = 0x01
	flagHasBuyer = 0x02
	flagsKnown   = flagOccupied | flagHasBuyer
)

const (
	recordOffsetOutpoint = 1
	recordOffsetPrice    = recordOffsetOutpoint + common.OutpointSize
	recordOffsetSeller   = recordOffsetPrice + 8
	recordOffsetBuyer    = recordOffsetSeller + common.Blake2b160Size
)

// Encode returns the fixed-layout bytes embedded in the contract output lock
func (s MarketState) Encode() []byte {
	ret := make([]byte, StateSize)
	for idx, slot := range s {
		encodeSlot(ret[idx*SlotRecordSize:(idx+1)*SlotRecordSize], slot)
	}
	return ret
}

func encodeSlot(record []byte, slot Slot) {
	listing, ok := slot.Listing()
	if !ok {
		return
	}
	flags := byte(flagOccupied)
	if buyer, ok := slot.Buyer(); ok {
		flags |= flagHasBuyer
		copy(record[recordOffsetBuyer:], buyer[:])
	}
	record[0] = flags
	copy(record[recordOffsetOutpoint:], listing.Outpoint.Bytes())
	binary.LittleEndian.PutUint64(record[recordOffsetPrice:], listing.Price)
	copy(record[recordOffsetSeller:], listing.Seller[:])
}

// DecodeState is the inverse of MarketState.Encode. Only the canonical
// encoding of a state is accepted.
func DecodeState(data []byte) (MarketState, error) {
	var ret MarketState
	if len(data) != StateSize {
		return ret, StateDecodeError{
			Index:  -1,
			Reason: fmt.Sprintf("expected %d bytes, got %d", StateSize, len(data)),
		}
	}
	for idx := range ret {
		slot, err := decodeSlot(data[idx*SlotRecordSize : (idx+1)*SlotRecordSize])
		if err != nil {
			return MarketState{}, StateDecodeError{Index: idx, Reason: err.Error()}
		}
		ret[idx] = slot
	}
	return ret, nil
}

type decodeReason string

func (r decodeReason) Error() string {
	return string(r)
}

func decodeSlot(record []byte) (Slot, error) {
	flags := record[0]
	if flags&^flagsKnown != 0 {
		return Slot{}, decodeReason(fmt.Sprintf("unknown flags 0x%02x", flags))
	}
	if flags&flagOccupied == 0 {
		if flags != 0 || !allZero(record[1:]) {
			return Slot{}, decodeReason("empty slot with non-zero fields")
		}
		return EmptySlot(), nil
	}
	outpoint, err := common.NewOutpointFromBytes(record[recordOffsetOutpoint:recordOffsetPrice])
	if err != nil {
		return Slot{}, err
	}
	listing := Listing{
		Outpoint: outpoint,
		Price:    binary.LittleEndian.Uint64(record[recordOffsetPrice:recordOffsetSeller]),
		Seller:   common.NewBlake2b160(record[recordOffsetSeller:recordOffsetBuyer]),
	}
	if listing.Price == 0 {
		return Slot{}, decodeReason("occupied slot with zero price")
	}
	buyerBytes := record[recordOffsetBuyer:]
	if flags&flagHasBuyer == 0 {
		if !allZero(buyerBytes) {
			return Slot{}, decodeReason("buyer set without flag")
		}
		return ListedSlot(listing), nil
	}
	return RequestedBuySlot(listing, common.NewBlake2b160(buyerBytes)), nil
}

func allZero(data []byte) bool {
	for _, b := range data {
		if b != 0 {
			return false
		}
	}
	return true
}
