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

package pipeline

import (
	"context"
	"sync"
	"time"

	"github.com/blinklabs-io/escrowmarket/ledger/common"
)

// TxItem represents a transaction as it moves through the pipeline.
// It is thread-safe and tracks the processing state at each stage.
type TxItem struct {
	// Immutable fields, set at construction
	rawCbor        []byte
	sequenceNumber uint64
	receivedAt     time.Time
	stopped        <-chan struct{}
	done           chan struct{}
	doneOnce       sync.Once

	mu sync.RWMutex

	tx             *common.Transaction
	decodeError    error
	decodeDuration time.Duration

	verifyError    error
	verifyDuration time.Duration

	applied       bool
	txHash        common.Blake2b256
	applyError    error
	applyDuration time.Duration
}

// NewTxItem creates a new TxItem. The rawCbor slice is copied so that the
// caller may reuse it. The stopped channel is closed when the owning
// pipeline stops, and may be nil.
func NewTxItem(rawCbor []byte, seq uint64, stopped <-chan struct{}) *TxItem {
	cbor := make([]byte, len(rawCbor))
	copy(cbor, rawCbor)
	return &TxItem{
		rawCbor:        cbor,
		sequenceNumber: seq,
		receivedAt:     time.Now(),
		stopped:        stopped,
		done:           make(chan struct{}),
	}
}

func (i *TxItem) RawCbor() []byte {
	return i.rawCbor
}

func (i *TxItem) SequenceNumber() uint64 {
	return i.sequenceNumber
}

func (i *TxItem) ReceivedAt() time.Time {
	return i.receivedAt
}

// Transaction returns the decoded transaction, or nil if decoding has not
// succeeded
func (i *TxItem) Transaction() *common.Transaction {
	i.mu.RLock()
	defer i.mu.RUnlock()
	return i.tx
}

func (i *TxItem) SetTransaction(tx *common.Transaction, duration time.Duration) {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.tx = tx
	i.decodeError = nil
	i.decodeDuration = duration
}

func (i *TxItem) SetDecodeError(err error, duration time.Duration) {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.tx = nil
	i.decodeError = err
	i.decodeDuration = duration
}

func (i *TxItem) IsDecoded() bool {
	i.mu.RLock()
	defer i.mu.RUnlock()
	return i.tx != nil && i.decodeError == nil
}

func (i *TxItem) DecodeError() error {
	i.mu.RLock()
	defer i.mu.RUnlock()
	return i.decodeError
}

func (i *TxItem) DecodeDuration() time.Duration {
	i.mu.RLock()
	defer i.mu.RUnlock()
	return i.decodeDuration
}

// SetVerified records the result of the stateless checks
func (i *TxItem) SetVerified(err error, duration time.Duration) {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.verifyError = err
	i.verifyDuration = duration
}

func (i *TxItem) VerifyError() error {
	i.mu.RLock()
	defer i.mu.RUnlock()
	return i.verifyError
}

func (i *TxItem) VerifyDuration() time.Duration {
	i.mu.RLock()
	defer i.mu.RUnlock()
	return i.verifyDuration
}

func (i *TxItem) SetApplied(txHash common.Blake2b256, err error, duration time.Duration) {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.applied = err == nil
	i.txHash = txHash
	i.applyError = err
	i.applyDuration = duration
}

func (i *TxItem) IsApplied() bool {
	i.mu.RLock()
	defer i.mu.RUnlock()
	return i.applied
}

func (i *TxItem) ApplyError() error {
	i.mu.RLock()
	defer i.mu.RUnlock()
	return i.applyError
}

func (i *TxItem) ApplyDuration() time.Duration {
	i.mu.RLock()
	defer i.mu.RUnlock()
	return i.applyDuration
}

// Err returns the error from the first stage that failed
func (i *TxItem) Err() error {
	i.mu.RLock()
	defer i.mu.RUnlock()
	if i.decodeError != nil {
		return i.decodeError
	}
	if i.verifyError != nil {
		return i.verifyError
	}
	return i.applyError
}

// TotalDuration returns the time since the item was received.
func (i *TxItem) TotalDuration() time.Duration {
	return time.Since(i.receivedAt)
}

// Done returns a channel that is closed once the item has passed the apply stage
func (i *TxItem) Done() <-chan struct{} {
	return i.done
}

func (i *TxItem) finish() {
	i.doneOnce.Do(func() {
		close(i.done)
	})
}

// Wait blocks until the item has been processed and returns the transaction ID
// and the error from the first failing stage
func (i *TxItem) Wait(ctx context.Context) (common.Blake2b256, error) {
	select {
	case <-i.done:
	case <-ctx.Done():
		return common.Blake2b256{}, ctx.Err()
	case <-i.stopped:
		// Processing may have finished as the pipeline stopped
		select {
		case <-i.done:
		default:
			return common.Blake2b256{}, ErrPipelineStopped
		}
	}
	if err := i.Err(); err != nil {
		return common.Blake2b256{}, err
	}
	i.mu.RLock()
	defer i.mu.RUnlock()
	return i.txHash, nil
}
