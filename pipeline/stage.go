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

// Package pipeline provides a concurrent intake pipeline for transactions.
// Transactions are decoded and checked in parallel, then applied to the
// ledger in the order they were submitted.
package pipeline

import (
	"context"
	"time"

	"github.com/blinklabs-io/escrowmarket/ledger/common"
)

// Stage represents a processing stage in the transaction pipeline.
type Stage interface {
	// Name returns the name of the stage for logging and metrics.
	Name() string
	// Process processes a single item. Returns an error if processing fails.
	Process(ctx context.Context, item *TxItem) error
}

// StageFunc is an adapter that allows using ordinary functions as Stage implementations.
type StageFunc struct {
	name string
	fn   func(ctx context.Context, item *TxItem) error
}

// NewStageFunc creates a new StageFunc with the given name and processing function.
func NewStageFunc(name string, fn func(ctx context.Context, item *TxItem) error) *StageFunc {
	return &StageFunc{
		name: name,
		fn:   fn,
	}
}

func (s *StageFunc) Name() string {
	return s.name
}

func (s *StageFunc) Process(ctx context.Context, item *TxItem) error {
	return s.fn(ctx, item)
}

// Pipeline represents a transaction intake pipeline.
type Pipeline interface {
	Start(ctx context.Context) error
	// Submit queues a CBOR encoded transaction. The context allows callers to
	// give up when the pipeline is full.
	Submit(ctx context.Context, rawCbor []byte) (*TxItem, error)
	Stop() error
	WaitForDrain(ctx context.Context) error
	Stats() PipelineStats
}

// ApplyFunc applies a transaction to the ledger. It is called in submission order.
type ApplyFunc func(ctx context.Context, tx *common.Transaction) (common.Blake2b256, error)

// PipelineStats contains statistics about pipeline performance.
type PipelineStats struct {
	TxsSubmitted      uint64
	TxsDecoded        uint64
	TxsVerified       uint64
	TxsApplied        uint64
	DecodeErrors      uint64
	VerifyErrors      uint64
	ApplyErrors       uint64
	CurrentQueueDepth int
	PeakQueueDepth    int
	// LastTxTime is the time the last transaction was applied.
	LastTxTime time.Time
	StartTime  time.Time
}
