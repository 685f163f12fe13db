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
	"errors"
	"sync"
	"sync/atomic"
	"time"
)

// ErrPipelineStopped is returned when trying to submit to a stopped pipeline.
var ErrPipelineStopped = errors.New("pipeline is stopped")

// ErrPipelineNotStarted is returned when trying to use a pipeline that hasn't been started.
var ErrPipelineNotStarted = errors.New("pipeline not started")

// ErrMissingApplyFunc is returned by Start when no ApplyFunc is configured.
var ErrMissingApplyFunc = errors.New("pipeline: ApplyFunc not configured")

// TxPipeline decodes and checks submitted transactions in parallel and applies
// them in submission order, so that a transaction spending the output of an
// earlier submission is applied after it.
type TxPipeline struct {
	config PipelineConfig

	decodeStage *DecodeStage
	verifyStage *VerifyStage
	applyStage  *ApplyStage

	decodePool  *workerPool
	verifyPool  *workerPool
	applyRunner *ApplyStageRunner

	submitChan   chan *TxItem
	decodedChan  chan *TxItem
	verifiedChan chan *TxItem

	metrics *PipelineMetrics

	seqMu           sync.Mutex // serializes sequence allocation with the send
	sequenceCounter uint64
	ctx             context.Context
	cancel          context.CancelFunc
	started         atomic.Bool
	stopped         atomic.Bool
	wg              sync.WaitGroup
	mu              sync.Mutex   // protects Start/Stop
	submitMu        sync.RWMutex // protects Submit against concurrent Stop
}

var _ Pipeline = (*TxPipeline)(nil)

// NewTxPipeline creates a new TxPipeline using functional options.
//
// Example:
//
//	p := NewTxPipeline(
//	    WithApplyFunc(l.Submit),
//	    WithProtocolParameters(pp),
//	)
func NewTxPipeline(opts ...PipelineOption) *TxPipeline {
	config := DefaultPipelineConfig()
	for _, opt := range opts {
		opt(&config)
	}
	return &TxPipeline{
		config:  config,
		metrics: NewPipelineMetrics(config.PromRegistry),
	}
}

// Start starts the pipeline processing.
func (p *TxPipeline) Start(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.stopped.Load() {
		return ErrPipelineStopped
	}
	if p.started.Load() {
		return nil
	}
	if p.config.ApplyFunc == nil {
		return ErrMissingApplyFunc
	}

	p.ctx, p.cancel = context.WithCancel(ctx)

	bufSize := p.config.BufferSize
	p.submitChan = make(chan *TxItem, bufSize)
	p.decodedChan = make(chan *TxItem, bufSize)

	p.decodeStage = NewDecodeStage(p.metrics)
	p.applyStage = NewApplyStage(p.config.ApplyFunc)

	p.decodePool = newWorkerPool(p.decodeStage, p.config.DecodeWorkers, p.submitChan, p.decodedChan)

	var applyInput <-chan *TxItem
	verifyEnabled := p.config.VerifyWorkers > 0
	if verifyEnabled {
		p.verifiedChan = make(chan *TxItem, bufSize)
		p.verifyStage = NewVerifyStage(p.config.ProtocolParameters, p.config.VerifyRules, p.metrics)
		p.verifyPool = newWorkerPool(p.verifyStage, p.config.VerifyWorkers, p.decodedChan, p.verifiedChan)
		applyInput = p.verifiedChan
	} else {
		applyInput = p.decodedChan
	}

	p.applyRunner = NewApplyStageRunner(p.applyStage, applyInput)
	p.applyRunner.SetMetrics(p.metrics)

	// p.ctx is derived from the passed ctx
	p.decodePool.start(p.ctx) //nolint:contextcheck
	if verifyEnabled {
		p.verifyPool.start(p.ctx) //nolint:contextcheck
	}
	p.applyRunner.Start(p.ctx) //nolint:contextcheck

	p.wg.Add(1)
	go p.metricsCollector()

	p.started.Store(true)
	return nil
}

// Submit queues a CBOR encoded transaction. Use the returned item to wait for
// the result. This method is safe to call concurrently with Stop().
func (p *TxPipeline) Submit(ctx context.Context, rawCbor []byte) (*TxItem, error) {
	if !p.started.Load() {
		return nil, ErrPipelineNotStarted
	}

	// The RLock keeps Stop from closing submitChan while we send on it
	p.submitMu.RLock()
	defer p.submitMu.RUnlock()

	if p.stopped.Load() {
		return nil, ErrPipelineStopped
	}

	// The sequence number is only used up when the send succeeds, so that the
	// apply stage never waits for a gap
	p.seqMu.Lock()
	defer p.seqMu.Unlock()
	item := NewTxItem(rawCbor, p.sequenceCounter, p.ctx.Done())

	select {
	case p.submitChan <- item:
		p.sequenceCounter++
		p.metrics.RecordSubmit()
		return item, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-p.ctx.Done():
		return nil, ErrPipelineStopped
	}
}

// Stop stops the pipeline. Items still queued are abandoned, and their waiters
// get ErrPipelineStopped. Use WaitForDrain first for a graceful shutdown.
func (p *TxPipeline) Stop() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.started.Load() || p.stopped.Load() {
		return nil
	}

	// Cancel first to unblock any Submit() waiting on the channel send,
	// which holds submitMu.RLock()
	p.cancel()

	p.submitMu.Lock()
	p.stopped.Store(true)
	close(p.submitChan)
	p.submitMu.Unlock()

	p.decodePool.wait()
	close(p.decodedChan)

	if p.verifyPool != nil {
		p.verifyPool.wait()
		close(p.verifiedChan)
	}

	p.applyRunner.Stop()
	p.wg.Wait()

	return nil
}

// Stats returns the current pipeline statistics.
func (p *TxPipeline) Stats() PipelineStats {
	return p.metrics.Stats()
}

// PendingCount returns the approximate number of items still being processed.
func (p *TxPipeline) PendingCount() int {
	if !p.started.Load() {
		return 0
	}
	depth := len(p.submitChan) + len(p.decodedChan) + len(p.verifiedChan)
	if p.applyStage != nil {
		depth += p.applyStage.PendingCount()
	}
	return depth
}

// WaitForDrain blocks until all items submitted so far have been processed
// or the context is cancelled.
func (p *TxPipeline) WaitForDrain(ctx context.Context) error {
	if !p.started.Load() {
		return ErrPipelineNotStarted
	}

	ticker := time.NewTicker(10 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			stats := p.metrics.Stats()
			// Every submitted item ends up either failed or applied
			finished := stats.DecodeErrors + stats.VerifyErrors + stats.ApplyErrors + stats.TxsApplied
			if finished >= stats.TxsSubmitted {
				return nil
			}
		}
	}
}

func (p *TxPipeline) metricsCollector() {
	defer p.wg.Done()

	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-p.ctx.Done():
			return
		case <-ticker.C:
			p.metrics.UpdateQueueDepth(p.PendingCount())
		}
	}
}
