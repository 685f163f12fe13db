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
)

// ApplyStage buffers checked items and applies them in sequence order.
//
// ProcessWithStatus must be called from a single goroutine to guarantee
// ordered execution of the ApplyFunc. The ApplyStageRunner provides this.
type ApplyStage struct {
	applyFunc ApplyFunc
	mu        sync.Mutex
	// pending holds out-of-order items waiting to be applied
	pending      map[uint64]*TxItem
	nextSequence uint64
}

// NewApplyStage creates a new ApplyStage with the given apply function
func NewApplyStage(applyFunc ApplyFunc) *ApplyStage {
	return &ApplyStage{
		applyFunc: applyFunc,
		pending:   make(map[uint64]*TxItem),
	}
}

func (s *ApplyStage) Name() string {
	return "apply"
}

// Process buffers the item and applies any items that are now in order.
func (s *ApplyStage) Process(ctx context.Context, item *TxItem) error {
	_, err := s.ProcessWithStatus(ctx, item)
	return err
}

// ProcessWithStatus processes an item and returns all items that were processed.
// If the item is next in sequence, it is applied immediately along with any
// buffered items that become ready. If the item is out of order, it is buffered
// and the returned slice will be nil.
func (s *ApplyStage) ProcessWithStatus(ctx context.Context, item *TxItem) ([]*TxItem, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	s.mu.Lock()
	if item.SequenceNumber() != s.nextSequence {
		s.pending[item.SequenceNumber()] = item
		s.mu.Unlock()
		return nil, nil
	}
	s.nextSequence++
	s.mu.Unlock()

	s.applyItem(ctx, item)
	buffered := s.applyPending(ctx)
	processed := make([]*TxItem, 0, 1+len(buffered))
	processed = append(processed, item)
	processed = append(processed, buffered...)
	return processed, nil
}

// applyItem applies a single item if the earlier stages succeeded
func (s *ApplyStage) applyItem(ctx context.Context, item *TxItem) {
	if item.DecodeError() != nil || item.VerifyError() != nil {
		return
	}
	tx := item.Transaction()
	if tx == nil {
		return
	}
	start := time.Now()
	txHash, err := s.applyFunc(ctx, tx)
	item.SetApplied(txHash, err, time.Since(start))
}

// applyPending applies any pending items that are now in order
func (s *ApplyStage) applyPending(ctx context.Context) []*TxItem {
	var processed []*TxItem
	for {
		select {
		case <-ctx.Done():
			return processed
		default:
		}

		s.mu.Lock()
		item, ok := s.pending[s.nextSequence]
		if !ok {
			s.mu.Unlock()
			return processed
		}
		delete(s.pending, s.nextSequence)
		s.nextSequence++
		s.mu.Unlock()

		s.applyItem(ctx, item)
		processed = append(processed, item)
	}
}

// PendingCount returns the number of items waiting to be applied.
func (s *ApplyStage) PendingCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.pending)
}

// ApplyStageRunner runs the apply stage as a single goroutine.
type ApplyStageRunner struct {
	stage   *ApplyStage
	input   <-chan *TxItem
	metrics *PipelineMetrics
	done    chan struct{}
	running bool
	mu      sync.Mutex
}

func NewApplyStageRunner(stage *ApplyStage, input <-chan *TxItem) *ApplyStageRunner {
	return &ApplyStageRunner{
		stage: stage,
		input: input,
		done:  make(chan struct{}),
	}
}

// SetMetrics sets the metrics collector for the runner.
// Must be called before Start() to avoid data races.
func (r *ApplyStageRunner) SetMetrics(metrics *PipelineMetrics) {
	r.metrics = metrics
}

func (r *ApplyStageRunner) Start(ctx context.Context) {
	r.mu.Lock()
	if r.running {
		r.mu.Unlock()
		return
	}
	r.running = true
	r.done = make(chan struct{})
	r.mu.Unlock()

	go r.run(ctx)
}

// Stop waits for the runner to complete. The runner will exit when the context
// passed to Start is cancelled or the input channel is closed.
func (r *ApplyStageRunner) Stop() {
	r.mu.Lock()
	if !r.running {
		r.mu.Unlock()
		return
	}
	done := r.done
	r.mu.Unlock()

	<-done
}

func (r *ApplyStageRunner) run(ctx context.Context) {
	defer func() {
		r.mu.Lock()
		r.running = false
		close(r.done)
		r.mu.Unlock()
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case item, ok := <-r.input:
			if !ok {
				return
			}
			processed, err := r.stage.ProcessWithStatus(ctx, item)
			if err != nil {
				return
			}
			for _, p := range processed {
				r.complete(p)
			}
		}
	}
}

// complete records metrics for the item and releases its waiters
func (r *ApplyStageRunner) complete(item *TxItem) {
	if r.metrics != nil && item.DecodeError() == nil && item.VerifyError() == nil {
		r.metrics.RecordApply(item.ApplyDuration(), item.ApplyError())
	}
	item.finish()
}
