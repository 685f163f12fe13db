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
)

// workerPool runs a stage on several goroutines. Items are passed on even when
// the stage fails, since the apply stage must see every sequence number
type workerPool struct {
	stage   Stage
	workers int
	input   <-chan *TxItem
	output  chan<- *TxItem
	wg      sync.WaitGroup
}

func newWorkerPool(stage Stage, workers int, input <-chan *TxItem, output chan<- *TxItem) *workerPool {
	return &workerPool{
		stage:   stage,
		workers: max(workers, 1),
		input:   input,
		output:  output,
	}
}

func (p *workerPool) start(ctx context.Context) {
	for range p.workers {
		p.wg.Add(1)
		go p.run(ctx)
	}
}

// wait blocks until the input channel is closed and drained, or ctx is done
func (p *workerPool) wait() {
	p.wg.Wait()
}

func (p *workerPool) run(ctx context.Context) {
	defer p.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case item, ok := <-p.input:
			if !ok {
				return
			}
			// Failures are recorded on the item
			_ = p.stage.Process(ctx, item)
			select {
			case p.output <- item:
			case <-ctx.Done():
				return
			}
		}
	}
}
