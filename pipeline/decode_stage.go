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
	"time"

	"github.com/blinklabs-io/escrowmarket/ledger/common"
)

// DecodeStage decodes raw transaction CBOR
type DecodeStage struct {
	metrics *PipelineMetrics
}

// NewDecodeStage returns a decode stage. The metrics may be nil
func NewDecodeStage(metrics *PipelineMetrics) *DecodeStage {
	return &DecodeStage{metrics: metrics}
}

func (s *DecodeStage) Name() string {
	return "decode"
}

// Process decodes the raw CBOR in the item.
func (s *DecodeStage) Process(ctx context.Context, item *TxItem) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	start := time.Now()
	tx, err := common.NewTransactionFromCbor(item.RawCbor())
	duration := time.Since(start)
	if s.metrics != nil {
		s.metrics.RecordDecode(duration, err)
	}
	if err != nil {
		item.SetDecodeError(err, duration)
		return err
	}
	item.SetTransaction(tx, duration)
	return nil
}
