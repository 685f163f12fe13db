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

// VerifyStage runs the validation rules that do not need the UTxO set, such as
// witness signatures. Items that failed to decode are skipped and not counted
type VerifyStage struct {
	protocolParams common.ProtocolParameters
	rules          []common.UtxoValidationRuleFunc
	metrics        *PipelineMetrics
}

func NewVerifyStage(
	pp common.ProtocolParameters,
	rules []common.UtxoValidationRuleFunc,
	metrics *PipelineMetrics,
) *VerifyStage {
	return &VerifyStage{
		protocolParams: pp,
		rules:          rules,
		metrics:        metrics,
	}
}

func (s *VerifyStage) Name() string {
	return "verify"
}

func (s *VerifyStage) Process(ctx context.Context, item *TxItem) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	tx := item.Transaction()
	if tx == nil {
		return nil
	}
	start := time.Now()
	err := common.VerifyTransaction(tx, nil, s.protocolParams, s.rules)
	duration := time.Since(start)
	if s.metrics != nil {
		s.metrics.RecordVerify(duration, err)
	}
	item.SetVerified(err, duration)
	return err
}
