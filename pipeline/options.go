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
	"runtime"

	"github.com/blinklabs-io/escrowmarket/ledger"
	"github.com/blinklabs-io/escrowmarket/ledger/common"
	"github.com/prometheus/client_golang/prometheus"
)

// PipelineConfig holds configuration for a TxPipeline.
type PipelineConfig struct {
	// DecodeWorkers is the number of parallel decode workers.
	DecodeWorkers int
	// VerifyWorkers is the number of parallel verify workers. Use 0 to skip
	// the stateless checks and leave everything to the ApplyFunc.
	VerifyWorkers int
	// BufferSize is the buffer size for inter-stage channels.
	BufferSize int
	// ProtocolParameters are passed to the verify rules.
	ProtocolParameters common.ProtocolParameters
	// VerifyRules are run by the verify stage with a nil LedgerState.
	VerifyRules []common.UtxoValidationRuleFunc
	// ApplyFunc is called to apply transactions in order. It is required.
	ApplyFunc ApplyFunc
	// PromRegistry is used to register the pipeline metrics. Optional.
	PromRegistry prometheus.Registerer
}

// DefaultPipelineConfig returns a PipelineConfig with sensible defaults.
func DefaultPipelineConfig() PipelineConfig {
	numCPU := runtime.NumCPU()
	// Signature checks are the expensive part, so they get more workers
	decodeWorkers := max(numCPU/4, 2)
	verifyWorkers := max(numCPU/2, 2)
	return PipelineConfig{
		DecodeWorkers:      decodeWorkers,
		VerifyWorkers:      verifyWorkers,
		BufferSize:         256,
		ProtocolParameters: common.DefaultProtocolParameters(),
		VerifyRules:        ledger.StatelessValidationRules,
	}
}

// PipelineOption is a functional option for configuring a TxPipeline.
type PipelineOption func(*PipelineConfig)

// WithConfig applies a complete PipelineConfig, replacing all default values.
//
// Note: Options applied after WithConfig will still override the config values.
func WithConfig(config PipelineConfig) PipelineOption {
	return func(c *PipelineConfig) {
		*c = config
	}
}

// WithDecodeWorkers sets the number of decode workers.
func WithDecodeWorkers(n int) PipelineOption {
	return func(c *PipelineConfig) {
		if n > 0 {
			c.DecodeWorkers = n
		}
	}
}

// WithVerifyWorkers sets the number of verify workers.
// Set to 0 to disable the verify stage.
func WithVerifyWorkers(n int) PipelineOption {
	return func(c *PipelineConfig) {
		if n >= 0 {
			c.VerifyWorkers = n
		}
	}
}

// WithBufferSize sets the buffer size for inter-stage channels.
func WithBufferSize(size int) PipelineOption {
	return func(c *PipelineConfig) {
		if size > 0 {
			c.BufferSize = size
		}
	}
}

// WithProtocolParameters sets the protocol parameters for the verify stage.
func WithProtocolParameters(pp common.ProtocolParameters) PipelineOption {
	return func(c *PipelineConfig) {
		c.ProtocolParameters = pp
	}
}

// WithVerifyRules sets the rules run by the verify stage.
func WithVerifyRules(rules []common.UtxoValidationRuleFunc) PipelineOption {
	return func(c *PipelineConfig) {
		c.VerifyRules = rules
	}
}

// WithApplyFunc sets the apply function. A nil function is ignored.
func WithApplyFunc(fn ApplyFunc) PipelineOption {
	return func(c *PipelineConfig) {
		if fn != nil {
			c.ApplyFunc = fn
		}
	}
}

// WithPromRegistry sets the registerer for the pipeline metrics.
func WithPromRegistry(registerer prometheus.Registerer) PipelineOption {
	return func(c *PipelineConfig) {
		c.PromRegistry = registerer
	}
}
