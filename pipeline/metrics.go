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
	"sync"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// PipelineMetrics tracks metrics for the entire pipeline.
// Uses atomic counters for thread-safe operation.
type PipelineMetrics struct {
	txsSubmitted atomic.Uint64
	txsDecoded   atomic.Uint64
	txsVerified  atomic.Uint64
	txsApplied   atomic.Uint64
	decodeErrors atomic.Uint64
	verifyErrors atomic.Uint64
	applyErrors  atomic.Uint64

	mu                sync.RWMutex
	currentQueueDepth int
	peakQueueDepth    int
	lastTxTime        time.Time
	startTime         time.Time
}

// NewPipelineMetrics creates a new PipelineMetrics. The counters are exported
// to the registerer when one is provided
func NewPipelineMetrics(registerer prometheus.Registerer) *PipelineMetrics {
	m := &PipelineMetrics{
		startTime: time.Now(),
	}
	if registerer != nil {
		m.register(registerer)
	}
	return m
}

func (m *PipelineMetrics) register(registerer prometheus.Registerer) {
	counter := func(name string, help string, v *atomic.Uint64) prometheus.Collector {
		return prometheus.NewCounterFunc(
			prometheus.CounterOpts{
				Name: "escrowmarket_pipeline_" + name,
				Help: help,
			},
			func() float64 {
				return float64(v.Load())
			},
		)
	}
	registerer.MustRegister(
		counter("txs_submitted_total", "transactions submitted to the pipeline", &m.txsSubmitted),
		counter("decode_errors_total", "transactions that failed to decode", &m.decodeErrors),
		counter("verify_errors_total", "transactions that failed the stateless checks", &m.verifyErrors),
		counter("apply_errors_total", "transactions rejected by the ledger", &m.applyErrors),
		prometheus.NewGaugeFunc(
			prometheus.GaugeOpts{
				Name: "escrowmarket_pipeline_queue_depth",
				Help: "transactions waiting in the pipeline",
			},
			func() float64 {
				m.mu.RLock()
				defer m.mu.RUnlock()
				return float64(m.currentQueueDepth)
			},
		),
	)
}

func (m *PipelineMetrics) RecordSubmit() {
	m.txsSubmitted.Add(1)
}

func (m *PipelineMetrics) RecordDecode(duration time.Duration, err error) {
	if err != nil {
		m.decodeErrors.Add(1)
	} else {
		m.txsDecoded.Add(1)
	}
}

func (m *PipelineMetrics) RecordVerify(duration time.Duration, err error) {
	if err != nil {
		m.verifyErrors.Add(1)
	} else {
		m.txsVerified.Add(1)
	}
}

func (m *PipelineMetrics) RecordApply(duration time.Duration, err error) {
	if err != nil {
		m.applyErrors.Add(1)
		return
	}
	m.txsApplied.Add(1)
	m.mu.Lock()
	m.lastTxTime = time.Now()
	m.mu.Unlock()
}

// UpdateQueueDepth updates the queue depth tracking.
func (m *PipelineMetrics) UpdateQueueDepth(depth int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.currentQueueDepth = depth
	if depth > m.peakQueueDepth {
		m.peakQueueDepth = depth
	}
}

// Stats returns a snapshot of the current metrics.
func (m *PipelineMetrics) Stats() PipelineStats {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return PipelineStats{
		TxsSubmitted:      m.txsSubmitted.Load(),
		TxsDecoded:        m.txsDecoded.Load(),
		TxsVerified:       m.txsVerified.Load(),
		TxsApplied:        m.txsApplied.Load(),
		DecodeErrors:      m.decodeErrors.Load(),
		VerifyErrors:      m.verifyErrors.Load(),
		ApplyErrors:       m.applyErrors.Load(),
		CurrentQueueDepth: m.currentQueueDepth,
		PeakQueueDepth:    m.peakQueueDepth,
		LastTxTime:        m.lastTxTime,
		StartTime:         m.startTime,
	}
}
