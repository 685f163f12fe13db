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

package ledger

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"
)

type ledgerMetrics struct {
	txAccepted prometheus.Counter
	txRejected *prometheus.CounterVec
	utxoCount  prometheus.Gauge
}

func newLedgerMetrics(registerer prometheus.Registerer) *ledgerMetrics {
	m := &ledgerMetrics{
		txAccepted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "escrowmarket_tx_accepted_total",
			Help: "Total transactions applied to the ledger.",
		}),
		txRejected: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "escrowmarket_tx_rejected_total",
			Help: "Total transactions rejected by the ledger, by reason.",
		}, []string{"reason"}),
		utxoCount: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "escrowmarket_utxo_count",
			Help: "Number of unspent outputs in the ledger.",
		}),
	}
	if registerer != nil {
		registerer.MustRegister(m.txAccepted, m.txRejected, m.utxoCount)
	}
	return m
}

// rejectReason maps a validation failure to a low-cardinality metric label
func rejectReason(err error) string {
	switch {
	case errors.As(err, new(InputSetEmptyError)):
		return "input_set_empty"
	case errors.As(err, new(DuplicateInputError)):
		return "duplicate_input"
	case errors.As(err, new(MaxTxSizeError)):
		return "max_tx_size"
	case errors.As(err, new(BadInputsError)):
		return "bad_inputs"
	case errors.As(err, new(InvalidOutputError)):
		return "invalid_output"
	case errors.As(err, new(OutputTooSmallError)):
		return "output_too_small"
	case errors.As(err, new(UnauthorizedScriptOutputError)):
		return "unauthorized_script_output"
	case errors.As(err, new(ValueNotConservedError)):
		return "value_not_conserved"
	case errors.As(err, new(InvalidWitnessError)):
		return "invalid_witness"
	case errors.As(err, new(MissingWitnessError)):
		return "missing_witness"
	case errors.As(err, new(UnknownScriptError)):
		return "unknown_script"
	case errors.As(err, new(ScriptValidationError)):
		return "script"
	default:
		return "other"
	}
}
