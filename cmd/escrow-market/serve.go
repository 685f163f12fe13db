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

package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/blinklabs-io/escrowmarket/market"
	"github.com/blinklabs-io/escrowmarket/pipeline"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const maxTxBodySize = 1 << 20

type stateResponse struct {
	Contract string        `json:"contract"`
	Balance  uint64        `json:"balance"`
	Items    []market.Item `json:"items"`
}

type submitResponse struct {
	TxHash string `json:"tx_hash,omitempty"`
	Error  string `json:"error,omitempty"`
}

func runServe(a *app, args []string) error {
	fs := flag.NewFlagSet("serve", flag.ContinueOnError)
	listen := fs.String("listen", a.cfg.MetricsAddress, "HTTP listen address")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *listen == "" {
		return errors.New("no listen address configured")
	}
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	txPipeline := pipeline.NewTxPipeline(
		pipeline.WithApplyFunc(a.ledger.Submit),
		pipeline.WithProtocolParameters(a.network.ProtocolParameters()),
		pipeline.WithPromRegistry(a.registry),
	)
	// The pipeline outlives the signal context so it can drain on shutdown
	if err := txPipeline.Start(context.Background()); err != nil {
		return err
	}
	defer func() {
		_ = txPipeline.Stop()
	}()
	mux := http.NewServeMux()
	mux.Handle("GET /metrics", promhttp.HandlerFor(a.registry, promhttp.HandlerOpts{}))
	mux.HandleFunc("GET /state", a.handleState)
	mux.HandleFunc("GET /pipeline", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, txPipeline.Stats())
	})
	mux.HandleFunc("POST /tx", a.handleSubmit(txPipeline))
	server := &http.Server{
		Addr:              *listen,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}
	errChan := make(chan error, 1)
	go func() {
		a.logger.Info("listening", "address", *listen)
		errChan <- server.ListenAndServe()
	}()
	select {
	case err := <-errChan:
		return err
	case <-ctx.Done():
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return err
	}
	return txPipeline.WaitForDrain(shutdownCtx)
}

func (a *app) handleState(w http.ResponseWriter, r *http.Request) {
	contract, err := a.contract()
	if err != nil {
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, stateResponse{
		Contract: contract.Utxo.Id.String(),
		Balance:  contract.Utxo.Output.Amount(),
		Items:    contract.State.Items(),
	})
}

// handleSubmit accepts a CBOR encoded transaction and waits for the ledger to
// apply or reject it
func (a *app) handleSubmit(txPipeline *pipeline.TxPipeline) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		body, err := io.ReadAll(io.LimitReader(r.Body, maxTxBodySize))
		if err != nil {
			writeJSON(w, http.StatusBadRequest, submitResponse{Error: err.Error()})
			return
		}
		item, err := txPipeline.Submit(r.Context(), body)
		if err != nil {
			writeJSON(w, http.StatusServiceUnavailable, submitResponse{Error: err.Error()})
			return
		}
		txHash, err := item.Wait(r.Context())
		switch {
		case item.DecodeError() != nil:
			writeJSON(w, http.StatusBadRequest, submitResponse{Error: err.Error()})
		case err != nil:
			writeJSON(w, http.StatusUnprocessableEntity, submitResponse{Error: err.Error()})
		default:
			writeJSON(w, http.StatusOK, submitResponse{TxHash: txHash.ReversedString()})
		}
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
