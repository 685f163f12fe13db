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

package pipeline_test

import (
	"context"
	"io"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"

	"github.com/blinklabs-io/escrowmarket/internal/test"
	"github.com/blinklabs-io/escrowmarket/ledger"
	"github.com/blinklabs-io/escrowmarket/ledger/common"
	"github.com/blinklabs-io/escrowmarket/pipeline"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

var testKey = test.NewTestKey("pipeline")

func newTestLedger(t *testing.T) (*ledger.Ledger, common.Utxo) {
	t.Helper()
	l, err := ledger.New(
		ledger.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
	)
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = l.Close()
	})
	utxos, err := l.Genesis([]common.TransactionOutput{
		common.NewTransactionOutput(common.NewKeyHashLock(testKey.KeyHash()), 1000),
	})
	require.NoError(t, err)
	return l, utxos[0]
}

// chainTxs returns transactions that each spend the output of the previous one
func chainTxs(t *testing.T, start common.Outpoint, count int) [][]byte {
	t.Helper()
	ret := make([][]byte, 0, count)
	prev := start
	for range count {
		tx := &common.Transaction{
			Body: common.TransactionBody{
				TxInputs: []common.Outpoint{prev},
				TxOutputs: []common.TransactionOutput{
					common.NewTransactionOutput(common.NewKeyHashLock(testKey.KeyHash()), 1000),
				},
			},
		}
		tx.WitnessSet.VkeyWitnesses = []common.VkeyWitness{testKey.Witness(tx)}
		txCbor, err := tx.Cbor()
		require.NoError(t, err)
		ret = append(ret, txCbor)
		prev = common.NewOutpoint(tx.Hash(), 0)
	}
	return ret
}

func startPipeline(t *testing.T, opts ...pipeline.PipelineOption) *pipeline.TxPipeline {
	t.Helper()
	p := pipeline.NewTxPipeline(opts...)
	require.NoError(t, p.Start(context.Background()))
	t.Cleanup(func() {
		_ = p.Stop()
	})
	return p
}

func TestPipelineAppliesInOrder(t *testing.T) {
	defer goleak.VerifyNone(t)
	l, genesis := newTestLedger(t)
	p := startPipeline(
		t,
		pipeline.WithApplyFunc(l.Submit),
		pipeline.WithDecodeWorkers(4),
		pipeline.WithVerifyWorkers(4),
	)
	txs := chainTxs(t, genesis.Id, 50)
	items := make([]*pipeline.TxItem, 0, len(txs))
	for _, txCbor := range txs {
		item, err := p.Submit(context.Background(), txCbor)
		require.NoError(t, err)
		items = append(items, item)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	for idx, item := range items {
		txHash, err := item.Wait(ctx)
		require.NoError(t, err, "tx %d", idx)
		assert.Equal(t, item.Transaction().Hash(), txHash)
		assert.True(t, item.IsApplied())
	}
	require.NoError(t, p.WaitForDrain(ctx))
	stats := p.Stats()
	assert.Equal(t, uint64(50), stats.TxsSubmitted)
	assert.Equal(t, uint64(50), stats.TxsApplied)
	// Only the last output of the chain is left
	last := items[len(items)-1].Transaction().Produced()[0]
	_, err := l.UtxoById(last.Id)
	require.NoError(t, err)
	_, err = l.UtxoById(genesis.Id)
	require.Error(t, err)
	require.NoError(t, p.Stop())
}

func TestPipelineDecodeError(t *testing.T) {
	var applied atomic.Int32
	p := startPipeline(t, pipeline.WithApplyFunc(
		func(ctx context.Context, tx *common.Transaction) (common.Blake2b256, error) {
			applied.Add(1)
			return tx.Hash(), nil
		},
	))
	item, err := p.Submit(context.Background(), []byte{0xff, 0x00})
	require.NoError(t, err)
	_, err = item.Wait(context.Background())
	require.Error(t, err)
	assert.Equal(t, err, item.DecodeError())
	assert.False(t, item.IsApplied())
	assert.Equal(t, int32(0), applied.Load())
	assert.Equal(t, uint64(1), p.Stats().DecodeErrors)
}

// Each stage counts only the items it processed
func TestStageMetrics(t *testing.T) {
	metrics := pipeline.NewPipelineMetrics(nil)
	decodeStage := pipeline.NewDecodeStage(metrics)
	verifyStage := pipeline.NewVerifyStage(
		common.DefaultProtocolParameters(),
		ledger.StatelessValidationRules,
		metrics,
	)

	bad := pipeline.NewTxItem([]byte{0xff}, 0, nil)
	require.Error(t, decodeStage.Process(context.Background(), bad))
	require.NoError(t, verifyStage.Process(context.Background(), bad))
	stats := metrics.Stats()
	assert.Equal(t, uint64(1), stats.DecodeErrors)
	assert.Equal(t, uint64(0), stats.VerifyErrors)
	assert.Equal(t, uint64(0), stats.TxsVerified)

	tx := &common.Transaction{
		Body: common.TransactionBody{
			TxInputs:  []common.Outpoint{common.NewOutpoint(test.TxId("stage"), 0)},
			TxOutputs: []common.TransactionOutput{common.NewTransactionOutput(common.NewKeyHashLock(testKey.KeyHash()), 1)},
		},
	}
	tx.WitnessSet.VkeyWitnesses = []common.VkeyWitness{testKey.Witness(tx)}
	txCbor, err := tx.Cbor()
	require.NoError(t, err)
	good := pipeline.NewTxItem(txCbor, 1, nil)
	require.NoError(t, decodeStage.Process(context.Background(), good))
	require.NoError(t, verifyStage.Process(context.Background(), good))
	stats = metrics.Stats()
	assert.Equal(t, uint64(1), stats.TxsDecoded)
	assert.Equal(t, uint64(1), stats.TxsVerified)

	// A cancelled stage does not count the item
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, decodeStage.Process(ctx, pipeline.NewTxItem(txCbor, 2, nil)), context.Canceled)
	assert.Equal(t, uint64(1), metrics.Stats().TxsDecoded)
}

func TestPipelineVerifyError(t *testing.T) {
	l, genesis := newTestLedger(t)
	registry := prometheus.NewRegistry()
	p := startPipeline(
		t,
		pipeline.WithApplyFunc(l.Submit),
		pipeline.WithPromRegistry(registry),
	)
	tx := &common.Transaction{
		Body: common.TransactionBody{
			TxInputs: []common.Outpoint{genesis.Id},
			TxOutputs: []common.TransactionOutput{
				common.NewTransactionOutput(common.NewKeyHashLock(testKey.KeyHash()), 1000),
			},
		},
	}
	witness := testKey.Witness(tx)
	witness.Signature[0] ^= 0xff
	tx.WitnessSet.VkeyWitnesses = []common.VkeyWitness{witness}
	txCbor, err := tx.Cbor()
	require.NoError(t, err)
	item, err := p.Submit(context.Background(), txCbor)
	require.NoError(t, err)
	_, err = item.Wait(context.Background())
	var witnessErr ledger.InvalidWitnessError
	require.ErrorAs(t, err, &witnessErr)
	assert.Equal(t, err, item.VerifyError())
	// The ledger never saw it
	_, err = l.UtxoById(genesis.Id)
	require.NoError(t, err)

	families, err := registry.Gather()
	require.NoError(t, err)
	found := false
	for _, family := range families {
		if family.GetName() == "escrowmarket_pipeline_verify_errors_total" {
			found = true
			assert.Equal(t, float64(1), family.GetMetric()[0].GetCounter().GetValue())
		}
	}
	assert.True(t, found)
}

func TestPipelineApplyError(t *testing.T) {
	l, genesis := newTestLedger(t)
	p := startPipeline(t, pipeline.WithApplyFunc(l.Submit), pipeline.WithVerifyWorkers(0))
	txs := chainTxs(t, genesis.Id, 1)
	first, err := p.Submit(context.Background(), txs[0])
	require.NoError(t, err)
	replay, err := p.Submit(context.Background(), txs[0])
	require.NoError(t, err)
	_, err = first.Wait(context.Background())
	require.NoError(t, err)
	_, err = replay.Wait(context.Background())
	var badInputs ledger.BadInputsError
	require.ErrorAs(t, err, &badInputs)
	assert.Equal(t, err, replay.ApplyError())
	assert.Equal(t, uint64(1), p.Stats().ApplyErrors)
}

func TestPipelineLifecycle(t *testing.T) {
	defer goleak.VerifyNone(t)
	applyFunc := func(ctx context.Context, tx *common.Transaction) (common.Blake2b256, error) {
		return tx.Hash(), nil
	}
	p := pipeline.NewTxPipeline()
	_, err := p.Submit(context.Background(), nil)
	require.ErrorIs(t, err, pipeline.ErrPipelineNotStarted)
	require.ErrorIs(t, p.WaitForDrain(context.Background()), pipeline.ErrPipelineNotStarted)
	require.ErrorIs(t, p.Start(context.Background()), pipeline.ErrMissingApplyFunc)

	p = pipeline.NewTxPipeline(pipeline.WithApplyFunc(applyFunc))
	require.NoError(t, p.Start(context.Background()))
	// Starting again is a no-op
	require.NoError(t, p.Start(context.Background()))
	require.NoError(t, p.Stop())
	require.NoError(t, p.Stop())
	_, err = p.Submit(context.Background(), nil)
	require.ErrorIs(t, err, pipeline.ErrPipelineStopped)
	require.ErrorIs(t, p.Start(context.Background()), pipeline.ErrPipelineStopped)
}

func TestPipelineSubmitContext(t *testing.T) {
	defer goleak.VerifyNone(t)
	release := make(chan struct{})
	p := pipeline.NewTxPipeline(
		pipeline.WithBufferSize(1),
		pipeline.WithDecodeWorkers(1),
		pipeline.WithVerifyWorkers(0),
		pipeline.WithApplyFunc(
			func(ctx context.Context, tx *common.Transaction) (common.Blake2b256, error) {
				select {
				case <-release:
				case <-ctx.Done():
				}
				return tx.Hash(), nil
			},
		),
	)
	require.NoError(t, p.Start(context.Background()))
	txCbor := chainTxs(t, common.NewOutpoint(test.TxId("input"), 0), 1)[0]
	// Fill every stage until a submit blocks
	var items []*pipeline.TxItem
	for {
		ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
		item, err := p.Submit(ctx, txCbor)
		cancel()
		if err != nil {
			require.ErrorIs(t, err, context.DeadlineExceeded)
			break
		}
		items = append(items, item)
	}
	close(release)
	// The abandoned submit left no gap in the ordering
	for _, item := range items {
		_, err := item.Wait(context.Background())
		require.NoError(t, err)
	}
	require.NoError(t, p.Stop())
}

func TestTxItemWaitStopped(t *testing.T) {
	stopped := make(chan struct{})
	item := pipeline.NewTxItem([]byte{0x80}, 0, stopped)
	close(stopped)
	_, err := item.Wait(context.Background())
	assert.ErrorIs(t, err, pipeline.ErrPipelineStopped)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	item = pipeline.NewTxItem(nil, 1, nil)
	_, err = item.Wait(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestApplyStageOrdering(t *testing.T) {
	var order []uint64
	stage := pipeline.NewApplyStage(
		func(ctx context.Context, tx *common.Transaction) (common.Blake2b256, error) {
			return tx.Hash(), nil
		},
	)
	items := make([]*pipeline.TxItem, 3)
	for i := range items {
		// #nosec G115
		items[i] = pipeline.NewTxItem(nil, uint64(i), nil)
		items[i].SetTransaction(&common.Transaction{}, 0)
	}
	ctx := context.Background()
	processed, err := stage.ProcessWithStatus(ctx, items[2])
	require.NoError(t, err)
	assert.Nil(t, processed)
	processed, err = stage.ProcessWithStatus(ctx, items[1])
	require.NoError(t, err)
	assert.Nil(t, processed)
	assert.Equal(t, 2, stage.PendingCount())
	processed, err = stage.ProcessWithStatus(ctx, items[0])
	require.NoError(t, err)
	for _, item := range processed {
		order = append(order, item.SequenceNumber())
		assert.True(t, item.IsApplied())
	}
	assert.Equal(t, []uint64{0, 1, 2}, order)
	assert.Equal(t, 0, stage.PendingCount())
}
