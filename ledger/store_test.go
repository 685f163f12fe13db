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

package ledger_test

import (
	"path/filepath"
	"testing"

	"github.com/blinklabs-io/escrowmarket/internal/test"
	"github.com/blinklabs-io/escrowmarket/ledger"
	"github.com/blinklabs-io/escrowmarket/ledger/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStores(t *testing.T) {
	testDefs := []struct {
		name     string
		newStore func(t *testing.T) ledger.Store
	}{
		{
			name: "memory",
			newStore: func(t *testing.T) ledger.Store {
				return ledger.NewMemoryStore()
			},
		},
		{
			name: "leveldb",
			newStore: func(t *testing.T) ledger.Store {
				store, err := ledger.NewLevelDBStore(filepath.Join(t.TempDir(), "utxo"))
				require.NoError(t, err)
				return store
			},
		},
		{
			name: "leveldb memory",
			newStore: func(t *testing.T) ledger.Store {
				store, err := ledger.NewMemoryLevelDBStore()
				require.NoError(t, err)
				return store
			},
		},
	}
	owner := test.NewTestKey("owner")
	utxoA := keyUtxo("a", 0, owner, 10)
	utxoB := common.Utxo{
		Id: common.NewOutpoint(test.TxId("b"), 2),
		Output: common.NewTransactionOutput(
			common.NewScriptLock(common.Blake2b224Hash([]byte("script")), []byte{0x01, 0x02, 0x03}),
			20,
		),
	}
	for _, testDef := range testDefs {
		t.Run(testDef.name, func(t *testing.T) {
			store := testDef.newStore(t)
			defer store.Close()
			require.NoError(t, store.Apply(nil, []common.Utxo{utxoA, utxoB}))
			got, err := store.Get(utxoB.Id)
			require.NoError(t, err)
			assert.Equal(t, utxoB.Id, got.Id)
			assert.Equal(t, utxoB.Output.Bytes(), got.Output.Bytes())
			count := 0
			require.NoError(t, store.ForEach(func(common.Utxo) bool {
				count++
				return true
			}))
			assert.Equal(t, 2, count)
			// Stop iterating early
			count = 0
			require.NoError(t, store.ForEach(func(common.Utxo) bool {
				count++
				return false
			}))
			assert.Equal(t, 1, count)
			require.NoError(t, store.Apply([]common.Outpoint{utxoA.Id}, nil))
			_, err = store.Get(utxoA.Id)
			assert.ErrorIs(t, err, common.ErrUtxoNotFound)
		})
	}
}

func TestLevelDBStoreReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "utxo")
	owner := test.NewTestKey("owner")
	utxo := keyUtxo("a", 0, owner, 10)
	store, err := ledger.NewLevelDBStore(path)
	require.NoError(t, err)
	require.NoError(t, store.Apply(nil, []common.Utxo{utxo}))
	require.NoError(t, store.Close())
	// The ledger counts existing outputs on open
	store, err = ledger.NewLevelDBStore(path)
	require.NoError(t, err)
	l, err := ledger.New(ledger.WithStore(store))
	require.NoError(t, err)
	defer l.Close()
	owned, err := l.UtxosByAddress(owner.KeyHash())
	require.NoError(t, err)
	require.Len(t, owned, 1)
	assert.Equal(t, utxo.Id, owned[0].Id)
}
