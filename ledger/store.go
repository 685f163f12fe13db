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
	"fmt"
	"maps"
	"slices"
	"sync"

	"github.com/blinklabs-io/escrowmarket/cbor"
	"github.com/blinklabs-io/escrowmarket/ledger/common"
	"github.com/syndtr/goleveldb/leveldb"
	"github.com/syndtr/goleveldb/leveldb/storage"
	"github.com/syndtr/goleveldb/leveldb/util"
)

// Store holds the unspent output set
type Store interface {
	// Get returns the UTxO for the outpoint, or an error wrapping common.ErrUtxoNotFound
	Get(common.Outpoint) (common.Utxo, error)
	// Apply removes the spent outputs and adds the created ones as a single atomic step
	Apply(spent []common.Outpoint, created []common.Utxo) error
	// ForEach calls fn for each UTxO until fn returns false
	ForEach(fn func(common.Utxo) bool) error
	Close() error
}

// MemoryStore is an in-memory Store
type MemoryStore struct {
	sync.RWMutex
	utxos map[common.Outpoint]common.TransactionOutput
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		utxos: make(map[common.Outpoint]common.TransactionOutput),
	}
}

func (s *MemoryStore) Get(id common.Outpoint) (common.Utxo, error) {
	s.RLock()
	defer s.RUnlock()
	output, ok := s.utxos[id]
	if !ok {
		return common.Utxo{}, common.UtxoNotFoundError{Input: id}
	}
	return common.Utxo{Id: id, Output: output}, nil
}

func (s *MemoryStore) Apply(spent []common.Outpoint, created []common.Utxo) error {
	s.Lock()
	defer s.Unlock()
	for _, id := range spent {
		delete(s.utxos, id)
	}
	for _, utxo := range created {
		s.utxos[utxo.Id] = utxo.Output
	}
	return nil
}

// ForEach visits UTxOs in outpoint byte order, matching LevelDBStore
func (s *MemoryStore) ForEach(fn func(common.Utxo) bool) error {
	s.RLock()
	ids := slices.SortedFunc(
		maps.Keys(s.utxos),
		func(a, b common.Outpoint) int {
			return slices.Compare(a.Bytes(), b.Bytes())
		},
	)
	utxos := make([]common.Utxo, 0, len(ids))
	for _, id := range ids {
		utxos = append(utxos, common.Utxo{Id: id, Output: s.utxos[id]})
	}
	s.RUnlock()
	for _, utxo := range utxos {
		if !fn(utxo) {
			break
		}
	}
	return nil
}

func (s *MemoryStore) Close() error {
	return nil
}

const utxoKeyPrefix = "utxo:"

// LevelDBStore is a Store persisted with LevelDB. Outputs are stored as CBOR
// keyed by the binary outpoint.
type LevelDBStore struct {
	db *leveldb.DB
}

// NewLevelDBStore creates or opens a LevelDB database at the specified path
func NewLevelDBStore(path string) (*LevelDBStore, error) {
	db, err := leveldb.OpenFile(path, nil)
	if err != nil {
		return nil, fmt.Errorf("open leveldb %s: %w", path, err)
	}
	return &LevelDBStore{db: db}, nil
}

// NewMemoryLevelDBStore returns a LevelDBStore backed by in-memory storage
func NewMemoryLevelDBStore() (*LevelDBStore, error) {
	db, err := leveldb.Open(storage.NewMemStorage(), nil)
	if err != nil {
		return nil, err
	}
	return &LevelDBStore{db: db}, nil
}

func utxoKey(id common.Outpoint) []byte {
	return append([]byte(utxoKeyPrefix), id.Bytes()...)
}

func (s *LevelDBStore) Get(id common.Outpoint) (common.Utxo, error) {
	value, err := s.db.Get(utxoKey(id), nil)
	if err != nil {
		if errors.Is(err, leveldb.ErrNotFound) {
			return common.Utxo{}, common.UtxoNotFoundError{Input: id}
		}
		return common.Utxo{}, err
	}
	var output common.TransactionOutput
	if err := cbor.DecodeExact(value, &output); err != nil {
		return common.Utxo{}, fmt.Errorf("decode utxo %s: %w", id.String(), err)
	}
	return common.Utxo{Id: id, Output: output}, nil
}

func (s *LevelDBStore) Apply(spent []common.Outpoint, created []common.Utxo) error {
	batch := new(leveldb.Batch)
	for _, id := range spent {
		batch.Delete(utxoKey(id))
	}
	for _, utxo := range created {
		value, err := cbor.Encode(utxo.Output)
		if err != nil {
			return fmt.Errorf("encode utxo %s: %w", utxo.Id.String(), err)
		}
		batch.Put(utxoKey(utxo.Id), value)
	}
	return s.db.Write(batch, nil)
}

func (s *LevelDBStore) ForEach(fn func(common.Utxo) bool) error {
	iter := s.db.NewIterator(util.BytesPrefix([]byte(utxoKeyPrefix)), nil)
	defer iter.Release()
	for iter.Next() {
		id, err := common.NewOutpointFromBytes(iter.Key()[len(utxoKeyPrefix):])
		if err != nil {
			return err
		}
		var output common.TransactionOutput
		if err := cbor.DecodeExact(iter.Value(), &output); err != nil {
			return fmt.Errorf("decode utxo %s: %w", id.String(), err)
		}
		if !fn(common.Utxo{Id: id, Output: output}) {
			break
		}
	}
	return iter.Error()
}

func (s *LevelDBStore) Close() error {
	return s.db.Close()
}
