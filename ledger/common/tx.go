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

package common

import (
	"bytes"
	"encoding/binary"
	"encoding/hex"
	"errors"
	"fmt"
	"slices"
	"strconv"
	"strings"

	"github.com/blinklabs-io/escrowmarket/cbor"
	utxorpc "github.com/utxorpc/go-codegen/utxorpc/v1alpha/cardano"
)

// OutpointSize is the size of the binary form of an Outpoint
const OutpointSize = Blake2b256Size + 4

// Outpoint references a specific transaction output
type Outpoint struct {
	cbor.StructAsArray
	TxId  Blake2b256
	Index uint32
}

func NewOutpoint(txId Blake2b256, index uint32) Outpoint {
	return Outpoint{TxId: txId, Index: index}
}

// NewOutpointFromBytes decodes the 36-byte binary form produced by Bytes
func NewOutpointFromBytes(data []byte) (Outpoint, error) {
	if len(data) != OutpointSize {
		return Outpoint{}, fmt.Errorf(
			"invalid outpoint length: expected %d bytes, got %d",
			OutpointSize,
			len(data),
		)
	}
	return Outpoint{
		TxId:  NewBlake2b256(data[:Blake2b256Size]),
		Index: binary.LittleEndian.Uint32(data[Blake2b256Size:]),
	}, nil
}

// ParseOutpoint parses the "<txid>_<index>" text form, where the txid is in
// display (byte-reversed) order
func ParseOutpoint(s string) (Outpoint, error) {
	txIdHex, indexStr, ok := strings.Cut(s, "_")
	if !ok {
		return Outpoint{}, fmt.Errorf("invalid outpoint %q: missing separator", s)
	}
	txIdBytes, err := hex.DecodeString(txIdHex)
	if err != nil {
		return Outpoint{}, fmt.Errorf("invalid outpoint %q: %w", s, err)
	}
	if len(txIdBytes) != Blake2b256Size {
		return Outpoint{}, fmt.Errorf("invalid outpoint %q: bad txid length", s)
	}
	slices.Reverse(txIdBytes)
	index, err := strconv.ParseUint(indexStr, 10, 32)
	if err != nil {
		return Outpoint{}, fmt.Errorf("invalid outpoint %q: %w", s, err)
	}
	return NewOutpoint(NewBlake2b256(txIdBytes), uint32(index)), nil
}

// Bytes returns the txid (internal byte order) followed by the little-endian output index
func (o Outpoint) Bytes() []byte {
	ret := make([]byte, 0, OutpointSize)
	ret = append(ret, o.TxId[:]...)
	return binary.LittleEndian.AppendUint32(ret, o.Index)
}

func (o Outpoint) String() string {
	return fmt.Sprintf("%s_%d", o.TxId.ReversedString(), o.Index)
}

func (o Outpoint) Utxorpc() *utxorpc.TxInput {
	return &utxorpc.TxInput{
		TxHash:      o.TxId.Bytes(),
		OutputIndex: o.Index,
	}
}

type LockType uint8

const (
	LockTypeKeyHash LockType = 0
	LockTypeScript  LockType = 1
)

func (t LockType) String() string {
	switch t {
	case LockTypeKeyHash:
		return "key_hash"
	case LockTypeScript:
		return "script"
	default:
		return "unknown"
	}
}

// Lock is the spending condition of an output. Key hash locks are spent with a
// signature from the matching key. Script locks are spent by satisfying the
// registered script, which receives the embedded state.
type Lock struct {
	cbor.StructAsArray
	Type       LockType
	KeyHash    KeyHash
	ScriptHash ScriptHash
	State      []byte
}

func NewKeyHashLock(keyHash KeyHash) Lock {
	return Lock{Type: LockTypeKeyHash, KeyHash: keyHash}
}

func NewScriptLock(scriptHash ScriptHash, state []byte) Lock {
	return Lock{
		Type:       LockTypeScript,
		ScriptHash: scriptHash,
		State:      slices.Clone(state),
	}
}

// Validate checks that only the fields relevant to the lock type are set
func (l Lock) Validate() error {
	switch l.Type {
	case LockTypeKeyHash:
		if l.ScriptHash != (ScriptHash{}) || len(l.State) > 0 {
			return errors.New("key hash lock carries script data")
		}
	case LockTypeScript:
		if !l.KeyHash.IsZero() {
			return errors.New("script lock carries a key hash")
		}
	default:
		return fmt.Errorf("unknown lock type %d", l.Type)
	}
	return nil
}

// Bytes returns the committed binary form of the lock
func (l Lock) Bytes() []byte {
	switch l.Type {
	case LockTypeKeyHash:
		ret := make([]byte, 0, 1+Blake2b160Size)
		ret = append(ret, byte(LockTypeKeyHash))
		return append(ret, l.KeyHash[:]...)
	case LockTypeScript:
		ret := make([]byte, 0, 1+Blake2b224Size+len(l.State))
		ret = append(ret, byte(LockTypeScript))
		ret = append(ret, l.ScriptHash[:]...)
		return append(ret, l.State...)
	default:
		return []byte{byte(l.Type)}
	}
}

func (l Lock) Equal(other Lock) bool {
	return bytes.Equal(l.Bytes(), other.Bytes())
}

func (l Lock) String() string {
	switch l.Type {
	case LockTypeKeyHash:
		return "key:" + l.KeyHash.String()
	case LockTypeScript:
		return "script:" + l.ScriptHash.String()
	default:
		return "unknown"
	}
}

type TransactionOutput struct {
	cbor.StructAsArray
	OutputLock   Lock
	OutputAmount uint64
}

func NewTransactionOutput(lock Lock, amount uint64) TransactionOutput {
	return TransactionOutput{OutputLock: lock, OutputAmount: amount}
}

func (o TransactionOutput) Lock() Lock {
	return o.OutputLock
}

func (o TransactionOutput) Amount() uint64 {
	return o.OutputAmount
}

// Bytes returns the committed binary form of the output: the amount as 8
// little-endian bytes, then the varint-prefixed lock
func (o TransactionOutput) Bytes() []byte {
	lockBytes := o.OutputLock.Bytes()
	ret := make([]byte, 0, 8+binary.MaxVarintLen64+len(lockBytes))
	ret = binary.LittleEndian.AppendUint64(ret, o.OutputAmount)
	ret = binary.AppendUvarint(ret, uint64(len(lockBytes)))
	return append(ret, lockBytes...)
}

func (o TransactionOutput) String() string {
	return fmt.Sprintf("(%s, %d)", o.OutputLock.String(), o.OutputAmount)
}

func (o TransactionOutput) Utxorpc() *utxorpc.TxOutput {
	ret := &utxorpc.TxOutput{
		Address: o.OutputLock.Bytes(),
		Coin:    o.OutputAmount,
	}
	if o.OutputLock.Type == LockTypeScript {
		ret.Datum = &utxorpc.Datum{
			Hash: Blake2b256Hash(o.OutputLock.State).Bytes(),
		}
	}
	return ret
}

// HashOutputs returns the commitment digest of an ordered list of outputs
func HashOutputs(outputs []TransactionOutput) Blake2b256 {
	var buf bytes.Buffer
	for _, output := range outputs {
		buf.Write(output.Bytes())
	}
	return Blake2b256Hash(buf.Bytes())
}

type Utxo struct {
	Id     Outpoint
	Output TransactionOutput
}

type VkeyWitness struct {
	cbor.StructAsArray
	Vkey      []byte
	Signature []byte
}

// Redeemer carries the arguments for a script-locked input, by input index
type Redeemer struct {
	cbor.StructAsArray
	Index uint32
	Data  []byte
}

type TransactionBody struct {
	cbor.DecodeStoreCbor
	cbor.StructAsArray
	TxInputs  []Outpoint
	TxOutputs []TransactionOutput
}

func (b *TransactionBody) UnmarshalCBOR(cborData []byte) error {
	return b.UnmarshalCborGeneric(cborData, b)
}

// Hash returns the transaction ID. Signatures are made over this value.
func (b *TransactionBody) Hash() Blake2b256 {
	cborData := b.Cbor()
	if len(cborData) == 0 {
		var err error
		cborData, err = cbor.Encode(b)
		if err != nil {
			panic(
				fmt.Sprintf("unexpected error encoding transaction body: %s", err),
			)
		}
	}
	return Blake2b256Hash(cborData)
}

type TransactionWitnessSet struct {
	cbor.StructAsArray
	VkeyWitnesses []VkeyWitness
	Redeemers     []Redeemer
}

type Transaction struct {
	cbor.StructAsArray
	Body       TransactionBody
	WitnessSet TransactionWitnessSet
}

// NewTransactionFromCbor decodes a transaction from its CBOR form
func NewTransactionFromCbor(cborData []byte) (*Transaction, error) {
	var tx Transaction
	if err := cbor.DecodeExact(cborData, &tx); err != nil {
		return nil, err
	}
	return &tx, nil
}

func (t *Transaction) Hash() Blake2b256 {
	return t.Body.Hash()
}

func (t *Transaction) Inputs() []Outpoint {
	return t.Body.TxInputs
}

func (t *Transaction) Outputs() []TransactionOutput {
	return t.Body.TxOutputs
}

// HashOutputs returns the commitment digest over all of the transaction's outputs
func (t *Transaction) HashOutputs() Blake2b256 {
	return HashOutputs(t.Body.TxOutputs)
}

func (t *Transaction) Witnesses() []VkeyWitness {
	return t.WitnessSet.VkeyWitnesses
}

// Redeemer returns the redeemer data for the input at the specified index
func (t *Transaction) Redeemer(inputIdx uint32) ([]byte, bool) {
	for _, redeemer := range t.WitnessSet.Redeemers {
		if redeemer.Index == inputIdx {
			return redeemer.Data, true
		}
	}
	return nil, false
}

// Produced returns the UTxOs created by the transaction
func (t *Transaction) Produced() []Utxo {
	txId := t.Hash()
	ret := make([]Utxo, 0, len(t.Body.TxOutputs))
	for idx, output := range t.Body.TxOutputs {
		ret = append(
			ret,
			Utxo{
				// #nosec G115
				Id:     NewOutpoint(txId, uint32(idx)),
				Output: output,
			},
		)
	}
	return ret
}

func (t *Transaction) Cbor() ([]byte, error) {
	return cbor.Encode(t)
}

func (t *Transaction) Utxorpc() *utxorpc.Tx {
	txi := make([]*utxorpc.TxInput, 0, len(t.Body.TxInputs))
	for _, input := range t.Body.TxInputs {
		txi = append(txi, input.Utxorpc())
	}
	txo := make([]*utxorpc.TxOutput, 0, len(t.Body.TxOutputs))
	for _, output := range t.Body.TxOutputs {
		txo = append(txo, output.Utxorpc())
	}
	return &utxorpc.Tx{
		Inputs:  txi,
		Outputs: txo,
		Hash:    t.Hash().Bytes(),
	}
}
