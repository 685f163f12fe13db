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

package test

import (
	"crypto/ed25519"
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/blinklabs-io/escrowmarket/ledger/common"
)

// DecodeHexString is a helper function for tests that decodes hex strings. It doesn't return
// an error value, which makes it usable inline.
func DecodeHexString(hexData string) []byte {
	// Strip off any leading/trailing whitespace in hex string
	hexData = strings.TrimSpace(hexData)
	decoded, err := hex.DecodeString(hexData)
	if err != nil {
		panic(fmt.Sprintf("error decoding hex: %s", err))
	}
	return decoded
}

// TestKey is a deterministic ed25519 key pair derived from a name
type TestKey struct {
	Private ed25519.PrivateKey
	Public  ed25519.PublicKey
}

// NewTestKey derives a key pair from the hash of the provided name, so that
// tests get stable keys and addresses
func NewTestKey(name string) TestKey {
	seed := common.Blake2b256Hash([]byte(name))
	priv := ed25519.NewKeyFromSeed(seed.Bytes())
	pub, ok := priv.Public().(ed25519.PublicKey)
	if !ok {
		panic("unexpected public key type")
	}
	return TestKey{Private: priv, Public: pub}
}

// KeyHash returns the address key hash of the test key
func (k TestKey) KeyHash() common.KeyHash {
	return common.NewKeyHashFromPubKey(k.Public)
}

// Sign signs the provided message with the test key
func (k TestKey) Sign(msg []byte) []byte {
	return ed25519.Sign(k.Private, msg)
}

// TxId returns a deterministic transaction ID derived from a name
func TxId(name string) common.Blake2b256 {
	return common.Blake2b256Hash([]byte("tx:" + name))
}

// Witness returns a vkey witness signing the transaction hash with the test key
func (k TestKey) Witness(tx *common.Transaction) common.VkeyWitness {
	return common.VkeyWitness{
		Vkey:      k.Public,
		Signature: k.Sign(tx.Hash().Bytes()),
	}
}
