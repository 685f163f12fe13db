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
	"crypto/ed25519"
	"fmt"
)

const (
	AddressHrpMainnet = "mkt"
	AddressHrpTestnet = "mkt_test"
	ScriptHrp         = "script"
)

// KeyHash is the 20-byte hash of a public key that identifies who may spend a
// pay-to-key-hash output
type KeyHash = Blake2b160

// ScriptHash identifies the script (covenant) that guards a script-locked output
type ScriptHash = Blake2b224

// NewKeyHashFromPubKey returns the key hash for the provided ed25519 public key
func NewKeyHashFromPubKey(pubKey []byte) KeyHash {
	return Blake2b160Hash(pubKey)
}

// NewKeyHash returns a KeyHash from raw bytes
func NewKeyHash(hashBytes []byte) (KeyHash, error) {
	if len(hashBytes) != Blake2b160Size {
		return KeyHash{}, fmt.Errorf(
			"invalid key hash length: %d",
			len(hashBytes),
		)
	}
	return NewBlake2b160(hashBytes), nil
}

// AddressString returns the bech32 text form of a key hash for the given HRP
func AddressString(hrp string, keyHash KeyHash) string {
	return keyHash.Bech32(hrp)
}

// ParseAddress decodes a bech32 address and returns its HRP and key hash
func ParseAddress(addr string) (string, KeyHash, error) {
	hrp, payload, err := decodeBech32(addr)
	if err != nil {
		return "", KeyHash{}, err
	}
	keyHash, err := NewKeyHash(payload)
	if err != nil {
		return "", KeyHash{}, err
	}
	return hrp, keyHash, nil
}

// KeyHashFromPrivateKey is a convenience for deriving the address key hash of a signing key
func KeyHashFromPrivateKey(key ed25519.PrivateKey) KeyHash {
	pub, ok := key.Public().(ed25519.PublicKey)
	if !ok {
		return KeyHash{}
	}
	return NewKeyHashFromPubKey(pub)
}
