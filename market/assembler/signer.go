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

package assembler

import (
	"crypto/ed25519"
	"fmt"

	"github.com/blinklabs-io/escrowmarket/ledger/common"
)

// Signer signs transaction hashes on behalf of a key holder
type Signer interface {
	PublicKey() []byte
	KeyHash() common.KeyHash
	Sign(msg []byte) ([]byte, error)
}

// Ed25519Signer is a Signer holding an ed25519 private key in memory
type Ed25519Signer struct {
	key ed25519.PrivateKey
}

func NewEd25519Signer(key ed25519.PrivateKey) *Ed25519Signer {
	return &Ed25519Signer{key: key}
}

// NewEd25519SignerFromSeed returns a signer for the key derived from a 32-byte seed
func NewEd25519SignerFromSeed(seed []byte) (*Ed25519Signer, error) {
	if len(seed) != ed25519.SeedSize {
		return nil, fmt.Errorf("invalid seed size: %d", len(seed))
	}
	return NewEd25519Signer(ed25519.NewKeyFromSeed(seed)), nil
}

func (s *Ed25519Signer) PublicKey() []byte {
	pub, ok := s.key.Public().(ed25519.PublicKey)
	if !ok {
		return nil
	}
	return pub
}

func (s *Ed25519Signer) KeyHash() common.KeyHash {
	return common.NewKeyHashFromPubKey(s.PublicKey())
}

func (s *Ed25519Signer) Sign(msg []byte) ([]byte, error) {
	return ed25519.Sign(s.key, msg), nil
}
