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

package market

import (
	"crypto/ed25519"
	"fmt"

	"github.com/blinklabs-io/escrowmarket/ledger/common"
)

// VerifyAuthorization checks that pubKey hashes to the expected key hash and
// that sig is its signature over msg
func VerifyAuthorization(sig, pubKey []byte, expected common.KeyHash, msg []byte) error {
	if len(pubKey) != ed25519.PublicKeySize {
		return AuthorizationError{
			Reason: fmt.Sprintf("invalid public key size: %d", len(pubKey)),
		}
	}
	if common.NewKeyHashFromPubKey(pubKey) != expected {
		return AuthorizationError{Reason: "public key does not match " + expected.String()}
	}
	if err := common.VerifyVKeySignature(pubKey, sig, msg); err != nil {
		return AuthorizationError{Reason: err.Error()}
	}
	return nil
}
