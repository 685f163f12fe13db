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

package common_test

import (
	"crypto/ed25519"
	"errors"
	"testing"

	"filippo.io/edwards25519"
	"github.com/blinklabs-io/escrowmarket/internal/test"
	"github.com/blinklabs-io/escrowmarket/ledger/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVerifyVKeySignature(t *testing.T) {
	key := test.NewTestKey("signer")
	msg := []byte("message")
	sig := key.Sign(msg)
	require.NoError(t, common.VerifyVKeySignature(key.Public, sig, msg))
	// Wrong message
	assert.Error(t, common.VerifyVKeySignature(key.Public, sig, []byte("other")))
	// Wrong key
	other := test.NewTestKey("other")
	assert.Error(t, common.VerifyVKeySignature(other.Public, sig, msg))
	// Bad sizes
	assert.Error(t, common.VerifyVKeySignature(key.Public[:31], sig, msg))
	assert.Error(t, common.VerifyVKeySignature(key.Public, sig[:63], msg))
}

func TestVerifyVKeySignatureInvalidPoint(t *testing.T) {
	// Find an encoding that does not decode to a curve point
	var badKey []byte
	for i := 2; i < 256; i++ {
		candidate := make([]byte, ed25519.PublicKeySize)
		candidate[0] = byte(i)
		if _, err := new(edwards25519.Point).SetBytes(candidate); err != nil {
			badKey = candidate
			break
		}
	}
	require.NotNil(t, badKey, "could not find an invalid point encoding")
	err := common.VerifyVKeySignature(badKey, make([]byte, ed25519.SignatureSize), nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid public key")
}

func TestVerifyTransactionWrapsRuleError(t *testing.T) {
	testErr := errors.New("rule failed")
	rules := []common.UtxoValidationRuleFunc{
		func(*common.Transaction, common.LedgerState, common.ProtocolParameters) error {
			return nil
		},
		func(*common.Transaction, common.LedgerState, common.ProtocolParameters) error {
			return testErr
		},
	}
	tx := buildTestTransaction()
	err := common.VerifyTransaction(tx, nil, common.DefaultProtocolParameters(), rules)
	require.Error(t, err)
	assert.ErrorIs(t, err, testErr)
	var validationErr *common.ValidationError
	require.ErrorAs(t, err, &validationErr)
	assert.Equal(t, 1, validationErr.Details["rule_index"])
	assert.Equal(t, tx.Hash().ReversedString(), validationErr.Details["tx_hash"])
	// No error when all rules pass
	require.NoError(
		t,
		common.VerifyTransaction(tx, nil, common.DefaultProtocolParameters(), rules[:1]),
	)
}
