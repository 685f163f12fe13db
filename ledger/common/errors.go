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
	"errors"
	"fmt"
)

// ErrUtxoNotFound is returned (possibly wrapped) when a UTxO lookup fails
var ErrUtxoNotFound = errors.New("utxo not found")

// UtxoNotFoundError indicates that the referenced output does not exist or has been spent
type UtxoNotFoundError struct {
	Input Outpoint
}

func (e UtxoNotFoundError) Error() string {
	return fmt.Sprintf("utxo not found: %s", e.Input.String())
}

func (UtxoNotFoundError) Is(target error) bool {
	return target == ErrUtxoNotFound
}
