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

// Package market implements an escrow marketplace as a covenant: a contract
// output carrying a fixed table of listings, which can only be spent by a
// transaction producing exactly the outputs of one of five operations.
//
// The operations are pure functions from the current state and balance to a
// Transition. Covenant plugs them into the ledger as a script validator.
package market
