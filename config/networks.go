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

package config

import "github.com/blinklabs-io/escrowmarket/ledger/common"

// Network definitions
var (
	NetworkMainnet = Network{
		Id:           1,
		Name:         "mainnet",
		AddressHrp:   common.AddressHrpMainnet,
		MinUtxoValue: 1,
	}
	NetworkTestnet = Network{
		Id:           0,
		Name:         "testnet",
		AddressHrp:   common.AddressHrpTestnet,
		MinUtxoValue: 1,
	}
	NetworkDevnet = Network{
		Id:           2,
		Name:         "devnet",
		AddressHrp:   common.AddressHrpTestnet,
		MinUtxoValue: 1,
		MaxTxSize:    65536,
	}

	NetworkInvalid = Network{
		Id:   0xff,
		Name: "invalid",
	} // NetworkInvalid is used as a return value for lookup functions when a network isn't found
)

// List of valid networks for use in lookup functions
var networks = []Network{
	NetworkMainnet,
	NetworkTestnet,
	NetworkDevnet,
}

// NetworkByName returns a predefined network by name
func NetworkByName(name string) Network {
	for _, network := range networks {
		if network.Name == name {
			return network
		}
	}
	return NetworkInvalid
}

// NetworkById returns a predefined network by ID
func NetworkById(id uint8) Network {
	for _, network := range networks {
		if network.Id == id {
			return network
		}
	}
	return NetworkInvalid
}

// Network represents a market ledger network
type Network struct {
	Id           uint8
	Name         string
	AddressHrp   string // bech32 prefix for addresses
	MinUtxoValue uint64
	MaxTxSize    uint // 0 uses the default
}

func (n Network) String() string {
	return n.Name
}

// ProtocolParameters returns the ledger parameters for the network
func (n Network) ProtocolParameters() common.ProtocolParameters {
	pp := common.DefaultProtocolParameters()
	if n.MinUtxoValue > 0 {
		pp.MinUtxoValue = n.MinUtxoValue
	}
	if n.MaxTxSize > 0 {
		pp.MaxTxSize = n.MaxTxSize
	}
	return pp
}

// Address returns the bech32 text form of a key hash on the network
func (n Network) Address(keyHash common.KeyHash) string {
	return common.AddressString(n.AddressHrp, keyHash)
}
