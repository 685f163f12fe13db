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

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
)

const (
	DefaultNetwork      = "devnet"
	DefaultDataDir      = "./escrowmarket-data"
	DefaultDeployAmount = 1
	DefaultAssetValue   = 1
	DefaultLogLevel     = "info"
)

// Config is the configuration for the escrow-market CLI
type Config struct {
	Network        string
	DataDir        string
	KeyFile        string
	DeployAmount   uint64
	AssetValue     uint64
	LogLevel       string
	LogFile        string
	MetricsAddress string
}

// Default returns the configuration written for a new config file
func Default() *Config {
	return &Config{
		Network:      DefaultNetwork,
		DataDir:      DefaultDataDir,
		DeployAmount: DefaultDeployAmount,
		AssetValue:   DefaultAssetValue,
		LogLevel:     DefaultLogLevel,
	}
}

// Load reads the config file at path. A default config file is created when
// none exists
func Load(path string) (*Config, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return createDefault(path)
	} else if err != nil {
		return nil, err
	}
	cfg := Default()
	meta, err := toml.DecodeFile(path, cfg)
	if err != nil {
		return nil, fmt.Errorf("decode config %s: %w", path, err)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		return nil, fmt.Errorf("unknown config key in %s: %s", path, undecoded[0])
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the config values
func (c *Config) Validate() error {
	if NetworkByName(c.Network) == NetworkInvalid {
		return fmt.Errorf("invalid network: %s", c.Network)
	}
	if strings.TrimSpace(c.DataDir) == "" {
		return errors.New("data directory must be set")
	}
	if c.DeployAmount == 0 {
		return errors.New("deploy amount must be positive")
	}
	if c.AssetValue == 0 {
		return errors.New("asset value must be positive")
	}
	if _, err := c.SlogLevel(); err != nil {
		return err
	}
	return nil
}

// NetworkInfo returns the definition of the configured network
func (c *Config) NetworkInfo() Network {
	return NetworkByName(c.Network)
}

// SlogLevel returns the configured log level
func (c *Config) SlogLevel() (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return 0, fmt.Errorf("invalid log level: %s", c.LogLevel)
	}
	return level, nil
}

// Save writes the config to path
func (c *Config) Save(path string) error {
	return persist(path, c)
}

func createDefault(path string) (*Config, error) {
	cfg := Default()
	if err := persist(path, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func persist(path string, cfg *Config) error {
	dir := filepath.Dir(path)
	if dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_TRUNC|os.O_CREATE, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()
	return toml.NewEncoder(f).Encode(cfg)
}
