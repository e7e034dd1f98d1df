// Copyright (C) 2025 sage-x-project
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as
// published by the Free Software Foundation, either version 3 of the
// License, or (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with this program. If not, see <https://www.gnu.org/licenses/>.

// SPDX-License-Identifier: LGPL-3.0-or-later

package config

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents the main configuration structure.
type Config struct {
	Environment string         `yaml:"environment" json:"environment"`
	Core        *CoreConfig    `yaml:"core" json:"core"`
	Storage     *StorageConfig `yaml:"storage" json:"storage"`
	Logging     *LoggingConfig `yaml:"logging" json:"logging"`
	Metrics     *MetricsConfig `yaml:"metrics" json:"metrics"`
	Health      *HealthConfig  `yaml:"health" json:"health"`
}

// CoreConfig holds every process-wide secret and timing parameter the
// cryptographic core depends on. It is constructed once at process
// start and passed by read-only reference into every handler.
type CoreConfig struct {
	// KUser derives the deterministic user_id via HMAC over the
	// normalized email address.
	KUser string `yaml:"k_user" json:"k_user"`
	// KRow seals shared-secret row hashes.
	KRow string `yaml:"k_row" json:"k_row"`
	// KJWT is the HMAC key for access tokens.
	KJWT string `yaml:"k_jwt" json:"k_jwt"`
	// KRefresh is the HMAC key for refresh cookies.
	KRefresh string `yaml:"k_refresh" json:"k_refresh"`
	// KMagic is the HMAC key binding magic-link tokens.
	KMagic string `yaml:"k_magic" json:"k_magic"`

	// ServerEd25519Seed is the 32-byte seed (hex) for the server's
	// Ed25519 signing key.
	ServerEd25519Seed string `yaml:"server_ed25519_seed" json:"server_ed25519_seed"`
	// ServerX25519Seed is the 32-byte seed (hex) for the server's
	// X25519 ECDH key.
	ServerX25519Seed string `yaml:"server_x25519_seed" json:"server_x25519_seed"`

	AccessTTL  time.Duration `yaml:"access_ttl" json:"access_ttl"`
	RefreshTTL time.Duration `yaml:"refresh_ttl" json:"refresh_ttl"`
	MagicTTL   time.Duration `yaml:"magic_ttl" json:"magic_ttl"`

	// DryRunEmail logs magic links instead of sending them.
	DryRunEmail bool `yaml:"dry_run_email" json:"dry_run_email"`
}

// StorageConfig selects and configures the persistence backend.
type StorageConfig struct {
	Driver string `yaml:"driver" json:"driver"` // "memory" or "postgres"
	DSN    string `yaml:"dsn" json:"dsn"`
}

// LoggingConfig represents logging configuration
type LoggingConfig struct {
	Level    string `yaml:"level" json:"level"`
	Format   string `yaml:"format" json:"format"`
	Output   string `yaml:"output" json:"output"`
	FilePath string `yaml:"file_path" json:"file_path"`
}

// MetricsConfig represents metrics configuration
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled" json:"enabled"`
	Port    int    `yaml:"port" json:"port"`
	Path    string `yaml:"path" json:"path"`
}

// HealthConfig represents health check configuration
type HealthConfig struct {
	Enabled bool     `yaml:"enabled" json:"enabled"`
	Port    int      `yaml:"port" json:"port"`
	Path    string   `yaml:"path" json:"path"`
	Checks  []string `yaml:"checks" json:"checks"`
}

// LoadFromFile loads configuration from a file
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := &Config{}

	// Try to parse as YAML first
	if err := yaml.Unmarshal(data, cfg); err != nil {
		// Try JSON if YAML fails
		if err := json.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file (tried YAML and JSON): %w", err)
		}
	}

	setDefaults(cfg)

	return cfg, nil
}

// SaveToFile saves configuration to a file
func SaveToFile(cfg *Config, path string) error {
	var data []byte
	var err error

	if len(path) > 5 && path[len(path)-5:] == ".json" {
		data, err = json.MarshalIndent(cfg, "", "  ")
	} else {
		data, err = yaml.Marshal(cfg)
	}

	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// setDefaults sets default values for configuration
func setDefaults(cfg *Config) {
	if cfg.Environment == "" {
		cfg.Environment = "development"
	}

	if cfg.Core == nil {
		cfg.Core = &CoreConfig{}
	}
	if cfg.Core.AccessTTL == 0 {
		cfg.Core.AccessTTL = 60 * time.Second
	}
	if cfg.Core.RefreshTTL == 0 {
		cfg.Core.RefreshTTL = 300 * time.Second
	}
	if cfg.Core.MagicTTL == 0 {
		cfg.Core.MagicTTL = 15 * time.Minute
	}

	if cfg.Storage == nil {
		cfg.Storage = &StorageConfig{}
	}
	if cfg.Storage.Driver == "" {
		cfg.Storage.Driver = "memory"
	}

	if cfg.Logging == nil {
		cfg.Logging = &LoggingConfig{}
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "json"
	}
	if cfg.Logging.Output == "" {
		cfg.Logging.Output = "stdout"
	}

	if cfg.Metrics == nil {
		cfg.Metrics = &MetricsConfig{}
	}
	if cfg.Metrics.Path == "" {
		cfg.Metrics.Path = "/metrics"
	}

	if cfg.Health == nil {
		cfg.Health = &HealthConfig{Enabled: true}
	}
	if cfg.Health.Path == "" {
		cfg.Health.Path = "/health"
	}
}
