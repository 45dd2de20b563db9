// Package config reads the service configuration from the environment.
// No other package reads environment variables for seal keys or storage.
package config

import (
	"fmt"

	"github.com/caarlos0/env/v11"
	"github.com/ruteri/evidence-seal/interfaces"
	"github.com/ruteri/evidence-seal/kms"
	"github.com/ruteri/evidence-seal/storage"
)

// Config is the environment-provided configuration of the sealing service.
type Config struct {
	// SealKey is the active HMAC key. Empty means seals are generated unsigned.
	SealKey string `env:"EVIDENCE_SEAL_KEY"`
	// RetiredKeys are accepted for verification only.
	RetiredKeys []string `env:"EVIDENCE_SEAL_RETIRED_KEYS" envSeparator:","`
	// Storage lists backend URIs for sealed packs and snapshots.
	Storage []string `env:"EVIDENCE_SEAL_STORAGE" envSeparator:","`
	// LedgerDir is the BadgerDB directory of the vote audit ledger. Empty keeps it in memory.
	LedgerDir string `env:"EVIDENCE_SEAL_LEDGER_DIR"`
}

// ParseEnv loads configuration from environment variables.
func ParseEnv(target any) error {
	if err := env.Parse(target); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	return nil
}

// Load parses Config from the environment.
func Load() (*Config, error) {
	var cfg Config
	if err := ParseEnv(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Keyring builds the seal keyring. The key strings are used as raw HMAC key bytes.
func (c *Config) Keyring() *kms.Keyring {
	retired := make([][]byte, 0, len(c.RetiredKeys))
	for _, k := range c.RetiredKeys {
		retired = append(retired, []byte(k))
	}
	return kms.NewKeyring([]byte(c.SealKey), retired...)
}

// StorageLocations parses the configured storage URIs.
func (c *Config) StorageLocations() ([]interfaces.StorageBackendLocation, error) {
	return storage.ParseLocations(c.Storage)
}
