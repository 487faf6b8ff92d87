// Package config loads process settings from the environment and rule
// presets from YAML files.
package config

import (
	"fmt"

	"github.com/caarlos0/env/v11"
)

// Env is the environment configuration shared by the CLI and the server.
type Env struct {
	Addr            string `env:"PARTYDLE_ADDR" envDefault:"127.0.0.1:8080"`
	DBPath          string `env:"PARTYDLE_DB_PATH" envDefault:"partydle.db"`
	Dataset         string `env:"PARTYDLE_DATASET" envDefault:"data/dex.csv"`
	KeyringService  string `env:"PARTYDLE_KEYRING_SERVICE" envDefault:"partydle"`
	SecretsFallback string `env:"PARTYDLE_SECRETS_FALLBACK"`
	RulesFile       string `env:"PARTYDLE_RULES_FILE"`
	MaxDraws        int    `env:"PARTYDLE_MAX_DRAWS" envDefault:"250000"`
}

// ParseEnv loads configuration from environment variables.
func ParseEnv(target any) error {
	if err := env.Parse(target); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	return nil
}

// LoadEnv parses Env and checks its values.
func LoadEnv() (Env, error) {
	var cfg Env
	if err := ParseEnv(&cfg); err != nil {
		return Env{}, err
	}
	if cfg.MaxDraws <= 0 {
		return Env{}, fmt.Errorf("PARTYDLE_MAX_DRAWS must be positive, got %d", cfg.MaxDraws)
	}
	return cfg, nil
}
