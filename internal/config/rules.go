package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/MJE43/partydle/internal/rules"
)

// RulesFile is a YAML rule preset:
//
//	rules:
//	  allow_legendaries: true
//	  party_size: 4
//	  game_id: 2
//	script: house.js
type RulesFile struct {
	Rules rules.Config `yaml:"rules"`
	// Script is a house-rule script path, relative to the file.
	Script string `yaml:"script,omitempty"`
}

// LoadRulesFile reads a preset. Keys missing from the file keep
// rules.Default values; Script is resolved against the file's directory.
func LoadRulesFile(path string) (RulesFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return RulesFile{}, fmt.Errorf("reading rules file: %w", err)
	}

	f := RulesFile{Rules: rules.Default()}
	if err := yaml.Unmarshal(data, &f); err != nil {
		return RulesFile{}, fmt.Errorf("parsing rules file: %w", err)
	}
	if err := f.Rules.Validate(); err != nil {
		return RulesFile{}, fmt.Errorf("rules file %s: %w", path, err)
	}
	if f.Script != "" && !filepath.IsAbs(f.Script) {
		f.Script = filepath.Join(filepath.Dir(path), f.Script)
	}
	return f, nil
}

// WriteRulesFile saves a preset.
func WriteRulesFile(path string, f RulesFile) error {
	if err := f.Rules.Validate(); err != nil {
		return err
	}
	data, err := yaml.Marshal(f)
	if err != nil {
		return fmt.Errorf("encoding rules file: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing rules file: %w", err)
	}
	return nil
}
