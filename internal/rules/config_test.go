package rules

import (
	"errors"
	"strings"
	"testing"
)

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name      string
		cfg       Config
		wantField string
	}{
		{"default", Default(), ""},
		{"size one", Config{PartySize: 1}, ""},
		{"size zero", Config{PartySize: 0}, KeyPartySize},
		{"size seven", Config{PartySize: 7}, KeyPartySize},
		{"negative game", Config{PartySize: 3, GameID: -1}, KeyGameID},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if tt.wantField == "" {
				if err != nil {
					t.Fatalf("Validate() = %v, want nil", err)
				}
				return
			}
			var ce *ConfigError
			if !errors.As(err, &ce) {
				t.Fatalf("Validate() = %v, want *ConfigError", err)
			}
			if ce.Field != tt.wantField {
				t.Errorf("Field = %q, want %q", ce.Field, tt.wantField)
			}
		})
	}
}

func TestPairsRoundTrip(t *testing.T) {
	cfg := Config{
		AllowMythicals:            true,
		AllowExclusiveEquivalents: true,
		DisableUniqueEvolutions:   true,
		PartySize:                 4,
		GameID:                    2,
	}
	pairs := cfg.Pairs()
	if len(pairs) != 12 {
		t.Fatalf("Pairs() has %d keys, want 12", len(pairs))
	}
	if pairs[KeyAllowMythicals] != "true" || pairs[KeyAllowBabies] != "false" || pairs[KeyPartySize] != "4" {
		t.Errorf("unexpected pairs %v", pairs)
	}

	got, err := FromPairs(Default(), pairs)
	if err != nil {
		t.Fatalf("FromPairs: %v", err)
	}
	if got != cfg {
		t.Errorf("FromPairs(Pairs()) = %+v, want %+v", got, cfg)
	}
}

func TestFromPairsPartial(t *testing.T) {
	got, err := FromPairs(Default(), map[string]string{KeyAllowBabies: " true "})
	if err != nil {
		t.Fatalf("FromPairs: %v", err)
	}
	if !got.AllowBabies || got.PartySize != MaxPartySize {
		t.Errorf("FromPairs = %+v, want babies allowed and default size", got)
	}
}

func TestFromPairsErrors(t *testing.T) {
	tests := []struct {
		name  string
		pairs map[string]string
		field string
	}{
		{"unknown key", map[string]string{"allowShinies": "true"}, "allowShinies"},
		{"bad bool", map[string]string{KeyAllowDuplicates: "maybe"}, KeyAllowDuplicates},
		{"bad int", map[string]string{KeyPartySize: "six"}, KeyPartySize},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			base := Default()
			got, err := FromPairs(base, tt.pairs)
			var ce *ConfigError
			if !errors.As(err, &ce) || ce.Field != tt.field {
				t.Fatalf("FromPairs() error = %v, want ConfigError on %q", err, tt.field)
			}
			if got != base {
				t.Errorf("FromPairs() returned %+v on error, want base", got)
			}
		})
	}
}

func TestConfigString(t *testing.T) {
	s := Default().String()
	lines := strings.Split(strings.TrimSpace(s), "\n")
	if len(lines) != 12 {
		t.Fatalf("String() has %d lines, want 12", len(lines))
	}
	if lines[0] != "allowBabies=false" {
		t.Errorf("first line = %q, want sorted keys", lines[0])
	}
}
