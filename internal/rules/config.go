// Package rules holds the generation toggles and the eligibility predicate
// built from them.
package rules

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// Party size bounds.
const (
	MinPartySize = 1
	MaxPartySize = 6
)

// Toggle keys, as persisted in key=value settings.
const (
	KeyAllowLegendaries            = "allowLegendaries"
	KeyAllowMythicals              = "allowMythicals"
	KeyAllowTradeEvolutions        = "allowTradeEvolutions"
	KeyAllowExclusiveEquivalents   = "allowExclusiveEquivalents"
	KeyAllowDuplicates             = "allowDuplicates"
	KeyAllowBabies                 = "allowBabies"
	KeyFinalEvolutionsOnly         = "finalEvolutionsOnly"
	KeyDisableItemEvolutions       = "disableItemEvolutions"
	KeyDisableFriendshipEvolutions = "disableFriendshipEvolutions"
	KeyDisableUniqueEvolutions     = "disableUniqueEvolutions"
	KeyPartySize                   = "partySize"
	KeyGameID                      = "gameId"
)

// Config is the full set of generation settings. It is passed by value.
type Config struct {
	AllowLegendaries            bool `json:"allowLegendaries" yaml:"allow_legendaries"`
	AllowMythicals              bool `json:"allowMythicals" yaml:"allow_mythicals"`
	AllowTradeEvolutions        bool `json:"allowTradeEvolutions" yaml:"allow_trade_evolutions"`
	AllowExclusiveEquivalents   bool `json:"allowExclusiveEquivalents" yaml:"allow_exclusive_equivalents"`
	AllowDuplicates             bool `json:"allowDuplicates" yaml:"allow_duplicates"`
	AllowBabies                 bool `json:"allowBabies" yaml:"allow_babies"`
	FinalEvolutionsOnly         bool `json:"finalEvolutionsOnly" yaml:"final_evolutions_only"`
	DisableItemEvolutions       bool `json:"disableItemEvolutions" yaml:"disable_item_evolutions"`
	DisableFriendshipEvolutions bool `json:"disableFriendshipEvolutions" yaml:"disable_friendship_evolutions"`
	DisableUniqueEvolutions     bool `json:"disableUniqueEvolutions" yaml:"disable_unique_evolutions"`
	PartySize                   int  `json:"partySize" yaml:"party_size"`
	GameID                      int  `json:"gameId" yaml:"game_id"`
}

// Default is the configuration used when no settings have been saved: a full
// party of six with every optional pool excluded.
func Default() Config {
	return Config{PartySize: MaxPartySize}
}

// Validate checks the numeric fields.
func (c Config) Validate() error {
	if c.PartySize < MinPartySize || c.PartySize > MaxPartySize {
		return &ConfigError{Field: KeyPartySize, Reason: fmt.Sprintf("must be between %d and %d, got %d", MinPartySize, MaxPartySize, c.PartySize)}
	}
	if c.GameID < 0 {
		return &ConfigError{Field: KeyGameID, Reason: fmt.Sprintf("must be >= 0, got %d", c.GameID)}
	}
	return nil
}

func (c *Config) toggles() map[string]*bool {
	return map[string]*bool{
		KeyAllowLegendaries:            &c.AllowLegendaries,
		KeyAllowMythicals:              &c.AllowMythicals,
		KeyAllowTradeEvolutions:        &c.AllowTradeEvolutions,
		KeyAllowExclusiveEquivalents:   &c.AllowExclusiveEquivalents,
		KeyAllowDuplicates:             &c.AllowDuplicates,
		KeyAllowBabies:                 &c.AllowBabies,
		KeyFinalEvolutionsOnly:         &c.FinalEvolutionsOnly,
		KeyDisableItemEvolutions:       &c.DisableItemEvolutions,
		KeyDisableFriendshipEvolutions: &c.DisableFriendshipEvolutions,
		KeyDisableUniqueEvolutions:     &c.DisableUniqueEvolutions,
	}
}

// Pairs renders the config as key=value settings.
func (c Config) Pairs() map[string]string {
	out := make(map[string]string, 12)
	for k, v := range c.toggles() {
		out[k] = strconv.FormatBool(*v)
	}
	out[KeyPartySize] = strconv.Itoa(c.PartySize)
	out[KeyGameID] = strconv.Itoa(c.GameID)
	return out
}

// String renders the pairs sorted by key, one "key=value" per line.
func (c Config) String() string {
	pairs := c.Pairs()
	keys := make([]string, 0, len(pairs))
	for k := range pairs {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	var b strings.Builder
	for _, k := range keys {
		fmt.Fprintf(&b, "%s=%s\n", k, pairs[k])
	}
	return b.String()
}

// FromPairs reads settings written by Pairs. Missing keys keep the values
// from base; unknown keys and unparsable values are errors.
func FromPairs(base Config, pairs map[string]string) (Config, error) {
	cfg := base
	toggles := cfg.toggles()
	for k, v := range pairs {
		v = strings.TrimSpace(v)
		if dst, ok := toggles[k]; ok {
			b, err := strconv.ParseBool(v)
			if err != nil {
				return base, &ConfigError{Field: k, Reason: fmt.Sprintf("invalid boolean %q", v)}
			}
			*dst = b
			continue
		}
		switch k {
		case KeyPartySize, KeyGameID:
			n, err := strconv.Atoi(v)
			if err != nil {
				return base, &ConfigError{Field: k, Reason: fmt.Sprintf("invalid integer %q", v)}
			}
			if k == KeyPartySize {
				cfg.PartySize = n
			} else {
				cfg.GameID = n
			}
		default:
			return base, &ConfigError{Field: k, Reason: "unknown setting"}
		}
	}
	return cfg, nil
}
