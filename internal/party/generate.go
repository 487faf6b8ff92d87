// Package party draws hidden parties from a catalog and scores guesses
// against them.
package party

import (
	"context"
	"fmt"

	"github.com/MJE43/partydle/internal/dex"
	"github.com/MJE43/partydle/internal/engine"
	"github.com/MJE43/partydle/internal/rules"
)

// DefaultMaxDraws bounds the rejection-sampling loop.
const DefaultMaxDraws = 250_000

const ctxCheckInterval = 256

// Predicate is an extra eligibility rule applied after the built-in toggles.
// *rules.Script implements it.
type Predicate interface {
	Eligible(dex.Entry) (bool, error)
}

// Party is an ordered hidden team plus the rules it was drawn under.
type Party struct {
	GameID  int          `json:"gameId"`
	Rules   rules.Config `json:"rules"`
	Members []dex.Entry  `json:"members"`
	// Draws is how many catalog draws generation took.
	Draws uint64 `json:"draws,omitempty"`
}

// Size returns the number of members.
func (p Party) Size() int { return len(p.Members) }

// Keys returns the member display keys in party order.
func (p Party) Keys() []string {
	keys := make([]string, len(p.Members))
	for i, m := range p.Members {
		keys[i] = m.DisplayKey()
	}
	return keys
}

// SameMembers reports whether both parties hold the same display keys in
// the same order.
func (p Party) SameMembers(o Party) bool {
	if len(p.Members) != len(o.Members) {
		return false
	}
	for i := range p.Members {
		if p.Members[i].DisplayKey() != o.Members[i].DisplayKey() {
			return false
		}
	}
	return true
}

type options struct {
	maxDraws  uint64
	predicate Predicate
}

// Option configures Generate.
type Option func(*options)

// WithMaxDraws overrides DefaultMaxDraws. Values <= 0 are ignored.
func WithMaxDraws(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.maxDraws = uint64(n)
		}
	}
}

// WithPredicate adds a house rule to the eligibility check.
func WithPredicate(p Predicate) Option {
	return func(o *options) { o.predicate = p }
}

// Generate draws a party of cfg.PartySize from cat.
//
// Each draw picks uniformly from the whole catalog and is discarded when the
// entry is ineligible, or when exclusives are disallowed and its id sits in
// the group of a member already accepted. Without AllowDuplicates the party
// is reduced to distinct display keys after every acceptance.
//
// Unsatisfiable configurations fail up front with *rules.ConfigError; the
// draw budget and ctx bound the loop otherwise.
func Generate(ctx context.Context, cat *dex.Catalog, cfg rules.Config, src engine.Source, opts ...Option) (Party, error) {
	o := options{maxDraws: DefaultMaxDraws}
	for _, opt := range opts {
		opt(&o)
	}

	if err := cfg.Validate(); err != nil {
		return Party{}, err
	}
	if cat == nil || cat.Len() == 0 {
		return Party{}, &rules.ConfigError{Reason: "catalog is empty"}
	}
	if cat.GameID() != cfg.GameID {
		return Party{}, &rules.ConfigError{
			Field:  rules.KeyGameID,
			Reason: fmt.Sprintf("catalog is for game %d, rules select game %d", cat.GameID(), cfg.GameID),
		}
	}

	entries := cat.Entries()
	eligible, err := eligibility(entries, cfg, o.predicate)
	if err != nil {
		return Party{}, err
	}
	if err := checkCapacity(cat, entries, eligible, cfg); err != nil {
		return Party{}, err
	}

	members := make([]dex.Entry, 0, cfg.PartySize)
	var draws uint64
	for len(members) < cfg.PartySize {
		if draws%ctxCheckInterval == 0 {
			if err := ctx.Err(); err != nil {
				return Party{}, err
			}
		}
		if draws >= o.maxDraws {
			return Party{}, &rules.ConfigError{
				Field:  rules.KeyPartySize,
				Reason: fmt.Sprintf("no party of %d found within %d draws", cfg.PartySize, o.maxDraws),
			}
		}

		i := src.IntN(len(entries))
		draws++
		if !eligible[i] {
			continue
		}
		drawn := entries[i]
		if !cfg.AllowExclusiveEquivalents && excluded(members, drawn) {
			continue
		}
		members = append(members, drawn.Clone())
		if !cfg.AllowDuplicates {
			members = dedupe(members)
		}
	}

	return Party{
		GameID:  cfg.GameID,
		Rules:   cfg,
		Members: members,
		Draws:   draws,
	}, nil
}

func eligibility(entries []dex.Entry, cfg rules.Config, pred Predicate) ([]bool, error) {
	out := make([]bool, len(entries))
	for i, e := range entries {
		if !rules.IsEligible(e, cfg) {
			continue
		}
		if pred != nil {
			ok, err := pred.Eligible(e)
			if err != nil {
				return nil, fmt.Errorf("house rule: %w", err)
			}
			if !ok {
				continue
			}
		}
		out[i] = true
	}
	return out, nil
}

// checkCapacity fails when no party of the configured size can exist.
func checkCapacity(cat *dex.Catalog, entries []dex.Entry, eligible []bool, cfg rules.Config) error {
	keys := make(map[string]bool)
	for i, ok := range eligible {
		if ok {
			keys[entries[i].DisplayKey()] = true
		}
	}
	if len(keys) == 0 {
		return &rules.ConfigError{Reason: "no entries satisfy the rules"}
	}

	var capacity int
	var unit string
	switch {
	case !cfg.AllowExclusiveEquivalents:
		capacity = cat.Classes(func(e dex.Entry) bool { return keys[e.DisplayKey()] })
		unit = "equivalence classes"
	case !cfg.AllowDuplicates:
		capacity = len(keys)
		unit = "eligible entries"
	default:
		return nil
	}
	if cfg.PartySize > capacity {
		return &rules.ConfigError{
			Field:  rules.KeyPartySize,
			Reason: fmt.Sprintf("party of %d exceeds the %d %s available", cfg.PartySize, capacity, unit),
		}
	}
	return nil
}

func excluded(members []dex.Entry, drawn dex.Entry) bool {
	for _, m := range members {
		if dex.Equivalent(m, drawn) {
			return true
		}
	}
	return false
}

// dedupe keeps the first member per display key.
func dedupe(members []dex.Entry) []dex.Entry {
	seen := make(map[string]struct{}, len(members))
	out := members[:0]
	for _, m := range members {
		k := m.DisplayKey()
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, m)
	}
	return out
}
