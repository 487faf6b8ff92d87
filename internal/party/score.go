package party

import (
	"fmt"

	"github.com/MJE43/partydle/internal/dex"
	"github.com/MJE43/partydle/internal/rules"
)

// Color is the feedback for one guess slot.
type Color string

const (
	Green  Color = "green"
	Orange Color = "orange"
	Red    Color = "red"
)

// Counts tallies attribute matches between a guess slot and every member of
// the party.
type Counts struct {
	TypeA           int `json:"typeA"`
	TypeB           int `json:"typeB"`
	Region          int `json:"region"`
	Generation      int `json:"generation"`
	EvolutionMethod int `json:"evolutionMethod"`
	EvolutionFamily int `json:"evolutionFamily"`
}

// Any reports whether any counter is non-zero.
func (c Counts) Any() bool {
	return c.TypeA > 0 || c.TypeB > 0 || c.Region > 0 ||
		c.Generation > 0 || c.EvolutionMethod > 0 || c.EvolutionFamily > 0
}

// SlotResult is the feedback for one guess slot.
type SlotResult struct {
	Slot   int    `json:"slot"`
	Guess  string `json:"guess"`
	Color  Color  `json:"color"`
	Counts Counts `json:"counts"`
	// Matched is the index of the party member consumed by an exact match,
	// or -1.
	Matched int `json:"matched"`
	// SingleType is set when the guess has no secondary type, so a zero
	// TypeB reads as "single type" rather than a miss.
	SingleType bool `json:"singleType,omitempty"`
}

// Score compares guess against p slot by slot.
//
// Slots are resolved in guess order. A slot is green when an unconsumed
// member has the same display key, or, for parties drawn with
// AllowExclusiveEquivalents, holds the guess id in its equivalence group.
// The first such member in party order is consumed. Counts are always
// computed against the whole party.
func Score(p Party, guess []dex.Entry) ([]SlotResult, error) {
	if len(p.Members) == 0 {
		return nil, &rules.ConfigError{Field: "party", Reason: "party is empty"}
	}
	if len(guess) == 0 || len(guess) > len(p.Members) {
		return nil, &rules.ConfigError{
			Field:  "guess",
			Reason: fmt.Sprintf("guess has %d slots, party has %d", len(guess), len(p.Members)),
		}
	}

	consumed := make([]bool, len(p.Members))
	results := make([]SlotResult, len(guess))
	for slot, g := range guess {
		r := SlotResult{
			Slot:       slot,
			Guess:      g.DisplayKey(),
			Matched:    -1,
			Counts:     partials(p.Members, g),
			SingleType: g.SingleType(),
		}
		for i, m := range p.Members {
			if consumed[i] || !exact(m, g, p.Rules.AllowExclusiveEquivalents) {
				continue
			}
			consumed[i] = true
			r.Matched = i
			break
		}
		switch {
		case r.Matched >= 0:
			r.Color = Green
		case r.Counts.Any():
			r.Color = Orange
		default:
			r.Color = Red
		}
		results[slot] = r
	}
	return results, nil
}

// Solved reports whether results cover the whole party and are all green.
func Solved(p Party, results []SlotResult) bool {
	if len(results) != len(p.Members) {
		return false
	}
	for _, r := range results {
		if r.Color != Green {
			return false
		}
	}
	return true
}

func exact(member, guess dex.Entry, exclusives bool) bool {
	if member.DisplayKey() == guess.DisplayKey() {
		return true
	}
	return exclusives && dex.Equivalent(member, guess)
}

func partials(members []dex.Entry, g dex.Entry) Counts {
	var c Counts
	for _, m := range members {
		if hasType(m, g.PrimaryType) {
			c.TypeA++
		}
		if hasType(m, g.SecondaryType) {
			c.TypeB++
		}
		if g.Region != "" && m.Region == g.Region {
			c.Region++
		}
		if m.Generation == g.Generation {
			c.Generation++
		}
		if g.EvolutionMethod != "" && m.EvolutionMethod == g.EvolutionMethod {
			c.EvolutionMethod++
		}
		if g.EvolutionFamily.Contains(m.ID) {
			c.EvolutionFamily++
		}
	}
	return c
}

// hasType reports whether t is one of m's types. An empty t never matches.
func hasType(m dex.Entry, t string) bool {
	return t != "" && (m.PrimaryType == t || m.SecondaryType == t)
}
