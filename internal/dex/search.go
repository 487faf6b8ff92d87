package dex

import (
	"fmt"
	"sort"
	"strings"

	"github.com/agnivade/levenshtein"
)

// Resolve maps user input to a catalog entry. It tries the exact display key,
// then a case-insensitive display key, then a case-insensitive name that
// belongs to exactly one entry. The error wraps ErrEntryNotFound and names
// the closest suggestions.
func (c *Catalog) Resolve(input string) (Entry, error) {
	input = strings.TrimSpace(input)
	if e, ok := c.Lookup(input); ok {
		return e, nil
	}

	norm := normalise(input)
	var byName []int
	for i, e := range c.entries {
		if normalise(e.DisplayKey()) == norm {
			return e.Clone(), nil
		}
		if normalise(e.Name) == norm {
			byName = append(byName, i)
		}
	}
	if len(byName) == 1 {
		return c.entries[byName[0]].Clone(), nil
	}

	suggestions := c.Suggest(input, 3)
	if len(suggestions) == 0 {
		return Entry{}, fmt.Errorf("%q: %w", input, ErrEntryNotFound)
	}
	keys := make([]string, len(suggestions))
	for i, s := range suggestions {
		keys[i] = s.DisplayKey()
	}
	return Entry{}, fmt.Errorf("%q: %w (did you mean %s?)", input, ErrEntryNotFound, strings.Join(keys, ", "))
}

type candidate struct {
	idx   int
	score float64
}

// Suggest ranks entries by similarity to input: prefix matches first, then
// by edit distance. At most limit entries are returned.
func (c *Catalog) Suggest(input string, limit int) []Entry {
	token := normalise(input)
	if token == "" || limit <= 0 {
		return nil
	}

	cands := make([]candidate, 0, 8)
	for i, e := range c.entries {
		key := normalise(e.DisplayKey())
		var score float64
		switch {
		case key == token:
			score = 1.0
		case strings.HasPrefix(key, token) && len(token) >= 2:
			score = 0.9
		case strings.Contains(key, token) && len(token) >= 3:
			score = 0.8
		default:
			dist := levenshtein.ComputeDistance(token, normalise(e.Name))
			if alt := levenshtein.ComputeDistance(token, key); alt < dist {
				dist = alt
			}
			if dist > distanceLimit(len(token)) {
				continue
			}
			score = 0.72 - 0.08*float64(dist)
		}
		cands = append(cands, candidate{idx: i, score: score})
	}

	sort.SliceStable(cands, func(a, b int) bool {
		if cands[a].score != cands[b].score {
			return cands[a].score > cands[b].score
		}
		return c.entries[cands[a].idx].ID < c.entries[cands[b].idx].ID
	})

	if len(cands) > limit {
		cands = cands[:limit]
	}
	out := make([]Entry, len(cands))
	for i, cand := range cands {
		out[i] = c.entries[cand.idx].Clone()
	}
	return out
}

func distanceLimit(n int) int {
	switch {
	case n <= 3:
		return 1
	case n <= 6:
		return 2
	default:
		return 3
	}
}

func normalise(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(s)), " ")
}
