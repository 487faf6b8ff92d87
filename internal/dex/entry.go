// Package dex holds the per-game catalog of creatures and the equivalence
// groups that make some of them interchangeable.
package dex

import (
	"slices"
	"strconv"
	"strings"
)

// Evolution methods that the rule filter treats specially.
const (
	MethodTrade      = "Trade"
	MethodUsedItem   = "Used item"
	MethodHeldItem   = "Held item"
	MethodFriendship = "Friendship"
	MethodUnique     = "Unique"
	MethodNone       = "None"
)

// IDSet is a sorted, duplicate-free set of dex numbers.
type IDSet []int

// NewIDSet builds a set from ids in any order.
func NewIDSet(ids ...int) IDSet {
	out := slices.Clone(ids)
	slices.Sort(out)
	return IDSet(slices.Compact(out))
}

// Contains reports whether id is in the set.
func (s IDSet) Contains(id int) bool {
	_, ok := slices.BinarySearch(s, id)
	return ok
}

// Intersects reports whether the two sets share at least one id.
func (s IDSet) Intersects(o IDSet) bool {
	i, j := 0, 0
	for i < len(s) && j < len(o) {
		switch {
		case s[i] == o[j]:
			return true
		case s[i] < o[j]:
			i++
		default:
			j++
		}
	}
	return false
}

// Entry is one catalog row: a base form or an alternate form. ID is shared by
// all forms of a species; DisplayKey is unique within a catalog.
type Entry struct {
	ID                         int    `json:"id"`
	Name                       string `json:"name"`
	Form                       string `json:"form,omitempty"`
	PrimaryType                string `json:"primary_type"`
	SecondaryType              string `json:"secondary_type,omitempty"`
	Region                     string `json:"region"`
	Generation                 int    `json:"generation"`
	EvolutionMethod            string `json:"evolution_method"`
	EvolutionFamily            IDSet  `json:"evolution_family"`
	Legendary                  bool   `json:"legendary"`
	Mythical                   bool   `json:"mythical"`
	Baby                       bool   `json:"baby"`
	FinalEvolution             bool   `json:"final_evolution"`
	IgnoreEvolutionRestriction bool   `json:"ignore_evolution_restriction"`
	EquivalenceGroup           IDSet  `json:"equivalence_group"`
	GameID                     int    `json:"game_id"`
}

// DisplayKey is the name plus the form qualifier, if any.
func (e Entry) DisplayKey() string {
	if e.Form == "" {
		return e.Name
	}
	return e.Name + " (" + e.Form + ")"
}

// SingleType reports whether the entry has no secondary type.
func (e Entry) SingleType() bool {
	return strings.TrimSpace(e.SecondaryType) == ""
}

// Clone returns a deep copy so callers cannot alias catalog slices.
func (e Entry) Clone() Entry {
	e.EvolutionFamily = slices.Clone(e.EvolutionFamily)
	e.EquivalenceGroup = slices.Clone(e.EquivalenceGroup)
	return e
}

// String renders the entry the way lists show it: "133 - Eevee".
func (e Entry) String() string {
	var b strings.Builder
	b.WriteString(strconv.Itoa(e.ID))
	b.WriteString(" - ")
	b.WriteString(e.Name)
	if e.Form != "" {
		b.WriteString(" - ")
		b.WriteString(e.Form)
	}
	return b.String()
}

// EquivalentIDs returns the ids considered interchangeable with entry in its
// game. The set always contains the entry's own id.
func EquivalentIDs(entry Entry) IDSet {
	if len(entry.EquivalenceGroup) == 0 {
		return IDSet{entry.ID}
	}
	return slices.Clone(entry.EquivalenceGroup)
}
