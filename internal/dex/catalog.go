package dex

import (
	"fmt"
	"slices"
	"strconv"
	"strings"
)

// Catalog is the immutable set of entries available in one game.
type Catalog struct {
	gameID   int
	entries  []Entry
	byKey    map[string]int
	rejected []*DataError
}

// Override keys accepted in a game block. Values use the dataset encodings:
// lists are ';' separated, booleans are "true"/"false", type_02 "none" clears.
const (
	keyDexNumber  = "dex_number"
	keyName       = "name"
	keyFormName   = "form_name"
	keyType01     = "type_01"
	keyType02     = "type_02"
	keyRegion     = "region"
	keyGeneration = "generation"
	keyEvoMethod  = "evo_method"
	keyEvoFamily  = "evo_family"
	keyLegendary  = "is_legendry"
	keyMythical   = "is_mythical"
	keyBaby       = "is_baby"
	keyFinal      = "is_final"
)

var overrideKeys = map[string]bool{
	keyDexNumber: true, keyName: true, keyType01: true, keyType02: true,
	keyRegion: true, keyGeneration: true, keyEvoMethod: true, keyEvoFamily: true,
	keyLegendary: true, keyMythical: true, keyBaby: true, keyFinal: true,
}

// altFormKeys must all be present in every alternate form.
var altFormKeys = []string{
	keyFormName, keyType01, keyType02, keyRegion, keyGeneration, keyEvoMethod,
	keyEvoFamily, keyLegendary, keyMythical, keyBaby, keyFinal,
}

// BuildCatalog turns raw records into the catalog for gameID. Records that
// are unavailable in the game are skipped. Records whose block for gameID is
// malformed or incomplete, or whose display key collides with an earlier
// entry, are rejected as a whole and reported by Rejected. Blocks of other
// games are not consulted.
func BuildCatalog(gameID int, records []RawRecord) (*Catalog, error) {
	if gameID < 0 {
		return nil, fmt.Errorf("dex: invalid game id %d", gameID)
	}

	c := &Catalog{
		gameID: gameID,
		byKey:  make(map[string]int),
	}

	for _, rec := range records {
		if derr, bad := rec.BlockErrors[gameID]; bad {
			c.rejected = append(c.rejected, derr)
			continue
		}
		if !rec.AvailableIn(gameID) {
			continue
		}
		entries, err := expand(gameID, rec)
		if err != nil {
			c.rejected = append(c.rejected, err)
			continue
		}
		if err := c.add(rec, entries); err != nil {
			c.rejected = append(c.rejected, err)
		}
	}
	return c, nil
}

// add appends all entries of one record or none of them.
func (c *Catalog) add(rec RawRecord, entries []Entry) *DataError {
	seen := make(map[string]bool, len(entries))
	for _, e := range entries {
		key := e.DisplayKey()
		if _, dup := c.byKey[key]; dup || seen[key] {
			return &DataError{Line: rec.Line, Record: rec.Name, Field: keyName, Reason: fmt.Sprintf("duplicate display key %q", key)}
		}
		seen[key] = true
	}
	for _, e := range entries {
		c.byKey[e.DisplayKey()] = len(c.entries)
		c.entries = append(c.entries, e)
	}
	return nil
}

func expand(gameID int, rec RawRecord) ([]Entry, *DataError) {
	fail := func(field, reason string) *DataError {
		return &DataError{Line: rec.Line, Record: rec.Name, Field: field, Reason: reason}
	}

	if strings.TrimSpace(rec.Name) == "" {
		return nil, fail(keyName, "missing name")
	}
	if strings.TrimSpace(rec.PrimaryType) == "" {
		return nil, fail(keyType01, "missing primary type")
	}

	block, _ := rec.Block(gameID)
	base := Entry{
		ID:                         rec.ID,
		Name:                       rec.Name,
		PrimaryType:                rec.PrimaryType,
		SecondaryType:              rec.SecondaryType,
		Region:                     rec.Region,
		Generation:                 rec.Generation,
		EvolutionMethod:            rec.EvolutionMethod,
		EvolutionFamily:            NewIDSet(rec.EvolutionFamily...),
		Legendary:                  rec.Legendary,
		Mythical:                   rec.Mythical,
		Baby:                       rec.Baby,
		FinalEvolution:             rec.FinalEvolution,
		IgnoreEvolutionRestriction: block.Catchable,
		GameID:                     gameID,
	}

	if err := applyOverride(&base, block.Override); err != nil {
		err.Line, err.Record = rec.Line, rec.Name
		return nil, err
	}
	if base.PrimaryType == "" {
		return nil, fail(keyType01, "override cleared primary type")
	}

	group := NewIDSet(append([]int{base.ID}, block.Exclusive...)...)
	base.EquivalenceGroup = group

	// The form qualifier only distinguishes the base entry when the game
	// also carries alternate forms of it.
	if len(block.AltForms) > 0 {
		base.Form = rec.Form
	}

	entries := []Entry{base}
	for i, form := range block.AltForms {
		alt, err := buildForm(base, form)
		if err != nil {
			err.Line, err.Record = rec.Line, rec.Name
			err.Field = fmt.Sprintf("alt_forms[%d].%s", i, err.Field)
			return nil, err
		}
		entries = append(entries, alt)
	}
	return entries, nil
}

func applyOverride(e *Entry, override map[string]string) *DataError {
	for key, val := range override {
		if !overrideKeys[key] {
			return &DataError{Field: key, Reason: "unknown override key"}
		}
		if err := setField(e, key, val); err != nil {
			return err
		}
	}
	return nil
}

func buildForm(base Entry, form map[string]string) (Entry, *DataError) {
	for _, key := range altFormKeys {
		if _, ok := form[key]; !ok {
			return Entry{}, &DataError{Field: key, Reason: "missing required alt-form field"}
		}
	}

	alt := Entry{
		ID:                         base.ID,
		Name:                       base.Name,
		IgnoreEvolutionRestriction: base.IgnoreEvolutionRestriction,
		EquivalenceGroup:           slices.Clone(base.EquivalenceGroup),
		GameID:                     base.GameID,
	}
	for key, val := range form {
		if key == keyFormName {
			alt.Form = strings.TrimSpace(val)
			continue
		}
		if !overrideKeys[key] || key == keyDexNumber || key == keyName {
			return Entry{}, &DataError{Field: key, Reason: "unknown alt-form key"}
		}
		if err := setField(&alt, key, val); err != nil {
			return Entry{}, err
		}
	}
	if alt.Form == "" {
		return Entry{}, &DataError{Field: keyFormName, Reason: "empty form name"}
	}
	if alt.PrimaryType == "" {
		return Entry{}, &DataError{Field: keyType01, Reason: "missing primary type"}
	}
	return alt, nil
}

func setField(e *Entry, key, val string) *DataError {
	val = strings.TrimSpace(val)
	bad := func(reason string) *DataError {
		return &DataError{Field: key, Reason: reason}
	}

	switch key {
	case keyDexNumber:
		n, err := strconv.Atoi(val)
		if err != nil {
			return bad(fmt.Sprintf("invalid integer %q", val))
		}
		e.ID = n
	case keyName:
		if val == "" {
			return bad("empty name")
		}
		e.Name = val
	case keyType01:
		e.PrimaryType = val
	case keyType02:
		if strings.EqualFold(val, "none") {
			val = ""
		}
		e.SecondaryType = val
	case keyRegion:
		e.Region = val
	case keyGeneration:
		n, err := strconv.Atoi(val)
		if err != nil {
			return bad(fmt.Sprintf("invalid integer %q", val))
		}
		e.Generation = n
	case keyEvoMethod:
		e.EvolutionMethod = val
	case keyEvoFamily:
		ids, err := ParseIDList(val)
		if err != nil {
			return bad(err.Error())
		}
		e.EvolutionFamily = NewIDSet(ids...)
	case keyLegendary, keyMythical, keyBaby, keyFinal:
		b, err := strconv.ParseBool(val)
		if err != nil {
			return bad(fmt.Sprintf("invalid boolean %q", val))
		}
		switch key {
		case keyLegendary:
			e.Legendary = b
		case keyMythical:
			e.Mythical = b
		case keyBaby:
			e.Baby = b
		default:
			e.FinalEvolution = b
		}
	}
	return nil
}

// ParseIDList parses a ';' separated list of dex numbers.
func ParseIDList(s string) ([]int, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	parts := strings.Split(s, ";")
	ids := make([]int, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		n, err := strconv.Atoi(p)
		if err != nil {
			return nil, fmt.Errorf("invalid id %q in list", p)
		}
		ids = append(ids, n)
	}
	return ids, nil
}

// GameID returns the game the catalog was built for.
func (c *Catalog) GameID() int { return c.gameID }

// Len returns the number of entries.
func (c *Catalog) Len() int { return len(c.entries) }

// At returns a copy of the i-th entry in catalog order.
func (c *Catalog) At(i int) Entry { return c.entries[i].Clone() }

// Entries returns a copy of every entry in catalog order.
func (c *Catalog) Entries() []Entry {
	out := make([]Entry, len(c.entries))
	for i, e := range c.entries {
		out[i] = e.Clone()
	}
	return out
}

// Lookup finds an entry by exact display key.
func (c *Catalog) Lookup(key string) (Entry, bool) {
	i, ok := c.byKey[key]
	if !ok {
		return Entry{}, false
	}
	return c.entries[i].Clone(), true
}

// Rejected lists the records skipped while building.
func (c *Catalog) Rejected() []*DataError {
	return append([]*DataError(nil), c.rejected...)
}
