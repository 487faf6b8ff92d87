// Package dataset reads the delimited creature dataset: thirteen fixed base
// columns followed by one column per game. Each game column holds a small
// key=value language:
//
//	Available=false~Catchable=true~Mutually Exclusive=133;134
//	Override=type_02-none&generation-2
//	Alt Forms=form_name-Alolan&type_01-Ice&...|form_name-Galarian&...
//
// Top-level pairs are separated by '~', override and alt-form fields by '&',
// alt forms by '|', and each field name from its value by the first '-'.
package dataset

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/MJE43/partydle/internal/dex"
)

// Base column layout.
const (
	colDexNumber = iota
	colName
	colType01
	colType02
	colRegion
	colGeneration
	colEvoMethod
	colEvoFamily
	colLegendary
	colMythical
	colBaby
	colFinal
	colFormName
	firstGameColumn
)

// Game-block keys.
const (
	keyAvailable = "Available"
	keyCatchable = "Catchable"
	keyOverride  = "Override"
	keyExclusive = "Mutually Exclusive"
	keyAltForms  = "Alt Forms"
)

// ErrMalformedHeader is returned when the header row cannot describe a dataset.
var ErrMalformedHeader = errors.New("dataset: malformed header")

// ErrUnknownGame is returned for a game id the header does not declare.
var ErrUnknownGame = errors.New("dataset: unknown game")

// Game is one selectable game column.
type Game struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

// Source is a parsed dataset.
type Source struct {
	Games    []Game
	Records  []dex.RawRecord
	Rejected []*dex.DataError
}

// Game looks a game up by id.
func (s *Source) Game(id int) (Game, bool) {
	if id < 0 || id >= len(s.Games) {
		return Game{}, false
	}
	return s.Games[id], true
}

// GameByName looks a game up by case-insensitive column name.
func (s *Source) GameByName(name string) (Game, bool) {
	for _, g := range s.Games {
		if strings.EqualFold(g.Name, strings.TrimSpace(name)) {
			return g, true
		}
	}
	return Game{}, false
}

// Catalog builds the catalog for a known game.
func (s *Source) Catalog(gameID int) (*dex.Catalog, error) {
	if _, ok := s.Game(gameID); !ok {
		return nil, fmt.Errorf("%w %d", ErrUnknownGame, gameID)
	}
	return dex.BuildCatalog(gameID, s.Records)
}

// LoadFile opens and parses the dataset at path.
func LoadFile(path string) (*Source, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("dataset: open %s: %w", path, err)
	}
	defer f.Close()
	return Load(f)
}

// Load parses a dataset. A bad header is fatal; bad rows are collected in
// Source.Rejected and skipped. A malformed game block only rejects the row
// from that game's catalog.
func Load(r io.Reader) (*Source, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("%w: empty input", ErrMalformedHeader)
		}
		return nil, fmt.Errorf("%w: %v", ErrMalformedHeader, err)
	}
	if len(header) <= firstGameColumn {
		return nil, fmt.Errorf("%w: %d columns, need at least %d", ErrMalformedHeader, len(header), firstGameColumn+1)
	}
	if strings.TrimSpace(strings.TrimPrefix(header[colDexNumber], "\ufeff")) != "dex_number" {
		return nil, fmt.Errorf("%w: first column is %q, want dex_number", ErrMalformedHeader, header[colDexNumber])
	}

	src := &Source{}
	for i, name := range header[firstGameColumn:] {
		name = strings.TrimSpace(name)
		if name == "" {
			return nil, fmt.Errorf("%w: game column %d has no name", ErrMalformedHeader, i)
		}
		src.Games = append(src.Games, Game{ID: i, Name: name})
	}

	line := 1
	for {
		fields, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		line++
		if err != nil {
			src.Rejected = append(src.Rejected, &dex.DataError{Line: line, Reason: err.Error()})
			continue
		}
		if len(fields) == 1 && strings.TrimSpace(fields[0]) == "" {
			continue
		}
		rec, derr := parseRecord(line, fields, len(src.Games))
		if derr != nil {
			src.Rejected = append(src.Rejected, derr)
			continue
		}
		src.Records = append(src.Records, rec)
	}
	return src, nil
}

func parseRecord(line int, fields []string, games int) (dex.RawRecord, *dex.DataError) {
	name := ""
	if len(fields) > colName {
		name = strings.TrimSpace(fields[colName])
	}
	fail := func(field, reason string) *dex.DataError {
		return &dex.DataError{Line: line, Record: name, Field: field, Reason: reason}
	}

	if want := firstGameColumn + games; len(fields) != want {
		return dex.RawRecord{}, fail("", fmt.Sprintf("%d columns, want %d", len(fields), want))
	}

	rec := dex.RawRecord{
		Line:            line,
		Name:            name,
		PrimaryType:     strings.TrimSpace(fields[colType01]),
		SecondaryType:   strings.TrimSpace(fields[colType02]),
		Region:          strings.TrimSpace(fields[colRegion]),
		EvolutionMethod: strings.TrimSpace(fields[colEvoMethod]),
		Form:            strings.TrimSpace(fields[colFormName]),
		Games:           make(map[int]dex.GameBlock),
	}

	var err error
	if rec.ID, err = strconv.Atoi(strings.TrimSpace(fields[colDexNumber])); err != nil {
		return dex.RawRecord{}, fail("dex_number", fmt.Sprintf("invalid integer %q", fields[colDexNumber]))
	}
	if rec.Generation, err = strconv.Atoi(strings.TrimSpace(fields[colGeneration])); err != nil {
		return dex.RawRecord{}, fail("generation", fmt.Sprintf("invalid integer %q", fields[colGeneration]))
	}
	if rec.EvolutionFamily, err = dex.ParseIDList(fields[colEvoFamily]); err != nil {
		return dex.RawRecord{}, fail("evo_family", err.Error())
	}

	flags := []struct {
		col  int
		name string
		dst  *bool
	}{
		{colLegendary, "is_legendry", &rec.Legendary},
		{colMythical, "is_mythical", &rec.Mythical},
		{colBaby, "baby", &rec.Baby},
		{colFinal, "final_evo", &rec.FinalEvolution},
	}
	for _, f := range flags {
		if *f.dst, err = strconv.ParseBool(strings.TrimSpace(fields[f.col])); err != nil {
			return dex.RawRecord{}, fail(f.name, fmt.Sprintf("invalid boolean %q", fields[f.col]))
		}
	}

	for g := 0; g < games; g++ {
		raw := strings.TrimSpace(fields[firstGameColumn+g])
		if raw == "" {
			continue
		}
		block, derr := parseBlock(raw)
		if derr != nil {
			derr.Line, derr.Record = line, name
			derr.Field = fmt.Sprintf("game[%d].%s", g, derr.Field)
			if rec.BlockErrors == nil {
				rec.BlockErrors = make(map[int]*dex.DataError)
			}
			rec.BlockErrors[g] = derr
			continue
		}
		rec.Games[g] = block
	}
	return rec, nil
}

func parseBlock(raw string) (dex.GameBlock, *dex.DataError) {
	var block dex.GameBlock
	for _, part := range strings.Split(raw, "~") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		key, val, ok := strings.Cut(part, "=")
		if !ok {
			return block, &dex.DataError{Field: part, Reason: "expected key=value"}
		}
		key, val = strings.TrimSpace(key), strings.TrimSpace(val)

		switch key {
		case keyAvailable:
			b, err := strconv.ParseBool(val)
			if err != nil {
				return block, &dex.DataError{Field: key, Reason: fmt.Sprintf("invalid boolean %q", val)}
			}
			block.Available = &b
		case keyCatchable:
			b, err := strconv.ParseBool(val)
			if err != nil {
				return block, &dex.DataError{Field: key, Reason: fmt.Sprintf("invalid boolean %q", val)}
			}
			block.Catchable = b
		case keyOverride:
			fields, err := parseFields(val)
			if err != nil {
				err.Field = key + "." + err.Field
				return block, err
			}
			block.Override = fields
		case keyExclusive:
			ids, err := dex.ParseIDList(val)
			if err != nil {
				return block, &dex.DataError{Field: key, Reason: err.Error()}
			}
			block.Exclusive = ids
		case keyAltForms:
			for i, form := range strings.Split(val, "|") {
				fields, err := parseFields(form)
				if err != nil {
					err.Field = fmt.Sprintf("%s[%d].%s", key, i, err.Field)
					return block, err
				}
				block.AltForms = append(block.AltForms, fields)
			}
		default:
			return block, &dex.DataError{Field: key, Reason: "unknown game-block key"}
		}
	}
	return block, nil
}

// parseFields splits "a-1&b-2" into a map. Only the first '-' separates a
// field name from its value, so values may contain hyphens.
func parseFields(s string) (map[string]string, *dex.DataError) {
	out := make(map[string]string)
	for _, pair := range strings.Split(s, "&") {
		pair = strings.TrimSpace(pair)
		if pair == "" {
			continue
		}
		k, v, ok := strings.Cut(pair, "-")
		if !ok || strings.TrimSpace(k) == "" {
			return nil, &dex.DataError{Field: pair, Reason: "expected name-value"}
		}
		out[strings.TrimSpace(k)] = strings.TrimSpace(v)
	}
	return out, nil
}
