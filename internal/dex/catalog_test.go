package dex

import (
	"errors"
	"strings"
	"testing"
)

func boolPtr(b bool) *bool { return &b }

func sampleRecords() []RawRecord {
	return []RawRecord{
		{
			Line: 2, ID: 37, Name: "Vulpix", Form: "Kantonian", PrimaryType: "Fire",
			Region: "Kanto", Generation: 1, EvolutionMethod: "None", EvolutionFamily: []int{37, 38},
			Games: map[int]GameBlock{
				0: {},
				1: {AltForms: []map[string]string{{
					"form_name": "Alolan", "type_01": "Ice", "type_02": "none", "region": "Alola",
					"generation": "7", "evo_method": "None", "evo_family": "37;38",
					"is_legendry": "false", "is_mythical": "false", "is_baby": "false", "is_final": "false",
				}}},
			},
		},
		{
			Line: 3, ID: 133, Name: "Eevee", PrimaryType: "Normal", Region: "Kanto", Generation: 1,
			EvolutionMethod: "None", EvolutionFamily: []int{133, 134, 135},
			Games: map[int]GameBlock{0: {Exclusive: []int{133, 134, 135}}},
		},
		{
			Line: 4, ID: 134, Name: "Vaporeon", PrimaryType: "Water", Region: "Kanto", Generation: 1,
			EvolutionMethod: "Used item", EvolutionFamily: []int{133, 134, 135}, FinalEvolution: true,
			Games: map[int]GameBlock{0: {Exclusive: []int{133, 134, 135}}},
		},
		{
			Line: 5, ID: 135, Name: "Jolteon", PrimaryType: "Electric", Region: "Kanto", Generation: 1,
			EvolutionMethod: "Used item", EvolutionFamily: []int{133, 134, 135}, FinalEvolution: true,
			Games: map[int]GameBlock{
				0: {Exclusive: []int{133, 134, 135}},
				1: {Available: boolPtr(false)},
			},
		},
		{
			Line: 6, ID: 94, Name: "Gengar", PrimaryType: "Ghost", SecondaryType: "Poison", Region: "Kanto",
			Generation: 1, EvolutionMethod: "Trade", EvolutionFamily: []int{92, 93, 94}, FinalEvolution: true,
			Games: map[int]GameBlock{1: {Catchable: true, Override: map[string]string{"type_02": "none"}}},
		},
	}
}

func TestBuildCatalogAvailability(t *testing.T) {
	cat, err := BuildCatalog(1, sampleRecords())
	if err != nil {
		t.Fatalf("BuildCatalog: %v", err)
	}
	if _, ok := cat.Lookup("Jolteon"); ok {
		t.Error("Jolteon is unavailable in game 1 but was included")
	}
	if _, ok := cat.Lookup("Eevee"); !ok {
		t.Error("Eevee has no block for game 1 and should default to available")
	}
	if cat.GameID() != 1 {
		t.Errorf("GameID() = %d, want 1", cat.GameID())
	}
}

func TestBuildCatalogAltForms(t *testing.T) {
	cat, err := BuildCatalog(1, sampleRecords())
	if err != nil {
		t.Fatalf("BuildCatalog: %v", err)
	}

	base, ok := cat.Lookup("Vulpix (Kantonian)")
	if !ok {
		t.Fatal("base form should carry its form name when alt forms exist")
	}
	alt, ok := cat.Lookup("Vulpix (Alolan)")
	if !ok {
		t.Fatal("alt form missing")
	}
	if alt.ID != base.ID {
		t.Errorf("alt form ID = %d, want shared id %d", alt.ID, base.ID)
	}
	if alt.PrimaryType != "Ice" || alt.SecondaryType != "" || alt.Generation != 7 {
		t.Errorf("alt form fields not applied: %+v", alt)
	}

	// Game 0 has no alt forms, so the base keeps its plain name.
	cat0, _ := BuildCatalog(0, sampleRecords())
	if _, ok := cat0.Lookup("Vulpix"); !ok {
		t.Error("expected plain Vulpix key in game 0")
	}
}

func TestBuildCatalogOverrideAndCatchable(t *testing.T) {
	cat, _ := BuildCatalog(1, sampleRecords())
	g, ok := cat.Lookup("Gengar")
	if !ok {
		t.Fatal("Gengar missing")
	}
	if g.SecondaryType != "" {
		t.Errorf("type_02=none override should clear secondary type, got %q", g.SecondaryType)
	}
	if !g.IgnoreEvolutionRestriction {
		t.Error("Catchable should set IgnoreEvolutionRestriction")
	}
}

func TestBuildCatalogEquivalenceGroups(t *testing.T) {
	cat, _ := BuildCatalog(0, sampleRecords())

	eevee, _ := cat.Lookup("Eevee")
	if got := EquivalentIDs(eevee); len(got) != 3 || !got.Contains(134) {
		t.Errorf("EquivalentIDs(Eevee) = %v", got)
	}

	gengar, _ := cat.Lookup("Gengar")
	if got := EquivalentIDs(gengar); len(got) != 1 || got[0] != 94 {
		t.Errorf("undeclared group should be the singleton {94}, got %v", got)
	}

	vap, _ := cat.Lookup("Vaporeon")
	if !Equivalent(vap, eevee) || !Equivalent(eevee, vap) {
		t.Error("group membership should be symmetric")
	}

	// Vulpix, Gengar and the Eevee line.
	if n := cat.Classes(nil); n != 3 {
		t.Errorf("Classes(nil) = %d, want 3", n)
	}
}

func TestBuildCatalogRejectsIncompleteAltForm(t *testing.T) {
	recs := sampleRecords()
	delete(recs[0].Games[1].AltForms[0], "evo_family")

	cat, err := BuildCatalog(1, recs)
	if err != nil {
		t.Fatalf("BuildCatalog: %v", err)
	}
	if _, ok := cat.Lookup("Vulpix (Kantonian)"); ok {
		t.Error("record with a malformed alt form should be rejected with all its entries")
	}
	if _, ok := cat.Lookup("Eevee"); !ok {
		t.Error("other records should still be built")
	}

	rejected := cat.Rejected()
	if len(rejected) != 1 {
		t.Fatalf("Rejected() = %d errors, want 1", len(rejected))
	}
	var de *DataError
	if !errors.As(error(rejected[0]), &de) {
		t.Fatal("rejection should be a *DataError")
	}
	if !strings.Contains(de.Field, "evo_family") {
		t.Errorf("DataError field = %q, want it to name evo_family", de.Field)
	}
}

func TestBuildCatalogRejectsBadOverride(t *testing.T) {
	tests := []struct {
		name     string
		override map[string]string
	}{
		{"unknown key", map[string]string{"colour": "red"}},
		{"bad integer", map[string]string{"generation": "one"}},
		{"bad boolean", map[string]string{"is_legendry": "maybe"}},
		{"bad family", map[string]string{"evo_family": "1;x"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			recs := []RawRecord{{Line: 9, ID: 1, Name: "Bulbasaur", PrimaryType: "Grass",
				Games: map[int]GameBlock{0: {Override: tt.override}}}}
			cat, err := BuildCatalog(0, recs)
			if err != nil {
				t.Fatalf("BuildCatalog: %v", err)
			}
			if cat.Len() != 0 {
				t.Errorf("Len() = %d, want 0", cat.Len())
			}
			if len(cat.Rejected()) != 1 {
				t.Errorf("Rejected() = %d, want 1", len(cat.Rejected()))
			}
		})
	}
}

func TestBuildCatalogRejectsDuplicateKey(t *testing.T) {
	recs := []RawRecord{
		{Line: 2, ID: 1, Name: "Bulbasaur", PrimaryType: "Grass"},
		{Line: 3, ID: 2, Name: "Ivysaur", PrimaryType: "Grass",
			Games: map[int]GameBlock{0: {Override: map[string]string{"name": "Bulbasaur"}}}},
	}
	cat, _ := BuildCatalog(0, recs)
	if cat.Len() != 1 {
		t.Errorf("Len() = %d, want 1", cat.Len())
	}
	if len(cat.Rejected()) != 1 {
		t.Errorf("Rejected() = %d, want 1", len(cat.Rejected()))
	}
}

func TestBuildCatalogInvalidGame(t *testing.T) {
	if _, err := BuildCatalog(-1, nil); err == nil {
		t.Error("expected error for negative game id")
	}
}

func TestCatalogEntriesAreCopies(t *testing.T) {
	cat, _ := BuildCatalog(0, sampleRecords())
	entries := cat.Entries()
	entries[0].EquivalenceGroup[0] = 9999
	entries[0].Name = "Mutated"

	again := cat.At(0)
	if again.Name == "Mutated" || again.EquivalenceGroup[0] == 9999 {
		t.Error("mutating Entries() result leaked into the catalog")
	}
}

func TestDisplayKeyAndString(t *testing.T) {
	e := Entry{ID: 37, Name: "Vulpix", Form: "Alolan"}
	if e.DisplayKey() != "Vulpix (Alolan)" {
		t.Errorf("DisplayKey() = %q", e.DisplayKey())
	}
	if e.String() != "37 - Vulpix - Alolan" {
		t.Errorf("String() = %q", e.String())
	}
	if !e.SingleType() {
		t.Error("entry without secondary type should be SingleType")
	}
}

func TestIDSet(t *testing.T) {
	s := NewIDSet(3, 1, 3, 2)
	if len(s) != 3 || s[0] != 1 || s[2] != 3 {
		t.Errorf("NewIDSet = %v, want [1 2 3]", s)
	}
	if !s.Intersects(NewIDSet(5, 3)) {
		t.Error("expected intersection on 3")
	}
	if s.Intersects(NewIDSet(4, 5)) {
		t.Error("unexpected intersection")
	}
}
