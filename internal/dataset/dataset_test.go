package dataset

import (
	"errors"
	"path/filepath"
	"strings"
	"testing"
)

func loadFixture(t *testing.T) *Source {
	t.Helper()
	src, err := LoadFile(filepath.Join("testdata", "dex.csv"))
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}
	return src
}

func TestLoadGames(t *testing.T) {
	src := loadFixture(t)

	want := []string{"Red/Blue", "Sun/Moon", "Sword/Shield"}
	if len(src.Games) != len(want) {
		t.Fatalf("got %d games, want %d", len(src.Games), len(want))
	}
	for i, name := range want {
		if src.Games[i].Name != name || src.Games[i].ID != i {
			t.Errorf("game %d = %+v, want %q", i, src.Games[i], name)
		}
	}

	g, ok := src.GameByName("sun/moon")
	if !ok || g.ID != 1 {
		t.Errorf("GameByName(sun/moon) = %+v, %v", g, ok)
	}
	if _, ok := src.Game(7); ok {
		t.Error("Game(7) should not exist")
	}
}

func TestLoadRejectsBadRows(t *testing.T) {
	src := loadFixture(t)

	if len(src.Rejected) != 1 {
		t.Fatalf("Rejected = %d, want 1", len(src.Rejected))
	}
	if src.Rejected[0].Record != "Brokenmon" || src.Rejected[0].Field != "generation" {
		t.Errorf("unexpected rejection: %v", src.Rejected[0])
	}
}

func TestLoadParsesBlocks(t *testing.T) {
	src := loadFixture(t)

	var eevee, vulpix bool
	for _, rec := range src.Records {
		switch rec.Name {
		case "Eevee":
			eevee = true
			b, ok := rec.Block(0)
			if !ok || len(b.Exclusive) != 4 {
				t.Errorf("Eevee block 0 = %+v", b)
			}
		case "Vulpix":
			vulpix = true
			b, _ := rec.Block(1)
			if len(b.AltForms) != 1 || b.AltForms[0]["form_name"] != "Alolan" {
				t.Errorf("Vulpix alt forms = %+v", b.AltForms)
			}
		case "Mew":
			if rec.AvailableIn(0) || !rec.AvailableIn(1) {
				t.Error("Mew availability parsed incorrectly")
			}
		}
	}
	if !eevee || !vulpix {
		t.Error("fixture rows missing")
	}
}

func TestSourceCatalog(t *testing.T) {
	src := loadFixture(t)

	cat, err := src.Catalog(0)
	if err != nil {
		t.Fatalf("Catalog(0): %v", err)
	}
	if cat.Len() != 18 {
		t.Errorf("Red/Blue catalog has %d entries, want 18", cat.Len())
	}
	if n := cat.Classes(nil); n != 14 {
		t.Errorf("Red/Blue has %d equivalence classes, want 14", n)
	}

	sm, err := src.Catalog(1)
	if err != nil {
		t.Fatalf("Catalog(1): %v", err)
	}
	if _, ok := sm.Lookup("Raichu (Alolan)"); !ok {
		t.Error("Sun/Moon should include Alolan Raichu")
	}
	if _, ok := sm.Lookup("Bulbasaur"); ok {
		t.Error("Sun/Moon should not include Bulbasaur")
	}

	if _, err := src.Catalog(9); !errors.Is(err, ErrUnknownGame) {
		t.Errorf("Catalog(9) error = %v, want ErrUnknownGame", err)
	}
}

func TestMalformedBlockOnlyRejectsItsGame(t *testing.T) {
	const input = "dex_number,name,type_01,type_02,region,generation,evo_method,evo_family,is_legendry,is_mythical,baby,final_evo,form_name,Red/Blue,Sword/Shield\n" +
		"1,Bulbasaur,Grass,Poison,Kanto,1,None,1;2;3,false,false,false,false,,Catchable=true,Override=type_02\n" +
		"4,Charmander,Fire,,Kanto,1,None,4;5;6,false,false,false,false,,,\n"

	src, err := Load(strings.NewReader(input))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(src.Rejected) != 0 {
		t.Errorf("Rejected = %v, want none", src.Rejected)
	}

	red, err := src.Catalog(0)
	if err != nil {
		t.Fatalf("Catalog(0): %v", err)
	}
	if red.Len() != 2 || len(red.Rejected()) != 0 {
		t.Errorf("Red/Blue: %d entries, rejected %v; want 2 entries, none rejected", red.Len(), red.Rejected())
	}
	if e, ok := red.Lookup("Bulbasaur"); !ok || !e.IgnoreEvolutionRestriction {
		t.Errorf("Red/Blue Bulbasaur = %+v, %v", e, ok)
	}

	sword, err := src.Catalog(1)
	if err != nil {
		t.Fatalf("Catalog(1): %v", err)
	}
	if _, ok := sword.Lookup("Bulbasaur"); ok {
		t.Error("Sword/Shield should reject Bulbasaur")
	}
	rejected := sword.Rejected()
	if len(rejected) != 1 || rejected[0].Record != "Bulbasaur" || rejected[0].Field != "game[1].Override.type_02" {
		t.Errorf("Sword/Shield rejected = %v", rejected)
	}
	if sword.Len() != 1 {
		t.Errorf("Sword/Shield has %d entries, want 1", sword.Len())
	}
}

func TestLoadMalformedHeader(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"empty", ""},
		{"too few columns", "dex_number,name,type_01\n"},
		{"wrong first column", "id,name,type_01,type_02,region,generation,evo_method,evo_family,is_legendry,is_mythical,baby,final_evo,form_name,Red\n"},
		{"blank game", "dex_number,name,type_01,type_02,region,generation,evo_method,evo_family,is_legendry,is_mythical,baby,final_evo,form_name, \n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(strings.NewReader(tt.input))
			if !errors.Is(err, ErrMalformedHeader) {
				t.Errorf("Load() error = %v, want ErrMalformedHeader", err)
			}
		})
	}
}

func TestParseBlock(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		wantErr bool
	}{
		{"availability", "Available=false", false},
		{"override with hyphenated value", "Override=name-Ho-Oh&type_02-none", false},
		{"two forms", "Alt Forms=form_name-A&type_01-Ice|form_name-B&type_01-Fire", false},
		{"missing equals", "Available", true},
		{"unknown key", "Shiny=true", true},
		{"bad bool", "Catchable=yes please", true},
		{"bad exclusive", "Mutually Exclusive=1;two", true},
		{"bad override pair", "Override=type_01", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			block, err := parseBlock(tt.raw)
			if (err != nil) != tt.wantErr {
				t.Fatalf("parseBlock(%q) error = %v, wantErr %v", tt.raw, err, tt.wantErr)
			}
			if tt.name == "override with hyphenated value" && block.Override["name"] != "Ho-Oh" {
				t.Errorf("name override = %q, want Ho-Oh", block.Override["name"])
			}
			if tt.name == "two forms" && len(block.AltForms) != 2 {
				t.Errorf("got %d forms, want 2", len(block.AltForms))
			}
		})
	}
}
