package party

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/MJE43/partydle/internal/dex"
	"github.com/MJE43/partydle/internal/engine"
	"github.com/MJE43/partydle/internal/rules"
)

func TestGenerateProperties(t *testing.T) {
	cat := mixedCatalog(t)

	configs := []rules.Config{
		{PartySize: 6},
		{PartySize: 3, FinalEvolutionsOnly: true},
		{PartySize: 6, AllowLegendaries: true, AllowMythicals: true, AllowBabies: true, AllowTradeEvolutions: true},
		{PartySize: 6, AllowExclusiveEquivalents: true},
		{PartySize: 4, DisableItemEvolutions: true, DisableFriendshipEvolutions: true, DisableUniqueEvolutions: true},
		{PartySize: 6, AllowExclusiveEquivalents: true, AllowDuplicates: true},
	}

	for ci, cfg := range configs {
		for nonce := uint64(0); nonce < 50; nonce++ {
			t.Run(fmt.Sprintf("cfg%d/nonce%d", ci, nonce), func(t *testing.T) {
				seeds := engine.Seeds{Server: "server-seed", Client: "client", Nonce: nonce}
				p, err := Generate(context.Background(), cat, cfg, engine.NewStream(seeds))
				if err != nil {
					t.Fatalf("Generate: %v", err)
				}
				if p.Size() != cfg.PartySize {
					t.Fatalf("size = %d, want %d", p.Size(), cfg.PartySize)
				}
				for _, m := range p.Members {
					if !rules.IsEligible(m, cfg) {
						t.Errorf("%s is not eligible: %s", m.DisplayKey(), rules.Rejection(m, cfg))
					}
				}
				keys := make(map[string]bool)
				for i, m := range p.Members {
					if !cfg.AllowDuplicates && keys[m.DisplayKey()] {
						t.Errorf("duplicate %s", m.DisplayKey())
					}
					keys[m.DisplayKey()] = true
					if cfg.AllowExclusiveEquivalents {
						continue
					}
					for _, o := range p.Members[i+1:] {
						if m.EquivalenceGroup.Intersects(o.EquivalenceGroup) {
							t.Errorf("%s and %s share an equivalence group", m.DisplayKey(), o.DisplayKey())
						}
					}
				}
			})
		}
	}
}

func TestGenerateDeterministic(t *testing.T) {
	cat := mixedCatalog(t)
	cfg := rules.Config{PartySize: 6}
	seeds := engine.Seeds{Server: "fixed", Client: "player", Nonce: 7}

	a, err := Generate(context.Background(), cat, cfg, engine.NewStream(seeds))
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	b, err := Generate(context.Background(), cat, cfg, engine.NewStream(seeds))
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if !a.SameMembers(b) {
		t.Errorf("same seeds gave %v and %v", a.Keys(), b.Keys())
	}
	if a.Draws == 0 || a.Draws != b.Draws {
		t.Errorf("draws = %d and %d", a.Draws, b.Draws)
	}
	if a.GameID != 0 || a.Rules != cfg {
		t.Errorf("party metadata = game %d rules %+v", a.GameID, a.Rules)
	}
}

func TestGenerateExclusiveClassesExhausted(t *testing.T) {
	cat := exampleCatalog(t)

	_, err := Generate(context.Background(), cat, rules.Config{PartySize: 3}, &seqSource{draws: []int{0, 1, 2}})
	var ce *rules.ConfigError
	if !errors.As(err, &ce) {
		t.Fatalf("Generate() error = %v, want *rules.ConfigError", err)
	}
	if ce.Field != rules.KeyPartySize {
		t.Errorf("Field = %q, want %q", ce.Field, rules.KeyPartySize)
	}

	// Two classes are enough for two members.
	p, err := Generate(context.Background(), cat, rules.Config{PartySize: 2}, &seqSource{draws: []int{1, 2, 0}})
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	want := []string{"Puddlet", "Emberling"}
	if got := p.Keys(); got[0] != want[0] || got[1] != want[1] {
		t.Errorf("Keys() = %v, want %v", got, want)
	}
	if p.Draws != 3 {
		t.Errorf("Draws = %d, want 3 (Splashby rejected)", p.Draws)
	}
}

func TestGenerateExclusivesAllowed(t *testing.T) {
	cat := exampleCatalog(t)
	cfg := rules.Config{PartySize: 3, AllowExclusiveEquivalents: true}

	p, err := Generate(context.Background(), cat, cfg, &seqSource{draws: []int{1, 1, 2, 0}})
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	// The second Puddlet is collapsed and topped up by the next draws.
	want := []string{"Puddlet", "Splashby", "Emberling"}
	for i, k := range p.Keys() {
		if k != want[i] {
			t.Fatalf("Keys() = %v, want %v", p.Keys(), want)
		}
	}
	if p.Draws != 4 {
		t.Errorf("Draws = %d, want 4", p.Draws)
	}

	cfg.PartySize = 4
	_, err = Generate(context.Background(), cat, cfg, &seqSource{draws: []int{0}})
	var ce *rules.ConfigError
	if !errors.As(err, &ce) {
		t.Errorf("party of 4 from 3 entries: error = %v, want *rules.ConfigError", err)
	}
}

func TestGenerateDuplicatesAllowed(t *testing.T) {
	cat := exampleCatalog(t)
	cfg := rules.Config{PartySize: 6, AllowExclusiveEquivalents: true, AllowDuplicates: true}

	p, err := Generate(context.Background(), cat, cfg, &seqSource{draws: []int{0}})
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	for _, k := range p.Keys() {
		if k != "Emberling" {
			t.Fatalf("Keys() = %v, want six Emberling", p.Keys())
		}
	}
}

func TestGenerateConfigErrors(t *testing.T) {
	cat := exampleCatalog(t)
	allLegendary, err := dex.BuildCatalog(0, []dex.RawRecord{
		func() dex.RawRecord { r := record(150, "Psyche", "Psychic"); r.Legendary = true; return r }(),
	})
	if err != nil {
		t.Fatal(err)
	}
	empty, err := dex.BuildCatalog(0, nil)
	if err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name string
		cat  *dex.Catalog
		cfg  rules.Config
	}{
		{"invalid size", cat, rules.Config{PartySize: 0}},
		{"empty catalog", empty, rules.Config{PartySize: 1}},
		{"nil catalog", nil, rules.Config{PartySize: 1}},
		{"wrong game", cat, rules.Config{PartySize: 1, GameID: 2}},
		{"empty pool", allLegendary, rules.Config{PartySize: 1}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Generate(context.Background(), tt.cat, tt.cfg, &seqSource{draws: []int{0}})
			var ce *rules.ConfigError
			if !errors.As(err, &ce) {
				t.Fatalf("Generate() error = %v, want *rules.ConfigError", err)
			}
		})
	}
}

func TestGenerateDrawBudget(t *testing.T) {
	cat := mixedCatalog(t)
	legendary := -1
	for i := 0; i < cat.Len(); i++ {
		if cat.At(i).Legendary {
			legendary = i
		}
	}
	if legendary < 0 {
		t.Fatal("fixture has no legendary")
	}

	// A source stuck on an ineligible entry never makes progress.
	_, err := Generate(context.Background(), cat, rules.Config{PartySize: 1}, &seqSource{draws: []int{legendary}}, WithMaxDraws(50))
	var ce *rules.ConfigError
	if !errors.As(err, &ce) {
		t.Fatalf("Generate() error = %v, want *rules.ConfigError", err)
	}
}

func TestGenerateContextCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := Generate(ctx, exampleCatalog(t), rules.Config{PartySize: 1}, &seqSource{draws: []int{0}})
	if !errors.Is(err, context.Canceled) {
		t.Errorf("Generate() error = %v, want context.Canceled", err)
	}
}

type onlyType string

func (o onlyType) Eligible(e dex.Entry) (bool, error) { return e.PrimaryType == string(o), nil }

type failing struct{}

func (failing) Eligible(dex.Entry) (bool, error) { return false, errors.New("boom") }

func TestGeneratePredicate(t *testing.T) {
	cat := exampleCatalog(t)

	p, err := Generate(context.Background(), cat, rules.Config{PartySize: 1}, &seqSource{draws: []int{1, 2, 0}}, WithPredicate(onlyType("Fire")))
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if p.Keys()[0] != "Emberling" {
		t.Errorf("Keys() = %v, want [Emberling]", p.Keys())
	}

	_, err = Generate(context.Background(), cat, rules.Config{PartySize: 2}, &seqSource{draws: []int{0}}, WithPredicate(onlyType("Fire")))
	var ce *rules.ConfigError
	if !errors.As(err, &ce) {
		t.Errorf("predicate leaving one class: error = %v, want *rules.ConfigError", err)
	}

	if _, err := Generate(context.Background(), cat, rules.Config{PartySize: 1}, &seqSource{draws: []int{0}}, WithPredicate(failing{})); err == nil {
		t.Error("predicate error should propagate")
	}
}

func TestGenerateWithScript(t *testing.T) {
	s, err := rules.CompileScript("water.js", `function eligible(e) { return e.primaryType === "Water"; }`)
	if err != nil {
		t.Fatalf("CompileScript: %v", err)
	}
	cfg := rules.Config{PartySize: 2, AllowExclusiveEquivalents: true}
	p, err := Generate(context.Background(), exampleCatalog(t), cfg, &seqSource{draws: []int{0, 2, 1}}, WithPredicate(s))
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if got := p.Keys(); got[0] != "Splashby" || got[1] != "Puddlet" {
		t.Errorf("Keys() = %v, want [Splashby Puddlet]", got)
	}
}
