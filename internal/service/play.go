package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/MJE43/partydle/internal/dex"
	"github.com/MJE43/partydle/internal/engine"
	"github.com/MJE43/partydle/internal/party"
	"github.com/MJE43/partydle/internal/rules"
	"github.com/MJE43/partydle/internal/store"
)

// RejectedByHouseRule is the PoolReport.Rejected key for entries the house
// rule turned down.
const RejectedByHouseRule = "house_rule"

// PoolReport describes the entries a rule set leaves drawable.
type PoolReport struct {
	GameID   int            `json:"gameId"`
	Rules    rules.Config   `json:"rules"`
	Total    int            `json:"total"`
	Eligible []string       `json:"eligible"`
	Rejected map[string]int `json:"rejected"`
	// Classes is the number of equivalence classes among eligible entries.
	Classes int `json:"classes"`
}

// Pool reports which entries cfg allows.
func (s *Service) Pool(cfg rules.Config) (*PoolReport, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	cat, err := s.Catalog(cfg.GameID)
	if err != nil {
		return nil, err
	}

	report := &PoolReport{
		GameID:   cfg.GameID,
		Rules:    cfg,
		Total:    cat.Len(),
		Eligible: []string{},
		Rejected: make(map[string]int),
	}
	keep := make(map[string]bool)
	for _, e := range cat.Entries() {
		reason := rules.Rejection(e, cfg)
		if reason == "" && s.opts.HouseRule != nil {
			ok, err := s.opts.HouseRule.Eligible(e)
			if err != nil {
				return nil, fmt.Errorf("house rule: %w", err)
			}
			if !ok {
				reason = RejectedByHouseRule
			}
		}
		if reason != "" {
			report.Rejected[reason]++
			continue
		}
		keep[e.DisplayKey()] = true
		report.Eligible = append(report.Eligible, e.DisplayKey())
	}
	report.Classes = cat.Classes(func(e dex.Entry) bool { return keep[e.DisplayKey()] })
	return report, nil
}

// GuessResult is the outcome of one scored guess.
type GuessResult struct {
	PartyID string             `json:"partyId"`
	Attempt int                `json:"attempt"`
	Results []party.SlotResult `json:"results"`
	Solved  bool               `json:"solved"`
}

// Guess resolves names against the party's catalog, scores them and
// records the attempt.
func (s *Service) Guess(ctx context.Context, partyID string, names []string) (*GuessResult, error) {
	rec, p, err := s.load(ctx, partyID)
	if err != nil {
		return nil, err
	}
	if rec.Revealed {
		return nil, ErrPartyRevealed
	}
	if len(names) == 0 || len(names) > p.Size() {
		return nil, &rules.ConfigError{
			Field:  "guess",
			Reason: fmt.Sprintf("guess has %d names, party has %d members", len(names), p.Size()),
		}
	}

	cat, err := s.Catalog(rec.GameID)
	if err != nil {
		return nil, err
	}
	guess := make([]dex.Entry, len(names))
	for i, name := range names {
		e, err := cat.Resolve(name)
		if err != nil {
			return nil, fmt.Errorf("slot %d: %w", i+1, err)
		}
		guess[i] = e
	}

	results, err := party.Score(p, guess)
	if err != nil {
		return nil, err
	}
	solved := party.Solved(p, results)

	keys := make([]string, len(guess))
	for i, g := range guess {
		keys[i] = g.DisplayKey()
	}
	keysJSON, err := json.Marshal(keys)
	if err != nil {
		return nil, fmt.Errorf("encode guess: %w", err)
	}
	resultsJSON, err := json.Marshal(results)
	if err != nil {
		return nil, fmt.Errorf("encode results: %w", err)
	}
	g := &store.Guess{
		ID:          uuid.New().String(),
		PartyID:     rec.ID,
		KeysJSON:    string(keysJSON),
		ResultsJSON: string(resultsJSON),
		Solved:      solved,
		CreatedAt:   s.now(),
	}
	if err := s.db.SaveGuess(ctx, g); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrPartyNotFound, rec.ID)
		}
		return nil, err
	}

	s.logger.Printf("guess_scored party_id=%s attempt=%d solved=%t", rec.ID, g.Attempt, solved)
	return &GuessResult{PartyID: rec.ID, Attempt: g.Attempt, Results: results, Solved: solved}, nil
}

// GuessRecord is a stored guess with its decoded results.
type GuessRecord struct {
	Attempt   int                `json:"attempt"`
	Keys      []string           `json:"keys"`
	Results   []party.SlotResult `json:"results"`
	Solved    bool               `json:"solved"`
	CreatedAt time.Time          `json:"createdAt"`
}

// Guesses returns a party's guess history in attempt order.
func (s *Service) Guesses(ctx context.Context, partyID string) ([]GuessRecord, error) {
	if _, err := s.db.GetParty(ctx, partyID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrPartyNotFound, partyID)
		}
		return nil, err
	}
	rows, err := s.db.ListGuesses(ctx, partyID)
	if err != nil {
		return nil, err
	}
	out := make([]GuessRecord, 0, len(rows))
	for _, row := range rows {
		r := GuessRecord{Attempt: row.Attempt, Solved: row.Solved, CreatedAt: row.CreatedAt}
		if err := json.Unmarshal([]byte(row.KeysJSON), &r.Keys); err != nil {
			return nil, fmt.Errorf("decode guess %d: %w", row.Attempt, err)
		}
		if err := json.Unmarshal([]byte(row.ResultsJSON), &r.Results); err != nil {
			return nil, fmt.Errorf("decode results %d: %w", row.Attempt, err)
		}
		out = append(out, r)
	}
	return out, nil
}

// History lists stored parties, newest first. A negative gameID lists all
// games.
func (s *Service) History(ctx context.Context, gameID, page, perPage int) ([]PartyView, int, error) {
	list, err := s.db.ListParties(ctx, store.PartiesQuery{GameID: gameID, Page: page, PerPage: perPage})
	if err != nil {
		return nil, 0, err
	}
	out := make([]PartyView, 0, len(list.Parties))
	for i := range list.Parties {
		out = append(out, *s.view(&list.Parties[i], nil))
	}
	return out, list.TotalCount, nil
}

// Reveal discloses a party's members and server seed. The seed is checked
// against the stored hash before it leaves the vault. Revealing twice
// returns the same view.
func (s *Service) Reveal(ctx context.Context, partyID string) (*PartyView, error) {
	rec, p, err := s.load(ctx, partyID)
	if err != nil {
		return nil, err
	}
	if rec.Revealed {
		return s.view(rec, &p), nil
	}

	if rec.ServerSeedHash != "" {
		seed, err := s.vault.ServerSeed(rec.ID)
		if err != nil {
			if seedNotFound(err) {
				return nil, fmt.Errorf("%w: party %s", ErrSeedNotFound, rec.ID)
			}
			return nil, err
		}
		if engine.HashSeed(seed) != rec.ServerSeedHash {
			return nil, fmt.Errorf("%w: party %s", ErrSeedMismatch, rec.ID)
		}
		rec.ServerSeed = seed
	}

	now := s.now()
	rec.Revealed = true
	rec.RevealedAt = &now
	if err := s.db.UpdateParty(ctx, rec); err != nil {
		return nil, fmt.Errorf("reveal party: %w", err)
	}
	if rec.ServerSeedHash != "" {
		if err := s.vault.DeleteServerSeed(rec.ID); err != nil {
			s.logger.Printf("seed_cleanup_failed party_id=%s error=%q", rec.ID, err)
		}
	}

	s.logger.Printf("party_revealed party_id=%s solved=%t guesses=%d server_hash=%s",
		rec.ID, rec.Solved, rec.GuessCount, hashSeed(rec.ServerSeed))
	return s.view(rec, &p), nil
}

// Verification compares a stored party against a fresh draw from its seeds.
type Verification struct {
	PartyID        string   `json:"partyId"`
	Match          bool     `json:"match"`
	HashMatch      bool     `json:"hashMatch"`
	ServerSeedHash string   `json:"serverSeedHash"`
	HouseRule      string   `json:"houseRule,omitempty"`
	Stored         []string `json:"stored"`
	Replayed       []string `json:"replayed"`
}

// Verify regenerates a revealed party and compares the members.
func (s *Service) Verify(ctx context.Context, partyID string) (*Verification, error) {
	rec, p, err := s.load(ctx, partyID)
	if err != nil {
		return nil, err
	}
	if !rec.Revealed {
		return nil, fmt.Errorf("%w: %s", ErrNotRevealed, rec.ID)
	}
	if rec.ServerSeed == "" {
		return nil, fmt.Errorf("%w: party %s was not drawn from seeds", ErrSeedNotFound, rec.ID)
	}
	if rec.HouseRule != s.houseRule {
		return nil, fmt.Errorf("%w: party %s recorded %q, loaded %q",
			ErrHouseRuleMismatch, rec.ID, describeRule(rec.HouseRule), describeRule(s.houseRule))
	}

	cat, err := s.Catalog(p.Rules.GameID)
	if err != nil {
		return nil, err
	}
	// The stored draw count is exactly what the replay needs.
	budget := s.opts.MaxDraws
	if rec.Draws > 0 {
		budget = int(rec.Draws)
	}
	seeds := engine.Seeds{Server: rec.ServerSeed, Client: rec.ClientSeed, Nonce: rec.Nonce}
	replayed, err := s.draw(ctx, cat, p.Rules, seeds, budget)
	if err != nil {
		return nil, err
	}
	v := &Verification{
		PartyID:        rec.ID,
		HashMatch:      engine.HashSeed(rec.ServerSeed) == rec.ServerSeedHash,
		ServerSeedHash: rec.ServerSeedHash,
		HouseRule:      rec.HouseRule,
		Stored:         p.Keys(),
		Replayed:       replayed.Keys(),
	}
	v.Match = v.HashMatch && p.SameMembers(replayed)
	s.logger.Printf("party_verified party_id=%s match=%t", rec.ID, v.Match)
	return v, nil
}

// Replay draws the party that cfg and seeds produce without storing it.
func (s *Service) Replay(ctx context.Context, cfg rules.Config, seeds engine.Seeds) (party.Party, error) {
	cat, err := s.Catalog(cfg.GameID)
	if err != nil {
		return party.Party{}, err
	}
	return s.draw(ctx, cat, cfg, seeds, s.opts.MaxDraws)
}

func describeRule(id string) string {
	if id == "" {
		return "none"
	}
	return id
}

// Export writes a party, members included, in the exchange format. Hidden
// parties export their members too, so callers decide who sees the file.
func (s *Service) Export(ctx context.Context, partyID string, w io.Writer) error {
	_, p, err := s.load(ctx, partyID)
	if err != nil {
		return err
	}
	return party.Encode(w, p)
}

// Import stores a party read from the exchange format. Imported parties
// carry no seeds and cannot be verified.
func (s *Service) Import(ctx context.Context, r io.Reader) (*PartyView, error) {
	p, err := party.Decode(r)
	if err != nil {
		return nil, err
	}
	game, err := s.Game(p.Rules.GameID)
	if err != nil {
		return nil, err
	}
	cat, err := s.Catalog(game.ID)
	if err != nil {
		return nil, err
	}
	for i, m := range p.Members {
		e, ok := cat.Lookup(m.DisplayKey())
		if !ok {
			return nil, fmt.Errorf("member %d: %q: %w", i+1, m.DisplayKey(), dex.ErrEntryNotFound)
		}
		p.Members[i] = e
	}
	p.GameID = game.ID

	rec, err := newRecord(p, game, engine.Seeds{}, s.opts.Version, s.now())
	if err != nil {
		return nil, err
	}
	if err := s.db.SaveParty(ctx, rec); err != nil {
		return nil, err
	}
	s.logger.Printf("party_imported party_id=%s game=%d size=%d", rec.ID, rec.GameID, rec.Size)
	return s.view(rec, nil), nil
}

// SortedReasons returns the rejection reasons of a report in name order.
func (r *PoolReport) SortedReasons() []string {
	out := make([]string, 0, len(r.Rejected))
	for k := range r.Rejected {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
