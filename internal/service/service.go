// Package service runs games: it builds catalogs from the dataset, draws
// parties with committed seeds, scores guesses, and reveals and verifies
// finished parties.
package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/MJE43/partydle/internal/dataset"
	"github.com/MJE43/partydle/internal/dex"
	"github.com/MJE43/partydle/internal/engine"
	"github.com/MJE43/partydle/internal/party"
	"github.com/MJE43/partydle/internal/rules"
	"github.com/MJE43/partydle/internal/store"
	"github.com/MJE43/partydle/internal/vault"
)

// SeedVault holds server seeds until a party is revealed.
type SeedVault interface {
	PutServerSeed(partyID, seed string) error
	ServerSeed(partyID string) (string, error)
	DeleteServerSeed(partyID string) error
}

// Options configures a Service.
type Options struct {
	// Defaults are the rules used when no settings are stored.
	Defaults rules.Config
	// MaxDraws bounds generation; zero means party.DefaultMaxDraws.
	MaxDraws int
	// HouseRule is applied on top of the rule toggles.
	HouseRule party.Predicate
	// Version is stored with every party.
	Version string
	Logger  *log.Logger
}

// Service is safe for concurrent use.
type Service struct {
	source *dataset.Source
	db     store.DB
	vault  SeedVault
	opts   Options
	logger *log.Logger

	// houseRule identifies opts.HouseRule in stored parties.
	houseRule string

	mu       sync.Mutex
	catalogs map[int]*dex.Catalog

	newSeeds func() (engine.Seeds, error)
	now      func() time.Time
}

// New creates a service over a loaded dataset.
func New(source *dataset.Source, db store.DB, v SeedVault, opts Options) *Service {
	logger := opts.Logger
	if logger == nil {
		logger = log.New(os.Stdout, "[PARTY] ", log.LstdFlags)
	}
	if opts.Defaults.PartySize == 0 {
		opts.Defaults = rules.Default()
	}
	if opts.Version == "" {
		opts.Version = "dev"
	}
	return &Service{
		source:    source,
		db:        db,
		vault:     v,
		opts:      opts,
		logger:    logger,
		houseRule: houseRuleID(opts.HouseRule),
		catalogs:  make(map[int]*dex.Catalog),
		newSeeds:  engine.NewSeeds,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// houseRuleID returns the predicate's fingerprint, its type name when it has
// none, or "" without a house rule.
func houseRuleID(p party.Predicate) string {
	if p == nil {
		return ""
	}
	if f, ok := p.(interface{ Fingerprint() string }); ok {
		return f.Fingerprint()
	}
	return fmt.Sprintf("%T", p)
}

// Games lists the games in the dataset header.
func (s *Service) Games() []dataset.Game {
	out := make([]dataset.Game, len(s.source.Games))
	copy(out, s.source.Games)
	return out
}

// Game returns one game by id.
func (s *Service) Game(id int) (dataset.Game, error) {
	g, ok := s.source.Game(id)
	if !ok {
		return dataset.Game{}, fmt.Errorf("%w: %d", ErrGameNotFound, id)
	}
	return g, nil
}

// Catalog returns the catalog for a game, building it on first use.
func (s *Service) Catalog(gameID int) (*dex.Catalog, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if cat, ok := s.catalogs[gameID]; ok {
		return cat, nil
	}
	cat, err := s.source.Catalog(gameID)
	if errors.Is(err, dataset.ErrUnknownGame) {
		return nil, fmt.Errorf("%w: %d", ErrGameNotFound, gameID)
	}
	if err != nil {
		return nil, err
	}
	for _, de := range cat.Rejected() {
		s.logger.Printf("catalog_record_rejected game=%d %v", gameID, de)
	}
	s.logger.Printf("catalog_built game=%d entries=%d rejected=%d", gameID, cat.Len(), len(cat.Rejected()))
	s.catalogs[gameID] = cat
	return cat, nil
}

// SearchEntries returns catalog entries whose names resemble q. An empty q
// lists the whole catalog.
func (s *Service) SearchEntries(gameID int, q string, limit int) ([]dex.Entry, error) {
	cat, err := s.Catalog(gameID)
	if err != nil {
		return nil, err
	}
	if q == "" {
		entries := cat.Entries()
		if limit > 0 && len(entries) > limit {
			entries = entries[:limit]
		}
		return entries, nil
	}
	return cat.Suggest(q, limit), nil
}

// Settings returns the stored rule settings. Unreadable or invalid settings
// fall back to the defaults.
func (s *Service) Settings(ctx context.Context) rules.Config {
	pairs, err := s.db.GetSettings(ctx)
	if err != nil {
		s.logger.Printf("settings_load_failed error=%q using=defaults", err)
		return s.opts.Defaults
	}
	cfg, err := rules.FromPairs(s.opts.Defaults, pairs)
	if err == nil {
		err = cfg.Validate()
	}
	if err != nil {
		s.logger.Printf("settings_invalid error=%q using=defaults", err)
		return s.opts.Defaults
	}
	return cfg
}

// SaveSettings validates and stores rule settings.
func (s *Service) SaveSettings(ctx context.Context, cfg rules.Config) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	if _, err := s.Game(cfg.GameID); err != nil {
		return err
	}
	if err := s.db.PutSettings(ctx, cfg.Pairs()); err != nil {
		return fmt.Errorf("save settings: %w", err)
	}
	s.logger.Printf("settings_saved game=%d size=%d", cfg.GameID, cfg.PartySize)
	return nil
}

// PartyView is a stored party as shown to players. Members and the server
// seed are only filled once the party is revealed.
type PartyView struct {
	ID             string       `json:"id"`
	GameID         int          `json:"gameId"`
	GameName       string       `json:"gameName"`
	Size           int          `json:"size"`
	Rules          rules.Config `json:"rules"`
	ServerSeedHash string       `json:"serverSeedHash"`
	ServerSeed     string       `json:"serverSeed,omitempty"`
	ClientSeed     string       `json:"clientSeed"`
	Nonce          uint64       `json:"nonce"`
	Draws          uint64       `json:"draws"`
	HouseRule      string       `json:"houseRule,omitempty"`
	Solved         bool         `json:"solved"`
	Revealed       bool         `json:"revealed"`
	Guesses        int          `json:"guesses"`
	CreatedAt      time.Time    `json:"createdAt"`
	RevealedAt     *time.Time   `json:"revealedAt,omitempty"`
	Members        []dex.Entry  `json:"members,omitempty"`
}

// GenerateRequest selects rules and seeds for a new party.
type GenerateRequest struct {
	// Rules overrides the stored settings when set.
	Rules      *rules.Config
	ClientSeed string
	Nonce      uint64
	// Force replaces an open party for the same game.
	Force bool
}

// Generate draws and stores a new hidden party.
func (s *Service) Generate(ctx context.Context, req GenerateRequest) (*PartyView, error) {
	cfg := s.Settings(ctx)
	if req.Rules != nil {
		cfg = *req.Rules
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if req.Nonce > store.MaxNonce {
		return nil, &rules.ConfigError{Field: "nonce", Reason: fmt.Sprintf("nonce %d exceeds %d", req.Nonce, store.MaxNonce)}
	}
	game, err := s.Game(cfg.GameID)
	if err != nil {
		return nil, err
	}
	cat, err := s.Catalog(cfg.GameID)
	if err != nil {
		return nil, err
	}

	if !req.Force {
		latest, err := s.db.LatestParty(ctx, cfg.GameID)
		switch {
		case err == nil && !latest.Solved && !latest.Revealed:
			return nil, fmt.Errorf("%w (party %s)", ErrUnsolvedParty, latest.ID)
		case err != nil && !errors.Is(err, store.ErrNotFound):
			return nil, fmt.Errorf("check open party: %w", err)
		}
	}

	seeds, err := s.newSeeds()
	if err != nil {
		return nil, err
	}
	if req.ClientSeed != "" {
		seeds.Client = req.ClientSeed
	}
	seeds.Nonce = req.Nonce

	start := time.Now()
	p, err := s.draw(ctx, cat, cfg, seeds, s.opts.MaxDraws)
	if err != nil {
		s.logger.Printf("party_generation_failed game=%d size=%d error=%q", cfg.GameID, cfg.PartySize, err)
		return nil, err
	}

	rec, err := newRecord(p, game, seeds, s.opts.Version, s.now())
	if err != nil {
		return nil, err
	}
	rec.HouseRule = s.houseRule
	if err := s.vault.PutServerSeed(rec.ID, seeds.Server); err != nil {
		return nil, fmt.Errorf("store server seed: %w", err)
	}
	if err := s.db.SaveParty(ctx, rec); err != nil {
		if derr := s.vault.DeleteServerSeed(rec.ID); derr != nil {
			s.logger.Printf("seed_cleanup_failed party_id=%s error=%q", rec.ID, derr)
		}
		return nil, err
	}

	s.logger.Printf("party_generated party_id=%s game=%d size=%d draws=%d server_hash=%s duration=%v",
		rec.ID, rec.GameID, rec.Size, p.Draws, hashSeed(seeds.Server), time.Since(start))
	return s.view(rec, nil), nil
}

func (s *Service) draw(ctx context.Context, cat *dex.Catalog, cfg rules.Config, seeds engine.Seeds, maxDraws int) (party.Party, error) {
	opts := []party.Option{party.WithMaxDraws(maxDraws)}
	if s.opts.HouseRule != nil {
		opts = append(opts, party.WithPredicate(s.opts.HouseRule))
	}
	return party.Generate(ctx, cat, cfg, engine.NewStream(seeds), opts...)
}

func newRecord(p party.Party, game dataset.Game, seeds engine.Seeds, version string, now time.Time) (*store.Party, error) {
	rulesJSON, err := json.Marshal(p.Rules)
	if err != nil {
		return nil, fmt.Errorf("encode rules: %w", err)
	}
	membersJSON, err := json.Marshal(p.Members)
	if err != nil {
		return nil, fmt.Errorf("encode members: %w", err)
	}
	return &store.Party{
		ID:             uuid.New().String(),
		GameID:         p.GameID,
		GameName:       game.Name,
		Size:           p.Size(),
		RulesJSON:      string(rulesJSON),
		MembersJSON:    string(membersJSON),
		ServerSeedHash: engine.HashSeed(seeds.Server),
		ClientSeed:     seeds.Client,
		Nonce:          seeds.Nonce,
		Draws:          p.Draws,
		EngineVersion:  version,
		CreatedAt:      now,
	}, nil
}

// Party returns a stored party.
func (s *Service) Party(ctx context.Context, id string) (*PartyView, error) {
	rec, p, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.view(rec, &p), nil
}

// LatestParty returns the newest party for a game. A stored party that can
// no longer be decoded counts as no party.
func (s *Service) LatestParty(ctx context.Context, gameID int) (*PartyView, error) {
	rec, err := s.db.LatestParty(ctx, gameID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrPartyNotFound
	}
	if err != nil {
		return nil, err
	}
	p, err := decodeParty(rec)
	if err != nil {
		s.logger.Printf("party_unreadable party_id=%s error=%q", rec.ID, err)
		return nil, ErrPartyNotFound
	}
	return s.view(rec, &p), nil
}

func (s *Service) load(ctx context.Context, id string) (*store.Party, party.Party, error) {
	rec, err := s.db.GetParty(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return nil, party.Party{}, fmt.Errorf("%w: %s", ErrPartyNotFound, id)
	}
	if err != nil {
		return nil, party.Party{}, err
	}
	p, err := decodeParty(rec)
	if err != nil {
		return nil, party.Party{}, err
	}
	return rec, p, nil
}

func decodeParty(rec *store.Party) (party.Party, error) {
	var p party.Party
	if err := json.Unmarshal([]byte(rec.RulesJSON), &p.Rules); err != nil {
		return party.Party{}, fmt.Errorf("decode rules of party %s: %w", rec.ID, err)
	}
	if err := json.Unmarshal([]byte(rec.MembersJSON), &p.Members); err != nil {
		return party.Party{}, fmt.Errorf("decode members of party %s: %w", rec.ID, err)
	}
	if len(p.Members) == 0 {
		return party.Party{}, fmt.Errorf("party %s has no members", rec.ID)
	}
	p.GameID = rec.GameID
	p.Draws = rec.Draws
	return p, nil
}

func (s *Service) view(rec *store.Party, p *party.Party) *PartyView {
	v := &PartyView{
		ID:             rec.ID,
		GameID:         rec.GameID,
		GameName:       rec.GameName,
		Size:           rec.Size,
		ServerSeedHash: rec.ServerSeedHash,
		ClientSeed:     rec.ClientSeed,
		Nonce:          rec.Nonce,
		Draws:          rec.Draws,
		HouseRule:      rec.HouseRule,
		Solved:         rec.Solved,
		Revealed:       rec.Revealed,
		Guesses:        rec.GuessCount,
		CreatedAt:      rec.CreatedAt,
		RevealedAt:     rec.RevealedAt,
	}
	if p != nil {
		v.Rules = p.Rules
		if rec.Revealed {
			v.Members = p.Members
			v.ServerSeed = rec.ServerSeed
		}
	} else if err := json.Unmarshal([]byte(rec.RulesJSON), &v.Rules); err != nil {
		s.logger.Printf("party_rules_unreadable party_id=%s error=%q", rec.ID, err)
	}
	return v
}

// hashSeed creates a SHA256 hash of a seed for logging purposes
func hashSeed(seed string) string {
	if seed == "" {
		return "empty"
	}
	hash := sha256.Sum256([]byte(seed))
	return hex.EncodeToString(hash[:])[:16]
}

func seedNotFound(err error) bool {
	return errors.Is(err, vault.ErrNotFound)
}
