package store

import (
	"context"
	"errors"
	"math"
	"time"
)

// ErrNotFound is returned when a party does not exist.
var ErrNotFound = errors.New("store: not found")

// MaxNonce is the largest nonce the INTEGER nonce column holds.
const MaxNonce uint64 = math.MaxInt64

// DB represents the database interface
type DB interface {
	Close() error
	Migrate() error
	SaveParty(ctx context.Context, p *Party) error
	UpdateParty(ctx context.Context, p *Party) error
	GetParty(ctx context.Context, id string) (*Party, error)
	LatestParty(ctx context.Context, gameID int) (*Party, error)
	ListParties(ctx context.Context, query PartiesQuery) (*PartiesList, error)
	SaveGuess(ctx context.Context, g *Guess) error
	ListGuesses(ctx context.Context, partyID string) ([]Guess, error)
	GetSettings(ctx context.Context) (map[string]string, error)
	PutSettings(ctx context.Context, settings map[string]string) error
}

// PartiesQuery represents query parameters for listing parties.
// A negative GameID lists every game.
type PartiesQuery struct {
	GameID  int `json:"gameId"`
	Page    int `json:"page"`
	PerPage int `json:"perPage"`
}

// PartiesList represents a paginated parties response
type PartiesList struct {
	Parties    []Party `json:"parties"`
	TotalCount int     `json:"totalCount"`
	Page       int     `json:"page"`
	PerPage    int     `json:"perPage"`
	TotalPages int     `json:"totalPages"`
}

// Party is a stored hidden party. Members and rules are kept as JSON.
// ServerSeed stays empty until the party is revealed.
type Party struct {
	ID             string     `json:"id" db:"id"`
	GameID         int        `json:"game_id" db:"game_id"`
	GameName       string     `json:"game_name" db:"game_name"`
	Size           int        `json:"size" db:"size"`
	RulesJSON      string     `json:"rules_json" db:"rules_json"`
	MembersJSON    string     `json:"members_json" db:"members_json"`
	ServerSeedHash string     `json:"server_seed_hash" db:"server_seed_hash"`
	ServerSeed     string     `json:"server_seed,omitempty" db:"server_seed"`
	ClientSeed     string     `json:"client_seed" db:"client_seed"`
	Nonce          uint64     `json:"nonce" db:"nonce"`
	Draws          uint64     `json:"draws" db:"draws"`
	HouseRule      string     `json:"house_rule" db:"house_rule"`
	Solved         bool       `json:"solved" db:"solved"`
	Revealed       bool       `json:"revealed" db:"revealed"`
	GuessCount     int        `json:"guess_count" db:"guess_count"`
	EngineVersion  string     `json:"engine_version" db:"engine_version"`
	CreatedAt      time.Time  `json:"created_at" db:"created_at"`
	RevealedAt     *time.Time `json:"revealed_at,omitempty" db:"revealed_at"`
}

// Guess is one scored guess against a party.
type Guess struct {
	ID          string    `json:"id" db:"id"`
	PartyID     string    `json:"party_id" db:"party_id"`
	Attempt     int       `json:"attempt" db:"attempt"`
	KeysJSON    string    `json:"keys_json" db:"keys_json"`
	ResultsJSON string    `json:"results_json" db:"results_json"`
	Solved      bool      `json:"solved" db:"solved"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
}
