package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

// SQLiteDB implements the DB interface using SQLite
type SQLiteDB struct {
	db *sql.DB
}

// NewSQLiteDB opens the database at path. Call Migrate before use.
func NewSQLiteDB(path string) (*SQLiteDB, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(1) // SQLite is not concurrent for writes

	for _, pragma := range []string{"PRAGMA journal_mode=WAL", "PRAGMA foreign_keys=ON", "PRAGMA busy_timeout=5000"} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to apply %q: %w", pragma, err)
		}
	}

	return &SQLiteDB{db: db}, nil
}

// Close closes the database connection
func (s *SQLiteDB) Close() error {
	return s.db.Close()
}

// Migrate creates tables and indexes. It is safe to run repeatedly.
func (s *SQLiteDB) Migrate() error {
	migrations := []string{
		`CREATE TABLE IF NOT EXISTS parties (
			id TEXT PRIMARY KEY,
			game_id INTEGER NOT NULL,
			game_name TEXT NOT NULL DEFAULT '',
			size INTEGER NOT NULL,
			rules_json TEXT NOT NULL,
			members_json TEXT NOT NULL,
			server_seed_hash TEXT NOT NULL,
			server_seed TEXT NOT NULL DEFAULT '',
			client_seed TEXT NOT NULL,
			nonce INTEGER NOT NULL,
			draws INTEGER NOT NULL DEFAULT 0,
			house_rule TEXT NOT NULL DEFAULT '',
			solved INTEGER NOT NULL DEFAULT 0,
			revealed INTEGER NOT NULL DEFAULT 0,
			engine_version TEXT NOT NULL,
			created_at TIMESTAMP NOT NULL,
			revealed_at TIMESTAMP
		)`,
		`CREATE TABLE IF NOT EXISTS guesses (
			id TEXT PRIMARY KEY,
			party_id TEXT NOT NULL,
			attempt INTEGER NOT NULL,
			keys_json TEXT NOT NULL,
			results_json TEXT NOT NULL,
			solved INTEGER NOT NULL DEFAULT 0,
			created_at TIMESTAMP NOT NULL,
			UNIQUE(party_id, attempt),
			FOREIGN KEY (party_id) REFERENCES parties(id) ON DELETE CASCADE
		)`,
		`CREATE TABLE IF NOT EXISTS settings (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL,
			updated_at TIMESTAMP NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_parties_game_created ON parties(game_id, created_at DESC)`,
		`CREATE INDEX IF NOT EXISTS idx_parties_created_at ON parties(created_at DESC)`,
		`CREATE INDEX IF NOT EXISTS idx_guesses_party ON guesses(party_id, attempt)`,
	}

	for _, migration := range migrations {
		if _, err := s.db.Exec(migration); err != nil {
			return fmt.Errorf("migration failed: %w", err)
		}
	}

	// Columns added after the first release.
	alterMigrations := []string{
		`ALTER TABLE parties ADD COLUMN house_rule TEXT NOT NULL DEFAULT ''`,
	}
	for _, migration := range alterMigrations {
		if _, err := s.db.Exec(migration); err != nil && !isDuplicateColumnError(err) {
			return fmt.Errorf("alter migration failed: %w", err)
		}
	}
	return nil
}

func isDuplicateColumnError(err error) bool {
	return strings.Contains(err.Error(), "duplicate column name")
}

const partyColumns = `id, game_id, game_name, size, rules_json, members_json,
	server_seed_hash, server_seed, client_seed, nonce, draws, house_rule, solved, revealed,
	engine_version, created_at, revealed_at,
	(SELECT COUNT(*) FROM guesses g WHERE g.party_id = parties.id)`

// SaveParty inserts a new party, assigning an id and creation time when
// they are unset.
func (s *SQLiteDB) SaveParty(ctx context.Context, p *Party) error {
	if p.Nonce > MaxNonce || p.Draws > MaxNonce {
		return fmt.Errorf("failed to save party: nonce %d or draws %d exceeds %d", p.Nonce, p.Draws, MaxNonce)
	}
	if p.ID == "" {
		p.ID = uuid.New().String()
	}
	if p.CreatedAt.IsZero() {
		p.CreatedAt = time.Now().UTC()
	}

	query := `INSERT INTO parties (
		id, game_id, game_name, size, rules_json, members_json,
		server_seed_hash, server_seed, client_seed, nonce, draws, house_rule, solved, revealed,
		engine_version, created_at, revealed_at
	) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	_, err := s.db.ExecContext(ctx, query,
		p.ID, p.GameID, p.GameName, p.Size, p.RulesJSON, p.MembersJSON,
		p.ServerSeedHash, p.ServerSeed, p.ClientSeed, p.Nonce, p.Draws, p.HouseRule,
		boolToInt(p.Solved), boolToInt(p.Revealed),
		p.EngineVersion, p.CreatedAt, p.RevealedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to save party: %w", err)
	}
	return nil
}

// UpdateParty writes the mutable state of a party: solved, revealed and
// the disclosed server seed.
func (s *SQLiteDB) UpdateParty(ctx context.Context, p *Party) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE parties SET solved = ?, revealed = ?, server_seed = ?, revealed_at = ? WHERE id = ?`,
		boolToInt(p.Solved), boolToInt(p.Revealed), p.ServerSeed, p.RevealedAt, p.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update party: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	return nil
}

// GetParty retrieves a party by ID
func (s *SQLiteDB) GetParty(ctx context.Context, id string) (*Party, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+partyColumns+` FROM parties WHERE id = ?`, id)
	return scanParty(row)
}

// LatestParty returns the most recent party for a game, or for any game
// when gameID is negative.
func (s *SQLiteDB) LatestParty(ctx context.Context, gameID int) (*Party, error) {
	var row *sql.Row
	if gameID < 0 {
		row = s.db.QueryRowContext(ctx, `SELECT `+partyColumns+` FROM parties ORDER BY created_at DESC, rowid DESC LIMIT 1`)
	} else {
		row = s.db.QueryRowContext(ctx, `SELECT `+partyColumns+` FROM parties WHERE game_id = ? ORDER BY created_at DESC, rowid DESC LIMIT 1`, gameID)
	}
	return scanParty(row)
}

// ListParties retrieves parties with pagination and filtering
func (s *SQLiteDB) ListParties(ctx context.Context, query PartiesQuery) (*PartiesList, error) {
	whereClause := ""
	args := []any{}
	if query.GameID >= 0 {
		whereClause = "WHERE game_id = ?"
		args = append(args, query.GameID)
	}

	var totalCount int
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM parties "+whereClause, args...).Scan(&totalCount); err != nil {
		return nil, fmt.Errorf("failed to get total count: %w", err)
	}

	if query.PerPage <= 0 {
		query.PerPage = 50
	}
	if query.Page <= 0 {
		query.Page = 1
	}
	totalPages := (totalCount + query.PerPage - 1) / query.PerPage
	offset := (query.Page - 1) * query.PerPage

	mainQuery := `SELECT ` + partyColumns + ` FROM parties ` + whereClause + `
		ORDER BY created_at DESC, rowid DESC
		LIMIT ? OFFSET ?`
	args = append(args, query.PerPage, offset)

	rows, err := s.db.QueryContext(ctx, mainQuery, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query parties: %w", err)
	}
	defer rows.Close()

	parties := []Party{}
	for rows.Next() {
		p, err := scanParty(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan party: %w", err)
		}
		parties = append(parties, *p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating parties: %w", err)
	}

	return &PartiesList{
		Parties:    parties,
		TotalCount: totalCount,
		Page:       query.Page,
		PerPage:    query.PerPage,
		TotalPages: totalPages,
	}, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanParty(row rowScanner) (*Party, error) {
	var p Party
	var solved, revealed int
	var revealedAt sql.NullTime

	err := row.Scan(
		&p.ID, &p.GameID, &p.GameName, &p.Size, &p.RulesJSON, &p.MembersJSON,
		&p.ServerSeedHash, &p.ServerSeed, &p.ClientSeed, &p.Nonce, &p.Draws, &p.HouseRule,
		&solved, &revealed, &p.EngineVersion, &p.CreatedAt, &revealedAt,
		&p.GuessCount,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	p.Solved = solved == 1
	p.Revealed = revealed == 1
	if revealedAt.Valid {
		t := revealedAt.Time
		p.RevealedAt = &t
	}
	return &p, nil
}

// SaveGuess stores a scored guess as the next attempt for its party.
func (s *SQLiteDB) SaveGuess(ctx context.Context, g *Guess) error {
	if g.ID == "" {
		g.ID = uuid.New().String()
	}
	if g.CreatedAt.IsZero() {
		g.CreatedAt = time.Now().UTC()
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	var exists int
	if err := tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM parties WHERE id = ?`, g.PartyID).Scan(&exists); err != nil {
		return fmt.Errorf("failed to check party: %w", err)
	}
	if exists == 0 {
		return ErrNotFound
	}

	if err := tx.QueryRowContext(ctx,
		`SELECT COALESCE(MAX(attempt), 0) + 1 FROM guesses WHERE party_id = ?`, g.PartyID,
	).Scan(&g.Attempt); err != nil {
		return fmt.Errorf("failed to number guess: %w", err)
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO guesses (id, party_id, attempt, keys_json, results_json, solved, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		g.ID, g.PartyID, g.Attempt, g.KeysJSON, g.ResultsJSON, boolToInt(g.Solved), g.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to save guess: %w", err)
	}

	if g.Solved {
		if _, err := tx.ExecContext(ctx, `UPDATE parties SET solved = 1 WHERE id = ?`, g.PartyID); err != nil {
			return fmt.Errorf("failed to mark party solved: %w", err)
		}
	}
	return tx.Commit()
}

// ListGuesses returns a party's guesses in attempt order.
func (s *SQLiteDB) ListGuesses(ctx context.Context, partyID string) ([]Guess, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, party_id, attempt, keys_json, results_json, solved, created_at
		 FROM guesses WHERE party_id = ? ORDER BY attempt`, partyID)
	if err != nil {
		return nil, fmt.Errorf("failed to query guesses: %w", err)
	}
	defer rows.Close()

	guesses := []Guess{}
	for rows.Next() {
		var g Guess
		var solved int
		if err := rows.Scan(&g.ID, &g.PartyID, &g.Attempt, &g.KeysJSON, &g.ResultsJSON, &solved, &g.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan guess: %w", err)
		}
		g.Solved = solved == 1
		guesses = append(guesses, g)
	}
	return guesses, rows.Err()
}

// GetSettings returns every stored setting.
func (s *SQLiteDB) GetSettings(ctx context.Context) (map[string]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT key, value FROM settings`)
	if err != nil {
		return nil, fmt.Errorf("failed to query settings: %w", err)
	}
	defer rows.Close()

	out := make(map[string]string)
	for rows.Next() {
		var k, v string
		if err := rows.Scan(&k, &v); err != nil {
			return nil, fmt.Errorf("failed to scan setting: %w", err)
		}
		out[k] = v
	}
	return out, rows.Err()
}

// PutSettings upserts the given settings in one transaction.
func (s *SQLiteDB) PutSettings(ctx context.Context, settings map[string]string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO settings (key, value, updated_at) VALUES (?, ?, ?)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	now := time.Now().UTC()
	for k, v := range settings {
		if _, err := stmt.ExecContext(ctx, k, v, now); err != nil {
			return fmt.Errorf("failed to save setting %s: %w", k, err)
		}
	}
	return tx.Commit()
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
