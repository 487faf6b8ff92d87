package api

import (
	"github.com/MJE43/partydle/internal/dataset"
	"github.com/MJE43/partydle/internal/dex"
	"github.com/MJE43/partydle/internal/rules"
	"github.com/MJE43/partydle/internal/service"
)

// EngineError represents a structured error response with context
type EngineError struct {
	Type      string                 `json:"type"`
	Message   string                 `json:"message"`
	Context   map[string]interface{} `json:"context,omitempty"`
	RequestID string                 `json:"request_id,omitempty"`
	Timestamp string                 `json:"timestamp,omitempty"`
}

// Error implements the error interface
func (e EngineError) Error() string {
	return e.Message
}

// Error types with proper categorization
const (
	// Input validation errors
	ErrTypeValidation    = "validation_error"
	ErrTypeInvalidConfig = "invalid_config"
	ErrTypeInvalidGuess  = "invalid_guess"

	// Lookup and state errors
	ErrTypeGameNotFound  = "game_not_found"
	ErrTypePartyNotFound = "party_not_found"
	ErrTypePartyConflict = "party_conflict"

	// System errors
	ErrTypeDataError       = "data_error"
	ErrTypeSeedUnavailable = "seed_unavailable"
	ErrTypeTimeout         = "timeout"
	ErrTypeInternal        = "internal_error"
)

// ErrorCategory represents error categories for monitoring
type ErrorCategory string

const (
	CategoryValidation ErrorCategory = "validation"
	CategoryParty      ErrorCategory = "party"
	CategorySystem     ErrorCategory = "system"
	CategoryTimeout    ErrorCategory = "timeout"
)

// GetErrorCategory returns the category for an error type
func GetErrorCategory(errType string) ErrorCategory {
	switch errType {
	case ErrTypeValidation, ErrTypeInvalidConfig, ErrTypeInvalidGuess:
		return CategoryValidation
	case ErrTypeGameNotFound, ErrTypePartyNotFound, ErrTypePartyConflict:
		return CategoryParty
	case ErrTypeTimeout:
		return CategoryTimeout
	default:
		return CategorySystem
	}
}

// VersionInfo contains engine version information
type VersionInfo struct {
	EngineVersion string `json:"engine_version"`
	GitCommit     string `json:"git_commit,omitempty"`
	BuildTime     string `json:"build_time,omitempty"`
}

// GamesResponse lists the games in the loaded dataset.
type GamesResponse struct {
	Games         []dataset.Game `json:"games"`
	EngineVersion string         `json:"engine_version"`
}

// PoolResponse reports the eligible pool for a rule set.
type PoolResponse struct {
	Pool          *service.PoolReport `json:"pool"`
	EngineVersion string              `json:"engine_version"`
}

// EntriesResponse lists catalog entries matching a search.
type EntriesResponse struct {
	Entries       []dex.Entry `json:"entries"`
	Query         string      `json:"query,omitempty"`
	EngineVersion string      `json:"engine_version"`
}

// GenerateRequest asks for a new hidden party. Rules default to the stored
// settings.
type GenerateRequest struct {
	Rules      *rules.Config `json:"rules,omitempty"`
	ClientSeed string        `json:"client_seed,omitempty"`
	Nonce      uint64        `json:"nonce"`
	Force      bool          `json:"force"`
}

// PartyResponse wraps a party view.
type PartyResponse struct {
	Party         *service.PartyView `json:"party"`
	EngineVersion string             `json:"engine_version"`
}

// PartiesResponse is one page of party history.
type PartiesResponse struct {
	Parties       []service.PartyView `json:"parties"`
	TotalCount    int                 `json:"total_count"`
	Page          int                 `json:"page"`
	PerPage       int                 `json:"per_page"`
	EngineVersion string              `json:"engine_version"`
}

// GuessRequest carries one guess: creature names in slot order.
type GuessRequest struct {
	Guess []string `json:"guess"`
}

// GuessResponse is a scored guess.
type GuessResponse struct {
	Result        *service.GuessResult `json:"result"`
	EngineVersion string               `json:"engine_version"`
}

// GuessesResponse is a party's guess history.
type GuessesResponse struct {
	PartyID       string                `json:"party_id"`
	Guesses       []service.GuessRecord `json:"guesses"`
	EngineVersion string                `json:"engine_version"`
}

// VerifyResponse is the outcome of replaying a revealed party.
type VerifyResponse struct {
	Verification  *service.Verification `json:"verification"`
	EngineVersion string                `json:"engine_version"`
}

// SettingsResponse carries the stored rule settings.
type SettingsResponse struct {
	Rules         rules.Config `json:"rules"`
	EngineVersion string       `json:"engine_version"`
}
