package api

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/MJE43/partydle/internal/rules"
	"github.com/MJE43/partydle/internal/store"
)

const (
	maxClientSeedLen = 128
	maxGuessNameLen  = 64
	maxPerPage       = 200
)

// ValidationError names the request field that failed validation.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func invalid(field, format string, args ...any) *ValidationError {
	return &ValidationError{Field: field, Message: fmt.Sprintf(format, args...)}
}

// ValidateGenerateRequest validates a generate request
func ValidateGenerateRequest(req *GenerateRequest) *ValidationError {
	if len(req.ClientSeed) > maxClientSeedLen {
		return invalid("client_seed", "client seed too long (max %d characters)", maxClientSeedLen)
	}
	if req.Nonce > store.MaxNonce {
		return invalid("nonce", "nonce too large (max %d)", store.MaxNonce)
	}
	if req.Rules != nil {
		if err := req.Rules.Validate(); err != nil {
			return invalid("rules", "%v", err)
		}
	}
	return nil
}

// ValidateGuessRequest validates a guess request
func ValidateGuessRequest(req *GuessRequest) *ValidationError {
	if len(req.Guess) == 0 {
		return invalid("guess", "guess is required")
	}
	if len(req.Guess) > rules.MaxPartySize {
		return invalid("guess", "guess has %d names (max %d)", len(req.Guess), rules.MaxPartySize)
	}
	for i, name := range req.Guess {
		name = strings.TrimSpace(name)
		if name == "" {
			return invalid(fmt.Sprintf("guess[%d]", i), "name is empty")
		}
		if len(name) > maxGuessNameLen {
			return invalid(fmt.Sprintf("guess[%d]", i), "name too long (max %d characters)", maxGuessNameLen)
		}
	}
	return nil
}

// parseGameID parses a game id from a path or query value.
func parseGameID(field, raw string) (int, *ValidationError) {
	id, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil || id < 0 {
		return 0, invalid(field, "game must be a non-negative integer, got %q", raw)
	}
	return id, nil
}

// parseIntParam reads an optional positive integer query parameter.
func parseIntParam(q url.Values, name string, def, max int) (int, *ValidationError) {
	raw := q.Get(name)
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		return 0, invalid(name, "must be a positive integer, got %q", raw)
	}
	if max > 0 && n > max {
		n = max
	}
	return n, nil
}

// ruleOverrides collects rule keys from query parameters.
func ruleOverrides(q url.Values) map[string]string {
	out := make(map[string]string)
	for key, vals := range q {
		if key == "limit" || key == "q" || len(vals) == 0 {
			continue
		}
		out[key] = vals[len(vals)-1]
	}
	return out
}
