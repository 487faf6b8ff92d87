package party

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/MJE43/partydle/internal/rules"
)

const formatVersion = 1

type envelope struct {
	Version int   `json:"version"`
	Party   Party `json:"party"`
}

// Encode writes p as JSON.
func Encode(w io.Writer, p Party) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(envelope{Version: formatVersion, Party: p}); err != nil {
		return fmt.Errorf("encode party: %w", err)
	}
	return nil
}

// Decode reads a party written by Encode and checks it is usable for
// scoring.
func Decode(r io.Reader) (Party, error) {
	var env envelope
	if err := json.NewDecoder(r).Decode(&env); err != nil {
		return Party{}, fmt.Errorf("decode party: %w", err)
	}
	if env.Version != formatVersion {
		return Party{}, fmt.Errorf("decode party: unsupported version %d", env.Version)
	}
	p := env.Party
	if err := p.Rules.Validate(); err != nil {
		return Party{}, fmt.Errorf("decode party: %w", err)
	}
	if n := len(p.Members); n < rules.MinPartySize || n > rules.MaxPartySize {
		return Party{}, fmt.Errorf("decode party: %d members", n)
	}
	return p, nil
}
