package service

import "errors"

var (
	// ErrPartyNotFound is returned when a party id or game has no stored party.
	ErrPartyNotFound = errors.New("party not found")
	// ErrGameNotFound is returned for a game the dataset does not declare.
	ErrGameNotFound = errors.New("game not found")
	// ErrSeedNotFound is returned when a party's server seed is missing from the vault.
	ErrSeedNotFound = errors.New("server seed not found")
	// ErrUnsolvedParty is returned when generating over an open party without force.
	ErrUnsolvedParty = errors.New("an unsolved party already exists for this game")
	// ErrPartyRevealed is returned when guessing against a revealed party.
	ErrPartyRevealed = errors.New("party has been revealed")
	// ErrNotRevealed is returned when verifying a party before its reveal.
	ErrNotRevealed = errors.New("party has not been revealed")
	// ErrSeedMismatch is returned when a vault seed does not hash to the stored commitment.
	ErrSeedMismatch = errors.New("server seed does not match its hash")
	// ErrHouseRuleMismatch is returned when verifying a party drawn under a
	// house rule other than the one loaded.
	ErrHouseRuleMismatch = errors.New("party was drawn under a different house rule")
)
