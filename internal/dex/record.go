package dex

// RawRecord is one dataset row after the delimited text has been split, with
// the per-game blocks already tokenised but not yet applied.
type RawRecord struct {
	Line            int
	ID              int
	Name            string
	Form            string
	PrimaryType     string
	SecondaryType   string
	Region          string
	Generation      int
	EvolutionMethod string
	EvolutionFamily []int
	Legendary       bool
	Mythical        bool
	Baby            bool
	FinalEvolution  bool

	// Games maps a game id to that game's block. A game with no block uses
	// the base fields unchanged.
	Games map[int]GameBlock
	// BlockErrors holds the parse failure of a game's block. The record is
	// rejected only from that game's catalog.
	BlockErrors map[int]*DataError
}

// GameBlock is the per-game override/alt-form/exclusivity declaration.
type GameBlock struct {
	// Available is nil when the block does not mention availability.
	Available *bool
	// Catchable marks the species as obtainable without evolving, which
	// lifts evolution-method restrictions.
	Catchable bool
	// Override replaces base fields; keys use the dataset column names.
	Override map[string]string
	// AltForms are additional entries sharing the base dex number.
	AltForms []map[string]string
	// Exclusive lists the dex numbers of the mutually exclusive group.
	Exclusive []int
}

// Block returns the record's block for gameID and whether one was declared.
func (r RawRecord) Block(gameID int) (GameBlock, bool) {
	b, ok := r.Games[gameID]
	return b, ok
}

// AvailableIn reports whether the record appears in gameID. Records are
// available unless their block says otherwise.
func (r RawRecord) AvailableIn(gameID int) bool {
	b, ok := r.Games[gameID]
	if !ok || b.Available == nil {
		return true
	}
	return *b.Available
}
