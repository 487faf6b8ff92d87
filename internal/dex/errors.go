package dex

import (
	"errors"
	"fmt"
)

// ErrEntryNotFound is returned by Resolve when no entry matches a name.
var ErrEntryNotFound = errors.New("entry not found")

// DataError describes a dataset record that could not be turned into
// catalog entries. The record is skipped; the rest of the build continues.
type DataError struct {
	Line   int
	Record string
	Field  string
	Reason string
}

func (e *DataError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("dex: record %q (line %d): %s", e.Record, e.Line, e.Reason)
	}
	return fmt.Sprintf("dex: record %q (line %d) field %s: %s", e.Record, e.Line, e.Field, e.Reason)
}
