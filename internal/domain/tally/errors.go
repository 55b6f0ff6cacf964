package tally

import "errors"

var (
	// ErrUnknownLayout indicates no layout is registered for a tally-sheet code.
	ErrUnknownLayout = errors.New("unknown tally sheet layout")
	// ErrUnknownRow indicates the row reference id is not on the sheet.
	ErrUnknownRow = errors.New("unknown row")
	// ErrUnknownField indicates the field is not part of the record.
	ErrUnknownField = errors.New("unknown field")
	// ErrNoDeclaredTotal indicates the layout has no user-entered total.
	ErrNoDeclaredTotal = errors.New("layout has no declared total")
	// ErrMalformedVersion indicates a persisted version could not be decoded.
	ErrMalformedVersion = errors.New("malformed tally sheet version")
)
