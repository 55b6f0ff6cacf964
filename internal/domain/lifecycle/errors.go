package lifecycle

import "errors"

var (
	// ErrNotReachable indicates the persistence service could not be reached.
	ErrNotReachable = errors.New("tally sheet service not reachable")
	// ErrInputInvalid indicates the sheet failed the save gate.
	ErrInputInvalid = errors.New("tally sheet input invalid")
	// ErrSaveFailed indicates the persistence service rejected a save.
	ErrSaveFailed = errors.New("tally sheet save failed")
	// ErrSubmitFailed indicates the persistence service rejected a submit.
	ErrSubmitFailed = errors.New("tally sheet submit failed")
	// ErrBusy indicates a save or submit is already in flight.
	ErrBusy = errors.New("tally sheet operation in progress")
	// ErrNotSaved indicates a submit was attempted without a saved version.
	ErrNotSaved = errors.New("tally sheet has no saved version")
	// ErrInvalidTransition indicates the operation is not allowed in the current state.
	ErrInvalidTransition = errors.New("invalid lifecycle transition")
)

var (
	errNoVersion    = errors.New("no version returned")
	errNoSubmission = errors.New("no submission returned")
)
