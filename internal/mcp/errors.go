package mcp

import (
	"errors"
	"fmt"

	"github.com/rpggio/tallysheet/internal/domain/activity"
	"github.com/rpggio/tallysheet/internal/domain/dataentry"
	"github.com/rpggio/tallysheet/internal/domain/election"
	"github.com/rpggio/tallysheet/internal/domain/lifecycle"
	"github.com/rpggio/tallysheet/internal/domain/tally"
	"github.com/rpggio/tallysheet/internal/repository"
	"github.com/rpggio/tallysheet/internal/tabulation"
)

// Error codes that have a fixed JSON-RPC counterpart.
const (
	CodeMethodNotFound = "METHOD_NOT_FOUND"
	CodeInvalidParams  = "INVALID_PARAMS"
	CodeInternal       = "INTERNAL"
)

// APIError represents an MCP error response.
type APIError struct {
	Code         string `json:"code"`
	Message      string `json:"message"`
	Details      any    `json:"details,omitempty"`
	RecoveryHint string `json:"recovery_hint,omitempty"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *APIError) CodeValue() string {
	return e.Code
}

func (e *APIError) MessageValue() string {
	return e.Message
}

func (e *APIError) DetailsValue() any {
	return e.Details
}

func (e *APIError) RecoveryHintValue() string {
	return e.RecoveryHint
}

// MapError maps domain errors to MCP error codes. Lifecycle errors are
// checked first since they may wrap a store error.
func MapError(err error) *APIError {
	if err == nil {
		return nil
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr
	}
	switch {
	case errors.Is(err, lifecycle.ErrInputInvalid):
		return &APIError{Code: "INPUT_INVALID", Message: lifecycle.Message(lifecycle.MsgInputInvalid), RecoveryHint: "Fix the fields listed in issues and save again"}
	case errors.Is(err, lifecycle.ErrSaveFailed):
		return &APIError{Code: "SAVE_FAILED", Message: lifecycle.Message(lifecycle.MsgSaveFailed), Details: err.Error(), RecoveryHint: "Retry save"}
	case errors.Is(err, lifecycle.ErrSubmitFailed):
		return &APIError{Code: "SUBMIT_FAILED", Message: lifecycle.Message(lifecycle.MsgSubmitFailed), Details: err.Error(), RecoveryHint: "Retry submit"}
	case errors.Is(err, lifecycle.ErrNotReachable):
		return &APIError{Code: "NOT_REACHABLE", Message: lifecycle.Message(lifecycle.MsgNotReachable), Details: err.Error(), RecoveryHint: "Call reload"}
	case errors.Is(err, lifecycle.ErrBusy):
		return &APIError{Code: "BUSY", Message: "an operation is in progress", RecoveryHint: "Wait and retry"}
	case errors.Is(err, lifecycle.ErrNotSaved):
		return &APIError{Code: "NOT_SAVED", Message: "tally sheet has not been saved", RecoveryHint: "Call save first"}
	case errors.Is(err, lifecycle.ErrInvalidTransition):
		return &APIError{Code: "INVALID_TRANSITION", Message: err.Error(), RecoveryHint: "Check the session state"}
	case errors.Is(err, dataentry.ErrSessionNotFound):
		return &APIError{Code: "SESSION_NOT_FOUND", Message: "session not found", RecoveryHint: "Call open_tally_sheet"}
	case errors.Is(err, dataentry.ErrTallySheetNotFound):
		return &APIError{Code: "TALLY_SHEET_NOT_FOUND", Message: "tally sheet not found", RecoveryHint: "Check ID spelling"}
	case errors.Is(err, election.ErrElectionNotFound):
		return &APIError{Code: "ELECTION_NOT_FOUND", Message: "election not found", RecoveryHint: "Check ID spelling"}
	case errors.Is(err, tally.ErrUnknownLayout):
		return &APIError{Code: "UNKNOWN_LAYOUT", Message: err.Error(), RecoveryHint: "Call list_layouts"}
	case errors.Is(err, tally.ErrUnknownRow):
		return &APIError{Code: "UNKNOWN_ROW", Message: err.Error(), RecoveryHint: "Use a refId from the session rows"}
	case errors.Is(err, tally.ErrUnknownField):
		return &APIError{Code: "UNKNOWN_FIELD", Message: err.Error(), RecoveryHint: "Call get_layout for field names"}
	case errors.Is(err, tally.ErrNoDeclaredTotal):
		return &APIError{Code: "NO_DECLARED_TOTAL", Message: err.Error()}
	case errors.Is(err, tabulation.ErrUnsupported):
		return &APIError{Code: "UNSUPPORTED", Message: err.Error(), RecoveryHint: "Provision it in the tabulation system"}
	case errors.Is(err, repository.ErrAlreadyExists):
		return &APIError{Code: "ALREADY_EXISTS", Message: err.Error()}
	case errors.Is(err, repository.ErrConflict):
		return &APIError{Code: "CONFLICT", Message: err.Error()}
	case errors.Is(err, dataentry.ErrInvalidInput),
		errors.Is(err, election.ErrInvalidInput),
		errors.Is(err, activity.ErrInvalidInput),
		errors.Is(err, repository.ErrInvalidInput):
		return &APIError{Code: CodeInvalidParams, Message: err.Error()}
	default:
		return nil
	}
}

func toAPIError(err error) *APIError {
	if err == nil {
		return nil
	}
	if apiErr := MapError(err); apiErr != nil {
		return apiErr
	}
	return &APIError{Code: CodeInternal, Message: err.Error()}
}
