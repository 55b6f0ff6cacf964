package mcp

import (
	"time"

	"github.com/rpggio/tallysheet/internal/domain/activity"
	"github.com/rpggio/tallysheet/internal/domain/dataentry"
	"github.com/rpggio/tallysheet/internal/domain/election"
	"github.com/rpggio/tallysheet/internal/domain/tally"
)

type CreateElectionParams struct {
	ID       string           `json:"id,omitempty" jsonschema:"election ID, generated when omitted"`
	Name     string           `json:"name" jsonschema:"election display name"`
	ParentID string           `json:"parent_id,omitempty" jsonschema:"parent election ID"`
	Parties  []election.Party `json:"parties,omitempty" jsonschema:"parties with their candidates"`
}

type GetElectionParams struct {
	ID string `json:"id" jsonschema:"election ID"`
}

type CreateTallySheetParams struct {
	ID         string     `json:"id,omitempty" jsonschema:"tally sheet ID, generated when omitted"`
	Code       tally.Code `json:"code" jsonschema:"tally sheet code, e.g. CE-201-PV or PRE-34-CO"`
	ElectionID string     `json:"election_id" jsonschema:"election the sheet belongs to"`
}

type ListTallySheetsParams struct {
	ElectionID string `json:"election_id" jsonschema:"election ID"`
}

type GetLayoutParams struct {
	Code tally.Code `json:"code" jsonschema:"tally sheet code"`
}

type OpenTallySheetParams struct {
	TallySheetID string `json:"tally_sheet_id" jsonschema:"tally sheet to open for data entry"`
}

type SessionParams struct {
	SessionID string `json:"session_id,omitempty" jsonschema:"data entry session ID (omit to use the session from the request header or _meta)"`
}

type UpdateRowParams struct {
	SessionID string      `json:"session_id,omitempty" jsonschema:"data entry session ID"`
	RefID     string      `json:"ref_id" jsonschema:"row reference ID from the session rows"`
	Field     tally.Field `json:"field" jsonschema:"row field name"`
	Value     string      `json:"value" jsonschema:"raw value as typed, numbers included"`
}

type UpdateSummaryParams struct {
	SessionID string      `json:"session_id,omitempty" jsonschema:"data entry session ID"`
	Field     tally.Field `json:"field" jsonschema:"summary field name"`
	Value     string      `json:"value" jsonschema:"raw value as typed"`
}

type UpdateTotalParams struct {
	SessionID string `json:"session_id,omitempty" jsonschema:"data entry session ID"`
	Value     string `json:"value" jsonschema:"declared total as typed"`
}

type ListActivityParams struct {
	TallySheetID string        `json:"tally_sheet_id" jsonschema:"tally sheet ID"`
	SessionID    string        `json:"session_id,omitempty" jsonschema:"only entries of this session"`
	Type         activity.Type `json:"type,omitempty" jsonschema:"only entries of this type"`
	Limit        int           `json:"limit,omitempty" jsonschema:"maximum number of entries"`
	Offset       int           `json:"offset,omitempty" jsonschema:"offset for pagination"`
}

// SessionResponse carries the session view. Lifecycle failures that leave
// the session usable are reported in Error rather than as a call error.
type SessionResponse struct {
	Session *dataentry.SessionView `json:"session"`
	Error   *APIError              `json:"error,omitempty"`
}

type LayoutResponse struct {
	Code   tally.Code   `json:"code"`
	Schema tally.Schema `json:"schema"`
}

type ListLayoutsResponse struct {
	Layouts []LayoutResponse `json:"layouts"`
}

type TallySheetListResponse struct {
	TallySheets []tally.TallySheet `json:"tally_sheets"`
}

type CloseSessionResponse struct {
	SessionID string `json:"session_id"`
	Status    string `json:"status"`
}

type ActivityEntryResponse struct {
	Timestamp time.Time     `json:"timestamp"`
	Type      activity.Type `json:"type"`
	SessionID string        `json:"session_id,omitempty"`
	VersionID string        `json:"version_id,omitempty"`
	Summary   string        `json:"summary"`
	Details   string        `json:"details,omitempty"`
}

type ActivityListResponse struct {
	Entries []ActivityEntryResponse `json:"entries"`
}
