package activity

import "time"

// Type is the kind of lifecycle event recorded.
type Type string

const (
	TypeSessionOpened  Type = "session_opened"
	TypeSessionClosed  Type = "session_closed"
	TypeLoadFailed     Type = "load_failed"
	TypeVersionSaved   Type = "version_saved"
	TypeSaveFailed     Type = "save_failed"
	TypeSheetSubmitted Type = "sheet_submitted"
	TypeSubmitFailed   Type = "submit_failed"
)

// Entry is one event in a tally sheet's audit trail.
type Entry struct {
	ID           int64     `json:"id"`
	TallySheetID string    `json:"tally_sheet_id"`
	SessionID    *string   `json:"session_id,omitempty"`
	VersionID    *string   `json:"version_id,omitempty"`
	Type         Type      `json:"type"`
	Summary      string    `json:"summary"`
	Details      string    `json:"details,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}
