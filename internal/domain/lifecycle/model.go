package lifecycle

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/rpggio/tallysheet/internal/domain/tally"
)

// State is the lifecycle position of a tally-sheet session.
type State string

const (
	StateEditing          State = "editing"
	StateSavedUnsubmitted State = "saved_unsubmitted"
	StateSubmitting       State = "submitting"
	StateSubmitted        State = "submitted"
	// StateFailed means the latest version could not be loaded. The sheet is
	// still editable from its seeded defaults.
	StateFailed State = "failed"
)

// Editable reports whether field updates are accepted in the state.
func (s State) Editable() bool {
	return s == StateEditing || s == StateFailed
}

// Processing names the in-flight collaborator call, if any.
type Processing string

const (
	ProcessingNone       Processing = ""
	ProcessingLoading    Processing = "Loading"
	ProcessingSaving     Processing = "Saving"
	ProcessingSubmitting Processing = "Submitting"
)

// Severity classifies a notification.
type Severity string

const (
	SeverityError   Severity = "error"
	SeveritySuccess Severity = "success"
)

// Notification is a user-facing message raised by a lifecycle transition.
type Notification struct {
	Title    string   `json:"title"`
	Message  string   `json:"message"`
	Severity Severity `json:"severity"`
}

// Target is where the caller should go after a successful submit.
type Target struct {
	ElectionID     string     `json:"electionId"`
	TallySheetCode tally.Code `json:"tallySheetCode"`
	SubElectionID  string     `json:"subElectionId"`
	Path           string     `json:"path"`
}

// DataEntryPath builds the data-entry listing path for a target under the
// application base path.
func DataEntryPath(basePath string, t Target) string {
	base := strings.Trim(basePath, "/")
	p := fmt.Sprintf("/election/%s/data-entry/%s",
		url.PathEscape(t.ElectionID), url.PathEscape(string(t.TallySheetCode)))
	if base != "" {
		p = "/" + base + p
	}
	if t.SubElectionID != "" {
		p += "?" + url.Values{"subElectionId": {t.SubElectionID}}.Encode()
	}
	return p
}

// View is a read-only snapshot of a session.
type View struct {
	SessionID     string             `json:"sessionId"`
	TallySheet    tally.TallySheet   `json:"tallySheet"`
	State         State              `json:"state"`
	Processing    Processing         `json:"processing,omitempty"`
	VersionID     string             `json:"versionId,omitempty"`
	Rows          []RowView          `json:"rows"`
	Summary       map[string]string  `json:"summary,omitempty"`
	DeclaredTotal *string            `json:"declaredTotal,omitempty"`
	Aggregate     *int64             `json:"aggregate,omitempty"`
	Valid         bool               `json:"valid"`
	Issues        []tally.FieldIssue `json:"issues,omitempty"`
	Submission    *tally.Submission  `json:"submission,omitempty"`
}

// RowView is one row of a View.
type RowView struct {
	RefID  string            `json:"refId"`
	Values map[string]string `json:"values"`
}
