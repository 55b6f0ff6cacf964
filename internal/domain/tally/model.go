package tally

import (
	"encoding/json"
	"time"
)

// Code identifies a tally-sheet layout.
type Code string

const (
	// CodeCE201PV is the postal-vote packet reconciliation sheet.
	CodeCE201PV Code = "CE-201-PV"
	// CodePRE34CO is the counting-office preference aggregation sheet.
	CodePRE34CO Code = "PRE-34-CO"
)

// TallySheet is the metadata of a tally sheet a data-entry session opens.
type TallySheet struct {
	ID                 string `json:"tallySheetId"`
	Code               Code   `json:"tallySheetCode"`
	ElectionID         string `json:"electionId"`
	LatestVersionID    string `json:"latestVersionId,omitempty"`
	SubmittedVersionID string `json:"submittedVersionId,omitempty"`
}

// Submitted reports whether a version of the sheet has been submitted.
func (t TallySheet) Submitted() bool {
	return t.SubmittedVersionID != ""
}

// Payload is the layout-specific content persisted as a new version.
type Payload struct {
	Content json.RawMessage `json:"content"`
	Summary json.RawMessage `json:"summary,omitempty"`
}

// Version is an immutable snapshot of a tally sheet's content.
type Version struct {
	ID           string          `json:"tallySheetVersionId"`
	TallySheetID string          `json:"tallySheetId"`
	Code         Code            `json:"tallySheetCode"`
	Content      json.RawMessage `json:"content"`
	Summary      json.RawMessage `json:"summary,omitempty"`
	CreatedAt    time.Time       `json:"createdAt"`
}

// Payload returns the persisted content of the version.
func (v *Version) Payload() Payload {
	return Payload{Content: v.Content, Summary: v.Summary}
}

// Submission is the persistence service's answer to a submit.
type Submission struct {
	TallySheetID string `json:"tallySheetId"`
	VersionID    string `json:"submittedVersionId"`
	// ElectionID is the election context the submission belongs to. It can
	// differ from the election the sheet was opened under.
	ElectionID string `json:"electionId"`
}

// Field names a row or summary attribute. Names match the wire payload keys.
type Field string

// FieldKind says how a field's raw input is interpreted.
type FieldKind string

const (
	KindCount     FieldKind = "count"
	KindText      FieldKind = "text"
	KindTimestamp FieldKind = "timestamp"
)

// FieldSpec describes one editable field.
type FieldSpec struct {
	Name  Field     `json:"name"`
	Kind  FieldKind `json:"kind"`
	Label string    `json:"label"`
}

// Schema is the editable shape of a layout.
type Schema struct {
	RowFields     []FieldSpec `json:"rowFields"`
	SummaryFields []FieldSpec `json:"summaryFields,omitempty"`
	// AggregateField is summed over all rows by ComputeAggregate.
	AggregateField Field `json:"aggregateField"`
	// DeclaredTotal names the user-entered total reconciled against the
	// aggregate; empty when the layout has none.
	DeclaredTotal Field `json:"declaredTotal,omitempty"`
	MinRows       int   `json:"minRows"`
}

// IssueKind classifies an inline field problem.
type IssueKind string

const (
	IssueNotNumeric    IssueKind = "not_numeric"
	IssueTotalMismatch IssueKind = "total_mismatch"
	IssueRowTotalWrong IssueKind = "row_total_incorrect"
)

// FieldIssue is an inline error flag for one field. RowID is empty for
// summary fields and the declared total.
type FieldIssue struct {
	RowID   string    `json:"rowId,omitempty"`
	Field   Field     `json:"field"`
	Kind    IssueKind `json:"kind"`
	Message string    `json:"message"`
}
