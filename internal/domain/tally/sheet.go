package tally

import (
	"fmt"

	"github.com/rpggio/tallysheet/internal/domain/election"
	"github.com/rpggio/tallysheet/internal/numeric"
)

const notNumericMessage = "Only numeric values are valid"

// Sheet is the in-memory state of one tally sheet being edited: the ordered
// rows, the summary record and the declared total. It decides whether the
// state is consistent enough to persist.
type Sheet struct {
	layout   Layout
	election *election.Election
	format   TimestampFormat

	rows     *RowSet
	summary  Record
	declared numeric.Value
}

// SheetOption configures a Sheet.
type SheetOption func(*Sheet)

// WithTimestampFormat overrides the summary timestamp format.
func WithTimestampFormat(f TimestampFormat) SheetOption {
	return func(s *Sheet) { s.format = f }
}

// NewSheet creates a sheet seeded with the layout defaults.
func NewSheet(layout Layout, el *election.Election, opts ...SheetOption) *Sheet {
	s := &Sheet{
		layout:   layout,
		election: el,
		format:   DefaultTimestampFormat(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.Reset()
	return s
}

// Reset discards all edits and reseeds the layout defaults.
func (s *Sheet) Reset() {
	s.apply(s.layout.Seed(s.election))
}

// Hydrate replaces the sheet contents with a persisted version. A nil version
// seeds the defaults. If the version cannot be decoded the sheet is left
// fully seeded and the error is returned.
func (s *Sheet) Hydrate(v *Version) error {
	if v == nil {
		s.Reset()
		return nil
	}
	contents, err := s.layout.Hydrate(s.election, v, s.format)
	if err != nil {
		s.Reset()
		return fmt.Errorf("%w: %v", ErrMalformedVersion, err)
	}
	s.apply(contents)
	return nil
}

func (s *Sheet) apply(c Contents) {
	s.rows = NewRowSet()
	for _, row := range c.Rows {
		s.rows.Put(row)
	}
	s.summary = c.Summary
	s.declared = c.Declared
}

// Layout returns the sheet's layout.
func (s *Sheet) Layout() Layout {
	return s.layout
}

// Election returns the election the sheet was opened under.
func (s *Sheet) Election() *election.Election {
	return s.election
}

// Rows returns the rows in insertion order.
func (s *Sheet) Rows() []Row {
	return s.rows.All()
}

// Row returns one row.
func (s *Sheet) Row(refID string) (Row, bool) {
	return s.rows.Get(refID)
}

// Summary returns the summary record.
func (s *Sheet) Summary() Record {
	return s.summary
}

// DeclaredTotal returns the user-entered total.
func (s *Sheet) DeclaredTotal() numeric.Value {
	return s.declared
}

// UpdateRow sets one field of one row from raw input.
func (s *Sheet) UpdateRow(refID string, field Field, raw string) error {
	row, ok := s.rows.Get(refID)
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownRow, refID)
	}
	next, err := row.Update(field, raw)
	if err != nil {
		return err
	}
	s.rows.Put(next)
	return nil
}

// UpdateSummary sets one summary field from raw input.
func (s *Sheet) UpdateSummary(field Field, raw string) error {
	next, err := s.summary.Update(field, raw)
	if err != nil {
		return err
	}
	s.summary = next
	return nil
}

// UpdateTotal sets the declared total from raw input.
func (s *Sheet) UpdateTotal(raw string) error {
	if s.layout.Schema().DeclaredTotal == "" {
		return ErrNoDeclaredTotal
	}
	s.declared = numeric.Parse(raw)
	return nil
}

// ComputeAggregate sums the layout's aggregate field across all rows. ok is
// false when any contributing value is not numeric.
func (s *Sheet) ComputeAggregate() (int64, bool) {
	field := s.layout.Schema().AggregateField
	values := make([]numeric.Value, 0, s.rows.Len())
	for _, row := range s.rows.All() {
		values = append(values, row.Count(field))
	}
	return numeric.Sum(values...)
}

// Validate is the gate in front of every save. It holds iff every gating row
// field is numeric, every independently entered total and summary count is
// numeric, and the layout's cross-totals hold exactly.
func (s *Sheet) Validate() bool {
	schema := s.layout.Schema()
	for _, row := range s.rows.All() {
		for _, f := range schema.RowFields {
			if f.Kind == KindCount && !row.Count(f.Name).IsNumeric() {
				return false
			}
		}
	}
	if schema.DeclaredTotal != "" && !s.declared.IsNumeric() {
		return false
	}
	for _, f := range schema.SummaryFields {
		if f.Kind == KindCount && !s.summary.Count(f.Name).IsNumeric() {
			return false
		}
	}
	return s.layout.Reconciles(s)
}

// Issues returns the inline flags a form shows next to each field.
func (s *Sheet) Issues() []FieldIssue {
	schema := s.layout.Schema()
	var issues []FieldIssue
	for _, row := range s.rows.All() {
		for _, f := range schema.RowFields {
			if f.Kind == KindCount && !row.Count(f.Name).IsNumeric() {
				issues = append(issues, FieldIssue{RowID: row.RefID, Field: f.Name, Kind: IssueNotNumeric, Message: notNumericMessage})
			}
		}
	}
	if schema.DeclaredTotal != "" && !s.declared.IsNumeric() {
		issues = append(issues, FieldIssue{Field: schema.DeclaredTotal, Kind: IssueNotNumeric, Message: notNumericMessage})
	}
	for _, f := range schema.SummaryFields {
		if f.Kind == KindCount && !s.summary.Count(f.Name).IsNumeric() {
			issues = append(issues, FieldIssue{Field: f.Name, Kind: IssueNotNumeric, Message: notNumericMessage})
		}
	}
	return append(issues, s.layout.Mismatches(s)...)
}

// Payload projects the sheet into the content persisted as a new version.
func (s *Sheet) Payload() (Payload, error) {
	return s.layout.Encode(s, s.format)
}
