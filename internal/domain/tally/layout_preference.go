package tally

import (
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/rpggio/tallysheet/internal/domain/election"
	"github.com/rpggio/tallysheet/internal/numeric"
)

// Preference-count field names.
const (
	FieldSecondPreferenceCount Field = "secondPreferenceCount"
	FieldThirdPreferenceCount  Field = "thirdPreferenceCount"
	FieldTotalCount            Field = "totalCount"
)

const rowTotalWrongMessage = "Total is incorrect"

var preferenceSchema = Schema{
	RowFields: []FieldSpec{
		{Name: FieldSecondPreferenceCount, Kind: KindCount, Label: "Second preferences"},
		{Name: FieldThirdPreferenceCount, Kind: KindCount, Label: "Third preferences"},
		{Name: FieldTotalCount, Kind: KindCount, Label: "Total"},
	},
	AggregateField: FieldTotalCount,
}

// PreferenceRecord is one content entry of a preference-count version. Each
// candidate contributes one record per counted preference.
type PreferenceRecord struct {
	CandidateID      int64         `json:"candidateId"`
	PreferenceNumber int           `json:"preferenceNumber"`
	PreferenceCount  numeric.Value `json:"preferenceCount"`
}

var preferenceFields = map[int]Field{
	2: FieldSecondPreferenceCount,
	3: FieldThirdPreferenceCount,
}

// PreferenceLayout checks that each candidate's total equals the sum of the
// second and third preferences entered for them.
type PreferenceLayout struct{}

// Code returns CodePRE34CO.
func (PreferenceLayout) Code() Code { return CodePRE34CO }

// Schema describes one row per candidate with no summary or declared total.
func (PreferenceLayout) Schema() Schema { return preferenceSchema }

// Seed returns one empty row per candidate, in party order.
func (PreferenceLayout) Seed(el *election.Election) Contents {
	candidates := el.Candidates()
	rows := make([]Row, 0, len(candidates))
	for _, c := range candidates {
		rows = append(rows, NewRow(candidateRef(c.ID), preferenceSchema.RowFields, nil))
	}
	return Contents{Rows: rows}
}

// Hydrate folds the per-preference records back into candidate rows. Each
// row's total is the sum of its restored preferences.
func (l PreferenceLayout) Hydrate(el *election.Election, v *Version, _ TimestampFormat) (Contents, error) {
	var content []PreferenceRecord
	if len(v.Content) > 0 {
		if err := json.Unmarshal(v.Content, &content); err != nil {
			return Contents{}, fmt.Errorf("decode preference counts: %w", err)
		}
	}

	seeded := l.Seed(el)
	rows := NewRowSet()
	for _, row := range seeded.Rows {
		rows.Put(row)
	}

	touched := make(map[string]bool)
	for _, rec := range content {
		field, ok := preferenceFields[rec.PreferenceNumber]
		if !ok {
			return Contents{}, fmt.Errorf("candidate %d: unsupported preference number %d", rec.CandidateID, rec.PreferenceNumber)
		}
		ref := candidateRef(rec.CandidateID)
		row, ok := rows.Get(ref)
		if !ok {
			row = NewRow(ref, preferenceSchema.RowFields, nil)
		}
		if !touched[ref] {
			row.Record = row.WithCount(FieldTotalCount, numeric.Of(0))
			touched[ref] = true
		}
		count := numeric.OrZero(rec.PreferenceCount)
		row.Record = row.WithCount(field, count)
		total := row.Count(FieldTotalCount)
		if sum, ok := numeric.Sum(total, count); ok {
			row.Record = row.WithCount(FieldTotalCount, numeric.Of(sum))
		} else {
			row.Record = row.WithCount(FieldTotalCount, numeric.Value{})
		}
		rows.Put(row)
	}
	return Contents{Rows: rows.All()}, nil
}

// Reconciles reports whether every row's total equals its second plus third
// preferences.
func (PreferenceLayout) Reconciles(s *Sheet) bool {
	for _, row := range s.Rows() {
		if !rowTotalHolds(row) {
			return false
		}
	}
	return true
}

// Mismatches flags the total of each fully numeric row whose sum is off.
func (PreferenceLayout) Mismatches(s *Sheet) []FieldIssue {
	var issues []FieldIssue
	for _, row := range s.Rows() {
		if !row.Count(FieldTotalCount).IsNumeric() {
			continue
		}
		if _, ok := row.Total(FieldSecondPreferenceCount, FieldThirdPreferenceCount); !ok {
			continue
		}
		if !rowTotalHolds(row) {
			issues = append(issues, FieldIssue{
				RowID:   row.RefID,
				Field:   FieldTotalCount,
				Kind:    IssueRowTotalWrong,
				Message: rowTotalWrongMessage,
			})
		}
	}
	return issues
}

// Encode emits two records per candidate, for preferences 2 and 3.
func (PreferenceLayout) Encode(s *Sheet, _ TimestampFormat) (Payload, error) {
	rows := s.Rows()
	content := make([]PreferenceRecord, 0, 2*len(rows))
	for _, row := range rows {
		id, err := strconv.ParseInt(row.RefID, 10, 64)
		if err != nil {
			return Payload{}, fmt.Errorf("candidate ref %q: %w", row.RefID, err)
		}
		content = append(content,
			PreferenceRecord{CandidateID: id, PreferenceNumber: 2, PreferenceCount: row.Count(FieldSecondPreferenceCount)},
			PreferenceRecord{CandidateID: id, PreferenceNumber: 3, PreferenceCount: row.Count(FieldThirdPreferenceCount)},
		)
	}
	contentJSON, err := json.Marshal(content)
	if err != nil {
		return Payload{}, fmt.Errorf("encode preference counts: %w", err)
	}
	return Payload{Content: contentJSON}, nil
}

func rowTotalHolds(row Row) bool {
	sum, ok := row.Total(FieldSecondPreferenceCount, FieldThirdPreferenceCount)
	return ok && row.Count(FieldTotalCount).Equal(sum)
}

func candidateRef(id int64) string {
	return strconv.FormatInt(id, 10)
}
