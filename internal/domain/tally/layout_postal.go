package tally

import (
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/rpggio/tallysheet/internal/domain/election"
	"github.com/rpggio/tallysheet/internal/numeric"
)

// Postal-vote field names.
const (
	FieldBallotBoxID               Field = "ballotBoxId"
	FieldPacketsInserted           Field = "numberOfPacketsInserted"
	FieldAPacketsFound             Field = "numberOfAPacketsFound"
	FieldACoversRejected           Field = "numberOfACoversRejected"
	FieldBCoversRejected           Field = "numberOfBCoversRejected"
	FieldValidBallotPapers         Field = "numberOfValidBallotPapers"
	FieldSituation                 Field = "situation"
	FieldTimeOfCommencementOfCount Field = "timeOfCommencementOfCount"
	FieldTotalPVPackets            Field = "totalNumberOfPVPackets"
)

// PostalVoteMinRows is the number of ballot-box slots a postal-vote sheet
// always shows.
const PostalVoteMinRows = 6

const totalMismatchMessage = "Total count mismatch"

var postalSchema = Schema{
	RowFields: []FieldSpec{
		{Name: FieldBallotBoxID, Kind: KindText, Label: "Ballot Box ID"},
		{Name: FieldPacketsInserted, Kind: KindCount, Label: "No of PV packets inserted"},
		{Name: FieldAPacketsFound, Kind: KindCount, Label: "No of A packets found"},
	},
	SummaryFields: []FieldSpec{
		{Name: FieldACoversRejected, Kind: KindCount, Label: "No of A covers rejected"},
		{Name: FieldBCoversRejected, Kind: KindCount, Label: "No of B covers rejected"},
		{Name: FieldValidBallotPapers, Kind: KindCount, Label: "No of valid ballot papers"},
		{Name: FieldSituation, Kind: KindText, Label: "Situation"},
		{Name: FieldTimeOfCommencementOfCount, Kind: KindTimestamp, Label: "Time of commencement of count"},
	},
	AggregateField: FieldAPacketsFound,
	DeclaredTotal:  FieldTotalPVPackets,
	MinRows:        PostalVoteMinRows,
}

// BallotBoxRecord is one content entry of a postal-vote version.
type BallotBoxRecord struct {
	BallotBoxID     string        `json:"ballotBoxId"`
	APacketsFound   numeric.Value `json:"numberOfAPacketsFound"`
	PacketsInserted numeric.Value `json:"numberOfPacketsInserted"`
}

// CountingCentreSummary is the summary of a postal-vote version.
type CountingCentreSummary struct {
	ACoversRejected           numeric.Value `json:"numberOfACoversRejected"`
	BCoversRejected           numeric.Value `json:"numberOfBCoversRejected"`
	ValidBallotPapers         numeric.Value `json:"numberOfValidBallotPapers"`
	Situation                 string        `json:"situation"`
	TimeOfCommencementOfCount string        `json:"timeOfCommencementOfCount"`
}

// PostalVoteLayout reconciles the declared number of postal-vote packets
// against the A packets found in each ballot box.
type PostalVoteLayout struct{}

// Code returns CodeCE201PV.
func (PostalVoteLayout) Code() Code { return CodeCE201PV }

// Schema describes the ballot-box rows, the counting-centre summary and the
// declared total of PV packets.
func (PostalVoteLayout) Schema() Schema { return postalSchema }

// Seed returns PostalVoteMinRows empty ballot-box rows and an empty summary.
func (l PostalVoteLayout) Seed(*election.Election) Contents {
	rows := make([]Row, 0, PostalVoteMinRows)
	for i := 0; i < PostalVoteMinRows; i++ {
		rows = append(rows, NewRow(strconv.Itoa(i), postalSchema.RowFields, nil))
	}
	return Contents{
		Rows:    rows,
		Summary: NewRecord(postalSchema.SummaryFields, nil),
	}
}

// Hydrate rebuilds rows from a saved version, padding to PostalVoteMinRows.
// The declared total is restored as the sum of the A packets found.
func (l PostalVoteLayout) Hydrate(_ *election.Election, v *Version, tf TimestampFormat) (Contents, error) {
	var content []BallotBoxRecord
	if len(v.Content) > 0 {
		if err := json.Unmarshal(v.Content, &content); err != nil {
			return Contents{}, fmt.Errorf("decode ballot boxes: %w", err)
		}
	}

	rows := make([]Row, 0, max(len(content), PostalVoteMinRows))
	found := make([]numeric.Value, 0, len(content))
	for i, rec := range content {
		row := NewRow(strconv.Itoa(i), postalSchema.RowFields, map[Field]numeric.Value{
			FieldPacketsInserted: numeric.OrZero(rec.PacketsInserted),
			FieldAPacketsFound:   numeric.OrZero(rec.APacketsFound),
		})
		row.Record = row.WithText(FieldBallotBoxID, rec.BallotBoxID)
		rows = append(rows, row)
		found = append(found, row.Count(FieldAPacketsFound))
	}
	for i := len(content); i < PostalVoteMinRows; i++ {
		rows = append(rows, NewRow(strconv.Itoa(i), postalSchema.RowFields, nil))
	}

	summary := NewRecord(postalSchema.SummaryFields, nil)
	if len(v.Summary) > 0 && string(v.Summary) != "null" {
		var s CountingCentreSummary
		if err := json.Unmarshal(v.Summary, &s); err != nil {
			return Contents{}, fmt.Errorf("decode counting centre summary: %w", err)
		}
		summary = summary.
			WithCount(FieldACoversRejected, numeric.OrZero(s.ACoversRejected)).
			WithCount(FieldBCoversRejected, numeric.OrZero(s.BCoversRejected)).
			WithCount(FieldValidBallotPapers, numeric.OrZero(s.ValidBallotPapers)).
			WithText(FieldSituation, s.Situation).
			WithText(FieldTimeOfCommencementOfCount, tf.Denormalize(s.TimeOfCommencementOfCount))
	}

	var declared numeric.Value
	if total, ok := numeric.Sum(found...); ok {
		declared = numeric.Of(total)
	}
	return Contents{Rows: rows, Summary: summary, Declared: declared}, nil
}

// Reconciles reports whether the declared total equals the aggregate exactly.
func (PostalVoteLayout) Reconciles(s *Sheet) bool {
	total, ok := s.ComputeAggregate()
	return ok && s.DeclaredTotal().Equal(total)
}

// Mismatches flags the declared total when both sides are numeric and differ.
func (l PostalVoteLayout) Mismatches(s *Sheet) []FieldIssue {
	total, ok := s.ComputeAggregate()
	if !ok || !s.DeclaredTotal().IsNumeric() || s.DeclaredTotal().Equal(total) {
		return nil
	}
	return []FieldIssue{{Field: FieldTotalPVPackets, Kind: IssueTotalMismatch, Message: totalMismatchMessage}}
}

// Encode builds the ballot-box content and the summary, normalizing the
// commencement time for the wire.
func (PostalVoteLayout) Encode(s *Sheet, tf TimestampFormat) (Payload, error) {
	rows := s.Rows()
	content := make([]BallotBoxRecord, 0, len(rows))
	for _, row := range rows {
		content = append(content, BallotBoxRecord{
			BallotBoxID:     row.Text(FieldBallotBoxID),
			APacketsFound:   row.Count(FieldAPacketsFound),
			PacketsInserted: row.Count(FieldPacketsInserted),
		})
	}
	sum := s.Summary()
	summary := CountingCentreSummary{
		ACoversRejected:           sum.Count(FieldACoversRejected),
		BCoversRejected:           sum.Count(FieldBCoversRejected),
		ValidBallotPapers:         sum.Count(FieldValidBallotPapers),
		Situation:                 sum.Text(FieldSituation),
		TimeOfCommencementOfCount: tf.Normalize(sum.Text(FieldTimeOfCommencementOfCount)),
	}

	contentJSON, err := json.Marshal(content)
	if err != nil {
		return Payload{}, fmt.Errorf("encode ballot boxes: %w", err)
	}
	summaryJSON, err := json.Marshal(summary)
	if err != nil {
		return Payload{}, fmt.Errorf("encode counting centre summary: %w", err)
	}
	return Payload{Content: contentJSON, Summary: summaryJSON}, nil
}
