package tally

import (
	"fmt"
	"maps"

	"github.com/rpggio/tallysheet/internal/numeric"
)

// Record holds the values of a set of fields. Count fields are parsed,
// text and timestamp fields are kept verbatim. Records are values: Update
// returns a copy and never mutates the receiver.
type Record struct {
	counts map[Field]numeric.Value
	text   map[Field]string
}

// NewRecord creates a record for the given fields. Count fields start at 0
// unless a default is supplied; text fields start empty.
func NewRecord(fields []FieldSpec, defaults map[Field]numeric.Value) Record {
	rec := Record{
		counts: make(map[Field]numeric.Value),
		text:   make(map[Field]string),
	}
	for _, f := range fields {
		if f.Kind == KindCount {
			v, ok := defaults[f.Name]
			if !ok {
				v = numeric.Of(0)
			}
			rec.counts[f.Name] = v
			continue
		}
		rec.text[f.Name] = ""
	}
	return rec
}

// Count returns a count field value.
func (r Record) Count(field Field) numeric.Value {
	return r.counts[field]
}

// Text returns a text or timestamp field value.
func (r Record) Text(field Field) string {
	return r.text[field]
}

// Has reports whether the field belongs to the record.
func (r Record) Has(field Field) bool {
	if _, ok := r.counts[field]; ok {
		return true
	}
	_, ok := r.text[field]
	return ok
}

// Update returns a copy of the record with field set from raw input.
func (r Record) Update(field Field, raw string) (Record, error) {
	if _, ok := r.counts[field]; ok {
		next := r.clone()
		next.counts[field] = numeric.Parse(raw)
		return next, nil
	}
	if _, ok := r.text[field]; ok {
		next := r.clone()
		next.text[field] = raw
		return next, nil
	}
	return r, fmt.Errorf("%w: %s", ErrUnknownField, field)
}

// WithCount returns a copy of the record with a count field replaced.
func (r Record) WithCount(field Field, v numeric.Value) Record {
	next := r.clone()
	next.counts[field] = v
	return next
}

// WithText returns a copy of the record with a text field replaced.
func (r Record) WithText(field Field, s string) Record {
	next := r.clone()
	next.text[field] = s
	return next
}

// Total sums the given count fields.
func (r Record) Total(fields ...Field) (int64, bool) {
	values := make([]numeric.Value, 0, len(fields))
	for _, f := range fields {
		values = append(values, r.counts[f])
	}
	return numeric.Sum(values...)
}

// Values flattens the record for display: counts as entered, then text.
func (r Record) Values() map[Field]string {
	out := make(map[Field]string, len(r.counts)+len(r.text))
	for f, v := range r.counts {
		out[f] = v.String()
	}
	for f, s := range r.text {
		out[f] = s
	}
	return out
}

func (r Record) clone() Record {
	return Record{counts: maps.Clone(r.counts), text: maps.Clone(r.text)}
}

// Row is one editable entity on a sheet: a ballot box, or a candidate.
type Row struct {
	RefID string
	Record
}

// NewRow creates a row with zero counts and empty text.
func NewRow(refID string, fields []FieldSpec, defaults map[Field]numeric.Value) Row {
	return Row{RefID: refID, Record: NewRecord(fields, defaults)}
}

// Update returns a copy of the row with field set from raw input.
func (r Row) Update(field Field, raw string) (Row, error) {
	rec, err := r.Record.Update(field, raw)
	if err != nil {
		return r, err
	}
	return Row{RefID: r.RefID, Record: rec}, nil
}
