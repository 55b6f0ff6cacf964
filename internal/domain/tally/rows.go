package tally

// RowSet maps row reference ids to rows and remembers insertion order.
// Replacing a row keeps its original position.
type RowSet struct {
	order []string
	rows  map[string]Row
}

// NewRowSet creates an empty set.
func NewRowSet() *RowSet {
	return &RowSet{rows: make(map[string]Row)}
}

// Put inserts or replaces a row.
func (s *RowSet) Put(row Row) {
	if _, ok := s.rows[row.RefID]; !ok {
		s.order = append(s.order, row.RefID)
	}
	s.rows[row.RefID] = row
}

// Get returns the row for refID.
func (s *RowSet) Get(refID string) (Row, bool) {
	row, ok := s.rows[refID]
	return row, ok
}

// Len returns the number of rows.
func (s *RowSet) Len() int {
	return len(s.order)
}

// All returns the rows in insertion order.
func (s *RowSet) All() []Row {
	out := make([]Row, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, s.rows[id])
	}
	return out
}
