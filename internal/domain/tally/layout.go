package tally

import (
	"fmt"
	"sort"

	"github.com/rpggio/tallysheet/internal/domain/election"
	"github.com/rpggio/tallysheet/internal/numeric"
)

// Contents is what a layout produces when seeding or hydrating a sheet.
type Contents struct {
	Rows     []Row
	Summary  Record
	Declared numeric.Value
}

// Layout is the per-code strategy behind a Sheet. Layouts share only this
// contract; each one owns its own reconciliation rule.
type Layout interface {
	Code() Code
	Schema() Schema
	// Seed returns the default contents of a sheet with no prior version.
	Seed(el *election.Election) Contents
	// Hydrate replays a persisted version, padded to the layout minimum.
	Hydrate(el *election.Election, v *Version, tf TimestampFormat) (Contents, error)
	// Reconciles reports whether the layout's cross-totals hold exactly.
	Reconciles(s *Sheet) bool
	// Mismatches returns inline flags for failing cross-totals.
	Mismatches(s *Sheet) []FieldIssue
	// Encode projects the sheet into its persistable payload.
	Encode(s *Sheet, tf TimestampFormat) (Payload, error)
}

// Registry resolves tally-sheet codes to layouts.
type Registry struct {
	layouts map[Code]Layout
}

// NewRegistry creates a registry holding the given layouts.
func NewRegistry(layouts ...Layout) *Registry {
	r := &Registry{layouts: make(map[Code]Layout, len(layouts))}
	for _, l := range layouts {
		r.layouts[l.Code()] = l
	}
	return r
}

// DefaultRegistry holds every layout this package implements.
func DefaultRegistry() *Registry {
	return NewRegistry(PostalVoteLayout{}, PreferenceLayout{})
}

// Get returns the layout for code.
func (r *Registry) Get(code Code) (Layout, error) {
	l, ok := r.layouts[code]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownLayout, code)
	}
	return l, nil
}

// Codes lists registered codes in sorted order.
func (r *Registry) Codes() []Code {
	codes := make([]Code, 0, len(r.layouts))
	for code := range r.layouts {
		codes = append(codes, code)
	}
	sort.Slice(codes, func(i, j int) bool { return codes[i] < codes[j] })
	return codes
}
