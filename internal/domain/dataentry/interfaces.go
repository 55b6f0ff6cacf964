package dataentry

import (
	"context"

	"github.com/rpggio/tallysheet/internal/domain/election"
	"github.com/rpggio/tallysheet/internal/domain/lifecycle"
	"github.com/rpggio/tallysheet/internal/domain/tally"
)

// TallySheetRepository provides tally sheet metadata.
type TallySheetRepository interface {
	CreateTallySheet(ctx context.Context, sheet *tally.TallySheet) error
	GetTallySheet(ctx context.Context, id string) (*tally.TallySheet, error)
	ListTallySheets(ctx context.Context, electionID string) ([]tally.TallySheet, error)
}

// ElectionRepository provides the election a sheet belongs to.
type ElectionRepository interface {
	Get(ctx context.Context, id string) (*election.Election, error)
}

// VersionRepository persists versions and submissions.
type VersionRepository interface {
	lifecycle.VersionStore
	lifecycle.Submitter
}
