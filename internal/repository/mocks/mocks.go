package mocks

import (
	"context"

	"github.com/rpggio/tallysheet/internal/domain/activity"
	"github.com/rpggio/tallysheet/internal/domain/election"
	"github.com/rpggio/tallysheet/internal/domain/lifecycle"
	"github.com/rpggio/tallysheet/internal/domain/tally"
	"github.com/stretchr/testify/mock"
)

// ElectionRepository is a mock for election.Repository.
type ElectionRepository struct {
	mock.Mock
}

func (m *ElectionRepository) Create(ctx context.Context, el *election.Election) error {
	args := m.Called(ctx, el)
	return args.Error(0)
}

func (m *ElectionRepository) Get(ctx context.Context, id string) (*election.Election, error) {
	args := m.Called(ctx, id)
	if el, ok := args.Get(0).(*election.Election); ok {
		return el, args.Error(1)
	}
	return nil, args.Error(1)
}

// TallySheetRepository is a mock for dataentry.TallySheetRepository.
type TallySheetRepository struct {
	mock.Mock
}

func (m *TallySheetRepository) CreateTallySheet(ctx context.Context, sheet *tally.TallySheet) error {
	args := m.Called(ctx, sheet)
	return args.Error(0)
}

func (m *TallySheetRepository) GetTallySheet(ctx context.Context, id string) (*tally.TallySheet, error) {
	args := m.Called(ctx, id)
	if sheet, ok := args.Get(0).(*tally.TallySheet); ok {
		return sheet, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *TallySheetRepository) ListTallySheets(ctx context.Context, electionID string) ([]tally.TallySheet, error) {
	args := m.Called(ctx, electionID)
	if list, ok := args.Get(0).([]tally.TallySheet); ok {
		return list, args.Error(1)
	}
	return nil, args.Error(1)
}

// VersionRepository is a mock for dataentry.VersionRepository, which
// combines lifecycle.VersionStore and lifecycle.Submitter.
type VersionRepository struct {
	mock.Mock
}

func (m *VersionRepository) FetchVersion(ctx context.Context, tallySheetID string, code tally.Code, versionID string) (*tally.Version, error) {
	args := m.Called(ctx, tallySheetID, code, versionID)
	if v, ok := args.Get(0).(*tally.Version); ok {
		return v, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *VersionRepository) SaveVersion(ctx context.Context, tallySheetID string, code tally.Code, payload tally.Payload) (*tally.Version, error) {
	args := m.Called(ctx, tallySheetID, code, payload)
	if v, ok := args.Get(0).(*tally.Version); ok {
		return v, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *VersionRepository) SubmitSheet(ctx context.Context, tallySheetID, versionID string) (*tally.Submission, error) {
	args := m.Called(ctx, tallySheetID, versionID)
	if sub, ok := args.Get(0).(*tally.Submission); ok {
		return sub, args.Error(1)
	}
	return nil, args.Error(1)
}

// ActivityRepository is a mock for activity.Repository.
type ActivityRepository struct {
	mock.Mock
}

func (m *ActivityRepository) Log(ctx context.Context, entry *activity.Entry) error {
	args := m.Called(ctx, entry)
	return args.Error(0)
}

func (m *ActivityRepository) List(ctx context.Context, opts activity.ListOptions) ([]activity.Entry, error) {
	args := m.Called(ctx, opts)
	if list, ok := args.Get(0).([]activity.Entry); ok {
		return list, args.Error(1)
	}
	return nil, args.Error(1)
}

// Notifier is a mock for lifecycle.Notifier.
type Notifier struct {
	mock.Mock
}

func (m *Notifier) Notify(ctx context.Context, n lifecycle.Notification) {
	m.Called(ctx, n)
}

// Navigator is a mock for lifecycle.Navigator.
type Navigator struct {
	mock.Mock
}

func (m *Navigator) NavigateTo(target lifecycle.Target) {
	m.Called(target)
}
