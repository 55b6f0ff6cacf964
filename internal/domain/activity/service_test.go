package activity_test

import (
	"context"
	"errors"
	"testing"

	"github.com/rpggio/tallysheet/internal/domain/activity"
	"github.com/rpggio/tallysheet/internal/repository/mocks"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestActivityService_LogAndList(t *testing.T) {
	ctx := context.Background()

	repo := &mocks.ActivityRepository{}
	entry := &activity.Entry{
		TallySheetID: "ts-1",
		Type:         activity.TypeVersionSaved,
		Summary:      "saved",
	}

	repo.On("Log", ctx, entry).Return(nil)
	repo.On("List", ctx, activity.ListOptions{TallySheetID: "ts-1", Limit: 50}).Return([]activity.Entry{*entry}, nil)

	svc := activity.NewService(repo, nil)
	require.NoError(t, svc.Log(ctx, entry))
	require.False(t, entry.CreatedAt.IsZero())

	entries, err := svc.Recent(ctx, activity.ListOptions{TallySheetID: "ts-1"})
	require.NoError(t, err)
	require.Len(t, entries, 1)
	repo.AssertExpectations(t)
}

func TestActivityService_InvalidInput(t *testing.T) {
	svc := activity.NewService(&mocks.ActivityRepository{}, nil)

	require.ErrorIs(t, svc.Log(context.Background(), nil), activity.ErrInvalidInput)
	require.ErrorIs(t, svc.Log(context.Background(), &activity.Entry{}), activity.ErrInvalidInput)
	_, err := svc.Recent(context.Background(), activity.ListOptions{})
	require.ErrorIs(t, err, activity.ErrInvalidInput)
}

func TestActivityService_RepositoryError(t *testing.T) {
	repo := &mocks.ActivityRepository{}
	repo.On("Log", mock.Anything, mock.Anything).Return(errors.New("disk full"))

	svc := activity.NewService(repo, nil)
	err := svc.Log(context.Background(), &activity.Entry{TallySheetID: "ts-1", Type: activity.TypeSaveFailed})
	require.ErrorContains(t, err, "disk full")
}
