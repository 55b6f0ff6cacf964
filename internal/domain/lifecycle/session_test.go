package lifecycle_test

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rpggio/tallysheet/internal/domain/election"
	"github.com/rpggio/tallysheet/internal/domain/lifecycle"
	"github.com/rpggio/tallysheet/internal/domain/tally"
	"github.com/rpggio/tallysheet/internal/repository/mocks"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type manualScheduler struct {
	mu      sync.Mutex
	delays  []time.Duration
	pending []func()
}

func (s *manualScheduler) AfterFunc(d time.Duration, f func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.delays = append(s.delays, d)
	s.pending = append(s.pending, f)
}

func (s *manualScheduler) fire() {
	s.mu.Lock()
	pending := s.pending
	s.pending = nil
	s.mu.Unlock()
	for _, f := range pending {
		f()
	}
}

type fixture struct {
	versions  *mocks.VersionRepository
	notifier  *mocks.Notifier
	navigator *mocks.Navigator
	activity  *mocks.ActivityRepository
	scheduler *manualScheduler
	session   *lifecycle.Session
}

func newFixture(t *testing.T, meta tally.TallySheet) *fixture {
	t.Helper()
	layout, err := tally.DefaultRegistry().Get(meta.Code)
	require.NoError(t, err)
	el := &election.Election{
		ID: "el-1",
		Parties: []election.Party{
			{Name: "P", Candidates: []election.Candidate{{ID: 1, Name: "One"}, {ID: 2, Name: "Two"}}},
		},
	}

	f := &fixture{
		versions:  &mocks.VersionRepository{},
		notifier:  &mocks.Notifier{},
		navigator: &mocks.Navigator{},
		activity:  &mocks.ActivityRepository{},
		scheduler: &manualScheduler{},
	}
	f.activity.On("Log", mock.Anything, mock.Anything).Return(nil)
	f.session = lifecycle.NewSession("sess-1", meta, tally.NewSheet(layout, el), lifecycle.Deps{
		Versions:  f.versions,
		Submitter: f.versions,
		Notifier:  f.notifier,
		Navigator: f.navigator,
		Scheduler: f.scheduler,
		Activity:  f.activity,
	}, lifecycle.Options{BasePath: "tabulation"})
	return f
}

func postalMeta() tally.TallySheet {
	return tally.TallySheet{ID: "ts-1", Code: tally.CodeCE201PV, ElectionID: "el-1"}
}

func fillPostal(t *testing.T, s *lifecycle.Session) {
	t.Helper()
	require.NoError(t, s.UpdateRow("0", tally.FieldAPacketsFound, "3"))
	require.NoError(t, s.UpdateRow("1", tally.FieldAPacketsFound, "4"))
	require.NoError(t, s.UpdateRow("2", tally.FieldAPacketsFound, "5"))
	require.NoError(t, s.UpdateTotal("12"))
}

func errorNote(msg lifecycle.MessageKey) lifecycle.Notification {
	return lifecycle.Notification{Title: "Error", Message: lifecycle.Message(msg), Severity: lifecycle.SeverityError}
}

func TestSession_LoadWithoutVersionSeeds(t *testing.T) {
	f := newFixture(t, postalMeta())
	ctx := context.Background()

	require.NoError(t, f.session.Load(ctx))
	require.Equal(t, lifecycle.StateEditing, f.session.State())

	view := f.session.View()
	require.Len(t, view.Rows, 6)
	require.False(t, view.Valid)
	f.versions.AssertNotCalled(t, "FetchVersion", mock.Anything, mock.Anything, mock.Anything, mock.Anything)

	require.ErrorIs(t, f.session.Load(ctx), lifecycle.ErrInvalidTransition)
}

func TestSession_LoadHydratesLatestVersion(t *testing.T) {
	meta := postalMeta()
	meta.LatestVersionID = "v1"
	f := newFixture(t, meta)
	ctx := context.Background()

	f.versions.On("FetchVersion", ctx, "ts-1", tally.CodeCE201PV, "v1").Return(&tally.Version{
		ID:      "v1",
		Content: json.RawMessage(`[{"ballotBoxId":"X","numberOfAPacketsFound":4,"numberOfPacketsInserted":4}]`),
		Summary: json.RawMessage(`{"timeOfCommencementOfCount":"2019-11-16T07:30:00+05:30"}`),
	}, nil)

	require.NoError(t, f.session.Load(ctx))
	view := f.session.View()
	require.Equal(t, lifecycle.StateEditing, view.State)
	require.Equal(t, "X", view.Rows[0].Values["ballotBoxId"])
	require.Equal(t, "4", *view.DeclaredTotal)
	require.Equal(t, "2019-11-16T07:30", view.Summary["timeOfCommencementOfCount"])
	require.True(t, view.Valid)
}

func TestSession_LoadFailureLeavesSeededRows(t *testing.T) {
	meta := postalMeta()
	meta.LatestVersionID = "v1"
	f := newFixture(t, meta)
	ctx := context.Background()

	f.versions.On("FetchVersion", ctx, "ts-1", tally.CodeCE201PV, "v1").Return(nil, errors.New("connection refused")).Once()
	f.notifier.On("Notify", ctx, errorNote(lifecycle.MsgNotReachable)).Once()

	err := f.session.Load(ctx)
	require.ErrorIs(t, err, lifecycle.ErrNotReachable)
	require.Equal(t, lifecycle.StateFailed, f.session.State())
	require.Len(t, f.session.View().Rows, 6)

	require.NoError(t, f.session.UpdateRow("0", tally.FieldBallotBoxID, "B1"))

	f.versions.On("FetchVersion", ctx, "ts-1", tally.CodeCE201PV, "v1").Return(&tally.Version{ID: "v1", Content: json.RawMessage(`[]`)}, nil).Once()
	require.NoError(t, f.session.Reload(ctx))
	require.Equal(t, lifecycle.StateEditing, f.session.State())
	require.ErrorIs(t, f.session.Reload(ctx), lifecycle.ErrInvalidTransition)
	f.notifier.AssertExpectations(t)
}

func TestSession_SaveRejectsInvalidInput(t *testing.T) {
	f := newFixture(t, postalMeta())
	ctx := context.Background()
	require.NoError(t, f.session.Load(ctx))

	f.notifier.On("Notify", ctx, errorNote(lifecycle.MsgInputInvalid)).Once()

	_, err := f.session.Save(ctx)
	require.ErrorIs(t, err, lifecycle.ErrInputInvalid)
	require.Equal(t, lifecycle.StateEditing, f.session.State())
	f.versions.AssertNotCalled(t, "SaveVersion", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	f.notifier.AssertExpectations(t)
}

func TestSession_SaveSubmitAndNavigate(t *testing.T) {
	f := newFixture(t, postalMeta())
	ctx := context.Background()
	require.NoError(t, f.session.Load(ctx))
	fillPostal(t, f.session)

	f.versions.On("SaveVersion", ctx, "ts-1", tally.CodeCE201PV, mock.AnythingOfType("tally.Payload")).
		Return(&tally.Version{ID: "v7", TallySheetID: "ts-1"}, nil)
	f.versions.On("SubmitSheet", ctx, "ts-1", "v7").
		Return(&tally.Submission{TallySheetID: "ts-1", VersionID: "v7", ElectionID: "el-9"}, nil)
	f.notifier.On("Notify", ctx, lifecycle.Notification{
		Title:    "Success",
		Message:  lifecycle.Message(lifecycle.MsgSubmitSuccess),
		Severity: lifecycle.SeveritySuccess,
	}).Once()
	want := lifecycle.Target{
		ElectionID:     "el-1",
		TallySheetCode: tally.CodeCE201PV,
		SubElectionID:  "el-9",
		Path:           "/tabulation/election/el-1/data-entry/CE-201-PV?subElectionId=el-9",
	}
	f.navigator.On("NavigateTo", want).Once()

	v, err := f.session.Save(ctx)
	require.NoError(t, err)
	require.Equal(t, "v7", v.ID)
	require.Equal(t, lifecycle.StateSavedUnsubmitted, f.session.State())
	require.ErrorIs(t, f.session.UpdateTotal("1"), lifecycle.ErrInvalidTransition)

	sub, err := f.session.Submit(ctx)
	require.NoError(t, err)
	require.Equal(t, "el-9", sub.ElectionID)
	require.Equal(t, lifecycle.StateSubmitted, f.session.State())

	f.navigator.AssertNotCalled(t, "NavigateTo", mock.Anything)
	require.Equal(t, []time.Duration{time.Second}, f.scheduler.delays)
	f.scheduler.fire()
	f.navigator.AssertExpectations(t)
	f.notifier.AssertExpectations(t)

	_, err = f.session.Submit(ctx)
	require.ErrorIs(t, err, lifecycle.ErrInvalidTransition)
	require.ErrorIs(t, f.session.Edit(), lifecycle.ErrInvalidTransition)
	f.versions.AssertNumberOfCalls(t, "SubmitSheet", 1)
}

func TestSession_SubmitRequiresSave(t *testing.T) {
	f := newFixture(t, postalMeta())
	ctx := context.Background()
	require.NoError(t, f.session.Load(ctx))
	fillPostal(t, f.session)

	_, err := f.session.Submit(ctx)
	require.ErrorIs(t, err, lifecycle.ErrNotSaved)
	f.versions.AssertNotCalled(t, "SubmitSheet", mock.Anything, mock.Anything, mock.Anything)
}

func TestSession_SaveFailureKeepsState(t *testing.T) {
	f := newFixture(t, postalMeta())
	ctx := context.Background()
	require.NoError(t, f.session.Load(ctx))
	fillPostal(t, f.session)

	f.versions.On("SaveVersion", ctx, "ts-1", tally.CodeCE201PV, mock.Anything).Return(nil, errors.New("500"))
	f.notifier.On("Notify", ctx, errorNote(lifecycle.MsgSaveFailed)).Once()

	_, err := f.session.Save(ctx)
	require.ErrorIs(t, err, lifecycle.ErrSaveFailed)
	require.Equal(t, lifecycle.StateEditing, f.session.State())
	require.True(t, f.session.View().Valid)
	f.notifier.AssertExpectations(t)
}

func TestSession_SubmitFailureKeepsSavedVersion(t *testing.T) {
	f := newFixture(t, postalMeta())
	ctx := context.Background()
	require.NoError(t, f.session.Load(ctx))
	fillPostal(t, f.session)

	f.versions.On("SaveVersion", ctx, "ts-1", tally.CodeCE201PV, mock.Anything).Return(&tally.Version{ID: "v2"}, nil)
	f.versions.On("SubmitSheet", ctx, "ts-1", "v2").Return(nil, errors.New("timeout")).Once()
	f.notifier.On("Notify", ctx, errorNote(lifecycle.MsgSubmitFailed)).Once()

	_, err := f.session.Save(ctx)
	require.NoError(t, err)
	_, err = f.session.Submit(ctx)
	require.ErrorIs(t, err, lifecycle.ErrSubmitFailed)
	require.Equal(t, lifecycle.StateSavedUnsubmitted, f.session.State())
	require.Equal(t, "v2", f.session.View().VersionID)
	require.Empty(t, f.scheduler.delays)

	f.versions.On("SubmitSheet", ctx, "ts-1", "v2").Return(&tally.Submission{VersionID: "v2", ElectionID: "el-1"}, nil).Once()
	f.notifier.On("Notify", ctx, mock.Anything).Once()
	_, err = f.session.Submit(ctx)
	require.NoError(t, err)
}

func TestSession_EditRestoresSavedVersion(t *testing.T) {
	f := newFixture(t, postalMeta())
	ctx := context.Background()
	require.NoError(t, f.session.Load(ctx))
	fillPostal(t, f.session)

	f.versions.On("SaveVersion", ctx, "ts-1", tally.CodeCE201PV, mock.Anything).Return(&tally.Version{ID: "v3"}, nil)
	_, err := f.session.Save(ctx)
	require.NoError(t, err)

	require.NoError(t, f.session.Edit())
	require.Equal(t, lifecycle.StateEditing, f.session.State())
	view := f.session.View()
	require.Equal(t, "3", view.Rows[0].Values["numberOfAPacketsFound"])
	require.Equal(t, "12", *view.DeclaredTotal)
	require.True(t, view.Valid)

	require.NoError(t, f.session.UpdateRow("0", tally.FieldAPacketsFound, "x"))
	require.ErrorIs(t, f.session.Edit(), lifecycle.ErrInvalidTransition)
}

func TestSession_BusyWhileSaving(t *testing.T) {
	f := newFixture(t, postalMeta())
	ctx := context.Background()
	require.NoError(t, f.session.Load(ctx))
	fillPostal(t, f.session)

	entered := make(chan struct{})
	release := make(chan struct{})
	f.versions.On("SaveVersion", ctx, "ts-1", tally.CodeCE201PV, mock.Anything).
		Run(func(mock.Arguments) {
			close(entered)
			<-release
		}).
		Return(&tally.Version{ID: "v1"}, nil).Once()

	done := make(chan error, 1)
	go func() {
		_, err := f.session.Save(ctx)
		done <- err
	}()
	<-entered

	require.Equal(t, lifecycle.ProcessingSaving, f.session.Processing())
	_, err := f.session.Save(ctx)
	require.ErrorIs(t, err, lifecycle.ErrBusy)
	require.ErrorIs(t, f.session.UpdateTotal("1"), lifecycle.ErrBusy)
	_, err = f.session.Submit(ctx)
	require.ErrorIs(t, err, lifecycle.ErrBusy)

	close(release)
	require.NoError(t, <-done)
	require.Equal(t, lifecycle.ProcessingNone, f.session.Processing())
	f.versions.AssertNumberOfCalls(t, "SaveVersion", 1)
}

func TestSession_LoadBusyWhileSaving(t *testing.T) {
	f := newFixture(t, postalMeta())
	ctx := context.Background()
	fillPostal(t, f.session)

	entered := make(chan struct{})
	release := make(chan struct{})
	f.versions.On("SaveVersion", ctx, "ts-1", tally.CodeCE201PV, mock.Anything).
		Run(func(mock.Arguments) {
			close(entered)
			<-release
		}).
		Return(&tally.Version{ID: "v1"}, nil).Once()

	done := make(chan error, 1)
	go func() {
		_, err := f.session.Save(ctx)
		done <- err
	}()
	<-entered

	require.ErrorIs(t, f.session.Load(ctx), lifecycle.ErrBusy)
	require.Equal(t, lifecycle.ProcessingSaving, f.session.Processing())
	require.Equal(t, "3", f.session.View().Rows[0].Values["numberOfAPacketsFound"])

	close(release)
	require.NoError(t, <-done)
	require.Equal(t, lifecycle.StateSavedUnsubmitted, f.session.State())
	f.versions.AssertNotCalled(t, "FetchVersion", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestSession_BusyWhileSubmitting(t *testing.T) {
	f := newFixture(t, postalMeta())
	ctx := context.Background()
	require.NoError(t, f.session.Load(ctx))
	fillPostal(t, f.session)

	f.versions.On("SaveVersion", ctx, "ts-1", tally.CodeCE201PV, mock.Anything).Return(&tally.Version{ID: "v1"}, nil).Once()
	_, err := f.session.Save(ctx)
	require.NoError(t, err)

	entered := make(chan struct{})
	release := make(chan struct{})
	f.versions.On("SubmitSheet", ctx, "ts-1", "v1").
		Run(func(mock.Arguments) {
			close(entered)
			<-release
		}).
		Return(&tally.Submission{TallySheetID: "ts-1", VersionID: "v1", ElectionID: "el-1"}, nil).Once()
	f.notifier.On("Notify", ctx, mock.Anything).Once()

	done := make(chan error, 1)
	go func() {
		_, err := f.session.Submit(ctx)
		done <- err
	}()
	<-entered

	require.Equal(t, lifecycle.ProcessingSubmitting, f.session.Processing())
	require.Equal(t, lifecycle.StateSubmitting, f.session.State())
	_, err = f.session.Submit(ctx)
	require.ErrorIs(t, err, lifecycle.ErrBusy)
	_, err = f.session.Save(ctx)
	require.ErrorIs(t, err, lifecycle.ErrBusy)
	require.ErrorIs(t, f.session.Edit(), lifecycle.ErrBusy)
	require.ErrorIs(t, f.session.UpdateRow("0", tally.FieldAPacketsFound, "9"), lifecycle.ErrBusy)
	require.ErrorIs(t, f.session.UpdateSummary(tally.FieldSituation, "Hall"), lifecycle.ErrBusy)
	require.ErrorIs(t, f.session.UpdateTotal("9"), lifecycle.ErrBusy)
	require.ErrorIs(t, f.session.Reload(ctx), lifecycle.ErrBusy)
	require.ErrorIs(t, f.session.Load(ctx), lifecycle.ErrBusy)

	close(release)
	require.NoError(t, <-done)
	require.Equal(t, lifecycle.StateSubmitted, f.session.State())
	require.Equal(t, lifecycle.ProcessingNone, f.session.Processing())
	f.versions.AssertNumberOfCalls(t, "SubmitSheet", 1)
	f.versions.AssertNumberOfCalls(t, "SaveVersion", 1)
}

func TestSession_EmptyCollaboratorResults(t *testing.T) {
	ctx := context.Background()

	t.Run("load", func(t *testing.T) {
		meta := postalMeta()
		meta.LatestVersionID = "v1"
		f := newFixture(t, meta)
		f.versions.On("FetchVersion", ctx, "ts-1", tally.CodeCE201PV, "v1").Return(nil, nil).Once()
		f.notifier.On("Notify", ctx, errorNote(lifecycle.MsgNotReachable)).Once()

		require.ErrorIs(t, f.session.Load(ctx), lifecycle.ErrNotReachable)
		require.Equal(t, lifecycle.StateFailed, f.session.State())
		f.notifier.AssertExpectations(t)
	})

	t.Run("save", func(t *testing.T) {
		f := newFixture(t, postalMeta())
		require.NoError(t, f.session.Load(ctx))
		fillPostal(t, f.session)
		f.versions.On("SaveVersion", ctx, "ts-1", tally.CodeCE201PV, mock.Anything).Return(nil, nil).Once()
		f.notifier.On("Notify", ctx, errorNote(lifecycle.MsgSaveFailed)).Once()

		_, err := f.session.Save(ctx)
		require.ErrorIs(t, err, lifecycle.ErrSaveFailed)
		require.Equal(t, lifecycle.StateEditing, f.session.State())
		require.Empty(t, f.session.View().VersionID)
		f.notifier.AssertExpectations(t)
	})

	t.Run("submit", func(t *testing.T) {
		f := newFixture(t, postalMeta())
		require.NoError(t, f.session.Load(ctx))
		fillPostal(t, f.session)
		f.versions.On("SaveVersion", ctx, "ts-1", tally.CodeCE201PV, mock.Anything).Return(&tally.Version{ID: "v1"}, nil).Once()
		f.versions.On("SubmitSheet", ctx, "ts-1", "v1").Return(nil, nil).Once()
		f.notifier.On("Notify", ctx, errorNote(lifecycle.MsgSubmitFailed)).Once()

		_, err := f.session.Save(ctx)
		require.NoError(t, err)
		_, err = f.session.Submit(ctx)
		require.ErrorIs(t, err, lifecycle.ErrSubmitFailed)
		require.Equal(t, lifecycle.StateSavedUnsubmitted, f.session.State())
		require.Empty(t, f.scheduler.delays)
		f.notifier.AssertExpectations(t)
	})
}

func TestSession_PreferenceSheet(t *testing.T) {
	f := newFixture(t, tally.TallySheet{ID: "ts-2", Code: tally.CodePRE34CO, ElectionID: "el-1"})
	ctx := context.Background()
	require.NoError(t, f.session.Load(ctx))

	require.NoError(t, f.session.UpdateRow("1", tally.FieldSecondPreferenceCount, "2"))
	require.NoError(t, f.session.UpdateRow("1", tally.FieldThirdPreferenceCount, "3"))
	require.False(t, f.session.View().Valid)
	require.NoError(t, f.session.UpdateRow("1", tally.FieldTotalCount, "5"))

	view := f.session.View()
	require.True(t, view.Valid)
	require.Nil(t, view.DeclaredTotal)
	require.Nil(t, view.Summary)
	require.Equal(t, int64(5), *view.Aggregate)
	require.ErrorIs(t, f.session.UpdateTotal("5"), tally.ErrNoDeclaredTotal)

	f.versions.On("SaveVersion", ctx, "ts-2", tally.CodePRE34CO, mock.MatchedBy(func(p tally.Payload) bool {
		var content []tally.PreferenceRecord
		return json.Unmarshal(p.Content, &content) == nil && len(content) == 4
	})).Return(&tally.Version{ID: "v1"}, nil)

	_, err := f.session.Save(ctx)
	require.NoError(t, err)
}

func TestDataEntryPath(t *testing.T) {
	target := lifecycle.Target{ElectionID: "e 1", TallySheetCode: tally.CodePRE34CO}
	require.Equal(t, "/election/e%201/data-entry/PRE-34-CO", lifecycle.DataEntryPath("", target))
	require.Equal(t, "/tabulation/election/e%201/data-entry/PRE-34-CO", lifecycle.DataEntryPath("/tabulation/", target))
}
