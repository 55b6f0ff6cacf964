package lifecycle

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/rpggio/tallysheet/internal/domain/activity"
	"github.com/rpggio/tallysheet/internal/domain/tally"
)

// DefaultNavigationDelay is how long after a successful submit the session
// asks the navigator to leave the sheet.
const DefaultNavigationDelay = time.Second

// Deps are the collaborators a session calls.
type Deps struct {
	Versions  VersionStore
	Submitter Submitter
	Notifier  Notifier
	Navigator Navigator
	Scheduler Scheduler
	// Activity is optional.
	Activity ActivityLogger
	Logger   *slog.Logger
}

// Options tune a session.
type Options struct {
	NavigationDelay time.Duration
	BasePath        string
}

// Session drives one tally sheet through editing, save and submit. At most
// one collaborator call is in flight; every mutation attempted meanwhile
// fails with ErrBusy.
type Session struct {
	id   string
	meta tally.TallySheet
	deps Deps
	opts Options

	mu         sync.Mutex
	sheet      *tally.Sheet
	state      State
	processing Processing
	loaded     bool
	saved      *tally.Version
	submission *tally.Submission
}

// NewSession creates a session over sheet. The sheet starts seeded; call
// Load to replay the latest version.
func NewSession(id string, meta tally.TallySheet, sheet *tally.Sheet, deps Deps, opts Options) *Session {
	if deps.Logger == nil {
		deps.Logger = slog.New(slog.DiscardHandler)
	}
	if deps.Scheduler == nil {
		deps.Scheduler = TimeScheduler{}
	}
	if opts.NavigationDelay <= 0 {
		opts.NavigationDelay = DefaultNavigationDelay
	}
	return &Session{
		id:    id,
		meta:  meta,
		deps:  deps,
		opts:  opts,
		sheet: sheet,
		state: StateEditing,
	}
}

// ID returns the session id.
func (s *Session) ID() string {
	return s.id
}

// TallySheet returns the metadata the session was opened with.
func (s *Session) TallySheet() tally.TallySheet {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.meta
}

// State returns the current lifecycle state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Processing returns the label of the in-flight call.
func (s *Session) Processing() Processing {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.processing
}

// Load replays the sheet's latest version. It runs once per session; a
// sheet with no version stays seeded. A sheet whose latest version is
// already submitted opens read-only.
func (s *Session) Load(ctx context.Context) error {
	s.mu.Lock()
	if s.processing != ProcessingNone {
		s.mu.Unlock()
		return ErrBusy
	}
	if s.loaded {
		s.mu.Unlock()
		return fmt.Errorf("%w: session already loaded", ErrInvalidTransition)
	}
	s.loaded = true
	return s.fetchLatest(ctx)
}

// Reload retries a failed load.
func (s *Session) Reload(ctx context.Context) error {
	s.mu.Lock()
	if s.processing != ProcessingNone {
		s.mu.Unlock()
		return ErrBusy
	}
	if s.state != StateFailed {
		state := s.state
		s.mu.Unlock()
		return fmt.Errorf("%w: reload from %s", ErrInvalidTransition, state)
	}
	return s.fetchLatest(ctx)
}

// fetchLatest is entered with s.mu held and releases it.
func (s *Session) fetchLatest(ctx context.Context) error {
	versionID := s.meta.LatestVersionID
	if versionID == "" {
		s.sheet.Reset()
		s.state = StateEditing
		s.mu.Unlock()
		return nil
	}
	s.processing = ProcessingLoading
	s.mu.Unlock()

	v, err := s.deps.Versions.FetchVersion(ctx, s.meta.ID, s.meta.Code, versionID)
	if err == nil && v == nil {
		err = errNoVersion
	}

	s.mu.Lock()
	s.processing = ProcessingNone
	if err == nil {
		err = s.sheet.Hydrate(v)
	}
	if err != nil {
		s.sheet.Reset()
		s.state = StateFailed
		s.mu.Unlock()

		s.deps.Logger.Warn("tally sheet load failed", "session_id", s.id, "tally_sheet_id", s.meta.ID, "version_id", versionID, "error", err)
		s.deps.Notifier.Notify(ctx, errorNotification(MsgNotReachable))
		s.logActivity(ctx, activity.TypeLoadFailed, versionID, err.Error())
		return fmt.Errorf("%w: loading version %s: %w", ErrNotReachable, versionID, err)
	}

	if s.meta.SubmittedVersionID != "" && s.meta.SubmittedVersionID == v.ID {
		s.state = StateSubmitted
		s.saved = v
		s.submission = &tally.Submission{TallySheetID: s.meta.ID, VersionID: v.ID, ElectionID: s.meta.ElectionID}
	} else {
		s.state = StateEditing
	}
	s.mu.Unlock()

	s.deps.Logger.Debug("tally sheet loaded", "session_id", s.id, "tally_sheet_id", s.meta.ID, "version_id", v.ID)
	return nil
}

// UpdateRow sets one field of one row.
func (s *Session) UpdateRow(refID string, field tally.Field, raw string) error {
	return s.edit(func(sheet *tally.Sheet) error {
		return sheet.UpdateRow(refID, field, raw)
	})
}

// UpdateSummary sets one summary field.
func (s *Session) UpdateSummary(field tally.Field, raw string) error {
	return s.edit(func(sheet *tally.Sheet) error {
		return sheet.UpdateSummary(field, raw)
	})
}

// UpdateTotal sets the declared total.
func (s *Session) UpdateTotal(raw string) error {
	return s.edit(func(sheet *tally.Sheet) error {
		return sheet.UpdateTotal(raw)
	})
}

func (s *Session) edit(apply func(*tally.Sheet) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.processing != ProcessingNone {
		return ErrBusy
	}
	if !s.state.Editable() {
		return fmt.Errorf("%w: update in %s", ErrInvalidTransition, s.state)
	}
	return apply(s.sheet)
}

// Save persists the sheet as a new version when it passes the gate.
func (s *Session) Save(ctx context.Context) (*tally.Version, error) {
	s.mu.Lock()
	if s.processing != ProcessingNone {
		s.mu.Unlock()
		return nil, ErrBusy
	}
	if !s.state.Editable() {
		state := s.state
		s.mu.Unlock()
		return nil, fmt.Errorf("%w: save in %s", ErrInvalidTransition, state)
	}
	if !s.sheet.Validate() {
		s.mu.Unlock()
		s.deps.Notifier.Notify(ctx, errorNotification(MsgInputInvalid))
		return nil, ErrInputInvalid
	}
	payload, err := s.sheet.Payload()
	if err != nil {
		s.mu.Unlock()
		return nil, fmt.Errorf("%w: building payload: %w", ErrSaveFailed, err)
	}
	s.processing = ProcessingSaving
	s.mu.Unlock()

	v, err := s.deps.Versions.SaveVersion(ctx, s.meta.ID, s.meta.Code, payload)
	if err == nil && v == nil {
		err = errNoVersion
	}

	s.mu.Lock()
	s.processing = ProcessingNone
	if err != nil {
		s.mu.Unlock()
		s.deps.Logger.Warn("tally sheet save failed", "session_id", s.id, "tally_sheet_id", s.meta.ID, "error", err)
		s.deps.Notifier.Notify(ctx, errorNotification(MsgSaveFailed))
		s.logActivity(ctx, activity.TypeSaveFailed, "", err.Error())
		return nil, fmt.Errorf("%w: %w", ErrSaveFailed, err)
	}
	saved := *v
	if len(saved.Content) == 0 {
		saved.Content, saved.Summary = payload.Content, payload.Summary
	}
	s.saved = &saved
	s.meta.LatestVersionID = v.ID
	s.state = StateSavedUnsubmitted
	s.mu.Unlock()

	s.deps.Logger.Info("tally sheet saved", "session_id", s.id, "tally_sheet_id", s.meta.ID, "version_id", v.ID)
	s.logActivity(ctx, activity.TypeVersionSaved, v.ID, "")
	return v, nil
}

// Edit reopens a saved sheet for editing from its last saved version.
func (s *Session) Edit() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.processing != ProcessingNone {
		return ErrBusy
	}
	if s.state != StateSavedUnsubmitted {
		return fmt.Errorf("%w: edit in %s", ErrInvalidTransition, s.state)
	}
	if err := s.sheet.Hydrate(s.saved); err != nil {
		return fmt.Errorf("re-reading saved version: %w", err)
	}
	s.state = StateEditing
	return nil
}

// Submit submits the saved version. On success the navigator is asked,
// after the navigation delay, to move to the data-entry listing of the
// sub-election the submission reported.
func (s *Session) Submit(ctx context.Context) (*tally.Submission, error) {
	s.mu.Lock()
	if s.processing != ProcessingNone {
		s.mu.Unlock()
		return nil, ErrBusy
	}
	switch {
	case s.state == StateSubmitted:
		s.mu.Unlock()
		return nil, fmt.Errorf("%w: already submitted", ErrInvalidTransition)
	case s.state != StateSavedUnsubmitted || s.saved == nil || s.saved.ID == "":
		s.mu.Unlock()
		return nil, ErrNotSaved
	}
	versionID := s.saved.ID
	s.state = StateSubmitting
	s.processing = ProcessingSubmitting
	s.mu.Unlock()

	sub, err := s.deps.Submitter.SubmitSheet(ctx, s.meta.ID, versionID)
	if err == nil && sub == nil {
		err = errNoSubmission
	}

	s.mu.Lock()
	s.processing = ProcessingNone
	if err != nil {
		s.state = StateSavedUnsubmitted
		s.mu.Unlock()
		s.deps.Logger.Warn("tally sheet submit failed", "session_id", s.id, "tally_sheet_id", s.meta.ID, "version_id", versionID, "error", err)
		s.deps.Notifier.Notify(ctx, errorNotification(MsgSubmitFailed))
		s.logActivity(ctx, activity.TypeSubmitFailed, versionID, err.Error())
		return nil, fmt.Errorf("%w: %w", ErrSubmitFailed, err)
	}
	s.state = StateSubmitted
	s.submission = sub
	s.meta.SubmittedVersionID = sub.VersionID
	target := s.targetFor(sub)
	s.mu.Unlock()

	s.deps.Logger.Info("tally sheet submitted", "session_id", s.id, "tally_sheet_id", s.meta.ID, "version_id", sub.VersionID, "sub_election_id", sub.ElectionID)
	s.deps.Notifier.Notify(ctx, successNotification(MsgSubmitSuccess))
	s.logActivity(ctx, activity.TypeSheetSubmitted, sub.VersionID, "")
	s.deps.Scheduler.AfterFunc(s.opts.NavigationDelay, func() {
		s.deps.Navigator.NavigateTo(target)
	})
	return sub, nil
}

func (s *Session) targetFor(sub *tally.Submission) Target {
	electionID := s.meta.ElectionID
	if el := s.sheet.Election(); el != nil && el.ID != "" {
		electionID = el.ID
	}
	t := Target{
		ElectionID:     electionID,
		TallySheetCode: s.meta.Code,
		SubElectionID:  sub.ElectionID,
	}
	t.Path = DataEntryPath(s.opts.BasePath, t)
	return t
}

// View returns a snapshot of the session for display.
func (s *Session) View() View {
	s.mu.Lock()
	defer s.mu.Unlock()

	rows := s.sheet.Rows()
	view := View{
		SessionID:  s.id,
		TallySheet: s.meta,
		State:      s.state,
		Processing: s.processing,
		Rows:       make([]RowView, 0, len(rows)),
		Valid:      s.sheet.Validate(),
		Issues:     s.sheet.Issues(),
		Submission: s.submission,
	}
	if s.saved != nil {
		view.VersionID = s.saved.ID
	}
	for _, row := range rows {
		view.Rows = append(view.Rows, RowView{RefID: row.RefID, Values: stringValues(row.Values())})
	}
	schema := s.sheet.Layout().Schema()
	if len(schema.SummaryFields) > 0 {
		view.Summary = stringValues(s.sheet.Summary().Values())
	}
	if schema.DeclaredTotal != "" {
		declared := s.sheet.DeclaredTotal().String()
		view.DeclaredTotal = &declared
	}
	if total, ok := s.sheet.ComputeAggregate(); ok {
		view.Aggregate = &total
	}
	return view
}

func (s *Session) logActivity(ctx context.Context, typ activity.Type, versionID, details string) {
	if s.deps.Activity == nil {
		return
	}
	entry := &activity.Entry{
		TallySheetID: s.meta.ID,
		SessionID:    &s.id,
		Type:         typ,
		Summary:      fmt.Sprintf("%s %s", s.meta.Code, typ),
		Details:      details,
	}
	if versionID != "" {
		entry.VersionID = &versionID
	}
	if err := s.deps.Activity.Log(ctx, entry); err != nil {
		s.deps.Logger.Warn("activity log failed", "tally_sheet_id", s.meta.ID, "type", typ, "error", err)
	}
}

func stringValues(in map[tally.Field]string) map[string]string {
	out := make(map[string]string, len(in))
	for k, v := range in {
		out[string(k)] = v
	}
	return out
}
