package dataentry

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rpggio/tallysheet/internal/domain/activity"
	"github.com/rpggio/tallysheet/internal/domain/election"
	"github.com/rpggio/tallysheet/internal/domain/lifecycle"
	"github.com/rpggio/tallysheet/internal/domain/tally"
	"github.com/rpggio/tallysheet/internal/repository"
)

// Config holds session defaults.
type Config struct {
	NavigationDelay time.Duration
	BasePath        string
	Timestamps      tally.TimestampFormat
	// Scheduler defaults to time.AfterFunc.
	Scheduler lifecycle.Scheduler
}

// SessionView is a session snapshot plus what the user has yet to see.
type SessionView struct {
	lifecycle.View
	Notifications []lifecycle.Notification `json:"notifications,omitempty"`
	Navigation    *lifecycle.Target        `json:"navigation,omitempty"`
}

type openSession struct {
	session *lifecycle.Session
	inbox   *Inbox
}

// Service opens, tracks and closes data-entry sessions. Each session owns
// its sheet exclusively; nothing is shared between sessions.
type Service struct {
	sheets    TallySheetRepository
	elections ElectionRepository
	versions  VersionRepository
	activity  lifecycle.ActivityLogger
	registry  *tally.Registry
	cfg       Config
	logger    *slog.Logger

	mu       sync.RWMutex
	sessions map[string]*openSession
}

// NewService creates a new data-entry service. activityLog may be nil.
func NewService(
	sheets TallySheetRepository,
	elections ElectionRepository,
	versions VersionRepository,
	activityLog lifecycle.ActivityLogger,
	registry *tally.Registry,
	cfg Config,
	logger *slog.Logger,
) *Service {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	if registry == nil {
		registry = tally.DefaultRegistry()
	}
	return &Service{
		sheets:    sheets,
		elections: elections,
		versions:  versions,
		activity:  activityLog,
		registry:  registry,
		cfg:       cfg,
		logger:    logger,
		sessions:  make(map[string]*openSession),
	}
}

// CreateTallySheetRequest describes a new tally sheet.
type CreateTallySheetRequest struct {
	ID         string
	Code       tally.Code
	ElectionID string
}

// CreateTallySheet registers a tally sheet under an election.
func (s *Service) CreateTallySheet(ctx context.Context, req CreateTallySheetRequest) (*tally.TallySheet, error) {
	if strings.TrimSpace(req.ElectionID) == "" {
		return nil, fmt.Errorf("%w: election id required", ErrInvalidInput)
	}
	if _, err := s.registry.Get(req.Code); err != nil {
		return nil, err
	}
	if _, err := s.election(ctx, req.ElectionID); err != nil {
		return nil, err
	}
	id := req.ID
	if strings.TrimSpace(id) == "" {
		id = uuid.NewString()
	}
	sheet := &tally.TallySheet{ID: id, Code: req.Code, ElectionID: req.ElectionID}
	if err := s.sheets.CreateTallySheet(ctx, sheet); err != nil {
		return nil, fmt.Errorf("creating tally sheet: %w", err)
	}
	return sheet, nil
}

// ListTallySheets lists the tally sheets of an election.
func (s *Service) ListTallySheets(ctx context.Context, electionID string) ([]tally.TallySheet, error) {
	if strings.TrimSpace(electionID) == "" {
		return nil, fmt.Errorf("%w: election id required", ErrInvalidInput)
	}
	sheets, err := s.sheets.ListTallySheets(ctx, electionID)
	if err != nil {
		return nil, fmt.Errorf("listing tally sheets: %w", err)
	}
	return sheets, nil
}

// Open starts a session on a tally sheet and loads its latest version. A
// load failure does not fail Open: the session opens in the failed state
// with the failure queued as a notification.
func (s *Service) Open(ctx context.Context, tallySheetID string) (*SessionView, error) {
	if strings.TrimSpace(tallySheetID) == "" {
		return nil, fmt.Errorf("%w: tally sheet id required", ErrInvalidInput)
	}
	meta, err := s.sheets.GetTallySheet(ctx, tallySheetID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrTallySheetNotFound
		}
		return nil, fmt.Errorf("%w: loading tally sheet: %w", lifecycle.ErrNotReachable, err)
	}
	layout, err := s.registry.Get(meta.Code)
	if err != nil {
		return nil, err
	}
	el, err := s.election(ctx, meta.ElectionID)
	if err != nil {
		return nil, err
	}

	inbox := &Inbox{}
	sheet := tally.NewSheet(layout, el, tally.WithTimestampFormat(s.cfg.Timestamps))
	sess := lifecycle.NewSession(uuid.NewString(), *meta, sheet, lifecycle.Deps{
		Versions:  s.versions,
		Submitter: s.versions,
		Notifier:  inbox,
		Navigator: inbox,
		Scheduler: s.cfg.Scheduler,
		Activity:  s.activity,
		Logger:    s.logger.With("tally_sheet_id", meta.ID),
	}, lifecycle.Options{
		NavigationDelay: s.cfg.NavigationDelay,
		BasePath:        s.cfg.BasePath,
	})

	open := &openSession{session: sess, inbox: inbox}
	s.mu.Lock()
	s.sessions[sess.ID()] = open
	s.mu.Unlock()

	s.logActivity(ctx, sess, activity.TypeSessionOpened)
	if err := sess.Load(ctx); err != nil {
		s.logger.Warn("session opened without latest version", "session_id", sess.ID(), "error", err)
	}
	s.logger.Info("data entry session opened", "session_id", sess.ID(), "tally_sheet_id", meta.ID, "code", meta.Code)
	return s.view(open), nil
}

// Get returns a session snapshot and drains its notifications.
func (s *Service) Get(sessionID string) (*SessionView, error) {
	open, err := s.lookup(sessionID)
	if err != nil {
		return nil, err
	}
	return s.view(open), nil
}

// UpdateRow sets one field of one row.
func (s *Service) UpdateRow(sessionID, refID string, field tally.Field, raw string) (*SessionView, error) {
	return s.do(sessionID, func(sess *lifecycle.Session) error {
		return sess.UpdateRow(refID, field, raw)
	})
}

// UpdateSummary sets one summary field.
func (s *Service) UpdateSummary(sessionID string, field tally.Field, raw string) (*SessionView, error) {
	return s.do(sessionID, func(sess *lifecycle.Session) error {
		return sess.UpdateSummary(field, raw)
	})
}

// UpdateTotal sets the declared total.
func (s *Service) UpdateTotal(sessionID, raw string) (*SessionView, error) {
	return s.do(sessionID, func(sess *lifecycle.Session) error {
		return sess.UpdateTotal(raw)
	})
}

// Save saves the session's sheet as a new version.
func (s *Service) Save(ctx context.Context, sessionID string) (*SessionView, error) {
	return s.do(sessionID, func(sess *lifecycle.Session) error {
		_, err := sess.Save(ctx)
		return err
	})
}

// Edit reopens a saved sheet for editing.
func (s *Service) Edit(sessionID string) (*SessionView, error) {
	return s.do(sessionID, func(sess *lifecycle.Session) error {
		return sess.Edit()
	})
}

// Submit submits the saved version.
func (s *Service) Submit(ctx context.Context, sessionID string) (*SessionView, error) {
	return s.do(sessionID, func(sess *lifecycle.Session) error {
		_, err := sess.Submit(ctx)
		return err
	})
}

// Reload retries loading a session whose load failed.
func (s *Service) Reload(ctx context.Context, sessionID string) (*SessionView, error) {
	return s.do(sessionID, func(sess *lifecycle.Session) error {
		return sess.Reload(ctx)
	})
}

// Close forgets a session. Unsaved edits are discarded.
func (s *Service) Close(ctx context.Context, sessionID string) error {
	s.mu.Lock()
	open, ok := s.sessions[sessionID]
	delete(s.sessions, sessionID)
	s.mu.Unlock()
	if !ok {
		return ErrSessionNotFound
	}
	s.logActivity(ctx, open.session, activity.TypeSessionClosed)
	s.logger.Info("data entry session closed", "session_id", sessionID)
	return nil
}

// Count returns the number of open sessions.
func (s *Service) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

// do runs op and returns the resulting view. The view is returned alongside
// lifecycle errors so callers still see queued notifications.
func (s *Service) do(sessionID string, op func(*lifecycle.Session) error) (*SessionView, error) {
	open, err := s.lookup(sessionID)
	if err != nil {
		return nil, err
	}
	opErr := op(open.session)
	return s.view(open), opErr
}

func (s *Service) lookup(sessionID string) (*openSession, error) {
	if strings.TrimSpace(sessionID) == "" {
		return nil, fmt.Errorf("%w: session id required", ErrInvalidInput)
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	open, ok := s.sessions[sessionID]
	if !ok {
		return nil, ErrSessionNotFound
	}
	return open, nil
}

func (s *Service) view(open *openSession) *SessionView {
	return &SessionView{
		View:          open.session.View(),
		Notifications: open.inbox.Drain(),
		Navigation:    open.inbox.Navigation(),
	}
}

func (s *Service) election(ctx context.Context, id string) (*election.Election, error) {
	el, err := s.elections.Get(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, election.ErrElectionNotFound
		}
		return nil, fmt.Errorf("loading election: %w", err)
	}
	return el, nil
}

func (s *Service) logActivity(ctx context.Context, sess *lifecycle.Session, typ activity.Type) {
	if s.activity == nil {
		return
	}
	id := sess.ID()
	meta := sess.TallySheet()
	entry := &activity.Entry{
		TallySheetID: meta.ID,
		SessionID:    &id,
		Type:         typ,
		Summary:      fmt.Sprintf("%s %s", meta.Code, typ),
	}
	if err := s.activity.Log(ctx, entry); err != nil {
		s.logger.Warn("activity log failed", "session_id", id, "type", typ, "error", err)
	}
}
