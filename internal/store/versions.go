package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rpggio/tallysheet/internal/domain/tally"
	"github.com/rpggio/tallysheet/internal/repository"
)

// VersionRepository stores immutable tally sheet versions and submissions.
// It implements lifecycle.VersionStore and lifecycle.Submitter.
type VersionRepository struct {
	db  *DB
	now func() time.Time
}

// NewVersionRepository creates a new VersionRepository
func NewVersionRepository(db *DB) *VersionRepository {
	return &VersionRepository{db: db, now: time.Now}
}

// FetchVersion returns one version of a tally sheet.
func (r *VersionRepository) FetchVersion(ctx context.Context, tallySheetID string, code tally.Code, versionID string) (*tally.Version, error) {
	query := `
		SELECT id, tally_sheet_id, code, content, summary, created_at
		FROM tally_sheet_versions
		WHERE id = ? AND tally_sheet_id = ?
	`
	var v tally.Version
	var storedCode, content, createdAt string
	var summary sql.NullString
	err := r.db.QueryRowContext(ctx, r.db.rebind(query), versionID, tallySheetID).
		Scan(&v.ID, &v.TallySheetID, &storedCode, &content, &summary, &createdAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get version: %w", err)
	}
	if code != "" && tally.Code(storedCode) != code {
		return nil, fmt.Errorf("%w: version %s is %s, not %s", repository.ErrInvalidInput, versionID, storedCode, code)
	}
	v.Code = tally.Code(storedCode)
	v.Content = json.RawMessage(content)
	if summary.Valid {
		v.Summary = json.RawMessage(summary.String)
	}
	if v.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, err
	}
	return &v, nil
}

// SaveVersion stores payload as a new version and makes it the sheet's
// latest. Submitted sheets reject new versions.
func (r *VersionRepository) SaveVersion(ctx context.Context, tallySheetID string, code tally.Code, payload tally.Payload) (*tally.Version, error) {
	if !json.Valid(payload.Content) {
		return nil, fmt.Errorf("%w: content is not valid JSON", repository.ErrInvalidInput)
	}
	if len(payload.Summary) > 0 && !json.Valid(payload.Summary) {
		return nil, fmt.Errorf("%w: summary is not valid JSON", repository.ErrInvalidInput)
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	sheet, err := getTallySheet(ctx, tx, r.db.rebind, tallySheetID)
	if err != nil {
		return nil, err
	}
	if sheet.Code != code {
		return nil, fmt.Errorf("%w: tally sheet %s is %s, not %s", repository.ErrInvalidInput, tallySheetID, sheet.Code, code)
	}
	if sheet.Submitted() {
		return nil, fmt.Errorf("%w: tally sheet %s already submitted", repository.ErrConflict, tallySheetID)
	}

	v := &tally.Version{
		ID:           uuid.NewString(),
		TallySheetID: tallySheetID,
		Code:         code,
		Content:      payload.Content,
		Summary:      payload.Summary,
		CreatedAt:    r.now().UTC(),
	}
	var summary sql.NullString
	if len(payload.Summary) > 0 {
		summary = sql.NullString{String: string(payload.Summary), Valid: true}
	}

	insert := `
		INSERT INTO tally_sheet_versions (id, tally_sheet_id, code, content, summary, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`
	if _, err := tx.ExecContext(ctx, r.db.rebind(insert),
		v.ID, v.TallySheetID, string(v.Code), string(v.Content), summary, formatTime(v.CreatedAt)); err != nil {
		return nil, fmt.Errorf("failed to insert version: %w", err)
	}

	update := `UPDATE tally_sheets SET latest_version_id = ? WHERE id = ?`
	if _, err := tx.ExecContext(ctx, r.db.rebind(update), v.ID, tallySheetID); err != nil {
		return nil, fmt.Errorf("failed to advance latest version: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit version: %w", err)
	}
	return v, nil
}

// SubmitSheet marks versionID as the sheet's submitted version. Only the
// latest version can be submitted.
func (r *VersionRepository) SubmitSheet(ctx context.Context, tallySheetID, versionID string) (*tally.Submission, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	sheet, err := getTallySheet(ctx, tx, r.db.rebind, tallySheetID)
	if err != nil {
		return nil, err
	}
	if sheet.LatestVersionID == "" || sheet.LatestVersionID != versionID {
		return nil, fmt.Errorf("%w: version %s is not the latest of tally sheet %s", repository.ErrConflict, versionID, tallySheetID)
	}
	if sheet.SubmittedVersionID != "" && sheet.SubmittedVersionID != versionID {
		return nil, fmt.Errorf("%w: tally sheet %s already submitted", repository.ErrConflict, tallySheetID)
	}

	update := `UPDATE tally_sheets SET submitted_version_id = ? WHERE id = ?`
	if _, err := tx.ExecContext(ctx, r.db.rebind(update), versionID, tallySheetID); err != nil {
		return nil, fmt.Errorf("failed to submit tally sheet: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit submission: %w", err)
	}
	return &tally.Submission{
		TallySheetID: tallySheetID,
		VersionID:    versionID,
		ElectionID:   sheet.ElectionID,
	}, nil
}
