package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/rpggio/tallysheet/internal/domain/tally"
	"github.com/rpggio/tallysheet/internal/repository"
)

// TallySheetRepository stores tally sheet metadata.
type TallySheetRepository struct {
	db *DB
}

// NewTallySheetRepository creates a new TallySheetRepository
func NewTallySheetRepository(db *DB) *TallySheetRepository {
	return &TallySheetRepository{db: db}
}

// CreateTallySheet inserts a tally sheet with no versions.
func (r *TallySheetRepository) CreateTallySheet(ctx context.Context, sheet *tally.TallySheet) error {
	query := `INSERT INTO tally_sheets (id, code, election_id, created_at) VALUES (?, ?, ?, ?)`
	_, err := r.db.ExecContext(ctx, r.db.rebind(query), sheet.ID, string(sheet.Code), sheet.ElectionID, formatTime(time.Now()))
	if err != nil {
		if isUniqueViolation(err) {
			return repository.ErrAlreadyExists
		}
		if isForeignKeyViolation(err) {
			return fmt.Errorf("%w: election %s", repository.ErrNotFound, sheet.ElectionID)
		}
		return fmt.Errorf("failed to create tally sheet: %w", err)
	}
	return nil
}

// GetTallySheet fetches a tally sheet by id.
func (r *TallySheetRepository) GetTallySheet(ctx context.Context, id string) (*tally.TallySheet, error) {
	return getTallySheet(ctx, r.db, r.db.rebind, id)
}

// ListTallySheets lists the tally sheets of an election in creation order.
func (r *TallySheetRepository) ListTallySheets(ctx context.Context, electionID string) ([]tally.TallySheet, error) {
	query := `
		SELECT id, code, election_id, latest_version_id, submitted_version_id
		FROM tally_sheets
		WHERE election_id = ?
		ORDER BY created_at, id
	`
	rows, err := r.db.QueryContext(ctx, r.db.rebind(query), electionID)
	if err != nil {
		return nil, fmt.Errorf("failed to list tally sheets: %w", err)
	}
	defer rows.Close()

	var sheets []tally.TallySheet
	for rows.Next() {
		sheet, err := scanTallySheet(rows)
		if err != nil {
			return nil, err
		}
		sheets = append(sheets, *sheet)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating tally sheet rows: %w", err)
	}
	return sheets, nil
}

type queryRower interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type scanner interface {
	Scan(dest ...any) error
}

func getTallySheet(ctx context.Context, q queryRower, rebind func(string) string, id string) (*tally.TallySheet, error) {
	query := `
		SELECT id, code, election_id, latest_version_id, submitted_version_id
		FROM tally_sheets
		WHERE id = ?
	`
	sheet, err := scanTallySheet(q.QueryRowContext(ctx, rebind(query), id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return sheet, nil
}

func scanTallySheet(row scanner) (*tally.TallySheet, error) {
	var sheet tally.TallySheet
	var code string
	var latest, submitted sql.NullString
	if err := row.Scan(&sheet.ID, &code, &sheet.ElectionID, &latest, &submitted); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to scan tally sheet: %w", err)
	}
	sheet.Code = tally.Code(code)
	sheet.LatestVersionID = latest.String
	sheet.SubmittedVersionID = submitted.String
	return &sheet, nil
}
