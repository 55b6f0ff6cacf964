package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/rpggio/tallysheet/internal/domain/election"
	"github.com/rpggio/tallysheet/internal/repository"
)

// ElectionRepository implements election.Repository.
type ElectionRepository struct {
	db *DB
}

// NewElectionRepository creates a new ElectionRepository
func NewElectionRepository(db *DB) *ElectionRepository {
	return &ElectionRepository{db: db}
}

// Create inserts an election with its parties and candidates.
func (r *ElectionRepository) Create(ctx context.Context, el *election.Election) error {
	parties := el.Parties
	if parties == nil {
		parties = []election.Party{}
	}
	partiesJSON, err := json.Marshal(parties)
	if err != nil {
		return fmt.Errorf("failed to encode parties: %w", err)
	}

	query := `INSERT INTO elections (id, name, parent_id, parties, created_at) VALUES (?, ?, ?, ?, ?)`
	_, err = r.db.ExecContext(ctx, r.db.rebind(query),
		el.ID, el.Name, nullString(el.ParentID), string(partiesJSON), formatTime(time.Now()))
	if err != nil {
		if isUniqueViolation(err) {
			return repository.ErrAlreadyExists
		}
		return fmt.Errorf("failed to create election: %w", err)
	}
	return nil
}

// Get fetches an election by id.
func (r *ElectionRepository) Get(ctx context.Context, id string) (*election.Election, error) {
	query := `SELECT id, name, parent_id, parties FROM elections WHERE id = ?`

	var el election.Election
	var parentID sql.NullString
	var parties string
	err := r.db.QueryRowContext(ctx, r.db.rebind(query), id).Scan(&el.ID, &el.Name, &parentID, &parties)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get election: %w", err)
	}
	el.ParentID = parentID.String
	if err := json.Unmarshal([]byte(parties), &el.Parties); err != nil {
		return nil, fmt.Errorf("failed to decode parties: %w", err)
	}
	return &el, nil
}
