package election

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"github.com/rpggio/tallysheet/internal/repository"
)

// Service handles election operations.
type Service struct {
	repo   Repository
	logger *slog.Logger
}

// NewService creates a new election service.
func NewService(repo Repository, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Service{repo: repo, logger: logger}
}

// CreateRequest defines election creation inputs.
type CreateRequest struct {
	ID       string
	Name     string
	ParentID string
	Parties  []Party
}

// Create registers an election with its ballot.
func (s *Service) Create(ctx context.Context, req CreateRequest) (*Election, error) {
	if strings.TrimSpace(req.Name) == "" {
		return nil, ErrInvalidInput
	}
	seen := make(map[int64]bool)
	for _, party := range req.Parties {
		for _, c := range party.Candidates {
			if seen[c.ID] {
				return nil, fmt.Errorf("%w: duplicate candidate %d", ErrInvalidInput, c.ID)
			}
			seen[c.ID] = true
		}
	}

	id := req.ID
	if strings.TrimSpace(id) == "" {
		id = uuid.NewString()
	}

	el := &Election{
		ID:       id,
		Name:     req.Name,
		ParentID: req.ParentID,
		Parties:  req.Parties,
	}
	if err := s.repo.Create(ctx, el); err != nil {
		return nil, fmt.Errorf("creating election: %w", err)
	}
	s.logger.Info("election created", "election_id", el.ID, "candidates", len(el.Candidates()))
	return el, nil
}

// Get fetches an election by ID.
func (s *Service) Get(ctx context.Context, id string) (*Election, error) {
	el, err := s.repo.Get(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrElectionNotFound
		}
		return nil, fmt.Errorf("getting election: %w", err)
	}
	return el, nil
}
