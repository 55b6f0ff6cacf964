package election

import "context"

// Repository provides persistence for elections.
type Repository interface {
	Create(ctx context.Context, el *Election) error
	Get(ctx context.Context, id string) (*Election, error)
}
