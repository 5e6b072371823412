package ports

import (
	"context"

	"stockCalculator/internal/domain"
)

// StateRepository persists the whole portfolio state under a single key.
type StateRepository interface {
	// Load returns the stored state.
	// Returns nil, nil if nothing has been stored yet (first run).
	// Returns an error wrapping ErrParse if the stored document is malformed.
	Load(ctx context.Context) (*domain.State, error)
	// Save replaces the stored state.
	Save(ctx context.Context, state *domain.State) error
}
