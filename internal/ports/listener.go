package ports

import (
	"context"

	"stockCalculator/internal/domain"
)

// Snapshot is an immutable copy of the portfolio after a mutation.
type Snapshot struct {
	Positions    map[string]domain.Position
	Transactions []domain.Transaction // Insertion order
	Policy       domain.CostBasisPolicy
}

// ChangeListener receives a notification after every successful mutation.
type ChangeListener interface {
	PortfolioChanged(ctx context.Context, snapshot Snapshot)
}

// ChangeListenerFunc adapts a function to the ChangeListener interface.
type ChangeListenerFunc func(ctx context.Context, snapshot Snapshot)

// PortfolioChanged calls f(ctx, snapshot).
func (f ChangeListenerFunc) PortfolioChanged(ctx context.Context, snapshot Snapshot) {
	f(ctx, snapshot)
}
