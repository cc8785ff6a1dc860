package storage

import (
	"context"
	"time"

	"garlic-defense/internal/domain"
)

// WalletAggregateStore provides access to wallet_scores storage.
type WalletAggregateStore interface {
	// Fold records one completed cycle for a wallet and returns the updated
	// aggregate. Creates the row on first fold. Concurrent folds for the
	// same address must not lose updates.
	Fold(ctx context.Context, address string, effectiveness int64, occurredAt time.Time) (*domain.WalletAggregate, error)

	// Get retrieves the aggregate for a wallet. Returns ErrNotFound if the
	// wallet has never folded a cycle.
	Get(ctx context.Context, address string) (*domain.WalletAggregate, error)

	// Top retrieves up to limit aggregates ordered by average effectiveness
	// descending, address ascending as tiebreak.
	Top(ctx context.Context, limit int) ([]*domain.WalletAggregate, error)

	// TotalBurned returns the raw token amount burned across all wallets:
	// SUM(burn_count) * FixedBurnAmount. Empty store returns 0.
	TotalBurned(ctx context.Context) (uint64, error)
}

// BurnEventStore provides access to the append-only burn_events log.
type BurnEventStore interface {
	// Insert adds one burn event.
	Insert(ctx context.Context, e *domain.BurnEvent) error

	// GetByWallet retrieves all events for a wallet, ordered by occurred_at ASC.
	GetByWallet(ctx context.Context, wallet string) ([]*domain.BurnEvent, error)

	// GetByTimeRange retrieves events with occurred_at within [start, end] (inclusive).
	GetByTimeRange(ctx context.Context, start, end time.Time) ([]*domain.BurnEvent, error)
}
