package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"garlic-defense/internal/domain"
	"garlic-defense/internal/storage"
)

// WalletAggregateStore implements storage.WalletAggregateStore using PostgreSQL.
type WalletAggregateStore struct {
	pool *Pool
}

// NewWalletAggregateStore creates a new WalletAggregateStore.
func NewWalletAggregateStore(pool *Pool) *WalletAggregateStore {
	return &WalletAggregateStore{pool: pool}
}

// Compile-time interface check.
var _ storage.WalletAggregateStore = (*WalletAggregateStore)(nil)

// Fold records one completed cycle for a wallet and returns the updated
// aggregate. A single statement with server-side increments: there is no
// read-then-write window, so concurrent folds for the same address cannot
// lose updates.
func (s *WalletAggregateStore) Fold(ctx context.Context, address string, effectiveness int64, occurredAt time.Time) (*domain.WalletAggregate, error) {
	if address == "" || effectiveness < 0 {
		return nil, storage.ErrInvalidInput
	}

	query := `
		INSERT INTO wallet_scores (
			wallet_address, burn_count, strategy_count,
			cumulative_effectiveness, max_effectiveness, average_effectiveness,
			last_activity_at
		) VALUES ($1, 1, 1, $2, $2, $4, $3)
		ON CONFLICT (wallet_address) DO UPDATE SET
			burn_count = wallet_scores.burn_count + 1,
			strategy_count = wallet_scores.strategy_count + 1,
			cumulative_effectiveness = wallet_scores.cumulative_effectiveness + EXCLUDED.cumulative_effectiveness,
			max_effectiveness = GREATEST(wallet_scores.max_effectiveness, EXCLUDED.max_effectiveness),
			average_effectiveness = (wallet_scores.cumulative_effectiveness + EXCLUDED.cumulative_effectiveness)::double precision
				/ (wallet_scores.strategy_count + 1),
			last_activity_at = GREATEST(wallet_scores.last_activity_at, EXCLUDED.last_activity_at)
		RETURNING wallet_address, burn_count, strategy_count,
			cumulative_effectiveness, max_effectiveness, average_effectiveness,
			last_activity_at
	`

	// The average column is double precision; it gets its own parameter so
	// the server does not have to deduce conflicting types for $2.
	row := s.pool.QueryRow(ctx, query, address, effectiveness, occurredAt.UTC(), float64(effectiveness))
	a, err := scanAggregate(row)
	if err != nil {
		return nil, fmt.Errorf("fold wallet aggregate: %w", err)
	}
	return a, nil
}

// Get retrieves the aggregate for a wallet. Returns ErrNotFound if not exists.
func (s *WalletAggregateStore) Get(ctx context.Context, address string) (*domain.WalletAggregate, error) {
	if address == "" {
		return nil, storage.ErrInvalidInput
	}

	query := `
		SELECT wallet_address, burn_count, strategy_count,
			cumulative_effectiveness, max_effectiveness, average_effectiveness,
			last_activity_at
		FROM wallet_scores
		WHERE wallet_address = $1
	`

	row := s.pool.QueryRow(ctx, query, address)
	a, err := scanAggregate(row)
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get wallet aggregate: %w", err)
	}
	return a, nil
}

// Top retrieves up to limit aggregates ordered by average effectiveness DESC,
// address ASC as tiebreak.
func (s *WalletAggregateStore) Top(ctx context.Context, limit int) ([]*domain.WalletAggregate, error) {
	if limit <= 0 {
		return nil, storage.ErrInvalidInput
	}

	query := `
		SELECT wallet_address, burn_count, strategy_count,
			cumulative_effectiveness, max_effectiveness, average_effectiveness,
			last_activity_at
		FROM wallet_scores
		ORDER BY average_effectiveness DESC, wallet_address ASC
		LIMIT $1
	`

	rows, err := s.pool.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("query top wallets: %w", err)
	}
	defer rows.Close()

	var out []*domain.WalletAggregate
	for rows.Next() {
		a, err := scanAggregate(rows)
		if err != nil {
			return nil, fmt.Errorf("scan wallet aggregate row: %w", err)
		}
		out = append(out, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate wallet aggregate rows: %w", err)
	}

	return out, nil
}

// TotalBurned returns SUM(burn_count) * FixedBurnAmount. Empty table returns 0.
func (s *WalletAggregateStore) TotalBurned(ctx context.Context) (uint64, error) {
	query := `SELECT COALESCE(SUM(burn_count), 0) FROM wallet_scores`

	var burns int64
	if err := s.pool.QueryRow(ctx, query).Scan(&burns); err != nil {
		return 0, fmt.Errorf("sum burn counts: %w", err)
	}
	return uint64(burns) * domain.FixedBurnAmount, nil
}

// scanAggregate scans a single row into a WalletAggregate.
func scanAggregate(row pgx.Row) (*domain.WalletAggregate, error) {
	var a domain.WalletAggregate
	err := row.Scan(
		&a.Address,
		&a.BurnCount,
		&a.StrategyCount,
		&a.CumulativeEffectiveness,
		&a.MaxEffectiveness,
		&a.AverageEffectiveness,
		&a.LastActivityAt,
	)
	if err != nil {
		return nil, err
	}
	a.LastActivityAt = a.LastActivityAt.UTC()
	return &a, nil
}
