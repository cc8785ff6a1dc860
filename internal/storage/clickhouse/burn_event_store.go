package clickhouse

import (
	"context"
	"fmt"
	"time"

	"garlic-defense/internal/domain"
	"garlic-defense/internal/storage"
)

// BurnEventStore implements storage.BurnEventStore using ClickHouse.
type BurnEventStore struct {
	conn *Conn
}

// NewBurnEventStore creates a new BurnEventStore.
func NewBurnEventStore(conn *Conn) *BurnEventStore {
	return &BurnEventStore{conn: conn}
}

// Compile-time interface check.
var _ storage.BurnEventStore = (*BurnEventStore)(nil)

// Insert adds one burn event.
func (s *BurnEventStore) Insert(ctx context.Context, e *domain.BurnEvent) error {
	if e == nil || e.Wallet == "" || e.Signature == "" {
		return storage.ErrInvalidInput
	}

	batch, err := s.conn.PrepareBatch(ctx, `
		INSERT INTO burn_events (
			wallet, signature, amount, effectiveness, language, occurred_at
		)
	`)
	if err != nil {
		return fmt.Errorf("prepare batch: %w", err)
	}

	err = batch.Append(
		e.Wallet,
		e.Signature,
		e.Amount,
		e.Effectiveness,
		e.Language,
		e.OccurredAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("append to batch: %w", err)
	}

	if err := batch.Send(); err != nil {
		return fmt.Errorf("send batch: %w", err)
	}
	return nil
}

// GetByWallet retrieves all events for a wallet, ordered by occurred_at ASC.
func (s *BurnEventStore) GetByWallet(ctx context.Context, wallet string) ([]*domain.BurnEvent, error) {
	if wallet == "" {
		return nil, storage.ErrInvalidInput
	}

	query := `
		SELECT wallet, signature, amount, effectiveness, language, occurred_at
		FROM burn_events
		WHERE wallet = ?
		ORDER BY occurred_at ASC, signature ASC
	`

	rows, err := s.conn.Query(ctx, query, wallet)
	if err != nil {
		return nil, fmt.Errorf("get events by wallet: %w", err)
	}
	defer rows.Close()

	return scanEvents(rows)
}

// GetByTimeRange retrieves events with occurred_at within [start, end] (inclusive).
func (s *BurnEventStore) GetByTimeRange(ctx context.Context, start, end time.Time) ([]*domain.BurnEvent, error) {
	query := `
		SELECT wallet, signature, amount, effectiveness, language, occurred_at
		FROM burn_events
		WHERE occurred_at >= ? AND occurred_at <= ?
		ORDER BY occurred_at ASC, signature ASC
	`

	rows, err := s.conn.Query(ctx, query, start.UTC(), end.UTC())
	if err != nil {
		return nil, fmt.Errorf("get events by time range: %w", err)
	}
	defer rows.Close()

	return scanEvents(rows)
}

// Rows interface for scanning
type chRows interface {
	Next() bool
	Scan(dest ...interface{}) error
	Err() error
}

// scanEvents scans rows into a slice of BurnEvent.
func scanEvents(rows chRows) ([]*domain.BurnEvent, error) {
	var events []*domain.BurnEvent

	for rows.Next() {
		var e domain.BurnEvent
		err := rows.Scan(
			&e.Wallet,
			&e.Signature,
			&e.Amount,
			&e.Effectiveness,
			&e.Language,
			&e.OccurredAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan event row: %w", err)
		}
		e.OccurredAt = e.OccurredAt.UTC()
		events = append(events, &e)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate event rows: %w", err)
	}

	return events, nil
}
