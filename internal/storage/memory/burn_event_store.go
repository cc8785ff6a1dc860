package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"garlic-defense/internal/domain"
	"garlic-defense/internal/storage"
)

// BurnEventStore is an in-memory implementation of storage.BurnEventStore.
type BurnEventStore struct {
	mu     sync.RWMutex
	events []*domain.BurnEvent
}

// NewBurnEventStore creates a new in-memory burn event store.
func NewBurnEventStore() *BurnEventStore {
	return &BurnEventStore{}
}

// Compile-time interface check.
var _ storage.BurnEventStore = (*BurnEventStore)(nil)

// Insert adds one burn event.
func (s *BurnEventStore) Insert(_ context.Context, e *domain.BurnEvent) error {
	if e == nil || e.Wallet == "" || e.Signature == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	eventCopy := *e
	s.events = append(s.events, &eventCopy)
	return nil
}

// GetByWallet retrieves all events for a wallet, ordered by occurred_at ASC.
func (s *BurnEventStore) GetByWallet(_ context.Context, wallet string) ([]*domain.BurnEvent, error) {
	if wallet == "" {
		return nil, storage.ErrInvalidInput
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*domain.BurnEvent
	for _, e := range s.events {
		if e.Wallet == wallet {
			eventCopy := *e
			out = append(out, &eventCopy)
		}
	}
	sortEvents(out)
	return out, nil
}

// GetByTimeRange retrieves events with occurred_at within [start, end] (inclusive).
func (s *BurnEventStore) GetByTimeRange(_ context.Context, start, end time.Time) ([]*domain.BurnEvent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*domain.BurnEvent
	for _, e := range s.events {
		if !e.OccurredAt.Before(start) && !e.OccurredAt.After(end) {
			eventCopy := *e
			out = append(out, &eventCopy)
		}
	}
	sortEvents(out)
	return out, nil
}

func sortEvents(events []*domain.BurnEvent) {
	sort.Slice(events, func(i, j int) bool {
		if !events[i].OccurredAt.Equal(events[j].OccurredAt) {
			return events[i].OccurredAt.Before(events[j].OccurredAt)
		}
		return events[i].Signature < events[j].Signature
	})
}
