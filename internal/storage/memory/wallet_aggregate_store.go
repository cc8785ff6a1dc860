// Package memory provides in-memory store implementations for tests
// and local development.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"garlic-defense/internal/domain"
	"garlic-defense/internal/storage"
)

// WalletAggregateStore is an in-memory implementation of storage.WalletAggregateStore.
type WalletAggregateStore struct {
	mu   sync.RWMutex
	data map[string]*domain.WalletAggregate // keyed by wallet address
}

// NewWalletAggregateStore creates a new in-memory wallet aggregate store.
func NewWalletAggregateStore() *WalletAggregateStore {
	return &WalletAggregateStore{
		data: make(map[string]*domain.WalletAggregate),
	}
}

// Compile-time interface check.
var _ storage.WalletAggregateStore = (*WalletAggregateStore)(nil)

// Fold records one completed cycle for a wallet and returns the updated aggregate.
func (s *WalletAggregateStore) Fold(_ context.Context, address string, effectiveness int64, occurredAt time.Time) (*domain.WalletAggregate, error) {
	if address == "" || effectiveness < 0 {
		return nil, storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	a, exists := s.data[address]
	if !exists {
		a = &domain.WalletAggregate{Address: address}
		s.data[address] = a
	}

	a.BurnCount++
	a.StrategyCount++
	a.CumulativeEffectiveness += effectiveness
	if effectiveness > a.MaxEffectiveness {
		a.MaxEffectiveness = effectiveness
	}
	a.AverageEffectiveness = a.Average()
	if occurredAt.After(a.LastActivityAt) {
		a.LastActivityAt = occurredAt
	}

	aggCopy := *a
	return &aggCopy, nil
}

// Get retrieves the aggregate for a wallet. Returns ErrNotFound if not exists.
func (s *WalletAggregateStore) Get(_ context.Context, address string) (*domain.WalletAggregate, error) {
	if address == "" {
		return nil, storage.ErrInvalidInput
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	a, exists := s.data[address]
	if !exists {
		return nil, storage.ErrNotFound
	}

	aggCopy := *a
	return &aggCopy, nil
}

// Top retrieves up to limit aggregates ordered by average effectiveness DESC,
// address ASC as tiebreak.
func (s *WalletAggregateStore) Top(_ context.Context, limit int) ([]*domain.WalletAggregate, error) {
	if limit <= 0 {
		return nil, storage.ErrInvalidInput
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	all := make([]*domain.WalletAggregate, 0, len(s.data))
	for _, a := range s.data {
		aggCopy := *a
		all = append(all, &aggCopy)
	}

	sort.Slice(all, func(i, j int) bool {
		if all[i].AverageEffectiveness != all[j].AverageEffectiveness {
			return all[i].AverageEffectiveness > all[j].AverageEffectiveness
		}
		return all[i].Address < all[j].Address
	})

	if len(all) > limit {
		all = all[:limit]
	}
	return all, nil
}

// TotalBurned returns SUM(burn_count) * FixedBurnAmount.
func (s *WalletAggregateStore) TotalBurned(_ context.Context) (uint64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var burns uint64
	for _, a := range s.data {
		burns += uint64(a.BurnCount)
	}
	return burns * domain.FixedBurnAmount, nil
}
