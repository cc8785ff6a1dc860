package api

import (
	"context"
	"log"
	"sync"
	"time"

	"garlic-defense/internal/storage"
)

// TotalsPoller caches the all-time burned total. One goroutine polls the
// store on a fixed interval; request handlers only read the cache, so a
// slow or down database never blocks the endpoint. On poll failure the
// last good value is served with degraded set, and the poll interval
// backs off exponentially until the store recovers.
type TotalsPoller struct {
	store      storage.WalletAggregateStore
	interval   time.Duration
	maxBackoff time.Duration
	logger     *log.Logger

	mu       sync.RWMutex
	total    uint64
	degraded bool
}

// NewTotalsPoller creates a poller. Until the first successful poll the
// cache reports 0 with degraded set.
func NewTotalsPoller(store storage.WalletAggregateStore, interval time.Duration, logger *log.Logger) *TotalsPoller {
	if interval <= 0 {
		interval = 15 * time.Second
	}
	if logger == nil {
		logger = log.Default()
	}
	return &TotalsPoller{
		store:      store,
		interval:   interval,
		maxBackoff: 16 * interval,
		logger:     logger,
		degraded:   true,
	}
}

// Value returns the cached total and whether it is degraded (stale or
// never loaded).
func (p *TotalsPoller) Value() (uint64, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.total, p.degraded
}

// Run polls until ctx is cancelled. Call in a goroutine.
func (p *TotalsPoller) Run(ctx context.Context) {
	delay := time.Duration(0) // poll immediately on start
	for {
		select {
		case <-ctx.Done():
			return
		case <-time.After(delay):
		}

		total, err := p.store.TotalBurned(ctx)
		if err != nil {
			p.mu.Lock()
			p.degraded = true
			p.mu.Unlock()

			if delay < p.interval {
				delay = p.interval
			}
			delay *= 2
			if delay > p.maxBackoff {
				delay = p.maxBackoff
			}
			p.logger.Printf("[totals] poll failed, retrying in %v: %v", delay, err)
			continue
		}

		p.mu.Lock()
		p.total = total
		p.degraded = false
		p.mu.Unlock()
		delay = p.interval
	}
}
