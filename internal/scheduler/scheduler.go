// Package scheduler runs the daily leaderboard snapshot.
package scheduler

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/robfig/cron/v3"

	"garlic-defense/internal/observability"
	"garlic-defense/internal/storage"
)

// snapshotLimit is how many wallets a snapshot reads.
const snapshotLimit = 10

// Scheduler manages the cron tasks.
type Scheduler struct {
	Cron       *cron.Cron
	Aggregates storage.WalletAggregateStore
	Logger     *log.Logger
	Ctx        context.Context
}

// NewScheduler creates a new Scheduler. Jobs run on UTC: the daily
// competition boundary is midnight UTC, not local midnight.
func NewScheduler(ctx context.Context, aggregates storage.WalletAggregateStore, logger *log.Logger) *Scheduler {
	if logger == nil {
		logger = log.Default()
	}
	return &Scheduler{
		Cron:       cron.New(cron.WithSeconds(), cron.WithLocation(time.UTC)),
		Aggregates: aggregates,
		Logger:     logger,
		Ctx:        ctx,
	}
}

// RegisterAll registers the daily snapshot task.
func (s *Scheduler) RegisterAll() error {
	// Midnight UTC daily.
	if _, err := s.Cron.AddFunc("0 0 0 * * *", s.dailySnapshot); err != nil {
		return fmt.Errorf("register daily snapshot: %w", err)
	}
	return nil
}

// Start starts the cron scheduler.
func (s *Scheduler) Start() {
	s.Cron.Start()
	s.Logger.Printf("[scheduler] started")
}

// Stop stops the cron scheduler gracefully.
func (s *Scheduler) Stop() {
	s.Cron.Stop()
	s.Logger.Printf("[scheduler] stopped")
}

// RunSnapshotNow executes the snapshot immediately (for manual trigger).
func (s *Scheduler) RunSnapshotNow() {
	s.dailySnapshot()
}

// dailySnapshot reads the leaderboard, logs the day's standings, and
// updates the gauges. It never resets or deletes aggregates: standings
// carry over, the day boundary only marks when winners are announced.
func (s *Scheduler) dailySnapshot() {
	s.Logger.Printf("[scheduler] running daily leaderboard snapshot")

	top, err := s.Aggregates.Top(s.Ctx, snapshotLimit)
	if err != nil {
		s.Logger.Printf("[scheduler] snapshot leaderboard read failed: %v", err)
		return
	}

	total, err := s.Aggregates.TotalBurned(s.Ctx)
	if err != nil {
		s.Logger.Printf("[scheduler] snapshot total read failed: %v", err)
		return
	}

	if len(top) == 0 {
		s.Logger.Printf("[scheduler] no wallets on the leaderboard yet")
	} else {
		winner := top[0]
		s.Logger.Printf("[scheduler] daily winner %s: average %.2f over %d strategies (max %d)",
			winner.Address, winner.AverageEffectiveness, winner.StrategyCount, winner.MaxEffectiveness)
	}

	observability.UpdateLeaderboard(len(top), total, time.Now().UTC().Unix())
}
