package scheduler

import (
	"bytes"
	"context"
	"log"
	"strings"
	"testing"
	"time"

	"garlic-defense/internal/storage/memory"
)

func TestRegisterAll(t *testing.T) {
	s := NewScheduler(context.Background(), memory.NewWalletAggregateStore(), nil)
	if err := s.RegisterAll(); err != nil {
		t.Fatalf("RegisterAll failed: %v", err)
	}
	if len(s.Cron.Entries()) != 1 {
		t.Errorf("entries = %d, want 1", len(s.Cron.Entries()))
	}
}

func TestDailySnapshotLogsWinner(t *testing.T) {
	store := memory.NewWalletAggregateStore()
	ctx := context.Background()
	now := time.Now().UTC()

	if _, err := store.Fold(ctx, "wallet-high", 95, now); err != nil {
		t.Fatalf("Fold: %v", err)
	}
	if _, err := store.Fold(ctx, "wallet-low", 70, now); err != nil {
		t.Fatalf("Fold: %v", err)
	}

	var buf bytes.Buffer
	s := NewScheduler(ctx, store, log.New(&buf, "", 0))
	s.RunSnapshotNow()

	out := buf.String()
	if !strings.Contains(out, "wallet-high") {
		t.Errorf("winner not logged: %s", out)
	}
}

func TestDailySnapshotEmptyLeaderboard(t *testing.T) {
	var buf bytes.Buffer
	s := NewScheduler(context.Background(), memory.NewWalletAggregateStore(), log.New(&buf, "", 0))
	s.RunSnapshotNow()

	if !strings.Contains(buf.String(), "no wallets") {
		t.Errorf("empty leaderboard not handled: %s", buf.String())
	}
}
