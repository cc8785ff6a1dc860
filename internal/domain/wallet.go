package domain

import "time"

// WalletAggregate represents per-wallet running burn statistics.
// Corresponds to wallet_scores table in PostgreSQL, keyed by wallet address.
type WalletAggregate struct {
	Address                 string    // wallet address (base58), unique key
	BurnCount               int64     // successful burns, incremented once per cycle
	StrategyCount           int64     // recorded strategies, equals BurnCount in the intended flow
	CumulativeEffectiveness int64     // sum of all recorded scores
	MaxEffectiveness        int64     // highest score ever recorded (0 if none)
	AverageEffectiveness    float64   // CumulativeEffectiveness / StrategyCount, recomputed on every fold
	LastActivityAt          time.Time // timestamp of the most recent recorded strategy
}

// Average returns CumulativeEffectiveness / StrategyCount, or 0 with no strategies.
func (a *WalletAggregate) Average() float64 {
	if a.StrategyCount == 0 {
		return 0
	}
	return float64(a.CumulativeEffectiveness) / float64(a.StrategyCount)
}
