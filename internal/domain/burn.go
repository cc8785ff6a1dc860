package domain

import "time"

// Protocol constants for the GARLIC burn policy.
const (
	// GarlicMint is the GARLIC token mint address.
	GarlicMint = "H1sWyyDceAPpGmMUxVBCHcR2LrCjz933pUyjWSLpump"

	// GarlicDecimals is the token's decimal precision.
	GarlicDecimals = 9

	// FixedBurnAmount is the raw amount every burn instruction burns
	// (5 whole GARLIC at 9 decimals), independent of the amount shown
	// to the user. Observed policy; do not derive from the display amount.
	FixedBurnAmount uint64 = 5_000_000_000

	// DisplayBurnAmount is the whole-token amount shown to users and used
	// for the pre-flight token balance check.
	DisplayBurnAmount uint64 = 1000

	// MinFeeLamports is the minimum native balance required to cover
	// transaction fees before a burn is attempted.
	MinFeeLamports uint64 = 5000
)

// BurnReceipt describes one confirmed burn transaction. It is transient:
// produced by the burner, consumed by the orchestrator, never persisted
// as part of the core flow.
type BurnReceipt struct {
	Signer    string // base58 wallet address that signed the burn
	Amount    uint64 // raw token amount actually burned
	Signature string // ledger transaction signature
	Confirmed bool
	Slot      int64 // slot of confirmation, 0 if unknown
}

// BurnEvent is the append-only analytics record of one completed cycle.
// Corresponds to burn_events table in ClickHouse.
type BurnEvent struct {
	Wallet        string
	Signature     string
	Amount        uint64 // raw units burned
	Effectiveness int64  // score folded into the aggregate
	Language      string
	OccurredAt    time.Time
}
