// Package token issues GARLIC burn transactions with pre-flight
// balance verification.
package token

import (
	"context"
	"fmt"
	"log"
	"time"

	"garlic-defense/internal/domain"
	"garlic-defense/internal/observability"
	"garlic-defense/internal/solana"
)

// Config configures a Burner.
type Config struct {
	// Mint is the token mint address to burn.
	Mint string
	// FixedBurnAmount is the raw amount every burn instruction burns,
	// independent of the requested amount.
	FixedBurnAmount uint64
	// MinFeeLamports is the native balance floor for the fee check.
	MinFeeLamports uint64
	// ConfirmTimeout bounds the wait for ledger confirmation.
	ConfirmTimeout time.Duration
	// PollInterval is the status polling cadence when no WS client is set.
	PollInterval time.Duration
}

// DefaultConfig returns the production burn policy.
func DefaultConfig() Config {
	return Config{
		Mint:            domain.GarlicMint,
		FixedBurnAmount: domain.FixedBurnAmount,
		MinFeeLamports:  domain.MinFeeLamports,
		ConfirmTimeout:  60 * time.Second,
		PollInterval:    2 * time.Second,
	}
}

// Burner constructs, submits and confirms burn transactions.
type Burner struct {
	rpc    solana.RPCClient
	ws     solana.WSClient // nil: confirm by polling
	config Config
	logger *log.Logger
}

// NewBurner creates a Burner. ws may be nil, in which case confirmation
// polls getSignatureStatuses.
func NewBurner(rpc solana.RPCClient, ws solana.WSClient, config Config, logger *log.Logger) *Burner {
	if logger == nil {
		logger = log.Default()
	}
	return &Burner{rpc: rpc, ws: ws, config: config, logger: logger}
}

// Burn verifies balances, submits a burn for the fixed protocol amount and
// awaits confirmation.
//
// requestedAmount gates the token balance check only; the instruction always
// burns Config.FixedBurnAmount. The two differ in production on purpose
// (display policy vs burn policy), so callers must not assume the requested
// amount is what gets burned.
//
// Failure order: fee check, token balance check, then submission. The first
// two never submit anything; after submission every failure surfaces as
// *BurnFailedError. No retry happens at this layer.
func (b *Burner) Burn(ctx context.Context, signer solana.Signer, requestedAmount uint64) (*domain.BurnReceipt, error) {
	owner := signer.PublicKey()

	lamports, err := b.rpc.GetBalance(ctx, owner)
	if err != nil {
		return nil, fmt.Errorf("check fee balance: %w", err)
	}
	if lamports < b.config.MinFeeLamports {
		return nil, ErrInsufficientFeeBalance
	}

	tokenAccount, err := solana.DeriveAssociatedTokenAddress(owner, b.config.Mint)
	if err != nil {
		return nil, fmt.Errorf("derive token account: %w", err)
	}

	// A missing or unreadable token account counts as zero balance.
	var have uint64
	if balance, err := b.rpc.GetTokenAccountBalance(ctx, tokenAccount); err == nil {
		have = balance.Amount
	} else {
		b.logger.Printf("token balance lookup failed for %s, treating as zero: %v", tokenAccount, err)
	}
	if have < requestedAmount {
		return nil, &InsufficientTokenBalanceError{Have: have, Need: requestedAmount}
	}

	blockhash, err := b.rpc.GetLatestBlockhash(ctx)
	if err != nil {
		return nil, &BurnFailedError{Cause: fmt.Errorf("get blockhash: %w", err)}
	}

	ix := solana.NewBurnInstruction(tokenAccount, b.config.Mint, owner, b.config.FixedBurnAmount)
	tx, err := solana.BuildTransaction([]solana.Instruction{ix}, blockhash.Blockhash, signer)
	if err != nil {
		return nil, &BurnFailedError{Cause: fmt.Errorf("build transaction: %w", err)}
	}

	signature, err := b.rpc.SendTransaction(ctx, tx)
	if err != nil {
		return nil, &BurnFailedError{Cause: fmt.Errorf("submit transaction: %w", err)}
	}
	observability.RecordBurnSubmitted()

	submitted := time.Now()
	slot, err := b.confirm(ctx, signature)
	if err != nil {
		return nil, &BurnFailedError{Cause: fmt.Errorf("confirm %s: %w", signature, err)}
	}
	observability.RecordBurnConfirmed(time.Since(submitted).Seconds())

	b.logger.Printf("burned %d raw units from %s: %s (slot %d)", b.config.FixedBurnAmount, owner, signature, slot)

	return &domain.BurnReceipt{
		Signer:    owner,
		Amount:    b.config.FixedBurnAmount,
		Signature: signature,
		Confirmed: true,
		Slot:      slot,
	}, nil
}

// confirm waits for the signature to reach confirmed commitment.
func (b *Burner) confirm(ctx context.Context, signature string) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, b.config.ConfirmTimeout)
	defer cancel()

	if b.ws != nil {
		return b.ws.WaitForSignature(ctx, signature)
	}

	ticker := time.NewTicker(b.config.PollInterval)
	defer ticker.Stop()

	for {
		statuses, err := b.rpc.GetSignatureStatuses(ctx, []string{signature})
		if err == nil && len(statuses) == 1 && statuses[0] != nil {
			status := statuses[0]
			if status.Err != nil {
				return 0, fmt.Errorf("transaction failed on chain: %v", status.Err)
			}
			if status.Confirmed() {
				return status.Slot, nil
			}
		}

		select {
		case <-ctx.Done():
			return 0, ctx.Err()
		case <-ticker.C:
		}
	}
}
