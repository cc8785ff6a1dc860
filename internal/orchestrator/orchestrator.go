// Package orchestrator coordinates one burn-to-leaderboard cycle.
// Flow: verify → burn → generate → score → aggregate
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync/atomic"
	"time"

	"garlic-defense/internal/domain"
	"garlic-defense/internal/generation"
	"garlic-defense/internal/observability"
	"garlic-defense/internal/scoring"
	"garlic-defense/internal/solana"
	"garlic-defense/internal/storage"
)

// State is the phase a cycle is in. Once tokens are burned, later phases
// must not loop back to Burning.
type State string

// Cycle states in order. Error absorbs a failure in any phase.
const (
	StateIdle               State = "idle"
	StateVerifying          State = "verifying"
	StateBurning            State = "burning"
	StateAwaitingGeneration State = "awaiting_generation"
	StateScoring            State = "scoring"
	StateAggregating        State = "aggregating"
	StateDone               State = "done"
	StateError              State = "error"
)

// ErrNotConnected is returned when a cycle is started without a signer.
var ErrNotConnected = errors.New("wallet not connected")

// CycleError reports a failed cycle along with how far it got. TokensBurned
// distinguishes failures that cost the user tokens from ones that did not.
type CycleError struct {
	State        State
	TokensBurned bool
	Receipt      *domain.BurnReceipt // non-nil when TokensBurned
	Err          error
}

func (e *CycleError) Error() string {
	if e.TokensBurned {
		return fmt.Sprintf("cycle failed at %s after tokens were burned: %v", e.State, e.Err)
	}
	return fmt.Sprintf("cycle failed at %s: %v", e.State, e.Err)
}

func (e *CycleError) Unwrap() error {
	return e.Err
}

// Burner executes the fixed-amount token burn.
type Burner interface {
	Burn(ctx context.Context, signer solana.Signer, requestedAmount uint64) (*domain.BurnReceipt, error)
}

// Generator produces a defense strategy in the given language.
type Generator interface {
	Generate(ctx context.Context, language domain.Language) (*domain.DefenseStrategy, error)
}

// Orchestrator runs cycles against its collaborators.
type Orchestrator struct {
	burner     Burner
	generator  Generator
	aggregates storage.WalletAggregateStore
	events     storage.BurnEventStore // optional, best-effort
	clock      func() time.Time
	logger     *log.Logger

	lastState atomic.Value // State
}

// Options for creating Orchestrator.
type Options struct {
	// Required collaborators
	Burner     Burner
	Generator  Generator
	Aggregates storage.WalletAggregateStore

	// Optional analytics log. Insert failures never fail a cycle.
	Events storage.BurnEventStore

	// Clock overrides time.Now, for tests.
	Clock func() time.Time

	Logger *log.Logger
}

// New creates a new Orchestrator.
func New(opts Options) *Orchestrator {
	clock := opts.Clock
	if clock == nil {
		clock = time.Now
	}
	logger := opts.Logger
	if logger == nil {
		logger = log.Default()
	}
	o := &Orchestrator{
		burner:     opts.Burner,
		generator:  opts.Generator,
		aggregates: opts.Aggregates,
		events:     opts.Events,
		clock:      clock,
		logger:     logger,
	}
	o.lastState.Store(StateIdle)
	return o
}

// CycleResult contains everything a completed cycle produced.
type CycleResult struct {
	Receipt       *domain.BurnReceipt
	Strategy      *domain.DefenseStrategy
	Effectiveness int64
	Aggregate     *domain.WalletAggregate
}

// LastState reports the final state of the most recent cycle.
func (o *Orchestrator) LastState() State {
	return o.lastState.Load().(State)
}

// RunCycle executes one full cycle for the signer. Any failure after the
// burn confirms is reported with TokensBurned set; nothing in this path
// retries the burn.
func (o *Orchestrator) RunCycle(ctx context.Context, signer solana.Signer, language domain.Language) (*CycleResult, error) {
	started := time.Now()
	observability.RecordCycleStarted()

	// Verifying
	o.setState(StateVerifying)
	if signer == nil {
		return nil, o.fail(&CycleError{State: StateVerifying, Err: ErrNotConnected})
	}
	if !language.Valid() {
		return nil, o.fail(&CycleError{State: StateVerifying, Err: generation.ErrInvalidLanguage})
	}

	// Burning
	o.setState(StateBurning)
	receipt, err := o.burner.Burn(ctx, signer, domain.DisplayBurnAmount)
	if err != nil {
		return nil, o.fail(&CycleError{State: StateBurning, Err: err})
	}
	o.logger.Printf("[orchestrator] burned %d raw units, signature %s", receipt.Amount, receipt.Signature)

	// AwaitingGeneration
	o.setState(StateAwaitingGeneration)
	strategy, err := o.generator.Generate(ctx, language)
	if err != nil {
		return nil, o.fail(&CycleError{State: StateAwaitingGeneration, TokensBurned: true, Receipt: receipt, Err: err})
	}

	// Scoring
	o.setState(StateScoring)
	now := o.clock()
	effectiveness := int64(scoring.Score(strategy.Raw, now))

	// Aggregating
	o.setState(StateAggregating)
	aggregate, err := o.aggregates.Fold(ctx, receipt.Signer, effectiveness, now)
	if err != nil {
		return nil, o.fail(&CycleError{
			State:        StateAggregating,
			TokensBurned: true,
			Receipt:      receipt,
			Err:          fmt.Errorf("update wallet aggregate: %w", err),
		})
	}

	o.appendEvent(ctx, receipt, effectiveness, language, now)

	o.setState(StateDone)
	observability.RecordCycleCompleted(time.Since(started).Seconds(), effectiveness, receipt.Amount)
	return &CycleResult{
		Receipt:       receipt,
		Strategy:      strategy,
		Effectiveness: effectiveness,
		Aggregate:     aggregate,
	}, nil
}

// appendEvent records the cycle in the analytics log. Best-effort.
func (o *Orchestrator) appendEvent(ctx context.Context, receipt *domain.BurnReceipt, effectiveness int64, language domain.Language, occurredAt time.Time) {
	if o.events == nil {
		return
	}
	err := o.events.Insert(ctx, &domain.BurnEvent{
		Wallet:        receipt.Signer,
		Signature:     receipt.Signature,
		Amount:        receipt.Amount,
		Effectiveness: effectiveness,
		Language:      string(language),
		OccurredAt:    occurredAt,
	})
	if err != nil {
		o.logger.Printf("[orchestrator] burn event insert failed (continuing): %v", err)
	}
}

func (o *Orchestrator) setState(s State) {
	o.lastState.Store(s)
}

func (o *Orchestrator) fail(cycleErr *CycleError) error {
	o.lastState.Store(StateError)
	observability.RecordCycleFailure(string(cycleErr.State), cycleErr.TokensBurned)
	o.logger.Printf("[orchestrator] %v", cycleErr)
	return cycleErr
}
