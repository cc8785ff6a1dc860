package token

import (
	"errors"
	"fmt"
)

// ErrInsufficientFeeBalance is returned when the signer's native balance
// cannot cover transaction fees. No submission is attempted.
var ErrInsufficientFeeBalance = errors.New("insufficient native balance for transaction fees")

// InsufficientTokenBalanceError is returned when the signer's token balance
// is below the requested amount. No submission is attempted.
type InsufficientTokenBalanceError struct {
	Have uint64
	Need uint64
}

func (e *InsufficientTokenBalanceError) Error() string {
	return fmt.Sprintf("insufficient token balance: have %d, need %d", e.Have, e.Need)
}

// BurnFailedError wraps a submission or confirmation failure. The burn
// instruction may or may not have landed; callers must re-verify balances
// before any retry.
type BurnFailedError struct {
	Cause error
}

func (e *BurnFailedError) Error() string {
	return fmt.Sprintf("burn failed: %v", e.Cause)
}

func (e *BurnFailedError) Unwrap() error {
	return e.Cause
}
