package solana

import "context"

// RPCClient defines the Solana RPC HTTP interface used by the burn flow.
type RPCClient interface {
	// GetBalance retrieves the lamport balance of an account.
	GetBalance(ctx context.Context, pubkey string) (uint64, error)

	// GetTokenAccountBalance retrieves the token balance of an SPL token account.
	GetTokenAccountBalance(ctx context.Context, account string) (*TokenAmount, error)

	// GetLatestBlockhash retrieves a recent blockhash for transaction construction.
	GetLatestBlockhash(ctx context.Context) (*LatestBlockhash, error)

	// SendTransaction submits a signed, base64-encoded transaction.
	// Returns the transaction signature. Never retried internally.
	SendTransaction(ctx context.Context, txBase64 string) (string, error)

	// GetSignatureStatuses retrieves confirmation statuses for signatures.
	// The result slice matches the input order; unknown signatures yield nil.
	GetSignatureStatuses(ctx context.Context, signatures []string) ([]*SignatureStatus, error)

	// GetAccountInfo retrieves account info by public key.
	// Returns nil if the account does not exist.
	GetAccountInfo(ctx context.Context, pubkey string) (*AccountInfo, error)
}

// TokenAmount is the balance of an SPL token account.
type TokenAmount struct {
	Amount   uint64 // raw units
	Decimals int
}

// LatestBlockhash is a recent blockhash with its validity bound.
type LatestBlockhash struct {
	Blockhash            string // base58
	LastValidBlockHeight uint64
}

// SignatureStatus is the confirmation state of a submitted transaction.
type SignatureStatus struct {
	Slot               int64
	Confirmations      *int   // nil once rooted
	ConfirmationStatus string // "processed" | "confirmed" | "finalized"
	Err                interface{}
}

// Confirmed reports whether the transaction reached at least the
// confirmed commitment level without a transaction error.
func (s *SignatureStatus) Confirmed() bool {
	if s == nil || s.Err != nil {
		return false
	}
	return s.ConfirmationStatus == "confirmed" || s.ConfirmationStatus == "finalized"
}

// AccountInfo represents Solana account information.
type AccountInfo struct {
	Lamports   uint64
	Owner      string
	Data       string // base64 encoded
	Executable bool
	RentEpoch  uint64
}
