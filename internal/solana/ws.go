package solana

import "context"

// WSClient defines the Solana WebSocket interface for burn confirmation.
type WSClient interface {
	// WaitForSignature blocks until the signature reaches confirmed
	// commitment or ctx expires. Returns the confirmation slot.
	WaitForSignature(ctx context.Context, signature string) (int64, error)

	// Close closes the WebSocket connection.
	Close() error
}

// signatureResult carries the outcome of a signatureSubscribe notification.
type signatureResult struct {
	Slot int64
	Err  interface{}
}
