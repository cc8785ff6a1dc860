package token

import (
	"bytes"
	"context"
	"crypto/ed25519"
	"errors"
	"fmt"
	"testing"
	"time"

	"garlic-defense/internal/domain"
	"garlic-defense/internal/solana"
)

// stubRPC implements solana.RPCClient with canned responses and call counts.
type stubRPC struct {
	lamports     uint64
	lamportsErr  error
	tokenAmount  uint64
	tokenErr     error
	sendErr      error
	submissions  int
	statusPolls  int
	confirmAfter int // polls before reporting confirmed
}

func (s *stubRPC) GetBalance(_ context.Context, _ string) (uint64, error) {
	return s.lamports, s.lamportsErr
}

func (s *stubRPC) GetTokenAccountBalance(_ context.Context, _ string) (*solana.TokenAmount, error) {
	if s.tokenErr != nil {
		return nil, s.tokenErr
	}
	return &solana.TokenAmount{Amount: s.tokenAmount, Decimals: 9}, nil
}

func (s *stubRPC) GetLatestBlockhash(_ context.Context) (*solana.LatestBlockhash, error) {
	return &solana.LatestBlockhash{
		Blockhash:            "EkSnNWid2cvwEVnVx9aBqawnmiCNiDgp3gUdkDPTKN1N",
		LastValidBlockHeight: 1,
	}, nil
}

func (s *stubRPC) SendTransaction(_ context.Context, _ string) (string, error) {
	s.submissions++
	if s.sendErr != nil {
		return "", s.sendErr
	}
	return fmt.Sprintf("sig-%d", s.submissions), nil
}

func (s *stubRPC) GetSignatureStatuses(_ context.Context, sigs []string) ([]*solana.SignatureStatus, error) {
	s.statusPolls++
	if s.statusPolls <= s.confirmAfter {
		return make([]*solana.SignatureStatus, len(sigs)), nil
	}
	statuses := make([]*solana.SignatureStatus, len(sigs))
	for i := range sigs {
		statuses[i] = &solana.SignatureStatus{Slot: 777, ConfirmationStatus: "confirmed"}
	}
	return statuses, nil
}

func (s *stubRPC) GetAccountInfo(_ context.Context, _ string) (*solana.AccountInfo, error) {
	return nil, nil
}

var _ solana.RPCClient = (*stubRPC)(nil)

func testSigner(t *testing.T) solana.Signer {
	t.Helper()

	seed := bytes.Repeat([]byte{3}, ed25519.SeedSize)
	signer, err := solana.NewKeypairSigner(ed25519.NewKeyFromSeed(seed))
	if err != nil {
		t.Fatalf("NewKeypairSigner: %v", err)
	}
	return signer
}

func testConfig() Config {
	cfg := DefaultConfig()
	cfg.ConfirmTimeout = 2 * time.Second
	cfg.PollInterval = 10 * time.Millisecond
	return cfg
}

func TestBurner_InsufficientFeeBalance(t *testing.T) {
	rpc := &stubRPC{lamports: domain.MinFeeLamports - 1, tokenAmount: 1_000_000}
	burner := NewBurner(rpc, nil, testConfig(), nil)

	_, err := burner.Burn(context.Background(), testSigner(t), 1000)
	if !errors.Is(err, ErrInsufficientFeeBalance) {
		t.Fatalf("expected ErrInsufficientFeeBalance, got %v", err)
	}
	if rpc.submissions != 0 {
		t.Errorf("expected 0 submissions, got %d", rpc.submissions)
	}
}

func TestBurner_InsufficientTokenBalance(t *testing.T) {
	rpc := &stubRPC{lamports: 10 * domain.MinFeeLamports, tokenAmount: 10}
	burner := NewBurner(rpc, nil, testConfig(), nil)

	_, err := burner.Burn(context.Background(), testSigner(t), 1000)

	var insufficientErr *InsufficientTokenBalanceError
	if !errors.As(err, &insufficientErr) {
		t.Fatalf("expected InsufficientTokenBalanceError, got %v", err)
	}
	if insufficientErr.Have != 10 || insufficientErr.Need != 1000 {
		t.Errorf("expected have=10 need=1000, got have=%d need=%d", insufficientErr.Have, insufficientErr.Need)
	}
	if rpc.submissions != 0 {
		t.Errorf("expected 0 submissions, got %d", rpc.submissions)
	}
}

func TestBurner_MissingTokenAccountIsZeroBalance(t *testing.T) {
	rpc := &stubRPC{lamports: 10 * domain.MinFeeLamports, tokenErr: errors.New("account not found")}
	burner := NewBurner(rpc, nil, testConfig(), nil)

	_, err := burner.Burn(context.Background(), testSigner(t), 1000)

	var insufficientErr *InsufficientTokenBalanceError
	if !errors.As(err, &insufficientErr) {
		t.Fatalf("expected InsufficientTokenBalanceError, got %v", err)
	}
	if insufficientErr.Have != 0 {
		t.Errorf("expected have=0, got %d", insufficientErr.Have)
	}
	if rpc.submissions != 0 {
		t.Errorf("expected 0 submissions, got %d", rpc.submissions)
	}
}

func TestBurner_SuccessfulBurn(t *testing.T) {
	rpc := &stubRPC{lamports: 10 * domain.MinFeeLamports, tokenAmount: 1_000_000}
	burner := NewBurner(rpc, nil, testConfig(), nil)
	signer := testSigner(t)

	receipt, err := burner.Burn(context.Background(), signer, 1000)
	if err != nil {
		t.Fatalf("Burn: %v", err)
	}

	if rpc.submissions != 1 {
		t.Errorf("expected exactly 1 submission, got %d", rpc.submissions)
	}
	if receipt.Signer != signer.PublicKey() {
		t.Errorf("receipt signer mismatch: %s", receipt.Signer)
	}
	// The fixed protocol amount is burned, not the requested amount.
	if receipt.Amount != domain.FixedBurnAmount {
		t.Errorf("expected burned amount %d, got %d", domain.FixedBurnAmount, receipt.Amount)
	}
	if !receipt.Confirmed {
		t.Error("expected confirmed receipt")
	}
	if receipt.Slot != 777 {
		t.Errorf("expected slot 777, got %d", receipt.Slot)
	}
}

func TestBurner_ConfirmationRequiresPolling(t *testing.T) {
	rpc := &stubRPC{lamports: 10 * domain.MinFeeLamports, tokenAmount: 1_000_000, confirmAfter: 3}
	burner := NewBurner(rpc, nil, testConfig(), nil)

	receipt, err := burner.Burn(context.Background(), testSigner(t), 1000)
	if err != nil {
		t.Fatalf("Burn: %v", err)
	}
	if !receipt.Confirmed {
		t.Error("expected confirmed receipt")
	}
	if rpc.statusPolls <= 3 {
		t.Errorf("expected more than 3 status polls, got %d", rpc.statusPolls)
	}
}

func TestBurner_SubmissionFailure(t *testing.T) {
	rpc := &stubRPC{lamports: 10 * domain.MinFeeLamports, tokenAmount: 1_000_000, sendErr: errors.New("node rejected")}
	burner := NewBurner(rpc, nil, testConfig(), nil)

	_, err := burner.Burn(context.Background(), testSigner(t), 1000)

	var burnErr *BurnFailedError
	if !errors.As(err, &burnErr) {
		t.Fatalf("expected BurnFailedError, got %v", err)
	}
	// No implicit retry of the submission.
	if rpc.submissions != 1 {
		t.Errorf("expected exactly 1 submission attempt, got %d", rpc.submissions)
	}
}
