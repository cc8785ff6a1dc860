package solana

import (
	"bytes"
	"crypto/ed25519"
	"encoding/base64"
	"encoding/binary"
	"testing"

	"github.com/mr-tron/base58"
)

func testSigner(t *testing.T) *KeypairSigner {
	t.Helper()

	seed := bytes.Repeat([]byte{7}, ed25519.SeedSize)
	signer, err := NewKeypairSigner(ed25519.NewKeyFromSeed(seed))
	if err != nil {
		t.Fatalf("NewKeypairSigner: %v", err)
	}
	return signer
}

func testPubkey(fill byte) string {
	b := make([]byte, 32)
	for i := range b {
		b[i] = fill
	}
	return base58.Encode(b)
}

func TestNewBurnInstruction_Layout(t *testing.T) {
	ix := NewBurnInstruction(testPubkey(1), testPubkey(2), testPubkey(3), 5_000_000_000)

	if ix.ProgramID != TokenProgramID {
		t.Errorf("expected token program, got %s", ix.ProgramID)
	}
	if len(ix.Data) != 9 {
		t.Fatalf("expected 9 data bytes, got %d", len(ix.Data))
	}
	if ix.Data[0] != 8 {
		t.Errorf("expected burn instruction index 8, got %d", ix.Data[0])
	}
	if amount := binary.LittleEndian.Uint64(ix.Data[1:]); amount != 5_000_000_000 {
		t.Errorf("expected amount 5000000000, got %d", amount)
	}

	if len(ix.Accounts) != 3 {
		t.Fatalf("expected 3 accounts, got %d", len(ix.Accounts))
	}
	if !ix.Accounts[0].IsWritable || ix.Accounts[0].IsSigner {
		t.Error("token account must be writable, non-signer")
	}
	if !ix.Accounts[1].IsWritable || ix.Accounts[1].IsSigner {
		t.Error("mint must be writable, non-signer")
	}
	if !ix.Accounts[2].IsSigner {
		t.Error("owner must be a signer")
	}
}

func TestBuildTransaction_SignatureVerifies(t *testing.T) {
	signer := testSigner(t)
	blockhash := testPubkey(9)

	ix := NewBurnInstruction(testPubkey(1), testPubkey(2), signer.PublicKey(), 42)

	encoded, err := BuildTransaction([]Instruction{ix}, blockhash, signer)
	if err != nil {
		t.Fatalf("BuildTransaction: %v", err)
	}

	tx, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		t.Fatalf("decode transaction: %v", err)
	}

	// compact-u16 signature count, then one 64-byte signature, then message.
	if tx[0] != 1 {
		t.Fatalf("expected 1 signature, got %d", tx[0])
	}
	signature := tx[1 : 1+ed25519.SignatureSize]
	message := tx[1+ed25519.SignatureSize:]

	pub, err := base58.Decode(signer.PublicKey())
	if err != nil {
		t.Fatalf("decode pubkey: %v", err)
	}
	if !ed25519.Verify(ed25519.PublicKey(pub), message, signature) {
		t.Error("signature does not verify against message")
	}
}

func TestBuildTransaction_MessageLayout(t *testing.T) {
	signer := testSigner(t)
	blockhashBytes := bytes.Repeat([]byte{9}, 32)
	blockhash := base58.Encode(blockhashBytes)

	tokenAccount := testPubkey(1)
	mint := testPubkey(2)

	ix := NewBurnInstruction(tokenAccount, mint, signer.PublicKey(), 42)

	encoded, err := BuildTransaction([]Instruction{ix}, blockhash, signer)
	if err != nil {
		t.Fatalf("BuildTransaction: %v", err)
	}
	tx, _ := base64.StdEncoding.DecodeString(encoded)
	msg := tx[1+ed25519.SignatureSize:]

	// Header: 1 required signature, 0 readonly signed, 1 readonly unsigned
	// (the token program).
	if msg[0] != 1 || msg[1] != 0 || msg[2] != 1 {
		t.Errorf("unexpected header %v", msg[:3])
	}

	// 4 account keys: owner, token account, mint, program.
	if msg[3] != 4 {
		t.Fatalf("expected 4 account keys, got %d", msg[3])
	}

	keys := msg[4 : 4+4*32]

	ownerBytes, _ := base58.Decode(signer.PublicKey())
	if !bytes.Equal(keys[:32], ownerBytes) {
		t.Error("fee payer must be the first account key")
	}

	programBytes, _ := base58.Decode(TokenProgramID)
	if !bytes.Equal(keys[3*32:], programBytes) {
		t.Error("program must be the last account key")
	}

	// Recent blockhash follows the account keys.
	bh := msg[4+4*32 : 4+4*32+32]
	if !bytes.Equal(bh, blockhashBytes) {
		t.Error("blockhash mismatch in message")
	}
}

func TestBuildTransaction_NoInstructions(t *testing.T) {
	if _, err := BuildTransaction(nil, testPubkey(9), testSigner(t)); err == nil {
		t.Error("expected error for empty instruction list")
	}
}

func TestAppendCompactU16(t *testing.T) {
	cases := []struct {
		v    uint16
		want []byte
	}{
		{0, []byte{0x00}},
		{1, []byte{0x01}},
		{127, []byte{0x7f}},
		{128, []byte{0x80, 0x01}},
		{16383, []byte{0xff, 0x7f}},
		{16384, []byte{0x80, 0x80, 0x01}},
	}

	for _, tc := range cases {
		got := appendCompactU16(nil, tc.v)
		if !bytes.Equal(got, tc.want) {
			t.Errorf("appendCompactU16(%d) = %v, want %v", tc.v, got, tc.want)
		}
	}
}

func TestLoadKeypairFile_Invalid(t *testing.T) {
	if _, err := LoadKeypairFile("/nonexistent/keypair.json"); err == nil {
		t.Error("expected error for missing file")
	}
}
