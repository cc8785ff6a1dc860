package solana

import (
	"crypto/ed25519"
	"encoding/base64"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"os"

	"github.com/mr-tron/base58"
)

// Signer can sign ledger transaction messages on behalf of a wallet.
// It abstracts over a locally held keypair and any future remote signer
// (e.g. a connected wallet session).
type Signer interface {
	// PublicKey returns the signer's base58 wallet address.
	PublicKey() string

	// Sign signs a serialized transaction message.
	Sign(message []byte) ([]byte, error)
}

// KeypairSigner signs with a locally held ed25519 keypair.
type KeypairSigner struct {
	priv ed25519.PrivateKey
	pub  string
}

// NewKeypairSigner wraps an ed25519 private key.
func NewKeypairSigner(priv ed25519.PrivateKey) (*KeypairSigner, error) {
	if len(priv) != ed25519.PrivateKeySize {
		return nil, fmt.Errorf("invalid private key size: %d", len(priv))
	}
	pub := priv.Public().(ed25519.PublicKey)
	return &KeypairSigner{
		priv: priv,
		pub:  base58.Encode(pub),
	}, nil
}

// LoadKeypairFile reads a Solana CLI keypair file (JSON array of 64 bytes).
func LoadKeypairFile(path string) (*KeypairSigner, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read keypair file: %w", err)
	}

	var raw []byte
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parse keypair file: %w", err)
	}
	if len(raw) != ed25519.PrivateKeySize {
		return nil, fmt.Errorf("keypair file: expected %d bytes, got %d", ed25519.PrivateKeySize, len(raw))
	}

	return NewKeypairSigner(ed25519.PrivateKey(raw))
}

// PublicKey returns the base58 wallet address.
func (s *KeypairSigner) PublicKey() string {
	return s.pub
}

// Sign signs a serialized transaction message.
func (s *KeypairSigner) Sign(message []byte) ([]byte, error) {
	return ed25519.Sign(s.priv, message), nil
}

var _ Signer = (*KeypairSigner)(nil)

// AccountMeta describes an account referenced by an instruction.
type AccountMeta struct {
	Pubkey     string
	IsSigner   bool
	IsWritable bool
}

// Instruction is a single program invocation within a transaction.
type Instruction struct {
	ProgramID string
	Accounts  []AccountMeta
	Data      []byte
}

// SPL Token program instruction indexes.
const tokenInstructionBurn = 8

// NewBurnInstruction builds an SPL Token Burn instruction.
// Data layout: u8 instruction index, u64 LE amount.
// Accounts: token account (writable), mint (writable), owner (signer).
func NewBurnInstruction(tokenAccount, mint, owner string, amount uint64) Instruction {
	data := make([]byte, 9)
	data[0] = tokenInstructionBurn
	binary.LittleEndian.PutUint64(data[1:], amount)

	return Instruction{
		ProgramID: TokenProgramID,
		Accounts: []AccountMeta{
			{Pubkey: tokenAccount, IsWritable: true},
			{Pubkey: mint, IsWritable: true},
			{Pubkey: owner, IsSigner: true, IsWritable: true},
		},
		Data: data,
	}
}

// BuildTransaction compiles a legacy transaction with a single fee-payer
// signature and returns it base64-encoded, ready for sendTransaction.
func BuildTransaction(instructions []Instruction, recentBlockhash string, signer Signer) (string, error) {
	if len(instructions) == 0 {
		return "", fmt.Errorf("no instructions")
	}

	message, err := compileMessage(signer.PublicKey(), instructions, recentBlockhash)
	if err != nil {
		return "", fmt.Errorf("compile message: %w", err)
	}

	signature, err := signer.Sign(message)
	if err != nil {
		return "", fmt.Errorf("sign message: %w", err)
	}
	if len(signature) != ed25519.SignatureSize {
		return "", fmt.Errorf("invalid signature size: %d", len(signature))
	}

	// Wire format: compact-u16 signature count, signatures, message.
	tx := make([]byte, 0, 1+len(signature)+len(message))
	tx = appendCompactU16(tx, 1)
	tx = append(tx, signature...)
	tx = append(tx, message...)

	return base64.StdEncoding.EncodeToString(tx), nil
}

// compiledAccount tracks merged signer/writable flags for one account key.
type compiledAccount struct {
	pubkey     string
	isSigner   bool
	isWritable bool
}

// compileMessage serializes a legacy transaction message.
// Layout: header (3 bytes), compact array of account keys, recent blockhash,
// compact array of compiled instructions.
func compileMessage(feePayer string, instructions []Instruction, recentBlockhash string) ([]byte, error) {
	accounts := collectAccounts(feePayer, instructions)

	index := make(map[string]int, len(accounts))
	for i, a := range accounts {
		index[a.pubkey] = i
	}

	var numRequiredSignatures, numReadonlySigned, numReadonlyUnsigned int
	for _, a := range accounts {
		if a.isSigner {
			numRequiredSignatures++
			if !a.isWritable {
				numReadonlySigned++
			}
		} else if !a.isWritable {
			numReadonlyUnsigned++
		}
	}

	blockhashBytes, err := base58.Decode(recentBlockhash)
	if err != nil {
		return nil, fmt.Errorf("decode blockhash: %w", err)
	}
	if len(blockhashBytes) != 32 {
		return nil, fmt.Errorf("blockhash: expected 32 bytes, got %d", len(blockhashBytes))
	}

	msg := []byte{
		byte(numRequiredSignatures),
		byte(numReadonlySigned),
		byte(numReadonlyUnsigned),
	}

	msg = appendCompactU16(msg, uint16(len(accounts)))
	for _, a := range accounts {
		keyBytes, err := DecodePubkey(a.pubkey)
		if err != nil {
			return nil, err
		}
		msg = append(msg, keyBytes...)
	}

	msg = append(msg, blockhashBytes...)

	msg = appendCompactU16(msg, uint16(len(instructions)))
	for _, ix := range instructions {
		programIdx, ok := index[ix.ProgramID]
		if !ok {
			return nil, fmt.Errorf("program %s not in account list", ix.ProgramID)
		}
		msg = append(msg, byte(programIdx))

		msg = appendCompactU16(msg, uint16(len(ix.Accounts)))
		for _, meta := range ix.Accounts {
			msg = append(msg, byte(index[meta.Pubkey]))
		}

		msg = appendCompactU16(msg, uint16(len(ix.Data)))
		msg = append(msg, ix.Data...)
	}

	return msg, nil
}

// collectAccounts orders accounts per the legacy message convention:
// fee payer first, then writable signers, readonly signers, writable
// non-signers, readonly non-signers (program IDs last among them).
func collectAccounts(feePayer string, instructions []Instruction) []compiledAccount {
	merged := map[string]*compiledAccount{
		feePayer: {pubkey: feePayer, isSigner: true, isWritable: true},
	}
	var order []string
	order = append(order, feePayer)

	addAccount := func(pubkey string, isSigner, isWritable bool) {
		if a, ok := merged[pubkey]; ok {
			a.isSigner = a.isSigner || isSigner
			a.isWritable = a.isWritable || isWritable
			return
		}
		merged[pubkey] = &compiledAccount{pubkey: pubkey, isSigner: isSigner, isWritable: isWritable}
		order = append(order, pubkey)
	}

	for _, ix := range instructions {
		for _, meta := range ix.Accounts {
			addAccount(meta.Pubkey, meta.IsSigner, meta.IsWritable)
		}
		addAccount(ix.ProgramID, false, false)
	}

	rank := func(a *compiledAccount) int {
		switch {
		case a.pubkey == feePayer:
			return 0
		case a.isSigner && a.isWritable:
			return 1
		case a.isSigner:
			return 2
		case a.isWritable:
			return 3
		default:
			return 4
		}
	}

	accounts := make([]compiledAccount, 0, len(order))
	for r := 0; r <= 4; r++ {
		for _, pubkey := range order {
			a := merged[pubkey]
			if rank(a) == r {
				accounts = append(accounts, *a)
			}
		}
	}
	return accounts
}

// appendCompactU16 appends a compact-u16 (shortvec) encoded length.
func appendCompactU16(b []byte, v uint16) []byte {
	for {
		if v < 0x80 {
			return append(b, byte(v))
		}
		b = append(b, byte(v&0x7f)|0x80)
		v >>= 7
	}
}
