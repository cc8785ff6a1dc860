package solana

import (
	"crypto/sha256"
	"fmt"

	"filippo.io/edwards25519"
	"github.com/mr-tron/base58"
)

// Well-known program IDs.
const (
	TokenProgramID           = "TokenkegQfeZyiNwAJbNbGKPFXCWuBvf9Ss623VQ5DA"
	AssociatedTokenProgramID = "ATokenGPvbdGVxr1b2hvZbsiqW5xWH25efTNsLJA8knL"
	SystemProgramID          = "11111111111111111111111111111111"
)

// DecodePubkey decodes a base58 public key into its 32-byte form.
func DecodePubkey(pubkey string) ([]byte, error) {
	decoded, err := base58.Decode(pubkey)
	if err != nil {
		return nil, fmt.Errorf("decode pubkey %q: %w", pubkey, err)
	}
	if len(decoded) != 32 {
		return nil, fmt.Errorf("pubkey %q: expected 32 bytes, got %d", pubkey, len(decoded))
	}
	return decoded, nil
}

// DeriveAssociatedTokenAddress derives the associated token account for a
// wallet and mint. Seeds: [wallet, token_program, mint] under the associated
// token program.
func DeriveAssociatedTokenAddress(wallet, mint string) (string, error) {
	walletBytes, err := DecodePubkey(wallet)
	if err != nil {
		return "", err
	}
	mintBytes, err := DecodePubkey(mint)
	if err != nil {
		return "", err
	}
	tokenProgramBytes, err := DecodePubkey(TokenProgramID)
	if err != nil {
		return "", err
	}
	ataProgramBytes, err := DecodePubkey(AssociatedTokenProgramID)
	if err != nil {
		return "", err
	}

	seeds := [][]byte{walletBytes, tokenProgramBytes, mintBytes}
	pda := derivePDA(seeds, ataProgramBytes)
	if pda == "" {
		return "", fmt.Errorf("no valid bump seed for wallet %s mint %s", wallet, mint)
	}
	return pda, nil
}

// derivePDA derives a Program Derived Address using the Solana algorithm.
func derivePDA(seeds [][]byte, programID []byte) string {
	// PDA derivation algorithm:
	// 1. Concatenate all seeds with bump
	// 2. Append program ID and "ProgramDerivedAddress" marker
	// 3. SHA256 hash
	// 4. Find bump seed that results in off-curve point

	for bump := byte(255); bump > 0; bump-- {
		data := make([]byte, 0)
		for _, seed := range seeds {
			data = append(data, seed...)
		}
		data = append(data, bump)
		data = append(data, programID...)
		data = append(data, []byte("ProgramDerivedAddress")...)

		hash := sha256.Sum256(data)

		// Check if point is off the ed25519 curve
		if !isOnCurve(hash[:]) {
			return base58.Encode(hash[:])
		}
	}

	return ""
}

func isOnCurve(point []byte) bool {
	if len(point) != 32 {
		return false
	}
	_, err := new(edwards25519.Point).SetBytes(point)
	return err == nil
}
