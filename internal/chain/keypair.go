package chain

import (
	"crypto/ed25519"
	"fmt"

	"github.com/gagliardetto/solana-go"
)

// Keypair is an ed25519 signing key with its base58 address.
type Keypair struct {
	private solana.PrivateKey
}

func NewKeypair(key ed25519.PrivateKey) Keypair {
	return Keypair{private: solana.PrivateKey(key)}
}

// KeypairFromBase58 parses a 64-byte secret key in the usual wallet export format.
func KeypairFromBase58(encoded string) (Keypair, error) {
	key, err := solana.PrivateKeyFromBase58(encoded)
	if err != nil {
		return Keypair{}, fmt.Errorf("failed to decode keypair: %w", err)
	}
	if len(key) != ed25519.PrivateKeySize {
		return Keypair{}, fmt.Errorf("keypair must be %d bytes, got %d", ed25519.PrivateKeySize, len(key))
	}
	return Keypair{private: key}, nil
}

func (k Keypair) Address() string {
	if len(k.private) != ed25519.PrivateKeySize {
		return ""
	}
	return k.private.PublicKey().String()
}

func (k Keypair) PrivateKey() solana.PrivateKey {
	return k.private
}

func (k Keypair) IsZero() bool {
	return len(k.private) == 0
}

// LamportsToSOL formats base units as an exact decimal string.
func LamportsToSOL(lamports uint64) string {
	whole := lamports / LamportsPerSOL
	frac := lamports % LamportsPerSOL
	if frac == 0 {
		return fmt.Sprintf("%d", whole)
	}
	s := fmt.Sprintf("%d.%09d", whole, frac)
	for s[len(s)-1] == '0' {
		s = s[:len(s)-1]
	}
	return s
}
