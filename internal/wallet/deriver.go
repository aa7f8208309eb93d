package wallet

import (
	"fmt"

	"casino-settlement-go/internal/chain"

	"github.com/tyler-smith/go-bip39"
)

const (
	purpose  = 44
	coinType = 501
)

// Deriver maps a user index to a deposit keypair along m/44'/501'/index'/0'.
// The same mnemonic and index always give the same address, so no per-user
// key material is stored.
type Deriver struct {
	seed []byte
}

func NewDeriver(mnemonic string) (*Deriver, error) {
	seed, err := bip39.NewSeedWithErrorChecking(mnemonic, "")
	if err != nil {
		return nil, fmt.Errorf("invalid mnemonic: %w", err)
	}
	return &Deriver{seed: seed}, nil
}

func (d *Deriver) KeypairFor(index uint32) (chain.Keypair, error) {
	key, err := derivePath(d.seed, purpose, coinType, index, 0)
	if err != nil {
		return chain.Keypair{}, fmt.Errorf("failed to derive keypair for index %d: %w", index, err)
	}
	return chain.NewKeypair(key), nil
}

func (d *Deriver) AddressFor(index uint32) (string, error) {
	kp, err := d.KeypairFor(index)
	if err != nil {
		return "", err
	}
	return kp.Address(), nil
}
