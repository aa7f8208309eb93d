package wallet

import (
	"crypto/ed25519"
	"crypto/hmac"
	"crypto/sha512"
	"encoding/binary"
	"fmt"
)

const hardenedOffset uint32 = 0x80000000

// ed25519 only supports hardened derivation (SLIP-0010).
type extendedKey struct {
	key       []byte
	chainCode []byte
}

func masterKey(seed []byte) extendedKey {
	mac := hmac.New(sha512.New, []byte("ed25519 seed"))
	mac.Write(seed)
	sum := mac.Sum(nil)
	return extendedKey{key: sum[:32], chainCode: sum[32:]}
}

func (k extendedKey) child(index uint32) extendedKey {
	data := make([]byte, 0, 37)
	data = append(data, 0x00)
	data = append(data, k.key...)
	data = binary.BigEndian.AppendUint32(data, index|hardenedOffset)

	mac := hmac.New(sha512.New, k.chainCode)
	mac.Write(data)
	sum := mac.Sum(nil)
	return extendedKey{key: sum[:32], chainCode: sum[32:]}
}

// derivePath walks seed down a fully hardened path such as 44'/501'/7'/0'.
func derivePath(seed []byte, path ...uint32) (ed25519.PrivateKey, error) {
	k := masterKey(seed)
	for _, index := range path {
		if index >= hardenedOffset {
			return nil, fmt.Errorf("path index %d out of range", index)
		}
		k = k.child(index)
	}
	return ed25519.NewKeyFromSeed(k.key), nil
}
