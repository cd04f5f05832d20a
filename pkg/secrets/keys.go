package secrets

import (
	"crypto/rand"
	"crypto/sha256"
	"errors"
	"io"

	"golang.org/x/crypto/hkdf"
)

const (
	// KeySize is the required size of the main encryption key
	KeySize = 32 // 256 bits for AES-256

	// saltInfo provides domain separation for HKDF key derivation
	saltInfo = "hookrelay-endpoint-secrets-v1"
)

// deriveKey expands the main key through HKDF so the raw configured key never
// touches the cipher directly.
func deriveKey(mainKey []byte) ([]byte, error) {
	hkdfReader := hkdf.New(sha256.New, mainKey, nil, []byte(saltInfo))

	derivedKey := make([]byte, KeySize)
	if _, err := io.ReadFull(hkdfReader, derivedKey); err != nil {
		return nil, errors.Join(ErrKeyDerivationFailed, err)
	}

	return derivedKey, nil
}

// GenerateKey creates a new random 32-byte key suitable for encryption
func GenerateKey() ([]byte, error) {
	key := make([]byte, KeySize)
	if _, err := rand.Read(key); err != nil {
		return nil, err
	}
	return key, nil
}
