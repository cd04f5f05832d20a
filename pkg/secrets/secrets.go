package secrets

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"errors"
	"io"
)

// Encryption is the platform-wide encryption context used to protect endpoint
// signing secrets at rest. The zero value is not usable; construct with New or
// NewNoop.
//
// In noop mode Encrypt and Decrypt pass data through unchanged. This mirrors
// deployments that rely on disk-level encryption and keeps test fixtures
// byte-stable.
type Encryption struct {
	key  []byte
	noop bool
}

// New creates an encryption context from a 32-byte main key.
func New(mainKey []byte) (Encryption, error) {
	if len(mainKey) != KeySize {
		return Encryption{}, ErrInvalidMainKey
	}
	key, err := deriveKey(mainKey)
	if err != nil {
		return Encryption{}, err
	}
	return Encryption{key: key}, nil
}

// NewNoop creates a pass-through encryption context.
func NewNoop() Encryption {
	return Encryption{noop: true}
}

// Enabled reports whether real encryption is configured.
func (e Encryption) Enabled() bool {
	return !e.noop
}

// Encrypt seals data with AES-256-GCM. The returned ciphertext is
// nonce + encrypted data + tag.
func (e Encryption) Encrypt(data []byte) ([]byte, error) {
	if e.noop {
		return data, nil
	}

	block, err := aes.NewCipher(e.key)
	if err != nil {
		return nil, errors.Join(ErrEncryptionFailed, err)
	}

	aesGCM, err := cipher.NewGCM(block)
	if err != nil {
		return nil, errors.Join(ErrEncryptionFailed, err)
	}

	nonce := make([]byte, aesGCM.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, errors.Join(ErrEncryptionFailed, err)
	}

	return aesGCM.Seal(nonce, nonce, data, nil), nil
}

// Decrypt opens ciphertext produced by Encrypt.
func (e Encryption) Decrypt(ciphertext []byte) ([]byte, error) {
	if e.noop {
		return ciphertext, nil
	}

	block, err := aes.NewCipher(e.key)
	if err != nil {
		return nil, errors.Join(ErrDecryptionFailed, err)
	}

	aesGCM, err := cipher.NewGCM(block)
	if err != nil {
		return nil, errors.Join(ErrDecryptionFailed, err)
	}

	nonceSize := aesGCM.NonceSize()
	if len(ciphertext) < nonceSize {
		return nil, ErrInvalidCiphertext
	}

	nonce, ciphertext := ciphertext[:nonceSize], ciphertext[nonceSize:]

	plaintext, err := aesGCM.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return nil, errors.Join(ErrDecryptionFailed, err)
	}

	return plaintext, nil
}
