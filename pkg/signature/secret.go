package signature

import (
	"crypto/ed25519"
	"crypto/hmac"
	"crypto/sha256"
	"errors"

	"github.com/dmitrymomot/hookrelay/pkg/secrets"
)

// Kind discriminates the signing algorithm of a Secret.
type Kind string

const (
	// KindHmac256 signs with HMAC-SHA256; wire version tag "v1".
	KindHmac256 Kind = "hmac256"
	// KindEd25519 signs with Ed25519; wire version tag "v1a".
	KindEd25519 Kind = "ed25519"
)

// Secret is one endpoint signing key, held encrypted at rest. Blob is the
// ciphertext of the raw key material: the shared key for HMAC, the 64-byte
// private key (seed followed by public key) for Ed25519.
type Secret struct {
	Kind Kind   `json:"kind"`
	Blob []byte `json:"blob"`
}

// NewHmacSecret encrypts the shared key into a Secret.
func NewHmacSecret(enc secrets.Encryption, key []byte) (Secret, error) {
	if len(key) == 0 {
		return Secret{}, ErrEmptyKey
	}
	blob, err := enc.Encrypt(key)
	if err != nil {
		return Secret{}, err
	}
	return Secret{Kind: KindHmac256, Blob: blob}, nil
}

// NewEd25519Secret encrypts an Ed25519 private key into a Secret.
func NewEd25519Secret(enc secrets.Encryption, priv ed25519.PrivateKey) (Secret, error) {
	if len(priv) != ed25519.PrivateKeySize {
		return Secret{}, ErrInvalidEd25519Key
	}
	blob, err := enc.Encrypt(priv)
	if err != nil {
		return Secret{}, err
	}
	return Secret{Kind: KindEd25519, Blob: blob}, nil
}

// Version returns the wire version tag for the secret's algorithm.
func (s Secret) Version() string {
	if s.Kind == KindEd25519 {
		return "v1a"
	}
	return "v1"
}

// sign decrypts the key material and signs toSign. A decryption failure is a
// configuration bug and surfaces as an error.
func (s Secret) sign(enc secrets.Encryption, toSign []byte) ([]byte, error) {
	raw, err := enc.Decrypt(s.Blob)
	if err != nil {
		return nil, errors.Join(ErrSecretDecryption, err)
	}

	switch s.Kind {
	case KindEd25519:
		if len(raw) != ed25519.PrivateKeySize {
			return nil, ErrInvalidEd25519Key
		}
		return ed25519.Sign(ed25519.PrivateKey(raw), toSign), nil
	case KindHmac256:
		mac := hmac.New(sha256.New, raw)
		mac.Write(toSign)
		return mac.Sum(nil), nil
	default:
		return nil, ErrUnknownSecretKind
	}
}

// PublicKey returns the Ed25519 public key for verification purposes.
// Returns an error for non-Ed25519 secrets.
func (s Secret) PublicKey(enc secrets.Encryption) (ed25519.PublicKey, error) {
	if s.Kind != KindEd25519 {
		return nil, ErrUnknownSecretKind
	}
	raw, err := enc.Decrypt(s.Blob)
	if err != nil {
		return nil, errors.Join(ErrSecretDecryption, err)
	}
	if len(raw) != ed25519.PrivateKeySize {
		return nil, ErrInvalidEd25519Key
	}
	return ed25519.PrivateKey(raw).Public().(ed25519.PublicKey), nil
}
