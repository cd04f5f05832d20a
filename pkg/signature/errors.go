package signature

import "errors"

var (
	ErrEmptyKey          = errors.New("signing key cannot be empty")
	ErrInvalidEd25519Key = errors.New("invalid ed25519 private key length")
	ErrUnknownSecretKind = errors.New("unknown secret kind")
	ErrSecretDecryption  = errors.New("failed to decrypt signing secret")
)
