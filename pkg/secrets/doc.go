// Package secrets encrypts endpoint signing keys at rest with AES-256-GCM.
// The cipher key is derived from a single platform main key via HKDF. A noop
// mode passes data through unchanged for deployments that encrypt at the disk
// layer and for deterministic test fixtures.
package secrets
