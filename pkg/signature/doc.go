// Package signature produces the webhook signature header for outbound
// attempts. Each endpoint carries one current secret plus optionally rotated
// old secrets; every attempt is signed with all of them so receivers keep
// verifying across key rotation. Two algorithms are supported: HMAC-SHA256
// (version tag "v1") and Ed25519 ("v1a"). Key material is stored encrypted
// through pkg/secrets and decrypted on demand at signing time.
package signature
