package kvstore

import (
	"context"
	"encoding/json"
	"time"
)

// Store is the shared key-value contract used by the worker for soft state
// such as endpoint failure streaks. Operations are individually atomic and
// every write carries a TTL; the absence of a key is meaningful, so backends
// must never resurrect expired values.
type Store interface {
	// Get returns the raw value and whether the key exists.
	Get(ctx context.Context, key string) ([]byte, bool, error)

	// Set stores the value with the given TTL, overwriting any existing value.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error

	// SetIfNotExists stores the value only when the key is absent.
	// Returns true when the value was stored.
	SetIfNotExists(ctx context.Context, key string, value []byte, ttl time.Duration) (bool, error)

	// Delete removes the key. Deleting an absent key is not an error.
	Delete(ctx context.Context, key string) error
}

// GetJSON reads a key and unmarshals it into T. The second return value
// reports whether the key existed.
func GetJSON[T any](ctx context.Context, s Store, key string) (T, bool, error) {
	var v T
	raw, ok, err := s.Get(ctx, key)
	if err != nil || !ok {
		return v, false, err
	}
	if err := json.Unmarshal(raw, &v); err != nil {
		return v, false, err
	}
	return v, true, nil
}

// SetJSON marshals v and stores it under key with the given TTL.
func SetJSON[T any](ctx context.Context, s Store, key string, v T, ttl time.Duration) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return s.Set(ctx, key, raw, ttl)
}

// SetJSONIfNotExists marshals v and stores it only when key is absent.
func SetJSONIfNotExists[T any](ctx context.Context, s Store, key string, v T, ttl time.Duration) (bool, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return false, err
	}
	return s.SetIfNotExists(ctx, key, raw, ttl)
}
