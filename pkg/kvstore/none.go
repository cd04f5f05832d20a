package kvstore

import (
	"context"
	"time"
)

// NoneStore is a no-op Store. Reads report absence, writes succeed without
// storing anything. Running the worker with it degrades the health tracker
// into "never disable", which is an accepted operating mode.
type NoneStore struct{}

// NewNoneStore creates a no-op store.
func NewNoneStore() NoneStore {
	return NoneStore{}
}

func (NoneStore) Get(context.Context, string) ([]byte, bool, error) {
	return nil, false, nil
}

func (NoneStore) Set(context.Context, string, []byte, time.Duration) error {
	return nil
}

func (NoneStore) SetIfNotExists(context.Context, string, []byte, time.Duration) (bool, error) {
	return false, nil
}

func (NoneStore) Delete(context.Context, string) error {
	return nil
}
