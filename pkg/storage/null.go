package storage

import (
	"context"
	"time"
)

// NullStore is a no-op store that never keeps anything.
// Useful for dry runs or when exports should be discarded.
type NullStore struct{}

// NewNullStore creates a null store.
func NewNullStore() *NullStore {
	return &NullStore{}
}

// Get always returns a miss.
func (NullStore) Get(context.Context, string) ([]byte, bool, error) { return nil, false, nil }

// Set does nothing.
func (NullStore) Set(context.Context, string, []byte, time.Duration) error { return nil }

// Delete does nothing.
func (NullStore) Delete(context.Context, string) error { return nil }

// Keys always returns an empty list.
func (NullStore) Keys(context.Context, string) ([]string, error) { return nil, nil }

// Close does nothing.
func (NullStore) Close() error { return nil }

var _ Store = NullStore{}
