package store

import (
	"context"
	"time"
)

// NullStore is a no-op store that never keeps anything.
// Useful for testing or when persistence should be disabled.
type NullStore struct{}

// NewNullStore creates a null store.
func NewNullStore() Store {
	return &NullStore{}
}

// Get always reports a miss.
func (s *NullStore) Get(context.Context, string) ([]byte, bool, error) {
	return nil, false, nil
}

// Put does nothing.
func (s *NullStore) Put(context.Context, string, []byte, time.Duration) error {
	return nil
}

// Delete does nothing.
func (s *NullStore) Delete(context.Context, string) error {
	return nil
}

// List always returns no keys.
func (s *NullStore) List(context.Context, string) ([]string, error) {
	return nil, nil
}

// Close does nothing.
func (s *NullStore) Close() error {
	return nil
}

// Ensure NullStore implements Store.
var _ Store = (*NullStore)(nil)
