// Package memorystore provides an in-process Storage implementation for
// tests and single-context use.
package memorystore

import (
	"context"
	"sync"

	"github.com/go-faster/errors"

	"github.com/keysforall/cart-service/internal/storage"
)

var _ storage.Storage = (*Store)(nil)

// Store is a map-backed Storage. Values are copied on the way in and out so
// callers can never alias the stored slice.
type Store struct {
	mu     sync.RWMutex
	values map[string][]byte

	// FailSaves makes every Save return an error; used to test that carts
	// keep working in memory when persistence is unavailable.
	FailSaves bool
}

// New returns an empty Store.
func New() *Store {
	return &Store{values: make(map[string][]byte)}
}

func (s *Store) Load(_ context.Context, key string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.values[key]
	if !ok {
		return nil, storage.ErrNotFound
	}
	out := make([]byte, len(v))
	copy(out, v)
	return out, nil
}

func (s *Store) Save(_ context.Context, key string, value []byte) error {
	if s.FailSaves {
		return errSaveFailed
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	v := make([]byte, len(value))
	copy(v, value)
	s.values[key] = v
	return nil
}

func (s *Store) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.values, key)
	return nil
}

var errSaveFailed = errors.New("save failed")
