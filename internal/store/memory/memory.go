// Package memory provides an in-process Store used by tests and local runs.
// Every operation holds one mutex, so transactions are trivially
// linearizable and never conflict.
package memory

import (
	"context"
	"strings"
	"sync"

	"arcade/internal/store"
)

// Store is a map-backed store.Store.
type Store struct {
	mu     sync.Mutex
	data   map[string][]byte
	closed bool

	// FailWith, when set, makes every operation return that error. Tests use
	// it to simulate an unreachable backend.
	FailWith error
}

var _ store.Store = (*Store)(nil)

// New returns an empty store.
func New() *Store {
	return &Store{data: make(map[string][]byte)}
}

func (s *Store) check(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s.closed {
		return store.ErrClosed
	}
	return s.FailWith
}

func clone(b []byte) []byte {
	if b == nil {
		return nil
	}
	out := make([]byte, len(b))
	copy(out, b)
	return out
}

// Get implements store.Store.
func (s *Store) Get(ctx context.Context, path string) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.check(ctx); err != nil {
		return nil, err
	}
	v, ok := s.data[path]
	if !ok {
		return nil, store.ErrNotFound
	}
	return clone(v), nil
}

// GetMany implements store.Store.
func (s *Store) GetMany(ctx context.Context, paths []string) (map[string][]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.check(ctx); err != nil {
		return nil, err
	}
	return s.snapshot(paths), nil
}

func (s *Store) snapshot(paths []string) map[string][]byte {
	out := make(map[string][]byte, len(paths))
	for _, p := range paths {
		if v, ok := s.data[p]; ok {
			out[p] = clone(v)
		}
	}
	return out
}

func (s *Store) apply(writes store.Writes) {
	for p, v := range writes {
		if v == nil {
			delete(s.data, p)
			continue
		}
		s.data[p] = clone(v)
	}
}

// Update implements store.Store.
func (s *Store) Update(ctx context.Context, writes store.Writes) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.check(ctx); err != nil {
		return err
	}
	s.apply(writes)
	return nil
}

// Transact implements store.Store.
func (s *Store) Transact(ctx context.Context, paths []string, fn store.TxFunc) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.check(ctx); err != nil {
		return err
	}
	writes, err := fn(s.snapshot(paths))
	if err != nil {
		return err
	}
	s.apply(writes)
	return nil
}

// Scan implements store.Store.
func (s *Store) Scan(ctx context.Context, prefix string) (map[string][]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.check(ctx); err != nil {
		return nil, err
	}
	out := make(map[string][]byte)
	for p, v := range s.data {
		if strings.HasPrefix(p, prefix) {
			out[p] = clone(v)
		}
	}
	return out, nil
}

// Ping implements store.Store.
func (s *Store) Ping(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.check(ctx)
}

// Close implements store.Store.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

// Len returns the number of stored paths.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.data)
}
