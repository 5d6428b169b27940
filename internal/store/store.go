// Package store defines the path-addressed transactional key-value store the
// profile, social graph and score ledger are persisted in.
package store

import (
	"context"
	"errors"
	"net/url"
	"sort"
	"strings"
)

var (
	// ErrNotFound is returned by Get when nothing is stored at the path.
	ErrNotFound = errors.New("store: path not found")
	// ErrConflict is returned by Transact when the optimistic retries are exhausted.
	ErrConflict = errors.New("store: transaction conflict")
	// ErrClosed is returned after Close.
	ErrClosed = errors.New("store: closed")
)

// Writes is a multi-path write set. A nil value deletes the path.
type Writes map[string][]byte

// Set records a write of value at path.
func (w Writes) Set(path string, value []byte) {
	w[path] = value
}

// Delete records a deletion of path.
func (w Writes) Delete(path string) {
	w[path] = nil
}

// Paths returns the written paths in lexical order.
func (w Writes) Paths() []string {
	paths := make([]string, 0, len(w))
	for p := range w {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	return paths
}

// TxFunc receives a snapshot of the watched paths (absent paths are omitted)
// and returns the writes to commit. It may be invoked more than once when the
// transaction is retried, so it must not have side effects beyond its result.
type TxFunc func(current map[string][]byte) (Writes, error)

// Store is implemented by every backend.
type Store interface {
	// Get reads one path.
	Get(ctx context.Context, path string) ([]byte, error)
	// GetMany reads several paths from one snapshot.
	GetMany(ctx context.Context, paths []string) (map[string][]byte, error)
	// Update applies all writes atomically.
	Update(ctx context.Context, writes Writes) error
	// Transact runs an optimistic read-modify-write over paths. The writes
	// returned by fn commit only if none of the watched paths changed since
	// they were read; otherwise fn is run again on a fresh snapshot. An error
	// from fn aborts without writing and is returned unchanged.
	Transact(ctx context.Context, paths []string, fn TxFunc) error
	// Scan returns every entry whose path starts with prefix.
	Scan(ctx context.Context, prefix string) (map[string][]byte, error)
	// Ping checks connectivity.
	Ping(ctx context.Context) error
	// Close releases the backend.
	Close() error
}

// Join builds a path from segments, escaping each one.
func Join(segments ...string) string {
	escaped := make([]string, len(segments))
	for i, s := range segments {
		escaped[i] = url.PathEscape(s)
	}
	return strings.Join(escaped, "/")
}

// Prefix builds a scan prefix ending in a separator.
func Prefix(segments ...string) string {
	return Join(segments...) + "/"
}

// Split returns the unescaped segments of path.
func Split(path string) []string {
	parts := strings.Split(path, "/")
	for i, p := range parts {
		if s, err := url.PathUnescape(p); err == nil {
			parts[i] = s
		}
	}
	return parts
}
