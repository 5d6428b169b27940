package repository

import (
	"context"

	"arcade/internal/store"
)

// SequenceAllocator issues profile IDs.
type SequenceAllocator interface {
	Allocate(ctx context.Context) (uint64, error)
}

type sequenceAllocator struct {
	store store.Store
}

// NewSequenceAllocator creates a new allocator over s.
func NewSequenceAllocator(s store.Store) SequenceAllocator {
	return &sequenceAllocator{store: s}
}

// nextSequence computes the counter value following the one in snapshot.
// The caller writes it back within the same transaction.
func nextSequence(snapshot map[string][]byte) (uint64, error) {
	path := SequenceCounterPath()
	raw, ok := snapshot[path]
	if !ok {
		return 1, nil
	}
	current, err := decodeUint(path, raw)
	if err != nil {
		return 0, err
	}
	return current + 1, nil
}

func (a *sequenceAllocator) Allocate(ctx context.Context) (uint64, error) {
	path := SequenceCounterPath()
	var id uint64
	err := a.store.Transact(ctx, []string{path}, func(current map[string][]byte) (store.Writes, error) {
		next, err := nextSequence(current)
		if err != nil {
			return nil, err
		}
		id = next
		return store.Writes{path: encodeUint(next)}, nil
	})
	if err != nil {
		return 0, storeError(err)
	}
	return id, nil
}
