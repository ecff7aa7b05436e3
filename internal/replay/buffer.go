// Package replay stores two-timescale hierarchical experience and samples
// uniform batches for off-policy updates.
package replay

import (
	"errors"
	"math/rand"
	"sync"
)

var (
	// ErrInsufficientData is returned by Sample when the buffer holds fewer
	// entries than the requested batch size. Callers skip the update.
	ErrInsufficientData = errors.New("replay: insufficient data for batch")
)

// Buffer is a fixed-capacity FIFO replay buffer over meta-transitions.
// Add and Sample are safe for concurrent use by data-parallel rollout
// collectors feeding one trainer.
type Buffer struct {
	mu       sync.Mutex
	entries  []Entry
	next     int // oldest slot once at capacity
	capacity int
	rng      *rand.Rand
}

// NewBuffer creates a buffer holding at most capacity entries. rng drives
// batch sampling and must not be shared unguarded with other components.
func NewBuffer(capacity int, rng *rand.Rand) (*Buffer, error) {
	if capacity <= 0 {
		return nil, errors.New("replay: capacity must be greater than zero")
	}
	if rng == nil {
		return nil, errors.New("replay: rng must not be nil")
	}
	return &Buffer{
		entries:  make([]Entry, 0, capacity),
		capacity: capacity,
		rng:      rng,
	}, nil
}

// Add appends an entry, evicting the oldest one when at capacity.
func (b *Buffer) Add(e Entry) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if len(b.entries) < b.capacity {
		b.entries = append(b.entries, e)
		return
	}
	// Circular overwrite of the oldest slot.
	b.entries[b.next] = e
	b.next = (b.next + 1) % b.capacity
}

// Sample draws batchSize distinct entries uniformly at random. It returns
// ErrInsufficientData when fewer than batchSize entries are stored.
func (b *Buffer) Sample(batchSize int) ([]Entry, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if batchSize <= 0 {
		return nil, errors.New("replay: batch size must be greater than zero")
	}
	if len(b.entries) < batchSize {
		return nil, ErrInsufficientData
	}

	idx := b.rng.Perm(len(b.entries))[:batchSize]
	out := make([]Entry, batchSize)
	for i, j := range idx {
		out[i] = b.entries[j]
	}
	return out, nil
}

// Len returns the number of stored entries.
func (b *Buffer) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.entries)
}

// Capacity returns the maximum number of entries the buffer can hold.
func (b *Buffer) Capacity() int { return b.capacity }

// Contains reports whether any stored entry has the given episode ID.
func (b *Buffer) Contains(episodeID string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, e := range b.entries {
		if e.Meta.EpisodeID == episodeID {
			return true
		}
	}
	return false
}
