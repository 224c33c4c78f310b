package journal

import (
	"context"
	"sort"
	"sync"
)

// MemoryRepository keeps entries in memory for tests and short-lived runs.
type MemoryRepository struct {
	mu      sync.RWMutex
	entries []*Entry
	closed  bool
}

// NewMemoryRepository creates an empty in-memory journal.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{}
}

func (r *MemoryRepository) Record(ctx context.Context, entry *Entry) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return ErrClosed
	}
	cp := *entry
	r.entries = append(r.entries, &cp)
	return nil
}

func (r *MemoryRepository) List(ctx context.Context, limit int) ([]*Entry, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*Entry, len(r.entries))
	copy(out, r.entries)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].StartedAt.After(out[j].StartedAt)
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *MemoryRepository) DeleteOld(ctx context.Context, olderThanDays int) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	before := cutoff(olderThanDays)
	kept := r.entries[:0]
	var removed int64
	for _, e := range r.entries {
		if e.StartedAt.Before(before) {
			removed++
			continue
		}
		kept = append(kept, e)
	}
	r.entries = kept
	return removed, nil
}

func (r *MemoryRepository) Ping(ctx context.Context) error {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.closed {
		return ErrClosed
	}
	return nil
}

func (r *MemoryRepository) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.closed = true
	return nil
}

// NoopRepository discards entries. Used when JOURNAL_DRIVER=none.
type NoopRepository struct{}

func (NoopRepository) Record(ctx context.Context, entry *Entry) error { return nil }

func (NoopRepository) List(ctx context.Context, limit int) ([]*Entry, error) { return nil, nil }

func (NoopRepository) DeleteOld(ctx context.Context, olderThanDays int) (int64, error) {
	return 0, nil
}

func (NoopRepository) Ping(ctx context.Context) error { return nil }

func (NoopRepository) Close() error { return nil }
