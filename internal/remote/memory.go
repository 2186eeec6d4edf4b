package remote

import (
	"context"
	"sort"
	"sync"

	"github.com/hyperengineering/regs"
)

// MemoryBackend keeps records in process memory.
type MemoryBackend struct {
	mu          sync.RWMutex
	collections map[string]map[string]regs.Record
}

var _ Backend = (*MemoryBackend)(nil)

// NewMemoryBackend creates an empty backend.
func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{collections: make(map[string]map[string]regs.Record)}
}

// Upsert creates or replaces the record stored under id.
func (b *MemoryBackend) Upsert(_ context.Context, collection, id string, rec regs.Record) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	coll, ok := b.collections[collection]
	if !ok {
		coll = make(map[string]regs.Record)
		b.collections[collection] = coll
	}
	rec = rec.Clone()
	rec.ID = id
	coll[id] = rec
	return nil
}

// QueryByOwner returns the owner's records ordered by id.
func (b *MemoryBackend) QueryByOwner(_ context.Context, collection, owner string) ([]regs.Record, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	out := []regs.Record{}
	if owner == "" {
		return out, nil
	}
	for _, rec := range b.collections[collection] {
		if rec.OwnerID == owner {
			out = append(out, rec.Clone())
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// Delete removes id if present.
func (b *MemoryBackend) Delete(_ context.Context, collection, id string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.collections[collection], id)
	return nil
}

// Get returns a stored record, for inspection.
func (b *MemoryBackend) Get(collection, id string) (regs.Record, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	rec, ok := b.collections[collection][id]
	return rec.Clone(), ok
}

// Len returns the number of records in collection.
func (b *MemoryBackend) Len(collection string) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.collections[collection])
}

// Ping always succeeds.
func (b *MemoryBackend) Ping(context.Context) error { return nil }
