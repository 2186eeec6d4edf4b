package regs

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
)

var errUnreachable = errors.New("remote unreachable")

// newTestStore opens a fresh SQLite store in a temp dir.
func newTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := NewStore(filepath.Join(t.TempDir(), "regs.db"))
	if err != nil {
		t.Fatalf("NewStore failed: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}

// mockRemote is a RemoteStore whose behaviour is set per test. Unset
// functions fall back to an in-memory table keyed by id.
type mockRemote struct {
	mu      sync.Mutex
	records map[string]Record

	upsertFn func(ctx context.Context, collection, id string, rec Record) error
	queryFn  func(ctx context.Context, collection, owner string) ([]Record, error)
	deleteFn func(ctx context.Context, collection, id string) error

	upserts []Record
	deletes []string
	queries int
}

func newMockRemote(seed ...Record) *mockRemote {
	m := &mockRemote{records: make(map[string]Record)}
	for _, r := range seed {
		m.records[r.ID] = r
	}
	return m
}

func (m *mockRemote) Upsert(ctx context.Context, collection, id string, rec Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.upserts = append(m.upserts, rec)
	if m.upsertFn != nil {
		if err := m.upsertFn(ctx, collection, id, rec); err != nil {
			return err
		}
	}
	m.records[id] = rec
	return nil
}

func (m *mockRemote) QueryByOwner(ctx context.Context, collection, owner string) ([]Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.queries++
	if m.queryFn != nil {
		return m.queryFn(ctx, collection, owner)
	}
	var out []Record
	for _, r := range m.records {
		if r.OwnerID == owner {
			out = append(out, r.Clone())
		}
	}
	return out, nil
}

func (m *mockRemote) Delete(ctx context.Context, collection, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.deletes = append(m.deletes, id)
	if m.deleteFn != nil {
		if err := m.deleteFn(ctx, collection, id); err != nil {
			return err
		}
	}
	delete(m.records, id)
	return nil
}

func (m *mockRemote) has(id string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.records[id]
	return ok
}

func (m *mockRemote) queryCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.queries
}

// memSlots is an in-memory SlotStore with switchable failures.
type memSlots struct {
	mu      sync.Mutex
	data    map[string][]byte
	failGet bool
	failPut bool
	// failKey fails writes to one slot only
	failKey string
}

func newMemSlots() *memSlots {
	return &memSlots{data: make(map[string][]byte)}
}

func (s *memSlots) GetSlot(_ context.Context, key string) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failGet {
		return nil, errors.New("disk read error")
	}
	return s.data[key], nil
}

func (s *memSlots) PutSlot(_ context.Context, key string, value []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failPut || (s.failKey != "" && key == s.failKey) {
		return errors.New("disk full")
	}
	s.data[key] = append([]byte(nil), value...)
	return nil
}

// rec builds a record for tests.
func rec(id, owner, ts string, synced *bool) Record {
	return Record{
		ID:           id,
		OwnerID:      owner,
		Title:        "Record " + id,
		Category:     CategoryOthers,
		Measurements: EmptyMeasurements(CategoryOthers),
		Timestamp:    ts,
		Synced:       synced,
	}
}

func ids(records []Record) []string {
	out := make([]string, len(records))
	for i, r := range records {
		out[i] = r.ID
	}
	return out
}

func equalIDs(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
