package regs

import (
	"context"
	"encoding/json"
	"log/slog"
	"slices"

	"github.com/hyperengineering/regs/internal/logging"
)

// LocalStore persists the whole record collection under a single key.
// Load never fails on missing or corrupt content; both read as empty.
type LocalStore interface {
	Load(ctx context.Context) ([]Record, error)
	Save(ctx context.Context, records []Record) error
}

// RecordStore reads and writes the record collection stored in one slot,
// plus the set of record ids whose remote delete has not gone through yet.
type RecordStore struct {
	slots  SlotStore
	key    string
	logger *slog.Logger
}

// NewRecordStore binds a record collection to the slot named key.
func NewRecordStore(slots SlotStore, key string, logger *slog.Logger) *RecordStore {
	if key == "" {
		key = DefaultSlot
	}
	if logger == nil {
		logger = logging.Discard()
	}
	return &RecordStore{slots: slots, key: key, logger: logger}
}

// Key returns the slot name holding the collection.
func (s *RecordStore) Key() string {
	return s.key
}

func (s *RecordStore) tombstoneKey() string {
	return s.key + ".pending_deletes"
}

// Load returns the persisted collection.
func (s *RecordStore) Load(ctx context.Context) ([]Record, error) {
	raw, err := s.slots.GetSlot(ctx, s.key)
	if err != nil {
		return nil, &LocalStorageError{Op: "load", Err: err}
	}
	if len(raw) == 0 {
		return []Record{}, nil
	}

	var records []Record
	if err := json.Unmarshal(raw, &records); err != nil {
		s.logger.Warn("discarding unreadable record collection", "slot", s.key, "error", err)
		return []Record{}, nil
	}
	if records == nil {
		records = []Record{}
	}
	return records, nil
}

// Save replaces the persisted collection.
func (s *RecordStore) Save(ctx context.Context, records []Record) error {
	if records == nil {
		records = []Record{}
	}
	raw, err := json.Marshal(records)
	if err != nil {
		return &LocalStorageError{Op: "save", Err: err}
	}
	if err := s.slots.PutSlot(ctx, s.key, raw); err != nil {
		return &LocalStorageError{Op: "save", Err: err}
	}
	return nil
}

// Tombstones returns ids deleted locally whose remote delete is still owed.
func (s *RecordStore) Tombstones(ctx context.Context) (map[string]bool, error) {
	raw, err := s.slots.GetSlot(ctx, s.tombstoneKey())
	if err != nil {
		return nil, &LocalStorageError{Op: "load tombstones", Err: err}
	}
	out := make(map[string]bool)
	if len(raw) == 0 {
		return out, nil
	}
	var ids []string
	if err := json.Unmarshal(raw, &ids); err != nil {
		s.logger.Warn("discarding unreadable tombstone set", "slot", s.tombstoneKey(), "error", err)
		return out, nil
	}
	for _, id := range ids {
		out[id] = true
	}
	return out, nil
}

// SaveTombstones replaces the pending-delete set.
func (s *RecordStore) SaveTombstones(ctx context.Context, ids map[string]bool) error {
	list := make([]string, 0, len(ids))
	for id, pending := range ids {
		if pending {
			list = append(list, id)
		}
	}
	slices.Sort(list)
	raw, err := json.Marshal(list)
	if err != nil {
		return &LocalStorageError{Op: "save tombstones", Err: err}
	}
	if err := s.slots.PutSlot(ctx, s.tombstoneKey(), raw); err != nil {
		return &LocalStorageError{Op: "save tombstones", Err: err}
	}
	return nil
}

// indexOf returns the position of id in records, or -1.
func indexOf(records []Record, id string) int {
	for i := range records {
		if records[i].ID == id {
			return i
		}
	}
	return -1
}
