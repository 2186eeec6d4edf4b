package regs

import "sync"

// Snapshot holds the most recently published record collection, the one
// callers render. Publishing replaces it wholesale.
type Snapshot struct {
	mu      sync.RWMutex
	records []Record
	onPub   func([]Record)
}

// NewSnapshot returns an empty snapshot. onPublish, if non-nil, is called
// with a copy of every collection published.
func NewSnapshot(onPublish func([]Record)) *Snapshot {
	return &Snapshot{onPub: onPublish}
}

// Len returns the number of published records.
func (s *Snapshot) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records)
}

// Records returns a copy of the published collection.
func (s *Snapshot) Records() []Record {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return cloneRecords(s.records)
}

// Publish replaces the published collection.
func (s *Snapshot) Publish(records []Record) {
	s.mu.Lock()
	s.records = cloneRecords(records)
	s.mu.Unlock()

	if s.onPub != nil {
		s.onPub(cloneRecords(records))
	}
}

func cloneRecords(records []Record) []Record {
	out := make([]Record, len(records))
	for i := range records {
		out[i] = records[i].Clone()
	}
	return out
}
