package regs

import "time"

// Stats summarizes a record collection.
type Stats struct {
	Total          int              `json:"total"`
	ByCategory     map[Category]int `json:"by_category"`
	Synced         int              `json:"synced"`
	Unsynced       int              `json:"unsynced"`
	Delivered      int              `json:"delivered"`
	Undelivered    int              `json:"undelivered"`
	PendingDeletes int              `json:"pending_deletes"`
	Oldest         *Record          `json:"oldest,omitempty"`
	Newest         *Record          `json:"newest,omitempty"`
	LastSync       time.Time        `json:"last_sync,omitzero"`
}

// ComputeStats counts records by category, sync and delivery state, and
// finds the oldest and newest by creation timestamp.
func ComputeStats(records []Record) Stats {
	st := Stats{ByCategory: make(map[Category]int, len(ValidCategories()))}
	for _, c := range ValidCategories() {
		st.ByCategory[c] = 0
	}

	var oldest, newest *Record
	for i := range records {
		r := &records[i]
		st.Total++
		st.ByCategory[r.Category]++
		if r.IsSynced() {
			st.Synced++
		} else {
			st.Unsynced++
		}
		if r.Delivered {
			st.Delivered++
		} else {
			st.Undelivered++
		}
		if oldest == nil || CompareTimestamps(r.Timestamp, oldest.Timestamp) < 0 {
			oldest = r
		}
		if newest == nil || CompareTimestamps(r.Timestamp, newest.Timestamp) > 0 {
			newest = r
		}
	}

	if oldest != nil {
		c := oldest.Clone()
		st.Oldest = &c
	}
	if newest != nil {
		c := newest.Clone()
		st.Newest = &c
	}
	return st
}
