package regs

import "time"

// OfflineOwner is the owner recorded on records created without a signed-in account.
const OfflineOwner = "offline"

// DefaultCollection is the remote collection records are mirrored to.
const DefaultCollection = "regs"

// DefaultSlot is the local slot holding the serialized record collection.
const DefaultSlot = "regs"

// Record is a single measurement entry owned by one account.
//
// JSON field names follow the layout persisted by earlier clients so that
// existing caches and remote documents decode unchanged.
type Record struct {
	ID               string       `json:"id" validate:"required"`
	OwnerID          string       `json:"userId"`
	Title            string       `json:"title" validate:"required"`
	Description      string       `json:"description"`
	Thumbnail        *string      `json:"thumbnail"`
	Category         Category     `json:"type" validate:"category"`
	Measurements     Measurements `json:"measurements"`
	Timestamp        string       `json:"timestamp" validate:"required"`
	DeliveryDeadline *string      `json:"deliveryDeadline"`
	Delivered        bool         `json:"delivered"`
	Synced           *bool        `json:"synced,omitempty"`
}

// IsSynced reports whether the record is known to match the remote copy.
// An absent flag counts as synced.
func (r Record) IsSynced() bool {
	return r.Synced == nil || *r.Synced
}

// Pending reports whether the record carries a local change not yet pushed.
func (r Record) Pending() bool {
	return r.Synced != nil && !*r.Synced
}

// Clone returns a deep copy of the record.
func (r Record) Clone() Record {
	c := r
	c.Thumbnail = cloneString(r.Thumbnail)
	c.DeliveryDeadline = cloneString(r.DeliveryDeadline)
	if r.Synced != nil {
		c.Synced = boolPtr(*r.Synced)
	}
	c.Measurements = r.Measurements.Clone()
	return c
}

// Instant returns the parsed creation instant of the record.
func (r Record) Instant() time.Time {
	return TimestampInstant(r.Timestamp)
}

// Category classifies a record and selects its measurement schema.
type Category string

const (
	CategoryClothes  Category = "Clothes"
	CategoryCurtains Category = "Curtains"
	CategoryOthers   Category = "Others"
)

// ValidCategories returns all valid record categories.
func ValidCategories() []Category {
	return []Category{
		CategoryClothes,
		CategoryCurtains,
		CategoryOthers,
	}
}

// IsValid checks if the category is a known record category.
func (c Category) IsValid() bool {
	for _, valid := range ValidCategories() {
		if c == valid {
			return true
		}
	}
	return false
}

// Unit returns the display unit for measurements of this category.
func (c Category) Unit() string {
	switch c {
	case CategoryClothes:
		return "cm"
	case CategoryCurtains:
		return "yd"
	default:
		return "in"
	}
}

// SyncStatus selects records by their synced flag.
type SyncStatus string

const (
	SyncStatusAll      SyncStatus = "all"
	SyncStatusSynced   SyncStatus = "synced"
	SyncStatusUnsynced SyncStatus = "unsynced"
)

// DeliveryStatus selects records by their delivered flag.
type DeliveryStatus string

const (
	DeliveryStatusAll         DeliveryStatus = "all"
	DeliveryStatusDelivered   DeliveryStatus = "delivered"
	DeliveryStatusUndelivered DeliveryStatus = "undelivered"
)

// SortBy orders a record view.
type SortBy string

const (
	SortNewest    SortBy = "newest"
	SortOldest    SortBy = "oldest"
	SortTitleAsc  SortBy = "title_asc"
	SortTitleDesc SortBy = "title_desc"
)

// CreateParams contains parameters for creating a record.
type CreateParams struct {
	Title            string   `json:"title" validate:"required,max=200"`
	Description      string   `json:"description,omitempty" validate:"max=2000"`
	Category         Category `json:"category" validate:"required,category"`
	DeliveryDeadline string   `json:"delivery_deadline,omitempty" validate:"max=100"`
	Thumbnail        string   `json:"thumbnail,omitempty"`
}

// EditParams contains the editable text fields of a record.
type EditParams struct {
	Title            string `json:"title" validate:"required,max=200"`
	Description      string `json:"description" validate:"max=2000"`
	DeliveryDeadline string `json:"delivery_deadline" validate:"max=100"`
}

// SyncResult summarizes one sync pass.
type SyncResult struct {
	Records        []Record      `json:"records"`
	Pushed         int           `json:"pushed"`
	PushFailed     int           `json:"push_failed"`
	DeletesFlushed int           `json:"deletes_flushed"`
	Pulled         int           `json:"pulled"`
	Dropped        int           `json:"dropped"`
	Offline        bool          `json:"offline"`
	PullFailed     bool          `json:"pull_failed"`
	Duration       time.Duration `json:"duration"`
}

// HealthStatus represents the health of the client.
type HealthStatus struct {
	Healthy         bool   `json:"healthy"`
	StoreOK         bool   `json:"store_ok"`
	RemoteReachable bool   `json:"remote_reachable"`
	Error           string `json:"error,omitempty"`
}

func boolPtr(b bool) *bool { return &b }

func cloneString(s *string) *string {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}

// nullString maps an empty string to nil.
func nullString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
