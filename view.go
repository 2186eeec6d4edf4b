package regs

import (
	"fmt"
	"slices"
	"strings"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"
)

// FilterOptions selects and orders the records shown to a caller.
type FilterOptions struct {
	// Categories to include. Empty includes every category.
	Categories     []Category     `json:"categories,omitempty"`
	SyncStatus     SyncStatus     `json:"sync_status"`
	DeliveryStatus DeliveryStatus `json:"delivery_status"`
	SortBy         SortBy         `json:"sort_by"`
	// Locale drives title collation. The zero tag collates as English.
	Locale language.Tag `json:"-"`
}

// DefaultFilterOptions returns options that include everything, newest first.
func DefaultFilterOptions() FilterOptions {
	return FilterOptions{
		SyncStatus:     SyncStatusAll,
		DeliveryStatus: DeliveryStatusAll,
		SortBy:         SortNewest,
		Locale:         language.English,
	}
}

// Active reports whether any filter narrows the record set.
func (o FilterOptions) Active() bool {
	return len(o.Categories) > 0 ||
		(o.SyncStatus != "" && o.SyncStatus != SyncStatusAll) ||
		(o.DeliveryStatus != "" && o.DeliveryStatus != DeliveryStatusAll)
}

// Validate checks every option against its recognized values. Empty values
// are accepted and mean the default.
func (o FilterOptions) Validate() error {
	for _, c := range o.Categories {
		if !c.IsValid() {
			return fmt.Errorf("%w: %q", ErrInvalidCategory, c)
		}
	}
	if _, err := ParseSyncStatus(string(o.SyncStatus)); err != nil {
		return err
	}
	if _, err := ParseDeliveryStatus(string(o.DeliveryStatus)); err != nil {
		return err
	}
	if _, err := ParseSortBy(string(o.SortBy)); err != nil {
		return err
	}
	return nil
}

// ParseSyncStatus parses a sync status option. Empty means all.
func ParseSyncStatus(s string) (SyncStatus, error) {
	switch SyncStatus(strings.ToLower(s)) {
	case "", SyncStatusAll:
		return SyncStatusAll, nil
	case SyncStatusSynced:
		return SyncStatusSynced, nil
	case SyncStatusUnsynced:
		return SyncStatusUnsynced, nil
	}
	return "", fmt.Errorf("%w: sync status %q", ErrInvalidFilter, s)
}

// ParseDeliveryStatus parses a delivery status option. Empty means all.
func ParseDeliveryStatus(s string) (DeliveryStatus, error) {
	switch DeliveryStatus(strings.ToLower(s)) {
	case "", DeliveryStatusAll:
		return DeliveryStatusAll, nil
	case DeliveryStatusDelivered:
		return DeliveryStatusDelivered, nil
	case DeliveryStatusUndelivered:
		return DeliveryStatusUndelivered, nil
	}
	return "", fmt.Errorf("%w: delivery status %q", ErrInvalidFilter, s)
}

// ParseSortBy parses a sort option. Empty means newest first.
func ParseSortBy(s string) (SortBy, error) {
	switch SortBy(strings.ToLower(s)) {
	case "", SortNewest:
		return SortNewest, nil
	case SortOldest:
		return SortOldest, nil
	case SortTitleAsc, "title-asc", "titleascending":
		return SortTitleAsc, nil
	case SortTitleDesc, "title-desc", "titledescending":
		return SortTitleDesc, nil
	}
	return "", fmt.Errorf("%w: sort %q", ErrInvalidFilter, s)
}

// ParseCategory parses a category name case-insensitively.
func ParseCategory(s string) (Category, error) {
	for _, c := range ValidCategories() {
		if strings.EqualFold(string(c), s) {
			return c, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidCategory, s)
}

// BuildView returns the records matching opts, sorted as opts requires.
// Filters compose with AND and run before the sort, which is stable.
// records is never modified.
func BuildView(records []Record, opts FilterOptions) []Record {
	out := make([]Record, 0, len(records))
	for _, r := range records {
		if matchCategory(r, opts.Categories) && matchSync(r, opts.SyncStatus) && matchDelivery(r, opts.DeliveryStatus) {
			out = append(out, r.Clone())
		}
	}

	switch opts.SortBy {
	case SortOldest:
		slices.SortStableFunc(out, func(a, b Record) int {
			return CompareTimestamps(a.Timestamp, b.Timestamp)
		})
	case SortTitleAsc, SortTitleDesc:
		col := newCollator(opts.Locale)
		desc := opts.SortBy == SortTitleDesc
		slices.SortStableFunc(out, func(a, b Record) int {
			c := col.CompareString(a.Title, b.Title)
			if desc {
				return -c
			}
			return c
		})
	default:
		sortNewestFirst(out)
	}
	return out
}

func newCollator(tag language.Tag) *collate.Collator {
	if tag == language.Und {
		tag = language.English
	}
	return collate.New(tag, collate.IgnoreCase)
}

func matchCategory(r Record, categories []Category) bool {
	return len(categories) == 0 || slices.Contains(categories, r.Category)
}

func matchSync(r Record, status SyncStatus) bool {
	switch status {
	case SyncStatusSynced:
		return r.IsSynced()
	case SyncStatusUnsynced:
		return !r.IsSynced()
	default:
		return true
	}
}

func matchDelivery(r Record, status DeliveryStatus) bool {
	switch status {
	case DeliveryStatusDelivered:
		return r.Delivered
	case DeliveryStatusUndelivered:
		return !r.Delivered
	default:
		return true
	}
}
