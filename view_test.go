package regs

import (
	"errors"
	"testing"

	"golang.org/x/text/language"
)

func viewFixture() []Record {
	a := rec("a", "u1", "01/01/2024 10:00 AM", boolPtr(true))
	a.Title = "banana"
	a.Category = CategoryClothes
	a.Delivered = true

	b := rec("b", "u1", "01/03/2024 10:00 AM", boolPtr(false))
	b.Title = "Apple"
	b.Category = CategoryCurtains

	c := rec("c", "u1", "01/02/2024 10:00 AM", nil)
	c.Title = "cherry"
	c.Category = CategoryClothes

	d := rec("d", "u1", "01/02/2024 10:00 AM", boolPtr(false))
	d.Title = "Éclair"
	d.Category = CategoryOthers
	d.Delivered = true
	return []Record{a, b, c, d}
}

func TestBuildView_Filters(t *testing.T) {
	records := viewFixture()

	tests := []struct {
		name string
		opts FilterOptions
		want []string
	}{
		{"all", FilterOptions{}, []string{"b", "c", "d", "a"}},
		{"category", FilterOptions{Categories: []Category{CategoryClothes}}, []string{"c", "a"}},
		{"two categories", FilterOptions{Categories: []Category{CategoryClothes, CategoryOthers}}, []string{"c", "d", "a"}},
		{"synced", FilterOptions{SyncStatus: SyncStatusSynced}, []string{"c", "a"}},
		{"unsynced", FilterOptions{SyncStatus: SyncStatusUnsynced}, []string{"b", "d"}},
		{"delivered", FilterOptions{DeliveryStatus: DeliveryStatusDelivered}, []string{"d", "a"}},
		{"undelivered", FilterOptions{DeliveryStatus: DeliveryStatusUndelivered}, []string{"b", "c"}},
		{"combined", FilterOptions{
			Categories:     []Category{CategoryClothes},
			SyncStatus:     SyncStatusSynced,
			DeliveryStatus: DeliveryStatusDelivered,
		}, []string{"a"}},
		{"no match", FilterOptions{Categories: []Category{CategoryCurtains}, DeliveryStatus: DeliveryStatusDelivered}, []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := BuildView(records, tt.opts)
			if !equalIDs(ids(got), tt.want) {
				t.Errorf("BuildView = %v, want %v", ids(got), tt.want)
			}
		})
	}
}

// Composing filters equals applying each one in turn.
func TestBuildView_FiltersCompose(t *testing.T) {
	records := viewFixture()
	cats := []Category{CategoryClothes, CategoryOthers}

	combined := BuildView(records, FilterOptions{
		Categories:     cats,
		SyncStatus:     SyncStatusUnsynced,
		DeliveryStatus: DeliveryStatusDelivered,
	})
	stepwise := BuildView(records, FilterOptions{Categories: cats})
	stepwise = BuildView(stepwise, FilterOptions{SyncStatus: SyncStatusUnsynced})
	stepwise = BuildView(stepwise, FilterOptions{DeliveryStatus: DeliveryStatusDelivered})

	if !equalIDs(ids(combined), ids(stepwise)) {
		t.Errorf("combined = %v, stepwise = %v", ids(combined), ids(stepwise))
	}
}

func TestBuildView_Sorts(t *testing.T) {
	records := viewFixture()

	tests := []struct {
		sort SortBy
		want []string
	}{
		{SortNewest, []string{"b", "c", "d", "a"}},
		{SortOldest, []string{"a", "c", "d", "b"}},
		{SortTitleAsc, []string{"b", "a", "c", "d"}},
		{SortTitleDesc, []string{"d", "c", "a", "b"}},
	}
	for _, tt := range tests {
		t.Run(string(tt.sort), func(t *testing.T) {
			got := BuildView(records, FilterOptions{SortBy: tt.sort, Locale: language.English})
			if !equalIDs(ids(got), tt.want) {
				t.Errorf("BuildView(%s) = %v, want %v", tt.sort, ids(got), tt.want)
			}
		})
	}
}

func TestBuildView_DoesNotModifyInput(t *testing.T) {
	records := viewFixture()
	got := BuildView(records, FilterOptions{SortBy: SortTitleAsc})
	got[0].Title = "changed"

	if !equalIDs(ids(records), []string{"a", "b", "c", "d"}) {
		t.Errorf("input reordered: %v", ids(records))
	}
	for _, r := range records {
		if r.Title == "changed" {
			t.Error("view aliases input records")
		}
	}
}

func TestFilterOptions_Active(t *testing.T) {
	if DefaultFilterOptions().Active() {
		t.Error("defaults should not be active")
	}
	if (FilterOptions{SortBy: SortOldest}).Active() {
		t.Error("sort alone should not be active")
	}
	if !(FilterOptions{SyncStatus: SyncStatusSynced}).Active() {
		t.Error("sync filter should be active")
	}
	if !(FilterOptions{Categories: []Category{CategoryOthers}}).Active() {
		t.Error("category filter should be active")
	}
}

func TestFilterOptions_Validate(t *testing.T) {
	if err := (FilterOptions{}).Validate(); err != nil {
		t.Errorf("zero options: %v", err)
	}
	if err := (FilterOptions{Categories: []Category{"Shoes"}}).Validate(); !errors.Is(err, ErrInvalidCategory) {
		t.Errorf("bad category = %v", err)
	}
	if err := (FilterOptions{SyncStatus: "maybe"}).Validate(); !errors.Is(err, ErrInvalidFilter) {
		t.Errorf("bad sync status = %v", err)
	}
	if err := (FilterOptions{SortBy: "random"}).Validate(); !errors.Is(err, ErrInvalidFilter) {
		t.Errorf("bad sort = %v", err)
	}
}

func TestParseOptions(t *testing.T) {
	if s, err := ParseSortBy("Title-Desc"); err != nil || s != SortTitleDesc {
		t.Errorf("ParseSortBy = %q, %v", s, err)
	}
	if s, err := ParseSyncStatus(""); err != nil || s != SyncStatusAll {
		t.Errorf("ParseSyncStatus(\"\") = %q, %v", s, err)
	}
	if s, err := ParseDeliveryStatus("DELIVERED"); err != nil || s != DeliveryStatusDelivered {
		t.Errorf("ParseDeliveryStatus = %q, %v", s, err)
	}
	if c, err := ParseCategory("curtains"); err != nil || c != CategoryCurtains {
		t.Errorf("ParseCategory = %q, %v", c, err)
	}
	if _, err := ParseCategory("hats"); !errors.Is(err, ErrInvalidCategory) {
		t.Errorf("ParseCategory(hats) = %v", err)
	}
}
