package regs

import (
	"context"
	"errors"
	"testing"
)

func TestRecordStore_LoadEmpty(t *testing.T) {
	rs := NewRecordStore(newTestStore(t), "", nil)
	if rs.Key() != DefaultSlot {
		t.Errorf("Key() = %q, want %q", rs.Key(), DefaultSlot)
	}

	got, err := rs.Load(context.Background())
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got == nil || len(got) != 0 {
		t.Errorf("Load on empty store = %v, want empty slice", got)
	}
}

func TestRecordStore_SaveLoad(t *testing.T) {
	rs := NewRecordStore(newTestStore(t), "regs", nil)
	ctx := context.Background()

	a := rec("a", "alice", "01/05/2024 02:15 PM", boolPtr(false))
	a.DeliveryDeadline = nullString("next week")
	a.Measurements["general"]["length"] = Float(12.5)
	b := rec("b", OfflineOwner, "01/06/2024 02:15 PM", nil)

	if err := rs.Save(ctx, []Record{a, b}); err != nil {
		t.Fatalf("Save: %v", err)
	}
	got, err := rs.Load(ctx)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !equalIDs(ids(got), []string{"a", "b"}) {
		t.Fatalf("ids = %v", ids(got))
	}
	if !got[0].Pending() || *got[0].DeliveryDeadline != "next week" {
		t.Errorf("a = %+v", got[0])
	}
	if v := got[0].Measurements["general"]["length"]; v == nil || *v != 12.5 {
		t.Errorf("length = %v", v)
	}
	if got[0].Measurements["general"]["width"] != nil {
		t.Error("unset measurement should load as nil")
	}
	if got[1].Synced != nil {
		t.Error("absent synced flag should stay absent")
	}
}

func TestRecordStore_CorruptDegradesToEmpty(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	if err := store.PutSlot(ctx, "regs", []byte("{not json")); err != nil {
		t.Fatal(err)
	}

	got, err := NewRecordStore(store, "regs", nil).Load(ctx)
	if err != nil {
		t.Fatalf("Load(corrupt) error = %v, want nil", err)
	}
	if len(got) != 0 {
		t.Errorf("Load(corrupt) = %v, want empty", got)
	}
}

func TestRecordStore_LegacyLayout(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	legacy := `[{"id":"1700000000000","userId":"u1","title":"Suit","description":"",
		"type":"Clothes","measurements":{"arms":{"sleeveLength":60}},
		"timestamp":"11/14/2023 10:13 PM","synced":false}]`
	if err := store.PutSlot(ctx, "regs", []byte(legacy)); err != nil {
		t.Fatal(err)
	}

	got, err := NewRecordStore(store, "regs", nil).Load(ctx)
	if err != nil || len(got) != 1 {
		t.Fatalf("Load = %v, %v", got, err)
	}
	r := got[0]
	if r.OwnerID != "u1" || r.Category != CategoryClothes || !r.Pending() {
		t.Errorf("legacy record = %+v", r)
	}
	if r.Delivered || r.DeliveryDeadline != nil {
		t.Error("missing delivered/deadline should read as false/nil")
	}
}

func TestRecordStore_Errors(t *testing.T) {
	slots := newMemSlots()
	rs := NewRecordStore(slots, "regs", nil)
	ctx := context.Background()

	slots.failGet = true
	_, err := rs.Load(ctx)
	var lse *LocalStorageError
	if !errors.As(err, &lse) || lse.Op != "load" {
		t.Errorf("Load error = %v, want LocalStorageError{load}", err)
	}

	slots.failGet = false
	slots.failPut = true
	err = rs.Save(ctx, nil)
	if !errors.As(err, &lse) || lse.Op != "save" {
		t.Errorf("Save error = %v, want LocalStorageError{save}", err)
	}
}

func TestRecordStore_Tombstones(t *testing.T) {
	slots := newMemSlots()
	rs := NewRecordStore(slots, "regs", nil)
	ctx := context.Background()

	got, err := rs.Tombstones(ctx)
	if err != nil || len(got) != 0 {
		t.Fatalf("Tombstones(empty) = %v, %v", got, err)
	}

	if err := rs.SaveTombstones(ctx, map[string]bool{"b": true, "a": true, "c": false}); err != nil {
		t.Fatal(err)
	}
	if raw := string(slots.data["regs.pending_deletes"]); raw != `["a","b"]` {
		t.Errorf("tombstone slot = %s", raw)
	}

	got, _ = rs.Tombstones(ctx)
	if len(got) != 2 || !got["a"] || !got["b"] {
		t.Errorf("Tombstones = %v", got)
	}
}
