package regs

import (
	"context"
	"errors"
	"testing"
)

type syncFixture struct {
	slots     *memSlots
	local     *RecordStore
	remote    *mockRemote
	syncer    *Syncer
	published [][]Record
}

func newSyncFixture(t *testing.T, remote *mockRemote, local ...Record) *syncFixture {
	t.Helper()
	f := &syncFixture{slots: newMemSlots(), remote: remote}
	f.local = NewRecordStore(f.slots, "regs", nil)
	if len(local) > 0 {
		if err := f.local.Save(context.Background(), local); err != nil {
			t.Fatal(err)
		}
	}
	cfg := SyncerConfig{
		Local: f.local,
		Snapshot: NewSnapshot(func(r []Record) {
			f.published = append(f.published, r)
		}),
	}
	if remote != nil {
		cfg.Remote = remote
	}
	f.syncer = NewSyncer(cfg)
	return f
}

func (f *syncFixture) cached(t *testing.T) []Record {
	t.Helper()
	got, err := f.local.Load(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	return got
}

// A pending record is pushed, pulled back, and cached as synced.
func TestSync_PushesPendingRecord(t *testing.T) {
	remote := newMockRemote()
	f := newSyncFixture(t, remote, rec("1", "u1", "01/05/2024 10:00 AM", boolPtr(false)))

	result, err := f.syncer.Sync(context.Background(), "u1")
	if err != nil {
		t.Fatalf("Sync: %v", err)
	}
	if result.Pushed != 1 || result.PushFailed != 0 || result.Pulled != 1 {
		t.Errorf("result = %+v", result)
	}
	if len(remote.upserts) != 1 || remote.upserts[0].Synced != nil || remote.upserts[0].OwnerID != "u1" {
		t.Errorf("upsert payload = %+v", remote.upserts)
	}

	cached := f.cached(t)
	if !equalIDs(ids(cached), []string{"1"}) {
		t.Fatalf("cache = %v", ids(cached))
	}
	if cached[0].Synced == nil || !*cached[0].Synced {
		t.Error("cached record should carry synced=true")
	}
}

// A failed push leaves the record pending and still present after merge.
func TestSync_PushFailureKeepsPending(t *testing.T) {
	remote := newMockRemote()
	remote.upsertFn = func(context.Context, string, string, Record) error { return errUnreachable }
	f := newSyncFixture(t, remote, rec("b", "u1", "01/05/2024 10:00 AM", boolPtr(false)))

	result, err := f.syncer.Sync(context.Background(), "u1")
	if err != nil {
		t.Fatalf("Sync: %v", err)
	}
	if result.PushFailed != 1 || result.Pushed != 0 {
		t.Errorf("result = %+v", result)
	}
	cached := f.cached(t)
	if len(cached) != 1 || !cached[0].Pending() {
		t.Errorf("cache = %+v, want [b] pending", cached)
	}
}

// A synced record the remote no longer holds is dropped.
func TestSync_DropsRecordDeletedRemotely(t *testing.T) {
	remote := newMockRemote()
	f := newSyncFixture(t, remote, rec("c", "u1", "01/05/2024 10:00 AM", boolPtr(true)))

	result, err := f.syncer.Sync(context.Background(), "u1")
	if err != nil {
		t.Fatalf("Sync: %v", err)
	}
	if result.Dropped != 1 {
		t.Errorf("Dropped = %d, want 1", result.Dropped)
	}
	if got := f.cached(t); len(got) != 0 {
		t.Errorf("cache = %v, want empty", ids(got))
	}
	if len(remote.upserts) != 0 {
		t.Error("synced record should not be pushed")
	}
}

func TestSync_PullFailureReturnsLocal(t *testing.T) {
	remote := newMockRemote()
	remote.queryFn = func(context.Context, string, string) ([]Record, error) { return nil, errUnreachable }
	local := []Record{
		rec("x", "u1", "01/05/2024 10:00 AM", boolPtr(true)),
		rec("y", "u1", "01/04/2024 10:00 AM", nil),
	}
	f := newSyncFixture(t, remote, local...)

	result, err := f.syncer.Sync(context.Background(), "u1")
	if err != nil {
		t.Fatalf("Sync: %v", err)
	}
	if !result.PullFailed {
		t.Error("PullFailed should be set")
	}
	if !equalIDs(ids(result.Records), []string{"x", "y"}) {
		t.Errorf("records = %v, want local order", ids(result.Records))
	}
	if !equalIDs(ids(f.cached(t)), []string{"x", "y"}) {
		t.Error("cache should be untouched")
	}
}

func TestSync_RemoteWinsOverSyncedLocal(t *testing.T) {
	server := rec("1", "u1", "01/05/2024 10:00 AM", nil)
	server.Title = "From server"
	remote := newMockRemote(server)

	stale := rec("1", "u1", "01/05/2024 10:00 AM", boolPtr(true))
	stale.Title = "Stale"
	f := newSyncFixture(t, remote, stale)

	result, err := f.syncer.Sync(context.Background(), "u1")
	if err != nil {
		t.Fatal(err)
	}
	if len(result.Records) != 1 || result.Records[0].Title != "From server" {
		t.Errorf("records = %+v", result.Records)
	}
}

func TestSync_OrdersNewestFirst(t *testing.T) {
	remote := newMockRemote(
		rec("old", "u1", "12/31/2023 11:00 PM", nil),
		rec("new", "u1", "01/02/2024 09:00 AM", nil),
	)
	f := newSyncFixture(t, remote, rec("mid", "u1", "01/01/2024 12:30 PM", boolPtr(false)))
	remote.upsertFn = func(context.Context, string, string, Record) error { return errUnreachable }

	result, err := f.syncer.Sync(context.Background(), "u1")
	if err != nil {
		t.Fatal(err)
	}
	if !equalIDs(ids(result.Records), []string{"new", "mid", "old"}) {
		t.Errorf("order = %v", ids(result.Records))
	}
}

func TestSync_Offline(t *testing.T) {
	for _, owner := range []string{"", OfflineOwner} {
		t.Run("owner="+owner, func(t *testing.T) {
			remote := newMockRemote(rec("r", "u1", "01/05/2024 10:00 AM", nil))
			f := newSyncFixture(t, remote, rec("a", OfflineOwner, "01/05/2024 10:00 AM", boolPtr(false)))

			result, err := f.syncer.Sync(context.Background(), owner)
			if err != nil {
				t.Fatal(err)
			}
			if !result.Offline {
				t.Error("Offline should be set")
			}
			if remote.queries != 0 || len(remote.upserts) != 0 {
				t.Errorf("remote touched: queries=%d upserts=%d", remote.queries, len(remote.upserts))
			}
			if !equalIDs(ids(result.Records), []string{"a"}) {
				t.Errorf("records = %v", ids(result.Records))
			}
		})
	}
}

func TestSync_NoRemoteIsOffline(t *testing.T) {
	f := newSyncFixture(t, nil, rec("a", "u1", "01/05/2024 10:00 AM", boolPtr(false)))

	result, err := f.syncer.Sync(context.Background(), "u1")
	if err != nil {
		t.Fatal(err)
	}
	if !result.Offline || len(result.Records) != 1 {
		t.Errorf("result = %+v", result)
	}
}

func TestSync_FirstPaintPublish(t *testing.T) {
	remote := newMockRemote(rec("r", "u1", "01/06/2024 10:00 AM", nil))
	f := newSyncFixture(t, remote, rec("l", "u1", "01/05/2024 10:00 AM", boolPtr(true)))

	if _, err := f.syncer.Sync(context.Background(), "u1"); err != nil {
		t.Fatal(err)
	}
	if len(f.published) != 2 {
		t.Fatalf("published %d times, want 2", len(f.published))
	}
	if !equalIDs(ids(f.published[0]), []string{"l"}) {
		t.Errorf("first paint = %v, want cached collection", ids(f.published[0]))
	}
	if !equalIDs(ids(f.published[1]), []string{"r"}) {
		t.Errorf("final = %v", ids(f.published[1]))
	}

	// The snapshot is no longer empty, so the next sync publishes only once.
	if _, err := f.syncer.Sync(context.Background(), "u1"); err != nil {
		t.Fatal(err)
	}
	if len(f.published) != 3 {
		t.Errorf("published %d times, want 3", len(f.published))
	}
}

func TestSync_LocalFailureReturnsError(t *testing.T) {
	remote := newMockRemote()
	f := newSyncFixture(t, remote)
	f.slots.failGet = true

	_, err := f.syncer.Sync(context.Background(), "u1")
	var lse *LocalStorageError
	if !errors.As(err, &lse) {
		t.Fatalf("err = %v, want LocalStorageError", err)
	}
	if remote.queries != 0 {
		t.Error("remote should not be queried after a local failure")
	}
}

func TestSync_SaveFailureReturnsError(t *testing.T) {
	remote := newMockRemote(rec("r", "u1", "01/06/2024 10:00 AM", nil))
	f := newSyncFixture(t, remote)
	f.slots.failPut = true

	_, err := f.syncer.Sync(context.Background(), "u1")
	var lse *LocalStorageError
	if !errors.As(err, &lse) {
		t.Fatalf("err = %v, want LocalStorageError", err)
	}
}

func TestSync_FlushesTombstones(t *testing.T) {
	remote := newMockRemote(
		rec("gone", "u1", "01/05/2024 10:00 AM", nil),
		rec("kept", "u1", "01/04/2024 10:00 AM", nil),
	)
	f := newSyncFixture(t, remote)
	ctx := context.Background()
	if err := f.local.SaveTombstones(ctx, map[string]bool{"gone": true}); err != nil {
		t.Fatal(err)
	}

	result, err := f.syncer.Sync(ctx, "u1")
	if err != nil {
		t.Fatal(err)
	}
	if result.DeletesFlushed != 1 {
		t.Errorf("DeletesFlushed = %d", result.DeletesFlushed)
	}
	if !equalIDs(ids(result.Records), []string{"kept"}) {
		t.Errorf("records = %v", ids(result.Records))
	}
	tomb, _ := f.local.Tombstones(ctx)
	if len(tomb) != 0 {
		t.Errorf("tombstones = %v, want empty", tomb)
	}
}

func TestSync_TombstoneSuppressesPull(t *testing.T) {
	remote := newMockRemote(rec("gone", "u1", "01/05/2024 10:00 AM", nil))
	remote.deleteFn = func(context.Context, string, string) error { return errUnreachable }
	f := newSyncFixture(t, remote)
	ctx := context.Background()
	if err := f.local.SaveTombstones(ctx, map[string]bool{"gone": true}); err != nil {
		t.Fatal(err)
	}

	result, err := f.syncer.Sync(ctx, "u1")
	if err != nil {
		t.Fatal(err)
	}
	if len(result.Records) != 0 {
		t.Errorf("records = %v, want tombstoned record suppressed", ids(result.Records))
	}
	tomb, _ := f.local.Tombstones(ctx)
	if !tomb["gone"] {
		t.Error("failed delete should stay queued")
	}
}

func TestSync_NormalizesPulledRecords(t *testing.T) {
	legacy := Record{
		ID:           "L",
		OwnerID:      "u1",
		Title:        "Legacy",
		Category:     CategoryCurtains,
		Measurements: Measurements{"dimensions": {"width": Float(2)}, "bogus": {"x": Float(1)}},
		Timestamp:    "01/05/2024 10:00 AM",
	}
	empty := ""
	legacy.DeliveryDeadline = &empty
	f := newSyncFixture(t, newMockRemote(legacy))

	result, err := f.syncer.Sync(context.Background(), "u1")
	if err != nil {
		t.Fatal(err)
	}
	got := result.Records[0]
	if got.DeliveryDeadline != nil {
		t.Error("empty deadline should normalize to nil")
	}
	if _, ok := got.Measurements["bogus"]; ok {
		t.Error("group outside schema should be dropped")
	}
	if v := got.Measurements["dimensions"]["width"]; v == nil || *v != 2 {
		t.Errorf("width = %v", v)
	}
	if _, ok := got.Measurements["hardware"]["rodWidth"]; !ok {
		t.Error("schema fields should be backfilled")
	}
	if got.Synced == nil || !*got.Synced {
		t.Error("pulled record should be cached as synced")
	}
}

func TestMerge(t *testing.T) {
	remote := []Record{
		rec("r1", "u1", "01/03/2024 10:00 AM", nil),
		rec("t1", "u1", "01/04/2024 10:00 AM", nil),
	}
	local := []Record{
		rec("p1", "u1", "01/05/2024 10:00 AM", boolPtr(false)),
		rec("s1", "u1", "01/06/2024 10:00 AM", boolPtr(true)),
		rec("r1", "u1", "01/03/2024 10:00 AM", boolPtr(false)),
	}
	got := Merge(remote, local, map[string]bool{"t1": true})
	if !equalIDs(ids(got), []string{"p1", "r1"}) {
		t.Errorf("Merge = %v, want [p1 r1]", ids(got))
	}
	// remote copy wins for an id present on both sides
	if got[1].Synced != nil {
		t.Error("r1 should come from the remote side")
	}
}

func TestMerge_Idempotent(t *testing.T) {
	remote := []Record{
		rec("a", "u1", "01/03/2024 10:00 AM", nil),
		rec("b", "u1", "01/03/2024 10:00 AM", nil),
	}
	local := []Record{
		rec("c", "u1", "01/02/2024 10:00 AM", boolPtr(false)),
	}
	once := Merge(remote, local, nil)
	twice := Merge(remote, once, nil)
	if !equalIDs(ids(once), ids(twice)) {
		t.Errorf("Merge not idempotent: %v then %v", ids(once), ids(twice))
	}
	// equal timestamps keep remote order
	if !equalIDs(ids(once), []string{"a", "b", "c"}) {
		t.Errorf("order = %v", ids(once))
	}
}

func TestMerge_DoesNotModifyInputs(t *testing.T) {
	remote := []Record{rec("a", "u1", "01/01/2024 10:00 AM", nil)}
	local := []Record{rec("b", "u1", "01/02/2024 10:00 AM", boolPtr(false))}

	got := Merge(remote, local, nil)
	got[0].Title = "changed"
	if local[0].Title == "changed" || remote[0].Title == "changed" {
		t.Error("Merge output aliases its inputs")
	}
	if !equalIDs(ids(local), []string{"b"}) || !equalIDs(ids(remote), []string{"a"}) {
		t.Error("inputs reordered")
	}
}
