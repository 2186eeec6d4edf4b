package regs

import (
	"context"
	"log/slog"
	"slices"
	"sort"
	"time"

	"github.com/hyperengineering/regs/internal/lock"
	"github.com/hyperengineering/regs/internal/logging"
	"github.com/hyperengineering/regs/internal/metrics"
	"github.com/hyperengineering/regs/internal/tracing"
)

// MetadataStore records sync bookkeeping next to the local collection.
type MetadataStore interface {
	SetMetadata(key, value string) error
}

// SyncerConfig wires a Syncer to its collaborators. Only Local is required.
type SyncerConfig struct {
	Local      *RecordStore
	Remote     RemoteStore   // nil keeps the syncer in local-only mode
	Metadata   MetadataStore // optional
	Collection string
	Locks      *lock.Manager
	Snapshot   *Snapshot
	Logger     *slog.Logger
	Tracer     *tracing.Tracer
}

// Syncer reconciles the local collection with the remote store: push pending
// records, pull the owner's set, merge with remote authoritative, cache.
type Syncer struct {
	local      *RecordStore
	remote     RemoteStore
	metadata   MetadataStore
	collection string
	locks      *lock.Manager
	snapshot   *Snapshot
	logger     *slog.Logger
	tracer     *tracing.Tracer
}

// NewSyncer creates a new syncer.
func NewSyncer(cfg SyncerConfig) *Syncer {
	s := &Syncer{
		local:      cfg.Local,
		remote:     cfg.Remote,
		metadata:   cfg.Metadata,
		collection: cfg.Collection,
		locks:      cfg.Locks,
		snapshot:   cfg.Snapshot,
		logger:     cfg.Logger,
		tracer:     cfg.Tracer,
	}
	if s.collection == "" {
		s.collection = DefaultCollection
	}
	if s.locks == nil {
		s.locks = lock.NewManager()
	}
	if s.snapshot == nil {
		s.snapshot = NewSnapshot(nil)
	}
	if s.logger == nil {
		s.logger = logging.Discard()
	}
	if s.tracer == nil {
		s.tracer = tracing.Default()
	}
	return s
}

// Sync runs one reconciliation pass for owner. Remote failures are logged and
// folded into the result; only local storage failures are returned.
func (s *Syncer) Sync(ctx context.Context, owner string) (*SyncResult, error) {
	mu := s.locks.Get(s.local.Key())
	mu.Lock()
	defer mu.Unlock()
	return s.syncLocked(ctx, owner)
}

func (s *Syncer) syncLocked(ctx context.Context, owner string) (*SyncResult, error) {
	start := time.Now()
	syncID := logging.NewSyncID()
	ctx = logging.WithSyncID(ctx, syncID)
	log := logging.FromContext(ctx, s.logger)
	ctx, span := s.tracer.StartSyncSpan(ctx, syncID, s.local.Key())

	result, err := s.run(ctx, log, owner)
	if err != nil {
		metrics.SyncRuns.WithLabelValues(metrics.OutcomeFailure).Inc()
		span.EndWithError(err)
		log.Error("sync failed", "error", err)
		return nil, err
	}

	result.Duration = time.Since(start)
	metrics.SyncDuration.Observe(result.Duration.Seconds())
	span.SetCounts(result.Pushed, result.PushFailed, result.DeletesFlushed, result.Pulled)
	span.End()

	switch {
	case result.Offline:
		metrics.SyncRuns.WithLabelValues(metrics.OutcomeOffline).Inc()
	case result.PullFailed:
		metrics.SyncRuns.WithLabelValues(metrics.OutcomeFailure).Inc()
	default:
		metrics.SyncRuns.WithLabelValues(metrics.OutcomeSuccess).Inc()
	}
	log.Debug("sync complete",
		"records", len(result.Records),
		"pushed", result.Pushed,
		"push_failed", result.PushFailed,
		"deletes_flushed", result.DeletesFlushed,
		"pulled", result.Pulled,
		"dropped", result.Dropped,
		"offline", result.Offline,
		"pull_failed", result.PullFailed,
		"duration", result.Duration,
	)
	return result, nil
}

func (s *Syncer) run(ctx context.Context, log *slog.Logger, owner string) (*SyncResult, error) {
	result := &SyncResult{}

	local, err := s.local.Load(ctx)
	if err != nil {
		return nil, err
	}
	if s.snapshot.Len() == 0 {
		s.snapshot.Publish(local)
	}

	if !Attributed(owner) || s.remote == nil {
		result.Offline = true
		result.Records = local
		return result, nil
	}

	// Push
	result.Pushed, result.PushFailed = s.push(ctx, log, local, owner)

	tombstones, err := s.local.Tombstones(ctx)
	if err != nil {
		return nil, err
	}
	result.DeletesFlushed = s.flushDeletes(ctx, log, tombstones)

	if result.Pushed > 0 {
		if err := s.local.Save(ctx, local); err != nil {
			return nil, err
		}
	}
	if result.DeletesFlushed > 0 {
		if err := s.local.SaveTombstones(ctx, tombstones); err != nil {
			return nil, err
		}
	}
	metrics.PendingDeletes.Set(float64(len(tombstones)))
	tracing.AddEvent(ctx, "push complete")

	// Pull
	remote, err := queryByOwner(ctx, s.remote, s.collection, owner)
	if err != nil {
		metrics.PullFailures.Inc()
		tracing.RecordError(ctx, err)
		log.Warn("pull failed, keeping local collection", "error", err)
		result.PullFailed = true
		result.Records = local
		s.snapshot.Publish(local)
		return result, nil
	}
	result.Pulled = len(remote)
	metrics.RecordsPulled.Add(float64(len(remote)))

	merged := Merge(remote, local, tombstones)
	result.Dropped = countDropped(remote, local)

	for i := range merged {
		merged[i] = normalize(merged[i])
	}

	if err := s.local.Save(ctx, merged); err != nil {
		return nil, err
	}
	if s.metadata != nil {
		if err := s.metadata.SetMetadata(metadataKeyLastSync, time.Now().UTC().Format(time.RFC3339)); err != nil {
			log.Warn("record last sync time", "error", err)
		}
	}

	s.snapshot.Publish(merged)
	result.Records = merged
	return result, nil
}

// push upserts every pending record. A failure leaves that record pending and
// moves on to the next. Records are updated in place.
func (s *Syncer) push(ctx context.Context, log *slog.Logger, records []Record, owner string) (pushed, failed int) {
	for i := range records {
		if !records[i].Pending() {
			continue
		}
		err := upsertRecord(ctx, s.remote, s.collection, records[i], owner)
		metrics.RecordsPushed.WithLabelValues(metrics.Outcome(err)).Inc()
		if err != nil {
			failed++
			log.Warn("push failed", "id", records[i].ID, "error", err)
			continue
		}
		records[i].Synced = boolPtr(true)
		records[i].OwnerID = owner
		pushed++
	}
	return pushed, failed
}

// flushDeletes retries owed remote deletes, removing each success from ids.
func (s *Syncer) flushDeletes(ctx context.Context, log *slog.Logger, ids map[string]bool) int {
	pending := make([]string, 0, len(ids))
	for id := range ids {
		pending = append(pending, id)
	}
	sort.Strings(pending)

	flushed := 0
	for _, id := range pending {
		err := deleteRecord(ctx, s.remote, s.collection, id)
		metrics.RemoteWrites.WithLabelValues("delete", metrics.Outcome(err)).Inc()
		if err != nil {
			log.Warn("pending delete failed", "id", id, "error", err)
			continue
		}
		delete(ids, id)
		flushed++
	}
	return flushed
}

// Merge builds the reconciled collection: every remote record not awaiting a
// remote delete, followed by local pending records the remote does not have.
// Local records that are not pending and absent remotely are dropped. The
// result is sorted newest first; ties keep their merged order. Inputs are
// not modified.
func Merge(remote, local []Record, tombstones map[string]bool) []Record {
	inRemote := make(map[string]bool, len(remote))
	merged := make([]Record, 0, len(remote)+len(local))
	for _, r := range remote {
		inRemote[r.ID] = true
		if tombstones[r.ID] {
			continue
		}
		merged = append(merged, r.Clone())
	}
	for _, l := range local {
		if l.Pending() && !inRemote[l.ID] {
			merged = append(merged, l.Clone())
		}
	}
	sortNewestFirst(merged)
	return merged
}

func sortNewestFirst(records []Record) {
	slices.SortStableFunc(records, func(a, b Record) int {
		return CompareTimestamps(b.Timestamp, a.Timestamp)
	})
}

// countDropped counts local records that were not pending and that the
// remote no longer has.
func countDropped(remote, local []Record) int {
	inRemote := make(map[string]bool, len(remote))
	for _, r := range remote {
		inRemote[r.ID] = true
	}
	n := 0
	for _, l := range local {
		if !l.Pending() && !inRemote[l.ID] {
			n++
		}
	}
	return n
}

// normalize backfills fields absent from older records and stamps the cache
// form of the synced flag.
func normalize(r Record) Record {
	if r.DeliveryDeadline != nil && *r.DeliveryDeadline == "" {
		r.DeliveryDeadline = nil
	}
	r.Measurements = r.Measurements.Conform(r.Category)
	r.Synced = boolPtr(r.IsSynced())
	return r
}
