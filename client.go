package regs

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
	"golang.org/x/text/language"

	"github.com/hyperengineering/regs/internal/lock"
	"github.com/hyperengineering/regs/internal/logging"
	"github.com/hyperengineering/regs/internal/metrics"
	"github.com/hyperengineering/regs/internal/tracing"
)

// Client is the main interface for working with records.
//
// Every operation commits to the local store first. Changes are then
// mirrored to the remote store when an owner is attributed; a failed mirror
// never fails the operation and leaves the record pending for the next sync.
type Client struct {
	store    *Store
	records  *RecordStore
	remote   RemoteStore
	syncer   *Syncer
	snapshot *Snapshot
	locks    *lock.Manager
	config   Config
	logger   *slog.Logger
	tracer   *tracing.Tracer
	now      func() time.Time
	onPub    func([]Record)

	mu        sync.Mutex
	autoSync  bool
	closed    bool
	stopSync  chan struct{}
	syncDone  chan struct{}
	closeOnce sync.Once
}

// Option customizes a Client.
type Option func(*Client)

// WithRemote sets the remote store records are mirrored to.
func WithRemote(r RemoteStore) Option {
	return func(c *Client) { c.remote = r }
}

// WithLogger sets the client logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *Client) { c.logger = l }
}

// WithTracer sets the tracer used for sync spans.
func WithTracer(t *tracing.Tracer) Option {
	return func(c *Client) { c.tracer = t }
}

// WithPublisher registers fn to receive every published collection.
func WithPublisher(fn func([]Record)) Option {
	return func(c *Client) { c.onPub = fn }
}

// WithClock overrides the time source used for ids and timestamps.
func WithClock(now func() time.Time) Option {
	return func(c *Client) { c.now = now }
}

// WithLockManager shares named locks with other clients on the same store.
func WithLockManager(m *lock.Manager) Option {
	return func(c *Client) { c.locks = m }
}

// New creates a new regs client.
func New(cfg Config, opts ...Option) (*Client, error) {
	cfg = cfg.WithDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	c := &Client{
		config:   cfg,
		now:      time.Now,
		stopSync: make(chan struct{}),
		syncDone: make(chan struct{}),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.logger == nil {
		c.logger = logging.Discard()
	}
	if c.tracer == nil {
		c.tracer = tracing.Default()
	}
	if c.locks == nil {
		c.locks = lock.NewManager()
	}

	store, err := NewStore(cfg.LocalPath)
	if err != nil {
		return nil, fmt.Errorf("client: %w", err)
	}
	c.store = store
	c.records = NewRecordStore(store, cfg.Slot, c.logger)
	c.snapshot = NewSnapshot(c.onPub)
	c.syncer = NewSyncer(SyncerConfig{
		Local:      c.records,
		Remote:     c.remote,
		Metadata:   store,
		Collection: cfg.Collection,
		Locks:      c.locks,
		Snapshot:   c.snapshot,
		Logger:     c.logger,
		Tracer:     c.tracer,
	})

	return c, nil
}

// Config returns the effective configuration.
func (c *Client) Config() Config {
	return c.config
}

// Store returns the underlying local store.
func (c *Client) Store() *Store {
	return c.store
}

// Owner returns the configured owner, or OfflineOwner when none is set.
func (c *Client) Owner() string {
	return ownerOrOffline(c.config.Owner)
}

func ownerOrOffline(owner string) string {
	if Attributed(owner) {
		return owner
	}
	return OfflineOwner
}

func (c *Client) withLock(fn func() error) error {
	return c.locks.With(c.records.Key(), fn)
}

// mirrors reports whether changes made under owner go to the remote store.
func (c *Client) mirrors(owner string) bool {
	return c.remote != nil && Attributed(owner)
}

func (c *Client) newID(now time.Time) string {
	return ulid.MustNew(ulid.Timestamp(now), ulid.DefaultEntropy()).String()
}

// Create adds a record with an empty measurement schema for its category.
// The record is committed locally as pending, then pushed when owner is
// attributed; the returned record reflects that push.
func (c *Client) Create(ctx context.Context, owner string, params CreateParams) (*Record, error) {
	params.Title = strings.TrimSpace(params.Title)
	params.Description = strings.TrimSpace(params.Description)
	params.DeliveryDeadline = strings.TrimSpace(params.DeliveryDeadline)
	if err := validateStruct(params); err != nil {
		return nil, err
	}

	now := c.now()
	rec := Record{
		ID:               c.newID(now),
		OwnerID:          ownerOrOffline(owner),
		Title:            params.Title,
		Description:      params.Description,
		Thumbnail:        nullString(params.Thumbnail),
		Category:         params.Category,
		Measurements:     EmptyMeasurements(params.Category),
		Timestamp:        FormatTimestamp(now),
		DeliveryDeadline: nullString(params.DeliveryDeadline),
		Synced:           boolPtr(false),
	}

	err := c.withLock(func() error {
		records, err := c.records.Load(ctx)
		if err != nil {
			return err
		}
		records = append(records, rec)
		if err := c.records.Save(ctx, records); err != nil {
			return err
		}
		c.snapshot.Publish(records)

		if !c.mirrors(owner) {
			return nil
		}
		if err := c.mirror(ctx, "create", rec, owner); err != nil {
			return nil
		}
		rec.Synced = boolPtr(true)
		records[0] = rec
		if err := c.records.Save(ctx, records); err != nil {
			// the push is idempotent; the next sync repeats it
			c.logger.Warn("record synced flag not saved", "id", rec.ID, "error", err)
			rec.Synced = boolPtr(false)
			return nil
		}
		c.snapshot.Publish(records)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

// mirror upserts rec to the remote store and logs any failure.
func (c *Client) mirror(ctx context.Context, op string, rec Record, owner string) error {
	err := upsertRecord(ctx, c.remote, c.config.Collection, rec, owner)
	metrics.RemoteWrites.WithLabelValues(op, metrics.Outcome(err)).Inc()
	if err != nil {
		c.logger.Warn("remote mirror failed, record left pending", "op", op, "id", rec.ID, "error", err)
	}
	return err
}

// mutate applies fn to the record with id, commits the collection, and
// mirrors the result. A record that was pending stays pending; a synced
// record becomes pending when the mirror fails or no owner is attributed.
func (c *Client) mutate(ctx context.Context, op, owner, id string, fn func(*Record) error) (*Record, error) {
	var out Record
	err := c.withLock(func() error {
		records, err := c.records.Load(ctx)
		if err != nil {
			return err
		}
		idx := indexOf(records, id)
		if idx < 0 {
			return fmt.Errorf("%w: %s", ErrNotFound, id)
		}

		rec := records[idx].Clone()
		if err := fn(&rec); err != nil {
			return err
		}

		wasPending := rec.Pending()
		mirror := !wasPending && c.mirrors(owner)
		if !wasPending && !mirror {
			rec.Synced = boolPtr(false)
		}

		records[idx] = rec
		if err := c.records.Save(ctx, records); err != nil {
			return err
		}
		c.snapshot.Publish(records)

		if mirror {
			if err := c.mirror(ctx, op, rec, owner); err != nil {
				rec.Synced = boolPtr(false)
				records[idx] = rec
				if err := c.records.Save(ctx, records); err != nil {
					return err
				}
				c.snapshot.Publish(records)
			}
		}
		out = rec
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// Edit replaces the text fields of a record. An empty deadline clears it.
func (c *Client) Edit(ctx context.Context, owner, id string, params EditParams) (*Record, error) {
	params.Title = strings.TrimSpace(params.Title)
	params.Description = strings.TrimSpace(params.Description)
	params.DeliveryDeadline = strings.TrimSpace(params.DeliveryDeadline)
	if err := validateStruct(params); err != nil {
		return nil, err
	}

	return c.mutate(ctx, "edit", owner, id, func(r *Record) error {
		r.Title = params.Title
		r.Description = params.Description
		r.DeliveryDeadline = nullString(params.DeliveryDeadline)
		return nil
	})
}

// UpdateMeasurements applies values to a record's measurements. Fields not
// named in values are kept; a nil value clears a field. Every named group
// and field must belong to the record's category schema.
func (c *Client) UpdateMeasurements(ctx context.Context, owner, id string, values Measurements) (*Record, error) {
	return c.mutate(ctx, "measure", owner, id, func(r *Record) error {
		if err := values.Validate(r.Category); err != nil {
			return err
		}
		m := r.Measurements.Conform(r.Category)
		for group, fields := range values {
			for f, v := range fields {
				if v == nil {
					m[group][f] = nil
					continue
				}
				val := *v
				m[group][f] = &val
			}
		}
		r.Measurements = m
		return nil
	})
}

// ToggleDelivered sets the delivered flag of a record.
func (c *Client) ToggleDelivered(ctx context.Context, owner, id string, delivered bool) (*Record, error) {
	return c.mutate(ctx, "deliver", owner, id, func(r *Record) error {
		r.Delivered = delivered
		return nil
	})
}

// Delete removes a record. The remote delete runs first; if it fails, or no
// owner is attributed for a record the remote may hold, the id is kept as a
// pending delete that the next sync retries and that suppresses the record
// from being pulled back in.
func (c *Client) Delete(ctx context.Context, owner, id string) error {
	return c.withLock(func() error {
		records, err := c.records.Load(ctx)
		if err != nil {
			return err
		}
		idx := indexOf(records, id)
		if idx < 0 {
			return fmt.Errorf("%w: %s", ErrNotFound, id)
		}
		rec := records[idx]

		tombstones, err := c.records.Tombstones(ctx)
		if err != nil {
			return err
		}
		c.deleteRemote(ctx, owner, rec, tombstones)

		// tombstones first: a record must not vanish locally without its owed delete
		if err := c.records.SaveTombstones(ctx, tombstones); err != nil {
			return err
		}
		records = append(records[:idx], records[idx+1:]...)
		if err := c.records.Save(ctx, records); err != nil {
			return err
		}
		metrics.PendingDeletes.Set(float64(len(tombstones)))
		c.snapshot.Publish(records)
		return nil
	})
}

// deleteRemote deletes rec remotely, recording a tombstone when the delete
// is still owed afterwards.
func (c *Client) deleteRemote(ctx context.Context, owner string, rec Record, tombstones map[string]bool) {
	if c.mirrors(owner) {
		err := deleteRecord(ctx, c.remote, c.config.Collection, rec.ID)
		metrics.RemoteWrites.WithLabelValues("delete", metrics.Outcome(err)).Inc()
		if err == nil {
			delete(tombstones, rec.ID)
			return
		}
		c.logger.Warn("remote delete failed, queued for retry", "id", rec.ID, "error", err)
	}
	// records that never carried an account owner were never pushed
	if Attributed(rec.OwnerID) {
		tombstones[rec.ID] = true
	}
}

// DeleteAll removes every record, attempting a remote delete for each first.
// It returns the number of records removed.
func (c *Client) DeleteAll(ctx context.Context, owner string) (int, error) {
	var n int
	err := c.withLock(func() error {
		records, err := c.records.Load(ctx)
		if err != nil {
			return err
		}
		tombstones, err := c.records.Tombstones(ctx)
		if err != nil {
			return err
		}
		for _, rec := range records {
			c.deleteRemote(ctx, owner, rec, tombstones)
		}

		if err := c.records.SaveTombstones(ctx, tombstones); err != nil {
			return err
		}
		if err := c.records.Save(ctx, []Record{}); err != nil {
			return err
		}
		metrics.PendingDeletes.Set(float64(len(tombstones)))
		c.snapshot.Publish([]Record{})
		n = len(records)
		return nil
	})
	return n, err
}

// Get returns the record with id from the local store.
func (c *Client) Get(ctx context.Context, id string) (*Record, error) {
	records, err := c.records.Load(ctx)
	if err != nil {
		return nil, err
	}
	idx := indexOf(records, id)
	if idx < 0 {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	rec := records[idx]
	return &rec, nil
}

// Records returns the most recently published collection.
func (c *Client) Records() []Record {
	return c.snapshot.Records()
}

// List returns the local collection filtered and sorted by opts.
func (c *Client) List(ctx context.Context, opts FilterOptions) ([]Record, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	if opts.Locale == language.Und {
		opts.Locale = c.config.LocaleTag()
	}
	records, err := c.records.Load(ctx)
	if err != nil {
		return nil, err
	}
	return BuildView(records, opts), nil
}

// Stats returns collection statistics.
func (c *Client) Stats(ctx context.Context) (*Stats, error) {
	records, err := c.records.Load(ctx)
	if err != nil {
		return nil, err
	}
	tombstones, err := c.records.Tombstones(ctx)
	if err != nil {
		return nil, err
	}
	st := ComputeStats(records)
	st.PendingDeletes = len(tombstones)
	if last, err := c.store.LastSync(); err == nil {
		st.LastSync = last
	}
	return &st, nil
}

// Sync reconciles the local collection with the remote store for owner.
func (c *Client) Sync(ctx context.Context, owner string) (*SyncResult, error) {
	return c.syncer.Sync(ctx, owner)
}

// pinger is implemented by remote stores that can report reachability.
type pinger interface {
	Ping(ctx context.Context) error
}

// HealthCheck returns the health status of the client.
func (c *Client) HealthCheck(ctx context.Context) HealthStatus {
	status := HealthStatus{
		Healthy: true,
		StoreOK: true,
	}

	if err := c.store.Ping(ctx); err != nil {
		status.StoreOK = false
		status.Healthy = false
		status.Error = err.Error()
		return status
	}

	if p, ok := c.remote.(pinger); ok {
		err := p.Ping(ctx)
		status.RemoteReachable = err == nil
		if err != nil {
			status.Error = err.Error()
		}
	}

	return status
}

// StartAutoSync syncs for owner every SyncInterval until Close.
// Calling it again while running has no effect.
func (c *Client) StartAutoSync(owner string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.autoSync || c.closed {
		return
	}
	c.autoSync = true
	go c.backgroundSync(owner)
}

// Close stops background sync and closes the store.
func (c *Client) Close() error {
	c.closeOnce.Do(func() {
		c.mu.Lock()
		c.closed = true
		running := c.autoSync
		c.mu.Unlock()

		close(c.stopSync)
		if running {
			select {
			case <-c.syncDone:
			case <-time.After(5 * time.Second):
			}
		}
	})
	return c.store.Close()
}

func (c *Client) backgroundSync(owner string) {
	defer close(c.syncDone)

	ticker := time.NewTicker(c.config.SyncInterval)
	defer ticker.Stop()

	for {
		select {
		case <-c.stopSync:
			return
		case <-ticker.C:
			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			if _, err := c.syncer.Sync(ctx, owner); err != nil {
				c.logger.Error("background sync failed", "error", err)
			}
			cancel()
		}
	}
}
