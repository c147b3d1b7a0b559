package application

import (
	"context"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/example/visitor-kiosk/internal/persistence"
)

// CacheStorage persists the session cache snapshot between process runs.
type CacheStorage interface {
	Load(ctx context.Context) ([]persistence.CacheRecord, error)
	Save(ctx context.Context, records []persistence.CacheRecord) error
}

// CheckInRecord carries the fields recorded locally for a new visit session.
type CheckInRecord struct {
	ID           string
	FullName     string
	PersonToMeet string
	PhoneNumber  string
	CheckedInAt  time.Time
}

// SessionCache mirrors the currently active visit sessions on this device.
//
// The cache is a derived, non-authoritative view: the remote record store is
// the source of truth and the two may diverge. Every mutation is written
// back to the injected storage; storage failures are logged and absorbed so
// a broken local disk never blocks a visitor flow.
type SessionCache struct {
	mu        sync.Mutex
	storage   CacheStorage
	retention time.Duration
	logger    *slog.Logger
	records   map[string]persistence.CacheRecord
}

// NewSessionCache constructs a session cache backed by the provided storage.
func NewSessionCache(storage CacheStorage, retention time.Duration, logger *slog.Logger) *SessionCache {
	if retention <= 0 {
		retention = 24 * time.Hour
	}
	return &SessionCache{
		storage:   storage,
		retention: retention,
		logger:    defaultLogger(logger),
		records:   make(map[string]persistence.CacheRecord),
	}
}

// Load initialises the cache from storage. A missing or corrupt snapshot is
// treated as an empty cache, never as a fatal condition.
func (c *SessionCache) Load(ctx context.Context) {
	if c == nil || c.storage == nil {
		return
	}

	records, err := c.storage.Load(ctx)
	if err != nil {
		c.logger.WarnContext(ctx, "session cache snapshot unreadable, starting empty", "error", err)
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	for _, record := range records {
		c.records[record.ID] = record
	}
}

// RecordCheckIn stores a local record for a session the remote store accepted.
// Calling it again with the same id is a no-op.
func (c *SessionCache) RecordCheckIn(ctx context.Context, rec CheckInRecord) {
	if c == nil || rec.ID == "" {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.records[rec.ID]; ok {
		return
	}

	c.records[rec.ID] = persistence.CacheRecord{
		ID:           rec.ID,
		FullName:     rec.FullName,
		PersonToMeet: rec.PersonToMeet,
		PhoneNumber:  rec.PhoneNumber,
		CheckedInAt:  rec.CheckedInAt,
	}
	c.persistLocked(ctx)
}

// RecordCheckOut stamps the checkout time on the first call for an id and
// returns the record as it was before the stamp. A second call finds the
// record closed and returns it unchanged; the timestamp is never overwritten.
// An absent id yields ErrNotFound.
func (c *SessionCache) RecordCheckOut(ctx context.Context, id string, at time.Time) (persistence.CacheRecord, error) {
	if c == nil {
		return persistence.CacheRecord{}, ErrNotFound
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	record, ok := c.records[id]
	if !ok {
		return persistence.CacheRecord{}, ErrNotFound
	}
	if record.CheckedOutAt != nil {
		return cloneRecord(record), nil
	}

	prior := cloneRecord(record)
	stamped := at
	record.CheckedOutAt = &stamped
	c.records[id] = record
	c.persistLocked(ctx)

	return prior, nil
}

// ListActive returns the records without a checkout timestamp, ordered by
// check-in time.
func (c *SessionCache) ListActive() []persistence.CacheRecord {
	if c == nil {
		return nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	active := make([]persistence.CacheRecord, 0, len(c.records))
	for _, record := range c.records {
		if record.Active() {
			active = append(active, cloneRecord(record))
		}
	}

	sort.Slice(active, func(i, j int) bool {
		if active[i].CheckedInAt.Equal(active[j].CheckedInAt) {
			return active[i].ID < active[j].ID
		}
		return active[i].CheckedInAt.Before(active[j].CheckedInAt)
	})

	return active
}

// SweepExpired discards every record, open or closed, whose check-in time is
// older than the retention window relative to now.
func (c *SessionCache) SweepExpired(ctx context.Context, now time.Time) {
	if c == nil {
		return
	}

	cutoff := now.Add(-c.retention)

	c.mu.Lock()
	defer c.mu.Unlock()

	removed := 0
	for id, record := range c.records {
		if record.CheckedInAt.Before(cutoff) {
			delete(c.records, id)
			removed++
		}
	}
	if removed > 0 {
		c.logger.InfoContext(ctx, "swept expired cache records", "removed", removed)
		c.persistLocked(ctx)
	}
}

func (c *SessionCache) persistLocked(ctx context.Context) {
	if c.storage == nil {
		return
	}

	snapshot := make([]persistence.CacheRecord, 0, len(c.records))
	for _, record := range c.records {
		snapshot = append(snapshot, cloneRecord(record))
	}
	sort.Slice(snapshot, func(i, j int) bool { return snapshot[i].ID < snapshot[j].ID })

	if err := c.storage.Save(ctx, snapshot); err != nil {
		c.logger.ErrorContext(ctx, "failed to persist session cache snapshot", "error", err)
	}
}

func cloneRecord(record persistence.CacheRecord) persistence.CacheRecord {
	clone := record
	if record.CheckedOutAt != nil {
		at := *record.CheckedOutAt
		clone.CheckedOutAt = &at
	}
	return clone
}
