package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/example/visitor-kiosk/internal/persistence"
	_ "modernc.org/sqlite"
)

// Store persists the session cache snapshot in a local SQLite database.
//
// The cache is written as a whole snapshot after every mutation, so Save
// replaces the full table contents in one transaction. Timestamps are stored
// as RFC3339 text.
type Store struct {
	db *sql.DB
}

// Open opens (or creates) the snapshot database at the provided DSN.
func Open(dsn string) (*Store, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("sqlite: failed to open %q: %w", dsn, err)
	}
	// A kiosk has exactly one writer; a single connection avoids SQLITE_BUSY.
	db.SetMaxOpenConns(1)
	return &Store{db: db}, nil
}

// Close releases the underlying database handle.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Migrate creates the snapshot table when it does not exist yet.
func (s *Store) Migrate(ctx context.Context) error {
	const schema = `
		CREATE TABLE IF NOT EXISTS visitor_cache (
			id             TEXT PRIMARY KEY,
			full_name      TEXT NOT NULL,
			person_to_meet TEXT NOT NULL DEFAULT '',
			phone_number   TEXT NOT NULL DEFAULT '',
			checked_in_at  TEXT NOT NULL,
			checked_out_at TEXT
		)
	`
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("sqlite: failed to create visitor_cache: %w", err)
	}
	return nil
}

// Load reads the complete snapshot. Undecodable rows make the whole snapshot
// corrupt; callers start from an empty cache in that case.
func (s *Store) Load(ctx context.Context) ([]persistence.CacheRecord, error) {
	const query = `
		SELECT id, full_name, person_to_meet, phone_number, checked_in_at, checked_out_at
		FROM visitor_cache
	`

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("sqlite: failed to read snapshot: %w", err)
	}
	defer rows.Close()

	records := make([]persistence.CacheRecord, 0)
	for rows.Next() {
		var record persistence.CacheRecord
		var checkedInAt string
		var checkedOutAt sql.NullString

		if err := rows.Scan(
			&record.ID,
			&record.FullName,
			&record.PersonToMeet,
			&record.PhoneNumber,
			&checkedInAt,
			&checkedOutAt,
		); err != nil {
			return nil, fmt.Errorf("%w: %v", persistence.ErrCorrupted, err)
		}

		if record.CheckedInAt, err = time.Parse(time.RFC3339, checkedInAt); err != nil {
			return nil, fmt.Errorf("%w: bad checked_in_at for %s: %v", persistence.ErrCorrupted, record.ID, err)
		}
		if checkedOutAt.Valid {
			parsed, err := time.Parse(time.RFC3339, checkedOutAt.String)
			if err != nil {
				return nil, fmt.Errorf("%w: bad checked_out_at for %s: %v", persistence.ErrCorrupted, record.ID, err)
			}
			record.CheckedOutAt = &parsed
		}

		records = append(records, record)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: failed to read snapshot: %w", err)
	}

	return records, nil
}

// Save replaces the stored snapshot with the provided records.
func (s *Store) Save(ctx context.Context, records []persistence.CacheRecord) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("sqlite: failed to begin snapshot write: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	if _, err := tx.ExecContext(ctx, `DELETE FROM visitor_cache`); err != nil {
		return fmt.Errorf("sqlite: failed to clear snapshot: %w", err)
	}

	const insert = `
		INSERT INTO visitor_cache (id, full_name, person_to_meet, phone_number, checked_in_at, checked_out_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`
	for _, record := range records {
		var checkedOutAt sql.NullString
		if record.CheckedOutAt != nil {
			checkedOutAt.String = record.CheckedOutAt.UTC().Format(time.RFC3339)
			checkedOutAt.Valid = true
		}

		if _, err := tx.ExecContext(ctx, insert,
			record.ID,
			record.FullName,
			record.PersonToMeet,
			record.PhoneNumber,
			record.CheckedInAt.UTC().Format(time.RFC3339),
			checkedOutAt,
		); err != nil {
			return fmt.Errorf("sqlite: failed to write record %s: %w", record.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("sqlite: failed to commit snapshot: %w", err)
	}
	return nil
}
