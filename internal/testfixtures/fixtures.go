// Package testfixtures supplies deterministic building blocks shared by
// tests: a controllable clock and canned visitor and roster data.
package testfixtures

import (
	"time"

	"github.com/google/uuid"

	"github.com/example/visitor-kiosk/internal/application"
	"github.com/example/visitor-kiosk/internal/persistence"
)

// ReferenceTime is the shared instant fixtures are anchored to, a Monday
// morning during reception hours.
func ReferenceTime() time.Time {
	return time.Date(2024, 6, 3, 9, 0, 0, 0, time.UTC)
}

// NewVisitorID returns a fresh random visitor identifier.
func NewVisitorID() string {
	return uuid.NewString()
}

// ActiveVisitor returns an open cache record checked in at the reference time.
func ActiveVisitor(id, fullName string) persistence.CacheRecord {
	if id == "" {
		id = NewVisitorID()
	}
	return persistence.CacheRecord{
		ID:          id,
		FullName:    fullName,
		CheckedInAt: ReferenceTime(),
	}
}

// DepartedVisitor returns a cache record that checked out an hour after the
// reference time.
func DepartedVisitor(id, fullName string) persistence.CacheRecord {
	record := ActiveVisitor(id, fullName)
	out := ReferenceTime().Add(time.Hour)
	record.CheckedOutAt = &out
	return record
}

// Roster returns a small directory roster with stable entries.
func Roster() []application.RecipientEntry {
	return []application.RecipientEntry{
		{ID: "U100001", Handle: "jdoe", DisplayName: "John Doe", Contact: "john.doe@example.com"},
		{ID: "U100002", Handle: "jsmith", DisplayName: "Jane Smith", Contact: "jane.smith@example.com"},
		{ID: "U100003", Handle: "mjohnson", DisplayName: "Mike Johnson", Contact: "mike.johnson@example.com"},
	}
}
