package persistence

import "time"

// CacheRecord is the device-local projection of one visit session. It carries
// only the fields the check-out search and the active-visitor list need; the
// remote record store holds the full session.
type CacheRecord struct {
	ID           string
	FullName     string
	PersonToMeet string
	PhoneNumber  string
	CheckedInAt  time.Time
	CheckedOutAt *time.Time
}

// Active reports whether the record has not been checked out yet.
func (r CacheRecord) Active() bool {
	return r.CheckedOutAt == nil
}
