package application

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/example/visitor-kiosk/internal/persistence"
)

// VisitorRecords captures the remote record store operations needed by the service.
type VisitorRecords interface {
	InsertVisitor(ctx context.Context, record NewVisitorRecord) (string, error)
	MarkCheckedOut(ctx context.Context, id string, at time.Time) error
	InsertLateArrival(ctx context.Context, record LateArrivalRecord) (string, error)
}

// RecipientDirectory supplies the current roster. Implementations degrade to
// an empty roster on failure; a broken directory must never block check-in.
type RecipientDirectory interface {
	ListRecipients(ctx context.Context) []RecipientEntry
}

// Notifier delivers a best-effort visitor alert to a resolved recipient.
type Notifier interface {
	Notify(ctx context.Context, recipient RecipientEntry, visitorName, purpose string) error
}

// VisitService orchestrates the visitor session lifecycle: check-in, late
// check-in, and check-out. The remote record store is authoritative; the
// session cache and the notification are subordinate steps that never gate a
// successful remote write.
type VisitService struct {
	records   VisitorRecords
	cache     *SessionCache
	directory RecipientDirectory
	notifier  Notifier
	now       func() time.Time
	logger    *slog.Logger
}

// NewVisitService constructs a visit service with the provided dependencies.
// The notifier may be nil when no notification channel is configured.
func NewVisitService(records VisitorRecords, cache *SessionCache, directory RecipientDirectory, notifier Notifier, now func() time.Time) *VisitService {
	return NewVisitServiceWithLogger(records, cache, directory, notifier, now, nil)
}

// NewVisitServiceWithLogger constructs a visit service with a specified logger.
func NewVisitServiceWithLogger(records VisitorRecords, cache *SessionCache, directory RecipientDirectory, notifier Notifier, now func() time.Time, logger *slog.Logger) *VisitService {
	if now == nil {
		now = time.Now
	}
	return &VisitService{
		records:   records,
		cache:     cache,
		directory: directory,
		notifier:  notifier,
		now:       now,
		logger:    defaultLogger(logger),
	}
}

func (s *VisitService) loggerWith(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return serviceLogger(ctx, s.logger, "VisitService", operation, attrs...)
}

// CheckIn validates the form input, writes the authoritative record, attempts
// the recipient notification, and records the session locally, in that order.
// The remote write must complete before any notification attempt, and the
// notification attempt completes before the cache update and confirmation.
func (s *VisitService) CheckIn(ctx context.Context, input CheckInInput) (confirmation Confirmation, err error) {
	if s == nil {
		err = fmt.Errorf("VisitService is nil")
		return
	}
	if s.records == nil {
		err = fmt.Errorf("visitor records not configured")
		return
	}

	logger := s.loggerWith(ctx, "CheckIn",
		"full_name", strings.TrimSpace(input.FullName),
	)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "check-in failed", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.With(
			"visitor_id", confirmation.VisitorID,
			"notification", string(confirmation.Notification),
		).InfoContext(ctx, "visitor checked in")
	}()

	vErr := validateCheckInInput(input)
	if vErr.HasErrors() {
		err = vErr
		return
	}

	checkedInAt := s.now()
	purpose := purposeText(input)

	record := NewVisitorRecord{
		FullName:       strings.TrimSpace(input.FullName),
		ReasonForVisit: purpose,
		PersonToMeet:   strings.TrimSpace(input.PersonToMeet),
		Photo:          input.Photo,
		PhoneNumber:    strings.TrimSpace(input.PhoneNumber),
		CheckedInAt:    checkedInAt,
	}

	var id string
	id, err = s.records.InsertVisitor(ctx, record)
	if err != nil {
		err = fmt.Errorf("%w: %v", ErrRemoteStore, err)
		return
	}

	status := s.dispatchNotification(ctx, logger, record.PersonToMeet, record.FullName, purpose)

	if s.cache != nil {
		s.cache.RecordCheckIn(ctx, CheckInRecord{
			ID:           id,
			FullName:     record.FullName,
			PersonToMeet: record.PersonToMeet,
			PhoneNumber:  record.PhoneNumber,
			CheckedInAt:  checkedInAt,
		})
	}

	confirmation = Confirmation{
		Kind:         ConfirmationCheckIn,
		VisitorID:    id,
		FullName:     record.FullName,
		CheckedInAt:  checkedInAt,
		Notification: status,
	}
	return
}

// LateCheckIn records an employee arriving late. No photo is taken, no
// notification is sent, and the session never enters the check-out flow.
func (s *VisitService) LateCheckIn(ctx context.Context, input LateCheckInInput) (confirmation Confirmation, err error) {
	if s == nil {
		err = fmt.Errorf("VisitService is nil")
		return
	}
	if s.records == nil {
		err = fmt.Errorf("visitor records not configured")
		return
	}

	logger := s.loggerWith(ctx, "LateCheckIn",
		"full_name", strings.TrimSpace(input.FullName),
	)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "late check-in failed", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.With("record_id", confirmation.VisitorID).InfoContext(ctx, "late arrival recorded")
	}()

	vErr := &ValidationError{}
	if strings.TrimSpace(input.FullName) == "" {
		vErr.add("full_name", "full name is required")
	}
	if strings.TrimSpace(input.Reason) == "" {
		vErr.add("reason_for_late", "reason is required")
	}
	if vErr.HasErrors() {
		err = vErr
		return
	}

	timestamp := s.now()
	var id string
	id, err = s.records.InsertLateArrival(ctx, LateArrivalRecord{
		FullName:  strings.TrimSpace(input.FullName),
		Reason:    strings.TrimSpace(input.Reason),
		Timestamp: timestamp,
	})
	if err != nil {
		err = fmt.Errorf("%w: %v", ErrRemoteStore, err)
		return
	}

	confirmation = Confirmation{
		Kind:        ConfirmationLateCheckIn,
		VisitorID:   id,
		FullName:    strings.TrimSpace(input.FullName),
		CheckedInAt: timestamp,
	}
	return
}

// CheckOut resolves the query against the active cache records, writes the
// checkout timestamp to the remote store, and only then closes the local
// record. A failed remote write leaves the session active; no local-only
// checkout is ever accepted as final.
func (s *VisitService) CheckOut(ctx context.Context, query string) (confirmation Confirmation, err error) {
	if s == nil {
		err = fmt.Errorf("VisitService is nil")
		return
	}
	if s.records == nil {
		err = fmt.Errorf("visitor records not configured")
		return
	}
	if s.cache == nil {
		err = fmt.Errorf("session cache not configured")
		return
	}

	logger := s.loggerWith(ctx, "CheckOut",
		"query", strings.TrimSpace(query),
	)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "check-out failed", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.With("visitor_id", confirmation.VisitorID).InfoContext(ctx, "visitor checked out")
	}()

	target, ok := findActiveMatch(s.cache.ListActive(), query)
	if !ok {
		err = ErrNotFound
		return
	}

	checkedOutAt := s.now()
	if err = s.records.MarkCheckedOut(ctx, target.ID, checkedOutAt); err != nil {
		err = fmt.Errorf("%w: %v", ErrRemoteStore, err)
		return
	}

	prior, cacheErr := s.cache.RecordCheckOut(ctx, target.ID, checkedOutAt)
	if cacheErr != nil {
		// The remote write already succeeded; fall back to the search hit so
		// the caller still gets a confirmation.
		prior = target
	}

	confirmation = Confirmation{
		Kind:         ConfirmationCheckOut,
		VisitorID:    prior.ID,
		FullName:     prior.FullName,
		CheckedInAt:  prior.CheckedInAt,
		CheckedOutAt: &checkedOutAt,
	}
	return
}

// ActiveVisitors lists the sessions this device currently believes are on site.
func (s *VisitService) ActiveVisitors() []persistence.CacheRecord {
	if s == nil || s.cache == nil {
		return nil
	}
	return s.cache.ListActive()
}

// dispatchNotification resolves the person to meet and attempts delivery.
// Every failure mode is absorbed into a status; nothing here can fail the
// check-in that already persisted.
func (s *VisitService) dispatchNotification(ctx context.Context, logger *slog.Logger, personToMeet, visitorName, purpose string) NotificationStatus {
	if s.notifier == nil {
		return NotificationSkipped
	}

	var roster []RecipientEntry
	if s.directory != nil {
		roster = s.directory.ListRecipients(ctx)
	}

	recipient, ok := ResolveRecipient(roster, personToMeet)
	if !ok {
		logger.WarnContext(ctx, "recipient not found in roster", "person_to_meet", personToMeet)
		return NotificationNoRecipient
	}

	if err := s.notifier.Notify(ctx, recipient, visitorName, purpose); err != nil {
		logger.WarnContext(ctx, "notification delivery failed", "recipient_id", recipient.ID, "error", err)
		return NotificationFailed
	}
	return NotificationSent
}

// findActiveMatch locates the check-out target. All three fields are checked
// in one pass over the active records and the first hit wins: full name
// substring (case-insensitive), phone number substring (verbatim), person to
// meet substring (case-insensitive).
func findActiveMatch(records []persistence.CacheRecord, query string) (persistence.CacheRecord, bool) {
	trimmed := strings.TrimSpace(query)
	if trimmed == "" {
		return persistence.CacheRecord{}, false
	}
	needle := strings.ToLower(trimmed)

	for _, record := range records {
		if strings.Contains(strings.ToLower(record.FullName), needle) {
			return record, true
		}
		if record.PhoneNumber != "" && strings.Contains(record.PhoneNumber, trimmed) {
			return record, true
		}
		if record.PersonToMeet != "" && strings.Contains(strings.ToLower(record.PersonToMeet), needle) {
			return record, true
		}
	}

	return persistence.CacheRecord{}, false
}

func validateCheckInInput(input CheckInInput) *ValidationError {
	vErr := &ValidationError{}

	if strings.TrimSpace(input.FullName) == "" {
		vErr.add("full_name", "full name is required")
	}
	if input.Reason == "" {
		vErr.add("reason_for_visit", "reason for visit is required")
	} else if !input.Reason.Valid() {
		vErr.add("reason_for_visit", "reason for visit is not a known option")
	}
	if input.Reason == ReasonOther && strings.TrimSpace(input.OtherReason) == "" {
		vErr.add("other_reason", "please specify the reason for visit")
	}
	if strings.TrimSpace(input.PersonToMeet) == "" {
		vErr.add("person_to_meet", "person to meet is required")
	}
	if strings.TrimSpace(input.Photo) == "" {
		vErr.add("photo", "photo is required")
	}

	return vErr
}

// purposeText is the human-readable purpose written to the record store and
// carried in the notification. For the "other" reason the visitor's own words
// are used instead of the option value.
func purposeText(input CheckInInput) string {
	if input.Reason == ReasonOther {
		return strings.TrimSpace(input.OtherReason)
	}
	return string(input.Reason)
}
