package application

import (
	"context"
	"errors"
	"testing"
	"time"
)

type visitorRecordsStub struct {
	events *[]string

	insertID       string
	insertErr      error
	inserted       []NewVisitorRecord
	checkoutErr    error
	checkedOut     []string
	lateID         string
	lateErr        error
	lateArrivals   []LateArrivalRecord
	checkoutTimes  []time.Time
	insertAttempts int
}

func (s *visitorRecordsStub) record(event string) {
	if s.events != nil {
		*s.events = append(*s.events, event)
	}
}

func (s *visitorRecordsStub) InsertVisitor(ctx context.Context, record NewVisitorRecord) (string, error) {
	s.insertAttempts++
	s.record("insert")
	if s.insertErr != nil {
		return "", s.insertErr
	}
	s.inserted = append(s.inserted, record)
	if s.insertID == "" {
		return "visit-1", nil
	}
	return s.insertID, nil
}

func (s *visitorRecordsStub) MarkCheckedOut(ctx context.Context, id string, at time.Time) error {
	s.record("checkout")
	if s.checkoutErr != nil {
		return s.checkoutErr
	}
	s.checkedOut = append(s.checkedOut, id)
	s.checkoutTimes = append(s.checkoutTimes, at)
	return nil
}

func (s *visitorRecordsStub) InsertLateArrival(ctx context.Context, record LateArrivalRecord) (string, error) {
	s.record("late")
	if s.lateErr != nil {
		return "", s.lateErr
	}
	s.lateArrivals = append(s.lateArrivals, record)
	if s.lateID == "" {
		return "late-1", nil
	}
	return s.lateID, nil
}

type directoryStub struct {
	roster []RecipientEntry
	calls  int
}

func (d *directoryStub) ListRecipients(ctx context.Context) []RecipientEntry {
	d.calls++
	return d.roster
}

type notifierStub struct {
	events *[]string

	err        error
	recipients []RecipientEntry
	names      []string
	purposes   []string
}

func (n *notifierStub) Notify(ctx context.Context, recipient RecipientEntry, visitorName, purpose string) error {
	if n.events != nil {
		*n.events = append(*n.events, "notify")
	}
	n.recipients = append(n.recipients, recipient)
	n.names = append(n.names, visitorName)
	n.purposes = append(n.purposes, purpose)
	return n.err
}

func fixedNow(t *testing.T) func() time.Time {
	t.Helper()
	at := time.Date(2024, 6, 3, 9, 30, 0, 0, time.UTC)
	return func() time.Time { return at }
}

func validCheckIn() CheckInInput {
	return CheckInInput{
		FullName:     "  Jane Visitor  ",
		Reason:       ReasonClientMeeting,
		PersonToMeet: "John Doe",
		PhoneNumber:  "5550100",
		Photo:        "data:image/jpeg;base64,xxxx",
	}
}

func newTestService(records *visitorRecordsStub, directory RecipientDirectory, notifier Notifier, now func() time.Time) (*VisitService, *SessionCache) {
	cache := NewSessionCache(&cacheStorageStub{}, 24*time.Hour, nil)
	return NewVisitService(records, cache, directory, notifier, now), cache
}

func TestVisitService_CheckIn_Succeeds(t *testing.T) {
	t.Parallel()

	records := &visitorRecordsStub{insertID: "visit-42"}
	directory := &directoryStub{roster: testRoster()}
	notifier := &notifierStub{}
	svc, cache := newTestService(records, directory, notifier, fixedNow(t))

	confirmation, err := svc.CheckIn(context.Background(), validCheckIn())
	if err != nil {
		t.Fatalf("CheckIn returned error: %v", err)
	}

	if confirmation.Kind != ConfirmationCheckIn {
		t.Fatalf("expected checkin confirmation, got %q", confirmation.Kind)
	}
	if confirmation.VisitorID != "visit-42" {
		t.Fatalf("expected remote-assigned id, got %q", confirmation.VisitorID)
	}
	if confirmation.FullName != "Jane Visitor" {
		t.Fatalf("expected trimmed name, got %q", confirmation.FullName)
	}
	if confirmation.Notification != NotificationSent {
		t.Fatalf("expected notification sent, got %q", confirmation.Notification)
	}

	if len(records.inserted) != 1 {
		t.Fatalf("expected one remote insert, got %d", len(records.inserted))
	}
	if records.inserted[0].ReasonForVisit != string(ReasonClientMeeting) {
		t.Fatalf("unexpected reason payload: %q", records.inserted[0].ReasonForVisit)
	}

	active := cache.ListActive()
	if len(active) != 1 || active[0].ID != "visit-42" {
		t.Fatalf("expected exactly one active cache record with the remote id, got %+v", active)
	}
	if active[0].CheckedOutAt != nil {
		t.Fatalf("fresh check-in must have a null checkout timestamp")
	}

	if len(notifier.recipients) != 1 || notifier.recipients[0].ID != "U123456" {
		t.Fatalf("expected notification to resolved recipient, got %+v", notifier.recipients)
	}
	if notifier.names[0] != "Jane Visitor" || notifier.purposes[0] != "client-meeting" {
		t.Fatalf("unexpected notification payload: %q / %q", notifier.names[0], notifier.purposes[0])
	}
}

func TestVisitService_CheckIn_StepsRunInOrder(t *testing.T) {
	t.Parallel()

	events := make([]string, 0, 3)
	records := &visitorRecordsStub{events: &events}
	notifier := &notifierStub{events: &events}
	cache := NewSessionCache(&cacheStorageStub{events: &events}, 24*time.Hour, nil)
	svc := NewVisitService(records, cache, &directoryStub{roster: testRoster()}, notifier, fixedNow(t))

	if _, err := svc.CheckIn(context.Background(), validCheckIn()); err != nil {
		t.Fatalf("CheckIn returned error: %v", err)
	}

	// The remote write is authoritative and comes first; the notification is
	// attempted before the session is recorded locally.
	if len(events) != 3 || events[0] != "insert" || events[1] != "notify" || events[2] != "cache" {
		t.Fatalf("expected insert, notify, cache in order, got %v", events)
	}
}

func TestVisitService_CheckIn_ValidationBlocksBeforeAnySideEffect(t *testing.T) {
	t.Parallel()

	records := &visitorRecordsStub{}
	svc, cache := newTestService(records, &directoryStub{}, &notifierStub{}, fixedNow(t))

	input := validCheckIn()
	input.PersonToMeet = "   "

	_, err := svc.CheckIn(context.Background(), input)
	var vErr *ValidationError
	if !errors.As(err, &vErr) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
	if _, ok := vErr.FieldErrors["person_to_meet"]; !ok {
		t.Fatalf("expected person_to_meet field error, got %+v", vErr.FieldErrors)
	}
	if records.insertAttempts != 0 {
		t.Fatalf("validation failure must not reach the remote store")
	}
	if len(cache.ListActive()) != 0 {
		t.Fatalf("validation failure must not touch the cache")
	}
}

func TestVisitService_CheckIn_OtherReasonRequiresText(t *testing.T) {
	t.Parallel()

	records := &visitorRecordsStub{}
	svc, _ := newTestService(records, &directoryStub{}, &notifierStub{}, fixedNow(t))

	input := validCheckIn()
	input.Reason = ReasonOther
	input.OtherReason = ""

	_, err := svc.CheckIn(context.Background(), input)
	var vErr *ValidationError
	if !errors.As(err, &vErr) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
	if _, ok := vErr.FieldErrors["other_reason"]; !ok {
		t.Fatalf("expected other_reason field error, got %+v", vErr.FieldErrors)
	}
}

func TestVisitService_CheckIn_OtherReasonTextBecomesPurpose(t *testing.T) {
	t.Parallel()

	records := &visitorRecordsStub{}
	notifier := &notifierStub{}
	svc, _ := newTestService(records, &directoryStub{roster: testRoster()}, notifier, fixedNow(t))

	input := validCheckIn()
	input.Reason = ReasonOther
	input.OtherReason = " fire inspection "

	if _, err := svc.CheckIn(context.Background(), input); err != nil {
		t.Fatalf("CheckIn returned error: %v", err)
	}

	if records.inserted[0].ReasonForVisit != "fire inspection" {
		t.Fatalf("expected free-text reason in record, got %q", records.inserted[0].ReasonForVisit)
	}
	if notifier.purposes[0] != "fire inspection" {
		t.Fatalf("expected free-text reason in notification, got %q", notifier.purposes[0])
	}
}

func TestVisitService_CheckIn_RemoteFailureMutatesNothing(t *testing.T) {
	t.Parallel()

	records := &visitorRecordsStub{insertErr: errors.New("store unreachable")}
	notifier := &notifierStub{}
	svc, cache := newTestService(records, &directoryStub{roster: testRoster()}, notifier, fixedNow(t))

	_, err := svc.CheckIn(context.Background(), validCheckIn())
	if !errors.Is(err, ErrRemoteStore) {
		t.Fatalf("expected ErrRemoteStore, got %v", err)
	}
	if len(cache.ListActive()) != 0 {
		t.Fatalf("remote failure must not create a cache record")
	}
	if len(notifier.recipients) != 0 {
		t.Fatalf("remote failure must prevent any notification attempt")
	}
}

func TestVisitService_CheckIn_NotificationFailureDoesNotRevertCheckIn(t *testing.T) {
	t.Parallel()

	records := &visitorRecordsStub{}
	notifier := &notifierStub{err: ErrNotificationFailed}
	svc, cache := newTestService(records, &directoryStub{roster: testRoster()}, notifier, fixedNow(t))

	confirmation, err := svc.CheckIn(context.Background(), validCheckIn())
	if err != nil {
		t.Fatalf("notification failure must not fail the check-in, got %v", err)
	}
	if confirmation.Notification != NotificationFailed {
		t.Fatalf("expected failed notification status, got %q", confirmation.Notification)
	}
	if len(cache.ListActive()) != 1 {
		t.Fatalf("check-in must remain recorded despite notification failure")
	}
}

func TestVisitService_CheckIn_EmptyRosterDowngradesToRecipientNotFound(t *testing.T) {
	t.Parallel()

	records := &visitorRecordsStub{}
	notifier := &notifierStub{}
	svc, _ := newTestService(records, &directoryStub{}, notifier, fixedNow(t))

	confirmation, err := svc.CheckIn(context.Background(), validCheckIn())
	if err != nil {
		t.Fatalf("CheckIn returned error: %v", err)
	}
	if confirmation.Notification != NotificationNoRecipient {
		t.Fatalf("expected recipient-not-found status, got %q", confirmation.Notification)
	}
	if len(notifier.recipients) != 0 {
		t.Fatalf("no notification attempt expected without a recipient")
	}
}

func TestVisitService_CheckIn_NoNotifierSkipsNotification(t *testing.T) {
	t.Parallel()

	records := &visitorRecordsStub{}
	directory := &directoryStub{roster: testRoster()}
	svc, _ := newTestService(records, directory, nil, fixedNow(t))

	confirmation, err := svc.CheckIn(context.Background(), validCheckIn())
	if err != nil {
		t.Fatalf("CheckIn returned error: %v", err)
	}
	if confirmation.Notification != NotificationSkipped {
		t.Fatalf("expected skipped status, got %q", confirmation.Notification)
	}
	if directory.calls != 0 {
		t.Fatalf("roster must not be fetched when no notifier is configured")
	}
}

func TestVisitService_LateCheckIn_Succeeds(t *testing.T) {
	t.Parallel()

	records := &visitorRecordsStub{lateID: "late-7"}
	notifier := &notifierStub{}
	svc, cache := newTestService(records, &directoryStub{roster: testRoster()}, notifier, fixedNow(t))

	confirmation, err := svc.LateCheckIn(context.Background(), LateCheckInInput{
		FullName: " Robert Lee ",
		Reason:   "doctor appointment",
	})
	if err != nil {
		t.Fatalf("LateCheckIn returned error: %v", err)
	}

	if confirmation.Kind != ConfirmationLateCheckIn || confirmation.VisitorID != "late-7" {
		t.Fatalf("unexpected confirmation: %+v", confirmation)
	}
	if len(records.lateArrivals) != 1 || records.lateArrivals[0].FullName != "Robert Lee" {
		t.Fatalf("unexpected late arrival payload: %+v", records.lateArrivals)
	}
	if len(notifier.recipients) != 0 {
		t.Fatalf("late check-in must not notify anyone")
	}
	if len(cache.ListActive()) != 0 {
		t.Fatalf("late check-in must not create a cache record")
	}
}

func TestVisitService_LateCheckIn_ValidatesFields(t *testing.T) {
	t.Parallel()

	records := &visitorRecordsStub{}
	svc, _ := newTestService(records, &directoryStub{}, nil, fixedNow(t))

	_, err := svc.LateCheckIn(context.Background(), LateCheckInInput{FullName: "", Reason: " "})
	var vErr *ValidationError
	if !errors.As(err, &vErr) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
	for _, field := range []string{"full_name", "reason_for_late"} {
		if _, ok := vErr.FieldErrors[field]; !ok {
			t.Fatalf("expected %s field error, got %+v", field, vErr.FieldErrors)
		}
	}
}

func TestVisitService_CheckOut_ClosesActiveSession(t *testing.T) {
	t.Parallel()

	records := &visitorRecordsStub{insertID: "visit-9"}
	svc, cache := newTestService(records, &directoryStub{roster: testRoster()}, &notifierStub{}, fixedNow(t))

	if _, err := svc.CheckIn(context.Background(), validCheckIn()); err != nil {
		t.Fatalf("CheckIn returned error: %v", err)
	}

	confirmation, err := svc.CheckOut(context.Background(), "jane")
	if err != nil {
		t.Fatalf("CheckOut returned error: %v", err)
	}

	if confirmation.Kind != ConfirmationCheckOut || confirmation.VisitorID != "visit-9" {
		t.Fatalf("unexpected confirmation: %+v", confirmation)
	}
	if confirmation.CheckedOutAt == nil {
		t.Fatalf("expected checkout timestamp on confirmation")
	}
	if len(records.checkedOut) != 1 || records.checkedOut[0] != "visit-9" {
		t.Fatalf("expected remote checkout for visit-9, got %+v", records.checkedOut)
	}
	if len(cache.ListActive()) != 0 {
		t.Fatalf("expected session to leave the active list")
	}
}

func TestVisitService_CheckOut_MatchesPhoneAndPersonToMeet(t *testing.T) {
	t.Parallel()

	records := &visitorRecordsStub{}
	svc, cache := newTestService(records, &directoryStub{}, nil, fixedNow(t))

	now := fixedNow(t)()
	cache.RecordCheckIn(context.Background(), CheckInRecord{
		ID: "visit-1", FullName: "Jane Visitor", PhoneNumber: "5550100", PersonToMeet: "John Doe", CheckedInAt: now,
	})
	cache.RecordCheckIn(context.Background(), CheckInRecord{
		ID: "visit-2", FullName: "Sam Courier", PhoneNumber: "5550999", PersonToMeet: "Mike Johnson", CheckedInAt: now.Add(time.Minute),
	})

	confirmation, err := svc.CheckOut(context.Background(), "5550999")
	if err != nil {
		t.Fatalf("phone search returned error: %v", err)
	}
	if confirmation.VisitorID != "visit-2" {
		t.Fatalf("expected phone match on visit-2, got %q", confirmation.VisitorID)
	}

	confirmation, err = svc.CheckOut(context.Background(), "john doe")
	if err != nil {
		t.Fatalf("person-to-meet search returned error: %v", err)
	}
	if confirmation.VisitorID != "visit-1" {
		t.Fatalf("expected person-to-meet match on visit-1, got %q", confirmation.VisitorID)
	}
}

func TestVisitService_CheckOut_UnknownQueryReturnsNotFound(t *testing.T) {
	t.Parallel()

	records := &visitorRecordsStub{}
	svc, _ := newTestService(records, &directoryStub{}, nil, fixedNow(t))

	_, err := svc.CheckOut(context.Background(), "nobody")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if len(records.checkedOut) != 0 {
		t.Fatalf("not-found must not reach the remote store")
	}
}

func TestVisitService_CheckOut_RemoteFailureLeavesSessionActive(t *testing.T) {
	t.Parallel()

	records := &visitorRecordsStub{checkoutErr: errors.New("store unreachable")}
	svc, cache := newTestService(records, &directoryStub{}, nil, fixedNow(t))

	cache.RecordCheckIn(context.Background(), cacheCheckIn("visit-1", "Jane Visitor", fixedNow(t)()))

	_, err := svc.CheckOut(context.Background(), "jane")
	if !errors.Is(err, ErrRemoteStore) {
		t.Fatalf("expected ErrRemoteStore, got %v", err)
	}
	if len(cache.ListActive()) != 1 {
		t.Fatalf("failed remote write must leave the session active for retry")
	}
}

func TestVisitService_CheckOut_SecondAttemptFindsNothing(t *testing.T) {
	t.Parallel()

	records := &visitorRecordsStub{}
	svc, cache := newTestService(records, &directoryStub{}, nil, fixedNow(t))

	cache.RecordCheckIn(context.Background(), cacheCheckIn("visit-1", "Jane Visitor", fixedNow(t)()))

	if _, err := svc.CheckOut(context.Background(), "jane"); err != nil {
		t.Fatalf("first checkout returned error: %v", err)
	}
	if _, err := svc.CheckOut(context.Background(), "jane"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected second checkout to find nothing, got %v", err)
	}
}
