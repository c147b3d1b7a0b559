package application

import "time"

// ReasonForVisit identifies why a visitor is on site.
type ReasonForVisit string

const (
	ReasonClientMeeting ReasonForVisit = "client-meeting"
	ReasonInterview     ReasonForVisit = "interview"
	ReasonDelivery      ReasonForVisit = "delivery"
	ReasonInternalGuest ReasonForVisit = "internal-guest"
	// ReasonOther requires an accompanying free-text description.
	ReasonOther ReasonForVisit = "other"
)

// Valid reports whether the value is one of the fixed reason options.
func (r ReasonForVisit) Valid() bool {
	switch r {
	case ReasonClientMeeting, ReasonInterview, ReasonDelivery, ReasonInternalGuest, ReasonOther:
		return true
	}
	return false
}

// CheckInInput captures the fields collected by the check-in form.
type CheckInInput struct {
	FullName     string
	Reason       ReasonForVisit
	OtherReason  string
	PersonToMeet string
	PhoneNumber  string
	// Photo is the encoded capture from the kiosk camera, required by policy.
	Photo string
}

// LateCheckInInput captures the reduced field set for employees arriving late.
type LateCheckInInput struct {
	FullName string
	Reason   string
}

// RecipientEntry is one addressable person from the directory roster. Entries
// are fetched per check-in and never persisted.
type RecipientEntry struct {
	ID          string
	Handle      string
	DisplayName string
	Contact     string
}

// NotificationStatus describes the outcome of the best-effort notification
// attempted during check-in. It is advisory and independent of the check-in
// result.
type NotificationStatus string

const (
	// NotificationSent means some channel accepted the message.
	NotificationSent NotificationStatus = "sent"
	// NotificationFailed means every configured channel failed.
	NotificationFailed NotificationStatus = "failed"
	// NotificationSkipped means no notifier is configured on this device.
	NotificationSkipped NotificationStatus = "skipped"
	// NotificationNoRecipient means the person to meet could not be resolved
	// against the roster.
	NotificationNoRecipient NotificationStatus = "recipient-not-found"
)

// ConfirmationKind tags the confirmation variant shown after an operation.
type ConfirmationKind string

const (
	ConfirmationCheckIn     ConfirmationKind = "checkin"
	ConfirmationCheckOut    ConfirmationKind = "checkout"
	ConfirmationLateCheckIn ConfirmationKind = "late-checkin"
)

// Confirmation is the outcome returned to the presentation layer.
type Confirmation struct {
	Kind         ConfirmationKind
	VisitorID    string
	FullName     string
	CheckedInAt  time.Time
	CheckedOutAt *time.Time
	Notification NotificationStatus
}

// NewVisitorRecord is the payload written to the remote record store on check-in.
type NewVisitorRecord struct {
	FullName       string
	ReasonForVisit string
	PersonToMeet   string
	Photo          string
	PhoneNumber    string
	CheckedInAt    time.Time
}

// LateArrivalRecord is the payload written to the remote late-arrival table.
type LateArrivalRecord struct {
	FullName  string
	Reason    string
	Timestamp time.Time
}
