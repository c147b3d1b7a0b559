// Package notify delivers visitor-arrival alerts to staff. Delivery is
// attempted over an ordered list of channels; the first channel that accepts
// the alert wins and the rest are skipped. Only when every channel fails does
// the dispatcher report an error, which the check-in flow records as a
// delivery status rather than a check-in failure.
package notify

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/example/visitor-kiosk/internal/application"
)

// Channel is one way to deliver an alert to a recipient.
type Channel interface {
	Name() string
	Send(ctx context.Context, recipient application.RecipientEntry, text string) error
}

// Dispatcher fans a visitor alert out over its channels in order.
type Dispatcher struct {
	channels []Channel
	location string
	now      func() time.Time
	logger   *slog.Logger
}

// NewDispatcher builds a dispatcher over the given channels. The location is
// included in the alert text so staff know which desk the visitor is waiting
// at.
func NewDispatcher(channels []Channel, location string, logger *slog.Logger) *Dispatcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Dispatcher{
		channels: channels,
		location: location,
		now:      time.Now,
		logger:   logger,
	}
}

// WithClock replaces the dispatcher's time source, used by tests.
func (d *Dispatcher) WithClock(now func() time.Time) *Dispatcher {
	d.now = now
	return d
}

// Notify delivers an arrival alert for the visitor to the recipient. It
// returns nil as soon as one channel accepts the alert.
func (d *Dispatcher) Notify(ctx context.Context, recipient application.RecipientEntry, visitorName, purpose string) error {
	if len(d.channels) == 0 {
		return errors.New("notify: no delivery channels configured")
	}

	text := formatAlert(visitorName, purpose, d.location, d.now())

	var failures []error
	for _, ch := range d.channels {
		err := ch.Send(ctx, recipient, text)
		if err == nil {
			d.logger.InfoContext(ctx, "visitor alert delivered",
				slog.String("channel", ch.Name()),
				slog.String("recipient_id", recipient.ID),
			)
			return nil
		}
		d.logger.WarnContext(ctx, "visitor alert channel failed",
			slog.String("channel", ch.Name()),
			slog.String("recipient_id", recipient.ID),
			slog.String("error", err.Error()),
		)
		failures = append(failures, fmt.Errorf("%s: %w", ch.Name(), err))
	}

	return fmt.Errorf("notify: all channels failed: %w", errors.Join(failures...))
}

// formatAlert renders the text staff see when a visitor arrives.
func formatAlert(visitorName, purpose, location string, at time.Time) string {
	var b strings.Builder
	fmt.Fprintf(&b, ":wave: *%s* has arrived", visitorName)
	if location != "" {
		fmt.Fprintf(&b, " at %s", location)
	}
	b.WriteString(" and is waiting for you.")
	if purpose != "" {
		fmt.Fprintf(&b, "\n>Purpose: %s", purpose)
	}
	fmt.Fprintf(&b, "\n>Arrived: %s", at.Format("3:04 PM"))
	return b.String()
}
