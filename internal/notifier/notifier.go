// Package notifier turns notification requests into rendered emails and
// append-only delivery log rows. Every attempt is logged exactly once as
// sent or failed; no failure here ever reaches the operation that
// triggered the notification.
package notifier

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"attendly/internal/mailer"
	"attendly/internal/model"
	"attendly/pkg/checkin"
	"attendly/pkg/qr"
)

// LogStore is the slice of the repository the dispatcher writes to.
type LogStore interface {
	AppendNotificationLog(ctx context.Context, l *model.NotificationLog) error
}

type Dispatcher struct {
	sender mailer.Sender
	logs   LogStore
	log    *zerolog.Logger
}

func New(sender mailer.Sender, logs LogStore, log *zerolog.Logger) *Dispatcher {
	return &Dispatcher{sender: sender, logs: logs, log: log}
}

// Dispatch renders and sends one notification and appends its log row.
// The returned status mirrors what was logged; render and transport
// failures are absorbed here.
func (d *Dispatcher) Dispatch(ctx context.Context, kind model.NotificationKind, user *model.User, event *model.Event) model.NotificationStatus {
	status := model.NotificationSent

	subject, htmlBody, textBody, err := renderContent(kind, user, event)
	if err != nil {
		d.log.Error().Err(err).
			Str("kind", string(kind)).
			Int64("user_id", user.ID).
			Int64("event_id", event.ID).
			Msg("failed to render notification content")
		status = model.NotificationFailed
	} else if err := d.sender.Send(user.Email, subject, htmlBody, textBody); err != nil {
		d.log.Warn().Err(err).
			Str("kind", string(kind)).
			Str("to", user.Email).
			Msg("notification send failed")
		status = model.NotificationFailed
	}

	logRow := &model.NotificationLog{
		UserID:  user.ID,
		EventID: event.ID,
		Type:    kind,
		Status:  status,
	}
	if err := d.logs.AppendNotificationLog(ctx, logRow); err != nil {
		d.log.Error().Err(err).
			Str("kind", string(kind)).
			Int64("user_id", user.ID).
			Msg("failed to append notification log")
	}
	return status
}

func renderContent(kind model.NotificationKind, user *model.User, event *model.Event) (subject, htmlBody, textBody string, err error) {
	switch kind {
	case model.NotificationRegistration:
		qrImage, err := checkinQR(user.ID, event.ID)
		if err != nil {
			return "", "", "", err
		}
		subject = fmt.Sprintf("Registration Confirmation for %s", event.Purpose)
		htmlBody = fmt.Sprintf(
			"<p>Dear %s,</p>"+
				"<p>You have successfully registered for <strong>%s</strong>.</p>"+
				"<p>Please present this QR code at the event for check-in:</p>"+
				`<img src=%q alt="Your Event QR Code" />`+
				"<p>We look forward to seeing you there!</p>",
			user.Name, event.Purpose, qrImage,
		)
		return subject, htmlBody, "", nil

	case model.NotificationReminder:
		qrImage, err := checkinQR(user.ID, event.ID)
		if err != nil {
			return "", "", "", err
		}
		when := "soon"
		if event.StartDate != nil {
			when = event.StartDate.Format("2006-01-02")
		}
		subject = fmt.Sprintf("Reminder: %s", event.Purpose)
		htmlBody = fmt.Sprintf(
			"<p>Dear %s,</p>"+
				"<p>This is a friendly reminder for the upcoming event: <strong>%s</strong>.</p>"+
				"<p>Date: %s</p>"+
				"<p>Please present this QR code at the event for check-in:</p>"+
				`<img src=%q alt="Your Event QR Code" />`+
				"<p>We look forward to seeing you there!</p>",
			user.Name, event.Purpose, when, qrImage,
		)
		return subject, htmlBody, "", nil

	case model.NotificationAttendance:
		subject = fmt.Sprintf("Attendance Recorded for %s", event.Purpose)
		textBody = fmt.Sprintf(
			"Dear %s,\n\nYour attendance for %s has been recorded.",
			user.Name, event.Purpose,
		)
		return subject, "", textBody, nil
	}
	return "", "", "", fmt.Errorf("unknown notification kind %q", kind)
}

func checkinQR(userID, eventID int64) (string, error) {
	token := checkin.Token{UserID: userID, EventID: eventID}
	return qr.DataURI(token.Encode())
}
