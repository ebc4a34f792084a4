package notifier

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
)

// Mailer turns a notification event into an outgoing email.
type Mailer interface {
	Send(ctx context.Context, ev Event) error
}

// LogMailer writes the rendered email to the log instead of an SMTP
// connection. The production mail provider integration hangs off this
// interface; everything upstream is provider-agnostic.
type LogMailer struct {
	log *zap.Logger
}

func NewLogMailer(log *zap.Logger) *LogMailer {
	return &LogMailer{log: log}
}

func (m *LogMailer) Send(ctx context.Context, ev Event) error {
	subject, body, err := renderEmail(ev)
	if err != nil {
		return err
	}

	m.log.Info("sending email",
		zap.String("kind", string(ev.Kind)),
		zap.String("recipient", ev.PatientEmail),
		zap.String("subject", subject),
		zap.String("body", body),
	)
	return nil
}

func renderEmail(ev Event) (subject, body string, err error) {
	when := ev.AppointmentDate.Format(time.RFC1123)

	switch ev.Kind {
	case KindConfirmation:
		subject = "Your appointment is confirmed"
		body = fmt.Sprintf(
			"Dear %s,\n\nYour appointment has been confirmed.\n\nDoctor: %s\nDate: %s\nAppointment ID: %s\n\nIf you need to reschedule, please contact us.",
			ev.PatientName, ev.DoctorName, when, ev.AppointmentID,
		)

	case KindReminder:
		subject = "Appointment reminder"
		body = fmt.Sprintf(
			"Dear %s,\n\nThis is a reminder of your upcoming appointment in %d hours.\n\nDoctor: %s\nDate: %s\n\nPlease arrive 15 minutes early.",
			ev.PatientName, ev.LeadHours, ev.DoctorName, when,
		)

	case KindCancellation:
		subject = "Your appointment was cancelled"
		reason := ""
		if ev.Reason != nil {
			reason = "\nReason: " + *ev.Reason
		}
		body = fmt.Sprintf(
			"Dear %s,\n\nYour appointment %s has been cancelled.%s\n\nIf you would like to reschedule, please contact us.",
			ev.PatientName, ev.AppointmentID, reason,
		)

	default:
		return "", "", fmt.Errorf("unknown notification kind %q", ev.Kind)
	}

	return subject, body, nil
}
