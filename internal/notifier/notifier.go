package notifier

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Kind identifies the email a queued event turns into.
type Kind string

const (
	KindConfirmation Kind = "appointment.confirmation"
	KindReminder     Kind = "appointment.reminder"
	KindCancellation Kind = "appointment.cancellation"
)

// Event is the payload handed to the notification pipeline. Delivery is
// at-least-once and entirely the pipeline's concern: enqueueing never fails
// the operation that produced the event.
type Event struct {
	Kind            Kind      `json:"kind"`
	AppointmentID   uuid.UUID `json:"appointment_id"`
	PatientEmail    string    `json:"patient_email"`
	PatientName     string    `json:"patient_name"`
	DoctorName      string    `json:"doctor_name"`
	AppointmentDate time.Time `json:"appointment_date"`
	Reason          *string   `json:"reason,omitempty"`
	LeadHours       int       `json:"lead_hours,omitempty"`
}

// Enqueuer is the producer side of the pipeline. Implementations absorb and
// log their own failures.
type Enqueuer interface {
	Enqueue(ctx context.Context, ev Event)
}

// envelope wraps an event on the wire with its delivery bookkeeping.
type envelope struct {
	Event      Event     `json:"event"`
	Attempt    int       `json:"attempt"`
	EnqueuedAt time.Time `json:"enqueued_at"`
}
