package appointment

import (
	"context"
	"time"

	"github.com/google/uuid"
)

type Repository interface {
	Create(ctx context.Context, a *Appointment) error
	GetByID(ctx context.Context, id uuid.UUID) (*Appointment, error)

	// Save persists the full record atomically. On error the stored row is
	// left unchanged.
	Save(ctx context.Context, a *Appointment) error

	List(ctx context.Context, q *ListAppointmentsQuery) (*PagedAppointments, error)

	// Upcoming returns scheduled or confirmed appointments with a date in
	// [now, now+days], ascending.
	Upcoming(ctx context.Context, now time.Time, days int) ([]*Appointment, error)

	// ByPatientEmail matches the email exactly, most recent appointment first.
	ByPatientEmail(ctx context.Context, email string) ([]*Appointment, error)

	// ByDoctorName matches the name exactly with optional inclusive date
	// bounds, ascending.
	ByDoctorName(ctx context.Context, name string, from, to *time.Time) ([]*Appointment, error)

	// Maintenance queries, used by the periodic jobs.
	CountByStatus(ctx context.Context) (map[Status]int64, error)
	CountCreatedBetween(ctx context.Context, from, to time.Time) (int64, error)
	CountStatusUpdatedBetween(ctx context.Context, status Status, from, to time.Time) (int64, error)

	// ArchiveFinishedBefore soft-deletes cancelled and completed
	// appointments older than the cutoff and returns how many were archived.
	ArchiveFinishedBefore(ctx context.Context, cutoff time.Time) (int64, error)
}
