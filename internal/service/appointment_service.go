package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/medisched/medisched/internal/config"
	"github.com/medisched/medisched/internal/domain/appointment"
	"github.com/medisched/medisched/internal/notifier"
	"github.com/medisched/medisched/pkg/metrics"
)

// AppointmentService orchestrates the appointment lifecycle and the read
// queries. It holds no state between calls; the repository is the single
// source of truth and the notifier is fire-and-forget.
type AppointmentService struct {
	repo     appointment.Repository
	notifier notifier.Enqueuer
	cfg      config.SchedulingConfig
	metrics  *metrics.Collector
	log      *zap.Logger
}

func NewAppointmentService(
	repo appointment.Repository,
	n notifier.Enqueuer,
	cfg config.SchedulingConfig,
	m *metrics.Collector,
	log *zap.Logger,
) *AppointmentService {
	return &AppointmentService{repo: repo, notifier: n, cfg: cfg, metrics: m, log: log}
}

// Schedule creates a new appointment. The scheduling-window rule is
// re-checked here even though the transport boundary validates it too: it is
// a business rule, not a structural one. The confirmation event is enqueued
// strictly after the insert commits so a failed insert never notifies.
func (s *AppointmentService) Schedule(ctx context.Context, cmd *appointment.CreateAppointmentCommand) (*appointment.Appointment, error) {
	if err := appointment.ValidateSchedulingWindow(cmd.AppointmentDate, time.Now(), s.cfg.HorizonDays); err != nil {
		return nil, err
	}

	duration := cmd.DurationMins
	if duration == 0 {
		duration = appointment.DefaultDurationMins
	}
	if err := appointment.ValidateDuration(duration); err != nil {
		return nil, err
	}

	a := &appointment.Appointment{
		PatientName:     cmd.PatientName,
		PatientEmail:    cmd.PatientEmail,
		PatientPhone:    cmd.PatientPhone,
		DoctorName:      cmd.DoctorName,
		Specialty:       cmd.Specialty,
		AppointmentDate: cmd.AppointmentDate,
		DurationMins:    duration,
		Reason:          cmd.Reason,
		Notes:           cmd.Notes,
		Status:          appointment.StatusScheduled,
	}

	if err := s.repo.Create(ctx, a); err != nil {
		s.log.Error("failed to create appointment", zap.Error(err))
		return nil, err
	}

	s.metrics.AppointmentsTotal.WithLabelValues(string(a.Status)).Inc()

	s.notifier.Enqueue(ctx, notifier.Event{
		Kind:            notifier.KindConfirmation,
		AppointmentID:   a.ID,
		PatientEmail:    a.PatientEmail,
		PatientName:     a.PatientName,
		DoctorName:      a.DoctorName,
		AppointmentDate: a.AppointmentDate,
	})

	return a, nil
}

// Update applies a sparse patch: only non-nil fields change. Rescheduling
// re-runs the full scheduling-window check. A status value in the patch is
// written as-is without consulting the cancellation rules; the only
// transition guard on this path is the cancelled-target check.
func (s *AppointmentService) Update(ctx context.Context, id uuid.UUID, cmd *appointment.UpdateAppointmentCommand) (*appointment.Appointment, error) {
	a, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if err := appointment.CanUpdate(a); err != nil {
		return nil, fmt.Errorf("appointment %s: %w", id, err)
	}

	if cmd.AppointmentDate != nil {
		if err := appointment.ValidateSchedulingWindow(*cmd.AppointmentDate, time.Now(), s.cfg.HorizonDays); err != nil {
			return nil, err
		}
	}
	if cmd.DurationMins != nil {
		if err := appointment.ValidateDuration(*cmd.DurationMins); err != nil {
			return nil, err
		}
	}
	if cmd.Status != nil && !cmd.Status.IsValid() {
		return nil, fmt.Errorf("%q: %w", *cmd.Status, appointment.ErrInvalidStatus)
	}

	applyPatch(a, cmd)

	if err := s.repo.Save(ctx, a); err != nil {
		s.log.Error("failed to update appointment", zap.String("id", id.String()), zap.Error(err))
		return nil, err
	}

	if cmd.Status != nil {
		s.metrics.AppointmentsTotal.WithLabelValues(string(a.Status)).Inc()
	}

	return a, nil
}

// Cancel transitions the appointment to cancelled and enqueues the
// cancellation email after the write commits.
func (s *AppointmentService) Cancel(ctx context.Context, id uuid.UUID) (*appointment.Appointment, error) {
	a, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if err := appointment.CanCancel(a); err != nil {
		return nil, fmt.Errorf("appointment %s: %w", id, err)
	}

	a.Status = appointment.StatusCancelled

	if err := s.repo.Save(ctx, a); err != nil {
		s.log.Error("failed to cancel appointment", zap.String("id", id.String()), zap.Error(err))
		return nil, err
	}

	s.metrics.AppointmentsTotal.WithLabelValues(string(a.Status)).Inc()

	s.notifier.Enqueue(ctx, notifier.Event{
		Kind:            notifier.KindCancellation,
		AppointmentID:   a.ID,
		PatientEmail:    a.PatientEmail,
		PatientName:     a.PatientName,
		DoctorName:      a.DoctorName,
		AppointmentDate: a.AppointmentDate,
	})

	return a, nil
}

func (s *AppointmentService) Get(ctx context.Context, id uuid.UUID) (*appointment.Appointment, error) {
	return s.repo.GetByID(ctx, id)
}

// List runs the filtered, paginated query. Page and page size are
// normalized here so every caller gets the same defaults.
func (s *AppointmentService) List(ctx context.Context, q *appointment.ListAppointmentsQuery) (*appointment.PagedAppointments, error) {
	if q.PageSize <= 0 || q.PageSize > s.cfg.MaxPageSize {
		q.PageSize = s.cfg.DefaultPageSize
	}
	if q.Page <= 0 {
		q.Page = 1
	}
	return s.repo.List(ctx, q)
}

// Upcoming returns scheduled and confirmed appointments in the next
// daysAhead days; 0 falls back to the configured default window.
func (s *AppointmentService) Upcoming(ctx context.Context, daysAhead int) ([]*appointment.Appointment, error) {
	if daysAhead <= 0 {
		daysAhead = s.cfg.UpcomingWindowDays
	}
	return s.repo.Upcoming(ctx, time.Now(), daysAhead)
}

func (s *AppointmentService) ByPatient(ctx context.Context, email string) ([]*appointment.Appointment, error) {
	return s.repo.ByPatientEmail(ctx, email)
}

func (s *AppointmentService) ByDoctor(ctx context.Context, name string, from, to *time.Time) ([]*appointment.Appointment, error) {
	return s.repo.ByDoctorName(ctx, name, from, to)
}

func applyPatch(a *appointment.Appointment, cmd *appointment.UpdateAppointmentCommand) {
	if cmd.PatientName != nil {
		a.PatientName = *cmd.PatientName
	}
	if cmd.PatientEmail != nil {
		a.PatientEmail = *cmd.PatientEmail
	}
	if cmd.PatientPhone != nil {
		a.PatientPhone = cmd.PatientPhone
	}
	if cmd.DoctorName != nil {
		a.DoctorName = *cmd.DoctorName
	}
	if cmd.Specialty != nil {
		a.Specialty = *cmd.Specialty
	}
	if cmd.AppointmentDate != nil {
		a.AppointmentDate = *cmd.AppointmentDate
	}
	if cmd.DurationMins != nil {
		a.DurationMins = *cmd.DurationMins
	}
	if cmd.Reason != nil {
		a.Reason = cmd.Reason
	}
	if cmd.Notes != nil {
		a.Notes = cmd.Notes
	}
	if cmd.Status != nil {
		a.Status = *cmd.Status
	}
}
