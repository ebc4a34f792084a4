package service

import (
	"context"
	"math"
	"time"

	"go.uber.org/zap"

	"github.com/medisched/medisched/internal/config"
	"github.com/medisched/medisched/internal/domain/appointment"
	"github.com/medisched/medisched/internal/notifier"
)

// MaintenanceService runs the periodic jobs: statistics, reminder dispatch,
// cleanup of finished appointments, and the daily report. It is driven by
// the worker process, never by a request.
type MaintenanceService struct {
	repo     appointment.Repository
	notifier notifier.Enqueuer
	cfg      config.JobsConfig
	log      *zap.Logger
}

func NewMaintenanceService(
	repo appointment.Repository,
	n notifier.Enqueuer,
	cfg config.JobsConfig,
	log *zap.Logger,
) *MaintenanceService {
	return &MaintenanceService{repo: repo, notifier: n, cfg: cfg, log: log}
}

// Statistics aggregates the current appointment population by status.
func (s *MaintenanceService) Statistics(ctx context.Context) (*appointment.Statistics, error) {
	counts, err := s.repo.CountByStatus(ctx)
	if err != nil {
		return nil, err
	}

	var total int64
	for _, n := range counts {
		total += n
	}

	stats := &appointment.Statistics{
		Date:     time.Now().UTC(),
		Total:    total,
		ByStatus: counts,
	}
	if total > 0 {
		stats.CancellationRate = float64(counts[appointment.StatusCancelled]) / float64(total)
		stats.NoShowRate = float64(counts[appointment.StatusNoShow]) / float64(total)
	}

	s.log.Info("appointment statistics",
		zap.Int64("total", stats.Total),
		zap.Float64("cancellation_rate", stats.CancellationRate),
		zap.Float64("no_show_rate", stats.NoShowRate),
	)
	return stats, nil
}

// SendReminders enqueues a reminder email for every scheduled or confirmed
// appointment starting within the configured lead time. Delivery is
// at-least-once; a rerun inside the same window may remind twice.
func (s *MaintenanceService) SendReminders(ctx context.Context) (int, error) {
	now := time.Now()
	days := int(math.Ceil(s.cfg.ReminderLead.Hours() / 24))

	upcoming, err := s.repo.Upcoming(ctx, now, days)
	if err != nil {
		return 0, err
	}

	deadline := now.Add(s.cfg.ReminderLead)
	sent := 0
	for _, a := range upcoming {
		if a.AppointmentDate.After(deadline) {
			continue
		}
		s.notifier.Enqueue(ctx, notifier.Event{
			Kind:            notifier.KindReminder,
			AppointmentID:   a.ID,
			PatientEmail:    a.PatientEmail,
			PatientName:     a.PatientName,
			DoctorName:      a.DoctorName,
			AppointmentDate: a.AppointmentDate,
			LeadHours:       int(s.cfg.ReminderLead.Hours()),
		})
		sent++
	}

	s.log.Info("reminder scan complete", zap.Int("enqueued", sent))
	return sent, nil
}

// Cleanup archives cancelled and completed appointments older than the
// retention period. Archival is a soft delete; the rows stay queryable for
// audits outside this service.
func (s *MaintenanceService) Cleanup(ctx context.Context) (int64, error) {
	cutoff := time.Now().Add(-s.cfg.Retention)

	archived, err := s.repo.ArchiveFinishedBefore(ctx, cutoff)
	if err != nil {
		return 0, err
	}

	s.log.Info("cleanup complete",
		zap.Int64("archived", archived),
		zap.Time("cutoff", cutoff),
	)
	return archived, nil
}

// DailyReport summarizes the given day: appointments created, cancelled,
// and completed.
func (s *MaintenanceService) DailyReport(ctx context.Context, day time.Time) (*appointment.DailyReport, error) {
	start := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, day.Location())
	end := start.AddDate(0, 0, 1)

	created, err := s.repo.CountCreatedBetween(ctx, start, end)
	if err != nil {
		return nil, err
	}
	cancelled, err := s.repo.CountStatusUpdatedBetween(ctx, appointment.StatusCancelled, start, end)
	if err != nil {
		return nil, err
	}
	completed, err := s.repo.CountStatusUpdatedBetween(ctx, appointment.StatusCompleted, start, end)
	if err != nil {
		return nil, err
	}

	report := &appointment.DailyReport{
		Date:      start,
		New:       created,
		Cancelled: cancelled,
		Completed: completed,
	}

	s.log.Info("daily report",
		zap.Time("date", report.Date),
		zap.Int64("new", report.New),
		zap.Int64("cancelled", report.Cancelled),
		zap.Int64("completed", report.Completed),
	)
	return report, nil
}
