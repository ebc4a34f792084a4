package service

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/medisched/medisched/internal/config"
	"github.com/medisched/medisched/internal/domain/appointment"
	"github.com/medisched/medisched/internal/notifier"
	"github.com/medisched/medisched/pkg/metrics"
)

// mockRepo is a map-backed Repository for service tests. Query methods that
// the lifecycle paths never touch are backed by the stored map too, with
// just enough filtering for the maintenance tests.
type mockRepo struct {
	store     map[uuid.UUID]*appointment.Appointment
	createErr error
	saveErr   error
}

func newMockRepo() *mockRepo {
	return &mockRepo{store: make(map[uuid.UUID]*appointment.Appointment)}
}

func (m *mockRepo) Create(_ context.Context, a *appointment.Appointment) error {
	if m.createErr != nil {
		return m.createErr
	}
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	a.CreatedAt = time.Now()
	copied := *a
	m.store[a.ID] = &copied
	return nil
}

func (m *mockRepo) GetByID(_ context.Context, id uuid.UUID) (*appointment.Appointment, error) {
	a, ok := m.store[id]
	if !ok {
		return nil, appointment.ErrAppointmentNotFound
	}
	copied := *a
	return &copied, nil
}

func (m *mockRepo) Save(_ context.Context, a *appointment.Appointment) error {
	if m.saveErr != nil {
		return m.saveErr
	}
	now := time.Now()
	a.UpdatedAt = &now
	copied := *a
	m.store[a.ID] = &copied
	return nil
}

func (m *mockRepo) List(_ context.Context, q *appointment.ListAppointmentsQuery) (*appointment.PagedAppointments, error) {
	items := m.all()
	return appointment.NewPagedAppointments(items, int64(len(items)), q.Page, q.PageSize), nil
}

func (m *mockRepo) Upcoming(_ context.Context, now time.Time, days int) ([]*appointment.Appointment, error) {
	var out []*appointment.Appointment
	end := now.AddDate(0, 0, days)
	for _, a := range m.all() {
		if a.Status != appointment.StatusScheduled && a.Status != appointment.StatusConfirmed {
			continue
		}
		if a.AppointmentDate.Before(now) || a.AppointmentDate.After(end) {
			continue
		}
		out = append(out, a)
	}
	return out, nil
}

func (m *mockRepo) ByPatientEmail(_ context.Context, email string) ([]*appointment.Appointment, error) {
	var out []*appointment.Appointment
	for _, a := range m.all() {
		if a.PatientEmail == email {
			out = append(out, a)
		}
	}
	return out, nil
}

func (m *mockRepo) ByDoctorName(_ context.Context, name string, _, _ *time.Time) ([]*appointment.Appointment, error) {
	var out []*appointment.Appointment
	for _, a := range m.all() {
		if a.DoctorName == name {
			out = append(out, a)
		}
	}
	return out, nil
}

func (m *mockRepo) CountByStatus(_ context.Context) (map[appointment.Status]int64, error) {
	counts := make(map[appointment.Status]int64)
	for _, a := range m.all() {
		counts[a.Status]++
	}
	return counts, nil
}

func (m *mockRepo) CountCreatedBetween(_ context.Context, from, to time.Time) (int64, error) {
	var n int64
	for _, a := range m.all() {
		if !a.CreatedAt.Before(from) && a.CreatedAt.Before(to) {
			n++
		}
	}
	return n, nil
}

func (m *mockRepo) CountStatusUpdatedBetween(_ context.Context, status appointment.Status, from, to time.Time) (int64, error) {
	var n int64
	for _, a := range m.all() {
		if a.Status != status || a.UpdatedAt == nil {
			continue
		}
		if !a.UpdatedAt.Before(from) && a.UpdatedAt.Before(to) {
			n++
		}
	}
	return n, nil
}

func (m *mockRepo) ArchiveFinishedBefore(_ context.Context, cutoff time.Time) (int64, error) {
	var n int64
	for id, a := range m.store {
		finished := a.Status == appointment.StatusCancelled || a.Status == appointment.StatusCompleted
		if finished && a.AppointmentDate.Before(cutoff) {
			delete(m.store, id)
			n++
		}
	}
	return n, nil
}

func (m *mockRepo) all() []*appointment.Appointment {
	out := make([]*appointment.Appointment, 0, len(m.store))
	for _, a := range m.store {
		copied := *a
		out = append(out, &copied)
	}
	return out
}

// captureEnqueuer records enqueued events for assertions.
type captureEnqueuer struct {
	events []notifier.Event
}

func (c *captureEnqueuer) Enqueue(_ context.Context, ev notifier.Event) {
	c.events = append(c.events, ev)
}

func testSchedulingConfig() config.SchedulingConfig {
	return config.SchedulingConfig{
		HorizonDays:        90,
		UpcomingWindowDays: 7,
		DefaultPageSize:    20,
		MaxPageSize:        100,
	}
}

func newTestService(repo *mockRepo, enq *captureEnqueuer) *AppointmentService {
	collector := metrics.NewCollector("test", prometheus.NewRegistry())
	return NewAppointmentService(repo, enq, testSchedulingConfig(), collector, zap.NewNop())
}

func validCreateCommand() *appointment.CreateAppointmentCommand {
	return &appointment.CreateAppointmentCommand{
		PatientName:     "Alice Johnson",
		PatientEmail:    "alice@example.com",
		DoctorName:      "Dr. Smith",
		Specialty:       "Cardiology",
		AppointmentDate: time.Now().Add(48 * time.Hour),
		DurationMins:    30,
	}
}

func TestSchedule(t *testing.T) {
	ctx := context.Background()

	t.Run("creates and enqueues confirmation", func(t *testing.T) {
		repo := newMockRepo()
		enq := &captureEnqueuer{}
		svc := newTestService(repo, enq)

		created, err := svc.Schedule(ctx, validCreateCommand())
		if err != nil {
			t.Fatalf("Schedule: %v", err)
		}
		if created.Status != appointment.StatusScheduled {
			t.Errorf("Status = %s, want scheduled", created.Status)
		}
		if len(repo.store) != 1 {
			t.Fatalf("store has %d records, want 1", len(repo.store))
		}
		if len(enq.events) != 1 || enq.events[0].Kind != notifier.KindConfirmation {
			t.Fatalf("events = %+v, want one confirmation", enq.events)
		}
		if enq.events[0].AppointmentID != created.ID {
			t.Error("event carries the wrong appointment ID")
		}
	})

	t.Run("zero duration defaults to thirty minutes", func(t *testing.T) {
		repo := newMockRepo()
		svc := newTestService(repo, &captureEnqueuer{})

		cmd := validCreateCommand()
		cmd.DurationMins = 0
		created, err := svc.Schedule(ctx, cmd)
		if err != nil {
			t.Fatalf("Schedule: %v", err)
		}
		if created.DurationMins != appointment.DefaultDurationMins {
			t.Errorf("DurationMins = %d, want %d", created.DurationMins, appointment.DefaultDurationMins)
		}
	})

	t.Run("past date fails before any write", func(t *testing.T) {
		repo := newMockRepo()
		enq := &captureEnqueuer{}
		svc := newTestService(repo, enq)

		cmd := validCreateCommand()
		cmd.AppointmentDate = time.Now().Add(-time.Hour)
		_, err := svc.Schedule(ctx, cmd)
		if !errors.Is(err, appointment.ErrScheduledInPast) {
			t.Fatalf("got %v, want ErrScheduledInPast", err)
		}
		if len(repo.store) != 0 || len(enq.events) != 0 {
			t.Error("failed schedule must not store or notify")
		}
	})

	t.Run("beyond horizon names the limit", func(t *testing.T) {
		svc := newTestService(newMockRepo(), &captureEnqueuer{})

		cmd := validCreateCommand()
		cmd.AppointmentDate = time.Now().AddDate(0, 0, 91)
		_, err := svc.Schedule(ctx, cmd)
		var horizonErr *appointment.HorizonError
		if !errors.As(err, &horizonErr) {
			t.Fatalf("got %v, want *HorizonError", err)
		}
		if !strings.Contains(err.Error(), "90") {
			t.Errorf("error %q should mention the configured horizon", err.Error())
		}
	})

	t.Run("storage failure suppresses notification", func(t *testing.T) {
		repo := newMockRepo()
		repo.createErr = errors.New("connection reset")
		enq := &captureEnqueuer{}
		svc := newTestService(repo, enq)

		if _, err := svc.Schedule(ctx, validCreateCommand()); err == nil {
			t.Fatal("expected storage error")
		}
		if len(enq.events) != 0 {
			t.Error("no event may be enqueued when the insert fails")
		}
	})
}

func TestUpdate(t *testing.T) {
	ctx := context.Background()

	t.Run("partial patch changes only supplied fields", func(t *testing.T) {
		repo := newMockRepo()
		svc := newTestService(repo, &captureEnqueuer{})

		created, err := svc.Schedule(ctx, validCreateCommand())
		if err != nil {
			t.Fatalf("Schedule: %v", err)
		}

		notes := "bring previous scans"
		updated, err := svc.Update(ctx, created.ID, &appointment.UpdateAppointmentCommand{Notes: &notes})
		if err != nil {
			t.Fatalf("Update: %v", err)
		}
		if updated.Notes == nil || *updated.Notes != notes {
			t.Error("notes not applied")
		}
		if updated.PatientName != created.PatientName || updated.DoctorName != created.DoctorName {
			t.Error("unrelated fields must be untouched")
		}
		if !updated.AppointmentDate.Equal(created.AppointmentDate) {
			t.Error("date must be untouched")
		}
	})

	t.Run("cancelled appointment rejects updates", func(t *testing.T) {
		repo := newMockRepo()
		svc := newTestService(repo, &captureEnqueuer{})

		created, _ := svc.Schedule(ctx, validCreateCommand())
		if _, err := svc.Cancel(ctx, created.ID); err != nil {
			t.Fatalf("Cancel: %v", err)
		}

		notes := "too late"
		_, err := svc.Update(ctx, created.ID, &appointment.UpdateAppointmentCommand{Notes: &notes})
		if !errors.Is(err, appointment.ErrUpdateCancelled) {
			t.Fatalf("got %v, want ErrUpdateCancelled", err)
		}
	})

	t.Run("invalid status value rejected", func(t *testing.T) {
		repo := newMockRepo()
		svc := newTestService(repo, &captureEnqueuer{})

		created, _ := svc.Schedule(ctx, validCreateCommand())
		bogus := appointment.Status("pending")
		_, err := svc.Update(ctx, created.ID, &appointment.UpdateAppointmentCommand{Status: &bogus})
		if !errors.Is(err, appointment.ErrInvalidStatus) {
			t.Fatalf("got %v, want ErrInvalidStatus", err)
		}
	})

	t.Run("status override is written as-is", func(t *testing.T) {
		repo := newMockRepo()
		svc := newTestService(repo, &captureEnqueuer{})

		created, _ := svc.Schedule(ctx, validCreateCommand())
		completed := appointment.StatusCompleted
		updated, err := svc.Update(ctx, created.ID, &appointment.UpdateAppointmentCommand{Status: &completed})
		if err != nil {
			t.Fatalf("Update: %v", err)
		}
		if updated.Status != appointment.StatusCompleted {
			t.Errorf("Status = %s, want completed", updated.Status)
		}
	})

	t.Run("reschedule beyond horizon rejected", func(t *testing.T) {
		repo := newMockRepo()
		svc := newTestService(repo, &captureEnqueuer{})

		created, _ := svc.Schedule(ctx, validCreateCommand())
		farOut := time.Now().AddDate(0, 0, 200)
		_, err := svc.Update(ctx, created.ID, &appointment.UpdateAppointmentCommand{AppointmentDate: &farOut})
		var horizonErr *appointment.HorizonError
		if !errors.As(err, &horizonErr) {
			t.Fatalf("got %v, want *HorizonError", err)
		}

		stored, err := svc.Get(ctx, created.ID)
		if err != nil {
			t.Fatalf("Get: %v", err)
		}
		if !stored.AppointmentDate.Equal(created.AppointmentDate) {
			t.Error("rejected reschedule must not change the stored date")
		}
	})

	t.Run("reschedule into the past rejected", func(t *testing.T) {
		repo := newMockRepo()
		svc := newTestService(repo, &captureEnqueuer{})

		created, _ := svc.Schedule(ctx, validCreateCommand())
		past := time.Now().Add(-time.Hour)
		_, err := svc.Update(ctx, created.ID, &appointment.UpdateAppointmentCommand{AppointmentDate: &past})
		if !errors.Is(err, appointment.ErrScheduledInPast) {
			t.Fatalf("got %v, want ErrScheduledInPast", err)
		}
	})

	t.Run("reschedule inside window accepted", func(t *testing.T) {
		repo := newMockRepo()
		svc := newTestService(repo, &captureEnqueuer{})

		created, _ := svc.Schedule(ctx, validCreateCommand())
		nextWeek := time.Now().AddDate(0, 0, 7)
		updated, err := svc.Update(ctx, created.ID, &appointment.UpdateAppointmentCommand{AppointmentDate: &nextWeek})
		if err != nil {
			t.Fatalf("Update: %v", err)
		}
		if !updated.AppointmentDate.Equal(nextWeek) {
			t.Errorf("AppointmentDate = %v, want %v", updated.AppointmentDate, nextWeek)
		}
	})

	t.Run("invalid duration rejected", func(t *testing.T) {
		repo := newMockRepo()
		svc := newTestService(repo, &captureEnqueuer{})

		created, _ := svc.Schedule(ctx, validCreateCommand())
		tooLong := 300
		_, err := svc.Update(ctx, created.ID, &appointment.UpdateAppointmentCommand{DurationMins: &tooLong})
		if !errors.Is(err, appointment.ErrInvalidDuration) {
			t.Fatalf("got %v, want ErrInvalidDuration", err)
		}
	})

	t.Run("missing record", func(t *testing.T) {
		svc := newTestService(newMockRepo(), &captureEnqueuer{})
		_, err := svc.Update(ctx, uuid.New(), &appointment.UpdateAppointmentCommand{})
		if !errors.Is(err, appointment.ErrAppointmentNotFound) {
			t.Fatalf("got %v, want ErrAppointmentNotFound", err)
		}
	})
}

func TestCancel(t *testing.T) {
	ctx := context.Background()

	t.Run("cancels and enqueues cancellation", func(t *testing.T) {
		repo := newMockRepo()
		enq := &captureEnqueuer{}
		svc := newTestService(repo, enq)

		created, _ := svc.Schedule(ctx, validCreateCommand())
		enq.events = nil

		cancelled, err := svc.Cancel(ctx, created.ID)
		if err != nil {
			t.Fatalf("Cancel: %v", err)
		}
		if cancelled.Status != appointment.StatusCancelled {
			t.Errorf("Status = %s, want cancelled", cancelled.Status)
		}
		if len(enq.events) != 1 || enq.events[0].Kind != notifier.KindCancellation {
			t.Fatalf("events = %+v, want one cancellation", enq.events)
		}
	})

	t.Run("double cancel rejected", func(t *testing.T) {
		repo := newMockRepo()
		svc := newTestService(repo, &captureEnqueuer{})

		created, _ := svc.Schedule(ctx, validCreateCommand())
		if _, err := svc.Cancel(ctx, created.ID); err != nil {
			t.Fatalf("first Cancel: %v", err)
		}
		_, err := svc.Cancel(ctx, created.ID)
		if !errors.Is(err, appointment.ErrAlreadyCancelled) {
			t.Fatalf("got %v, want ErrAlreadyCancelled", err)
		}
	})

	t.Run("completed appointment cannot be cancelled", func(t *testing.T) {
		repo := newMockRepo()
		enq := &captureEnqueuer{}
		svc := newTestService(repo, enq)

		created, _ := svc.Schedule(ctx, validCreateCommand())
		completed := appointment.StatusCompleted
		if _, err := svc.Update(ctx, created.ID, &appointment.UpdateAppointmentCommand{Status: &completed}); err != nil {
			t.Fatalf("Update: %v", err)
		}
		enq.events = nil

		_, err := svc.Cancel(ctx, created.ID)
		if !errors.Is(err, appointment.ErrCancelCompleted) {
			t.Fatalf("got %v, want ErrCancelCompleted", err)
		}
		if len(enq.events) != 0 {
			t.Error("failed cancel must not notify")
		}
	})

	t.Run("save failure suppresses notification", func(t *testing.T) {
		repo := newMockRepo()
		enq := &captureEnqueuer{}
		svc := newTestService(repo, enq)

		created, _ := svc.Schedule(ctx, validCreateCommand())
		enq.events = nil
		repo.saveErr = errors.New("disk full")

		if _, err := svc.Cancel(ctx, created.ID); err == nil {
			t.Fatal("expected save error")
		}
		if len(enq.events) != 0 {
			t.Error("no event may be enqueued when the write fails")
		}
	})
}

func TestListNormalization(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(newMockRepo(), &captureEnqueuer{})

	t.Run("zero page size falls back to default", func(t *testing.T) {
		page, err := svc.List(ctx, &appointment.ListAppointmentsQuery{})
		if err != nil {
			t.Fatalf("List: %v", err)
		}
		if page.PageSize != 20 || page.Page != 1 {
			t.Errorf("pageSize=%d page=%d, want 20/1", page.PageSize, page.Page)
		}
	})

	t.Run("oversized page size falls back to default", func(t *testing.T) {
		page, err := svc.List(ctx, &appointment.ListAppointmentsQuery{Page: 1, PageSize: 500})
		if err != nil {
			t.Fatalf("List: %v", err)
		}
		if page.PageSize != 20 {
			t.Errorf("pageSize = %d, want 20", page.PageSize)
		}
	})
}
