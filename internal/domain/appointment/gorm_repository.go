package appointment

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GormRepository is the production Repository backed by GORM. Every write is
// a single-row statement; atomicity comes from the database, not from any
// application-level locking.
type GormRepository struct {
	db *gorm.DB
}

func NewGormRepository(db *gorm.DB) *GormRepository {
	return &GormRepository{db: db}
}

func (r *GormRepository) Create(ctx context.Context, a *Appointment) error {
	if err := r.db.WithContext(ctx).Create(a).Error; err != nil {
		return fmt.Errorf("inserting appointment: %w", err)
	}
	return nil
}

func (r *GormRepository) GetByID(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	var a Appointment
	err := r.db.WithContext(ctx).First(&a, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("appointment %s: %w", id, ErrAppointmentNotFound)
		}
		return nil, fmt.Errorf("fetching appointment %s: %w", id, err)
	}
	return &a, nil
}

func (r *GormRepository) Save(ctx context.Context, a *Appointment) error {
	if err := r.db.WithContext(ctx).Save(a).Error; err != nil {
		return fmt.Errorf("saving appointment %s: %w", a.ID, err)
	}
	return nil
}

func (r *GormRepository) List(ctx context.Context, q *ListAppointmentsQuery) (*PagedAppointments, error) {
	tx := r.db.WithContext(ctx).Model(&Appointment{})

	if q.Status != nil {
		tx = tx.Where("status = ?", *q.Status)
	}
	if q.PatientName != nil {
		tx = tx.Where("LOWER(patient_name) LIKE ?", containsPattern(*q.PatientName))
	}
	if q.DoctorName != nil {
		tx = tx.Where("LOWER(doctor_name) LIKE ?", containsPattern(*q.DoctorName))
	}
	if q.DateFrom != nil {
		tx = tx.Where("appointment_date >= ?", *q.DateFrom)
	}
	if q.DateTo != nil {
		tx = tx.Where("appointment_date <= ?", *q.DateTo)
	}

	var total int64
	if err := tx.Count(&total).Error; err != nil {
		return nil, fmt.Errorf("counting appointments: %w", err)
	}

	var items []*Appointment
	err := tx.Order("appointment_date ASC").
		Offset(q.Offset()).
		Limit(q.PageSize).
		Find(&items).Error
	if err != nil {
		return nil, fmt.Errorf("listing appointments: %w", err)
	}

	return NewPagedAppointments(items, total, q.Page, q.PageSize), nil
}

func (r *GormRepository) Upcoming(ctx context.Context, now time.Time, days int) ([]*Appointment, error) {
	var items []*Appointment
	err := r.db.WithContext(ctx).
		Where("appointment_date >= ? AND appointment_date <= ?", now, now.AddDate(0, 0, days)).
		Where("status IN ?", []Status{StatusScheduled, StatusConfirmed}).
		Order("appointment_date ASC").
		Find(&items).Error
	if err != nil {
		return nil, fmt.Errorf("fetching upcoming appointments: %w", err)
	}
	return items, nil
}

func (r *GormRepository) ByPatientEmail(ctx context.Context, email string) ([]*Appointment, error) {
	var items []*Appointment
	err := r.db.WithContext(ctx).
		Where("patient_email = ?", email).
		Order("appointment_date DESC").
		Find(&items).Error
	if err != nil {
		return nil, fmt.Errorf("fetching appointments for patient: %w", err)
	}
	return items, nil
}

func (r *GormRepository) ByDoctorName(ctx context.Context, name string, from, to *time.Time) ([]*Appointment, error) {
	tx := r.db.WithContext(ctx).Where("doctor_name = ?", name)
	if from != nil {
		tx = tx.Where("appointment_date >= ?", *from)
	}
	if to != nil {
		tx = tx.Where("appointment_date <= ?", *to)
	}

	var items []*Appointment
	if err := tx.Order("appointment_date ASC").Find(&items).Error; err != nil {
		return nil, fmt.Errorf("fetching appointments for doctor: %w", err)
	}
	return items, nil
}

func (r *GormRepository) CountByStatus(ctx context.Context) (map[Status]int64, error) {
	var rows []struct {
		Status Status
		Count  int64
	}
	err := r.db.WithContext(ctx).
		Model(&Appointment{}).
		Select("status, COUNT(*) AS count").
		Group("status").
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("counting appointments by status: %w", err)
	}

	counts := make(map[Status]int64, len(rows))
	for _, row := range rows {
		counts[row.Status] = row.Count
	}
	return counts, nil
}

func (r *GormRepository) CountCreatedBetween(ctx context.Context, from, to time.Time) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).
		Model(&Appointment{}).
		Where("created_at >= ? AND created_at < ?", from, to).
		Count(&n).Error
	if err != nil {
		return 0, fmt.Errorf("counting created appointments: %w", err)
	}
	return n, nil
}

func (r *GormRepository) CountStatusUpdatedBetween(ctx context.Context, status Status, from, to time.Time) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).
		Model(&Appointment{}).
		Where("status = ?", status).
		Where("updated_at >= ? AND updated_at < ?", from, to).
		Count(&n).Error
	if err != nil {
		return 0, fmt.Errorf("counting %s appointments: %w", status, err)
	}
	return n, nil
}

func (r *GormRepository) ArchiveFinishedBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	res := r.db.WithContext(ctx).
		Where("status IN ?", []Status{StatusCancelled, StatusCompleted}).
		Where("appointment_date < ?", cutoff).
		Delete(&Appointment{})
	if res.Error != nil {
		return 0, fmt.Errorf("archiving appointments: %w", res.Error)
	}
	return res.RowsAffected, nil
}

// containsPattern builds a case-insensitive substring LIKE pattern. LOWER is
// used instead of ILIKE so the same query runs on Postgres and SQLite.
func containsPattern(s string) string {
	return "%" + strings.ToLower(s) + "%"
}
