package appointment

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// State transitions enforced by this service:
//
//	scheduled → confirmed | cancelled
//	confirmed → completed | no_show | cancelled
//	cancelled rejects update and cancellation; completed rejects cancellation
type Status string

const (
	StatusScheduled Status = "scheduled"
	StatusConfirmed Status = "confirmed"
	StatusCancelled Status = "cancelled"
	StatusCompleted Status = "completed"
	StatusNoShow    Status = "no_show"
)

func (s Status) IsValid() bool {
	switch s {
	case StatusScheduled, StatusConfirmed, StatusCancelled, StatusCompleted, StatusNoShow:
		return true
	}
	return false
}

const (
	MinDurationMins     = 15
	MaxDurationMins     = 240
	DefaultDurationMins = 30
)

type Appointment struct {
	ID        uuid.UUID      `gorm:"type:uuid;primaryKey"`
	CreatedAt time.Time      `gorm:"autoCreateTime;index"`
	UpdatedAt *time.Time     `gorm:"autoUpdateTime:false"`
	DeletedAt gorm.DeletedAt `gorm:"index"`

	// Patient and doctor are carried by value; this service keeps no
	// directory of either.
	PatientName  string  `gorm:"column:patient_name;type:varchar(200);not null;index"`
	PatientEmail string  `gorm:"column:patient_email;type:varchar(255);not null;index"`
	PatientPhone *string `gorm:"column:patient_phone;type:varchar(20)"`

	DoctorName string `gorm:"column:doctor_name;type:varchar(200);not null;index"`
	Specialty  string `gorm:"column:specialty;type:varchar(100);not null"`

	AppointmentDate time.Time `gorm:"column:appointment_date;not null;index"`
	DurationMins    int       `gorm:"column:duration_mins;not null;default:30"`
	Reason          *string   `gorm:"column:reason;type:text"`
	Notes           *string   `gorm:"column:notes;type:text"`

	Status Status `gorm:"column:status;type:varchar(30);not null;default:'scheduled';index"`
}

func (Appointment) TableName() string {
	return "appointments"
}

func (a *Appointment) BeforeCreate(tx *gorm.DB) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	return nil
}

// BeforeUpdate stamps the mutation time. The column stays NULL until the
// record is first changed.
func (a *Appointment) BeforeUpdate(tx *gorm.DB) error {
	now := time.Now()
	a.UpdatedAt = &now
	return nil
}

func (a *Appointment) EndsAt() time.Time {
	return a.AppointmentDate.Add(time.Duration(a.DurationMins) * time.Minute)
}

type CreateAppointmentCommand struct {
	PatientName     string
	PatientEmail    string
	PatientPhone    *string
	DoctorName      string
	Specialty       string
	AppointmentDate time.Time
	DurationMins    int
	Reason          *string
	Notes           *string
}

// UpdateAppointmentCommand is a sparse patch: nil fields are left untouched.
// Status is accepted as a raw override for compatibility with existing
// callers; it bypasses the cancellation transition rules.
type UpdateAppointmentCommand struct {
	PatientName     *string
	PatientEmail    *string
	PatientPhone    *string
	DoctorName      *string
	Specialty       *string
	AppointmentDate *time.Time
	DurationMins    *int
	Reason          *string
	Notes           *string
	Status          *Status
}

type ListAppointmentsQuery struct {
	Status      *Status
	PatientName *string
	DoctorName  *string
	DateFrom    *time.Time
	DateTo      *time.Time
	Page        int
	PageSize    int
}

// Offset translates the 1-based page into a row offset.
func (q ListAppointmentsQuery) Offset() int {
	return (q.Page - 1) * q.PageSize
}

type PagedAppointments struct {
	Items      []*Appointment `json:"items"`
	Total      int64          `json:"total"`
	Page       int            `json:"page"`
	PageSize   int            `json:"page_size"`
	TotalPages int            `json:"total_pages"`
}

// NewPagedAppointments assembles the result bundle. TotalPages is the
// ceiling of total/pageSize, 0 for an empty result.
func NewPagedAppointments(items []*Appointment, total int64, page, pageSize int) *PagedAppointments {
	totalPages := 0
	if pageSize > 0 {
		totalPages = int((total + int64(pageSize) - 1) / int64(pageSize))
	}
	if items == nil {
		items = []*Appointment{}
	}
	return &PagedAppointments{
		Items:      items,
		Total:      total,
		Page:       page,
		PageSize:   pageSize,
		TotalPages: totalPages,
	}
}

// Statistics is the output of the periodic statistics job.
type Statistics struct {
	Date             time.Time        `json:"date"`
	Total            int64            `json:"total_appointments"`
	ByStatus         map[Status]int64 `json:"by_status"`
	CancellationRate float64          `json:"cancellation_rate"`
	NoShowRate       float64          `json:"no_show_rate"`
}

// DailyReport summarizes one day of scheduling activity.
type DailyReport struct {
	Date      time.Time `json:"date"`
	New       int64     `json:"new_appointments"`
	Cancelled int64     `json:"cancelled_appointments"`
	Completed int64     `json:"completed_appointments"`
}
