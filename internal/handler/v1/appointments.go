package v1

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/medisched/medisched/internal/config"
	"github.com/medisched/medisched/internal/domain/appointment"
	"github.com/medisched/medisched/internal/service"
)

type AppointmentHandler struct {
	svc *service.AppointmentService
	cfg config.SchedulingConfig
}

func NewAppointmentHandler(svc *service.AppointmentService, cfg config.SchedulingConfig) *AppointmentHandler {
	return &AppointmentHandler{svc: svc, cfg: cfg}
}

type createAppointmentRequest struct {
	PatientName     string    `json:"patient_name" binding:"required,min=2,max=200"`
	PatientEmail    string    `json:"patient_email" binding:"required,email,max=255"`
	PatientPhone    *string   `json:"patient_phone" binding:"omitempty,max=20"`
	DoctorName      string    `json:"doctor_name" binding:"required,min=2,max=200"`
	Specialty       string    `json:"specialty" binding:"required,min=2,max=100"`
	AppointmentDate time.Time `json:"appointment_date" binding:"required"`
	DurationMinutes int       `json:"duration_minutes" binding:"omitempty,min=15,max=240"`
	Reason          *string   `json:"reason" binding:"omitempty,max=1000"`
	Notes           *string   `json:"notes" binding:"omitempty,max=2000"`
}

type updateAppointmentRequest struct {
	PatientName     *string             `json:"patient_name" binding:"omitempty,min=2,max=200"`
	PatientEmail    *string             `json:"patient_email" binding:"omitempty,email,max=255"`
	PatientPhone    *string             `json:"patient_phone" binding:"omitempty,max=20"`
	DoctorName      *string             `json:"doctor_name" binding:"omitempty,min=2,max=200"`
	Specialty       *string             `json:"specialty" binding:"omitempty,min=2,max=100"`
	AppointmentDate *time.Time          `json:"appointment_date"`
	DurationMinutes *int                `json:"duration_minutes" binding:"omitempty,min=15,max=240"`
	Reason          *string             `json:"reason" binding:"omitempty,max=1000"`
	Notes           *string             `json:"notes" binding:"omitempty,max=2000"`
	Status          *appointment.Status `json:"status"`
}

type appointmentResponse struct {
	ID              uuid.UUID  `json:"id"`
	PatientName     string     `json:"patient_name"`
	PatientEmail    string     `json:"patient_email"`
	PatientPhone    *string    `json:"patient_phone"`
	DoctorName      string     `json:"doctor_name"`
	Specialty       string     `json:"specialty"`
	AppointmentDate time.Time  `json:"appointment_date"`
	DurationMinutes int        `json:"duration_minutes"`
	Reason          *string    `json:"reason"`
	Notes           *string    `json:"notes"`
	Status          string     `json:"status"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       *time.Time `json:"updated_at"`
}

// listAppointmentsResponse is the paginated bundle. Field names are part of
// the wire contract consumed by existing clients.
type listAppointmentsResponse struct {
	Items      []appointmentResponse `json:"items"`
	Total      int64                 `json:"total"`
	Page       int                   `json:"page"`
	PageSize   int                   `json:"page_size"`
	TotalPages int                   `json:"total_pages"`
}

func toAppointmentResponse(a *appointment.Appointment) appointmentResponse {
	return appointmentResponse{
		ID:              a.ID,
		PatientName:     a.PatientName,
		PatientEmail:    a.PatientEmail,
		PatientPhone:    a.PatientPhone,
		DoctorName:      a.DoctorName,
		Specialty:       a.Specialty,
		AppointmentDate: a.AppointmentDate,
		DurationMinutes: a.DurationMins,
		Reason:          a.Reason,
		Notes:           a.Notes,
		Status:          string(a.Status),
		CreatedAt:       a.CreatedAt,
		UpdatedAt:       a.UpdatedAt,
	}
}

func toAppointmentResponses(items []*appointment.Appointment) []appointmentResponse {
	out := make([]appointmentResponse, 0, len(items))
	for _, a := range items {
		out = append(out, toAppointmentResponse(a))
	}
	return out
}

func (h *AppointmentHandler) Create(c *gin.Context) {
	var req createAppointmentRequest
	if !bindJSON(c, &req) {
		return
	}
	if !req.AppointmentDate.After(time.Now()) {
		respondError(c, http.StatusBadRequest, "appointment_date must be in the future")
		return
	}

	cmd := &appointment.CreateAppointmentCommand{
		PatientName:     req.PatientName,
		PatientEmail:    req.PatientEmail,
		PatientPhone:    req.PatientPhone,
		DoctorName:      req.DoctorName,
		Specialty:       req.Specialty,
		AppointmentDate: req.AppointmentDate,
		DurationMins:    req.DurationMinutes,
		Reason:          req.Reason,
		Notes:           req.Notes,
	}

	created, err := h.svc.Schedule(c.Request.Context(), cmd)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusCreated, toAppointmentResponse(created))
}

func (h *AppointmentHandler) Update(c *gin.Context) {
	id, ok := parseUUID(c, "id")
	if !ok {
		return
	}
	var req updateAppointmentRequest
	if !bindJSON(c, &req) {
		return
	}
	// Structural check only; the service re-runs the full scheduling
	// window when the date changes.
	if req.AppointmentDate != nil && !req.AppointmentDate.After(time.Now()) {
		respondError(c, http.StatusBadRequest, "appointment_date must be in the future")
		return
	}

	cmd := &appointment.UpdateAppointmentCommand{
		PatientName:     req.PatientName,
		PatientEmail:    req.PatientEmail,
		PatientPhone:    req.PatientPhone,
		DoctorName:      req.DoctorName,
		Specialty:       req.Specialty,
		AppointmentDate: req.AppointmentDate,
		DurationMins:    req.DurationMinutes,
		Reason:          req.Reason,
		Notes:           req.Notes,
		Status:          req.Status,
	}

	updated, err := h.svc.Update(c.Request.Context(), id, cmd)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, toAppointmentResponse(updated))
}

func (h *AppointmentHandler) Cancel(c *gin.Context) {
	id, ok := parseUUID(c, "id")
	if !ok {
		return
	}
	cancelled, err := h.svc.Cancel(c.Request.Context(), id)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, toAppointmentResponse(cancelled))
}

func (h *AppointmentHandler) Get(c *gin.Context) {
	id, ok := parseUUID(c, "id")
	if !ok {
		return
	}
	found, err := h.svc.Get(c.Request.Context(), id)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, toAppointmentResponse(found))
}

func (h *AppointmentHandler) List(c *gin.Context) {
	q := &appointment.ListAppointmentsQuery{
		Page:     parseQueryInt(c, "page", 1),
		PageSize: parseQueryInt(c, "page_size", h.cfg.DefaultPageSize),
	}

	if raw := c.Query("status"); raw != "" {
		status := appointment.Status(raw)
		if !status.IsValid() {
			respondError(c, http.StatusBadRequest, "invalid status: "+raw)
			return
		}
		q.Status = &status
	}
	if v := c.Query("patient_name"); v != "" {
		q.PatientName = &v
	}
	if v := c.Query("doctor_name"); v != "" {
		q.DoctorName = &v
	}
	var ok bool
	if q.DateFrom, ok = parseQueryTime(c, "date_from"); !ok {
		return
	}
	if q.DateTo, ok = parseQueryTime(c, "date_to"); !ok {
		return
	}

	page, err := h.svc.List(c.Request.Context(), q)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, listAppointmentsResponse{
		Items:      toAppointmentResponses(page.Items),
		Total:      page.Total,
		Page:       page.Page,
		PageSize:   page.PageSize,
		TotalPages: page.TotalPages,
	})
}

func (h *AppointmentHandler) Upcoming(c *gin.Context) {
	days := parseQueryInt(c, "days_ahead", h.cfg.UpcomingWindowDays)
	if days < 1 || days > h.cfg.HorizonDays {
		respondError(c, http.StatusBadRequest, "days_ahead out of range")
		return
	}
	items, err := h.svc.Upcoming(c.Request.Context(), days)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, toAppointmentResponses(items))
}

func (h *AppointmentHandler) ByPatient(c *gin.Context) {
	email := c.Param("patient_email")
	items, err := h.svc.ByPatient(c.Request.Context(), email)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, toAppointmentResponses(items))
}

func (h *AppointmentHandler) ByDoctor(c *gin.Context) {
	name := c.Param("doctor_name")
	from, ok := parseQueryTime(c, "date_from")
	if !ok {
		return
	}
	to, ok := parseQueryTime(c, "date_to")
	if !ok {
		return
	}
	items, err := h.svc.ByDoctor(c.Request.Context(), name, from, to)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, toAppointmentResponses(items))
}
