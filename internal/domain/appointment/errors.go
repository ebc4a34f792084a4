package appointment

import (
	"errors"
	"fmt"
)

var (
	ErrAppointmentNotFound = errors.New("appointment not found")
	ErrAlreadyCancelled    = errors.New("appointment is already cancelled")
	ErrCancelCompleted     = errors.New("cannot cancel a completed appointment")
	ErrUpdateCancelled     = errors.New("cannot update a cancelled appointment")
	ErrScheduledInPast     = errors.New("appointment date must be in the future")
	ErrInvalidDuration     = errors.New("appointment duration must be between 15 and 240 minutes")
	ErrInvalidStatus       = errors.New("invalid appointment status")
)

// HorizonError reports a booking attempt beyond the scheduling horizon.
type HorizonError struct {
	MaxDays int
}

func (e *HorizonError) Error() string {
	return fmt.Sprintf("appointments can only be scheduled up to %d days in advance", e.MaxDays)
}
