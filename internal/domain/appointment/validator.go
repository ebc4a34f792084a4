package appointment

import "time"

// Transition predicates. Pure functions over an appointment snapshot; all
// state changes go through these before anything is persisted.

// CanUpdate reports whether the appointment accepts field updates.
func CanUpdate(a *Appointment) error {
	if a.Status == StatusCancelled {
		return ErrUpdateCancelled
	}
	return nil
}

// CanCancel reports whether the appointment accepts cancellation.
// Cancelled and completed are terminal for this operation.
func CanCancel(a *Appointment) error {
	switch a.Status {
	case StatusCancelled:
		return ErrAlreadyCancelled
	case StatusCompleted:
		return ErrCancelCompleted
	}
	return nil
}

// ValidateSchedulingWindow checks that t is strictly in the future and no
// more than horizonDays ahead of now.
func ValidateSchedulingWindow(t, now time.Time, horizonDays int) error {
	if !t.After(now) {
		return ErrScheduledInPast
	}
	if t.After(now.AddDate(0, 0, horizonDays)) {
		return &HorizonError{MaxDays: horizonDays}
	}
	return nil
}

// ValidateDuration bounds-checks the appointment length.
func ValidateDuration(mins int) error {
	if mins < MinDurationMins || mins > MaxDurationMins {
		return ErrInvalidDuration
	}
	return nil
}
