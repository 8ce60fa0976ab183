package domain

import "time"

const DefaultAppointmentDuration = 60 * time.Minute

// Appointment gates entry to a private room: joins are only allowed inside
// a buffered window around [ScheduledAt, ScheduledAt+Duration].
type Appointment struct {
	RoomID      RoomID
	UserID      UserID
	TherapistID UserID
	ScheduledAt time.Time
	Duration    time.Duration
}

// SessionEnd is the scheduled end of the appointment, before late buffer.
func (a *Appointment) SessionEnd() time.Time {
	d := a.Duration
	if d <= 0 {
		d = DefaultAppointmentDuration
	}
	return a.ScheduledAt.Add(d)
}
