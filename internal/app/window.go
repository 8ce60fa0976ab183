package app

import (
	"time"

	"github.com/mindlink/peerhub/internal/domain"
)

const (
	DefaultEarlyBuffer = 5 * time.Minute
	DefaultLateBuffer  = 15 * time.Minute
)

// JoinWindow is the buffered admission window around a scheduled session.
// A private room can be entered from Early before the scheduled start until
// Late after the scheduled end, inclusive on both sides.
type JoinWindow struct {
	Early time.Duration
	Late  time.Duration
}

func DefaultJoinWindow() JoinWindow {
	return JoinWindow{Early: DefaultEarlyBuffer, Late: DefaultLateBuffer}
}

// Contains reports whether now falls inside the admission window for appt.
func (w JoinWindow) Contains(appt *domain.Appointment, now time.Time) bool {
	open := appt.ScheduledAt.Add(-w.Early)
	close := appt.SessionEnd().Add(w.Late)
	return !now.Before(open) && !now.After(close)
}
