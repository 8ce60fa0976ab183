package domain

import (
	"errors"
	"time"
)

type RoomID string

const (
	MaxRoomNameLen = 100

	DefaultMaxParticipants = 10
)

var (
	ErrRoomNotFound   = errors.New("room not found")
	ErrRoomInactive   = errors.New("room is not active")
	ErrRoomFull       = errors.New("room is full")
	ErrNotParticipant = errors.New("not a participant in this room")
	ErrNotJoined      = errors.New("not in this room")
	ErrOutsideWindow  = errors.New("this session is not active yet")
	ErrNoAppointment  = errors.New("no appointment associated with this room")
)

// Participant is one entry of a room's persisted roster. Historical joins
// keep their row with LeftAt set and IsActive false.
type Participant struct {
	UserID   UserID
	JoinedAt time.Time
	LeftAt   *time.Time
	IsActive bool
}

// Room is the persisted room record owned by the room directory. The
// signaling core reads it on every join instead of caching it, since CRUD
// routes may deactivate a room while signaling is in progress.
type Room struct {
	ID              RoomID
	Name            string
	Topic           string
	MaxParticipants int
	IsActive        bool
	IsPrivate       bool
	CreatedBy       UserID
	CreatedAt       time.Time
}
