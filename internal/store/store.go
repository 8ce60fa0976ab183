// Package store defines the persistence collaborators the signaling core
// depends on. The core appends and re-reads through these interfaces but does
// not own their schema.
package store

import (
	"context"

	"github.com/mindlink/peerhub/internal/domain"
)

// IdentityStore resolves user ids to identities at handshake time.
type IdentityStore interface {
	FindIdentity(ctx context.Context, id domain.UserID) (*domain.Identity, error)
}

// RoomDirectory is the persisted room roster. Distinct from live presence:
// roster rows survive disconnects and record join/leave history.
type RoomDirectory interface {
	FindRoom(ctx context.Context, id domain.RoomID) (*domain.Room, error)
	ActiveParticipants(ctx context.Context, id domain.RoomID) ([]domain.Participant, error)
	AddParticipant(ctx context.Context, id domain.RoomID, user domain.UserID) error
	DeactivateParticipant(ctx context.Context, id domain.RoomID, user domain.UserID) error
}

// MessageStore appends chat messages. Appends are best-effort from the
// router's point of view; a failed append never blocks live delivery.
type MessageStore interface {
	AppendMessage(ctx context.Context, msg *domain.ChatMessage) (*domain.ChatMessage, error)
	RecentMessages(ctx context.Context, room domain.RoomID, limit int) ([]domain.ChatMessage, error)
}

// ScheduleStore finds the appointment that gates a private room.
type ScheduleStore interface {
	FindAppointmentByRoom(ctx context.Context, room domain.RoomID) (*domain.Appointment, error)
}

// Store is the full persistence surface; the sqlite and memory
// implementations satisfy all of it.
type Store interface {
	IdentityStore
	RoomDirectory
	MessageStore
	ScheduleStore
}
