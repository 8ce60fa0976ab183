package app

import (
	"encoding/json"

	"github.com/rs/zerolog/log"

	"github.com/mindlink/peerhub/internal/core"
	"github.com/mindlink/peerhub/internal/domain"
)

// Broadcaster fans signaling events out to live connections. Delivery is
// best-effort: closed or backpressured connections are skipped, never waited
// on. An unreachable target usually means the peer just disconnected, so it
// is dropped silently.
type Broadcaster struct {
	Registry *Registry
	Presence *Presence
}

func NewBroadcaster(reg *Registry, pres *Presence) *Broadcaster {
	return &Broadcaster{Registry: reg, Presence: pres}
}

func (b *Broadcaster) ToIdentity(id domain.UserID, v any) bool {
	conn, ok := b.Registry.Lookup(id)
	if !ok {
		return false
	}
	b.send(conn, v)
	return true
}

// ToRoom delivers to every member of the room, sender included. Used for the
// sender's own message echo.
func (b *Broadcaster) ToRoom(room domain.RoomID, v any) {
	frame, err := encode(v)
	if err != nil {
		return
	}
	for _, id := range b.Presence.MembersOf(room) {
		if conn, ok := b.Registry.Lookup(id); ok {
			b.push(conn, frame)
		}
	}
}

// ToRoomExcept delivers to every member of the room but the sender.
func (b *Broadcaster) ToRoomExcept(room domain.RoomID, except domain.UserID, v any) {
	frame, err := encode(v)
	if err != nil {
		return
	}
	for _, id := range b.Presence.MembersOf(room) {
		if id == except {
			continue
		}
		if conn, ok := b.Registry.Lookup(id); ok {
			b.push(conn, frame)
		}
	}
}

func (b *Broadcaster) send(conn *Connection, v any) {
	frame, err := encode(v)
	if err != nil {
		return
	}
	b.push(conn, frame)
}

func (b *Broadcaster) push(conn *Connection, frame core.Frame) {
	if err := conn.Conn.TrySend(frame); err != nil {
		log.Warn().Err(err).Str("module", "app.broadcast").Str("user", string(conn.Identity.ID)).Msg("dropped frame")
	}
}

func encode(v any) (core.Frame, error) {
	frame, err := json.Marshal(v)
	if err != nil {
		log.Error().Err(err).Str("module", "app.broadcast").Msg("marshal event")
		return nil, err
	}
	return frame, nil
}
