package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/mindlink/peerhub/internal/core"
	"github.com/mindlink/peerhub/internal/domain"
	"github.com/mindlink/peerhub/internal/metrics"
	"github.com/mindlink/peerhub/internal/protocol"
	"github.com/mindlink/peerhub/internal/store"
)

// Router is the signaling state machine. All mutation of the registry and
// presence tracker funnels through it under a single mutex, so events
// directed at the same room reach every member in the order they were
// accepted. Persistence happens off the lock and never delays fan-out.
type Router struct {
	mu sync.Mutex

	registry *Registry
	presence *Presence
	bcast    *Broadcaster

	rooms    store.RoomDirectory
	messages store.MessageStore
	schedule store.ScheduleStore

	window JoinWindow
	now    func() time.Time
}

func NewRouter(
	reg *Registry,
	pres *Presence,
	rooms store.RoomDirectory,
	messages store.MessageStore,
	schedule store.ScheduleStore,
	window JoinWindow,
) *Router {
	return &Router{
		registry: reg,
		presence: pres,
		bcast:    NewBroadcaster(reg, pres),
		rooms:    rooms,
		messages: messages,
		schedule: schedule,
		window:   window,
		now:      time.Now,
	}
}

// Registry exposes the connection table for observability endpoints.
func (r *Router) Registry() *Registry { return r.registry }

// Presence exposes the live presence tracker for observability endpoints.
func (r *Router) Presence() *Presence { return r.presence }

func userRef(ident domain.Identity) protocol.UserRef {
	return protocol.UserRef{
		ID:           string(ident.ID),
		Name:         ident.DisplayName,
		ProfileImage: ident.AvatarRef,
	}
}

// Connect installs the identity's connection. A second connection for the
// same identity tears down the prior connection's room memberships (with
// user_left fan-out) and closes its socket before taking over.
func (r *Router) Connect(ident domain.Identity, conn core.Conn) {
	r.mu.Lock()
	defer r.mu.Unlock()
	prev := r.registry.Register(ident, conn)
	if prev == nil {
		metrics.Connections.Inc()
		return
	}
	log.Warn().Str("module", "app.router").Str("user", string(ident.ID)).Msg("duplicate connection, replacing previous")
	r.teardownPresence(prev.Identity)
	prev.Conn.Close()
}

// Disconnect cleans up after a closed transport: the identity leaves every
// room it was present in, each affected room gets exactly one user_left, and
// the connection is unregistered. A connection that was already replaced by
// a newer one leaves cleanup to its successor.
func (r *Router) Disconnect(ident domain.Identity, conn core.Conn) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.registry.Unregister(ident.ID, conn) {
		return
	}
	metrics.Connections.Dec()
	r.teardownPresence(ident)
}

func (r *Router) teardownPresence(ident domain.Identity) {
	for _, dep := range r.presence.LeaveAll(ident.ID) {
		r.bcast.ToRoomExcept(dep.RoomID, ident.ID, protocol.UserLeft{
			Type:              protocol.EventUserLeft,
			User:              userRef(ident),
			ParticipantsCount: dep.Remaining,
		})
		r.deactivateAsync(dep.RoomID, ident.ID)
	}
}

// Join validates the transition into a room and, on success, updates
// presence, notifies existing members, and sends the joiner the current
// member list plus its own id so it can pick a deterministic initiator role.
func (r *Router) Join(ctx context.Context, ident domain.Identity, roomID domain.RoomID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	room, err := r.rooms.FindRoom(ctx, roomID)
	if err != nil {
		if errors.Is(err, domain.ErrRoomNotFound) {
			metrics.JoinRejections.WithLabelValues("not_found").Inc()
			return domain.ErrRoomNotFound
		}
		return fmt.Errorf("find room: %w", err)
	}
	if !room.IsActive {
		metrics.JoinRejections.WithLabelValues("inactive").Inc()
		return domain.ErrRoomInactive
	}

	roster, err := r.rooms.ActiveParticipants(ctx, roomID)
	if err != nil {
		return fmt.Errorf("load roster: %w", err)
	}
	onRoster := false
	for _, p := range roster {
		if p.UserID == ident.ID {
			onRoster = true
			break
		}
	}

	if room.IsPrivate {
		// Scheduled one-on-one room: the roster is fixed at booking time
		// and entry is gated by the appointment window.
		if !onRoster {
			metrics.JoinRejections.WithLabelValues("not_participant").Inc()
			return domain.ErrNotParticipant
		}
		appt, err := r.schedule.FindAppointmentByRoom(ctx, roomID)
		if err != nil {
			if errors.Is(err, domain.ErrNoAppointment) {
				metrics.JoinRejections.WithLabelValues("no_appointment").Inc()
				return domain.ErrNoAppointment
			}
			return fmt.Errorf("find appointment: %w", err)
		}
		if !r.window.Contains(appt, r.now()) {
			metrics.JoinRejections.WithLabelValues("outside_window").Inc()
			return domain.ErrOutsideWindow
		}
	} else if !onRoster {
		// Public room: anyone may join up to capacity; the join is
		// recorded on the persisted roster for history.
		if room.MaxParticipants > 0 && len(roster) >= room.MaxParticipants {
			metrics.JoinRejections.WithLabelValues("full").Inc()
			return domain.ErrRoomFull
		}
		if err := r.rooms.AddParticipant(ctx, roomID, ident.ID); err != nil {
			// Roster history is best-effort; the live join still proceeds.
			log.Error().Err(err).Str("module", "app.router").Str("room", string(roomID)).Str("user", string(ident.ID)).Msg("roster append failed")
		}
	}

	if !r.presence.Join(roomID, ident.ID) {
		// Already joined; re-send the member list, skip the fan-out.
		r.sendParticipants(ident, roomID)
		return nil
	}

	log.Info().Str("module", "app.router").Str("room", string(roomID)).Str("user", string(ident.ID)).Msg("joined room")

	r.sendParticipants(ident, roomID)
	r.bcast.ToRoomExcept(roomID, ident.ID, protocol.UserJoined{
		Type:              protocol.EventUserJoined,
		User:              userRef(ident),
		ParticipantsCount: r.presence.SizeOf(roomID),
	})
	return nil
}

// sendParticipants tells the joining connection who is already present.
// The count covers the other members only, matching what the joiner sees.
func (r *Router) sendParticipants(ident domain.Identity, roomID domain.RoomID) {
	var others []protocol.UserRef
	for _, id := range r.presence.MembersOf(roomID) {
		if id == ident.ID {
			continue
		}
		if conn, ok := r.registry.Lookup(id); ok {
			others = append(others, userRef(conn.Identity))
		}
	}
	if others == nil {
		others = []protocol.UserRef{}
	}
	r.bcast.ToIdentity(ident.ID, protocol.RoomParticipants{
		Type:              protocol.EventRoomParticipants,
		SelfID:            string(ident.ID),
		Participants:      others,
		ParticipantsCount: len(others),
	})
}

// Leave is the explicit client-initiated exit. Idempotent: leaving a room
// you are not in does nothing.
func (r *Router) Leave(ctx context.Context, ident domain.Identity, roomID domain.RoomID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	remaining, was := r.presence.Leave(roomID, ident.ID)
	if !was {
		return
	}
	log.Info().Str("module", "app.router").Str("room", string(roomID)).Str("user", string(ident.ID)).Msg("left room")
	r.bcast.ToRoomExcept(roomID, ident.ID, protocol.UserLeft{
		Type:              protocol.EventUserLeft,
		User:              userRef(ident),
		ParticipantsCount: remaining,
	})
	r.deactivateAsync(roomID, ident.ID)
}

// SendMessage validates, broadcasts to the whole room (sender included, as
// its delivery acknowledgment), and persists in the background. A failed
// append is logged, never surfaced: the live delivery already happened.
func (r *Router) SendMessage(ctx context.Context, ident domain.Identity, roomID domain.RoomID, body, kind string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	msg, err := domain.NewChatMessage(roomID, ident.ID, body, domain.MessageKind(kind))
	if err != nil {
		return err
	}
	if !r.presence.Contains(roomID, ident.ID) {
		return domain.ErrNotJoined
	}
	msg.ID = uuid.NewString()

	r.bcast.ToRoom(roomID, protocol.NewMessage{
		Type:        protocol.EventNewMessage,
		ID:          msg.ID,
		Sender:      userRef(ident),
		Message:     msg.Body,
		MessageType: string(msg.Kind),
		CreatedAt:   msg.CreatedAt,
	})

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if _, err := r.messages.AppendMessage(ctx, msg); err != nil {
			log.Error().Err(err).Str("module", "app.router").Str("room", string(roomID)).Msg("message append failed")
		}
	}()
	return nil
}

// Relay forwards an opaque offer/answer/candidate body. Targeted relays go
// only to the named identity and are silently dropped when it is
// unreachable; untargeted relays fan out to every other member of the room.
func (r *Router) Relay(kind string, from domain.Identity, roomID domain.RoomID, target domain.UserID, body json.RawMessage) {
	r.mu.Lock()
	defer r.mu.Unlock()

	ev := protocol.NewSignalEvent(kind, userRef(from), body)
	if target != "" {
		if !r.bcast.ToIdentity(target, ev) {
			log.Debug().Str("module", "app.router").Str("target", string(target)).Str("kind", kind).Msg("relay target unreachable")
		}
		return
	}
	if !r.presence.Contains(roomID, from.ID) {
		log.Debug().Str("module", "app.router").Str("room", string(roomID)).Str("user", string(from.ID)).Msg("relay from non-member dropped")
		return
	}
	r.bcast.ToRoomExcept(roomID, from.ID, ev)
}

func (r *Router) deactivateAsync(roomID domain.RoomID, user domain.UserID) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := r.rooms.DeactivateParticipant(ctx, roomID, user); err != nil {
			log.Error().Err(err).Str("module", "app.router").Str("room", string(roomID)).Str("user", string(user)).Msg("roster deactivate failed")
		}
	}()
}
