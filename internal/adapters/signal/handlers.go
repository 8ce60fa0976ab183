package signal

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/rs/zerolog/log"

	"github.com/mindlink/peerhub/internal/domain"
	"github.com/mindlink/peerhub/internal/protocol"
)

func (ctl *Controller) handleJoin(ctx context.Context, ident domain.Identity, c *wsConn, data []byte) {
	var p protocol.JoinRoom
	if err := json.Unmarshal(data, &p); err != nil {
		log.Error().Err(err).Str("module", "signal").Msg("bad join payload")
		ctl.sendError(c, "bad payload")
		return
	}
	if err := p.Validate(); err != nil {
		ctl.sendError(c, err.Error())
		return
	}

	if err := ctl.Router.Join(ctx, ident, domain.RoomID(p.RoomID)); err != nil {
		ctl.sendError(c, joinErrorMessage(err))
	}
}

// joinErrorMessage maps router errors to the user-facing reasons the client
// shows. Unexpected errors get a generic message; details stay in the log.
func joinErrorMessage(err error) string {
	switch {
	case errors.Is(err, domain.ErrRoomNotFound):
		return "Room not found"
	case errors.Is(err, domain.ErrRoomInactive):
		return "Room is not active"
	case errors.Is(err, domain.ErrNotParticipant):
		return "You are not a participant in this room"
	case errors.Is(err, domain.ErrRoomFull):
		return "Room is full"
	case errors.Is(err, domain.ErrNoAppointment):
		return "No appointment associated with this room"
	case errors.Is(err, domain.ErrOutsideWindow):
		return "This session is not active yet. Please join at the scheduled time."
	default:
		log.Error().Err(err).Str("module", "signal").Msg("join failed")
		return "Failed to join room"
	}
}

func (ctl *Controller) handleLeave(ctx context.Context, ident domain.Identity, c *wsConn, data []byte) {
	var p protocol.LeaveRoom
	if err := json.Unmarshal(data, &p); err != nil {
		log.Error().Err(err).Str("module", "signal").Msg("bad leave payload")
		ctl.sendError(c, "bad payload")
		return
	}
	if err := p.Validate(); err != nil {
		ctl.sendError(c, err.Error())
		return
	}
	ctl.Router.Leave(ctx, ident, domain.RoomID(p.RoomID))
}

func (ctl *Controller) handleSendMessage(ctx context.Context, ident domain.Identity, c *wsConn, data []byte) {
	var p protocol.SendMessage
	if err := json.Unmarshal(data, &p); err != nil {
		log.Error().Err(err).Str("module", "signal").Msg("bad message payload")
		ctl.sendError(c, "bad payload")
		return
	}
	if err := p.Validate(); err != nil {
		ctl.sendError(c, err.Error())
		return
	}
	if ctl.limiter != nil && !ctl.limiter.Allow(ident.ID) {
		ctl.sendError(c, "Too many messages, slow down")
		return
	}

	err := ctl.Router.SendMessage(ctx, ident, domain.RoomID(p.RoomID), p.Message, p.MessageType)
	switch {
	case err == nil:
	case errors.Is(err, domain.ErrEmptyMessage):
		ctl.sendError(c, "Message cannot be empty")
	case errors.Is(err, domain.ErrMessageTooLong):
		ctl.sendError(c, "Message too long")
	case errors.Is(err, domain.ErrNotJoined):
		ctl.sendError(c, "You are not in this room")
	default:
		log.Error().Err(err).Str("module", "signal").Msg("send message failed")
		ctl.sendError(c, "Failed to send message")
	}
}

// handleRelay forwards offer/answer/candidate events. Malformed relay
// payloads are dropped and logged, never surfaced: they are opaque blobs
// the router does not validate beyond required fields.
func (ctl *Controller) handleRelay(ident domain.Identity, data []byte) {
	var p protocol.Signal
	if err := json.Unmarshal(data, &p); err != nil {
		log.Error().Err(err).Str("module", "signal").Msg("bad relay payload")
		return
	}
	body, err := p.Payload()
	if err != nil {
		log.Warn().Err(err).Str("module", "signal").Str("type", p.Type).Msg("relay dropped")
		return
	}
	ctl.Router.Relay(p.Type, ident, domain.RoomID(p.RoomID), domain.UserID(p.TargetUserID), body)
}
