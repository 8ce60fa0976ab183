// Package protocol defines the wire events exchanged over the signaling
// socket: one variant per event name, with required fields checked at the
// boundary. Offer/answer/candidate bodies stay opaque; the router relays
// them without interpretation.
package protocol

import (
	"encoding/json"
	"errors"
	"time"
)

// Client → server event names.
const (
	EventJoinRoom    = "join_room"
	EventLeaveRoom   = "leave_room"
	EventSendMessage = "send_message"
)

// Server → client event names.
const (
	EventRoomParticipants = "room_participants"
	EventUserJoined       = "user_joined"
	EventUserLeft         = "user_left"
	EventNewMessage       = "new_message"
	EventError            = "error"
)

// Bidirectional relay event names.
const (
	EventOffer     = "video_call_offer"
	EventAnswer    = "video_call_answer"
	EventCandidate = "ice_candidate"
)

var (
	ErrMissingRoom    = errors.New("roomId is required")
	ErrMissingPayload = errors.New("signal payload is required")
)

// Envelope carries just the discriminator; handlers re-unmarshal the full
// payload for their variant.
type Envelope struct {
	Type string `json:"type"`
}

// UserRef is the display view of an identity embedded in events.
type UserRef struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	ProfileImage string `json:"profileImage,omitempty"`
}

// ---- client → server ----

type JoinRoom struct {
	Type   string `json:"type"`
	RoomID string `json:"roomId"`
}

func (p *JoinRoom) Validate() error {
	if p.RoomID == "" {
		return ErrMissingRoom
	}
	return nil
}

type LeaveRoom struct {
	Type   string `json:"type"`
	RoomID string `json:"roomId"`
}

func (p *LeaveRoom) Validate() error {
	if p.RoomID == "" {
		return ErrMissingRoom
	}
	return nil
}

type SendMessage struct {
	Type        string `json:"type"`
	RoomID      string `json:"roomId"`
	Message     string `json:"message"`
	MessageType string `json:"messageType,omitempty"`
}

func (p *SendMessage) Validate() error {
	if p.RoomID == "" {
		return ErrMissingRoom
	}
	return nil
}

// Signal is the inbound shape of the three relay events. Exactly one of
// Offer/Answer/Candidate is set depending on the envelope type.
type Signal struct {
	Type         string          `json:"type"`
	RoomID       string          `json:"roomId,omitempty"`
	TargetUserID string          `json:"targetUserId,omitempty"`
	Offer        json.RawMessage `json:"offer,omitempty"`
	Answer       json.RawMessage `json:"answer,omitempty"`
	Candidate    json.RawMessage `json:"candidate,omitempty"`
}

// Payload returns the body matching the envelope type.
func (p *Signal) Payload() (json.RawMessage, error) {
	var body json.RawMessage
	switch p.Type {
	case EventOffer:
		body = p.Offer
	case EventAnswer:
		body = p.Answer
	case EventCandidate:
		body = p.Candidate
	}
	if len(body) == 0 {
		return nil, ErrMissingPayload
	}
	if p.TargetUserID == "" && p.RoomID == "" {
		return nil, ErrMissingRoom
	}
	return body, nil
}

// ---- server → client ----

type RoomParticipants struct {
	Type              string    `json:"type"`
	SelfID            string    `json:"selfId"`
	Participants      []UserRef `json:"participants"`
	ParticipantsCount int       `json:"participantsCount"`
}

type UserJoined struct {
	Type              string  `json:"type"`
	User              UserRef `json:"user"`
	ParticipantsCount int     `json:"participantsCount"`
}

type UserLeft struct {
	Type              string  `json:"type"`
	User              UserRef `json:"user"`
	ParticipantsCount int     `json:"participantsCount"`
}

type NewMessage struct {
	Type        string    `json:"type"`
	ID          string    `json:"id"`
	Sender      UserRef   `json:"sender"`
	Message     string    `json:"message"`
	MessageType string    `json:"messageType"`
	CreatedAt   time.Time `json:"createdAt"`
}

// SignalEvent is the outbound shape of a relayed offer/answer/candidate.
type SignalEvent struct {
	Type      string          `json:"type"`
	From      UserRef         `json:"from"`
	Offer     json.RawMessage `json:"offer,omitempty"`
	Answer    json.RawMessage `json:"answer,omitempty"`
	Candidate json.RawMessage `json:"candidate,omitempty"`
}

// NewSignalEvent places body in the field matching kind.
func NewSignalEvent(kind string, from UserRef, body json.RawMessage) SignalEvent {
	ev := SignalEvent{Type: kind, From: from}
	switch kind {
	case EventOffer:
		ev.Offer = body
	case EventAnswer:
		ev.Answer = body
	case EventCandidate:
		ev.Candidate = body
	}
	return ev
}

type ErrorEvent struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

func NewError(msg string) ErrorEvent {
	return ErrorEvent{Type: EventError, Message: msg}
}
