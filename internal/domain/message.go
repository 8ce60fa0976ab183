package domain

import (
	"errors"
	"strings"
	"time"
)

const MaxMessageLen = 2000

var (
	ErrEmptyMessage   = errors.New("message cannot be empty")
	ErrMessageTooLong = errors.New("message too long")
)

type MessageKind string

const (
	MessageText   MessageKind = "text"
	MessageSystem MessageKind = "system"
)

// ChatMessage is immutable once created; the message store owns persistence.
type ChatMessage struct {
	ID        string
	RoomID    RoomID
	SenderID  UserID
	Body      string
	Kind      MessageKind
	CreatedAt time.Time
}

// NewChatMessage validates and normalizes a message body. The id is left
// empty for the caller to assign.
func NewChatMessage(roomID RoomID, sender UserID, body string, kind MessageKind) (*ChatMessage, error) {
	body = strings.TrimSpace(body)
	if body == "" {
		return nil, ErrEmptyMessage
	}
	if len(body) > MaxMessageLen {
		return nil, ErrMessageTooLong
	}
	if kind == "" {
		kind = MessageText
	}
	return &ChatMessage{
		RoomID:    roomID,
		SenderID:  sender,
		Body:      body,
		Kind:      kind,
		CreatedAt: time.Now().UTC(),
	}, nil
}
