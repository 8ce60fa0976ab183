// Package domain contains entities without logic, just meta-data
package domain

import "errors"

const (
	MaxDisplayNameLen = 100
)

var (
	ErrIdentityUnknown  = errors.New("identity unknown")
	ErrIdentityInactive = errors.New("identity inactive")
)

type UserID string

// Identity is the resolved, authenticated user reference. Resolved once per
// connection and immutable for the connection's lifetime.
type Identity struct {
	ID          UserID `json:"id"`
	DisplayName string `json:"name"`
	AvatarRef   string `json:"profileImage,omitempty"`
	IsActive    bool   `json:"-"`
}
