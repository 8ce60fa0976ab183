// Package auth resolves the bearer credential presented at handshake time
// into an Identity. Resolution happens once per connection; the identity is
// immutable after that.
package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/mindlink/peerhub/internal/domain"
	"github.com/mindlink/peerhub/internal/store"
)

var (
	ErrNoToken      = errors.New("no token provided")
	ErrInvalidToken = errors.New("invalid token")
)

// Resolver verifies HS256 tokens and looks the subject up in the identity
// store. An unknown or inactive user fails resolution.
type Resolver struct {
	secret     []byte
	identities store.IdentityStore
}

func NewResolver(secret string, identities store.IdentityStore) *Resolver {
	return &Resolver{secret: []byte(secret), identities: identities}
}

// Resolve turns a bearer token into an Identity, or an error that refuses
// the connection attempt.
func (r *Resolver) Resolve(ctx context.Context, token string) (*domain.Identity, error) {
	if token == "" {
		return nil, ErrNoToken
	}

	claims := jwt.MapClaims{}
	_, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return r.secret, nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}
	sub, _ := claims["sub"].(string)
	if sub == "" {
		return nil, ErrInvalidToken
	}

	ident, err := r.identities.FindIdentity(ctx, domain.UserID(sub))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}
	if !ident.IsActive {
		return nil, domain.ErrIdentityInactive
	}
	return ident, nil
}

// Sign issues a token for uid. Dev tooling and tests; the login flow that
// normally issues tokens is an external collaborator.
func (r *Resolver) Sign(uid domain.UserID, ttl time.Duration) (string, error) {
	if uid == "" {
		return "", errors.New("empty uid")
	}
	claims := jwt.MapClaims{
		"sub": string(uid),
		"iat": time.Now().Unix(),
		"exp": time.Now().Add(ttl).Unix(),
	}
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return tok.SignedString(r.secret)
}
