package app

import (
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/mindlink/peerhub/internal/core"
	"github.com/mindlink/peerhub/internal/domain"
)

// Connection pairs a resolved identity with its live transport handle.
// One per socket; destroyed on disconnect.
type Connection struct {
	Identity    domain.Identity
	Conn        core.Conn
	ConnectedAt time.Time
}

// Registry is the source of truth for "who is currently reachable".
// It exclusively owns the user-id → connection mapping.
type Registry struct {
	mu    sync.RWMutex
	conns map[domain.UserID]*Connection
}

func NewRegistry() *Registry {
	return &Registry{conns: make(map[domain.UserID]*Connection)}
}

// Register installs a connection for the identity and returns the previous
// one, if any, so the caller can tear down its room memberships first.
func (r *Registry) Register(ident domain.Identity, conn core.Conn) *Connection {
	r.mu.Lock()
	defer r.mu.Unlock()
	prev := r.conns[ident.ID]
	r.conns[ident.ID] = &Connection{
		Identity:    ident,
		Conn:        conn,
		ConnectedAt: time.Now().UTC(),
	}
	log.Info().Str("module", "app.registry").Str("user", string(ident.ID)).Bool("replaced", prev != nil).Msg("registered connection")
	return prev
}

// Unregister removes the entry for id, but only if it still holds conn;
// a connection replaced by a newer one must not evict its successor.
func (r *Registry) Unregister(id domain.UserID, conn core.Conn) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	cur, ok := r.conns[id]
	if !ok || cur.Conn != conn {
		return false
	}
	delete(r.conns, id)
	log.Info().Str("module", "app.registry").Str("user", string(id)).Msg("unregistered connection")
	return true
}

// Lookup answers "is this identity reachable". Callers treat a miss as
// "peer no longer reachable, drop silently".
func (r *Registry) Lookup(id domain.UserID) (*Connection, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.conns[id]
	return c, ok
}

// Count reports total live connections. Observability only.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.conns)
}
