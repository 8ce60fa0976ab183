package app

import (
	"sync"

	"github.com/mindlink/peerhub/internal/domain"
)

// Departure reports one room an identity was removed from, with the member
// count remaining after removal.
type Departure struct {
	RoomID    domain.RoomID
	Remaining int
}

// Presence tracks ephemeral, connection-lifetime room membership. Distinct
// from the persisted roster, which records join/leave history.
type Presence struct {
	mu     sync.RWMutex
	rooms  map[domain.RoomID]map[domain.UserID]struct{}
	byUser map[domain.UserID]map[domain.RoomID]struct{}
}

func NewPresence() *Presence {
	return &Presence{
		rooms:  make(map[domain.RoomID]map[domain.UserID]struct{}),
		byUser: make(map[domain.UserID]map[domain.RoomID]struct{}),
	}
}

// Join adds the identity to the room's set, creating the set lazily.
// Idempotent: returns false if the identity was already present.
func (p *Presence) Join(room domain.RoomID, user domain.UserID) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	set, ok := p.rooms[room]
	if !ok {
		set = make(map[domain.UserID]struct{})
		p.rooms[room] = set
	}
	if _, exists := set[user]; exists {
		return false
	}
	set[user] = struct{}{}
	idx, ok := p.byUser[user]
	if !ok {
		idx = make(map[domain.RoomID]struct{})
		p.byUser[user] = idx
	}
	idx[room] = struct{}{}
	return true
}

// Leave removes the identity and deletes the room entry when its set becomes
// empty. Returns the remaining count and whether the identity was a member.
func (p *Presence) Leave(room domain.RoomID, user domain.UserID) (int, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.leaveLocked(room, user)
}

func (p *Presence) leaveLocked(room domain.RoomID, user domain.UserID) (int, bool) {
	set, ok := p.rooms[room]
	if !ok {
		return 0, false
	}
	if _, exists := set[user]; !exists {
		return len(set), false
	}
	delete(set, user)
	if len(set) == 0 {
		delete(p.rooms, room)
	}
	if idx, ok := p.byUser[user]; ok {
		delete(idx, room)
		if len(idx) == 0 {
			delete(p.byUser, user)
		}
	}
	return len(set), true
}

// LeaveAll removes the identity from every room it belongs to, in
// O(rooms-the-identity-is-in) via the per-identity index. Called on
// disconnect; one Departure per affected room.
func (p *Presence) LeaveAll(user domain.UserID) []Departure {
	p.mu.Lock()
	defer p.mu.Unlock()
	idx := p.byUser[user]
	if len(idx) == 0 {
		return nil
	}
	rooms := make([]domain.RoomID, 0, len(idx))
	for room := range idx {
		rooms = append(rooms, room)
	}
	out := make([]Departure, 0, len(rooms))
	for _, room := range rooms {
		if remaining, was := p.leaveLocked(room, user); was {
			out = append(out, Departure{RoomID: room, Remaining: remaining})
		}
	}
	return out
}

// Contains reports whether the identity is currently joined to the room.
func (p *Presence) Contains(room domain.RoomID, user domain.UserID) bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	_, ok := p.rooms[room][user]
	return ok
}

// MembersOf returns a snapshot of the room's current member set.
func (p *Presence) MembersOf(room domain.RoomID) []domain.UserID {
	p.mu.RLock()
	defer p.mu.RUnlock()
	set := p.rooms[room]
	out := make([]domain.UserID, 0, len(set))
	for id := range set {
		out = append(out, id)
	}
	return out
}

// SizeOf returns the room's current live member count.
func (p *Presence) SizeOf(room domain.RoomID) int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return len(p.rooms[room])
}

// RoomCount reports how many rooms currently have live members.
// Observability only.
func (p *Presence) RoomCount() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return len(p.rooms)
}
