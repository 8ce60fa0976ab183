package store

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/mindlink/peerhub/internal/domain"
)

// Memory is an in-process Store for tests and the `storage: memory` dev mode.
type Memory struct {
	mu           sync.RWMutex
	identities   map[domain.UserID]domain.Identity
	rooms        map[domain.RoomID]domain.Room
	participants map[domain.RoomID][]domain.Participant
	messages     map[domain.RoomID][]domain.ChatMessage
	appointments map[domain.RoomID]domain.Appointment
}

func NewMemory() *Memory {
	return &Memory{
		identities:   make(map[domain.UserID]domain.Identity),
		rooms:        make(map[domain.RoomID]domain.Room),
		participants: make(map[domain.RoomID][]domain.Participant),
		messages:     make(map[domain.RoomID][]domain.ChatMessage),
		appointments: make(map[domain.RoomID]domain.Appointment),
	}
}

func (m *Memory) PutIdentity(id domain.Identity) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.identities[id.ID] = id
}

func (m *Memory) PutRoom(r domain.Room) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if r.MaxParticipants == 0 {
		r.MaxParticipants = domain.DefaultMaxParticipants
	}
	m.rooms[r.ID] = r
}

func (m *Memory) PutAppointment(a domain.Appointment) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.appointments[a.RoomID] = a
}

func (m *Memory) FindIdentity(_ context.Context, id domain.UserID) (*domain.Identity, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	ident, ok := m.identities[id]
	if !ok {
		return nil, domain.ErrIdentityUnknown
	}
	return &ident, nil
}

func (m *Memory) FindRoom(_ context.Context, id domain.RoomID) (*domain.Room, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	room, ok := m.rooms[id]
	if !ok {
		return nil, domain.ErrRoomNotFound
	}
	return &room, nil
}

func (m *Memory) ActiveParticipants(_ context.Context, id domain.RoomID) ([]domain.Participant, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if _, ok := m.rooms[id]; !ok {
		return nil, domain.ErrRoomNotFound
	}
	var out []domain.Participant
	for _, p := range m.participants[id] {
		if p.IsActive {
			out = append(out, p)
		}
	}
	return out, nil
}

func (m *Memory) AddParticipant(_ context.Context, id domain.RoomID, user domain.UserID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.rooms[id]; !ok {
		return domain.ErrRoomNotFound
	}
	for i, p := range m.participants[id] {
		if p.UserID == user {
			m.participants[id][i].IsActive = true
			m.participants[id][i].LeftAt = nil
			return nil
		}
	}
	m.participants[id] = append(m.participants[id], domain.Participant{
		UserID:   user,
		JoinedAt: time.Now().UTC(),
		IsActive: true,
	})
	return nil
}

func (m *Memory) DeactivateParticipant(_ context.Context, id domain.RoomID, user domain.UserID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, p := range m.participants[id] {
		if p.UserID == user && p.IsActive {
			now := time.Now().UTC()
			m.participants[id][i].IsActive = false
			m.participants[id][i].LeftAt = &now
		}
	}
	return nil
}

func (m *Memory) AppendMessage(_ context.Context, msg *domain.ChatMessage) (*domain.ChatMessage, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	stored := *msg
	if stored.ID == "" {
		stored.ID = uuid.NewString()
	}
	m.messages[msg.RoomID] = append(m.messages[msg.RoomID], stored)
	return &stored, nil
}

func (m *Memory) RecentMessages(_ context.Context, room domain.RoomID, limit int) ([]domain.ChatMessage, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	msgs := m.messages[room]
	if limit > 0 && len(msgs) > limit {
		msgs = msgs[len(msgs)-limit:]
	}
	out := make([]domain.ChatMessage, len(msgs))
	copy(out, msgs)
	return out, nil
}

func (m *Memory) FindAppointmentByRoom(_ context.Context, room domain.RoomID) (*domain.Appointment, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	appt, ok := m.appointments[room]
	if !ok {
		return nil, domain.ErrNoAppointment
	}
	return &appt, nil
}
