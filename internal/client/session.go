package client

import (
	"encoding/json"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/mindlink/peerhub/internal/domain"
	"github.com/mindlink/peerhub/internal/protocol"
)

// SignalSender delivers an event to the signaling server.
type SignalSender interface {
	Send(v any) error
}

// RoomSession drives one room's peer links from inbound signaling events.
//
// Glare avoidance: on the join response the session initiates only toward
// pre-existing members whose id sorts greater than its own; when someone
// else joins later, the session (as a pre-existing member) always initiates
// toward the newcomer. Exactly one offer per pair, whichever order the two
// sides arrive in.
type RoomSession struct {
	RoomID domain.RoomID

	send         SignalSender
	newTransport TransportFactory

	mu     sync.Mutex
	selfID domain.UserID
	links  map[domain.UserID]*PeerLink

	// OnMessage, when set, receives chat events.
	OnMessage func(protocol.NewMessage)
	// OnError, when set, receives server error events.
	OnError func(string)
	// OnPeerGone, when set, fires after a peer's link is torn down.
	OnPeerGone func(domain.UserID)
}

func NewRoomSession(roomID domain.RoomID, send SignalSender, factory TransportFactory) *RoomSession {
	return &RoomSession{
		RoomID:       roomID,
		send:         send,
		newTransport: factory,
		links:        make(map[domain.UserID]*PeerLink),
	}
}

// Join asks the server for the room; the rest of the session is driven by
// Handle as events arrive.
func (s *RoomSession) Join() error {
	return s.send.Send(protocol.JoinRoom{Type: protocol.EventJoinRoom, RoomID: string(s.RoomID)})
}

// Leave exits the room and tears down every peer link.
func (s *RoomSession) Leave() error {
	err := s.send.Send(protocol.LeaveRoom{Type: protocol.EventLeaveRoom, RoomID: string(s.RoomID)})
	s.closeAll()
	return err
}

// SendChat submits a chat message to the room.
func (s *RoomSession) SendChat(body string) error {
	return s.send.Send(protocol.SendMessage{
		Type:    protocol.EventSendMessage,
		RoomID:  string(s.RoomID),
		Message: body,
	})
}

// SelfID is the identity the server resolved for this connection; empty
// until the join response arrives.
func (s *RoomSession) SelfID() domain.UserID {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.selfID
}

// Peers snapshots the remote identities with live links.
func (s *RoomSession) Peers() []domain.UserID {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.UserID, 0, len(s.links))
	for id := range s.links {
		out = append(out, id)
	}
	return out
}

// Handle dispatches one inbound signaling frame.
func (s *RoomSession) Handle(data []byte) {
	var env protocol.Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		log.Error().Err(err).Str("module", "client.session").Msg("bad frame")
		return
	}

	switch env.Type {
	case protocol.EventRoomParticipants:
		var p protocol.RoomParticipants
		if err := json.Unmarshal(data, &p); err != nil {
			return
		}
		s.handleParticipants(p)
	case protocol.EventUserJoined:
		var p protocol.UserJoined
		if err := json.Unmarshal(data, &p); err != nil {
			return
		}
		s.initiate(domain.UserID(p.User.ID))
	case protocol.EventUserLeft:
		var p protocol.UserLeft
		if err := json.Unmarshal(data, &p); err != nil {
			return
		}
		s.dropPeer(domain.UserID(p.User.ID))
	case protocol.EventOffer, protocol.EventAnswer, protocol.EventCandidate:
		var p protocol.SignalEvent
		if err := json.Unmarshal(data, &p); err != nil {
			return
		}
		s.handleSignal(p)
	case protocol.EventNewMessage:
		var p protocol.NewMessage
		if err := json.Unmarshal(data, &p); err != nil {
			return
		}
		if s.OnMessage != nil {
			s.OnMessage(p)
		}
	case protocol.EventError:
		var p protocol.ErrorEvent
		if err := json.Unmarshal(data, &p); err != nil {
			return
		}
		log.Warn().Str("module", "client.session").Str("message", p.Message).Msg("server error")
		if s.OnError != nil {
			s.OnError(p.Message)
		}
	default:
		log.Debug().Str("module", "client.session").Str("type", env.Type).Msg("ignored event")
	}
}

// handleParticipants records our resolved id and initiates toward the
// pre-existing members that sort after us. The ones sorting before us will
// have received user_joined and will offer first.
func (s *RoomSession) handleParticipants(p protocol.RoomParticipants) {
	s.mu.Lock()
	s.selfID = domain.UserID(p.SelfID)
	s.mu.Unlock()

	for _, member := range p.Participants {
		if p.SelfID < member.ID {
			s.initiate(domain.UserID(member.ID))
		}
	}
}

// initiate creates a link toward remote and sends the offer. A no-op when a
// link already exists: one negotiation per pair.
func (s *RoomSession) initiate(remote domain.UserID) {
	link, created := s.ensureLink(remote)
	if link == nil || !created {
		return
	}
	offer, err := link.Initiate()
	if err != nil {
		log.Error().Err(err).Str("module", "client.session").Str("remote", string(remote)).Msg("create offer")
		s.dropPeer(remote)
		return
	}
	s.sendSignal(protocol.EventOffer, remote, offer)
}

func (s *RoomSession) handleSignal(p protocol.SignalEvent) {
	remote := domain.UserID(p.From.ID)
	switch p.Type {
	case protocol.EventOffer:
		link, _ := s.ensureLink(remote)
		if link == nil {
			return
		}
		answer, err := link.AcceptOffer(p.Offer)
		if err != nil {
			log.Warn().Err(err).Str("module", "client.session").Str("remote", string(remote)).Msg("offer rejected")
			return
		}
		s.sendSignal(protocol.EventAnswer, remote, answer)
	case protocol.EventAnswer:
		link := s.lookup(remote)
		if link == nil {
			// The matching offer was lost or superseded.
			log.Debug().Str("module", "client.session").Str("remote", string(remote)).Msg("answer without link dropped")
			return
		}
		if err := link.AcceptAnswer(p.Answer); err != nil {
			log.Warn().Err(err).Str("module", "client.session").Str("remote", string(remote)).Msg("answer rejected")
		}
	case protocol.EventCandidate:
		link := s.lookup(remote)
		if link == nil {
			log.Debug().Str("module", "client.session").Str("remote", string(remote)).Msg("candidate without link dropped")
			return
		}
		if err := link.AddCandidate(p.Candidate); err != nil {
			log.Warn().Err(err).Str("module", "client.session").Str("remote", string(remote)).Msg("candidate dropped")
		}
	}
}

// ensureLink returns the link for remote, creating one (with a fresh
// transport) when absent. The bool reports whether it was created now.
func (s *RoomSession) ensureLink(remote domain.UserID) (*PeerLink, bool) {
	s.mu.Lock()
	if link, ok := s.links[remote]; ok {
		s.mu.Unlock()
		return link, false
	}
	s.mu.Unlock()

	transport, err := s.newTransport()
	if err != nil {
		log.Error().Err(err).Str("module", "client.session").Str("remote", string(remote)).Msg("create transport")
		return nil, false
	}

	link := NewPeerLink(remote, transport)
	transport.OnICECandidate(func(candidate json.RawMessage) {
		s.sendSignal(protocol.EventCandidate, remote, candidate)
	})
	transport.OnStateChange(func(state TransportState) {
		if state == TransportConnected {
			link.MarkConnected()
			return
		}
		if state.Terminal() {
			s.dropPeer(remote)
		}
	})

	s.mu.Lock()
	if existing, ok := s.links[remote]; ok {
		// Lost the race; keep the first link.
		s.mu.Unlock()
		link.Close()
		return existing, false
	}
	s.links[remote] = link
	s.mu.Unlock()
	return link, true
}

func (s *RoomSession) lookup(remote domain.UserID) *PeerLink {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.links[remote]
}

func (s *RoomSession) dropPeer(remote domain.UserID) {
	s.mu.Lock()
	link, ok := s.links[remote]
	if ok {
		delete(s.links, remote)
	}
	s.mu.Unlock()
	if !ok {
		return
	}
	link.Close()
	log.Info().Str("module", "client.session").Str("remote", string(remote)).Msg("peer link closed")
	if s.OnPeerGone != nil {
		s.OnPeerGone(remote)
	}
}

func (s *RoomSession) closeAll() {
	s.mu.Lock()
	links := make([]*PeerLink, 0, len(s.links))
	for _, l := range s.links {
		links = append(links, l)
	}
	s.links = make(map[domain.UserID]*PeerLink)
	s.mu.Unlock()
	for _, l := range links {
		l.Close()
	}
}

func (s *RoomSession) sendSignal(kind string, target domain.UserID, body json.RawMessage) {
	p := protocol.Signal{
		Type:         kind,
		RoomID:       string(s.RoomID),
		TargetUserID: string(target),
	}
	switch kind {
	case protocol.EventOffer:
		p.Offer = body
	case protocol.EventAnswer:
		p.Answer = body
	case protocol.EventCandidate:
		p.Candidate = body
	}
	if err := s.send.Send(p); err != nil {
		log.Warn().Err(err).Str("module", "client.session").Str("kind", kind).Msg("send signal")
	}
}
