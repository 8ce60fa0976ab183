package client

import (
	"encoding/json"
	"errors"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/mindlink/peerhub/internal/domain"
)

// LinkState is the explicit negotiation state of one PeerLink.
type LinkState int

const (
	LinkIdle LinkState = iota
	LinkOfferSent
	LinkAnswerPending
	LinkConnected
	LinkClosed
)

func (s LinkState) String() string {
	switch s {
	case LinkIdle:
		return "idle"
	case LinkOfferSent:
		return "offer_sent"
	case LinkAnswerPending:
		return "answer_pending"
	case LinkConnected:
		return "connected"
	case LinkClosed:
		return "closed"
	}
	return "unknown"
}

var (
	ErrLinkClosed    = errors.New("peer link closed")
	ErrBadTransition = errors.New("invalid negotiation state")
)

// PeerLink tracks one media negotiation with a single remote identity. At
// most one exists per remote peer; duplicate initiations are rejected so a
// pair never negotiates twice in parallel.
type PeerLink struct {
	Remote domain.UserID

	mu        sync.Mutex
	state     LinkState
	transport MediaTransport

	hasLocalDescription  bool
	hasRemoteDescription bool

	// Candidates arriving before the remote description is set are queued
	// and flushed in arrival order once it lands.
	pending []json.RawMessage
}

func NewPeerLink(remote domain.UserID, transport MediaTransport) *PeerLink {
	return &PeerLink{Remote: remote, transport: transport}
}

func (l *PeerLink) State() LinkState {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.state
}

// Initiate generates a local offer. Only valid from idle.
func (l *PeerLink) Initiate() (json.RawMessage, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.state == LinkClosed {
		return nil, ErrLinkClosed
	}
	if l.state != LinkIdle {
		return nil, ErrBadTransition
	}
	offer, err := l.transport.CreateOffer()
	if err != nil {
		return nil, err
	}
	l.hasLocalDescription = true
	l.state = LinkOfferSent
	return offer, nil
}

// AcceptOffer installs a remote offer and produces the answer. Valid from
// idle; an offer arriving in any other state is a stale or glare remnant
// and is rejected.
func (l *PeerLink) AcceptOffer(offer json.RawMessage) (json.RawMessage, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.state == LinkClosed {
		return nil, ErrLinkClosed
	}
	if l.state != LinkIdle {
		return nil, ErrBadTransition
	}
	answer, err := l.transport.HandleOffer(offer)
	if err != nil {
		return nil, err
	}
	l.hasRemoteDescription = true
	l.hasLocalDescription = true
	l.state = LinkAnswerPending
	l.flushPendingLocked()
	return answer, nil
}

// AcceptAnswer installs the remote answer for an offer we sent. An answer
// with no matching offer means ours was lost or superseded; drop it.
func (l *PeerLink) AcceptAnswer(answer json.RawMessage) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.state == LinkClosed {
		return ErrLinkClosed
	}
	if l.state != LinkOfferSent {
		return ErrBadTransition
	}
	if err := l.transport.HandleAnswer(answer); err != nil {
		return err
	}
	l.hasRemoteDescription = true
	l.flushPendingLocked()
	return nil
}

// AddCandidate applies a remote candidate, queueing it when the remote
// description has not been set yet.
func (l *PeerLink) AddCandidate(candidate json.RawMessage) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.state == LinkClosed {
		return ErrLinkClosed
	}
	if !l.hasRemoteDescription {
		l.pending = append(l.pending, candidate)
		return nil
	}
	return l.transport.AddICECandidate(candidate)
}

func (l *PeerLink) flushPendingLocked() {
	for _, c := range l.pending {
		if err := l.transport.AddICECandidate(c); err != nil {
			log.Warn().Err(err).Str("module", "client.peer").Str("remote", string(l.Remote)).Msg("queued candidate dropped")
		}
	}
	l.pending = nil
}

// MarkConnected records the transport reaching a connected state.
func (l *PeerLink) MarkConnected() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.state == LinkOfferSent || l.state == LinkAnswerPending {
		l.state = LinkConnected
	}
}

// Close releases the transport. Idempotent.
func (l *PeerLink) Close() {
	l.mu.Lock()
	if l.state == LinkClosed {
		l.mu.Unlock()
		return
	}
	l.state = LinkClosed
	l.pending = nil
	t := l.transport
	l.mu.Unlock()
	t.Close()
}
