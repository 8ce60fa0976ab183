// Package client orchestrates the browser-equivalent side of a room
// session: one media transport per remote identity, driven by discrete
// signaling events rather than nested callbacks.
package client

import "encoding/json"

// TransportState is the terminal-relevant view of the underlying
// peer-to-peer transport's connection state.
type TransportState int

const (
	TransportNew TransportState = iota
	TransportConnected
	TransportDisconnected
	TransportFailed
	TransportClosed
)

func (s TransportState) Terminal() bool {
	switch s {
	case TransportDisconnected, TransportFailed, TransportClosed:
		return true
	}
	return false
}

// MediaTransport abstracts one peer-to-peer media session. Descriptions and
// candidates are the JSON shapes the signaling protocol carries; the
// transport owns their interpretation.
type MediaTransport interface {
	// CreateOffer generates and installs the local session description.
	CreateOffer() (json.RawMessage, error)
	// HandleOffer installs the remote offer and returns a local answer.
	HandleOffer(offer json.RawMessage) (json.RawMessage, error)
	// HandleAnswer installs the remote answer.
	HandleAnswer(answer json.RawMessage) error
	// AddICECandidate applies a remote candidate. The caller guarantees the
	// remote description is already set.
	AddICECandidate(candidate json.RawMessage) error
	// OnICECandidate registers the callback for locally gathered
	// candidates; they must be forwarded in arrival order.
	OnICECandidate(func(candidate json.RawMessage))
	// OnStateChange registers the connection-state callback.
	OnStateChange(func(TransportState))
	Close()
}

// TransportFactory creates the transport for a newly discovered peer.
type TransportFactory func() (MediaTransport, error)
