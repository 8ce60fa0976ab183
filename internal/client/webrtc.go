package client

import (
	"encoding/json"
	"sync"

	"github.com/pion/webrtc/v4"
	"github.com/rs/zerolog/log"
)

// WebRTCTransport implements MediaTransport on a pion PeerConnection, with
// descriptions and candidates in the browser-compatible JSON shapes.
type WebRTCTransport struct {
	pc *webrtc.PeerConnection

	mu      sync.RWMutex
	onICE   func(json.RawMessage)
	onState func(TransportState)
}

func DefaultWebRTCConfig() webrtc.Configuration {
	return webrtc.Configuration{
		ICEServers: []webrtc.ICEServer{
			{
				URLs: []string{"stun:stun.l.google.com:19302"},
			},
		},
	}
}

// NewWebRTCTransport sets up a receiving peer connection. Local capture
// tracks, when present, are attached before the first negotiation.
func NewWebRTCTransport(cfg webrtc.Configuration, tracks ...webrtc.TrackLocal) (*WebRTCTransport, error) {
	pc, err := webrtc.NewPeerConnection(cfg)
	if err != nil {
		return nil, err
	}
	t := &WebRTCTransport{pc: pc}

	for _, track := range tracks {
		if _, err := pc.AddTrack(track); err != nil {
			_ = pc.Close()
			return nil, err
		}
	}
	if len(tracks) == 0 {
		for _, kind := range []webrtc.RTPCodecType{webrtc.RTPCodecTypeAudio, webrtc.RTPCodecTypeVideo} {
			if _, err := pc.AddTransceiverFromKind(kind, webrtc.RTPTransceiverInit{
				Direction: webrtc.RTPTransceiverDirectionRecvonly,
			}); err != nil {
				_ = pc.Close()
				return nil, err
			}
		}
	}

	pc.OnICECandidate(func(cand *webrtc.ICECandidate) {
		if cand == nil {
			return
		}
		b, err := json.Marshal(cand.ToJSON())
		if err != nil {
			log.Error().Err(err).Str("module", "client.webrtc").Msg("marshal candidate")
			return
		}
		t.mu.RLock()
		cb := t.onICE
		t.mu.RUnlock()
		if cb != nil {
			cb(b)
		}
	})

	pc.OnConnectionStateChange(func(s webrtc.PeerConnectionState) {
		log.Info().Str("module", "client.webrtc").Str("state", s.String()).Msg("peer state")
		t.mu.RLock()
		cb := t.onState
		t.mu.RUnlock()
		if cb != nil {
			cb(mapState(s))
		}
	})

	return t, nil
}

func mapState(s webrtc.PeerConnectionState) TransportState {
	switch s {
	case webrtc.PeerConnectionStateConnected:
		return TransportConnected
	case webrtc.PeerConnectionStateDisconnected:
		return TransportDisconnected
	case webrtc.PeerConnectionStateFailed:
		return TransportFailed
	case webrtc.PeerConnectionStateClosed:
		return TransportClosed
	}
	return TransportNew
}

func (t *WebRTCTransport) CreateOffer() (json.RawMessage, error) {
	offer, err := t.pc.CreateOffer(nil)
	if err != nil {
		return nil, err
	}
	if err := t.pc.SetLocalDescription(offer); err != nil {
		return nil, err
	}
	return json.Marshal(offer)
}

func (t *WebRTCTransport) HandleOffer(raw json.RawMessage) (json.RawMessage, error) {
	var offer webrtc.SessionDescription
	if err := json.Unmarshal(raw, &offer); err != nil {
		return nil, err
	}
	if err := t.pc.SetRemoteDescription(offer); err != nil {
		return nil, err
	}
	answer, err := t.pc.CreateAnswer(nil)
	if err != nil {
		return nil, err
	}
	if err := t.pc.SetLocalDescription(answer); err != nil {
		return nil, err
	}
	return json.Marshal(answer)
}

func (t *WebRTCTransport) HandleAnswer(raw json.RawMessage) error {
	var answer webrtc.SessionDescription
	if err := json.Unmarshal(raw, &answer); err != nil {
		return err
	}
	return t.pc.SetRemoteDescription(answer)
}

func (t *WebRTCTransport) AddICECandidate(raw json.RawMessage) error {
	var cand webrtc.ICECandidateInit
	if err := json.Unmarshal(raw, &cand); err != nil {
		return err
	}
	return t.pc.AddICECandidate(cand)
}

func (t *WebRTCTransport) OnICECandidate(cb func(json.RawMessage)) {
	t.mu.Lock()
	t.onICE = cb
	t.mu.Unlock()
}

func (t *WebRTCTransport) OnStateChange(cb func(TransportState)) {
	t.mu.Lock()
	t.onState = cb
	t.mu.Unlock()
}

func (t *WebRTCTransport) OnTrack(cb func(*webrtc.TrackRemote, *webrtc.RTPReceiver)) {
	t.pc.OnTrack(cb)
}

func (t *WebRTCTransport) Close() {
	if err := t.pc.Close(); err != nil {
		log.Warn().Err(err).Str("module", "client.webrtc").Msg("close")
	}
}
