package protocol

import (
	"encoding/json"
	"errors"
	"testing"
)

func TestSignalPayload(t *testing.T) {
	offer := json.RawMessage(`{"type":"offer","sdp":"v=0"}`)

	tests := []struct {
		name    string
		sig     Signal
		want    string
		wantErr error
	}{
		{
			name: "targeted offer",
			sig:  Signal{Type: EventOffer, TargetUserID: "bob", Offer: offer},
			want: string(offer),
		},
		{
			name: "room-scoped candidate",
			sig:  Signal{Type: EventCandidate, RoomID: "r1", Candidate: json.RawMessage(`{"candidate":"c"}`)},
			want: `{"candidate":"c"}`,
		},
		{
			name:    "body in wrong field",
			sig:     Signal{Type: EventAnswer, TargetUserID: "bob", Offer: offer},
			wantErr: ErrMissingPayload,
		},
		{
			name:    "no body at all",
			sig:     Signal{Type: EventOffer, RoomID: "r1"},
			wantErr: ErrMissingPayload,
		},
		{
			name:    "no target and no room",
			sig:     Signal{Type: EventOffer, Offer: offer},
			wantErr: ErrMissingRoom,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			body, err := tt.sig.Payload()
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("err = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if string(body) != tt.want {
				t.Fatalf("body = %s, want %s", body, tt.want)
			}
		})
	}
}

func TestInboundValidate(t *testing.T) {
	if err := (&JoinRoom{Type: EventJoinRoom}).Validate(); !errors.Is(err, ErrMissingRoom) {
		t.Fatalf("join without room: %v", err)
	}
	if err := (&SendMessage{Type: EventSendMessage, Message: "hi"}).Validate(); !errors.Is(err, ErrMissingRoom) {
		t.Fatalf("message without room: %v", err)
	}
	if err := (&LeaveRoom{Type: EventLeaveRoom, RoomID: "r1"}).Validate(); err != nil {
		t.Fatalf("valid leave: %v", err)
	}
}

func TestNewSignalEventFieldPlacement(t *testing.T) {
	body := json.RawMessage(`{"sdp":"x"}`)
	from := UserRef{ID: "alice"}

	for _, kind := range []string{EventOffer, EventAnswer, EventCandidate} {
		raw, err := json.Marshal(NewSignalEvent(kind, from, body))
		if err != nil {
			t.Fatalf("marshal %s: %v", kind, err)
		}
		var m map[string]json.RawMessage
		if err := json.Unmarshal(raw, &m); err != nil {
			t.Fatalf("unmarshal %s: %v", kind, err)
		}
		var field string
		switch kind {
		case EventOffer:
			field = "offer"
		case EventAnswer:
			field = "answer"
		case EventCandidate:
			field = "candidate"
		}
		if string(m[field]) != string(body) {
			t.Fatalf("%s: field %q = %s, want %s", kind, field, m[field], body)
		}
		// The other two body fields must be absent.
		for _, other := range []string{"offer", "answer", "candidate"} {
			if other != field {
				if _, ok := m[other]; ok {
					t.Fatalf("%s: unexpected field %q", kind, other)
				}
			}
		}
	}
}
