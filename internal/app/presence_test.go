package app

import (
	"testing"

	"github.com/mindlink/peerhub/internal/domain"
)

func TestPresenceJoinIdempotent(t *testing.T) {
	p := NewPresence()

	if !p.Join("r1", "alice") {
		t.Fatalf("first join should report newly added")
	}
	if p.Join("r1", "alice") {
		t.Fatalf("second join should be a no-op")
	}
	if got := p.SizeOf("r1"); got != 1 {
		t.Fatalf("expected size 1, got %d", got)
	}
}

func TestPresenceJoinLeaveSequences(t *testing.T) {
	tests := []struct {
		name   string
		ops    []string // "join" or "leave"
		member bool
	}{
		{"join,join,leave", []string{"join", "join", "leave"}, false},
		{"join,leave,join", []string{"join", "leave", "join"}, true},
		{"leave only", []string{"leave"}, false},
		{"join,leave,leave,join", []string{"join", "leave", "leave", "join"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := NewPresence()
			for _, op := range tt.ops {
				switch op {
				case "join":
					p.Join("r1", "alice")
				case "leave":
					p.Leave("r1", "alice")
				}
			}
			if got := p.Contains("r1", "alice"); got != tt.member {
				t.Fatalf("membership = %v, want %v", got, tt.member)
			}
		})
	}
}

func TestPresenceLeaveDeletesEmptyRoom(t *testing.T) {
	p := NewPresence()
	p.Join("r1", "alice")

	remaining, was := p.Leave("r1", "alice")
	if !was {
		t.Fatalf("expected alice to have been a member")
	}
	if remaining != 0 {
		t.Fatalf("expected 0 remaining, got %d", remaining)
	}
	if p.RoomCount() != 0 {
		t.Fatalf("empty room entry should be deleted, have %d rooms", p.RoomCount())
	}
}

func TestPresenceLeaveAll(t *testing.T) {
	p := NewPresence()
	p.Join("r1", "alice")
	p.Join("r1", "bob")
	p.Join("r2", "alice")
	p.Join("r3", "carol")

	deps := p.LeaveAll("alice")
	if len(deps) != 2 {
		t.Fatalf("expected 2 departures, got %d", len(deps))
	}
	byRoom := map[domain.RoomID]int{}
	for _, d := range deps {
		byRoom[d.RoomID] = d.Remaining
	}
	if got, ok := byRoom["r1"]; !ok || got != 1 {
		t.Fatalf("r1 remaining = %d (present=%v), want 1", got, ok)
	}
	if got, ok := byRoom["r2"]; !ok || got != 0 {
		t.Fatalf("r2 remaining = %d (present=%v), want 0", got, ok)
	}
	if p.Contains("r1", "alice") || p.Contains("r2", "alice") {
		t.Fatalf("alice should be gone from every room")
	}
	if !p.Contains("r3", "carol") {
		t.Fatalf("unrelated membership should be untouched")
	}
	if p.LeaveAll("alice") != nil {
		t.Fatalf("second LeaveAll should find nothing")
	}
}

func TestPresenceMembersOfSnapshot(t *testing.T) {
	p := NewPresence()
	p.Join("r1", "alice")
	p.Join("r1", "bob")

	members := p.MembersOf("r1")
	if len(members) != 2 {
		t.Fatalf("expected 2 members, got %d", len(members))
	}
	seen := map[domain.UserID]bool{}
	for _, id := range members {
		seen[id] = true
	}
	if !seen["alice"] || !seen["bob"] {
		t.Fatalf("unexpected member set %v", members)
	}
	if got := p.MembersOf("missing"); len(got) != 0 {
		t.Fatalf("expected empty snapshot for missing room")
	}
}
