package store

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/mindlink/peerhub/internal/domain"
)

func TestMemoryRosterLifecycle(t *testing.T) {
	mem := NewMemory()
	mem.PutRoom(domain.Room{ID: "r1", Name: "lounge", IsActive: true})
	ctx := context.Background()

	if err := mem.AddParticipant(ctx, "r1", "alice"); err != nil {
		t.Fatalf("add: %v", err)
	}
	roster, err := mem.ActiveParticipants(ctx, "r1")
	if err != nil {
		t.Fatalf("roster: %v", err)
	}
	if len(roster) != 1 || roster[0].UserID != "alice" || !roster[0].IsActive {
		t.Fatalf("roster = %+v", roster)
	}

	if err := mem.DeactivateParticipant(ctx, "r1", "alice"); err != nil {
		t.Fatalf("deactivate: %v", err)
	}
	roster, err = mem.ActiveParticipants(ctx, "r1")
	if err != nil {
		t.Fatalf("roster: %v", err)
	}
	if len(roster) != 0 {
		t.Fatalf("deactivated member still listed: %+v", roster)
	}

	// Rejoining reactivates the existing row instead of duplicating it.
	if err := mem.AddParticipant(ctx, "r1", "alice"); err != nil {
		t.Fatalf("rejoin: %v", err)
	}
	roster, _ = mem.ActiveParticipants(ctx, "r1")
	if len(roster) != 1 || roster[0].LeftAt != nil {
		t.Fatalf("rejoined roster = %+v", roster)
	}
}

func TestMemoryUnknownRoom(t *testing.T) {
	mem := NewMemory()
	ctx := context.Background()

	if _, err := mem.FindRoom(ctx, "nope"); !errors.Is(err, domain.ErrRoomNotFound) {
		t.Fatalf("find: %v", err)
	}
	if _, err := mem.ActiveParticipants(ctx, "nope"); !errors.Is(err, domain.ErrRoomNotFound) {
		t.Fatalf("roster: %v", err)
	}
	if err := mem.AddParticipant(ctx, "nope", "alice"); !errors.Is(err, domain.ErrRoomNotFound) {
		t.Fatalf("add: %v", err)
	}
	if _, err := mem.FindAppointmentByRoom(ctx, "nope"); !errors.Is(err, domain.ErrNoAppointment) {
		t.Fatalf("appointment: %v", err)
	}
	if _, err := mem.FindIdentity(ctx, "nobody"); !errors.Is(err, domain.ErrIdentityUnknown) {
		t.Fatalf("identity: %v", err)
	}
}

func TestMemoryMessageAppendKeepsCallerID(t *testing.T) {
	mem := NewMemory()
	ctx := context.Background()

	msg, err := domain.NewChatMessage("r1", "alice", "hello", "")
	if err != nil {
		t.Fatalf("new message: %v", err)
	}
	msg.ID = "preassigned"

	stored, err := mem.AppendMessage(ctx, msg)
	if err != nil {
		t.Fatalf("append: %v", err)
	}
	if stored.ID != "preassigned" {
		t.Fatalf("store replaced the id: %q", stored.ID)
	}

	// Without an id the store assigns one.
	msg2, _ := domain.NewChatMessage("r1", "alice", "second", "")
	stored2, err := mem.AppendMessage(ctx, msg2)
	if err != nil {
		t.Fatalf("append: %v", err)
	}
	if stored2.ID == "" {
		t.Fatalf("store should assign a missing id")
	}
}

func TestMemoryRecentMessagesLimit(t *testing.T) {
	mem := NewMemory()
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		msg, _ := domain.NewChatMessage("r1", "alice", fmt.Sprintf("m%d", i), "")
		if _, err := mem.AppendMessage(ctx, msg); err != nil {
			t.Fatalf("append %d: %v", i, err)
		}
	}

	msgs, err := mem.RecentMessages(ctx, "r1", 3)
	if err != nil {
		t.Fatalf("recent: %v", err)
	}
	if len(msgs) != 3 {
		t.Fatalf("got %d messages, want 3", len(msgs))
	}
	// Newest-last, trimmed from the front.
	if msgs[0].Body != "m2" || msgs[2].Body != "m4" {
		t.Fatalf("window = [%s .. %s]", msgs[0].Body, msgs[2].Body)
	}
}
