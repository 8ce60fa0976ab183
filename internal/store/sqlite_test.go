package store

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/mindlink/peerhub/internal/domain"
)

func openTestDB(t *testing.T) *SQLite {
	t.Helper()
	s, err := OpenSQLite(filepath.Join(t.TempDir(), "peerhub.db"))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestSQLiteMigrationsAreIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "peerhub.db")
	s, err := OpenSQLite(path)
	if err != nil {
		t.Fatalf("first open: %v", err)
	}
	s.Close()

	// Reopening an already-migrated database must not fail or re-run DDL.
	s, err = OpenSQLite(path)
	if err != nil {
		t.Fatalf("second open: %v", err)
	}
	s.Close()
}

func TestSQLiteRoomRoundtrip(t *testing.T) {
	s := openTestDB(t)
	ctx := context.Background()

	if _, err := s.FindRoom(ctx, "r1"); !errors.Is(err, domain.ErrRoomNotFound) {
		t.Fatalf("missing room: %v", err)
	}

	err := s.PutRoom(ctx, domain.Room{
		ID: "r1", Name: "lounge", Topic: "anxiety",
		MaxParticipants: 4, IsActive: true, IsPrivate: true, CreatedBy: "admin",
	})
	if err != nil {
		t.Fatalf("put: %v", err)
	}

	room, err := s.FindRoom(ctx, "r1")
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if room.Name != "lounge" || room.Topic != "anxiety" || room.MaxParticipants != 4 || !room.IsPrivate || !room.IsActive {
		t.Fatalf("room = %+v", room)
	}
}

func TestSQLiteRosterLifecycle(t *testing.T) {
	s := openTestDB(t)
	ctx := context.Background()

	if err := s.PutRoom(ctx, domain.Room{ID: "r1", Name: "r1", IsActive: true}); err != nil {
		t.Fatalf("put room: %v", err)
	}
	if err := s.AddParticipant(ctx, "r1", "alice"); err != nil {
		t.Fatalf("add: %v", err)
	}
	if err := s.AddParticipant(ctx, "r1", "bob"); err != nil {
		t.Fatalf("add: %v", err)
	}

	roster, err := s.ActiveParticipants(ctx, "r1")
	if err != nil {
		t.Fatalf("roster: %v", err)
	}
	if len(roster) != 2 {
		t.Fatalf("roster size = %d, want 2", len(roster))
	}

	if err := s.DeactivateParticipant(ctx, "r1", "alice"); err != nil {
		t.Fatalf("deactivate: %v", err)
	}
	roster, _ = s.ActiveParticipants(ctx, "r1")
	if len(roster) != 1 || roster[0].UserID != "bob" {
		t.Fatalf("roster after leave = %+v", roster)
	}

	// Rejoin flips the existing row back to active with a cleared left_at.
	if err := s.AddParticipant(ctx, "r1", "alice"); err != nil {
		t.Fatalf("rejoin: %v", err)
	}
	roster, _ = s.ActiveParticipants(ctx, "r1")
	if len(roster) != 2 {
		t.Fatalf("roster after rejoin = %+v", roster)
	}
	for _, p := range roster {
		if p.LeftAt != nil {
			t.Fatalf("active participant carries left_at: %+v", p)
		}
	}
}

func TestSQLiteMessagesAndAppointments(t *testing.T) {
	s := openTestDB(t)
	ctx := context.Background()

	msg, err := domain.NewChatMessage("r1", "alice", "hello", "")
	if err != nil {
		t.Fatalf("new message: %v", err)
	}
	msg.ID = "m-1"
	if _, err := s.AppendMessage(ctx, msg); err != nil {
		t.Fatalf("append: %v", err)
	}

	msgs, err := s.RecentMessages(ctx, "r1", 10)
	if err != nil {
		t.Fatalf("recent: %v", err)
	}
	if len(msgs) != 1 || msgs[0].ID != "m-1" || msgs[0].Body != "hello" || msgs[0].Kind != domain.MessageText {
		t.Fatalf("messages = %+v", msgs)
	}

	start := time.Date(2026, 3, 10, 14, 0, 0, 0, time.UTC)
	err = s.PutAppointment(ctx, domain.Appointment{
		RoomID: "r1", UserID: "alice", TherapistID: "dr-b",
		ScheduledAt: start, Duration: 45 * time.Minute,
	})
	if err != nil {
		t.Fatalf("put appointment: %v", err)
	}
	appt, err := s.FindAppointmentByRoom(ctx, "r1")
	if err != nil {
		t.Fatalf("find appointment: %v", err)
	}
	if !appt.ScheduledAt.Equal(start) || appt.Duration != 45*time.Minute || appt.TherapistID != "dr-b" {
		t.Fatalf("appointment = %+v", appt)
	}

	if _, err := s.FindAppointmentByRoom(ctx, "absent"); !errors.Is(err, domain.ErrNoAppointment) {
		t.Fatalf("missing appointment: %v", err)
	}
}
