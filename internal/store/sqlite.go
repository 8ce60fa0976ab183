package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	_ "modernc.org/sqlite"

	"github.com/mindlink/peerhub/internal/domain"
)

// migrations holds the ordered list of DDL statements that bring the schema
// up to date. Index i corresponds to version i+1. Append, never edit.
var migrations = []string{
	// v1 — users
	`CREATE TABLE IF NOT EXISTS users (
		id            TEXT PRIMARY KEY,
		display_name  TEXT NOT NULL,
		profile_image TEXT NOT NULL DEFAULT '',
		is_active     INTEGER NOT NULL DEFAULT 1
	)`,
	// v2 — rooms
	`CREATE TABLE IF NOT EXISTS rooms (
		id               TEXT PRIMARY KEY,
		name             TEXT NOT NULL,
		topic            TEXT NOT NULL DEFAULT '',
		max_participants INTEGER NOT NULL DEFAULT 10,
		is_active        INTEGER NOT NULL DEFAULT 1,
		is_private       INTEGER NOT NULL DEFAULT 0,
		created_by       TEXT NOT NULL DEFAULT '',
		created_at       INTEGER NOT NULL DEFAULT (unixepoch())
	)`,
	// v3 — roster with join/leave history
	`CREATE TABLE IF NOT EXISTS room_participants (
		room_id   TEXT NOT NULL,
		user_id   TEXT NOT NULL,
		joined_at INTEGER NOT NULL DEFAULT (unixepoch()),
		left_at   INTEGER,
		is_active INTEGER NOT NULL DEFAULT 1,
		PRIMARY KEY (room_id, user_id)
	)`,
	// v4 — chat messages
	`CREATE TABLE IF NOT EXISTS chat_messages (
		id         TEXT PRIMARY KEY,
		room_id    TEXT NOT NULL,
		sender_id  TEXT NOT NULL,
		body       TEXT NOT NULL,
		kind       TEXT NOT NULL DEFAULT 'text',
		created_at INTEGER NOT NULL
	)`,
	// v5 — appointments gating private rooms
	`CREATE TABLE IF NOT EXISTS appointments (
		room_id          TEXT PRIMARY KEY,
		user_id          TEXT NOT NULL,
		therapist_id     TEXT NOT NULL DEFAULT '',
		scheduled_at     INTEGER NOT NULL,
		duration_minutes INTEGER NOT NULL DEFAULT 60
	)`,
	// v6 — message lookup by room
	`CREATE INDEX IF NOT EXISTS idx_messages_room ON chat_messages(room_id, created_at)`,
	// v7 — WAL for concurrent readers
	`PRAGMA journal_mode=WAL`,
}

// SQLite implements Store on an embedded database.
type SQLite struct {
	db *sql.DB
}

// OpenSQLite opens (or creates) the database at path and applies pending
// migrations. Use ":memory:" for ephemeral in-process storage.
func OpenSQLite(path string) (*SQLite, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	db.SetMaxOpenConns(4)
	db.SetMaxIdleConns(2)

	if _, err := db.Exec(`PRAGMA busy_timeout=5000`); err != nil {
		log.Warn().Err(err).Str("module", "store").Msg("busy_timeout")
	}

	s := &SQLite{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return s, nil
}

func (s *SQLite) Close() error { return s.db.Close() }

func (s *SQLite) migrate() error {
	_, err := s.db.Exec(`CREATE TABLE IF NOT EXISTS schema_migrations (
		version    INTEGER PRIMARY KEY,
		applied_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
	)`)
	if err != nil {
		return fmt.Errorf("create schema_migrations: %w", err)
	}

	var current int
	if err := s.db.QueryRow(
		`SELECT COALESCE(MAX(version), 0) FROM schema_migrations`,
	).Scan(&current); err != nil {
		return fmt.Errorf("read schema version: %w", err)
	}

	for i, stmt := range migrations {
		v := i + 1
		if v <= current {
			continue
		}
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("migration v%d: %w", v, err)
		}
		if _, err := s.db.Exec(`INSERT INTO schema_migrations (version) VALUES (?)`, v); err != nil {
			return fmt.Errorf("record migration v%d: %w", v, err)
		}
	}
	return nil
}

func (s *SQLite) FindIdentity(ctx context.Context, id domain.UserID) (*domain.Identity, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, display_name, profile_image, is_active
		FROM users WHERE id = ?
	`, string(id))

	var ident domain.Identity
	var active int
	if err := row.Scan(&ident.ID, &ident.DisplayName, &ident.AvatarRef, &active); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrIdentityUnknown
		}
		return nil, err
	}
	ident.IsActive = active != 0
	return &ident, nil
}

// PutIdentity inserts or updates a user row. Used by seeding and tests; the
// CRUD surface that normally owns this table is out of scope here.
func (s *SQLite) PutIdentity(ctx context.Context, ident domain.Identity) error {
	active := 0
	if ident.IsActive {
		active = 1
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO users (id, display_name, profile_image, is_active)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			display_name = excluded.display_name,
			profile_image = excluded.profile_image,
			is_active = excluded.is_active
	`, string(ident.ID), ident.DisplayName, ident.AvatarRef, active)
	return err
}

func (s *SQLite) FindRoom(ctx context.Context, id domain.RoomID) (*domain.Room, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, name, topic, max_participants, is_active, is_private, created_by, created_at
		FROM rooms WHERE id = ?
	`, string(id))

	var r domain.Room
	var active, private int
	var createdAt int64
	if err := row.Scan(&r.ID, &r.Name, &r.Topic, &r.MaxParticipants, &active, &private, &r.CreatedBy, &createdAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrRoomNotFound
		}
		return nil, err
	}
	r.IsActive = active != 0
	r.IsPrivate = private != 0
	r.CreatedAt = time.Unix(createdAt, 0).UTC()
	return &r, nil
}

func (s *SQLite) PutRoom(ctx context.Context, r domain.Room) error {
	if r.MaxParticipants == 0 {
		r.MaxParticipants = domain.DefaultMaxParticipants
	}
	active, private := 0, 0
	if r.IsActive {
		active = 1
	}
	if r.IsPrivate {
		private = 1
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO rooms (id, name, topic, max_participants, is_active, is_private, created_by)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			topic = excluded.topic,
			max_participants = excluded.max_participants,
			is_active = excluded.is_active,
			is_private = excluded.is_private
	`, string(r.ID), r.Name, r.Topic, r.MaxParticipants, active, private, string(r.CreatedBy))
	return err
}

func (s *SQLite) ActiveParticipants(ctx context.Context, id domain.RoomID) ([]domain.Participant, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT user_id, joined_at, left_at, is_active
		FROM room_participants
		WHERE room_id = ? AND is_active = 1
		ORDER BY joined_at
	`, string(id))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Participant
	for rows.Next() {
		var p domain.Participant
		var joined int64
		var left sql.NullInt64
		var active int
		if err := rows.Scan(&p.UserID, &joined, &left, &active); err != nil {
			return nil, err
		}
		p.JoinedAt = time.Unix(joined, 0).UTC()
		if left.Valid {
			t := time.Unix(left.Int64, 0).UTC()
			p.LeftAt = &t
		}
		p.IsActive = active != 0
		out = append(out, p)
	}
	return out, rows.Err()
}

func (s *SQLite) AddParticipant(ctx context.Context, id domain.RoomID, user domain.UserID) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO room_participants (room_id, user_id, joined_at, is_active)
		VALUES (?, ?, unixepoch(), 1)
		ON CONFLICT(room_id, user_id) DO UPDATE SET
			is_active = 1,
			left_at = NULL
	`, string(id), string(user))
	return err
}

func (s *SQLite) DeactivateParticipant(ctx context.Context, id domain.RoomID, user domain.UserID) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE room_participants
		SET is_active = 0, left_at = unixepoch()
		WHERE room_id = ? AND user_id = ? AND is_active = 1
	`, string(id), string(user))
	return err
}

func (s *SQLite) AppendMessage(ctx context.Context, msg *domain.ChatMessage) (*domain.ChatMessage, error) {
	stored := *msg
	if stored.ID == "" {
		stored.ID = uuid.NewString()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO chat_messages (id, room_id, sender_id, body, kind, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, stored.ID, string(stored.RoomID), string(stored.SenderID), stored.Body, string(stored.Kind), stored.CreatedAt.Unix())
	if err != nil {
		return nil, err
	}
	return &stored, nil
}

func (s *SQLite) RecentMessages(ctx context.Context, room domain.RoomID, limit int) ([]domain.ChatMessage, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, room_id, sender_id, body, kind, created_at
		FROM chat_messages
		WHERE room_id = ?
		ORDER BY created_at DESC
		LIMIT ?
	`, string(room), limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.ChatMessage
	for rows.Next() {
		var m domain.ChatMessage
		var created int64
		if err := rows.Scan(&m.ID, &m.RoomID, &m.SenderID, &m.Body, &m.Kind, &created); err != nil {
			return nil, err
		}
		m.CreatedAt = time.Unix(created, 0).UTC()
		out = append(out, m)
	}
	// Oldest first for display.
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	return out, rows.Err()
}

func (s *SQLite) FindAppointmentByRoom(ctx context.Context, room domain.RoomID) (*domain.Appointment, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT room_id, user_id, therapist_id, scheduled_at, duration_minutes
		FROM appointments WHERE room_id = ?
	`, string(room))

	var a domain.Appointment
	var scheduled, minutes int64
	if err := row.Scan(&a.RoomID, &a.UserID, &a.TherapistID, &scheduled, &minutes); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNoAppointment
		}
		return nil, err
	}
	a.ScheduledAt = time.Unix(scheduled, 0).UTC()
	a.Duration = time.Duration(minutes) * time.Minute
	return &a, nil
}

func (s *SQLite) PutAppointment(ctx context.Context, a domain.Appointment) error {
	d := a.Duration
	if d <= 0 {
		d = domain.DefaultAppointmentDuration
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO appointments (room_id, user_id, therapist_id, scheduled_at, duration_minutes)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(room_id) DO UPDATE SET
			user_id = excluded.user_id,
			therapist_id = excluded.therapist_id,
			scheduled_at = excluded.scheduled_at,
			duration_minutes = excluded.duration_minutes
	`, string(a.RoomID), string(a.UserID), string(a.TherapistID), a.ScheduledAt.Unix(), int64(d/time.Minute))
	return err
}
