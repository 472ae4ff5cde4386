package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/mattn/go-sqlite3"

	"github.com/chupchat/chupchat-server/internal/store"
)

// SQLiteStore implements store.Store for SQLite.
type SQLiteStore struct {
	db *sql.DB
}

const schema = `
CREATE TABLE IF NOT EXISTS rooms (
	code       TEXT PRIMARY KEY,
	password   TEXT NOT NULL,
	created_by TEXT NOT NULL,
	created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS room_members (
	room_code TEXT NOT NULL REFERENCES rooms(code),
	conn_id   TEXT NOT NULL,
	name      TEXT NOT NULL,
	joined_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
	PRIMARY KEY (room_code, conn_id)
);

CREATE TABLE IF NOT EXISTS messages (
	id         INTEGER PRIMARY KEY AUTOINCREMENT,
	room_code  TEXT NOT NULL,
	sender     TEXT NOT NULL,
	payload    TEXT NOT NULL,
	created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_messages_room ON messages(room_code, id);
`

// New creates a new SQLite store and bootstraps the schema.
// dbPath is the path to the SQLite database file.
func New(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	// SQLite works best with a single connection.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

// NewWithSetup creates a new SQLite store and runs a setup function before
// the schema bootstrap. Useful for tests to seed fixtures.
func NewWithSetup(dbPath string, setup func(*sql.DB) error) (*SQLiteStore, error) {
	s, err := New(dbPath)
	if err != nil {
		return nil, err
	}

	if setup != nil {
		if err := setup(s.db); err != nil {
			s.db.Close()
			return nil, fmt.Errorf("setup: %w", err)
		}
	}

	return s, nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// ==== RoomStore implementation ====

// CreateRoom persists a new room with the creator as its first member.
// The room insert and the membership insert commit in one transaction; the
// primary key on rooms.code makes concurrent creates race safely.
func (s *SQLiteStore) CreateRoom(ctx context.Context, room *store.Room, creator store.Member) (*store.Room, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	now := time.Now().UTC()
	_, err = tx.ExecContext(ctx,
		`INSERT INTO rooms (code, password, created_by, created_at) VALUES (?, ?, ?, ?)`,
		room.Code, room.Password, room.CreatedBy, now,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, store.ErrRoomExists
		}
		return nil, fmt.Errorf("insert room: %w", err)
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO room_members (room_code, conn_id, name, joined_at) VALUES (?, ?, ?, ?)`,
		room.Code, creator.ConnID, creator.Name, now,
	)
	if err != nil {
		return nil, fmt.Errorf("insert creator member: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit create room: %w", err)
	}

	created := *room
	created.CreatedAt = now
	return &created, nil
}

// GetRoom retrieves a room by code.
func (s *SQLiteStore) GetRoom(ctx context.Context, code string) (*store.Room, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT code, password, created_by, created_at FROM rooms WHERE code = ?`, code)

	var r store.Room
	if err := row.Scan(&r.Code, &r.Password, &r.CreatedBy, &r.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrRoomNotFound
		}
		return nil, fmt.Errorf("select room: %w", err)
	}
	return &r, nil
}

// UpsertMember adds a member, replacing any stale row for the same
// connection ID. The delete and insert commit together so a re-join is
// never observed as two rows or zero rows.
func (s *SQLiteStore) UpsertMember(ctx context.Context, m store.Member) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`DELETE FROM room_members WHERE room_code = ? AND conn_id = ?`,
		m.RoomCode, m.ConnID,
	)
	if err != nil {
		return fmt.Errorf("delete stale member: %w", err)
	}

	joined := m.JoinedAt
	if joined.IsZero() {
		joined = time.Now().UTC()
	}
	_, err = tx.ExecContext(ctx,
		`INSERT INTO room_members (room_code, conn_id, name, joined_at) VALUES (?, ?, ?, ?)`,
		m.RoomCode, m.ConnID, m.Name, joined,
	)
	if err != nil {
		return fmt.Errorf("insert member: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit upsert member: %w", err)
	}
	return nil
}

// RemoveMember removes a member by connection ID.
func (s *SQLiteStore) RemoveMember(ctx context.Context, code, connID string) error {
	_, err := s.db.ExecContext(ctx,
		`DELETE FROM room_members WHERE room_code = ? AND conn_id = ?`, code, connID)
	if err != nil {
		return fmt.Errorf("delete member: %w", err)
	}
	return nil
}

// ListMembers lists room members in join order.
func (s *SQLiteStore) ListMembers(ctx context.Context, code string) ([]store.Member, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT room_code, conn_id, name, joined_at FROM room_members WHERE room_code = ? ORDER BY rowid`, code)
	if err != nil {
		return nil, fmt.Errorf("select members: %w", err)
	}
	defer rows.Close()

	members := []store.Member{}
	for rows.Next() {
		var m store.Member
		if err := rows.Scan(&m.RoomCode, &m.ConnID, &m.Name, &m.JoinedAt); err != nil {
			return nil, fmt.Errorf("scan member: %w", err)
		}
		members = append(members, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate members: %w", err)
	}
	return members, nil
}

// ==== MessageStore implementation ====

// AppendMessage persists a message and fills in its assigned ID.
func (s *SQLiteStore) AppendMessage(ctx context.Context, msg *store.Message) error {
	created := msg.CreatedAt
	if created.IsZero() {
		created = time.Now().UTC()
	}

	result, err := s.db.ExecContext(ctx,
		`INSERT INTO messages (room_code, sender, payload, created_at) VALUES (?, ?, ?, ?)`,
		msg.RoomCode, msg.Sender, msg.Payload, created,
	)
	if err != nil {
		return fmt.Errorf("insert message: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("get last insert id: %w", err)
	}

	msg.ID = id
	msg.CreatedAt = created
	return nil
}

// ListMessages returns up to limit most recent messages in append order.
func (s *SQLiteStore) ListMessages(ctx context.Context, code string, limit int) ([]store.Message, error) {
	query := `SELECT id, room_code, sender, payload, created_at FROM messages WHERE room_code = ? ORDER BY id`
	args := []any{code}
	if limit > 0 {
		query = `SELECT id, room_code, sender, payload, created_at FROM (
			SELECT id, room_code, sender, payload, created_at FROM messages
			WHERE room_code = ? ORDER BY id DESC LIMIT ?
		) ORDER BY id`
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("select messages: %w", err)
	}
	defer rows.Close()

	messages := []store.Message{}
	for rows.Next() {
		var m store.Message
		if err := rows.Scan(&m.ID, &m.RoomCode, &m.Sender, &m.Payload, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan message: %w", err)
		}
		messages = append(messages, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate messages: %w", err)
	}
	return messages, nil
}

func isUniqueViolation(err error) bool {
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.Code == sqlite3.ErrConstraint
	}
	return false
}
