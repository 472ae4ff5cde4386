package store

import (
	"context"
	"errors"
	"time"
)

// Room represents a password-gated chat room.
// The password is stored and compared verbatim; see the admission contract
// in core before changing this.
type Room struct {
	Code      string
	Password  string
	CreatedBy string
	CreatedAt time.Time
}

// Member represents one connection's membership in one room.
// Two members may share a display name; the connection ID is the identity.
type Member struct {
	RoomCode string
	ConnID   string
	Name     string
	JoinedAt time.Time
}

// Message represents a persisted chat message. The payload is an encrypted
// blob produced by the client; the server never sees plaintext.
type Message struct {
	ID        int64
	RoomCode  string
	Sender    string
	Payload   string
	CreatedAt time.Time
}

// Sentinel errors returned by room stores.
var (
	ErrRoomExists   = errors.New("room already exists")
	ErrRoomNotFound = errors.New("room not found")
)

// RoomStore handles room and membership persistence.
type RoomStore interface {
	// CreateRoom persists a new room with the creator as its first member.
	// The insert is atomic per room code: of two concurrent calls with the
	// same code exactly one succeeds, the other gets ErrRoomExists.
	CreateRoom(ctx context.Context, room *Room, creator Member) (*Room, error)

	// GetRoom retrieves a room by code. Returns ErrRoomNotFound if absent.
	GetRoom(ctx context.Context, code string) (*Room, error)

	// UpsertMember adds a member to a room, replacing any stale entry
	// recorded for the same connection ID.
	UpsertMember(ctx context.Context, m Member) error

	// RemoveMember removes a member by connection ID. Removing an absent
	// member is not an error.
	RemoveMember(ctx context.Context, code, connID string) error

	// ListMembers lists room members in join order.
	ListMembers(ctx context.Context, code string) ([]Member, error)
}

// MessageStore handles message persistence.
type MessageStore interface {
	// AppendMessage persists a message and fills in its assigned ID.
	AppendMessage(ctx context.Context, msg *Message) error

	// ListMessages returns up to limit most recent messages of a room in
	// append order. limit <= 0 means no bound.
	ListMessages(ctx context.Context, code string, limit int) ([]Message, error)
}

// Store aggregates all storage interfaces.
type Store interface {
	RoomStore
	MessageStore

	// Close closes the underlying database connection.
	Close() error
}
