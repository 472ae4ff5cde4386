package core

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/chupchat/chupchat-server/internal/store"
)

func mustEvent(t *testing.T, ch <-chan *Event, kind EventKind) *Event {
	t.Helper()

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		select {
		case ev := <-ch:
			if ev == nil {
				continue
			}
			if ev.Kind == kind {
				return ev
			}
		default:
			time.Sleep(5 * time.Millisecond)
		}
	}
	t.Fatalf("expected event kind %v not received", kind)
	return nil
}

// waitEvent is mustEvent without the fatal, for use off the test goroutine.
func waitEvent(ch <-chan *Event, kind EventKind) (*Event, bool) {
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		select {
		case ev := <-ch:
			if ev != nil && ev.Kind == kind {
				return ev, true
			}
		default:
			time.Sleep(5 * time.Millisecond)
		}
	}
	return nil, false
}

// mustNoEvent asserts that no event of the given kind arrives within wait.
func mustNoEvent(t *testing.T, ch <-chan *Event, kind EventKind, wait time.Duration) {
	t.Helper()

	deadline := time.Now().Add(wait)
	for time.Now().Before(deadline) {
		select {
		case ev := <-ch:
			if ev != nil && ev.Kind == kind {
				t.Fatalf("unexpected event: %+v", ev)
			}
		default:
			time.Sleep(5 * time.Millisecond)
		}
	}
}

// memStore is an in-memory store.Store for hub tests.
type memStore struct {
	mu       sync.Mutex
	rooms    map[string]*store.Room
	members  map[string][]store.Member
	messages map[string][]store.Message
	nextID   int64

	failWith error // when set, every call fails with this error
}

func newMemStore() *memStore {
	return &memStore{
		rooms:    make(map[string]*store.Room),
		members:  make(map[string][]store.Member),
		messages: make(map[string][]store.Message),
	}
}

func (m *memStore) CreateRoom(_ context.Context, room *store.Room, creator store.Member) (*store.Room, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failWith != nil {
		return nil, m.failWith
	}
	if _, exists := m.rooms[room.Code]; exists {
		return nil, store.ErrRoomExists
	}
	r := *room
	r.CreatedAt = time.Now()
	m.rooms[room.Code] = &r
	m.members[room.Code] = []store.Member{creator}
	return &r, nil
}

func (m *memStore) GetRoom(_ context.Context, code string) (*store.Room, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failWith != nil {
		return nil, m.failWith
	}
	r, ok := m.rooms[code]
	if !ok {
		return nil, store.ErrRoomNotFound
	}
	cp := *r
	return &cp, nil
}

func (m *memStore) UpsertMember(_ context.Context, member store.Member) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failWith != nil {
		return m.failWith
	}
	m.removeLocked(member.RoomCode, member.ConnID)
	m.members[member.RoomCode] = append(m.members[member.RoomCode], member)
	return nil
}

func (m *memStore) RemoveMember(_ context.Context, code, connID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failWith != nil {
		return m.failWith
	}
	m.removeLocked(code, connID)
	return nil
}

func (m *memStore) removeLocked(code, connID string) {
	members := m.members[code]
	for i, mem := range members {
		if mem.ConnID == connID {
			m.members[code] = append(members[:i], members[i+1:]...)
			return
		}
	}
}

func (m *memStore) ListMembers(_ context.Context, code string) ([]store.Member, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failWith != nil {
		return nil, m.failWith
	}
	return append([]store.Member(nil), m.members[code]...), nil
}

func (m *memStore) AppendMessage(_ context.Context, msg *store.Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failWith != nil {
		return m.failWith
	}
	m.nextID++
	msg.ID = m.nextID
	if msg.CreatedAt.IsZero() {
		msg.CreatedAt = time.Now()
	}
	m.messages[msg.RoomCode] = append(m.messages[msg.RoomCode], *msg)
	return nil
}

func (m *memStore) ListMessages(_ context.Context, code string, limit int) ([]store.Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failWith != nil {
		return nil, m.failWith
	}
	msgs := m.messages[code]
	if limit > 0 && len(msgs) > limit {
		msgs = msgs[len(msgs)-limit:]
	}
	return append([]store.Message(nil), msgs...), nil
}

func (m *memStore) Close() error { return nil }

func (m *memStore) memberCount(code string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.members[code])
}

func (m *memStore) roomsOf(connID string) []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	var codes []string
	for code, members := range m.members {
		for _, mem := range members {
			if mem.ConnID == connID {
				codes = append(codes, code)
			}
		}
	}
	return codes
}

func newTestHub(ms *memStore) *Hub {
	return NewHub(ms, nil, nil, Options{
		TypingIdleTimeout: 60 * time.Millisecond,
		StoreTimeout:      time.Second,
	})
}
