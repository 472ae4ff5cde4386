package sqlite

import (
	"context"
	"errors"
	"testing"

	"github.com/chupchat/chupchat-server/internal/store"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()

	s, err := New(":memory:")
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestCreateRoomAndGetRoom(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	room := &store.Room{Code: "AB12", Password: "4321", CreatedBy: "alice"}
	creator := store.Member{RoomCode: "AB12", ConnID: "conn-1", Name: "alice"}

	created, err := s.CreateRoom(ctx, room, creator)
	if err != nil {
		t.Fatalf("CreateRoom failed: %v", err)
	}
	if created.CreatedAt.IsZero() {
		t.Fatal("expected CreatedAt to be set")
	}

	got, err := s.GetRoom(ctx, "AB12")
	if err != nil {
		t.Fatalf("GetRoom failed: %v", err)
	}
	if got.Code != "AB12" || got.Password != "4321" || got.CreatedBy != "alice" {
		t.Fatalf("unexpected room: %+v", got)
	}

	members, err := s.ListMembers(ctx, "AB12")
	if err != nil {
		t.Fatalf("ListMembers failed: %v", err)
	}
	if len(members) != 1 || members[0].ConnID != "conn-1" {
		t.Fatalf("expected creator as first member, got %+v", members)
	}
}

func TestCreateRoomDuplicateCode(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	room := &store.Room{Code: "AB12", Password: "4321", CreatedBy: "alice"}
	if _, err := s.CreateRoom(ctx, room, store.Member{RoomCode: "AB12", ConnID: "conn-1", Name: "alice"}); err != nil {
		t.Fatalf("first create failed: %v", err)
	}

	_, err := s.CreateRoom(ctx, &store.Room{Code: "AB12", Password: "9999", CreatedBy: "bob"},
		store.Member{RoomCode: "AB12", ConnID: "conn-2", Name: "bob"})
	if !errors.Is(err, store.ErrRoomExists) {
		t.Fatalf("expected ErrRoomExists, got %v", err)
	}

	// The loser's membership must not land either.
	members, err := s.ListMembers(ctx, "AB12")
	if err != nil {
		t.Fatalf("ListMembers failed: %v", err)
	}
	if len(members) != 1 || members[0].Name != "alice" {
		t.Fatalf("duplicate create leaked state: %+v", members)
	}
}

func TestGetRoomNotFound(t *testing.T) {
	s := newTestStore(t)

	_, err := s.GetRoom(context.Background(), "GH99")
	if !errors.Is(err, store.ErrRoomNotFound) {
		t.Fatalf("expected ErrRoomNotFound, got %v", err)
	}
}

func TestUpsertMemberReplacesStaleEntry(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if _, err := s.CreateRoom(ctx, &store.Room{Code: "AB12", Password: "4321", CreatedBy: "alice"},
		store.Member{RoomCode: "AB12", ConnID: "conn-1", Name: "alice"}); err != nil {
		t.Fatalf("create failed: %v", err)
	}

	if err := s.UpsertMember(ctx, store.Member{RoomCode: "AB12", ConnID: "conn-2", Name: "bob"}); err != nil {
		t.Fatalf("upsert failed: %v", err)
	}
	// Re-join under the same connection with a new display name.
	if err := s.UpsertMember(ctx, store.Member{RoomCode: "AB12", ConnID: "conn-2", Name: "bobby"}); err != nil {
		t.Fatalf("second upsert failed: %v", err)
	}

	members, err := s.ListMembers(ctx, "AB12")
	if err != nil {
		t.Fatalf("ListMembers failed: %v", err)
	}
	if len(members) != 2 {
		t.Fatalf("expected 2 members, got %+v", members)
	}
	if members[1].ConnID != "conn-2" || members[1].Name != "bobby" {
		t.Fatalf("stale entry not replaced: %+v", members)
	}
}

func TestRemoveMember(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if _, err := s.CreateRoom(ctx, &store.Room{Code: "AB12", Password: "4321", CreatedBy: "alice"},
		store.Member{RoomCode: "AB12", ConnID: "conn-1", Name: "alice"}); err != nil {
		t.Fatalf("create failed: %v", err)
	}

	if err := s.RemoveMember(ctx, "AB12", "conn-1"); err != nil {
		t.Fatalf("remove failed: %v", err)
	}
	// Removing an absent member is not an error.
	if err := s.RemoveMember(ctx, "AB12", "conn-1"); err != nil {
		t.Fatalf("second remove failed: %v", err)
	}

	members, err := s.ListMembers(ctx, "AB12")
	if err != nil {
		t.Fatalf("ListMembers failed: %v", err)
	}
	if len(members) != 0 {
		t.Fatalf("expected empty roster, got %+v", members)
	}
}

func TestMessagesAppendOrderAndLimit(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	payloads := []string{"c1", "c2", "c3", "c4", "c5"}
	for _, p := range payloads {
		msg := &store.Message{RoomCode: "AB12", Sender: "alice", Payload: p}
		if err := s.AppendMessage(ctx, msg); err != nil {
			t.Fatalf("append %q failed: %v", p, err)
		}
		if msg.ID == 0 {
			t.Fatalf("append %q did not assign an ID", p)
		}
	}

	all, err := s.ListMessages(ctx, "AB12", 0)
	if err != nil {
		t.Fatalf("ListMessages failed: %v", err)
	}
	if len(all) != 5 {
		t.Fatalf("expected 5 messages, got %d", len(all))
	}
	for i, p := range payloads {
		if all[i].Payload != p {
			t.Fatalf("messages out of order at %d: %+v", i, all)
		}
	}

	// A limit keeps the most recent messages, still in append order.
	last2, err := s.ListMessages(ctx, "AB12", 2)
	if err != nil {
		t.Fatalf("ListMessages with limit failed: %v", err)
	}
	if len(last2) != 2 || last2[0].Payload != "c4" || last2[1].Payload != "c5" {
		t.Fatalf("unexpected limited history: %+v", last2)
	}

	other, err := s.ListMessages(ctx, "CD34", 0)
	if err != nil {
		t.Fatalf("ListMessages for empty room failed: %v", err)
	}
	if len(other) != 0 {
		t.Fatalf("expected no messages for other room, got %+v", other)
	}
}
