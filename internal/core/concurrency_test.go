package core

import (
	"fmt"
	"sync"
	"testing"
	"time"
)

func TestConcurrentCreateExactlyOneWins(t *testing.T) {
	ms := newMemStore()
	hub := newTestHub(ms)

	const n = 8
	clients := make([]*Client, n)
	for i := range clients {
		clients[i] = NewClient(fmt.Sprintf("conn-%d", i), fmt.Sprintf("user-%d", i))
		hub.RegisterClient(clients[i])
	}

	var start sync.WaitGroup
	start.Add(1)
	for _, c := range clients {
		go func(c *Client) {
			start.Wait()
			c.Commands <- &Command{Kind: CommandCreateRoom, Room: "AB12", Password: "4321"}
		}(c)
	}
	start.Done()

	created, rejected := 0, 0
	for _, c := range clients {
		deadline := time.Now().Add(2 * time.Second)
	inner:
		for time.Now().Before(deadline) {
			select {
			case ev := <-c.Events:
				switch {
				case ev.Kind == EventRoomCreated:
					created++
					break inner
				case ev.Kind == EventError && ev.Error != nil && ev.Error.Code == ErrCodeRoomExists:
					rejected++
					break inner
				}
			default:
				time.Sleep(5 * time.Millisecond)
			}
		}
	}

	if created != 1 || rejected != n-1 {
		t.Fatalf("expected 1 winner and %d rejections, got %d and %d", n-1, created, rejected)
	}
	if n := ms.memberCount("AB12"); n != 1 {
		t.Fatalf("expected only the winner as member, got %d", n)
	}
}

func TestRoomsProgressIndependently(t *testing.T) {
	ms := newMemStore()
	hub := newTestHub(ms)

	const rooms = 4
	var wg sync.WaitGroup
	for i := 0; i < rooms; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			code := fmt.Sprintf("RM%02d", i)

			owner := NewClient("owner-"+code, "owner")
			member := NewClient("member-"+code, "member")
			hub.RegisterClient(owner)
			hub.RegisterClient(member)

			owner.Commands <- &Command{Kind: CommandCreateRoom, Room: code, Password: "1111"}
			if _, ok := waitEvent(owner.Events, EventRoomCreated); !ok {
				t.Errorf("room %s: create not confirmed", code)
				return
			}

			member.Commands <- &Command{Kind: CommandJoinRoom, Room: code, Password: "1111"}
			if _, ok := waitEvent(member.Events, EventRoomJoined); !ok {
				t.Errorf("room %s: join not confirmed", code)
				return
			}

			for j := 0; j < 5; j++ {
				owner.Commands <- &Command{Kind: CommandSendMessage, Room: code, Message: Message{Payload: fmt.Sprintf("m%d", j)}}
			}
			for j := 0; j < 5; j++ {
				ev, ok := waitEvent(member.Events, EventRoomMessage)
				if !ok {
					t.Errorf("room %s: message %d never arrived", code, j)
					return
				}
				if want := fmt.Sprintf("m%d", j); ev.Message.Payload != want {
					t.Errorf("room %s: message %d = %q, want %q", code, j, ev.Message.Payload, want)
					return
				}
			}
		}(i)
	}
	wg.Wait()
}
