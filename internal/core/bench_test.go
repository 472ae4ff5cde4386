package core

import (
	"fmt"
	"testing"
)

func benchmarkRoomBroadcast(b *testing.B, recipients int) {
	ms := newMemStore()
	hub := newTestHub(ms)

	sender := NewClient("sender", "sender")
	hub.RegisterClient(sender)
	sender.Commands <- &Command{Kind: CommandCreateRoom, Room: "BENCH1", Password: "0000"}
	if _, ok := waitEvent(sender.Events, EventRoomCreated); !ok {
		b.Fatal("room not created")
	}

	clients := make([]*Client, 0, recipients)
	for i := 0; i < recipients; i++ {
		c := NewClient(fmt.Sprintf("c%d", i), "client")
		hub.RegisterClient(c)
		c.Commands <- &Command{Kind: CommandJoinRoom, Room: "BENCH1", Password: "0000"}
		if _, ok := waitEvent(c.Events, EventRoomJoined); !ok {
			b.Fatal("client not joined")
		}
		clients = append(clients, c)
	}

	// Drain events for all but the first recipient to avoid channel backpressure.
	target := clients[0]
	for _, c := range clients[1:] {
		go func(cl *Client) {
			for range cl.Events {
			}
		}(c)
	}

	b.ReportAllocs()
	b.ResetTimer()

	for i := 0; i < b.N; i++ {
		sender.Commands <- &Command{
			Kind:    CommandSendMessage,
			Room:    "BENCH1",
			Message: Message{Payload: "payload"},
		}
		if _, ok := waitEvent(target.Events, EventRoomMessage); !ok {
			b.Fatal("broadcast not observed")
		}
	}
}

func BenchmarkRoomBroadcast_10(b *testing.B)  { benchmarkRoomBroadcast(b, 10) }
func BenchmarkRoomBroadcast_100(b *testing.B) { benchmarkRoomBroadcast(b, 100) }
