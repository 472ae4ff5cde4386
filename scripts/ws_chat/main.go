package main

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"

	"github.com/chupchat/chupchat-server/internal/proto"
)

func main() {
	if err := run(); err != nil {
		log.Printf("ws_chat: %v", err)
		os.Exit(1)
	}
}

func run() error {
	addr := flag.String("addr", "ws://localhost:8080/ws", "WebSocket address")
	name := flag.String("name", "cli-user", "display name")
	room := flag.String("room", "AB12", "room code")
	password := flag.String("password", "4321", "room password")
	create := flag.Bool("create", false, "create the room instead of joining")
	flag.Parse()

	baseCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithCancel(baseCtx)
	defer cancel()

	conn, _, err := websocket.Dial(ctx, *addr+"?name="+*name, nil)
	if err != nil {
		return fmt.Errorf("dial: %w", err)
	}
	defer conn.Close(websocket.StatusNormalClosure, "bye")

	send := func(typ string, data any) {
		raw, marshalErr := json.Marshal(data)
		if marshalErr != nil {
			cancel()
			log.Printf("marshal %s: %v", typ, marshalErr)
			return
		}
		if writeErr := wsjson.Write(ctx, conn, proto.Inbound{Type: typ, Data: raw}); writeErr != nil {
			cancel()
			log.Printf("send: %v", writeErr)
		}
	}

	if *create {
		send(proto.InboundTypeCreateRoom, proto.CreateRoomData{Room: *room, Password: *password})
	} else {
		send(proto.InboundTypeJoinRoom, proto.JoinRoomData{Room: *room, Password: *password})
	}

	fmt.Printf("Connected to %s as %s in room %s\n", *addr, *name, *room)
	fmt.Println("Type messages and press Enter to send. Ctrl+C to exit.")
	fmt.Println("Note: payloads are relayed as-is; run against a trusted server in the clear.")

	go func() {
		defer cancel()
		readLoop(ctx, conn)
	}()

	writeLoop(ctx, conn, *room)

	stop()
	cancel()
	_ = conn.Close(websocket.StatusNormalClosure, "bye")
	return nil
}

func decodeInto(data json.RawMessage, v any) bool {
	if err := json.Unmarshal(data, v); err != nil {
		log.Printf("unmarshal event: %v", err)
		return false
	}
	return true
}

func readLoop(ctx context.Context, conn *websocket.Conn) {
	for {
		var out struct {
			Type  string          `json:"type"`
			Event string          `json:"event"`
			Data  json.RawMessage `json:"data"`
			Error *proto.Error    `json:"error"`
		}
		if err := wsjson.Read(ctx, conn, &out); err != nil {
			// Treat expected shutdowns quietly.
			if errors.Is(err, context.Canceled) {
				return
			}
			switch websocket.CloseStatus(err) {
			case websocket.StatusNormalClosure, websocket.StatusGoingAway:
				return
			}
			log.Printf("read error: %v", err)
			return
		}

		if out.Type == proto.OutboundTypeError {
			fmt.Printf("server error: %s (%s)\n", out.Error.Msg, out.Error.Code)
			continue
		}

		switch out.Event {
		case proto.EventNameRoomCreated:
			fmt.Println("room created")
		case proto.EventNameRoomJoined:
			var evt proto.EventRoomJoined
			if decodeInto(out.Data, &evt) {
				fmt.Printf("joined %s, %d member(s), %d message(s) of history\n",
					evt.Room, len(evt.Members), len(evt.Messages))
			}
		case proto.EventNameMessage:
			var evt proto.EventMessage
			if decodeInto(out.Data, &evt) {
				fmt.Printf("[%s] %s: %s\n", evt.Room, evt.From, evt.Payload)
			}
		case proto.EventNameUserJoined:
			var evt proto.EventMembership
			if decodeInto(out.Data, &evt) {
				fmt.Printf("[room %s] %s joined (%d online)\n", evt.Room, evt.User, len(evt.Members))
			}
		case proto.EventNameUserLeft:
			var evt proto.EventMembership
			if decodeInto(out.Data, &evt) {
				fmt.Printf("[room %s] %s left (%d online)\n", evt.Room, evt.User, len(evt.Members))
			}
		case proto.EventNameUserTyping:
			var evt proto.EventTyping
			if decodeInto(out.Data, &evt) {
				fmt.Printf("[room %s] %s is typing...\n", evt.Room, evt.User)
			}
		case proto.EventNameUserStoppedTyping:
			// Quiet; the prompt is noisy enough.
		default:
			fmt.Printf("event=%s data=%s\n", out.Event, string(out.Data))
		}
	}
}

func writeLoop(ctx context.Context, conn *websocket.Conn, room string) {
	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(os.Stdin)
		for scanner.Scan() {
			lines <- scanner.Text()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case line, ok := <-lines:
			if !ok {
				return
			}
			text := strings.TrimSpace(line)
			if text == "" {
				continue
			}

			payload, err := json.Marshal(proto.SendMessageData{Room: room, Payload: text})
			if err != nil {
				log.Printf("marshal msg: %v", err)
				return
			}
			if err := wsjson.Write(ctx, conn, proto.Inbound{Type: proto.InboundTypeSendMsg, Data: payload}); err != nil {
				log.Printf("send error: %v", err)
				return
			}
		}
	}
}
