package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"

	"github.com/chupchat/chupchat-server/internal/proto"
)

func main() {
	if err := run(); err != nil {
		log.Printf("ws_smoke: %v", err)
		os.Exit(1)
	}
}

func run() error {
	addr := flag.String("addr", "ws://localhost:8080/ws", "WebSocket address")
	name := flag.String("name", "tester", "display name")
	room := flag.String("room", "AB12", "room code (4-8 alphanumeric)")
	password := flag.String("password", "4321", "room password (4 digits)")
	payload := flag.String("payload", "c21va2UtdGVzdA==", "opaque message payload to relay")
	timeout := flag.Duration("timeout", 5*time.Second, "total timeout for the run")
	flag.Parse()

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	conn, _, err := websocket.Dial(ctx, *addr+"?name="+*name, nil)
	if err != nil {
		return fmt.Errorf("dial: %w", err)
	}
	defer conn.Close(websocket.StatusNormalClosure, "bye")

	send := func(typ string, data any) error {
		raw, err := json.Marshal(data)
		if err != nil {
			return fmt.Errorf("marshal %s: %w", typ, err)
		}
		if err := wsjson.Write(ctx, conn, proto.Inbound{Type: typ, Data: raw}); err != nil {
			return fmt.Errorf("send %s: %w", typ, err)
		}
		return nil
	}

	// Create the room; if it already exists, join it instead.
	if err := send(proto.InboundTypeCreateRoom, proto.CreateRoomData{Room: *room, Password: *password}); err != nil {
		return err
	}

	var raw struct {
		Type  string          `json:"type"`
		Event string          `json:"event"`
		Data  json.RawMessage `json:"data"`
		Error *proto.Error    `json:"error"`
	}
	if err := wsjson.Read(ctx, conn, &raw); err != nil {
		return fmt.Errorf("read create response: %w", err)
	}
	if raw.Type == proto.OutboundTypeError {
		if raw.Error == nil || raw.Error.Code != "room_exists" {
			return fmt.Errorf("create failed: %+v", raw.Error)
		}
		fmt.Printf("room %s exists, joining\n", *room)
		if err := send(proto.InboundTypeJoinRoom, proto.JoinRoomData{Room: *room, Password: *password}); err != nil {
			return err
		}
		if err := wsjson.Read(ctx, conn, &raw); err != nil {
			return fmt.Errorf("read join response: %w", err)
		}
		if raw.Type == proto.OutboundTypeError {
			return fmt.Errorf("join failed: %+v", raw.Error)
		}
	}
	fmt.Printf("admitted to %s (%s)\n", *room, raw.Event)

	if err := send(proto.InboundTypeSendMsg, proto.SendMessageData{Room: *room, Payload: *payload}); err != nil {
		return err
	}
	fmt.Println("message relayed, smoke test ok")
	return nil
}
