package proto

import "encoding/json"

// Inbound is the envelope for messages coming from the client.
type Inbound struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

const (
	InboundTypeCreateRoom = "create_room"
	InboundTypeJoinRoom   = "join_room"
	InboundTypeLeaveRoom  = "leave_room"
	InboundTypeSendMsg    = "send_message"
	InboundTypeTyping     = "typing"
	InboundTypeStopTyping = "stop_typing"

	OutboundTypeEvent = "event"
	OutboundTypeError = "error"
)

// CreateRoomData requests creation of a password-gated room.
type CreateRoomData struct {
	Room     string `json:"room"`
	Password string `json:"password"`
}

// JoinRoomData requests admission into an existing room.
type JoinRoomData struct {
	Room     string `json:"room"`
	Password string `json:"password"`
}

// RoomData addresses a room without extra payload (leave, typing signals).
type RoomData struct {
	Room string `json:"room"`
}

// SendMessageData carries an encrypted payload; the server relays it opaquely.
type SendMessageData struct {
	Room    string `json:"room"`
	Payload string `json:"payload"`
}

// Outbound is the envelope for messages sent to the client.
type Outbound struct {
	Type  string `json:"type"`
	Event string `json:"event,omitempty"`
	Data  any    `json:"data,omitempty"`
	Error *Error `json:"error,omitempty"`
}

// Outbound event names.
const (
	EventNameRoomCreated       = "room_created"
	EventNameRoomJoined        = "room_joined"
	EventNameUserJoined        = "user_joined"
	EventNameUserLeft          = "user_left"
	EventNameMessage           = "message"
	EventNameUserTyping        = "user_typing"
	EventNameUserStoppedTyping = "user_stopped_typing"
)

// MemberInfo is one roster entry.
type MemberInfo struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// EventRoomCreated confirms a create_room request.
type EventRoomCreated struct {
	Room    string       `json:"room"`
	Success bool         `json:"success"`
	Members []MemberInfo `json:"members"`
}

// EventRoomJoined delivers the roster and history to the joiner.
type EventRoomJoined struct {
	Room     string         `json:"room"`
	Members  []MemberInfo   `json:"members"`
	Messages []EventMessage `json:"messages"`
}

// EventMembership carries an updated roster after a join, leave, or
// disconnect.
type EventMembership struct {
	Room    string       `json:"room"`
	User    string       `json:"user"`
	Members []MemberInfo `json:"members"`
}

// EventMessage is a relayed chat message. Payload stays encrypted end to end.
type EventMessage struct {
	ID      int64  `json:"id,omitempty"`
	Room    string `json:"room"`
	From    string `json:"from"`
	Payload string `json:"payload"`
	TS      int64  `json:"ts"`
}

// EventTyping announces a presence transition for one member.
type EventTyping struct {
	Room string `json:"room"`
	User string `json:"user"`
}

// Error describes a protocol-level error response.
type Error struct {
	Code string `json:"code"`
	Msg  string `json:"msg"`
}
