package core

// EventKind is a notification the core emits to clients.
type EventKind int

const (
	// EventRoomCreated confirms a successful room creation to the creator.
	EventRoomCreated EventKind = iota
	// EventRoomJoined delivers the roster and message history to a joiner.
	EventRoomJoined
	// EventUserJoined notifies remaining members about a join, with the
	// updated roster.
	EventUserJoined
	// EventUserLeft notifies remaining members about a leave or disconnect,
	// with the updated roster.
	EventUserLeft
	// EventRoomMessage notifies clients about a chat message in a room.
	EventRoomMessage
	// EventUserTyping notifies clients that a member started composing.
	EventUserTyping
	// EventUserStoppedTyping notifies clients that a member stopped composing.
	EventUserStoppedTyping
	// EventError notifies clients about a domain error.
	EventError
)

// Member identifies one connection's participation in a room.
type Member struct {
	ID   string
	Name string
}

// Event is sent to clients to describe what happened in the system.
type Event struct {
	Kind     EventKind
	Room     string
	User     string
	Members  []Member  // roster snapshot for membership events
	Message  Message   // for EventRoomMessage
	Messages []Message // history for EventRoomJoined
	Error    *CoreError
}
