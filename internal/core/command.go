package core

// CommandKind describes what the client wants to do.
type CommandKind int

const (
	// CommandCreateRoom creates a password-gated room and admits the creator.
	CommandCreateRoom CommandKind = iota
	// CommandJoinRoom admits the client into an existing room.
	CommandJoinRoom
	// CommandLeaveRoom removes the client from a room it joined.
	CommandLeaveRoom
	// CommandSendMessage delivers an encrypted message to room participants.
	CommandSendMessage
	// CommandTyping signals that the client started (or keeps) composing.
	CommandTyping
	// CommandStopTyping signals that the client stopped composing.
	CommandStopTyping
)

// Command represents an action requested by a client.
type Command struct {
	Kind     CommandKind
	Room     string
	Password string
	Message  Message
}
