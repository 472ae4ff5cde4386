package core

import "time"

// Message is the domain model for a chat message. Payload is the encrypted
// blob produced by the client; the server relays it opaquely.
type Message struct {
	ID        int64
	Room      string
	From      string
	Payload   string
	CreatedAt time.Time
}
