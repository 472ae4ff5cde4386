package core

import "sync"

// Client is a connected chat participant as seen by the core layer.
// ID is the connection identifier; Name is the display name, which is not
// unique across clients.
type Client struct {
	ID       string
	Name     string
	Commands chan *Command
	Events   chan *Event

	closeOnce sync.Once
}

// NewClient constructs a client with initialized channels.
func NewClient(id, name string) *Client {
	if name == "" {
		name = "guest_" + shortID(id)
	}
	return &Client{
		ID:       id,
		Name:     name,
		Commands: make(chan *Command, 8),
		Events:   make(chan *Event, 32),
	}
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
