package core

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/chupchat/chupchat-server/internal/metrics"
	"github.com/chupchat/chupchat-server/internal/store"
)

// Options tunes hub behavior. Zero values fall back to defaults.
type Options struct {
	// TypingIdleTimeout is how long a typing indicator survives without a
	// renewed signal before the server expires it.
	TypingIdleTimeout time.Duration
	// StoreTimeout bounds every persistence call; an admission that hits it
	// fails whole, nothing partially applied.
	StoreTimeout time.Duration
	// HistoryLimit caps how many past messages a joiner receives.
	HistoryLimit int
}

func (o Options) withDefaults() Options {
	if o.TypingIdleTimeout <= 0 {
		o.TypingIdleTimeout = 3 * time.Second
	}
	if o.StoreTimeout <= 0 {
		o.StoreTimeout = 3 * time.Second
	}
	if o.HistoryLimit == 0 {
		o.HistoryLimit = 100
	}
	return o
}

// Hub coordinates room sessions and live connections. It owns the map from
// room code to the per-room serialization scope and the registry of which
// rooms each connection has joined. It is an explicit service object:
// construct one at startup and hand it to the transport.
type Hub struct {
	store   store.Store
	log     *zerolog.Logger
	metrics *metrics.Metrics
	opts    Options

	mu       sync.RWMutex
	sessions map[string]*session
	clients  map[string]*Client
	conns    map[string]map[string]struct{} // conn id -> joined room codes
}

// NewHub creates a hub backed by the given store. logger and m may be nil.
func NewHub(st store.Store, logger *zerolog.Logger, m *metrics.Metrics, opts Options) *Hub {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	return &Hub{
		store:    st,
		log:      logger,
		metrics:  m,
		opts:     opts.withDefaults(),
		sessions: make(map[string]*session),
		clients:  make(map[string]*Client),
		conns:    make(map[string]map[string]struct{}),
	}
}

// RegisterClient starts serving a connection. Commands sent to the client's
// channel are dispatched in order until UnregisterClient closes it.
func (h *Hub) RegisterClient(c *Client) {
	h.mu.Lock()
	if _, exists := h.clients[c.ID]; exists {
		h.mu.Unlock()
		return
	}
	h.clients[c.ID] = c
	h.conns[c.ID] = make(map[string]struct{})
	h.mu.Unlock()

	h.metrics.ConnOpened()
	go h.pump(c)
}

// UnregisterClient signals connection loss. Queued commands still drain in
// order, then the disconnect reconciler removes the connection from every
// room it joined. Calling it again for the same client is a no-op.
func (h *Hub) UnregisterClient(c *Client) {
	c.closeOnce.Do(func() {
		close(c.Commands)
	})
}

// pump serializes one connection's commands, then reconciles its rooms once
// the command stream ends. Commands for different rooms from different
// connections run in parallel; per-room ordering comes from session locks.
func (h *Hub) pump(c *Client) {
	for cmd := range c.Commands {
		h.dispatch(c, cmd)
	}
	h.reconcileDisconnect(c)
}

func (h *Hub) dispatch(c *Client, cmd *Command) {
	switch cmd.Kind {
	case CommandCreateRoom:
		h.createRoom(c, cmd)
	case CommandJoinRoom:
		h.joinRoom(c, cmd)
	case CommandLeaveRoom:
		h.leaveRoom(c, cmd)
	case CommandSendMessage:
		h.sendMessage(c, cmd)
	case CommandTyping:
		h.typing(c, cmd.Room, true)
	case CommandStopTyping:
		h.typing(c, cmd.Room, false)
	default:
		h.sendError(c, cmd.Room, coreError(ErrCodeBadRequest, "unknown command"))
	}
}

func (h *Hub) createRoom(c *Client, cmd *Command) {
	if !ValidRoomCode(cmd.Room) || !ValidPassword(cmd.Password) {
		h.sendError(c, cmd.Room, coreError(ErrCodeInvalidFormat,
			"room code must be 4-8 alphanumeric characters and password 4 digits"))
		return
	}

	s := h.session(cmd.Room)
	s.mu.Lock()
	defer s.mu.Unlock()

	ctx, cancel := h.storeCtx()
	defer cancel()

	room := &store.Room{Code: cmd.Room, Password: cmd.Password, CreatedBy: c.Name}
	creator := store.Member{RoomCode: cmd.Room, ConnID: c.ID, Name: c.Name}
	if _, err := h.store.CreateRoom(ctx, room, creator); err != nil {
		if errors.Is(err, store.ErrRoomExists) {
			h.sendError(c, cmd.Room, coreError(ErrCodeRoomExists, msgRoomExists))
			return
		}
		h.log.Error().Err(err).Str("room", cmd.Room).Msg("create room")
		h.sendError(c, cmd.Room, coreError(ErrCodeStoreUnavailable, "storage unavailable"))
		return
	}

	if !h.trackJoin(c.ID, cmd.Room) {
		// Connection vanished mid-admission; undo the durable membership so
		// the reconciler's view stays total.
		h.removeStoredMember(cmd.Room, c.ID)
		return
	}
	s.addMemberLocked(c)

	h.metrics.RoomCreated()
	h.log.Info().Str("room", cmd.Room).Str("conn", c.ID).Str("user", c.Name).Msg("room created")
	h.send(c, &Event{Kind: EventRoomCreated, Room: cmd.Room, Members: s.rosterLocked()})
}

func (h *Hub) joinRoom(c *Client, cmd *Command) {
	if !ValidRoomCode(cmd.Room) || !ValidPassword(cmd.Password) {
		h.sendError(c, cmd.Room, coreError(ErrCodeInvalidFormat,
			"room code must be 4-8 alphanumeric characters and password 4 digits"))
		return
	}

	s := h.session(cmd.Room)
	s.mu.Lock()
	defer s.mu.Unlock()

	ctx, cancel := h.storeCtx()
	defer cancel()

	room, err := h.store.GetRoom(ctx, cmd.Room)
	if err != nil {
		if errors.Is(err, store.ErrRoomNotFound) {
			h.sendError(c, cmd.Room, coreError(ErrCodeRoomNotFound, msgRoomNotFound))
			return
		}
		h.log.Error().Err(err).Str("room", cmd.Room).Msg("lookup room")
		h.sendError(c, cmd.Room, coreError(ErrCodeStoreUnavailable, "storage unavailable"))
		return
	}

	// Verbatim compare, per the original server's contract.
	if room.Password != cmd.Password {
		h.sendError(c, cmd.Room, coreError(ErrCodeWrongPassword, msgWrongPassword))
		return
	}

	// History is read inside the same per-room critical section that admits
	// the member, so the joiner's snapshot can never miss a message that a
	// concurrent send already broadcast.
	history, err := h.store.ListMessages(ctx, cmd.Room, h.opts.HistoryLimit)
	if err != nil {
		h.log.Error().Err(err).Str("room", cmd.Room).Msg("load history")
		h.sendError(c, cmd.Room, coreError(ErrCodeStoreUnavailable, "storage unavailable"))
		return
	}

	member := store.Member{RoomCode: cmd.Room, ConnID: c.ID, Name: c.Name}
	if err := h.store.UpsertMember(ctx, member); err != nil {
		h.log.Error().Err(err).Str("room", cmd.Room).Msg("add member")
		h.sendError(c, cmd.Room, coreError(ErrCodeStoreUnavailable, "storage unavailable"))
		return
	}

	if !h.trackJoin(c.ID, cmd.Room) {
		h.removeStoredMember(cmd.Room, c.ID)
		return
	}
	s.addMemberLocked(c)
	roster := s.rosterLocked()

	h.log.Info().Str("room", cmd.Room).Str("conn", c.ID).Str("user", c.Name).Msg("user joined")
	h.send(c, &Event{Kind: EventRoomJoined, Room: cmd.Room, Members: roster, Messages: fromStoreMessages(history)})
	s.broadcastLocked(&Event{Kind: EventUserJoined, Room: cmd.Room, User: c.Name, Members: roster}, c.ID)
}

func (h *Hub) leaveRoom(c *Client, cmd *Command) {
	s := h.lookupSession(cmd.Room)
	if s == nil {
		h.sendError(c, cmd.Room, coreError(ErrCodeNotInRoom, "not in room"))
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.isMemberLocked(c.ID) {
		h.sendError(c, cmd.Room, coreError(ErrCodeNotInRoom, "not in room"))
		return
	}

	ctx, cancel := h.storeCtx()
	defer cancel()
	if err := h.store.RemoveMember(ctx, cmd.Room, c.ID); err != nil {
		h.log.Error().Err(err).Str("room", cmd.Room).Msg("remove member")
		h.sendError(c, cmd.Room, coreError(ErrCodeStoreUnavailable, "storage unavailable"))
		return
	}

	s.clearTypingLocked(c.ID, c.Name)
	s.removeMemberLocked(c.ID)
	h.untrack(c.ID, cmd.Room)

	h.log.Info().Str("room", cmd.Room).Str("conn", c.ID).Str("user", c.Name).Msg("user left")
	s.broadcastLocked(&Event{Kind: EventUserLeft, Room: cmd.Room, User: c.Name, Members: s.rosterLocked()}, c.ID)
}

func (h *Hub) sendMessage(c *Client, cmd *Command) {
	s := h.lookupSession(cmd.Room)
	if s == nil {
		h.sendError(c, cmd.Room, coreError(ErrCodeNotInRoom, "not in room"))
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.isMemberLocked(c.ID) {
		h.sendError(c, cmd.Room, coreError(ErrCodeNotInRoom, "not in room"))
		return
	}

	ctx, cancel := h.storeCtx()
	defer cancel()

	msg := store.Message{
		RoomCode:  cmd.Room,
		Sender:    c.Name,
		Payload:   cmd.Message.Payload,
		CreatedAt: cmd.Message.CreatedAt,
	}
	if err := h.store.AppendMessage(ctx, &msg); err != nil {
		h.log.Error().Err(err).Str("room", cmd.Room).Msg("append message")
		h.sendError(c, cmd.Room, coreError(ErrCodeStoreUnavailable, "storage unavailable"))
		return
	}

	h.metrics.MessageRelayed()
	// The sender renders its own message optimistically; skip the echo.
	s.broadcastLocked(&Event{
		Kind: EventRoomMessage,
		Room: cmd.Room,
		User: c.Name,
		Message: Message{
			ID:        msg.ID,
			Room:      msg.RoomCode,
			From:      msg.Sender,
			Payload:   msg.Payload,
			CreatedAt: msg.CreatedAt,
		},
	}, c.ID)
}

func (h *Hub) typing(c *Client, room string, start bool) {
	s := h.lookupSession(room)
	if s == nil {
		h.sendError(c, room, coreError(ErrCodeNotInRoom, "not in room"))
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.isMemberLocked(c.ID) {
		h.sendError(c, room, coreError(ErrCodeNotInRoom, "not in room"))
		return
	}

	if start {
		s.startTypingLocked(c, h.opts.TypingIdleTimeout)
	} else {
		s.clearTypingLocked(c.ID, c.Name)
	}
}

// reconcileDisconnect removes a lost connection from every room it joined:
// typing state cleared, durable membership removed, remaining members told.
// The registry entry is claimed first, which makes a second reconciliation
// for the same connection a no-op.
func (h *Hub) reconcileDisconnect(c *Client) {
	h.mu.Lock()
	rooms := h.conns[c.ID]
	delete(h.conns, c.ID)
	delete(h.clients, c.ID)
	h.mu.Unlock()

	if rooms == nil {
		return
	}
	h.metrics.ConnClosed()

	for code := range rooms {
		s := h.lookupSession(code)
		if s == nil {
			continue
		}

		s.mu.Lock()
		s.clearTypingLocked(c.ID, c.Name)
		if s.removeMemberLocked(c.ID) {
			h.removeStoredMember(code, c.ID)
			s.broadcastLocked(&Event{Kind: EventUserLeft, Room: code, User: c.Name, Members: s.rosterLocked()}, c.ID)
			h.log.Info().Str("room", code).Str("conn", c.ID).Str("user", c.Name).Msg("disconnected from room")
		}
		s.mu.Unlock()
	}
}

// session returns the serialization scope for a code, creating it if needed.
func (h *Hub) session(code string) *session {
	h.mu.Lock()
	defer h.mu.Unlock()
	s := h.sessions[code]
	if s == nil {
		s = newSession(code)
		h.sessions[code] = s
	}
	return s
}

func (h *Hub) lookupSession(code string) *session {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.sessions[code]
}

// trackJoin records a room in the connection registry. Returns false when
// the connection is already gone, in which case the caller must not admit.
func (h *Hub) trackJoin(connID, code string) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	rooms := h.conns[connID]
	if rooms == nil {
		return false
	}
	rooms[code] = struct{}{}
	return true
}

func (h *Hub) untrack(connID, code string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if rooms := h.conns[connID]; rooms != nil {
		delete(rooms, code)
	}
}

// removeStoredMember is best-effort cleanup; failures are logged, never fatal.
func (h *Hub) removeStoredMember(code, connID string) {
	ctx, cancel := h.storeCtx()
	defer cancel()
	if err := h.store.RemoveMember(ctx, code, connID); err != nil {
		h.log.Warn().Err(err).Str("room", code).Str("conn", connID).Msg("remove stored member")
	}
}

func (h *Hub) storeCtx() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), h.opts.StoreTimeout)
}

func (h *Hub) send(c *Client, ev *Event) {
	select {
	case c.Events <- ev:
	default:
		h.log.Warn().Str("conn", c.ID).Msg("event dropped, slow consumer")
	}
}

func (h *Hub) sendError(c *Client, room string, ce *CoreError) {
	h.metrics.DomainError(ce.Code)
	h.send(c, &Event{Kind: EventError, Room: room, Error: ce})
}

func fromStoreMessages(in []store.Message) []Message {
	out := make([]Message, 0, len(in))
	for _, m := range in {
		out = append(out, Message{
			ID:        m.ID,
			Room:      m.RoomCode,
			From:      m.Sender,
			Payload:   m.Payload,
			CreatedAt: m.CreatedAt,
		})
	}
	return out
}
