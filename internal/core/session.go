package core

import (
	"sync"
	"time"
)

// session is the per-room serialization scope. Every membership mutation,
// message relay, and typing transition for one room code runs under mu, so
// roster snapshots and the broadcasts derived from them never interleave.
// Sessions for different codes share nothing and proceed in parallel.
type session struct {
	code string

	mu      sync.Mutex
	members []*Client // live connections in join order
	typing  map[string]*typingState
}

// typingState tracks one member's composing indicator. gen guards against a
// stale idle timer firing after the state was refreshed or cleared.
type typingState struct {
	timer *time.Timer
	gen   uint64
}

func newSession(code string) *session {
	return &session{
		code:   code,
		typing: make(map[string]*typingState),
	}
}

func (s *session) isMemberLocked(connID string) bool {
	for _, c := range s.members {
		if c.ID == connID {
			return true
		}
	}
	return false
}

// addMemberLocked appends a member, replacing any stale entry recorded for
// the same connection ID so a re-join never grows the roster.
func (s *session) addMemberLocked(c *Client) {
	s.removeMemberLocked(c.ID)
	s.members = append(s.members, c)
}

func (s *session) removeMemberLocked(connID string) bool {
	for i, c := range s.members {
		if c.ID == connID {
			s.members = append(s.members[:i], s.members[i+1:]...)
			return true
		}
	}
	return false
}

func (s *session) rosterLocked() []Member {
	roster := make([]Member, 0, len(s.members))
	for _, c := range s.members {
		roster = append(roster, Member{ID: c.ID, Name: c.Name})
	}
	return roster
}

// broadcastLocked sends an event to all members except excludeID.
// Delivery is best effort: slow or gone consumers drop the event.
func (s *session) broadcastLocked(event *Event, excludeID string) {
	for _, c := range s.members {
		if c.ID == excludeID {
			continue
		}
		select {
		case c.Events <- event:
		default:
			// Drop if slow consumer.
		}
	}
}

// startTypingLocked transitions Idle -> Typing, announcing to the rest of
// the room, or refreshes the idle deadline when already typing. The idle
// expiry is server-enforced so a client that vanishes without a stop signal
// never leaves a phantom indicator.
func (s *session) startTypingLocked(c *Client, idle time.Duration) {
	st := s.typing[c.ID]
	if st == nil {
		st = &typingState{}
		s.typing[c.ID] = st
		s.broadcastLocked(&Event{Kind: EventUserTyping, Room: s.code, User: c.Name}, c.ID)
	} else if st.timer != nil {
		st.timer.Stop()
	}

	st.gen++
	gen := st.gen
	connID, name := c.ID, c.Name
	st.timer = time.AfterFunc(idle, func() {
		s.expireTyping(connID, name, gen)
	})
}

// clearTypingLocked removes typing state for a connection and, if it was
// typing, broadcasts the stop. Returns false if there was nothing to clear.
func (s *session) clearTypingLocked(connID, name string) bool {
	st := s.typing[connID]
	if st == nil {
		return false
	}
	if st.timer != nil {
		st.timer.Stop()
	}
	delete(s.typing, connID)
	s.broadcastLocked(&Event{Kind: EventUserStoppedTyping, Room: s.code, User: name}, connID)
	return true
}

// expireTyping is the idle timer entry point. A timer that lost the race
// against a refresh, an explicit stop, or disconnect cleanup is a no-op.
func (s *session) expireTyping(connID, name string, gen uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	st := s.typing[connID]
	if st == nil || st.gen != gen {
		return
	}
	delete(s.typing, connID)
	s.broadcastLocked(&Event{Kind: EventUserStoppedTyping, Room: s.code, User: name}, connID)
}
