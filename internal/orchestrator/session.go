package orchestrator

import (
	"context"
	"sync"

	"github.com/Cyclone1070/sysmate/internal/provider"
	"github.com/Cyclone1070/sysmate/internal/session"
)

// Session is one conversation. A session runs at most one turn at a time.
type Session struct {
	id      string
	history *session.History

	// turn serializes Run, Clear and SetOverride.
	turn sync.Mutex

	mu       sync.RWMutex
	state    State
	override string
	// settled is non-nil while results of a cancelled turn are still
	// being appended. It is closed when they are.
	settled chan struct{}
}

// NewSession creates a session over history. A nil history starts empty.
func NewSession(id string, history *session.History) *Session {
	if history == nil {
		history = session.NewHistory()
	}
	return &Session{id: id, history: history}
}

// ID returns the session id.
func (s *Session) ID() string {
	return s.id
}

// Messages returns a copy of the conversation, oldest first.
func (s *Session) Messages() []provider.Message {
	return s.history.Messages()
}

// Len returns the number of messages in the conversation.
func (s *Session) Len() int {
	return s.history.Len()
}

// Last returns the newest message.
func (s *Session) Last() (provider.Message, bool) {
	return s.history.Last()
}

// State returns the current state.
func (s *Session) State() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

func (s *Session) setState(st State) {
	s.mu.Lock()
	s.state = st
	s.mu.Unlock()
}

// Override returns the provider id forced for this session, if any.
func (s *Session) Override() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.override
}

// SetOverride forces a provider for later turns. An empty id clears it.
func (s *Session) SetOverride(id string) {
	s.mu.Lock()
	s.override = id
	s.mu.Unlock()
}

func (s *Session) pending() chan struct{} {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.settled
}

func (s *Session) beginSettling() chan struct{} {
	ch := make(chan struct{})
	s.mu.Lock()
	s.settled = ch
	s.mu.Unlock()
	return ch
}

func (s *Session) endSettling(ch chan struct{}) {
	s.mu.Lock()
	if s.settled == ch {
		s.settled = nil
	}
	s.mu.Unlock()
	close(ch)
}

// waitSettled blocks until late results of a cancelled turn are in.
func (s *Session) waitSettled(ctx context.Context) error {
	ch := s.pending()
	if ch == nil {
		return nil
	}
	select {
	case <-ch:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
