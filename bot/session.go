package bot

import (
	"sync"
	"time"
)

// FlowState tags the short linear dialogue a sender is currently in. Every
// sender has exactly one active state; entering a new flow overwrites any
// pending one.
type FlowState int

const (
	StateIdle FlowState = iota
	StateAwaitingQuestion
	StateAwaitingMuteUserID
	StateAwaitingMuteDuration
	StateAwaitingMuteReason
	StateAwaitingUnmuteID
	StateAwaitingBroadcast
	StateAwaitingSearchID
)

// Session is the ephemeral per-sender conversation state plus the fields
// collected so far. It lives only in memory and is cleared when a flow
// completes.
type Session struct {
	State FlowState

	// TargetID is the resolved recipient while awaiting a question.
	TargetID int64

	// MuteUserID and MutedUntil accumulate across the mute flow steps.
	MuteUserID int64
	MutedUntil time.Time
}

// SessionStore maps sender id to Session. It is injected into the Bot as an
// explicit dependency rather than hanging off any global dispatcher state.
type SessionStore struct {
	mu       sync.Mutex
	sessions map[int64]Session
}

func NewSessionStore() *SessionStore {
	return &SessionStore{sessions: map[int64]Session{}}
}

// Get returns the sender's session, or an idle one if none exists.
func (s *SessionStore) Get(userID int64) Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sessions[userID]
}

// Set replaces the sender's session. Last write wins: a pending flow is
// silently overwritten, never stacked.
func (s *SessionStore) Set(userID int64, session Session) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[userID] = session
}

func (s *SessionStore) Clear(userID int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, userID)
}
