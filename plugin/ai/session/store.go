package session

import (
	"log/slog"
	"sync"
	"time"
)

// Store maps user identifiers to their sessions. All methods are safe for
// concurrent use; each one runs under the store lock as a single step, so
// the sweep can never observe a session halfway through a mutation.
//
// Two logically concurrent requests for the same userID are not serialized
// against each other (last-write-wins on the history), only made race-free.
type Store struct {
	mu       sync.RWMutex
	sessions map[string]*Session
	timeout  time.Duration
}

// NewStore creates an empty store with the default one-hour timeout.
func NewStore() *Store {
	return &Store{
		sessions: make(map[string]*Session),
		timeout:  Timeout,
	}
}

// GetOrCreate returns the session for userID, creating an empty one on first
// contact. LastActivity is refreshed either way.
func (s *Store) GetOrCreate(userID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[userID]
	if !ok {
		s.sessions[userID] = &Session{
			UserID:       userID,
			LastActivity: time.Now(),
		}
		slog.Info("chat session created", "user_id", userID)
		return
	}
	sess.LastActivity = time.Now()
}

// Append adds a message to the session for userID, creating the session if
// needed, and trims the history to MaxHistoryLength from the front.
func (s *Store) Append(userID string, msg Message) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[userID]
	if !ok {
		sess = &Session{UserID: userID}
		s.sessions[userID] = sess
	}
	sess.Messages = append(sess.Messages, msg)
	if n := len(sess.Messages); n > MaxHistoryLength {
		sess.Messages = sess.Messages[n-MaxHistoryLength:]
	}
	sess.LastActivity = time.Now()
}

// History returns a copy of the message history for userID. The copy keeps
// the session exclusively owned by the store.
func (s *Store) History(userID string) []Message {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sess, ok := s.sessions[userID]
	if !ok {
		return nil
	}
	out := make([]Message, len(sess.Messages))
	copy(out, sess.Messages)
	return out
}

// Reset deletes the session for userID and reports whether one existed.
func (s *Store) Reset(userID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.sessions[userID]; !ok {
		return false
	}
	delete(s.sessions, userID)
	return true
}

// SweepExpired removes every session inactive for longer than the timeout,
// measured against now, and returns the number removed.
func (s *Store) SweepExpired(now time.Time) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for userID, sess := range s.sessions {
		if now.Sub(sess.LastActivity) > s.timeout {
			delete(s.sessions, userID)
			removed++
		}
	}
	if removed > 0 {
		slog.Info("expired chat sessions removed", "count", removed)
	}
	return removed
}

// Stats returns the current session and message counts. Never mutates state.
func (s *Store) Stats() Stats {
	s.mu.RLock()
	defer s.mu.RUnlock()

	total := 0
	for _, sess := range s.sessions {
		total += len(sess.Messages)
	}
	return Stats{
		ActiveSessions: len(s.sessions),
		TotalMessages:  total,
	}
}
