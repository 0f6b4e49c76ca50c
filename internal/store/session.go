// Package store holds the client-side state containers: the single live
// session and the user's local preferences. Both are explicit injected
// dependencies, never package-level singletons.
package store

import (
	"log"
	"sync"

	"github.com/npezzotti/rocketgate/internal/database"
	"github.com/npezzotti/rocketgate/internal/types"
)

// SessionStore holds the one live session per client. Every change
// bumps the epoch; a caller that captured an earlier epoch must discard
// any result that arrives after the change.
type SessionStore struct {
	mu      sync.Mutex
	session types.Session
	epoch   uint64

	log  *log.Logger
	repo database.StateRepository
}

// NewSessionStore creates a session store. repo may be nil, in which
// case sessions are not persisted across restarts.
func NewSessionStore(logger *log.Logger, repo database.StateRepository) *SessionStore {
	return &SessionStore{log: logger, repo: repo}
}

// Restore loads a previously persisted session, if any. Returns false
// when there is nothing to resume.
func (s *SessionStore) Restore() bool {
	if s.repo == nil {
		return false
	}

	session, ok, err := s.repo.LoadSession()
	if err != nil {
		s.log.Printf("load persisted session: %v", err)
		return false
	}
	if !ok || !session.Valid() {
		return false
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.session = session
	s.epoch++
	return true
}

// Set installs a new session and returns the epoch bound to it.
func (s *SessionStore) Set(session types.Session) uint64 {
	s.mu.Lock()
	s.session = session
	s.epoch++
	epoch := s.epoch
	s.mu.Unlock()

	if s.repo != nil {
		if err := s.repo.SaveSession(session); err != nil {
			s.log.Printf("persist session: %v", err)
		}
	}
	return epoch
}

// Clear drops the session. In-flight calls holding the old epoch must
// discard their results on return.
func (s *SessionStore) Clear() {
	s.mu.Lock()
	s.session = types.Session{}
	s.epoch++
	s.mu.Unlock()

	if s.repo != nil {
		if err := s.repo.DeleteSession(); err != nil {
			s.log.Printf("delete persisted session: %v", err)
		}
	}
}

// Current returns the session together with the epoch it belongs to.
func (s *SessionStore) Current() (types.Session, uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.session, s.epoch
}

// Epoch returns the current epoch without copying the session.
func (s *SessionStore) Epoch() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.epoch
}

// Stale reports whether epoch no longer identifies the live session.
func (s *SessionStore) Stale(epoch uint64) bool {
	return s.Epoch() != epoch
}
