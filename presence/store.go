// Package presence tracks who is currently inside the library. The store
// holds one record per session and an index of active sessions by subject,
// and it is the single authority for the parity sequence: for every subject
// the assigned parity values strictly increase and alternate odd (login) and
// even (logout).
package presence

import (
	"sync"
	"time"

	"github.com/jrmsu-wise/presence-tracker/model"
)

// Store is the in-memory presence store. All invariant-preserving decisions
// happen under a single lock so that concurrent logins, logouts, and sweeps
// observe a consistent parity sequence.
type Store struct {
	mu              sync.Mutex
	sessions        map[string]*model.Session
	activeBySubject map[string]string
	lastBySubject   map[string]string
	lastParity      map[string]int
}

// NewStore returns an empty presence store.
func NewStore() *Store {
	return &Store{
		sessions:        make(map[string]*model.Session),
		activeBySubject: make(map[string]string),
		lastBySubject:   make(map[string]string),
		lastParity:      make(map[string]int),
	}
}

// Open records a new active session for the subject, assigning the next odd
// parity value. If the subject already has an active session, the existing
// session is returned along with model.ErrAlreadyActive. If the recorded
// parity sequence is inconsistent with the session records, the store refuses
// to proceed and returns model.ErrInvariantViolation.
func (s *Store) Open(session model.Session) (model.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	subjectID := session.SubjectID
	if activeID, ok := s.activeBySubject[subjectID]; ok {
		return *s.sessions[activeID], model.ErrAlreadyActive
	}

	last := s.lastParity[subjectID]
	if last > 0 {
		// With no active session the subject's most recent session must be
		// closed at exactly the recorded parity. Anything else means the
		// store has been tampered with and opening would corrupt the
		// sequence further.
		previous, ok := s.sessions[s.lastBySubject[subjectID]]
		if last%2 != 0 || !ok || previous.Status != model.StatusClosed || previous.Parity != last {
			return model.Session{}, model.ErrInvariantViolation
		}
	}

	parity := last + 1
	if parity%2 == 0 {
		parity++
	}

	session.Parity = parity
	session.Status = model.StatusActive
	session.LogoutAt = nil
	session.FlaggedForgotten = false

	s.sessions[session.ID] = &session
	s.activeBySubject[subjectID] = session.ID
	s.lastBySubject[subjectID] = session.ID
	s.lastParity[subjectID] = parity

	return session, nil
}

// Close ends the subject's active session, assigning the next even parity
// value. If the session's recorded parity is already even the next even value
// is used instead, so the alternating sequence survives corrupted input.
// Returns model.ErrNoActiveSession if the subject is not inside the library.
func (s *Store) Close(subjectID string, at time.Time) (model.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	activeID, ok := s.activeBySubject[subjectID]
	if !ok {
		return model.Session{}, model.ErrNoActiveSession
	}
	session := s.sessions[activeID]

	parity := session.Parity + 1
	if parity%2 != 0 {
		parity++
	}

	logoutAt := at
	session.LogoutAt = &logoutAt
	session.Status = model.StatusClosed
	session.Parity = parity

	delete(s.activeBySubject, subjectID)
	s.lastParity[subjectID] = parity

	return *session, nil
}

// Active returns the subject's active session, or model.ErrNotFound if the
// subject is not currently inside the library.
func (s *Store) Active(subjectID string) (model.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	activeID, ok := s.activeBySubject[subjectID]
	if !ok {
		return model.Session{}, model.ErrNotFound
	}
	return *s.sessions[activeID], nil
}

// ActiveSessions returns a snapshot of all active sessions. The snapshot is
// taken under the store lock, but callers operate on copies and must re-check
// state through FlagForgotten before acting on a session.
func (s *Store) ActiveSessions() []model.Session {
	s.mu.Lock()
	defer s.mu.Unlock()

	sessions := make([]model.Session, 0, len(s.activeBySubject))
	for _, id := range s.activeBySubject {
		sessions = append(sessions, *s.sessions[id])
	}
	return sessions
}

// FlagForgotten marks a session as having a forgotten logout. It reports
// whether the flag was newly set: a session that is no longer active, or that
// has already been flagged, is left untouched. Flagging never closes the
// session; closing remains exclusively the subject's own logout.
func (s *Store) FlagForgotten(sessionID string) (model.Session, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	session, ok := s.sessions[sessionID]
	if !ok || session.Status != model.StatusActive || session.FlaggedForgotten {
		return model.Session{}, false
	}
	session.FlaggedForgotten = true
	return *session, true
}
