package server

import (
	"net/http"
	"sync"
	"time"

	"github.com/desertthunder/prism/internal/shared"
)

// SessionCookie is the name of the browser session cookie.
const SessionCookie = "prism_session"

// sessionTTL bounds how long an abandoned session survives in memory.
const sessionTTL = 24 * time.Hour

// Session is a single browser session. UserID is empty until the OAuth
// callback binds an authenticated user to it.
type Session struct {
	ID        string
	UserID    string
	CreatedAt time.Time

	state string // pending OAuth state, single use
}

// SessionStore keeps sessions in memory, keyed by random session id.
//
// Sessions do not survive process restarts; the token record in SQLite is
// the durable part of a login.
type SessionStore struct {
	mu       sync.Mutex
	sessions map[string]*Session
}

// NewSessionStore creates an empty [SessionStore].
func NewSessionStore() *SessionStore {
	return &SessionStore{sessions: make(map[string]*Session)}
}

// Create starts a new session and sets its cookie on the response.
func (s *SessionStore) Create(w http.ResponseWriter) *Session {
	session := &Session{
		ID:        shared.GenerateID(),
		CreatedAt: time.Now(),
	}

	s.mu.Lock()
	s.prune()
	s.sessions[session.ID] = session
	s.mu.Unlock()

	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookie,
		Value:    session.ID,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})

	return session
}

// Get returns the session identified by the request's cookie, if any.
func (s *SessionStore) Get(r *http.Request) (*Session, bool) {
	cookie, err := r.Cookie(SessionCookie)
	if err != nil {
		return nil, false
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	session, ok := s.sessions[cookie.Value]
	if !ok || time.Since(session.CreatedAt) > sessionTTL {
		return nil, false
	}
	return session, true
}

// SetState stores a pending OAuth state token on the session.
func (s *SessionStore) SetState(sessionID, state string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if session, ok := s.sessions[sessionID]; ok {
		session.state = state
	}
}

// TakeState returns and clears the session's pending OAuth state.
//
// The state is single use: a second call returns false.
func (s *SessionStore) TakeState(sessionID string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	session, ok := s.sessions[sessionID]
	if !ok || session.state == "" {
		return "", false
	}

	state := session.state
	session.state = ""
	return state, true
}

// Bind attaches an authenticated user to the session.
func (s *SessionStore) Bind(sessionID, userID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if session, ok := s.sessions[sessionID]; ok {
		session.UserID = userID
	}
}

// Destroy removes the session and expires its cookie.
func (s *SessionStore) Destroy(w http.ResponseWriter, r *http.Request) {
	if cookie, err := r.Cookie(SessionCookie); err == nil {
		s.mu.Lock()
		delete(s.sessions, cookie.Value)
		s.mu.Unlock()
	}

	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
	})
}

// prune drops expired sessions. Caller holds the lock.
func (s *SessionStore) prune() {
	for id, session := range s.sessions {
		if time.Since(session.CreatedAt) > sessionTTL {
			delete(s.sessions, id)
		}
	}
}
