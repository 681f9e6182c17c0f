package tasks

import "sync"

// ActiveUser tracks the most recently authenticated user id for this process.
//
// Single writer (the OAuth callback), multiple readers (the poll loop and the
// unauthenticated device endpoint). Passed explicitly to whoever needs it
// rather than living as package state.
type ActiveUser struct {
	mu sync.RWMutex
	id string
}

// NewActiveUser returns an unset tracker, optionally seeded with a
// configured user id for deployments that skip the web login.
func NewActiveUser(seed string) *ActiveUser {
	return &ActiveUser{id: seed}
}

// Set records the user id of the latest successful login.
func (a *ActiveUser) Set(userID string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.id = userID
}

// Get returns the current user id, or "" when nobody has authenticated.
func (a *ActiveUser) Get() string {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.id
}

// Clear unsets the tracker, but only while it still holds userID; a newer
// login is never clobbered by a stale reauth failure.
func (a *ActiveUser) Clear(userID string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.id == userID {
		a.id = ""
	}
}
