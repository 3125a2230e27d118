package store

import (
	"sync"

	"inkd/internal/models"
)

// AppContext is the signed-in identity of one workspace. Only the Session
// container writes it; every other container reads it.
type AppContext struct {
	mu      sync.RWMutex
	session *models.Session
}

// NewAppContext returns an empty, signed-out context.
func NewAppContext() *AppContext {
	return &AppContext{}
}

// Session returns a copy of the current session, or nil.
func (a *AppContext) Session() *models.Session {
	a.mu.RLock()
	defer a.mu.RUnlock()
	if a.session == nil {
		return nil
	}
	s := *a.session
	if s.User != nil {
		u := *s.User
		s.User = &u
	}
	return &s
}

// User returns the signed-in identity, or nil.
func (a *AppContext) User() *models.AuthUser {
	if s := a.Session(); s != nil {
		return s.User
	}
	return nil
}

// UserID returns the signed-in identity's id, or "".
func (a *AppContext) UserID() string {
	if u := a.User(); u != nil {
		return u.ID
	}
	return ""
}

// SessionID returns the current session id, or "".
func (a *AppContext) SessionID() string {
	a.mu.RLock()
	defer a.mu.RUnlock()
	if a.session == nil {
		return ""
	}
	return a.session.ID
}

// AccessToken returns the current bearer token, or "".
func (a *AppContext) AccessToken() string {
	a.mu.RLock()
	defer a.mu.RUnlock()
	if a.session == nil {
		return ""
	}
	return a.session.AccessToken
}

func (a *AppContext) set(s *models.Session) {
	a.mu.Lock()
	a.session = s
	a.mu.Unlock()
}

func (a *AppContext) clear() {
	a.set(nil)
}
