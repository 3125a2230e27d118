package store

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"

	"inkd/internal/models"
	"inkd/internal/observability"
	"inkd/internal/remote"
)

// SessionStatus is the session state machine: loading, then authenticated or unauthenticated.
type SessionStatus string

const (
	StatusLoading         SessionStatus = "loading"
	StatusAuthenticated   SessionStatus = "authenticated"
	StatusUnauthenticated SessionStatus = "unauthenticated"
)

// SessionState is a snapshot of the Session container.
type SessionState struct {
	Status            SessionStatus    `json:"status"`
	User              *models.AuthUser `json:"user"`
	SessionID         string           `json:"session_id,omitempty"`
	ExpiresAt         *time.Time       `json:"expires_at,omitempty"`
	NeedsVerification bool             `json:"needs_verification"`
}

// Session tracks the signed-in identity and mediates sign-in, sign-up,
// sign-out and remember-me persistence.
type Session struct {
	deps     Deps
	app      *AppContext
	events   *emitter
	deviceID string
	// lifetime bounds the auth-change subscription.
	lifetime context.Context

	// op serializes the flows so status transitions cannot interleave.
	op sync.Mutex

	mu          sync.RWMutex
	status      SessionStatus
	unsubscribe func()
}

func newSession(lifetime context.Context, deps Deps, app *AppContext, events *emitter, deviceID string) *Session {
	return &Session{
		deps:     deps,
		app:      app,
		events:   events,
		deviceID: deviceID,
		lifetime: lifetime,
		status:   StatusLoading,
	}
}

// Snapshot returns the current session state.
func (s *Session) Snapshot() SessionState {
	s.mu.RLock()
	status := s.status
	s.mu.RUnlock()

	st := SessionState{Status: status}
	if sess := s.app.Session(); sess != nil {
		st.User = sess.User
		st.SessionID = sess.ID
		if !sess.ExpiresAt.IsZero() {
			exp := sess.ExpiresAt
			st.ExpiresAt = &exp
		}
	}
	return st
}

// Status returns the current status.
func (s *Session) Status() SessionStatus {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.status
}

// begin marks the container loading and returns the status to restore on failure.
func (s *Session) begin() SessionStatus {
	s.mu.Lock()
	defer s.mu.Unlock()
	prev := s.status
	s.status = StatusLoading
	if prev == StatusLoading {
		prev = StatusUnauthenticated
	}
	return prev
}

func (s *Session) settle(status SessionStatus) {
	s.mu.Lock()
	s.status = status
	s.mu.Unlock()
}

// SignIn exchanges credentials for a session. On failure the stored identity is
// left untouched and a classified error is returned.
func (s *Session) SignIn(ctx context.Context, email, password string, rememberMe bool) (*models.Session, error) {
	s.op.Lock()
	defer s.op.Unlock()
	done := observability.TrackOperation("session", "sign_in")

	prev := s.begin()
	sess, err := s.deps.Remote.Auth.SignInWithPassword(ctx, email, password)
	if err != nil {
		s.settle(prev)
		done("error")
		return nil, remote.Classify(err)
	}

	s.rememberEmail(ctx, email, rememberMe)
	s.adopt(ctx, sess)
	done("ok")
	s.events.emit("session", "signed_in", 0, s.Snapshot())
	return sess, nil
}

// SignUp creates the account and its profile row, then signs in.
// A failed profile insert is logged and does not fail sign-up.
func (s *Session) SignUp(ctx context.Context, email, password string, profile models.ProfileFields) (*models.SignUpResult, error) {
	s.op.Lock()
	defer s.op.Unlock()
	done := observability.TrackOperation("session", "sign_up")

	prev := s.begin()
	res, err := s.deps.Remote.Auth.SignUp(ctx, email, password, models.IdentityMetadata{
		Name:     profile.Name,
		Handle:   profile.Handle,
		IsArtist: profile.IsArtist,
	})
	if err != nil {
		s.settle(prev)
		done("error")
		return nil, remote.Classify(err)
	}

	if res.Session != nil && res.Session.User != nil {
		s.createProfileRow(ctx, res.Session.User)
	}

	if res.NeedsVerification || res.Session == nil {
		s.settle(prev)
		done("ok")
		return res, nil
	}

	s.adopt(ctx, res.Session)
	done("ok")
	s.events.emit("session", "signed_in", 0, s.Snapshot())
	return res, nil
}

func (s *Session) createProfileRow(ctx context.Context, user *models.AuthUser) {
	row := profileFromIdentity(user)
	if err := s.deps.Remote.Users.Create(ctx, row); err != nil {
		observability.Log().WarnContext(ctx, "profile creation failed but sign-up succeeded",
			slog.String("user_id", user.ID), slog.String("error", err.Error()))
	}
}

// profileFromIdentity builds the users row for an identity from its sign-up metadata.
func profileFromIdentity(user *models.AuthUser) *models.User {
	return &models.User{
		ID:        user.ID,
		Email:     user.Email,
		Name:      models.StringPtr(user.Metadata.Name),
		Handle:    models.StringPtr(user.Metadata.Handle),
		IsArtist:  user.Metadata.IsArtist,
		Styles:    []string{},
		Locations: []string{},
		Links:     map[string]string{},
	}
}

// SignOut invalidates the remote session and clears local identity.
func (s *Session) SignOut(ctx context.Context) error {
	s.op.Lock()
	defer s.op.Unlock()
	done := observability.TrackOperation("session", "sign_out")

	prev := s.begin()
	current := s.app.Session()
	if current != nil && current.AccessToken != "" {
		// Stop following first so our own sign-out is not echoed back.
		s.unfollow()
		if err := s.deps.Remote.Auth.SignOut(ctx, current.AccessToken); err != nil {
			s.follow(current.ID)
			s.settle(prev)
			done("error")
			return remote.Classify(err)
		}
	}

	s.drop()
	done("ok")
	s.events.emit("session", "signed_out", 0, s.Snapshot())
	return nil
}

// Initialize restores the session behind token, if any, and follows its auth
// events for the workspace's lifetime. It always leaves a terminal status.
func (s *Session) Initialize(ctx context.Context, token string) error {
	s.op.Lock()
	defer s.op.Unlock()
	done := observability.TrackOperation("session", "initialize")

	s.begin()
	if strings.TrimSpace(token) == "" {
		s.drop()
		done("ok")
		return nil
	}

	sess, err := s.deps.Remote.Auth.GetSession(ctx, token)
	if err != nil {
		s.drop()
		done("error")
		return remote.Classify(err)
	}
	if sess == nil {
		s.drop()
		done("ok")
		return nil
	}

	s.adopt(ctx, sess)
	done("ok")
	return nil
}

// Refresh swaps the access token for a new one on the same session.
func (s *Session) Refresh(ctx context.Context) (*models.Session, error) {
	s.op.Lock()
	defer s.op.Unlock()

	token := s.app.AccessToken()
	if token == "" {
		return nil, notAuthenticated()
	}
	sess, err := s.deps.Remote.Auth.RefreshSession(ctx, token)
	if err != nil {
		return nil, remote.Classify(err)
	}
	s.app.set(sess)
	s.settle(StatusAuthenticated)
	return sess, nil
}

// RememberedEmail returns the email saved with "remember me" on this device.
func (s *Session) RememberedEmail(ctx context.Context) (string, bool) {
	if s.deps.Prefs == nil || s.deviceID == "" {
		return "", false
	}
	remember, ok, err := s.deps.Prefs.Get(ctx, s.deviceID, RememberMeKey)
	if err != nil || !ok || remember != "true" {
		return "", false
	}
	email, ok, err := s.deps.Prefs.Get(ctx, s.deviceID, RememberedEmailKey)
	if err != nil || !ok || email == "" {
		return "", false
	}
	return email, true
}

func (s *Session) rememberEmail(ctx context.Context, email string, rememberMe bool) {
	if s.deps.Prefs == nil || s.deviceID == "" {
		return
	}
	var err error
	if rememberMe {
		err = s.deps.Prefs.Set(ctx, s.deviceID, map[string]string{
			RememberMeKey:      "true",
			RememberedEmailKey: email,
		})
	} else {
		err = s.deps.Prefs.Delete(ctx, s.deviceID, RememberMeKey, RememberedEmailKey)
	}
	if err != nil {
		observability.Log().WarnContext(ctx, "failed to persist remember-me preference",
			slog.String("device_id", s.deviceID), slog.String("error", err.Error()))
	}
}

// adopt makes sess current, follows its auth events and retires the session
// it replaces.
func (s *Session) adopt(ctx context.Context, sess *models.Session) {
	previous := s.app.Session()
	s.app.set(sess)
	s.settle(StatusAuthenticated)
	s.follow(sess.ID)

	if previous != nil && previous.ID != sess.ID && previous.AccessToken != "" {
		if err := s.deps.Remote.Auth.SignOut(ctx, previous.AccessToken); err != nil {
			observability.Log().WarnContext(ctx, "failed to retire replaced session",
				slog.String("session_id", previous.ID), slog.String("error", err.Error()))
		}
	}
}

func (s *Session) drop() {
	s.unfollow()
	s.settle(StatusUnauthenticated)
	s.app.clear()
}

func (s *Session) unfollow() {
	s.mu.Lock()
	unsubscribe := s.unsubscribe
	s.unsubscribe = nil
	s.mu.Unlock()
	if unsubscribe != nil {
		unsubscribe()
	}
}

func (s *Session) follow(sessionID string) {
	s.unfollow()

	unsubscribe := s.deps.Remote.Auth.OnAuthStateChange(s.lifetime, sessionID, s.onAuthChange)
	s.mu.Lock()
	s.unsubscribe = unsubscribe
	s.mu.Unlock()
}

// onAuthChange keeps local identity in step with events raised elsewhere,
// such as a sign-out from another tab or replica.
func (s *Session) onAuthChange(change models.AuthChange) {
	current := s.app.SessionID()
	switch change.Event {
	case models.AuthEventSignedIn, models.AuthEventTokenRefreshed:
		if change.Session == nil || change.Session.ID != current {
			return
		}
		s.app.set(change.Session)
		s.settle(StatusAuthenticated)
	case models.AuthEventSignedOut:
		if current == "" {
			return
		}
		s.mu.Lock()
		unsubscribe := s.unsubscribe
		s.unsubscribe = nil
		s.status = StatusUnauthenticated
		s.mu.Unlock()
		s.app.clear()
		if unsubscribe != nil {
			unsubscribe()
		}
	default:
		return
	}
	s.events.emit("session", strings.ToLower(string(change.Event)), 0, s.Snapshot())
}

// Close stops following auth events.
func (s *Session) Close() {
	s.unfollow()
}
