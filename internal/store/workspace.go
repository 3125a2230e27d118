package store

import (
	"context"
	"sync"
	"sync/atomic"
	"time"
)

// WorkspaceState is the combined snapshot of every container.
type WorkspaceState struct {
	Session   SessionState   `json:"session"`
	Feed      FeedState      `json:"feed"`
	Profile   ProfileState   `json:"profile"`
	Local     LocalState     `json:"local"`
	Assistant AssistantState `json:"assistant"`
	Bookings  BookingsState  `json:"bookings"`
}

// Workspace is the application context plus its containers for one browser
// session. Containers share the context and a single change listener.
type Workspace struct {
	DeviceID string

	App       *AppContext
	Session   *Session
	Feed      *Feed
	Profile   *Profile
	Local     *Local
	Assistant *Assistant
	Bookings  *Bookings

	ctx      context.Context
	cancel   context.CancelFunc
	events   *emitter
	now      func() time.Time
	lastSeen atomic.Int64
	once     sync.Once
}

// NewWorkspace builds an unauthenticated workspace for deviceID.
func NewWorkspace(deps Deps, deviceID string) *Workspace {
	ctx, cancel := context.WithCancel(context.Background())
	app := &AppContext{}
	events := &emitter{now: deps.Now}
	w := &Workspace{
		DeviceID:  deviceID,
		App:       app,
		Session:   newSession(ctx, deps, app, events, deviceID),
		Feed:      newFeed(deps, app, events),
		Profile:   newProfile(deps, app, events),
		Local:     newLocal(deps, events),
		Assistant: newAssistant(ctx, deps, app, events),
		Bookings:  newBookings(deps, app, events),
		ctx:       ctx,
		cancel:    cancel,
		events:    events,
		now:       deps.now,
	}
	w.Touch()
	return w
}

// ID is the session id the workspace is registered under, empty until sign-in.
func (w *Workspace) ID() string {
	return w.App.SessionID()
}

// SetListener replaces the change listener for every container.
func (w *Workspace) SetListener(fn Listener) {
	w.events.set(fn)
}

// Touch marks the workspace as used now.
func (w *Workspace) Touch() {
	w.lastSeen.Store(w.now().UnixNano())
}

func (w *Workspace) LastSeen() time.Time {
	return time.Unix(0, w.lastSeen.Load())
}

// Done is closed when the workspace is closed.
func (w *Workspace) Done() <-chan struct{} {
	return w.ctx.Done()
}

// Snapshot returns every container's state.
func (w *Workspace) Snapshot() WorkspaceState {
	return WorkspaceState{
		Session:   w.Session.Snapshot(),
		Feed:      w.Feed.Snapshot(),
		Profile:   w.Profile.Snapshot(),
		Local:     w.Local.Snapshot(),
		Assistant: w.Assistant.Snapshot(),
		Bookings:  w.Bookings.Snapshot(),
	}
}

// Close stops background work and auth subscriptions. It is safe to call
// more than once.
func (w *Workspace) Close() {
	w.once.Do(func() {
		w.cancel()
		w.Assistant.Close()
		w.Session.Close()
		w.events.set(nil)
	})
}
