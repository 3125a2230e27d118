package store

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"inkd/internal/observability"
)

// DefaultIdleTTL is how long an unused workspace survives.
const DefaultIdleTTL = 30 * time.Minute

// Registry holds the live workspaces keyed by session id.
type Registry struct {
	deps    Deps
	idleTTL time.Duration

	mu         sync.Mutex
	closed     bool
	workspaces map[string]*Workspace
}

// NewRegistry returns an empty registry. A zero idleTTL uses DefaultIdleTTL.
func NewRegistry(deps Deps, idleTTL time.Duration) *Registry {
	if idleTTL <= 0 {
		idleTTL = DefaultIdleTTL
	}
	return &Registry{deps: deps, idleTTL: idleTTL, workspaces: make(map[string]*Workspace)}
}

// Create builds a workspace that is not registered until Put.
func (r *Registry) Create(deviceID string) *Workspace {
	return NewWorkspace(r.deps, deviceID)
}

// Put registers w under sessionID, closing any other workspace held there.
func (r *Registry) Put(sessionID string, w *Workspace) {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		w.Close()
		return
	}
	old := r.workspaces[sessionID]
	r.workspaces[sessionID] = w
	observability.WorkspacesActive.Set(float64(len(r.workspaces)))
	r.mu.Unlock()

	w.Touch()
	if old != nil && old != w {
		old.Close()
	}
}

// Get returns the workspace for sessionID and marks it used.
func (r *Registry) Get(sessionID string) (*Workspace, bool) {
	r.mu.Lock()
	w, ok := r.workspaces[sessionID]
	r.mu.Unlock()
	if ok {
		w.Touch()
	}
	return w, ok
}

// Remove unregisters and closes the workspace for sessionID.
func (r *Registry) Remove(sessionID string) {
	r.mu.Lock()
	w, ok := r.workspaces[sessionID]
	delete(r.workspaces, sessionID)
	observability.WorkspacesActive.Set(float64(len(r.workspaces)))
	r.mu.Unlock()
	if ok {
		w.Close()
	}
}

func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.workspaces)
}

// Evict closes every workspace idle for longer than the TTL at now and
// returns how many were closed.
func (r *Registry) Evict(now time.Time) int {
	var idle []*Workspace
	r.mu.Lock()
	for id, w := range r.workspaces {
		if now.Sub(w.LastSeen()) > r.idleTTL {
			idle = append(idle, w)
			delete(r.workspaces, id)
		}
	}
	observability.WorkspacesActive.Set(float64(len(r.workspaces)))
	r.mu.Unlock()

	for _, w := range idle {
		w.Close()
	}
	if len(idle) > 0 {
		observability.WorkspacesEvicted.Add(float64(len(idle)))
		observability.Log().Info("evicted idle workspaces", slog.Int("count", len(idle)))
	}
	return len(idle)
}

// Janitor evicts idle workspaces every interval until ctx is done.
func (r *Registry) Janitor(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.Evict(r.deps.now())
		}
	}
}

// Close closes every workspace. Later Puts close their workspace immediately.
func (r *Registry) Close() {
	r.mu.Lock()
	r.closed = true
	all := make([]*Workspace, 0, len(r.workspaces))
	for _, w := range r.workspaces {
		all = append(all, w)
	}
	r.workspaces = make(map[string]*Workspace)
	observability.WorkspacesActive.Set(0)
	r.mu.Unlock()

	for _, w := range all {
		w.Close()
	}
}
