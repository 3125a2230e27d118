// Package store holds the per-session state containers: session, feed,
// profile, local directory, assistant and bookings.
//
// Containers guard their state with a mutex and never hold it across a remote
// call. Reads swallow failures after logging and record them on the snapshot;
// mutations return a classified error. Every fetch carries a sequence number so
// a response older than the latest applied one is dropped.
package store

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"inkd/internal/assistant"
	"inkd/internal/featureflags"
	"inkd/internal/models"
	"inkd/internal/observability"
	"inkd/internal/remote"
)

// Deps are the collaborators shared by every workspace.
type Deps struct {
	Remote     *remote.Client
	Prefs      Preferences
	Responder  assistant.Responder
	Researcher assistant.Researcher
	Flags      *featureflags.Manager

	FeedLimit          int
	GeolocationTimeout time.Duration
	GeolocationMaxAge  time.Duration
	Now                func() time.Time
}

func (d Deps) now() time.Time {
	if d.Now != nil {
		return d.Now()
	}
	return time.Now()
}

// Change tells listeners that a container's state moved.
type Change struct {
	Container string    `json:"container"`
	Type      string    `json:"type"`
	Version   uint64    `json:"version,omitempty"`
	Data      any       `json:"data,omitempty"`
	At        time.Time `json:"at"`
}

// Listener receives changes. It is called without container locks held.
type Listener func(Change)

type emitter struct {
	mu  sync.RWMutex
	fn  Listener
	now func() time.Time
}

func (e *emitter) set(fn Listener) {
	e.mu.Lock()
	e.fn = fn
	e.mu.Unlock()
}

func (e *emitter) emit(container, typ string, version uint64, data any) {
	if e == nil {
		return
	}
	e.mu.RLock()
	fn := e.fn
	e.mu.RUnlock()
	if fn == nil {
		return
	}
	at := time.Now()
	if e.now != nil {
		at = e.now()
	}
	fn(Change{Container: container, Type: container + "." + typ, Version: version, Data: data, At: at.UTC()})
}

// FetchError is the last read failure of a collection, so an empty list can be
// told apart from a failed one.
type FetchError struct {
	Kind    models.ErrorKind `json:"kind"`
	Message string           `json:"message"`
}

func newFetchError(err error) *FetchError {
	if err == nil {
		return nil
	}
	classified := remote.Classify(err)
	msg := classified.Error()
	if appErr, ok := classified.(*models.AppError); ok {
		msg = appErr.Message
	}
	return &FetchError{Kind: models.KindOf(classified), Message: msg}
}

// collection is one fetched list with its loading flag, last error and the
// bookkeeping that rejects stale responses and stale optimistic writes.
type collection[T any] struct {
	items   []T
	loading bool
	err     *FetchError

	issued  uint64 // last sequence number handed out
	applied uint64 // sequence number of the response currently shown
	version uint64 // bumped on every wholesale replace
}

// begin starts a fetch. Caller holds the container lock.
func (c *collection[T]) begin() uint64 {
	c.issued++
	c.loading = true
	return c.issued
}

// finish applies a response unless a newer one already landed.
// A failed response keeps the current items. Caller holds the container lock.
func (c *collection[T]) finish(seq uint64, items []T, err error) bool {
	if seq < c.applied {
		return false
	}
	c.applied = seq
	c.loading = seq < c.issued
	if err != nil {
		c.err = newFetchError(err)
		return true
	}
	if items == nil {
		items = []T{}
	}
	c.items = items
	c.err = nil
	c.version++
	return true
}

// reset forgets everything, used when the collection's owner changes.
func (c *collection[T]) reset() {
	c.items = nil
	c.err = nil
	c.loading = false
	c.applied = c.issued + 1
	c.version++
}

// prepend adds item at the front if the collection was not replaced since
// the write began at version v.
func (c *collection[T]) prepend(v uint64, item T) bool {
	if c.version != v {
		return false
	}
	c.items = append([]T{item}, c.items...)
	return true
}

func (c *collection[T]) append(v uint64, item T) bool {
	if c.version != v {
		return false
	}
	c.items = append(c.items, item)
	return true
}

func (c *collection[T]) snapshot() []T {
	out := make([]T, len(c.items))
	copy(out, c.items)
	return out
}

func outcome(applied bool, err error) string {
	switch {
	case !applied:
		return "stale"
	case err != nil:
		return "error"
	default:
		return "ok"
	}
}

func logReadFailure(ctx context.Context, container, op string, err error) {
	observability.Log().WarnContext(ctx, "container read failed",
		slog.String("container", container),
		slog.String("operation", op),
		slog.String("error", err.Error()),
	)
}

func notAuthenticated() error {
	return models.NewUnauthorizedError("Not authenticated")
}
