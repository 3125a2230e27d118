package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistry_PutGetRemove(t *testing.T) {
	t.Parallel()
	h := newHarness(t)
	r := NewRegistry(h.deps, time.Minute)
	t.Cleanup(r.Close)

	w := r.Create("device-1")
	_, err := w.Session.SignUp(context.Background(), "rosa@example.com", testPassword, rosa)
	require.NoError(t, err)
	r.Put(w.ID(), w)

	got, ok := r.Get(w.ID())
	require.True(t, ok)
	assert.Same(t, w, got)
	assert.Equal(t, 1, r.Len())

	r.Remove(w.ID())
	_, ok = r.Get(w.ID())
	assert.False(t, ok)
	select {
	case <-w.Done():
	default:
		t.Fatal("removed workspace was not closed")
	}
}

func TestRegistry_PutReplacesAndClosesPrevious(t *testing.T) {
	t.Parallel()
	h := newHarness(t)
	r := NewRegistry(h.deps, time.Minute)
	t.Cleanup(r.Close)

	first, second := r.Create("a"), r.Create("b")
	r.Put("sid", first)
	r.Put("sid", second)

	got, _ := r.Get("sid")
	assert.Same(t, second, got)
	select {
	case <-first.Done():
	default:
		t.Fatal("replaced workspace was not closed")
	}
}

func TestRegistry_EvictsIdleWorkspaces(t *testing.T) {
	t.Parallel()
	h := newHarness(t)
	now := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	h.deps.Now = func() time.Time { return now }
	r := NewRegistry(h.deps, 30*time.Minute)
	t.Cleanup(r.Close)

	idle := r.Create("idle")
	r.Put("idle", idle)
	busy := r.Create("busy")
	r.Put("busy", busy)

	now = now.Add(20 * time.Minute)
	_, ok := r.Get("busy")
	require.True(t, ok)

	assert.Equal(t, 1, r.Evict(now.Add(15*time.Minute)))
	assert.Equal(t, 1, r.Len())
	_, ok = r.Get("idle")
	assert.False(t, ok)
}

func TestRegistry_JanitorStopsWithContext(t *testing.T) {
	t.Parallel()
	h := newHarness(t)
	r := NewRegistry(h.deps, time.Nanosecond)
	t.Cleanup(r.Close)
	r.Put("sid", r.Create("device"))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		r.Janitor(ctx, time.Millisecond)
	}()

	require.Eventually(t, func() bool { return r.Len() == 0 }, 2*time.Second, 5*time.Millisecond)
	cancel()
	<-done
}

func TestRegistry_CloseClosesLaterPuts(t *testing.T) {
	t.Parallel()
	h := newHarness(t)
	r := NewRegistry(h.deps, time.Minute)
	r.Close()

	w := r.Create("late")
	r.Put("sid", w)
	assert.Zero(t, r.Len())
	select {
	case <-w.Done():
	default:
		t.Fatal("workspace put after Close was not closed")
	}
}
