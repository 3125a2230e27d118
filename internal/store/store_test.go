package store

import (
	"errors"
	"testing"

	"inkd/internal/models"

	"github.com/stretchr/testify/assert"
)

func TestCollection_DropsStaleResponses(t *testing.T) {
	t.Parallel()
	var c collection[string]

	first := c.begin()
	second := c.begin()
	assert.True(t, c.finish(second, []string{"new"}, nil))
	assert.False(t, c.loading)

	assert.False(t, c.finish(first, []string{"old"}, nil))
	assert.Equal(t, []string{"new"}, c.items)
}

func TestCollection_LoadingUntilLatestLands(t *testing.T) {
	t.Parallel()
	var c collection[string]

	first := c.begin()
	c.begin()
	assert.True(t, c.finish(first, []string{"a"}, nil))
	assert.True(t, c.loading, "a newer fetch is still outstanding")
}

func TestCollection_FailureKeepsItems(t *testing.T) {
	t.Parallel()
	var c collection[string]
	c.finish(c.begin(), []string{"a"}, nil)
	version := c.version

	assert.True(t, c.finish(c.begin(), nil, errors.New("boom")))
	assert.Equal(t, []string{"a"}, c.items)
	if assert.NotNil(t, c.err) {
		assert.Equal(t, models.KindInternal, c.err.Kind)
	}
	assert.Equal(t, version, c.version)
}

func TestCollection_PrependDroppedAfterReplace(t *testing.T) {
	t.Parallel()
	var c collection[string]
	c.finish(c.begin(), []string{"a"}, nil)

	v := c.version
	c.finish(c.begin(), []string{"b"}, nil)
	assert.False(t, c.prepend(v, "optimistic"))
	assert.Equal(t, []string{"b"}, c.items)

	assert.True(t, c.prepend(c.version, "fresh"))
	assert.Equal(t, []string{"fresh", "b"}, c.items)
}

func TestCollection_ResetRejectsInFlight(t *testing.T) {
	t.Parallel()
	var c collection[string]
	inFlight := c.begin()
	c.reset()

	assert.False(t, c.finish(inFlight, []string{"old owner"}, nil))
	assert.Empty(t, c.items)
	assert.True(t, c.finish(c.begin(), []string{"new owner"}, nil))
}

func TestEmitter_NilSafe(t *testing.T) {
	t.Parallel()
	var e *emitter
	e.emit("feed", "posts", 1, nil)

	e = &emitter{}
	e.emit("feed", "posts", 1, nil)

	var got Change
	e.set(func(c Change) { got = c })
	e.emit("feed", "posts", 3, nil)
	assert.Equal(t, "feed.posts", got.Type)
	assert.Equal(t, uint64(3), got.Version)
}
