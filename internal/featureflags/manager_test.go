package featureflags

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEnabled_BooleanValues(t *testing.T) {
	t.Parallel()
	m := NewManager("a=on,b=off,c=true,d=false,e=1,f=0")

	for _, name := range []string{"a", "c", "e"} {
		assert.True(t, m.Enabled(name, "u1"), name)
	}
	for _, name := range []string{"b", "d", "f", "missing"} {
		assert.False(t, m.Enabled(name, "u1"), name)
	}
}

func TestEnabled_PercentageValues(t *testing.T) {
	t.Parallel()
	m := NewManager("always=100%,never=0%,canary=25%,junk=abc%")

	assert.True(t, m.Enabled("always", "u1"))
	assert.False(t, m.Enabled("never", "u1"))
	assert.False(t, m.Enabled("junk", "u1"))

	first := m.Enabled("canary", "user-42")
	for i := 0; i < 5; i++ {
		assert.Equal(t, first, m.Enabled("canary", "user-42"), "rollout must be deterministic per user")
	}
	assert.False(t, m.Enabled("canary", ""), "percentage rollout requires a user")

	on := 0
	for i := 0; i < 1000; i++ {
		if m.Enabled("canary", fmt.Sprintf("user-%d", i)) {
			on++
		}
	}
	assert.InDelta(t, 250, on, 100)
}

func TestParseSetAndSnapshot(t *testing.T) {
	t.Parallel()
	m := NewManager(" bad ,Assistant=ON, bookings = 20% ,uploads=off ")

	assert.Equal(t, map[string]string{"assistant": "on", "bookings": "20%", "uploads": "off"}, m.Raw())
	assert.True(t, m.Enabled(Assistant, "u1"))

	m.Set(Uploads, "on")
	snap := m.Snapshot("u1")
	assert.Len(t, snap, 3)
	assert.True(t, snap[Uploads])

	var nilManager *Manager
	assert.False(t, nilManager.Enabled(Assistant, "u1"))
	assert.Empty(t, nilManager.Snapshot("u1"))
}
