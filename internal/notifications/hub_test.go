package notifications

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testEventuallyTimeout = time.Second
	testPollInterval      = 10 * time.Millisecond
)

func recv(t *testing.T, c *Client) string {
	t.Helper()
	select {
	case msg := <-c.Send:
		return string(msg)
	case <-time.After(testEventuallyTimeout):
		t.Fatal("timed out waiting for message")
		return ""
	}
}

func TestHub_DeliverOnlyToSession(t *testing.T) {
	hub := NewHub(nil)

	a1, err := hub.Register("s1", "u1", nil)
	require.NoError(t, err)
	a2, err := hub.Register("s1", "u1", nil)
	require.NoError(t, err)
	b, err := hub.Register("s2", "u2", nil)
	require.NoError(t, err)

	hub.Publish(context.Background(), "s1", "feed.posts", []byte(`{"type":"feed.posts"}`))

	assert.Equal(t, `{"type":"feed.posts"}`, recv(t, a1))
	assert.Equal(t, `{"type":"feed.posts"}`, recv(t, a2))
	assert.Len(t, b.Send, 0)

	_ = hub.Shutdown(context.Background())
}

func TestHub_SessionConnectionLimit(t *testing.T) {
	hub := NewHub(nil)
	for i := 0; i < maxConnsPerSession; i++ {
		_, err := hub.Register("s1", "u1", nil)
		require.NoError(t, err)
	}
	_, err := hub.Register("s1", "u1", nil)
	assert.ErrorIs(t, err, ErrSessionConnLimit)

	_, err = hub.Register("s2", "u1", nil)
	assert.NoError(t, err)
	_ = hub.Shutdown(context.Background())
}

func TestHub_UnregisterClosesSendOnce(t *testing.T) {
	hub := NewHub(nil)
	c, err := hub.Register("s1", "u1", nil)
	require.NoError(t, err)
	assert.True(t, hub.Connected("s1"))

	hub.UnregisterClient(c)
	hub.UnregisterClient(c)
	assert.False(t, hub.Connected("s1"))

	_, ok := <-c.Send
	assert.False(t, ok)

	// Sending to a closed client is recovered.
	c.TrySend([]byte("late"))
}

func TestHub_DisconnectAndShutdown(t *testing.T) {
	hub := NewHub(nil)
	c1, _ := hub.Register("s1", "u1", nil)
	c2, _ := hub.Register("s2", "u2", nil)

	hub.Disconnect("s1")
	assert.False(t, hub.Connected("s1"))
	assert.True(t, hub.Connected("s2"))
	_, ok := <-c1.Send
	assert.False(t, ok)

	require.NoError(t, hub.Shutdown(context.Background()))
	require.NoError(t, hub.Shutdown(context.Background()))
	_, ok = <-c2.Send
	assert.False(t, ok)

	_, err := hub.Register("s3", "u3", nil)
	assert.ErrorIs(t, err, ErrHubClosed)
}

func TestHub_BufferFullDropsWithNotice(t *testing.T) {
	hub := NewHub(nil)
	c, err := hub.Register("s1", "u1", nil)
	require.NoError(t, err)

	for i := 0; i < sendBuffer+5; i++ {
		hub.Deliver("s1", []byte("x"))
	}
	assert.Len(t, c.Send, sendBuffer)
	_ = hub.Shutdown(context.Background())
}

func TestHub_PublishThroughRedisReachesWiredHub(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Two replicas share Redis; the connection lives on the second.
	sender := NewHub(NewNotifier(rdb))
	receiver := NewHub(NewNotifier(rdb))
	require.NoError(t, receiver.StartWiring(ctx))

	c, err := receiver.Register("s1", "u1", nil)
	require.NoError(t, err)

	sender.Publish(ctx, "s1", "assistant.reply", []byte(`{"type":"assistant.reply"}`))
	assert.Equal(t, `{"type":"assistant.reply"}`, recv(t, c))

	_ = receiver.Shutdown(context.Background())
}

func TestHub_OnActivityPropagatesToClients(t *testing.T) {
	hub := NewHub(nil)
	touched := make(chan string, 1)
	hub.OnActivity(func(sid string) { touched <- sid })

	c, err := hub.Register("s9", "u9", nil)
	require.NoError(t, err)
	c.touch()

	assert.Eventually(t, func() bool {
		select {
		case sid := <-touched:
			return sid == "s9"
		default:
			return false
		}
	}, testEventuallyTimeout, testPollInterval)
	_ = hub.Shutdown(context.Background())
}
