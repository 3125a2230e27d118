package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"testing"
	"time"

	"inkd/internal/store"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// listen serves the app on a random local port until the test ends.
func (ts *testServer) listen(t *testing.T) string {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	go func() { _ = ts.app.Listener(ln) }()
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = ts.srv.hub.Shutdown(ctx)
		_ = ts.app.ShutdownWithContext(ctx)
	})
	return ln.Addr().String()
}

func readChange(t *testing.T, conn *websocket.Conn, typ string) store.Change {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	for {
		_, raw, err := conn.ReadMessage()
		require.NoError(t, err)
		var change store.Change
		require.NoError(t, json.Unmarshal(raw, &change))
		if change.Type == typ {
			return change
		}
	}
}

func TestPush_SnapshotThenChanges(t *testing.T) {
	ts := newTestServer(t)
	rosa := ts.signUp(t, "rosa@example.com", "Rosa Vega", "rosa.ink", true)
	addr := ts.listen(t)

	conn, resp, err := websocket.DefaultDialer.Dial("ws://"+addr+"/api/ws?token="+rosa.Session.AccessToken, nil)
	require.NoError(t, err)
	defer func() { _ = conn.Close() }()
	_ = resp.Body.Close()

	snap := readChange(t, conn, "workspace.snapshot")
	assert.Equal(t, "workspace", snap.Container)

	body, err := json.Marshal(CreatePostRequest{ImageURL: "https://img.example.com/moth.jpg", Tags: []string{"moth"}})
	require.NoError(t, err)
	req, err := http.NewRequest(http.MethodPost, "http://"+addr+"/api/feed/posts", bytes.NewReader(body))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+rosa.Session.AccessToken)
	postResp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	_ = postResp.Body.Close()
	require.Equal(t, http.StatusCreated, postResp.StatusCode)

	created := readChange(t, conn, "feed.post_created")
	assert.Equal(t, "feed", created.Container)
	data, ok := created.Data.(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "https://img.example.com/moth.jpg", data["image_url"])
}

func TestPush_SignOutClosesConnection(t *testing.T) {
	ts := newTestServer(t)
	rosa := ts.signUp(t, "rosa@example.com", "Rosa Vega", "rosa.ink", true)
	addr := ts.listen(t)

	conn, resp, err := websocket.DefaultDialer.Dial("ws://"+addr+"/api/ws?token="+rosa.Session.AccessToken, nil)
	require.NoError(t, err)
	defer func() { _ = conn.Close() }()
	_ = resp.Body.Close()
	readChange(t, conn, "workspace.snapshot")

	req, err := http.NewRequest(http.MethodPost, "http://"+addr+"/api/auth/logout", nil)
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer "+rosa.Session.AccessToken)
	out, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	_ = out.Body.Close()
	require.Equal(t, http.StatusOK, out.StatusCode)

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	for {
		_, _, err := conn.ReadMessage()
		if err == nil {
			continue
		}
		var netErr net.Error
		assert.False(t, errors.As(err, &netErr) && netErr.Timeout(), "connection stayed open: %v", err)
		break
	}
}

func TestPush_RejectsMissingToken(t *testing.T) {
	ts := newTestServer(t)
	addr := ts.listen(t)

	_, resp, err := websocket.DefaultDialer.Dial("ws://"+addr+"/api/ws", nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	defer func() { _ = resp.Body.Close() }()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	plain := ts.do(t, http.MethodGet, "/api/ws", nil, "")
	assert.Equal(t, http.StatusUpgradeRequired, plain.StatusCode)
}
