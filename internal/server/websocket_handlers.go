package server

import (
	"context"
	"encoding/json"
	"time"

	"inkd/internal/observability"
	"inkd/internal/store"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
)

var pushLog = observability.NewWSLogger("push hub")

// websocketUpgrade rejects plain HTTP requests to the push endpoint.
func (s *Server) websocketUpgrade() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	}
}

// PushHandler streams the session's container changes to the browser. The
// first frame is a full workspace snapshot; every later frame is a store.Change.
func (s *Server) PushHandler() fiber.Handler {
	return websocket.New(func(conn *websocket.Conn) {
		ctx := context.Background()
		sid, _ := conn.Locals("sessionID").(string)
		uid, _ := conn.Locals("userID").(string)
		w, _ := conn.Locals(workspaceKey).(*store.Workspace)
		if sid == "" || w == nil {
			_ = conn.WriteMessage(websocket.TextMessage, []byte(`{"error":"unauthorized"}`))
			_ = conn.Close()
			return
		}

		client, err := s.hub.Register(sid, uid, conn)
		if err != nil {
			pushLog.LogError(ctx, sid, err, "register")
			payload, _ := json.Marshal(map[string]string{"error": err.Error()})
			_ = conn.WriteMessage(websocket.TextMessage, payload)
			_ = conn.Close()
			return
		}

		go client.WritePump()

		snapshot, err := json.Marshal(store.Change{
			Container: "workspace",
			Type:      "workspace.snapshot",
			Data:      w.Snapshot(),
			At:        time.Now().UTC(),
		})
		if err == nil {
			client.TrySend(snapshot)
		}

		client.ReadPump()
	})
}
