// internal/handlers/room_ws.go
package handlers

import (
	"context"
	"net/http"
	"strings"

	"github.com/coder/websocket"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/chinchiro-io/chinchiro/internal/cache"
	"github.com/chinchiro-io/chinchiro/internal/middleware"
)

// RoomWSHandler upgrades the HTTP connection to WebSocket for a room's change
// feed. The socket is notification-only: the server forwards change pings
// published on the room's Redis channel, and clients re-fetch /room/state to
// reconcile. No game action travels over the socket.
func RoomWSHandler(logger *logrus.Logger, s *Server) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		// Extract room ID from URL path: /room/ws/{room_id}
		pathParts := strings.Split(strings.TrimPrefix(r.URL.Path, "/room/ws/"), "/")
		if len(pathParts) < 1 || pathParts[0] == "" {
			http.Error(w, "Missing room_id in path (/room/ws/{room_id})", http.StatusBadRequest)
			return
		}
		roomID, err := uuid.Parse(pathParts[0])
		if err != nil {
			http.Error(w, "Invalid room_id format", http.StatusBadRequest)
			return
		}

		if _, err := s.Engine.Store.GetRoom(r.Context(), roomID); err != nil {
			http.Error(w, "Room not found", http.StatusNotFound)
			return
		}

		c, err := websocket.Accept(w, r, &websocket.AcceptOptions{
			Subprotocols:   []string{"chinchiro"},
			OriginPatterns: []string{"*"}, // Adjust for production security.
		})
		if err != nil {
			logger.Warnf("WebSocket accept error for room %s: %v", roomID, err)
			return
		}
		defer c.Close(websocket.StatusInternalError, "Internal server error during handler exit.")

		if c.Subprotocol() != "chinchiro" {
			logger.Warnf("Client for room %s connected with invalid subprotocol: %s", roomID, c.Subprotocol())
			c.Close(websocket.StatusPolicyViolation, "Client must use the 'chinchiro' subprotocol.")
			return
		}
		middleware.LogWebSocketConnect(logger, r.RemoteAddr, r.URL.Path)

		ctx, cancel := context.WithCancel(r.Context())
		defer cancel()

		sub := cache.SubscribeRoom(ctx, roomID)
		defer sub.Close()

		// Forward change pings until the subscription or socket dies.
		go func() {
			for msg := range sub.Channel() {
				if err := c.Write(ctx, websocket.MessageText, []byte(msg.Payload)); err != nil {
					cancel()
					return
				}
			}
		}()

		// Clients send nothing meaningful; the read loop exists to notice the
		// close and to drain pings.
		var readErr error
		for {
			if _, _, readErr = c.Read(ctx); readErr != nil {
				break
			}
		}
		middleware.LogWebSocketDisconnect(logger, r.RemoteAddr, r.URL.Path, readErr)
		c.Close(websocket.StatusNormalClosure, "bye")
	}
}
