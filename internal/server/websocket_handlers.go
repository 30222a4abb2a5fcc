package server

import (
	"encoding/json"
	"log"

	"karmafeed/internal/models"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
)

// WebsocketUpgrade rejects plain HTTP requests to the event stream and
// carries the resolved actor into the connection locals.
func (s *Server) WebsocketUpgrade(c *fiber.Ctx) error {
	if !websocket.IsWebSocketUpgrade(c) {
		return models.RespondWithError(c, fiber.StatusUpgradeRequired,
			models.NewValidationError("WebSocket upgrade required"))
	}
	c.Locals("userID", actorOrZero(c))
	return c.Next()
}

// WebsocketHandler streams like, karma and leaderboard events.
//
// @Summary Live event stream
// @Description Anonymous watchers receive broadcast events; identified actors also receive their karma_changed events.
// @Tags realtime
// @Param X-User header string false "Acting username"
// @Success 101
// @Failure 426 {object} models.ErrorResponse
// @Router /ws [get]
func (s *Server) WebsocketHandler() fiber.Handler {
	return websocket.New(func(conn *websocket.Conn) {
		uid, ok := conn.Locals("userID").(uint)
		if !ok {
			if cerr := conn.Close(); cerr != nil {
				log.Printf("websocket close error: %v", cerr)
			}
			return
		}

		client, err := s.hub.Register(uid, conn)
		if err != nil {
			log.Printf("WebSocket: failed to register user %d: %v", uid, err)
			_ = conn.WriteMessage(websocket.TextMessage, errorFrame(err))
			_ = conn.Close()
			return
		}
		defer s.hub.UnregisterClient(client)

		go client.WritePump()
		client.ReadPump()
	})
}

// errorFrame renders err as a {"error": ...} text frame.
func errorFrame(err error) []byte {
	frame, mErr := json.Marshal(fiber.Map{"error": err.Error()})
	if mErr != nil {
		return []byte(`{"error":"internal error"}`)
	}
	return frame
}
