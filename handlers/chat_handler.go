package handlers

import (
	"log"

	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"

	"chatapp_backend/internal/ws"
)

type ChatHandler struct {
	Hub *ws.Hub
}

func NewChatHandler(hub *ws.Hub) *ChatHandler {
	return &ChatHandler{Hub: hub}
}

// WebSocketUpgradeMiddleware ensures the client is trying to upgrade to WebSocket
func (h *ChatHandler) WebSocketUpgradeMiddleware(c *fiber.Ctx) error {
	if websocket.IsWebSocketUpgrade(c) {
		c.Locals("allowed", true)
		return c.Next()
	}
	return fiber.ErrUpgradeRequired
}

// Handler returns the websocket handler function
func (h *ChatHandler) Handler() fiber.Handler {
	return websocket.New(func(c *websocket.Conn) {
		userID, ok := c.Locals("user_id").(string)
		if !ok || userID == "" {
			log.Println("Invalid or missing user id in WebSocket connection")
			c.Close()
			return
		}

		client := ws.NewClient(h.Hub, c, userID)
		h.Hub.Register <- client

		// Bind the connection to the authenticated user up front so room
		// queries work before the first explicit event.
		h.Hub.Dispatcher().Dispatch(client, ws.Event{Type: ws.EventRegister, UserID: userID})

		go client.WritePump()
		client.ReadPump()
	})
}
