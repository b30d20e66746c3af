package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"lms_backend/internal/hub"
	"lms_backend/internal/service"
	"lms_backend/pkg/logger"
)

type WebSocketHandler struct {
	hub         *hub.Hub
	authService service.AuthService
	upgrader    websocket.Upgrader
	log         logger.Logger
}

func NewWebSocketHandler(h *hub.Hub, authService service.AuthService, allowOrigin string, log logger.Logger) *WebSocketHandler {
	return &WebSocketHandler{
		hub:         h,
		authService: authService,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				return origin == "" || origin == allowOrigin
			},
		},
		log: log,
	}
}

// Serve authenticates the caller and upgrades the connection. The token comes
// from the query string because browsers cannot set headers on websocket
// dials. Auth failures are refused before the upgrade.
func (h *WebSocketHandler) Serve(c *gin.Context) {
	token := c.Query("token")
	if token == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Token required"})
		return
	}

	user, err := h.authService.ValidateToken(c.Request.Context(), token)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid or expired token"})
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.log.Error("Failed to upgrade connection", "error", err)
		return
	}

	client := hub.NewWebSocketClient(h.hub, conn, h.log)
	h.hub.Register(client)
	h.hub.Identify(client, user.ID.String())

	h.log.Info("WebSocket client connected", "user_id", user.ID, "conn_id", client.ConnID())
	client.Run()
}
