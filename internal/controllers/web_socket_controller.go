package controllers

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"food_crm/internal/events"
	"food_crm/internal/middleware"
	"food_crm/internal/services"
)

// upgrader configures the WebSocket connection.
var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // dashboards are served from the frontend origin
	},
}

// WebSocketController streams order events to kitchen and admin dashboards.
type WebSocketController struct {
	jwt   *middleware.JWT
	users middleware.UserLoader
	hub   *events.Hub
}

func NewWebSocketController(jwt *middleware.JWT, users middleware.UserLoader, hub *events.Hub) *WebSocketController {
	return &WebSocketController{jwt: jwt, users: users, hub: hub}
}

// HandleOrderFeed authenticates via the token query parameter (browsers
// cannot set headers on a websocket handshake), then registers the
// connection with the hub until the client goes away.
func (w *WebSocketController) HandleOrderFeed(c *gin.Context) {
	token := c.Query("token")
	if token == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing authentication token"})
		return
	}

	user, err := w.jwt.Authenticate(c.Request.Context(), w.users, token)
	if err != nil {
		logrus.WithError(err).Warn("WebSocket connection attempt failed.")
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid or expired token"})
		return
	}
	if !services.IsStaff(user.Role) {
		c.JSON(http.StatusForbidden, gin.H{"error": "unauthorized role for order feed"})
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		logrus.WithError(err).Error("Failed to upgrade WebSocket connection.")
		return
	}
	defer conn.Close()

	fields := logrus.Fields{
		"user_id":  user.ID,
		"role":     user.Role,
		"conn_ptr": fmt.Sprintf("%p", conn),
	}
	logrus.WithFields(fields).Info("Order feed connection established.")

	w.hub.Register(conn)
	defer w.hub.Unregister(conn)

	// The feed is push-only; reading just detects the close.
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				logrus.WithError(err).WithFields(fields).Warn("Order feed closed unexpectedly.")
			}
			break
		}
	}
	logrus.WithFields(fields).Info("Order feed connection closed.")
}
