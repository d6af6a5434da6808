package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/signbridge/backend/internal/signaling"
)

// SignalHandler handles WebSocket connections for signaling sessions.
type SignalHandler struct {
	wsHandler *signaling.Handler
}

// NewSignalHandler creates a new SignalHandler.
func NewSignalHandler(wsHandler *signaling.Handler) *SignalHandler {
	return &SignalHandler{wsHandler: wsHandler}
}

// Connect handles GET /ws - upgrades the connection and hands it to the hub.
func (h *SignalHandler) Connect(c *gin.Context) {
	if err := h.wsHandler.HandleConnection(c.Writer, c.Request); err != nil {
		// Upgrade failures already wrote an HTTP error response.
		return
	}
}

// RegisterRoutes registers the signaling route on a Gin engine.
func (h *SignalHandler) RegisterRoutes(r *gin.Engine) {
	r.GET("/ws", h.Connect)
}
