package signaling

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer. SDP offers can run to tens of
	// kilobytes.
	maxMessageSize = 64 * 1024
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		// TODO: Implement proper origin checking in production
		return true
	},
}

// Handler accepts WebSocket connections and feeds them into the hub.
type Handler struct {
	hub *Hub
}

// NewHandler creates a new WebSocket handler for the given hub.
func NewHandler(hub *Hub) *Handler {
	return &Handler{hub: hub}
}

// HandleConnection upgrades the HTTP connection to WebSocket and manages the
// bidirectional communication until the client disconnects.
func (h *Handler) HandleConnection(w http.ResponseWriter, r *http.Request) error {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return err
	}

	sess := NewSession(conn)

	go h.writePump(sess)
	go h.readPump(sess)

	return nil
}

// readPump pumps messages from the WebSocket connection to the hub. Messages
// are handled one at a time, so per-session ordering is preserved and each
// fan-out finishes before the next inbound message is read.
func (h *Handler) readPump(sess *Session) {
	defer func() {
		h.hub.HandleDisconnect(sess)
		sess.Conn().Close()
	}()

	sess.Conn().SetReadLimit(maxMessageSize)
	sess.Conn().SetReadDeadline(time.Now().Add(pongWait))
	sess.Conn().SetPongHandler(func(string) error {
		sess.Conn().SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, message, err := sess.Conn().ReadMessage()
		if err != nil {
			break
		}
		h.hub.HandleMessage(sess, message)
	}
}

// writePump pumps messages from the session's send channel to the WebSocket
// connection, with periodic pings to keep the connection alive.
func (h *Handler) writePump(sess *Session) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		sess.Conn().Close()
	}()

	for {
		select {
		case message, ok := <-sess.SendChan():
			sess.Conn().SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// The hub closed the session
				sess.Conn().WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			// Each message goes in its own frame so JSON.parse() works
			// message-by-message on the frontend.
			if err := sess.Conn().WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}
		case <-ticker.C:
			sess.Conn().SetWriteDeadline(time.Now().Add(writeWait))
			if err := sess.Conn().WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// SetCheckOrigin sets a custom origin checker for the WebSocket upgrader.
func SetCheckOrigin(fn func(r *http.Request) bool) {
	upgrader.CheckOrigin = fn
}
