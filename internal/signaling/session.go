package signaling

import (
	"sync"

	"github.com/gorilla/websocket"
)

// Session represents one connected signaling client.
type Session struct {
	conn *websocket.Conn
	send chan []byte

	mu     sync.Mutex
	userID string
	closed bool
}

// NewSession creates a new Session for the given connection.
func NewSession(conn *websocket.Conn) *Session {
	return &Session{
		conn: conn,
		send: make(chan []byte, 256),
	}
}

// Send queues a message to be sent to the client.
func (s *Session) Send(data []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return
	}

	select {
	case s.send <- data:
	default:
		// Buffer full, drop the session
		s.closeLocked()
	}
}

// Close closes the session's send channel.
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closeLocked()
}

func (s *Session) closeLocked() {
	if s.closed {
		return
	}
	s.closed = true
	close(s.send)
}

// IsClosed returns true if the session is closed.
func (s *Session) IsClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

// UserID returns the display identifier for this session.
func (s *Session) UserID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.userID
}

// SetUserID sets the display identifier for this session.
func (s *Session) SetUserID(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.userID = id
}

// Conn returns the underlying WebSocket connection.
func (s *Session) Conn() *websocket.Conn {
	return s.conn
}

// SendChan returns the send channel for the session.
func (s *Session) SendChan() <-chan []byte {
	return s.send
}
