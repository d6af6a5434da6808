package signaling

import (
	"encoding/json"
	"log"

	"github.com/google/uuid"
)

// Hub routes inbound signaling messages. It inspects only the envelope type
// and the join control fields; relay payloads pass through opaquely with the
// sender's userId stamped into a "from" field. Each session moves between
// two states: unjoined and joined to exactly one room.
type Hub struct {
	registry *Registry
}

// NewHub creates a new Hub backed by the given registry.
func NewHub(registry *Registry) *Hub {
	return &Hub{registry: registry}
}

// Registry returns the room registry the hub routes through.
func (h *Hub) Registry() *Registry {
	return h.registry
}

// HandleMessage processes one raw inbound message from a session. Fan-out
// for the message completes before HandleMessage returns, so messages from a
// single sender reach each recipient in arrival order.
func (h *Hub) HandleMessage(s *Session, raw []byte) {
	var env Envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		h.sendError(s, "invalid message: not a JSON object")
		return
	}

	switch env.Type {
	case MessageTypeJoin:
		h.handleJoin(s, &env)
	case MessageTypeLeave:
		h.handleLeave(s)
	default:
		if env.Type.Relayable() {
			h.relay(s, raw)
			return
		}
		h.sendError(s, "unknown message type: "+string(env.Type))
	}
}

// HandleDisconnect performs the leave side effects for a dropped connection.
// A transport-level disconnect is treated exactly like an explicit leave.
func (h *Hub) HandleDisconnect(s *Session) {
	h.leaveCurrentRoom(s)
	s.Close()
}

func (h *Hub) handleJoin(s *Session, env *Envelope) {
	if env.RoomID == "" {
		h.sendError(s, "roomId is required")
		return
	}

	// Leaving the old room, including the peer-left broadcast, happens
	// before the new join.
	h.leaveCurrentRoom(s)

	// The userId is a display label chosen by the client; generate one only
	// if the session never supplied any.
	if env.UserID != "" {
		s.SetUserID(env.UserID)
	} else if s.UserID() == "" {
		s.SetUserID(uuid.NewString())
	}
	userID := s.UserID()

	h.registry.Join(env.RoomID, s)

	h.reply(s, JoinedMessage{Type: MessageTypeJoined, RoomID: env.RoomID, UserID: userID})
	h.broadcast(env.RoomID, s, PeerJoinedMessage{Type: MessageTypePeerJoined, UserID: userID})
}

func (h *Hub) handleLeave(s *Session) {
	h.leaveCurrentRoom(s)
}

// leaveCurrentRoom removes the session from its room, if any, and notifies
// the remaining members. No-op for unjoined sessions.
func (h *Hub) leaveCurrentRoom(s *Session) {
	roomID := h.registry.RoomOf(s)
	if roomID == "" {
		return
	}

	h.registry.Leave(roomID, s)
	h.broadcast(roomID, s, PeerLeftMessage{Type: MessageTypePeerLeft, From: s.UserID()})
}

// relay forwards a message verbatim to the other members of the sender's
// room, overwriting the "from" field with the sender's userId. The client's
// own "from" value, if any, is never trusted.
func (h *Hub) relay(s *Session, raw []byte) {
	roomID := h.registry.RoomOf(s)
	if roomID == "" {
		h.sendError(s, "join a room before sending signaling messages")
		return
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil {
		h.sendError(s, "invalid message: not a JSON object")
		return
	}

	from, err := json.Marshal(s.UserID())
	if err != nil {
		h.sendError(s, "failed to stamp sender")
		return
	}
	fields["from"] = from

	out, err := json.Marshal(fields)
	if err != nil {
		h.sendError(s, "failed to encode message")
		return
	}

	h.registry.Broadcast(roomID, s, out)
}

func (h *Hub) broadcast(roomID string, sender *Session, msg any) {
	data, err := json.Marshal(msg)
	if err != nil {
		log.Printf("Failed to marshal broadcast message: %v", err)
		return
	}
	h.registry.Broadcast(roomID, sender, data)
}

func (h *Hub) reply(s *Session, msg any) {
	data, err := json.Marshal(msg)
	if err != nil {
		log.Printf("Failed to marshal reply: %v", err)
		return
	}
	s.Send(data)
}

func (h *Hub) sendError(s *Session, message string) {
	h.reply(s, ErrorMessage{Type: MessageTypeError, Message: message})
}
