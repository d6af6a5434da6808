package signaling

// MessageType represents the type of a signaling message envelope.
type MessageType string

const (
	// Client -> Server message types
	MessageTypeJoin          MessageType = "join"
	MessageTypeLeave         MessageType = "leave"
	MessageTypeOffer         MessageType = "offer"
	MessageTypeAnswer        MessageType = "answer"
	MessageTypeICECandidate  MessageType = "ice-candidate"
	MessageTypeTranscription MessageType = "transcription"
	MessageTypeASLLetter     MessageType = "asl-letter"

	// Server -> Client message types
	MessageTypeJoined     MessageType = "joined"
	MessageTypePeerJoined MessageType = "peer-joined"
	MessageTypePeerLeft   MessageType = "peer-left"
	MessageTypeError      MessageType = "error"
)

// Relayable reports whether messages of this type are forwarded verbatim to
// the other members of the sender's room. The hub never inspects the payload
// of a relayable message beyond the envelope type.
func (t MessageType) Relayable() bool {
	switch t {
	case MessageTypeOffer, MessageTypeAnswer, MessageTypeICECandidate,
		MessageTypeTranscription, MessageTypeASLLetter:
		return true
	}
	return false
}

// Envelope carries the only fields the hub itself trusts and inspects.
// Everything else in an inbound message is opaque relay payload.
type Envelope struct {
	Type   MessageType `json:"type"`
	RoomID string      `json:"roomId,omitempty"`
	UserID string      `json:"userId,omitempty"`
}

// JoinedMessage confirms a join to the session that requested it.
type JoinedMessage struct {
	Type   MessageType `json:"type"`
	RoomID string      `json:"roomId"`
	UserID string      `json:"userId"`
}

// PeerJoinedMessage notifies existing room members of a new peer.
type PeerJoinedMessage struct {
	Type   MessageType `json:"type"`
	UserID string      `json:"userId"`
}

// PeerLeftMessage notifies remaining room members that a peer left.
type PeerLeftMessage struct {
	Type MessageType `json:"type"`
	From string      `json:"from"`
}

// ErrorMessage is sent only to the session whose message could not be handled.
type ErrorMessage struct {
	Type    MessageType `json:"type"`
	Message string      `json:"message"`
}
