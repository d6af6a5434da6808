// Package signaling provides the room-scoped message relay between call
// peers.
//
// The package implements:
//   - Session: one connected client's server-side handle
//   - Registry: room identifier -> member session bookkeeping
//   - Hub: envelope routing, join/leave state machine, opaque relay
//   - Handler: WebSocket upgrade plus read/write pumps
//
// The hub trusts nothing in a relayed payload beyond the envelope "type"
// field. Offer, answer and ICE candidate payloads are forwarded verbatim
// with only a "from" field stamped in, which keeps the relay agnostic to
// future negotiation message shapes.
package signaling
