package signaling

import "sync"

// Registry owns the mapping of room identifier to member sessions. Rooms are
// created lazily on first join and deleted eagerly on last leave, so a room
// key is present exactly while it has at least one member. A session belongs
// to at most one room at a time.
type Registry struct {
	mu         sync.RWMutex
	rooms      map[string]map[*Session]struct{}
	memberRoom map[*Session]string
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{
		rooms:      make(map[string]map[*Session]struct{}),
		memberRoom: make(map[*Session]string),
	}
}

// Join inserts the session into the given room, removing it from any prior
// room first. It always succeeds.
func (r *Registry) Join(roomID string, s *Session) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if prev, ok := r.memberRoom[s]; ok {
		r.leaveLocked(prev, s)
	}

	members, ok := r.rooms[roomID]
	if !ok {
		members = make(map[*Session]struct{})
		r.rooms[roomID] = members
	}
	members[s] = struct{}{}
	r.memberRoom[s] = roomID
}

// Leave removes the session from the room's member set. It is a no-op if the
// room or the membership does not exist.
func (r *Registry) Leave(roomID string, s *Session) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.leaveLocked(roomID, s)
}

func (r *Registry) leaveLocked(roomID string, s *Session) {
	members, ok := r.rooms[roomID]
	if !ok {
		return
	}
	if _, ok := members[s]; !ok {
		return
	}

	delete(members, s)
	delete(r.memberRoom, s)
	if len(members) == 0 {
		delete(r.rooms, roomID)
	}
}

// RoomOf returns the room the session currently belongs to, or "" if none.
func (r *Registry) RoomOf(s *Session) string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.memberRoom[s]
}

// Broadcast delivers data to every member of the room except the sender.
// It silently does nothing if the room does not exist. Delivery is
// best-effort per recipient: a full or closed recipient never blocks the
// fan-out to the others.
func (r *Registry) Broadcast(roomID string, sender *Session, data []byte) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for member := range r.rooms[roomID] {
		if member == sender {
			continue
		}
		member.Send(data)
	}
}

// Members returns the current member sessions of the room.
func (r *Registry) Members(roomID string) []*Session {
	r.mu.RLock()
	defer r.mu.RUnlock()

	members := make([]*Session, 0, len(r.rooms[roomID]))
	for member := range r.rooms[roomID] {
		members = append(members, member)
	}
	return members
}

// MemberCount returns the number of members in the room, zero if absent.
func (r *Registry) MemberCount(roomID string) int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.rooms[roomID])
}

// HasRoom returns true if the room currently exists in the registry.
func (r *Registry) HasRoom(roomID string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.rooms[roomID]
	return ok
}

// RoomCount returns the number of rooms currently in the registry.
func (r *Registry) RoomCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.rooms)
}
