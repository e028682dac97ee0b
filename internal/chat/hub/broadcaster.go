package hub

import (
	"sync"

	"go.uber.org/zap"
)

type room struct {
	// mu 保證同一個 room 的 frame 以相同順序進入每個成員的 queue
	mu      sync.Mutex
	members map[*Conn]struct{}
}

// Broadcaster live conns per room
type Broadcaster struct {
	mu    sync.RWMutex
	rooms map[string]*room
}

// NewBroadcaster create Broadcaster
func NewBroadcaster() *Broadcaster {
	return &Broadcaster{rooms: make(map[string]*room)}
}

// Join add conn to room, room entry created on first join
func (b *Broadcaster) Join(roomID string, c *Conn) {
	b.mu.Lock()
	defer b.mu.Unlock()

	r, ok := b.rooms[roomID]
	if !ok {
		r = &room{members: make(map[*Conn]struct{})}
		b.rooms[roomID] = r
	}
	r.mu.Lock()
	r.members[c] = struct{}{}
	r.mu.Unlock()
}

// Leave remove conn, room entry deleted on last leave
func (b *Broadcaster) Leave(roomID string, c *Conn) {
	b.mu.Lock()
	defer b.mu.Unlock()

	r, ok := b.rooms[roomID]
	if !ok {
		return
	}
	r.mu.Lock()
	delete(r.members, c)
	empty := len(r.members) == 0
	r.mu.Unlock()

	if empty {
		delete(b.rooms, roomID)
	}
}

// Broadcast enqueue frame on every member except exclude (nil = nobody), returns how many accepted it
func (b *Broadcaster) Broadcast(roomID string, frame []byte, exclude *Conn) int {
	b.mu.RLock()
	defer b.mu.RUnlock()

	r, ok := b.rooms[roomID]
	if !ok {
		return 0
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	sent := 0
	for c := range r.members {
		if c == exclude {
			continue
		}
		if err := c.Enqueue(frame); err != nil {
			c.Log().Debug("room send skipped", zap.Error(err))
			continue
		}
		sent++
	}
	return sent
}

// MemberCount live conns in room
func (b *Broadcaster) MemberCount(roomID string) int {
	b.mu.RLock()
	defer b.mu.RUnlock()

	r, ok := b.rooms[roomID]
	if !ok {
		return 0
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.members)
}

// Rooms rooms with at least one member
func (b *Broadcaster) Rooms() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.rooms)
}
