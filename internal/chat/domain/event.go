package domain

import "time"

// ChatEventKind broker routing key
type ChatEventKind string

const (
	// KindMessageCreated message persisted
	KindMessageCreated ChatEventKind = "message.created"
	// KindMessageRead message raised to seen
	KindMessageRead ChatEventKind = "message.read"
	// KindMessageDelivered message raised to delivered
	KindMessageDelivered ChatEventKind = "message.delivered"
	// KindRoomBulkRead unread flipped on join
	KindRoomBulkRead ChatEventKind = "room.bulk_read"
)

// ChatEvent published after the store write succeeded
type ChatEvent struct {
	Kind       ChatEventKind `json:"kind"`
	RoomID     string        `json:"room_id"`
	ActorID    string        `json:"actor_id"`
	MessageID  string        `json:"message_id,omitempty"`
	Count      int           `json:"count,omitempty"`
	Message    *Message      `json:"message,omitempty"`
	OccurredAt time.Time     `json:"occurred_at"`
}

// NewChatEvent event stamped now
func NewChatEvent(kind ChatEventKind, roomID, actorID string) ChatEvent {
	return ChatEvent{
		Kind:       kind,
		RoomID:     roomID,
		ActorID:    actorID,
		OccurredAt: time.Now().UTC(),
	}
}
