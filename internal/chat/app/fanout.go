package app

import (
	"context"
	"time"

	"marketplace_chat_service/internal/chat/hub"
	"marketplace_chat_service/internal/chat/repository"
	"marketplace_chat_service/pkg/logger"

	"go.uber.org/zap"
)

// RoomFanout local room broadcast plus the cross-instance relay
type RoomFanout struct {
	rooms *hub.Broadcaster
	relay repository.RoomRelay
}

// NewRoomFanout relay may be repository.NewNopRoomRelay()
func NewRoomFanout(rooms *hub.Broadcaster, relay repository.RoomRelay) *RoomFanout {
	return &RoomFanout{rooms: rooms, relay: relay}
}

// Broadcast exclude only applies to this instance, the excluded conn lives here
func (f *RoomFanout) Broadcast(roomID string, frame []byte, exclude *hub.Conn) int {
	sent := f.rooms.Broadcast(roomID, frame, exclude)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := f.relay.Publish(ctx, roomID, frame); err != nil {
		logger.Log.Warn("relay publish", zap.String("room_id", roomID), zap.Error(err))
	}
	return sent
}

// RunRelay deliver frames from other instances to local room members
func (f *RoomFanout) RunRelay(ctx context.Context) error {
	return f.relay.Run(ctx, func(roomID string, frame []byte) {
		f.rooms.Broadcast(roomID, frame, nil)
	})
}
