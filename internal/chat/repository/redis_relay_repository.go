package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"marketplace_chat_service/pkg/logger"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
)

const relayChannelPrefix = "chat:room:"

// RoomRelay fan room frames out to the other chat_service instances
type RoomRelay interface {
	// Publish hand a frame already delivered locally to the other instances
	Publish(ctx context.Context, roomID string, frame []byte) error
	// Run deliver frames published by other instances until ctx is done
	Run(ctx context.Context, deliver func(roomID string, frame []byte)) error
}

type relayEnvelope struct {
	NodeID string          `json:"node_id"`
	RoomID string          `json:"room_id"`
	Frame  json.RawMessage `json:"frame"`
}

type redisRoomRelay struct {
	client *redis.Client
	nodeID string
}

// NewRedisRoomRelay create RoomRelay on redis pub/sub, nodeID identifies this instance
func NewRedisRoomRelay(client *redis.Client, nodeID string) RoomRelay {
	return &redisRoomRelay{client: client, nodeID: nodeID}
}

// Publish 將 frame 包成 envelope 發布到 chat:room:<room_id>
func (r *redisRoomRelay) Publish(ctx context.Context, roomID string, frame []byte) error {
	data, err := json.Marshal(relayEnvelope{NodeID: r.nodeID, RoomID: roomID, Frame: frame})
	if err != nil {
		return err
	}
	return r.client.Publish(ctx, relayChannelPrefix+roomID, data).Err()
}

// Run 訂閱所有 room channel, 自己發出的 envelope 直接略過
func (r *redisRoomRelay) Run(ctx context.Context, deliver func(roomID string, frame []byte)) error {
	sub := r.client.PSubscribe(ctx, relayChannelPrefix+"*")
	defer sub.Close()

	// 確認訂閱成功
	if _, err := sub.Receive(ctx); err != nil {
		return fmt.Errorf("relay subscribe: %w", err)
	}
	logger.Log.Info("room relay subscribed", zap.String("node_id", r.nodeID))

	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case m, ok := <-ch:
			if !ok {
				return nil
			}
			var env relayEnvelope
			if err := json.Unmarshal([]byte(m.Payload), &env); err != nil {
				logger.Log.Warn("relay bad envelope", zap.String("channel", m.Channel), zap.Error(err))
				continue
			}
			if env.NodeID == r.nodeID {
				continue
			}
			roomID := env.RoomID
			if roomID == "" {
				roomID = strings.TrimPrefix(m.Channel, relayChannelPrefix)
			}
			deliver(roomID, env.Frame)
		}
	}
}

type nopRoomRelay struct{}

// NewNopRoomRelay single instance deployment
func NewNopRoomRelay() RoomRelay {
	return nopRoomRelay{}
}

func (nopRoomRelay) Publish(context.Context, string, []byte) error { return nil }

func (nopRoomRelay) Run(ctx context.Context, _ func(string, []byte)) error {
	<-ctx.Done()
	return nil
}
