package repository

import (
	"context"
	"errors"
	"fmt"

	"marketplace_chat_service/internal/chat/domain"
	errprocess "marketplace_chat_service/pkg/err"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MessageRepository message store
type MessageRepository interface {
	// Create 寫入一筆聊天訊息
	Create(ctx context.Context, m *domain.Message) error
	// ListByRoom room history, ascending created_at
	ListByRoom(ctx context.Context, roomID string) ([]domain.Message, error)
	// ListUnread messages in room addressed to receiver and not seen yet
	ListUnread(ctx context.Context, roomID, receiverID string) ([]domain.Message, error)
	// FindByID errprocess.ErrNotFound when absent
	FindByID(ctx context.Context, id string) (*domain.Message, error)
	// SetState raise the state, changed=false when it already was at least state
	SetState(ctx context.Context, id string, state domain.DeliveryState) (bool, error)
	// CountUnreadByRoom unread addressed to receiver grouped by room and sender
	CountUnreadByRoom(ctx context.Context, receiverID string) ([]domain.RoomUnread, error)
}

const messageCollection = "chat_messages"

type mongoMessageRepository struct {
	coll *mongo.Collection
}

// NewMongoMessageRepository create a MessageRepository on mongo
func NewMongoMessageRepository(db *mongo.Database) MessageRepository {
	return &mongoMessageRepository{
		coll: db.Collection(messageCollection),
	}
}

// EnsureMongoIndexes history and unread lookups
func EnsureMongoIndexes(ctx context.Context, db *mongo.Database) error {
	_, err := db.Collection(messageCollection).Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "room_id", Value: 1}, {Key: "created_at", Value: 1}}},
		{Keys: bson.D{{Key: "receiver_id", Value: 1}, {Key: "state", Value: 1}}},
	})
	return err
}

var historySort = bson.D{{Key: "created_at", Value: 1}, {Key: "_id", Value: 1}}

func (r *mongoMessageRepository) Create(ctx context.Context, m *domain.Message) error {
	_, err := r.coll.InsertOne(ctx, m)
	return err
}

func (r *mongoMessageRepository) ListByRoom(ctx context.Context, roomID string) ([]domain.Message, error) {
	return r.find(ctx, bson.M{"room_id": roomID})
}

func (r *mongoMessageRepository) ListUnread(ctx context.Context, roomID, receiverID string) ([]domain.Message, error) {
	return r.find(ctx, bson.M{
		"room_id":     roomID,
		"receiver_id": receiverID,
		"state":       bson.M{"$lt": domain.StateSeen},
	})
}

func (r *mongoMessageRepository) find(ctx context.Context, filter bson.M) ([]domain.Message, error) {
	cur, err := r.coll.Find(ctx, filter, options.Find().SetSort(historySort))
	if err != nil {
		return nil, err
	}

	messages := []domain.Message{}
	if err := cur.All(ctx, &messages); err != nil {
		return nil, err
	}
	return messages, nil
}

func (r *mongoMessageRepository) FindByID(ctx context.Context, id string) (*domain.Message, error) {
	var m domain.Message
	err := r.coll.FindOne(ctx, bson.M{"_id": id}).Decode(&m)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, fmt.Errorf("message %s: %w", id, errprocess.ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return &m, nil
}

// SetState 條件更新, state 只會往上
func (r *mongoMessageRepository) SetState(ctx context.Context, id string, state domain.DeliveryState) (bool, error) {
	res, err := r.coll.UpdateOne(ctx,
		bson.M{"_id": id, "state": bson.M{"$lt": state}},
		bson.M{"$set": bson.M{"state": state}},
	)
	if err != nil {
		return false, err
	}
	return res.ModifiedCount > 0, nil
}

func (r *mongoMessageRepository) CountUnreadByRoom(ctx context.Context, receiverID string) ([]domain.RoomUnread, error) {
	pipeline := mongo.Pipeline{
		// 1. 只看寄給 receiver 且未讀的訊息
		bson.D{{Key: "$match", Value: bson.D{
			{Key: "receiver_id", Value: receiverID},
			{Key: "state", Value: bson.D{{Key: "$lt", Value: domain.StateSeen}}},
		}}},
		// 2. 按 room_id + sender_id 分組計數
		bson.D{{Key: "$group", Value: bson.D{
			{Key: "_id", Value: bson.D{{Key: "room_id", Value: "$room_id"}, {Key: "sender_id", Value: "$sender_id"}}},
			{Key: "unread_count", Value: bson.D{{Key: "$sum", Value: 1}}},
		}}},
		bson.D{{Key: "$project", Value: bson.D{
			{Key: "_id", Value: 0},
			{Key: "room_id", Value: "$_id.room_id"},
			{Key: "sender_id", Value: "$_id.sender_id"},
			{Key: "unread_count", Value: 1},
		}}},
		bson.D{{Key: "$sort", Value: bson.D{{Key: "room_id", Value: 1}, {Key: "sender_id", Value: 1}}}},
	}

	cur, err := r.coll.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, fmt.Errorf("aggregate error: %w", err)
	}

	results := []domain.RoomUnread{}
	if err := cur.All(ctx, &results); err != nil {
		return nil, fmt.Errorf("cursor All error: %w", err)
	}
	return results, nil
}
