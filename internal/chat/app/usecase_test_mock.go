package app

import (
	"context"

	"marketplace_chat_service/internal/chat/domain"

	"github.com/stretchr/testify/mock"
)

// MockMessageRepository Mock MessageRepository
type MockMessageRepository struct {
	mock.Mock
}

// Create moke insert msg
func (m *MockMessageRepository) Create(ctx context.Context, msg *domain.Message) error {
	args := m.Called(ctx, msg)
	return args.Error(0)
}

// ListByRoom moke room history
func (m *MockMessageRepository) ListByRoom(ctx context.Context, roomID string) ([]domain.Message, error) {
	args := m.Called(ctx, roomID)
	if args.Get(0) != nil {
		return args.Get(0).([]domain.Message), args.Error(1)
	}
	return nil, args.Error(1)
}

// ListUnread moke unread of receiver in room
func (m *MockMessageRepository) ListUnread(ctx context.Context, roomID, receiverID string) ([]domain.Message, error) {
	args := m.Called(ctx, roomID, receiverID)
	if args.Get(0) != nil {
		return args.Get(0).([]domain.Message), args.Error(1)
	}
	return nil, args.Error(1)
}

// FindByID moke find msg by id
func (m *MockMessageRepository) FindByID(ctx context.Context, id string) (*domain.Message, error) {
	args := m.Called(ctx, id)
	if args.Get(0) != nil {
		return args.Get(0).(*domain.Message), args.Error(1)
	}
	return nil, args.Error(1)
}

// SetState moke raise state
func (m *MockMessageRepository) SetState(ctx context.Context, id string, state domain.DeliveryState) (bool, error) {
	args := m.Called(ctx, id, state)
	return args.Bool(0), args.Error(1)
}

// CountUnreadByRoom moke unread counts
func (m *MockMessageRepository) CountUnreadByRoom(ctx context.Context, receiverID string) ([]domain.RoomUnread, error) {
	args := m.Called(ctx, receiverID)
	if args.Get(0) != nil {
		return args.Get(0).([]domain.RoomUnread), args.Error(1)
	}
	return nil, args.Error(1)
}

// MockEventSink Mock EventSink
type MockEventSink struct {
	mock.Mock
}

// Dispatch moke dispatch event
func (m *MockEventSink) Dispatch(event domain.ChatEvent) {
	m.Called(event)
}

// MockEventPublisher Mock EventPublisher
type MockEventPublisher struct {
	mock.Mock
}

// Publish moke publish event
func (m *MockEventPublisher) Publish(ctx context.Context, event domain.ChatEvent) error {
	args := m.Called(ctx, event)
	return args.Error(0)
}

// Close moke close publisher
func (m *MockEventPublisher) Close() error {
	return m.Called().Error(0)
}
