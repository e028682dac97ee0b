package repository

import (
	"context"
	"encoding/json"
	"testing"

	"marketplace_chat_service/internal/chat/domain"

	"github.com/segmentio/kafka-go"
	"github.com/streadway/amqp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockKafkaWriter struct {
	mock.Mock
}

func (m *mockKafkaWriter) WriteMessages(ctx context.Context, msgs ...kafka.Message) error {
	args := m.Called(ctx, msgs)
	return args.Error(0)
}

func (m *mockKafkaWriter) Close() error {
	return m.Called().Error(0)
}

type mockRabbitRepo struct {
	mock.Mock
}

func (m *mockRabbitRepo) GetRabbit() *amqp.Channel { return nil }

func (m *mockRabbitRepo) Publish(exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error {
	return m.Called(exchange, key, mandatory, immediate, msg).Error(0)
}

func (m *mockRabbitRepo) DeclareTopicExchange(name string) error {
	return m.Called(name).Error(0)
}

func (m *mockRabbitRepo) Close() error {
	return m.Called().Error(0)
}

func TestKafkaEventPublisher(t *testing.T) {
	w := new(mockKafkaWriter)
	event := domain.NewChatEvent(domain.KindMessageCreated, "1-2", "1")
	event.MessageID = "m1"

	w.On("WriteMessages", mock.Anything, mock.MatchedBy(func(msgs []kafka.Message) bool {
		if len(msgs) != 1 || string(msgs[0].Key) != "1-2" {
			return false
		}
		var got domain.ChatEvent
		if err := json.Unmarshal(msgs[0].Value, &got); err != nil {
			return false
		}
		return got.Kind == domain.KindMessageCreated && got.MessageID == "m1" &&
			string(msgs[0].Headers[0].Value) == "message.created"
	})).Return(nil).Once()
	w.On("Close").Return(nil).Once()

	p := NewKafkaEventPublisher(w)
	require.NoError(t, p.Publish(context.Background(), event))
	require.NoError(t, p.Close())
	w.AssertExpectations(t)
}

func TestRabbitEventPublisher(t *testing.T) {
	r := new(mockRabbitRepo)
	r.On("DeclareTopicExchange", "chat.events").Return(nil).Once()
	r.On("Publish", "chat.events", "room.bulk_read", false, false, mock.MatchedBy(func(msg amqp.Publishing) bool {
		var got domain.ChatEvent
		return msg.ContentType == "application/json" &&
			json.Unmarshal(msg.Body, &got) == nil &&
			got.Count == 3
	})).Return(nil).Once()

	p, err := NewRabbitEventPublisher(r, "chat.events")
	require.NoError(t, err)

	event := domain.NewChatEvent(domain.KindRoomBulkRead, "1-2", "2")
	event.Count = 3
	require.NoError(t, p.Publish(context.Background(), event))
	r.AssertExpectations(t)
}

func TestNopEventPublisher(t *testing.T) {
	p := NewNopEventPublisher()
	assert.NoError(t, p.Publish(context.Background(), domain.ChatEvent{}))
	assert.NoError(t, p.Close())
}
